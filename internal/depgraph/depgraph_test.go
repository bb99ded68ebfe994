package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cribo/cribo/internal/config"
	"github.com/cribo/cribo/internal/fs"
	"github.com/cribo/cribo/internal/logger"
	"github.com/cribo/cribo/internal/py_parser"
	"github.com/cribo/cribo/internal/resolver"
	"github.com/cribo/cribo/internal/semantic"
)

type testGraph struct {
	graph    *Graph
	res      *resolver.Resolver
	registry *semantic.Registry
}

func buildGraph(t *testing.T, files map[string]string) testGraph {
	t.Helper()
	log := logger.NewDeferLog()
	res := resolver.New(fs.MockFS(files), log, []string{"/src"}, py_parser.Parse)
	entry, err := res.AddEntry("/src/main.py", "main")
	require.NoError(t, err)

	registry := semantic.NewRegistry()
	options := &config.Options{PythonVersion: 310}
	graph, err := Build(res, registry, log, options, entry)
	require.NoError(t, err)
	return testGraph{graph: graph, res: res, registry: registry}
}

func (tg testGraph) models(id resolver.ModuleId) *semantic.Model {
	ast, err := tg.res.Parse(id)
	if err != nil {
		return nil
	}
	return tg.registry.Model(id, &ast)
}

func (tg testGraph) id(t *testing.T, name string) resolver.ModuleId {
	id, ok := tg.res.Lookup(name)
	require.True(t, ok, "module %q not discovered", name)
	return id
}

func TestDiscoversTransitiveImports(t *testing.T) {
	tg := buildGraph(t, map[string]string{
		"/src/main.py": "import a\n",
		"/src/a.py":    "from b import helper\n",
		"/src/b.py":    "def helper():\n    pass\n",
	})

	assert.Len(t, tg.graph.Modules, 3)
	a := tg.id(t, "a")
	b := tg.id(t, "b")

	edges := tg.graph.OutgoingEdges(a)
	require.Len(t, edges, 1)
	assert.Equal(t, b, edges[0].To)
	assert.Equal(t, FromImport, edges[0].Type)
	require.Len(t, edges[0].Symbols, 1)
	assert.Equal(t, "helper", edges[0].Symbols[0].Name)
}

func TestThirdPartyAndStdlibSeparation(t *testing.T) {
	tg := buildGraph(t, map[string]string{
		"/src/main.py": "import os\nimport requests\nfrom yaml import safe_load\n",
	})

	assert.Empty(t, tg.graph.OutgoingEdges(tg.id(t, "main")))
	assert.Equal(t, []string{"requests", "yaml"}, tg.graph.ThirdPartyNames())
}

func TestItemDefinesAndReads(t *testing.T) {
	tg := buildGraph(t, map[string]string{
		"/src/main.py": "BASE = 1\n\ndef scaled(factor):\n    return BASE * factor\n",
	})

	info := tg.graph.Modules[tg.id(t, "main")]
	require.Len(t, info.Items, 2)

	assert.Equal(t, []string{"BASE"}, info.Items[0].Defines)
	assert.Equal(t, []string{"scaled"}, info.Items[1].Defines)
	assert.Contains(t, info.Items[1].Reads, "BASE")
	assert.NotContains(t, info.Items[1].ImportTimeReads, "BASE")
	assert.False(t, info.HasSideEffects)
}

func TestBareCallIsSideEffect(t *testing.T) {
	tg := buildGraph(t, map[string]string{
		"/src/main.py": "print('booting')\n",
	})
	assert.True(t, tg.graph.Modules[tg.id(t, "main")].HasSideEffects)
}

func TestFunctionScopedImportEdge(t *testing.T) {
	tg := buildGraph(t, map[string]string{
		"/src/main.py": "import a\n",
		"/src/a.py":    "def late():\n    import b\n    return b.x\n",
		"/src/b.py":    "x = 1\n",
	})

	a := tg.id(t, "a")
	edges := tg.graph.OutgoingEdges(a)
	require.Len(t, edges, 1)
	assert.True(t, edges[0].Meta.FunctionScoped)
	assert.Equal(t, "late", edges[0].Meta.EnclosingFunction)
}

func TestSafeCycleIsFunctionLevel(t *testing.T) {
	tg := buildGraph(t, map[string]string{
		"/src/main.py": "import a\n",
		"/src/a.py":    "from b import B\n\nclass A(B):\n    pass\n",
		"/src/b.py":    "def helper():\n    from a import A\n    return A\n\nclass B:\n    pass\n",
	})

	cycles := tg.graph.AnalyzeCycles(tg.models)
	require.Len(t, cycles, 1)
	assert.Equal(t, FunctionLevel, cycles[0].Type)
	assert.Equal(t, FunctionScopedImport, cycles[0].Strategy.Kind)
}

func TestImportTimeCycleNeedsLazyInit(t *testing.T) {
	tg := buildGraph(t, map[string]string{
		"/src/main.py": "import a\n",
		"/src/a.py":    "import b\n\ndef fa():\n    return b.fb, shared\n\nshared = b.NAME_LEN\n",
		"/src/b.py":    "import a\n\nNAME_LEN = 3\n\ndef fb():\n    return a.fa\n",
	})

	cycles := tg.graph.AnalyzeCycles(tg.models)
	require.Len(t, cycles, 1)
	assert.Equal(t, ImportTime, cycles[0].Type)
	assert.Equal(t, LazyImport, cycles[0].Strategy.Kind)
}

func TestModuleConstantCycleIsUnresolvable(t *testing.T) {
	tg := buildGraph(t, map[string]string{
		"/src/main.py": "import a\n",
		"/src/a.py":    "from b import LIMIT\n\nSIZE = LIMIT * 2\n\ndef fa():\n    import b\n",
		"/src/b.py":    "from a import SIZE\n\nLIMIT = 10\n\nCHECK = SIZE\n",
	})

	cycles := tg.graph.AnalyzeCycles(tg.models)
	require.Len(t, cycles, 1)
	assert.Equal(t, ModuleConstants, cycles[0].Type)
	assert.Equal(t, Unresolvable, cycles[0].Strategy.Kind)
	assert.NotEmpty(t, cycles[0].Strategy.Suggestions)
}

func TestTopologicalOrder(t *testing.T) {
	tg := buildGraph(t, map[string]string{
		"/src/main.py": "import a\nimport b\n",
		"/src/a.py":    "import b\n",
		"/src/b.py":    "x = 1\n",
	})

	order := tg.graph.TopologicalOrder()
	position := map[resolver.ModuleId]int{}
	for i, id := range order {
		position[id] = i
	}
	assert.Less(t, position[tg.id(t, "b")], position[tg.id(t, "a")])
	assert.Less(t, position[tg.id(t, "a")], position[tg.id(t, "main")])
}

func TestRelativeImportEdge(t *testing.T) {
	tg := buildGraph(t, map[string]string{
		"/src/main.py":         "import pkg\n",
		"/src/pkg/__init__.py": "from .sub import g\n",
		"/src/pkg/sub.py":      "def g():\n    return 'hi'\n",
	})

	pkg := tg.id(t, "pkg")
	sub := tg.id(t, "pkg.sub")
	edges := tg.graph.OutgoingEdges(pkg)
	require.Len(t, edges, 1)
	assert.Equal(t, sub, edges[0].To)
	assert.Equal(t, RelativeImport, edges[0].Type)
	assert.Equal(t, 1, edges[0].Level)
}

func TestFutureImportsCollected(t *testing.T) {
	tg := buildGraph(t, map[string]string{
		"/src/main.py": "from __future__ import annotations\nx = 1\n",
	})

	info := tg.graph.Modules[tg.id(t, "main")]
	assert.Equal(t, []string{"annotations"}, info.FutureImports)
	assert.True(t, info.Items[0].IsFuture)
	assert.Empty(t, tg.graph.OutgoingEdges(info.Id))
}
