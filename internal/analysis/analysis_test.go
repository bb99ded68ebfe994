package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cribo/cribo/internal/config"
	"github.com/cribo/cribo/internal/depgraph"
	"github.com/cribo/cribo/internal/fs"
	"github.com/cribo/cribo/internal/logger"
	"github.com/cribo/cribo/internal/py_parser"
	"github.com/cribo/cribo/internal/resolver"
	"github.com/cribo/cribo/internal/semantic"
)

type testAnalysis struct {
	analysis *Analysis
	graph    *depgraph.Graph
	res      *resolver.Resolver
}

func analyze(t *testing.T, files map[string]string, options *config.Options) testAnalysis {
	t.Helper()
	log := logger.NewDeferLog()
	res := resolver.New(fs.MockFS(files), log, []string{"/src"}, py_parser.Parse)
	entry, err := res.AddEntry("/src/main.py", "main")
	require.NoError(t, err)

	registry := semantic.NewRegistry()
	if options == nil {
		options = &config.Options{PythonVersion: 310}
	}
	graph, err := depgraph.Build(res, registry, log, options, entry)
	require.NoError(t, err)

	models := func(id resolver.ModuleId) *semantic.Model {
		ast, err := res.Parse(id)
		if err != nil {
			return nil
		}
		return registry.Model(id, &ast)
	}
	result := Run(graph, models, res, options, log, entry)
	return testAnalysis{analysis: result, graph: graph, res: res}
}

func (ta testAnalysis) id(t *testing.T, name string) resolver.ModuleId {
	id, ok := ta.res.Lookup(name)
	require.True(t, ok, "module %q not discovered", name)
	return id
}

func (ta testAnalysis) binding(t *testing.T, ra testAnalysis, module, name string) semantic.GlobalBindingId {
	t.Helper()
	id := ta.id(t, module)
	ast, err := ta.res.Parse(id)
	require.NoError(t, err)
	model := semantic.Build(id, &ast)
	b, ok := model.Global.Lookup(name)
	require.True(t, ok, "no binding %q in %q", name, module)
	return semantic.GlobalBindingId{Module: id, Binding: b.Id}
}

func (ta testAnalysis) itemTransformations(t *testing.T, module string, item depgraph.ItemId) []Transformation {
	t.Helper()
	return ta.analysis.Transformations[ModuleItem{Module: ta.id(t, module), Item: item}]
}

func TestOriginTracesReExportChain(t *testing.T) {
	ta := analyze(t, map[string]string{
		"/src/main.py": "from facade import helper\n",
		"/src/facade.py": "from impl import helper\n",
		"/src/impl.py":   "def helper():\n    pass\n",
	}, nil)

	from := ta.binding(t, ta, "main", "helper")
	terminal := ta.binding(t, ta, "impl", "helper")
	assert.Equal(t, terminal, ta.analysis.Origin(from))

	mid := ta.binding(t, ta, "facade", "helper")
	assert.Equal(t, terminal, ta.analysis.Origin(mid))
}

func TestOriginStopsOnReExportLoop(t *testing.T) {
	ta := analyze(t, map[string]string{
		"/src/main.py": "import a\n",
		"/src/a.py":    "from b import thing\n",
		"/src/b.py":    "from a import thing\n",
	}, nil)

	from := ta.binding(t, ta, "a", "thing")
	// No terminal definition exists, so the binding maps to itself
	assert.Equal(t, from, ta.analysis.Origin(from))
}

func TestConflictsDetectDuplicateDefinitions(t *testing.T) {
	ta := analyze(t, map[string]string{
		"/src/main.py": "import a\nimport b\n",
		"/src/a.py":    "def process():\n    pass\n",
		"/src/b.py":    "def process():\n    pass\n",
	}, nil)

	entries := ta.analysis.Conflicts["process"]
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].ModuleName)
	assert.Equal(t, "b", entries[1].ModuleName)
	assert.Equal(t, semantic.FunctionDefinition, entries[0].Kind)
}

func TestConflictsIgnorePrivateNames(t *testing.T) {
	ta := analyze(t, map[string]string{
		"/src/main.py": "import a\nimport b\n",
		"/src/a.py":    "_cache = {}\n",
		"/src/b.py":    "_cache = {}\n",
	}, nil)

	assert.Empty(t, ta.analysis.Conflicts)
}

func TestConflictsCollapseReExports(t *testing.T) {
	// "helper" appears in both impl and facade, but facade only re-exports
	// the impl definition. One logical symbol, no conflict.
	ta := analyze(t, map[string]string{
		"/src/main.py":   "from facade import helper\n",
		"/src/facade.py": "from impl import helper\n",
		"/src/impl.py":   "def helper():\n    pass\n",
	}, nil)

	assert.Empty(t, ta.analysis.Conflicts)
}

func TestConflictsUseLastBinding(t *testing.T) {
	ta := analyze(t, map[string]string{
		"/src/main.py": "import a\nimport b\n",
		"/src/a.py":    "value = 1\ndef value():\n    pass\n",
		"/src/b.py":    "value = 2\n",
	}, nil)

	entries := ta.analysis.Conflicts["value"]
	require.Len(t, entries, 2)
	// The winning binding in a is the function, not the assignment
	assert.Equal(t, semantic.FunctionDefinition, entries[0].Kind)
	assert.Equal(t, semantic.Assignment, entries[1].Kind)
}

func TestTreeShakingKeepsReachableOnly(t *testing.T) {
	ta := analyze(t, map[string]string{
		"/src/main.py": "from util import used\nused()\n",
		"/src/util.py": "def used():\n    pass\n\ndef unused():\n    pass\n",
	}, &config.Options{PythonVersion: 310, TreeShake: true})

	util := ta.id(t, "util")
	// Item 0 defines used, item 1 defines unused
	assert.True(t, ta.analysis.IsLive(util, 0))
	assert.False(t, ta.analysis.IsLive(util, 1))
	assert.True(t, ta.analysis.IsModuleLive(util))
}

func TestTreeShakingKeepsSideEffects(t *testing.T) {
	ta := analyze(t, map[string]string{
		"/src/main.py": "import util\n",
		"/src/util.py": "print(\"loading\")\n\ndef unused():\n    pass\n",
	}, &config.Options{PythonVersion: 310, TreeShake: true})

	util := ta.id(t, "util")
	assert.True(t, ta.analysis.IsLive(util, 0))
}

func TestTreeShakingHonorsDunderAll(t *testing.T) {
	ta := analyze(t, map[string]string{
		"/src/main.py": "__all__ = [\"api\"]\n\ndef api():\n    pass\n\ndef internal():\n    pass\n",
	}, &config.Options{PythonVersion: 310, TreeShake: true})

	main := ta.id(t, "main")
	assert.True(t, ta.analysis.IsLive(main, 0))
	assert.True(t, ta.analysis.IsLive(main, 1))
	assert.False(t, ta.analysis.IsLive(main, 2))
}

func TestDynamicDunderAllDisablesShaking(t *testing.T) {
	ta := analyze(t, map[string]string{
		"/src/main.py": "import util\n",
		"/src/util.py": "__all__ = [n for n in dir() if not n.startswith(\"_\")]\n\ndef anything():\n    pass\n",
	}, &config.Options{PythonVersion: 310, TreeShake: true})

	util := ta.id(t, "util")
	assert.True(t, ta.analysis.IsLive(util, 0))
	assert.True(t, ta.analysis.IsLive(util, 1))
}

func TestDisabledShakingKeepsEverything(t *testing.T) {
	ta := analyze(t, map[string]string{
		"/src/main.py": "import util\n",
		"/src/util.py": "def unused():\n    pass\n",
	}, nil)

	assert.Nil(t, ta.analysis.Live)
	assert.True(t, ta.analysis.IsLive(ta.id(t, "util"), 0))
}

func TestBundledImportTransformation(t *testing.T) {
	ta := analyze(t, map[string]string{
		"/src/main.py": "from util import helper\nhelper()\n",
		"/src/util.py": "def helper():\n    pass\n",
	}, nil)

	trs := ta.itemTransformations(t, "main", 0)
	require.Len(t, trs, 1)
	assert.Equal(t, RemoveImport, trs[0].Kind)
	assert.Equal(t, RemoveBundled, trs[0].Reason)
	assert.Equal(t, []string{"helper"}, trs[0].Names)
	assert.Equal(t, ta.id(t, "util"), trs[0].Target)
}

func TestStdlibFromImportRewrite(t *testing.T) {
	ta := analyze(t, map[string]string{
		"/src/main.py": "from os.path import join\njoin(\"a\", \"b\")\n",
	}, nil)

	trs := ta.itemTransformations(t, "main", 0)
	require.Len(t, trs, 1)
	assert.Equal(t, StdlibImportRewrite, trs[0].Kind)
	assert.Equal(t, []string{"join"}, trs[0].Names)
}

func TestPlainStdlibImportUntouched(t *testing.T) {
	ta := analyze(t, map[string]string{
		"/src/main.py": "import os\nos.getcwd()\n",
	}, nil)

	assert.Empty(t, ta.itemTransformations(t, "main", 0))
}

func TestUnusedThirdPartyImportRemoved(t *testing.T) {
	ta := analyze(t, map[string]string{
		"/src/main.py": "from requests import get\n",
	}, &config.Options{PythonVersion: 310, TreeShake: true})

	trs := ta.itemTransformations(t, "main", 0)
	require.Len(t, trs, 1)
	assert.Equal(t, RemoveImport, trs[0].Kind)
	assert.Equal(t, RemoveUnused, trs[0].Reason)
}

func TestPartialImportRemoval(t *testing.T) {
	ta := analyze(t, map[string]string{
		"/src/main.py": "from requests import get, post\nget(\"url\")\n",
	}, &config.Options{PythonVersion: 310, TreeShake: true})

	trs := ta.itemTransformations(t, "main", 0)
	require.Len(t, trs, 1)
	assert.Equal(t, PartialImportRemoval, trs[0].Kind)
	assert.Equal(t, []string{"post"}, trs[0].Names)
}

func TestConflictRenameTransformation(t *testing.T) {
	ta := analyze(t, map[string]string{
		"/src/main.py": "import a\nimport b\n",
		"/src/a.py":    "def process():\n    pass\n\nprocess()\n",
		"/src/b.py":    "def process():\n    pass\n",
	}, nil)

	defTrs := ta.itemTransformations(t, "a", 0)
	require.Len(t, defTrs, 1)
	assert.Equal(t, SymbolRewrite, defTrs[0].Kind)
	assert.Equal(t, []string{"process"}, defTrs[0].Names)

	// The call site gets the rename too
	useTrs := ta.itemTransformations(t, "a", 1)
	require.Len(t, useTrs, 1)
	assert.Equal(t, SymbolRewrite, useTrs[0].Kind)
}

func TestTransformationsSortedByPriority(t *testing.T) {
	ta := analyze(t, map[string]string{
		"/src/main.py": "import a\nimport b\n",
		"/src/a.py":    "from b import process\n",
		"/src/b.py":    "def process():\n    pass\n",
	}, nil)

	// a's from-import is bundled; give it a conflicting local definition too
	trs := ta.itemTransformations(t, "a", 0)
	for i := 1; i < len(trs); i++ {
		assert.LessOrEqual(t, trs[i-1].Kind.Priority(), trs[i].Kind.Priority())
	}
}

func TestTransformationQueries(t *testing.T) {
	ta := analyze(t, map[string]string{
		"/src/main.py": "from a import f\nfrom b import g\nf()\ng()\n",
		"/src/a.py":    "from typing import List\n\ndef f():\n    return List\n\ndef shared():\n    pass\n",
		"/src/b.py":    "def g():\n    pass\n\ndef shared():\n    pass\n",
	}, nil)

	aId := ta.id(t, "a")
	items := ta.graph.Modules[aId].Items
	require.NotEmpty(t, items)
	key := ModuleItem{Module: aId, Item: items[0].Id}
	assert.True(t, ta.analysis.HasTransformation(key, StdlibImportRewrite))
	assert.False(t, ta.analysis.HasTransformation(key, CircularDepImportMove))

	assert.True(t, ta.analysis.NeedsRename(aId, "shared"))
	assert.True(t, ta.analysis.NeedsRename(ta.id(t, "b"), "shared"))
	assert.False(t, ta.analysis.NeedsRename(aId, "f"))
	assert.Positive(t, ta.analysis.TransformationCount())
}
