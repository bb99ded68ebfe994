package bundleplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cribo/cribo/internal/analysis"
	"github.com/cribo/cribo/internal/config"
	"github.com/cribo/cribo/internal/depgraph"
	"github.com/cribo/cribo/internal/fs"
	"github.com/cribo/cribo/internal/logger"
	"github.com/cribo/cribo/internal/py_parser"
	"github.com/cribo/cribo/internal/resolver"
	"github.com/cribo/cribo/internal/semantic"
)

type testPlan struct {
	plan *Plan
	res  *resolver.Resolver
}

func buildPlan(t *testing.T, files map[string]string, options *config.Options) testPlan {
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
	result := analysis.Run(graph, models, res, options, log, entry)
	plan := Build(result, res, log, options.EffectivePythonVersion(), entry)
	return testPlan{plan: plan, res: res}
}

func (tp testPlan) id(t *testing.T, name string) resolver.ModuleId {
	id, ok := tp.res.Lookup(name)
	require.True(t, ok, "module %q not discovered", name)
	return id
}

func TestCleanModuleIsInlined(t *testing.T) {
	tp := buildPlan(t, map[string]string{
		"/src/main.py": "from util import helper\nhelper()\n",
		"/src/util.py": "def helper():\n    pass\n",
	}, nil)

	util := tp.id(t, "util")
	assert.False(t, tp.plan.IsWrapped(util))
	require.Len(t, tp.plan.InlinedCode, 1)
	assert.Equal(t, util, tp.plan.InlinedCode[0].Module)
	assert.Empty(t, tp.plan.NamespaceCreations)
}

func TestSideEffectModuleIsWrapped(t *testing.T) {
	tp := buildPlan(t, map[string]string{
		"/src/main.py": "import noisy\n",
		"/src/noisy.py": "print(\"side effect\")\nvalue = 1\n",
	}, nil)

	noisy := tp.id(t, "noisy")
	assert.True(t, tp.plan.IsWrapped(noisy))
	meta := tp.plan.ModuleMetadata[noisy]
	assert.Equal(t, "noisy", meta.NamespaceVar)
	assert.Equal(t, "__cribo_init_noisy", meta.InitFunc)
	require.Len(t, tp.plan.NamespaceCreations, 1)
	assert.Equal(t, "noisy", tp.plan.NamespaceCreations[0].DottedName)
}

func TestNamespaceImportWrapsTargetAndAncestors(t *testing.T) {
	tp := buildPlan(t, map[string]string{
		"/src/main.py":            "import pkg.mod\npkg.mod.run()\n",
		"/src/pkg/__init__.py":    "",
		"/src/pkg/mod.py":         "def run():\n    pass\n",
	}, nil)

	assert.True(t, tp.plan.IsWrapped(tp.id(t, "pkg.mod")))
	assert.True(t, tp.plan.IsWrapped(tp.id(t, "pkg")))
	assert.Equal(t, "pkg_mod", tp.plan.ModuleMetadata[tp.id(t, "pkg.mod")].NamespaceVar)
}

func TestWrappedSubmodulePropagatesToParent(t *testing.T) {
	tp := buildPlan(t, map[string]string{
		"/src/main.py":         "from pkg import sub\nsub.run()\n",
		"/src/pkg/__init__.py": "",
		"/src/pkg/sub.py":      "def run():\n    pass\n",
	}, nil)

	assert.True(t, tp.plan.IsWrapped(tp.id(t, "pkg.sub")))
	assert.True(t, tp.plan.IsWrapped(tp.id(t, "pkg")))

	require.Len(t, tp.plan.NamespacePopulations, 1)
	pop := tp.plan.NamespacePopulations[0]
	assert.Equal(t, "pkg", pop.Var)
	assert.Equal(t, "sub", pop.Attribute)
	assert.Equal(t, "pkg_sub", pop.Symbol)
}

func TestEntryIsNeverWrapped(t *testing.T) {
	tp := buildPlan(t, map[string]string{
		"/src/main.py": "print(\"effects\")\n",
	}, nil)

	assert.False(t, tp.plan.IsWrapped(tp.id(t, "main")))
}

func TestHoistedImportsDeduplicated(t *testing.T) {
	tp := buildPlan(t, map[string]string{
		"/src/main.py": "import os\nimport util\nos.getcwd()\n",
		"/src/util.py": "import os\nfrom json import dumps\n\ndef helper():\n    return dumps(os.getcwd())\n",
	}, nil)

	assert.Equal(t, []HoistedImport{
		{Module: "os"},
		{Module: "json", Symbol: "dumps"},
	}, tp.plan.HoistedImports)
}

func TestSideEffectingStdlibNotHoisted(t *testing.T) {
	tp := buildPlan(t, map[string]string{
		"/src/main.py": "import turtle\nturtle.forward(10)\n",
	}, nil)

	assert.Empty(t, tp.plan.HoistedImports)
	main := tp.id(t, "main")
	rewrite := tp.plan.ImportRewrites[analysis.ModuleItem{Module: main, Item: 0}]
	assert.Equal(t, PreserveImport, rewrite.Action)
}

func TestFutureImportsCollectedAndDropped(t *testing.T) {
	tp := buildPlan(t, map[string]string{
		"/src/main.py": "from __future__ import annotations\nimport util\n",
		"/src/util.py": "from __future__ import annotations, division\n\ndef helper():\n    pass\n",
	}, nil)

	assert.Equal(t, []string{"annotations", "division"}, tp.plan.FutureImports)
	main := tp.id(t, "main")
	rewrite := tp.plan.ImportRewrites[analysis.ModuleItem{Module: main, Item: 0}]
	assert.Equal(t, DropImport, rewrite.Action)
}

func TestTwoWayConflictGetsNumericSuffix(t *testing.T) {
	tp := buildPlan(t, map[string]string{
		"/src/main.py": "from a import process as pa\nfrom b import process as pb\npa()\npb()\n",
		"/src/a.py":    "def process():\n    pass\n",
		"/src/b.py":    "def process():\n    pass\n",
	}, nil)

	assert.Empty(t, tp.plan.SymbolRenames[tp.id(t, "a")])
	assert.Equal(t, map[string]string{"process": "process_2"}, tp.plan.SymbolRenames[tp.id(t, "b")])
}

func TestNumericSuffixSkipsDefinedName(t *testing.T) {
	tp := buildPlan(t, map[string]string{
		"/src/main.py": "from a import process as pa\nfrom b import process as pb\npa()\npb()\n",
		"/src/a.py":    "def process():\n    pass\n",
		"/src/b.py":    "def process():\n    pass\n\nprocess_2 = 99\n",
	}, nil)

	// b already owns process_2 at bundle scope
	assert.Equal(t, "process_3", tp.plan.SymbolRenames[tp.id(t, "b")]["process"])
}

func TestManyWayConflictUsesModuleSuffix(t *testing.T) {
	tp := buildPlan(t, map[string]string{
		"/src/main.py": "from a import process as pa\nfrom b import process as pb\nfrom c import process as pc\npa()\npb()\npc()\n",
		"/src/a.py":    "def process():\n    pass\n",
		"/src/b.py":    "def process():\n    pass\n",
		"/src/c.py":    "def process():\n    pass\n",
	}, nil)

	assert.Empty(t, tp.plan.SymbolRenames[tp.id(t, "a")])
	assert.Equal(t, "process__b", tp.plan.SymbolRenames[tp.id(t, "b")]["process"])
	assert.Equal(t, "process__c", tp.plan.SymbolRenames[tp.id(t, "c")]["process"])
}

func TestEntryKeepsNameInConflict(t *testing.T) {
	tp := buildPlan(t, map[string]string{
		"/src/main.py": "from a import process as helper\n\ndef process():\n    pass\nhelper()\nprocess()\n",
		"/src/a.py":    "def process():\n    pass\n",
	}, nil)

	assert.Empty(t, tp.plan.SymbolRenames[tp.id(t, "main")])
	assert.Equal(t, "process_2", tp.plan.SymbolRenames[tp.id(t, "a")]["process"])
}

func TestBundledImportDropped(t *testing.T) {
	tp := buildPlan(t, map[string]string{
		"/src/main.py": "from util import helper\nhelper()\n",
		"/src/util.py": "def helper():\n    pass\n",
	}, nil)

	main := tp.id(t, "main")
	rewrite := tp.plan.ImportRewrites[analysis.ModuleItem{Module: main, Item: 0}]
	assert.Equal(t, DropImport, rewrite.Action)
}

func TestImportOfWrappedModuleBindsNamespace(t *testing.T) {
	tp := buildPlan(t, map[string]string{
		"/src/main.py":  "import noisy\nnoisy.value\n",
		"/src/noisy.py": "print(\"hi\")\nvalue = 1\n",
	}, nil)

	main := tp.id(t, "main")
	rewrite := tp.plan.ImportRewrites[analysis.ModuleItem{Module: main, Item: 0}]
	assert.Equal(t, BindNamespace, rewrite.Action)
	assert.Equal(t, tp.id(t, "noisy"), rewrite.Target)
}

func TestWildcardFromWrappedModuleExpands(t *testing.T) {
	tp := buildPlan(t, map[string]string{
		"/src/main.py":  "from noisy import *\n",
		"/src/noisy.py": "print(\"hi\")\nvalue = 1\n",
	}, nil)

	main := tp.id(t, "main")
	rewrite := tp.plan.ImportRewrites[analysis.ModuleItem{Module: main, Item: 0}]
	assert.Equal(t, ExpandWildcard, rewrite.Action)
}

func TestInlinedCodeOrderedDependenciesFirst(t *testing.T) {
	tp := buildPlan(t, map[string]string{
		"/src/main.py": "import a\n",
		"/src/a.py":    "import b\n\ndef fa():\n    pass\n",
		"/src/b.py":    "def fb():\n    pass\n",
	}, nil)

	require.NotEmpty(t, tp.plan.InlinedCode)
	b := tp.id(t, "b")
	a := tp.id(t, "a")
	var modules []resolver.ModuleId
	for _, item := range tp.plan.InlinedCode {
		modules = append(modules, item.Module)
	}
	assert.Less(t, indexOf(modules, b), indexOf(modules, a))
}

func TestUnresolvableCycleIsFatal(t *testing.T) {
	tp := buildPlan(t, map[string]string{
		"/src/main.py": "import a\n",
		"/src/a.py":    "from b import LIMIT\nvalue = LIMIT + 1\n",
		"/src/b.py":    "from a import value\nLIMIT = 10\n",
	}, nil)

	require.Len(t, tp.plan.FatalCycles, 1)
	assert.Equal(t, depgraph.Unresolvable, tp.plan.FatalCycles[0].Strategy.Kind)
}

func indexOf(list []resolver.ModuleId, id resolver.ModuleId) int {
	for i, entry := range list {
		if entry == id {
			return i
		}
	}
	return -1
}
