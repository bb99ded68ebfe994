package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cribo/cribo/internal/analysis"
	"github.com/cribo/cribo/internal/bundleplan"
	"github.com/cribo/cribo/internal/config"
	"github.com/cribo/cribo/internal/depgraph"
	"github.com/cribo/cribo/internal/fs"
	"github.com/cribo/cribo/internal/logger"
	"github.com/cribo/cribo/internal/py_ast"
	"github.com/cribo/cribo/internal/py_parser"
	"github.com/cribo/cribo/internal/py_printer"
	"github.com/cribo/cribo/internal/resolver"
	"github.com/cribo/cribo/internal/semantic"
	"github.com/cribo/cribo/internal/xform"
)

func generate(t *testing.T, files map[string]string, options *config.Options) (string, error) {
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
	plan := bundleplan.Build(result, res, log, options.EffectivePythonVersion(), entry)

	var maxIndex py_ast.NodeIndex
	for _, name := range res.ModuleNames() {
		id, _ := res.Lookup(name)
		ast, err := res.Parse(id)
		require.NoError(t, err)
		if ast.NextNodeIndex > maxIndex {
			maxIndex = ast.NextNodeIndex
		}
	}
	ctx := xform.NewContextAt(maxIndex)

	body, err := Generate(result, plan, res, log, ctx)
	if err != nil {
		return "", err
	}
	return py_printer.Print(body), nil
}

func expectBundle(t *testing.T, files map[string]string, expected string) {
	t.Helper()
	code, err := generate(t, files, nil)
	require.NoError(t, err)
	assert.Equal(t, expected, code)
}

func TestSimpleInlining(t *testing.T) {
	expectBundle(t, map[string]string{
		"/src/main.py": "from util import greet\ngreet()\n",
		"/src/util.py": "def greet():\n    print(\"hi\")\n",
	}, `def greet():
    print("hi")
greet()
`)
}

func TestRenamedConflict(t *testing.T) {
	code, err := generate(t, map[string]string{
		"/src/main.py": "from a import process\nfrom b import helper\nprocess()\nhelper()\n",
		"/src/a.py":    "def process():\n    pass\n",
		"/src/b.py":    "def process():\n    pass\n\ndef helper():\n    return process()\n",
	}, nil)
	require.NoError(t, err)

	assert.Contains(t, code, "def process():")
	assert.Contains(t, code, "def process_2():")
	// b's helper calls b's own process under its new name
	assert.Contains(t, code, "return process_2()")
}

func TestWrappedModuleEmitsNamespaceAndInit(t *testing.T) {
	code, err := generate(t, map[string]string{
		"/src/main.py":  "import noisy\nprint(noisy.value)\n",
		"/src/noisy.py": "print(\"loading\")\nvalue = 42\n",
	}, nil)
	require.NoError(t, err)

	assert.Contains(t, code, "import types")
	assert.Contains(t, code,
		"noisy = types.SimpleNamespace(__name__='noisy', __initializing__=False, __initialized__=False)")
	assert.Contains(t, code, "def __cribo_init_noisy(self):")
	assert.Contains(t, code, "if self.__initialized__:")
	assert.Contains(t, code, "self.__initializing__ = True")
	assert.Contains(t, code, "self.value = value")
	assert.Contains(t, code, "__cribo_init_noisy(noisy)")
	// Exactly one init definition and one namespace creation
	assert.Equal(t, 1, strings.Count(code, "def __cribo_init_noisy"))
	assert.Equal(t, 1, strings.Count(code, "types.SimpleNamespace"))
}

func TestFutureImportsComeFirst(t *testing.T) {
	code, err := generate(t, map[string]string{
		"/src/main.py": "from __future__ import annotations\nimport util\nutil\n",
		"/src/util.py": "from __future__ import division\n\ndef helper():\n    pass\n",
	}, nil)
	require.NoError(t, err)

	lines := strings.SplitN(code, "\n", 2)
	assert.Equal(t, "from __future__ import annotations, division", lines[0])
}

func TestHoistedImportsAfterFuture(t *testing.T) {
	code, err := generate(t, map[string]string{
		"/src/main.py": "import util\nutil\n",
		"/src/util.py": "import os\nfrom json import dumps\n\ndef helper():\n    return dumps(os.getcwd())\n",
	}, nil)
	require.NoError(t, err)

	assert.Contains(t, code, "import os\n")
	assert.Contains(t, code, "from json import dumps\n")
	// The util module's own import lines are gone; only the hoisted copies
	assert.Equal(t, 1, strings.Count(code, "import os"))
}

func TestWrappedPackageAttachment(t *testing.T) {
	code, err := generate(t, map[string]string{
		"/src/main.py":         "from pkg import sub\nsub.run()\n",
		"/src/pkg/__init__.py": "",
		"/src/pkg/sub.py":      "def run():\n    pass\n",
	}, nil)
	require.NoError(t, err)

	assert.Contains(t, code, "pkg = types.SimpleNamespace(__name__='pkg'")
	assert.Contains(t, code, "__path__=[]")
	assert.Contains(t, code, "pkg_sub = types.SimpleNamespace(__name__='pkg.sub'")
	assert.Contains(t, code, "pkg.sub = pkg_sub")
	assert.Contains(t, code, "sub = pkg_sub")
}

func TestFunctionScopedImportLowered(t *testing.T) {
	code, err := generate(t, map[string]string{
		"/src/main.py": "import util\nutil\n",
		"/src/util.py": "def lazy():\n    import noisy\n    return noisy.value\n",
		"/src/noisy.py": "print(\"hi\")\nvalue = 1\n",
	}, nil)
	require.NoError(t, err)

	// The in-function import becomes an init call; no "import noisy" remains
	assert.Contains(t, code, "__cribo_init_noisy(noisy)")
	assert.NotContains(t, code, "import noisy")
}

func TestWildcardFromWrappedWithStaticAll(t *testing.T) {
	code, err := generate(t, map[string]string{
		"/src/main.py":  "from noisy import *\nvalue\n",
		"/src/noisy.py": "__all__ = [\"value\"]\nprint(\"hi\")\nvalue = 1\nhidden = 2\n",
	}, nil)
	require.NoError(t, err)

	assert.Contains(t, code, "value = noisy.value")
	assert.NotContains(t, code, "hidden = noisy.hidden")
}

func TestWildcardFromWrappedDynamic(t *testing.T) {
	code, err := generate(t, map[string]string{
		"/src/main.py":  "from noisy import *\n",
		"/src/noisy.py": "print(\"hi\")\nvalue = 1\n",
	}, nil)
	require.NoError(t, err)

	assert.Contains(t, code, "for __cribo_attr in dir(noisy):")
	assert.Contains(t, code, "if not __cribo_attr.startswith('_'):")
	assert.Contains(t, code, "globals()[__cribo_attr] = getattr(noisy, __cribo_attr)")
}

func TestUnresolvableCycleFails(t *testing.T) {
	_, err := generate(t, map[string]string{
		"/src/main.py": "import a\n",
		"/src/a.py":    "from b import LIMIT\nvalue = LIMIT + 1\n",
		"/src/b.py":    "from a import value\nLIMIT = 10\n",
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unresolvable")
}

func TestFunctionLevelCycleBundles(t *testing.T) {
	code, err := generate(t, map[string]string{
		"/src/main.py": "from a import fa\nfa()\n",
		"/src/a.py":    "def fa():\n    from b import fb\n    return fb()\n",
		"/src/b.py":    "def fb():\n    from a import fa\n    return fa\n",
	}, nil)
	require.NoError(t, err)

	assert.Contains(t, code, "def fa():")
	assert.Contains(t, code, "def fb():")
	assert.NotContains(t, code, "from a import")
	assert.NotContains(t, code, "from b import")
}

func TestGlobalDeclarationLifted(t *testing.T) {
	code, err := generate(t, map[string]string{
		"/src/main.py":  "import counter\ncounter.bump()\n",
		"/src/counter.py": "print(\"init\")\ncount = 0\n\ndef bump():\n    global count\n    count = count + 1\n",
	}, nil)
	require.NoError(t, err)

	assert.Contains(t, code, "self.count = self.count + 1")
	assert.NotContains(t, code, "global count")
}

func TestModuleScopeUsesOfLiftedGlobal(t *testing.T) {
	code, err := generate(t, map[string]string{
		"/src/main.py": "import counter\ncounter.bump()\n",
		"/src/counter.py": "print(\"init\")\ncount = 0\n\ndef bump():\n    global count\n    count = count + 1\nbump()\nprint(count)\n",
	}, nil)
	require.NoError(t, err)

	// The module body reads count through the namespace too, so the print
	// sees the value bump wrote
	assert.Contains(t, code, "self.count = 0")
	assert.Contains(t, code, "print(self.count)")
	assert.NotContains(t, code, "print(count)")
	assert.NotContains(t, code, "self.count = count")
}

func TestForwardReferenceReordered(t *testing.T) {
	stmtsOf := func(code string) []string { return strings.Split(code, "\n") }

	code, err := generate(t, map[string]string{
		"/src/main.py": "from shapes import Circle\nCircle()\n",
		"/src/shapes.py": "class Circle(Base):\n    pass\n\nclass Base:\n    pass\n",
	}, nil)
	require.NoError(t, err)

	lines := stmtsOf(code)
	baseAt, circleAt := -1, -1
	for i, line := range lines {
		if strings.HasPrefix(line, "class Base") {
			baseAt = i
		}
		if strings.HasPrefix(line, "class Circle") {
			circleAt = i
		}
	}
	require.NotEqual(t, -1, baseAt)
	require.NotEqual(t, -1, circleAt)
	assert.Less(t, baseAt, circleAt)
}

func TestEntryStatementsComeLast(t *testing.T) {
	code, err := generate(t, map[string]string{
		"/src/main.py": "from util import helper\nprint(\"entry\")\nhelper()\n",
		"/src/util.py": "def helper():\n    pass\n",
	}, nil)
	require.NoError(t, err)

	helperDef := strings.Index(code, "def helper")
	entryPrint := strings.Index(code, "print(\"entry\")")
	require.NotEqual(t, -1, helperDef)
	require.NotEqual(t, -1, entryPrint)
	assert.Less(t, helperDef, entryPrint)
}

func TestRelativeImportsBundled(t *testing.T) {
	code, err := generate(t, map[string]string{
		"/src/main.py":         "from pkg.a import fa\nfa()\n",
		"/src/pkg/__init__.py": "",
		"/src/pkg/a.py":        "from .b import fb\n\ndef fa():\n    return fb()\n",
		"/src/pkg/b.py":        "def fb():\n    return 1\n",
	}, nil)
	require.NoError(t, err)

	assert.Contains(t, code, "def fb():")
	assert.Contains(t, code, "def fa():")
	assert.NotContains(t, code, "from .b import")
	fbAt := strings.Index(code, "def fb")
	faAt := strings.Index(code, "def fa")
	assert.Less(t, fbAt, faAt)
}
