package bundler

// End-to-end coverage: each test feeds a small source tree through the whole
// pipeline and checks the printed bundle.

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cribo/cribo/internal/config"
	"github.com/cribo/cribo/internal/fs"
	"github.com/cribo/cribo/internal/logger"
)

func bundle(t *testing.T, files map[string]string, options *config.Options) (Result, error) {
	t.Helper()
	if options == nil {
		options = &config.Options{PythonVersion: 310}
	}
	log := logger.NewDeferLog()
	return Bundle(fs.MockFS(files), log, options, "/src/main.py")
}

func expectCode(t *testing.T, files map[string]string, expected string) {
	t.Helper()
	result, err := bundle(t, files, nil)
	require.NoError(t, err)
	assert.Equal(t, expected, result.Code)
}

func TestTwoInlinableModules(t *testing.T) {
	expectCode(t, map[string]string{
		"/src/main.py": "from a import f\nprint(f())\n",
		"/src/a.py":    "def f():\n    return 1\n",
	}, `def f():
    return 1
print(f())
`)
}

func TestRenameOnConflict(t *testing.T) {
	result, err := bundle(t, map[string]string{
		"/src/main.py": "from a import X as A\nfrom b import X as B\nprint(A, B)\n",
		"/src/a.py":    "X = 1\n",
		"/src/b.py":    "X = 2\n",
	}, nil)
	require.NoError(t, err)

	code := result.Code
	assert.Contains(t, code, "X = 1\n")
	assert.Contains(t, code, "X_2 = 2\n")
	assert.Contains(t, code, "A = X\n")
	assert.Contains(t, code, "B = X_2\n")
	assert.Contains(t, code, "print(A, B)\n")
}

func TestWrappedPackage(t *testing.T) {
	result, err := bundle(t, map[string]string{
		"/src/main.py":         "import pkg\nprint(pkg.g())\n",
		"/src/pkg/__init__.py": "from .sub import g\n",
		"/src/pkg/sub.py":      "def g():\n    return 'hi'\n",
	}, nil)
	require.NoError(t, err)

	code := result.Code
	assert.Contains(t, code, "pkg = types.SimpleNamespace(__name__='pkg'")
	assert.Contains(t, code, "pkg_sub = types.SimpleNamespace(__name__='pkg.sub'")
	assert.Equal(t, 1, strings.Count(code, "def __cribo_init_pkg(self):"))
	assert.Equal(t, 1, strings.Count(code, "def __cribo_init_pkg_sub(self):"))
	assert.Contains(t, code, "pkg.sub = pkg_sub")

	// pkg initializes before the entry's print runs
	initAt := strings.Index(code, "__cribo_init_pkg(pkg)")
	printAt := strings.Index(code, "print(pkg.g())")
	require.NotEqual(t, -1, initAt)
	require.NotEqual(t, -1, printAt)
	assert.Less(t, initAt, printAt)
}

func TestWrappedInitRunsAtImportSite(t *testing.T) {
	result, err := bundle(t, map[string]string{
		"/src/main.py":  "print(\"first\")\nimport noisy\nprint(noisy.value)\n",
		"/src/noisy.py": "print(\"noisy loading\")\nvalue = 1\n",
	}, nil)
	require.NoError(t, err)

	// The entry's first statement runs before noisy's side effects: the
	// init call sits at the import position, not ahead of the entry
	code := result.Code
	firstAt := strings.Index(code, "print(\"first\")")
	initAt := strings.Index(code, "__cribo_init_noisy(noisy)")
	require.NotEqual(t, -1, firstAt)
	require.NotEqual(t, -1, initAt)
	assert.Less(t, firstAt, initAt)
	assert.Equal(t, 1, strings.Count(code, "__cribo_init_noisy(noisy)"))
}

func TestSubmoduleImportInitsParentFirst(t *testing.T) {
	result, err := bundle(t, map[string]string{
		"/src/main.py":         "import pkg.sub\nprint(pkg.sub.value)\n",
		"/src/pkg/__init__.py": "print(\"pkg loading\")\n",
		"/src/pkg/sub.py":      "print(\"sub loading\")\nvalue = 1\n",
	}, nil)
	require.NoError(t, err)

	code := result.Code
	parentAt := strings.Index(code, "__cribo_init_pkg(pkg)")
	subAt := strings.Index(code, "__cribo_init_pkg_sub(pkg_sub)")
	require.NotEqual(t, -1, parentAt)
	require.NotEqual(t, -1, subAt)
	assert.Less(t, parentAt, subAt)
}

func TestRenameSkipsNameDefinedElsewhere(t *testing.T) {
	result, err := bundle(t, map[string]string{
		"/src/main.py": "from a import X as A\nfrom b import X as B\nprint(A, B)\n",
		"/src/a.py":    "X = 1\n",
		"/src/b.py":    "X = 2\nX_2 = 99\n",
	}, nil)
	require.NoError(t, err)

	// b already owns X_2, so its conflicting X moves past it
	code := result.Code
	assert.Contains(t, code, "X = 1\n")
	assert.Contains(t, code, "X_3 = 2\n")
	assert.Contains(t, code, "X_2 = 99\n")
	assert.Contains(t, code, "B = X_3\n")
	assert.NotContains(t, code, "X_2 = 2")
}

func TestSafeFunctionLevelCycle(t *testing.T) {
	result, err := bundle(t, map[string]string{
		"/src/main.py": "from a import A\nA()\n",
		"/src/a.py":    "from b import B\n\nclass A(B):\n    pass\n",
		"/src/b.py":    "def helper():\n    from a import A\n    return A\n\nclass B:\n    pass\n",
	}, nil)
	require.NoError(t, err)

	code := result.Code
	// b defines B before a's class statement uses it
	bAt := strings.Index(code, "class B:")
	aAt := strings.Index(code, "class A(B):")
	require.NotEqual(t, -1, bAt)
	require.NotEqual(t, -1, aAt)
	assert.Less(t, bAt, aAt)
	assert.NotContains(t, code, "from b import")
}

func TestStdlibHoist(t *testing.T) {
	result, err := bundle(t, map[string]string{
		"/src/main.py": "from a import run\nrun()\n",
		"/src/a.py":    "import os\nimport json\n\ndef run():\n    return json.dumps(os.getcwd())\n",
	}, nil)
	require.NoError(t, err)

	lines := strings.Split(result.Code, "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	// Alphabetical, at the very top
	assert.Equal(t, "import json", lines[0])
	assert.Equal(t, "import os", lines[1])
	assert.Equal(t, 1, strings.Count(result.Code, "import os"))
	assert.Equal(t, 1, strings.Count(result.Code, "import json"))
	// The dropped first-party import is on the transformation record
	assert.Positive(t, result.Transformations)
}

func TestWildcardFromWrapped(t *testing.T) {
	result, err := bundle(t, map[string]string{
		"/src/main.py": "from lib import *\nprint(x + y)\n",
		"/src/lib.py":  "__all__ = ['x', 'y']\nprint('loading')\nx = 1\ny = 2\n",
	}, nil)
	require.NoError(t, err)

	code := result.Code
	assert.Contains(t, code, "__cribo_init_lib(lib)")
	assert.Contains(t, code, "x = lib.x")
	assert.Contains(t, code, "y = lib.y")
}

func TestDeterministicOutput(t *testing.T) {
	files := map[string]string{
		"/src/main.py": "from a import f\nfrom b import g\nimport pkg\nf()\ng()\npkg\n",
		"/src/a.py":    "import os\n\ndef f():\n    return os.sep\n",
		"/src/b.py":    "import sys\n\ndef g():\n    return sys.path\n",
		"/src/pkg/__init__.py": "print('pkg')\n",
	}
	first, err := bundle(t, files, nil)
	require.NoError(t, err)
	second, err := bundle(t, files, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Code, second.Code)
}

func TestRoundTripNoImports(t *testing.T) {
	source := "def f():\n    return 1\n\nclass C:\n    pass\nvalue = f()\nprint(value)\n"
	expectCode(t, map[string]string{"/src/main.py": source},
		"def f():\n    return 1\nclass C:\n    pass\nvalue = f()\nprint(value)\n")
}

func TestEmptyModuleBundles(t *testing.T) {
	result, err := bundle(t, map[string]string{
		"/src/main.py": "from a import f\nf()\n",
		"/src/a.py":    "from b import f\n",
		"/src/b.py":    "def f():\n    pass\n",
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, result.Code, "def f():")
}

func TestFutureOnlyModule(t *testing.T) {
	result, err := bundle(t, map[string]string{
		"/src/main.py": "from a import f\nf()\n",
		"/src/a.py":    "from __future__ import annotations\n\ndef f():\n    pass\n",
	}, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Code, "from __future__ import annotations\n"))
	assert.Equal(t, 1, strings.Count(result.Code, "__future__"))
}

func TestTreeShakeDropsDeadHelper(t *testing.T) {
	options := &config.Options{PythonVersion: 310, TreeShake: true}
	result, err := bundle(t, map[string]string{
		"/src/main.py": "from util import used\nused()\n",
		"/src/util.py": "def used():\n    return 1\n\ndef unused():\n    return 2\n",
	}, options)
	require.NoError(t, err)
	assert.Contains(t, result.Code, "def used():")
	assert.NotContains(t, result.Code, "def unused():")
}

func TestRequirementsCollected(t *testing.T) {
	options := &config.Options{PythonVersion: 310, EmitRequirements: true}
	result, err := bundle(t, map[string]string{
		"/src/main.py": "import requests\nimport numpy.linalg\nimport os\nrequests, numpy, os\n",
	}, options)
	require.NoError(t, err)
	assert.Equal(t, []string{"numpy", "requests"}, result.Requirements)
	assert.Equal(t, "numpy\nrequests\n", RequirementsText(result.Requirements))
}

func TestSelfImportOfPackageInit(t *testing.T) {
	result, err := bundle(t, map[string]string{
		"/src/main.py":         "from pkg.sub import f\nf()\n",
		"/src/pkg/__init__.py": "NAME = 'pkg'\n",
		"/src/pkg/sub.py":      "import pkg\n\ndef f():\n    return pkg.NAME\n",
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, result.Code, "__cribo_init_pkg(pkg)")
	assert.Contains(t, result.Code, "def f():")
}

func TestClassBaseInWrappedModule(t *testing.T) {
	result, err := bundle(t, map[string]string{
		"/src/main.py":  "from child import Child\nChild()\n",
		"/src/child.py": "from base import Base\n\nclass Child(Base):\n    pass\n",
		"/src/base.py":  "print('base loading')\n\nclass Base:\n    pass\n",
	}, nil)
	require.NoError(t, err)

	code := result.Code
	assert.Contains(t, code, "__cribo_init_base(base)")
	assert.Contains(t, code, "Base = base.Base")
	baseBind := strings.Index(code, "Base = base.Base")
	childDef := strings.Index(code, "class Child(Base):")
	require.NotEqual(t, -1, childDef)
	assert.Less(t, baseBind, childDef)
}

func TestDynamicImportWarns(t *testing.T) {
	log := logger.NewDeferLog()
	options := &config.Options{PythonVersion: 310}
	result, err := Bundle(fs.MockFS(map[string]string{
		"/src/main.py": "import importlib\nname = 'x'\nmod = importlib.import_module(name)\n",
	}), log, options, "/src/main.py")
	require.NoError(t, err)

	// The call survives untouched
	assert.Contains(t, result.Code, "importlib.import_module(name)")
	var warned bool
	for _, msg := range log.Done() {
		if msg.Kind == logger.Warning && strings.Contains(msg.Text, "dynamic import") {
			warned = true
		}
	}
	assert.True(t, warned)
}
