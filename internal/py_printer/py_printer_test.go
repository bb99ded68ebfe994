package py_printer

import (
	"testing"

	"github.com/cribo/cribo/internal/logger"
	"github.com/cribo/cribo/internal/py_parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func printRoundTrip(t *testing.T, contents string) string {
	t.Helper()
	log := logger.NewDeferLog()
	source := logger.Source{
		Index:      0,
		PrettyPath: "<test>",
		Contents:   contents,
	}
	module, ok := py_parser.Parse(log, &source)
	msgs := log.Done()
	require.True(t, ok, "parse failed: %v", msgs)
	return Print(module.Body)
}

func expectPrinted(t *testing.T, contents string, expected string) {
	t.Helper()
	assert.Equal(t, expected, printRoundTrip(t, contents))
}

func TestPrintSimpleStatements(t *testing.T) {
	expectPrinted(t, "x = 1\n", "x = 1\n")
	expectPrinted(t, "x=y=2\n", "x = y = 2\n")
	expectPrinted(t, "x += 1\n", "x += 1\n")
	expectPrinted(t, "x: int = 1\n", "x: int = 1\n")
	expectPrinted(t, "del a,b\n", "del a, b\n")
	expectPrinted(t, "assert x, 'boom'\n", "assert x, 'boom'\n")
	expectPrinted(t, "pass\n", "pass\n")
	expectPrinted(t, "x = 1; y = 2\n", "x = 1\ny = 2\n")
}

func TestPrintImports(t *testing.T) {
	expectPrinted(t, "import os\n", "import os\n")
	expectPrinted(t, "import os.path as p, sys\n", "import os.path as p, sys\n")
	expectPrinted(t, "from os import (path, sep)\n", "from os import path, sep\n")
	expectPrinted(t, "from . import util\n", "from . import util\n")
	expectPrinted(t, "from ..pkg import helper as h\n", "from ..pkg import helper as h\n")
	expectPrinted(t, "from mod import *\n", "from mod import *\n")
}

func TestPrintFunctionDef(t *testing.T) {
	expectPrinted(t,
		"def f(a, b=1, *args, c, **kw):\n    return a\n",
		"def f(a, b=1, *args, c, **kw):\n    return a\n")
	expectPrinted(t,
		"def g(x: int) -> str:\n    pass\n",
		"def g(x: int) -> str:\n    pass\n")
	expectPrinted(t,
		"@deco\nasync def h():\n    await x\n",
		"@deco\nasync def h():\n    await x\n")
}

func TestPrintClassDef(t *testing.T) {
	expectPrinted(t,
		"class A:\n    pass\n",
		"class A:\n    pass\n")
	expectPrinted(t,
		"class B(A, metaclass=Meta):\n    x = 1\n",
		"class B(A, metaclass=Meta):\n    x = 1\n")
}

func TestPrintControlFlow(t *testing.T) {
	expectPrinted(t,
		"if a:\n    x = 1\nelif b:\n    x = 2\nelse:\n    x = 3\n",
		"if a:\n    x = 1\nelif b:\n    x = 2\nelse:\n    x = 3\n")
	expectPrinted(t,
		"for i in range(3):\n    print(i)\n",
		"for i in range(3):\n    print(i)\n")
	expectPrinted(t,
		"while x:\n    x -= 1\nelse:\n    done()\n",
		"while x:\n    x -= 1\nelse:\n    done()\n")
	expectPrinted(t,
		"try:\n    f()\nexcept ValueError as e:\n    g(e)\nfinally:\n    h()\n",
		"try:\n    f()\nexcept ValueError as e:\n    g(e)\nfinally:\n    h()\n")
	expectPrinted(t,
		"with open(p) as f, lock:\n    f.read()\n",
		"with open(p) as f, lock:\n    f.read()\n")
}

func TestPrintExpressions(t *testing.T) {
	expectPrinted(t, "x = a + b * c\n", "x = a + b * c\n")
	expectPrinted(t, "x = (a + b) * c\n", "x = (a + b) * c\n")
	expectPrinted(t, "x = a ** b ** c\n", "x = a ** b ** c\n")
	expectPrinted(t, "x = (a ** b) ** c\n", "x = (a ** b) ** c\n")
	expectPrinted(t, "x = not a and b or c\n", "x = not a and b or c\n")
	expectPrinted(t, "x = a < b <= c\n", "x = a < b <= c\n")
	expectPrinted(t, "x = a is not None\n", "x = a is not None\n")
	expectPrinted(t, "x = a not in b\n", "x = a not in b\n")
	expectPrinted(t, "x = a if b else c\n", "x = a if b else c\n")
	expectPrinted(t, "x = lambda a, b=1: a + b\n", "x = lambda a, b=1: a + b\n")
	expectPrinted(t, "x = obj.attr.method(1, k=2)\n", "x = obj.attr.method(1, k=2)\n")
	expectPrinted(t, "x = items[1:2, 3]\n", "x = items[1:2, 3]\n")
	expectPrinted(t, "x = items[::2]\n", "x = items[::2]\n")
}

func TestPrintLiterals(t *testing.T) {
	expectPrinted(t, "x = [1, 2, 3]\n", "x = [1, 2, 3]\n")
	expectPrinted(t, "x = (1,)\n", "x = (1,)\n")
	expectPrinted(t, "x = ()\n", "x = ()\n")
	expectPrinted(t, "x = {1: 'a', **rest}\n", "x = {1: 'a', **rest}\n")
	expectPrinted(t, "x = {1, 2}\n", "x = {1, 2}\n")
	expectPrinted(t, "x = [i for i in xs if i]\n", "x = [i for i in xs if i]\n")
	expectPrinted(t, "x = {k: v for k, v in pairs}\n", "x = {k: v for (k, v) in pairs}\n")
	expectPrinted(t, "x = (i async for i in xs)\n", "x = (i async for i in xs)\n")
}

func TestPrintWalrusAlwaysParenthesized(t *testing.T) {
	expectPrinted(t,
		"if (n := len(xs)) > 1:\n    pass\n",
		"if (n := len(xs)) > 1:\n    pass\n")
}

func TestPrintBareTupleGainsParens(t *testing.T) {
	// Bare tuples normalize to the parenthesized form, which is always legal.
	expectPrinted(t, "x = 1, 2\n", "x = (1, 2)\n")
	expectPrinted(t, "for a, b in pairs:\n    pass\n", "for (a, b) in pairs:\n    pass\n")
}
