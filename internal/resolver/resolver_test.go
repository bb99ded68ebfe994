package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cribo/cribo/internal/fs"
	"github.com/cribo/cribo/internal/logger"
	"github.com/cribo/cribo/internal/py_parser"
)

func testResolver(t *testing.T, files map[string]string) *Resolver {
	t.Helper()
	return New(fs.MockFS(files), logger.NewDeferLog(), []string{"/src"}, py_parser.Parse)
}

func TestResolveTopLevel(t *testing.T) {
	r := testResolver(t, map[string]string{
		"/src/util.py":         "x = 1\n",
		"/src/pkg/__init__.py": "",
		"/src/pkg/sub.py":      "y = 2\n",
	})

	id, ok := r.Resolve("util", "main", false, 0)
	require.True(t, ok)
	assert.Equal(t, "util", r.CanonicalName(id))
	assert.False(t, r.Module(id).IsPackage)

	pkg, ok := r.Resolve("pkg", "main", false, 0)
	require.True(t, ok)
	assert.True(t, r.Module(pkg).IsPackage)
	assert.Equal(t, "/src/pkg/__init__.py", r.Module(pkg).Path)

	sub, ok := r.Resolve("pkg.sub", "main", false, 0)
	require.True(t, ok)
	assert.Equal(t, "pkg.sub", r.CanonicalName(sub))

	_, ok = r.Resolve("os", "main", false, 0)
	assert.False(t, ok)
}

func TestResolveRelative(t *testing.T) {
	r := testResolver(t, map[string]string{
		"/src/pkg/__init__.py":     "",
		"/src/pkg/a.py":            "",
		"/src/pkg/sub/__init__.py": "",
		"/src/pkg/sub/b.py":        "",
	})

	// "from . import a" inside pkg.sub.b reaches pkg.sub
	name, ok := r.AbsoluteName("", "pkg.sub.b", false, 1)
	require.True(t, ok)
	assert.Equal(t, "pkg.sub", name)

	// "from ..a import x" inside pkg.sub.b reaches pkg.a
	name, ok = r.AbsoluteName("a", "pkg.sub.b", false, 2)
	require.True(t, ok)
	assert.Equal(t, "pkg.a", name)

	// A package __init__ is its own package: "from .a import x" in pkg
	name, ok = r.AbsoluteName("a", "pkg", true, 1)
	require.True(t, ok)
	assert.Equal(t, "pkg.a", name)

	// Too many dots walk off the top
	_, ok = r.AbsoluteName("x", "pkg.a", false, 3)
	assert.False(t, ok)
}

func TestModuleIdsAreDenseAndStable(t *testing.T) {
	r := testResolver(t, map[string]string{
		"/src/a.py": "",
		"/src/b.py": "",
	})

	a1, _ := r.Resolve("a", "main", false, 0)
	b1, _ := r.Resolve("b", "main", false, 0)
	a2, _ := r.Resolve("a", "main", false, 0)
	assert.Equal(t, a1, a2)
	assert.Equal(t, ModuleId(0), a1)
	assert.Equal(t, ModuleId(1), b1)
	assert.Equal(t, []string{"a", "b"}, r.ModuleNames())
}

func TestParseIsCached(t *testing.T) {
	r := testResolver(t, map[string]string{
		"/src/mod.py": "value = 40 + 2\n",
	})

	id, ok := r.Resolve("mod", "main", false, 0)
	require.True(t, ok)

	first, err := r.Parse(id)
	require.NoError(t, err)
	second, err := r.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, first.NextNodeIndex, second.NextNodeIndex)
	assert.Len(t, first.Body, 1)
}

func TestAddEntry(t *testing.T) {
	r := testResolver(t, map[string]string{
		"/src/main.py": "print('hi')\n",
	})

	id, err := r.AddEntry("/src/main.py", "main")
	require.NoError(t, err)
	assert.Equal(t, "main", r.CanonicalName(id))

	_, err = r.AddEntry("/src/missing.py", "missing")
	assert.Error(t, err)
}
