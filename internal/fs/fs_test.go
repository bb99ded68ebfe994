package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMockFSImpliesDirectories(t *testing.T) {
	mock := MockFS(map[string]string{
		"/src/main.py":         "import pkg\n",
		"/src/pkg/__init__.py": "",
		"/src/pkg/util.py":     "x = 1\n",
	})

	root := mock.ReadDirectory("/src")
	assert.Equal(t, Entry{Kind: FileEntry}, root["main.py"])
	assert.Equal(t, Entry{Kind: DirEntry}, root["pkg"])

	pkg := mock.ReadDirectory("/src/pkg")
	assert.Equal(t, []string{"__init__.py", "util.py"}, SortedKeys(pkg))

	contents, ok := mock.ReadFile("/src/pkg/util.py")
	assert.True(t, ok)
	assert.Equal(t, "x = 1\n", contents)

	_, ok = mock.ReadFile("/src/missing.py")
	assert.False(t, ok)
}

func TestMockFSPathHelpers(t *testing.T) {
	mock := MockFS(nil)
	abs, ok := mock.Abs("src/main.py")
	assert.True(t, ok)
	assert.Equal(t, "/src/main.py", abs)
	assert.Equal(t, "/src/pkg", mock.Dir("/src/pkg/util.py"))
	assert.Equal(t, "util.py", mock.Base("/src/pkg/util.py"))
	assert.Equal(t, "/src/pkg/util.py", mock.Join("/src", "pkg", "util.py"))
}

func TestHasPythonExt(t *testing.T) {
	assert.True(t, HasPythonExt("/a/b.py"))
	assert.False(t, HasPythonExt("/a/b.pyc"))
	assert.False(t, HasPythonExt("/a/b.txt"))
}
