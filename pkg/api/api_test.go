package api

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, contents := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	}
	return dir
}

func TestBuildSimpleProgram(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"main.py": "from util import greet\ngreet()\n",
		"util.py": "def greet():\n    print('hi')\n",
	})

	result := Build(BuildOptions{
		EntryPoint: filepath.Join(dir, "main.py"),
		LogLevel:   LogLevelSilent,
	})

	require.Empty(t, result.Errors)
	assert.Contains(t, result.Code, "def greet():")
	assert.Contains(t, result.Code, "greet()")
	assert.NotContains(t, result.Code, "from util import")
}

func TestBuildWritesOutfile(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"main.py": "x = 1\nprint(x)\n",
	})
	outfile := filepath.Join(dir, "bundle.py")

	result := Build(BuildOptions{
		EntryPoint: filepath.Join(dir, "main.py"),
		Outfile:    outfile,
		LogLevel:   LogLevelSilent,
	})

	require.Empty(t, result.Errors)
	written, err := os.ReadFile(outfile)
	require.NoError(t, err)
	assert.Equal(t, result.Code, string(written))
}

func TestBuildEmitsRequirements(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"main.py": "import requests\nimport os\nrequests.get(os.environ['URL'])\n",
	})
	outfile := filepath.Join(dir, "bundle.py")

	result := Build(BuildOptions{
		EntryPoint:       filepath.Join(dir, "main.py"),
		Outfile:          outfile,
		EmitRequirements: true,
		LogLevel:         LogLevelSilent,
	})

	require.Empty(t, result.Errors)
	// os is stdlib; only requests is third-party
	assert.Equal(t, "requests\n", result.Requirements)

	written, err := os.ReadFile(filepath.Join(dir, "requirements.txt"))
	require.NoError(t, err)
	assert.Equal(t, "requests\n", string(written))
}

func TestBuildMissingEntryFails(t *testing.T) {
	dir := t.TempDir()
	result := Build(BuildOptions{
		EntryPoint: filepath.Join(dir, "nope.py"),
		LogLevel:   LogLevelSilent,
	})
	require.NotEmpty(t, result.Errors)
	assert.Empty(t, result.Code)
}

func TestBuildReportsSyntaxErrors(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"main.py": "def broken(:\n",
	})
	result := Build(BuildOptions{
		EntryPoint: filepath.Join(dir, "main.py"),
		LogLevel:   LogLevelSilent,
	})
	require.NotEmpty(t, result.Errors)
}
