package pystdlib

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsStdlib(t *testing.T) {
	assert.True(t, IsStdlib("os", 38))
	assert.True(t, IsStdlib("os.path", 38))
	assert.True(t, IsStdlib("collections.abc", 312))
	assert.False(t, IsStdlib("requests", 312))
	assert.False(t, IsStdlib("numpy.linalg", 310))

	// Version gated additions
	assert.False(t, IsStdlib("graphlib", 38))
	assert.True(t, IsStdlib("graphlib", 39))
	assert.False(t, IsStdlib("tomllib", 310))
	assert.True(t, IsStdlib("tomllib", 311))

	// Version gated removals
	assert.True(t, IsStdlib("distutils", 311))
	assert.False(t, IsStdlib("distutils", 312))
	assert.True(t, IsStdlib("telnetlib", 312))
	assert.False(t, IsStdlib("telnetlib", 313))
}

func TestSideEffectDenyList(t *testing.T) {
	assert.True(t, IsSideEffectFree("os"))
	assert.True(t, IsSideEffectFree("json"))
	assert.False(t, IsSideEffectFree("antigravity"))
	assert.False(t, IsSideEffectFree("site"))
	assert.False(t, IsSideEffectFree("tkinter.ttk"))
	assert.False(t, IsSideEffectFree("locale"))
}

func TestIsHoistable(t *testing.T) {
	assert.True(t, IsHoistable("__future__", 38))
	assert.True(t, IsHoistable("os", 310))
	assert.False(t, IsHoistable("turtle", 310))
	assert.False(t, IsHoistable("requests", 310))
}

func TestIsBuiltin(t *testing.T) {
	assert.True(t, IsBuiltin("print", 38))
	assert.True(t, IsBuiltin("ValueError", 38))
	assert.False(t, IsBuiltin("aiter", 39))
	assert.True(t, IsBuiltin("aiter", 310))
	assert.False(t, IsBuiltin("my_function", 312))
}
