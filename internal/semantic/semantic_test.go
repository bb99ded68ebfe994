package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cribo/cribo/internal/logger"
	"github.com/cribo/cribo/internal/py_ast"
	"github.com/cribo/cribo/internal/py_parser"
)

func buildModel(t *testing.T, contents string) *Model {
	t.Helper()
	log := logger.NewDeferLog()
	module, ok := py_parser.Parse(log, &logger.Source{PrettyPath: "<test>", Contents: contents})
	require.True(t, ok)
	return Build(0, &module)
}

func TestGlobalBindings(t *testing.T) {
	model := buildModel(t, `
import os
from sys import argv as args
CONST = 1

def f(x):
    y = 2

class C:
    attr = 3
`)

	global := model.Global

	b, ok := global.Lookup("os")
	require.True(t, ok)
	assert.Equal(t, Import, b.Kind)
	assert.Equal(t, "os", b.ImportModule)

	b, ok = global.Lookup("args")
	require.True(t, ok)
	assert.Equal(t, FromImport, b.Kind)
	assert.Equal(t, "sys", b.ImportModule)
	assert.Equal(t, "argv", b.ImportSymbol)

	b, ok = global.Lookup("CONST")
	require.True(t, ok)
	assert.Equal(t, Assignment, b.Kind)

	b, ok = global.Lookup("f")
	require.True(t, ok)
	assert.Equal(t, FunctionDefinition, b.Kind)

	b, ok = global.Lookup("C")
	require.True(t, ok)
	assert.Equal(t, ClassDefinition, b.Kind)

	_, ok = global.Lookup("y")
	assert.False(t, ok, "function locals must not leak into the global scope")
	_, ok = global.Lookup("attr")
	assert.False(t, ok, "class attributes must not leak into the global scope")
}

func TestNestedScopes(t *testing.T) {
	model := buildModel(t, `
def f(a, b):
    local = 1

class C:
    attr = 2
    def method(self):
        pass
`)

	require.Len(t, model.Global.Children, 2)

	fn := model.Global.Children[0]
	assert.Equal(t, FunctionScope, fn.Kind)
	assert.Equal(t, "f", fn.Name)
	_, ok := fn.Lookup("a")
	assert.True(t, ok)
	_, ok = fn.Lookup("local")
	assert.True(t, ok)

	class := model.Global.Children[1]
	assert.Equal(t, ClassScope, class.Kind)
	_, ok = class.Lookup("attr")
	assert.True(t, ok)
	b, ok := class.Lookup("method")
	require.True(t, ok)
	assert.Equal(t, FunctionDefinition, b.Kind)
}

func TestLaterBindingShadows(t *testing.T) {
	model := buildModel(t, `
x = 1
def x():
    pass
`)
	b, ok := model.Global.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, FunctionDefinition, b.Kind)
}

func TestConditionalBindingsAreGlobal(t *testing.T) {
	model := buildModel(t, `
try:
    import fast_json as json_impl
except ImportError:
    import json as json_impl
`)
	b, ok := model.Global.Lookup("json_impl")
	require.True(t, ok)
	assert.Equal(t, Import, b.Kind)
	assert.Equal(t, "json", b.ImportModule)
	assert.Equal(t, 0, b.ItemIndex)
}

func TestRelativeFromImport(t *testing.T) {
	model := buildModel(t, "from ..pkg import helper\n")
	b, ok := model.Global.Lookup("helper")
	require.True(t, ok)
	assert.Equal(t, FromImport, b.Kind)
	assert.Equal(t, "pkg", b.ImportModule)
	assert.Equal(t, 2, b.ImportLevel)
	assert.Equal(t, "helper", b.ImportSymbol)
}

func TestRegistryCaches(t *testing.T) {
	log := logger.NewDeferLog()
	module, ok := py_parser.Parse(log, &logger.Source{Contents: "x = 1\n"})
	require.True(t, ok)

	registry := NewRegistry()
	first := registry.Model(7, &module)
	second := registry.Model(7, (*py_ast.Module)(nil))
	assert.Same(t, first, second)
}
