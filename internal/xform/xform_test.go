package xform

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cribo/cribo/internal/py_ast"
)

func TestIndexAllocation(t *testing.T) {
	ctx := NewContextAt(10)
	assert.Equal(t, py_ast.NodeIndex(10), ctx.NextIndex())
	assert.Equal(t, py_ast.NodeIndex(10), ctx.NewIndex())
	assert.Equal(t, py_ast.NodeIndex(11), ctx.NewIndex())
	assert.Equal(t, py_ast.NodeIndex(12), ctx.NextIndex())
}

func TestContextStartsAfterParsedNodes(t *testing.T) {
	module := py_ast.Module{NextNodeIndex: 42}
	ctx := NewContext(&module)
	assert.Equal(t, py_ast.NodeIndex(42), ctx.NewIndex())
}

func TestProvenanceRecords(t *testing.T) {
	ctx := NewContextAt(0)
	first := ctx.NewIndex()
	ctx.RecordNew(first)
	second := ctx.NewIndex()
	ctx.RecordDerived(ImportRewritten, 7, second)
	ctx.RecordRemoved(DeadCodeEliminated, 9)

	records := ctx.Records()
	assert.Equal(t, []Record{
		{Original: InvalidNodeIndex, Transformed: first, Kind: NewNode},
		{Original: 7, Transformed: second, Kind: ImportRewritten},
		{Original: 9, Transformed: InvalidNodeIndex, Kind: DeadCodeEliminated},
	}, records)
}
