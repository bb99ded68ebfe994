package xform

// The transformation context threads through every bundling pass. It owns the
// node index allocator for a module so synthetic nodes never collide with
// parsed ones, and it keeps a provenance record for each node the passes copy,
// rewrite, or invent.

import (
	"github.com/cribo/cribo/internal/py_ast"
)

// InvalidNodeIndex marks a record with no original node (freshly synthesized).
const InvalidNodeIndex py_ast.NodeIndex = ^py_ast.NodeIndex(0)

type RecordKind uint8

const (
	DirectCopy RecordKind = iota
	ImportRewritten
	GlobalsReplaced
	ModuleWrapped
	DeadCodeEliminated
	NewNode
	NodesMerged
)

var recordKindNames = []string{
	"DirectCopy",
	"ImportRewritten",
	"GlobalsReplaced",
	"ModuleWrapped",
	"DeadCodeEliminated",
	"NewNode",
	"NodesMerged",
}

func (kind RecordKind) String() string {
	return recordKindNames[kind]
}

// Record ties a transformed node back to the node it came from. Original is
// InvalidNodeIndex for NewNode records.
type Record struct {
	Original    py_ast.NodeIndex
	Transformed py_ast.NodeIndex
	Kind        RecordKind
}

type Context struct {
	next    py_ast.NodeIndex
	records []Record
}

// NewContext creates a context whose allocator starts one past the indices the
// parser already handed out for this module.
func NewContext(module *py_ast.Module) *Context {
	return &Context{next: module.NextNodeIndex}
}

// NewContextAt is for callers that merge several modules and need to seed the
// allocator past all of them.
func NewContextAt(first py_ast.NodeIndex) *Context {
	return &Context{next: first}
}

// NewIndex allocates the next unused node index. Indices are dense and
// strictly increasing so provenance records sort in creation order.
func (ctx *Context) NewIndex() py_ast.NodeIndex {
	index := ctx.next
	ctx.next++
	return index
}

// NextIndex reports the next index NewIndex would return without consuming it.
func (ctx *Context) NextIndex() py_ast.NodeIndex {
	return ctx.next
}

// RecordNew logs a freshly synthesized node.
func (ctx *Context) RecordNew(transformed py_ast.NodeIndex) {
	ctx.records = append(ctx.records, Record{
		Original:    InvalidNodeIndex,
		Transformed: transformed,
		Kind:        NewNode,
	})
}

// RecordDerived logs a node produced from an existing one.
func (ctx *Context) RecordDerived(kind RecordKind, original py_ast.NodeIndex, transformed py_ast.NodeIndex) {
	ctx.records = append(ctx.records, Record{
		Original:    original,
		Transformed: transformed,
		Kind:        kind,
	})
}

// RecordRemoved logs a node that was dropped entirely. Transformed is
// InvalidNodeIndex because nothing replaced it.
func (ctx *Context) RecordRemoved(kind RecordKind, original py_ast.NodeIndex) {
	ctx.records = append(ctx.records, Record{
		Original:    original,
		Transformed: InvalidNodeIndex,
		Kind:        kind,
	})
}

// Records returns the provenance log in the order entries were added.
func (ctx *Context) Records() []Record {
	return ctx.records
}
