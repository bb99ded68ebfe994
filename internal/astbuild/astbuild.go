package astbuild

// Factories for synthetic AST nodes. Every node built here carries the
// synthetic location and a fresh index drawn from the transformation context,
// so generated code is always distinguishable from parsed code.

import (
	"strings"

	"github.com/cribo/cribo/internal/logger"
	"github.com/cribo/cribo/internal/py_ast"
	"github.com/cribo/cribo/internal/xform"
)

type Builder struct {
	ctx *xform.Context
}

func New(ctx *xform.Context) Builder {
	return Builder{ctx: ctx}
}

func (b Builder) Expr(data py_ast.E) py_ast.Expr {
	index := b.ctx.NewIndex()
	b.ctx.RecordNew(index)
	return py_ast.Expr{Loc: logger.SyntheticLoc, Idx: index, Data: data}
}

func (b Builder) Stmt(data py_ast.S) py_ast.Stmt {
	index := b.ctx.NewIndex()
	b.ctx.RecordNew(index)
	return py_ast.Stmt{Loc: logger.SyntheticLoc, Idx: index, Data: data}
}

////////////////////////////////////////////////////////////////////////////////
// Expressions

func (b Builder) Name(name string) py_ast.Expr {
	return b.Expr(&py_ast.EName{Name: name})
}

func (b Builder) Str(value string) py_ast.Expr {
	return b.Expr(&py_ast.EString{Value: value})
}

func (b Builder) Bool(value bool) py_ast.Expr {
	return b.Expr(&py_ast.EBool{Value: value})
}

func (b Builder) None() py_ast.Expr {
	return b.Expr(&py_ast.ENone{})
}

func (b Builder) Attr(value py_ast.Expr, attr string) py_ast.Expr {
	return b.Expr(&py_ast.EAttribute{Value: value, Attr: attr, AttrLoc: logger.SyntheticLoc})
}

// Dotted builds "a.b.c" from a dotted path.
func (b Builder) Dotted(path string) py_ast.Expr {
	parts := strings.Split(path, ".")
	expr := b.Name(parts[0])
	for _, part := range parts[1:] {
		expr = b.Attr(expr, part)
	}
	return expr
}

func (b Builder) Call(target py_ast.Expr, args ...py_ast.Expr) py_ast.Expr {
	return b.Expr(&py_ast.ECall{Target: target, Args: args})
}

func (b Builder) CallKw(target py_ast.Expr, args []py_ast.Expr, keywords []py_ast.Keyword) py_ast.Expr {
	return b.Expr(&py_ast.ECall{Target: target, Args: args, Keywords: keywords})
}

func Keyword(name string, value py_ast.Expr) py_ast.Keyword {
	return py_ast.Keyword{Name: name, Value: value}
}

func (b Builder) Compare(left py_ast.Expr, op py_ast.OpCode, right py_ast.Expr) py_ast.Expr {
	return b.Expr(&py_ast.ECompare{
		Left:        left,
		Ops:         []py_ast.OpCode{op},
		Comparators: []py_ast.Expr{right},
	})
}

func (b Builder) Not(value py_ast.Expr) py_ast.Expr {
	return b.Expr(&py_ast.EUnary{Op: py_ast.OpNot, Value: value})
}

// SimpleNamespace builds "types.SimpleNamespace(<keywords>)". Callers pass the
// attribute seed, typically __name__ plus the init tracking flags.
func (b Builder) SimpleNamespace(keywords []py_ast.Keyword) py_ast.Expr {
	return b.CallKw(b.Dotted("types.SimpleNamespace"), nil, keywords)
}

////////////////////////////////////////////////////////////////////////////////
// Statements

func (b Builder) ExprStmt(value py_ast.Expr) py_ast.Stmt {
	return b.Stmt(&py_ast.SExpr{Value: value})
}

func (b Builder) Assign(target py_ast.Expr, value py_ast.Expr) py_ast.Stmt {
	return b.Stmt(&py_ast.SAssign{Targets: []py_ast.Expr{target}, Value: value})
}

func (b Builder) AssignName(name string, value py_ast.Expr) py_ast.Stmt {
	return b.Assign(b.Name(name), value)
}

func (b Builder) Return(value *py_ast.Expr) py_ast.Stmt {
	return b.Stmt(&py_ast.SReturn{Value: value})
}

func (b Builder) Pass() py_ast.Stmt {
	return b.Stmt(&py_ast.SPass{})
}

func (b Builder) Global(names ...string) py_ast.Stmt {
	return b.Stmt(&py_ast.SGlobal{Names: names})
}

func (b Builder) If(test py_ast.Expr, body []py_ast.Stmt, orelse []py_ast.Stmt) py_ast.Stmt {
	return b.Stmt(&py_ast.SIf{Test: test, Body: body, Orelse: orelse})
}

func (b Builder) For(target py_ast.Expr, iter py_ast.Expr, body []py_ast.Stmt) py_ast.Stmt {
	return b.Stmt(&py_ast.SFor{Target: target, Iter: iter, Body: body})
}

func (b Builder) Try(body []py_ast.Stmt, handlers []py_ast.ExceptHandler, finally []py_ast.Stmt) py_ast.Stmt {
	return b.Stmt(&py_ast.STry{Body: body, Handlers: handlers, Finally: finally})
}

func (b Builder) ExceptHandler(typeName string, asName string, body []py_ast.Stmt) py_ast.ExceptHandler {
	handler := py_ast.ExceptHandler{
		Loc:  logger.SyntheticLoc,
		Name: asName,
		Body: body,
	}
	if typeName != "" {
		typeExpr := b.Dotted(typeName)
		handler.Type = &typeExpr
	}
	return handler
}

func (b Builder) Import(module string, asname string) py_ast.Stmt {
	return b.Stmt(&py_ast.SImport{Names: []py_ast.ImportAlias{{
		Name:    module,
		Asname:  asname,
		NameLoc: logger.SyntheticLoc,
	}}})
}

func (b Builder) ImportFrom(module string, level int, names []py_ast.ImportAlias) py_ast.Stmt {
	return b.Stmt(&py_ast.SImportFrom{Module: module, Level: level, Names: names})
}

func Alias(name string, asname string) py_ast.ImportAlias {
	return py_ast.ImportAlias{Name: name, Asname: asname, NameLoc: logger.SyntheticLoc}
}

func (b Builder) FunctionDef(name string, params []py_ast.Param, body []py_ast.Stmt) py_ast.Stmt {
	return b.Stmt(&py_ast.SFunctionDef{
		Name:    name,
		NameLoc: logger.SyntheticLoc,
		Params:  params,
		Body:    body,
	})
}

func Param(name string) py_ast.Param {
	return py_ast.Param{Name: name, NameLoc: logger.SyntheticLoc}
}
