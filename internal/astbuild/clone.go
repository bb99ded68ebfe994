package astbuild

// Deep cloning for parsed subtrees that get carried into the output. Clones
// keep source locations but receive fresh node indices, each tied back to the
// original through a DirectCopy record.

import (
	"github.com/cribo/cribo/internal/py_ast"
	"github.com/cribo/cribo/internal/xform"
)

func (b Builder) CloneStmts(stmts []py_ast.Stmt) []py_ast.Stmt {
	if stmts == nil {
		return nil
	}
	clones := make([]py_ast.Stmt, len(stmts))
	for i, stmt := range stmts {
		clones[i] = b.CloneStmt(stmt)
	}
	return clones
}

func (b Builder) CloneStmt(stmt py_ast.Stmt) py_ast.Stmt {
	index := b.ctx.NewIndex()
	b.ctx.RecordDerived(xform.DirectCopy, stmt.Idx, index)
	clone := py_ast.Stmt{Loc: stmt.Loc, Idx: index}

	switch s := stmt.Data.(type) {
	case *py_ast.SExpr:
		clone.Data = &py_ast.SExpr{Value: b.CloneExpr(s.Value)}

	case *py_ast.SAssign:
		clone.Data = &py_ast.SAssign{
			Targets: b.CloneExprs(s.Targets),
			Value:   b.CloneExpr(s.Value),
		}

	case *py_ast.SAugAssign:
		clone.Data = &py_ast.SAugAssign{
			Target: b.CloneExpr(s.Target),
			Op:     s.Op,
			Value:  b.CloneExpr(s.Value),
		}

	case *py_ast.SAnnAssign:
		clone.Data = &py_ast.SAnnAssign{
			Target:     b.CloneExpr(s.Target),
			Annotation: b.CloneExpr(s.Annotation),
			Value:      b.cloneExprPtr(s.Value),
		}

	case *py_ast.SImport:
		clone.Data = &py_ast.SImport{Names: cloneAliases(s.Names)}

	case *py_ast.SImportFrom:
		clone.Data = &py_ast.SImportFrom{
			Module:     s.Module,
			Level:      s.Level,
			Names:      cloneAliases(s.Names),
			IsWildcard: s.IsWildcard,
		}

	case *py_ast.SFunctionDef:
		clone.Data = &py_ast.SFunctionDef{
			Name:       s.Name,
			NameLoc:    s.NameLoc,
			Decorators: b.CloneExprs(s.Decorators),
			Params:     b.cloneParams(s.Params),
			Returns:    b.cloneExprPtr(s.Returns),
			Body:       b.CloneStmts(s.Body),
			IsAsync:    s.IsAsync,
		}

	case *py_ast.SClassDef:
		clone.Data = &py_ast.SClassDef{
			Name:       s.Name,
			NameLoc:    s.NameLoc,
			Decorators: b.CloneExprs(s.Decorators),
			Bases:      b.CloneExprs(s.Bases),
			Keywords:   b.cloneKeywords(s.Keywords),
			Body:       b.CloneStmts(s.Body),
		}

	case *py_ast.SReturn:
		clone.Data = &py_ast.SReturn{Value: b.cloneExprPtr(s.Value)}

	case *py_ast.SDelete:
		clone.Data = &py_ast.SDelete{Targets: b.CloneExprs(s.Targets)}

	case *py_ast.SIf:
		clone.Data = &py_ast.SIf{
			Test:   b.CloneExpr(s.Test),
			Body:   b.CloneStmts(s.Body),
			Orelse: b.CloneStmts(s.Orelse),
		}

	case *py_ast.SFor:
		clone.Data = &py_ast.SFor{
			Target:  b.CloneExpr(s.Target),
			Iter:    b.CloneExpr(s.Iter),
			Body:    b.CloneStmts(s.Body),
			Orelse:  b.CloneStmts(s.Orelse),
			IsAsync: s.IsAsync,
		}

	case *py_ast.SWhile:
		clone.Data = &py_ast.SWhile{
			Test:   b.CloneExpr(s.Test),
			Body:   b.CloneStmts(s.Body),
			Orelse: b.CloneStmts(s.Orelse),
		}

	case *py_ast.SWith:
		items := make([]py_ast.WithItem, len(s.Items))
		for i, item := range s.Items {
			items[i] = py_ast.WithItem{
				Context: b.CloneExpr(item.Context),
				Vars:    b.cloneExprPtr(item.Vars),
			}
		}
		clone.Data = &py_ast.SWith{Items: items, Body: b.CloneStmts(s.Body), IsAsync: s.IsAsync}

	case *py_ast.STry:
		handlers := make([]py_ast.ExceptHandler, len(s.Handlers))
		for i, handler := range s.Handlers {
			handlers[i] = py_ast.ExceptHandler{
				Loc:  handler.Loc,
				Type: b.cloneExprPtr(handler.Type),
				Name: handler.Name,
				Body: b.CloneStmts(handler.Body),
			}
		}
		clone.Data = &py_ast.STry{
			Body:     b.CloneStmts(s.Body),
			Handlers: handlers,
			Orelse:   b.CloneStmts(s.Orelse),
			Finally:  b.CloneStmts(s.Finally),
		}

	case *py_ast.SRaise:
		clone.Data = &py_ast.SRaise{Exc: b.cloneExprPtr(s.Exc), Cause: b.cloneExprPtr(s.Cause)}

	case *py_ast.SAssert:
		clone.Data = &py_ast.SAssert{Test: b.CloneExpr(s.Test), Msg: b.cloneExprPtr(s.Msg)}

	case *py_ast.SGlobal:
		clone.Data = &py_ast.SGlobal{Names: append([]string(nil), s.Names...)}

	case *py_ast.SNonlocal:
		clone.Data = &py_ast.SNonlocal{Names: append([]string(nil), s.Names...)}

	case *py_ast.SPass:
		clone.Data = &py_ast.SPass{}
	case *py_ast.SBreak:
		clone.Data = &py_ast.SBreak{}
	case *py_ast.SContinue:
		clone.Data = &py_ast.SContinue{}

	default:
		panic("Internal error")
	}

	return clone
}

func (b Builder) CloneExprs(exprs []py_ast.Expr) []py_ast.Expr {
	if exprs == nil {
		return nil
	}
	clones := make([]py_ast.Expr, len(exprs))
	for i, expr := range exprs {
		clones[i] = b.CloneExpr(expr)
	}
	return clones
}

func (b Builder) CloneExpr(expr py_ast.Expr) py_ast.Expr {
	index := b.ctx.NewIndex()
	b.ctx.RecordDerived(xform.DirectCopy, expr.Idx, index)
	clone := py_ast.Expr{Loc: expr.Loc, Idx: index}

	switch e := expr.Data.(type) {
	case *py_ast.EName:
		clone.Data = &py_ast.EName{Name: e.Name}

	case *py_ast.ENumber:
		clone.Data = &py_ast.ENumber{Literal: e.Literal}

	case *py_ast.EString:
		clone.Data = &py_ast.EString{Value: e.Value, Raw: e.Raw}

	case *py_ast.EFString:
		clone.Data = &py_ast.EFString{Raw: e.Raw, FreeNames: append([]string(nil), e.FreeNames...)}

	case *py_ast.EBool:
		clone.Data = &py_ast.EBool{Value: e.Value}
	case *py_ast.ENone:
		clone.Data = &py_ast.ENone{}
	case *py_ast.EEllipsis:
		clone.Data = &py_ast.EEllipsis{}

	case *py_ast.EAttribute:
		clone.Data = &py_ast.EAttribute{
			Value:   b.CloneExpr(e.Value),
			Attr:    e.Attr,
			AttrLoc: e.AttrLoc,
		}

	case *py_ast.ESubscript:
		clone.Data = &py_ast.ESubscript{Value: b.CloneExpr(e.Value), Index: b.CloneExpr(e.Index)}

	case *py_ast.ESlice:
		clone.Data = &py_ast.ESlice{
			Lower: b.cloneExprPtr(e.Lower),
			Upper: b.cloneExprPtr(e.Upper),
			Step:  b.cloneExprPtr(e.Step),
		}

	case *py_ast.ECall:
		clone.Data = &py_ast.ECall{
			Target:   b.CloneExpr(e.Target),
			Args:     b.CloneExprs(e.Args),
			Keywords: b.cloneKeywords(e.Keywords),
		}

	case *py_ast.EList:
		clone.Data = &py_ast.EList{Items: b.CloneExprs(e.Items)}

	case *py_ast.ETuple:
		clone.Data = &py_ast.ETuple{Items: b.CloneExprs(e.Items), Parenthesized: e.Parenthesized}

	case *py_ast.ESet:
		clone.Data = &py_ast.ESet{Items: b.CloneExprs(e.Items)}

	case *py_ast.EDict:
		keys := make([]*py_ast.Expr, len(e.Keys))
		for i, key := range e.Keys {
			keys[i] = b.cloneExprPtr(key)
		}
		clone.Data = &py_ast.EDict{Keys: keys, Values: b.CloneExprs(e.Values)}

	case *py_ast.EUnary:
		clone.Data = &py_ast.EUnary{Op: e.Op, Value: b.CloneExpr(e.Value)}

	case *py_ast.EBinary:
		clone.Data = &py_ast.EBinary{Op: e.Op, Left: b.CloneExpr(e.Left), Right: b.CloneExpr(e.Right)}

	case *py_ast.ECompare:
		clone.Data = &py_ast.ECompare{
			Left:        b.CloneExpr(e.Left),
			Ops:         append([]py_ast.OpCode(nil), e.Ops...),
			Comparators: b.CloneExprs(e.Comparators),
		}

	case *py_ast.EBoolOp:
		clone.Data = &py_ast.EBoolOp{Op: e.Op, Values: b.CloneExprs(e.Values)}

	case *py_ast.ELambda:
		clone.Data = &py_ast.ELambda{Params: b.cloneParams(e.Params), Body: b.CloneExpr(e.Body)}

	case *py_ast.EIfExp:
		clone.Data = &py_ast.EIfExp{
			Test:   b.CloneExpr(e.Test),
			Body:   b.CloneExpr(e.Body),
			Orelse: b.CloneExpr(e.Orelse),
		}

	case *py_ast.EStarred:
		clone.Data = &py_ast.EStarred{Value: b.CloneExpr(e.Value)}

	case *py_ast.ENamedExpr:
		clone.Data = &py_ast.ENamedExpr{Target: b.CloneExpr(e.Target), Value: b.CloneExpr(e.Value)}

	case *py_ast.EYield:
		clone.Data = &py_ast.EYield{Value: b.cloneExprPtr(e.Value), IsFrom: e.IsFrom}

	case *py_ast.EAwait:
		clone.Data = &py_ast.EAwait{Value: b.CloneExpr(e.Value)}

	case *py_ast.EComp:
		generators := make([]py_ast.Comprehension, len(e.Generators))
		for i, gen := range e.Generators {
			generators[i] = py_ast.Comprehension{
				Target:  b.CloneExpr(gen.Target),
				Iter:    b.CloneExpr(gen.Iter),
				Ifs:     b.CloneExprs(gen.Ifs),
				IsAsync: gen.IsAsync,
			}
		}
		clone.Data = &py_ast.EComp{
			Kind:       e.Kind,
			Elt:        b.CloneExpr(e.Elt),
			Value:      b.cloneExprPtr(e.Value),
			Generators: generators,
		}

	default:
		panic("Internal error")
	}

	return clone
}

func (b Builder) cloneExprPtr(expr *py_ast.Expr) *py_ast.Expr {
	if expr == nil {
		return nil
	}
	clone := b.CloneExpr(*expr)
	return &clone
}

func (b Builder) cloneParams(params []py_ast.Param) []py_ast.Param {
	if params == nil {
		return nil
	}
	clones := make([]py_ast.Param, len(params))
	for i, param := range params {
		clones[i] = py_ast.Param{
			Name:       param.Name,
			NameLoc:    param.NameLoc,
			Annotation: b.cloneExprPtr(param.Annotation),
			Default:    b.cloneExprPtr(param.Default),
			Kind:       param.Kind,
		}
	}
	return clones
}

func (b Builder) cloneKeywords(keywords []py_ast.Keyword) []py_ast.Keyword {
	if keywords == nil {
		return nil
	}
	clones := make([]py_ast.Keyword, len(keywords))
	for i, kw := range keywords {
		clones[i] = py_ast.Keyword{Name: kw.Name, Value: b.CloneExpr(kw.Value)}
	}
	return clones
}

func cloneAliases(aliases []py_ast.ImportAlias) []py_ast.ImportAlias {
	return append([]py_ast.ImportAlias(nil), aliases...)
}
