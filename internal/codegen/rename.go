package codegen

// Scope-aware name rewriting over cloned statements. Reads and simple
// assignment targets of module-level names are replaced; names shadowed by
// function locals, parameters, or comprehension targets are left alone.
// Replacements must target already-cloned nodes; parsed trees stay immutable.

import (
	"github.com/cribo/cribo/internal/astbuild"
	"github.com/cribo/cribo/internal/py_ast"
)

// Replacer produces the replacement expression for a module-level name, or
// reports that the name stays.
type Replacer func(name string) (py_ast.Expr, bool)

// renameOnly wraps a plain rename map as a Replacer.
func renameOnly(b astbuild.Builder, renames map[string]string) Replacer {
	return func(name string) (py_ast.Expr, bool) {
		if to, ok := renames[name]; ok {
			return b.Name(to), true
		}
		return py_ast.Expr{}, false
	}
}

type nameRewriter struct {
	replace Replacer
}

func rewriteNames(stmts []py_ast.Stmt, replace Replacer) {
	r := &nameRewriter{replace: replace}
	r.stmts(stmts, map[string]bool{})
}

func (r *nameRewriter) stmts(stmts []py_ast.Stmt, bound map[string]bool) {
	for i := range stmts {
		r.stmt(&stmts[i], bound)
	}
}

func (r *nameRewriter) stmt(stmt *py_ast.Stmt, bound map[string]bool) {
	switch s := stmt.Data.(type) {
	case *py_ast.SFunctionDef:
		for i := range s.Decorators {
			r.expr(&s.Decorators[i], bound)
		}
		r.params(s.Params, bound)
		if s.Returns != nil {
			r.expr(s.Returns, bound)
		}
		if !bound[s.Name] {
			if repl, ok := r.replace(s.Name); ok {
				if name, isName := repl.Data.(*py_ast.EName); isName {
					s.Name = name.Name
				}
			}
		}
		r.stmts(s.Body, functionScope(s.Params, s.Body, bound))

	case *py_ast.SClassDef:
		for i := range s.Decorators {
			r.expr(&s.Decorators[i], bound)
		}
		for i := range s.Bases {
			r.expr(&s.Bases[i], bound)
		}
		for i := range s.Keywords {
			r.expr(&s.Keywords[i].Value, bound)
		}
		if !bound[s.Name] {
			if repl, ok := r.replace(s.Name); ok {
				if name, isName := repl.Data.(*py_ast.EName); isName {
					s.Name = name.Name
				}
			}
		}
		// Class bodies read enclosing scope directly
		r.stmts(s.Body, bound)

	case *py_ast.SExpr:
		r.expr(&s.Value, bound)

	case *py_ast.SAssign:
		r.expr(&s.Value, bound)
		for i := range s.Targets {
			r.target(&s.Targets[i], bound)
		}

	case *py_ast.SAugAssign:
		r.expr(&s.Value, bound)
		r.target(&s.Target, bound)

	case *py_ast.SAnnAssign:
		r.expr(&s.Annotation, bound)
		if s.Value != nil {
			r.expr(s.Value, bound)
		}
		r.target(&s.Target, bound)

	case *py_ast.SReturn:
		if s.Value != nil {
			r.expr(s.Value, bound)
		}

	case *py_ast.SDelete:
		for i := range s.Targets {
			r.target(&s.Targets[i], bound)
		}

	case *py_ast.SIf:
		r.expr(&s.Test, bound)
		r.stmts(s.Body, bound)
		r.stmts(s.Orelse, bound)

	case *py_ast.SFor:
		r.expr(&s.Iter, bound)
		r.target(&s.Target, bound)
		r.stmts(s.Body, bound)
		r.stmts(s.Orelse, bound)

	case *py_ast.SWhile:
		r.expr(&s.Test, bound)
		r.stmts(s.Body, bound)
		r.stmts(s.Orelse, bound)

	case *py_ast.SWith:
		for i := range s.Items {
			r.expr(&s.Items[i].Context, bound)
			if s.Items[i].Vars != nil {
				r.target(s.Items[i].Vars, bound)
			}
		}
		r.stmts(s.Body, bound)

	case *py_ast.STry:
		r.stmts(s.Body, bound)
		for i := range s.Handlers {
			if s.Handlers[i].Type != nil {
				r.expr(s.Handlers[i].Type, bound)
			}
			r.stmts(s.Handlers[i].Body, bound)
		}
		r.stmts(s.Orelse, bound)
		r.stmts(s.Finally, bound)

	case *py_ast.SRaise:
		if s.Exc != nil {
			r.expr(s.Exc, bound)
		}
		if s.Cause != nil {
			r.expr(s.Cause, bound)
		}

	case *py_ast.SAssert:
		r.expr(&s.Test, bound)
		if s.Msg != nil {
			r.expr(s.Msg, bound)
		}
	}
}

// target rewrites an assignment target. Only bare names are replaced by
// expression substitution; attribute and subscript bases are rewritten as
// reads.
func (r *nameRewriter) target(target *py_ast.Expr, bound map[string]bool) {
	switch t := target.Data.(type) {
	case *py_ast.EName:
		if !bound[t.Name] {
			if repl, ok := r.replace(t.Name); ok {
				target.Data = repl.Data
				target.Idx = repl.Idx
				target.Loc = repl.Loc
			}
		}
	case *py_ast.EAttribute:
		r.expr(&t.Value, bound)
	case *py_ast.ESubscript:
		r.expr(&t.Value, bound)
		r.expr(&t.Index, bound)
	case *py_ast.ETuple:
		for i := range t.Items {
			r.target(&t.Items[i], bound)
		}
	case *py_ast.EList:
		for i := range t.Items {
			r.target(&t.Items[i], bound)
		}
	case *py_ast.EStarred:
		r.target(&t.Value, bound)
	}
}

func (r *nameRewriter) expr(expr *py_ast.Expr, bound map[string]bool) {
	switch e := expr.Data.(type) {
	case *py_ast.EName:
		if !bound[e.Name] {
			if repl, ok := r.replace(e.Name); ok {
				expr.Data = repl.Data
				expr.Idx = repl.Idx
				expr.Loc = repl.Loc
			}
		}

	case *py_ast.EAttribute:
		r.expr(&e.Value, bound)

	case *py_ast.ESubscript:
		r.expr(&e.Value, bound)
		r.expr(&e.Index, bound)

	case *py_ast.ESlice:
		for _, part := range []*py_ast.Expr{e.Lower, e.Upper, e.Step} {
			if part != nil {
				r.expr(part, bound)
			}
		}

	case *py_ast.ECall:
		r.expr(&e.Target, bound)
		for i := range e.Args {
			r.expr(&e.Args[i], bound)
		}
		for i := range e.Keywords {
			r.expr(&e.Keywords[i].Value, bound)
		}

	case *py_ast.EList:
		for i := range e.Items {
			r.expr(&e.Items[i], bound)
		}
	case *py_ast.ETuple:
		for i := range e.Items {
			r.expr(&e.Items[i], bound)
		}
	case *py_ast.ESet:
		for i := range e.Items {
			r.expr(&e.Items[i], bound)
		}
	case *py_ast.EDict:
		for i := range e.Keys {
			if e.Keys[i] != nil {
				r.expr(e.Keys[i], bound)
			}
			r.expr(&e.Values[i], bound)
		}

	case *py_ast.EUnary:
		r.expr(&e.Value, bound)
	case *py_ast.EBinary:
		r.expr(&e.Left, bound)
		r.expr(&e.Right, bound)
	case *py_ast.ECompare:
		r.expr(&e.Left, bound)
		for i := range e.Comparators {
			r.expr(&e.Comparators[i], bound)
		}
	case *py_ast.EBoolOp:
		for i := range e.Values {
			r.expr(&e.Values[i], bound)
		}

	case *py_ast.ELambda:
		r.params(e.Params, bound)
		inner := copyBound(bound)
		for _, param := range e.Params {
			inner[param.Name] = true
		}
		r.expr(&e.Body, inner)

	case *py_ast.EIfExp:
		r.expr(&e.Test, bound)
		r.expr(&e.Body, bound)
		r.expr(&e.Orelse, bound)

	case *py_ast.EStarred:
		r.expr(&e.Value, bound)
	case *py_ast.ENamedExpr:
		r.expr(&e.Value, bound)
		r.target(&e.Target, bound)
	case *py_ast.EYield:
		if e.Value != nil {
			r.expr(e.Value, bound)
		}
	case *py_ast.EAwait:
		r.expr(&e.Value, bound)

	case *py_ast.EComp:
		inner := copyBound(bound)
		for i := range e.Generators {
			gen := &e.Generators[i]
			r.expr(&gen.Iter, inner)
			for _, name := range py_ast.TargetNames(gen.Target, nil) {
				inner[name] = true
			}
			for j := range gen.Ifs {
				r.expr(&gen.Ifs[j], inner)
			}
		}
		if e.Value != nil {
			r.expr(e.Value, inner)
		}
		r.expr(&e.Elt, inner)
	}
}

func (r *nameRewriter) params(params []py_ast.Param, bound map[string]bool) {
	for i := range params {
		if params[i].Annotation != nil {
			r.expr(params[i].Annotation, bound)
		}
		if params[i].Default != nil {
			r.expr(params[i].Default, bound)
		}
	}
}

// functionScope computes the bound-name set inside a function body: the
// enclosing bound names plus parameters and local assignments, minus names
// declared global.
func functionScope(params []py_ast.Param, body []py_ast.Stmt, outer map[string]bool) map[string]bool {
	inner := copyBound(outer)
	for _, param := range params {
		if param.Name != "" {
			inner[param.Name] = true
		}
	}
	for _, stmt := range body {
		for _, name := range localNames(stmt, nil) {
			inner[name] = true
		}
	}
	for _, stmt := range body {
		if g, ok := stmt.Data.(*py_ast.SGlobal); ok {
			for _, name := range g.Names {
				delete(inner, name)
			}
		}
	}
	return inner
}

// localNames lists names a statement binds in its immediate scope, descending
// into control flow but not into nested defs.
func localNames(stmt py_ast.Stmt, out []string) []string {
	switch s := stmt.Data.(type) {
	case *py_ast.SAssign:
		for _, target := range s.Targets {
			out = py_ast.TargetNames(target, out)
		}
	case *py_ast.SAugAssign:
		out = py_ast.TargetNames(s.Target, out)
	case *py_ast.SAnnAssign:
		out = py_ast.TargetNames(s.Target, out)
	case *py_ast.SFunctionDef:
		out = append(out, s.Name)
	case *py_ast.SClassDef:
		out = append(out, s.Name)
	case *py_ast.SImport:
		for _, alias := range s.Names {
			out = append(out, alias.BoundName())
		}
	case *py_ast.SImportFrom:
		for _, alias := range s.Names {
			if alias.Name != "*" {
				out = append(out, alias.BoundName())
			}
		}
	case *py_ast.SFor:
		out = py_ast.TargetNames(s.Target, out)
		out = localBodyNames(s.Body, out)
		out = localBodyNames(s.Orelse, out)
	case *py_ast.SWhile:
		out = localBodyNames(s.Body, out)
		out = localBodyNames(s.Orelse, out)
	case *py_ast.SIf:
		out = localBodyNames(s.Body, out)
		out = localBodyNames(s.Orelse, out)
	case *py_ast.SWith:
		for _, item := range s.Items {
			if item.Vars != nil {
				out = py_ast.TargetNames(*item.Vars, out)
			}
		}
		out = localBodyNames(s.Body, out)
	case *py_ast.STry:
		out = localBodyNames(s.Body, out)
		for _, handler := range s.Handlers {
			if handler.Name != "" {
				out = append(out, handler.Name)
			}
			out = localBodyNames(handler.Body, out)
		}
		out = localBodyNames(s.Orelse, out)
		out = localBodyNames(s.Finally, out)
	}
	return out
}

func localBodyNames(body []py_ast.Stmt, out []string) []string {
	for _, stmt := range body {
		out = localNames(stmt, out)
	}
	return out
}

func copyBound(bound map[string]bool) map[string]bool {
	inner := make(map[string]bool, len(bound))
	for name := range bound {
		inner[name] = true
	}
	return inner
}
