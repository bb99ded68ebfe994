package py_ast

import "sort"

// Free-variable analysis for a single top-level statement. A free read is a
// name loaded somewhere in the statement that is not bound by any enclosing
// local scope within the statement itself. Those are the names that may
// resolve to other top-level items of the same module (or of an inlined
// dependency), which is exactly what the item graph needs.

type freeVarScope struct {
	parent *freeVarScope
	bound  map[string]bool

	// Class bodies are skipped when resolving names from nested functions,
	// because methods do not see class-scope bindings.
	isClass bool
}

func skipClassScopes(scope *freeVarScope) *freeVarScope {
	for scope != nil && scope.isClass {
		scope = scope.parent
	}
	return scope
}

func (s *freeVarScope) isBound(name string) bool {
	for scope := s; scope != nil; scope = scope.parent {
		if scope.bound[name] {
			return true
		}
	}
	return false
}

// FreeReads returns the sorted, deduplicated free names read by a top-level
// statement. Names the statement itself binds in loop/with/except targets are
// considered bound, so "for i in xs: use(i)" does not report "i".
func FreeReads(stmt Stmt) []string {
	collector := &freeVarCollector{reads: map[string]bool{}}
	root := &freeVarScope{bound: map[string]bool{}}

	// Bindings introduced by the statement itself shadow module scope for the
	// duration of the statement, except for simple assignments where the RHS
	// may legitimately read a previous top-level binding of the same name.
	switch stmt.Data.(type) {
	case *SAssign, *SAnnAssign, *SAugAssign:
	default:
		for _, name := range DefinedNames(stmt) {
			root.bound[name] = true
		}
	}

	collector.stmt(stmt, root)

	names := make([]string, 0, len(collector.reads))
	for name := range collector.reads {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ImportTimeReads is like FreeReads but only reports names the statement
// evaluates while the module is being imported. Function and lambda bodies
// are deferred until call time and excluded; decorators, parameter defaults,
// annotations, base classes, and class bodies all run at import time and are
// included.
func ImportTimeReads(stmt Stmt) []string {
	collector := &freeVarCollector{reads: map[string]bool{}, skipFunctionBodies: true}
	root := &freeVarScope{bound: map[string]bool{}}
	switch stmt.Data.(type) {
	case *SAssign, *SAnnAssign, *SAugAssign:
	default:
		for _, name := range DefinedNames(stmt) {
			root.bound[name] = true
		}
	}
	collector.stmt(stmt, root)

	names := make([]string, 0, len(collector.reads))
	for name := range collector.reads {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type freeVarCollector struct {
	reads              map[string]bool
	skipFunctionBodies bool
}

func (c *freeVarCollector) read(name string, scope *freeVarScope) {
	if !scope.isBound(name) {
		c.reads[name] = true
	}
}

func (c *freeVarCollector) expr(expr Expr, scope *freeVarScope) {
	switch e := expr.Data.(type) {
	case *EName:
		c.read(e.Name, scope)

	case *EFString:
		for _, name := range e.FreeNames {
			c.read(name, scope)
		}

	case *ELambda:
		inner := &freeVarScope{parent: skipClassScopes(scope), bound: map[string]bool{}}
		for _, param := range e.Params {
			if param.Name != "" {
				inner.bound[param.Name] = true
			}
			if param.Default != nil {
				// Defaults evaluate in the enclosing scope
				c.expr(*param.Default, scope)
			}
		}
		if !c.skipFunctionBodies {
			c.expr(e.Body, inner)
		}

	case *EComp:
		// The first iterable evaluates in the enclosing scope; everything
		// else sees the comprehension targets.
		inner := &freeVarScope{parent: scope, bound: map[string]bool{}}
		for i, gen := range e.Generators {
			if i == 0 {
				c.expr(gen.Iter, scope)
			} else {
				c.expr(gen.Iter, inner)
			}
			for _, name := range TargetNames(gen.Target, nil) {
				inner.bound[name] = true
			}
			for _, cond := range gen.Ifs {
				c.expr(cond, inner)
			}
		}
		c.expr(e.Elt, inner)
		if e.Value != nil {
			c.expr(*e.Value, inner)
		}

	case *ENamedExpr:
		// The walrus target binds in the enclosing scope
		if name, ok := e.Target.Data.(*EName); ok {
			scope.bound[name.Name] = true
		}
		c.expr(e.Value, scope)

	default:
		c.exprChildren(expr, scope)
	}
}

// exprChildren visits immediate child expressions with the same scope.
func (c *freeVarCollector) exprChildren(expr Expr, scope *freeVarScope) {
	wrapper := &childExprVisitor{collector: c, scope: scope, root: expr.Data}
	e := expr
	WalkExpr(&e, wrapper)
}

type childExprVisitor struct {
	collector *freeVarCollector
	scope     *freeVarScope
	root      E
}

func (v *childExprVisitor) VisitStmt(stmt *Stmt) bool { return false }

func (v *childExprVisitor) VisitExpr(expr *Expr) bool {
	if expr.Data == v.root {
		// Descend into the node we were asked to expand
		return true
	}
	v.collector.expr(*expr, v.scope)
	return false
}

func (c *freeVarCollector) stmt(stmt Stmt, scope *freeVarScope) {
	switch s := stmt.Data.(type) {
	case *SExpr:
		c.expr(s.Value, scope)

	case *SAssign:
		c.expr(s.Value, scope)
		for _, target := range s.Targets {
			c.storeTarget(target, scope)
		}

	case *SAugAssign:
		// An augmented assignment both reads and writes the target
		c.expr(s.Target, scope)
		c.expr(s.Value, scope)

	case *SAnnAssign:
		c.expr(s.Annotation, scope)
		if s.Value != nil {
			c.expr(*s.Value, scope)
		}
		c.storeTarget(s.Target, scope)

	case *SFunctionDef:
		for _, dec := range s.Decorators {
			c.expr(dec, scope)
		}
		if s.Returns != nil {
			c.expr(*s.Returns, scope)
		}
		inner := &freeVarScope{parent: skipClassScopes(scope), bound: map[string]bool{}}
		for _, param := range s.Params {
			if param.Default != nil {
				c.expr(*param.Default, scope)
			}
			if param.Annotation != nil {
				c.expr(*param.Annotation, scope)
			}
			if param.Name != "" {
				inner.bound[param.Name] = true
			}
		}
		bindLocals(s.Body, inner)
		scope.bound[s.Name] = true
		if !c.skipFunctionBodies {
			for _, bodyStmt := range s.Body {
				c.stmt(bodyStmt, inner)
			}
		}

	case *SClassDef:
		for _, dec := range s.Decorators {
			c.expr(dec, scope)
		}
		for _, base := range s.Bases {
			c.expr(base, scope)
		}
		for _, kw := range s.Keywords {
			c.expr(kw.Value, scope)
		}
		// The class body is its own scope; methods do not see it, but the
		// body statements themselves do.
		inner := &freeVarScope{parent: scope, bound: map[string]bool{}, isClass: true}
		bindLocals(s.Body, inner)
		scope.bound[s.Name] = true
		for _, bodyStmt := range s.Body {
			c.stmt(bodyStmt, inner)
		}

	case *SReturn:
		if s.Value != nil {
			c.expr(*s.Value, scope)
		}

	case *SDelete:
		for _, target := range s.Targets {
			c.expr(target, scope)
		}

	case *SIf:
		c.expr(s.Test, scope)
		for _, bodyStmt := range s.Body {
			c.stmt(bodyStmt, scope)
		}
		for _, bodyStmt := range s.Orelse {
			c.stmt(bodyStmt, scope)
		}

	case *SFor:
		c.expr(s.Iter, scope)
		c.storeTarget(s.Target, scope)
		for _, bodyStmt := range s.Body {
			c.stmt(bodyStmt, scope)
		}
		for _, bodyStmt := range s.Orelse {
			c.stmt(bodyStmt, scope)
		}

	case *SWhile:
		c.expr(s.Test, scope)
		for _, bodyStmt := range s.Body {
			c.stmt(bodyStmt, scope)
		}
		for _, bodyStmt := range s.Orelse {
			c.stmt(bodyStmt, scope)
		}

	case *SWith:
		for _, item := range s.Items {
			c.expr(item.Context, scope)
			if item.Vars != nil {
				c.storeTarget(*item.Vars, scope)
			}
		}
		for _, bodyStmt := range s.Body {
			c.stmt(bodyStmt, scope)
		}

	case *STry:
		for _, bodyStmt := range s.Body {
			c.stmt(bodyStmt, scope)
		}
		for _, handler := range s.Handlers {
			if handler.Type != nil {
				c.expr(*handler.Type, scope)
			}
			if handler.Name != "" {
				scope.bound[handler.Name] = true
			}
			for _, bodyStmt := range handler.Body {
				c.stmt(bodyStmt, scope)
			}
		}
		for _, bodyStmt := range s.Orelse {
			c.stmt(bodyStmt, scope)
		}
		for _, bodyStmt := range s.Finally {
			c.stmt(bodyStmt, scope)
		}

	case *SRaise:
		if s.Exc != nil {
			c.expr(*s.Exc, scope)
		}
		if s.Cause != nil {
			c.expr(*s.Cause, scope)
		}

	case *SAssert:
		c.expr(s.Test, scope)
		if s.Msg != nil {
			c.expr(*s.Msg, scope)
		}

	case *SImport:
		for _, alias := range s.Names {
			if alias.Asname != "" {
				scope.bound[alias.Asname] = true
			} else {
				scope.bound[TopLevelName(alias.Name)] = true
			}
		}

	case *SImportFrom:
		for _, alias := range s.Names {
			scope.bound[alias.BoundName()] = true
		}

	case *SGlobal:
		// Reads and writes of these names go to module scope
		for _, name := range s.Names {
			c.reads[name] = true
		}

	case *SNonlocal, *SPass, *SBreak, *SContinue:
	}
}

// storeTarget binds plain names and reads the value parts of attribute and
// subscript targets.
func (c *freeVarCollector) storeTarget(target Expr, scope *freeVarScope) {
	switch t := target.Data.(type) {
	case *EName:
		scope.bound[t.Name] = true
	case *ETuple:
		for _, item := range t.Items {
			c.storeTarget(item, scope)
		}
	case *EList:
		for _, item := range t.Items {
			c.storeTarget(item, scope)
		}
	case *EStarred:
		c.storeTarget(t.Value, scope)
	case *EAttribute:
		c.expr(t.Value, scope)
	case *ESubscript:
		c.expr(t.Value, scope)
		c.expr(t.Index, scope)
	}
}

// bindLocals pre-binds every name assigned anywhere in a function or class
// body, matching Python's local-variable semantics where assignment anywhere
// in the scope makes the name local everywhere in the scope.
func bindLocals(body []Stmt, scope *freeVarScope) {
	var declared []string
	for _, stmt := range body {
		declared = collectDeclared(stmt, declared)
	}
	for _, name := range declared {
		scope.bound[name] = true
	}
	// "global" and "nonlocal" declarations undo localness
	for _, stmt := range body {
		undoGlobalDecls(stmt, scope)
	}
}

func collectDeclared(stmt Stmt, out []string) []string {
	out = appendDefinedNames(stmt, out)
	switch s := stmt.Data.(type) {
	case *STry:
		for _, handler := range s.Handlers {
			if handler.Name != "" {
				out = append(out, handler.Name)
			}
		}
	}
	return out
}

func undoGlobalDecls(stmt Stmt, scope *freeVarScope) {
	switch s := stmt.Data.(type) {
	case *SGlobal:
		for _, name := range s.Names {
			delete(scope.bound, name)
		}
	case *SNonlocal:
		for _, name := range s.Names {
			delete(scope.bound, name)
		}
	case *SIf:
		for _, nested := range s.Body {
			undoGlobalDecls(nested, scope)
		}
		for _, nested := range s.Orelse {
			undoGlobalDecls(nested, scope)
		}
	case *SFor:
		for _, nested := range s.Body {
			undoGlobalDecls(nested, scope)
		}
	case *SWhile:
		for _, nested := range s.Body {
			undoGlobalDecls(nested, scope)
		}
	case *STry:
		for _, nested := range s.Body {
			undoGlobalDecls(nested, scope)
		}
		for _, handler := range s.Handlers {
			for _, nested := range handler.Body {
				undoGlobalDecls(nested, scope)
			}
		}
	case *SWith:
		for _, nested := range s.Body {
			undoGlobalDecls(nested, scope)
		}
	}
}
