package py_ast

// A Visitor sees every statement and expression in a subtree. Returning false
// from either method stops the walk from descending into that node. Pointers
// are passed so that passes over cloned trees can rewrite in place.
type Visitor interface {
	VisitStmt(stmt *Stmt) bool
	VisitExpr(expr *Expr) bool
}

func WalkStmts(stmts []Stmt, v Visitor) {
	for i := range stmts {
		WalkStmt(&stmts[i], v)
	}
}

func WalkStmt(stmt *Stmt, v Visitor) {
	if !v.VisitStmt(stmt) {
		return
	}

	switch s := stmt.Data.(type) {
	case *SExpr:
		WalkExpr(&s.Value, v)

	case *SAssign:
		for i := range s.Targets {
			WalkExpr(&s.Targets[i], v)
		}
		WalkExpr(&s.Value, v)

	case *SAugAssign:
		WalkExpr(&s.Target, v)
		WalkExpr(&s.Value, v)

	case *SAnnAssign:
		WalkExpr(&s.Target, v)
		WalkExpr(&s.Annotation, v)
		if s.Value != nil {
			WalkExpr(s.Value, v)
		}

	case *SFunctionDef:
		for i := range s.Decorators {
			WalkExpr(&s.Decorators[i], v)
		}
		walkParams(s.Params, v)
		if s.Returns != nil {
			WalkExpr(s.Returns, v)
		}
		WalkStmts(s.Body, v)

	case *SClassDef:
		for i := range s.Decorators {
			WalkExpr(&s.Decorators[i], v)
		}
		for i := range s.Bases {
			WalkExpr(&s.Bases[i], v)
		}
		for i := range s.Keywords {
			WalkExpr(&s.Keywords[i].Value, v)
		}
		WalkStmts(s.Body, v)

	case *SReturn:
		if s.Value != nil {
			WalkExpr(s.Value, v)
		}

	case *SDelete:
		for i := range s.Targets {
			WalkExpr(&s.Targets[i], v)
		}

	case *SIf:
		WalkExpr(&s.Test, v)
		WalkStmts(s.Body, v)
		WalkStmts(s.Orelse, v)

	case *SFor:
		WalkExpr(&s.Target, v)
		WalkExpr(&s.Iter, v)
		WalkStmts(s.Body, v)
		WalkStmts(s.Orelse, v)

	case *SWhile:
		WalkExpr(&s.Test, v)
		WalkStmts(s.Body, v)
		WalkStmts(s.Orelse, v)

	case *SWith:
		for i := range s.Items {
			WalkExpr(&s.Items[i].Context, v)
			if s.Items[i].Vars != nil {
				WalkExpr(s.Items[i].Vars, v)
			}
		}
		WalkStmts(s.Body, v)

	case *STry:
		WalkStmts(s.Body, v)
		for i := range s.Handlers {
			if s.Handlers[i].Type != nil {
				WalkExpr(s.Handlers[i].Type, v)
			}
			WalkStmts(s.Handlers[i].Body, v)
		}
		WalkStmts(s.Orelse, v)
		WalkStmts(s.Finally, v)

	case *SRaise:
		if s.Exc != nil {
			WalkExpr(s.Exc, v)
		}
		if s.Cause != nil {
			WalkExpr(s.Cause, v)
		}

	case *SAssert:
		WalkExpr(&s.Test, v)
		if s.Msg != nil {
			WalkExpr(s.Msg, v)
		}

	case *SImport, *SImportFrom, *SGlobal, *SNonlocal, *SPass, *SBreak, *SContinue:
		// No nested nodes
	}
}

func walkParams(params []Param, v Visitor) {
	for i := range params {
		if params[i].Annotation != nil {
			WalkExpr(params[i].Annotation, v)
		}
		if params[i].Default != nil {
			WalkExpr(params[i].Default, v)
		}
	}
}

func WalkExpr(expr *Expr, v Visitor) {
	if !v.VisitExpr(expr) {
		return
	}

	switch e := expr.Data.(type) {
	case *EAttribute:
		WalkExpr(&e.Value, v)

	case *ESubscript:
		WalkExpr(&e.Value, v)
		WalkExpr(&e.Index, v)

	case *ESlice:
		if e.Lower != nil {
			WalkExpr(e.Lower, v)
		}
		if e.Upper != nil {
			WalkExpr(e.Upper, v)
		}
		if e.Step != nil {
			WalkExpr(e.Step, v)
		}

	case *ECall:
		WalkExpr(&e.Target, v)
		for i := range e.Args {
			WalkExpr(&e.Args[i], v)
		}
		for i := range e.Keywords {
			WalkExpr(&e.Keywords[i].Value, v)
		}

	case *EList:
		for i := range e.Items {
			WalkExpr(&e.Items[i], v)
		}

	case *ETuple:
		for i := range e.Items {
			WalkExpr(&e.Items[i], v)
		}

	case *ESet:
		for i := range e.Items {
			WalkExpr(&e.Items[i], v)
		}

	case *EDict:
		for i := range e.Keys {
			if e.Keys[i] != nil {
				WalkExpr(e.Keys[i], v)
			}
			WalkExpr(&e.Values[i], v)
		}

	case *EUnary:
		WalkExpr(&e.Value, v)

	case *EBinary:
		WalkExpr(&e.Left, v)
		WalkExpr(&e.Right, v)

	case *ECompare:
		WalkExpr(&e.Left, v)
		for i := range e.Comparators {
			WalkExpr(&e.Comparators[i], v)
		}

	case *EBoolOp:
		for i := range e.Values {
			WalkExpr(&e.Values[i], v)
		}

	case *ELambda:
		walkParams(e.Params, v)
		WalkExpr(&e.Body, v)

	case *EIfExp:
		WalkExpr(&e.Test, v)
		WalkExpr(&e.Body, v)
		WalkExpr(&e.Orelse, v)

	case *EStarred:
		WalkExpr(&e.Value, v)

	case *ENamedExpr:
		WalkExpr(&e.Target, v)
		WalkExpr(&e.Value, v)

	case *EYield:
		if e.Value != nil {
			WalkExpr(e.Value, v)
		}

	case *EAwait:
		WalkExpr(&e.Value, v)

	case *EComp:
		WalkExpr(&e.Elt, v)
		if e.Value != nil {
			WalkExpr(e.Value, v)
		}
		for i := range e.Generators {
			WalkExpr(&e.Generators[i].Target, v)
			WalkExpr(&e.Generators[i].Iter, v)
			for j := range e.Generators[i].Ifs {
				WalkExpr(&e.Generators[i].Ifs[j], v)
			}
		}

	case *EName, *ENumber, *EString, *EFString, *EBool, *ENone, *EEllipsis:
		// Leaf nodes
	}
}

type stmtVisitorFunc struct {
	fn func(stmt *Stmt) bool
}

func (v *stmtVisitorFunc) VisitStmt(stmt *Stmt) bool { return v.fn(stmt) }
func (v *stmtVisitorFunc) VisitExpr(expr *Expr) bool { return true }

// VisitStmts walks only statements, descending while fn returns true.
func VisitStmts(stmts []Stmt, fn func(stmt *Stmt) bool) {
	WalkStmts(stmts, &stmtVisitorFunc{fn: fn})
}

type exprVisitorFunc struct {
	fn func(expr *Expr) bool
}

func (v *exprVisitorFunc) VisitStmt(stmt *Stmt) bool { return true }
func (v *exprVisitorFunc) VisitExpr(expr *Expr) bool { return v.fn(expr) }

// VisitExprs walks every expression in the subtree rooted at the statements.
func VisitExprs(stmts []Stmt, fn func(expr *Expr) bool) {
	WalkStmts(stmts, &exprVisitorFunc{fn: fn})
}
