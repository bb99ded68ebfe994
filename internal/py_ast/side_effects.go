package py_ast

import "github.com/cribo/cribo/internal/pystdlib"

// Side-effect detection gates inlining: a module whose top level does
// anything observable when imported must be wrapped so its execution can be
// deferred. The rules are deliberately conservative. Anything not on the safe
// list counts as a side effect.

type SideEffectOptions struct {
	PythonVersion uint16

	// IsSafeImport extends the hoistable-stdlib rule, e.g. to treat
	// first-party imports that the bundler itself will resolve as safe.
	// May be nil.
	IsSafeImport func(module string, level int) bool
}

// ModuleHasSideEffects reports whether importing the module runs observable
// code. A docstring in the leading position is always safe.
func ModuleHasSideEffects(body []Stmt, options SideEffectOptions) bool {
	for i, stmt := range body {
		if i == 0 && IsDocstring(stmt) {
			continue
		}
		if StmtHasSideEffects(stmt, options) {
			return true
		}
	}
	return false
}

// StmtHasSideEffects classifies one top-level statement.
func StmtHasSideEffects(stmt Stmt, options SideEffectOptions) bool {
	switch s := stmt.Data.(type) {
	case *SFunctionDef, *SClassDef, *SPass:
		return false

	case *SImport:
		for _, alias := range s.Names {
			if !importIsSafe(alias.Name, 0, options) {
				return true
			}
		}
		return false

	case *SImportFrom:
		if !importIsSafe(s.Module, s.Level, options) {
			return true
		}
		// A wildcard from a non-safe source always has side effects; from a
		// safe source it only rebinds names.
		return false

	case *SAssign:
		return !isSafeRHS(s.Value)

	case *SAnnAssign:
		if s.Value == nil {
			return false
		}
		return !isSafeRHS(*s.Value)

	case *SAugAssign:
		// Augmented assignment re-reads and mutates; only trivial literal
		// arithmetic is safe.
		return !isSafeRHS(s.Value) || !isSafeRHS(s.Target)

	case *SIf:
		if !isPureExpr(s.Test) {
			return true
		}
		for _, branch := range s.Body {
			if StmtHasSideEffects(branch, options) {
				return true
			}
		}
		for _, branch := range s.Orelse {
			if StmtHasSideEffects(branch, options) {
				return true
			}
		}
		return false

	case *SExpr:
		// Bare strings are docstrings or no-ops
		_, isString := s.Value.Data.(*EString)
		return !isString

	default:
		// Loops, try blocks, calls, raises, deletes, with blocks: all
		// observable at import time.
		return true
	}
}

func importIsSafe(module string, level int, options SideEffectOptions) bool {
	if level == 0 && pystdlib.IsHoistable(module, options.PythonVersion) {
		return true
	}
	if options.IsSafeImport != nil && options.IsSafeImport(module, level) {
		return true
	}
	return false
}

// isSafeRHS reports whether evaluating the expression cannot have observable
// effects: literals, containers of safe expressions, bare names, and lambdas.
func isSafeRHS(expr Expr) bool {
	switch e := expr.Data.(type) {
	case *EName, *ENumber, *EString, *EBool, *ENone, *EEllipsis, *ELambda:
		return true

	case *EAttribute:
		// Attribute access can run arbitrary descriptors in principle, but
		// "x = module.CONSTANT" is idiomatic and harmless.
		return isSafeRHS(e.Value)

	case *ETuple:
		return allSafe(e.Items)

	case *EList:
		return allSafe(e.Items)

	case *ESet:
		return allSafe(e.Items)

	case *EDict:
		for i := range e.Keys {
			if e.Keys[i] == nil || !isSafeRHS(*e.Keys[i]) {
				return false
			}
			if !isSafeRHS(e.Values[i]) {
				return false
			}
		}
		return true

	case *EUnary:
		return isSafeRHS(e.Value)

	case *EBinary:
		return isSafeRHS(e.Left) && isSafeRHS(e.Right)

	default:
		return false
	}
}

func allSafe(items []Expr) bool {
	for _, item := range items {
		if !isSafeRHS(item) {
			return false
		}
	}
	return true
}

// isPureExpr is stricter than isSafeRHS: no calls, comprehensions, yields or
// awaits anywhere. Used for conditions of top-level "if" blocks.
func isPureExpr(expr Expr) bool {
	switch e := expr.Data.(type) {
	case *EName, *ENumber, *EString, *EBool, *ENone, *EEllipsis:
		return true

	case *EAttribute:
		return isPureExpr(e.Value)

	case *ESubscript:
		return isPureExpr(e.Value) && isPureExpr(e.Index)

	case *ETuple:
		for _, item := range e.Items {
			if !isPureExpr(item) {
				return false
			}
		}
		return true

	case *EUnary:
		return isPureExpr(e.Value)

	case *EBinary:
		return isPureExpr(e.Left) && isPureExpr(e.Right)

	case *EBoolOp:
		for _, item := range e.Values {
			if !isPureExpr(item) {
				return false
			}
		}
		return true

	case *ECompare:
		if !isPureExpr(e.Left) {
			return false
		}
		for _, item := range e.Comparators {
			if !isPureExpr(item) {
				return false
			}
		}
		return true

	default:
		return false
	}
}
