package py_ast

import "sort"

// TargetNames extracts the names bound by an assignment target. Attribute and
// subscript targets bind nothing at the current scope.
func TargetNames(target Expr, out []string) []string {
	switch t := target.Data.(type) {
	case *EName:
		out = append(out, t.Name)
	case *ETuple:
		for _, item := range t.Items {
			out = TargetNames(item, out)
		}
	case *EList:
		for _, item := range t.Items {
			out = TargetNames(item, out)
		}
	case *EStarred:
		out = TargetNames(t.Value, out)
	}
	return out
}

// DefinedNames returns the names a top-level statement binds at module scope.
// Compound statements (if/for/while/try/with) run their bodies at module
// scope, so bindings inside them count too.
func DefinedNames(stmt Stmt) []string {
	var out []string
	out = appendDefinedNames(stmt, out)
	sort.Strings(out)
	return dedupSorted(out)
}

func appendDefinedNames(stmt Stmt, out []string) []string {
	switch s := stmt.Data.(type) {
	case *SFunctionDef:
		out = append(out, s.Name)

	case *SClassDef:
		out = append(out, s.Name)

	case *SAssign:
		for _, target := range s.Targets {
			out = TargetNames(target, out)
		}

	case *SAugAssign:
		out = TargetNames(s.Target, out)

	case *SAnnAssign:
		// A bare annotation creates no runtime binding
		if s.Value != nil {
			out = TargetNames(s.Target, out)
		}

	case *SImport:
		for _, alias := range s.Names {
			if alias.Asname != "" {
				out = append(out, alias.Asname)
			} else {
				// "import a.b.c" binds the top-level name "a"
				out = append(out, TopLevelName(alias.Name))
			}
		}

	case *SImportFrom:
		for _, alias := range s.Names {
			out = append(out, alias.BoundName())
		}

	case *SFor:
		out = TargetNames(s.Target, out)
		out = appendDefinedNamesInBody(s.Body, out)
		out = appendDefinedNamesInBody(s.Orelse, out)

	case *SWhile:
		out = appendDefinedNamesInBody(s.Body, out)
		out = appendDefinedNamesInBody(s.Orelse, out)

	case *SIf:
		out = appendDefinedNamesInBody(s.Body, out)
		out = appendDefinedNamesInBody(s.Orelse, out)

	case *SWith:
		for _, item := range s.Items {
			if item.Vars != nil {
				out = TargetNames(*item.Vars, out)
			}
		}
		out = appendDefinedNamesInBody(s.Body, out)

	case *STry:
		out = appendDefinedNamesInBody(s.Body, out)
		for _, handler := range s.Handlers {
			out = appendDefinedNamesInBody(handler.Body, out)
		}
		out = appendDefinedNamesInBody(s.Orelse, out)
		out = appendDefinedNamesInBody(s.Finally, out)
	}
	return out
}

func appendDefinedNamesInBody(body []Stmt, out []string) []string {
	for _, stmt := range body {
		out = appendDefinedNames(stmt, out)
	}
	return out
}

func dedupSorted(names []string) []string {
	result := names[:0]
	for i, name := range names {
		if i == 0 || names[i-1] != name {
			result = append(result, name)
		}
	}
	return result
}

// TopLevelName returns the first component of a dotted name.
func TopLevelName(dotted string) string {
	for i := 0; i < len(dotted); i++ {
		if dotted[i] == '.' {
			return dotted[:i]
		}
	}
	return dotted
}

// IsDocstring reports whether the statement is a bare string literal.
func IsDocstring(stmt Stmt) bool {
	if expr, ok := stmt.Data.(*SExpr); ok {
		_, isString := expr.Value.Data.(*EString)
		return isString
	}
	return false
}

// StringValue returns the value of a plain string literal expression.
func StringValue(expr Expr) (string, bool) {
	if str, ok := expr.Data.(*EString); ok {
		return str.Value, true
	}
	return "", false
}

// DunderAll describes the module's "__all__" assignment if one exists.
type DunderAll struct {
	Names []string

	// True when "__all__" exists but its value is not a static list/tuple of
	// string literals. Dead-symbol removal must be disabled for the module.
	IsDynamic bool
}

// FindDunderAll scans the top level for an "__all__" assignment.
func FindDunderAll(body []Stmt) *DunderAll {
	for _, stmt := range body {
		assign, ok := stmt.Data.(*SAssign)
		if !ok || len(assign.Targets) != 1 {
			continue
		}
		name, ok := assign.Targets[0].Data.(*EName)
		if !ok || name.Name != "__all__" {
			continue
		}

		var items []Expr
		switch value := assign.Value.Data.(type) {
		case *EList:
			items = value.Items
		case *ETuple:
			items = value.Items
		default:
			return &DunderAll{IsDynamic: true}
		}

		all := &DunderAll{}
		for _, item := range items {
			str, ok := StringValue(item)
			if !ok {
				return &DunderAll{IsDynamic: true}
			}
			all.Names = append(all.Names, str)
		}
		return all
	}
	return nil
}
