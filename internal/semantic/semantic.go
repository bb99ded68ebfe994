package semantic

// The semantic model indexes the bindings of each scope in a module. The
// analysis stages mostly consume the global scope: which names a module
// defines, which of those are imports, and where each definition lives.

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cribo/cribo/internal/logger"
	"github.com/cribo/cribo/internal/py_ast"
	"github.com/cribo/cribo/internal/resolver"
)

type BindingKind uint8

const (
	ClassDefinition BindingKind = iota
	FunctionDefinition
	Assignment
	Import
	FromImport
	Builtin
)

var bindingKindNames = []string{
	"ClassDefinition",
	"FunctionDefinition",
	"Assignment",
	"Import",
	"FromImport",
	"Builtin",
}

func (kind BindingKind) String() string {
	return bindingKindNames[kind]
}

type BindingId = uint32

// GlobalBindingId names one global-scope binding across the whole program.
type GlobalBindingId struct {
	Module  resolver.ModuleId
	Binding BindingId
}

type Binding struct {
	Id    BindingId
	Name  string
	Kind  BindingKind
	Range logger.Range

	// The statement index of the defining top-level item. Negative for
	// bindings inside nested scopes.
	ItemIndex int

	// Import bindings record where the name comes from. ImportModule is the
	// dotted name as written, ImportLevel the count of leading relative dots,
	// and ImportSymbol the original name in the source module (FromImport
	// only; empty when the binding is the module object itself).
	ImportModule string
	ImportLevel  int
	ImportSymbol string
}

type ScopeKind uint8

const (
	GlobalScope ScopeKind = iota
	FunctionScope
	ClassScope
)

type Scope struct {
	Kind     ScopeKind
	Name     string // function or class name, empty for the global scope
	Bindings []Binding
	Children []*Scope

	byName map[string]BindingId
}

// Lookup returns the last binding of a name in this scope. Python semantics:
// a later definition shadows an earlier one.
func (s *Scope) Lookup(name string) (Binding, bool) {
	id, ok := s.byName[name]
	if !ok {
		return Binding{}, false
	}
	return s.Bindings[id], true
}

type Model struct {
	Module resolver.ModuleId
	Global *Scope
}

// Binding resolves a BindingId in the global scope.
func (m *Model) Binding(id BindingId) Binding {
	return m.Global.Bindings[id]
}

////////////////////////////////////////////////////////////////////////////////

const modelCacheSize = 256

// Registry builds and caches one model per module.
type Registry struct {
	cache *lru.Cache[resolver.ModuleId, *Model]
}

func NewRegistry() *Registry {
	cache, _ := lru.New[resolver.ModuleId, *Model](modelCacheSize)
	return &Registry{cache: cache}
}

func (r *Registry) Model(id resolver.ModuleId, module *py_ast.Module) *Model {
	if model, ok := r.cache.Get(id); ok {
		return model
	}
	model := Build(id, module)
	r.cache.Add(id, model)
	return model
}

// Build constructs the scoped binding model for one parsed module.
func Build(id resolver.ModuleId, module *py_ast.Module) *Model {
	global := newScope(GlobalScope, "")
	for index, stmt := range module.Body {
		bindStmt(global, stmt, index)
	}
	return &Model{Module: id, Global: global}
}

func newScope(kind ScopeKind, name string) *Scope {
	return &Scope{Kind: kind, Name: name, byName: make(map[string]BindingId)}
}

func (s *Scope) add(b Binding) {
	b.Id = BindingId(len(s.Bindings))
	s.Bindings = append(s.Bindings, b)
	s.byName[b.Name] = b.Id
}

func bindStmt(scope *Scope, stmt py_ast.Stmt, itemIndex int) {
	switch st := stmt.Data.(type) {
	case *py_ast.SFunctionDef:
		scope.add(Binding{
			Name:      st.Name,
			Kind:      FunctionDefinition,
			Range:     nameRange(st.NameLoc, st.Name),
			ItemIndex: itemIndex,
		})
		inner := newScope(FunctionScope, st.Name)
		for _, param := range st.Params {
			if param.Name != "" {
				inner.add(Binding{Name: param.Name, Kind: Assignment, Range: nameRange(param.NameLoc, param.Name), ItemIndex: -1})
			}
		}
		for _, child := range st.Body {
			bindStmt(inner, child, -1)
		}
		scope.Children = append(scope.Children, inner)

	case *py_ast.SClassDef:
		scope.add(Binding{
			Name:      st.Name,
			Kind:      ClassDefinition,
			Range:     nameRange(st.NameLoc, st.Name),
			ItemIndex: itemIndex,
		})
		inner := newScope(ClassScope, st.Name)
		for _, child := range st.Body {
			bindStmt(inner, child, -1)
		}
		scope.Children = append(scope.Children, inner)

	case *py_ast.SImport:
		for _, alias := range st.Names {
			scope.add(Binding{
				Name:         alias.BoundName(),
				Kind:         Import,
				Range:        nameRange(alias.NameLoc, alias.Name),
				ItemIndex:    itemIndex,
				ImportModule: alias.Name,
			})
		}

	case *py_ast.SImportFrom:
		if st.IsWildcard {
			return
		}
		for _, alias := range st.Names {
			scope.add(Binding{
				Name:         alias.BoundName(),
				Kind:         FromImport,
				Range:        nameRange(alias.NameLoc, alias.Name),
				ItemIndex:    itemIndex,
				ImportModule: st.Module,
				ImportLevel:  st.Level,
				ImportSymbol: alias.Name,
			})
		}

	case *py_ast.SAssign:
		for _, target := range st.Targets {
			for _, name := range py_ast.TargetNames(target, nil) {
				scope.add(Binding{
					Name:      name,
					Kind:      Assignment,
					Range:     nameRange(stmt.Loc, name),
					ItemIndex: itemIndex,
				})
			}
		}

	case *py_ast.SAnnAssign:
		if st.Value == nil {
			return
		}
		for _, name := range py_ast.TargetNames(st.Target, nil) {
			scope.add(Binding{
				Name:      name,
				Kind:      Assignment,
				Range:     nameRange(stmt.Loc, name),
				ItemIndex: itemIndex,
			})
		}

	case *py_ast.SAugAssign:
		for _, name := range py_ast.TargetNames(st.Target, nil) {
			scope.add(Binding{
				Name:      name,
				Kind:      Assignment,
				Range:     nameRange(stmt.Loc, name),
				ItemIndex: itemIndex,
			})
		}

	case *py_ast.SIf:
		bindNested(scope, st.Body, itemIndex)
		bindNested(scope, st.Orelse, itemIndex)

	case *py_ast.SFor:
		for _, name := range py_ast.TargetNames(st.Target, nil) {
			scope.add(Binding{Name: name, Kind: Assignment, Range: nameRange(stmt.Loc, name), ItemIndex: itemIndex})
		}
		bindNested(scope, st.Body, itemIndex)
		bindNested(scope, st.Orelse, itemIndex)

	case *py_ast.SWhile:
		bindNested(scope, st.Body, itemIndex)
		bindNested(scope, st.Orelse, itemIndex)

	case *py_ast.SWith:
		for _, item := range st.Items {
			if item.Vars != nil {
				for _, name := range py_ast.TargetNames(*item.Vars, nil) {
					scope.add(Binding{Name: name, Kind: Assignment, Range: nameRange(stmt.Loc, name), ItemIndex: itemIndex})
				}
			}
		}
		bindNested(scope, st.Body, itemIndex)

	case *py_ast.STry:
		bindNested(scope, st.Body, itemIndex)
		for _, handler := range st.Handlers {
			if handler.Name != "" {
				scope.add(Binding{Name: handler.Name, Kind: Assignment, Range: nameRange(handler.Loc, handler.Name), ItemIndex: itemIndex})
			}
			bindNested(scope, handler.Body, itemIndex)
		}
		bindNested(scope, st.Orelse, itemIndex)
		bindNested(scope, st.Finally, itemIndex)
	}
}

// Statements nested in control flow still bind at the enclosing scope.
func bindNested(scope *Scope, body []py_ast.Stmt, itemIndex int) {
	for _, stmt := range body {
		bindStmt(scope, stmt, itemIndex)
	}
}

func nameRange(loc logger.Loc, name string) logger.Range {
	if loc.IsSynthetic() {
		return logger.Range{Loc: loc}
	}
	return logger.Range{Loc: loc, Len: int32(len(name))}
}
