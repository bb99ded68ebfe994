package codegen

// Init-function construction for wrapped modules. The module's top level
// becomes the body of a guarded function taking the namespace object as its
// single parameter; every module-scope binding is mirrored onto that object
// so importers see the usual attribute surface.

import (
	"github.com/cribo/cribo/internal/analysis"
	"github.com/cribo/cribo/internal/astbuild"
	"github.com/cribo/cribo/internal/bundleplan"
	"github.com/cribo/cribo/internal/depgraph"
	"github.com/cribo/cribo/internal/py_ast"
	"github.com/cribo/cribo/internal/resolver"
)

const selfParam = "self"

func (g *generator) buildInitFunc(id resolver.ModuleId) py_ast.Stmt {
	info := g.graph.Modules[id]
	meta := g.plan.ModuleMetadata[id]
	b := g.b

	self := func() py_ast.Expr { return b.Name(selfParam) }
	returnSelf := func() py_ast.Stmt {
		value := self()
		return b.Return(&value)
	}

	// Re-entry guard: finished modules return immediately, and so do
	// modules currently mid-init further up the call stack.
	body := []py_ast.Stmt{
		b.If(b.Attr(self(), "__initialized__"), []py_ast.Stmt{returnSelf()}, nil),
		b.If(b.Attr(self(), "__initializing__"), []py_ast.Stmt{returnSelf()}, nil),
		b.Assign(b.Attr(self(), "__initializing__"), b.Bool(true)),
	}

	var deferred []deferredImport
	for _, item := range info.Items {
		if !item.IsImport {
			continue
		}
		key := analysis.ModuleItem{Module: id, Item: item.Id}
		if g.plan.ImportRewrites[key].Action == bundleplan.DeferToFunction {
			deferred = append(deferred, deferredImport{item: item, bound: boundImportNames(item)})
		}
	}

	// Names any function declares global live on the namespace object for
	// the whole module, so module-scope reads and writes see mutations.
	lifted := make(map[string]bool)
	for _, item := range info.Items {
		if item.IsImport || !g.analysis.IsLive(id, item.Id) {
			continue
		}
		globalDecls([]py_ast.Stmt{item.Stmt}, false, lifted)
	}

	for _, item := range info.Items {
		if !g.analysis.IsLive(id, item.Id) {
			continue
		}
		if item.IsImport {
			body = append(body, g.initImportItem(id, item)...)
			continue
		}
		if py_ast.IsDocstring(item.Stmt) {
			continue
		}
		if _, isDecl := item.Stmt.Data.(*py_ast.SGlobal); isDecl {
			// A global statement at module scope is a no-op
			continue
		}

		cloned := b.CloneStmt(item.Stmt)
		g.liftGlobals(&cloned, lifted)
		g.lowerNestedImports(id, &cloned, deferred)
		body = append(body, cloned)
		for _, name := range item.Defines {
			if lifted[name] && !isDefStmt(item.Stmt) {
				// The lifted assignment already went through self
				continue
			}
			body = append(body, b.Assign(b.Attr(self(), name), b.Name(name)))
		}
	}

	body = append(body,
		b.Assign(b.Attr(self(), "__initialized__"), b.Bool(true)),
		b.Assign(b.Attr(self(), "__initializing__"), b.Bool(false)),
		returnSelf(),
	)

	return b.FunctionDef(meta.InitFunc, []py_ast.Param{astbuild.Param(selfParam)}, body)
}

// initImportItem lowers an import inside an init body and mirrors the names
// it binds onto the namespace object.
func (g *generator) initImportItem(id resolver.ModuleId, item depgraph.Item) []py_ast.Stmt {
	key := analysis.ModuleItem{Module: id, Item: item.Id}
	rewrite := g.plan.ImportRewrites[key]
	out := g.rewriteImport(id, item, rewrite, selfParam)

	b := g.b
	export := func(bound string, value py_ast.Expr) {
		out = append(out, b.Assign(b.Attr(b.Name(selfParam), bound), value))
	}

	switch rewrite.Action {
	case bundleplan.PreserveImport:
		// The import executed inside the function; its bindings are locals
		dead := make(map[string]bool, len(rewrite.DeadNames))
		for _, name := range rewrite.DeadNames {
			dead[name] = true
		}
		for _, name := range boundImportNames(item) {
			if !dead[name] {
				export(name, b.Name(name))
			}
		}

	case bundleplan.DropImport:
		if item.IsFuture {
			break
		}
		for _, ref := range item.Imports {
			switch {
			case ref.FirstParty || len(ref.Submodules) > 0:
				for _, symbol := range ref.Symbols {
					if symbol.Name == "*" {
						continue
					}
					if target, isSub := ref.Submodules[symbol.Name]; isSub {
						if sub := g.plan.ModuleMetadata[target]; sub.NeedsInitWrapper {
							export(symbol.BoundName(), b.Name(sub.NamespaceVar))
						}
						continue
					}
					export(symbol.BoundName(), b.Name(g.finalName(ref.Target, symbol.Name)))
				}

			default:
				// Hoisted stdlib or third-party: the bundle-scope binding
				// carries the imported module or symbols
				if len(ref.Symbols) == 0 && !ref.IsWildcard {
					bound := ref.Alias
					if bound == "" {
						bound = py_ast.TopLevelName(ref.Raw)
					}
					export(bound, b.Name(bound))
					continue
				}
				for _, symbol := range ref.Symbols {
					if symbol.Name != "*" {
						export(symbol.BoundName(), b.Name(symbol.BoundName()))
					}
				}
			}
		}

	case bundleplan.BindNamespace:
		for _, ref := range item.Imports {
			if !ref.FirstParty && len(ref.Submodules) == 0 {
				continue
			}
			meta := g.plan.ModuleMetadata[ref.Target]
			switch ref.Type {
			case depgraph.DirectImport:
				top := py_ast.TopLevelName(ref.Absolute)
				if topId, ok := g.res.Lookup(top); ok {
					if topMeta := g.plan.ModuleMetadata[topId]; topMeta.NeedsInitWrapper {
						export(top, b.Name(topMeta.NamespaceVar))
					}
				}
			case depgraph.AliasedImport:
				export(ref.Alias, b.Name(meta.NamespaceVar))
			default:
				for _, symbol := range ref.Symbols {
					if symbol.Name == "*" {
						continue
					}
					if target, isSub := ref.Submodules[symbol.Name]; isSub {
						if sub := g.plan.ModuleMetadata[target]; sub.NeedsInitWrapper {
							export(symbol.BoundName(), b.Name(sub.NamespaceVar))
						}
						continue
					}
					export(symbol.BoundName(), b.Attr(b.Name(meta.NamespaceVar), symbol.Name))
				}
			}
		}
	}
	return out
}

// liftGlobals substitutes lifted names throughout one cloned statement:
// module-scope reads and writes, and uses inside functions declaring the
// name global, all become attributes of the namespace object. The global
// declarations themselves disappear afterwards.
func (g *generator) liftGlobals(stmt *py_ast.Stmt, lifted map[string]bool) {
	if len(lifted) == 0 {
		return
	}
	b := g.b
	one := []py_ast.Stmt{*stmt}
	rewriteNames(one, func(name string) (py_ast.Expr, bool) {
		if lifted[name] {
			return b.Attr(b.Name(selfParam), name), true
		}
		return py_ast.Expr{}, false
	})
	one = stripGlobalDecls(one)
	*stmt = one[0]
}

// isDefStmt reports whether a statement binds its name through a def or
// class header, which the lifted substitution leaves untouched.
func isDefStmt(stmt py_ast.Stmt) bool {
	switch stmt.Data.(type) {
	case *py_ast.SFunctionDef, *py_ast.SClassDef:
		return true
	}
	return false
}

// globalDecls collects names declared global inside function bodies, at any
// nesting depth. Module-scope declarations bind nothing and are skipped.
func globalDecls(stmts []py_ast.Stmt, inFunction bool, out map[string]bool) {
	for _, stmt := range stmts {
		switch s := stmt.Data.(type) {
		case *py_ast.SGlobal:
			if inFunction {
				for _, name := range s.Names {
					out[name] = true
				}
			}
		case *py_ast.SFunctionDef:
			globalDecls(s.Body, true, out)
		case *py_ast.SClassDef:
			globalDecls(s.Body, inFunction, out)
		case *py_ast.SIf:
			globalDecls(s.Body, inFunction, out)
			globalDecls(s.Orelse, inFunction, out)
		case *py_ast.SFor:
			globalDecls(s.Body, inFunction, out)
			globalDecls(s.Orelse, inFunction, out)
		case *py_ast.SWhile:
			globalDecls(s.Body, inFunction, out)
			globalDecls(s.Orelse, inFunction, out)
		case *py_ast.SWith:
			globalDecls(s.Body, inFunction, out)
		case *py_ast.STry:
			globalDecls(s.Body, inFunction, out)
			for _, handler := range s.Handlers {
				globalDecls(handler.Body, inFunction, out)
			}
			globalDecls(s.Orelse, inFunction, out)
			globalDecls(s.Finally, inFunction, out)
		}
	}
}

// stripGlobalDecls drops global statements from cloned bodies after the
// lifted substitution ran.
func stripGlobalDecls(stmts []py_ast.Stmt) []py_ast.Stmt {
	out := stmts[:0]
	for _, stmt := range stmts {
		switch s := stmt.Data.(type) {
		case *py_ast.SGlobal:
			continue
		case *py_ast.SFunctionDef:
			s.Body = stripGlobalDecls(s.Body)
		case *py_ast.SClassDef:
			s.Body = stripGlobalDecls(s.Body)
		case *py_ast.SIf:
			s.Body = stripGlobalDecls(s.Body)
			s.Orelse = stripGlobalDecls(s.Orelse)
		case *py_ast.SFor:
			s.Body = stripGlobalDecls(s.Body)
			s.Orelse = stripGlobalDecls(s.Orelse)
		case *py_ast.SWhile:
			s.Body = stripGlobalDecls(s.Body)
			s.Orelse = stripGlobalDecls(s.Orelse)
		case *py_ast.SWith:
			s.Body = stripGlobalDecls(s.Body)
		case *py_ast.STry:
			s.Body = stripGlobalDecls(s.Body)
			for i := range s.Handlers {
				s.Handlers[i].Body = stripGlobalDecls(s.Handlers[i].Body)
			}
			s.Orelse = stripGlobalDecls(s.Orelse)
			s.Finally = stripGlobalDecls(s.Finally)
		}
		out = append(out, stmt)
	}
	return out
}
