package codegen

// Import-site rewriting. Each surviving import statement is replaced by the
// statements that reproduce its bindings against the bundled program:
// nothing for inlined targets whose names survive unchanged, alias
// assignments for renamed symbols, namespace bindings plus an init call for
// wrapped targets, and attribute-copy loops for wildcards.

import (
	"github.com/cribo/cribo/internal/bundleplan"
	"github.com/cribo/cribo/internal/depgraph"
	"github.com/cribo/cribo/internal/py_ast"
	"github.com/cribo/cribo/internal/resolver"
)

// wildcardAttr is the loop variable for expanded wildcard imports. The name
// is reserved; user code never collides because it is dunder-free and
// cribo-prefixed.
const wildcardAttr = "__cribo_attr"

// rewriteImport lowers one import item. When selfName is non-empty the site
// sits inside an init function and exports go through that parameter.
func (g *generator) rewriteImport(
	module resolver.ModuleId,
	item depgraph.Item,
	rewrite bundleplan.ImportRewrite,
	selfName string,
) []py_ast.Stmt {
	switch rewrite.Action {
	case bundleplan.DropImport:
		return g.bindInlinedSymbols(item)

	case bundleplan.PreserveImport:
		return g.preserveImport(item, rewrite.DeadNames)

	case bundleplan.BindNamespace:
		return g.bindNamespaces(item)

	case bundleplan.ExpandWildcard:
		return g.expandWildcard(rewrite.Target, selfName)

	case bundleplan.DeferToFunction:
		// The statement disappears here; emitModule re-inserts it into the
		// functions that need it.
		return nil
	}
	return []py_ast.Stmt{item.Stmt}
}

// bindInlinedSymbols handles imports of inlined first-party modules. The
// definitions already exist at bundle scope, so only aliased or renamed
// bindings need an assignment.
func (g *generator) bindInlinedSymbols(item depgraph.Item) []py_ast.Stmt {
	var out []py_ast.Stmt
	for _, ref := range item.Imports {
		if !ref.FirstParty && len(ref.Submodules) == 0 {
			continue
		}
		for _, symbol := range ref.Symbols {
			if symbol.Name == "*" {
				continue
			}
			if target, isSub := ref.Submodules[symbol.Name]; isSub {
				out = append(out, g.bindSubmodule(symbol, target)...)
				continue
			}
			defName := g.finalName(ref.Target, symbol.Name)
			if bound := symbol.BoundName(); bound != defName {
				out = append(out, g.b.AssignName(bound, g.b.Name(defName)))
			}
		}
	}
	return out
}

// preserveImport keeps a statement in place, dropping names tree-shaking
// proved dead.
func (g *generator) preserveImport(item depgraph.Item, deadNames []string) []py_ast.Stmt {
	if len(deadNames) == 0 {
		return []py_ast.Stmt{g.b.CloneStmt(item.Stmt)}
	}
	dead := make(map[string]bool, len(deadNames))
	for _, name := range deadNames {
		dead[name] = true
	}
	cloned := g.b.CloneStmt(item.Stmt)
	from, ok := cloned.Data.(*py_ast.SImportFrom)
	if !ok {
		return []py_ast.Stmt{cloned}
	}
	kept := from.Names[:0]
	for _, alias := range from.Names {
		if !dead[alias.Name] {
			kept = append(kept, alias)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	from.Names = kept
	return []py_ast.Stmt{cloned}
}

// bindNamespaces lowers imports whose targets are wrapped modules: ensure
// the target is initialized, then bind the local names the original
// statement introduced.
func (g *generator) bindNamespaces(item depgraph.Item) []py_ast.Stmt {
	var out []py_ast.Stmt
	for _, ref := range item.Imports {
		if !ref.FirstParty && len(ref.Submodules) == 0 {
			continue
		}
		meta := g.plan.ModuleMetadata[ref.Target]

		if ref.FirstParty && meta.NeedsInitWrapper {
			out = append(out, g.initCalls(ref.Target)...)
		}

		switch ref.Type {
		case depgraph.DirectImport:
			// "import pkg.mod" binds the top name, which is the namespace
			// variable itself when the top package is wrapped
			top := py_ast.TopLevelName(ref.Absolute)
			if topId, ok := g.res.Lookup(top); ok {
				if topMeta := g.plan.ModuleMetadata[topId]; topMeta.NeedsInitWrapper && topMeta.NamespaceVar != top {
					out = append(out, g.b.AssignName(top, g.b.Name(topMeta.NamespaceVar)))
				}
			}

		case depgraph.AliasedImport:
			out = append(out, g.b.AssignName(ref.Alias, g.b.Name(meta.NamespaceVar)))

		case depgraph.FromImport, depgraph.RelativeImport:
			for _, symbol := range ref.Symbols {
				if symbol.Name == "*" {
					continue
				}
				if target, isSub := ref.Submodules[symbol.Name]; isSub {
					out = append(out, g.bindSubmodule(symbol, target)...)
					continue
				}
				out = append(out, g.b.AssignName(
					symbol.BoundName(),
					g.b.Attr(g.b.Name(meta.NamespaceVar), symbol.Name),
				))
			}
		}
	}
	return out
}

// bindSubmodule binds "from pkg import sub" when sub is itself a module.
func (g *generator) bindSubmodule(symbol py_ast.ImportAlias, target resolver.ModuleId) []py_ast.Stmt {
	meta := g.plan.ModuleMetadata[target]
	var out []py_ast.Stmt
	if meta.NeedsInitWrapper {
		out = append(out, g.initCalls(target)...)
		if bound := symbol.BoundName(); bound != meta.NamespaceVar {
			out = append(out, g.b.AssignName(bound, g.b.Name(meta.NamespaceVar)))
		}
	}
	return out
}

// initCall builds "__cribo_init_x(x)". The guard inside the init function
// makes repeated calls free.
func (g *generator) initCall(target resolver.ModuleId) py_ast.Stmt {
	meta := g.plan.ModuleMetadata[target]
	return g.b.ExprStmt(g.b.Call(g.b.Name(meta.InitFunc), g.b.Name(meta.NamespaceVar)))
}

// initCalls initializes a wrapped module at an import site. Wrapped parent
// packages run first, the way importing pkg.sub executes pkg before sub.
func (g *generator) initCalls(target resolver.ModuleId) []py_ast.Stmt {
	name := g.res.CanonicalName(target)
	var out []py_ast.Stmt
	for i := 0; i < len(name); i++ {
		if name[i] != '.' {
			continue
		}
		if parent, ok := g.res.Lookup(name[:i]); ok && g.plan.IsWrapped(parent) {
			out = append(out, g.initCall(parent))
		}
	}
	return append(out, g.initCall(target))
}

// expandWildcard lowers "from X import *" against a wrapped module. With a
// static __all__ on the source, each listed name binds directly; otherwise a
// dir() loop copies every public attribute.
func (g *generator) expandWildcard(source resolver.ModuleId, selfName string) []py_ast.Stmt {
	meta := g.plan.ModuleMetadata[source]
	info := g.graph.Modules[source]
	out := g.initCalls(source)

	if all := info.DunderAll; all != nil && !all.IsDynamic {
		for _, name := range all.Names {
			value := g.b.Attr(g.b.Name(meta.NamespaceVar), name)
			out = append(out, g.assignExported(name, value, selfName))
		}
		return out
	}

	// for __cribo_attr in dir(src):
	//     if not __cribo_attr.startswith('_'):
	//         <bind>
	bind := g.setDynamicAttr(meta.NamespaceVar, selfName)
	loop := g.b.For(
		g.b.Name(wildcardAttr),
		g.b.Call(g.b.Name("dir"), g.b.Name(meta.NamespaceVar)),
		[]py_ast.Stmt{g.b.If(
			g.b.Not(g.b.Call(g.b.Attr(g.b.Name(wildcardAttr), "startswith"), g.b.Str("_"))),
			[]py_ast.Stmt{bind},
			nil,
		)},
	)
	return append(out, loop)
}

// assignExported emits "name = value", and additionally "self.name = value"
// inside init functions so the namespace exposes the symbol.
func (g *generator) assignExported(name string, value py_ast.Expr, selfName string) py_ast.Stmt {
	if selfName != "" {
		return g.b.Stmt(&py_ast.SAssign{
			Targets: []py_ast.Expr{g.b.Name(name), g.b.Attr(g.b.Name(selfName), name)},
			Value:   value,
		})
	}
	return g.b.AssignName(name, value)
}

// setDynamicAttr builds the per-attribute binding inside the wildcard loop:
// setattr(self, a, getattr(src, a)) in init functions, a globals() store at
// bundle scope.
func (g *generator) setDynamicAttr(sourceVar string, selfName string) py_ast.Stmt {
	value := g.b.Call(g.b.Name("getattr"), g.b.Name(sourceVar), g.b.Name(wildcardAttr))
	if selfName != "" {
		return g.b.ExprStmt(g.b.Call(
			g.b.Name("setattr"), g.b.Name(selfName), g.b.Name(wildcardAttr), value,
		))
	}
	target := g.b.Expr(&py_ast.ESubscript{
		Value: g.b.Call(g.b.Name("globals")),
		Index: g.b.Name(wildcardAttr),
	})
	return g.b.Assign(target, value)
}

// finalName resolves a symbol to its bundle-scope name after renaming.
func (g *generator) finalName(module resolver.ModuleId, name string) string {
	if renamed, ok := g.plan.SymbolRenames[module][name]; ok {
		return renamed
	}
	return name
}

// deferredImportNeeds records a deferred import statement and the names it
// binds, for insertion into function bodies.
type deferredImport struct {
	item  depgraph.Item
	bound []string
}

func boundImportNames(item depgraph.Item) []string {
	var names []string
	for _, ref := range item.Imports {
		if len(ref.Symbols) == 0 && !ref.IsWildcard {
			if ref.Alias != "" {
				names = append(names, ref.Alias)
			} else {
				names = append(names, py_ast.TopLevelName(ref.Raw))
			}
			continue
		}
		for _, symbol := range ref.Symbols {
			if symbol.Name != "*" {
				names = append(names, symbol.BoundName())
			}
		}
	}
	return names
}
