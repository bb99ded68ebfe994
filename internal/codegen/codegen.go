package codegen

// Final assembly. The generator consumes the plan and emits one module body
// in a fixed order: future imports, hoisted imports, namespace objects, init
// functions, module code dependencies-first, namespace attachments, and the
// entry module's own statements last.

import (
	"github.com/pkg/errors"

	"github.com/cribo/cribo/internal/analysis"
	"github.com/cribo/cribo/internal/astbuild"
	"github.com/cribo/cribo/internal/bundleplan"
	"github.com/cribo/cribo/internal/depgraph"
	"github.com/cribo/cribo/internal/logger"
	"github.com/cribo/cribo/internal/py_ast"
	"github.com/cribo/cribo/internal/resolver"
	"github.com/cribo/cribo/internal/xform"
)

type generator struct {
	plan     *bundleplan.Plan
	analysis *analysis.Analysis
	graph    *depgraph.Graph
	res      *resolver.Resolver
	log      logger.Log
	b        astbuild.Builder
}

// Generate assembles the bundled module body. Unresolvable cycles abort with
// an error after logging each one.
func Generate(
	result *analysis.Analysis,
	plan *bundleplan.Plan,
	res *resolver.Resolver,
	log logger.Log,
	ctx *xform.Context,
) ([]py_ast.Stmt, error) {
	if len(plan.FatalCycles) > 0 {
		names := func(id resolver.ModuleId) string { return res.CanonicalName(id) }
		for i := range plan.FatalCycles {
			cycle := &plan.FatalCycles[i]
			msg := "unresolvable circular dependency: " + cycle.Path(names)
			if cycle.Strategy.Reason != "" {
				msg += " (" + cycle.Strategy.Reason + ")"
			}
			log.AddError(nil, logger.SyntheticLoc, msg)
		}
		return nil, errors.Errorf("bundling failed: %d unresolvable cycle(s)", len(plan.FatalCycles))
	}

	g := &generator{
		plan:     plan,
		analysis: result,
		graph:    result.Graph,
		res:      res,
		log:      log,
		b:        astbuild.New(ctx),
	}

	var out []py_ast.Stmt
	out = append(out, g.emitFutureImports()...)
	out = append(out, g.emitHoistedImports()...)
	out = append(out, g.emitNamespaceCreations()...)
	for _, creation := range plan.NamespaceCreations {
		if id, ok := res.Lookup(creation.DottedName); ok {
			out = append(out, g.buildInitFunc(id))
		}
	}
	out = append(out, g.emitModuleCode()...)
	out = append(out, g.emitNamespacePopulations()...)
	out = append(out, g.emitModule(plan.Entry)...)

	return reorderForwardRefs(out), nil
}

func (g *generator) emitFutureImports() []py_ast.Stmt {
	if len(g.plan.FutureImports) == 0 {
		return nil
	}
	aliases := make([]py_ast.ImportAlias, 0, len(g.plan.FutureImports))
	for _, name := range g.plan.FutureImports {
		aliases = append(aliases, astbuild.Alias(name, ""))
	}
	return []py_ast.Stmt{g.b.ImportFrom("__future__", 0, aliases)}
}

// emitHoistedImports prints the deduplicated stdlib and third-party imports,
// merging consecutive from-imports of the same module into one statement.
func (g *generator) emitHoistedImports() []py_ast.Stmt {
	var out []py_ast.Stmt
	typesSeen := false

	hoisted := g.plan.HoistedImports
	for i := 0; i < len(hoisted); {
		h := hoisted[i]
		if h.Symbol == "" {
			if h.Module == "types" && h.Alias == "" {
				typesSeen = true
			}
			out = append(out, g.b.Import(h.Module, h.Alias))
			i++
			continue
		}
		var aliases []py_ast.ImportAlias
		j := i
		for ; j < len(hoisted) && hoisted[j].Module == h.Module && hoisted[j].Symbol != ""; j++ {
			aliases = append(aliases, astbuild.Alias(hoisted[j].Symbol, hoisted[j].Alias))
		}
		out = append(out, g.b.ImportFrom(h.Module, 0, aliases))
		i = j
	}

	// Namespace objects need types.SimpleNamespace
	if len(g.plan.NamespaceCreations) > 0 && !typesSeen {
		out = append(out, g.b.Import("types", ""))
	}
	return out
}

func (g *generator) emitNamespaceCreations() []py_ast.Stmt {
	var out []py_ast.Stmt
	for _, creation := range g.plan.NamespaceCreations {
		keywords := []py_ast.Keyword{
			astbuild.Keyword("__name__", g.b.Str(creation.DottedName)),
			astbuild.Keyword("__initializing__", g.b.Bool(false)),
			astbuild.Keyword("__initialized__", g.b.Bool(false)),
		}
		if creation.IsPackage {
			keywords = append(keywords, astbuild.Keyword("__path__", g.b.Expr(&py_ast.EList{})))
		}
		out = append(out, g.b.AssignName(creation.Var, g.b.SimpleNamespace(keywords)))
	}
	return out
}

// emitModuleCode walks modules dependencies-first, inlining code. Wrapped
// modules contribute nothing here; their init functions run from the
// rewritten import sites, so observable side effects keep the original
// execution order.
func (g *generator) emitModuleCode() []py_ast.Stmt {
	var out []py_ast.Stmt
	for _, id := range g.graph.TopologicalOrder() {
		if id == g.plan.Entry || !g.analysis.IsModuleLive(id) {
			continue
		}
		if g.plan.IsWrapped(id) {
			continue
		}
		out = append(out, g.emitModule(id)...)
	}
	return out
}

func (g *generator) emitNamespacePopulations() []py_ast.Stmt {
	var out []py_ast.Stmt
	for _, pop := range g.plan.NamespacePopulations {
		out = append(out, g.b.Assign(
			g.b.Attr(g.b.Name(pop.Var), pop.Attribute),
			g.b.Name(pop.Symbol),
		))
	}
	return out
}

// emitModule lowers one inlined module (or the entry) to bundle-scope
// statements: imports rewritten, renames applied, deferred imports pushed
// into the functions that need them.
func (g *generator) emitModule(id resolver.ModuleId) []py_ast.Stmt {
	info := g.graph.Modules[id]
	renames := g.plan.SymbolRenames[id]
	isEntry := id == g.plan.Entry

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

	var out []py_ast.Stmt
	for _, item := range info.Items {
		if !g.analysis.IsLive(id, item.Id) {
			continue
		}
		if item.IsImport {
			key := analysis.ModuleItem{Module: id, Item: item.Id}
			out = append(out, g.rewriteImport(id, item, g.plan.ImportRewrites[key], "")...)
			continue
		}
		if !isEntry && py_ast.IsDocstring(item.Stmt) {
			continue
		}

		cloned := g.b.CloneStmt(item.Stmt)
		if len(renames) > 0 {
			single := []py_ast.Stmt{cloned}
			rewriteNames(single, renameOnly(g.b, renames))
			cloned = single[0]
		}
		g.lowerNestedImports(id, &cloned, deferred)
		out = append(out, cloned)
	}
	return out
}

// lowerNestedImports rewrites first-party imports inside function bodies and
// inserts deferred imports into functions that read their bindings.
func (g *generator) lowerNestedImports(id resolver.ModuleId, stmt *py_ast.Stmt, deferred []deferredImport) {
	switch s := stmt.Data.(type) {
	case *py_ast.SFunctionDef:
		s.Body = g.lowerBodyImports(id, s.Body)
		s.Body = g.prependDeferred(*stmt, s.Body, deferred)
	case *py_ast.SClassDef:
		for i := range s.Body {
			g.lowerNestedImports(id, &s.Body[i], deferred)
		}
	}
}

// prependDeferred copies a deferred import's bindings into a function whose
// free names include one of the names the import bound.
func (g *generator) prependDeferred(fnStmt py_ast.Stmt, body []py_ast.Stmt, deferred []deferredImport) []py_ast.Stmt {
	if len(deferred) == 0 {
		return body
	}
	free := make(map[string]bool)
	for _, name := range py_ast.FreeReads(fnStmt) {
		free[name] = true
	}
	var inserted []py_ast.Stmt
	for _, d := range deferred {
		for _, name := range d.bound {
			if free[name] {
				inserted = append(inserted, g.lowerDeferred(d.item)...)
				break
			}
		}
	}
	if len(inserted) == 0 {
		return body
	}
	return append(inserted, body...)
}

// lowerDeferred produces the in-function form of a deferred import.
func (g *generator) lowerDeferred(item depgraph.Item) []py_ast.Stmt {
	for _, ref := range item.Imports {
		if ref.FirstParty && g.plan.IsWrapped(ref.Target) {
			return g.bindNamespaces(item)
		}
	}
	return g.bindInlinedSymbols(item)
}

// lowerBodyImports replaces first-party import statements inside a function
// body. Stdlib and third-party imports keep working verbatim; bundled
// modules no longer exist as importable files, so their imports become
// namespace bindings or alias assignments.
func (g *generator) lowerBodyImports(id resolver.ModuleId, body []py_ast.Stmt) []py_ast.Stmt {
	info := g.graph.Modules[id]
	out := make([]py_ast.Stmt, 0, len(body))
	for i := range body {
		stmt := body[i]
		if lowered, ok := g.lowerImportStmt(info, stmt); ok {
			out = append(out, lowered...)
			continue
		}

		switch s := stmt.Data.(type) {
		case *py_ast.SFunctionDef:
			s.Body = g.lowerBodyImports(id, s.Body)
		case *py_ast.SClassDef:
			for j := range s.Body {
				if fn, ok := s.Body[j].Data.(*py_ast.SFunctionDef); ok {
					fn.Body = g.lowerBodyImports(id, fn.Body)
				}
			}
		case *py_ast.SIf:
			s.Body = g.lowerBodyImports(id, s.Body)
			s.Orelse = g.lowerBodyImports(id, s.Orelse)
		case *py_ast.SFor:
			s.Body = g.lowerBodyImports(id, s.Body)
			s.Orelse = g.lowerBodyImports(id, s.Orelse)
		case *py_ast.SWhile:
			s.Body = g.lowerBodyImports(id, s.Body)
			s.Orelse = g.lowerBodyImports(id, s.Orelse)
		case *py_ast.SWith:
			s.Body = g.lowerBodyImports(id, s.Body)
		case *py_ast.STry:
			s.Body = g.lowerBodyImports(id, s.Body)
			for j := range s.Handlers {
				s.Handlers[j].Body = g.lowerBodyImports(id, s.Handlers[j].Body)
			}
			s.Orelse = g.lowerBodyImports(id, s.Orelse)
			s.Finally = g.lowerBodyImports(id, s.Finally)
		}
		out = append(out, stmt)
	}
	return out
}

// lowerImportStmt lowers a single function-scoped import when it targets
// first-party modules. Returns false when the statement is not an import or
// only touches external modules.
func (g *generator) lowerImportStmt(info *depgraph.ModuleInfo, stmt py_ast.Stmt) ([]py_ast.Stmt, bool) {
	switch s := stmt.Data.(type) {
	case *py_ast.SImport:
		var out []py_ast.Stmt
		anyFirstParty := false
		for _, alias := range s.Names {
			target, ok := g.res.Resolve(alias.Name, info.Name, info.IsPackage, 0)
			if !ok {
				out = append(out, g.b.Import(alias.Name, alias.Asname))
				continue
			}
			anyFirstParty = true
			meta := g.plan.ModuleMetadata[target]
			if meta.NeedsInitWrapper {
				out = append(out, g.initCalls(target)...)
				if bound := alias.BoundName(); bound != meta.NamespaceVar {
					out = append(out, g.b.AssignName(bound, g.b.Name(meta.NamespaceVar)))
				}
			}
		}
		if !anyFirstParty {
			return nil, false
		}
		return out, true

	case *py_ast.SImportFrom:
		target, ok := g.res.Resolve(s.Module, info.Name, info.IsPackage, s.Level)
		if !ok {
			return nil, false
		}
		var out []py_ast.Stmt
		meta := g.plan.ModuleMetadata[target]
		if meta.NeedsInitWrapper {
			out = append(out, g.initCalls(target)...)
		}
		for _, alias := range s.Names {
			if alias.Name == "*" {
				continue
			}
			absolute, _ := g.res.AbsoluteName(s.Module, info.Name, info.IsPackage, s.Level)
			if sub, ok := g.res.Lookup(absolute + "." + alias.Name); ok {
				if subMeta := g.plan.ModuleMetadata[sub]; subMeta.NeedsInitWrapper {
					out = append(out, g.initCalls(sub)...)
					if bound := alias.BoundName(); bound != subMeta.NamespaceVar {
						out = append(out, g.b.AssignName(bound, g.b.Name(subMeta.NamespaceVar)))
					}
					continue
				}
			}
			if meta.NeedsInitWrapper {
				out = append(out, g.b.AssignName(
					alias.BoundName(),
					g.b.Attr(g.b.Name(meta.NamespaceVar), alias.Name),
				))
				continue
			}
			defName := g.finalName(target, alias.Name)
			if bound := alias.BoundName(); bound != defName {
				out = append(out, g.b.AssignName(bound, g.b.Name(defName)))
			}
		}
		return out, true
	}
	return nil, false
}

// reorderForwardRefs lifts definitions that a class statement needs before it
// runs: a base class defined later in the buffer moves up. The pass repeats
// until stable, bounded by the statement count.
func reorderForwardRefs(stmts []py_ast.Stmt) []py_ast.Stmt {
	for pass := 0; pass < len(stmts); pass++ {
		defAt := make(map[string]int)
		for i, stmt := range stmts {
			for _, name := range simpleDefNames(stmt) {
				if _, seen := defAt[name]; !seen {
					defAt[name] = i
				}
			}
		}

		from, to := -1, -1
		for i, stmt := range stmts {
			class, ok := stmt.Data.(*py_ast.SClassDef)
			if !ok {
				continue
			}
			for _, base := range class.Bases {
				name, isName := base.Data.(*py_ast.EName)
				if !isName {
					continue
				}
				if j, defined := defAt[name.Name]; defined && j > i && movable(stmts[j]) {
					from, to = j, i
					break
				}
			}
			if from != -1 {
				break
			}
		}
		if from == -1 {
			return stmts
		}

		moved := stmts[from]
		copy(stmts[to+1:from+1], stmts[to:from])
		stmts[to] = moved
	}
	return stmts
}

func simpleDefNames(stmt py_ast.Stmt) []string {
	switch s := stmt.Data.(type) {
	case *py_ast.SClassDef:
		return []string{s.Name}
	case *py_ast.SFunctionDef:
		return []string{s.Name}
	case *py_ast.SAssign:
		var names []string
		for _, target := range s.Targets {
			if name, ok := target.Data.(*py_ast.EName); ok {
				names = append(names, name.Name)
			}
		}
		return names
	}
	return nil
}

// movable restricts reordering to self-contained definitions.
func movable(stmt py_ast.Stmt) bool {
	switch stmt.Data.(type) {
	case *py_ast.SClassDef, *py_ast.SFunctionDef, *py_ast.SAssign:
		return true
	}
	return false
}
