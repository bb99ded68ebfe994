package depgraph

// The dependency graph has two layers. The module graph records which modules
// import which, with one edge per import site. The per-module item graph
// records, for every top-level statement, the names it defines, the free
// names it reads, and a normalized import descriptor. Both layers are built
// in a single pass after parsing and are immutable afterwards.

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/cribo/cribo/internal/config"
	"github.com/cribo/cribo/internal/logger"
	"github.com/cribo/cribo/internal/py_ast"
	"github.com/cribo/cribo/internal/pystdlib"
	"github.com/cribo/cribo/internal/resolver"
	"github.com/cribo/cribo/internal/semantic"
)

// ItemId is the index of a top-level statement within its module.
type ItemId = uint32

type EdgeType uint8

const (
	DirectImport EdgeType = iota
	FromImport
	RelativeImport
	AliasedImport
)

var edgeTypeNames = []string{"DirectImport", "FromImport", "RelativeImport", "AliasedImport"}

func (t EdgeType) String() string {
	return edgeTypeNames[t]
}

type EdgeMetadata struct {
	Loc  logger.Loc
	Item ItemId

	// True when the import statement sits inside a function body
	FunctionScoped    bool
	EnclosingFunction string
}

type Edge struct {
	From resolver.ModuleId
	To   resolver.ModuleId
	Type EdgeType

	// The module name as written at the import site
	RawName string

	// Imported symbols for FromImport and RelativeImport edges
	Symbols []py_ast.ImportAlias

	// Leading dots for RelativeImport edges
	Level int

	// The alias for AliasedImport edges
	Alias string

	Meta EdgeMetadata
}

// ImportRef is one normalized import target inside an item. A single
// statement like "import a, b" yields two refs.
type ImportRef struct {
	// The module name as written, and the resolved absolute dotted name
	Raw      string
	Absolute string
	Level    int

	// Valid only when FirstParty is true
	Target     resolver.ModuleId
	FirstParty bool

	Type       EdgeType
	Alias      string
	Symbols    []py_ast.ImportAlias
	IsWildcard bool

	// Imported names that resolved to first-party submodules rather than
	// symbols, as in "from pkg import sub"
	Submodules map[string]resolver.ModuleId
}

type Item struct {
	Id   ItemId
	Stmt py_ast.Stmt

	// Names this item defines at module scope
	Defines []string

	// Free names this item reads, and the subset read at import time
	Reads           []string
	ImportTimeReads []string

	IsImport bool
	Imports  []ImportRef

	IsFuture    bool
	FutureNames []string

	HasSideEffects bool
}

type ModuleInfo struct {
	Id        resolver.ModuleId
	Name      string
	IsPackage bool
	Items     []Item

	FutureImports  []string
	HasSideEffects bool

	// nil when the module has no __all__
	DunderAll *py_ast.DunderAll

	// Imports found inside function bodies, for cycle classification
	FunctionImports []ImportRef
}

type Graph struct {
	Modules map[resolver.ModuleId]*ModuleInfo
	Edges   []Edge

	// Third-party imports seen anywhere, keyed by top-level package name
	ThirdParty map[string]bool

	outgoing map[resolver.ModuleId][]int
}

// OutgoingEdges returns the indices of edges leaving a module.
func (g *Graph) OutgoingEdges(id resolver.ModuleId) []Edge {
	edges := make([]Edge, 0, len(g.outgoing[id]))
	for _, index := range g.outgoing[id] {
		edges = append(edges, g.Edges[index])
	}
	return edges
}

// ModuleIds returns all discovered module ids in ascending order.
func (g *Graph) ModuleIds() []resolver.ModuleId {
	ids := make([]resolver.ModuleId, 0, len(g.Modules))
	for id := range g.Modules {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ThirdPartyNames returns the sorted top-level names of third-party imports.
func (g *Graph) ThirdPartyNames() []string {
	names := make([]string, 0, len(g.ThirdParty))
	for name := range g.ThirdParty {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

////////////////////////////////////////////////////////////////////////////////

type builder struct {
	res      *resolver.Resolver
	registry *semantic.Registry
	log      logger.Log
	options  *config.Options
	graph    *Graph
	queue    []resolver.ModuleId
	visited  map[resolver.ModuleId]bool
}

// Build discovers every module reachable from the entry and constructs both
// graph layers. The semantic registry is populated as a side effect.
func Build(
	res *resolver.Resolver,
	registry *semantic.Registry,
	log logger.Log,
	options *config.Options,
	entry resolver.ModuleId,
) (*Graph, error) {
	b := &builder{
		res:      res,
		registry: registry,
		log:      log,
		options:  options,
		graph: &Graph{
			Modules:    make(map[resolver.ModuleId]*ModuleInfo),
			ThirdParty: make(map[string]bool),
			outgoing:   make(map[resolver.ModuleId][]int),
		},
		visited: map[resolver.ModuleId]bool{},
	}

	b.enqueue(entry)
	for len(b.queue) > 0 {
		id := b.queue[0]
		b.queue = b.queue[1:]
		if err := b.scanModule(id); err != nil {
			return nil, err
		}
	}
	return b.graph, nil
}

func (b *builder) enqueue(id resolver.ModuleId) {
	if b.visited[id] {
		return
	}
	b.visited[id] = true
	b.queue = append(b.queue, id)

	// Importing pkg.sub executes pkg's __init__ first, so ancestor packages
	// are reachable too
	name := b.res.Module(id).Name
	for {
		dot := strings.LastIndexByte(name, '.')
		if dot == -1 {
			return
		}
		name = name[:dot]
		if parent, ok := b.res.Resolve(name, "", false, 0); ok {
			b.enqueue(parent)
		}
	}
}

func (b *builder) scanModule(id resolver.ModuleId) error {
	module := b.res.Module(id)
	ast, err := b.res.Parse(id)
	if err != nil {
		return errors.Wrapf(err, "scanning module %q", module.Name)
	}
	b.registry.Model(id, &ast)

	info := &ModuleInfo{
		Id:        id,
		Name:      module.Name,
		IsPackage: module.IsPackage,
		DunderAll: py_ast.FindDunderAll(ast.Body),
	}

	sideEffectOptions := py_ast.SideEffectOptions{
		PythonVersion: b.options.EffectivePythonVersion(),
		IsSafeImport: func(name string, level int) bool {
			return b.res.IsFirstParty(name, module.Name, module.IsPackage, level)
		},
	}

	for index, stmt := range ast.Body {
		item := Item{
			Id:              ItemId(index),
			Stmt:            stmt,
			Defines:         py_ast.DefinedNames(stmt),
			Reads:           py_ast.FreeReads(stmt),
			ImportTimeReads: py_ast.ImportTimeReads(stmt),
		}

		switch st := stmt.Data.(type) {
		case *py_ast.SImport:
			item.IsImport = true
			for _, alias := range st.Names {
				item.Imports = append(item.Imports, b.normalizeImport(
					info, alias.Name, 0, alias.Asname, nil, false))
			}

		case *py_ast.SImportFrom:
			item.IsImport = true
			if st.Level == 0 && st.Module == "__future__" {
				item.IsFuture = true
				for _, alias := range st.Names {
					item.FutureNames = append(item.FutureNames, alias.Name)
				}
			} else {
				item.Imports = append(item.Imports, b.normalizeImport(
					info, st.Module, st.Level, "", st.Names, st.IsWildcard))
			}
		}

		// First-party imports count as safe here because they are rewritten
		// away during bundling; whatever effects they guard are accounted for
		// in the target module itself.
		item.HasSideEffects = !py_ast.IsDocstring(stmt) &&
			py_ast.StmtHasSideEffects(stmt, sideEffectOptions)

		b.addEdges(info, &item)
		info.Items = append(info.Items, item)
		if item.HasSideEffects {
			info.HasSideEffects = true
		}
		info.FutureImports = append(info.FutureImports, item.FutureNames...)
	}

	// A second walk finds imports inside function bodies. Those do not make
	// the enclosing module side-effecting but they do create (deferred) edges
	// used by cycle classification.
	b.scanFunctionImports(info, ast.Body)

	b.warnDynamicImports(id, ast.Body)

	b.graph.Modules[id] = info
	return nil
}

func (b *builder) normalizeImport(
	info *ModuleInfo,
	raw string,
	level int,
	alias string,
	symbols []py_ast.ImportAlias,
	isWildcard bool,
) ImportRef {
	ref := ImportRef{
		Raw:        raw,
		Level:      level,
		Alias:      alias,
		Symbols:    symbols,
		IsWildcard: isWildcard,
	}

	switch {
	case level > 0:
		ref.Type = RelativeImport
	case symbols != nil || isWildcard:
		ref.Type = FromImport
	case alias != "":
		ref.Type = AliasedImport
	default:
		ref.Type = DirectImport
	}

	absolute, ok := b.res.AbsoluteName(raw, info.Name, info.IsPackage, level)
	if !ok {
		return ref
	}
	ref.Absolute = absolute

	// "from pkg import name" may name a submodule rather than a symbol
	if ref.Type == FromImport || ref.Type == RelativeImport {
		for _, symbol := range symbols {
			if target, ok := b.res.Resolve(absolute+"."+symbol.Name, info.Name, info.IsPackage, 0); ok {
				if ref.Submodules == nil {
					ref.Submodules = make(map[string]resolver.ModuleId)
				}
				ref.Submodules[symbol.Name] = target
				b.enqueue(target)
			}
		}
	}

	if target, ok := b.res.Resolve(raw, info.Name, info.IsPackage, level); ok {
		ref.Target = target
		ref.FirstParty = true
		b.enqueue(target)
		return ref
	}
	if len(ref.Submodules) > 0 {
		return ref
	}

	if !pystdlib.IsStdlib(absolute, b.options.EffectivePythonVersion()) {
		b.graph.ThirdParty[py_ast.TopLevelName(absolute)] = true
	}
	return ref
}

func (b *builder) addEdges(info *ModuleInfo, item *Item) {
	for _, ref := range item.Imports {
		for _, symbol := range sortedSubmoduleNames(ref.Submodules) {
			b.graph.outgoing[info.Id] = append(b.graph.outgoing[info.Id], len(b.graph.Edges))
			b.graph.Edges = append(b.graph.Edges, Edge{
				From:    info.Id,
				To:      ref.Submodules[symbol],
				Type:    ref.Type,
				RawName: ref.Raw,
				Level:   ref.Level,
				Symbols: []py_ast.ImportAlias{{Name: symbol}},
				Meta:    EdgeMetadata{Loc: item.Stmt.Loc, Item: item.Id},
			})
		}
		if !ref.FirstParty {
			continue
		}
		edge := Edge{
			From:    info.Id,
			To:      ref.Target,
			Type:    ref.Type,
			RawName: ref.Raw,
			Level:   ref.Level,
			Alias:   ref.Alias,
			Meta: EdgeMetadata{
				Loc:  item.Stmt.Loc,
				Item: item.Id,
			},
		}
		for _, symbol := range ref.Symbols {
			edge.Symbols = append(edge.Symbols, symbol)
		}
		b.graph.outgoing[info.Id] = append(b.graph.outgoing[info.Id], len(b.graph.Edges))
		b.graph.Edges = append(b.graph.Edges, edge)
	}
}

// scanFunctionImports walks function bodies looking only for import
// statements.
func (b *builder) scanFunctionImports(info *ModuleInfo, body []py_ast.Stmt) {
	for itemIndex := range body {
		stmt := body[itemIndex]
		fn, ok := stmt.Data.(*py_ast.SFunctionDef)
		if !ok {
			if class, isClass := stmt.Data.(*py_ast.SClassDef); isClass {
				b.scanMethodImports(info, ItemId(itemIndex), class)
			}
			continue
		}
		b.collectFunctionImports(info, ItemId(itemIndex), fn.Name, fn.Body)
	}
}

func (b *builder) scanMethodImports(info *ModuleInfo, item ItemId, class *py_ast.SClassDef) {
	for _, stmt := range class.Body {
		if fn, ok := stmt.Data.(*py_ast.SFunctionDef); ok {
			b.collectFunctionImports(info, item, class.Name+"."+fn.Name, fn.Body)
		}
	}
}

func (b *builder) collectFunctionImports(info *ModuleInfo, item ItemId, fnName string, body []py_ast.Stmt) {
	visitor := &importVisitor{}
	py_ast.VisitStmts(body, visitor.visit)

	for _, found := range visitor.found {
		switch st := found.Data.(type) {
		case *py_ast.SImport:
			for _, alias := range st.Names {
				ref := b.normalizeImport(info, alias.Name, 0, alias.Asname, nil, false)
				b.addFunctionEdge(info, item, fnName, found.Loc, ref)
			}
		case *py_ast.SImportFrom:
			if st.Level == 0 && st.Module == "__future__" {
				continue
			}
			ref := b.normalizeImport(info, st.Module, st.Level, "", st.Names, st.IsWildcard)
			b.addFunctionEdge(info, item, fnName, found.Loc, ref)
		}
	}
}

func (b *builder) addFunctionEdge(info *ModuleInfo, item ItemId, fnName string, loc logger.Loc, ref ImportRef) {
	info.FunctionImports = append(info.FunctionImports, ref)
	if !ref.FirstParty {
		return
	}
	edge := Edge{
		From:    info.Id,
		To:      ref.Target,
		Type:    ref.Type,
		RawName: ref.Raw,
		Level:   ref.Level,
		Alias:   ref.Alias,
		Meta: EdgeMetadata{
			Loc:               loc,
			Item:              item,
			FunctionScoped:    true,
			EnclosingFunction: fnName,
		},
	}
	for _, symbol := range ref.Symbols {
		edge.Symbols = append(edge.Symbols, symbol)
	}
	b.graph.outgoing[info.Id] = append(b.graph.outgoing[info.Id], len(b.graph.Edges))
	b.graph.Edges = append(b.graph.Edges, edge)
}

// warnDynamicImports flags __import__ and importlib.import_module calls whose
// module argument is not a constant string. Those cannot be resolved
// statically; the call is preserved in the output as-is.
func (b *builder) warnDynamicImports(id resolver.ModuleId, body []py_ast.Stmt) {
	source, err := b.res.Source(id)
	if err != nil {
		return
	}
	py_ast.VisitExprs(body, func(expr *py_ast.Expr) bool {
		call, ok := expr.Data.(*py_ast.ECall)
		if !ok || len(call.Args) == 0 {
			return true
		}
		if !isDynamicImportTarget(call.Target) {
			return true
		}
		if _, isConst := py_ast.StringValue(call.Args[0]); !isConst {
			b.log.AddWarning(&source, expr.Loc,
				"dynamic import with a non-constant module name cannot be bundled; the call is preserved as-is")
		}
		return true
	})
}

func isDynamicImportTarget(target py_ast.Expr) bool {
	switch data := target.Data.(type) {
	case *py_ast.EName:
		return data.Name == "__import__"
	case *py_ast.EAttribute:
		if base, ok := data.Value.Data.(*py_ast.EName); ok {
			return base.Name == "importlib" && data.Attr == "import_module"
		}
	}
	return false
}

type importVisitor struct {
	found []py_ast.Stmt
}

func (v *importVisitor) visit(stmt *py_ast.Stmt) bool {
	switch stmt.Data.(type) {
	case *py_ast.SImport, *py_ast.SImportFrom:
		v.found = append(v.found, *stmt)
		return false
	case *py_ast.SFunctionDef, *py_ast.SClassDef:
		// Descend so nested function imports are found too
		return true
	}
	return true
}

func sortedSubmoduleNames(submodules map[string]resolver.ModuleId) []string {
	names := make([]string, 0, len(submodules))
	for name := range submodules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
