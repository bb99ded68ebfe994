package bundleplan

// The planner turns analysis results into a declarative plan the code
// generator executes without further decisions. Every ordering the plan
// records is deterministic: modules sort by id, items by statement index,
// names lexically.

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cribo/cribo/internal/analysis"
	"github.com/cribo/cribo/internal/depgraph"
	"github.com/cribo/cribo/internal/logger"
	"github.com/cribo/cribo/internal/pystdlib"
	"github.com/cribo/cribo/internal/resolver"
	"github.com/cribo/cribo/internal/semantic"
)

type ImportAction uint8

const (
	// Leave the statement where it is
	PreserveImport ImportAction = iota

	// Drop the statement; hoisting or inlining made it redundant
	DropImport

	// Replace with namespace assignments against a wrapped module
	BindNamespace

	// Move into every function that reads the imported names
	DeferToFunction

	// Expand "from X import *" against a wrapped module into attribute
	// copies
	ExpandWildcard
)

var importActionNames = []string{
	"PreserveImport",
	"DropImport",
	"BindNamespace",
	"DeferToFunction",
	"ExpandWildcard",
}

func (a ImportAction) String() string {
	return importActionNames[a]
}

// ImportRewrite directs codegen at one original import site.
type ImportRewrite struct {
	Action ImportAction

	// The wrapped target for BindNamespace and ExpandWildcard
	Target resolver.ModuleId

	// Names to drop from the statement when the action preserves it
	DeadNames []string
}

type NamespaceCreation struct {
	Var        string
	DottedName string
	IsPackage  bool
}

type NamespacePopulation struct {
	Var       string
	Attribute string
	Symbol    string
}

// HoistedImport is one deduplicated stdlib or third-party import for the top
// of the bundle. Symbol is empty for plain "import X" forms.
type HoistedImport struct {
	Module string
	Symbol string
	Alias  string
}

type ModuleMeta struct {
	NeedsInitWrapper bool
	HasSideEffects   bool
	IsPackage        bool

	// Set only for wrapped modules
	NamespaceVar string
	InitFunc     string
}

type Plan struct {
	Entry resolver.ModuleId

	FutureImports        []string
	HoistedImports       []HoistedImport
	NamespaceCreations   []NamespaceCreation
	InlinedCode          []analysis.ModuleItem
	NamespacePopulations []NamespacePopulation
	ImportRewrites       map[analysis.ModuleItem]ImportRewrite
	SymbolRenames        map[resolver.ModuleId]map[string]string
	ModuleMetadata       map[resolver.ModuleId]ModuleMeta
	SymbolOrigins        map[semantic.GlobalBindingId]semantic.GlobalBindingId

	// Unresolvable cycles abort bundling before codegen
	FatalCycles []depgraph.Cycle
}

// IsWrapped reports whether a module initializes through a namespace object.
func (p *Plan) IsWrapped(id resolver.ModuleId) bool {
	return p.ModuleMetadata[id].NeedsInitWrapper
}

// SanitizeName turns a dotted module name into an identifier fragment.
func SanitizeName(dotted string) string {
	return strings.ReplaceAll(dotted, ".", "_")
}

// InitFuncName names the init function for a wrapped module.
func InitFuncName(dotted string) string {
	return "__cribo_init_" + SanitizeName(dotted)
}

type planner struct {
	analysis *analysis.Analysis
	graph    *depgraph.Graph
	res      *resolver.Resolver
	log      logger.Log
	version  uint16
	plan     *Plan
}

// Build produces the plan. Entry is never wrapped; its statements run last
// in original order.
func Build(
	result *analysis.Analysis,
	res *resolver.Resolver,
	log logger.Log,
	pythonVersion uint16,
	entry resolver.ModuleId,
) *Plan {
	p := &planner{
		analysis: result,
		graph:    result.Graph,
		res:      res,
		log:      log,
		version:  pythonVersion,
		plan: &Plan{
			Entry:          entry,
			ImportRewrites: make(map[analysis.ModuleItem]ImportRewrite),
			SymbolRenames:  make(map[resolver.ModuleId]map[string]string),
			ModuleMetadata: make(map[resolver.ModuleId]ModuleMeta),
			SymbolOrigins:  result.Origins,
		},
	}

	p.collectFatalCycles()
	p.classifyModules()
	p.assignRenames()
	p.collectFutureImports()
	p.collectHoistedImports()
	p.planImportRewrites()
	p.orderInlinedCode()
	p.orderNamespacePopulations()
	return p.plan
}

func (p *planner) collectFatalCycles() {
	for _, cycle := range p.analysis.Cycles {
		if cycle.Strategy.Kind == depgraph.Unresolvable {
			p.plan.FatalCycles = append(p.plan.FatalCycles, cycle)
		}
	}
}

// classifyModules decides wrapped versus inlined and reserves namespace
// variable names.
func (p *planner) classifyModules() {
	lazy := make(map[resolver.ModuleId]bool)
	for _, cycle := range p.analysis.Cycles {
		if cycle.Strategy.Kind != depgraph.LazyImport {
			continue
		}
		for _, member := range cycle.Members {
			lazy[member] = true
		}
	}

	namespaceBound := p.namespaceBoundModules()

	for _, id := range p.graph.ModuleIds() {
		if !p.analysis.IsModuleLive(id) {
			continue
		}
		info := p.graph.Modules[id]
		meta := ModuleMeta{
			HasSideEffects: info.HasSideEffects,
			IsPackage:      info.IsPackage,
		}
		wrapped := id != p.plan.Entry &&
			(info.HasSideEffects || namespaceBound[id] || lazy[id])
		if wrapped {
			meta.NeedsInitWrapper = true
			meta.NamespaceVar = SanitizeName(info.Name)
			meta.InitFunc = InitFuncName(info.Name)
		}
		p.plan.ModuleMetadata[id] = meta
	}

	// A wrapped submodule attaches to its parent package's namespace, so the
	// parent must be wrapped too. Propagate up until it settles.
	for changed := true; changed; {
		changed = false
		for _, id := range p.graph.ModuleIds() {
			meta, ok := p.plan.ModuleMetadata[id]
			if !ok || !meta.NeedsInitWrapper {
				continue
			}
			name := p.graph.Modules[id].Name
			dot := strings.LastIndexByte(name, '.')
			if dot == -1 {
				continue
			}
			parent, ok := p.res.Lookup(name[:dot])
			if !ok || parent == p.plan.Entry {
				continue
			}
			parentMeta, ok := p.plan.ModuleMetadata[parent]
			if !ok || parentMeta.NeedsInitWrapper {
				continue
			}
			parentInfo := p.graph.Modules[parent]
			parentMeta.NeedsInitWrapper = true
			parentMeta.NamespaceVar = SanitizeName(parentInfo.Name)
			parentMeta.InitFunc = InitFuncName(parentInfo.Name)
			p.plan.ModuleMetadata[parent] = parentMeta
			changed = true
		}
	}
}

// namespaceBoundModules finds modules bound as namespace objects: plain or
// aliased "import pkg.mod", and "from pkg import sub" naming a submodule.
func (p *planner) namespaceBoundModules() map[resolver.ModuleId]bool {
	bound := make(map[resolver.ModuleId]bool)
	mark := func(ref depgraph.ImportRef) {
		if ref.FirstParty && (ref.Type == depgraph.DirectImport || ref.Type == depgraph.AliasedImport) {
			bound[ref.Target] = true
			// "import pkg.mod" binds pkg and reaches mod through it
			if ref.Type == depgraph.DirectImport && strings.Contains(ref.Absolute, ".") {
				p.markAncestors(ref.Absolute, bound)
			}
		}
		for _, target := range ref.Submodules {
			bound[target] = true
		}
		// Wildcard imports observe the whole source namespace
		if ref.FirstParty && ref.IsWildcard {
			bound[ref.Target] = true
		}
	}
	for _, id := range p.graph.ModuleIds() {
		info := p.graph.Modules[id]
		for _, item := range info.Items {
			for _, ref := range item.Imports {
				mark(ref)
			}
		}
		// Function-scoped "import x" needs a namespace object at runtime too
		for _, ref := range info.FunctionImports {
			mark(ref)
		}
	}
	return bound
}

func (p *planner) markAncestors(dotted string, bound map[resolver.ModuleId]bool) {
	for {
		dot := strings.LastIndexByte(dotted, '.')
		if dot == -1 {
			return
		}
		dotted = dotted[:dot]
		if id, ok := p.res.Lookup(dotted); ok {
			bound[id] = true
		}
	}
}

// assignRenames gives each conflicting symbol instance a bundle-unique name.
// The policy is a total function of the sorted conflict set, so a rerun
// yields identical names. With exactly two instances the second gets a
// numeric suffix; with more, each non-first instance gets its module name.
// Candidates colliding with a name some module already defines bump the
// suffix until free.
func (p *planner) assignRenames() {
	names := make([]string, 0, len(p.analysis.Conflicts))
	for name := range p.analysis.Conflicts {
		names = append(names, name)
	}
	sort.Strings(names)

	// Every global an inlined module brings to bundle scope is off limits
	// as a rename target.
	taken := make(map[string]bool)
	for _, id := range p.graph.ModuleIds() {
		if !p.analysis.IsModuleLive(id) || p.plan.ModuleMetadata[id].NeedsInitWrapper {
			continue
		}
		for _, item := range p.graph.Modules[id].Items {
			for _, defined := range item.Defines {
				taken[defined] = true
			}
		}
	}

	for _, name := range names {
		entries := p.analysis.Conflicts[name]

		// One instance keeps the original name: the entry module's when it
		// participates, otherwise the first in module order.
		keeper := 0
		for i, entry := range entries {
			if entry.Binding.Module == p.plan.Entry {
				keeper = i
				break
			}
		}

		for i, entry := range entries {
			if i == keeper {
				continue
			}
			module := entry.Binding.Module
			// Wrapped modules expose globals as namespace attributes, so
			// their names never reach bundle scope
			if p.plan.ModuleMetadata[module].NeedsInitWrapper {
				continue
			}
			// Stage 5 tags every definition that must move; skip entries
			// it left alone
			if !p.analysis.NeedsRename(module, name) {
				continue
			}
			var unique string
			if len(entries) == 2 {
				for n := 2; ; n++ {
					unique = name + "_" + strconv.Itoa(n)
					if !taken[unique] {
						break
					}
				}
			} else {
				unique = name + "__" + SanitizeName(entry.ModuleName)
				for n := 2; taken[unique]; n++ {
					unique = name + "__" + SanitizeName(entry.ModuleName) + "_" + strconv.Itoa(n)
				}
			}
			taken[unique] = true
			renames := p.plan.SymbolRenames[module]
			if renames == nil {
				renames = make(map[string]string)
				p.plan.SymbolRenames[module] = renames
			}
			renames[name] = unique
		}
	}
}

func (p *planner) collectFutureImports() {
	seen := make(map[string]bool)
	for _, id := range p.graph.ModuleIds() {
		if !p.analysis.IsModuleLive(id) {
			continue
		}
		for _, name := range p.graph.Modules[id].FutureImports {
			if !seen[name] {
				seen[name] = true
				p.plan.FutureImports = append(p.plan.FutureImports, name)
			}
		}
	}
	sort.Strings(p.plan.FutureImports)
}

// collectHoistedImports unions the surviving stdlib and third-party imports
// of every live module, deduplicated by (module, symbol, alias). Relative
// imports and side-effecting stdlib modules stay at their original sites.
func (p *planner) collectHoistedImports() {
	seen := make(map[HoistedImport]bool)
	add := func(h HoistedImport) {
		if !seen[h] {
			seen[h] = true
			p.plan.HoistedImports = append(p.plan.HoistedImports, h)
		}
	}

	for _, id := range p.graph.ModuleIds() {
		if !p.analysis.IsModuleLive(id) {
			continue
		}
		info := p.graph.Modules[id]
		for _, item := range info.Items {
			if !item.IsImport || item.IsFuture || !p.analysis.IsLive(id, item.Id) {
				continue
			}
			dead := p.deadImportNames(analysis.ModuleItem{Module: id, Item: item.Id})
			for _, ref := range item.Imports {
				if ref.FirstParty || ref.Level > 0 || !p.hoistable(ref) {
					continue
				}
				if len(ref.Symbols) == 0 && !ref.IsWildcard {
					add(HoistedImport{Module: ref.Absolute, Alias: ref.Alias})
					continue
				}
				if ref.IsWildcard {
					// Safe-stdlib wildcard is kept verbatim
					add(HoistedImport{Module: ref.Absolute, Symbol: "*"})
					continue
				}
				// Stdlib from-imports detach only when stage 5 tagged them
				if pystdlib.IsStdlib(ref.Absolute, p.version) &&
					!p.analysis.HasTransformation(analysis.ModuleItem{Module: id, Item: item.Id}, analysis.StdlibImportRewrite) {
					continue
				}
				for _, symbol := range ref.Symbols {
					if dead[symbol.Name] {
						continue
					}
					add(HoistedImport{Module: ref.Absolute, Symbol: symbol.Name, Alias: symbol.Asname})
				}
			}
		}
	}

	// Hoisting detaches these imports from their source positions, so sort
	// them alphabetically for stable output
	sort.Slice(p.plan.HoistedImports, func(i, j int) bool {
		a, b := p.plan.HoistedImports[i], p.plan.HoistedImports[j]
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.Alias < b.Alias
	})
}

// hoistable covers side-effect-free stdlib plus all third-party modules.
// Side-effecting stdlib imports keep their source position.
func (p *planner) hoistable(ref depgraph.ImportRef) bool {
	if ref.Absolute == "" {
		return false
	}
	if pystdlib.IsStdlib(ref.Absolute, p.version) {
		return pystdlib.IsSideEffectFree(ref.Absolute)
	}
	if ref.IsWildcard {
		// A third-party wildcard is opaque; leave it in place
		return false
	}
	return true
}

func (p *planner) deadImportNames(key analysis.ModuleItem) map[string]bool {
	dead := make(map[string]bool)
	for _, tr := range p.analysis.Transformations[key] {
		switch tr.Kind {
		case analysis.PartialImportRemoval:
			for _, name := range tr.Names {
				dead[name] = true
			}
		case analysis.RemoveImport:
			if tr.Reason == analysis.RemoveUnused {
				for _, name := range tr.Names {
					dead[name] = true
				}
			}
		}
	}
	return dead
}

func (p *planner) planImportRewrites() {
	deferred := p.deferredItems()

	for _, id := range p.graph.ModuleIds() {
		if !p.analysis.IsModuleLive(id) {
			continue
		}
		info := p.graph.Modules[id]
		for _, item := range info.Items {
			if !item.IsImport || !p.analysis.IsLive(id, item.Id) {
				continue
			}
			key := analysis.ModuleItem{Module: id, Item: item.Id}
			p.plan.ImportRewrites[key] = p.rewriteFor(info, item, key, deferred)
		}
	}
}

func (p *planner) rewriteFor(
	info *depgraph.ModuleInfo,
	item depgraph.Item,
	key analysis.ModuleItem,
	deferred map[analysis.ModuleItem]bool,
) ImportRewrite {
	if item.IsFuture {
		return ImportRewrite{Action: DropImport}
	}
	if deferred[key] {
		return ImportRewrite{Action: DeferToFunction}
	}

	// One statement can carry several targets; the strongest action wins.
	// Namespace binding dominates dropping, dropping dominates preserving.
	rewrite := ImportRewrite{Action: PreserveImport}
	hoisted := true
	for _, ref := range item.Imports {
		switch {
		case ref.FirstParty && ref.IsWildcard && p.plan.IsWrapped(ref.Target):
			return ImportRewrite{Action: ExpandWildcard, Target: ref.Target}

		case ref.FirstParty && p.plan.IsWrapped(ref.Target):
			rewrite = ImportRewrite{Action: BindNamespace, Target: ref.Target}

		case len(ref.Submodules) > 0:
			// "from pkg import sub" binding wrapped submodules
			for _, target := range ref.Submodules {
				if p.plan.IsWrapped(target) {
					rewrite = ImportRewrite{Action: BindNamespace, Target: ref.Target}
				}
			}
			if ref.FirstParty && rewrite.Action == PreserveImport {
				rewrite = ImportRewrite{Action: DropImport}
			}

		case ref.FirstParty:
			if rewrite.Action == PreserveImport {
				rewrite = ImportRewrite{Action: DropImport}
			}

		case p.hoistable(ref) && ref.Level == 0:
			// Already at the top of the bundle

		default:
			hoisted = false
		}
	}

	if rewrite.Action == PreserveImport && hoisted && p.allThirdPartyOrStdlib(item) {
		rewrite.Action = DropImport
	}
	if rewrite.Action == PreserveImport {
		rewrite.DeadNames = sortedNames(p.deadImportNames(key))
	}
	return rewrite
}

func (p *planner) allThirdPartyOrStdlib(item depgraph.Item) bool {
	for _, ref := range item.Imports {
		if ref.FirstParty || ref.Level > 0 || !p.hoistable(ref) {
			return false
		}
	}
	return len(item.Imports) > 0
}

// deferredItems collects import items that move into function bodies to
// break resolvable cycles.
func (p *planner) deferredItems() map[analysis.ModuleItem]bool {
	deferred := make(map[analysis.ModuleItem]bool)
	for key, trs := range p.analysis.Transformations {
		for _, tr := range trs {
			if tr.Kind == analysis.CircularDepImportMove {
				deferred[key] = true
			}
		}
	}
	return deferred
}

// orderInlinedCode lists surviving items of inlined modules, dependencies
// first, entry excluded. Namespace creations come out of the same walk so
// wrapped modules appear in the identical deterministic order.
func (p *planner) orderInlinedCode() {
	for _, id := range p.graph.TopologicalOrder() {
		if id == p.plan.Entry || !p.analysis.IsModuleLive(id) {
			continue
		}
		info := p.graph.Modules[id]
		meta := p.plan.ModuleMetadata[id]
		if meta.NeedsInitWrapper {
			p.plan.NamespaceCreations = append(p.plan.NamespaceCreations, NamespaceCreation{
				Var:        meta.NamespaceVar,
				DottedName: info.Name,
				IsPackage:  info.IsPackage,
			})
			continue
		}
		for _, item := range info.Items {
			if p.analysis.IsLive(id, item.Id) {
				p.plan.InlinedCode = append(p.plan.InlinedCode, analysis.ModuleItem{Module: id, Item: item.Id})
			}
		}
	}
}

// orderNamespacePopulations attaches wrapped submodules to their wrapped
// parents, parents first.
func (p *planner) orderNamespacePopulations() {
	type wrapped struct {
		id   resolver.ModuleId
		name string
	}
	var all []wrapped
	for _, creation := range p.plan.NamespaceCreations {
		if id, ok := p.res.Lookup(creation.DottedName); ok {
			all = append(all, wrapped{id: id, name: creation.DottedName})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		di := strings.Count(all[i].name, ".")
		dj := strings.Count(all[j].name, ".")
		if di != dj {
			return di < dj
		}
		return all[i].name < all[j].name
	})

	for _, w := range all {
		dot := strings.LastIndexByte(w.name, '.')
		if dot == -1 {
			continue
		}
		parent := w.name[:dot]
		parentId, ok := p.res.Lookup(parent)
		if !ok || !p.plan.IsWrapped(parentId) {
			continue
		}
		p.plan.NamespacePopulations = append(p.plan.NamespacePopulations, NamespacePopulation{
			Var:       p.plan.ModuleMetadata[parentId].NamespaceVar,
			Attribute: w.name[dot+1:],
			Symbol:    p.plan.ModuleMetadata[w.id].NamespaceVar,
		})
	}
}

func sortedNames(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
