package analysis

// The analysis pipeline runs five fixed stages over the immutable graph:
// cycle classification, symbol-origin tracing, conflict detection,
// tree-shaking, and transformation detection. Later stages read earlier
// stages' results; nothing here mutates the graph.

import (
	"sort"

	"github.com/cribo/cribo/internal/config"
	"github.com/cribo/cribo/internal/depgraph"
	"github.com/cribo/cribo/internal/logger"
	"github.com/cribo/cribo/internal/resolver"
	"github.com/cribo/cribo/internal/semantic"
)

// ModuleItem addresses one top-level statement program-wide.
type ModuleItem struct {
	Module resolver.ModuleId
	Item   depgraph.ItemId
}

type ConflictEntry struct {
	Binding    semantic.GlobalBindingId
	ModuleName string
	Kind       semantic.BindingKind
	Range      logger.Range
}

type Analysis struct {
	Graph  *depgraph.Graph
	Cycles []depgraph.Cycle

	// origin collapses re-export chains to the defining binding
	Origins map[semantic.GlobalBindingId]semantic.GlobalBindingId

	// Conflicting non-private names, keyed by name, entries sorted by module
	Conflicts map[string][]ConflictEntry

	// Live is nil when tree-shaking is disabled; otherwise only listed items
	// survive. LiveModules lists modules that keep at least one item.
	Live        map[ModuleItem]bool
	LiveModules map[resolver.ModuleId]bool

	// Transformations required per item, sorted by ascending priority
	Transformations map[ModuleItem][]Transformation
}

// ModelFunc supplies the cached semantic model for a module.
type ModelFunc func(resolver.ModuleId) *semantic.Model

type pipeline struct {
	graph   *depgraph.Graph
	models  ModelFunc
	res     *resolver.Resolver
	options *config.Options
	log     logger.Log
	entry   resolver.ModuleId
	result  *Analysis
}

// Run executes all five stages in order.
func Run(
	graph *depgraph.Graph,
	models ModelFunc,
	res *resolver.Resolver,
	options *config.Options,
	log logger.Log,
	entry resolver.ModuleId,
) *Analysis {
	p := &pipeline{
		graph:   graph,
		models:  models,
		res:     res,
		options: options,
		log:     log,
		entry:   entry,
		result: &Analysis{
			Graph:           graph,
			Origins:         make(map[semantic.GlobalBindingId]semantic.GlobalBindingId),
			Conflicts:       make(map[string][]ConflictEntry),
			Transformations: make(map[ModuleItem][]Transformation),
		},
	}

	p.result.Cycles = graph.AnalyzeCycles(models)
	p.traceOrigins()
	p.detectConflicts()
	if options.TreeShake {
		p.shakeTree()
	}
	p.detectTransformations()
	return p.result
}

////////////////////////////////////////////////////////////////////////////////
// Stage 2: symbol origins

func (p *pipeline) traceOrigins() {
	for _, id := range p.graph.ModuleIds() {
		model := p.models(id)
		if model == nil {
			continue
		}
		for _, binding := range model.Global.Bindings {
			if binding.Kind != semantic.FromImport {
				continue
			}
			from := semantic.GlobalBindingId{Module: id, Binding: binding.Id}
			if terminal, ok := p.chase(id, binding, map[semantic.GlobalBindingId]bool{from: true}); ok {
				p.result.Origins[from] = terminal
			}
		}
	}
}

// chase follows a from-import across modules until it lands on a non-import
// binding. The visited set stops re-export loops.
func (p *pipeline) chase(
	module resolver.ModuleId,
	binding semantic.Binding,
	visited map[semantic.GlobalBindingId]bool,
) (semantic.GlobalBindingId, bool) {
	info := p.graph.Modules[module]
	if info == nil {
		return semantic.GlobalBindingId{}, false
	}
	target, ok := p.res.Resolve(binding.ImportModule, info.Name, info.IsPackage, binding.ImportLevel)
	if !ok {
		return semantic.GlobalBindingId{}, false
	}
	model := p.models(target)
	if model == nil {
		return semantic.GlobalBindingId{}, false
	}
	next, ok := model.Global.Lookup(binding.ImportSymbol)
	if !ok {
		// "from pkg import sub" naming a submodule, not a symbol
		return semantic.GlobalBindingId{}, false
	}

	id := semantic.GlobalBindingId{Module: target, Binding: next.Id}
	if next.Kind != semantic.FromImport {
		return id, true
	}
	if visited[id] {
		return semantic.GlobalBindingId{}, false
	}
	visited[id] = true
	return p.chase(target, next, visited)
}

// Origin resolves a binding through the origin map, returning the input when
// no re-export chain applies.
func (a *Analysis) Origin(id semantic.GlobalBindingId) semantic.GlobalBindingId {
	if terminal, ok := a.Origins[id]; ok {
		return terminal
	}
	return id
}

////////////////////////////////////////////////////////////////////////////////
// Stage 3: symbol conflicts

func isPrivateName(name string) bool {
	if len(name) >= 4 && name[:2] == "__" && name[len(name)-2:] == "__" {
		// Dunder names stay visible
		return false
	}
	return len(name) > 0 && name[0] == '_'
}

func (p *pipeline) detectConflicts() {
	byName := make(map[string][]ConflictEntry)

	for _, id := range p.graph.ModuleIds() {
		model := p.models(id)
		if model == nil {
			continue
		}
		info := p.graph.Modules[id]
		seen := make(map[string]bool)
		// Walk bindings in reverse so the last (winning) binding of each name
		// in the module is the one considered.
		for i := len(model.Global.Bindings) - 1; i >= 0; i-- {
			binding := model.Global.Bindings[i]
			if binding.Kind == semantic.Builtin || isPrivateName(binding.Name) || seen[binding.Name] {
				continue
			}
			seen[binding.Name] = true
			byName[binding.Name] = append(byName[binding.Name], ConflictEntry{
				Binding:    semantic.GlobalBindingId{Module: id, Binding: binding.Id},
				ModuleName: info.Name,
				Kind:       binding.Kind,
				Range:      binding.Range,
			})
		}
	}

	for name, entries := range byName {
		if len(entries) < 2 {
			continue
		}

		// Collapse re-exports: entries that resolve to the same origin are
		// one logical symbol.
		origins := make(map[semantic.GlobalBindingId]bool)
		for _, entry := range entries {
			origins[p.result.Origin(entry.Binding)] = true
		}
		if len(origins) < 2 {
			continue
		}

		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding.Module < entries[j].Binding.Module
		})
		p.result.Conflicts[name] = entries
	}
}

////////////////////////////////////////////////////////////////////////////////
// Stage 4: tree-shaking

func (p *pipeline) shakeTree() {
	live := make(map[ModuleItem]bool)
	var worklist []ModuleItem

	mark := func(item ModuleItem) {
		if !live[item] {
			live[item] = true
			worklist = append(worklist, item)
		}
	}

	// Roots: the entry module's exported definitions plus every
	// side-effecting item anywhere. A dynamic __all__ disables shaking for
	// the whole module.
	for _, id := range p.graph.ModuleIds() {
		info := p.graph.Modules[id]
		dynamicAll := info.DunderAll != nil && info.DunderAll.IsDynamic
		if dynamicAll {
			p.log.AddWarning(nil, logger.Loc{Start: -1},
				"module \""+info.Name+"\" has a dynamic __all__; dead-symbol removal is disabled for it")
		}
		for _, item := range info.Items {
			switch {
			case dynamicAll,
				item.HasSideEffects,
				item.IsFuture,
				id == p.entry && p.isEntryRoot(info, item):
				mark(ModuleItem{Module: id, Item: item.Id})
			}
		}
	}

	for len(worklist) > 0 {
		current := worklist[0]
		worklist = worklist[1:]
		info := p.graph.Modules[current.Module]
		item := info.Items[current.Item]

		for _, read := range item.Reads {
			p.markDefiners(info, read, mark)
		}

		// A live import keeps its target's exports alive
		for _, ref := range item.Imports {
			if !ref.FirstParty {
				continue
			}
			if len(ref.Symbols) == 0 || ref.IsWildcard {
				// Namespace or wildcard import: everything may be reached
				for _, targetItem := range p.graph.Modules[ref.Target].Items {
					mark(ModuleItem{Module: ref.Target, Item: targetItem.Id})
				}
			} else {
				target := p.graph.Modules[ref.Target]
				for _, symbol := range ref.Symbols {
					p.markDefiners(target, symbol.Name, mark)
				}
			}
		}
	}

	p.result.Live = live
	p.result.LiveModules = make(map[resolver.ModuleId]bool)
	for item := range live {
		p.result.LiveModules[item.Module] = true
	}
}

func (p *pipeline) isEntryRoot(info *depgraph.ModuleInfo, item depgraph.Item) bool {
	if len(item.Defines) == 0 {
		return item.IsImport
	}
	if info.DunderAll == nil || info.DunderAll.IsDynamic {
		return true
	}
	exported := make(map[string]bool, len(info.DunderAll.Names))
	for _, name := range info.DunderAll.Names {
		exported[name] = true
	}
	for _, name := range item.Defines {
		if exported[name] || name == "__all__" {
			return true
		}
	}
	return false
}

// markDefiners marks items of a module that define a name. When the name is
// bound by a from-import, the import item itself goes live and the chase
// continues through its Imports on the next worklist round.
func (p *pipeline) markDefiners(info *depgraph.ModuleInfo, name string, mark func(ModuleItem)) {
	for _, item := range info.Items {
		for _, defined := range item.Defines {
			if defined == name {
				mark(ModuleItem{Module: info.Id, Item: item.Id})
			}
		}
	}
}

// IsLive reports whether an item survives tree-shaking. With shaking
// disabled, everything is live.
func (a *Analysis) IsLive(module resolver.ModuleId, item depgraph.ItemId) bool {
	if a.Live == nil {
		return true
	}
	return a.Live[ModuleItem{Module: module, Item: item}]
}

// IsModuleLive reports whether a module keeps at least one item.
func (a *Analysis) IsModuleLive(module resolver.ModuleId) bool {
	if a.Live == nil {
		return true
	}
	return a.LiveModules[module]
}
