package analysis

// Stage 5: transformation detection. Every item is tagged with the rewrites
// later stages must apply to it. Priorities give the applications a stable
// order regardless of detection order.

import (
	"sort"

	"github.com/cribo/cribo/internal/depgraph"
	"github.com/cribo/cribo/internal/pystdlib"
	"github.com/cribo/cribo/internal/resolver"
	"github.com/cribo/cribo/internal/semantic"
)

type TransformationKind uint8

const (
	RemoveImport TransformationKind = iota
	CircularDepImportMove
	StdlibImportRewrite
	PartialImportRemoval
	SymbolRewrite
)

var transformationKindNames = []string{
	"RemoveImport",
	"CircularDepImportMove",
	"StdlibImportRewrite",
	"PartialImportRemoval",
	"SymbolRewrite",
}

func (k TransformationKind) String() string {
	return transformationKindNames[k]
}

// Priority orders applications: removals first, renames last.
func (k TransformationKind) Priority() int {
	switch k {
	case RemoveImport:
		return 1
	case CircularDepImportMove:
		return 2
	case StdlibImportRewrite:
		return 3
	case PartialImportRemoval:
		return 4
	default:
		return 5
	}
}

type RemoveReason uint8

const (
	RemoveUnused RemoveReason = iota
	RemoveTypeOnly
	RemoveBundled
)

type Transformation struct {
	Kind   TransformationKind
	Reason RemoveReason // RemoveImport only

	// The names affected: imported symbols for import rewrites, the original
	// symbol for renames
	Names []string

	// The target module for import-related kinds
	Target resolver.ModuleId
}

func (p *pipeline) addTransformation(item ModuleItem, tr Transformation) {
	p.result.Transformations[item] = append(p.result.Transformations[item], tr)
}

func (p *pipeline) detectTransformations() {
	cycleDeferred := p.cycleDeferredModules()

	for _, id := range p.graph.ModuleIds() {
		info := p.graph.Modules[id]
		for _, item := range info.Items {
			key := ModuleItem{Module: id, Item: item.Id}

			if item.IsImport {
				p.detectImportTransformations(info, item, key, cycleDeferred)
			}

			// Renames for conflicting definitions
			for _, defined := range item.Defines {
				if p.isConflictIn(defined, id) {
					p.addTransformation(key, Transformation{
						Kind:  SymbolRewrite,
						Names: []string{defined},
					})
				}
			}
		}

		// Items whose reads mention a conflicting name defined in this module
		// need the same rename applied at their use sites.
		for _, item := range info.Items {
			if item.IsImport {
				continue
			}
			key := ModuleItem{Module: id, Item: item.Id}
			var renamed []string
			for _, read := range item.Reads {
				if p.isConflictIn(read, id) && !contains(item.Defines, read) {
					renamed = append(renamed, read)
				}
			}
			if len(renamed) > 0 {
				p.addTransformation(key, Transformation{Kind: SymbolRewrite, Names: renamed})
			}
		}
	}

	for key := range p.result.Transformations {
		entries := p.result.Transformations[key]
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Kind.Priority() < entries[j].Kind.Priority()
		})
	}
}

func (p *pipeline) detectImportTransformations(
	info *depgraph.ModuleInfo,
	item depgraph.Item,
	key ModuleItem,
	cycleDeferred map[resolver.ModuleId]bool,
) {
	for _, ref := range item.Imports {
		switch {
		case ref.FirstParty && cycleDeferred[info.Id] && cycleDeferred[ref.Target] && !ref.IsWildcard:
			p.addTransformation(key, Transformation{
				Kind:   CircularDepImportMove,
				Target: ref.Target,
				Names:  symbolNames(ref),
			})

		case ref.FirstParty:
			p.addTransformation(key, Transformation{
				Kind:   RemoveImport,
				Reason: RemoveBundled,
				Target: ref.Target,
				Names:  symbolNames(ref),
			})
			for _, symbol := range ref.Symbols {
				if p.isConflictIn(symbol.BoundName(), info.Id) {
					p.addTransformation(key, Transformation{
						Kind:  SymbolRewrite,
						Names: []string{symbol.BoundName()},
					})
				}
			}

		case ref.Type == depgraph.FromImport && !ref.IsWildcard &&
			pystdlib.IsStdlib(ref.Absolute, p.options.EffectivePythonVersion()):
			// "from typing import X" detaches from its source position and
			// merges into one deduplicated bundle-scope statement
			p.addTransformation(key, Transformation{
				Kind:  StdlibImportRewrite,
				Names: symbolNames(ref),
			})

		default:
			p.detectPartialRemoval(info, item, key, ref)
		}
	}
}

// detectPartialRemoval flags third-party from-imports some of whose names are
// never read (tree-shaking on only).
func (p *pipeline) detectPartialRemoval(
	info *depgraph.ModuleInfo,
	item depgraph.Item,
	key ModuleItem,
	ref depgraph.ImportRef,
) {
	if p.result.Live == nil || ref.IsWildcard || len(ref.Symbols) == 0 {
		return
	}
	var dead []string
	for _, symbol := range ref.Symbols {
		if !p.nameIsRead(info, item.Id, symbol.BoundName()) {
			dead = append(dead, symbol.Name)
		}
	}
	if len(dead) == 0 {
		return
	}
	if len(dead) == len(ref.Symbols) {
		p.addTransformation(key, Transformation{
			Kind:   RemoveImport,
			Reason: RemoveUnused,
			Names:  dead,
		})
	} else {
		p.addTransformation(key, Transformation{
			Kind:  PartialImportRemoval,
			Names: dead,
		})
	}
}

func (p *pipeline) nameIsRead(info *depgraph.ModuleInfo, importItem depgraph.ItemId, name string) bool {
	for _, item := range info.Items {
		if item.Id == importItem {
			continue
		}
		if !p.result.IsLive(info.Id, item.Id) {
			continue
		}
		for _, read := range item.Reads {
			if read == name {
				return true
			}
		}
	}
	return false
}

func (p *pipeline) cycleDeferredModules() map[resolver.ModuleId]bool {
	deferred := make(map[resolver.ModuleId]bool)
	for _, cycle := range p.result.Cycles {
		if cycle.Strategy.Kind != depgraph.FunctionScopedImport {
			continue
		}
		// Only arcs that sit at module level need moving
		for _, arc := range cycle.Arcs {
			if !arc.Meta.FunctionScoped && cycle.Type == depgraph.ClassLevel {
				deferred[arc.From] = true
				deferred[arc.To] = true
			}
		}
	}
	return deferred
}

// isConflictIn reports whether a name conflicts and one of the conflicting
// bindings lives in the given module.
func (p *pipeline) isConflictIn(name string, module resolver.ModuleId) bool {
	for _, entry := range p.result.Conflicts[name] {
		if entry.Binding.Module == module {
			return true
		}
	}
	return false
}

func symbolNames(ref depgraph.ImportRef) []string {
	if len(ref.Symbols) == 0 {
		return nil
	}
	names := make([]string, 0, len(ref.Symbols))
	for _, symbol := range ref.Symbols {
		names = append(names, symbol.Name)
	}
	return names
}

func contains(list []string, name string) bool {
	for _, entry := range list {
		if entry == name {
			return true
		}
	}
	return false
}

// HasTransformation reports whether stage 5 tagged the item with the kind.
func (a *Analysis) HasTransformation(item ModuleItem, kind TransformationKind) bool {
	for _, tr := range a.Transformations[item] {
		if tr.Kind == kind {
			return true
		}
	}
	return false
}

// NeedsRename reports whether any of the module's items carries a rename of
// the given name.
func (a *Analysis) NeedsRename(module resolver.ModuleId, name string) bool {
	for item, trs := range a.Transformations {
		if item.Module != module {
			continue
		}
		for _, tr := range trs {
			if tr.Kind == SymbolRewrite && contains(tr.Names, name) {
				return true
			}
		}
	}
	return false
}

// TransformationCount totals the recorded transformations, for build stats.
func (a *Analysis) TransformationCount() int {
	total := 0
	for _, trs := range a.Transformations {
		total += len(trs)
	}
	return total
}

// Lookup semantic binding kinds for diagnostics on conflicts.
func (a *Analysis) ConflictKinds(name string) []semantic.BindingKind {
	entries := a.Conflicts[name]
	kinds := make([]semantic.BindingKind, 0, len(entries))
	for _, entry := range entries {
		kinds = append(kinds, entry.Kind)
	}
	return kinds
}
