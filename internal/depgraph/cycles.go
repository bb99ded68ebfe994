package depgraph

// Cycle classification. A strongly-connected component is inspected arc by
// arc to decide whether the cycle only exists through function-scoped
// imports, whether it can be broken by deferring class references, whether
// it needs lazy namespace initialization, or whether it is unresolvable
// because a module-level constant crosses the cycle at import time.

import (
	"fmt"
	"strings"

	"github.com/cribo/cribo/internal/resolver"
	"github.com/cribo/cribo/internal/semantic"
)

type CycleType uint8

const (
	FunctionLevel CycleType = iota
	ClassLevel
	ModuleConstants
	ImportTime
)

var cycleTypeNames = []string{"FunctionLevel", "ClassLevel", "ModuleConstants", "ImportTime"}

func (t CycleType) String() string {
	return cycleTypeNames[t]
}

type StrategyKind uint8

const (
	LazyImport StrategyKind = iota
	FunctionScopedImport
	ModuleSplit
	Unresolvable
)

var strategyKindNames = []string{"LazyImport", "FunctionScopedImport", "ModuleSplit", "Unresolvable"}

func (k StrategyKind) String() string {
	return strategyKindNames[k]
}

type ResolutionStrategy struct {
	Kind        StrategyKind
	Reason      string
	Suggestions []string
}

type Cycle struct {
	Members  []resolver.ModuleId
	Arcs     []Edge
	Type     CycleType
	Strategy ResolutionStrategy
}

// Path renders "a -> b -> a" for diagnostics.
func (c *Cycle) Path(names func(resolver.ModuleId) string) string {
	parts := make([]string, 0, len(c.Members)+1)
	for _, id := range c.Members {
		parts = append(parts, names(id))
	}
	parts = append(parts, names(c.Members[0]))
	return strings.Join(parts, " -> ")
}

// AnalyzeCycles classifies every cyclic SCC. Models supplies the semantic
// model per member module.
func (g *Graph) AnalyzeCycles(models func(resolver.ModuleId) *semantic.Model) []Cycle {
	var cycles []Cycle
	for _, scc := range g.StronglyConnectedComponents() {
		if !scc.IsCycle {
			continue
		}
		cycles = append(cycles, g.classifyCycle(scc, models))
	}
	return cycles
}

func (g *Graph) classifyCycle(scc SCC, models func(resolver.ModuleId) *semantic.Model) Cycle {
	members := make(map[resolver.ModuleId]bool, len(scc.Members))
	for _, id := range scc.Members {
		members[id] = true
	}

	cycle := Cycle{Members: scc.Members}
	for _, id := range scc.Members {
		for _, edge := range g.OutgoingEdges(id) {
			if members[edge.To] {
				cycle.Arcs = append(cycle.Arcs, edge)
			}
		}
	}

	// If the module-level arcs alone are acyclic, function-scoped imports are
	// what closes the loop. Those can simply stay where they are and the
	// remaining edges follow topological order.
	if g.moduleLevelArcsAcyclic(scc.Members, cycle.Arcs) {
		cycle.Type = FunctionLevel
		cycle.Strategy = ResolutionStrategy{Kind: FunctionScopedImport}
		return cycle
	}

	constantArc := false
	importTimeUse := false
	var constantNames []string

	for _, arc := range cycle.Arcs {
		if arc.Meta.FunctionScoped {
			continue
		}
		from := g.Modules[arc.From]
		target := models(arc.To)

		for _, bound := range arcBoundNames(arc) {
			if !moduleReadsAtImportTime(from, arc.Meta.Item, bound.local) {
				continue
			}
			importTimeUse = true
			if target != nil && bound.remote != "" {
				if binding, ok := target.Global.Lookup(bound.remote); ok && binding.Kind == semantic.Assignment {
					constantArc = true
					constantNames = append(constantNames, bound.remote)
				}
			}
		}
	}

	switch {
	case constantArc:
		cycle.Type = ModuleConstants
		cycle.Strategy = ResolutionStrategy{
			Kind: Unresolvable,
			Reason: fmt.Sprintf("module-level constant(s) %s are consumed at import time across the cycle",
				strings.Join(constantNames, ", ")),
			Suggestions: []string{
				"move the shared constant into a separate module outside the cycle",
				"convert the constant into a function call evaluated lazily",
			},
		}
	case importTimeUse:
		cycle.Type = ImportTime
		cycle.Strategy = ResolutionStrategy{Kind: LazyImport}
	default:
		// Module-level imports whose names are only touched inside deferred
		// bodies, typically classes referenced from methods
		cycle.Type = ClassLevel
		cycle.Strategy = ResolutionStrategy{Kind: FunctionScopedImport}
	}
	return cycle
}

// moduleLevelArcsAcyclic checks whether the cycle disappears once
// function-scoped arcs are ignored.
func (g *Graph) moduleLevelArcsAcyclic(members []resolver.ModuleId, arcs []Edge) bool {
	adjacency := make(map[resolver.ModuleId][]resolver.ModuleId)
	for _, arc := range arcs {
		if !arc.Meta.FunctionScoped {
			adjacency[arc.From] = append(adjacency[arc.From], arc.To)
		}
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[resolver.ModuleId]int, len(members))

	var visit func(id resolver.ModuleId) bool
	visit = func(id resolver.ModuleId) bool {
		switch state[id] {
		case visiting:
			return false
		case done:
			return true
		}
		state[id] = visiting
		for _, next := range adjacency[id] {
			if !visit(next) {
				return false
			}
		}
		state[id] = done
		return true
	}

	for _, id := range members {
		if !visit(id) {
			return false
		}
	}
	return true
}

type boundName struct {
	// The name bound in the importing module, and the original name in the
	// target module (empty when the binding is the module object itself)
	local  string
	remote string
}

func arcBoundNames(arc Edge) []boundName {
	if len(arc.Symbols) == 0 {
		local := arc.Alias
		if local == "" {
			local = topName(arc.RawName)
		}
		return []boundName{{local: local}}
	}
	names := make([]boundName, 0, len(arc.Symbols))
	for _, symbol := range arc.Symbols {
		names = append(names, boundName{local: symbol.BoundName(), remote: symbol.Name})
	}
	return names
}

func topName(dotted string) string {
	if dot := strings.IndexByte(dotted, '.'); dot != -1 {
		return dotted[:dot]
	}
	return dotted
}

// moduleReadsAtImportTime reports whether any item other than the importing
// statement itself reads the bound name while the module executes.
func moduleReadsAtImportTime(info *ModuleInfo, importItem ItemId, name string) bool {
	if name == "" {
		return false
	}
	for _, item := range info.Items {
		if item.Id == importItem {
			continue
		}
		for _, read := range item.ImportTimeReads {
			if read == name {
				return true
			}
		}
	}
	return false
}
