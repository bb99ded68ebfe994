package depgraph

// Strongly-connected components over the module graph using Tarjan's
// algorithm, plus a topological order over the condensation DAG.

import (
	"sort"

	"github.com/cribo/cribo/internal/resolver"
)

type SCC struct {
	// Member modules sorted by ModuleId
	Members []resolver.ModuleId

	// True for multi-module components and for single modules with a
	// self-edge
	IsCycle bool
}

type tarjanState struct {
	graph   *Graph
	index   int
	indices map[resolver.ModuleId]int
	lowlink map[resolver.ModuleId]int
	onStack map[resolver.ModuleId]bool
	stack   []resolver.ModuleId
	sccs    []SCC
}

// StronglyConnectedComponents returns the SCCs of the module graph in reverse
// topological order: a component appears before every component that imports
// it.
func (g *Graph) StronglyConnectedComponents() []SCC {
	state := &tarjanState{
		graph:   g,
		indices: make(map[resolver.ModuleId]int),
		lowlink: make(map[resolver.ModuleId]int),
		onStack: make(map[resolver.ModuleId]bool),
	}
	for _, id := range g.ModuleIds() {
		if _, seen := state.indices[id]; !seen {
			state.strongConnect(id)
		}
	}
	return state.sccs
}

func (s *tarjanState) strongConnect(v resolver.ModuleId) {
	s.indices[v] = s.index
	s.lowlink[v] = s.index
	s.index++
	s.stack = append(s.stack, v)
	s.onStack[v] = true

	for _, edge := range s.graph.OutgoingEdges(v) {
		w := edge.To
		if _, seen := s.indices[w]; !seen {
			s.strongConnect(w)
			if s.lowlink[w] < s.lowlink[v] {
				s.lowlink[v] = s.lowlink[w]
			}
		} else if s.onStack[w] {
			if s.indices[w] < s.lowlink[v] {
				s.lowlink[v] = s.indices[w]
			}
		}
	}

	if s.lowlink[v] == s.indices[v] {
		var members []resolver.ModuleId
		for {
			n := len(s.stack) - 1
			w := s.stack[n]
			s.stack = s.stack[:n]
			s.onStack[w] = false
			members = append(members, w)
			if w == v {
				break
			}
		}
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		s.sccs = append(s.sccs, SCC{
			Members: members,
			IsCycle: len(members) > 1 || s.hasSelfEdge(v),
		})
	}
}

func (s *tarjanState) hasSelfEdge(v resolver.ModuleId) bool {
	for _, edge := range s.graph.OutgoingEdges(v) {
		if edge.To == v {
			return true
		}
	}
	return false
}

// TopologicalOrder returns every module with dependencies before dependents.
// Modules within one SCC are ordered by ModuleId.
func (g *Graph) TopologicalOrder() []resolver.ModuleId {
	var order []resolver.ModuleId
	for _, scc := range g.StronglyConnectedComponents() {
		order = append(order, scc.Members...)
	}
	return order
}
