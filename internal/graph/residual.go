// Package graph provides the residual network representation used by the
// cycle-cancelling min-cost flow engine.
package graph

import (
	"sort"

	"github.com/flowmesh/mincostflow/pkg/domain"
)

// =============================================================================
// Constants
// =============================================================================

// Epsilon is the tolerance for floating-point comparisons.
// Values smaller than Epsilon are considered zero.
// This is crucial for numerical stability in flow algorithms.
const Epsilon = domain.Epsilon

// Infinity represents an unreachable distance or unlimited capacity.
// Used as the initial distance in shortest path algorithms.
const Infinity = domain.Infinity

// =============================================================================
// Residual Arc
// =============================================================================

// Arc represents a single directed arc of the residual network.
//
// For a base edge (u, v) with capacity c, cost w and current flow f,
// the residual network contains:
//   - a forward arc (u, v) with capacity c - f and cost +w, iff c - f > Epsilon
//   - a backward arc (v, u) with capacity f and cost -w, iff f > Epsilon
//
// Arcs carry only positive residual capacity. A saturated base edge
// contributes no forward arc; an unused one contributes no backward arc.
//
// Anti-parallel base edges (both u→v and v→u present in the input) can
// place TWO arcs on the same ordered pair: the forward arc of one base
// edge and the backward arc of the other. These are kept as distinct
// parallel arcs and never merged, because they have independent
// capacities and costs and undo different base edges.
type Arc struct {
	// From is the tail node ID.
	From int64

	// To is the head node ID.
	To int64

	// Capacity is the residual capacity. Always > Epsilon by construction.
	Capacity float64

	// Cost is the cost per unit of flow along this arc.
	// Negative for backward arcs of positively-priced base edges.
	Cost float64

	// Backward reports whether this arc undoes flow on the base edge
	// (To, From) rather than adding flow on the base edge (From, To).
	Backward bool
}

// BaseEdge returns the key of the base edge this arc operates on and the
// sign of the flow change: +1 for forward arcs, -1 for backward arcs.
func (a *Arc) BaseEdge() (domain.EdgeKey, float64) {
	if a.Backward {
		return domain.EdgeKey{From: a.To, To: a.From}, -1
	}
	return domain.EdgeKey{From: a.From, To: a.To}, +1
}

// =============================================================================
// Residual Network
// =============================================================================

// Residual is an immutable snapshot of the residual network for one
// flow assignment. It is built with BuildResidual and rebuilt from
// scratch after every flow change; arcs are never mutated in place.
//
// # Determinism
//
// Flow algorithms can find different valid answers depending on
// traversal order. Residual guarantees reproducible runs:
//   - Out() returns arcs in insertion order, which follows the sorted
//     base-edge order used by BuildResidual
//   - SortedNodes() returns node IDs in ascending order
//   - AllArcs() concatenates Out() lists over sorted nodes
//
// # Parallel arcs
//
// Arcs(u, v) may return up to two arcs (see Arc). Cheapest(u, v)
// resolves the pair to the minimum-cost arc, which is the selection
// rule shared by cycle search and cycle cancellation.
type Residual struct {
	nodes map[int64]bool

	// out holds outgoing arcs per node in insertion order.
	out map[int64][]*Arc

	// pairs indexes arcs by ordered (from, to) pair.
	pairs map[int64]map[int64][]*Arc

	arcCount int

	sortedNodes      []int64
	sortedNodesDirty bool
}

// NewResidual creates an empty residual network.
// Most callers should use BuildResidual instead.
func NewResidual() *Residual {
	return &Residual{
		nodes:            make(map[int64]bool),
		out:              make(map[int64][]*Arc),
		pairs:            make(map[int64]map[int64][]*Arc),
		sortedNodesDirty: true,
	}
}

// BuildResidual constructs the residual network of g under the given
// flow assignment. Base edges are visited in sorted key order so the
// arc layout, and therefore every traversal, is deterministic.
//
// Every node of g is present in the result even when isolated: cycle
// detectors must scan components that carry no flow.
func BuildResidual(g *domain.Graph, flow domain.FlowAssignment) *Residual {
	r := NewResidual()

	for _, id := range g.SortedNodeIDs() {
		r.AddNode(id)
	}

	for _, key := range g.SortedEdgeKeys() {
		edge := g.Edges[key]
		f := flow[key]

		if edge.Capacity-f > Epsilon {
			r.addArc(&Arc{
				From:     edge.From,
				To:       edge.To,
				Capacity: edge.Capacity - f,
				Cost:     edge.Cost,
				Backward: false,
			})
		}
		if f > Epsilon {
			r.addArc(&Arc{
				From:     edge.To,
				To:       edge.From,
				Capacity: f,
				Cost:     -edge.Cost,
				Backward: true,
			})
		}
	}

	return r
}

// AddNode adds a node to the network. No-op if already present.
func (r *Residual) AddNode(id int64) {
	if !r.nodes[id] {
		r.nodes[id] = true
		r.sortedNodesDirty = true
	}
}

// addArc appends an arc to the adjacency structures (internal helper).
func (r *Residual) addArc(arc *Arc) {
	r.AddNode(arc.From)
	r.AddNode(arc.To)

	r.out[arc.From] = append(r.out[arc.From], arc)
	if r.pairs[arc.From] == nil {
		r.pairs[arc.From] = make(map[int64][]*Arc)
	}
	r.pairs[arc.From][arc.To] = append(r.pairs[arc.From][arc.To], arc)
	r.arcCount++
}

// =============================================================================
// Access
// =============================================================================

// HasNode reports whether the node exists in the network.
func (r *Residual) HasNode(id int64) bool {
	return r.nodes[id]
}

// Out returns the outgoing arcs of a node in deterministic order.
// The returned slice must not be modified.
func (r *Residual) Out(node int64) []*Arc {
	return r.out[node]
}

// Arcs returns every arc on the ordered pair (from, to).
// At most two arcs are possible: see Arc on anti-parallel base edges.
func (r *Residual) Arcs(from, to int64) []*Arc {
	if r.pairs[from] == nil {
		return nil
	}
	return r.pairs[from][to]
}

// Cheapest returns the minimum-cost arc on the ordered pair (from, to),
// or nil when the pair carries no arc. Ties keep the earlier arc, which
// follows the sorted base-edge order.
func (r *Residual) Cheapest(from, to int64) *Arc {
	arcs := r.Arcs(from, to)
	if len(arcs) == 0 {
		return nil
	}
	best := arcs[0]
	for _, arc := range arcs[1:] {
		if arc.Cost < best.Cost {
			best = arc
		}
	}
	return best
}

// SortedNodes returns node IDs sorted in ascending order.
// The result is cached; the cache is invalidated when nodes are added.
func (r *Residual) SortedNodes() []int64 {
	if r.sortedNodesDirty || len(r.sortedNodes) != len(r.nodes) {
		r.sortedNodes = make([]int64, 0, len(r.nodes))
		for node := range r.nodes {
			r.sortedNodes = append(r.sortedNodes, node)
		}
		sort.Slice(r.sortedNodes, func(i, j int) bool {
			return r.sortedNodes[i] < r.sortedNodes[j]
		})
		r.sortedNodesDirty = false
	}
	return r.sortedNodes
}

// NodeCount returns the number of nodes in the network.
func (r *Residual) NodeCount() int {
	return len(r.nodes)
}

// ArcCount returns the total number of residual arcs.
func (r *Residual) ArcCount() int {
	return r.arcCount
}

// AllArcs returns every arc in deterministic order: outgoing lists
// concatenated over sorted nodes. Used by Bellman-Ford relaxation and
// by the Karp preprocessing step.
func (r *Residual) AllArcs() []*Arc {
	result := make([]*Arc, 0, r.arcCount)
	for _, from := range r.SortedNodes() {
		result = append(result, r.out[from]...)
	}
	return result
}
