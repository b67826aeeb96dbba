package algorithms

import (
	"context"

	"github.com/flowmesh/mincostflow/internal/graph"
	"github.com/flowmesh/mincostflow/pkg/domain"
)

// =============================================================================
// Successive Shortest Path Reference Solver
// =============================================================================
//
// An independent min-cost max-flow implementation used to cross-check the
// cycle-cancelling engine. Instead of fixing the flow value first, it
// augments along the cheapest residual path (Bellman-Ford, handles
// negative arc costs) until the sink becomes unreachable.
//
// On networks without negative-cost cycles both methods must agree on
// flow value and total cost, which makes this solver a strong
// validation oracle in tests. It is NOT part of the serving path.
//
// Time Complexity: O(V × E × F) for integral capacities
// =============================================================================

// ReferenceResult contains the result of the reference computation.
type ReferenceResult struct {
	// Flow is the computed flow assignment.
	Flow domain.FlowAssignment

	// FlowValue is the net flow out of the source.
	FlowValue float64

	// TotalCost is the total cost of the flow.
	TotalCost float64

	// Iterations is the number of augmenting path iterations.
	Iterations int

	// Canceled indicates whether the operation was canceled via context.
	Canceled bool
}

// SuccessiveShortestPath computes a minimum-cost maximum flow by
// repeatedly augmenting along the cheapest residual path.
func SuccessiveShortestPath(ctx context.Context, g *domain.Graph) *ReferenceResult {
	flow := domain.NewFlowAssignment()
	result := &ReferenceResult{Flow: flow}

	const checkInterval = 100

	for {
		if result.Iterations%checkInterval == 0 {
			select {
			case <-ctx.Done():
				result.Canceled = true
			default:
			}
		}
		if result.Canceled {
			break
		}

		r := graph.BuildResidual(g, flow)
		path, found := cheapestPath(r, g.SourceID, g.SinkID)
		if !found {
			break
		}
		if !augmentAlongCheapest(r, flow, path) {
			break
		}
		result.Iterations++
	}

	result.FlowValue = flow.Value(g)
	result.TotalCost = flow.TotalCost(g)
	return result
}

// cheapestPath runs Bellman-Ford from the source over all residual arcs
// and reconstructs the minimum-cost source→sink path.
func cheapestPath(r *graph.Residual, source, sink int64) ([]int64, bool) {
	nodes := r.SortedNodes()
	n := len(nodes)
	if n == 0 || !r.HasNode(source) || !r.HasNode(sink) {
		return nil, false
	}

	arcs := r.AllArcs()

	dist := make(map[int64]float64, n)
	parent := make(map[int64]int64, n)
	for _, node := range nodes {
		dist[node] = graph.Infinity
		parent[node] = -1
	}
	dist[source] = 0

	for i := 0; i < n-1; i++ {
		updated := false
		for _, arc := range arcs {
			if dist[arc.From] >= graph.Infinity-graph.Epsilon {
				continue
			}
			if cand := dist[arc.From] + arc.Cost; cand < dist[arc.To]-graph.Epsilon {
				dist[arc.To] = cand
				parent[arc.To] = arc.From
				updated = true
			}
		}
		if !updated {
			break
		}
	}

	if dist[sink] >= graph.Infinity-graph.Epsilon {
		return nil, false
	}

	// Обход родителей ограничен n шагами: при отрицательном цикле в
	// остаточной сети указатели parent зацикливаются.
	path := []int64{sink}
	node := sink
	for steps := 0; node != source; steps++ {
		if steps > n {
			return nil, false
		}
		prev, ok := parent[node]
		if !ok || prev == -1 {
			return nil, false
		}
		path = append([]int64{prev}, path...)
		node = prev
	}
	return path, true
}

// augmentAlongCheapest pushes the bottleneck amount along a node path,
// resolving each hop to the cheapest residual arc (the arc Bellman-Ford
// relaxation effectively used).
func augmentAlongCheapest(r *graph.Residual, flow domain.FlowAssignment, path []int64) bool {
	if len(path) < 2 {
		return false
	}

	arcs := make([]*graph.Arc, 0, len(path)-1)
	bottleneck := graph.Infinity

	for i := 0; i+1 < len(path); i++ {
		arc := r.Cheapest(path[i], path[i+1])
		if arc == nil {
			return false
		}
		arcs = append(arcs, arc)
		if arc.Capacity < bottleneck {
			bottleneck = arc.Capacity
		}
	}

	if bottleneck <= graph.Epsilon {
		return false
	}

	for _, arc := range arcs {
		key, sign := arc.BaseEdge()
		flow.Add(key.From, key.To, sign*bottleneck)
	}
	return true
}
