package algorithms

import (
	"context"

	"github.com/flowmesh/mincostflow/internal/graph"
	"github.com/flowmesh/mincostflow/pkg/domain"
)

// =============================================================================
// Edmonds-Karp Max-Flow Initializer
// =============================================================================
//
// Cycle cancelling starts from ANY maximum flow; costs only matter during
// the cancellation phase. The initializer is Edmonds-Karp: repeated BFS
// over the current residual, augmenting along the shortest path by arc
// count until the sink becomes unreachable.
//
// The residual is rebuilt from the flow assignment after every
// augmentation. This keeps the flow assignment the single source of
// truth and gives every BFS the same deterministic arc layout.
//
// Time Complexity: O(V × E²)
// Space Complexity: O(V + E)
//
// References:
//   - Edmonds, J., Karp, R.M. (1972). "Theoretical improvements in
//     algorithmic efficiency for network flow problems"
// =============================================================================

// MaxFlowResult contains the result of the max-flow initialization.
type MaxFlowResult struct {
	// Flow is the computed flow assignment.
	Flow domain.FlowAssignment

	// FlowValue is the net flow out of the source.
	FlowValue float64

	// AugmentingPaths is the number of augmentations performed.
	AugmentingPaths int

	// Canceled indicates whether the operation was canceled via context.
	Canceled bool

	// LimitReached indicates the iteration cap stopped the search before
	// the sink became unreachable. The flow may not be maximum.
	LimitReached bool
}

// EdmondsKarp computes a maximum flow without context cancellation
// support. Convenience wrapper around EdmondsKarpWithContext.
func EdmondsKarp(g *domain.Graph) *MaxFlowResult {
	return EdmondsKarpWithContext(context.Background(), g, nil)
}

// EdmondsKarpWithContext computes a maximum flow from g.SourceID to
// g.SinkID starting from the zero assignment.
//
// A disconnected source/sink pair is not an error: BFS finds no path and
// the zero assignment is returned with zero augmenting paths.
//
// Each hop of an augmenting path is resolved to the widest residual arc
// on that ordered pair (ties keep the earlier arc). The selection is
// cost-agnostic: this phase maximizes value only.
func EdmondsKarpWithContext(ctx context.Context, g *domain.Graph, options *SolverOptions) *MaxFlowResult {
	if options == nil {
		options = DefaultSolverOptions()
	}
	eps := options.Epsilon
	if eps <= 0 {
		eps = graph.Epsilon
	}

	flow := domain.NewFlowAssignment()
	result := &MaxFlowResult{Flow: flow}

	const checkInterval = 100

	for {
		if result.AugmentingPaths%checkInterval == 0 {
			select {
			case <-ctx.Done():
				result.Canceled = true
				result.FlowValue = flow.Value(g)
				return result
			default:
			}
		}
		r := graph.BuildResidual(g, flow)
		bfs := graph.BFS(r, g.SourceID, g.SinkID)
		if !bfs.Found {
			break
		}
		// The cap fires only when an augmenting path is still pending:
		// hitting the limit exactly at maximum flow is not a truncation.
		if options.MaxIterations > 0 && result.AugmentingPaths >= options.MaxIterations {
			result.LimitReached = true
			break
		}

		path := graph.ReconstructPath(bfs.Parent, g.SourceID, g.SinkID)
		if augmentAlongPath(r, flow, path, eps) {
			result.AugmentingPaths++
		} else {
			// BFS found the path over positive-capacity arcs, so a
			// failed augmentation cannot happen on a consistent residual.
			break
		}
	}

	result.FlowValue = flow.Value(g)
	return result
}

// augmentAlongPath pushes the bottleneck amount along a node path.
// Returns false when the path resolves to no pushable amount, where
// bottlenecks at or below eps count as zero.
func augmentAlongPath(r *graph.Residual, flow domain.FlowAssignment, path []int64, eps float64) bool {
	if len(path) < 2 {
		return false
	}

	arcs := make([]*graph.Arc, 0, len(path)-1)
	bottleneck := graph.Infinity

	for i := 0; i+1 < len(path); i++ {
		arc := widestArc(r, path[i], path[i+1])
		if arc == nil {
			return false
		}
		arcs = append(arcs, arc)
		if arc.Capacity < bottleneck {
			bottleneck = arc.Capacity
		}
	}

	if bottleneck <= eps {
		return false
	}

	for _, arc := range arcs {
		key, sign := arc.BaseEdge()
		flow.Add(key.From, key.To, sign*bottleneck)
	}
	return true
}

// widestArc returns the maximum-capacity arc on the ordered pair,
// or nil when the pair carries no arc. Ties keep the earlier arc.
func widestArc(r *graph.Residual, from, to int64) *graph.Arc {
	arcs := r.Arcs(from, to)
	if len(arcs) == 0 {
		return nil
	}
	best := arcs[0]
	for _, arc := range arcs[1:] {
		if arc.Capacity > best.Capacity {
			best = arc
		}
	}
	return best
}
