package algorithms

import (
	"context"

	"github.com/flowmesh/mincostflow/internal/graph"
)

// =============================================================================
// Bellman-Ford Negative Cycle Detector
// =============================================================================
//
// The detector relaxes every residual arc |V| times and then performs one
// more detection pass. An arc that can still be relaxed proves a
// negative-cost cycle; the cycle itself is recovered from predecessor
// pointers.
//
// Every node is seeded at distance 0, which is equivalent to adding a
// virtual source with zero-cost arcs to all nodes. This makes the scan
// cover residual components that are unreachable from the flow source,
// where cancellable cycles can still hide.
//
// Time Complexity: O(V × E)
// Space Complexity: O(V)
//
// References:
//   - Bellman, R. (1958). "On a routing problem"
//   - Ford, L.R. (1956). "Network Flow Theory"
// =============================================================================

// BellmanFordDetector implements CycleDetector via label relaxation.
//
// epsilon overrides the relaxation tolerance; zero means graph.Epsilon.
// A relaxation counts only when it improves the label by more than the
// tolerance, so a coarse epsilon makes the detector blind to cycles
// whose per-arc improvements fall below it.
type BellmanFordDetector struct {
	epsilon float64
}

// tolerance returns the effective relaxation tolerance.
func (d *BellmanFordDetector) tolerance() float64 {
	if d.epsilon > 0 {
		return d.epsilon
	}
	return graph.Epsilon
}

// Name returns the strategy identifier.
func (d *BellmanFordDetector) Name() Strategy {
	return StrategyBellmanFord
}

// FindCycle searches the residual network for any negative-cost cycle.
//
// Arcs are relaxed in the deterministic order of AllArcs(), so the same
// cycle is reported on every run for the same residual.
//
// Context cancellation is checked every 100 relaxation passes; a
// canceled call returns ErrContextCanceled.
func (d *BellmanFordDetector) FindCycle(ctx context.Context, r *graph.Residual) ([]int64, bool, error) {
	nodes := r.SortedNodes()
	n := len(nodes)
	if n == 0 {
		return nil, false, nil
	}

	arcs := r.AllArcs()
	if len(arcs) == 0 {
		return nil, false, nil
	}

	eps := d.tolerance()

	// Virtual source seeding: every node starts at distance 0.
	dist := make(map[int64]float64, n)
	pred := make(map[int64]int64, n)
	for _, node := range nodes {
		dist[node] = 0
		pred[node] = -1
	}

	const checkInterval = 100

	for i := 0; i < n; i++ {
		if i%checkInterval == 0 {
			select {
			case <-ctx.Done():
				return nil, false, ErrContextCanceled
			default:
			}
		}

		updated := false
		for _, arc := range arcs {
			if dist[arc.From]+arc.Cost < dist[arc.To]-eps {
				dist[arc.To] = dist[arc.From] + arc.Cost
				pred[arc.To] = arc.From
				updated = true
			}
		}
		// No updates means the labels converged and no cycle exists
		if !updated {
			return nil, false, nil
		}
	}

	// Detection pass: a still-relaxable arc lies on or leads to a cycle
	var entry int64 = -1
	for _, arc := range arcs {
		if dist[arc.From]+arc.Cost < dist[arc.To]-eps {
			pred[arc.To] = arc.From
			entry = arc.To
			break
		}
	}
	if entry == -1 {
		return nil, false, nil
	}

	// The predecessor chain from entry has a tail that leads into the
	// cycle. Walking back |V| steps is guaranteed to land on the cycle.
	on := entry
	for i := 0; i < n; i++ {
		on = pred[on]
	}

	// Collect the cycle by following predecessors until the start node
	// repeats, then reverse into forward arc order and close it.
	reversed := []int64{on}
	for u := pred[on]; u != on; u = pred[u] {
		reversed = append(reversed, u)
	}

	cycle := make([]int64, 0, len(reversed)+1)
	for i := len(reversed) - 1; i >= 0; i-- {
		cycle = append(cycle, reversed[i])
	}
	cycle = append(cycle, cycle[0])

	return cycle, true, nil
}
