package algorithms

import (
	"fmt"

	"github.com/flowmesh/mincostflow/internal/graph"
	"github.com/flowmesh/mincostflow/pkg/domain"
)

// =============================================================================
// Cycle Cancellation
// =============================================================================

// CancelCycle pushes the bottleneck amount of flow around a closed
// residual cycle and applies the change to the flow assignment.
//
// Each hop of the cycle is resolved to the cheapest residual arc on that
// ordered pair, the same rule both detectors use, so the cancelled total
// stays negative even when a hop carries parallel arcs. The bottleneck
// is the minimum residual capacity over the chosen arcs.
//
// A detector-reported cycle always has positive bottleneck: residual
// arcs exist only with positive capacity. A missing arc or a
// non-positive bottleneck therefore indicates detector/residual
// disagreement and fails loudly with ErrInconsistentResidual rather than
// looping forever on a zero-effect cancellation.
//
// epsilon is the threshold below which a bottleneck counts as zero; a
// non-positive value selects graph.Epsilon.
//
// Returns the bottleneck amount on success.
func CancelCycle(r *graph.Residual, flow domain.FlowAssignment, cycle []int64, epsilon float64) (float64, error) {
	if epsilon <= 0 {
		epsilon = graph.Epsilon
	}
	if len(cycle) < 3 || cycle[0] != cycle[len(cycle)-1] {
		return 0, fmt.Errorf("%w: malformed cycle %v", ErrInconsistentResidual, cycle)
	}

	arcs := make([]*graph.Arc, 0, len(cycle)-1)
	bottleneck := graph.Infinity

	for i := 0; i+1 < len(cycle); i++ {
		arc := r.Cheapest(cycle[i], cycle[i+1])
		if arc == nil {
			return 0, fmt.Errorf("%w: no residual arc %d->%d on cycle %v",
				ErrInconsistentResidual, cycle[i], cycle[i+1], cycle)
		}
		arcs = append(arcs, arc)
		if arc.Capacity < bottleneck {
			bottleneck = arc.Capacity
		}
	}

	if bottleneck <= epsilon {
		return 0, fmt.Errorf("%w: non-positive bottleneck %.12f on cycle %v",
			ErrInconsistentResidual, bottleneck, cycle)
	}

	for _, arc := range arcs {
		key, sign := arc.BaseEdge()
		flow.Add(key.From, key.To, sign*bottleneck)
	}

	return bottleneck, nil
}
