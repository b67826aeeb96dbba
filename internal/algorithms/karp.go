package algorithms

import (
	"context"
	"fmt"

	"github.com/flowmesh/mincostflow/internal/graph"
)

// =============================================================================
// Karp Minimum Mean Cycle Detector
// =============================================================================
//
// Karp's theorem: with dp[k][v] the minimum cost of any k-arc walk ending
// at v (from a virtual source with zero-cost arcs to every node), the
// minimum cycle mean equals
//
//	μ* = min over v of  max over 0 ≤ k < n of  (dp[n][v] − dp[k][v]) / (n − k)
//
// A negative μ* proves a negative-cost cycle; the cycle itself appears as
// a repeated node on the parent walk of the minimizing entry (n, v*).
//
// Cancelling minimum-mean cycles first removes the most profitable cycles
// early and gives a strongly polynomial bound on the number of
// cancellations.
//
// Time Complexity: O(V × E)
// Space Complexity: O(V²)
//
// References:
//   - Karp, R.M. (1978). "A characterization of the minimum cycle mean
//     in a digraph"
//   - Goldberg, A.V., Tarjan, R.E. (1989). "Finding minimum-cost
//     circulations by canceling negative cycles"
// =============================================================================

// KarpEpsilon is the tolerance on the minimum cycle mean. The dynamic
// program accumulates up to |V| additions per entry, so the tolerance is
// tighter than the generic graph.Epsilon to avoid discarding shallow but
// genuine negative cycles.
const KarpEpsilon = 1e-11

// KarpDetector implements CycleDetector via Karp's minimum mean cycle
// dynamic program.
//
// epsilon overrides the tolerance on the minimum cycle mean; zero means
// KarpEpsilon. A coarse epsilon makes the detector ignore cycles whose
// mean cost is negative but above -epsilon.
type KarpDetector struct {
	epsilon float64
}

// tolerance returns the effective mean-cost tolerance.
func (d *KarpDetector) tolerance() float64 {
	if d.epsilon > 0 {
		return d.epsilon
	}
	return KarpEpsilon
}

// Name returns the strategy identifier.
func (d *KarpDetector) Name() Strategy {
	return StrategyKarp
}

// karpArc is an arc in the collapsed dense-index representation used by
// the dynamic program.
type karpArc struct {
	from, to int
	cost     float64
}

// FindCycle searches the residual network for the minimum mean-cost
// cycle and reports it when the mean is below the negated tolerance
// (KarpEpsilon unless overridden).
//
// Parallel residual arcs on the same ordered pair are collapsed to the
// cheapest one before the dynamic program runs: the minimum mean walk
// never benefits from a costlier parallel arc, and the cancellation step
// resolves pairs to the cheapest arc with the same rule.
func (d *KarpDetector) FindCycle(ctx context.Context, r *graph.Residual) ([]int64, bool, error) {
	nodes := r.SortedNodes()
	n := len(nodes)
	if n == 0 {
		return nil, false, nil
	}

	index := make(map[int64]int, n)
	for i, id := range nodes {
		index[id] = i
	}

	arcs := collapseParallelArcs(r, nodes, index)
	if len(arcs) == 0 {
		return nil, false, nil
	}

	// dp[k][v]: minimum cost of a k-arc walk ending at v.
	// parent[k][v]: predecessor of v on that walk.
	dp := make([][]float64, n+1)
	parent := make([][]int, n+1)
	for k := 0; k <= n; k++ {
		dp[k] = make([]float64, n)
		parent[k] = make([]int, n)
		for v := 0; v < n; v++ {
			dp[k][v] = graph.Infinity
			parent[k][v] = -1
		}
	}
	// Virtual source: every node reachable with an empty walk at cost 0.
	for v := 0; v < n; v++ {
		dp[0][v] = 0
	}

	const checkInterval = 100

	for k := 1; k <= n; k++ {
		if k%checkInterval == 0 {
			select {
			case <-ctx.Done():
				return nil, false, ErrContextCanceled
			default:
			}
		}

		for _, arc := range arcs {
			if dp[k-1][arc.from] >= graph.Infinity {
				continue
			}
			if cand := dp[k-1][arc.from] + arc.cost; cand < dp[k][arc.to] {
				dp[k][arc.to] = cand
				parent[k][arc.to] = arc.from
			}
		}
	}

	// Minimize over v the worst-case mean over prefix lengths.
	bestMean := graph.Infinity
	bestV := -1
	for v := 0; v < n; v++ {
		if dp[n][v] >= graph.Infinity {
			continue
		}
		maxRatio := -graph.Infinity
		for k := 0; k < n; k++ {
			if dp[k][v] >= graph.Infinity {
				continue
			}
			if ratio := (dp[n][v] - dp[k][v]) / float64(n-k); ratio > maxRatio {
				maxRatio = ratio
			}
		}
		if maxRatio > -graph.Infinity && maxRatio < bestMean {
			bestMean = maxRatio
			bestV = v
		}
	}

	if bestV == -1 || bestMean >= -d.tolerance() {
		return nil, false, nil
	}

	return reconstructMeanCycle(parent, nodes, bestV, n)
}

// collapseParallelArcs builds the dense arc list keeping only the
// cheapest arc per ordered pair. Iteration follows the deterministic
// Out() order, so the result is stable across runs.
func collapseParallelArcs(r *graph.Residual, nodes []int64, index map[int64]int) []karpArc {
	arcs := make([]karpArc, 0, r.ArcCount())
	for _, from := range nodes {
		best := make(map[int64]float64)
		var heads []int64
		for _, arc := range r.Out(from) {
			if cost, seen := best[arc.To]; !seen {
				best[arc.To] = arc.Cost
				heads = append(heads, arc.To)
			} else if arc.Cost < cost {
				best[arc.To] = arc.Cost
			}
		}
		for _, to := range heads {
			arcs = append(arcs, karpArc{
				from: index[from],
				to:   index[to],
				cost: best[to],
			})
		}
	}
	return arcs
}

// reconstructMeanCycle walks the parent layers down from (n, v) and
// extracts the segment between the first repeated node. The walk has
// n+1 entries over n distinct nodes, so a repeat always exists.
func reconstructMeanCycle(parent [][]int, nodes []int64, v, n int) ([]int64, bool, error) {
	walk := make([]int, 0, n+1)
	cur := v
	for k := n; k >= 0; k-- {
		walk = append(walk, cur)
		if k > 0 {
			cur = parent[k][cur]
			if cur == -1 {
				break
			}
		}
	}

	// walk is ordered from layer n down to the walk's start; reverse
	// into forward arc order before searching for the repeat.
	for i, j := 0, len(walk)-1; i < j; i, j = i+1, j-1 {
		walk[i], walk[j] = walk[j], walk[i]
	}

	seen := make(map[int]int, len(walk))
	for i, node := range walk {
		if j, ok := seen[node]; ok {
			segment := walk[j : i+1]
			cycle := make([]int64, len(segment))
			for k, idx := range segment {
				cycle[k] = nodes[idx]
			}
			return cycle, true, nil
		}
		seen[node] = i
	}

	return nil, false, fmt.Errorf("%w: no repeated node on minimum-mean walk", ErrInconsistentResidual)
}
