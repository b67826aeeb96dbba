// Package algorithms implements the cycle-cancelling minimum-cost flow
// engine: an Edmonds-Karp max-flow initializer, pluggable negative-cycle
// detectors and the cancellation driver, with support for context
// cancellation and deterministic execution.
package algorithms

import (
	"context"
	"fmt"

	"github.com/flowmesh/mincostflow/internal/graph"
)

// =============================================================================
// Detector Strategy
// =============================================================================

// Strategy identifies a negative-cycle detection strategy.
type Strategy string

const (
	// StrategyBellmanFord detects any negative-cost cycle via label
	// relaxation. O(V×E) per call.
	StrategyBellmanFord Strategy = "bellman-ford"

	// StrategyKarp detects the minimum mean-cost cycle via Karp's
	// dynamic program. O(V×E) per call with an O(V²) table.
	StrategyKarp Strategy = "karp"
)

// CycleDetector finds a negative-cost cycle in a residual network.
//
// Implementations are read-only over the residual and idempotent:
// running a detector twice on the same residual yields the same answer,
// and a residual with no negative cycle always yields found == false.
//
// The returned cycle is closed: first and last node IDs are equal.
type CycleDetector interface {
	// Name returns the strategy identifier.
	Name() Strategy

	// FindCycle searches r for a negative-cost cycle.
	FindCycle(ctx context.Context, r *graph.Residual) (cycle []int64, found bool, err error)
}

// NewDetector returns the detector for the given strategy.
//
// epsilon is the comparison tolerance the detector uses when deciding
// whether a cycle's cost is negative. A non-positive epsilon selects the
// detector's own default (graph.Epsilon for Bellman-Ford, KarpEpsilon
// for Karp).
func NewDetector(s Strategy, epsilon float64) (CycleDetector, error) {
	switch s {
	case StrategyBellmanFord, "":
		return &BellmanFordDetector{epsilon: epsilon}, nil
	case StrategyKarp:
		return &KarpDetector{epsilon: epsilon}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// ParseStrategy converts a string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyBellmanFord:
		return StrategyBellmanFord, nil
	case StrategyKarp:
		return StrategyKarp, nil
	case "":
		return StrategyBellmanFord, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// =============================================================================
// Strategy Information
// =============================================================================

// StrategyInfo provides metadata about a detection strategy.
//
// Use GetStrategyInfo() or AllStrategies() to retrieve this information
// for displaying to users or for strategy selection logic.
type StrategyInfo struct {
	// Strategy is the strategy identifier.
	Strategy Strategy

	// Name is the human-readable name.
	Name string

	// Description is a brief description of the detection method.
	Description string

	// TimeComplexity is the Big-O time complexity per detection call.
	TimeComplexity string

	// SpaceComplexity is the Big-O space complexity.
	SpaceComplexity string

	// BestFor lists scenarios where this strategy excels.
	BestFor []string

	// Caveats lists potential issues or limitations.
	Caveats []string
}

// GetStrategyInfo returns detailed information about a specific strategy.
//
// Returns nil for unknown strategies.
func GetStrategyInfo(s Strategy) *StrategyInfo {
	infos := map[Strategy]*StrategyInfo{
		StrategyBellmanFord: {
			Strategy:        StrategyBellmanFord,
			Name:            "Bellman-Ford",
			Description:     "Label relaxation over all residual arcs; reports an arbitrary negative cycle",
			TimeComplexity:  "O(V × E)",
			SpaceComplexity: "O(V)",
			BestFor:         []string{"sparse_graphs", "few_cancellations"},
			Caveats:         []string{"The reported cycle is not necessarily the most profitable one"},
		},
		StrategyKarp: {
			Strategy:        StrategyKarp,
			Name:            "Karp minimum mean cycle",
			Description:     "Dynamic program over walk lengths; reports the cycle with minimum mean cost",
			TimeComplexity:  "O(V × E)",
			SpaceComplexity: "O(V²)",
			BestFor:         []string{"fewer_total_cancellations", "strongly_negative_cycles_first"},
			Caveats:         []string{"O(V²) table makes single calls heavier than Bellman-Ford"},
		},
	}
	return infos[s]
}

// AllStrategies returns information about all available strategies
// in a stable order suitable for display.
func AllStrategies() []*StrategyInfo {
	var infos []*StrategyInfo
	for _, s := range []Strategy{StrategyBellmanFord, StrategyKarp} {
		if info := GetStrategyInfo(s); info != nil {
			infos = append(infos, info)
		}
	}
	return infos
}
