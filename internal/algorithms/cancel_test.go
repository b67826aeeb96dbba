package algorithms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/mincostflow/internal/graph"
	"github.com/flowmesh/mincostflow/pkg/domain"
)

func TestCancelCycle_ReducesCost(t *testing.T) {
	g := buildSmallNetwork(t)
	mf := EdmondsKarp(g)
	require.InDelta(t, 6.0, mf.FlowValue, 1e-9)
	costBefore := mf.Flow.TotalCost(g)

	r := graph.BuildResidual(g, mf.Flow)
	d := &BellmanFordDetector{}
	cycle, found, err := d.FindCycle(context.Background(), r)
	require.NoError(t, err)
	require.True(t, found)

	bottleneck, err := CancelCycle(r, mf.Flow, cycle, 0)
	require.NoError(t, err)
	assert.Greater(t, bottleneck, 0.0)

	// Отмена не меняет величину потока и не ломает допустимость.
	assert.InDelta(t, 6.0, mf.Flow.Value(g), 1e-9)
	assert.Empty(t, mf.Flow.CheckFeasible(g))
	assert.Less(t, mf.Flow.TotalCost(g), costBefore)
}

func TestCancelCycle_AppliesBottleneck(t *testing.T) {
	g := buildNegativeEdgeNetwork(t)
	mf := EdmondsKarp(g)
	require.InDelta(t, 1.0, mf.FlowValue, 1e-9)

	r := graph.BuildResidual(g, mf.Flow)

	// Цикл 1 -> 2 -> 1: прямые дуги рёбер (1,2) и (2,1), узкое место 1.
	bottleneck, err := CancelCycle(r, mf.Flow, []int64{1, 2, 1}, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, bottleneck, 1e-9)

	assert.InDelta(t, 2.0, mf.Flow.Get(1, 2), 1e-9)
	assert.InDelta(t, 1.0, mf.Flow.Get(2, 1), 1e-9)
	assert.InDelta(t, 0.0, mf.Flow.TotalCost(g), 1e-9)
	assert.Empty(t, mf.Flow.CheckFeasible(g))
}

func TestCancelCycle_BackwardArcReducesBaseFlow(t *testing.T) {
	g := buildSmallNetwork(t)
	mf := EdmondsKarp(g)
	require.InDelta(t, 1.0, mf.Flow.Get(1, 3), 1e-9)

	r := graph.BuildResidual(g, mf.Flow)

	// Цикл 1 -> 2 -> 3 -> 1 гасится обратной дугой ребра (1,3).
	_, err := CancelCycle(r, mf.Flow, []int64{1, 2, 3, 1}, 0)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, mf.Flow.Get(1, 3), 1e-9)
	assert.InDelta(t, 14.0, mf.Flow.TotalCost(g), 1e-9)
}

func TestCancelCycle_MalformedCycle(t *testing.T) {
	g := buildSmallNetwork(t)
	flow := domain.NewFlowAssignment()
	r := graph.BuildResidual(g, flow)

	tests := []struct {
		name  string
		cycle []int64
	}{
		{name: "nil cycle", cycle: nil},
		{name: "too short", cycle: []int64{1, 1}},
		{name: "not closed", cycle: []int64{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CancelCycle(r, flow, tt.cycle, 0)
			require.ErrorIs(t, err, ErrInconsistentResidual)
		})
	}
}

func TestCancelCycle_MissingArc(t *testing.T) {
	g := buildSmallNetwork(t)
	flow := domain.NewFlowAssignment()
	r := graph.BuildResidual(g, flow)

	// Дуги 3 -> 0 в остаточной сети нет.
	_, err := CancelCycle(r, flow, []int64{0, 1, 3, 0}, 0)
	require.ErrorIs(t, err, ErrInconsistentResidual)
	assert.Empty(t, flow, "failed cancellation must not touch the assignment")
}
