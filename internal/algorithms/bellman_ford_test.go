package algorithms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/mincostflow/internal/graph"
	"github.com/flowmesh/mincostflow/pkg/domain"
)

// cycleCost суммирует стоимость цикла по самым дешёвым дугам
func cycleCost(t *testing.T, r *graph.Residual, cycle []int64) float64 {
	t.Helper()
	var total float64
	for i := 0; i+1 < len(cycle); i++ {
		arc := r.Cheapest(cycle[i], cycle[i+1])
		require.NotNil(t, arc, "cycle hop %d->%d has no residual arc", cycle[i], cycle[i+1])
		total += arc.Cost
	}
	return total
}

func requireClosedNegativeCycle(t *testing.T, r *graph.Residual, cycle []int64) {
	t.Helper()
	require.GreaterOrEqual(t, len(cycle), 3)
	require.Equal(t, cycle[0], cycle[len(cycle)-1], "cycle must be closed")
	assert.Less(t, cycleCost(t, r, cycle), 0.0)
}

func TestBellmanFordDetector_NoCycleOnPositiveCosts(t *testing.T) {
	g := buildSmallNetwork(t)
	r := graph.BuildResidual(g, domain.NewFlowAssignment())

	d := &BellmanFordDetector{}
	cycle, found, err := d.FindCycle(context.Background(), r)

	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, cycle)
}

func TestBellmanFordDetector_FindsLatentCycleAfterMaxFlow(t *testing.T) {
	g := buildSmallNetwork(t)
	mf := EdmondsKarp(g)
	require.InDelta(t, 6.0, mf.FlowValue, 1e-9)

	r := graph.BuildResidual(g, mf.Flow)

	d := &BellmanFordDetector{}
	cycle, found, err := d.FindCycle(context.Background(), r)

	require.NoError(t, err)
	require.True(t, found, "expected the back arc of 1->3 to expose a negative cycle")
	requireClosedNegativeCycle(t, r, cycle)
}

func TestBellmanFordDetector_CoarseEpsilonIgnoresShallowCycle(t *testing.T) {
	g := buildSmallNetwork(t)
	mf := EdmondsKarp(g)
	r := graph.BuildResidual(g, mf.Flow)

	// Допуск по умолчанию цикл стоимостью -2 видит.
	cycle, found, err := (&BellmanFordDetector{}).FindCycle(context.Background(), r)
	require.NoError(t, err)
	require.True(t, found)
	requireClosedNegativeCycle(t, r, cycle)

	// Допуск 3 грубее улучшения цикла: релаксации глохнут и цикл
	// остаётся незамеченным.
	d := &BellmanFordDetector{epsilon: 3}
	_, found, err = d.FindCycle(context.Background(), r)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBellmanFordDetector_FindsCycleOnNegativeEdge(t *testing.T) {
	g := buildNegativeEdgeNetwork(t)
	r := graph.BuildResidual(g, domain.NewFlowAssignment())

	d := &BellmanFordDetector{}
	cycle, found, err := d.FindCycle(context.Background(), r)

	require.NoError(t, err)
	require.True(t, found)
	requireClosedNegativeCycle(t, r, cycle)
}

func TestBellmanFordDetector_ScansDisconnectedComponents(t *testing.T) {
	// Цикл 5 -> 6 -> 7 -> 5 стоимостью -3 недостижим из источника.
	// Посев всех узлов нулевой дистанцией обязан его найти.
	g := buildIsolatedCycleNetwork(t)
	r := graph.BuildResidual(g, domain.NewFlowAssignment())

	d := &BellmanFordDetector{}
	cycle, found, err := d.FindCycle(context.Background(), r)

	require.NoError(t, err)
	require.True(t, found)
	requireClosedNegativeCycle(t, r, cycle)

	for _, node := range cycle {
		assert.Contains(t, []int64{5, 6, 7}, node)
	}
}

func TestBellmanFordDetector_ZeroMeanCycleIgnored(t *testing.T) {
	// Цикл 1 -> 2 -> 1 со стоимостью ровно 0 не подлежит отмене
	g := buildNetwork(t, 1, 2, [][4]float64{
		{1, 2, 5, 1},
		{2, 1, 5, -1},
	})
	r := graph.BuildResidual(g, domain.NewFlowAssignment())

	d := &BellmanFordDetector{}
	_, found, err := d.FindCycle(context.Background(), r)

	require.NoError(t, err)
	assert.False(t, found)
}

func TestBellmanFordDetector_EmptyResidual(t *testing.T) {
	d := &BellmanFordDetector{}
	_, found, err := d.FindCycle(context.Background(), graph.NewResidual())

	require.NoError(t, err)
	assert.False(t, found)
}

func TestBellmanFordDetector_Deterministic(t *testing.T) {
	g := buildIsolatedCycleNetwork(t)

	d := &BellmanFordDetector{}
	r := graph.BuildResidual(g, domain.NewFlowAssignment())
	first, found, err := d.FindCycle(context.Background(), r)
	require.NoError(t, err)
	require.True(t, found)

	for i := 0; i < 5; i++ {
		r = graph.BuildResidual(g, domain.NewFlowAssignment())
		again, found, err := d.FindCycle(context.Background(), r)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, first, again)
	}
}

func TestBellmanFordDetector_Idempotent(t *testing.T) {
	g := buildNegativeEdgeNetwork(t)
	r := graph.BuildResidual(g, domain.NewFlowAssignment())

	d := &BellmanFordDetector{}
	first, found1, err1 := d.FindCycle(context.Background(), r)
	second, found2, err2 := d.FindCycle(context.Background(), r)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, found1, found2)
	assert.Equal(t, first, second)
}
