package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/mincostflow/pkg/domain"
)

func buildBaseGraph(t *testing.T, source, sink int64, edges [][4]float64) *domain.Graph {
	t.Helper()
	g := domain.NewGraph()
	g.SourceID = source
	g.SinkID = sink
	seen := make(map[int64]bool)
	for _, e := range edges {
		for _, id := range []int64{int64(e[0]), int64(e[1])} {
			if !seen[id] {
				g.AddNode(&domain.Node{ID: id})
				seen[id] = true
			}
		}
		g.AddEdge(&domain.Edge{
			From:     int64(e[0]),
			To:       int64(e[1]),
			Capacity: e[2],
			Cost:     e[3],
		})
	}
	return g
}

func TestBuildResidual_ZeroFlow(t *testing.T) {
	g := buildBaseGraph(t, 0, 2, [][4]float64{
		{0, 1, 10, 1},
		{1, 2, 5, 2},
	})

	r := BuildResidual(g, domain.NewFlowAssignment())

	require.Equal(t, 3, r.NodeCount())
	// Без потока обратных дуг нет
	require.Equal(t, 2, r.ArcCount())

	arc := r.Cheapest(0, 1)
	require.NotNil(t, arc)
	assert.Equal(t, 10.0, arc.Capacity)
	assert.Equal(t, 1.0, arc.Cost)
	assert.False(t, arc.Backward)

	assert.Nil(t, r.Cheapest(1, 0))
}

func TestBuildResidual_WithFlow(t *testing.T) {
	g := buildBaseGraph(t, 0, 2, [][4]float64{
		{0, 1, 10, 3},
		{1, 2, 10, 1},
	})

	flow := domain.NewFlowAssignment()
	flow.Add(0, 1, 4)
	flow.Add(1, 2, 4)

	r := BuildResidual(g, flow)

	fwd := r.Cheapest(0, 1)
	require.NotNil(t, fwd)
	assert.InDelta(t, 6.0, fwd.Capacity, Epsilon)
	assert.Equal(t, 3.0, fwd.Cost)

	bwd := r.Cheapest(1, 0)
	require.NotNil(t, bwd)
	assert.InDelta(t, 4.0, bwd.Capacity, Epsilon)
	assert.Equal(t, -3.0, bwd.Cost)
	assert.True(t, bwd.Backward)
}

func TestBuildResidual_SaturatedEdge(t *testing.T) {
	g := buildBaseGraph(t, 0, 1, [][4]float64{
		{0, 1, 5, 2},
	})

	flow := domain.NewFlowAssignment()
	flow.Add(0, 1, 5)

	r := BuildResidual(g, flow)

	// Насыщенное ребро не даёт прямой дуги
	assert.Nil(t, r.Cheapest(0, 1))

	bwd := r.Cheapest(1, 0)
	require.NotNil(t, bwd)
	assert.InDelta(t, 5.0, bwd.Capacity, Epsilon)
}

func TestBuildResidual_AntiParallelKeepsParallelArcs(t *testing.T) {
	// Базовые рёбра 1->2 и 2->1: при потоке по 2->1 на паре (1,2)
	// оказываются две РАЗНЫЕ дуги: прямая для 1->2 и обратная для 2->1.
	g := buildBaseGraph(t, 1, 2, [][4]float64{
		{1, 2, 10, 5},
		{2, 1, 8, 3},
	})

	flow := domain.NewFlowAssignment()
	flow.Add(2, 1, 4)

	r := BuildResidual(g, flow)

	arcs := r.Arcs(1, 2)
	require.Len(t, arcs, 2)

	var forward, backward *Arc
	for _, arc := range arcs {
		if arc.Backward {
			backward = arc
		} else {
			forward = arc
		}
	}
	require.NotNil(t, forward)
	require.NotNil(t, backward)

	assert.Equal(t, 10.0, forward.Capacity)
	assert.Equal(t, 5.0, forward.Cost)

	assert.InDelta(t, 4.0, backward.Capacity, Epsilon)
	assert.Equal(t, -3.0, backward.Cost)

	// Cheapest выбирает обратную дугу с отрицательной стоимостью
	cheapest := r.Cheapest(1, 2)
	assert.True(t, cheapest.Backward)
	assert.Equal(t, -3.0, cheapest.Cost)
}

func TestBuildResidual_IsolatedNodesKept(t *testing.T) {
	g := buildBaseGraph(t, 0, 1, [][4]float64{
		{0, 1, 1, 1},
	})
	g.AddNode(&domain.Node{ID: 42})

	r := BuildResidual(g, domain.NewFlowAssignment())

	assert.True(t, r.HasNode(42))
	assert.Empty(t, r.Out(42))
}

func TestResidual_SortedNodes(t *testing.T) {
	g := buildBaseGraph(t, 0, 3, [][4]float64{
		{3, 1, 1, 1},
		{0, 2, 1, 1},
	})

	r := BuildResidual(g, domain.NewFlowAssignment())

	assert.Equal(t, []int64{0, 1, 2, 3}, r.SortedNodes())
}

func TestResidual_AllArcsDeterministic(t *testing.T) {
	g := buildBaseGraph(t, 0, 3, [][4]float64{
		{2, 3, 1, 1},
		{0, 1, 1, 1},
		{0, 2, 1, 1},
		{1, 3, 1, 1},
	})

	r := BuildResidual(g, domain.NewFlowAssignment())
	first := r.AllArcs()

	for i := 0; i < 5; i++ {
		again := BuildResidual(g, domain.NewFlowAssignment()).AllArcs()
		require.Len(t, again, len(first))
		for j := range first {
			assert.Equal(t, first[j].From, again[j].From)
			assert.Equal(t, first[j].To, again[j].To)
		}
	}
}

func TestArc_BaseEdge(t *testing.T) {
	fwd := &Arc{From: 1, To: 2, Backward: false}
	key, sign := fwd.BaseEdge()
	assert.Equal(t, domain.EdgeKey{From: 1, To: 2}, key)
	assert.Equal(t, 1.0, sign)

	bwd := &Arc{From: 2, To: 1, Backward: true}
	key, sign = bwd.BaseEdge()
	assert.Equal(t, domain.EdgeKey{From: 1, To: 2}, key)
	assert.Equal(t, -1.0, sign)
}
