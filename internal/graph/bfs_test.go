package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/mincostflow/pkg/domain"
)

func TestQueue(t *testing.T) {
	q := NewQueue(4)

	if !q.Empty() {
		t.Error("new queue should be empty")
	}

	q.Push(1)
	q.Push(2)
	q.Push(3)

	if q.Len() != 3 {
		t.Errorf("expected len 3, got %d", q.Len())
	}

	if got := q.Pop(); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if got := q.Pop(); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}

	q.Reset()
	if !q.Empty() {
		t.Error("queue should be empty after Reset")
	}
}

func TestBFS_FindsPath(t *testing.T) {
	g := buildBaseGraph(t, 0, 3, [][4]float64{
		{0, 1, 5, 1},
		{1, 2, 5, 1},
		{2, 3, 5, 1},
	})

	r := BuildResidual(g, domain.NewFlowAssignment())
	result := BFS(r, 0, 3)

	require.True(t, result.Found)
	path := ReconstructPath(result.Parent, 0, 3)
	assert.Equal(t, []int64{0, 1, 2, 3}, path)
}

func TestBFS_PrefersShortestPath(t *testing.T) {
	// Два пути: 0->3 напрямую и 0->1->2->3
	g := buildBaseGraph(t, 0, 3, [][4]float64{
		{0, 1, 5, 1},
		{1, 2, 5, 1},
		{2, 3, 5, 1},
		{0, 3, 1, 10},
	})

	r := BuildResidual(g, domain.NewFlowAssignment())
	result := BFS(r, 0, 3)

	require.True(t, result.Found)
	path := ReconstructPath(result.Parent, 0, 3)
	assert.Equal(t, []int64{0, 3}, path)
}

func TestBFS_Disconnected(t *testing.T) {
	g := buildBaseGraph(t, 0, 3, [][4]float64{
		{0, 1, 5, 1},
		{2, 3, 5, 1},
	})

	r := BuildResidual(g, domain.NewFlowAssignment())
	result := BFS(r, 0, 3)

	assert.False(t, result.Found)
	assert.Nil(t, ReconstructPath(result.Parent, 0, 3))
}

func TestBFS_SkipsSaturatedArcs(t *testing.T) {
	g := buildBaseGraph(t, 0, 2, [][4]float64{
		{0, 1, 5, 1},
		{1, 2, 5, 1},
	})

	flow := domain.NewFlowAssignment()
	flow.Add(0, 1, 5)
	flow.Add(1, 2, 5)

	r := BuildResidual(g, flow)
	result := BFS(r, 0, 2)

	assert.False(t, result.Found)
}

func TestBFS_Deterministic(t *testing.T) {
	g := buildBaseGraph(t, 0, 4, [][4]float64{
		{0, 1, 5, 1},
		{0, 2, 5, 1},
		{0, 3, 5, 1},
		{1, 4, 5, 1},
		{2, 4, 5, 1},
		{3, 4, 5, 1},
	})

	r := BuildResidual(g, domain.NewFlowAssignment())
	first := ReconstructPath(BFS(r, 0, 4).Parent, 0, 4)

	for i := 0; i < 10; i++ {
		r = BuildResidual(g, domain.NewFlowAssignment())
		again := ReconstructPath(BFS(r, 0, 4).Parent, 0, 4)
		require.Equal(t, first, again)
	}
}
