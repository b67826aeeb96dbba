package algorithms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/mincostflow/pkg/domain"
)

func TestSuccessiveShortestPath(t *testing.T) {
	tests := []struct {
		name         string
		buildGraph   func(*testing.T) *domain.Graph
		expectedFlow float64
		expectedCost float64
	}{
		{
			name:         "small network",
			buildGraph:   buildSmallNetwork,
			expectedFlow: 6,
			expectedCost: 14,
		},
		{
			name:         "layered network",
			buildGraph:   buildLayeredNetwork,
			expectedFlow: 10,
			expectedCost: 50,
		},
		{
			name:         "disconnected sink",
			buildGraph:   buildDisconnectedNetwork,
			expectedFlow: 0,
			expectedCost: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.buildGraph(t)
			result := SuccessiveShortestPath(context.Background(), g)

			require.False(t, result.Canceled)
			assert.InDelta(t, tt.expectedFlow, result.FlowValue, 1e-9)
			assert.InDelta(t, tt.expectedCost, result.TotalCost, 1e-9)
			assert.Empty(t, result.Flow.CheckFeasible(g))
		})
	}
}

// Оба метода обязаны сходиться к одному значению и одной стоимости на
// сетях без отрицательных циклов.
func TestSuccessiveShortestPath_AgreesWithCycleCancelling(t *testing.T) {
	fixtures := []func(*testing.T) *domain.Graph{
		buildSmallNetwork,
		buildLayeredNetwork,
		buildDisconnectedNetwork,
	}

	for _, build := range fixtures {
		g := build(t)

		ref := SuccessiveShortestPath(context.Background(), g)
		cc := Solve(context.Background(), g, nil)

		require.NoError(t, cc.Error)
		assert.InDelta(t, ref.FlowValue, cc.FlowValue, 1e-9)
		assert.InDelta(t, ref.TotalCost, cc.TotalCost, 1e-9)
	}
}

func TestSuccessiveShortestPath_ContextCanceled(t *testing.T) {
	g := buildLayeredNetwork(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := SuccessiveShortestPath(ctx, g)
	assert.True(t, result.Canceled)
}
