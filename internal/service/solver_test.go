package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/mincostflow/internal/algorithms"
	"github.com/flowmesh/mincostflow/internal/history"
	"github.com/flowmesh/mincostflow/pkg/apperror"
	"github.com/flowmesh/mincostflow/pkg/cache"
	"github.com/flowmesh/mincostflow/pkg/config"
	"github.com/flowmesh/mincostflow/pkg/domain"
	"github.com/flowmesh/mincostflow/pkg/logger"
)

func TestMain(m *testing.M) {
	// Инициализируем логгер для тестов
	logger.Init("error")

	os.Exit(m.Run())
}

func testSolverConfig() *config.SolverConfig {
	return &config.SolverConfig{
		DefaultStrategy: "bellman-ford",
		Timeout:         30 * time.Second,
		MaxConcurrent:   4,
		SelfCheck:       true,
	}
}

func newTestService(t *testing.T, cfg *config.SolverConfig) (*SolverService, *history.MemoryRepository) {
	t.Helper()
	if cfg == nil {
		cfg = testSolverConfig()
	}

	memCache := cache.NewMemoryCache(nil)
	t.Cleanup(func() { memCache.Close() })

	repo := history.NewMemoryRepository()
	svc := NewSolverService(cfg, cache.NewSolverCache(memCache, time.Minute), repo)
	return svc, repo
}

// buildGraph собирает граф из списка рёбер (from, to, capacity, cost)
func buildGraph(t *testing.T, source, sink int64, edges [][4]float64) *domain.Graph {
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

// 4 узла, максимальный поток 6, минимальная стоимость 14
func buildSupplyGraph(t *testing.T) *domain.Graph {
	return buildGraph(t, 0, 3, [][4]float64{
		{0, 1, 2, 1},
		{0, 2, 4, 1},
		{1, 2, 3, 1},
		{1, 3, 1, 4},
		{2, 3, 6, 1},
	})
}

func TestSolverService_Solve_Success(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()

	out, err := svc.Solve(ctx, &SolveInput{
		Graph:     buildSupplyGraph(t),
		GraphName: "supply",
	})

	require.NoError(t, err)
	assert.False(t, out.CacheHit)
	assert.NotEmpty(t, out.SolveID)
	assert.Equal(t, 6.0, out.Result.FlowValue)
	assert.Equal(t, 14.0, out.Result.TotalCost)
	assert.Equal(t, "bellman-ford", out.Result.Strategy)
	assert.NotEmpty(t, out.Result.FlowEdges)

	rec, err := repo.GetByID(ctx, out.SolveID)
	require.NoError(t, err)
	assert.Equal(t, history.StatusOptimal, rec.Status)
	assert.Equal(t, 6.0, rec.FlowValue)
	assert.Equal(t, "supply", rec.GraphName)
	assert.False(t, rec.CacheHit)
	assert.NotEmpty(t, rec.ResultData)
}

func TestSolverService_Solve_CacheHit(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()

	first, err := svc.Solve(ctx, &SolveInput{Graph: buildSupplyGraph(t)})
	require.NoError(t, err)
	require.False(t, first.CacheHit)

	second, err := svc.Solve(ctx, &SolveInput{Graph: buildSupplyGraph(t)})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Result.FlowValue, second.Result.FlowValue)
	assert.Equal(t, first.Result.TotalCost, second.Result.TotalCost)

	// Обращение из кэша тоже попадает в историю
	rec, err := repo.GetByID(ctx, second.SolveID)
	require.NoError(t, err)
	assert.True(t, rec.CacheHit)
}

func TestSolverService_Solve_SkipCache(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Solve(ctx, &SolveInput{Graph: buildSupplyGraph(t)})
	require.NoError(t, err)

	out, err := svc.Solve(ctx, &SolveInput{
		Graph:     buildSupplyGraph(t),
		SkipCache: true,
	})
	require.NoError(t, err)
	assert.False(t, out.CacheHit)
}

func TestSolverService_Solve_EpsilonOverrideBypassesCache(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Solve(ctx, &SolveInput{Graph: buildSupplyGraph(t)})
	require.NoError(t, err)

	out, err := svc.Solve(ctx, &SolveInput{
		Graph:   buildSupplyGraph(t),
		Epsilon: 1e-6,
	})
	require.NoError(t, err)
	assert.False(t, out.CacheHit)
}

func TestSolverService_Solve_StrategySelection(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	out, err := svc.Solve(ctx, &SolveInput{
		Graph:    buildSupplyGraph(t),
		Strategy: "karp",
	})

	require.NoError(t, err)
	assert.Equal(t, "karp", out.Result.Strategy)
	assert.Equal(t, 6.0, out.Result.FlowValue)
	assert.Equal(t, 14.0, out.Result.TotalCost)
}

func TestSolverService_Solve_UnknownStrategy(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Solve(context.Background(), &SolveInput{
		Graph:    buildSupplyGraph(t),
		Strategy: "dijkstra",
	})

	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidStrategy))
}

func TestSolverService_Solve_NilGraph(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Solve(context.Background(), &SolveInput{Graph: nil})

	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeNilInput))
}

func TestSolverService_Solve_EmptyGraph(t *testing.T) {
	svc, _ := newTestService(t, nil)

	g := domain.NewGraph()
	_, err := svc.Solve(context.Background(), &SolveInput{Graph: g})

	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeEmptyGraph))
}

func TestSolverService_Solve_InvalidSource(t *testing.T) {
	svc, _ := newTestService(t, nil)

	g := buildSupplyGraph(t)
	g.SourceID = 99

	_, err := svc.Solve(context.Background(), &SolveInput{Graph: g})

	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidGraph))
}

func TestSolverService_Solve_NegativeCostPolicy(t *testing.T) {
	edges := [][4]float64{
		{0, 1, 1, 1},
		{1, 2, 2, 1},
		{2, 3, 1, 1},
		{2, 1, 1, -4},
	}

	t.Run("rejected by default", func(t *testing.T) {
		svc, _ := newTestService(t, nil)

		_, err := svc.Solve(context.Background(), &SolveInput{
			Graph: buildGraph(t, 0, 3, edges),
		})

		require.Error(t, err)
		assert.True(t, apperror.Is(err, apperror.CodeInvalidGraph))
	})

	t.Run("allowed when configured", func(t *testing.T) {
		cfg := testSolverConfig()
		cfg.AllowNegativeCosts = true
		svc, _ := newTestService(t, cfg)

		out, err := svc.Solve(context.Background(), &SolveInput{
			Graph: buildGraph(t, 0, 3, edges),
		})

		require.NoError(t, err)
		assert.Equal(t, 1.0, out.Result.FlowValue)
		assert.Equal(t, 0.0, out.Result.TotalCost)
	})

	t.Run("allowed per request", func(t *testing.T) {
		svc, _ := newTestService(t, nil)

		out, err := svc.Solve(context.Background(), &SolveInput{
			Graph:              buildGraph(t, 0, 3, edges),
			AllowNegativeCosts: true,
		})

		require.NoError(t, err)
		assert.Equal(t, 1.0, out.Result.FlowValue)
		assert.Equal(t, 0.0, out.Result.TotalCost)
	})
}

func TestSolverService_Solve_SizeLimits(t *testing.T) {
	cfg := testSolverConfig()
	cfg.MaxNodes = 2
	svc, _ := newTestService(t, cfg)

	_, err := svc.Solve(context.Background(), &SolveInput{
		Graph: buildSupplyGraph(t),
	})

	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidGraph))
}

func TestSolverService_Solve_IterationLimitRecorded(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()

	// Два увеличивающих пути нужны для максимального потока, лимит 1
	layered := buildGraph(t, 0, 5, [][4]float64{
		{0, 1, 10, 1},
		{1, 3, 5, 1},
		{1, 2, 10, 1},
		{3, 6, 10, 1},
		{3, 4, 5, 3},
		{6, 4, 10, 1},
		{2, 6, 10, 1},
		{2, 4, 7, 4},
		{4, 5, 15, 1},
	})

	_, err := svc.Solve(ctx, &SolveInput{
		Graph:         layered,
		MaxIterations: 1,
	})

	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeIterationLimit))

	// Неудачное решение тоже записано
	results, total, listErr := repo.List(ctx, nil)
	require.NoError(t, listErr)
	assert.Equal(t, int64(1), total)
	require.Len(t, results, 1)
	assert.Equal(t, history.StatusFailed, results[0].Status)
}

func TestMapSolverError_ConsistencyFault(t *testing.T) {
	// Рассогласование остаточной сети не тонет в общем ALGORITHM_ERROR
	err := mapSolverError(algorithms.ErrInconsistentResidual)
	assert.True(t, apperror.Is(err, apperror.CodeConsistencyFault))
}

func TestSolverService_Solve_ContextCanceled(t *testing.T) {
	svc, _ := newTestService(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Solve(ctx, &SolveInput{Graph: buildSupplyGraph(t)})

	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeCanceled))
}

func TestSolverService_GetSolve(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	out, err := svc.Solve(ctx, &SolveInput{Graph: buildSupplyGraph(t)})
	require.NoError(t, err)

	rec, err := svc.GetSolve(ctx, out.SolveID)
	require.NoError(t, err)
	assert.Equal(t, out.SolveID, rec.ID)
	assert.Equal(t, 6.0, rec.FlowValue)

	_, err = svc.GetSolve(ctx, "missing")
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
}

func TestSolverService_GetSolve_NoRepository(t *testing.T) {
	svc := NewSolverService(testSolverConfig(), nil, nil)

	_, err := svc.GetSolve(context.Background(), "any")
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
}

func TestSolverService_DeleteSolve(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	out, err := svc.Solve(ctx, &SolveInput{Graph: buildSupplyGraph(t)})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSolve(ctx, out.SolveID))

	_, err = svc.GetSolve(ctx, out.SolveID)
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))

	err = svc.DeleteSolve(ctx, out.SolveID)
	assert.True(t, apperror.Is(err, apperror.CodeNotFound))
}

func TestSolverService_ListSolves(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Solve(ctx, &SolveInput{Graph: buildSupplyGraph(t)})
	require.NoError(t, err)

	_, err = svc.Solve(ctx, &SolveInput{Graph: buildGraph(t, 0, 2, [][4]float64{
		{0, 1, 3, 1},
		{1, 2, 3, 2},
	})})
	require.NoError(t, err)

	results, total, err := svc.ListSolves(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, results, 2)
}

func TestSolverService_ListSolves_NoRepository(t *testing.T) {
	svc := NewSolverService(testSolverConfig(), nil, nil)

	results, total, err := svc.ListSolves(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, results)
}

func TestSolverService_Strategies(t *testing.T) {
	svc, _ := newTestService(t, nil)

	infos := svc.Strategies()
	require.Len(t, infos, 2)
	assert.Equal(t, "bellman-ford", string(infos[0].Strategy))
	assert.Equal(t, "karp", string(infos[1].Strategy))
}

func TestSolverService_Solve_NoCacheNoRepo(t *testing.T) {
	svc := NewSolverService(testSolverConfig(), nil, nil)

	out, err := svc.Solve(context.Background(), &SolveInput{Graph: buildSupplyGraph(t)})

	require.NoError(t, err)
	assert.Empty(t, out.SolveID)
	assert.Equal(t, 6.0, out.Result.FlowValue)
	assert.Equal(t, 14.0, out.Result.TotalCost)
}
