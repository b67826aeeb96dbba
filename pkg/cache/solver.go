package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flowmesh/mincostflow/pkg/domain"
)

// SolverCache специализированный кэш для результатов решателя
type SolverCache struct {
	cache      Cache
	defaultTTL time.Duration
}

// CachedSolveResult кэшированный результат решения
type CachedSolveResult struct {
	FlowValue         float64          `json:"flow_value"`
	TotalCost         float64          `json:"total_cost"`
	Strategy          string           `json:"strategy"`
	AugmentingPaths   int              `json:"augmenting_paths"`
	Cancellations     int              `json:"cancellations"`
	ComputationTimeMs float64          `json:"computation_time_ms"`
	FlowEdges         []*FlowEdgeCache `json:"flow_edges,omitempty"`
	ComputedAt        time.Time        `json:"computed_at"`
}

// FlowEdgeCache кэшированное ребро с потоком
type FlowEdgeCache struct {
	From        int64   `json:"from"`
	To          int64   `json:"to"`
	Flow        float64 `json:"flow"`
	Capacity    float64 `json:"capacity"`
	Utilization float64 `json:"utilization"`
}

// NewSolverCache создаёт кэш для результатов решателя
func NewSolverCache(cache Cache, defaultTTL time.Duration) *SolverCache {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	return &SolverCache{
		cache:      cache,
		defaultTTL: defaultTTL,
	}
}

// Get получает кэшированный результат
func (sc *SolverCache) Get(ctx context.Context, graph *domain.Graph, strategy string) (*CachedSolveResult, bool, error) {
	graphHash := GraphHash(graph)
	key := BuildSolveKey(graphHash, strategy)

	data, err := sc.cache.Get(ctx, key)
	if err != nil {
		if err == ErrKeyNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}

	var result CachedSolveResult
	if err := json.Unmarshal(data, &result); err != nil {
		// Повреждённый кэш — удаляем, ошибку удаления игнорируем намеренно
		_ = sc.cache.Delete(ctx, key) //nolint:errcheck // best effort cleanup
		return nil, false, nil
	}

	return &result, true, nil
}

// Set сохраняет результат в кэш
func (sc *SolverCache) Set(ctx context.Context, graph *domain.Graph, strategy string, result *CachedSolveResult, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = sc.defaultTTL
	}

	graphHash := GraphHash(graph)
	key := BuildSolveKey(graphHash, strategy)

	result.ComputedAt = time.Now()

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return sc.cache.Set(ctx, key, data, ttl)
}

// BuildResult собирает кэшируемый результат из распределения потока.
// Сохраняются только рёбра с ненулевым потоком.
func BuildResult(graph *domain.Graph, flow domain.FlowAssignment, strategy string, augmentingPaths, cancellations int, elapsed time.Duration) *CachedSolveResult {
	result := &CachedSolveResult{
		FlowValue:         flow.Value(graph),
		TotalCost:         flow.TotalCost(graph),
		Strategy:          strategy,
		AugmentingPaths:   augmentingPaths,
		Cancellations:     cancellations,
		ComputationTimeMs: float64(elapsed.Microseconds()) / 1000.0,
	}

	for _, key := range graph.SortedEdgeKeys() {
		f := flow.Get(key.From, key.To)
		if f == 0 {
			continue
		}
		edge := graph.Edges[key]
		util := 0.0
		if edge.Capacity > 0 {
			util = f / edge.Capacity
		}
		result.FlowEdges = append(result.FlowEdges, &FlowEdgeCache{
			From:        key.From,
			To:          key.To,
			Flow:        f,
			Capacity:    edge.Capacity,
			Utilization: util,
		})
	}

	return result
}

// ToFlowAssignment восстанавливает распределение потока из кэша
func (r *CachedSolveResult) ToFlowAssignment() domain.FlowAssignment {
	flow := domain.NewFlowAssignment()
	for _, e := range r.FlowEdges {
		flow.Add(e.From, e.To, e.Flow)
	}
	return flow
}

// Invalidate удаляет кэш для графа
func (sc *SolverCache) Invalidate(ctx context.Context, graph *domain.Graph) error {
	graphHash := GraphHash(graph)
	pattern := fmt.Sprintf("solve:*:%s", graphHash)
	_, err := sc.cache.DeleteByPattern(ctx, pattern)
	return err
}

// InvalidateAll удаляет весь кэш результатов решателя
func (sc *SolverCache) InvalidateAll(ctx context.Context) (int64, error) {
	return sc.cache.DeleteByPattern(ctx, "solve:*")
}
