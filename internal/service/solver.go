// Package service оркестрирует решение задачи о потоке минимальной
// стоимости: валидация, кэш, пул решателей, метрики и история.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowmesh/mincostflow/internal/algorithms"
	"github.com/flowmesh/mincostflow/internal/history"
	"github.com/flowmesh/mincostflow/pkg/apperror"
	"github.com/flowmesh/mincostflow/pkg/cache"
	"github.com/flowmesh/mincostflow/pkg/config"
	"github.com/flowmesh/mincostflow/pkg/domain"
	"github.com/flowmesh/mincostflow/pkg/logger"
	"github.com/flowmesh/mincostflow/pkg/metrics"
	"github.com/flowmesh/mincostflow/pkg/telemetry"
)

// SolveInput входные данные для решения
type SolveInput struct {
	Graph     *domain.Graph
	GraphName string
	// Strategy пустая строка означает стратегию из конфигурации
	Strategy string
	// Переопределения опций решателя. Нулевые значения не действуют.
	Epsilon        float64
	MaxIterations  int
	TimeoutSeconds float64
	// SkipCache выключает кэш для этого запроса
	SkipCache bool
	// AllowNegativeCosts разрешает рёбра с отрицательной стоимостью
	// независимо от настройки сервиса
	AllowNegativeCosts bool
}

// SolveOutput результат решения
type SolveOutput struct {
	SolveID  string
	CacheHit bool
	Result   *cache.CachedSolveResult
}

// SolverService сервис решения задач о потоке минимальной стоимости
type SolverService struct {
	cfg         *config.SolverConfig
	pool        *algorithms.SolverPool
	metrics     *metrics.Metrics
	solverCache *cache.SolverCache
	repo        history.Repository
}

// NewSolverService создаёт сервис. solverCache и repo могут быть nil,
// тогда кэширование и история отключены.
func NewSolverService(cfg *config.SolverConfig, solverCache *cache.SolverCache, repo history.Repository) *SolverService {
	return &SolverService{
		cfg:         cfg,
		pool:        algorithms.NewSolverPool(cfg.MaxConcurrent),
		metrics:     metrics.Get(),
		solverCache: solverCache,
		repo:        repo,
	}
}

// PoolStats возвращает занятость и ёмкость пула решателя.
// Используется коллектором метрик.
func (s *SolverService) PoolStats() (inUse, capacity int) {
	return s.pool.InUse(), s.pool.Capacity()
}

// Solve решает задачу для данного графа
func (s *SolverService) Solve(ctx context.Context, input *SolveInput) (*SolveOutput, error) {
	strategy, err := s.resolveStrategy(input.Strategy)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "SolverService.Solve",
		trace.WithAttributes(
			attribute.String("solver.strategy", string(strategy)),
		),
	)
	defer span.End()

	if err := s.validateInput(ctx, input); err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	g := input.Graph
	telemetry.SetAttributes(ctx,
		telemetry.GraphAttributes(g.NodeCount(), g.EdgeCount(), g.SourceID, g.SinkID)...)

	if s.metrics != nil {
		s.metrics.RecordGraphSize("solve", g.NodeCount(), g.EdgeCount())
	}

	// Проверяем кэш. Переопределение epsilon меняет численный результат,
	// поэтому такие запросы идут мимо кэша.
	useCache := s.solverCache != nil && !input.SkipCache && input.Epsilon == 0
	if useCache {
		cached, found, err := s.solverCache.Get(ctx, g, string(strategy))
		if s.metrics != nil {
			s.metrics.RecordCacheRequest(found)
		}
		if err != nil {
			logger.Log.Warn("Cache lookup failed", "error", err)
		}
		if found {
			telemetry.AddEvent(ctx, "cache_hit",
				attribute.Float64("solver.flow_value", cached.FlowValue),
			)
			span.SetAttributes(attribute.Bool("solver.cache_hit", true))

			solveID := s.record(ctx, input, string(strategy), cached, true, nil)
			return &SolveOutput{
				SolveID:  solveID,
				CacheHit: true,
				Result:   cached,
			}, nil
		}
	}
	span.SetAttributes(attribute.Bool("solver.cache_hit", false))

	if err := s.pool.Acquire(ctx); err != nil {
		return nil, ctxAppError(err)
	}
	defer s.pool.Release()

	start := time.Now()
	result := algorithms.Solve(ctx, g, s.buildOptions(input, strategy))
	elapsed := time.Since(start)

	if s.metrics != nil {
		s.metrics.RecordSolveOperation(string(strategy), result.Error == nil, elapsed, result.FlowValue)
		s.metrics.RecordSolveCounters(string(strategy), result.AugmentingPaths, result.Cancellations)
	}

	if result.Error != nil {
		appErr := mapSolverError(result.Error)
		telemetry.SetError(ctx, appErr)
		s.record(ctx, input, string(strategy), nil, false, appErr)
		return nil, appErr
	}

	telemetry.SetAttributes(ctx, telemetry.SolveAttributes(
		string(strategy),
		result.AugmentingPaths,
		result.Cancellations,
		result.FlowValue,
		result.TotalCost,
	)...)

	cached := cache.BuildResult(g, result.Flow, string(strategy),
		result.AugmentingPaths, result.Cancellations, elapsed)

	if useCache {
		if err := s.solverCache.Set(ctx, g, string(strategy), cached, 0); err != nil {
			logger.Log.Warn("Failed to cache solve result", "error", err)
		}
	}

	solveID := s.record(ctx, input, string(strategy), cached, false, nil)

	logger.Log.Info("Solve completed",
		"solve_id", solveID,
		"strategy", string(strategy),
		"flow_value", result.FlowValue,
		"total_cost", result.TotalCost,
		"augmenting_paths", result.AugmentingPaths,
		"cancellations", result.Cancellations,
		"duration_ms", float64(elapsed.Microseconds())/1000.0,
	)

	return &SolveOutput{
		SolveID:  solveID,
		CacheHit: false,
		Result:   cached,
	}, nil
}

// GetSolve возвращает сохранённую запись решения
func (s *SolverService) GetSolve(ctx context.Context, id string) (*history.SolveRecord, error) {
	if s.repo == nil {
		return nil, apperror.ErrNotFound
	}

	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, history.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to load solve record")
	}
	return rec, nil
}

// ListSolves возвращает страницу сохранённых решений
func (s *SolverService) ListSolves(ctx context.Context, opts *history.ListOptions) ([]*history.SolveRecordSummary, int64, error) {
	if s.repo == nil {
		return nil, 0, nil
	}

	results, total, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, 0, apperror.Wrap(err, apperror.CodeInternal, "failed to list solve records")
	}
	return results, total, nil
}

// DeleteSolve удаляет сохранённую запись решения
func (s *SolverService) DeleteSolve(ctx context.Context, id string) error {
	if s.repo == nil {
		return apperror.ErrNotFound
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, history.ErrRecordNotFound) {
			return apperror.ErrNotFound
		}
		return apperror.Wrap(err, apperror.CodeInternal, "failed to delete solve record")
	}
	return nil
}

// Strategies возвращает описания доступных стратегий
func (s *SolverService) Strategies() []*algorithms.StrategyInfo {
	return algorithms.AllStrategies()
}

func (s *SolverService) resolveStrategy(raw string) (algorithms.Strategy, error) {
	if raw == "" {
		raw = s.cfg.DefaultStrategy
	}
	strategy, err := algorithms.ParseStrategy(raw)
	if err != nil {
		return "", apperror.New(apperror.CodeInvalidStrategy, "unknown strategy: "+raw).
			WithField("strategy")
	}
	return strategy, nil
}

func (s *SolverService) validateInput(ctx context.Context, input *SolveInput) error {
	g := input.Graph
	if g == nil {
		return apperror.ErrNilGraph
	}
	if g.NodeCount() == 0 {
		return apperror.ErrEmptyGraph
	}

	vErrs := apperror.NewValidationErrors()

	if s.cfg.MaxNodes > 0 && g.NodeCount() > s.cfg.MaxNodes {
		vErrs.AddErrorWithField(apperror.CodeInvalidGraph, "graph exceeds node limit", "nodes")
	}
	if s.cfg.MaxEdges > 0 && g.EdgeCount() > s.cfg.MaxEdges {
		vErrs.AddErrorWithField(apperror.CodeInvalidGraph, "graph exceeds edge limit", "edges")
	}

	var structural []error
	if s.cfg.AllowNegativeCosts || input.AllowNegativeCosts {
		structural = g.ValidateAllowNegativeCost()
	} else {
		structural = g.Validate()
	}
	for _, err := range structural {
		vErrs.AddError(apperror.CodeInvalidGraph, err.Error())
	}

	telemetry.SetAttributes(ctx,
		telemetry.ValidationAttributes(len(vErrs.Errors), vErrs.IsValid())...)

	if !vErrs.IsValid() {
		return apperror.New(apperror.CodeInvalidGraph, "graph validation failed").
			WithDetails("errors", vErrs.ErrorMessages())
	}

	return nil
}

func (s *SolverService) buildOptions(input *SolveInput, strategy algorithms.Strategy) *algorithms.SolverOptions {
	opts := algorithms.DefaultSolverOptions().
		WithStrategy(strategy).
		WithSelfCheck(s.cfg.SelfCheck)

	if s.cfg.Timeout > 0 {
		opts = opts.WithTimeout(s.cfg.Timeout)
	}
	if s.cfg.MaxIterations > 0 {
		opts = opts.WithMaxIterations(s.cfg.MaxIterations)
	}

	if input.Epsilon > 0 {
		opts = opts.WithEpsilon(input.Epsilon)
	}
	if input.MaxIterations > 0 {
		opts = opts.WithMaxIterations(input.MaxIterations)
	}
	if input.TimeoutSeconds > 0 {
		opts = opts.WithTimeout(time.Duration(input.TimeoutSeconds * float64(time.Second)))
	}

	return opts
}

// record сохраняет запись в историю. Ошибки записи логируются и не
// прерывают запрос.
func (s *SolverService) record(ctx context.Context, input *SolveInput, strategy string, result *cache.CachedSolveResult, cacheHit bool, solveErr error) string {
	if s.repo == nil {
		return ""
	}

	rec := &history.SolveRecord{
		GraphName: input.GraphName,
		GraphHash: cache.GraphHash(input.Graph),
		Strategy:  strategy,
		NodeCount: input.Graph.NodeCount(),
		EdgeCount: input.Graph.EdgeCount(),
		CacheHit:  cacheHit,
	}

	if solveErr != nil {
		rec.Status = history.StatusFailed
		rec.ErrorMessage = solveErr.Error()
	} else {
		rec.Status = history.StatusOptimal
		rec.FlowValue = result.FlowValue
		rec.TotalCost = result.TotalCost
		rec.AugmentingPaths = result.AugmentingPaths
		rec.Cancellations = result.Cancellations
		rec.ComputationTimeMs = result.ComputationTimeMs

		if data, err := json.Marshal(result); err == nil {
			rec.ResultData = data
		}
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		logger.Log.Warn("Failed to record solve history", "error", err)
		return ""
	}

	return rec.ID
}

// mapSolverError переводит ошибки решателя в ошибки приложения
func mapSolverError(err error) error {
	switch {
	case errors.Is(err, algorithms.ErrTimeout):
		return apperror.Wrap(err, apperror.CodeTimeout, "solve timed out")
	case errors.Is(err, algorithms.ErrContextCanceled):
		return apperror.Wrap(err, apperror.CodeCanceled, "solve canceled")
	case errors.Is(err, algorithms.ErrMaxIterations):
		return apperror.Wrap(err, apperror.CodeIterationLimit, "iteration limit exceeded")
	case errors.Is(err, algorithms.ErrUnknownStrategy):
		return apperror.Wrap(err, apperror.CodeInvalidStrategy, "unknown strategy")
	case errors.Is(err, algorithms.ErrNilGraph):
		return apperror.ErrNilGraph
	case errors.Is(err, algorithms.ErrSourceNotFound):
		return apperror.ErrInvalidSource
	case errors.Is(err, algorithms.ErrSinkNotFound):
		return apperror.ErrInvalidSink
	case errors.Is(err, algorithms.ErrSourceEqualSink):
		return apperror.ErrSourceEqualsSink
	case errors.Is(err, algorithms.ErrSelfCheckFailed):
		return apperror.Wrap(err, apperror.CodeSelfCheckFailure, "self check failed")
	case errors.Is(err, algorithms.ErrInconsistentResidual):
		return apperror.Wrap(err, apperror.CodeConsistencyFault, "residual network inconsistency")
	default:
		return apperror.Wrap(err, apperror.CodeAlgorithmError, "solve failed")
	}
}

func ctxAppError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.Wrap(err, apperror.CodeTimeout, "timed out waiting for solver slot")
	}
	return apperror.Wrap(err, apperror.CodeCanceled, "canceled waiting for solver slot")
}
