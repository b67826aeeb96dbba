package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flowmesh/mincostflow/internal/history"
	"github.com/flowmesh/mincostflow/internal/service"
	"github.com/flowmesh/mincostflow/pkg/apperror"
	"github.com/flowmesh/mincostflow/pkg/domain"
	"github.com/flowmesh/mincostflow/pkg/logger"
)

// ============================================================
// DTO
// ============================================================

// NodeDTO узел графа
type NodeDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// EdgeDTO ребро графа
type EdgeDTO struct {
	From     int64   `json:"from"`
	To       int64   `json:"to"`
	Capacity float64 `json:"capacity"`
	Cost     float64 `json:"cost"`
}

// GraphDTO транспортная сеть
type GraphDTO struct {
	Name     string    `json:"name,omitempty"`
	SourceID int64     `json:"source_id"`
	SinkID   int64     `json:"sink_id"`
	Nodes    []NodeDTO `json:"nodes"`
	Edges    []EdgeDTO `json:"edges"`
}

// SolveOptionsDTO переопределения опций решателя
type SolveOptionsDTO struct {
	Epsilon        float64 `json:"epsilon,omitempty"`
	MaxIterations  int     `json:"max_iterations,omitempty"`
	TimeoutSeconds float64 `json:"timeout_seconds,omitempty"`
}

// SolveRequest запрос на решение
type SolveRequest struct {
	Graph              *GraphDTO        `json:"graph"`
	Strategy           string           `json:"strategy,omitempty"`
	Options            *SolveOptionsDTO `json:"options,omitempty"`
	SkipCache          bool             `json:"skip_cache,omitempty"`
	AllowNegativeCosts bool             `json:"allow_negative_costs,omitempty"`
}

// FlowEdgeDTO ребро с назначенным потоком
type FlowEdgeDTO struct {
	From        int64   `json:"from"`
	To          int64   `json:"to"`
	Flow        float64 `json:"flow"`
	Capacity    float64 `json:"capacity"`
	Utilization float64 `json:"utilization"`
}

// SolveResponse результат решения
type SolveResponse struct {
	SolveID           string        `json:"solve_id,omitempty"`
	CacheHit          bool          `json:"cache_hit"`
	Strategy          string        `json:"strategy"`
	FlowValue         float64       `json:"flow_value"`
	TotalCost         float64       `json:"total_cost"`
	AugmentingPaths   int           `json:"augmenting_paths"`
	Cancellations     int           `json:"cancellations"`
	ComputationTimeMs float64       `json:"computation_time_ms"`
	Edges             []FlowEdgeDTO `json:"edges"`
}

// StrategyDTO описание стратегии
type StrategyDTO struct {
	Strategy        string   `json:"strategy"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	TimeComplexity  string   `json:"time_complexity"`
	SpaceComplexity string   `json:"space_complexity"`
	BestFor         []string `json:"best_for,omitempty"`
	Caveats         []string `json:"caveats,omitempty"`
}

// SolveRecordDTO сохранённая запись решения
type SolveRecordDTO struct {
	ID                string    `json:"id"`
	GraphName         string    `json:"graph_name,omitempty"`
	GraphHash         string    `json:"graph_hash"`
	Strategy          string    `json:"strategy"`
	Status            string    `json:"status"`
	FlowValue         float64   `json:"flow_value"`
	TotalCost         float64   `json:"total_cost"`
	AugmentingPaths   int       `json:"augmenting_paths"`
	Cancellations     int       `json:"cancellations"`
	NodeCount         int       `json:"node_count"`
	EdgeCount         int       `json:"edge_count"`
	ComputationTimeMs float64   `json:"computation_time_ms"`
	CacheHit          bool      `json:"cache_hit"`
	ErrorMessage      string    `json:"error_message,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// SolveListResponse страница записей
type SolveListResponse struct {
	Total   int64             `json:"total"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
	Records []*SolveRecordDTO `json:"records"`
}

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody детали ошибки
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ============================================================
// HANDLERS
// ============================================================

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Server.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)
	}

	var req SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.New(apperror.CodeInvalidArgument, "invalid request body: "+err.Error()))
		return
	}
	if req.Graph == nil {
		writeError(w, apperror.ErrNilGraph)
		return
	}

	input := &service.SolveInput{
		Graph:              toDomainGraph(req.Graph),
		GraphName:          req.Graph.Name,
		Strategy:           req.Strategy,
		SkipCache:          req.SkipCache,
		AllowNegativeCosts: req.AllowNegativeCosts,
	}
	if req.Options != nil {
		input.Epsilon = req.Options.Epsilon
		input.MaxIterations = req.Options.MaxIterations
		input.TimeoutSeconds = req.Options.TimeoutSeconds
	}

	out, err := s.solver.Solve(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSolveResponse(out))
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	infos := s.solver.Strategies()

	dtos := make([]*StrategyDTO, 0, len(infos))
	for _, info := range infos {
		dtos = append(dtos, &StrategyDTO{
			Strategy:        string(info.Strategy),
			Name:            info.Name,
			Description:     info.Description,
			TimeComplexity:  info.TimeComplexity,
			SpaceComplexity: info.SpaceComplexity,
			BestFor:         info.BestFor,
			Caveats:         info.Caveats,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"strategies": dtos})
}

func (s *Server) handleGetSolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := s.solver.GetSolve(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSolveRecordDTO(rec))
}

func (s *Server) handleListSolves(w http.ResponseWriter, r *http.Request) {
	opts := listOptionsFromQuery(r)

	records, total, err := s.solver.ListSolves(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}

	dtos := make([]*SolveRecordDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, &SolveRecordDTO{
			ID:                rec.ID,
			GraphName:         rec.GraphName,
			GraphHash:         rec.GraphHash,
			Strategy:          rec.Strategy,
			Status:            rec.Status,
			FlowValue:         rec.FlowValue,
			TotalCost:         rec.TotalCost,
			NodeCount:         rec.NodeCount,
			EdgeCount:         rec.EdgeCount,
			ComputationTimeMs: rec.ComputationTimeMs,
			CacheHit:          rec.CacheHit,
			CreatedAt:         rec.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, &SolveListResponse{
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		Records: dtos,
	})
}

func (s *Server) handleDeleteSolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.solver.DeleteSolve(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.healthChecks))
	for name, fn := range s.healthChecks {
		if err := fn(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks[name] = "ok"
		}
	}

	body := map[string]any{
		"status": "ok",
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if len(checks) > 0 {
		body["checks"] = checks
	}

	writeJSON(w, status, body)
}

// ============================================================
// HELPERS
// ============================================================

func toDomainGraph(dto *GraphDTO) *domain.Graph {
	g := domain.NewGraph()
	g.Name = dto.Name
	g.SourceID = dto.SourceID
	g.SinkID = dto.SinkID

	for _, n := range dto.Nodes {
		g.AddNode(&domain.Node{ID: n.ID, Name: n.Name})
	}
	for _, e := range dto.Edges {
		g.AddEdge(&domain.Edge{
			From:     e.From,
			To:       e.To,
			Capacity: e.Capacity,
			Cost:     e.Cost,
		})
	}

	return g
}

func toSolveResponse(out *service.SolveOutput) *SolveResponse {
	resp := &SolveResponse{
		SolveID:           out.SolveID,
		CacheHit:          out.CacheHit,
		Strategy:          out.Result.Strategy,
		FlowValue:         out.Result.FlowValue,
		TotalCost:         out.Result.TotalCost,
		AugmentingPaths:   out.Result.AugmentingPaths,
		Cancellations:     out.Result.Cancellations,
		ComputationTimeMs: out.Result.ComputationTimeMs,
		Edges:             make([]FlowEdgeDTO, 0, len(out.Result.FlowEdges)),
	}

	for _, e := range out.Result.FlowEdges {
		resp.Edges = append(resp.Edges, FlowEdgeDTO{
			From:        e.From,
			To:          e.To,
			Flow:        e.Flow,
			Capacity:    e.Capacity,
			Utilization: e.Utilization,
		})
	}

	return resp
}

func toSolveRecordDTO(rec *history.SolveRecord) *SolveRecordDTO {
	return &SolveRecordDTO{
		ID:                rec.ID,
		GraphName:         rec.GraphName,
		GraphHash:         rec.GraphHash,
		Strategy:          rec.Strategy,
		Status:            rec.Status,
		FlowValue:         rec.FlowValue,
		TotalCost:         rec.TotalCost,
		AugmentingPaths:   rec.AugmentingPaths,
		Cancellations:     rec.Cancellations,
		NodeCount:         rec.NodeCount,
		EdgeCount:         rec.EdgeCount,
		ComputationTimeMs: rec.ComputationTimeMs,
		CacheHit:          rec.CacheHit,
		ErrorMessage:      rec.ErrorMessage,
		CreatedAt:         rec.CreatedAt,
	}
}

func listOptionsFromQuery(r *http.Request) *history.ListOptions {
	q := r.URL.Query()

	opts := &history.ListOptions{
		Limit:  20,
		Offset: 0,
		Sort:   history.SortOrder(q.Get("sort")),
	}

	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		opts.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v >= 0 {
		opts.Offset = v
	}

	filter := &history.ListFilter{
		Strategy:  q.Get("strategy"),
		Status:    q.Get("status"),
		GraphHash: q.Get("graph_hash"),
	}
	if filter.Strategy != "" || filter.Status != "" || filter.GraphHash != "" {
		opts.Filter = filter
	}

	return opts
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Log.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	appErr := apperror.FromError(err)

	body := &ErrorResponse{
		Error: ErrorBody{
			Code:    string(appErr.Code),
			Message: appErr.Message,
			Details: appErr.Details,
		},
	}

	writeJSON(w, appErr.HTTPStatus(), body)
}
