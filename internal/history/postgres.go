package history

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flowmesh/mincostflow/pkg/database"
	"github.com/flowmesh/mincostflow/pkg/telemetry"
)

// PostgresRepository PostgreSQL реализация Repository
type PostgresRepository struct {
	db database.DB
}

// NewPostgresRepository создаёт новый репозиторий
func NewPostgresRepository(db database.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rec *SolveRecord) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRepository.Create")
	defer span.End()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	query := `
		INSERT INTO solve_records (
			id, graph_name, graph_hash, strategy, status,
			flow_value, total_cost, augmenting_paths, cancellations,
			node_count, edge_count, computation_time_ms, cache_hit,
			error_message, request_data, result_data
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query,
		rec.ID,
		rec.GraphName,
		rec.GraphHash,
		rec.Strategy,
		rec.Status,
		rec.FlowValue,
		rec.TotalCost,
		rec.AugmentingPaths,
		rec.Cancellations,
		rec.NodeCount,
		rec.EdgeCount,
		rec.ComputationTimeMs,
		rec.CacheHit,
		rec.ErrorMessage,
		rec.RequestData,
		rec.ResultData,
	).Scan(&rec.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create solve record: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*SolveRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRepository.GetByID")
	defer span.End()

	query := `
		SELECT
			id, graph_name, graph_hash, strategy, status,
			flow_value, total_cost, augmenting_paths, cancellations,
			node_count, edge_count, computation_time_ms, cache_hit,
			error_message, request_data, result_data, created_at
		FROM solve_records
		WHERE id = $1
	`

	rec := &SolveRecord{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rec.ID,
		&rec.GraphName,
		&rec.GraphHash,
		&rec.Strategy,
		&rec.Status,
		&rec.FlowValue,
		&rec.TotalCost,
		&rec.AugmentingPaths,
		&rec.Cancellations,
		&rec.NodeCount,
		&rec.EdgeCount,
		&rec.ComputationTimeMs,
		&rec.CacheHit,
		&rec.ErrorMessage,
		&rec.RequestData,
		&rec.ResultData,
		&rec.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get solve record: %w", err)
	}

	return rec, nil
}

func (r *PostgresRepository) List(ctx context.Context, opts *ListOptions) ([]*SolveRecordSummary, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRepository.List")
	defer span.End()

	if opts == nil {
		opts = &ListOptions{Limit: 20, Offset: 0, Sort: SortByCreatedDesc}
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}

	where, args := buildWhereClause(opts.Filter)

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM solve_records WHERE %s`, where)
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count solve records: %w", err)
	}

	orderBy := buildOrderBy(opts.Sort)

	selectQuery := fmt.Sprintf(`
		SELECT
			id, graph_name, graph_hash, strategy, status,
			flow_value, total_cost, node_count, edge_count,
			computation_time_ms, cache_hit, created_at
		FROM solve_records
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, where, orderBy, len(args)+1, len(args)+2)

	args = append(args, opts.Limit, opts.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list solve records: %w", err)
	}
	defer rows.Close()

	var results []*SolveRecordSummary
	for rows.Next() {
		summary := &SolveRecordSummary{}
		err := rows.Scan(
			&summary.ID,
			&summary.GraphName,
			&summary.GraphHash,
			&summary.Strategy,
			&summary.Status,
			&summary.FlowValue,
			&summary.TotalCost,
			&summary.NodeCount,
			&summary.EdgeCount,
			&summary.ComputationTimeMs,
			&summary.CacheHit,
			&summary.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan solve record: %w", err)
		}
		results = append(results, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	return results, total, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRepository.Delete")
	defer span.End()

	query := `DELETE FROM solve_records WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete solve record: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrRecordNotFound
	}

	return nil
}

func buildWhereClause(filter *ListFilter) (string, []any) {
	conditions := []string{"TRUE"}
	args := []any{}
	argNum := 1

	if filter != nil {
		if filter.Strategy != "" {
			conditions = append(conditions, fmt.Sprintf("strategy = $%d", argNum))
			args = append(args, filter.Strategy)
			argNum++
		}

		if filter.Status != "" {
			conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
			args = append(args, filter.Status)
			argNum++
		}

		if filter.GraphHash != "" {
			conditions = append(conditions, fmt.Sprintf("graph_hash = $%d", argNum))
			args = append(args, filter.GraphHash)
			argNum++
		}

		if filter.StartTime != nil {
			conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argNum))
			args = append(args, *filter.StartTime)
			argNum++
		}

		if filter.EndTime != nil {
			conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argNum))
			args = append(args, *filter.EndTime)
		}
	}

	return strings.Join(conditions, " AND "), args
}

func buildOrderBy(sort SortOrder) string {
	switch sort {
	case SortByCreatedAsc:
		return "created_at ASC"
	case SortByFlowDesc:
		return "flow_value DESC"
	case SortByTotalCostDesc:
		return "total_cost DESC"
	default:
		return "created_at DESC"
	}
}
