package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository in-memory реализация Repository.
// Используется когда подключение к базе не настроено.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*SolveRecord
}

// NewMemoryRepository создаёт новый in-memory репозиторий
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]*SolveRecord),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, rec *SolveRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.CreatedAt = time.Now()

	// Сохраняем копию
	stored := *rec
	r.records[rec.ID] = &stored

	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*SolveRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.records[id]
	if !exists {
		return nil, ErrRecordNotFound
	}

	// Возвращаем копию
	result := *rec
	return &result, nil
}

func (r *MemoryRepository) List(ctx context.Context, opts *ListOptions) ([]*SolveRecordSummary, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if opts == nil {
		opts = &ListOptions{Limit: 20, Offset: 0, Sort: SortByCreatedDesc}
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}

	var matched []*SolveRecord
	for _, rec := range r.records {
		if matchesFilter(rec, opts.Filter) {
			matched = append(matched, rec)
		}
	}

	sortRecords(matched, opts.Sort)

	total := int64(len(matched))

	start := opts.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + opts.Limit
	if end > len(matched) {
		end = len(matched)
	}

	results := make([]*SolveRecordSummary, 0, end-start)
	for _, rec := range matched[start:end] {
		results = append(results, &SolveRecordSummary{
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

	return results, total, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[id]; !exists {
		return ErrRecordNotFound
	}

	delete(r.records, id)
	return nil
}

func matchesFilter(rec *SolveRecord, filter *ListFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Strategy != "" && rec.Strategy != filter.Strategy {
		return false
	}
	if filter.Status != "" && rec.Status != filter.Status {
		return false
	}
	if filter.GraphHash != "" && rec.GraphHash != filter.GraphHash {
		return false
	}
	if filter.StartTime != nil && rec.CreatedAt.Before(*filter.StartTime) {
		return false
	}
	if filter.EndTime != nil && rec.CreatedAt.After(*filter.EndTime) {
		return false
	}
	return true
}

func sortRecords(records []*SolveRecord, order SortOrder) {
	switch order {
	case SortByCreatedAsc:
		sort.Slice(records, func(i, j int) bool {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		})
	case SortByFlowDesc:
		sort.Slice(records, func(i, j int) bool {
			return records[i].FlowValue > records[j].FlowValue
		})
	case SortByTotalCostDesc:
		sort.Slice(records, func(i, j int) bool {
			return records[i].TotalCost > records[j].TotalCost
		})
	default:
		sort.Slice(records, func(i, j int) bool {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		})
	}
}
