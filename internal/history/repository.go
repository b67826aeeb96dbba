// Package history хранит записи о выполненных решениях задачи
// о потоке минимальной стоимости.
package history

import (
	"context"
	"errors"
	"time"
)

// Стандартные ошибки
var (
	ErrRecordNotFound = errors.New("solve record not found")
)

// Статусы записи
const (
	StatusOptimal = "optimal"
	StatusFailed  = "failed"
)

// SolveRecord модель выполненного решения
type SolveRecord struct {
	ID                string
	GraphName         string
	GraphHash         string
	Strategy          string
	Status            string
	FlowValue         float64
	TotalCost         float64
	AugmentingPaths   int
	Cancellations     int
	NodeCount         int
	EdgeCount         int
	ComputationTimeMs float64
	CacheHit          bool
	ErrorMessage      string
	RequestData       []byte // JSON
	ResultData        []byte // JSON
	CreatedAt         time.Time
}

// SolveRecordSummary краткая информация о решении
type SolveRecordSummary struct {
	ID                string
	GraphName         string
	GraphHash         string
	Strategy          string
	Status            string
	FlowValue         float64
	TotalCost         float64
	NodeCount         int
	EdgeCount         int
	ComputationTimeMs float64
	CacheHit          bool
	CreatedAt         time.Time
}

// ListFilter фильтры для списка
type ListFilter struct {
	Strategy  string
	Status    string
	GraphHash string
	StartTime *time.Time
	EndTime   *time.Time
}

// SortOrder порядок сортировки
type SortOrder string

const (
	SortByCreatedDesc   SortOrder = "created_desc"
	SortByCreatedAsc    SortOrder = "created_asc"
	SortByFlowDesc      SortOrder = "flow_desc"
	SortByTotalCostDesc SortOrder = "cost_desc"
)

// ListOptions опции для списка
type ListOptions struct {
	Limit  int
	Offset int
	Filter *ListFilter
	Sort   SortOrder
}

// Repository интерфейс репозитория решений
type Repository interface {
	// Create сохраняет запись. Пустой ID заполняется при сохранении.
	Create(ctx context.Context, rec *SolveRecord) error
	// GetByID возвращает запись по идентификатору.
	// Возвращает ErrRecordNotFound если записи нет.
	GetByID(ctx context.Context, id string) (*SolveRecord, error)
	// List возвращает страницу кратких записей и общее количество.
	List(ctx context.Context, opts *ListOptions) ([]*SolveRecordSummary, int64, error)
	// Delete удаляет запись.
	// Возвращает ErrRecordNotFound если записи нет.
	Delete(ctx context.Context, id string) error
}
