package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Стандартные ключи атрибутов
const (
	// Граф
	AttrGraphNodes    = "graph.nodes"
	AttrGraphEdges    = "graph.edges"
	AttrGraphSourceID = "graph.source_id"
	AttrGraphSinkID   = "graph.sink_id"

	// Решатель
	AttrStrategy        = "solver.strategy"
	AttrFlowValue       = "solver.flow_value"
	AttrTotalCost       = "solver.total_cost"
	AttrAugmentingPaths = "solver.augmenting_paths"
	AttrCancellations   = "solver.cancellations"
	AttrCacheHit        = "solver.cache_hit"

	// Валидация
	AttrValidationErrors = "validation.errors"
	AttrValidationPassed = "validation.passed"
)

// GraphAttributes возвращает атрибуты графа
func GraphAttributes(nodes, edges int, sourceID, sinkID int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrGraphNodes, nodes),
		attribute.Int(AttrGraphEdges, edges),
		attribute.Int64(AttrGraphSourceID, sourceID),
		attribute.Int64(AttrGraphSinkID, sinkID),
	}
}

// SolveAttributes возвращает атрибуты решения
func SolveAttributes(strategy string, augmentingPaths, cancellations int, flowValue, totalCost float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrStrategy, strategy),
		attribute.Int(AttrAugmentingPaths, augmentingPaths),
		attribute.Int(AttrCancellations, cancellations),
		attribute.Float64(AttrFlowValue, flowValue),
		attribute.Float64(AttrTotalCost, totalCost),
	}
}

// ValidationAttributes возвращает атрибуты валидации
func ValidationAttributes(errorsCount int, passed bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrValidationErrors, errorsCount),
		attribute.Bool(AttrValidationPassed, passed),
	}
}
