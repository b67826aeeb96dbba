package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/flowmesh/mincostflow/pkg/domain"
)

// GraphHash вычисляет хеш графа для использования как ключ кэша
func GraphHash(g *domain.Graph) string {
	if g == nil {
		return ""
	}

	data := graphToCanonical(g)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

// graphToCanonical создаёт детерминированное представление графа.
// Имена узлов и метаданные не влияют на результат решения и в хеш
// не входят.
func graphToCanonical(g *domain.Graph) []byte {
	var result []byte

	// Источник и сток
	result = append(result, []byte(fmt.Sprintf("s:%d,t:%d;", g.SourceID, g.SinkID))...)

	// Узлы в порядке возрастания ID
	for _, id := range g.SortedNodeIDs() {
		result = append(result, []byte(fmt.Sprintf("n:%d;", id))...)
	}

	// Рёбра в порядке (from, to)
	for _, key := range g.SortedEdgeKeys() {
		e := g.Edges[key]
		result = append(result, []byte(fmt.Sprintf("e:%d:%d:%.6f:%.6f;",
			e.From, e.To, e.Capacity, e.Cost))...)
	}

	return result
}

// BuildSolveKey строит ключ кэша для результата решения
func BuildSolveKey(graphHash, strategy string) string {
	return fmt.Sprintf("solve:%s:%s", strategy, graphHash)
}

// QuickHash быстрый хеш для произвольных данных
func QuickHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ShortHash короткий хеш (16 символов)
func ShortHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}
