package domain

import (
	"fmt"
	"sort"
	"sync"
)

// EdgeKey уникальный ключ ребра
type EdgeKey struct {
	From int64
	To   int64
}

// String возвращает строковое представление ключа ребра
func (e EdgeKey) String() string {
	return fmt.Sprintf("%d->%d", e.From, e.To)
}

// Node представляет узел сети
type Node struct {
	ID       int64
	Name     string
	Metadata map[string]string
}

// Clone создаёт глубокую копию узла
func (n *Node) Clone() *Node {
	clone := &Node{
		ID:       n.ID,
		Name:     n.Name,
		Metadata: make(map[string]string, len(n.Metadata)),
	}
	for k, v := range n.Metadata {
		clone.Metadata[k] = v
	}
	return clone
}

// Edge представляет дугу сети с пропускной способностью и стоимостью
// за единицу потока. На упорядоченную пару узлов допускается не более
// одного ребра; антипараллельные пары (u->v и v->u) допустимы.
type Edge struct {
	From     int64
	To       int64
	Capacity float64
	Cost     float64
}

// Clone создаёт глубокую копию ребра
func (e *Edge) Clone() *Edge {
	return &Edge{
		From:     e.From,
		To:       e.To,
		Capacity: e.Capacity,
		Cost:     e.Cost,
	}
}

// Key возвращает ключ ребра
func (e *Edge) Key() EdgeKey {
	return EdgeKey{From: e.From, To: e.To}
}

// Graph представляет транспортную сеть для задачи о потоке
// минимальной стоимости
type Graph struct {
	Nodes    map[int64]*Node
	Edges    map[EdgeKey]*Edge
	SourceID int64
	SinkID   int64
	Name     string

	// Индексы для быстрого доступа
	outgoing map[int64][]int64 // node -> list of neighbor nodes
	incoming map[int64][]int64 // node -> list of predecessor nodes

	mu sync.RWMutex
}

// NewGraph создаёт новый пустой граф
func NewGraph() *Graph {
	return &Graph{
		Nodes:    make(map[int64]*Node),
		Edges:    make(map[EdgeKey]*Edge),
		outgoing: make(map[int64][]int64),
		incoming: make(map[int64][]int64),
	}
}

// AddNode добавляет узел в граф
func (g *Graph) AddNode(node *Node) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Nodes[node.ID] = node
}

// AddEdge добавляет ребро в граф. Повторное добавление ребра с тем же
// ключом заменяет предыдущее.
func (g *Graph) AddEdge(edge *Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := edge.Key()
	if _, exists := g.Edges[key]; !exists {
		g.outgoing[edge.From] = append(g.outgoing[edge.From], edge.To)
		g.incoming[edge.To] = append(g.incoming[edge.To], edge.From)
	}
	g.Edges[key] = edge
}

// GetNode возвращает узел по ID
func (g *Graph) GetNode(id int64) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	node, ok := g.Nodes[id]
	return node, ok
}

// GetEdge возвращает ребро между двумя узлами
func (g *Graph) GetEdge(from, to int64) (*Edge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edge, ok := g.Edges[EdgeKey{From: from, To: to}]
	return edge, ok
}

// GetOutgoing возвращает исходящие соседи узла
func (g *Graph) GetOutgoing(nodeID int64) []int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.outgoing[nodeID]
}

// GetIncoming возвращает входящие соседи узла
func (g *Graph) GetIncoming(nodeID int64) []int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.incoming[nodeID]
}

// NodeCount возвращает количество узлов
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.Nodes)
}

// EdgeCount возвращает количество рёбер
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.Edges)
}

// SortedNodeIDs возвращает идентификаторы узлов по возрастанию.
// Детерминированный порядок обхода нужен алгоритмам.
func (g *Graph) SortedNodeIDs() []int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := make([]int64, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SortedEdgeKeys возвращает ключи рёбер в порядке (From, To)
func (g *Graph) SortedEdgeKeys() []EdgeKey {
	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := make([]EdgeKey, 0, len(g.Edges))
	for key := range g.Edges {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].From != keys[j].From {
			return keys[i].From < keys[j].From
		}
		return keys[i].To < keys[j].To
	})
	return keys
}

// Clone создаёт глубокую копию графа
func (g *Graph) Clone() *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	clone := NewGraph()
	clone.SourceID = g.SourceID
	clone.SinkID = g.SinkID
	clone.Name = g.Name

	for _, node := range g.Nodes {
		clone.Nodes[node.ID] = node.Clone()
	}

	for key, edge := range g.Edges {
		clone.Edges[key] = edge.Clone()
		clone.outgoing[edge.From] = append(clone.outgoing[edge.From], edge.To)
		clone.incoming[edge.To] = append(clone.incoming[edge.To], edge.From)
	}

	return clone
}

// Validate проверяет корректность графа и возвращает все найденные
// нарушения, а не только первое. Рёбра с отрицательной стоимостью
// отклоняются: это политика внешнего API, сами алгоритмы с ними
// работают (см. ValidateAllowNegativeCost).
func (g *Graph) Validate() []error {
	return g.validate(false)
}

// ValidateAllowNegativeCost проверяет граф, пропуская рёбра
// с отрицательной стоимостью
func (g *Graph) ValidateAllowNegativeCost() []error {
	return g.validate(true)
}

func (g *Graph) validate(allowNegativeCost bool) []error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	// Проверка source и sink
	if _, ok := g.Nodes[g.SourceID]; !ok {
		errs = append(errs, fmt.Errorf("source node %d not found", g.SourceID))
	}
	if _, ok := g.Nodes[g.SinkID]; !ok {
		errs = append(errs, fmt.Errorf("sink node %d not found", g.SinkID))
	}
	if g.SourceID == g.SinkID {
		errs = append(errs, fmt.Errorf("source and sink cannot be the same node"))
	}

	// Проверка рёбер
	for key, edge := range g.Edges {
		if _, ok := g.Nodes[edge.From]; !ok {
			errs = append(errs, fmt.Errorf("edge %s references non-existent node %d", key, edge.From))
		}
		if _, ok := g.Nodes[edge.To]; !ok {
			errs = append(errs, fmt.Errorf("edge %s references non-existent node %d", key, edge.To))
		}
		if edge.From == edge.To {
			errs = append(errs, fmt.Errorf("self-loop detected at node %d", edge.From))
		}
		if edge.Capacity < 0 {
			errs = append(errs, fmt.Errorf("edge %s has negative capacity", key))
		}
		if edge.Cost < 0 && !allowNegativeCost {
			errs = append(errs, fmt.Errorf("edge %s has negative cost", key))
		}
	}

	return errs
}
