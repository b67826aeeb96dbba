package domain

import "fmt"

// FlowAssignment хранит поток по рёбрам графа. Ключи соответствуют
// базовым рёбрам; отсутствие ключа означает нулевой поток.
type FlowAssignment map[EdgeKey]float64

// NewFlowAssignment создаёт пустое (нулевое) распределение потока
func NewFlowAssignment() FlowAssignment {
	return make(FlowAssignment)
}

// Clone создаёт глубокую копию распределения
func (f FlowAssignment) Clone() FlowAssignment {
	clone := make(FlowAssignment, len(f))
	for k, v := range f {
		clone[k] = v
	}
	return clone
}

// Get возвращает поток по ребру (0 для отсутствующего ключа)
func (f FlowAssignment) Get(from, to int64) float64 {
	return f[EdgeKey{From: from, To: to}]
}

// Add увеличивает поток по ребру на delta (delta может быть
// отрицательной при откате потока)
func (f FlowAssignment) Add(from, to int64, delta float64) {
	key := EdgeKey{From: from, To: to}
	v := f[key] + delta
	if IsZero(v) {
		delete(f, key)
		return
	}
	f[key] = v
}

// Value возвращает величину потока: чистый поток из источника
func (f FlowAssignment) Value(g *Graph) float64 {
	var total float64
	for key, v := range f {
		if key.From == g.SourceID {
			total += v
		}
		if key.To == g.SourceID {
			total -= v
		}
	}
	return total
}

// TotalCost возвращает суммарную стоимость потока
func (f FlowAssignment) TotalCost(g *Graph) float64 {
	var total float64
	for key, v := range f {
		if edge, ok := g.Edges[key]; ok {
			total += v * edge.Cost
		}
	}
	return total
}

// CheckFeasible проверяет инварианты потока: границы пропускной
// способности на каждом ребре и сохранение потока во всех узлах,
// кроме источника и стока. Возвращает все нарушения.
func (f FlowAssignment) CheckFeasible(g *Graph) []error {
	var errs []error

	balance := make(map[int64]float64)
	for key, v := range f {
		edge, ok := g.Edges[key]
		if !ok {
			errs = append(errs, fmt.Errorf("flow on unknown edge %s", key))
			continue
		}
		if FloatLess(v, 0) {
			errs = append(errs, fmt.Errorf("negative flow %.6f on edge %s", v, key))
		}
		if FloatGreater(v, edge.Capacity) {
			errs = append(errs, fmt.Errorf("flow %.6f exceeds capacity %.6f on edge %s", v, edge.Capacity, key))
		}
		balance[key.From] -= v
		balance[key.To] += v
	}

	for nodeID, b := range balance {
		if nodeID == g.SourceID || nodeID == g.SinkID {
			continue
		}
		if !IsZero(b) {
			errs = append(errs, fmt.Errorf("flow conservation violated at node %d: imbalance %.6f", nodeID, b))
		}
	}

	return errs
}
