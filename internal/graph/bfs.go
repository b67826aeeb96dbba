// Package graph residual traversal.
//
// This file implements the deterministic Breadth-First Search used by
// the Edmonds-Karp max-flow initializer. The search only traverses arcs
// with positive residual capacity and terminates as soon as the sink is
// reached.
package graph

// BFSResult encapsulates the result of a BFS traversal.
type BFSResult struct {
	// Found reports whether the sink was reached.
	Found bool

	// Parent maps each visited node to its predecessor in the BFS tree.
	// The source maps to -1.
	Parent map[int64]int64

	// Visited is the set of nodes reached from the source.
	Visited map[int64]bool
}

// =============================================================================
// Queue Implementation
// =============================================================================

// Queue provides an efficient FIFO queue for BFS traversal.
// It uses a slice with a head pointer to avoid repeated allocations.
type Queue struct {
	data []int64 // Underlying storage
	head int     // Index of next element to dequeue
}

// NewQueue creates a new Queue with the specified initial capacity.
// The capacity should be set to the expected maximum queue size
// (typically the number of nodes in the graph).
func NewQueue(capacity int) *Queue {
	return &Queue{
		data: make([]int64, 0, capacity),
		head: 0,
	}
}

// Push adds an element to the end of the queue.
// Amortized O(1) time complexity.
func (q *Queue) Push(v int64) {
	q.data = append(q.data, v)
}

// Pop removes and returns the element at the front of the queue.
// O(1) time complexity.
//
// Panics if the queue is empty. Always check Empty() before calling Pop().
func (q *Queue) Pop() int64 {
	v := q.data[q.head]
	q.head++
	return v
}

// Empty returns true if the queue contains no elements.
func (q *Queue) Empty() bool {
	return q.head >= len(q.data)
}

// Len returns the number of elements currently in the queue.
func (q *Queue) Len() int {
	return len(q.data) - q.head
}

// Reset clears the queue for reuse, keeping the underlying capacity.
func (q *Queue) Reset() {
	q.data = q.data[:0]
	q.head = 0
}

// =============================================================================
// Deterministic BFS
// =============================================================================

// BFS performs breadth-first search from source to sink over arcs with
// positive residual capacity.
//
// The traversal uses Out(), which keeps arcs in sorted base-edge order,
// so the same augmenting path is found on every run regardless of Go's
// map iteration randomization.
//
// Time Complexity: O(V + E)
// Space Complexity: O(V)
func BFS(r *Residual, source, sink int64) *BFSResult {
	parent := make(map[int64]int64, r.NodeCount())
	visited := make(map[int64]bool, r.NodeCount())

	queue := NewQueue(r.NodeCount())
	queue.Push(source)
	visited[source] = true
	parent[source] = -1

	for !queue.Empty() {
		u := queue.Pop()

		for _, arc := range r.Out(u) {
			v := arc.To

			// Arcs carry positive capacity by construction, the guard
			// protects against accumulated rounding.
			if !visited[v] && arc.Capacity > Epsilon {
				parent[v] = u
				visited[v] = true
				queue.Push(v)

				// Early termination when sink is found
				if v == sink {
					return &BFSResult{
						Found:   true,
						Parent:  parent,
						Visited: visited,
					}
				}
			}
		}
	}

	return &BFSResult{
		Found:   false,
		Parent:  parent,
		Visited: visited,
	}
}

// ReconstructPath rebuilds the source→sink node path from a BFS parent
// map. Returns nil when the sink was not reached.
func ReconstructPath(parent map[int64]int64, source, sink int64) []int64 {
	if _, ok := parent[sink]; !ok {
		return nil
	}

	var path []int64
	for node := sink; ; {
		path = append([]int64{node}, path...)
		if node == source {
			break
		}
		prev, ok := parent[node]
		if !ok || prev == -1 {
			return nil
		}
		node = prev
	}
	return path
}
