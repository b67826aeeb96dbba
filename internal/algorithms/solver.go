// Cycle-cancelling driver.
//
// # Thread Safety
//
// Solve does not mutate the input graph: the flow lives in its own
// assignment and the residual is rebuilt per step. Concurrent Solve
// calls on the same graph are safe; use SolverPool to bound concurrency.
//
// # Determinism
//
// Every phase iterates nodes and arcs in sorted order, so repeated runs
// on the same graph produce identical flows, costs and counters.
package algorithms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowmesh/mincostflow/internal/graph"
	"github.com/flowmesh/mincostflow/pkg/domain"
)

// =============================================================================
// Error Definitions
// =============================================================================

// Standard errors returned by solver operations.
// These errors can be checked using errors.Is() for robust error handling.
var (
	// ErrNilGraph indicates that a nil graph was passed to a solver function.
	ErrNilGraph = errors.New("graph is nil")

	// ErrSourceNotFound indicates that the source node does not exist in the graph.
	ErrSourceNotFound = errors.New("source node not in graph")

	// ErrSinkNotFound indicates that the sink node does not exist in the graph.
	ErrSinkNotFound = errors.New("sink node not in graph")

	// ErrSourceEqualSink indicates that source and sink are the same node.
	ErrSourceEqualSink = errors.New("source equals sink")

	// ErrContextCanceled indicates that the operation was cancelled via context.
	ErrContextCanceled = errors.New("context canceled")

	// ErrTimeout indicates that the operation exceeded the configured timeout.
	ErrTimeout = errors.New("operation timeout")

	// ErrMaxIterations indicates that the cancellation loop hit the
	// configured iteration cap before converging.
	ErrMaxIterations = errors.New("cancellation iteration limit reached")

	// ErrUnknownStrategy indicates an unrecognized detector strategy.
	ErrUnknownStrategy = errors.New("unknown detector strategy")

	// ErrInconsistentResidual indicates disagreement between a detected
	// cycle and the residual network. This is an internal fault, never a
	// property of the input.
	ErrInconsistentResidual = errors.New("internal consistency fault: residual disagrees with detected cycle")

	// ErrSelfCheckFailed indicates that a post-cancellation invariant
	// check failed. Only possible with SelfCheck enabled.
	ErrSelfCheckFailed = errors.New("self-check failed after cancellation")
)

// =============================================================================
// Solve State
// =============================================================================

// SolveState tracks the phase of the cycle-cancelling driver.
//
// The driver moves strictly forward:
//
//	StateInit → StateMaxFlow → StateCancel → StateDone
//
// StateCancel loops internally (one detection plus one cancellation per
// pass) until no negative cycle remains.
type SolveState int

const (
	// StateInit validates the inputs.
	StateInit SolveState = iota

	// StateMaxFlow computes the cost-agnostic maximum flow.
	StateMaxFlow

	// StateCancel repeatedly detects and cancels negative cycles.
	StateCancel

	// StateDone is terminal: the flow is maximum and cost-optimal.
	StateDone
)

// String returns the state name.
func (s SolveState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateMaxFlow:
		return "maxflow"
	case StateCancel:
		return "cancel"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// =============================================================================
// Solver Options
// =============================================================================

// SolverOptions configures the behavior of the solver.
//
// Zero values are safe to use - DefaultSolverOptions() will be applied.
// Options can be chained using the builder pattern:
//
//	opts := DefaultSolverOptions().
//	    WithStrategy(StrategyKarp).
//	    WithTimeout(10 * time.Second)
type SolverOptions struct {
	// Epsilon is the tolerance for floating-point comparisons: it
	// governs the relaxation threshold of the cycle detectors and the
	// bottleneck checks of augmentation and cancellation. Bottlenecks
	// at or below Epsilon count as zero, and cycles whose improvement
	// falls within Epsilon are left uncancelled.
	// Non-positive values fall back to the defaults
	// (graph.Epsilon for comparisons, KarpEpsilon for Karp's mean).
	// Default: graph.Epsilon (1e-9)
	Epsilon float64

	// MaxIterations limits the number of cancellation iterations (and,
	// during initialization, augmenting path iterations).
	// Zero or negative means unlimited.
	// Default: 0 (unlimited)
	MaxIterations int

	// Timeout sets the maximum duration for the computation.
	// Zero means no timeout (relies on context).
	// Default: 30 seconds
	Timeout time.Duration

	// Strategy selects the negative-cycle detector.
	// Default: StrategyBellmanFord
	Strategy Strategy

	// SelfCheck verifies flow invariants (capacity bounds, conservation,
	// strict cost decrease) after every cancellation. Costs one
	// O(V + E) pass per cancellation.
	// Default: false
	SelfCheck bool
}

// DefaultSolverOptions returns options with sensible defaults for most use cases.
//
// Default values:
//   - Epsilon: 1e-9
//   - MaxIterations: unlimited
//   - Timeout: 30 seconds
//   - Strategy: bellman-ford
//   - SelfCheck: false
func DefaultSolverOptions() *SolverOptions {
	return &SolverOptions{
		Epsilon:       graph.Epsilon,
		MaxIterations: 0,
		Timeout:       30 * time.Second,
		Strategy:      StrategyBellmanFord,
		SelfCheck:     false,
	}
}

// WithTimeout sets the timeout and returns the options for chaining.
func (o *SolverOptions) WithTimeout(timeout time.Duration) *SolverOptions {
	o.Timeout = timeout
	return o
}

// WithMaxIterations sets the iteration limit and returns the options for chaining.
func (o *SolverOptions) WithMaxIterations(max int) *SolverOptions {
	o.MaxIterations = max
	return o
}

// WithStrategy sets the detector strategy and returns the options for chaining.
func (o *SolverOptions) WithStrategy(s Strategy) *SolverOptions {
	o.Strategy = s
	return o
}

// WithEpsilon sets the comparison tolerance and returns the options for chaining.
func (o *SolverOptions) WithEpsilon(eps float64) *SolverOptions {
	o.Epsilon = eps
	return o
}

// WithSelfCheck enables invariant verification and returns the options for chaining.
func (o *SolverOptions) WithSelfCheck(enabled bool) *SolverOptions {
	o.SelfCheck = enabled
	return o
}

// =============================================================================
// Solver Result
// =============================================================================

// SolverResult contains the complete result of a min-cost flow computation.
//
// Check Error first to determine if the result is valid:
//
//	result := Solve(ctx, g, nil)
//	if result.Error != nil {
//	    log.Printf("Failed: %v", result.Error)
//	    return
//	}
//	log.Printf("Flow: %f, Cost: %f", result.FlowValue, result.TotalCost)
type SolverResult struct {
	// Flow is the final flow assignment.
	Flow domain.FlowAssignment

	// FlowValue is the net flow out of the source.
	FlowValue float64

	// TotalCost is the total cost of the flow.
	TotalCost float64

	// AugmentingPaths is the number of augmentations in the max-flow phase.
	AugmentingPaths int

	// Cancellations is the number of negative cycles cancelled.
	Cancellations int

	// Strategy is the detector strategy that was used.
	Strategy Strategy

	// State is the final driver state. StateDone on success.
	State SolveState

	// Error contains any error that occurred during computation.
	// nil if State is StateDone.
	Error error

	// Duration is the wall-clock time taken by the computation.
	Duration time.Duration
}

// =============================================================================
// Validation
// =============================================================================

// validateGraph performs basic validation of the graph and source/sink nodes.
//
// Returns nil if the graph is valid, or a descriptive error otherwise.
// The error wraps one of the standard errors (ErrNilGraph, ErrSourceNotFound, etc.)
// for easy checking with errors.Is().
func validateGraph(g *domain.Graph) error {
	if g == nil {
		return ErrNilGraph
	}
	if _, ok := g.GetNode(g.SourceID); !ok {
		return fmt.Errorf("%w: %d", ErrSourceNotFound, g.SourceID)
	}
	if _, ok := g.GetNode(g.SinkID); !ok {
		return fmt.Errorf("%w: %d", ErrSinkNotFound, g.SinkID)
	}
	if g.SourceID == g.SinkID {
		return ErrSourceEqualSink
	}
	return nil
}

// =============================================================================
// Main Solver Entry Point
// =============================================================================

// Solve computes a minimum-cost maximum flow by cycle cancelling.
//
// The driver runs the state machine INIT → MAXFLOW → CANCEL → DONE:
// validate inputs, compute a cost-agnostic maximum flow with
// Edmonds-Karp, then repeatedly detect and cancel negative-cost residual
// cycles until none remain. By the negative-cycle optimality theorem the
// final flow is cost-optimal among all maximum flows.
//
// # Parameters
//
//   - ctx: Context for cancellation and timeout. Must not be nil.
//   - g: The input graph. Not modified.
//   - options: Solver options. nil uses DefaultSolverOptions().
//
// # Example
//
//	result := algorithms.Solve(ctx, g, algorithms.DefaultSolverOptions().
//	    WithStrategy(algorithms.StrategyKarp))
//	if result.Error != nil {
//	    return fmt.Errorf("solve failed: %w", result.Error)
//	}
//	fmt.Printf("flow=%.2f cost=%.2f\n", result.FlowValue, result.TotalCost)
func Solve(ctx context.Context, g *domain.Graph, options *SolverOptions) *SolverResult {
	start := time.Now()

	if options == nil {
		options = DefaultSolverOptions()
	}

	result := &SolverResult{
		Flow:     domain.NewFlowAssignment(),
		Strategy: options.Strategy,
		State:    StateInit,
	}

	finish := func(err error) *SolverResult {
		result.Error = err
		result.FlowValue = result.Flow.Value(g)
		result.TotalCost = result.Flow.TotalCost(g)
		result.Duration = time.Since(start)
		return result
	}

	if err := validateGraph(g); err != nil {
		result.Duration = time.Since(start)
		result.Error = err
		return result
	}

	detector, err := NewDetector(options.Strategy, options.Epsilon)
	if err != nil {
		result.Duration = time.Since(start)
		result.Error = err
		return result
	}
	result.Strategy = detector.Name()

	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	for result.State != StateDone {
		select {
		case <-ctx.Done():
			return finish(ctxError(ctx))
		default:
		}

		switch result.State {
		case StateInit:
			result.State = StateMaxFlow

		case StateMaxFlow:
			mf := EdmondsKarpWithContext(ctx, g, options)
			result.Flow = mf.Flow
			result.AugmentingPaths = mf.AugmentingPaths
			if mf.Canceled {
				return finish(ctxError(ctx))
			}
			if mf.LimitReached {
				return finish(fmt.Errorf("%w: %d", ErrMaxIterations, options.MaxIterations))
			}
			result.State = StateCancel

		case StateCancel:
			r := graph.BuildResidual(g, result.Flow)
			cycle, found, err := detector.FindCycle(ctx, r)
			if err != nil {
				if errors.Is(err, ErrContextCanceled) {
					return finish(ctxError(ctx))
				}
				return finish(err)
			}
			if !found {
				result.State = StateDone
				continue
			}

			if options.MaxIterations > 0 && result.Cancellations >= options.MaxIterations {
				return finish(fmt.Errorf("%w: %d", ErrMaxIterations, options.MaxIterations))
			}

			var prevCost float64
			if options.SelfCheck {
				prevCost = result.Flow.TotalCost(g)
			}

			if _, err := CancelCycle(r, result.Flow, cycle, options.Epsilon); err != nil {
				return finish(err)
			}
			result.Cancellations++

			if options.SelfCheck {
				if err := verifyCancellation(g, result.Flow, prevCost); err != nil {
					return finish(err)
				}
			}
		}
	}

	return finish(nil)
}

// ctxError maps a done context to the matching sentinel error.
func ctxError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ErrContextCanceled
}

// verifyCancellation checks flow invariants after a cancellation:
// capacity bounds, conservation at interior nodes, and a strict
// decrease of total cost.
func verifyCancellation(g *domain.Graph, flow domain.FlowAssignment, prevCost float64) error {
	if errs := flow.CheckFeasible(g); len(errs) > 0 {
		return fmt.Errorf("%w: %v", ErrSelfCheckFailed, errs[0])
	}
	if cost := flow.TotalCost(g); !domain.FloatLess(cost, prevCost) {
		return fmt.Errorf("%w: total cost did not decrease (%.9f -> %.9f)",
			ErrSelfCheckFailed, prevCost, cost)
	}
	return nil
}

// =============================================================================
// Solver Pool
// =============================================================================

// SolverPool bounds the number of concurrent solver executions.
//
// # Example
//
//	pool := NewSolverPool(runtime.NumCPU())
//
//	var wg sync.WaitGroup
//	for _, task := range tasks {
//	    wg.Add(1)
//	    go func(t Task) {
//	        defer wg.Done()
//	        result := pool.SolvePooled(ctx, t.Graph, t.Options)
//	        handleResult(result)
//	    }(task)
//	}
//	wg.Wait()
type SolverPool struct {
	workers chan struct{} // Semaphore for concurrency limiting
}

// NewSolverPool creates a new solver pool with the specified maximum concurrency.
//
// If maxConcurrency <= 0, it defaults to 10.
func NewSolverPool(maxConcurrency int) *SolverPool {
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	return &SolverPool{
		workers: make(chan struct{}, maxConcurrency),
	}
}

// Acquire obtains a worker slot from the pool.
//
// Blocks until a slot is available or the context is cancelled.
// Call Release() when the work is complete.
func (sp *SolverPool) Acquire(ctx context.Context) error {
	select {
	case sp.workers <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a worker slot to the pool.
//
// Must be called exactly once after each successful Acquire().
func (sp *SolverPool) Release() {
	<-sp.workers
}

// InUse reports the number of currently occupied slots.
func (sp *SolverPool) InUse() int {
	return len(sp.workers)
}

// Capacity reports the total number of slots.
func (sp *SolverPool) Capacity() int {
	return cap(sp.workers)
}

// SolvePooled runs Solve under the pool's concurrency limit.
//
// Blocks while the pool is at capacity. On context cancellation during
// slot acquisition, returns an error result.
func (sp *SolverPool) SolvePooled(ctx context.Context, g *domain.Graph, options *SolverOptions) *SolverResult {
	if err := sp.Acquire(ctx); err != nil {
		return &SolverResult{
			Flow:  domain.NewFlowAssignment(),
			Error: ctxError(ctx),
		}
	}
	defer sp.Release()

	return Solve(ctx, g, options)
}
