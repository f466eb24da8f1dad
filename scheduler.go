package silo

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// SystemHandler is the user callback driven by the scheduler. It receives a
// fresh Access bound to the current store for each invocation.
type SystemHandler func(*Access) error

// System pairs a handler with the declaration of which component types it
// reads and writes. The declaration is what the parallel scheduler partitions
// on, so an undeclared component is unreachable from the handler.
type System struct {
	name    string
	handler SystemHandler
	access  map[ComponentType]AccessMode
}

// NewSystem creates a system with the given handler and an empty access set
func NewSystem(name string, handler SystemHandler) *System {
	return &System{
		name:    name,
		handler: handler,
		access:  make(map[ComponentType]AccessMode),
	}
}

// With declares read access to the given component types
func (s *System) With(types ...ComponentType) *System {
	for _, ct := range types {
		if _, ok := s.access[ct]; !ok {
			s.access[ct] = Read
		}
	}
	return s
}

// WithMut declares write access to the given component types
func (s *System) WithMut(types ...ComponentType) *System {
	for _, ct := range types {
		s.access[ct] = Write
	}
	return s
}

// Name returns the system's name
func (s *System) Name() string {
	return s.name
}

// Declares returns the declared mode for the component type, if any
func (s *System) Declares(ct ComponentType) (AccessMode, bool) {
	mode, ok := s.access[ct]
	return mode, ok
}

// SchedulerMetrics is an observational record of dispatches; it never
// affects partitioning or execution order
type SchedulerMetrics struct {
	BatchDurations []time.Duration
	SystemRuns     map[string]int
	SystemErrors   map[string]int
}

// Scheduler drives systems over one store, sequentially or in a parallel
// schedule computed from the declared access sets
type Scheduler struct {
	store     *EntityStore
	metricsOn bool
	mu        sync.Mutex
	metrics   SchedulerMetrics
}

func newScheduler(store *EntityStore) *Scheduler {
	return &Scheduler{
		store: store,
		metrics: SchedulerMetrics{
			SystemRuns:   make(map[string]int),
			SystemErrors: make(map[string]int),
		},
	}
}

// EnableMetrics toggles per-batch and per-system recording
func (sc *Scheduler) EnableMetrics(on bool) {
	sc.mu.Lock()
	sc.metricsOn = on
	sc.mu.Unlock()
}

// Metrics returns a copy of the recorded metrics
func (sc *Scheduler) Metrics() SchedulerMetrics {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	out := SchedulerMetrics{
		BatchDurations: append([]time.Duration(nil), sc.metrics.BatchDurations...),
		SystemRuns:     make(map[string]int, len(sc.metrics.SystemRuns)),
		SystemErrors:   make(map[string]int, len(sc.metrics.SystemErrors)),
	}
	for k, v := range sc.metrics.SystemRuns {
		out.SystemRuns[k] = v
	}
	for k, v := range sc.metrics.SystemErrors {
		out.SystemErrors[k] = v
	}
	return out
}

func (sc *Scheduler) recordRun(name string, err error) {
	if !sc.metricsOn {
		return
	}
	sc.mu.Lock()
	sc.metrics.SystemRuns[name]++
	if err != nil {
		sc.metrics.SystemErrors[name]++
	}
	sc.mu.Unlock()
}

func (sc *Scheduler) recordBatch(d time.Duration) {
	if !sc.metricsOn {
		return
	}
	sc.mu.Lock()
	sc.metrics.BatchDurations = append(sc.metrics.BatchDurations, d)
	sc.mu.Unlock()
}

// runSystem invokes the handler exactly once with a fresh Access
func (sc *Scheduler) runSystem(sys *System) error {
	acc := newAccess(sc.store, sys.access)
	defer acc.release()
	err := sys.handler(acc)
	sc.recordRun(sys.name, err)
	if err != nil {
		return errors.Wrapf(err, "system %q", sys.name)
	}
	return nil
}

// Dispatch runs each system sequentially in the given order. The store is
// locked for the whole dispatch; insertions and removals issued through the
// enqueue variants are applied after the last system returns.
func (sc *Scheduler) Dispatch(systems ...*System) error {
	sc.store.addLock()
	defer sc.store.popLock()

	for _, sys := range systems {
		start := time.Now()
		err := sc.runSystem(sys)
		sc.recordBatch(time.Since(start))
		if err != nil {
			return err
		}
	}
	return nil
}

// DispatchParallel partitions the systems into conflict-free batches and
// runs each batch's members concurrently. Earlier batches fully complete
// before later ones begin; within a batch no ordering is guaranteed. ctx is
// checked before each batch starts. An error stops dispatch after the failing
// batch: concurrent members of that batch are waited for, while under serial
// dispatch the members after the failing one are skipped.
func (sc *Scheduler) DispatchParallel(ctx context.Context, systems ...*System) error {
	sc.store.addLock()
	defer sc.store.popLock()

	for _, batch := range partitionSystems(systems) {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}
		start := time.Now()
		var err error
		if Config.SerialDispatch() || len(batch) == 1 {
			for _, i := range batch {
				if err = sc.runSystem(systems[i]); err != nil {
					break
				}
			}
		} else {
			var g errgroup.Group
			for _, i := range batch {
				sys := systems[i]
				g.Go(func() error {
					return sc.runSystem(sys)
				})
			}
			err = g.Wait()
		}
		sc.recordBatch(time.Since(start))
		if err != nil {
			return err
		}
	}
	return nil
}

// systemsConflict reports whether some component type appears in both access
// maps with Write in at least one
func systemsConflict(a, b map[ComponentType]AccessMode) bool {
	for ct, modeA := range a {
		if modeB, ok := b[ct]; ok && (modeA == Write || modeB == Write) {
			return true
		}
	}
	return false
}

// parallelBatch accumulates merged systems and the union of their accesses,
// with Write winning over Read per component
type parallelBatch struct {
	systems []int
	access  map[ComponentType]AccessMode
}

func (b *parallelBatch) merge(other *parallelBatch) {
	b.systems = append(b.systems, other.systems...)
	for ct, mode := range other.access {
		if cur, ok := b.access[ct]; !ok || cur != Write {
			b.access[ct] = mode
		}
	}
	other.systems = nil
	other.access = nil
}

// partitionSystems greedily merges singleton batches until no conflict-free
// merge remains: each round, the batch with the fewest valid destinations
// moves into one of them. The result is a valid (not necessarily minimum)
// coloring of the conflict graph.
func partitionSystems(systems []*System) [][]int {
	runs := make([]parallelBatch, len(systems))
	for i, sys := range systems {
		access := make(map[ComponentType]AccessMode, len(sys.access))
		for ct, mode := range sys.access {
			access[ct] = mode
		}
		runs[i] = parallelBatch{systems: []int{i}, access: access}
	}

	moves := make([][]int, len(runs))
	for i := range moves {
		moves[i] = make([]int, 0, len(runs))
	}

	for {
		anyMove := false
		for i := range runs {
			moves[i] = moves[i][:0]
			if len(runs[i].systems) == 0 {
				continue
			}
			for j := range runs {
				if j == i || len(runs[j].systems) == 0 {
					continue
				}
				if !systemsConflict(runs[i].access, runs[j].access) {
					moves[i] = append(moves[i], j)
					anyMove = true
				}
			}
		}
		if !anyMove {
			break
		}

		src := -1
		for i := range moves {
			if len(moves[i]) == 0 {
				continue
			}
			if src < 0 || len(moves[i]) < len(moves[src]) {
				src = i
			}
		}
		dst := moves[src][len(moves[src])-1]
		runs[dst].merge(&runs[src])
	}

	batches := make([][]int, 0, len(runs))
	for i := range runs {
		if len(runs[i].systems) > 0 {
			batches = append(batches, runs[i].systems)
		}
	}
	return batches
}
