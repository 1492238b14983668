// Package pool implements a fixed-size work-stealing worker pool with
// scoped task spawning.
//
// Work submitted through Run executes inside a scope. Tasks running in the
// scope may spawn further tasks into it, and Run returns only once every
// transitively spawned task has finished. Tasks spawned on a worker land on
// that worker's own deque (LIFO); idle workers take from the global queue
// and steal the oldest tasks from their peers (FIFO). Queues are unbounded,
// so Spawn never blocks and recursive spawning cannot deadlock the pool.
package pool

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
)

var (
	// ErrInvalidWorkers is returned by New when the worker count is not positive.
	ErrInvalidWorkers = errors.New("worker count must be positive")
	// ErrClosed is returned by Run after Close.
	ErrClosed = errors.New("pool is closed")
)

// PanicError reports a task that panicked. The pool recovers the panic so
// that sibling tasks keep running.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

type job struct {
	fn    func(*Scope)
	scope *scopeState
}

// deque is a double-ended job queue. It is guarded by Pool.mu.
type deque struct {
	items []job
}

func (d *deque) pushBack(j job) { d.items = append(d.items, j) }

func (d *deque) popBack() (job, bool) {
	n := len(d.items)
	if n == 0 {
		return job{}, false
	}
	j := d.items[n-1]
	d.items[n-1] = job{}
	d.items = d.items[:n-1]
	return j, true
}

func (d *deque) popFront() (job, bool) {
	if len(d.items) == 0 {
		return job{}, false
	}
	j := d.items[0]
	d.items[0] = job{}
	d.items = d.items[1:]
	return j, true
}

type worker struct {
	id    int
	local deque
}

// Pool is a fixed set of worker goroutines. It is safe for concurrent use;
// several Run calls may share one pool.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	workers []*worker
	global  deque
	queued  int
	closed  bool
	wg      sync.WaitGroup
}

// New starts a pool with the given number of workers.
func New(workers int) (*Pool, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkers, workers)
	}

	p := &Pool{workers: make([]*worker, workers)}
	p.cond = sync.NewCond(&p.mu)
	for i := range workers {
		w := &worker{id: i}
		p.workers[i] = w
		p.wg.Add(1)
		go p.loop(w)
	}
	return p, nil
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Run executes root on a worker and blocks until root and everything it
// spawned, directly or transitively, has completed. The returned error joins
// the PanicError of every task that panicked in this scope.
func (p *Pool) Run(root func(*Scope)) error {
	st := &scopeState{pool: p}
	st.wg.Add(1)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.global.pushBack(job{fn: root, scope: st})
	p.queued++
	p.mu.Unlock()
	p.cond.Signal()

	st.wg.Wait()
	return st.err()
}

// Close stops the workers after all queued work has run. It blocks until
// every worker has exited. Calling Close more than once is a no-op.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}

// Closed reports whether Close has been called.
func (p *Pool) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Pool) submit(w *worker, j job) {
	p.mu.Lock()
	if w != nil {
		w.local.pushBack(j)
	} else {
		p.global.pushBack(j)
	}
	p.queued++
	p.mu.Unlock()
	p.cond.Signal()
}

func (p *Pool) loop(w *worker) {
	defer p.wg.Done()
	for {
		j, ok := p.next(w)
		if !ok {
			return
		}
		p.execute(w, j)
	}
}

// next blocks until a job is available for w or the pool is closed and
// drained.
func (p *Pool) next(w *worker) (job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if p.queued > 0 {
			if j, ok := p.take(w); ok {
				p.queued--
				return j, true
			}
		}
		if p.closed {
			return job{}, false
		}
		p.cond.Wait()
	}
}

// take pops from w's own deque first, then the global queue, then steals
// from the other workers starting after w.
func (p *Pool) take(w *worker) (job, bool) {
	if j, ok := w.local.popBack(); ok {
		return j, true
	}
	if j, ok := p.global.popFront(); ok {
		return j, true
	}
	n := len(p.workers)
	for i := 1; i < n; i++ {
		victim := p.workers[(w.id+i)%n]
		if j, ok := victim.local.popFront(); ok {
			return j, true
		}
	}
	return job{}, false
}

func (p *Pool) execute(w *worker, j job) {
	defer j.scope.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			j.scope.addErr(&PanicError{Value: r, Stack: debug.Stack()})
		}
	}()
	j.fn(&Scope{state: j.scope, worker: w})
}

type scopeState struct {
	pool *Pool
	wg   sync.WaitGroup
	mu   sync.Mutex
	errs []error
}

func (s *scopeState) addErr(err error) {
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
}

func (s *scopeState) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.errs...)
}

// Scope is the handle a running task uses to spawn children into its
// enclosing scope. It is only valid while the task that received it runs.
type Scope struct {
	state  *scopeState
	worker *worker
}

// Spawn queues fn to run in the same scope. It never blocks.
func (s *Scope) Spawn(fn func(*Scope)) {
	s.state.wg.Add(1)
	s.state.pool.submit(s.worker, job{fn: fn, scope: s.state})
}

// WorkerID returns the index of the worker running the current task.
func (s *Scope) WorkerID() int {
	if s.worker == nil {
		return -1
	}
	return s.worker.id
}
