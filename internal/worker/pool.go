package worker

import (
	"context"
	"slices"
	"sync"
)

// Task is one unit of pool work. It should return promptly once ctx ends.
type Task[R any] func(ctx context.Context) R

type queued[R any] struct {
	index int
	task  Task[R]
}

// Pool runs tasks on a fixed number of goroutines and hands back their
// results in submission order. Tasks still queued when the context ends are
// dropped and have no result.
//
// Submit is meant for a single producer and must not be called after Wait.
type Pool[R any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	queue  chan queued[R]
	wg     sync.WaitGroup

	mu      sync.Mutex
	next    int
	results map[int]R

	waitOnce sync.Once
	ordered  []R
}

// NewPool starts workers goroutines bound to ctx. workers < 1 means one.
func NewPool[R any](ctx context.Context, workers int) *Pool[R] {
	workers = max(workers, 1)
	ctx, cancel := context.WithCancel(ctx)

	p := &Pool[R]{
		ctx:     ctx,
		cancel:  cancel,
		queue:   make(chan queued[R], workers*2),
		results: make(map[int]R),
	}
	p.wg.Add(workers)
	for range workers {
		go p.run()
	}
	return p
}

func (p *Pool[R]) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case q, ok := <-p.queue:
			if !ok {
				return
			}
			r := q.task(p.ctx)
			p.mu.Lock()
			p.results[q.index] = r
			p.mu.Unlock()
		}
	}
}

// Submit queues task, blocking while the queue is full. It returns false
// once the pool's context has ended.
func (p *Pool[R]) Submit(task Task[R]) bool {
	if p.ctx.Err() != nil {
		return false
	}
	p.mu.Lock()
	index := p.next
	p.next++
	p.mu.Unlock()

	select {
	case <-p.ctx.Done():
		return false
	case p.queue <- queued[R]{index: index, task: task}:
		return true
	}
}

// Wait closes the queue, waits for the workers and returns the results
// ordered by submission. Calling it again returns the same slice.
func (p *Pool[R]) Wait() []R {
	p.waitOnce.Do(func() {
		close(p.queue)
		p.wg.Wait()
		p.cancel()

		indexes := make([]int, 0, len(p.results))
		for i := range p.results {
			indexes = append(indexes, i)
		}
		slices.Sort(indexes)

		p.ordered = make([]R, 0, len(indexes))
		for _, i := range indexes {
			p.ordered = append(p.ordered, p.results[i])
		}
	})
	return p.ordered
}

// Shutdown stops the workers after their current task; queued tasks are
// dropped. Call Wait to collect what finished.
func (p *Pool[R]) Shutdown() {
	p.cancel()
}
