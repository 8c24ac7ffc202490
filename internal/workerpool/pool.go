// Package workerpool runs a fixed set of goroutines over a bounded typed
// queue. Submit never blocks and never allocates, so it is safe to call from
// the low-level mouse hook callback.
package workerpool

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/mywallpaper/desktop/internal/logging"
)

var log = logging.L("workerpool")

// Handler processes one queued value.
type Handler[T any] func(T)

// Pool is a bounded goroutine pool with a fixed-size queue of T values.
// With a single worker, values are handled in submission order.
type Pool[T any] struct {
	name      string
	handle    Handler[T]
	queue     chan T
	wg        sync.WaitGroup
	accepting atomic.Bool
	stopOnce  sync.Once
	stopChan  chan struct{}
	done      sync.WaitGroup

	rejected atomic.Uint64
	panics   atomic.Uint64
}

// New creates a pool named name with workers goroutines calling handle, and
// a queue of queueSize values.
func New[T any](name string, workers, queueSize int, handle Handler[T]) *Pool[T] {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	p := &Pool[T]{
		name:     name,
		handle:   handle,
		queue:    make(chan T, queueSize),
		stopChan: make(chan struct{}),
	}
	p.accepting.Store(true)

	p.done.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	log.Info("worker pool started", "pool", name, "workers", workers, "queueSize", queueSize)
	return p
}

// Submit enqueues v. It returns false if the pool is stopped or the queue is
// full; rejections are counted rather than logged.
// wg.Add is called before the enqueue to avoid racing Drain.
func (p *Pool[T]) Submit(v T) bool {
	if !p.accepting.Load() {
		p.rejected.Add(1)
		return false
	}

	p.wg.Add(1)
	select {
	case p.queue <- v:
		return true
	default:
		p.wg.Done()
		p.rejected.Add(1)
		return false
	}
}

// Rejected returns how many values Submit turned away.
func (p *Pool[T]) Rejected() uint64 { return p.rejected.Load() }

// Panics returns how many handler calls panicked.
func (p *Pool[T]) Panics() uint64 { return p.panics.Load() }

// Len returns the number of queued values.
func (p *Pool[T]) Len() int { return len(p.queue) }

// StopAccepting prevents new submissions.
func (p *Pool[T]) StopAccepting() {
	p.accepting.Store(false)
}

// Drain stops accepting, waits for queued and in-flight values to finish
// within ctx, then lets the workers exit. The queue channel is never closed,
// so a late Submit cannot panic.
func (p *Pool[T]) Drain(ctx context.Context) {
	p.StopAccepting()

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		log.Info("worker pool drained", "pool", p.name)
	case <-ctx.Done():
		log.Warn("worker pool drain timed out", "pool", p.name, "queued", len(p.queue))
	}

	p.stopOnce.Do(func() {
		close(p.stopChan)
	})
}

// Shutdown drains the pool and waits for the worker goroutines to exit.
func (p *Pool[T]) Shutdown(ctx context.Context) {
	p.Drain(ctx)

	exited := make(chan struct{})
	go func() {
		p.done.Wait()
		close(exited)
	}()
	select {
	case <-exited:
	case <-ctx.Done():
	}
}

func (p *Pool[T]) worker() {
	defer p.done.Done()
	for {
		select {
		case v := <-p.queue:
			p.run(v)
		case <-p.stopChan:
			for {
				select {
				case v := <-p.queue:
					p.run(v)
				default:
					return
				}
			}
		}
	}
}

// run handles one value with panic recovery. wg.Done matches the wg.Add in
// Submit.
func (p *Pool[T]) run(v T) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
			log.Error("handler panicked", "pool", p.name, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	p.handle(v)
}
