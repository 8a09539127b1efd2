package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/c360/exengine/errors"
	"github.com/c360/exengine/event"
	"github.com/c360/exengine/notification"
)

// workItem pairs an event with the future observing it
type workItem struct {
	ev  event.Event
	fut *Future
}

// worker owns one named FIFO queue and the single goroutine draining it.
// Workers are created lazily on the first submission referencing their
// name and live until engine shutdown, so device thread-affinity holds
// for the engine's whole lifetime.
type worker struct {
	name     string
	engine   *Engine
	maxDepth int

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []workItem
	draining bool
	running  bool

	done chan struct{}
}

func newWorker(name string, e *Engine) *worker {
	w := &worker{
		name:     name,
		engine:   e,
		maxDepth: e.cfg.MaxQueueDepth,
		done:     make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)
	go w.run()
	e.metrics.recordWorkerStarted()
	e.health.UpdateHealthy("worker:"+name, "worker running")
	return w
}

// enqueue appends items to the queue as one contiguous block, preserving
// their order. With prioritize the block goes to the front instead.
func (w *worker) enqueue(items []workItem, prioritize bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.draining {
		return errors.ErrSubmissionRejected
	}
	if w.maxDepth > 0 && len(w.queue)+len(items) > w.maxDepth {
		return errors.ErrQueueFull
	}

	if prioritize {
		w.queue = append(append(make([]workItem, 0, len(items)+len(w.queue)), items...), w.queue...)
	} else {
		w.queue = append(w.queue, items...)
	}
	w.cond.Broadcast()
	return nil
}

// depth returns the current queue length
func (w *worker) depth() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

// drain stops new submissions; the goroutine exits once the queue empties
func (w *worker) drain() {
	w.mu.Lock()
	w.draining = true
	w.cond.Broadcast()
	w.mu.Unlock()
}

// cancel stops new submissions and removes all queued (not running)
// items, returning them so the engine can fail their futures
func (w *worker) cancel() []workItem {
	w.mu.Lock()
	w.draining = true
	cancelled := w.queue
	w.queue = nil
	w.cond.Broadcast()
	w.mu.Unlock()
	return cancelled
}

// run is the worker loop: dequeue one item, execute it, attribute the
// outcome to its future, publish the terminal notification, repeat.
// An item's failure never kills the worker.
func (w *worker) run() {
	defer close(w.done)
	defer w.engine.metrics.recordWorkerStopped()

	for {
		w.mu.Lock()
		for len(w.queue) == 0 && !w.draining {
			w.cond.Wait()
		}
		if len(w.queue) == 0 {
			w.mu.Unlock()
			return
		}
		item := w.queue[0]
		w.queue = w.queue[1:]
		w.running = true
		w.mu.Unlock()

		w.execute(item)

		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}
}

// execute runs one work item to completion
func (w *worker) execute(item workItem) {
	ctx := ContextWithWorker(w.engine.ctx, w.name)
	item.fut.markRunning()

	retries := 0
	if r, ok := item.ev.(event.Retryable); ok {
		retries = r.RetriesOnError()
	}

	start := time.Now()
	var result any
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		result, err = w.runOne(ctx, item.ev)
		if err == nil {
			break
		}
		if attempt < retries {
			w.engine.logger.Warn("event execution failed, retrying",
				"worker", w.name,
				"attempt", attempt+1,
				"remaining", retries-attempt,
				"error", err)
		}
	}
	duration := time.Since(start)

	stopped := false
	if s, ok := event.AsStoppable(item.ev); ok {
		stopped = s.IsStopRequested()
	}
	aborted := false
	if a, ok := event.AsAbortable(item.ev); ok {
		aborted = a.IsAbortRequested()
	}

	state := StateSucceeded
	status := "success"
	switch {
	case err != nil:
		state = StateFailed
		status = "failure"
		err = errors.Wrap(err, "worker", w.name, "executing event")
	case aborted:
		state = StateAborted
		status = "aborted"
	case stopped:
		state = StateStopped
		status = "stopped"
	}

	if err != nil {
		w.engine.logger.Error("event execution failed",
			"worker", w.name, "error", err)
	} else {
		w.engine.logger.Debug("event executed",
			"worker", w.name, "state", state.String(), "duration", duration)
	}

	// complete the future first: the terminal notification must only be
	// observable after the state transition
	item.fut.complete(state, result, err)

	terminal := notification.EventExecuted(err)
	item.fut.RecordNotification(terminal)
	w.engine.PublishNotification(terminal)

	w.engine.metrics.recordExecuted(w.name, status, duration.Seconds(), w.depth())
}

// runOne invokes Execute, converting panics into errors so a panicking
// event is attributed to its future instead of crashing the worker
func (w *worker) runOne(ctx context.Context, ev event.Event) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during event execution: %v", r)
		}
	}()
	return ev.Execute(ctx)
}
