// Package sched admits file-cleaning tasks to a bounded pool of workers and
// aggregates their progress and terminal events into a single stream.
//
// The scheduler is pure coordination: it owns the FIFO pending queue and the
// worker pool, performs no file I/O, and holds no batch data. Each admitted
// task runs its pipeline inside one worker goroutine; at most `concurrency`
// pipelines are ever active, and the queue drains in submission order
// subject to that bound.
package sched

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tabclean/internal/pipeline"
)

// Scheduler starts runs. A Scheduler is cheap; the per-run state lives in
// the Run it hands out.
type Scheduler struct {
	opt pipeline.Options
}

// New returns a Scheduler whose runs execute pipelines with opt.
func New(opt pipeline.Options) *Scheduler { return &Scheduler{opt: opt} }

// Run is the state of one submission: the pending queue, the worker pool,
// and the event stream. Stopping a run abandons queued tasks and cancels
// in-flight pipelines; a later Submit on the Scheduler starts a fresh Run.
type Run struct {
	id     string
	opt    pipeline.Options
	events chan Event
	cancel context.CancelFunc

	mu      sync.Mutex
	queue   []pipeline.Task
	stopped bool
}

// Submit seeds a new run with tasks in submission order and starts
// `concurrency` workers (minimum 1) pulling from the queue.
//
// The returned Run's event stream must be drained by the caller; it closes
// after every admitted task has reported its terminal event. Tasks cleared
// by Stop before being admitted never emit any event.
func (s *Scheduler) Submit(tasks []pipeline.Task, concurrency int) *Run {
	if concurrency < 1 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Run{
		id:     uuid.NewString(),
		opt:    s.opt,
		events: make(chan Event, 64),
		cancel: cancel,
		queue:  append([]pipeline.Task(nil), tasks...),
	}
	if r.opt.Job == "" {
		r.opt.Job = r.id
	}

	log.Printf("sched: run=%s tasks=%d concurrency=%d", r.id, len(tasks), concurrency)

	g := &errgroup.Group{}
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			r.work(ctx)
			return nil
		})
	}
	go func() {
		g.Wait()
		close(r.events)
	}()
	return r
}

// ID returns the run identifier used for logging and history rows.
func (r *Run) ID() string { return r.id }

// Events returns the run's event stream. The channel closes once the run has
// fully drained; the consumer must read until then.
func (r *Run) Events() <-chan Event { return r.events }

// Stop clears the pending queue and signals every active pipeline to cancel.
// It does not block waiting for in-flight pipelines; their Cancelled events
// arrive on the stream as they reach a cancellation point.
func (r *Run) Stop() {
	r.mu.Lock()
	dropped := len(r.queue)
	r.queue = nil
	r.stopped = true
	r.mu.Unlock()

	log.Printf("sched: run=%s stop requested, %d pending tasks abandoned", r.id, dropped)
	r.cancel()
}

// Wait drains any remaining events and returns once the run has finished.
// Most callers consume Events directly instead.
func (r *Run) Wait() {
	for range r.events {
	}
}

// next pops the head of the pending queue. The queue and the stopped flag
// are the only shared mutable state of a run, guarded by one mutex.
func (r *Run) next() (pipeline.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || len(r.queue) == 0 {
		return pipeline.Task{}, false
	}
	t := r.queue[0]
	r.queue = r.queue[1:]
	return t, true
}

// work is one slot of the concurrency budget: admit the next pending task,
// run its pipeline to a terminal state, repeat until the queue drains.
func (r *Run) work(ctx context.Context) {
	for {
		t, ok := r.next()
		if !ok {
			return
		}

		res := pipeline.Run(ctx, t, r.opt, func(pct int) {
			r.events <- Event{TaskID: t.ID, Type: EventProgress, Percent: pct}
		})

		switch {
		case res.Cancelled:
			r.events <- Event{TaskID: t.ID, Type: EventCancelled}
		case res.Failed():
			r.events <- Event{
				TaskID:  t.ID,
				Type:    EventFailed,
				Kind:    res.Kind,
				Message: res.Err.Error(),
			}
		default:
			r.events <- Event{
				TaskID:      t.ID,
				Type:        EventCompleted,
				OutputPath:  t.Output,
				Fingerprint: res.Fingerprint,
			}
		}
	}
}
