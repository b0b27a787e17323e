// Package taskqueue implements the single-slot serial executor that
// linearizes bootstrap, incremental push, pull, and shutdown work so no
// two sync tasks ever touch the backend or local store concurrently.
package taskqueue

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Task is a unit of work submitted to the queue.
type Task func(ctx context.Context) error

type request struct {
	id   string
	task Task
	done chan struct{}
}

// Queue is a dedicated worker goroutine draining a bounded FIFO: producers
// enqueue closures from any number of goroutines; the worker executes them
// strictly one at a time, in submission order, and a failing task never
// breaks the chain.
type Queue struct {
	log zerolog.Logger

	ch  chan request
	ctx context.Context

	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup
}

// New starts the worker goroutine. capacity bounds how many pending tasks
// may queue up before Submit blocks its caller. ctx scopes every executed
// task; cancelling it asks in-flight tasks to stop, but the worker still
// drains whatever is already enqueued — see Close.
func New(ctx context.Context, log zerolog.Logger, capacity int) *Queue {
	q := &Queue{
		log:    log,
		ch:     make(chan request, capacity),
		ctx:    ctx,
		closed: make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// run executes tasks strictly in submission order until told to close, at
// which point it drains whatever is still buffered in q.ch before exiting
// — shutdown drains the queue rather than abandoning pending work.
func (q *Queue) run() {
	defer q.wg.Done()
	for {
		select {
		case req := <-q.ch:
			q.execute(req)
		case <-q.closed:
			for {
				select {
				case req := <-q.ch:
					q.execute(req)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) execute(req request) {
	defer close(req.done)
	defer func() {
		if r := recover(); r != nil {
			q.log.Error().Str("task_id", req.id).Interface("panic", r).Msg("sync task panicked; queue continues")
		}
	}()

	if err := req.task(q.ctx); err != nil {
		q.log.Warn().Str("task_id", req.id).Err(err).Msg("sync task failed; queue continues on a fresh basis")
	}
}

// Submit enqueues t and returns without waiting for it to run (it blocks
// only while the queue is at capacity); t runs strictly after every
// task submitted before it and strictly before every task submitted after.
// Submit is a no-op once Close has been called.
func (q *Queue) Submit(t Task) {
	req := request{id: uuid.NewString(), task: t, done: make(chan struct{})}
	select {
	case q.ch <- req:
	case <-q.closed:
	}
}

// Flush blocks until every task submitted before this call has finished.
// It does so by submitting a no-op sentinel task and waiting for it, which
// is correct precisely because the queue is single-slot: the sentinel
// cannot run until everything ahead of it has.
func (q *Queue) Flush() {
	req := request{id: uuid.NewString(), task: func(context.Context) error { return nil }, done: make(chan struct{})}
	select {
	case q.ch <- req:
		<-req.done
	case <-q.closed:
	}
}

// Close stops accepting new work, waits for every already-enqueued task to
// finish draining, and returns once the worker has exited.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
	q.wg.Wait()
}
