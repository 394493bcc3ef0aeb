package tasks

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/imamik/simrun/internal/metrics"
	"github.com/imamik/simrun/internal/util/retry"
)

var (
	// ErrQueueFull is returned by Schedule when the backlog is at capacity.
	ErrQueueFull = errors.New("task queue is full")
	// ErrClosed is returned by Schedule after Run returned.
	ErrClosed = errors.New("task queue is closed")
)

// Handler executes one task.
type Handler func(ctx context.Context, args map[string]string) error

// Options configures a Queue.
type Options struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	RetryDelay  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	return o
}

type item struct {
	task string
	args map[string]string
}

// Queue is an in-process task queue.
type Queue struct {
	opts     Options
	log      logr.Logger
	items    chan item
	handlers map[string]Handler

	mu      sync.RWMutex
	closed  bool
	pending sync.WaitGroup
}

// New returns a Queue. Register handlers, then call Run.
func New(opts Options, log logr.Logger) *Queue {
	opts = opts.withDefaults()
	return &Queue{
		opts:     opts,
		log:      log,
		items:    make(chan item, opts.QueueSize),
		handlers: make(map[string]Handler),
	}
}

// Register binds h to task. It must be called before Run.
func (q *Queue) Register(task string, h Handler) {
	q.handlers[task] = h
}

// Schedule enqueues task with args.
func (q *Queue) Schedule(ctx context.Context, task string, args map[string]string) error {
	if _, ok := q.handlers[task]; !ok {
		return fmt.Errorf("unknown task %q", task)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}

	q.pending.Add(1)
	select {
	case q.items <- item{task: task, args: maps.Clone(args)}:
		q.log.V(1).Info("task scheduled", "task", task, "args", args)
		return nil
	default:
		q.pending.Done()
		return fmt.Errorf("%w: %s", ErrQueueFull, task)
	}
}

// Drain blocks until every scheduled task, including tasks scheduled by
// running handlers, has finished, or ctx is done.
func (q *Queue) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes tasks until ctx is cancelled. Tasks still queued at that
// point are dropped and no longer count towards Drain.
func (q *Queue) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < q.opts.Workers; i++ {
		g.Go(func() error {
			q.work(ctx)
			return nil
		})
	}

	<-ctx.Done()

	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	err := g.Wait()
	if n := q.dropQueued(); n > 0 {
		q.log.Info("dropped queued tasks on shutdown", "count", n)
	}
	return err
}

// dropQueued empties the backlog. It must only run once the queue is closed
// and its workers have exited.
func (q *Queue) dropQueued() int {
	n := 0
	for {
		select {
		case it := <-q.items:
			q.log.V(1).Info("task dropped", "task", it.task, "args", it.args)
			q.pending.Done()
			n++
		default:
			return n
		}
	}
}

func (q *Queue) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case it := <-q.items:
			q.execute(ctx, it)
		}
	}
}

func (q *Queue) execute(ctx context.Context, it item) {
	defer q.pending.Done()
	log := q.log.WithValues("task", it.task)
	handler := q.handlers[it.task]
	attempt := 0

	err := retry.Do(ctx, func(ctx context.Context) error {
		attempt++
		err := q.call(ctx, handler, it.args)
		if err != nil && !retry.IsFatal(err) {
			log.Info("task attempt failed", "attempt", attempt, "error", err.Error())
		}
		return err
	}, retry.Attempts(q.opts.MaxAttempts), retry.Backoff(q.opts.RetryDelay, 0), retry.Jitter(0.2))

	metrics.RecordTask(it.task, err)
	if err != nil {
		log.Error(err, "task failed", "attempts", attempt, "args", it.args)
		return
	}
	log.V(1).Info("task done", "attempts", attempt)
}

// call runs h and turns a panic into a fatal error.
func (q *Queue) call(ctx context.Context, h Handler, args map[string]string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = retry.Fatal(fmt.Errorf("task panicked: %v", r))
		}
	}()
	return h(ctx, args)
}
