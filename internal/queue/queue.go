package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

var (
	// ErrQueueClosed is returned when operations are attempted on a closed queue
	ErrQueueClosed = errors.New("queue is closed")

	// ErrAlreadyStarted is returned when Start is called twice
	ErrAlreadyStarted = errors.New("queue already started")
)

// Job is one unit of speech: normalized, escaped text waiting to be
// synthesized and played. The ID only correlates log lines.
type Job struct {
	ID         uuid.UUID `json:"id"`
	Text       string    `json:"-"`
	Source     string    `json:"source,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Processor synthesizes and plays a job. It returns once playback is done
// or has failed.
type Processor interface {
	Process(ctx context.Context, job Job) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, job Job) error

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, job Job) error { return f(ctx, job) }

// Interrupter is implemented by processors that can abort the job in
// flight faster than by context cancellation alone.
// Interrupt is called with the queue locked and must not call back into it.
type Interrupter interface {
	Interrupt()
}

// State of the consumer.
type State int32

// Queue states.
const (
	StateIdle State = iota
	StateProcessing
)

func (s State) String() string {
	if s == StateProcessing {
		return "processing"
	}
	return "idle"
}

// Stats tracks queue activity.
type Stats struct {
	TotalEnqueued  int64
	TotalProcessed int64
	TotalFailed    int64
	TotalCleared   int64
	Pending        int
	PeakPending    int
	LastEnqueue    time.Time
	LastFinish     time.Time
}

// Queue is a FIFO of jobs with at most one job in flight.
type Queue struct {
	proc      Processor
	observers []Observer

	mu      sync.Mutex
	pending []Job
	state   State
	current *Job
	cancel  context.CancelFunc
	closed  bool
	started bool
	stopped bool // consumer has exited
	stats   Stats

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// Option configures a Queue.
type Option func(*Queue)

// WithObserver registers o for lifecycle events.
func WithObserver(o Observer) Option {
	return func(q *Queue) { q.observers = append(q.observers, o) }
}

// New creates a queue feeding proc. Call Start to begin consuming.
func New(proc Processor, opts ...Option) *Queue {
	q := &Queue{
		proc: proc,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends text to the queue. It never blocks on processing.
func (q *Queue) Enqueue(text string) (Job, error) {
	return q.EnqueueFrom("", text)
}

// EnqueueFrom is Enqueue with the name of the input that produced text.
func (q *Queue) EnqueueFrom(source, text string) (Job, error) {
	job := Job{
		ID:         uuid.New(),
		Text:       text,
		Source:     source,
		EnqueuedAt: time.Now(),
	}

	q.mu.Lock()
	if q.closed || q.stopped {
		q.mu.Unlock()
		return Job{}, ErrQueueClosed
	}
	q.pending = append(q.pending, job)
	pending := len(q.pending)
	q.stats.TotalEnqueued++
	q.stats.LastEnqueue = job.EnqueuedAt
	if pending > q.stats.PeakPending {
		q.stats.PeakPending = pending
	}
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}

	log.Debug("Job enqueued", "job", job.ID, "source", source, "chars", len(text), "pending", pending)
	q.notify(Event{Type: EventEnqueued, Job: &job, Pending: pending})
	return job, nil
}

// Start launches the consumer goroutine. It stops when ctx is done or the
// queue is closed.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if q.started {
		return ErrAlreadyStarted
	}
	q.started = true

	q.wg.Add(1)
	go q.run(ctx)
	return nil
}

// Clear drops every pending job, forces the queue Idle and interrupts the
// job in flight, if any. It returns the number of pending jobs dropped.
func (q *Queue) Clear() int {
	q.mu.Lock()
	dropped := len(q.pending)
	q.pending = nil
	q.state = StateIdle
	q.stats.TotalCleared += int64(dropped)
	inFlight := q.current != nil
	if q.cancel != nil {
		q.cancel()
	}
	// Interrupt while locked so the consumer cannot start the next job first.
	if inFlight {
		if i, ok := q.proc.(Interrupter); ok {
			i.Interrupt()
		}
	}
	q.mu.Unlock()

	log.Info("Queue cleared", "dropped", dropped, "interrupted", inFlight)
	q.notify(Event{Type: EventCleared, Pending: 0, Dropped: dropped})
	return dropped
}

// Len returns the number of pending jobs, not counting the one in flight.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// State returns whether a job is being processed.
func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Current returns the job in flight.
func (q *Queue) Current() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == nil {
		return Job{}, false
	}
	return *q.current, true
}

// Stats returns current queue statistics.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	stats := q.stats
	stats.Pending = len(q.pending)
	return stats
}

// Close stops the consumer after interrupting the job in flight. Pending
// jobs are discarded.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.pending = nil
	if q.cancel != nil {
		q.cancel()
	}
	close(q.done)
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

func (q *Queue) run(ctx context.Context) {
	defer q.wg.Done()
	defer func() {
		q.mu.Lock()
		q.stopped = true
		q.pending = nil
		q.state = StateIdle
		q.mu.Unlock()
	}()

	for {
		job, jctx, ok := q.next(ctx)
		if !ok {
			return
		}

		q.notify(Event{Type: EventStarted, Job: &job, Pending: q.Len()})
		start := time.Now()
		err := q.process(jctx, job)
		elapsed := time.Since(start)

		q.mu.Lock()
		q.cancel()
		q.cancel = nil
		q.current = nil
		if len(q.pending) == 0 {
			q.state = StateIdle
		}
		if err != nil {
			q.stats.TotalFailed++
		} else {
			q.stats.TotalProcessed++
		}
		q.stats.LastFinish = time.Now()
		pending := len(q.pending)
		q.mu.Unlock()

		if err != nil {
			kv := []any{"job", job.ID, "elapsed", elapsed.Round(time.Millisecond), "err", err}
			if d, ok := err.(interface{ KeyVals() []any }); ok {
				kv = append(kv, d.KeyVals()...)
			}
			log.Error("TTS job failed", kv...)
			q.notify(Event{Type: EventFailed, Job: &job, Pending: pending, Error: err.Error(), Elapsed: elapsed})
			continue
		}
		log.Info("TTS job finished", "job", job.ID, "elapsed", elapsed.Round(time.Millisecond))
		q.notify(Event{Type: EventFinished, Job: &job, Pending: pending, Elapsed: elapsed})
	}
}

// next pops the front job, waiting while the queue is empty.
func (q *Queue) next(ctx context.Context) (Job, context.Context, bool) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return Job{}, nil, false
		}
		if len(q.pending) > 0 {
			job := q.pending[0]
			q.pending[0] = Job{}
			q.pending = q.pending[1:]
			jctx, cancel := context.WithCancel(ctx)
			q.current = &job
			q.cancel = cancel
			q.state = StateProcessing
			q.mu.Unlock()
			return job, jctx, true
		}
		q.state = StateIdle
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Job{}, nil, false
		case <-q.done:
			return Job{}, nil, false
		case <-q.wake:
		}
	}
}

// process runs the processor, turning a panic into a job failure.
func (q *Queue) process(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panic: %v", r)
		}
	}()
	return q.proc.Process(ctx, job)
}

func (q *Queue) notify(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	for _, o := range q.observers {
		o.OnEvent(e)
	}
}
