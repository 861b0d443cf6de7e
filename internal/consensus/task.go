package consensus

import (
	"context"
	"sync"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	"github.com/realia-labs/realia/pkg/metrics"
)

type State string

const (
	StatePending     State = "pending"
	StateVerified    State = "verified"
	StateNotVerified State = "not_verified"
	StateTimedOut    State = "timed_out"
	StateCancelled   State = "cancelled"
)

func (s State) Terminal() bool {
	return s != StatePending
}

const (
	DefaultInterval = time.Second
	DefaultTimeout  = 60 * time.Second
)

type options struct {
	interval    time.Duration
	jitter      time.Duration
	timeout     time.Duration
	rule        Rule
	stopOnFirst bool
}

type Option func(o *options)

func WithInterval(d time.Duration) Option {
	return func(o *options) {
		o.interval = d
	}
}

// WithJitter spreads polls of concurrent tasks around the interval.
func WithJitter(d time.Duration) Option {
	return func(o *options) {
		o.jitter = d
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

func WithRule(r Rule) Option {
	return func(o *options) {
		o.rule = r
	}
}

// StopOnFirstResponse ends the task on the first non-empty response set, whatever the verdict.
func StopOnFirstResponse() Option {
	return func(o *options) {
		o.stopOnFirst = true
	}
}

func newOptions(opts []Option) options {
	o := options{
		interval: DefaultInterval,
		timeout:  DefaultTimeout,
		rule:     AnyTrue,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Snapshot is the observable state of a task.
type Snapshot struct {
	ID        string
	State     State
	Attempts  int
	Deadline  time.Time
	Responses []Response
	LastError error
}

// Task polls the responses of one verification id until the rule is satisfied, the
// deadline passes or Cancel is called.
type Task struct {
	id     string
	source ResponseSource
	opts   options
	cancel context.CancelFunc
	done   chan struct{}
	log    *zap.SugaredLogger

	lock     sync.Mutex
	state    State
	attempts int
	deadline time.Time
	last     []Response
	lastErr  error
}

// Watch starts a task in its own goroutine.
func Watch(ctx context.Context, source ResponseSource, id string, opts ...Option) *Task {
	ctx, cancel := context.WithCancel(ctx)
	o := newOptions(opts)
	t := &Task{
		id:       id,
		source:   source,
		opts:     o,
		cancel:   cancel,
		done:     make(chan struct{}),
		log:      zap.S().Named("consensus").With("verification_id", id),
		state:    StatePending,
		deadline: time.Now().Add(o.timeout),
	}
	go t.run(ctx)
	return t
}

func (t *Task) Cancel() {
	t.cancel()
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task ends or ctx is done.
func (t *Task) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-t.done:
		return t.Snapshot(), nil
	case <-ctx.Done():
		return t.Snapshot(), ctx.Err()
	}
}

func (t *Task) Snapshot() Snapshot {
	t.lock.Lock()
	defer t.lock.Unlock()
	return Snapshot{
		ID:        t.id,
		State:     t.state,
		Attempts:  t.attempts,
		Deadline:  t.deadline,
		Responses: append([]Response(nil), t.last...),
		LastError: t.lastErr,
	}
}

// Verified is true only once the task ended verified.
func (t *Task) Verified() bool {
	return t.Snapshot().State == StateVerified
}

func (t *Task) run(ctx context.Context) {
	defer close(t.done)
	defer t.cancel()

	ticker := jitterbug.New(t.opts.interval, &jitterbug.Norm{Stdev: t.opts.jitter})
	defer ticker.Stop()

	timeout := time.NewTimer(time.Until(t.deadline))
	defer timeout.Stop()

	if t.poll(ctx) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			t.finish(StateCancelled)
			return
		case <-timeout.C:
			t.expire()
			return
		case <-ticker.C:
			if t.poll(ctx) {
				return
			}
		}
	}
}

// poll reports whether the task ended. A source still blocked at the deadline ends it
// through expire.
func (t *Task) poll(ctx context.Context) bool {
	pctx, cancel := context.WithDeadline(ctx, t.deadline)
	defer cancel()

	responses, err := t.source.ResponsesByID(pctx, t.id)

	t.lock.Lock()
	t.attempts++
	attempts := t.attempts
	t.lock.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		if pctx.Err() != nil {
			t.expire()
			return true
		}
		metrics.IncreaseConsensusPolls("error")
		t.log.Debugw("failed to read agent responses", "attempt", attempts, "error", err)
		t.lock.Lock()
		t.lastErr = err
		t.lock.Unlock()
		return false
	}

	if len(responses) == 0 {
		metrics.IncreaseConsensusPolls("empty")
		return false
	}
	metrics.IncreaseConsensusPolls("responses")

	t.lock.Lock()
	t.last = responses
	t.lastErr = nil
	t.lock.Unlock()

	if t.opts.rule(responses) {
		t.finish(StateVerified)
		return true
	}
	if t.opts.stopOnFirst {
		t.finish(StateNotVerified)
		return true
	}
	return false
}

func (t *Task) expire() {
	t.lock.Lock()
	responded := len(t.last) > 0
	t.lock.Unlock()

	if responded {
		t.finish(StateNotVerified)
		return
	}
	t.finish(StateTimedOut)
}

func (t *Task) finish(state State) {
	t.lock.Lock()
	t.state = state
	attempts := t.attempts
	responses := len(t.last)
	t.lock.Unlock()

	t.log.Infow("verification watch ended", "state", state, "attempts", attempts, "responses", responses)
}
