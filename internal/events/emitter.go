package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	api "github.com/realia-labs/realia/api/v1alpha1"
	"go.uber.org/zap"
)

// ErrStreamClosed is returned for every write attempted after the stream was closed.
var ErrStreamClosed = errors.New("progress stream closed")

type State int

const (
	StateNotStarted State = iota
	StateEmitting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateEmitting:
		return "emitting"
	case StateClosed:
		return "closed"
	default:
		return "not_started"
	}
}

// Sink delivers one encoded event to the client.
type Sink interface {
	Send(kind string, data []byte) error
}

// Emitter turns pipeline transitions into an ordered event stream ending with at most
// one terminal event. A failed delivery closes the emitter.
type Emitter struct {
	lock     sync.Mutex
	sink     Sink
	state    State
	terminal string
	log      *zap.SugaredLogger
}

func NewEmitter(sink Sink) *Emitter {
	return &Emitter{sink: sink, log: zap.S().Named("emitter")}
}

func (e *Emitter) Progress(stage, message string) error {
	return e.emit(api.EventProgress, api.Progress{Stage: stage, Message: message})
}

// Complete sends the terminal success event.
func (e *Emitter) Complete(result any) error {
	return e.emit(api.EventComplete, result)
}

// Fail sends the terminal error event.
func (e *Emitter) Fail(apiErr api.Error) error {
	return e.emit(api.EventError, apiErr)
}

// Close ends the stream without a terminal event.
func (e *Emitter) Close() {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.state = StateClosed
}

func (e *Emitter) State() State {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.state
}

// Terminal returns the kind of the terminal event sent, or "" if none was.
func (e *Emitter) Terminal() string {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.terminal
}

func (e *Emitter) emit(kind string, payload any) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	if e.state == StateClosed {
		e.log.Warnw("event dropped on closed stream", "kind", kind, "terminal", e.terminal)
		return ErrStreamClosed
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", kind, err)
	}

	e.state = StateEmitting
	if err := e.sink.Send(kind, data); err != nil {
		e.state = StateClosed
		e.log.Infow("client stream write failed, closing", "kind", kind, "error", err)
		return errors.Join(ErrStreamClosed, err)
	}

	if api.IsTerminalEvent(kind) {
		e.terminal = kind
		e.state = StateClosed
	}

	return nil
}
