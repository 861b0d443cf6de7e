package events

import (
	"encoding/json"
	"sync"
)

type Event struct {
	Kind string
	Data []byte
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// Recorder is a Sink keeping every event in memory. FailAfter > 0 makes
// the send with that 1-based position and every later one fail.
type Recorder struct {
	lock      sync.Mutex
	Events    []Event
	FailAfter int
	Err       error
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Send(kind string, data []byte) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.FailAfter > 0 && len(r.Events)+1 >= r.FailAfter {
		return r.Err
	}
	r.Events = append(r.Events, Event{Kind: kind, Data: append([]byte(nil), data...)})
	return nil
}

func (r *Recorder) Kinds() []string {
	r.lock.Lock()
	defer r.lock.Unlock()

	kinds := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

// Last returns the most recent event.
func (r *Recorder) Last() (Event, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if len(r.Events) == 0 {
		return Event{}, false
	}
	return r.Events[len(r.Events)-1], true
}
