package events

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrStreamingUnsupported = errors.New("response writer does not support streaming")

// SSESink writes events in the text/event-stream wire format and flushes each one.
type SSESink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func NewSSESink(w http.ResponseWriter) (*SSESink, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	return &SSESink{w: w, flusher: flusher}, nil
}

// WriteHeaders commits the streaming headers and the 200 status. It runs once.
func (s *SSESink) WriteHeaders() {
	if s.started {
		return
	}
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	s.flusher.Flush()
	s.started = true
}

func (s *SSESink) Send(kind string, data []byte) error {
	s.WriteHeaders()
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", kind, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
