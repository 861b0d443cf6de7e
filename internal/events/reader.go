package events

import (
	"bufio"
	"errors"
	"io"
	"strings"

	api "github.com/realia-labs/realia/api/v1alpha1"
)

// ErrStreamTruncated means the stream ended before a terminal event.
var ErrStreamTruncated = errors.New("progress stream ended without a terminal event")

// Reader parses a text/event-stream body.
type Reader struct {
	scanner  *bufio.Scanner
	terminal bool
}

func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Reader{scanner: scanner}
}

// Next returns the next event. After the terminal event it returns io.EOF; a body that
// ends earlier yields ErrStreamTruncated.
func (r *Reader) Next() (Event, error) {
	if r.terminal {
		return Event{}, io.EOF
	}

	var (
		kind string
		data []string
	)
	for r.scanner.Scan() {
		line := r.scanner.Text()
		switch {
		case line == "":
			if kind == "" && len(data) == 0 {
				continue
			}
			if kind == "" {
				kind = "message"
			}
			r.terminal = api.IsTerminalEvent(kind)
			return Event{Kind: kind, Data: []byte(strings.Join(data, "\n"))}, nil
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "event:"):
			kind = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}

	if err := r.scanner.Err(); err != nil {
		return Event{}, errors.Join(ErrStreamTruncated, err)
	}
	return Event{}, ErrStreamTruncated
}
