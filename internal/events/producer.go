package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	MintedMessageKind                string = "realia.events.nft.minted"
	VerificationRequestedMessageKind string = "realia.events.verification.requested"
	defaultTopic                     string = "realia.events"
	eventSource                      string = "realia.api"

	closeTimeout = 5 * time.Second
)

// Writer is the interface to be implemented by the underlying writer.
type Writer interface {
	Write(ctx context.Context, topic string, e cloudevents.Event) error
	Close(ctx context.Context) error
}

type subjecter interface {
	Subject() string
}

// EventProducer publishes record lifecycle events through a Writer.
// Pending events are buffered so a slow writer never blocks the pipeline.
type EventProducer struct {
	buffer  *buffer
	wakeCh  chan struct{}
	doneCh  chan struct{}
	stopped chan struct{}
	once    sync.Once
	writer  Writer
	topic   string
	log     *zap.SugaredLogger
}

func NewEventProducer(w Writer, opts ...ProducerOptions) *EventProducer {
	ep := &EventProducer{
		buffer:  newBuffer(defaultBufferSize),
		wakeCh:  make(chan struct{}, 1),
		doneCh:  make(chan struct{}),
		stopped: make(chan struct{}),
		writer:  w,
		topic:   defaultTopic,
		log:     zap.S().Named("event_producer"),
	}

	for _, o := range opts {
		o(ep)
	}

	go ep.run()
	return ep
}

func (ep *EventProducer) Write(ctx context.Context, kind string, body io.Reader) error {
	d, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	ep.push(&message{Kind: kind, Data: d})
	return nil
}

// WriteJSON buffers payload encoded as json. Payloads naming their record become the
// subject of the event.
func (ep *EventProducer) WriteJSON(ctx context.Context, kind string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", kind, err)
	}
	msg := &message{Kind: kind, Data: data}
	if s, ok := payload.(subjecter); ok {
		msg.Subject = s.Subject()
	}
	ep.push(msg)
	return nil
}

func (ep *EventProducer) push(msg *message) {
	if ep.buffer.PushBack(msg) {
		ep.log.Warnw("event buffer full, dropped the oldest event", "dropped_total", ep.buffer.Dropped())
	}
	select {
	case ep.wakeCh <- struct{}{}:
	default:
	}
}

// Close sends the events still buffered, then closes the writer. Both steps share one timeout.
func (ep *EventProducer) Close() error {
	var err error
	ep.once.Do(func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()

		close(ep.doneCh)

		g, ctx := errgroup.WithContext(closeCtx)
		g.Go(func() error {
			select {
			case <-ep.stopped:
			case <-ctx.Done():
				ep.log.Warnw("closing with undelivered events", "pending", ep.buffer.Size())
			}
			return ep.writer.Close(ctx)
		})
		if err = g.Wait(); err != nil {
			ep.log.Errorf("event producer closed with error: %s", err)
			return
		}

		ep.log.Info("event producer closed")
	})
	return err
}

func (ep *EventProducer) run() {
	defer close(ep.stopped)

	for {
		if msg := ep.buffer.Pop(); msg != nil {
			ep.send(msg)
			continue
		}

		select {
		case <-ep.wakeCh:
		case <-ep.doneCh:
			// drain what arrived before Close
			for msg := ep.buffer.Pop(); msg != nil; msg = ep.buffer.Pop() {
				ep.send(msg)
			}
			return
		}
	}
}

func (ep *EventProducer) send(msg *message) {
	e := cloudevents.NewEvent()
	e.SetID(uuid.NewString())
	e.SetSource(eventSource)
	e.SetType(msg.Kind)
	e.SetTime(time.Now())
	if msg.Subject != "" {
		e.SetSubject(msg.Subject)
	}
	_ = e.SetData(*cloudevents.StringOfApplicationJSON(), msg.Data)

	if err := ep.writer.Write(context.TODO(), ep.topic, e); err != nil {
		ep.log.Errorw("failed to send message", "error", err, "type", msg.Kind, "subject", msg.Subject)
	}
}
