package events

import (
	"bytes"
	"context"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("producer", Ordered, func() {
	Context("write", func() {
		It("writes succsessfully", func() {
			w := newTestWriter()
			kp := NewEventProducer(w)

			err := kp.Write(context.TODO(), MintedMessageKind, bytes.NewReader([]byte("msg1")))
			Expect(err).To(BeNil())
			Eventually(w.Len).WithTimeout(time.Second).Should(Equal(1))
			Expect(w.Get(0).Context.GetType()).To(Equal(MintedMessageKind))
			Expect(w.Get(0).Context.GetSource()).To(Equal(eventSource))

			err = kp.WriteJSON(context.TODO(), VerificationRequestedMessageKind, VerificationRequestedEvent{VerificationID: "7"})
			Expect(err).To(BeNil())
			Eventually(w.Len).WithTimeout(time.Second).Should(Equal(2))
			Expect(w.Get(1).Context.GetType()).To(Equal(VerificationRequestedMessageKind))

			var payload VerificationRequestedEvent
			Expect(w.Get(1).DataAs(&payload)).To(Succeed())
			Expect(payload.VerificationID).To(Equal("7"))
			Expect(w.Get(1).Subject()).To(Equal("7"))

			Expect(kp.Close()).To(Succeed())
			Expect(kp.Close()).To(Succeed())
		})

		It("delivers buffered events on close", func() {
			w := newTestWriter()
			w.lock.Lock()
			kp := NewEventProducer(w, WithBufferSize(8))
			for i := 0; i < 5; i++ {
				Expect(kp.WriteJSON(context.TODO(), MintedMessageKind, MintedEvent{TokenID: "1"})).To(Succeed())
			}
			w.lock.Unlock()

			Expect(kp.Close()).To(Succeed())
			Expect(w.Len()).To(Equal(5))
			Expect(w.Get(4).Subject()).To(Equal("1"))
		})
	})
})

type testwriter struct {
	lock     sync.Mutex
	Messages []cloudevents.Event
}

func newTestWriter() *testwriter {
	return &testwriter{Messages: []cloudevents.Event{}}
}

func (t *testwriter) Write(ctx context.Context, topic string, e cloudevents.Event) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.Messages = append(t.Messages, e)
	return nil
}

func (t *testwriter) Len() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.Messages)
}

func (t *testwriter) Get(i int) cloudevents.Event {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.Messages[i]
}

func (t *testwriter) Close(_ context.Context) error {
	return nil
}
