package events

import "sync"

const defaultBufferSize = 1024

type message struct {
	Kind    string
	Subject string
	Data    []byte
}

// buffer is a bounded fifo. When full, the oldest message makes room for the new one.
type buffer struct {
	lock    sync.Mutex
	ring    []*message
	head    int
	size    int
	dropped int
}

func newBuffer(capacity int) *buffer {
	if capacity <= 0 {
		capacity = defaultBufferSize
	}
	return &buffer{ring: make([]*message, capacity)}
}

// PushBack reports whether a message was dropped to make room.
func (b *buffer) PushBack(msg *message) bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	dropped := false
	if b.size == len(b.ring) {
		b.ring[b.head] = nil
		b.head = (b.head + 1) % len(b.ring)
		b.size--
		b.dropped++
		dropped = true
	}
	b.ring[(b.head+b.size)%len(b.ring)] = msg
	b.size++

	return dropped
}

func (b *buffer) Pop() *message {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.size == 0 {
		return nil
	}
	msg := b.ring[b.head]
	b.ring[b.head] = nil
	b.head = (b.head + 1) % len(b.ring)
	b.size--
	return msg
}

func (b *buffer) Size() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.size
}

func (b *buffer) Dropped() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.dropped
}
