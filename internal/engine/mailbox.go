package engine

import (
	"sync"

	"github.com/foxter/foxter/internal/types"
)

// mailbox is an unbounded FIFO between the scan worker and the consumer.
// put never blocks, so a slow consumer cannot stall file I/O.
type mailbox struct {
	mu     sync.Mutex
	queue  []types.Event
	closed bool
	wake   chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{wake: make(chan struct{}, 1)}
}

func (m *mailbox) put(ev types.Event) {
	m.mu.Lock()
	m.queue = append(m.queue, ev)
	m.mu.Unlock()
	m.signal()
}

// close marks the end of the stream; queued events are still delivered.
func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.signal()
}

func (m *mailbox) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// pump forwards queued events to out in order and closes out once the
// mailbox is closed and drained.
func (m *mailbox) pump(out chan<- types.Event) {
	defer close(out)
	for {
		m.mu.Lock()
		pending := m.queue
		m.queue = nil
		closed := m.closed
		m.mu.Unlock()

		for _, ev := range pending {
			out <- ev
		}
		if len(pending) > 0 {
			continue
		}
		if closed {
			return
		}
		<-m.wake
	}
}
