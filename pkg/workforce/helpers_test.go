package workforce

import (
	"sync"

	"github.com/srand/jolt/workforce/pkg/protocol"
)

// Records outbound messages and lets tests feed inbound ones.
type recordingChannel struct {
	mu    sync.Mutex
	sent  []*protocol.Message
	inbox chan *protocol.Message
}

func newRecordingChannel() *recordingChannel {
	return &recordingChannel{inbox: make(chan *protocol.Message, 100)}
}

func (c *recordingChannel) Send(msg *protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *recordingChannel) Messages() <-chan *protocol.Message {
	return c.inbox
}

func (c *recordingChannel) Sent(types ...protocol.MessageType) []*protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(types) == 0 {
		return append([]*protocol.Message{}, c.sent...)
	}

	var result []*protocol.Message
	for _, msg := range c.sent {
		for _, t := range types {
			if msg.Type == t {
				result = append(result, msg)
			}
		}
	}
	return result
}

func (c *recordingChannel) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = nil
}

type providerMap map[string]*WorkerProvider

func (m providerMap) Lookup(id string) *WorkerProvider {
	return m[id]
}

func (m providerMap) add(id string, attributes Attributes) *WorkerProvider {
	p := NewWorkerProvider(id, attributes)
	m[id] = p
	return p
}

// Workforce events may arrive from the timer goroutine.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) all() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

func (l *eventLog) last() Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == 0 {
		return nil
	}
	return l.events[len(l.events)-1]
}
