package channel

import (
	"sync"

	"github.com/srand/jolt/workforce/pkg/protocol"
	"github.com/srand/jolt/workforce/pkg/utils"
)

// Pipe returns two connected in-memory channel ends. Messages sent on one
// end arrive, in order, on the other. Sends never block. Closing either end
// closes both; messages already in flight are still delivered to the peer.
func Pipe() (Channel, Channel) {
	a := newPipeEnd()
	b := newPipeEnd()
	a.peer = b
	b.peer = a
	go a.pump()
	go b.pump()
	return a, b
}

type pipeEnd struct {
	peer *pipeEnd

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*protocol.Message
	eof     bool
	abandon chan struct{}
	once    sync.Once
	inbox   chan *protocol.Message
}

func newPipeEnd() *pipeEnd {
	end := &pipeEnd{
		abandon: make(chan struct{}),
		inbox:   make(chan *protocol.Message),
	}
	end.cond = sync.NewCond(&end.mu)
	return end
}

func (p *pipeEnd) Messages() <-chan *protocol.Message {
	return p.inbox
}

func (p *pipeEnd) Send(msg *protocol.Message) error {
	if msg == nil {
		return utils.ErrBadRequest
	}
	return p.peer.enqueue(msg)
}

func (p *pipeEnd) Close() error {
	p.once.Do(func() {
		close(p.abandon)
	})
	p.finish()
	p.peer.finish()
	return nil
}

func (p *pipeEnd) enqueue(msg *protocol.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.eof {
		return utils.ErrClosed
	}
	p.queue = append(p.queue, msg)
	p.cond.Signal()
	return nil
}

func (p *pipeEnd) finish() {
	p.mu.Lock()
	p.eof = true
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Moves queued messages into the inbox until the pipe is finished and
// drained, or this end is closed locally.
func (p *pipeEnd) pump() {
	defer close(p.inbox)

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.eof {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		msg := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		select {
		case p.inbox <- msg:
		case <-p.abandon:
			return
		}
	}
}
