package channel

import (
	"errors"
	"io"
	"sync"

	"github.com/srand/jolt/workforce/pkg/log"
	"github.com/srand/jolt/workforce/pkg/protocol"
)

var logger = log.Component("channel")

// Number of decoded messages buffered between a transport's reader and the
// consumer of Messages.
const inboxSize = 100

// A Channel is an ordered, message oriented, bidirectional transport between
// a workforce and the host serving its providers.
//
// Messages returns the inbound queue. It is closed when the channel closes,
// locally or by the peer. Send fails with utils.ErrClosed after closure.
type Channel interface {
	Send(*protocol.Message) error
	Messages() <-chan *protocol.Message
	Close() error
}

// Shared inbound side of the stream transports. A single reader goroutine
// feeds the inbox and closes it when the transport ends.
type inbound struct {
	inbox     chan *protocol.Message
	done      chan struct{}
	closeOnce sync.Once
	// Closed when the reader goroutine has returned.
	drained chan struct{}

	mu  sync.Mutex
	err error
}

func newInbound() *inbound {
	return &inbound{
		inbox:   make(chan *protocol.Message, inboxSize),
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}
}

func (in *inbound) Messages() <-chan *protocol.Message {
	return in.inbox
}

func (in *inbound) closed() bool {
	select {
	case <-in.done:
		return true
	default:
		return false
	}
}

// The read error that ended the channel, if the peer did not hang up
// cleanly and the channel was not closed locally.
func (in *inbound) failure() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.err
}

// Returns true if this call closed the channel.
func (in *inbound) shutdown() bool {
	closed := false
	in.closeOnce.Do(func() {
		close(in.done)
		closed = true
	})
	return closed
}

// Runs recv until it fails or the channel is closed locally.
func (in *inbound) pump(recv func() (*protocol.Message, error)) {
	defer close(in.drained)
	defer close(in.inbox)

	for {
		msg, err := recv()
		if err != nil {
			if !in.closed() && !errors.Is(err, io.EOF) {
				logger.Trace("Read error:", err)
				in.mu.Lock()
				in.err = err
				in.mu.Unlock()
			}
			in.shutdown()
			return
		}

		select {
		case in.inbox <- msg:
		case <-in.done:
			return
		}
	}
}
