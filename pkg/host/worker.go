package host

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/srand/jolt/workforce/pkg/protocol"
	"github.com/srand/jolt/workforce/pkg/utils"
)

// Size of a worker's inbox. A worker whose inbox overflows is terminated
// so that routing for the rest of the session never stalls.
const workerInboxSize = 64

// A Worker is one execution unit spawned by a host on behalf of a workforce.
type Worker struct {
	id         string
	providerId string
	session    *Session
	inbox      chan json.RawMessage
	ctx        context.Context
	cancel     context.CancelFunc

	// Set when the workforce already knows the worker is dead.
	silenced atomic.Bool
	// Set when the worker fell behind reading its inbox.
	overflowed atomic.Bool
}

func newWorker(id, providerId string, session *Session) *Worker {
	ctx, cancel := context.WithCancel(session.ctx)
	return &Worker{
		id:         id,
		providerId: providerId,
		session:    session,
		inbox:      make(chan json.RawMessage, workerInboxSize),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (w *Worker) Id() string {
	return w.id
}

func (w *Worker) ProviderId() string {
	return w.providerId
}

func (w *Worker) String() string {
	return fmt.Sprintf("%s@%s", w.id, w.providerId)
}

// Messages returns the payloads sent to this worker or broadcast to its
// workforce, in channel order.
func (w *Worker) Messages() <-chan json.RawMessage {
	return w.inbox
}

// Send encodes payload as JSON and sends it to the workforce.
func (w *Worker) Send(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrBadRequest, err)
	}
	w.SendRaw(data)
	return nil
}

// SendRaw sends an encoded payload. Sends from a cancelled worker are dropped.
func (w *Worker) SendRaw(payload json.RawMessage) {
	if w.ctx.Err() != nil {
		return
	}
	w.session.send(protocol.NewWorkerMessage(w.id, payload))
}

// Queues payload without blocking. Returns false if the worker is gone or
// was terminated for falling behind.
func (w *Worker) deliver(payload json.RawMessage) bool {
	if w.ctx.Err() != nil {
		return false
	}

	select {
	case w.inbox <- payload:
		return true
	default:
	}

	if w.overflowed.CompareAndSwap(false, true) {
		w.cancel()
	}
	return false
}
