package workforce

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/srand/jolt/workforce/pkg/utils"
)

// SendFunc delivers an application payload to the remote execution unit.
type SendFunc func(payload json.RawMessage)

// A Worker is the local handle of one remote execution unit.
//
// Workers are created by a Workforce when the remote side announces them.
// A worker dies exactly once: when Kill is called, when the remote side
// reports it dead, or when the whole workforce is killed. After death all
// listeners are released and sends are dropped.
type Worker struct {
	id       string
	provider *WorkerProvider
	send     SendFunc
	events   *utils.Emitter[WorkerEvent]
	killed   atomic.Bool

	// Invoked once, before listeners, with the terminal event.
	onDeath func(*Worker, DeadEvent)
}

func NewWorker(id string, provider *WorkerProvider, send SendFunc) (*Worker, error) {
	if send == nil {
		return nil, utils.ErrMissingSender
	}

	return &Worker{
		id:       id,
		provider: provider,
		send:     send,
		events:   utils.NewEmitter[WorkerEvent](),
	}, nil
}

func (w *Worker) Id() string {
	return w.id
}

// Provider returns the provider that hosts the worker.
// It is nil if the provider could not be resolved when the worker was added.
func (w *Worker) Provider() *WorkerProvider {
	return w.provider
}

func (w *Worker) String() string {
	if w.provider != nil {
		return fmt.Sprintf("%s@%s", w.id, w.provider.Id())
	}
	return w.id
}

// Send encodes payload as JSON and forwards it to the remote worker.
// Sending to a dead worker is a no-op.
func (w *Worker) Send(payload any) error {
	if w.killed.Load() {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrBadRequest, err)
	}

	w.SendRaw(data)
	return nil
}

// SendRaw forwards an already encoded payload.
func (w *Worker) SendRaw(payload json.RawMessage) {
	if w.killed.Load() {
		return
	}
	w.send(payload)
}

func (w *Worker) On(fn func(WorkerEvent)) utils.ListenerID {
	return w.events.On(fn)
}

func (w *Worker) OnMessage(fn func(payload json.RawMessage)) utils.ListenerID {
	return w.events.On(func(e WorkerEvent) {
		if msg, ok := e.(MessageEvent); ok {
			fn(msg.Payload)
		}
	})
}

func (w *Worker) OnDead(fn func(DeadEvent)) utils.ListenerID {
	return w.events.On(func(e WorkerEvent) {
		if dead, ok := e.(DeadEvent); ok {
			fn(dead)
		}
	})
}

func (w *Worker) RemoveListener(id utils.ListenerID) bool {
	return w.events.RemoveListener(id)
}

// Kill terminates the worker. Only the first call has any effect.
func (w *Worker) Kill() {
	w.die(DeadEvent{Origin: DeathLocal})
}

func (w *Worker) Killed() bool {
	return w.killed.Load()
}

func (w *Worker) deliver(payload json.RawMessage) bool {
	if w.killed.Load() {
		return false
	}
	w.events.Emit(MessageEvent{Payload: payload})
	return true
}

func (w *Worker) die(event DeadEvent) bool {
	if !w.killed.CompareAndSwap(false, true) {
		return false
	}

	if w.onDeath != nil {
		w.onDeath(w, event)
	}

	w.events.Emit(event)
	w.events.Close()
	return true
}
