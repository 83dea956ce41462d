package workforce

import (
	"sync/atomic"

	"github.com/srand/jolt/workforce/pkg/protocol"
	"github.com/srand/jolt/workforce/pkg/utils"
)

// A WorkerProvider is the handle of one remote host able to run workers.
// Its attributes are fixed at construction. Availability follows the
// provider messages posted by the provider host.
type WorkerProvider struct {
	id         string
	attributes Attributes
	available  atomic.Bool
	events     *utils.Emitter[ProviderEvent]
}

func NewWorkerProvider(id string, attributes Attributes) *WorkerProvider {
	return &WorkerProvider{
		id:         id,
		attributes: attributes.Clone(),
		events:     utils.NewEmitter[ProviderEvent](),
	}
}

func (p *WorkerProvider) Id() string {
	return p.id
}

// Attributes returns a copy of the provider attributes.
func (p *WorkerProvider) Attributes() Attributes {
	return p.attributes.Clone()
}

func (p *WorkerProvider) Available() bool {
	return p.available.Load()
}

func (p *WorkerProvider) String() string {
	return p.id
}

func (p *WorkerProvider) On(fn func(ProviderEvent)) utils.ListenerID {
	return p.events.On(fn)
}

func (p *WorkerProvider) RemoveListener(id utils.ListenerID) bool {
	return p.events.RemoveListener(id)
}

// HandleMessage applies one provider sub-protocol message.
// Unknown message types are ignored.
func (p *WorkerProvider) HandleMessage(msg protocol.ProviderMessage) {
	switch msg.Type {
	case protocol.ProviderAvailable:
		p.available.Store(true)
		p.events.Emit(AvailableEvent{})

	case protocol.ProviderUnavailable:
		p.available.Store(false)
		p.events.Emit(UnavailableEvent{})

	case protocol.ProviderWorker:
		p.events.Emit(ProviderWorkerEvent{Id: msg.Id})

	case protocol.ProviderWorkerDead:
		p.events.Emit(ProviderWorkerDeadEvent{Id: msg.Id})

	default:
		logger.Debug("Unrecognized provider message:", msg)
	}
}
