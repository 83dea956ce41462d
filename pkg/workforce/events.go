package workforce

import "encoding/json"

// DeathOrigin tells where the death of a worker was decided.
type DeathOrigin int

const (
	// Worker.Kill() was called locally.
	DeathLocal DeathOrigin = iota
	// The remote side reported the worker dead.
	DeathRemote
	// The whole workforce was killed.
	DeathWorkforce
)

func (o DeathOrigin) String() string {
	switch o {
	case DeathLocal:
		return "local"
	case DeathRemote:
		return "remote"
	case DeathWorkforce:
		return "workforce"
	}
	return "unknown"
}

// WorkerEvent is either a MessageEvent or a DeadEvent.
type WorkerEvent interface {
	workerEvent()
}

// Application payload received from the remote worker.
type MessageEvent struct {
	Payload json.RawMessage
}

// Terminal event of a worker. Reason is empty for local kills.
type DeadEvent struct {
	Reason string
	Origin DeathOrigin
}

func (MessageEvent) workerEvent() {}
func (DeadEvent) workerEvent()    {}

// Event is emitted by a Workforce: StartEvent, WorkerAddedEvent,
// WorkerMessageEvent or WorkforceDeadEvent.
type Event interface {
	workforceEvent()
}

type StartEvent struct{}

type WorkerAddedEvent struct {
	Worker *Worker
}

type WorkerMessageEvent struct {
	Worker  *Worker
	Payload json.RawMessage
}

type WorkforceDeadEvent struct {
	Reason KillReason
}

func (StartEvent) workforceEvent()         {}
func (WorkerAddedEvent) workforceEvent()   {}
func (WorkerMessageEvent) workforceEvent() {}
func (WorkforceDeadEvent) workforceEvent() {}

// ProviderEvent is emitted by a WorkerProvider: AvailableEvent,
// UnavailableEvent, ProviderWorkerEvent or ProviderWorkerDeadEvent.
type ProviderEvent interface {
	providerEvent()
}

type AvailableEvent struct{}

type UnavailableEvent struct{}

// The provider spawned a worker.
type ProviderWorkerEvent struct {
	Id string
}

// A worker of the provider terminated.
type ProviderWorkerDeadEvent struct {
	Id string
}

func (AvailableEvent) providerEvent()          {}
func (UnavailableEvent) providerEvent()        {}
func (ProviderWorkerEvent) providerEvent()     {}
func (ProviderWorkerDeadEvent) providerEvent() {}
