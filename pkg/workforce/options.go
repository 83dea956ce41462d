package workforce

import (
	"time"

	"github.com/srand/jolt/workforce/pkg/protocol"
)

// ProviderFilter decides if a provider may be populated.
type ProviderFilter func(Attributes) (bool, error)

// UniquenessFilter derives the identity of the logical provider behind a set
// of attributes. At most one provider per hash is admitted at any time. The
// empty string is a hash like any other.
type UniquenessFilter func(Attributes) (string, error)

// Channel is the ordered, message oriented transport between a workforce
// and its remote counterpart. Messages is closed when the channel closes.
type Channel interface {
	Send(*protocol.Message) error
	Messages() <-chan *protocol.Message
}

// Resolver looks up worker providers by id. It returns nil for unknown ids.
type Resolver interface {
	Lookup(providerId string) *WorkerProvider
}

type ResolverFunc func(providerId string) *WorkerProvider

func (fn ResolverFunc) Lookup(providerId string) *WorkerProvider {
	return fn(providerId)
}

type Options struct {
	// Called when the workforce is stopped, locally or by the remote side.
	StopHandler func()

	// Called for every new worker, before the WorkerAddedEvent is emitted.
	WorkerHandler func(*Worker)

	// Accepts all providers by default.
	ProviderFilter ProviderFilter

	// No deduplication by default.
	UniquenessFilter UniquenessFilter

	// Kill the workforce when stopped. Defaults to true, or to false when a
	// StopHandler is configured.
	KillOnStop *bool

	// Kill the workforce with KillReasonTimeout this long after Start.
	// While Run is active, the kill happens on the Run goroutine.
	// Zero disables the timeout.
	Timeout time.Duration
}

func Bool(b bool) *bool {
	return &b
}

func acceptAll(Attributes) (bool, error) {
	return true, nil
}

func (o Options) withDefaults() Options {
	if o.StopHandler == nil {
		if o.KillOnStop == nil {
			o.KillOnStop = Bool(true)
		}
		o.StopHandler = func() {}
	} else if o.KillOnStop == nil {
		o.KillOnStop = Bool(false)
	}

	if o.WorkerHandler == nil {
		o.WorkerHandler = func(*Worker) {}
	}

	if o.ProviderFilter == nil {
		o.ProviderFilter = acceptAll
	}

	return o
}
