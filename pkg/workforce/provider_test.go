package workforce

import (
	"testing"

	"github.com/srand/jolt/workforce/pkg/protocol"
	"github.com/stretchr/testify/assert"
)

func TestWorkerProviderAvailability(t *testing.T) {
	p := NewWorkerProvider("p1", Attributes{"name": "A"})
	assert.False(t, p.Available())

	var events []ProviderEvent
	p.On(func(e ProviderEvent) { events = append(events, e) })

	p.HandleMessage(protocol.ProviderMessage{Type: protocol.ProviderAvailable})
	assert.True(t, p.Available())

	p.HandleMessage(protocol.ProviderMessage{Type: protocol.ProviderWorker, Id: "w1"})
	p.HandleMessage(protocol.ProviderMessage{Type: protocol.ProviderWorkerDead, Id: "w1"})
	p.HandleMessage(protocol.ProviderMessage{Type: "bogus"})

	p.HandleMessage(protocol.ProviderMessage{Type: protocol.ProviderUnavailable})
	assert.False(t, p.Available())

	assert.Equal(t, []ProviderEvent{
		AvailableEvent{},
		ProviderWorkerEvent{Id: "w1"},
		ProviderWorkerDeadEvent{Id: "w1"},
		UnavailableEvent{},
	}, events)
}

func TestWorkerProviderAttributesImmutable(t *testing.T) {
	attrs := Attributes{"name": "A"}
	p := NewWorkerProvider("p1", attrs)

	attrs["name"] = "B"
	assert.Equal(t, "A", p.Attributes()["name"])

	copied := p.Attributes()
	copied["name"] = "C"
	assert.Equal(t, "A", p.Attributes()["name"])
}
