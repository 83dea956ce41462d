package provider

import (
	"testing"

	"github.com/srand/jolt/workforce/pkg/protocol"
	"github.com/srand/jolt/workforce/pkg/utils"
	"github.com/srand/jolt/workforce/pkg/workforce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	b := workforce.NewWorkerProvider("b", workforce.Attributes{"label": "cpu"})
	a := workforce.NewWorkerProvider("a", workforce.Attributes{"label": "gpu"})
	require.NoError(t, r.Add(b))
	require.NoError(t, r.Add(a))

	assert.ErrorIs(t, r.Add(workforce.NewWorkerProvider("a", nil)), utils.ErrBadRequest)
	assert.ErrorIs(t, r.Add(workforce.NewWorkerProvider("", nil)), utils.ErrBadRequest)
	assert.ErrorIs(t, r.Add(nil), utils.ErrBadRequest)

	assert.Same(t, a, r.Lookup("a"))
	assert.Nil(t, r.Lookup("c"))

	_, err := r.Get("c")
	assert.ErrorIs(t, err, utils.ErrNotFound)

	assert.Equal(t, []*workforce.WorkerProvider{a, b}, r.List())

	assert.True(t, r.Remove("b"))
	assert.False(t, r.Remove("b"))
	assert.Equal(t, []*workforce.WorkerProvider{a}, r.List())
}

func TestRegistryPost(t *testing.T) {
	r := NewRegistry()
	p := workforce.NewWorkerProvider("p1", nil)
	require.NoError(t, r.Add(p))

	var events []workforce.ProviderEvent
	p.On(func(e workforce.ProviderEvent) { events = append(events, e) })

	assert.Empty(t, r.Available())

	require.NoError(t, r.Post("p1", protocol.ProviderMessage{Type: protocol.ProviderAvailable}))
	require.NoError(t, r.Post("p1", protocol.ProviderMessage{Type: protocol.ProviderWorker, Id: "w1"}))
	assert.Equal(t, []*workforce.WorkerProvider{p}, r.Available())

	assert.Equal(t, []workforce.ProviderEvent{
		workforce.AvailableEvent{},
		workforce.ProviderWorkerEvent{Id: "w1"},
	}, events)

	assert.ErrorIs(t, r.Post("p2", protocol.ProviderMessage{Type: protocol.ProviderAvailable}), utils.ErrNotFound)
}

func TestRegistryFromInfo(t *testing.T) {
	r := NewRegistry()
	p := workforce.NewWorkerProvider("p1", workforce.Attributes{"label": "gpu"})
	require.NoError(t, r.Add(p))
	require.NoError(t, r.Add(workforce.NewWorkerProvider("p2", nil)))
	p.HandleMessage(protocol.ProviderMessage{Type: protocol.ProviderAvailable})

	infos := r.Describe()
	require.Len(t, infos, 2)
	assert.Equal(t, Info{Id: "p1", Attributes: workforce.Attributes{"label": "gpu"}, Available: true}, infos[0])

	mirror, err := NewRegistryFromInfo(infos)
	require.NoError(t, err)
	assert.Equal(t, infos, mirror.Describe())

	_, err = NewRegistryFromInfo([]Info{{Id: "x"}, {Id: "x"}})
	assert.ErrorIs(t, err, utils.ErrBadRequest)
}
