package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/srand/jolt/workforce/pkg/log"
	"github.com/srand/jolt/workforce/pkg/protocol"
	"github.com/srand/jolt/workforce/pkg/utils"
	"github.com/srand/jolt/workforce/pkg/workforce"
)

var logger = log.Component("provider")

// Info is the JSON description of a provider, as listed by a host.
type Info struct {
	Id         string               `json:"id"`
	Attributes workforce.Attributes `json:"attributes"`
	Available  bool                 `json:"available"`
}

func Describe(p *workforce.WorkerProvider) Info {
	return Info{
		Id:         p.Id(),
		Attributes: p.Attributes(),
		Available:  p.Available(),
	}
}

// Registry is a thread-safe set of worker providers keyed by id.
// It serves as the provider resolver of workforces.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*workforce.WorkerProvider
}

func NewRegistry() *Registry {
	return &Registry{
		providers: map[string]*workforce.WorkerProvider{},
	}
}

// NewRegistryFromInfo creates providers from host listings, with their
// availability as listed.
func NewRegistryFromInfo(infos []Info) (*Registry, error) {
	r := NewRegistry()
	for _, info := range infos {
		p := workforce.NewWorkerProvider(info.Id, info.Attributes)
		if err := r.Add(p); err != nil {
			return nil, err
		}
		if info.Available {
			p.HandleMessage(protocol.ProviderMessage{Type: protocol.ProviderAvailable})
		}
	}
	return r, nil
}

func (r *Registry) Add(p *workforce.WorkerProvider) error {
	if p == nil || p.Id() == "" {
		return fmt.Errorf("%w: provider without id", utils.ErrBadRequest)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[p.Id()]; ok {
		return fmt.Errorf("%w: duplicate provider %s", utils.ErrBadRequest, p.Id())
	}
	r.providers[p.Id()] = p

	logger.Debug("Added provider", p.Id())
	return nil
}

func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[id]; !ok {
		return false
	}
	delete(r.providers, id)
	return true
}

// Lookup returns the provider with the given id, or nil.
func (r *Registry) Lookup(id string) *workforce.WorkerProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[id]
}

func (r *Registry) Get(id string) (*workforce.WorkerProvider, error) {
	if p := r.Lookup(id); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("%w: provider %s", utils.ErrNotFound, id)
}

// List returns all providers ordered by id.
func (r *Registry) List() []*workforce.WorkerProvider {
	r.mu.RLock()
	list := make([]*workforce.WorkerProvider, 0, len(r.providers))
	for _, p := range r.providers {
		list = append(list, p)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].Id() < list[j].Id()
	})
	return list
}

// Available returns the available providers ordered by id.
func (r *Registry) Available() []*workforce.WorkerProvider {
	var list []*workforce.WorkerProvider
	for _, p := range r.List() {
		if p.Available() {
			list = append(list, p)
		}
	}
	return list
}

func (r *Registry) Describe() []Info {
	list := r.List()
	infos := make([]Info, 0, len(list))
	for _, p := range list {
		infos = append(infos, Describe(p))
	}
	return infos
}

// Post feeds a provider sub-protocol message to the provider with the given id.
func (r *Registry) Post(id string, msg protocol.ProviderMessage) error {
	p, err := r.Get(id)
	if err != nil {
		return err
	}

	logger.Trace("Provider", id, msg)
	p.HandleMessage(msg)
	return nil
}
