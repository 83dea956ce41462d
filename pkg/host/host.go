package host

import (
	"context"
	"sort"
	"sync"

	"github.com/srand/jolt/workforce/pkg/channel"
	"github.com/srand/jolt/workforce/pkg/log"
	"github.com/srand/jolt/workforce/pkg/protocol"
	"github.com/srand/jolt/workforce/pkg/provider"
)

var logger = log.Component("host")

// A Host serves the providers of a registry to remote workforces. Every
// connected channel becomes a session with its own workers.
type Host struct {
	registry *provider.Registry
	metrics  *Metrics

	mu       sync.Mutex
	runtimes map[string]Runtime
	sessions map[string]*Session
}

func New(registry *provider.Registry, metrics *Metrics) *Host {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Host{
		registry: registry,
		metrics:  metrics,
		runtimes: map[string]Runtime{},
		sessions: map[string]*Session{},
	}
}

// NewFromCatalog registers the providers of a catalog and their runtimes.
func NewFromCatalog(catalog *provider.Catalog, metrics *Metrics) (*Host, error) {
	registry := provider.NewRegistry()
	if err := catalog.Register(registry); err != nil {
		return nil, err
	}

	h := New(registry, metrics)
	for providerId, name := range catalog.Runtimes() {
		rt, err := LookupRuntime(name)
		if err != nil {
			return nil, err
		}
		h.SetRuntime(providerId, rt)
	}
	return h, nil
}

func (h *Host) Registry() *provider.Registry {
	return h.registry
}

// SetRuntime selects the runtime of the workers spawned by a provider.
func (h *Host) SetRuntime(providerId string, rt Runtime) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runtimes[providerId] = rt
}

func (h *Host) runtime(providerId string) Runtime {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runtimes[providerId]
}

func (h *Host) post(providerId string, msg protocol.ProviderMessage) {
	if err := h.registry.Post(providerId, msg); err != nil {
		logger.Debug("Provider message dropped:", err)
	}
}

// Sessions returns the active sessions ordered by id.
func (h *Host) Sessions() []*Session {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].id < sessions[j].id
	})
	return sessions
}

// Stop asks the workforce of a session to stop gracefully.
func (h *Host) Stop(s *Session) {
	s.Stop()
}

// StopAll asks every connected workforce to stop.
func (h *Host) StopAll() {
	for _, s := range h.Sessions() {
		s.Stop()
	}
}

// Serve runs a session on ch until the workforce is killed, the channel
// closes or ctx is cancelled. All workers of the session are cancelled and
// the channel is closed before Serve returns.
func (h *Host) Serve(ctx context.Context, ch channel.Channel) {
	s := newSession(ctx, h, ch)

	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
	h.metrics.sessions.Inc()

	logger.Infof("Session %s: connected", s.id)

	s.run()
	ch.Close()

	h.mu.Lock()
	delete(h.sessions, s.id)
	h.mu.Unlock()
	h.metrics.sessions.Dec()

	logger.Infof("Session %s: disconnected", s.id)
}
