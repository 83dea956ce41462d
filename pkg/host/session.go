package host

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/srand/jolt/workforce/pkg/channel"
	"github.com/srand/jolt/workforce/pkg/protocol"
)

const (
	// ReasonWorkerExited is reported when a runtime returns without error.
	ReasonWorkerExited = "worker exited"
	// ReasonInboxOverflow is reported for a worker that stopped reading
	// its messages.
	ReasonInboxOverflow = "worker inbox overflow"
)

// A Session serves the workers of one workforce connected over one channel.
type Session struct {
	id      string
	host    *Host
	channel channel.Channel
	ctx     context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	workers map[string]*Worker
	wg      sync.WaitGroup
}

func newSession(ctx context.Context, host *Host, ch channel.Channel) *Session {
	ctx, cancel := context.WithCancel(ctx)
	return &Session{
		id:      uuid.NewString(),
		host:    host,
		channel: ch,
		ctx:     ctx,
		cancel:  cancel,
		workers: map[string]*Worker{},
	}
}

func (s *Session) Id() string {
	return s.id
}

// Workers returns the running workers ordered by id.
func (s *Session) Workers() []*Worker {
	s.mu.Lock()
	workers := make([]*Worker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	s.mu.Unlock()

	sort.Slice(workers, func(i, j int) bool {
		return workers[i].id < workers[j].id
	})
	return workers
}

func (s *Session) worker(id string) (*Worker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workers[id]
	return w, ok
}

// Stop asks the workforce to stop gracefully.
func (s *Session) Stop() {
	s.send(protocol.NewStop())
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

func (s *Session) send(msg *protocol.Message) {
	logger.Trace("Sending", msg)

	if err := s.channel.Send(msg); err != nil {
		logger.Debugf("Session %s: failed to send %s: %v", s.id, msg.Type, err)
		return
	}
	s.host.metrics.messagesRouted.WithLabelValues("out", msg.Type.String()).Inc()
}

func (s *Session) run() {
	defer func() {
		s.cancel()
		s.wg.Wait()
	}()

	messages := s.channel.Messages()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg, ok := <-messages:
			if !ok {
				logger.Debugf("Session %s: channel closed", s.id)
				return
			}
			s.host.metrics.messagesRouted.WithLabelValues("in", msg.Type.String()).Inc()
			s.handle(msg)
		}
	}
}

func (s *Session) handle(msg *protocol.Message) {
	logger.Trace("Received", msg)

	switch msg.Type {
	case protocol.Populate:
		for _, providerId := range msg.ProviderIds {
			s.spawn(providerId)
		}

	case protocol.WorkerMessage:
		if w, ok := s.worker(msg.WorkerId); ok {
			if !w.deliver(msg.Payload) {
				logger.Debugf("Session %s: message for worker %s dropped", s.id, w)
			}
		} else {
			logger.Tracef("Session %s: message for unknown worker %s ignored", s.id, msg.WorkerId)
		}

	case protocol.WorkerDead:
		if w, ok := s.worker(msg.WorkerId); ok {
			logger.Debugf("Session %s: worker %s killed by workforce", s.id, w)
			w.silenced.Store(true)
			w.cancel()
		}

	case protocol.Broadcast:
		for _, w := range s.Workers() {
			w.deliver(msg.Payload)
		}

	case protocol.Kill:
		logger.Debugf("Session %s: workforce killed", s.id)
		s.cancel()

	default:
		logger.Debugf("Session %s: ignoring unexpected message %s", s.id, msg)
	}
}

func (s *Session) spawn(providerId string) {
	p := s.host.registry.Lookup(providerId)
	if p == nil || !p.Available() {
		logger.Debugf("Session %s: provider %s not available", s.id, providerId)
		s.host.metrics.populateSkipped.WithLabelValues(providerId).Inc()
		return
	}

	rt := s.host.runtime(providerId)
	if rt == nil {
		logger.Warnf("Session %s: no runtime for provider %s", s.id, providerId)
		s.host.metrics.populateSkipped.WithLabelValues(providerId).Inc()
		return
	}

	w := newWorker(uuid.NewString(), providerId, s)

	s.mu.Lock()
	s.workers[w.id] = w
	s.mu.Unlock()

	// The workforce must learn about the worker before its first message.
	s.send(protocol.NewAddWorker(w.id, providerId))
	s.host.post(providerId, protocol.ProviderMessage{Type: protocol.ProviderWorker, Id: w.id})

	s.host.metrics.workersSpawned.WithLabelValues(providerId).Inc()
	s.host.metrics.workers.WithLabelValues(providerId).Inc()

	logger.Debugf("Session %s: spawned worker %s", s.id, w)

	s.wg.Add(1)
	go s.runWorker(w, rt)
}

func (s *Session) runWorker(w *Worker, rt Runtime) {
	defer s.wg.Done()

	err := rt(w.ctx, w)
	cancelled := w.ctx.Err() != nil
	w.cancel()

	s.mu.Lock()
	delete(s.workers, w.id)
	s.mu.Unlock()

	reason := ReasonWorkerExited
	cause := "exited"
	switch {
	case w.overflowed.Load():
		reason = ReasonInboxOverflow
		cause = "overflow"
	case cancelled && (errors.Is(err, context.Canceled) || err == nil):
		cause = "cancelled"
	case err != nil:
		reason = err.Error()
		cause = "failed"
	}

	logger.Debugf("Session %s: worker %s terminated (%s)", s.id, w, cause)

	s.host.metrics.workers.WithLabelValues(w.providerId).Dec()
	s.host.metrics.workersDead.WithLabelValues(w.providerId, cause).Inc()

	// Deaths the workforce decided itself are not echoed.
	if !w.silenced.Load() && s.ctx.Err() == nil {
		s.send(protocol.NewWorkerDead(w.id, reason))
	}

	s.host.post(w.providerId, protocol.ProviderMessage{Type: protocol.ProviderWorkerDead, Id: w.id})
}
