package workforce

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/srand/jolt/workforce/pkg/log"
	"github.com/srand/jolt/workforce/pkg/protocol"
	"github.com/srand/jolt/workforce/pkg/utils"
)

var logger = log.Component("workforce")

// State of a workforce.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
	StateKilled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateKilled:
		return "killed"
	}
	return "unknown"
}

// KillReason tells workers why the workforce went away.
type KillReason int

const (
	KillReasonDead KillReason = iota
	KillReasonTimeout
)

const (
	ReasonWorkforceDead    = "workforce dead"
	ReasonWorkforceTimeout = "workforce timeout"
)

// WorkerReason is the reason reported to every worker of a killed workforce.
func (r KillReason) WorkerReason() string {
	if r == KillReasonTimeout {
		return ReasonWorkforceTimeout
	}
	return ReasonWorkforceDead
}

func (r KillReason) String() string {
	return r.WorkerReason()
}

// A Workforce coordinates a pool of remote workers over one channel.
//
// Inbound messages are applied by Run, or directly through HandleMessage,
// in channel order. The public API may be called from any goroutine.
// Listeners and handlers are never invoked while internal locks are held,
// so they may call back into the workforce and its workers.
type Workforce struct {
	channel  Channel
	resolver Resolver
	options  Options

	mu             sync.Mutex
	state          State
	workers        map[string]*Worker
	// Ids of dead workers, never admitted again. It grows by one entry per
	// worker for the lifetime of the workforce, which is the cost of
	// rejecting a reused id. Long lived users should create a new
	// workforce rather than re-populate one indefinitely.
	retired        map[string]struct{}
	uniquenessSeen map[string]struct{}
	timer          *time.Timer

	// Timeouts are applied by an active Run so that deaths are ordered
	// with inbound messages.
	runMu   sync.Mutex
	runners int
	expired bool
	expiry  chan struct{}

	started atomic.Bool
	killed  atomic.Bool
	done    chan struct{}
	events  *utils.Emitter[Event]
}

// New creates a workforce bound to a channel and a provider resolver.
func New(channel Channel, resolver Resolver, options Options) (*Workforce, error) {
	if channel == nil {
		return nil, utils.ErrMissingChannel
	}

	if resolver == nil {
		return nil, utils.ErrMissingResolver
	}

	return &Workforce{
		channel:        channel,
		resolver:       resolver,
		options:        options.withDefaults(),
		workers:        map[string]*Worker{},
		retired:        map[string]struct{}{},
		uniquenessSeen: map[string]struct{}{},
		expiry:         make(chan struct{}, 1),
		done:           make(chan struct{}),
		events:         utils.NewEmitter[Event](),
	}, nil
}

func (wf *Workforce) On(fn func(Event)) utils.ListenerID {
	return wf.events.On(fn)
}

func (wf *Workforce) RemoveListener(id utils.ListenerID) bool {
	return wf.events.RemoveListener(id)
}

// Done is closed when the workforce has been killed.
func (wf *Workforce) Done() <-chan struct{} {
	return wf.done
}

func (wf *Workforce) State() State {
	wf.mu.Lock()
	defer wf.mu.Unlock()
	return wf.state
}

func (wf *Workforce) KillOnStop() bool {
	return *wf.options.KillOnStop
}

// Workers returns the live workers, ordered by id.
func (wf *Workforce) Workers() []*Worker {
	wf.mu.Lock()
	workers := make([]*Worker, 0, len(wf.workers))
	for _, worker := range wf.workers {
		workers = append(workers, worker)
	}
	wf.mu.Unlock()

	sort.Slice(workers, func(i, j int) bool {
		return workers[i].Id() < workers[j].Id()
	})
	return workers
}

func (wf *Workforce) Worker(id string) (*Worker, bool) {
	wf.mu.Lock()
	defer wf.mu.Unlock()
	worker, ok := wf.workers[id]
	return worker, ok
}

// Run applies inbound channel messages until the workforce is killed, the
// channel closes or the context is cancelled. The latter two kill the
// workforce before Run returns.
func (wf *Workforce) Run(ctx context.Context) error {
	wf.runMu.Lock()
	if wf.expired {
		wf.runMu.Unlock()
		// The timer goroutine may still be sweeping.
		wf.Kill(KillReasonTimeout)
		<-wf.done
		return nil
	}
	wf.runners++
	wf.runMu.Unlock()

	defer func() {
		wf.runMu.Lock()
		wf.runners--
		wf.runMu.Unlock()
	}()

	messages := wf.channel.Messages()

	for {
		select {
		case <-wf.done:
			return nil

		case <-wf.expiry:
			wf.Kill(KillReasonTimeout)
			return nil

		case <-ctx.Done():
			wf.Kill(KillReasonDead)
			return ctx.Err()

		case msg, ok := <-messages:
			if !ok {
				logger.Debug("Channel closed")
				wf.Kill(KillReasonDead)
				return nil
			}
			wf.HandleMessage(msg)
		}
	}
}

// HandleMessage applies one inbound protocol message. Messages about
// unknown workers are ignored; they race with local kills by nature.
func (wf *Workforce) HandleMessage(msg *protocol.Message) {
	if msg == nil || wf.killed.Load() {
		return
	}

	logger.Trace("Received", msg)

	switch msg.Type {
	case protocol.WorkerMessage:
		wf.workerMessage(msg.WorkerId, msg.Payload)
	case protocol.WorkerDead:
		wf.workerDead(msg.WorkerId, msg.Reason)
	case protocol.AddWorker:
		wf.addWorker(msg.WorkerId, msg.ProviderId)
	case protocol.Stop:
		wf.Stop()
	default:
		logger.Debug("Ignoring unexpected message:", msg)
	}
}

// Start marks the workforce as running. Only the first call has an effect.
func (wf *Workforce) Start() {
	if !wf.started.CompareAndSwap(false, true) {
		return
	}

	wf.mu.Lock()
	if wf.state == StateIdle {
		wf.state = StateRunning
	}
	if wf.options.Timeout > 0 && !wf.killed.Load() {
		wf.timer = time.AfterFunc(wf.options.Timeout, wf.expire)
	}
	wf.mu.Unlock()

	wf.events.Emit(StartEvent{})
}

// Hands the timeout to an active Run, or kills directly if there is none.
func (wf *Workforce) expire() {
	logger.Debug("Timeout expired after", wf.options.Timeout)

	wf.runMu.Lock()
	wf.expired = true
	if wf.runners > 0 {
		select {
		case wf.expiry <- struct{}{}:
		default:
		}
		wf.runMu.Unlock()
		return
	}
	wf.runMu.Unlock()

	wf.Kill(KillReasonTimeout)
}

// Stop runs the stop handler and, if configured, kills the workforce.
func (wf *Workforce) Stop() {
	wf.mu.Lock()
	if wf.state != StateKilled {
		wf.state = StateStopped
	}
	wf.mu.Unlock()

	wf.options.StopHandler()

	if *wf.options.KillOnStop {
		wf.Kill(KillReasonDead)
	}
}

// Kill tears the workforce down. Only the first call has an effect.
//
// The remote side is told once with a kill message; local workers are marked
// dead without a message of their own.
func (wf *Workforce) Kill(reason KillReason) {
	if !wf.killed.CompareAndSwap(false, true) {
		return
	}

	wf.mu.Lock()
	wf.state = StateKilled
	if wf.timer != nil {
		wf.timer.Stop()
	}
	workers := make([]*Worker, 0, len(wf.workers))
	for _, worker := range wf.workers {
		workers = append(workers, worker)
	}
	wf.mu.Unlock()

	logger.Debugf("Killing workforce (%s), %d workers", reason, len(workers))

	wf.send(protocol.NewKill())

	sort.Slice(workers, func(i, j int) bool {
		return workers[i].Id() < workers[j].Id()
	})
	for _, worker := range workers {
		worker.die(DeadEvent{Reason: reason.WorkerReason(), Origin: DeathWorkforce})
	}

	wf.events.Emit(WorkforceDeadEvent{Reason: reason})
	wf.events.Close()
	close(wf.done)
}

// Broadcast sends payload, encoded as JSON, to all workers collectively.
func (wf *Workforce) Broadcast(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrBadRequest, err)
	}

	wf.BroadcastRaw(data)
	return nil
}

func (wf *Workforce) BroadcastRaw(payload json.RawMessage) {
	if wf.killed.Load() {
		return
	}
	wf.send(protocol.NewBroadcast(payload))
}

type candidate struct {
	provider *WorkerProvider
	hash     string
	unique   bool
}

// Populate requests workers from the given providers.
//
// Providers rejected by the provider filter are dropped. With a uniqueness
// filter, providers whose hash is already admitted are dropped as well. If no
// provider survives, nothing is sent. A failing predicate aborts the call
// without admitting anything.
func (wf *Workforce) Populate(providers ...*WorkerProvider) error {
	if wf.killed.Load() {
		return nil
	}

	candidates := make([]candidate, 0, len(providers))

	for _, provider := range providers {
		if provider == nil {
			continue
		}

		attributes := provider.Attributes()

		ok, err := wf.options.ProviderFilter(attributes)
		if err != nil {
			return fmt.Errorf("provider filter failed for %s: %w", provider.Id(), err)
		}
		if !ok {
			logger.Tracef("Provider %s filtered out", provider.Id())
			continue
		}

		c := candidate{provider: provider}

		if wf.options.UniquenessFilter != nil {
			c.hash, err = wf.options.UniquenessFilter(attributes)
			if err != nil {
				return fmt.Errorf("uniqueness filter failed for %s: %w", provider.Id(), err)
			}
			c.unique = true
		}

		candidates = append(candidates, c)
	}

	providerIds := []string{}

	wf.mu.Lock()
	for _, c := range candidates {
		if c.unique {
			if _, seen := wf.uniquenessSeen[c.hash]; seen {
				logger.Tracef("Provider %s is not unique", c.provider.Id())
				continue
			}
			wf.uniquenessSeen[c.hash] = struct{}{}
		}
		providerIds = append(providerIds, c.provider.Id())
	}
	wf.mu.Unlock()

	if len(providerIds) == 0 {
		return nil
	}

	logger.Debug("Populating", providerIds)
	wf.send(protocol.NewPopulate(providerIds))
	return nil
}

func (wf *Workforce) send(msg *protocol.Message) {
	logger.Trace("Sending", msg)

	if err := wf.channel.Send(msg); err != nil {
		logger.Debugf("Failed to send %s: %v", msg.Type, err)
	}
}

func (wf *Workforce) workerMessage(workerId string, payload json.RawMessage) {
	worker, ok := wf.Worker(workerId)
	if !ok {
		logger.Tracef("Message for unknown worker %s ignored", workerId)
		return
	}

	if worker.deliver(payload) {
		wf.events.Emit(WorkerMessageEvent{Worker: worker, Payload: payload})
	}
}

func (wf *Workforce) workerDead(workerId, reason string) {
	worker, ok := wf.Worker(workerId)
	if !ok {
		logger.Tracef("Death of unknown worker %s ignored", workerId)
		return
	}

	logger.Debugf("Worker %s died: %s", worker, reason)
	worker.die(DeadEvent{Reason: reason, Origin: DeathRemote})
}

func (wf *Workforce) addWorker(workerId, providerId string) {
	provider := wf.resolver.Lookup(providerId)
	if provider == nil {
		logger.Warnf("Worker %s added by unknown provider %s", workerId, providerId)
	}

	worker, err := NewWorker(workerId, provider, func(payload json.RawMessage) {
		wf.send(protocol.NewWorkerMessage(workerId, payload))
	})
	if err != nil {
		logger.Error(err)
		return
	}
	worker.onDeath = wf.workerDied

	wf.mu.Lock()
	if wf.killed.Load() {
		wf.mu.Unlock()
		return
	}
	_, live := wf.workers[workerId]
	_, retired := wf.retired[workerId]
	if live || retired {
		wf.mu.Unlock()
		logger.Debugf("Duplicate worker %s ignored", workerId)
		return
	}
	wf.workers[workerId] = worker
	wf.mu.Unlock()

	logger.Debugf("Worker %s added", worker)

	wf.options.WorkerHandler(worker)
	wf.events.Emit(WorkerAddedEvent{Worker: worker})
}

// Bookkeeping for a dead worker. Runs before the worker's own listeners so
// that they observe the released uniqueness slot.
func (wf *Workforce) workerDied(worker *Worker, event DeadEvent) {
	hash, hashed := wf.uniquenessHash(worker)

	wf.mu.Lock()
	if current, ok := wf.workers[worker.Id()]; ok && current == worker {
		delete(wf.workers, worker.Id())
	}
	wf.retired[worker.Id()] = struct{}{}
	if hashed {
		delete(wf.uniquenessSeen, hash)
	}
	wf.mu.Unlock()

	// Only local kills are news to the remote side.
	if event.Origin == DeathLocal {
		wf.send(protocol.NewWorkerDead(worker.Id(), event.Reason))
	}
}

func (wf *Workforce) uniquenessHash(worker *Worker) (string, bool) {
	if wf.options.UniquenessFilter == nil || worker.Provider() == nil {
		return "", false
	}

	hash, err := wf.options.UniquenessFilter(worker.Provider().Attributes())
	if err != nil {
		logger.Debugf("Uniqueness filter failed for %s: %v", worker, err)
		return "", false
	}
	return hash, true
}
