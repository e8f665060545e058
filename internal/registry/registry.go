package registry

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// AgentStatus pairs a registered descriptor with its debounced liveness.
// Values returned from the registry are copies; mutating them never touches
// registry state.
type AgentStatus struct {
	Descriptor  AgentDescriptor `json:"descriptor"`
	Liveness    Liveness        `json:"liveness"`
	LastProbeAt time.Time       `json:"last_probe_at"`
}

// Online reports whether the agent is classified online. Unknown counts as
// not online for readiness purposes.
func (s AgentStatus) Online() bool { return s.Liveness == LivenessOnline }

// Transition describes a debounced liveness change produced by a probe.
type Transition struct {
	Agent AgentStatus
	From  Liveness
	To    Liveness
}

type entry struct {
	desc      AgentDescriptor
	track     tracker
	lastProbe time.Time
}

// Registry is the single owned store of known agents. Writers (registration
// upserts and probe results) serialize under the mutex; readers get a
// complete copied snapshot and never observe a half-written descriptor.
type Registry struct {
	entries   map[string]*entry
	order     []string // keys in first-registration order, kept for stable iteration
	threshold int
	mu        sync.RWMutex
	logger    *zap.Logger
}

// New creates an empty registry. threshold is the number of consecutive
// probe failures (or successes) required to toggle an agent's liveness.
func New(threshold int, logger *zap.Logger) *Registry {
	if threshold < 1 {
		threshold = 1
	}
	return &Registry{
		entries:   make(map[string]*entry),
		threshold: threshold,
		logger:    logger,
	}
}

// Register upserts a descriptor keyed by (name, baseUrl); last write wins.
// A malformed descriptor is rejected without mutating existing state.
//
// A newly seen agent is optimistically marked online — it just told us it
// exists, and the next probe cycle will confirm or revise. Re-registration
// replaces the descriptor but leaves the liveness classification and its
// debounce counters alone; only probe outcomes move those.
func (r *Registry) Register(d AgentDescriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := d.Key()
	if e, ok := r.entries[key]; ok {
		e.desc = d
		r.logger.Info("agent re-registered",
			zap.String("name", d.Name),
			zap.String("base_url", d.BaseURL),
			zap.String("liveness", string(e.track.liveness())))
		return nil
	}

	r.entries[key] = &entry{
		desc:  d,
		track: tracker{state: LivenessOnline},
	}
	r.order = append(r.order, key)
	r.logger.Info("agent registered",
		zap.String("name", d.Name),
		zap.String("base_url", d.BaseURL),
		zap.Int("total_agents", len(r.entries)))
	return nil
}

// RecordProbe feeds one probe outcome into an agent's debounce state
// machine. It returns the transition and true when the classification
// flipped. Probes for agents no longer in the registry are dropped.
func (r *Registry) RecordProbe(key string, ok bool, at time.Time) (Transition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[key]
	if !exists {
		return Transition{}, false
	}

	from := e.track.liveness()
	to, changed := e.track.observe(ok, r.threshold)
	e.lastProbe = at
	if !changed {
		return Transition{}, false
	}

	r.logger.Info("agent liveness changed",
		zap.String("name", e.desc.Name),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return Transition{Agent: statusOf(e), From: from, To: to}, true
}

// List returns a snapshot of all known agents in registration order. The
// snapshot is a copy; it stays internally consistent while probes and
// registrations continue in the background.
func (r *Registry) List() []AgentStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]AgentStatus, 0, len(r.order))
	for _, key := range r.order {
		if e, ok := r.entries[key]; ok {
			out = append(out, statusOf(e))
		}
	}
	return out
}

// Get returns the first registered agent with the given display name.
func (r *Registry) Get(name string) (AgentStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, key := range r.order {
		if e, ok := r.entries[key]; ok && e.desc.Name == name {
			return statusOf(e), true
		}
	}
	return AgentStatus{}, false
}

func statusOf(e *entry) AgentStatus {
	return AgentStatus{
		Descriptor:  e.desc,
		Liveness:    e.track.liveness(),
		LastProbeAt: e.lastProbe,
	}
}
