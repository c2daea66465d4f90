package uploads

import (
	"context"
	"sync"
	"time"
)

// Factory builds the orchestrator for a browsing context.
type Factory func(contextID string) *Orchestrator

// Registry keeps one orchestration session per browsing context.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Orchestrator
	factory  Factory
}

// NewRegistry constructs an empty Registry.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		sessions: make(map[string]*Orchestrator),
		factory:  factory,
	}
}

// Get returns the live session of a browsing context.
func (r *Registry) Get(contextID string) (*Orchestrator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.sessions[contextID]
	return o, ok
}

// GetOrCreate returns the live session, starting one on first use.
func (r *Registry) GetOrCreate(contextID string) *Orchestrator {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.sessions[contextID]; ok {
		return o
	}
	o := r.factory(contextID)
	r.sessions[contextID] = o
	return o
}

// Close ends and forgets the session of a browsing context.
func (r *Registry) Close(ctx context.Context, contextID string) bool {
	r.mu.Lock()
	o, ok := r.sessions[contextID]
	delete(r.sessions, contextID)
	r.mu.Unlock()
	if ok {
		o.Close(ctx)
	}
	return ok
}

// Sweep closes sessions idle for longer than maxIdle. Sessions with a
// submission in flight are kept.
func (r *Registry) Sweep(ctx context.Context, maxIdle time.Duration, now time.Time) int {
	r.mu.Lock()
	var expired []*Orchestrator
	for id, o := range r.sessions {
		last, settled := o.idleSince()
		if settled && now.Sub(last) > maxIdle {
			expired = append(expired, o)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, o := range expired {
		o.Close(ctx)
	}
	return len(expired)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
