// Package registry implements the Hub's in-memory directory from service
// name to the live control connection of the server that registered it.
package registry

import (
	"net"
	"sync"

	"github.com/sockethub/sockethub/internal/hub/fdpass"
	"github.com/sockethub/sockethub/internal/hub/wire"
	"github.com/sockethub/sockethub/internal/metrics"
)

// Outcome is the result of a Register call.
type Outcome int

const (
	// Registered means name was absent (or its incumbent was dead) and ctrl
	// is now the live entry for name.
	Registered Outcome = iota
	// AlreadyExists means name has a live incumbent; ctrl was not stored.
	AlreadyExists
)

// Registry is the Hub's service directory. Safe for concurrent use even
// though this implementation runs each connection's handling in its own
// goroutine: Register, Evict and CloseAll take the write lock of a single
// RWMutex and never overlap any other operation, while Lookup and Len take
// the read lock and may run concurrently with each other.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*net.UnixConn
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*net.UnixConn)}
}

// Register inserts (name, ctrl) iff name is absent. If name already has a
// live entry, Register probes it first with wire.ProbeByte: a broken-pipe
// probe evicts the stale entry and the new connection is inserted as
// Registered; otherwise Register returns AlreadyExists and ctrl is left
// untouched by the registry.
func (r *Registry) Register(name string, ctrl *net.UnixConn) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[name]; ok {
		_, probeErr := existing.Write([]byte{wire.ProbeByte})
		if probeErr == nil {
			metrics.ProbesTotal.WithLabelValues("alive").Inc()
			return AlreadyExists, nil
		}
		if !fdpass.IsBrokenPipe(probeErr) {
			return AlreadyExists, probeErr
		}
		metrics.ProbesTotal.WithLabelValues("evicted").Inc()
		delete(r.entries, name)
		metrics.ActiveServices.Dec()
	}

	r.entries[name] = ctrl
	metrics.ActiveServices.Inc()
	return Registered, nil
}

// Lookup returns the live control connection for name, if any.
func (r *Registry) Lookup(name string) (*net.UnixConn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctrl, ok := r.entries[name]
	return ctrl, ok
}

// Evict removes name from the registry, if present. It does not close the
// connection — callers that evict after a failed write already hold (or no
// longer need) the connection.
func (r *Registry) Evict(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; ok {
		delete(r.entries, name)
		metrics.ActiveServices.Dec()
	}
}

// CloseAll closes and removes every entry. Used during Hub shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, ctrl := range r.entries {
		_ = ctrl.Close()
		delete(r.entries, name)
	}
	metrics.ActiveServices.Set(0)
}

// Len returns the number of currently registered services.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
