// Package readiness implements a minimal health-checking mechanism for use as
// k8s readiness probes. A component flips to ready once and stays ready - it
// is not meant for monitoring.
package readiness

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
)

type Component string

// Registry tracks the readiness of a fixed set of components. Multiple
// registries can coexist in one process; each node owns its own.
type Registry struct {
	mu         sync.Mutex
	components map[Component]bool
}

func NewRegistry() *Registry {
	return &Registry{components: map[Component]bool{}}
}

// RegisterComponent registers the given component name such that it is
// required to be ready for the registry's check to succeed.
func (r *Registry) RegisterComponent(component Component) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.components[component]; ok {
		panic("component already registered")
	}
	r.components[component] = false
}

// SetReady marks the given component ready. Marking an unregistered component
// registers it already ready.
func (r *Registry) SetReady(component Component) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[component] = true
}

// Ready reports whether every registered component has become ready.
func (r *Registry) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ready := range r.components {
		if !ready {
			return false
		}
	}
	return true
}

// Handler serves the readiness check. It returns 200 OK if all components are
// ready, or 412 Precondition Failed otherwise. For operator convenience, a
// list of components and their states is returned as plain text (not meant
// for machine consumption!).
func (r *Registry) Handler(w http.ResponseWriter, req *http.Request) {
	ready := true

	resp := new(bytes.Buffer)
	_, err := resp.Write([]byte("[not suitable for monitoring - do not parse]\n\n"))
	if err != nil {
		panic(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range r.components {
		_, err = fmt.Fprintf(resp, "%s\t%v\n", k, v)
		if err != nil {
			panic(err)
		}

		if !v {
			ready = false
		}
	}

	if !ready {
		w.WriteHeader(http.StatusPreconditionFailed)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	_, _ = resp.WriteTo(w)
}
