package bot

import (
	"sort"
	"sync"
)

// DefaultHandlerKey is the handler used when a profile names no key, or
// names one that is not registered.
const DefaultHandlerKey = "router_v1"

// Registry maps handler keys to implementations. Registration normally
// happens during startup, but the registry is safe for concurrent use so
// tests and future dynamic wiring do not need extra locking.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds key to h, replacing any previous binding.
func (r *Registry) Register(key string, h Handler) {
	if key == "" || h == nil {
		return
	}
	r.mu.Lock()
	r.handlers[key] = h
	r.mu.Unlock()
}

// Resolve returns the handler for key. An empty or unknown key falls back
// to DefaultHandlerKey; the returned string is the key actually resolved,
// so callers can label metrics and logs with the real handler. The boolean
// is false only when not even the default is registered.
func (r *Registry) Resolve(key string) (Handler, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if key != "" {
		if h, ok := r.handlers[key]; ok {
			return h, key, true
		}
	}
	if h, ok := r.handlers[DefaultHandlerKey]; ok {
		return h, DefaultHandlerKey, true
	}
	return nil, "", false
}

// Keys returns the registered handler keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
