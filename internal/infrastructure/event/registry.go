package event

import (
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/ribotflow/backend/internal/domain/shared"
)

// HandlerRegistry maps event types to handlers. A type ending in ".*" matches
// every change of that aggregate type; no type at all matches everything.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandler
	wildcard []shared.EventHandler
}

// NewHandlerRegistry creates a new handler registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string][]shared.EventHandler)}
}

// Register adds a handler for specific event types
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(eventTypes) == 0 {
		r.wildcard = append(r.wildcard, handler)
		return
	}
	for _, eventType := range eventTypes {
		r.handlers[eventType] = append(r.handlers[eventType], handler)
	}
}

// Unregister removes a handler everywhere
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.wildcard = removeHandler(r.wildcard, handler)
	for eventType, handlers := range r.handlers {
		r.handlers[eventType] = removeHandler(handlers, handler)
		if len(r.handlers[eventType]) == 0 {
			delete(r.handlers, eventType)
		}
	}
}

// GetHandlers returns the exact-type handlers, then the aggregate-pattern
// handlers, then the wildcard handlers. A handler is returned at most once.
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var pattern string
	if dot := strings.LastIndex(eventType, "."); dot > 0 {
		pattern = eventType[:dot] + ".*"
	}

	result := make([]shared.EventHandler, 0, len(r.handlers[eventType])+len(r.wildcard))
	result = appendDistinct(result, r.handlers[eventType]...)
	if pattern != "" {
		result = appendDistinct(result, r.handlers[pattern]...)
	}
	return appendDistinct(result, r.wildcard...)
}

// Count returns the number of distinct registered handlers
func (r *HandlerRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := appendDistinct(nil, r.wildcard...)
	for _, hs := range r.handlers {
		seen = appendDistinct(seen, hs...)
	}
	return len(seen)
}

func appendDistinct(dst []shared.EventHandler, hs ...shared.EventHandler) []shared.EventHandler {
	for _, h := range hs {
		if !slices.ContainsFunc(dst, func(d shared.EventHandler) bool { return sameHandler(d, h) }) {
			dst = append(dst, h)
		}
	}
	return dst
}

func removeHandler(handlers []shared.EventHandler, target shared.EventHandler) []shared.EventHandler {
	return slices.DeleteFunc(slices.Clone(handlers), func(h shared.EventHandler) bool {
		return sameHandler(h, target)
	})
}

// sameHandler compares handlers by identity. Values that cannot be compared
// (a func or a struct holding one) are never equal to anything, so they can
// be registered but not deduplicated or unregistered.
func sameHandler(a, b shared.EventHandler) bool {
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if !reflect.ValueOf(a).Comparable() {
		return false
	}
	return a == b
}
