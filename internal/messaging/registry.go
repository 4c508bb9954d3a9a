package messaging

import (
	"context"
	"fmt"
)

// Handler processes one decoded envelope.
type Handler func(ctx context.Context, env Envelope) error

// Registry maps purpose tags to handlers. Registration happens once at
// process start; a duplicate registration is a configuration error, not a
// silent overwrite.
type Registry struct {
	handlers map[Purpose]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Purpose]Handler)}
}

func (r *Registry) Register(purpose Purpose, h Handler) error {
	if _, exists := r.handlers[purpose]; exists {
		return fmt.Errorf("handler already registered for purpose %q", purpose)
	}
	r.handlers[purpose] = h
	return nil
}

func (r *Registry) Resolve(purpose Purpose) (Handler, bool) {
	h, ok := r.handlers[purpose]
	return h, ok
}
