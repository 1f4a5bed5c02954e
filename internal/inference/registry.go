package inference

import (
	"context"
	"fmt"
	"strings"

	"multichat-backend/internal/models"
)

// Registry routes a model id to the provider that serves it. Prefix routes
// are checked in registration order before the fallback, so "gemini-*" can
// go to the Gemini client while everything else hits an OpenAI-compatible
// endpoint.
type Registry struct {
	prefixes []prefixRoute
	fallback Provider
}

type prefixRoute struct {
	prefix   string
	provider Provider
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) RegisterPrefix(prefix string, provider Provider) {
	r.prefixes = append(r.prefixes, prefixRoute{prefix: prefix, provider: provider})
}

func (r *Registry) RegisterFallback(provider Provider) {
	r.fallback = provider
}

// Configured reports whether any provider is registered at all. The
// inference endpoint refuses requests outright when nothing is.
func (r *Registry) Configured() bool {
	return len(r.prefixes) > 0 || r.fallback != nil
}

func (r *Registry) Call(ctx context.Context, modelID string, messages []models.ChatMessage) (string, error) {
	for _, route := range r.prefixes {
		if strings.HasPrefix(modelID, route.prefix) {
			return route.provider.Call(ctx, modelID, messages)
		}
	}
	if r.fallback != nil {
		return r.fallback.Call(ctx, modelID, messages)
	}
	return "", &ConfigError{Message: fmt.Sprintf("no provider configured for model %q", modelID)}
}
