package inference

import (
	"context"

	"multichat-backend/internal/models"
)

// Provider executes one completion call against one backend model. The wire
// protocol is the provider's business; callers only see content or an error.
type Provider interface {
	Call(ctx context.Context, modelID string, messages []models.ChatMessage) (string, error)
}

// ConfigError marks an inference failure caused by deployment configuration
// (missing credential, no provider registered for a model id) rather than by
// the model call itself. The HTTP boundary maps it to a CONFIG_ERROR payload
// so the UI can show a setup hint instead of a generic failure.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }
