package services

// Typed errors the handlers map to HTTP statuses.

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "validation failed" }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }
