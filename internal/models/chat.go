package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultChatTitle is the sentinel title a chat carries until its first
// prompt is sent and a real title is derived from it.
const DefaultChatTitle = "New Chat"

// Chat is one conversation thread. A chat with zero messages is ephemeral:
// it exists only in memory and never appears in the history index.
type Chat struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
	LastModifiedAt time.Time `json:"last_modified_at"`
	Messages       []Message `json:"messages"`
}

// Message is one user turn plus every model reply solicited for it.
// ModelResponses is keyed by model identifier; a model that was not asked
// is simply absent from the map.
type Message struct {
	ID             uuid.UUID                    `json:"id"`
	Prompt         string                       `json:"prompt"`
	CreatedAt      time.Time                    `json:"created_at"`
	ModelResponses map[string][]ResponseVersion `json:"model_responses"`
}

// ResponseVersion is one generated answer from one model. Regenerations
// append to the model's list; earlier versions are never rewritten. The
// Version label always equals "v" + 1-based position in that list.
type ResponseVersion struct {
	ID             uuid.UUID `json:"id"`
	Version        string    `json:"version"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	LatencySeconds float64   `json:"latency_seconds"`
	TokenCount     int       `json:"token_count"`
	Error          *string   `json:"error,omitempty"`
}

// HistoryEntry is the denormalized chat-list projection kept in its own
// storage record so the sidebar can render without loading message bodies.
type HistoryEntry struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatMessage is a single role-tagged entry in an outgoing inference request.
type ChatMessage struct {
	Role    string `json:"role"` // "system" | "user" | "assistant"
	Content string `json:"content"`
}

// ModelOutcome is the normalized result of one inference call. Exactly one
// outcome exists per dispatched model; a failed call carries Error with
// empty Content and zero TokenCount.
type ModelOutcome struct {
	ModelID        string  `json:"model_id"`
	Content        string  `json:"content"`
	TokenCount     int     `json:"token_count"`
	LatencySeconds float64 `json:"latency_seconds"`
	Error          *string `json:"error,omitempty"`
}
