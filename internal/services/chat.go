package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"multichat-backend/internal/models"
)

const maxTitleLength = 30

// fanOut is the concurrency boundary the service talks to; the real
// implementation lives in internal/inference.
type fanOut interface {
	RunMany(ctx context.Context, modelIDs []string, messages []models.ChatMessage) []models.ModelOutcome
}

// chatRepository is the slice of the repository the service needs.
type chatRepository interface {
	GetChat(ctx context.Context, id uuid.UUID) (*models.Chat, bool)
	AppendMessage(ctx context.Context, chatID uuid.UUID, msg models.Message)
	AppendVersion(ctx context.Context, chatID, messageID uuid.UUID, modelID string, rv models.ResponseVersion) (models.ResponseVersion, bool)
	RenameChat(ctx context.Context, chatID uuid.UUID, title string)
}

// notifier pushes change events to connected UI clients. May be nil.
type notifier interface {
	ChatUpdated(chatID uuid.UUID)
}

// ChatService glues the inference fan-out to the chat repository: it builds
// message records from fan-out outcomes, derives titles on first send and
// labels regenerated versions.
type ChatService struct {
	repo          chatRepository
	fanout        fanOut
	events        notifier
	systemContext string
}

func NewChatService(repo chatRepository, fanout fanOut, events notifier, systemContext string) *ChatService {
	return &ChatService{
		repo:          repo,
		fanout:        fanout,
		events:        events,
		systemContext: systemContext,
	}
}

// SendPrompt dispatches prompt to every model in modelIDs, assembles the
// resulting message and appends it to the chat (materializing the chat if
// needed). On the chat's first message the title is derived from the prompt.
//
// The prompt is never lost: even if the fan-out is unreachable the message
// is appended with an empty response map.
func (s *ChatService) SendPrompt(ctx context.Context, chatID uuid.UUID, prompt string, modelIDs []string, systemContext string) (*models.Message, error) {
	fields := map[string]string{}
	if strings.TrimSpace(prompt) == "" {
		fields["prompt"] = "Prompt is required"
	}
	if len(modelIDs) == 0 {
		fields["model_ids"] = "At least one model is required"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	if systemContext == "" {
		systemContext = s.systemContext
	}

	// First-message check happens before the append.
	existing, ok := s.repo.GetChat(ctx, chatID)
	isFirstMessage := !ok || len(existing.Messages) == 0

	outgoing := []models.ChatMessage{
		{Role: "system", Content: systemContext},
		{Role: "user", Content: prompt},
	}

	var outcomes []models.ModelOutcome
	if s.fanout != nil {
		outcomes = s.fanout.RunMany(ctx, modelIDs, outgoing)
	}

	message := models.Message{
		ID:             uuid.New(),
		Prompt:         prompt,
		CreatedAt:      time.Now().UTC(),
		ModelResponses: make(map[string][]models.ResponseVersion, len(outcomes)),
	}
	for _, outcome := range outcomes {
		message.ModelResponses[outcome.ModelID] = []models.ResponseVersion{{
			ID:             uuid.New(),
			Version:        "v1",
			Content:        outcome.Content,
			CreatedAt:      time.Now().UTC(),
			LatencySeconds: outcome.LatencySeconds,
			TokenCount:     outcome.TokenCount,
			Error:          outcome.Error,
		}}
	}

	s.repo.AppendMessage(ctx, chatID, message)
	if isFirstMessage {
		s.repo.RenameChat(ctx, chatID, DeriveTitle(prompt))
	}
	if s.events != nil {
		s.events.ChatUpdated(chatID)
	}
	return &message, nil
}

// AddVersion regenerates one model's answer for an existing message and
// appends it as the next version. Earlier versions are left untouched; the
// label is assigned by the repository so it stays gap-free under
// concurrent regenerations.
func (s *ChatService) AddVersion(ctx context.Context, chatID, messageID uuid.UUID, modelID string) (*models.ResponseVersion, error) {
	if strings.TrimSpace(modelID) == "" {
		return nil, &ValidationError{Fields: map[string]string{"model_id": "Model id is required"}}
	}

	chat, ok := s.repo.GetChat(ctx, chatID)
	if !ok {
		return nil, &NotFoundError{Message: "Chat not found"}
	}

	var prompt string
	found := false
	for _, msg := range chat.Messages {
		if msg.ID == messageID {
			prompt = msg.Prompt
			found = true
			break
		}
	}
	if !found {
		return nil, &NotFoundError{Message: "Message not found"}
	}

	outgoing := []models.ChatMessage{
		{Role: "system", Content: s.systemContext},
		{Role: "user", Content: prompt},
	}

	var outcome models.ModelOutcome
	if s.fanout != nil {
		outcomes := s.fanout.RunMany(ctx, []string{modelID}, outgoing)
		if len(outcomes) == 1 {
			outcome = outcomes[0]
		}
	}

	rv := models.ResponseVersion{
		ID:             uuid.New(),
		Content:        outcome.Content,
		CreatedAt:      time.Now().UTC(),
		LatencySeconds: outcome.LatencySeconds,
		TokenCount:     outcome.TokenCount,
		Error:          outcome.Error,
	}
	stored, ok := s.repo.AppendVersion(ctx, chatID, messageID, modelID, rv)
	if !ok {
		return nil, &NotFoundError{Message: "Message not found"}
	}
	if s.events != nil {
		s.events.ChatUpdated(chatID)
	}
	return &stored, nil
}

// DeriveTitle builds a chat title from the first prompt: the first four
// whitespace-separated words, truncated to 30 characters with a trailing
// ellipsis when longer.
func DeriveTitle(prompt string) string {
	words := strings.Fields(prompt)
	if len(words) == 0 {
		return models.DefaultChatTitle
	}
	if len(words) > 4 {
		words = words[:4]
	}
	title := strings.Join(words, " ")
	if runes := []rune(title); len(runes) > maxTitleLength {
		title = string(runes[:maxTitleLength-3]) + "..."
	}
	return title
}
