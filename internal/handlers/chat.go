package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"multichat-backend/internal/models"
	"multichat-backend/internal/services"
)

type chatRepository interface {
	ListChats(ctx context.Context) []models.Chat
	GetChat(ctx context.Context, id uuid.UUID) (*models.Chat, bool)
	ListHistory(ctx context.Context) []models.HistoryEntry
	CreateChat() *models.Chat
	RenameChat(ctx context.Context, chatID uuid.UUID, title string)
	DeleteChat(ctx context.Context, chatID uuid.UUID)
	CloneChat(ctx context.Context, chatID uuid.UUID) (*models.Chat, bool)
}

type chatNotifier interface {
	ChatUpdated(chatID uuid.UUID)
	ChatDeleted(chatID uuid.UUID)
}

type ChatHandler struct {
	chatRepo      chatRepository
	chatService   *services.ChatService
	events        chatNotifier
	defaultModels []string
}

func NewChatHandler(chatRepo chatRepository, chatService *services.ChatService, events chatNotifier, defaultModels []string) *ChatHandler {
	return &ChatHandler{
		chatRepo:      chatRepo,
		chatService:   chatService,
		events:        events,
		defaultModels: defaultModels,
	}
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.chatRepo.ListChats(r.Context()))
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.chatRepo.ListHistory(r.Context()))
}

// Create hands out a fresh ephemeral chat. Nothing is persisted until the
// first message is sent to it.
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, h.chatRepo.CreateChat())
}

func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	chatID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid chat ID", r))
		return
	}

	chat, ok := h.chatRepo.GetChat(r.Context(), chatID)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Chat not found", r))
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	chatID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid chat ID", r))
		return
	}

	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if len(req.ModelIDs) == 0 {
		req.ModelIDs = h.defaultModels
	}

	message, err := h.chatService.SendPrompt(r.Context(), chatID, req.Prompt, req.ModelIDs, req.SystemContext)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, message)
}

func (h *ChatHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	chatID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid chat ID", r))
		return
	}
	messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid message ID", r))
		return
	}

	var req models.RegenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	version, err := h.chatService.AddVersion(r.Context(), chatID, messageID, req.ModelID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, version)
}

func (h *ChatHandler) Rename(w http.ResponseWriter, r *http.Request) {
	chatID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid chat ID", r))
		return
	}

	var req models.RenameChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"title": "Title is required"}, r))
		return
	}

	// Renaming an absent chat is a deliberate no-op.
	h.chatRepo.RenameChat(r.Context(), chatID, req.Title)
	h.events.ChatUpdated(chatID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Chat renamed"})
}

func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	chatID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid chat ID", r))
		return
	}

	h.chatRepo.DeleteChat(r.Context(), chatID)
	h.events.ChatDeleted(chatID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) Clone(w http.ResponseWriter, r *http.Request) {
	chatID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid chat ID", r))
		return
	}

	clone, ok := h.chatRepo.CloneChat(r.Context(), chatID)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Chat not found", r))
		return
	}
	h.events.ChatUpdated(clone.ID)
	writeJSON(w, http.StatusCreated, clone)
}
