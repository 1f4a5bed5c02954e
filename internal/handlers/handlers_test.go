package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"multichat-backend/internal/inference"
	"multichat-backend/internal/models"
	"multichat-backend/internal/repository"
	"multichat-backend/internal/services"
	"multichat-backend/internal/storage"
)

type stubProvider struct {
	replies map[string]string
	errs    map[string]error
}

func (p *stubProvider) Call(_ context.Context, modelID string, _ []models.ChatMessage) (string, error) {
	if err, ok := p.errs[modelID]; ok {
		return "", err
	}
	return p.replies[modelID], nil
}

type nopNotifier struct{}

func (nopNotifier) ChatUpdated(uuid.UUID) {}
func (nopNotifier) ChatDeleted(uuid.UUID) {}

func newTestServer(provider inference.Provider, configured bool) (http.Handler, *repository.ChatRepo) {
	repo := repository.NewChatRepo(storage.NewMemoryStore())
	fanout := inference.NewFanOut(provider)
	svc := services.NewChatService(repo, fanout, nil, "You are a helpful assistant.")

	chatHandler := NewChatHandler(repo, svc, nopNotifier{}, []string{"m1"})
	inferenceHandler := NewInferenceHandler(fanout, configured)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/chats", func(r chi.Router) {
			r.Get("/", chatHandler.List)
			r.Post("/", chatHandler.Create)
			r.Get("/history", chatHandler.History)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", chatHandler.Get)
				r.Put("/title", chatHandler.Rename)
				r.Delete("/", chatHandler.Delete)
				r.Post("/clone", chatHandler.Clone)
				r.Post("/messages", chatHandler.Send)
				r.Post("/messages/{messageID}/versions", chatHandler.Regenerate)
			})
		})
		r.Post("/inference", inferenceHandler.Run)
	})
	return r, repo
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestSendAndGetChat(t *testing.T) {
	handler, _ := newTestServer(&stubProvider{replies: map[string]string{"m1": "Hello!"}}, true)

	chatID := uuid.New()
	rr := doJSON(t, handler, http.MethodPost, "/api/v1/chats/"+chatID.String()+"/messages",
		models.SendMessageRequest{Prompt: "Hi", ModelIDs: []string{"m1"}})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var msg models.Message
	if err := json.Unmarshal(rr.Body.Bytes(), &msg); err != nil {
		t.Fatalf("Failed to decode message: %v", err)
	}
	if msg.ModelResponses["m1"][0].Content != "Hello!" {
		t.Errorf("Unexpected response content: %+v", msg.ModelResponses)
	}

	rr = doJSON(t, handler, http.MethodGet, "/api/v1/chats/"+chatID.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var chat models.Chat
	json.Unmarshal(rr.Body.Bytes(), &chat)
	if chat.Title != "Hi" {
		t.Errorf("Expected derived title, got %q", chat.Title)
	}
}

func TestSend_DefaultsModelList(t *testing.T) {
	handler, _ := newTestServer(&stubProvider{replies: map[string]string{"m1": "default model reply"}}, true)

	chatID := uuid.New()
	rr := doJSON(t, handler, http.MethodPost, "/api/v1/chats/"+chatID.String()+"/messages",
		models.SendMessageRequest{Prompt: "use defaults"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var msg models.Message
	json.Unmarshal(rr.Body.Bytes(), &msg)
	if _, ok := msg.ModelResponses["m1"]; !ok {
		t.Error("Expected configured default model to be used")
	}
}

func TestSend_BlankPromptRejected(t *testing.T) {
	handler, repo := newTestServer(&stubProvider{}, true)

	chatID := uuid.New()
	rr := doJSON(t, handler, http.MethodPost, "/api/v1/chats/"+chatID.String()+"/messages",
		models.SendMessageRequest{Prompt: "   ", ModelIDs: []string{"m1"}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
	if _, ok := repo.GetChat(context.Background(), chatID); ok {
		t.Error("Expected no chat to be created for rejected input")
	}
}

func TestGetChat_NotFound(t *testing.T) {
	handler, _ := newTestServer(&stubProvider{}, true)

	rr := doJSON(t, handler, http.MethodGet, "/api/v1/chats/"+uuid.NewString(), nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rr.Code)
	}

	rr = doJSON(t, handler, http.MethodGet, "/api/v1/chats/not-a-uuid", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for malformed id, got %d", rr.Code)
	}
}

func TestDeleteChat_Idempotent(t *testing.T) {
	handler, repo := newTestServer(&stubProvider{replies: map[string]string{"m1": "x"}}, true)
	ctx := context.Background()

	chatID := uuid.New()
	doJSON(t, handler, http.MethodPost, "/api/v1/chats/"+chatID.String()+"/messages",
		models.SendMessageRequest{Prompt: "p", ModelIDs: []string{"m1"}})

	rr := doJSON(t, handler, http.MethodDelete, "/api/v1/chats/"+chatID.String(), nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rr.Code)
	}
	rr = doJSON(t, handler, http.MethodDelete, "/api/v1/chats/"+chatID.String(), nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Expected 204 on repeat delete, got %d", rr.Code)
	}
	if _, ok := repo.GetChat(ctx, chatID); ok {
		t.Error("Expected chat to be deleted")
	}
}

func TestCloneChat(t *testing.T) {
	handler, _ := newTestServer(&stubProvider{replies: map[string]string{"m1": "x"}}, true)

	chatID := uuid.New()
	doJSON(t, handler, http.MethodPost, "/api/v1/chats/"+chatID.String()+"/messages",
		models.SendMessageRequest{Prompt: "source chat", ModelIDs: []string{"m1"}})

	rr := doJSON(t, handler, http.MethodPost, "/api/v1/chats/"+chatID.String()+"/clone", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rr.Code)
	}
	var clone models.Chat
	json.Unmarshal(rr.Body.Bytes(), &clone)
	if clone.ID == chatID {
		t.Error("Expected clone to carry a fresh id")
	}

	rr = doJSON(t, handler, http.MethodPost, "/api/v1/chats/"+uuid.NewString()+"/clone", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for unknown source, got %d", rr.Code)
	}
}

func TestRegenerate(t *testing.T) {
	handler, _ := newTestServer(&stubProvider{replies: map[string]string{"m1": "take two"}}, true)

	chatID := uuid.New()
	rr := doJSON(t, handler, http.MethodPost, "/api/v1/chats/"+chatID.String()+"/messages",
		models.SendMessageRequest{Prompt: "p", ModelIDs: []string{"m1"}})
	var msg models.Message
	json.Unmarshal(rr.Body.Bytes(), &msg)

	rr = doJSON(t, handler, http.MethodPost,
		"/api/v1/chats/"+chatID.String()+"/messages/"+msg.ID.String()+"/versions",
		models.RegenerateRequest{ModelID: "m1"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var rv models.ResponseVersion
	json.Unmarshal(rr.Body.Bytes(), &rv)
	if rv.Version != "v2" || rv.Content != "take two" {
		t.Errorf("Unexpected regenerated version: %+v", rv)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	handler, _ := newTestServer(&stubProvider{replies: map[string]string{"m1": "x"}}, true)

	doJSON(t, handler, http.MethodPost, "/api/v1/chats/"+uuid.NewString()+"/messages",
		models.SendMessageRequest{Prompt: "alpha", ModelIDs: []string{"m1"}})
	doJSON(t, handler, http.MethodPost, "/api/v1/chats/"+uuid.NewString()+"/messages",
		models.SendMessageRequest{Prompt: "beta", ModelIDs: []string{"m1"}})

	rr := doJSON(t, handler, http.MethodGet, "/api/v1/chats/history", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var history []models.HistoryEntry
	json.Unmarshal(rr.Body.Bytes(), &history)
	if len(history) != 2 {
		t.Fatalf("Expected 2 history entries, got %d", len(history))
	}
}

func TestInference_Validation(t *testing.T) {
	handler, _ := newTestServer(&stubProvider{}, true)

	tests := []struct {
		name string
		body models.InferenceRequest
	}{
		{"no models", models.InferenceRequest{Messages: []models.ChatMessage{{Role: "user", Content: "hi"}}}},
		{"no messages", models.InferenceRequest{ModelIDs: []string{"m1"}}},
		{"empty body", models.InferenceRequest{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, handler, http.MethodPost, "/api/v1/inference", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestInference_Unconfigured(t *testing.T) {
	handler, _ := newTestServer(&stubProvider{}, false)

	rr := doJSON(t, handler, http.MethodPost, "/api/v1/inference", models.InferenceRequest{
		ModelIDs: []string{"m1"},
		Messages: []models.ChatMessage{{Role: "user", Content: "hi"}},
	})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rr.Code)
	}
	var resp models.ErrorResponse
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.Error.Code != "CONFIG_ERROR" {
		t.Errorf("Expected CONFIG_ERROR payload, got %q", resp.Error.Code)
	}
}

func TestInference_PerModelIsolation(t *testing.T) {
	handler, _ := newTestServer(&stubProvider{
		replies: map[string]string{"m1": "fine", "m3": "also fine"},
		errs:    map[string]error{"m2": errors.New("quota exceeded")},
	}, true)

	rr := doJSON(t, handler, http.MethodPost, "/api/v1/inference", models.InferenceRequest{
		ModelIDs: []string{"m1", "m2", "m3"},
		Messages: []models.ChatMessage{{Role: "user", Content: "hi"}},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var resp models.InferenceResponse
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if len(resp.Responses) != 3 {
		t.Fatalf("Expected 3 outcomes, got %d", len(resp.Responses))
	}
	if resp.Responses[1].Error == nil || *resp.Responses[1].Error != "quota exceeded" {
		t.Errorf("Expected m2 error to be isolated, got %+v", resp.Responses[1])
	}
	if resp.Responses[0].Content != "fine" || resp.Responses[2].Content != "also fine" {
		t.Error("Expected surviving models to return content")
	}
}
