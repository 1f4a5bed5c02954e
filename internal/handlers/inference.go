package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"multichat-backend/internal/models"
)

type fanOutRunner interface {
	RunMany(ctx context.Context, modelIDs []string, messages []models.ChatMessage) []models.ModelOutcome
}

// InferenceHandler is the raw HTTP binding of the fan-out: one request, one
// outcome per model, in request order. Malformed input is rejected here so
// the fan-out can assume well-formed calls.
type InferenceHandler struct {
	fanout     fanOutRunner
	configured bool
}

func NewInferenceHandler(fanout fanOutRunner, configured bool) *InferenceHandler {
	return &InferenceHandler{fanout: fanout, configured: configured}
}

func (h *InferenceHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req models.InferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := map[string]string{}
	if len(req.ModelIDs) == 0 {
		fields["model_ids"] = "At least one model is required"
	}
	if len(req.Messages) == 0 {
		fields["messages"] = "At least one message is required"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	if !h.configured {
		writeJSON(w, http.StatusInternalServerError, errorResp("CONFIG_ERROR", "No inference provider is configured", r))
		return
	}

	outcomes := h.fanout.RunMany(r.Context(), req.ModelIDs, req.Messages)
	writeJSON(w, http.StatusOK, models.InferenceResponse{Responses: outcomes})
}
