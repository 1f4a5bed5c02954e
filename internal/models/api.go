package models

// Request payloads

type SendMessageRequest struct {
	Prompt        string   `json:"prompt"`
	ModelIDs      []string `json:"model_ids"`
	SystemContext string   `json:"system_context"`
}

type RegenerateRequest struct {
	ModelID string `json:"model_id"`
}

type RenameChatRequest struct {
	Title string `json:"title"`
}

type InferenceRequest struct {
	ModelIDs []string      `json:"model_ids"`
	Messages []ChatMessage `json:"messages"`
}

type InferenceResponse struct {
	Responses []ModelOutcome `json:"responses"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
