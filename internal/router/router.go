package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"multichat-backend/internal/events"
	"multichat-backend/internal/handlers"
	"multichat-backend/internal/middleware"
)

func New(
	chatHandler *handlers.ChatHandler,
	inferenceHandler *handlers.InferenceHandler,
	hub *events.Hub,
	frontendURL string,
	inferenceRequestsPerMin int,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	inferenceLimiter := middleware.NewRateLimiter(inferenceRequestsPerMin, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Chat Routes ────
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

		// ──── Raw Inference Route ────
		r.Group(func(r chi.Router) {
			r.Use(inferenceLimiter.Middleware)
			r.Post("/inference", inferenceHandler.Run)
		})

		// ──── WebSocket Events ────
		r.Get("/ws", hub.HandleWebSocket)
	})

	return r
}
