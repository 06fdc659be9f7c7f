package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voyagechat/backend/internal/handler/chat"
	"github.com/voyagechat/backend/internal/handler/stream"
	"github.com/voyagechat/backend/internal/logging"
	middlewarePkg "github.com/voyagechat/backend/internal/middleware"
	chatService "github.com/voyagechat/backend/internal/service/chat"
	"github.com/voyagechat/backend/pkg/utils"
)

// NewRouter wires HTTP routes to the conversation service.
func NewRouter(chatSvc *chatService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chat.New(chatSvc)
	streamHandler := stream.New(chatSvc)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)

		// SSE variant of a conversation turn. Input problems are
		// answered as plain JSON before the stream opens; anything
		// after the first frame arrives as an error event.
		api.Get("/chat/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			userMessage := r.URL.Query().Get("message")

			if !chatSvc.Ready() {
				utils.RespondError(w, http.StatusServiceUnavailable, "chat completion is not configured")
				return
			}
			if userMessage == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			opts := chatService.Options{Context: r.URL.Query().Get("context")}
			if err := streamHandler.HandleStreamRequest(r.Context(), w, sessionID, userMessage, opts); err != nil {
				logging.Warnf("[stream] turn failed session=%s: %v", sessionID, err)
			}
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"ready":  chatSvc.Ready(),
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
