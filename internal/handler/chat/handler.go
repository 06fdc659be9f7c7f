package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/voyagechat/backend/internal/model/chat"
	chatService "github.com/voyagechat/backend/internal/service/chat"
)

// Handler exposes the conversation API.
type Handler struct {
	chatSvc  *chatService.Service
	upgrader websocket.Upgrader
}

// New creates the chat handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the conversation routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Post("/chat", h.handleChat)
	r.Get("/chat/{sessionID}/history", h.handleHistory)
	r.Delete("/chat/{sessionID}/history", h.handleClearHistory)
	r.Get("/chat/{sessionID}/stats", h.handleStats)
	r.Get("/chat/ws/{sessionID}", h.handleWebSocket)
}

// optionsPayload mirrors the per-turn options accepted over the wire.
type optionsPayload struct {
	Context        string        `json:"context"`
	UserInfo       chat.UserInfo `json:"userInfo"`
	Temperature    *float64      `json:"temperature"`
	MaxTokens      *int          `json:"maxTokens"`
	IncludeHistory *bool         `json:"includeHistory"`
}

func (p optionsPayload) toOptions() chatService.Options {
	return chatService.Options{
		Context:        p.Context,
		UserInfo:       p.UserInfo,
		Temperature:    p.Temperature,
		MaxTokens:      p.MaxTokens,
		IncludeHistory: p.IncludeHistory,
	}
}

// handleCreateSession mints a fresh conversation identifier. The session
// itself is created lazily on its first message.
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusCreated, map[string]string{
		"sessionId": h.chatSvc.NewSessionID(),
	})
}

// handleChat runs one conversation turn.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	if !h.chatSvc.Ready() {
		respondError(w, http.StatusServiceUnavailable, "chat completion is not configured")
		return
	}

	var payload struct {
		Message   string         `json:"message"`
		SessionID string         `json:"sessionId"`
		Options   optionsPayload `json:"options"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.chatSvc.ProcessMessage(r.Context(), payload.SessionID, payload.Message, payload.Options.toOptions())
	if err != nil {
		respondTurnError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleHistory returns the stored window for a session.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	history, err := h.chatSvc.History(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"messages":  history,
	})
}

// handleClearHistory wipes a session. Clearing an unknown session is a
// no-op, so the route is idempotent.
func (h *Handler) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.chatSvc.ClearConversation(r.Context(), sessionID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to clear history")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleStats summarizes a session's stored window.
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	stats, err := h.chatSvc.Stats(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

type errorBody struct {
	Error          string `json:"error"`
	Kind           string `json:"kind,omitempty"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
}

// respondTurnError maps a turn failure onto the HTTP surface: invalid input
// is the caller's fault, everything else happened behind the service.
func respondTurnError(w http.ResponseWriter, err error) {
	if errors.Is(err, chatService.ErrUpstreamNotConfigured) {
		respondError(w, http.StatusServiceUnavailable, "chat completion is not configured")
		return
	}

	turnErr, ok := chat.AsTurnError(err)
	if !ok {
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := http.StatusBadGateway
	if turnErr.Kind == chat.KindValidation {
		status = http.StatusBadRequest
	}

	respondJSON(w, status, errorBody{
		Error:          turnErr.Detail,
		Kind:           string(turnErr.Kind),
		UpstreamStatus: turnErr.Status,
	})
}

// respondJSON writes a JSON response body.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondError writes a minimal JSON error body.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
