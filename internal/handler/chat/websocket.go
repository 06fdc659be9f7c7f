package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/voyagechat/backend/internal/logging"
	"github.com/voyagechat/backend/internal/model/chat"
	chatService "github.com/voyagechat/backend/internal/service/chat"
)

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// textPayload is the data of an inbound "message" frame. Options set here
// apply to this turn only.
type textPayload struct {
	Text    string         `json:"text"`
	Options optionsPayload `json:"options"`
}

// connectionState holds the per-connection option defaults. A "config"
// frame updates them for every following turn.
type connectionState struct {
	sessionID string
	opts      optionsPayload
}

// applyConfig merges the provided fields into the connection defaults.
// Absent fields keep their current values.
func (s *connectionState) applyConfig(cfg optionsPayload) {
	if cfg.Context != "" {
		s.opts.Context = cfg.Context
	}
	if cfg.UserInfo.Name != "" {
		s.opts.UserInfo.Name = cfg.UserInfo.Name
	}
	if cfg.UserInfo.Location != "" {
		s.opts.UserInfo.Location = cfg.UserInfo.Location
	}
	if cfg.UserInfo.Language != "" {
		s.opts.UserInfo.Language = cfg.UserInfo.Language
	}
	if cfg.Temperature != nil {
		s.opts.Temperature = cfg.Temperature
	}
	if cfg.MaxTokens != nil {
		s.opts.MaxTokens = cfg.MaxTokens
	}
	if cfg.IncludeHistory != nil {
		s.opts.IncludeHistory = cfg.IncludeHistory
	}
}

// turnOptions combines the connection defaults with per-message overrides.
func (s *connectionState) turnOptions(overrides optionsPayload) chatService.Options {
	merged := connectionState{opts: s.opts}
	merged.applyConfig(overrides)
	return merged.opts.toOptions()
}

// handleWebSocket runs the socket side of a conversation: the client sends
// message/clear/config frames, the server answers with reply/cleared/config
// frames in the same envelope.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warnf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	logging.Infof("[websocket] new connection for session: %s", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go h.pingLoop(ctx, conn)

	state := &connectionState{sessionID: sessionID}

	h.send(conn, sessionID, "connected", map[string]any{
		"ready": h.chatSvc.Ready(),
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logging.Warnf("[websocket] read error: %v", err)
				}
				return
			}

			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			if msg.SessionID != "" && msg.SessionID != sessionID {
				h.sendError(conn, "session mismatch")
				continue
			}

			h.handleSocketMessage(ctx, conn, state, &msg)
		}
	}
}

func (h *Handler) handleSocketMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "message":
		h.handleSocketText(ctx, conn, state, msg.Data)
	case "clear":
		h.handleSocketClear(ctx, conn, state)
	case "config":
		h.handleSocketConfig(conn, state, msg.Data)
	default:
		h.sendError(conn, "unsupported message type: "+msg.Type)
	}
}

func (h *Handler) handleSocketText(ctx context.Context, conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var payload textPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.sendError(conn, "invalid message payload")
		return
	}

	result, err := h.chatSvc.ProcessMessage(ctx, state.sessionID, payload.Text, state.turnOptions(payload.Options))
	if err != nil {
		h.sendTurnError(conn, err)
		return
	}

	h.send(conn, state.sessionID, "reply", result)
}

func (h *Handler) handleSocketClear(ctx context.Context, conn *websocket.Conn, state *connectionState) {
	if err := h.chatSvc.ClearConversation(ctx, state.sessionID); err != nil {
		h.sendError(conn, "failed to clear history")
		return
	}

	h.send(conn, state.sessionID, "cleared", nil)
}

func (h *Handler) handleSocketConfig(conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var cfg optionsPayload
	if err := json.Unmarshal(raw, &cfg); err != nil {
		h.sendError(conn, "invalid config payload")
		return
	}

	state.applyConfig(cfg)

	logging.Infof("[websocket] config applied session=%s context=%s", state.sessionID, state.opts.Context)

	h.send(conn, state.sessionID, "config", state.opts)
}

func (h *Handler) send(conn *websocket.Conn, sessionID, msgType string, data interface{}) {
	msg := outgoingMessage{
		Type:      msgType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := conn.WriteJSON(msg); err != nil {
		logging.Warnf("[websocket] write failed: %v", err)
	}
}

func (h *Handler) sendError(conn *websocket.Conn, message string) {
	msg := outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
	if err := conn.WriteJSON(msg); err != nil {
		logging.Warnf("[websocket] write error failed: %v", err)
	}
}

func (h *Handler) sendTurnError(conn *websocket.Conn, err error) {
	msg := outgoingMessage{
		Type:      "error",
		Data:      socketErrorData(err),
		Timestamp: time.Now().Unix(),
	}
	if writeErr := conn.WriteJSON(msg); writeErr != nil {
		logging.Warnf("[websocket] write error failed: %v", writeErr)
	}
}

func socketErrorData(err error) map[string]string {
	if errors.Is(err, chatService.ErrUpstreamNotConfigured) {
		return map[string]string{"message": "chat completion is not configured"}
	}
	if turnErr, ok := chat.AsTurnError(err); ok {
		return map[string]string{"message": turnErr.Detail, "kind": string(turnErr.Kind)}
	}
	return map[string]string{"message": "internal error"}
}

// pingLoop keeps the connection alive under the read deadline.
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
