package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/voyagechat/backend/internal/logging"
	"github.com/voyagechat/backend/internal/model/chat"
	chatService "github.com/voyagechat/backend/internal/service/chat"
	"github.com/voyagechat/backend/pkg/utils"
)

// Handler runs conversation turns over Server-Sent Events.
type Handler struct {
	chatSvc *chatService.Service
}

// New creates a stream handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// StreamResponse is one SSE frame.
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest runs one turn and emits start/message/end frames. The
// upstream call is not streamed; the reply arrives whole and goes out as a
// single message event, so clients get the same framing either way.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, userMessage string, opts chatService.Options) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "start",
		SessionID: sessionID,
	})

	result, err := h.chatSvc.ProcessMessage(ctx, sessionID, userMessage, opts)
	if err != nil {
		h.sendSSEError(w, flusher, turnErrorText(err))
		return err
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   result.Reply,
	})

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	logging.Infof("[stream] completed turn for session=%s", sessionID)
	return nil
}

// sendSSE sends a Server-Sent Event.
func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEChunk(w, flusher, response)
}

// sendSSEError sends an error frame.
func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, errorMsg string) {
	h.sendSSE(w, flusher, StreamResponse{
		Event: "error",
		Error: errorMsg,
	})
}

func turnErrorText(err error) string {
	if errors.Is(err, chatService.ErrUpstreamNotConfigured) {
		return "chat completion is not configured"
	}
	if turnErr, ok := chat.AsTurnError(err); ok {
		return turnErr.Detail
	}
	return "internal error"
}
