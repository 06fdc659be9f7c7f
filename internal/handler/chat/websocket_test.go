package chat

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/voyagechat/backend/internal/model/chat"
)

func boolPtr(v bool) *bool        { return &v }
func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestApplyConfigUpdatesState(t *testing.T) {
	state := &connectionState{sessionID: "s1"}

	state.applyConfig(optionsPayload{
		Context:        "booking",
		UserInfo:       chat.UserInfo{Name: "Maya", Language: "pt"},
		Temperature:    floatPtr(0.4),
		IncludeHistory: boolPtr(false),
	})

	if state.opts.Context != "booking" {
		t.Fatalf("expected context booking, got %s", state.opts.Context)
	}
	if state.opts.UserInfo.Name != "Maya" {
		t.Fatalf("expected name Maya, got %s", state.opts.UserInfo.Name)
	}
	if state.opts.Temperature == nil || *state.opts.Temperature != 0.4 {
		t.Fatalf("expected temperature 0.4")
	}
	if state.opts.IncludeHistory == nil || *state.opts.IncludeHistory {
		t.Fatalf("expected history disabled")
	}

	// A later partial update keeps earlier fields.
	state.applyConfig(optionsPayload{
		UserInfo:  chat.UserInfo{Location: "Lisbon"},
		MaxTokens: intPtr(64),
	})

	if state.opts.Context != "booking" {
		t.Fatalf("context lost on partial update")
	}
	if state.opts.UserInfo.Name != "Maya" || state.opts.UserInfo.Location != "Lisbon" {
		t.Fatalf("user info merged wrong: %+v", state.opts.UserInfo)
	}
	if state.opts.MaxTokens == nil || *state.opts.MaxTokens != 64 {
		t.Fatalf("expected max tokens 64")
	}
}

func TestTurnOptionsDoNotStickToConnection(t *testing.T) {
	state := &connectionState{sessionID: "s1"}
	state.applyConfig(optionsPayload{Context: "travel", Temperature: floatPtr(0.7)})

	opts := state.turnOptions(optionsPayload{Temperature: floatPtr(0.2)})
	if opts.Context != "travel" {
		t.Fatalf("expected connection context to carry over, got %s", opts.Context)
	}
	if opts.Temperature == nil || *opts.Temperature != 0.2 {
		t.Fatalf("expected override temperature 0.2")
	}

	if state.opts.Temperature == nil || *state.opts.Temperature != 0.7 {
		t.Fatalf("per-turn override must not change the connection state")
	}
}

func TestWebSocketConversation(t *testing.T) {
	gateway := &stubGateway{resp: stubCompletion("socket says hi")}
	r, _ := setupRouter(gateway)
	server := httptest.NewServer(r)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/chat/ws/s1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var frame struct {
		Type      string          `json:"type"`
		SessionID string          `json:"sessionId"`
		Data      json.RawMessage `json:"data"`
	}

	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read connected frame: %v", err)
	}
	if frame.Type != "connected" {
		t.Fatalf("first frame type = %q, want connected", frame.Type)
	}

	payload, err := json.Marshal(textPayload{Text: "hello"})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := conn.WriteJSON(inboundMessage{Type: "message", SessionID: "s1", Data: payload}); err != nil {
		t.Fatalf("write message: %v", err)
	}

	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if frame.Type != "reply" {
		t.Fatalf("frame type = %q, want reply (data=%s)", frame.Type, frame.Data)
	}

	var result chat.Result
	if err := json.Unmarshal(frame.Data, &result); err != nil {
		t.Fatalf("decode reply data: %v", err)
	}
	if result.Reply != "socket says hi" {
		t.Errorf("reply = %q", result.Reply)
	}
	if result.ConversationLength != 2 {
		t.Errorf("conversationLength = %d, want 2", result.ConversationLength)
	}

	if err := conn.WriteJSON(inboundMessage{Type: "clear", SessionID: "s1"}); err != nil {
		t.Fatalf("write clear: %v", err)
	}
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read cleared: %v", err)
	}
	if frame.Type != "cleared" {
		t.Fatalf("frame type = %q, want cleared", frame.Type)
	}
}

func TestWebSocketRejectsSessionMismatch(t *testing.T) {
	gateway := &stubGateway{resp: stubCompletion("unused")}
	r, _ := setupRouter(gateway)
	server := httptest.NewServer(r)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/chat/ws/s1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var frame struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read connected frame: %v", err)
	}

	payload, _ := json.Marshal(textPayload{Text: "hello"})
	if err := conn.WriteJSON(inboundMessage{Type: "message", SessionID: "other", Data: payload}); err != nil {
		t.Fatalf("write message: %v", err)
	}

	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read error frame: %v", err)
	}
	if frame.Type != "error" {
		t.Fatalf("frame type = %q, want error", frame.Type)
	}
}
