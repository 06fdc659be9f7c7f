package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/voyagechat/backend/internal/model/chat"
	"github.com/voyagechat/backend/internal/model/prompt"
	"github.com/voyagechat/backend/internal/service/ai"
	chatservice "github.com/voyagechat/backend/internal/service/chat"
	"github.com/voyagechat/backend/internal/session"
)

type stubGateway struct {
	resp    chat.Completion
	err     error
	lastReq chat.CompletionRequest
}

func (g *stubGateway) Complete(_ context.Context, req chat.CompletionRequest) (chat.Completion, error) {
	g.lastReq = req
	if g.err != nil {
		return chat.Completion{}, g.err
	}
	return g.resp, nil
}

func stubCompletion(content string) chat.Completion {
	return chat.Completion{
		Message: chat.Assistant(content),
		Usage:   chat.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		Model:   "gpt-4o-mini",
	}
}

func setupRouter(gateway chatservice.CompletionGateway) (*chi.Mux, session.Store) {
	store := session.NewMemoryStore(session.Config{MaxHistory: 20})
	composer := ai.NewComposer(prompt.NewMemoryStore(prompt.Seed()))
	builder := chatservice.NewBuilder(composer, store, chatservice.Defaults{Context: "travel", Temperature: 0.7, MaxTokens: 500})
	handler := New(chatservice.NewService(gateway, store, builder))

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, store
}

func postChat(t *testing.T, r *chi.Mux, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestChatTurn(t *testing.T) {
	gateway := &stubGateway{resp: stubCompletion("Take the train to Porto.")}
	r, _ := setupRouter(gateway)

	resp := postChat(t, r, map[string]any{"message": "How do I get to Porto?", "sessionId": "s1"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}

	var result struct {
		Reply              string `json:"reply"`
		Model              string `json:"model"`
		ConversationLength int    `json:"conversationLength"`
		Usage              struct {
			TotalTokens int64 `json:"totalTokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Reply != "Take the train to Porto." {
		t.Errorf("reply = %q", result.Reply)
	}
	if result.ConversationLength != 2 {
		t.Errorf("conversationLength = %d, want 2", result.ConversationLength)
	}
	if result.Usage.TotalTokens != 15 {
		t.Errorf("totalTokens = %d, want 15", result.Usage.TotalTokens)
	}
}

func TestChatAppliesOptions(t *testing.T) {
	gateway := &stubGateway{resp: stubCompletion("ok")}
	r, _ := setupRouter(gateway)

	resp := postChat(t, r, map[string]any{
		"message":   "hello",
		"sessionId": "s1",
		"options": map[string]any{
			"context":     "booking",
			"temperature": 0.3,
			"maxTokens":   128,
			"userInfo":    map[string]string{"name": "Maya"},
		},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}

	if gateway.lastReq.Temperature != 0.3 {
		t.Errorf("temperature = %v, want 0.3", gateway.lastReq.Temperature)
	}
	if gateway.lastReq.MaxTokens != 128 {
		t.Errorf("maxTokens = %d, want 128", gateway.lastReq.MaxTokens)
	}
	system := gateway.lastReq.Messages[0].Content
	if !bytes.Contains([]byte(system), []byte("The customer's name is Maya.")) {
		t.Errorf("system message missing personalization: %q", system)
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	gateway := &stubGateway{resp: stubCompletion("unused")}
	r, _ := setupRouter(gateway)

	resp := postChat(t, r, map[string]any{"message": "", "sessionId": "s1"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	var body struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Kind != "validation" {
		t.Errorf("kind = %q, want validation", body.Kind)
	}
	if body.Error != "message text is required" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestChatRejectsMissingSessionID(t *testing.T) {
	gateway := &stubGateway{resp: stubCompletion("unused")}
	r, _ := setupRouter(gateway)

	resp := postChat(t, r, map[string]any{"message": "hello"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestChatRejectsInvalidBody(t *testing.T) {
	gateway := &stubGateway{resp: stubCompletion("unused")}
	r, _ := setupRouter(gateway)

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestChatUpstreamFailureMapsToBadGateway(t *testing.T) {
	gateway := &stubGateway{err: chat.UpstreamError(503, "provider overloaded", nil)}
	r, _ := setupRouter(gateway)

	resp := postChat(t, r, map[string]any{"message": "hello", "sessionId": "s1"})
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}

	var body struct {
		Kind           string `json:"kind"`
		UpstreamStatus int    `json:"upstreamStatus"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Kind != "upstream" {
		t.Errorf("kind = %q, want upstream", body.Kind)
	}
	if body.UpstreamStatus != 503 {
		t.Errorf("upstreamStatus = %d, want 503", body.UpstreamStatus)
	}
}

func TestChatWithoutUpstreamConfigured(t *testing.T) {
	r, _ := setupRouter(nil)

	resp := postChat(t, r, map[string]any{"message": "hello", "sessionId": "s1"})
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestCreateSession(t *testing.T) {
	r, _ := setupRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/session", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	var body struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.SessionID == "" {
		t.Error("expected a session id")
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	gateway := &stubGateway{resp: stubCompletion("hello there")}
	r, _ := setupRouter(gateway)

	if resp := postChat(t, r, map[string]any{"message": "hi", "sessionId": "s1"}); resp.Code != http.StatusOK {
		t.Fatalf("turn failed: %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/chat/s1/history", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		SessionID string         `json:"sessionId"`
		Messages  []chat.Message `json:"messages"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.SessionID != "s1" {
		t.Errorf("sessionId = %q, want s1", body.SessionID)
	}
	if len(body.Messages) != 2 {
		t.Fatalf("messages length = %d, want 2", len(body.Messages))
	}
	for _, msg := range body.Messages {
		if msg.Role == chat.RoleSystem {
			t.Errorf("stored history must not contain system messages")
		}
	}
}

func TestHistoryUnknownSessionIsEmpty(t *testing.T) {
	r, _ := setupRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/chat/never-seen/history", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		Messages []chat.Message `json:"messages"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Messages) != 0 {
		t.Errorf("messages length = %d, want 0", len(body.Messages))
	}
}

func TestClearHistoryIsIdempotent(t *testing.T) {
	gateway := &stubGateway{resp: stubCompletion("hello")}
	r, store := setupRouter(gateway)

	if resp := postChat(t, r, map[string]any{"message": "hi", "sessionId": "s1"}); resp.Code != http.StatusOK {
		t.Fatalf("turn failed: %d", resp.Code)
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodDelete, "/chat/s1/history", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		if resp.Code != http.StatusNoContent {
			t.Fatalf("delete #%d: expected 204, got %d", i+1, resp.Code)
		}
	}

	history, err := store.History(context.Background(), "s1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history length after clear = %d, want 0", len(history))
	}
}

func TestStatsEndpoint(t *testing.T) {
	gateway := &stubGateway{resp: stubCompletion("hello")}
	r, _ := setupRouter(gateway)

	if resp := postChat(t, r, map[string]any{"message": "hi", "sessionId": "s1"}); resp.Code != http.StatusOK {
		t.Fatalf("turn failed: %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/chat/s1/stats", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var stats chat.Stats
	if err := json.Unmarshal(resp.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if stats.TotalMessages != 2 || stats.UserMessages != 1 || stats.AssistantMessages != 1 {
		t.Errorf("stats = %+v, want 2/1/1", stats)
	}
}
