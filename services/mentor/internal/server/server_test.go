package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mentorhub/pkg/ai"
	"mentorhub/pkg/domain"
	"mentorhub/pkg/store"
	"mentorhub/services/mentor/internal/app"
)

type staticVerifier struct {
	users map[string]string
}

func (v *staticVerifier) VerifySubject(token string) (string, error) {
	if user, ok := v.users[token]; ok {
		return user, nil
	}
	return "", fmt.Errorf("unknown token")
}

type fakeStreamer struct {
	deltas []string
	err    error
}

func (f *fakeStreamer) StreamChat(_ context.Context, _ string, _ []ai.ChatMessage, onDelta func(string) error) error {
	for _, delta := range f.deltas {
		if err := onDelta(delta); err != nil {
			return err
		}
	}
	return f.err
}

func newTestServer(t *testing.T, st store.Store, streamer ai.ChatStreamer, webhookURL string) *Server {
	t.Helper()
	appCore, err := app.New(app.Config{
		Store:      st,
		Streamer:   streamer,
		WebhookURL: webhookURL,
		MentorName: "Test Mentor",
	})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	verifier := &staticVerifier{users: map[string]string{
		"token-alice": "alice",
		"token-bob":   "bob",
	}}
	return New(Config{App: appCore, TokenVerifier: verifier})
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func chatBody(content string) map[string]any {
	return map[string]any{"messages": []map[string]string{{"role": "user", "content": content}}}
}

// parseSSE reassembles content fragments and reports whether the stream
// ended with the [DONE] marker.
func parseSSE(t *testing.T, body string) (string, bool) {
	t.Helper()
	var content strings.Builder
	done := false
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			done = true
			continue
		}
		var event struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			t.Fatalf("bad SSE event %q: %v", data, err)
		}
		content.WriteString(event.Content)
	}
	return content.String(), done
}

func TestChatStreamsAndTerminates(t *testing.T) {
	st := store.NewMemoryStore()
	s := newTestServer(t, st, &fakeStreamer{deltas: []string{"Start ", "with one ", "platform."}}, "")
	rec := doJSON(t, s.Router(), http.MethodPost, "/chat", "token-alice", chatBody("how do I start?"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	content, done := parseSSE(t, rec.Body.String())
	if content != "Start with one platform." {
		t.Errorf("reassembled = %q", content)
	}
	if !done {
		t.Error("stream missing [DONE] marker")
	}

	convs, err := st.ListConversationsByUser("alice", 10)
	if err != nil || len(convs) != 1 {
		t.Fatalf("conversations = %v, err %v", convs, err)
	}
}

func TestChatRequiresAuth(t *testing.T) {
	s := newTestServer(t, store.NewMemoryStore(), &fakeStreamer{deltas: []string{"x"}}, "")
	rec := doJSON(t, s.Router(), http.MethodPost, "/chat", "", chatBody("q"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestChatMapsProviderErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("wrapped: %w", ai.ErrRateLimited), http.StatusTooManyRequests},
		{fmt.Errorf("wrapped: %w", ai.ErrQuotaExhausted), http.StatusPaymentRequired},
		{fmt.Errorf("provider exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		s := newTestServer(t, store.NewMemoryStore(), &fakeStreamer{err: tc.err}, "")
		rec := doJSON(t, s.Router(), http.MethodPost, "/chat", "token-alice", chatBody("q"))
		if rec.Code != tc.status {
			t.Errorf("err %v: status = %d, want %d", tc.err, rec.Code, tc.status)
		}
	}
}

func TestChatEmptyMessages(t *testing.T) {
	s := newTestServer(t, store.NewMemoryStore(), &fakeStreamer{}, "")
	rec := doJSON(t, s.Router(), http.MethodPost, "/chat", "token-alice", map[string]any{"messages": []any{}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestConversationEndpointsOwnerScoped(t *testing.T) {
	st := store.NewMemoryStore()
	s := newTestServer(t, st, &fakeStreamer{deltas: []string{"answer"}}, "")
	if rec := doJSON(t, s.Router(), http.MethodPost, "/chat", "token-alice", chatBody("alice question")); rec.Code != http.StatusOK {
		t.Fatalf("chat status = %d", rec.Code)
	}
	convs, _ := st.ListConversationsByUser("alice", 10)
	if len(convs) != 1 {
		t.Fatalf("conversations = %d", len(convs))
	}
	convID := convs[0].ID

	rec := doJSON(t, s.Router(), http.MethodGet, "/conversations", "token-alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listResp struct {
		Conversations []domain.Conversation `json:"conversations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listResp.Conversations) != 1 {
		t.Errorf("listed %d conversations", len(listResp.Conversations))
	}

	rec = doJSON(t, s.Router(), http.MethodGet, "/conversations/"+convID+"/messages", "token-bob", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign messages status = %d, want 404", rec.Code)
	}
	rec = doJSON(t, s.Router(), http.MethodDelete, "/conversations/"+convID, "token-bob", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign delete status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, s.Router(), http.MethodGet, "/conversations/"+convID+"/messages", "token-alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("messages status = %d", rec.Code)
	}
	var msgResp struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &msgResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(msgResp.Messages) != 2 {
		t.Errorf("messages = %d, want 2", len(msgResp.Messages))
	}

	rec = doJSON(t, s.Router(), http.MethodDelete, "/conversations/"+convID, "token-alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if convs, _ := st.ListConversationsByUser("alice", 10); len(convs) != 0 {
		t.Errorf("conversation survived delete")
	}
}

func TestResearchEndpoint(t *testing.T) {
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"result":"findings"}`)
	}))
	defer webhook.Close()

	s := newTestServer(t, store.NewMemoryStore(), &fakeStreamer{}, webhook.URL)
	rec := doJSON(t, s.Router(), http.MethodPost, "/research", "token-alice", map[string]string{"query": "trends"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if strings.TrimSpace(rec.Body.String()) != `{"result":"findings"}` {
		t.Errorf("body = %s", rec.Body.String())
	}

	rec = doJSON(t, s.Router(), http.MethodPost, "/research", "token-alice", map[string]string{"query": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank query status = %d, want 400", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, store.NewMemoryStore(), &fakeStreamer{}, "")
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
