package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mentorhub/pkg/ai"
	"mentorhub/pkg/domain"
	"mentorhub/pkg/store"
	"mentorhub/services/bookrag/internal/app"
)

type stubGenerator struct {
	answer string
	err    error
}

func (g *stubGenerator) GenerateText(context.Context, string, string, ...ai.GenerateOption) (string, error) {
	return g.answer, g.err
}

func newTestServer(t *testing.T, gen ai.TextGenerator) *Server {
	t.Helper()
	st := store.NewMemoryStore()
	if err := st.SaveBook(domain.Book{ID: "b1", Title: "Deep Work", Processed: true, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("SaveBook: %v", err)
	}
	if err := st.ReplaceChunks("b1", []domain.Chunk{
		{ID: "c0", BookID: "b1", Index: 0, Content: "deliberate focus builds rare skills"},
	}); err != nil {
		t.Fatalf("ReplaceChunks: %v", err)
	}
	appCore, err := app.New(app.Config{
		Retriever: app.NewRetriever(
			&app.TextSearchStrategy{Store: st},
			&app.SubstringStrategy{Store: st},
		),
		Generator: gen,
	})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	return New(Config{App: appCore})
}

func post(t *testing.T, handler http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAskEndpoint(t *testing.T) {
	s := newTestServer(t, &stubGenerator{answer: "Focus wins.\n**Source:** [Deep Work]"})
	rec := post(t, s.Router(), map[string]string{"query": "deliberate focus skills"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Answer  string `json:"answer"`
		Sources []struct {
			BookTitle string `json:"bookTitle"`
		} `json:"sources"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer == "" || len(resp.Sources) == 0 {
		t.Errorf("incomplete response: %+v", resp)
	}
}

func TestAskBlankQuery(t *testing.T) {
	s := newTestServer(t, &stubGenerator{answer: "unused"})
	rec := post(t, s.Router(), map[string]string{"query": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAskNoMatchReturnsFixedAnswer(t *testing.T) {
	s := newTestServer(t, &stubGenerator{err: fmt.Errorf("must not be called")})
	rec := post(t, s.Router(), map[string]string{"query": "zzzqqyyx"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Answer  string          `json:"answer"`
		Sources []domain.Source `json:"sources"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != app.NoMatchAnswer {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 0 {
		t.Errorf("sources = %v, want empty", resp.Sources)
	}
}

func TestAskMapsProviderErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("wrapped: %w", ai.ErrRateLimited), http.StatusTooManyRequests},
		{fmt.Errorf("wrapped: %w", ai.ErrQuotaExhausted), http.StatusPaymentRequired},
		{fmt.Errorf("provider exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		s := newTestServer(t, &stubGenerator{err: tc.err})
		rec := post(t, s.Router(), map[string]string{"query": "deliberate focus skills"})
		if rec.Code != tc.status {
			t.Errorf("err %v: status = %d, want %d", tc.err, rec.Code, tc.status)
		}
	}
}

func TestPreflightReturnsEmpty200(t *testing.T) {
	s := newTestServer(t, &stubGenerator{})
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("preflight status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("preflight body = %q, want empty", rec.Body.String())
	}
}
