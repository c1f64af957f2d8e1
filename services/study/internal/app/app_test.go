package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"mentorhub/pkg/ai"
	"mentorhub/pkg/domain"
	"mentorhub/pkg/store"
)

const validQuizJSON = `{
  "questions": [
    {
      "question": "What builds rare skills?",
      "options": ["Focus", "Noise", "Luck", "Haste"],
      "correctAnswer": 0,
      "explanation": "Deliberate focus compounds."
    }
  ]
}`

type recordingGenerator struct {
	calls      int
	lastSystem string
	lastUser   string
	lastOpts   []ai.GenerateOption
	response   string
	err        error
}

func (g *recordingGenerator) GenerateText(_ context.Context, systemPrompt, userPrompt string, opts ...ai.GenerateOption) (string, error) {
	g.calls++
	g.lastSystem = systemPrompt
	g.lastUser = userPrompt
	g.lastOpts = opts
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func seedBook(t *testing.T, st *store.MemoryStore, id string, chapters ...string) {
	t.Helper()
	err := st.SaveBook(domain.Book{
		ID: id, Title: "Deep Work", Author: "Cal Newport",
		Description: "A book about focus.", Processed: true, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("SaveBook: %v", err)
	}
	chunks := make([]domain.Chunk, 0, len(chapters))
	for i, chapter := range chapters {
		chunks = append(chunks, domain.Chunk{
			ID: fmt.Sprintf("%s-c%d", id, i), BookID: id, Index: i,
			Content: fmt.Sprintf("chunk %d content", i), ChapterName: chapter,
		})
	}
	if err := st.ReplaceChunks(id, chunks); err != nil {
		t.Fatalf("ReplaceChunks: %v", err)
	}
}

func newTestApp(t *testing.T, st *store.MemoryStore, gen ai.TextGenerator) *App {
	t.Helper()
	a, err := New(Config{Store: st, Generator: gen})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestGeneratePersistsValidatedMaterial(t *testing.T) {
	st := store.NewMemoryStore()
	seedBook(t, st, "b1", "Chapter 1", "Chapter 1")
	gen := &recordingGenerator{response: "```json\n" + validQuizJSON + "\n```"}
	a := newTestApp(t, st, gen)

	material, err := a.Generate(context.Background(), "b1", domain.MaterialQuiz, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if material.Title != "quiz" {
		t.Errorf("title = %q, want %q", material.Title, "quiz")
	}
	quiz, ok := material.Content.(domain.QuizContent)
	if !ok {
		t.Fatalf("content type = %T", material.Content)
	}
	if len(quiz.Questions) != 1 || quiz.Questions[0].CorrectAnswer != 0 {
		t.Errorf("quiz content = %+v", quiz)
	}

	stored, ok, err := st.GetStudyMaterial("b1", domain.MaterialQuiz, "quiz")
	if err != nil || !ok {
		t.Fatalf("stored material missing: ok=%v err=%v", ok, err)
	}
	if stored.ID != material.ID {
		t.Errorf("stored.ID = %q, want %q", stored.ID, material.ID)
	}
}

func TestGenerateCacheHitSkipsGeneration(t *testing.T) {
	st := store.NewMemoryStore()
	seedBook(t, st, "b1", "Chapter 1")
	existing := domain.StudyMaterial{
		ID: "m1", BookID: "b1", MaterialType: domain.MaterialQuiz, Title: "quiz",
		Content:   domain.QuizContent{Questions: []domain.QuizQuestion{{Question: "q?", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 1, Explanation: "e"}}},
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	if _, err := st.CreateStudyMaterial(existing); err != nil {
		t.Fatalf("CreateStudyMaterial: %v", err)
	}
	gen := &recordingGenerator{err: errors.New("must not be called")}
	a := newTestApp(t, st, gen)

	material, err := a.Generate(context.Background(), "b1", domain.MaterialQuiz, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times on cache hit, want 0", gen.calls)
	}
	if material.ID != "m1" {
		t.Errorf("material.ID = %q, want cached m1", material.ID)
	}
}

func TestGenerateChapterScope(t *testing.T) {
	st := store.NewMemoryStore()
	seedBook(t, st, "b1", "Chapter 1", "Chapter 2")
	gen := &recordingGenerator{response: validQuizJSON}
	a := newTestApp(t, st, gen)

	material, err := a.Generate(context.Background(), "b1", domain.MaterialQuiz, "Chapter 2")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if material.Title != "quiz: Chapter 2" {
		t.Errorf("title = %q", material.Title)
	}
	if !strings.Contains(gen.lastUser, `chapter "Chapter 2"`) {
		t.Errorf("scope missing from prompt:\n%s", gen.lastUser)
	}
	if !strings.Contains(gen.lastUser, "Chapter: Chapter 2") {
		t.Errorf("chapter line missing from prompt:\n%s", gen.lastUser)
	}
	if strings.Contains(gen.lastUser, "chunk 0 content") {
		t.Errorf("chapter scope leaked other-chapter content:\n%s", gen.lastUser)
	}
	if !strings.Contains(gen.lastUser, "chunk 1 content") {
		t.Errorf("chapter content missing from prompt:\n%s", gen.lastUser)
	}
}

func TestGenerateWholeBookChunkCap(t *testing.T) {
	st := store.NewMemoryStore()
	chapters := make([]string, 60)
	seedBook(t, st, "b1", chapters...)
	gen := &recordingGenerator{response: validQuizJSON}
	a := newTestApp(t, st, gen)

	if _, err := a.Generate(context.Background(), "b1", domain.MaterialQuiz, ""); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(gen.lastUser, "chunk 49 content") {
		t.Errorf("chunk under cap missing from prompt")
	}
	if strings.Contains(gen.lastUser, "chunk 50 content") {
		t.Errorf("chunk past cap leaked into prompt")
	}
}

func TestGenerateMissingBook(t *testing.T) {
	st := store.NewMemoryStore()
	a := newTestApp(t, st, &recordingGenerator{response: validQuizJSON})
	if _, err := a.Generate(context.Background(), "missing", domain.MaterialQuiz, ""); !errors.Is(err, ErrContentNotFound) {
		t.Fatalf("got %v, want ErrContentNotFound", err)
	}
}

func TestGenerateNoChunks(t *testing.T) {
	st := store.NewMemoryStore()
	seedBook(t, st, "b1")
	a := newTestApp(t, st, &recordingGenerator{response: validQuizJSON})
	if _, err := a.Generate(context.Background(), "b1", domain.MaterialQuiz, ""); !errors.Is(err, ErrContentNotFound) {
		t.Fatalf("got %v, want ErrContentNotFound", err)
	}
}

func TestGenerateRejectsInvalidContent(t *testing.T) {
	st := store.NewMemoryStore()
	seedBook(t, st, "b1", "Chapter 1")
	// Three options instead of four.
	bad := `{"questions":[{"question":"q?","options":["a","b","c"],"correctAnswer":0,"explanation":"e"}]}`
	a := newTestApp(t, st, &recordingGenerator{response: bad})

	if _, err := a.Generate(context.Background(), "b1", domain.MaterialQuiz, ""); !errors.Is(err, ErrBadGeneration) {
		t.Fatalf("got %v, want ErrBadGeneration", err)
	}
	if _, ok, _ := st.GetStudyMaterial("b1", domain.MaterialQuiz, "quiz"); ok {
		t.Error("invalid material was persisted")
	}
}

func TestGenerateAudioScriptIncludesDescription(t *testing.T) {
	st := store.NewMemoryStore()
	seedBook(t, st, "b1", "Chapter 1")
	gen := &recordingGenerator{response: `{"script":"Welcome to this overview."}`}
	a := newTestApp(t, st, gen)

	if _, err := a.Generate(context.Background(), "b1", domain.MaterialAudioScript, ""); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(gen.lastUser, "Description: A book about focus.") {
		t.Errorf("description missing from audio prompt:\n%s", gen.lastUser)
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"json fence with newlines", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"json fence inline", "```json {\"a\":1}```", `{"a":1}`},
		{"bare fence with newlines", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence inline", "```{\"a\":1}```", `{"a":1}`},
		{"no fence", "  {\"a\":1}\n", `{"a":1}`},
		{"fence with surrounding prose", "Here you go:\n```json\n{\"a\":1}\n```\nEnjoy!", `{"a":1}`},
	}
	for _, tc := range cases {
		if got := stripCodeFence(tc.in); got != tc.want {
			t.Errorf("%s: stripCodeFence(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}
