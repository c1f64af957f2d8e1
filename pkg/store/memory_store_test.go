package store

import (
	"testing"
	"time"

	"mentorhub/pkg/domain"
)

func seedBook(t *testing.T, s *MemoryStore, id, title string, processed bool, contents ...string) {
	t.Helper()
	if err := s.SaveBook(domain.Book{ID: id, Title: title, Processed: processed, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("SaveBook: %v", err)
	}
	chunks := make([]domain.Chunk, 0, len(contents))
	for i, content := range contents {
		chunks = append(chunks, domain.Chunk{
			ID:      id + "-c" + string(rune('0'+i)),
			BookID:  id,
			Index:   i,
			Content: content,
		})
	}
	if err := s.ReplaceChunks(id, chunks); err != nil {
		t.Fatalf("ReplaceChunks: %v", err)
	}
}

func TestSearchChunksTextSkipsUnprocessedBooks(t *testing.T) {
	s := NewMemoryStore()
	seedBook(t, s, "b1", "Deep Work", true, "focus is the new superpower of the knowledge economy")
	seedBook(t, s, "b2", "Draft", false, "focus focus focus")

	hits, err := s.SearchChunksText("focus superpower", "", 10, 0)
	if err != nil {
		t.Fatalf("SearchChunksText: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if hits[0].BookTitle != "Deep Work" {
		t.Errorf("hit from %q, want processed book only", hits[0].BookTitle)
	}
}

func TestSearchChunksTextOrdering(t *testing.T) {
	s := NewMemoryStore()
	seedBook(t, s, "b1", "Habits", true,
		"identity change is the north star of habit change",
		"small habits compound into remarkable results over time",
		"habit change identity change environment change",
	)

	hits, err := s.SearchChunksText("habit change identity", "b1", 10, 0)
	if err != nil {
		t.Fatalf("SearchChunksText: %v", err)
	}
	if len(hits) < 2 {
		t.Fatalf("got %d hits, want at least 2", len(hits))
	}
	for i := 1; i < len(hits); i++ {
		prev, cur := hits[i-1], hits[i]
		if cur.Similarity > prev.Similarity {
			t.Fatalf("hits not in descending similarity: %f before %f", prev.Similarity, cur.Similarity)
		}
		if cur.Similarity == prev.Similarity && cur.Index < prev.Index {
			t.Fatalf("tie not broken by chunk index: %d before %d", prev.Index, cur.Index)
		}
	}
}

func TestSearchChunksTextMinScore(t *testing.T) {
	s := NewMemoryStore()
	seedBook(t, s, "b1", "Habits", true, "small habits compound", "unrelated text about sailing")

	hits, err := s.SearchChunksText("habits compound daily rituals", "b1", 10, 0.4)
	if err != nil {
		t.Fatalf("SearchChunksText: %v", err)
	}
	for _, h := range hits {
		if h.Similarity < 0.4 {
			t.Errorf("hit below min score: %f", h.Similarity)
		}
	}
}

func TestSearchChunksSubstring(t *testing.T) {
	s := NewMemoryStore()
	seedBook(t, s, "b1", "Essays", true, "The Feynman technique explained simply", "nothing relevant here")

	hits, err := s.SearchChunksSubstring("feynman", "", 10)
	if err != nil {
		t.Fatalf("SearchChunksSubstring: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if hits[0].Similarity != 0 {
		t.Errorf("substring hits carry no score from the store, got %f", hits[0].Similarity)
	}
}

func TestCreateStudyMaterialReturnsExistingOnConflict(t *testing.T) {
	s := NewMemoryStore()
	first := domain.StudyMaterial{
		ID:           "m1",
		BookID:       "b1",
		MaterialType: domain.MaterialSummary,
		Title:        "summary",
		Content:      domain.SummaryContent{Overview: "o", KeyPoints: []string{"k"}},
	}
	if _, err := s.CreateStudyMaterial(first); err != nil {
		t.Fatalf("CreateStudyMaterial: %v", err)
	}
	second := first
	second.ID = "m2"
	got, err := s.CreateStudyMaterial(second)
	if err != nil {
		t.Fatalf("CreateStudyMaterial duplicate: %v", err)
	}
	if got.ID != "m1" {
		t.Errorf("duplicate insert returned %q, want existing row m1", got.ID)
	}
}

func TestUpsertReadingProgressKeepsIdentity(t *testing.T) {
	s := NewMemoryStore()
	if err := s.UpsertReadingProgress(domain.ReadingProgress{ID: "p1", BookID: "b1", UserID: "u1", CurrentPage: 10}); err != nil {
		t.Fatalf("UpsertReadingProgress: %v", err)
	}
	if err := s.UpsertReadingProgress(domain.ReadingProgress{ID: "p2", BookID: "b1", UserID: "u1", CurrentPage: 42}); err != nil {
		t.Fatalf("UpsertReadingProgress update: %v", err)
	}
	got, ok, err := s.GetReadingProgress("b1", "u1")
	if err != nil || !ok {
		t.Fatalf("GetReadingProgress: ok=%v err=%v", ok, err)
	}
	if got.ID != "p1" {
		t.Errorf("upsert replaced row identity: got %q, want p1", got.ID)
	}
	if got.CurrentPage != 42 {
		t.Errorf("CurrentPage = %d, want 42", got.CurrentPage)
	}
}

func TestDeleteBookCascades(t *testing.T) {
	s := NewMemoryStore()
	seedBook(t, s, "b1", "Gone", true, "content")
	if _, err := s.CreateStudyMaterial(domain.StudyMaterial{
		ID: "m1", BookID: "b1", MaterialType: domain.MaterialQuiz, Title: "quiz",
		Content: domain.QuizContent{Questions: []domain.QuizQuestion{{
			Question: "q", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 0,
		}}},
	}); err != nil {
		t.Fatalf("CreateStudyMaterial: %v", err)
	}
	if err := s.DeleteBook("b1"); err != nil {
		t.Fatalf("DeleteBook: %v", err)
	}
	if chunks, _ := s.ListChunksByBook("b1", 0); len(chunks) != 0 {
		t.Errorf("chunks survived delete: %d", len(chunks))
	}
	if _, ok, _ := s.GetStudyMaterial("b1", domain.MaterialQuiz, "quiz"); ok {
		t.Error("study material survived delete")
	}
}
