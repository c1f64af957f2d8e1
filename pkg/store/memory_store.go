package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"mentorhub/pkg/domain"
)

// MemoryStore is an in-memory Store for tests and local development. Lexical
// search scores by query-token overlap, which is close enough in shape to the
// Postgres ts_rank path to exercise the retrieval chain.
type MemoryStore struct {
	mu            sync.RWMutex
	books         map[string]domain.Book
	chunks        map[string][]domain.Chunk // bookID -> ordered chunks
	embeddings    map[string][]float32      // chunkID -> embedding
	materials     map[string]domain.StudyMaterial
	conversations map[string]domain.Conversation
	messages      map[string][]domain.Message // conversationID -> ordered
	highlights    map[string]domain.Highlight
	progress      map[string]domain.ReadingProgress // bookID|userID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books:         make(map[string]domain.Book),
		chunks:        make(map[string][]domain.Chunk),
		embeddings:    make(map[string][]float32),
		materials:     make(map[string]domain.StudyMaterial),
		conversations: make(map[string]domain.Conversation),
		messages:      make(map[string][]domain.Message),
		highlights:    make(map[string]domain.Highlight),
		progress:      make(map[string]domain.ReadingProgress),
	}
}

func (s *MemoryStore) SaveBook(b domain.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[b.ID] = b
	return nil
}

func (s *MemoryStore) GetBook(id string) (domain.Book, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[id]
	return b, ok, nil
}

func (s *MemoryStore) ListBooks() ([]domain.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	books := make([]domain.Book, 0, len(s.books))
	for _, b := range s.books {
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool {
		if books[i].CreatedAt.Equal(books[j].CreatedAt) {
			return books[i].ID < books[j].ID
		}
		return books[i].CreatedAt.Before(books[j].CreatedAt)
	})
	return books, nil
}

func (s *MemoryStore) DeleteBook(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.books, id)
	for _, chunk := range s.chunks[id] {
		delete(s.embeddings, chunk.ID)
	}
	delete(s.chunks, id)
	for key, material := range s.materials {
		if material.BookID == id {
			delete(s.materials, key)
		}
	}
	for key, h := range s.highlights {
		if h.BookID == id {
			delete(s.highlights, key)
		}
	}
	for key, p := range s.progress {
		if p.BookID == id {
			delete(s.progress, key)
		}
	}
	return nil
}

func (s *MemoryStore) SetProcessed(id string, processed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return fmt.Errorf("book %s not found", id)
	}
	b.Processed = processed
	b.UpdatedAt = time.Now().UTC()
	s.books[id] = b
	return nil
}

func (s *MemoryStore) ReplaceChunks(bookID string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, old := range s.chunks[bookID] {
		delete(s.embeddings, old.ID)
	}
	ordered := make([]domain.Chunk, len(chunks))
	copy(ordered, chunks)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })
	s.chunks[bookID] = ordered
	return nil
}

func (s *MemoryStore) ListChunksByBook(bookID string, limit int) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := s.chunks[bookID]
	if limit > 0 && len(chunks) > limit {
		chunks = chunks[:limit]
	}
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)
	return out, nil
}

func (s *MemoryStore) ListChunksByChapter(bookID, chapterName string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Chunk
	for _, chunk := range s.chunks[bookID] {
		if chunk.ChapterName == chapterName {
			out = append(out, chunk)
		}
	}
	return out, nil
}

func (s *MemoryStore) SetChunkEmbedding(id string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	s.embeddings[id] = vec
	return nil
}

func (s *MemoryStore) SearchChunksText(query, bookID string, limit int, minScore float64) ([]domain.RetrievedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tokens := tokenize(query)
	if len(tokens) == 0 || limit <= 0 {
		return []domain.RetrievedChunk{}, nil
	}
	var hits []domain.RetrievedChunk
	s.eachSearchableChunk(bookID, func(book domain.Book, chunk domain.Chunk) {
		score := overlapScore(tokens, tokenize(chunk.Content))
		if score <= 0 || score < minScore {
			return
		}
		hits = append(hits, domain.RetrievedChunk{
			Chunk:      chunk,
			BookTitle:  book.Title,
			Similarity: score,
		})
	})
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].Index < hits[j].Index
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *MemoryStore) SearchChunksSubstring(query, bookID string, limit int) ([]domain.RetrievedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(query)
	if needle == "" || limit <= 0 {
		return []domain.RetrievedChunk{}, nil
	}
	var hits []domain.RetrievedChunk
	s.eachSearchableChunk(bookID, func(book domain.Book, chunk domain.Chunk) {
		if len(hits) >= limit {
			return
		}
		if strings.Contains(strings.ToLower(chunk.Content), needle) {
			hits = append(hits, domain.RetrievedChunk{
				Chunk:     chunk,
				BookTitle: book.Title,
			})
		}
	})
	return hits, nil
}

// eachSearchableChunk visits chunks of processed books, book IDs sorted for
// deterministic output, chunks in index order.
func (s *MemoryStore) eachSearchableChunk(bookID string, visit func(domain.Book, domain.Chunk)) {
	bookIDs := make([]string, 0, len(s.chunks))
	for id := range s.chunks {
		bookIDs = append(bookIDs, id)
	}
	sort.Strings(bookIDs)
	for _, id := range bookIDs {
		if bookID != "" && id != bookID {
			continue
		}
		book, ok := s.books[id]
		if !ok || !book.Processed {
			continue
		}
		for _, chunk := range s.chunks[id] {
			visit(book, chunk)
		}
	}
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}

// overlapScore is the fraction of query tokens present in the chunk.
func overlapScore(queryTokens, chunkTokens []string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	present := make(map[string]bool, len(chunkTokens))
	for _, t := range chunkTokens {
		present[t] = true
	}
	matched := 0
	for _, t := range queryTokens {
		if present[t] {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

func (s *MemoryStore) GetStudyMaterial(bookID string, matType domain.MaterialType, title string) (domain.StudyMaterial, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	material, ok := s.materials[materialKey(bookID, matType, title)]
	return material, ok, nil
}

func (s *MemoryStore) CreateStudyMaterial(material domain.StudyMaterial) (domain.StudyMaterial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := materialKey(material.BookID, material.MaterialType, material.Title)
	if existing, ok := s.materials[key]; ok {
		return existing, nil
	}
	s.materials[key] = material
	return material, nil
}

func materialKey(bookID string, matType domain.MaterialType, title string) string {
	return bookID + "\x00" + string(matType) + "\x00" + title
}

func (s *MemoryStore) CreateConversation(c domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[c.ID] = c
	return nil
}

func (s *MemoryStore) GetConversation(id string) (domain.Conversation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	return c, ok, nil
}

func (s *MemoryStore) ListConversationsByUser(userID string, limit int) ([]domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Conversation
	for _, c := range s.conversations {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) DeleteConversation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
	delete(s.messages, id)
	return nil
}

func (s *MemoryStore) AppendMessage(msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], msg)
	if c, ok := s.conversations[msg.ConversationID]; ok {
		c.UpdatedAt = time.Now().UTC()
		s.conversations[msg.ConversationID] = c
	}
	return nil
}

func (s *MemoryStore) ListConversationMessages(conversationID string, limit int) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) SaveHighlight(h domain.Highlight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.highlights[h.ID] = h
	return nil
}

func (s *MemoryStore) ListHighlightsByBook(bookID, userID string) ([]domain.Highlight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Highlight
	for _, h := range s.highlights {
		if h.BookID == bookID && h.UserID == userID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) DeleteHighlight(id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.highlights[id]; ok && h.UserID == userID {
		delete(s.highlights, id)
	}
	return nil
}

func (s *MemoryStore) UpsertReadingProgress(p domain.ReadingProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := p.BookID + "\x00" + p.UserID
	if existing, ok := s.progress[key]; ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	}
	s.progress[key] = p
	return nil
}

func (s *MemoryStore) GetReadingProgress(bookID, userID string) (domain.ReadingProgress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[bookID+"\x00"+userID]
	return p, ok, nil
}
