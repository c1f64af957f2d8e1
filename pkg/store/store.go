package store

import (
	"mentorhub/pkg/domain"
)

// Store defines persistence operations shared by all services.
type Store interface {
	// books
	SaveBook(domain.Book) error
	GetBook(id string) (domain.Book, bool, error)
	ListBooks() ([]domain.Book, error)
	DeleteBook(id string) error
	// SetProcessed flips the all-or-nothing searchability marker. It is the
	// sole signal retrieval and study-material generation rely on.
	SetProcessed(id string, processed bool) error

	// chunks
	ReplaceChunks(bookID string, chunks []domain.Chunk) error
	ListChunksByBook(bookID string, limit int) ([]domain.Chunk, error)
	ListChunksByChapter(bookID, chapterName string) ([]domain.Chunk, error)
	SetChunkEmbedding(id string, embedding []float32) error

	// retrieval. Both searches only consider processed books and order
	// results by descending relevance, ties broken by ascending chunk index.
	SearchChunksText(query, bookID string, limit int, minScore float64) ([]domain.RetrievedChunk, error)
	SearchChunksSubstring(query, bookID string, limit int) ([]domain.RetrievedChunk, error)

	// study materials
	GetStudyMaterial(bookID string, matType domain.MaterialType, title string) (domain.StudyMaterial, bool, error)
	// CreateStudyMaterial inserts the material unless a row for its
	// (book, type, title) key already exists, in which case the existing
	// row is returned unchanged.
	CreateStudyMaterial(domain.StudyMaterial) (domain.StudyMaterial, error)

	// conversations
	CreateConversation(domain.Conversation) error
	GetConversation(id string) (domain.Conversation, bool, error)
	ListConversationsByUser(userID string, limit int) ([]domain.Conversation, error)
	DeleteConversation(id string) error
	AppendMessage(domain.Message) error
	ListConversationMessages(conversationID string, limit int) ([]domain.Message, error)

	// highlights
	SaveHighlight(domain.Highlight) error
	ListHighlightsByBook(bookID, userID string) ([]domain.Highlight, error)
	DeleteHighlight(id, userID string) error

	// reading progress
	UpsertReadingProgress(domain.ReadingProgress) error
	GetReadingProgress(bookID, userID string) (domain.ReadingProgress, bool, error)
}

// VectorSearcher is an optional capability for stores that keep dense
// chunk embeddings and can rank by cosine similarity.
type VectorSearcher interface {
	SearchChunksVector(bookID string, embedding []float32, limit int) ([]domain.RetrievedChunk, error)
}
