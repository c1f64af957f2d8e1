package domain

import "time"

type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author,omitempty"`
	Description string    `json:"description,omitempty"`
	FilePath    string    `json:"-"`
	FileSize    int64     `json:"fileSize,omitempty"`
	Processed   bool      `json:"processed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Chunk is a bounded, ordered slice of a book's text, the unit of retrieval.
// Indices are contiguous from 0 within a book and define reading order.
type Chunk struct {
	ID          string    `json:"id"`
	BookID      string    `json:"bookId"`
	Index       int       `json:"chunkIndex"`
	Content     string    `json:"content"`
	ChapterName string    `json:"chapterName,omitempty"`
	PageNumber  int       `json:"pageNumber,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RetrievedChunk is a chunk joined with its book title and a relevance score.
type RetrievedChunk struct {
	Chunk
	BookTitle  string  `json:"bookTitle"`
	Similarity float64 `json:"similarity"`
}

// Source identifies one chunk that contributed to a generated answer.
type Source struct {
	BookTitle   string  `json:"bookTitle"`
	ChapterName string  `json:"chapterName,omitempty"`
	PageNumber  int     `json:"pageNumber,omitempty"`
	Similarity  float64 `json:"similarity"`
}

// Answer is a grounded response plus the chunks it was grounded on.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	VideoLink      string    `json:"videoLink,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Highlight struct {
	ID          string    `json:"id"`
	BookID      string    `json:"bookId"`
	UserID      string    `json:"userId"`
	Content     string    `json:"content"`
	Note        string    `json:"note,omitempty"`
	ChapterName string    `json:"chapterName,omitempty"`
	PageNumber  int       `json:"pageNumber,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ReadingProgress struct {
	ID                 string    `json:"id"`
	BookID             string    `json:"bookId"`
	UserID             string    `json:"userId"`
	CurrentPage        int       `json:"currentPage"`
	TotalPages         int       `json:"totalPages"`
	ProgressPercentage float64   `json:"progressPercentage"`
	LastReadAt         time.Time `json:"lastReadAt"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}
