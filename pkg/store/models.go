package store

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// GORM models used for persistence. The chunk search_vector column and the
// cascade foreign keys are maintained by raw migration SQL in gorm_store.go.
type BookModel struct {
	ID          string `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Author      string
	Description string
	FilePath    string
	FileSize    int64
	Processed   bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time
}

type ChunkModel struct {
	ID          string `gorm:"primaryKey"`
	BookID      string `gorm:"not null;index;uniqueIndex:idx_chunk_book_seq,priority:1"`
	ChunkIndex  int    `gorm:"not null;uniqueIndex:idx_chunk_book_seq,priority:2"`
	Content     string `gorm:"type:text;not null"`
	ChapterName *string
	PageNumber  *int
	Embedding   *pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt   time.Time        `gorm:"not null"`
}

type StudyMaterialModel struct {
	ID           string         `gorm:"primaryKey"`
	BookID       string         `gorm:"not null;index;uniqueIndex:idx_material_key,priority:1"`
	MaterialType string         `gorm:"not null;uniqueIndex:idx_material_key,priority:2"`
	Title        string         `gorm:"not null;uniqueIndex:idx_material_key,priority:3"`
	Content      datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt    time.Time      `gorm:"not null"`
	UpdatedAt    time.Time      `gorm:"not null"`
}

type ConversationModel struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"not null;index"`
	Title     string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type MessageModel struct {
	ID             string `gorm:"primaryKey"`
	ConversationID string `gorm:"not null;index"`
	Role           string `gorm:"not null"`
	Content        string `gorm:"type:text;not null"`
	VideoLink      *string
	CreatedAt      time.Time `gorm:"not null;index"`
}

type HighlightModel struct {
	ID          string `gorm:"primaryKey"`
	BookID      string `gorm:"not null;index"`
	UserID      string `gorm:"not null;index"`
	Content     string `gorm:"type:text;not null"`
	Note        string
	ChapterName *string
	PageNumber  *int
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type ReadingProgressModel struct {
	ID                 string  `gorm:"primaryKey"`
	BookID             string  `gorm:"not null;uniqueIndex:idx_progress_book_user,priority:1"`
	UserID             string  `gorm:"not null;uniqueIndex:idx_progress_book_user,priority:2"`
	CurrentPage        int     `gorm:"not null;default:0"`
	TotalPages         int     `gorm:"not null;default:0"`
	ProgressPercentage float64 `gorm:"not null;default:0"`
	LastReadAt         *time.Time
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}
