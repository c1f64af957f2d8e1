package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"mentorhub/pkg/domain"
)

const migrateLockID int64 = 52815281

const (
	defaultEmbeddingDim      = 768
	canonicalEmbeddingDimEnv = "MENTORHUB_EMBEDDING_DIM"
)

type GormStoreOptions struct {
	EmbeddingDim int
}

type GormStoreOption func(*GormStoreOptions)

// WithEmbeddingDim sets the canonical embedding dimension used by storage.
func WithEmbeddingDim(dim int) GormStoreOption {
	return func(opts *GormStoreOptions) {
		opts.EmbeddingDim = dim
	}
}

// GormStore implements Store using GORM + Postgres. The lexical index is a
// stored generated tsvector column over chunk content with a GIN index.
type GormStore struct {
	db           *gorm.DB
	embeddingDim int
}

// NewGormStore opens the DB and runs migrations under an advisory lock.
func NewGormStore(dsn string, options ...GormStoreOption) (*GormStore, error) {
	opts := GormStoreOptions{}
	for _, option := range options {
		if option != nil {
			option(&opts)
		}
	}
	embeddingDim, err := resolveEmbeddingDim(opts.EmbeddingDim)
	if err != nil {
		return nil, err
	}

	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return fmt.Errorf("create pgvector extension: %w", err)
		}
		if err := tx.AutoMigrate(
			&BookModel{}, &ChunkModel{}, &StudyMaterialModel{},
			&ConversationModel{}, &MessageModel{},
			&HighlightModel{}, &ReadingProgressModel{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		if err := tx.Exec(fmt.Sprintf(`
			DO $$
			BEGIN
			IF EXISTS (
				SELECT 1 FROM information_schema.columns
				WHERE table_name = 'chunk_models' AND column_name = 'embedding'
			) THEN
				ALTER TABLE chunk_models ALTER COLUMN embedding TYPE vector(%d);
			END IF;
			END $$;
		`, embeddingDim)).Error; err != nil {
			return fmt.Errorf("alter chunk embedding type: %w", err)
		}
		if err := tx.Exec(`
			ALTER TABLE chunk_models ADD COLUMN IF NOT EXISTS search_vector tsvector
			GENERATED ALWAYS AS (to_tsvector('english', content)) STORED;
		`).Error; err != nil {
			return fmt.Errorf("add chunk search vector: %w", err)
		}
		if err := tx.Exec(`
			CREATE INDEX IF NOT EXISTS idx_chunk_search_vector
			ON chunk_models USING GIN (search_vector);
		`).Error; err != nil {
			return fmt.Errorf("index chunk search vector: %w", err)
		}
		if err := ensureCascade(tx, "chunk_models", "chunk_models_book_id_fkey", "book_id", "book_models"); err != nil {
			return err
		}
		if err := ensureCascade(tx, "study_material_models", "study_material_models_book_id_fkey", "book_id", "book_models"); err != nil {
			return err
		}
		if err := ensureCascade(tx, "highlight_models", "highlight_models_book_id_fkey", "book_id", "book_models"); err != nil {
			return err
		}
		if err := ensureCascade(tx, "reading_progress_models", "reading_progress_models_book_id_fkey", "book_id", "book_models"); err != nil {
			return err
		}
		if err := ensureCascade(tx, "message_models", "message_models_conversation_id_fkey", "conversation_id", "conversation_models"); err != nil {
			return err
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db, embeddingDim: embeddingDim}, nil
}

func ensureCascade(tx *gorm.DB, table, constraint, column, refTable string) error {
	err := tx.Exec(fmt.Sprintf(`
		DO $$
		BEGIN
			DELETE FROM %[1]s t
			WHERE NOT EXISTS (SELECT 1 FROM %[4]s r WHERE r.id = t.%[3]s);
			IF NOT EXISTS (
				SELECT 1 FROM information_schema.table_constraints
				WHERE table_schema = 'public'
				AND table_name = '%[1]s'
				AND constraint_name = '%[2]s'
			) THEN
				ALTER TABLE %[1]s
				ADD CONSTRAINT %[2]s
				FOREIGN KEY (%[3]s) REFERENCES %[4]s(id) ON DELETE CASCADE;
			END IF;
		END $$;
	`, table, constraint, column, refTable)).Error
	if err != nil {
		return fmt.Errorf("ensure %s cascade: %w", constraint, err)
	}
	return nil
}

func resolveEmbeddingDim(configValue int) (int, error) {
	if configValue > 0 {
		return configValue, nil
	}
	raw := strings.TrimSpace(os.Getenv(canonicalEmbeddingDimEnv))
	if raw == "" {
		return defaultEmbeddingDim, nil
	}
	dim, err := strconv.Atoi(raw)
	if err != nil || dim <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", canonicalEmbeddingDimEnv, raw)
	}
	return dim, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveBook stores or updates a book.
func (s *GormStore) SaveBook(b domain.Book) error {
	model := bookToModel(b)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "author", "description", "file_path", "file_size", "processed", "updated_at"}),
	}).Create(&model).Error
}

// GetBook retrieves a book.
func (s *GormStore) GetBook(id string) (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// ListBooks returns all books ordered by created_at.
func (s *GormStore) ListBooks() ([]domain.Book, error) {
	var models []BookModel
	if err := s.db.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res, nil
}

// DeleteBook removes a book. Chunks, study materials, highlights, and
// reading progress go with it via the cascade foreign keys.
func (s *GormStore) DeleteBook(id string) error {
	return s.db.Delete(&BookModel{}, "id = ?", id).Error
}

// SetProcessed flips the searchability flag.
func (s *GormStore) SetProcessed(id string, processed bool) error {
	return s.db.Model(&BookModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"processed":  processed,
			"updated_at": time.Now().UTC(),
		}).Error
}

// ReplaceChunks replaces all chunks for a book in one transaction.
func (s *GormStore) ReplaceChunks(bookID string, chunks []domain.Chunk) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ChunkModel{}, "book_id = ?", bookID).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		models := make([]ChunkModel, 0, len(chunks))
		for _, chunk := range chunks {
			model := chunkToModel(chunk)
			model.BookID = bookID
			models = append(models, model)
		}
		return tx.CreateInBatches(&models, 200).Error
	})
}

// ListChunksByBook returns chunks in reading order. limit <= 0 means all.
func (s *GormStore) ListChunksByBook(bookID string, limit int) ([]domain.Chunk, error) {
	query := s.db.Where("book_id = ?", bookID).Order("chunk_index ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var models []ChunkModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return chunksFromModels(models), nil
}

// ListChunksByChapter returns a chapter's chunks in reading order.
func (s *GormStore) ListChunksByChapter(bookID, chapterName string) ([]domain.Chunk, error) {
	var models []ChunkModel
	if err := s.db.Where("book_id = ? AND chapter_name = ?", bookID, chapterName).
		Order("chunk_index ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return chunksFromModels(models), nil
}

// SetChunkEmbedding updates the embedding vector for a chunk.
func (s *GormStore) SetChunkEmbedding(id string, embedding []float32) error {
	if err := s.validateEmbeddingDim(embedding); err != nil {
		return err
	}
	return s.db.Model(&ChunkModel{}).Where("id = ?", id).
		Update("embedding", pgvector.NewVector(embedding)).Error
}

type retrievedRow struct {
	ID          string
	BookID      string
	ChunkIndex  int
	Content     string
	ChapterName *string
	PageNumber  *int
	CreatedAt   time.Time
	BookTitle   string
	Similarity  float64
}

// SearchChunksText ranks chunks of processed books with Postgres full-text
// search. Scores below minScore are excluded.
func (s *GormStore) SearchChunksText(query, bookID string, limit int, minScore float64) ([]domain.RetrievedChunk, error) {
	if limit <= 0 {
		return []domain.RetrievedChunk{}, nil
	}
	var rows []retrievedRow
	err := s.db.Raw(`
		SELECT c.id, c.book_id, c.chunk_index, c.content, c.chapter_name, c.page_number, c.created_at,
		       b.title AS book_title,
		       ts_rank(c.search_vector, plainto_tsquery('english', @query)) AS similarity
		FROM chunk_models c
		JOIN book_models b ON b.id = c.book_id AND b.processed
		WHERE c.search_vector @@ plainto_tsquery('english', @query)
		  AND (@book = '' OR c.book_id = @book)
		  AND ts_rank(c.search_vector, plainto_tsquery('english', @query)) >= @min
		ORDER BY similarity DESC, c.chunk_index ASC
		LIMIT @limit
	`, sql.Named("query", query), sql.Named("book", bookID), sql.Named("min", minScore), sql.Named("limit", limit)).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	return retrievedFromRows(rows), nil
}

// SearchChunksSubstring is the recall safety net: a case-insensitive
// containment scan over processed books, ordered by reading position only.
func (s *GormStore) SearchChunksSubstring(query, bookID string, limit int) ([]domain.RetrievedChunk, error) {
	if limit <= 0 {
		return []domain.RetrievedChunk{}, nil
	}
	pattern := "%" + escapeLike(query) + "%"
	var rows []retrievedRow
	err := s.db.Raw(`
		SELECT c.id, c.book_id, c.chunk_index, c.content, c.chapter_name, c.page_number, c.created_at,
		       b.title AS book_title,
		       0 AS similarity
		FROM chunk_models c
		JOIN book_models b ON b.id = c.book_id AND b.processed
		WHERE c.content ILIKE @pattern
		  AND (@book = '' OR c.book_id = @book)
		ORDER BY c.book_id, c.chunk_index ASC
		LIMIT @limit
	`, sql.Named("pattern", pattern), sql.Named("book", bookID), sql.Named("limit", limit)).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("substring search: %w", err)
	}
	return retrievedFromRows(rows), nil
}

// SearchChunksVector ranks chunks of processed books by cosine similarity.
func (s *GormStore) SearchChunksVector(bookID string, embedding []float32, limit int) ([]domain.RetrievedChunk, error) {
	if limit <= 0 {
		return []domain.RetrievedChunk{}, nil
	}
	if err := s.validateEmbeddingDim(embedding); err != nil {
		return nil, err
	}
	vec := pgvector.NewVector(embedding)
	var rows []retrievedRow
	err := s.db.Raw(`
		SELECT c.id, c.book_id, c.chunk_index, c.content, c.chapter_name, c.page_number, c.created_at,
		       b.title AS book_title,
		       1 - (c.embedding <=> @vec) AS similarity
		FROM chunk_models c
		JOIN book_models b ON b.id = c.book_id AND b.processed
		WHERE c.embedding IS NOT NULL
		  AND (@book = '' OR c.book_id = @book)
		ORDER BY similarity DESC, c.chunk_index ASC
		LIMIT @limit
	`, sql.Named("vec", vec), sql.Named("book", bookID), sql.Named("limit", limit)).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return retrievedFromRows(rows), nil
}

// GetStudyMaterial looks up the cached artifact for an exact key.
func (s *GormStore) GetStudyMaterial(bookID string, matType domain.MaterialType, title string) (domain.StudyMaterial, bool, error) {
	var model StudyMaterialModel
	err := s.db.Where("book_id = ? AND material_type = ? AND title = ?", bookID, string(matType), title).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.StudyMaterial{}, false, nil
		}
		return domain.StudyMaterial{}, false, err
	}
	material, err := materialFromModel(model)
	if err != nil {
		return domain.StudyMaterial{}, false, err
	}
	return material, true, nil
}

// CreateStudyMaterial atomically inserts the material or, when a concurrent
// miss already filled the key, fetches and returns the existing row.
func (s *GormStore) CreateStudyMaterial(material domain.StudyMaterial) (domain.StudyMaterial, error) {
	model, err := materialToModel(material)
	if err != nil {
		return domain.StudyMaterial{}, err
	}
	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "book_id"}, {Name: "material_type"}, {Name: "title"}},
		DoNothing: true,
	}).Create(&model)
	if res.Error != nil {
		return domain.StudyMaterial{}, res.Error
	}
	if res.RowsAffected == 0 {
		existing, ok, err := s.GetStudyMaterial(material.BookID, material.MaterialType, material.Title)
		if err != nil {
			return domain.StudyMaterial{}, err
		}
		if !ok {
			return domain.StudyMaterial{}, fmt.Errorf("study material conflict row missing")
		}
		return existing, nil
	}
	return material, nil
}

// CreateConversation creates a new conversation record.
func (s *GormStore) CreateConversation(conversation domain.Conversation) error {
	model := conversationToModel(conversation)
	return s.db.Create(&model).Error
}

// GetConversation returns one conversation by ID.
func (s *GormStore) GetConversation(id string) (domain.Conversation, bool, error) {
	var model ConversationModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Conversation{}, false, nil
		}
		return domain.Conversation{}, false, err
	}
	return conversationFromModel(model), true, nil
}

// ListConversationsByUser returns latest conversations of a user.
func (s *GormStore) ListConversationsByUser(userID string, limit int) ([]domain.Conversation, error) {
	if limit <= 0 {
		limit = 100
	}
	var models []ConversationModel
	if err := s.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	items := make([]domain.Conversation, 0, len(models))
	for _, model := range models {
		items = append(items, conversationFromModel(model))
	}
	return items, nil
}

// DeleteConversation removes a conversation and its messages together.
func (s *GormStore) DeleteConversation(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&MessageModel{}, "conversation_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&ConversationModel{}, "id = ?", id).Error
	})
}

// AppendMessage records a message and refreshes the conversation timestamp.
func (s *GormStore) AppendMessage(msg domain.Message) error {
	model := messageToModel(msg)
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		return tx.Model(&ConversationModel{}).
			Where("id = ?", msg.ConversationID).
			Update("updated_at", time.Now().UTC()).Error
	})
}

// ListConversationMessages returns messages in chronological order.
func (s *GormStore) ListConversationMessages(conversationID string, limit int) ([]domain.Message, error) {
	// Secondary key keeps ordering stable when timestamps tie.
	query := s.db.Where("conversation_id = ?", conversationID).Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var models []MessageModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	msgs := make([]domain.Message, 0, len(models))
	for _, model := range models {
		msgs = append(msgs, messageFromModel(model))
	}
	return msgs, nil
}

// SaveHighlight stores or updates a highlight.
func (s *GormStore) SaveHighlight(h domain.Highlight) error {
	model := highlightToModel(h)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "note", "chapter_name", "page_number", "updated_at"}),
	}).Create(&model).Error
}

// ListHighlightsByBook returns a user's highlights for a book.
func (s *GormStore) ListHighlightsByBook(bookID, userID string) ([]domain.Highlight, error) {
	var models []HighlightModel
	if err := s.db.Where("book_id = ? AND user_id = ?", bookID, userID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	items := make([]domain.Highlight, 0, len(models))
	for _, model := range models {
		items = append(items, highlightFromModel(model))
	}
	return items, nil
}

// DeleteHighlight removes one highlight owned by the user.
func (s *GormStore) DeleteHighlight(id, userID string) error {
	return s.db.Delete(&HighlightModel{}, "id = ? AND user_id = ?", id, userID).Error
}

// UpsertReadingProgress writes the per-(book, user) progress marker.
func (s *GormStore) UpsertReadingProgress(p domain.ReadingProgress) error {
	model := progressToModel(p)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "book_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_page", "total_pages", "progress_percentage", "last_read_at", "updated_at"}),
	}).Create(&model).Error
}

// GetReadingProgress returns the progress marker for (book, user).
func (s *GormStore) GetReadingProgress(bookID, userID string) (domain.ReadingProgress, bool, error) {
	var model ReadingProgressModel
	err := s.db.Where("book_id = ? AND user_id = ?", bookID, userID).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.ReadingProgress{}, false, nil
		}
		return domain.ReadingProgress{}, false, err
	}
	return progressFromModel(model), true, nil
}

func (s *GormStore) validateEmbeddingDim(embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("embedding vector is empty")
	}
	if s.embeddingDim > 0 && len(embedding) != s.embeddingDim {
		return fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(embedding), s.embeddingDim)
	}
	return nil
}

func escapeLike(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, "%", `\%`)
	return strings.ReplaceAll(value, "_", `\_`)
}

func bookToModel(b domain.Book) BookModel {
	return BookModel{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Description: b.Description,
		FilePath:    b.FilePath,
		FileSize:    b.FileSize,
		Processed:   b.Processed,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func bookFromModel(m BookModel) domain.Book {
	return domain.Book{
		ID:          m.ID,
		Title:       m.Title,
		Author:      m.Author,
		Description: m.Description,
		FilePath:    m.FilePath,
		FileSize:    m.FileSize,
		Processed:   m.Processed,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func chunkToModel(chunk domain.Chunk) ChunkModel {
	model := ChunkModel{
		ID:         chunk.ID,
		BookID:     chunk.BookID,
		ChunkIndex: chunk.Index,
		Content:    chunk.Content,
		CreatedAt:  chunk.CreatedAt,
	}
	if name := strings.TrimSpace(chunk.ChapterName); name != "" {
		model.ChapterName = &name
	}
	if chunk.PageNumber > 0 {
		page := chunk.PageNumber
		model.PageNumber = &page
	}
	return model
}

func chunkFromModel(model ChunkModel) domain.Chunk {
	chunk := domain.Chunk{
		ID:        model.ID,
		BookID:    model.BookID,
		Index:     model.ChunkIndex,
		Content:   model.Content,
		CreatedAt: model.CreatedAt,
	}
	if model.ChapterName != nil {
		chunk.ChapterName = *model.ChapterName
	}
	if model.PageNumber != nil {
		chunk.PageNumber = *model.PageNumber
	}
	return chunk
}

func chunksFromModels(models []ChunkModel) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(models))
	for _, model := range models {
		chunks = append(chunks, chunkFromModel(model))
	}
	return chunks
}

func retrievedFromRows(rows []retrievedRow) []domain.RetrievedChunk {
	out := make([]domain.RetrievedChunk, 0, len(rows))
	for _, row := range rows {
		chunk := domain.RetrievedChunk{
			Chunk: domain.Chunk{
				ID:        row.ID,
				BookID:    row.BookID,
				Index:     row.ChunkIndex,
				Content:   row.Content,
				CreatedAt: row.CreatedAt,
			},
			BookTitle:  row.BookTitle,
			Similarity: row.Similarity,
		}
		if row.ChapterName != nil {
			chunk.ChapterName = *row.ChapterName
		}
		if row.PageNumber != nil {
			chunk.PageNumber = *row.PageNumber
		}
		out = append(out, chunk)
	}
	return out
}

func materialToModel(material domain.StudyMaterial) (StudyMaterialModel, error) {
	raw, err := json.Marshal(material.Content)
	if err != nil {
		return StudyMaterialModel{}, fmt.Errorf("encode material content: %w", err)
	}
	return StudyMaterialModel{
		ID:           material.ID,
		BookID:       material.BookID,
		MaterialType: string(material.MaterialType),
		Title:        material.Title,
		Content:      raw,
		CreatedAt:    material.CreatedAt,
		UpdatedAt:    material.UpdatedAt,
	}, nil
}

func materialFromModel(model StudyMaterialModel) (domain.StudyMaterial, error) {
	content, err := domain.ParseMaterialContent(domain.MaterialType(model.MaterialType), model.Content)
	if err != nil {
		return domain.StudyMaterial{}, fmt.Errorf("stored material %s: %w", model.ID, err)
	}
	return domain.StudyMaterial{
		ID:           model.ID,
		BookID:       model.BookID,
		MaterialType: domain.MaterialType(model.MaterialType),
		Title:        model.Title,
		Content:      content,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}, nil
}

func conversationToModel(c domain.Conversation) ConversationModel {
	return ConversationModel{
		ID:        c.ID,
		UserID:    c.UserID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func conversationFromModel(m ConversationModel) domain.Conversation {
	return domain.Conversation{
		ID:        m.ID,
		UserID:    m.UserID,
		Title:     m.Title,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func messageToModel(msg domain.Message) MessageModel {
	model := MessageModel{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Role:           msg.Role,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	}
	if link := strings.TrimSpace(msg.VideoLink); link != "" {
		model.VideoLink = &link
	}
	return model
}

func messageFromModel(m MessageModel) domain.Message {
	msg := domain.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Role:           m.Role,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
	if m.VideoLink != nil {
		msg.VideoLink = *m.VideoLink
	}
	return msg
}

func highlightToModel(h domain.Highlight) HighlightModel {
	model := HighlightModel{
		ID:        h.ID,
		BookID:    h.BookID,
		UserID:    h.UserID,
		Content:   h.Content,
		Note:      h.Note,
		CreatedAt: h.CreatedAt,
		UpdatedAt: h.UpdatedAt,
	}
	if name := strings.TrimSpace(h.ChapterName); name != "" {
		model.ChapterName = &name
	}
	if h.PageNumber > 0 {
		page := h.PageNumber
		model.PageNumber = &page
	}
	return model
}

func highlightFromModel(m HighlightModel) domain.Highlight {
	h := domain.Highlight{
		ID:        m.ID,
		BookID:    m.BookID,
		UserID:    m.UserID,
		Content:   m.Content,
		Note:      m.Note,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.ChapterName != nil {
		h.ChapterName = *m.ChapterName
	}
	if m.PageNumber != nil {
		h.PageNumber = *m.PageNumber
	}
	return h
}

func progressToModel(p domain.ReadingProgress) ReadingProgressModel {
	model := ReadingProgressModel{
		ID:                 p.ID,
		BookID:             p.BookID,
		UserID:             p.UserID,
		CurrentPage:        p.CurrentPage,
		TotalPages:         p.TotalPages,
		ProgressPercentage: p.ProgressPercentage,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if !p.LastReadAt.IsZero() {
		t := p.LastReadAt
		model.LastReadAt = &t
	}
	return model
}

func progressFromModel(m ReadingProgressModel) domain.ReadingProgress {
	p := domain.ReadingProgress{
		ID:                 m.ID,
		BookID:             m.BookID,
		UserID:             m.UserID,
		CurrentPage:        m.CurrentPage,
		TotalPages:         m.TotalPages,
		ProgressPercentage: m.ProgressPercentage,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
	if m.LastReadAt != nil {
		p.LastReadAt = *m.LastReadAt
	}
	return p
}
