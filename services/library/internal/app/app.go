package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"mentorhub/internal/util"
	"mentorhub/pkg/ai"
	"mentorhub/pkg/domain"
	"mentorhub/pkg/storage"
	"mentorhub/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL    string
	Store          store.Store
	Objects        storage.ObjectStore
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	Embedder       ai.Embedder
	ChunkRunes     int
	EmbeddingDim   int
}

// App wires book storage, parsing, chunking, and indexing together.
type App struct {
	store         store.Store
	objects       storage.ObjectStore
	chunker       *Chunker
	indexer       *Indexer
	presignExpiry time.Duration
}

// New constructs the application. Store and Objects may be injected for
// tests; otherwise they are built from the Postgres and MinIO settings.
func New(cfg Config) (*App, error) {
	objects := cfg.Objects
	if objects == nil {
		var err error
		objects, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, err
		}
	}
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL, store.WithEmbeddingDim(cfg.EmbeddingDim))
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	return &App{
		store:         dataStore,
		objects:       objects,
		chunker:       NewChunker(cfg.ChunkRunes),
		indexer:       NewIndexer(dataStore, cfg.Embedder, 0),
		presignExpiry: 15 * time.Minute,
	}, nil
}

// UploadBook stores the original file, inserts the book unprocessed, then
// parses, chunks and indexes it. A failure at any processing stage leaves
// the book stored but unsearchable.
func (a *App) UploadBook(ctx context.Context, title, author, description, filename string, r io.Reader) (domain.Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = titleFromName(filename)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.Book{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return domain.Book{}, ErrEmptyText
	}

	id := util.NewID()
	storageKey := buildStorageKey(id, filename)
	now := time.Now().UTC()
	book := domain.Book{
		ID:          id,
		Title:       title,
		Author:      strings.TrimSpace(author),
		Description: strings.TrimSpace(description),
		FilePath:    storageKey,
		FileSize:    int64(len(data)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := a.objects.Put(ctx, storageKey, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return domain.Book{}, fmt.Errorf("save file: %w", err)
	}
	if err := a.store.SaveBook(book); err != nil {
		_ = a.objects.Delete(ctx, storageKey)
		return domain.Book{}, fmt.Errorf("save book: %w", err)
	}

	if err := a.processData(ctx, id, filename, data); err != nil {
		return book, err
	}
	book.Processed = true
	return book, nil
}

// ProcessText (re)chunks and (re)indexes a book from raw text.
func (a *App) ProcessText(ctx context.Context, bookID, text string) error {
	if _, ok, err := a.store.GetBook(bookID); err != nil {
		return err
	} else if !ok {
		return ErrBookNotFound
	}
	chunks, err := a.chunker.ChunkText(bookID, text)
	if err != nil {
		return err
	}
	return a.indexer.Index(ctx, bookID, chunks)
}

// ReprocessFile re-parses the stored original file and rebuilds the index.
func (a *App) ReprocessFile(ctx context.Context, bookID string) error {
	book, ok, err := a.store.GetBook(bookID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBookNotFound
	}
	if strings.TrimSpace(book.FilePath) == "" {
		return fmt.Errorf("book has no stored file")
	}
	rc, err := a.objects.Get(ctx, book.FilePath)
	if err != nil {
		return fmt.Errorf("fetch stored file: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read stored file: %w", err)
	}
	return a.processData(ctx, bookID, book.FilePath, data)
}

func (a *App) processData(ctx context.Context, bookID, filename string, data []byte) error {
	pages, err := extractPages(filename, data)
	if err != nil {
		return err
	}
	chunks, err := a.chunker.chunkPages(bookID, pages)
	if err != nil {
		return err
	}
	return a.indexer.Index(ctx, bookID, chunks)
}

// ListBooks returns the catalog.
func (a *App) ListBooks() ([]domain.Book, error) {
	return a.store.ListBooks()
}

// GetBook retrieves a book by ID.
func (a *App) GetBook(id string) (domain.Book, bool, error) {
	return a.store.GetBook(id)
}

// DeleteBook removes the book row (chunks, highlights, progress, and study
// materials cascade) and its stored file.
func (a *App) DeleteBook(ctx context.Context, id string) error {
	book, ok, err := a.store.GetBook(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrBookNotFound
	}
	if err := a.store.DeleteBook(id); err != nil {
		return err
	}
	if strings.TrimSpace(book.FilePath) != "" {
		if err := a.objects.Delete(ctx, book.FilePath); err != nil {
			return fmt.Errorf("delete stored file: %w", err)
		}
	}
	return nil
}

// GetDownloadURL returns a pre-signed URL for the original file.
func (a *App) GetDownloadURL(ctx context.Context, id string) (string, error) {
	book, ok, err := a.store.GetBook(id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrBookNotFound
	}
	if strings.TrimSpace(book.FilePath) == "" {
		return "", fmt.Errorf("book has no stored file")
	}
	return a.objects.PresignGet(ctx, book.FilePath, a.presignExpiry)
}

// HighlightInput is the caller-supplied part of a highlight.
type HighlightInput struct {
	Content     string
	Note        string
	ChapterName string
	PageNumber  int
}

// CreateHighlight records a user highlight on a book.
func (a *App) CreateHighlight(bookID, userID string, in HighlightInput) (domain.Highlight, error) {
	if strings.TrimSpace(in.Content) == "" {
		return domain.Highlight{}, fmt.Errorf("highlight content required")
	}
	if _, ok, err := a.store.GetBook(bookID); err != nil {
		return domain.Highlight{}, err
	} else if !ok {
		return domain.Highlight{}, ErrBookNotFound
	}
	now := time.Now().UTC()
	h := domain.Highlight{
		ID:          util.NewID(),
		BookID:      bookID,
		UserID:      userID,
		Content:     in.Content,
		Note:        in.Note,
		ChapterName: in.ChapterName,
		PageNumber:  in.PageNumber,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.store.SaveHighlight(h); err != nil {
		return domain.Highlight{}, err
	}
	return h, nil
}

// ListHighlights returns a user's highlights for a book.
func (a *App) ListHighlights(bookID, userID string) ([]domain.Highlight, error) {
	return a.store.ListHighlightsByBook(bookID, userID)
}

// DeleteHighlight removes a highlight owned by the user.
func (a *App) DeleteHighlight(id, userID string) error {
	return a.store.DeleteHighlight(id, userID)
}

// ProgressInput is the caller-supplied reading position.
type ProgressInput struct {
	CurrentPage int
	TotalPages  int
}

// SaveProgress upserts the per-(book, user) reading position.
func (a *App) SaveProgress(bookID, userID string, in ProgressInput) (domain.ReadingProgress, error) {
	if in.CurrentPage < 0 || in.TotalPages < 0 {
		return domain.ReadingProgress{}, fmt.Errorf("page numbers must be non-negative")
	}
	if _, ok, err := a.store.GetBook(bookID); err != nil {
		return domain.ReadingProgress{}, err
	} else if !ok {
		return domain.ReadingProgress{}, ErrBookNotFound
	}
	now := time.Now().UTC()
	p := domain.ReadingProgress{
		ID:          util.NewID(),
		BookID:      bookID,
		UserID:      userID,
		CurrentPage: in.CurrentPage,
		TotalPages:  in.TotalPages,
		LastReadAt:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.TotalPages > 0 {
		p.ProgressPercentage = float64(in.CurrentPage) / float64(in.TotalPages) * 100
	}
	if err := a.store.UpsertReadingProgress(p); err != nil {
		return domain.ReadingProgress{}, err
	}
	saved, ok, err := a.store.GetReadingProgress(bookID, userID)
	if err != nil {
		return domain.ReadingProgress{}, err
	}
	if !ok {
		return p, nil
	}
	return saved, nil
}

// GetProgress returns the reading position for (book, user).
func (a *App) GetProgress(bookID, userID string) (domain.ReadingProgress, bool, error) {
	return a.store.GetReadingProgress(bookID, userID)
}

func buildStorageKey(id, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return "books/" + id + ext
}

func titleFromName(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.ReplaceAll(base, "-", " ")
	return strings.TrimSpace(base)
}
