package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mentorhub/internal/util"
	"mentorhub/pkg/ai"
	"mentorhub/pkg/domain"
	"mentorhub/pkg/store"
)

var (
	ErrContentNotFound = errors.New("book or content not found")
	ErrBadGeneration   = errors.New("generated content failed validation")
)

const (
	maxWholeBookChunks = 50
	maxContentRunes    = 50000
	generationTemp     = 0.7
)

// Config holds runtime configuration for the study-material core.
type Config struct {
	Store     store.Store
	Generator ai.TextGenerator
}

// App generates and caches study materials per (book, type, scope) key.
type App struct {
	store     store.Store
	generator ai.TextGenerator
}

func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator required")
	}
	return &App{store: cfg.Store, generator: cfg.Generator}, nil
}

// Generate returns the cached material for the key, or generates, validates,
// and persists a new one. Concurrent misses on the same key converge on a
// single stored row.
func (a *App) Generate(ctx context.Context, bookID string, matType domain.MaterialType, chapterName string) (domain.StudyMaterial, error) {
	chapterName = strings.TrimSpace(chapterName)
	title := domain.MaterialTitle(matType, chapterName)

	if cached, ok, err := a.store.GetStudyMaterial(bookID, matType, title); err != nil {
		return domain.StudyMaterial{}, err
	} else if ok {
		return cached, nil
	}

	book, ok, err := a.store.GetBook(bookID)
	if err != nil {
		return domain.StudyMaterial{}, err
	}
	if !ok {
		return domain.StudyMaterial{}, ErrContentNotFound
	}
	var chunks []domain.Chunk
	if chapterName != "" {
		chunks, err = a.store.ListChunksByChapter(bookID, chapterName)
	} else {
		chunks, err = a.store.ListChunksByBook(bookID, maxWholeBookChunks)
	}
	if err != nil {
		return domain.StudyMaterial{}, err
	}
	if len(chunks) == 0 {
		return domain.StudyMaterial{}, ErrContentNotFound
	}

	contents := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		contents = append(contents, chunk.Content)
	}
	bookContent := capRunes(strings.Join(contents, "\n\n"), maxContentRunes)

	systemPrompt, userPrompt := buildPrompts(matType, book, chapterName, bookContent)
	raw, err := a.generator.GenerateText(ctx, systemPrompt, userPrompt, ai.WithTemperature(generationTemp))
	if err != nil {
		return domain.StudyMaterial{}, err
	}
	content, err := domain.ParseMaterialContent(matType, []byte(stripCodeFence(raw)))
	if err != nil {
		return domain.StudyMaterial{}, fmt.Errorf("%w: %v", ErrBadGeneration, err)
	}

	now := time.Now().UTC()
	material := domain.StudyMaterial{
		ID:           util.NewID(),
		BookID:       bookID,
		MaterialType: matType,
		Title:        title,
		Content:      content,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return a.store.CreateStudyMaterial(material)
}

func capRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
