package app

import (
	"context"
	"log/slog"

	"mentorhub/pkg/ai"
	"mentorhub/pkg/domain"
	"mentorhub/pkg/store"
)

const (
	defaultTextLimit      = 15
	defaultSubstringLimit = 10
	defaultMinScore       = 0.01

	// Substring matches carry no ranking signal from the store; they get a
	// fixed mid-scale similarity so clients can render them uniformly.
	substringSimilarity = 0.5
)

// Strategy is one retrieval tier. Tiers are tried in order; the first one
// returning results wins.
type Strategy interface {
	Name() string
	Retrieve(ctx context.Context, query, bookID string) ([]domain.RetrievedChunk, error)
}

// Retriever runs the ranked strategy chain: semantic (optional) → lexical
// full-text → substring scan. Optional tiers fail soft; required tiers
// propagate their errors.
type Retriever struct {
	strategies []Strategy
}

func NewRetriever(strategies ...Strategy) *Retriever {
	return &Retriever{strategies: strategies}
}

func (r *Retriever) Retrieve(ctx context.Context, query, bookID string) ([]domain.RetrievedChunk, error) {
	for _, strategy := range r.strategies {
		chunks, err := strategy.Retrieve(ctx, query, bookID)
		if err != nil {
			if optional, ok := strategy.(interface{ Optional() bool }); ok && optional.Optional() {
				slog.Warn("retrieval tier failed, falling through",
					"tier", strategy.Name(), "err", err)
				continue
			}
			return nil, err
		}
		if len(chunks) > 0 {
			slog.Debug("retrieval tier matched", "tier", strategy.Name(), "chunks", len(chunks))
			return chunks, nil
		}
	}
	return nil, nil
}

// VectorStrategy embeds the query and ranks by cosine similarity. It is an
// optional tier: failures fall through to the lexical tiers.
type VectorStrategy struct {
	Searcher store.VectorSearcher
	Embedder ai.Embedder
	Limit    int
}

func (s *VectorStrategy) Name() string   { return "vector" }
func (s *VectorStrategy) Optional() bool { return true }

func (s *VectorStrategy) Retrieve(ctx context.Context, query, bookID string) ([]domain.RetrievedChunk, error) {
	limit := s.Limit
	if limit <= 0 {
		limit = defaultTextLimit
	}
	embedding, err := s.Embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.Searcher.SearchChunksVector(bookID, embedding, limit)
}

// TextSearchStrategy is the primary lexical tier: full-text relevance
// ranking with a minimum-score cutoff.
type TextSearchStrategy struct {
	Store    store.Store
	Limit    int
	MinScore float64
}

func (s *TextSearchStrategy) Name() string { return "text" }

func (s *TextSearchStrategy) Retrieve(ctx context.Context, query, bookID string) ([]domain.RetrievedChunk, error) {
	limit := s.Limit
	if limit <= 0 {
		limit = defaultTextLimit
	}
	minScore := s.MinScore
	if minScore <= 0 {
		minScore = defaultMinScore
	}
	return s.Store.SearchChunksText(query, bookID, limit, minScore)
}

// SubstringStrategy is the recall safety net: case-insensitive containment
// with a fixed similarity assigned to every hit.
type SubstringStrategy struct {
	Store store.Store
	Limit int
}

func (s *SubstringStrategy) Name() string { return "substring" }

func (s *SubstringStrategy) Retrieve(ctx context.Context, query, bookID string) ([]domain.RetrievedChunk, error) {
	limit := s.Limit
	if limit <= 0 {
		limit = defaultSubstringLimit
	}
	chunks, err := s.Store.SearchChunksSubstring(query, bookID, limit)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		chunks[i].Similarity = substringSimilarity
	}
	return chunks, nil
}
