package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"mentorhub/pkg/ai"
	"mentorhub/pkg/domain"
	"mentorhub/pkg/store"
)

const defaultEmbedConcurrency = 4

// Indexer persists a book's chunks and, when an embedder is configured,
// computes dense embeddings for each. The book is marked processed only
// after every chunk is fully indexed; any failure leaves it unsearchable.
type Indexer struct {
	store       store.Store
	embedder    ai.Embedder
	concurrency int
}

func NewIndexer(st store.Store, embedder ai.Embedder, concurrency int) *Indexer {
	if concurrency <= 0 {
		concurrency = defaultEmbedConcurrency
	}
	return &Indexer{store: st, embedder: embedder, concurrency: concurrency}
}

func (ix *Indexer) Index(ctx context.Context, bookID string, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return ErrEmptyText
	}
	// Pull the book out of retrieval before touching its chunks so a
	// failed re-index never leaves stale or embedding-less chunks
	// searchable.
	if err := ix.store.SetProcessed(bookID, false); err != nil {
		return fmt.Errorf("unmark processed: %w", err)
	}
	if err := ix.store.ReplaceChunks(bookID, chunks); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}
	if ix.embedder != nil {
		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(ix.concurrency)
		for _, chunk := range chunks {
			chunk := chunk
			group.Go(func() error {
				embedding, err := ix.embedder.EmbedText(groupCtx, chunk.Content)
				if err != nil {
					return fmt.Errorf("embed chunk %d: %w", chunk.Index, err)
				}
				if err := ix.store.SetChunkEmbedding(chunk.ID, embedding); err != nil {
					return fmt.Errorf("store embedding for chunk %d: %w", chunk.Index, err)
				}
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return err
		}
	}
	if err := ix.store.SetProcessed(bookID, true); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}
