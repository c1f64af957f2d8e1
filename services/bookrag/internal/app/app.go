package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mentorhub/pkg/ai"
	"mentorhub/pkg/domain"
)

var ErrEmptyQuery = errors.New("query is required")

// NoMatchAnswer is returned verbatim when no retrieval tier finds content.
const NoMatchAnswer = "I couldn't find specific information about that in the available books. Try asking about the topics the library covers."

// Config holds runtime configuration for the retrieval-answer core.
type Config struct {
	Retriever  *Retriever
	Generator  ai.TextGenerator
	MentorName string
}

// App answers questions grounded in retrieved book excerpts.
type App struct {
	retriever  *Retriever
	generator  ai.TextGenerator
	mentorName string
}

func New(cfg Config) (*App, error) {
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("retriever required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator required")
	}
	mentorName := strings.TrimSpace(cfg.MentorName)
	if mentorName == "" {
		mentorName = "the mentor"
	}
	return &App{
		retriever:  cfg.Retriever,
		generator:  cfg.Generator,
		mentorName: mentorName,
	}, nil
}

// Ask retrieves grounding chunks for the query and synthesizes an answer.
// An empty retrieval result is not an error: it yields the fixed no-match
// answer with no generation call.
func (a *App) Ask(ctx context.Context, query, bookID string) (domain.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.Answer{}, ErrEmptyQuery
	}
	chunks, err := a.retriever.Retrieve(ctx, query, bookID)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("retrieve: %w", err)
	}
	if len(chunks) == 0 {
		return domain.Answer{Answer: NoMatchAnswer, Sources: []domain.Source{}}, nil
	}

	answer, err := a.generator.GenerateText(ctx, a.systemPrompt(), a.userPrompt(query, chunks))
	if err != nil {
		return domain.Answer{}, err
	}
	sources := make([]domain.Source, 0, len(chunks))
	for _, chunk := range chunks {
		sources = append(sources, domain.Source{
			BookTitle:   chunk.BookTitle,
			ChapterName: chunk.ChapterName,
			PageNumber:  chunk.PageNumber,
			Similarity:  chunk.Similarity,
		})
	}
	return domain.Answer{Answer: answer, Sources: sources}, nil
}

func (a *App) systemPrompt() string {
	return fmt.Sprintf(`You are an AI assistant helping users learn from %s's books and educational content.

CRITICAL INSTRUCTIONS:
1. Answer ONLY based on the provided book excerpts from %s's works
2. Keep your response to EXACTLY 7-10 lines maximum - be extremely concise
3. Extract the most important practical insights from the excerpts
4. ALWAYS end with: **Source:** [Book Title]

Format:
- 1-2 sentences introducing the concept
- 2-4 sentences with the main practical advice
- 1-2 sentences with actionable steps or tips
- Source citation

Style: Direct, practical, and conversational. Focus only on what matters most.`, a.mentorName, a.mentorName)
}

func (a *App) userPrompt(query string, chunks []domain.RetrievedChunk) string {
	return fmt.Sprintf("Based on the following excerpts from %s's books, answer this question: %q\n\nContext:\n%s",
		a.mentorName, query, buildContext(chunks))
}

// buildContext renders the grounding block:
// [Source N: <book title>[, <chapter>][, Page <n>]] followed by the content.
func buildContext(chunks []domain.RetrievedChunk) string {
	blocks := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		var header strings.Builder
		fmt.Fprintf(&header, "[Source %d: %s", i+1, chunk.BookTitle)
		if chunk.ChapterName != "" {
			fmt.Fprintf(&header, ", %s", chunk.ChapterName)
		}
		if chunk.PageNumber > 0 {
			fmt.Fprintf(&header, ", Page %d", chunk.PageNumber)
		}
		header.WriteString("]")
		blocks = append(blocks, header.String()+"\n"+chunk.Content)
	}
	return strings.Join(blocks, "\n\n")
}
