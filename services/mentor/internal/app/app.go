package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mentorhub/internal/util"
	"mentorhub/pkg/ai"
	"mentorhub/pkg/cache"
	"mentorhub/pkg/domain"
	"mentorhub/pkg/store"
)

const (
	defaultMentorName   = "the mentor"
	defaultFormat       = "summary"
	maxTitleRunes       = 80
	maxWebhookBodyBytes = 4 << 20
	conversationLimit   = 50
	messageLimit        = 200
)

// Config holds runtime configuration for the mentor chat core.
type Config struct {
	Store    store.Store
	Streamer ai.ChatStreamer

	// Research webhook proxy. Cache and HTTPClient are optional.
	WebhookURL string
	Cache      *cache.ResearchCache
	HTTPClient *http.Client

	MentorName string
	// ChannelURL is surfaced in the fallback line when the mentor's
	// corpus has no answer.
	ChannelURL string
}

// App streams mentor answers, persists conversations, and proxies
// research queries to an external automation webhook.
type App struct {
	store      store.Store
	streamer   ai.ChatStreamer
	webhookURL string
	cache      *cache.ResearchCache
	httpClient *http.Client
	mentorName string
	channelURL string
}

func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.Streamer == nil {
		return nil, fmt.Errorf("streamer required")
	}
	a := &App{
		store:      cfg.Store,
		streamer:   cfg.Streamer,
		webhookURL: cfg.WebhookURL,
		cache:      cfg.Cache,
		httpClient: cfg.HTTPClient,
		mentorName: cfg.MentorName,
		channelURL: cfg.ChannelURL,
	}
	if a.mentorName == "" {
		a.mentorName = defaultMentorName
	}
	if a.httpClient == nil {
		a.httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return a, nil
}

// Chat streams the assistant answer through onDelta while accumulating it,
// then persists both the user turn and the assistant turn. The conversation
// is created on demand, titled from the first question. Nothing is persisted
// when the stream fails.
func (a *App) Chat(ctx context.Context, userID, conversationID string, history []ai.ChatMessage, onDelta func(delta string) error) (domain.Message, error) {
	if len(history) == 0 {
		return domain.Message{}, ErrEmptyMessages
	}
	userTurn := strings.TrimSpace(history[len(history)-1].Content)
	if userTurn == "" {
		return domain.Message{}, ErrEmptyMessages
	}

	conv, err := a.resolveConversation(userID, conversationID, userTurn)
	if err != nil {
		return domain.Message{}, err
	}

	var answer strings.Builder
	err = a.streamer.StreamChat(ctx, a.systemPrompt(), history, func(delta string) error {
		answer.WriteString(delta)
		return onDelta(delta)
	})
	if err != nil {
		return domain.Message{}, err
	}

	// The assistant turn is stamped strictly after the user turn so that
	// ordering by creation time reproduces the exchange order.
	now := time.Now().UTC()
	userMsg := domain.Message{
		ID: util.NewID(), ConversationID: conv.ID, Role: "user",
		Content: userTurn, CreatedAt: now,
	}
	assistantMsg := domain.Message{
		ID: util.NewID(), ConversationID: conv.ID, Role: "assistant",
		Content: answer.String(), VideoLink: extractVideoLink(answer.String()),
		CreatedAt: now.Add(time.Millisecond),
	}
	if err := a.store.AppendMessage(userMsg); err != nil {
		return domain.Message{}, err
	}
	if err := a.store.AppendMessage(assistantMsg); err != nil {
		return domain.Message{}, err
	}
	return assistantMsg, nil
}

func (a *App) resolveConversation(userID, conversationID, firstQuestion string) (domain.Conversation, error) {
	if conversationID != "" {
		conv, ok, err := a.store.GetConversation(conversationID)
		if err != nil {
			return domain.Conversation{}, err
		}
		if !ok || conv.UserID != userID {
			return domain.Conversation{}, ErrConversationNotFound
		}
		return conv, nil
	}
	now := time.Now().UTC()
	conv := domain.Conversation{
		ID:        util.NewID(),
		UserID:    userID,
		Title:     conversationTitle(firstQuestion),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.CreateConversation(conv); err != nil {
		return domain.Conversation{}, err
	}
	return conv, nil
}

func (a *App) ListConversations(userID string) ([]domain.Conversation, error) {
	return a.store.ListConversationsByUser(userID, conversationLimit)
}

func (a *App) ListMessages(userID, conversationID string) ([]domain.Message, error) {
	conv, ok, err := a.store.GetConversation(conversationID)
	if err != nil {
		return nil, err
	}
	if !ok || conv.UserID != userID {
		return nil, ErrConversationNotFound
	}
	return a.store.ListConversationMessages(conversationID, messageLimit)
}

func (a *App) DeleteConversation(userID, conversationID string) error {
	conv, ok, err := a.store.GetConversation(conversationID)
	if err != nil {
		return err
	}
	if !ok || conv.UserID != userID {
		return ErrConversationNotFound
	}
	return a.store.DeleteConversation(conversationID)
}

// Research forwards the query to the automation webhook and returns its raw
// JSON response. Responses are cached per (query, format) so repeated
// identical queries skip the upstream call.
func (a *App) Research(ctx context.Context, query, format string) ([]byte, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if format == "" {
		format = defaultFormat
	}
	if a.cache != nil {
		if body, ok, err := a.cache.Get(ctx, query, format); err != nil {
			slog.Warn("research cache read failed", "err", err)
		} else if ok {
			return body, nil
		}
	}

	payload, err := json.Marshal(map[string]string{"query": query, "format": format})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("research webhook: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWebhookBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("research webhook: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("research webhook failed: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, query, format, body); err != nil {
			slog.Warn("research cache write failed", "err", err)
		}
	}
	return body, nil
}

func conversationTitle(firstQuestion string) string {
	title := strings.Join(strings.Fields(firstQuestion), " ")
	runes := []rune(title)
	if len(runes) > maxTitleRunes {
		title = string(runes[:maxTitleRunes]) + "..."
	}
	return title
}
