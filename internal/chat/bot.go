package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"metals-dashboard/internal/config"
	"metals-dashboard/internal/logging"
)

// ErrNotConfigured is returned when no API credential is available.
var ErrNotConfigured = errors.New("chat: api key not configured")

const (
	notConfiguredText = "⚠️ API key not configured. Please add CHATBOT_API_KEY to .env file."
	apologyFormat     = "Sorry, I encountered an error: %s. Make sure your API key is valid."
)

const systemPrompt = `You are an intelligent investment advisor chatbot specializing in precious metals (gold and silver).
You help users understand:
- Silver (SLV ETF) and gold (GLD ETF) investments
- Current market trends and price movements
- Investment strategies for precious metals
- Gold-to-silver ratios and their significance
- Risk management and diversification tips

Provide concise, accurate, and helpful responses. If asked about topics outside precious metals, politely redirect to metals-related investment advice.
Your responses should be practical and suitable for retail investors.`

var suggestions = []string{
	"What is silver and why invest in it?",
	"How does the gold-to-silver ratio work?",
	"What are SLV and GLD ETFs?",
	"Best strategy for precious metals investing?",
	"How to diversify with precious metals?",
	"What's the current market outlook for silver?",
}

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// ServiceError wraps a failure of the completion service.
type ServiceError struct {
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("chat: completion failed: %v", e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one conversation turn. On failure Err is set,
// Reply is empty and History equals the history passed in.
type Result struct {
	Reply   string
	History []Message
	Err     error
}

// Failed reports whether the turn produced no reply.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Text is the string to show the user for this turn.
func (r Result) Text() string {
	if r.Err == nil {
		return r.Reply
	}
	if errors.Is(r.Err, ErrNotConfigured) {
		return notConfiguredText
	}
	var svcErr *ServiceError
	if errors.As(r.Err, &svcErr) {
		return fmt.Sprintf(apologyFormat, svcErr.Err)
	}
	return fmt.Sprintf(apologyFormat, r.Err)
}

// Bot answers questions about precious-metal investing.
type Bot struct {
	client *openai.Client
	cfg    config.ChatConfig
	logger zerolog.Logger
}

// NewBot builds a bot from configuration. Without an API key the bot is
// still usable but every reply fails with ErrNotConfigured.
func NewBot(cfg config.ChatConfig, logger zerolog.Logger) *Bot {
	b := &Bot{
		cfg:    cfg,
		logger: logging.Component(logger, "chat"),
	}
	if cfg.HistoryLimit <= 0 {
		b.cfg.HistoryLimit = 20
	}
	if cfg.Model == "" {
		b.cfg.Model = openai.GPT3Dot5Turbo
	}

	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return b
	}
	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	b.client = openai.NewClientWithConfig(clientCfg)
	return b
}

// Configured reports whether an API key was supplied.
func (b *Bot) Configured() bool {
	return b.client != nil
}

// Suggestions returns the suggested opening questions.
func Suggestions() []string {
	out := make([]string, len(suggestions))
	copy(out, suggestions)
	return out
}

// Reply sends history plus question to the completion service in a single
// attempt and returns the updated history, trimmed to the configured limit.
func (b *Bot) Reply(ctx context.Context, history []Message, question string) Result {
	if b.client == nil {
		return Result{History: history, Err: ErrNotConfigured}
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: RoleUser, Content: question})

	if b.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.RequestTimeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       b.cfg.Model,
		Messages:    messages,
		MaxTokens:   b.cfg.MaxTokens,
		Temperature: b.cfg.Temperature,
	})
	if err == nil && len(resp.Choices) == 0 {
		err = errors.New("no choices in completion")
	}
	if err != nil {
		b.logger.Warn().Err(err).Dur("took", time.Since(started)).Msg("completion failed")
		return Result{History: history, Err: &ServiceError{Err: err}}
	}

	reply := resp.Choices[0].Message.Content
	updated := make([]Message, 0, len(history)+2)
	updated = append(updated, history...)
	updated = append(updated,
		Message{Role: RoleUser, Content: question},
		Message{Role: RoleAssistant, Content: reply},
	)
	updated = Trim(updated, b.cfg.HistoryLimit)

	b.logger.Debug().
		Int("history", len(updated)).
		Int("tokens", resp.Usage.TotalTokens).
		Dur("took", time.Since(started)).
		Msg("completion received")

	return Result{Reply: reply, History: updated}
}

// Trim keeps the most recent limit messages.
func Trim(history []Message, limit int) []Message {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	out := make([]Message, limit)
	copy(out, history[len(history)-limit:])
	return out
}
