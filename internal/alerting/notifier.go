package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"metals-dashboard/internal/logging"
)

// Notification 封装一次预测推送的上下文。
type Notification struct {
	At             time.Time
	CurrentUSD     decimal.Decimal
	TargetUSD      decimal.Decimal
	Recommendation string
	PriceSource    string
	GoldSilver     decimal.Decimal
	Insight        string
	AdditionalMsg  string
}

// Notifier 定义推送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 推送器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logging.Component(logger, "alert_telegram"),
	}
}

// APIError is a Bot API failure, either a non-2xx status or ok=false.
type APIError struct {
	Status      int
	Description string
	// RetryAfter is set when Telegram rate limited the request.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("telegram 请求失败 (%d): %s", e.Status, e.Description)
	}
	return fmt.Sprintf("telegram 响应码异常: %d", e.Status)
}

// maxRetryAfter bounds how long Notify honours a 429 before giving up.
const maxRetryAfter = 30 * time.Second

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type botReply struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Notify 调用 sendMessage 推送文本, 被限流时按 retry_after 重试一次。
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                n.chatID,
		Text:                  RenderMessage(note),
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	err = n.send(ctx, body)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests && apiErr.RetryAfter <= maxRetryAfter {
		n.logger.Warn().Dur("retry_after", apiErr.RetryAfter).Msg("telegram rate limited, retrying")
		timer := time.NewTimer(apiErr.RetryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		err = n.send(ctx, body)
	}
	if err != nil {
		return err
	}

	n.logger.Info().Time("at", note.At).
		Str("recommendation", note.Recommendation).
		Str("target_usd", note.TargetUSD.StringFixed(2)).
		Msg("forecast sent (Telegram)")
	return nil
}

func (n *TelegramNotifier) send(ctx context.Context, body []byte) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	var reply botReply
	decodeErr := json.NewDecoder(resp.Body).Decode(&reply)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Status:      resp.StatusCode,
			Description: reply.Description,
			RetryAfter:  time.Duration(reply.Parameters.RetryAfter) * time.Second,
		}
	}
	// 2xx 但无法解析时视为成功。
	if decodeErr == nil && !reply.OK {
		return &APIError{Status: resp.StatusCode, Description: reply.Description}
	}
	return nil
}

// RenderMessage formats a notification as plain text.
func RenderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Silver Forecast]\n")
	builder.WriteString(fmt.Sprintf("Time: %s UTC\n", note.At.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Recommendation: %s\n", note.Recommendation))
	builder.WriteString(fmt.Sprintf("Spot: $%s/oz", note.CurrentUSD.StringFixed(2)))
	if note.PriceSource != "" {
		builder.WriteString(fmt.Sprintf(" (%s)", note.PriceSource))
	}
	builder.WriteString("\n")
	builder.WriteString(fmt.Sprintf("AI Target: $%s/oz\n", note.TargetUSD.StringFixed(2)))
	if !note.GoldSilver.IsZero() {
		builder.WriteString(fmt.Sprintf("Gold/Silver ratio: %s", note.GoldSilver.StringFixed(1)))
		if note.Insight != "" {
			builder.WriteString(fmt.Sprintf(" [%s]", note.Insight))
		}
		builder.WriteString("\n")
	}
	if note.AdditionalMsg != "" {
		builder.WriteString(note.AdditionalMsg)
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
