package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func sampleNote() Notification {
	return Notification{
		At:             time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
		CurrentUSD:     decimal.RequireFromString("30.125"),
		TargetUSD:      decimal.RequireFromString("31.5"),
		Recommendation: "BUY",
		PriceSource:    "FUTURES",
		GoldSilver:     decimal.RequireFromString("83.33"),
		Insight:        "SILVER_FAVORED",
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	var received sendMessageRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleNote()); err != nil {
		t.Fatalf("Telegram Notify 应成功: %v", err)
	}

	if path != "/bottoken/sendMessage" {
		t.Fatalf("unexpected path %s", path)
	}
	if received.ChatID != "chat" || !received.DisableWebPagePreview {
		t.Fatalf("chat_id 不正确: %#v", received)
	}
	if !strings.Contains(received.Text, "Recommendation: BUY") {
		t.Fatalf("text missing recommendation: %q", received.Text)
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleNote()); err == nil {
		t.Fatal("ok=false 应报错")
	}
}

func TestTelegramNotifierHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleNote()); err == nil {
		t.Fatal("HTTP 403 应报错")
	}
}

func TestTelegramNotifierDescriptionInError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error_code": 400, "description": "Bad Request: chat not found"})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	err := notifier.Notify(context.Background(), sampleNote())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("expected APIError 400, got %v", err)
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("description missing: %v", err)
	}
}

func TestTelegramNotifierRetriesOnceWhenRateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "parameters": map[string]int{"retry_after": 0}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), sampleNote()); err != nil {
		t.Fatalf("限流后重试应成功: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestRenderMessage(t *testing.T) {
	text := RenderMessage(sampleNote())
	for _, want := range []string{
		"[Silver Forecast]",
		"Time: 2026-02-03T04:05:06Z UTC",
		"Spot: $30.13/oz (FUTURES)",
		"AI Target: $31.50/oz",
		"Gold/Silver ratio: 83.3 [SILVER_FAVORED]",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("message missing %q:\n%s", want, text)
		}
	}

	note := sampleNote()
	note.GoldSilver = decimal.Zero
	note.PriceSource = ""
	if strings.Contains(RenderMessage(note), "ratio") {
		t.Fatal("zero ratio should be omitted")
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
