package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"feedmill/internal/domain/entity"
)

func sampleDeadLetter() *entity.DeadLetter {
	return &entity.DeadLetter{
		ID:         "dl-1",
		ArticleIDs: []int64{1, 2, 3},
		Attempts:   5,
		LastError:  "worker pool full",
		CreatedAt:  time.Date(2025, 11, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestDiscordNotifier_buildEmbedPayload(t *testing.T) {
	t.Run("TC-1: should build valid embed with all fields", func(t *testing.T) {
		notifier := NewDiscordNotifier(DiscordConfig{Enabled: true, WebhookURL: "https://discord.com/api/webhooks/test", Timeout: 10 * time.Second})
		dl := sampleDeadLetter()

		payload := notifier.buildEmbedPayload(dl)

		if len(payload.Embeds) != 1 {
			t.Fatalf("expected 1 embed, got %d", len(payload.Embeds))
		}
		embed := payload.Embeds[0]
		if !strings.Contains(embed.Title, "3 articles") {
			t.Errorf("expected title to mention article count, got %q", embed.Title)
		}
		if !strings.Contains(embed.Description, "1, 2, 3") || !strings.Contains(embed.Description, dl.LastError) {
			t.Errorf("expected description to include article ids and last error, got %q", embed.Description)
		}
		if embed.Color != discordRedColor {
			t.Errorf("expected color=%d, got %d", discordRedColor, embed.Color)
		}
		if embed.Footer.Text != dl.ID {
			t.Errorf("expected footer=%q, got %q", dl.ID, embed.Footer.Text)
		}
		if embed.Timestamp != dl.CreatedAt.Format(time.RFC3339) {
			t.Errorf("expected timestamp=%q, got %q", dl.CreatedAt.Format(time.RFC3339), embed.Timestamp)
		}
	})

	t.Run("TC-2: should truncate an overlong description", func(t *testing.T) {
		notifier := NewDiscordNotifier(DiscordConfig{Enabled: true, WebhookURL: "https://discord.com/api/webhooks/test", Timeout: 10 * time.Second})
		dl := sampleDeadLetter()
		dl.LastError = strings.Repeat("a", 5000)

		payload := notifier.buildEmbedPayload(dl)
		embed := payload.Embeds[0]
		if len(embed.Description) > maxDescriptionLength {
			t.Errorf("expected description truncated to <= %d chars, got %d", maxDescriptionLength, len(embed.Description))
		}
		if !strings.HasSuffix(embed.Description, truncationSuffix) {
			t.Errorf("expected truncated description to end with %q", truncationSuffix)
		}
	})

	t.Run("TC-3: should cap the number of article ids spelled out", func(t *testing.T) {
		ids := make([]int64, 30)
		for i := range ids {
			ids[i] = int64(i + 1)
		}
		text := formatArticleIDs(ids)
		if !strings.HasSuffix(text, "and 10 more") {
			t.Errorf("expected remainder count in %q", text)
		}
	})
}

func TestDiscordNotifier_NotifyDeadLetter(t *testing.T) {
	t.Run("TC-1: succeeds on 2xx", func(t *testing.T) {
		var received DiscordWebhookPayload
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&received)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		notifier := NewDiscordNotifier(DiscordConfig{Enabled: true, WebhookURL: server.URL, Timeout: 5 * time.Second})
		dl := sampleDeadLetter()

		if err := notifier.NotifyDeadLetter(context.Background(), dl); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if len(received.Embeds) != 1 {
			t.Fatalf("expected the server to receive 1 embed, got %d", len(received.Embeds))
		}
	})

	t.Run("TC-2: retries once on 5xx then succeeds", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&attempts, 1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		notifier := NewDiscordNotifier(DiscordConfig{Enabled: true, WebhookURL: server.URL, Timeout: 5 * time.Second})

		// sendWebhookRequestWithRetry's base delay is 5s; this test pays
		// that cost once to exercise the real retry path end to end.
		err := notifier.NotifyDeadLetter(context.Background(), sampleDeadLetter())
		if err != nil {
			t.Fatalf("expected eventual success, got %v", err)
		}
		if got := atomic.LoadInt32(&attempts); got != 2 {
			t.Errorf("expected 2 attempts, got %d", got)
		}
	})

	t.Run("TC-3: does not retry on 4xx", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		notifier := NewDiscordNotifier(DiscordConfig{Enabled: true, WebhookURL: server.URL, Timeout: 5 * time.Second})

		err := notifier.NotifyDeadLetter(context.Background(), sampleDeadLetter())
		if err == nil {
			t.Fatal("expected an error for a 4xx response")
		}
		if got := atomic.LoadInt32(&attempts); got != 1 {
			t.Errorf("expected exactly 1 attempt for a non-retryable error, got %d", got)
		}
	})
}
