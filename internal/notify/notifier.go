// Package notify delivers compliance sweep results to monitoring staff.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Breach is one commodity found above its suggested retail price.
type Breach struct {
	Commodity    string
	Store        string
	Municipality string
	Price        decimal.Decimal
	SRP          decimal.Decimal
	Variance     decimal.Decimal
	Observed     time.Time
}

// Notification summarises one compliance sweep.
type Notification struct {
	SweepAt      time.Time
	Breaches     []Breach
	Compliant    int
	NonCompliant int
}

// Notifier delivers sweep notifications.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes sweep summaries through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
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
		logger:   logger.With().Str("component", "notify_telegram").Logger(),
	}
}

// Notify sends the rendered summary via the sendMessage API.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected telegram status: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram replied ok=false")
		}
	}

	n.logger.Info().Time("sweep_at", note.SweepAt).
		Int("breaches", len(note.Breaches)).
		Msg("sweep notification sent (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[SRP Compliance Sweep]\n")
	builder.WriteString(fmt.Sprintf("Sweep: %s UTC\n", note.SweepAt.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Compliant: %d, Non-compliant: %d\n", note.Compliant, note.NonCompliant))
	for _, b := range note.Breaches {
		builder.WriteString(fmt.Sprintf("- %s at %s (%s): price %s vs SRP %s (+%s)\n",
			b.Commodity, b.Store, b.Municipality,
			b.Price.StringFixed(2), b.SRP.StringFixed(2), b.Variance.StringFixed(2)))
	}
	if len(note.Breaches) == 0 {
		builder.WriteString("No breaches found.\n")
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
