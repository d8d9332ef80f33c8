package alerting

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

// Notification describes one guaranteed-profit opportunity worth telling a
// human about.
type Notification struct {
	GeneratedAt   time.Time
	Symbol        string
	Name          string
	BuyExchange   string
	SellExchange  string
	QuoteAsset    string
	NetProfitPct  decimal.Decimal
	GuaranteedPct decimal.Decimal
	ThresholdPct  decimal.Decimal
	Coverage      int
	Channels      []string
}

// Notifier delivers opportunity notifications.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes messages through the Telegram Bot API.
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
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls the sendMessage API with a rendered text message.
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
		return fmt.Errorf("telegram responded with status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().
		Str("symbol", note.Symbol).
		Str("buy", note.BuyExchange).
		Str("sell", note.SellExchange).
		Str("channels", strings.Join(note.Channels, ",")).
		Msg("opportunity alert sent")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Arbitrage Opportunity]\n")
	builder.WriteString(fmt.Sprintf("Asset: %s (%s)\n", note.Symbol, note.Name))
	builder.WriteString(fmt.Sprintf("Buy on %s, sell on %s (%s)\n", note.BuyExchange, note.SellExchange, note.QuoteAsset))
	builder.WriteString(fmt.Sprintf("Net profit: %s%%\n", note.NetProfitPct.StringFixed(4)))
	builder.WriteString(fmt.Sprintf("Guaranteed: %s%% (threshold %s%%)\n", note.GuaranteedPct.StringFixed(4), note.ThresholdPct.StringFixed(4)))
	builder.WriteString(fmt.Sprintf("Coverage: %d exchanges\n", note.Coverage))
	builder.WriteString(fmt.Sprintf("Generated: %s UTC\n", note.GeneratedAt.UTC().Format(time.RFC3339)))
	if len(note.Channels) > 0 {
		builder.WriteString(fmt.Sprintf("Channels: %s\n", strings.Join(note.Channels, ",")))
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
