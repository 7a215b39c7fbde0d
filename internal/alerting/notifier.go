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

// Notification 封装一次高风险评估的告警上下文。
type Notification struct {
	LoanID          string
	AssessedAt      time.Time
	Score           decimal.Decimal
	RiskTier        string
	IsViable        bool
	Recommendation  string
	RequestedAmount decimal.Decimal
	TotalInterest   decimal.Decimal
	RealValue       decimal.Decimal
	AvgInflation    decimal.Decimal
	InflationSource string
	Channels        []string
	AdditionalMsg   string
}

// Notifier 定义告警输送接口。
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

// NewTelegramNotifier 构造 Telegram 告警器。
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

// Notify 调用 sendMessage API 推送文本。
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
		return fmt.Errorf("telegram unexpected status: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Str("loan_id", note.LoanID).
		Str("risk_tier", note.RiskTier).
		Str("channels", strings.Join(note.Channels, ",")).
		Msg("alert sent (telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Loan Viability Alert]\n")
	builder.WriteString(fmt.Sprintf("Loan: %s\n", note.LoanID))
	builder.WriteString(fmt.Sprintf("Assessed: %s UTC\n", note.AssessedAt.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Score: %s (%s risk, viable=%t)\n", note.Score.StringFixed(1), note.RiskTier, note.IsViable))
	builder.WriteString(fmt.Sprintf("Requested: %s\n", note.RequestedAmount.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Interest: %s\n", note.TotalInterest.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Real value: %s\n", note.RealValue.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Avg inflation: %s%%/month (%s)\n", note.AvgInflation.StringFixed(4), note.InflationSource))
	builder.WriteString(fmt.Sprintf("Recommendation: %s\n", note.Recommendation))
	if len(note.Channels) > 0 {
		builder.WriteString(fmt.Sprintf("Channels: %s\n", strings.Join(note.Channels, ",")))
	}
	if note.AdditionalMsg != "" {
		builder.WriteString(note.AdditionalMsg)
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
