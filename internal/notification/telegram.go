package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"net/http"
	"strings"
	"time"

	"alert-systemv1/internal/markethours"
	"alert-systemv1/internal/model"
)

const telegramAPI = "https://api.telegram.org"

// TelegramChannel sends alerts via the Telegram Bot API in HTML parse
// mode.
type TelegramChannel struct {
	botToken string
	chatID   string
	api      string // overridden in tests
	client   *http.Client
}

// NewTelegramChannel creates a Telegram channel.
// botToken: Bot API token from @BotFather
// chatID: Target chat/group/channel ID
func NewTelegramChannel(botToken, chatID string) *TelegramChannel {
	return &TelegramChannel{
		botToken: botToken,
		chatID:   chatID,
		api:      telegramAPI,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (t *TelegramChannel) Name() string { return "telegram" }

func (t *TelegramChannel) Send(ctx context.Context, a *model.Alert) error {
	body, _ := json.Marshal(map[string]interface{}{
		"chat_id":                  t.chatID,
		"text":                     FormatAlertHTML(a),
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	})

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.api, t.botToken)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: unexpected status %d", resp.StatusCode)
	}

	log.Printf("[telegram] sent %s %s alert", a.Grade, a.Symbol)
	return nil
}

// FormatAlertHTML renders the mobile alert layout: action header,
// confidence, the rationale tree ordered strongest first, and the
// action footer. Times print in IST.
func FormatAlertHTML(a *model.Alert) string {
	emoji, actionText := "⚪", "WAIT"
	switch a.Action {
	case model.ActionBuyCE:
		emoji, actionText = "🟢", "BUY CALL"
	case model.ActionBuyPE:
		emoji, actionText = "🔴", "BUY PUT"
	case model.ActionSellCE, model.ActionSellPE:
		emoji, actionText = "🟡", "SELL PREMIUM"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b> - %s\n\n", emoji, html.EscapeString(a.Symbol), a.TS.In(markethours.IST).Format("15:04"))
	fmt.Fprintf(&b, "<b>📊 SIGNAL: %s</b>\n", actionText)
	b.WriteString("━━━━━━━━━━━━━━━━\n\n")
	fmt.Fprintf(&b, "<b>🎯 Confidence: %.0f%% (%s)</b>\n", a.Confidence, a.Grade)
	fmt.Fprintf(&b, "<b>💰 Price:</b> %.2f\n\n", float64(a.Close)/100.0)

	if len(a.Rationale) > 0 {
		b.WriteString("<b>📈 Why:</b>\n")
		for i, e := range a.Rationale {
			branch := "├"
			if i == len(a.Rationale)-1 {
				branch = "└"
			}
			if e.Points > 0 {
				fmt.Fprintf(&b, "%s %s (+%.0f)\n", branch, html.EscapeString(e.Detail), e.Points)
			} else {
				fmt.Fprintf(&b, "%s %s\n", branch, html.EscapeString(e.Detail))
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "<b>⚡ Action:</b> %s", a.Action)
	return b.String()
}
