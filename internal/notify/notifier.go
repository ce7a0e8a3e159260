// Package notify delivers alerts about newly found high-score deals.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/neildahan/realdeal/internal/models"
)

// DealAlert describes one deal worth telling somebody about.
type DealAlert struct {
	Deal     *models.Listing
	Location string
	IsNew    bool
}

// Notifier delivers deal alerts.
type Notifier interface {
	NotifyDeals(alerts []DealAlert) error
}

// LogNotifier writes alerts to the application log. Used when no webhook is
// configured.
type LogNotifier struct{}

func (LogNotifier) NotifyDeals(alerts []DealAlert) error {
	for _, a := range alerts {
		log.Infof("Notify: deal alert [score %d] %s at $%.0f (%s)",
			a.Deal.DealScore, a.Deal.Address(), a.Deal.Price, a.Location)
	}
	return nil
}

// WebhookNotifier posts Discord-compatible messages to a webhook URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

type webhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []webhookEmbed `json:"embeds,omitempty"`
}

// NotifyDeals posts one message per batch, with an embed per deal. Discord
// caps embeds at 10 per message, so large batches are split.
func (n *WebhookNotifier) NotifyDeals(alerts []DealAlert) error {
	const embedsPerMessage = 10

	for start := 0; start < len(alerts); start += embedsPerMessage {
		end := start + embedsPerMessage
		if end > len(alerts) {
			end = len(alerts)
		}

		payload := webhookPayload{
			Content: fmt.Sprintf("Found %d promising deal(s)", len(alerts)),
		}
		if start > 0 {
			payload.Content = ""
		}
		for _, a := range alerts[start:end] {
			payload.Embeds = append(payload.Embeds, embedFor(a))
		}

		if err := n.post(payload); err != nil {
			return err
		}
	}
	return nil
}

func embedFor(a DealAlert) webhookEmbed {
	d := a.Deal
	desc := fmt.Sprintf("Price: $%.0f", d.Price)
	if d.EstimatedValue != nil {
		desc += fmt.Sprintf(" | Est. value: $%.0f", *d.EstimatedValue)
	}
	if discount := d.DiscountPercent(); discount > 0 {
		desc += fmt.Sprintf(" | %.0f%% under value", discount)
	}
	if d.IsDelinquent {
		desc += " | delinquent"
	}
	if d.IsPreForeclosure {
		desc += " | pre-foreclosure"
	}
	if d.HasLien {
		desc += " | lien"
	}

	// Green for strong deals, orange otherwise
	color := 0xE67E22
	if d.DealScore >= 80 {
		color = 0x2ECC71
	}

	return webhookEmbed{
		Title:       fmt.Sprintf("[%d] %s", d.DealScore, d.Address()),
		Description: desc,
		Color:       color,
	}
}

func (n *WebhookNotifier) post(payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := n.client.Post(n.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
