package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"libcirc/internal/model"
)

// WebhookNotifier posts notification payloads to a mail relay webhook that
// renders and sends the actual email.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier. Returns nil when url is
// empty; a nil *WebhookNotifier reports every delivery as failed.
func NewWebhookNotifier(url string) *WebhookNotifier {
	if url == "" {
		return nil
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	MailType       string `json:"mail_type"`
	RecipientEmail string `json:"recipient_email"`
	RecipientName  string `json:"recipient_name"`
	BookTitle      string `json:"book_title,omitempty"`
	BorrowerName   string `json:"borrower_name,omitempty"`
	LoanDate       string `json:"loan_date,omitempty"`
	DueDate        string `json:"due_date,omitempty"`
}

// Notify posts the notification as JSON to the configured webhook.
func (w *WebhookNotifier) Notify(ctx context.Context, user *model.User, kind Kind, msg Message) bool {
	if w == nil {
		return false
	}
	if user == nil || user.Email == "" {
		return false
	}

	payload := webhookPayload{
		MailType:       string(kind),
		RecipientEmail: user.Email,
		RecipientName:  user.Name,
		BookTitle:      msg.BookTitle,
		BorrowerName:   msg.BorrowerName,
	}
	if !msg.LoanDate.IsZero() {
		payload.LoanDate = msg.LoanDate.Format("2006-01-02")
	}
	if !msg.DueDate.IsZero() {
		payload.DueDate = msg.DueDate.Format("2006-01-02")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		slog.Warn("mail webhook delivery failed", "kind", string(kind), "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("mail webhook rejected notification", "kind", string(kind), "status", resp.StatusCode)
		return false
	}
	return true
}
