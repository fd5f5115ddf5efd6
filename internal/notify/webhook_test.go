package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"libcirc/internal/model"
)

func TestWebhookNotifier_Notify(t *testing.T) {
	var received webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL)
	user := &model.User{ID: 1, Name: "Alice", Email: "alice@example.com"}
	msg := Message{
		BookTitle:    "SICP",
		BorrowerName: "Alice",
		LoanDate:     time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		DueDate:      time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
	}

	delivered := notifier.Notify(context.Background(), user, KindBorrowConfirmation, msg)

	assert.True(t, delivered)
	assert.Equal(t, "borrow_confirmation", received.MailType)
	assert.Equal(t, "alice@example.com", received.RecipientEmail)
	assert.Equal(t, "Alice", received.RecipientName)
	assert.Equal(t, "SICP", received.BookTitle)
	assert.Equal(t, "2026-08-31", received.LoanDate)
	assert.Equal(t, "2026-09-14", received.DueDate)
}

func TestWebhookNotifier_RejectedDelivery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL)
	delivered := notifier.Notify(context.Background(), &model.User{Email: "a@example.com"}, KindReturnConfirmation, Message{})

	assert.False(t, delivered)
}

func TestWebhookNotifier_Disabled(t *testing.T) {
	notifier := NewWebhookNotifier("")
	assert.Nil(t, notifier)
	// A nil notifier reports failure instead of panicking.
	assert.False(t, notifier.Notify(context.Background(), &model.User{Email: "a@example.com"}, KindReturnConfirmation, Message{}))
}

func TestWebhookNotifier_MissingEmail(t *testing.T) {
	notifier := NewWebhookNotifier("http://localhost:1")
	assert.False(t, notifier.Notify(context.Background(), &model.User{}, KindReturnConfirmation, Message{}))
}
