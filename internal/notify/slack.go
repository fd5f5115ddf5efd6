package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"libcirc/internal/model"
	"libcirc/internal/repository"
)

const slackAPIURL = "https://slack.com/api/"

// SlackNotifier delivers notifications as Slack DMs. Slack member IDs are
// resolved from the user's email via users.lookupByEmail and cached back on
// the user row so the lookup happens at most once per user.
type SlackNotifier struct {
	token    string
	users    repository.UserRepository
	client   *http.Client
	botName  string
	botEmoji string
}

// NewSlackNotifier creates a Slack DM notifier. Returns nil when token is
// empty; a nil *SlackNotifier reports every delivery as failed.
func NewSlackNotifier(token string, users repository.UserRepository) *SlackNotifier {
	if token == "" {
		return nil
	}
	return &SlackNotifier{
		token:    token,
		users:    users,
		client:   &http.Client{Timeout: 10 * time.Second},
		botName:  "Library System",
		botEmoji: ":books:",
	}
}

// Notify sends a DM to the user's Slack account.
func (s *SlackNotifier) Notify(ctx context.Context, user *model.User, kind Kind, msg Message) bool {
	if s == nil {
		return false
	}
	if user == nil || user.Email == "" {
		return false
	}

	slackID := user.SlackUserID
	if slackID == "" {
		id, err := s.lookupUserID(ctx, user.Email)
		if err != nil {
			slog.Warn("slack user lookup failed", "email", user.Email, "error", err)
			return false
		}
		slackID = id
		user.SlackUserID = id
		if err := s.users.Update(ctx, user); err != nil {
			slog.Warn("failed to cache slack user id", "user_id", user.ID, "error", err)
		}
	}

	if err := s.postMessage(ctx, slackID, renderText(kind, msg)); err != nil {
		slog.Warn("slack dm delivery failed", "user_id", user.ID, "kind", string(kind), "error", err)
		return false
	}
	return true
}

func (s *SlackNotifier) lookupUserID(ctx context.Context, email string) (string, error) {
	endpoint := slackAPIURL + "users.lookupByEmail?" + url.Values{"email": {email}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if !body.OK {
		return "", fmt.Errorf("slack users.lookupByEmail: %s", body.Error)
	}
	return body.User.ID, nil
}

func (s *SlackNotifier) postMessage(ctx context.Context, channel, text string) error {
	payload, err := json.Marshal(map[string]string{
		"channel":    channel,
		"text":       text,
		"username":   s.botName,
		"icon_emoji": s.botEmoji,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, slackAPIURL+"chat.postMessage", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var body struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}
	if !body.OK {
		return fmt.Errorf("slack chat.postMessage: %s", body.Error)
	}
	return nil
}

func renderText(kind Kind, msg Message) string {
	switch kind {
	case KindBorrowConfirmation:
		return fmt.Sprintf("You borrowed \"%s\". Due date: %s.",
			msg.BookTitle, msg.DueDate.Format("2006-01-02"))
	case KindAdminBorrowNotification:
		return fmt.Sprintf("\"%s\" was borrowed by %s on %s.",
			msg.BookTitle, msg.BorrowerName, msg.LoanDate.Format("2006-01-02"))
	case KindReturnConfirmation:
		return fmt.Sprintf("You returned \"%s\". Thank you!", msg.BookTitle)
	case KindReservationAvailable:
		return fmt.Sprintf("Your reserved book \"%s\" is now available. Please borrow it within the hold period.", msg.BookTitle)
	case KindDueDateReminder:
		return fmt.Sprintf("Your loan of \"%s\" is due on %s (%d day(s) left). Please return it on time.",
			msg.BookTitle, msg.DueDate.Format("2006-01-02"), msg.DaysRemaining)
	case KindExtensionConfirmation:
		return fmt.Sprintf("Your loan of \"%s\" was extended. New due date: %s.",
			msg.BookTitle, msg.DueDate.Format("2006-01-02"))
	default:
		return fmt.Sprintf("Library notification about \"%s\".", msg.BookTitle)
	}
}
