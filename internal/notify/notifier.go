package notify

import (
	"context"
	"time"

	"libcirc/internal/model"
)

// Kind identifies the notification being sent.
type Kind string

const (
	KindBorrowConfirmation      Kind = "borrow_confirmation"
	KindAdminBorrowNotification Kind = "admin_borrow_notification"
	KindReturnConfirmation      Kind = "return_confirmation"
	KindReservationAvailable    Kind = "reservation_available"
	KindDueDateReminder         Kind = "due_date_reminder"
	KindExtensionConfirmation   Kind = "extension_confirmation"
)

// Message carries the variable parts of a notification. Fields irrelevant to
// a given kind stay zero.
type Message struct {
	BookTitle     string
	BorrowerName  string
	LoanDate      time.Time
	DueDate       time.Time
	DaysRemaining int
}

// Notifier delivers a notification to a user. Implementations must never
// return an error: delivery failure is reported as false so callers can
// decide whether to retry later (e.g. reminder sweeps), but a failed
// notification never aborts the business transaction that triggered it.
type Notifier interface {
	Notify(ctx context.Context, user *model.User, kind Kind, msg Message) bool
}

// Noop discards all notifications and reports success, for environments
// where outbound notifications are disabled.
type Noop struct{}

// Notify reports the notification as delivered without sending anything.
func (Noop) Notify(ctx context.Context, user *model.User, kind Kind, msg Message) bool {
	return true
}

// Multi fans a notification out to several sinks. A notification counts as
// delivered when at least one sink delivered it.
type Multi []Notifier

// Notify sends through every sink.
func (m Multi) Notify(ctx context.Context, user *model.User, kind Kind, msg Message) bool {
	delivered := false
	for _, n := range m {
		if n.Notify(ctx, user, kind, msg) {
			delivered = true
		}
	}
	return delivered
}
