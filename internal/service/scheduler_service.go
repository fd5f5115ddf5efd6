package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"libcirc/internal/clock"
	"libcirc/internal/notify"
	"libcirc/internal/repository"
)

// SchedulerService holds the housekeeping sweeps that run on a timer rather
// than in response to a request.
type SchedulerService interface {
	// RunDueDateReminderSweep reminds borrowers whose loans come due within
	// the reminder window. Returns the number of reminders delivered.
	RunDueDateReminderSweep(ctx context.Context) (int, error)
	// RunReservationExpirySweep expires lapsed holds and promotes the next
	// reserver. Returns the number of reservations expired.
	RunReservationExpirySweep(ctx context.Context) (int, error)
}

type schedulerService struct {
	store        repository.Store
	reservations ReservationService
	notifier     notify.Notifier
	clock        clock.Clock
	dueSoon      time.Duration
}

// NewSchedulerService creates the sweep runner. dueSoonDays is the look-ahead
// window for due date reminders.
func NewSchedulerService(
	store repository.Store,
	reservations ReservationService,
	notifier notify.Notifier,
	clk clock.Clock,
	dueSoonDays int,
) SchedulerService {
	return &schedulerService{
		store:        store,
		reservations: reservations,
		notifier:     notifier,
		clock:        clk,
		dueSoon:      time.Duration(dueSoonDays) * 24 * time.Hour,
	}
}

func (s *schedulerService) RunDueDateReminderSweep(ctx context.Context) (int, error) {
	now := s.clock.Now()
	loans, err := s.store.Loans().ListDueSoon(ctx, now, s.dueSoon)
	if err != nil {
		return 0, fmt.Errorf("list loans due soon: %w", err)
	}

	delivered := 0
	for i := range loans {
		loan := &loans[i]
		if loan.BorrowerID == nil {
			continue
		}
		borrower, err := s.store.Users().FindByID(ctx, *loan.BorrowerID)
		if err != nil {
			slog.Error("reminder sweep: borrower lookup failed", "loan_id", loan.ID, "error", err)
			continue
		}

		daysLeft := int(loan.DueDate.Sub(now).Hours() / 24)
		ok := s.notifier.Notify(ctx, borrower, notify.KindDueDateReminder, notify.Message{
			BookTitle:     loan.BookTitle,
			DueDate:       loan.DueDate,
			DaysRemaining: daysLeft,
		})
		if !ok {
			// Leave reminder_sent unset so the next sweep retries.
			slog.Warn("reminder sweep: delivery failed", "loan_id", loan.ID, "user_id", borrower.ID)
			continue
		}

		loan.ReminderSent = true
		if err := s.store.Loans().Update(ctx, loan); err != nil {
			slog.Error("reminder sweep: failed to mark reminder sent", "loan_id", loan.ID, "error", err)
			continue
		}
		delivered++
	}

	slog.Info("due date reminder sweep finished", "candidates", len(loans), "delivered", delivered)
	return delivered, nil
}

func (s *schedulerService) RunReservationExpirySweep(ctx context.Context) (int, error) {
	expired, err := s.reservations.ExpireStale(ctx)
	if err != nil {
		return 0, err
	}
	slog.Info("reservation expiry sweep finished", "expired", expired)
	return expired, nil
}
