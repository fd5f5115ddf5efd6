package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"libcirc/internal/clock"
	liberr "libcirc/internal/errors"
	"libcirc/internal/model"
	"libcirc/internal/notify"
	"libcirc/internal/repository"
)

// ReservationService manages the FIFO reservation queue per book. Queue order
// is (reservation_date, id): ids are monotonic, so they break ties between
// reservations created in the same instant.
type ReservationService interface {
	Reserve(ctx context.Context, userID, bookID uint) (*model.Reservation, error)
	Cancel(ctx context.Context, reservationID, actorID uint, actorIsAdmin bool) (*model.Reservation, error)
	// QueuePosition returns the 1-based position among pending reservations,
	// or nil when the reservation is not pending.
	QueuePosition(ctx context.Context, reservationID uint) (*int, error)
	ListBookQueue(ctx context.Context, bookID uint) ([]model.Reservation, error)
	ListUserReservations(ctx context.Context, userID uint) ([]model.Reservation, error)
	// ExpireStale expires notified reservations whose hold window has lapsed
	// and hands each book to the next reserver. Returns the number expired.
	ExpireStale(ctx context.Context) (int, error)
}

type reservationService struct {
	store       repository.Store
	eligibility EligibilityService
	notifier    notify.Notifier
	clock       clock.Clock
	gracePeriod time.Duration
}

// NewReservationService creates the reservation queue service. graceDays is
// how long a notified reserver has to pick the book up.
func NewReservationService(
	store repository.Store,
	eligibility EligibilityService,
	notifier notify.Notifier,
	clk clock.Clock,
	graceDays int,
) ReservationService {
	return &reservationService{
		store:       store,
		eligibility: eligibility,
		notifier:    notifier,
		clock:       clk,
		gracePeriod: time.Duration(graceDays) * 24 * time.Hour,
	}
}

func (s *reservationService) Reserve(ctx context.Context, userID, bookID uint) (*model.Reservation, error) {
	var reservation *model.Reservation

	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		// Lock the book so concurrent reservers and extenders serialize.
		book, err := tx.Books().FindByIDForUpdate(ctx, bookID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return liberr.ErrBookNotFound
			}
			return fmt.Errorf("lock book: %w", err)
		}

		user, err := tx.Users().FindByID(ctx, userID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return liberr.ErrUserNotFound
			}
			return fmt.Errorf("find user: %w", err)
		}

		if _, err := tx.Reservations().FindActiveByBookAndUser(ctx, bookID, userID); err == nil {
			return liberr.ErrDuplicateReservation
		} else if err != gorm.ErrRecordNotFound {
			return fmt.Errorf("find existing reservation: %w", err)
		}

		if err := s.eligibility.CheckQuotaIn(ctx, tx, user); err != nil {
			return err
		}

		reservation = &model.Reservation{
			BookID:          book.ID,
			UserID:          user.ID,
			ReservationDate: s.clock.Now(),
			Status:          model.ReservationStatusPending,
		}
		if err := tx.Reservations().Create(ctx, reservation); err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

func (s *reservationService) Cancel(ctx context.Context, reservationID, actorID uint, actorIsAdmin bool) (*model.Reservation, error) {
	var (
		reservation *model.Reservation
		promoted    *model.Reservation
		bookTitle   string
	)

	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		r, err := tx.Reservations().FindByIDForUpdate(ctx, reservationID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return liberr.ErrReservationNotFound
			}
			return fmt.Errorf("lock reservation: %w", err)
		}
		if r.UserID != actorID && !actorIsAdmin {
			return liberr.ErrForbidden
		}
		if r.Status.IsTerminal() {
			return liberr.ErrAlreadyFinalized
		}

		wasNotified := r.Status == model.ReservationStatusNotified
		r.Status = model.ReservationStatusCancelled
		if err := tx.Reservations().Update(ctx, r); err != nil {
			return fmt.Errorf("cancel reservation: %w", err)
		}

		// A notified reservation was holding the book; pass the hold on or
		// release the book.
		if wasNotified {
			book, err := tx.Books().FindByIDForUpdate(ctx, r.BookID)
			if err != nil {
				return fmt.Errorf("lock book: %w", err)
			}
			bookTitle = book.Title
			promoted, err = promoteNextReservation(ctx, tx, book, s.clock.Now())
			if err != nil {
				return err
			}
			if err := tx.Books().Update(ctx, book); err != nil {
				return fmt.Errorf("update book: %w", err)
			}
		}

		reservation = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if promoted != nil {
		next := promoted
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if reservee, err := s.store.Users().FindByID(ctx, next.UserID); err == nil {
				s.notifier.Notify(ctx, reservee, notify.KindReservationAvailable, notify.Message{
					BookTitle: bookTitle,
				})
			}
		}()
	}

	return reservation, nil
}

func (s *reservationService) QueuePosition(ctx context.Context, reservationID uint) (*int, error) {
	reservation, err := s.store.Reservations().FindByID(ctx, reservationID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, liberr.ErrReservationNotFound
		}
		return nil, fmt.Errorf("find reservation: %w", err)
	}
	if reservation.Status != model.ReservationStatusPending {
		return nil, nil
	}

	earlier, err := s.store.Reservations().CountPendingBefore(ctx, reservation)
	if err != nil {
		return nil, fmt.Errorf("count earlier reservations: %w", err)
	}
	position := int(earlier) + 1
	return &position, nil
}

func (s *reservationService) ListBookQueue(ctx context.Context, bookID uint) ([]model.Reservation, error) {
	if _, err := s.store.Books().FindByID(ctx, bookID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, liberr.ErrBookNotFound
		}
		return nil, fmt.Errorf("find book: %w", err)
	}
	return s.store.Reservations().ListPendingByBook(ctx, bookID)
}

func (s *reservationService) ListUserReservations(ctx context.Context, userID uint) ([]model.Reservation, error) {
	return s.store.Reservations().ListByUser(ctx, userID)
}

func (s *reservationService) ExpireStale(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.gracePeriod)
	stale, err := s.store.Reservations().ListStaleNotified(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stale reservations: %w", err)
	}

	expired := 0
	for i := range stale {
		didExpire, err := s.expireOne(ctx, stale[i].ID, cutoff)
		if err != nil {
			// One bad row must not stop the sweep.
			slog.Error("failed to expire reservation", "reservation_id", stale[i].ID, "error", err)
			continue
		}
		if didExpire {
			expired++
		}
	}
	return expired, nil
}

// expireOne expires a single notified reservation in its own transaction,
// re-checking state under lock since the sweep list may be stale by now.
func (s *reservationService) expireOne(ctx context.Context, reservationID uint, cutoff time.Time) (bool, error) {
	var (
		promoted  *model.Reservation
		bookTitle string
		didExpire bool
	)

	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		r, err := tx.Reservations().FindByIDForUpdate(ctx, reservationID)
		if err != nil {
			return fmt.Errorf("lock reservation: %w", err)
		}
		if r.Status != model.ReservationStatusNotified ||
			r.NotificationSentAt == nil || r.NotificationSentAt.After(cutoff) {
			return nil
		}
		didExpire = true

		r.Status = model.ReservationStatusExpired
		if err := tx.Reservations().Update(ctx, r); err != nil {
			return fmt.Errorf("expire reservation: %w", err)
		}

		book, err := tx.Books().FindByIDForUpdate(ctx, r.BookID)
		if err != nil {
			return fmt.Errorf("lock book: %w", err)
		}
		bookTitle = book.Title
		promoted, err = promoteNextReservation(ctx, tx, book, s.clock.Now())
		if err != nil {
			return err
		}
		return tx.Books().Update(ctx, book)
	})
	if err != nil {
		return false, err
	}

	if promoted != nil {
		if reservee, err := s.store.Users().FindByID(ctx, promoted.UserID); err == nil {
			s.notifier.Notify(ctx, reservee, notify.KindReservationAvailable, notify.Message{
				BookTitle: bookTitle,
			})
		}
	}
	return didExpire, nil
}

// promoteNextReservation moves the head of the book's pending queue to
// notified and marks the book reserved for them, or marks the book available
// when the queue is empty. The caller persists the book and sends the
// availability notification after commit. The book row must already be locked.
func promoteNextReservation(ctx context.Context, tx repository.Store, book *model.Book, now time.Time) (*model.Reservation, error) {
	next, err := tx.Reservations().FirstPendingForUpdate(ctx, book.ID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			book.Status = model.BookStatusAvailable
			return nil, nil
		}
		return nil, fmt.Errorf("find next reservation: %w", err)
	}

	next.Status = model.ReservationStatusNotified
	next.NotificationSent = true
	next.NotificationSentAt = &now
	if err := tx.Reservations().Update(ctx, next); err != nil {
		return nil, fmt.Errorf("promote reservation: %w", err)
	}

	book.Status = model.BookStatusReserved
	return next, nil
}
