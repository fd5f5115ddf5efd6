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

// LoanService drives the borrow / return / extend state machine. Every
// transition runs inside one transaction with the book row locked, and
// eligibility is re-validated under that lock. Notifications are dispatched
// after commit and never roll anything back.
type LoanService interface {
	Borrow(ctx context.Context, userID, bookID uint, dueDate *time.Time) (*model.LoanHistory, error)
	Return(ctx context.Context, loanID uint) (*model.LoanHistory, error)
	Extend(ctx context.Context, loanID uint, weeks int) (*model.LoanHistory, error)
	GetLoan(ctx context.Context, loanID uint) (*model.LoanHistory, error)
	ListUserLoans(ctx context.Context, userID uint, openOnly bool) ([]model.LoanHistory, error)
	ListOverdueLoans(ctx context.Context) ([]model.LoanHistory, error)
}

type loanService struct {
	store       repository.Store
	eligibility EligibilityService
	notifier    notify.Notifier
	clock       clock.Clock
	loanPeriod  time.Duration
}

// NewLoanService creates a new loan lifecycle service. loanDays is the due
// date applied when the borrower does not pick one.
func NewLoanService(
	store repository.Store,
	eligibility EligibilityService,
	notifier notify.Notifier,
	clk clock.Clock,
	loanDays int,
) LoanService {
	return &loanService{
		store:       store,
		eligibility: eligibility,
		notifier:    notifier,
		clock:       clk,
		loanPeriod:  time.Duration(loanDays) * 24 * time.Hour,
	}
}

func (s *loanService) Borrow(ctx context.Context, userID, bookID uint, dueDate *time.Time) (*model.LoanHistory, error) {
	var (
		loan     *model.LoanHistory
		borrower *model.User
	)

	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		// Lock the book first so two concurrent borrows serialize here.
		book, err := tx.Books().FindByIDForUpdate(ctx, bookID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return liberr.ErrBookNotFound
			}
			return fmt.Errorf("lock book: %w", err)
		}

		if err := s.eligibility.CanBorrowIn(ctx, tx, userID, &bookID); err != nil {
			return err
		}

		user, err := tx.Users().FindByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("find borrower: %w", err)
		}
		borrower = user

		now := s.clock.Now()
		due := now.Add(s.loanPeriod)
		if dueDate != nil {
			due = dueDate.UTC()
		}

		book.BorrowerID = &userID
		book.Status = model.BookStatusOnLoan
		if err := tx.Books().Update(ctx, book); err != nil {
			return fmt.Errorf("update book: %w", err)
		}

		loan = &model.LoanHistory{
			BookID:     book.ID,
			BookTitle:  book.Title,
			BorrowerID: &userID,
			LoanDate:   now,
			DueDate:    due,
		}
		if err := tx.Loans().Create(ctx, loan); err != nil {
			return fmt.Errorf("create loan: %w", err)
		}

		return s.fulfillOwnReservation(ctx, tx, book.ID, userID)
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(func(ctx context.Context) {
		msg := notify.Message{
			BookTitle:    loan.BookTitle,
			BorrowerName: borrower.Name,
			LoanDate:     loan.LoanDate,
			DueDate:      loan.DueDate,
		}
		s.notifier.Notify(ctx, borrower, notify.KindBorrowConfirmation, msg)
		s.notifyAdmins(ctx, msg)
	})

	return loan, nil
}

// fulfillOwnReservation closes out the borrower's reservation when they are
// the one the book was held for (notified) or they sit at the head of the
// pending queue.
func (s *loanService) fulfillOwnReservation(ctx context.Context, tx repository.Store, bookID, userID uint) error {
	reservation, err := tx.Reservations().FindActiveByBookAndUser(ctx, bookID, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return fmt.Errorf("find own reservation: %w", err)
	}

	if reservation.Status == model.ReservationStatusPending {
		earlier, err := tx.Reservations().CountPendingBefore(ctx, reservation)
		if err != nil {
			return fmt.Errorf("count earlier reservations: %w", err)
		}
		if earlier > 0 {
			return nil
		}
	}

	reservation.Status = model.ReservationStatusFulfilled
	if err := tx.Reservations().Update(ctx, reservation); err != nil {
		return fmt.Errorf("fulfill reservation: %w", err)
	}
	return nil
}

func (s *loanService) Return(ctx context.Context, loanID uint) (*model.LoanHistory, error) {
	var (
		loan     *model.LoanHistory
		promoted *model.Reservation
	)

	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		l, err := tx.Loans().FindByIDForUpdate(ctx, loanID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return liberr.ErrLoanNotFound
			}
			return fmt.Errorf("lock loan: %w", err)
		}
		if l.ReturnDate != nil {
			return liberr.ErrAlreadyReturned
		}

		book, err := tx.Books().FindByIDForUpdate(ctx, l.BookID)
		if err != nil {
			return fmt.Errorf("lock book: %w", err)
		}

		now := s.clock.Now()
		l.ReturnDate = &now
		if err := tx.Loans().Update(ctx, l); err != nil {
			return fmt.Errorf("close loan: %w", err)
		}

		book.BorrowerID = nil
		promoted, err = promoteNextReservation(ctx, tx, book, now)
		if err != nil {
			return err
		}
		if err := tx.Books().Update(ctx, book); err != nil {
			return fmt.Errorf("update book: %w", err)
		}

		loan = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(func(ctx context.Context) {
		if loan.BorrowerID != nil {
			if returner, err := s.store.Users().FindByID(ctx, *loan.BorrowerID); err == nil {
				s.notifier.Notify(ctx, returner, notify.KindReturnConfirmation, notify.Message{
					BookTitle: loan.BookTitle,
				})
			}
		}
		if promoted != nil {
			if reservee, err := s.store.Users().FindByID(ctx, promoted.UserID); err == nil {
				s.notifier.Notify(ctx, reservee, notify.KindReservationAvailable, notify.Message{
					BookTitle: loan.BookTitle,
				})
			}
		}
	})

	return loan, nil
}

func (s *loanService) Extend(ctx context.Context, loanID uint, weeks int) (*model.LoanHistory, error) {
	if weeks < 1 || weeks > 2 {
		return nil, liberr.ErrInvalidExtensionWeeks
	}

	var (
		loan     *model.LoanHistory
		borrower *model.User
	)

	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		l, err := tx.Loans().FindByIDForUpdate(ctx, loanID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return liberr.ErrLoanNotFound
			}
			return fmt.Errorf("lock loan: %w", err)
		}

		// Lock the book too: reservation creation locks it as well, so an
		// in-flight reservation cannot slip past the pending-queue check.
		if _, err := tx.Books().FindByIDForUpdate(ctx, l.BookID); err != nil {
			return fmt.Errorf("lock book: %w", err)
		}

		if err := s.eligibility.CanExtendIn(ctx, tx, loanID); err != nil {
			return err
		}

		now := s.clock.Now()
		l.DueDate = l.DueDate.Add(time.Duration(weeks) * 7 * 24 * time.Hour)
		l.ExtensionCount++
		l.ExtendedDate = &now
		if err := tx.Loans().Update(ctx, l); err != nil {
			return fmt.Errorf("extend loan: %w", err)
		}

		if l.BorrowerID != nil {
			if u, err := tx.Users().FindByID(ctx, *l.BorrowerID); err == nil {
				borrower = u
			}
		}
		loan = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	if borrower != nil {
		s.dispatch(func(ctx context.Context) {
			s.notifier.Notify(ctx, borrower, notify.KindExtensionConfirmation, notify.Message{
				BookTitle: loan.BookTitle,
				DueDate:   loan.DueDate,
			})
		})
	}

	return loan, nil
}

func (s *loanService) GetLoan(ctx context.Context, loanID uint) (*model.LoanHistory, error) {
	loan, err := s.store.Loans().FindByID(ctx, loanID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, liberr.ErrLoanNotFound
		}
		return nil, fmt.Errorf("find loan: %w", err)
	}
	return loan, nil
}

func (s *loanService) ListUserLoans(ctx context.Context, userID uint, openOnly bool) ([]model.LoanHistory, error) {
	if openOnly {
		return s.store.Loans().ListOpenByBorrower(ctx, userID)
	}
	return s.store.Loans().ListByBorrower(ctx, userID)
}

func (s *loanService) ListOverdueLoans(ctx context.Context) ([]model.LoanHistory, error) {
	return s.store.Loans().ListOverdue(ctx, s.clock.Now())
}

// notifyAdmins fans the admin borrow notification out to every admin user.
func (s *loanService) notifyAdmins(ctx context.Context, msg notify.Message) {
	admins, err := s.store.Users().ListAdmins(ctx)
	if err != nil {
		slog.Warn("failed to list admins for borrow notification", "error", err)
		return
	}
	for i := range admins {
		s.notifier.Notify(ctx, &admins[i], notify.KindAdminBorrowNotification, msg)
	}
}

// dispatch runs a notification callback off the request path. The request
// context may already be cancelled once the response is written, so the
// callback gets a fresh one with a delivery deadline.
func (s *loanService) dispatch(fn func(ctx context.Context)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		fn(ctx)
	}()
}
