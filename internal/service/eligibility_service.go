package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"libcirc/internal/clock"
	liberr "libcirc/internal/errors"
	"libcirc/internal/model"
	"libcirc/internal/repository"
)

// EligibilityService is the single source of truth for "may this user borrow,
// reserve or extend right now". Every rule lives here once; the lifecycle
// services re-run the checks inside their transactions via the *In variants
// so check-then-act never races across a commit boundary.
type EligibilityService interface {
	// CanBorrow checks whether the user may borrow. With a nil bookID only
	// the user-level rules (overdue block, quota) are evaluated.
	CanBorrow(ctx context.Context, userID uint, bookID *uint) error
	// CanExtend checks whether the loan may be extended.
	CanExtend(ctx context.Context, loanID uint) error

	// CanBorrowIn re-runs the borrow checks against a transaction-scoped store.
	CanBorrowIn(ctx context.Context, tx repository.Store, userID uint, bookID *uint) error
	// CanExtendIn re-runs the extension checks against a transaction-scoped store.
	CanExtendIn(ctx context.Context, tx repository.Store, loanID uint) error
	// CheckQuotaIn verifies the combined loan+reservation quota for a user.
	CheckQuotaIn(ctx context.Context, tx repository.Store, user *model.User) error
}

type eligibilityService struct {
	store repository.Store
	clock clock.Clock
}

// NewEligibilityService creates the eligibility checker.
func NewEligibilityService(store repository.Store, clk clock.Clock) EligibilityService {
	return &eligibilityService{store: store, clock: clk}
}

func (s *eligibilityService) CanBorrow(ctx context.Context, userID uint, bookID *uint) error {
	return s.CanBorrowIn(ctx, s.store, userID, bookID)
}

func (s *eligibilityService) CanExtend(ctx context.Context, loanID uint) error {
	return s.CanExtendIn(ctx, s.store, loanID)
}

func (s *eligibilityService) CanBorrowIn(ctx context.Context, tx repository.Store, userID uint, bookID *uint) error {
	user, err := tx.Users().FindByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return liberr.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	// One overdue book blocks all new borrowing until it comes back.
	overdue, err := tx.Loans().HasOverdue(ctx, userID, s.clock.Now())
	if err != nil {
		return fmt.Errorf("check overdue loans: %w", err)
	}
	if overdue {
		return liberr.ErrOverdueBlock
	}

	if err := s.CheckQuotaIn(ctx, tx, user); err != nil {
		return err
	}

	if bookID == nil {
		return nil
	}

	book, err := tx.Books().FindByID(ctx, *bookID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return liberr.ErrBookNotFound
		}
		return fmt.Errorf("find book: %w", err)
	}
	return s.checkBookBorrowable(ctx, tx, book, userID)
}

// checkBookBorrowable allows borrowing an available book, or a reserved book
// when the requesting user is the one it is being held for.
func (s *eligibilityService) checkBookBorrowable(ctx context.Context, tx repository.Store, book *model.Book, userID uint) error {
	if book.BorrowerID != nil {
		return liberr.ErrBookUnavailable
	}
	switch book.Status {
	case model.BookStatusAvailable:
		return nil
	case model.BookStatusReserved:
		reservation, err := tx.Reservations().FindActiveByBookAndUser(ctx, book.ID, userID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return liberr.ErrBookUnavailable
			}
			return fmt.Errorf("find reservation: %w", err)
		}
		if reservation.Status == model.ReservationStatusNotified {
			return nil
		}
		return liberr.ErrBookUnavailable
	default:
		return liberr.ErrBookUnavailable
	}
}

func (s *eligibilityService) CanExtendIn(ctx context.Context, tx repository.Store, loanID uint) error {
	loan, err := tx.Loans().FindByID(ctx, loanID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return liberr.ErrLoanNotFound
		}
		return fmt.Errorf("find loan: %w", err)
	}
	if loan.ReturnDate != nil {
		return liberr.ErrAlreadyReturned
	}

	// Queued reservers outrank the current borrower: a pending reservation
	// blocks extension even on a never-extended loan.
	pending, err := tx.Reservations().CountPendingByBook(ctx, loan.BookID)
	if err != nil {
		return fmt.Errorf("count pending reservations: %w", err)
	}
	if pending > 0 {
		return liberr.ErrReservedByOthers
	}

	if loan.ExtensionCount >= model.MaxExtensions {
		return liberr.ErrExtensionLimitReached
	}
	return nil
}

func (s *eligibilityService) CheckQuotaIn(ctx context.Context, tx repository.Store, user *model.User) error {
	loanCount, err := tx.Loans().CountOpenByBorrower(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("count open loans: %w", err)
	}
	reservationCount, err := tx.Reservations().CountActiveByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("count active reservations: %w", err)
	}
	if loanCount+reservationCount >= int64(user.MaxLoanLimit) {
		return liberr.ErrQuotaExceeded
	}
	return nil
}
