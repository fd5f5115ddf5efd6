package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"libcirc/internal/model"
)

// LoanRepository defines loan history persistence operations.
// Loan rows are append-only; Update only ever sets return/extension/reminder
// fields on an existing row.
type LoanRepository interface {
	Create(ctx context.Context, loan *model.LoanHistory) error
	Update(ctx context.Context, loan *model.LoanHistory) error
	FindByID(ctx context.Context, id uint) (*model.LoanHistory, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.LoanHistory, error)
	// FindOpenByBookID returns the single open loan on a book, if any.
	FindOpenByBookID(ctx context.Context, bookID uint) (*model.LoanHistory, error)
	ListOpenByBorrower(ctx context.Context, userID uint) ([]model.LoanHistory, error)
	CountOpenByBorrower(ctx context.Context, userID uint) (int64, error)
	HasOverdue(ctx context.Context, userID uint, now time.Time) (bool, error)
	// ListDueSoon returns open loans without a sent reminder whose due date
	// lies in (now, now+window]. The upper boundary is inclusive.
	ListDueSoon(ctx context.Context, now time.Time, window time.Duration) ([]model.LoanHistory, error)
	ListOverdue(ctx context.Context, now time.Time) ([]model.LoanHistory, error)
	ListByBorrower(ctx context.Context, userID uint) ([]model.LoanHistory, error)
	ListByBook(ctx context.Context, bookID uint) ([]model.LoanHistory, error)
	// DetachBorrower nulls the borrower reference on all of a user's loan
	// rows so the audit trail survives user deletion.
	DetachBorrower(ctx context.Context, userID uint) error
}

type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository.
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *model.LoanHistory) error {
	return r.db.WithContext(ctx).Create(loan).Error
}

func (r *loanRepository) Update(ctx context.Context, loan *model.LoanHistory) error {
	return r.db.WithContext(ctx).Save(loan).Error
}

func (r *loanRepository) FindByID(ctx context.Context, id uint) (*model.LoanHistory, error) {
	var loan model.LoanHistory
	if err := r.db.WithContext(ctx).First(&loan, id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.LoanHistory, error) {
	var loan model.LoanHistory
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&loan, id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) FindOpenByBookID(ctx context.Context, bookID uint) (*model.LoanHistory, error) {
	var loan model.LoanHistory
	if err := r.db.WithContext(ctx).
		Where("book_id = ? AND return_date IS NULL", bookID).
		First(&loan).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) ListOpenByBorrower(ctx context.Context, userID uint) ([]model.LoanHistory, error) {
	var loans []model.LoanHistory
	if err := r.db.WithContext(ctx).
		Where("borrower_id = ? AND return_date IS NULL", userID).
		Order("due_date").
		Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) CountOpenByBorrower(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.LoanHistory{}).
		Where("borrower_id = ? AND return_date IS NULL", userID).
		Count(&count).Error
	return count, err
}

func (r *loanRepository) HasOverdue(ctx context.Context, userID uint, now time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.LoanHistory{}).
		Where("borrower_id = ? AND return_date IS NULL AND due_date < ?", userID, now).
		Count(&count).Error
	return count > 0, err
}

func (r *loanRepository) ListDueSoon(ctx context.Context, now time.Time, window time.Duration) ([]model.LoanHistory, error) {
	var loans []model.LoanHistory
	if err := r.db.WithContext(ctx).
		Where("return_date IS NULL AND reminder_sent = ? AND due_date > ? AND due_date <= ?",
			false, now, now.Add(window)).
		Order("due_date").
		Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) ListOverdue(ctx context.Context, now time.Time) ([]model.LoanHistory, error) {
	var loans []model.LoanHistory
	if err := r.db.WithContext(ctx).
		Where("return_date IS NULL AND due_date < ?", now).
		Order("due_date").
		Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) ListByBorrower(ctx context.Context, userID uint) ([]model.LoanHistory, error) {
	var loans []model.LoanHistory
	if err := r.db.WithContext(ctx).
		Where("borrower_id = ?", userID).
		Order("loan_date DESC").
		Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) ListByBook(ctx context.Context, bookID uint) ([]model.LoanHistory, error) {
	var loans []model.LoanHistory
	if err := r.db.WithContext(ctx).
		Where("book_id = ?", bookID).
		Order("loan_date DESC").
		Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *loanRepository) DetachBorrower(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Model(&model.LoanHistory{}).
		Where("borrower_id = ?", userID).
		Update("borrower_id", nil).Error
}
