package model

import "time"

// MaxExtensions is the number of times a single loan may be extended.
const MaxExtensions = 1

// LoanHistory records one borrow event. Rows are append-only: ReturnDate is
// set exactly once on return and records are never deleted, though BorrowerID
// may be nulled when the borrowing user is removed.
type LoanHistory struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	BookID         uint       `json:"book_id" gorm:"not null;index"`
	BookTitle      string     `json:"book_title" gorm:"size:200;not null"` // Snapshot at loan time
	BorrowerID     *uint      `json:"borrower_id,omitempty" gorm:"index"`
	LoanDate       time.Time  `json:"loan_date" gorm:"index;not null"`
	DueDate        time.Time  `json:"due_date" gorm:"index;not null"`
	ReturnDate     *time.Time `json:"return_date,omitempty" gorm:"index"`
	ReminderSent   bool       `json:"reminder_sent" gorm:"default:false"`
	ExtensionCount int        `json:"extension_count" gorm:"not null;default:0"`
	ExtendedDate   *time.Time `json:"extended_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`

	// Relations
	Book     Book  `json:"-" gorm:"foreignKey:BookID"`
	Borrower *User `json:"-" gorm:"foreignKey:BorrowerID"`
}

// IsActive reports whether the loan is still open.
func (l *LoanHistory) IsActive() bool {
	return l.ReturnDate == nil
}

// IsOverdue reports whether the loan is open and past its due date.
// Overdue is strict: a loan due exactly now is not yet overdue.
func (l *LoanHistory) IsOverdue(now time.Time) bool {
	return l.ReturnDate == nil && l.DueDate.Before(now)
}
