package model

import "time"

// BookStatus represents the circulation state of a book.
type BookStatus string

const (
	BookStatusAvailable   BookStatus = "available"
	BookStatusOnLoan      BookStatus = "on_loan"
	BookStatusReserved    BookStatus = "reserved"
	BookStatusUnavailable BookStatus = "unavailable"
)

// Book represents a single physical circulating item.
// Invariant: Status == on_loan iff BorrowerID is set iff exactly one
// LoanHistory row for this book has a null ReturnDate.
type Book struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	BookNumber *string    `json:"book_number,omitempty" gorm:"uniqueIndex;size:20"` // BO-<year>-<seq3>
	Title      string     `json:"title" gorm:"size:200;not null;index"`
	Author     string     `json:"author" gorm:"size:100;index"`
	Category1  string     `json:"category1" gorm:"size:50;index"`
	Category2  string     `json:"category2" gorm:"size:50"`
	Keywords   string     `json:"keywords" gorm:"size:200"`
	Location   string     `json:"location" gorm:"size:100"`
	Status     BookStatus `json:"status" gorm:"type:varchar(20);not null;default:'available';index"`
	BorrowerID *uint      `json:"borrower_id,omitempty" gorm:"index"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// Relations
	Borrower *User `json:"-" gorm:"foreignKey:BorrowerID"`
}

// IsBorrowable reports whether the book can be handed out right now.
func (b *Book) IsBorrowable() bool {
	return b.Status == BookStatusAvailable && b.BorrowerID == nil
}
