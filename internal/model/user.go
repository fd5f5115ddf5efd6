package model

import "time"

// DefaultMaxLoanLimit is the borrowing quota assigned to new users.
// Open loans and active reservations both count against it.
const DefaultMaxLoanLimit = 3

// User represents a library member or administrator.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"uniqueIndex;size:50;not null"`
	PasswordHash string    `json:"-" gorm:"size:256;not null"` // Never expose in JSON
	Name         string    `json:"name" gorm:"size:100;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:120"`
	IsAdmin      bool      `json:"is_admin" gorm:"default:false"`
	MaxLoanLimit int       `json:"max_loan_limit" gorm:"not null;default:3"`
	SlackUserID  string    `json:"-" gorm:"size:50"` // Cached Slack member ID for DM delivery
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
