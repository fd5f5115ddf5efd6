package model

import "time"

// ReservationStatus represents the lifecycle state of a reservation.
type ReservationStatus string

const (
	// ReservationStatusPending means the user is waiting in the queue.
	ReservationStatusPending ReservationStatus = "pending"
	// ReservationStatusNotified means the book is being held for the user.
	ReservationStatusNotified ReservationStatus = "notified"
	// ReservationStatusFulfilled means the user borrowed the reserved book.
	ReservationStatusFulfilled ReservationStatus = "fulfilled"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	// ReservationStatusExpired means the hold lapsed before the user borrowed.
	ReservationStatusExpired ReservationStatus = "expired"
)

// IsTerminal reports whether no further transitions are possible.
func (s ReservationStatus) IsTerminal() bool {
	switch s {
	case ReservationStatusFulfilled, ReservationStatusCancelled, ReservationStatusExpired:
		return true
	}
	return false
}

// IsActive reports whether the reservation still occupies a quota slot and
// blocks duplicate reservations for the same (book, user) pair.
func (s ReservationStatus) IsActive() bool {
	return s == ReservationStatusPending || s == ReservationStatusNotified
}

// Reservation is a user's claim on a book. Queue order among pending
// reservations for the same book is (ReservationDate, ID) ascending; the
// auto-increment ID breaks ties between equal timestamps.
type Reservation struct {
	ID                 uint              `json:"id" gorm:"primaryKey"`
	BookID             uint              `json:"book_id" gorm:"not null;index"`
	UserID             uint              `json:"user_id" gorm:"not null;index"`
	ReservationDate    time.Time         `json:"reservation_date" gorm:"index;not null"`
	Status             ReservationStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	NotificationSent   bool              `json:"notification_sent" gorm:"default:false"`
	NotificationSentAt *time.Time        `json:"notification_sent_at,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`

	// Relations
	Book Book `json:"-" gorm:"foreignKey:BookID"`
	User User `json:"-" gorm:"foreignKey:UserID"`
}
