package model

import "time"

// OperationLog is an append-only audit record of admin and circulation actions.
type OperationLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Timestamp time.Time `json:"timestamp" gorm:"index"`
	UserID    *uint     `json:"user_id,omitempty" gorm:"index"`
	Action    string    `json:"action" gorm:"size:50;not null"`
	Target    string    `json:"target" gorm:"size:50;not null"`
	Details   string    `json:"details,omitempty" gorm:"type:text"`
	IPAddress string    `json:"ip_address,omitempty" gorm:"size:50"`

	// Relations
	User *User `json:"-" gorm:"foreignKey:UserID"`
}
