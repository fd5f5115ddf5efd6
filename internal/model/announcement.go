package model

import "time"

// AnnouncementPriority orders announcements on the home page.
type AnnouncementPriority string

const (
	AnnouncementPriorityLow    AnnouncementPriority = "low"
	AnnouncementPriorityNormal AnnouncementPriority = "normal"
	AnnouncementPriorityHigh   AnnouncementPriority = "high"
)

// Announcement is an admin-authored notice shown to all users.
type Announcement struct {
	ID          uint                 `json:"id" gorm:"primaryKey"`
	Title       string               `json:"title" gorm:"size:200;not null"`
	Body        string               `json:"body" gorm:"type:text;not null"`
	Priority    AnnouncementPriority `json:"priority" gorm:"type:varchar(10);not null;default:'normal'"`
	CreatedByID *uint                `json:"created_by_id,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`

	// Relations
	CreatedBy *User `json:"-" gorm:"foreignKey:CreatedByID"`
}
