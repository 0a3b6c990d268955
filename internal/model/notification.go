package model

import (
	"time"

	"notistream/internal/domain"
)

type Notification struct {
	ID           string                     `json:"id"`
	UserID       string                     `json:"user_id"`
	Type         domain.NotificationType    `json:"type"`
	Channel      domain.NotificationChannel `json:"channel"`
	Status       domain.NotificationStatus  `json:"status"`
	Subject      *string                    `json:"subject,omitempty"`
	Message      string                     `json:"message"`
	Metadata     map[string]any             `json:"metadata,omitempty"`
	BookingID    *string                    `json:"booking_id,omitempty"`
	SentAt       *time.Time                 `json:"sent_at,omitempty"`
	FailedAt     *time.Time                 `json:"failed_at,omitempty"`
	ErrorMessage *string                    `json:"error_message,omitempty"`
	ReadAt       *time.Time                 `json:"read_at,omitempty"`
	CreatedAt    time.Time                  `json:"created_at"`
}

// Page is one cursor-paginated slice of a user's notifications, newest first.
type Page struct {
	Items       []Notification
	NextCursor  string
	HasMore     bool
	UnreadCount int
}
