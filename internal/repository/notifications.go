package repository

import (
	"context"

	"notistream/internal/model"
)

// PageQuery selects one slice of a user's notifications. Cursor is the id of
// the last item of the previous page and is exclusive; callers treat it as
// opaque. Limit is clamped by the store.
type PageQuery struct {
	UserID     string
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// NotificationStore is the durable record of notifications.
//
// CreateNotification must survive a dangling booking reference: when the
// insert fails only because BookingID no longer resolves, the store retries
// exactly once with the reference dropped. Any other failure is returned.
type NotificationStore interface {
	CreateNotification(ctx context.Context, notification model.Notification) (model.Notification, error)
	FindPage(ctx context.Context, query PageQuery) (model.Page, error)
	MarkAsRead(ctx context.Context, id, userID string) (model.Notification, error)
	MarkAllAsRead(ctx context.Context, userID string) (int, error)
	CountUnread(ctx context.Context, userID string) (int, error)

	// Dispatch lifecycle, driven by external email/SMS senders. Neither
	// call touches read state.
	MarkAsSent(ctx context.Context, id string, metadata map[string]any) error
	MarkAsFailed(ctx context.Context, id string, reason string) error
}
