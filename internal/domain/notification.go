package domain

import "errors"

// NotificationType is the closed set of domain events a user can be notified about.
type NotificationType string

const (
	TypeBookingCreated     NotificationType = "BOOKING_CREATED"
	TypeBookingRescheduled NotificationType = "BOOKING_RESCHEDULED"
	TypeBookingReminder24H NotificationType = "BOOKING_REMINDER_24H"
	TypeBookingReminder1H  NotificationType = "BOOKING_REMINDER_1H"
	TypeBookingCompleted   NotificationType = "BOOKING_COMPLETED"
	TypeBookingCancelled   NotificationType = "BOOKING_CANCELLED"
	TypeServiceUpdated     NotificationType = "SERVICE_UPDATED"
	TypePaymentFailed      NotificationType = "PAYMENT_FAILED"
	TypeIncidentReported   NotificationType = "INCIDENT_REPORTED"
)

// NotificationChannel selects how a notification reaches the user.
// IN_APP notifications are delivered over the stream; EMAIL and SMS are
// handed to external senders through the dispatch contract.
type NotificationChannel string

const (
	ChannelInApp NotificationChannel = "IN_APP"
	ChannelEmail NotificationChannel = "EMAIL"
	ChannelSMS   NotificationChannel = "SMS"
)

// NotificationStatus tracks out-of-band delivery. It never reflects read state.
type NotificationStatus string

const (
	StatusPending NotificationStatus = "PENDING"
	StatusSent    NotificationStatus = "SENT"
	StatusFailed  NotificationStatus = "FAILED"
)

var (
	ErrInvalidNotificationType    = errors.New("invalid notification type")
	ErrInvalidNotificationChannel = errors.New("invalid notification channel")
	ErrNotificationNotFound       = errors.New("notification not found")
)

func IsValidNotificationType(value string) bool {
	switch NotificationType(value) {
	case TypeBookingCreated, TypeBookingRescheduled, TypeBookingReminder24H,
		TypeBookingReminder1H, TypeBookingCompleted, TypeBookingCancelled,
		TypeServiceUpdated, TypePaymentFailed, TypeIncidentReported:
		return true
	default:
		return false
	}
}

func IsValidNotificationChannel(value string) bool {
	switch NotificationChannel(value) {
	case ChannelInApp, ChannelEmail, ChannelSMS:
		return true
	default:
		return false
	}
}
