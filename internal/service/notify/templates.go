package notify

import (
	"fmt"

	"notistream/internal/domain"
)

// BookingInfo is the slice of a booking a notification message needs.
type BookingInfo struct {
	BookingID   string
	Code        string
	ServiceName string
	ScheduledAt string
}

// MessageFor renders the in-app message for a booking-driven notification.
func MessageFor(notifType domain.NotificationType, booking BookingInfo) string {
	switch notifType {
	case domain.TypeBookingCreated:
		return fmt.Sprintf("Your booking %s has been created for %s", booking.Code, booking.ScheduledAt)
	case domain.TypeBookingRescheduled:
		return fmt.Sprintf("Your booking %s has been rescheduled to %s", booking.Code, booking.ScheduledAt)
	case domain.TypeBookingReminder24H:
		return fmt.Sprintf("Reminder: your service %s is tomorrow at %s", booking.Code, booking.ScheduledAt)
	case domain.TypeBookingReminder1H:
		return fmt.Sprintf("Reminder: your service %s starts in 1 hour", booking.Code)
	case domain.TypeBookingCompleted:
		return fmt.Sprintf("Your service %s has been completed", booking.Code)
	case domain.TypeBookingCancelled:
		return fmt.Sprintf("Your booking %s has been cancelled", booking.Code)
	case domain.TypePaymentFailed:
		return fmt.Sprintf("Payment for booking %s failed, please update your payment method", booking.Code)
	case domain.TypeIncidentReported:
		return fmt.Sprintf("An incident was reported for booking %s", booking.Code)
	default:
		return fmt.Sprintf("Update for booking %s", booking.Code)
	}
}
