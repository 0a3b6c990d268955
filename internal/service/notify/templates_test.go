package notify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"notistream/internal/domain"
)

func TestMessageFor(t *testing.T) {
	booking := BookingInfo{
		BookingID:   "bk-1",
		Code:        "BRC-1042",
		ServiceName: "Deep Clean",
		ScheduledAt: "2026-03-02 09:00",
	}

	require.Equal(t,
		"Your booking BRC-1042 has been created for 2026-03-02 09:00",
		MessageFor(domain.TypeBookingCreated, booking))
	require.Equal(t,
		"Reminder: your service BRC-1042 starts in 1 hour",
		MessageFor(domain.TypeBookingReminder1H, booking))
	require.Equal(t,
		"Update for booking BRC-1042",
		MessageFor(domain.TypeServiceUpdated, booking))
}
