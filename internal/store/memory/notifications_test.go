package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"notistream/internal/domain"
	"notistream/internal/model"
	"notistream/internal/repository"
)

func seedNotifications(t *testing.T, store *Store, userID string, count int) []model.Notification {
	t.Helper()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	created := make([]model.Notification, 0, count)
	for i := 0; i < count; i++ {
		n, err := store.CreateNotification(context.Background(), model.Notification{
			UserID:    userID,
			Type:      domain.TypeBookingCreated,
			Channel:   domain.ChannelInApp,
			Status:    domain.StatusSent,
			Message:   fmt.Sprintf("message %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		created = append(created, n)
	}
	return created
}

func TestCreateNotification(t *testing.T) {
	t.Run("assigns id and created_at", func(t *testing.T) {
		store := New(zap.NewNop())
		n, err := store.CreateNotification(context.Background(), model.Notification{
			UserID:  "user-1",
			Type:    domain.TypeBookingCreated,
			Channel: domain.ChannelInApp,
			Status:  domain.StatusSent,
			Message: "hello",
		})
		require.NoError(t, err)
		require.NotEmpty(t, n.ID)
		require.False(t, n.CreatedAt.IsZero())
	})

	t.Run("keeps a valid booking reference", func(t *testing.T) {
		store := New(zap.NewNop())
		store.AddBooking("bk-1")

		bookingID := "bk-1"
		n, err := store.CreateNotification(context.Background(), model.Notification{
			UserID:    "user-1",
			Type:      domain.TypeBookingCreated,
			Channel:   domain.ChannelInApp,
			Status:    domain.StatusSent,
			Message:   "hello",
			BookingID: &bookingID,
		})
		require.NoError(t, err)
		require.NotNil(t, n.BookingID)
		require.Equal(t, "bk-1", *n.BookingID)
	})

	t.Run("drops a dangling booking reference and still creates", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		store := New(zap.New(core))
		store.AddBooking("bk-1")
		store.RemoveBooking("bk-1")

		bookingID := "bk-1"
		n, err := store.CreateNotification(context.Background(), model.Notification{
			UserID:    "user-1",
			Type:      domain.TypeBookingCancelled,
			Channel:   domain.ChannelInApp,
			Status:    domain.StatusSent,
			Message:   "booking gone",
			BookingID: &bookingID,
		})
		require.NoError(t, err)
		require.Nil(t, n.BookingID)
		require.Equal(t, 1, logs.FilterMessage("booking reference missing, retrying without it").Len())
	})
}

func TestFindPage(t *testing.T) {
	t.Run("newest first with stable tie-break", func(t *testing.T) {
		store := New(zap.NewNop())
		seedNotifications(t, store, "user-1", 3)

		page, err := store.FindPage(context.Background(), repository.PageQuery{UserID: "user-1", Limit: 10})
		require.NoError(t, err)
		require.Len(t, page.Items, 3)
		require.False(t, page.HasMore)
		require.Empty(t, page.NextCursor)
		require.Equal(t, "message 2", page.Items[0].Message)
		require.Equal(t, "message 0", page.Items[2].Message)
	})

	t.Run("paginates without gaps or duplicates", func(t *testing.T) {
		store := New(zap.NewNop())
		seedNotifications(t, store, "user-1", 7)

		seen := map[string]bool{}
		cursor := ""
		pages := 0
		for {
			page, err := store.FindPage(context.Background(), repository.PageQuery{
				UserID: "user-1",
				Limit:  3,
				Cursor: cursor,
			})
			require.NoError(t, err)
			for _, item := range page.Items {
				require.False(t, seen[item.ID], "duplicate item %s", item.ID)
				seen[item.ID] = true
			}
			pages++
			if !page.HasMore {
				require.Empty(t, page.NextCursor)
				break
			}
			require.NotEmpty(t, page.NextCursor)
			cursor = page.NextCursor
		}
		require.Equal(t, 3, pages)
		require.Len(t, seen, 7)
	})

	t.Run("has_more only when a full extra item exists", func(t *testing.T) {
		store := New(zap.NewNop())
		seedNotifications(t, store, "user-1", 5)

		page, err := store.FindPage(context.Background(), repository.PageQuery{UserID: "user-1", Limit: 5})
		require.NoError(t, err)
		require.Len(t, page.Items, 5)
		require.False(t, page.HasMore)
	})

	t.Run("unknown cursor yields an empty page", func(t *testing.T) {
		store := New(zap.NewNop())
		seedNotifications(t, store, "user-1", 3)

		page, err := store.FindPage(context.Background(), repository.PageQuery{
			UserID: "user-1",
			Limit:  3,
			Cursor: "no-such-id",
		})
		require.NoError(t, err)
		require.Empty(t, page.Items)
		require.False(t, page.HasMore)
	})

	t.Run("unread_only filters read items but counts all unread", func(t *testing.T) {
		store := New(zap.NewNop())
		created := seedNotifications(t, store, "user-1", 4)

		_, err := store.MarkAsRead(context.Background(), created[0].ID, "user-1")
		require.NoError(t, err)

		page, err := store.FindPage(context.Background(), repository.PageQuery{
			UserID:     "user-1",
			Limit:      10,
			UnreadOnly: true,
		})
		require.NoError(t, err)
		require.Len(t, page.Items, 3)
		require.Equal(t, 3, page.UnreadCount)
	})

	t.Run("unread_only cursor survives the cursor item being read", func(t *testing.T) {
		store := New(zap.NewNop())
		seedNotifications(t, store, "user-1", 5)

		first, err := store.FindPage(context.Background(), repository.PageQuery{
			UserID:     "user-1",
			Limit:      2,
			UnreadOnly: true,
		})
		require.NoError(t, err)
		require.Len(t, first.Items, 2)
		require.True(t, first.HasMore)

		// Reading the cursor item between pages must not break the
		// next page's position.
		_, err = store.MarkAsRead(context.Background(), first.NextCursor, "user-1")
		require.NoError(t, err)

		second, err := store.FindPage(context.Background(), repository.PageQuery{
			UserID:     "user-1",
			Limit:      2,
			Cursor:     first.NextCursor,
			UnreadOnly: true,
		})
		require.NoError(t, err)
		require.Len(t, second.Items, 2)
		require.Equal(t, "message 2", second.Items[0].Message)
		require.Equal(t, "message 1", second.Items[1].Message)
		require.True(t, second.HasMore)

		third, err := store.FindPage(context.Background(), repository.PageQuery{
			UserID:     "user-1",
			Limit:      2,
			Cursor:     second.NextCursor,
			UnreadOnly: true,
		})
		require.NoError(t, err)
		require.Len(t, third.Items, 1)
		require.Equal(t, "message 0", third.Items[0].Message)
		require.False(t, third.HasMore)
	})

	t.Run("never leaks another user's items", func(t *testing.T) {
		store := New(zap.NewNop())
		seedNotifications(t, store, "user-1", 2)
		seedNotifications(t, store, "user-2", 2)

		page, err := store.FindPage(context.Background(), repository.PageQuery{UserID: "user-1", Limit: 10})
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		for _, item := range page.Items {
			require.Equal(t, "user-1", item.UserID)
		}
	})
}

func TestMarkAsRead(t *testing.T) {
	t.Run("sets read_at once", func(t *testing.T) {
		store := New(zap.NewNop())
		created := seedNotifications(t, store, "user-1", 1)

		first, err := store.MarkAsRead(context.Background(), created[0].ID, "user-1")
		require.NoError(t, err)
		require.NotNil(t, first.ReadAt)

		second, err := store.MarkAsRead(context.Background(), created[0].ID, "user-1")
		require.NoError(t, err)
		require.Equal(t, first.ReadAt, second.ReadAt)
	})

	t.Run("not found for another user's notification", func(t *testing.T) {
		store := New(zap.NewNop())
		created := seedNotifications(t, store, "user-1", 1)

		_, err := store.MarkAsRead(context.Background(), created[0].ID, "user-2")
		require.ErrorIs(t, err, domain.ErrNotificationNotFound)
	})
}

func TestMarkAllAsRead(t *testing.T) {
	store := New(zap.NewNop())
	seedNotifications(t, store, "user-1", 3)
	seedNotifications(t, store, "user-2", 1)

	count, err := store.MarkAllAsRead(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, 3, count)

	count, err = store.MarkAllAsRead(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, 0, count)

	unread, err := store.CountUnread(context.Background(), "user-2")
	require.NoError(t, err)
	require.Equal(t, 1, unread)
}

func TestDeliveryStatus(t *testing.T) {
	t.Run("mark as sent keeps read state untouched", func(t *testing.T) {
		store := New(zap.NewNop())
		created := seedNotifications(t, store, "user-1", 1)

		err := store.MarkAsSent(context.Background(), created[0].ID, map[string]any{"provider": "ses"})
		require.NoError(t, err)

		page, err := store.FindPage(context.Background(), repository.PageQuery{UserID: "user-1", Limit: 1})
		require.NoError(t, err)
		got := page.Items[0]
		require.Equal(t, domain.StatusSent, got.Status)
		require.NotNil(t, got.SentAt)
		require.Nil(t, got.ReadAt)
		require.Equal(t, "ses", got.Metadata["provider"])
	})

	t.Run("mark as failed records the reason", func(t *testing.T) {
		store := New(zap.NewNop())
		created := seedNotifications(t, store, "user-1", 1)

		err := store.MarkAsFailed(context.Background(), created[0].ID, "smtp timeout")
		require.NoError(t, err)

		page, err := store.FindPage(context.Background(), repository.PageQuery{UserID: "user-1", Limit: 1})
		require.NoError(t, err)
		got := page.Items[0]
		require.Equal(t, domain.StatusFailed, got.Status)
		require.NotNil(t, got.FailedAt)
		require.NotNil(t, got.ErrorMessage)
		require.Equal(t, "smtp timeout", *got.ErrorMessage)
	})

	t.Run("unknown id", func(t *testing.T) {
		store := New(zap.NewNop())
		require.ErrorIs(t, store.MarkAsSent(context.Background(), "missing", nil), domain.ErrNotificationNotFound)
		require.ErrorIs(t, store.MarkAsFailed(context.Background(), "missing", "x"), domain.ErrNotificationNotFound)
	})
}
