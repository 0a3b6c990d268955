package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"notistream/internal/domain"
	"notistream/internal/model"
	"notistream/internal/repository"
)

const (
	defaultPageLimit = 25
	maxPageLimit     = 100
)

func (s *Store) CreateNotification(_ context.Context, notification model.Notification) (model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if notification.BookingID != nil {
		if _, ok := s.bookings[*notification.BookingID]; !ok {
			// Same recovery as the SQL store's foreign-key retry: one
			// attempt with the reference dropped.
			s.log.Warn("booking reference missing, retrying without it",
				zap.String("user_id", notification.UserID),
				zap.String("booking_id", *notification.BookingID),
			)
			notification.BookingID = nil
		}
	}

	if notification.ID == "" {
		notification.ID = uuid.Must(uuid.NewV7()).String()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	s.records = append(s.records, notification)
	return notification, nil
}

func (s *Store) FindPage(_ context.Context, query repository.PageQuery) (model.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := query.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	var matched []model.Notification
	unread := 0
	for _, record := range s.records {
		if record.UserID != query.UserID {
			continue
		}
		if record.ReadAt == nil {
			unread++
		}
		if query.UnreadOnly && record.ReadAt != nil {
			continue
		}
		matched = append(matched, record)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	if query.Cursor != "" {
		// The anchor is resolved against all records, not the filtered
		// slice: a cursor item that was marked read between pages must
		// still position the next unread_only page. Strictly after the
		// anchor in (created_at desc, id desc) order; an unknown cursor
		// yields an empty page, like the SQL store's NULL subqueries.
		anchor, ok := s.findLocked(query.Cursor)
		if !ok {
			matched = nil
		} else {
			var after []model.Notification
			for _, record := range matched {
				if record.CreatedAt.Before(anchor.CreatedAt) ||
					(record.CreatedAt.Equal(anchor.CreatedAt) && record.ID < anchor.ID) {
					after = append(after, record)
				}
			}
			matched = after
		}
	}

	page := model.Page{UnreadCount: unread}
	if len(matched) > limit {
		page.Items = append(page.Items, matched[:limit]...)
		page.HasMore = true
		page.NextCursor = page.Items[len(page.Items)-1].ID
	} else {
		page.Items = append(page.Items, matched...)
	}
	return page, nil
}

func (s *Store) findLocked(id string) (model.Notification, bool) {
	for i := range s.records {
		if s.records[i].ID == id {
			return s.records[i], true
		}
	}
	return model.Notification{}, false
}

func (s *Store) MarkAsRead(_ context.Context, id, userID string) (model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID != id || s.records[i].UserID != userID {
			continue
		}
		if s.records[i].ReadAt == nil {
			now := time.Now().UTC()
			s.records[i].ReadAt = &now
		}
		return s.records[i], nil
	}
	return model.Notification{}, domain.ErrNotificationNotFound
}

func (s *Store) MarkAllAsRead(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	count := 0
	for i := range s.records {
		if s.records[i].UserID != userID || s.records[i].ReadAt != nil {
			continue
		}
		readAt := now
		s.records[i].ReadAt = &readAt
		count++
	}
	return count, nil
}

func (s *Store) CountUnread(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for i := range s.records {
		if s.records[i].UserID == userID && s.records[i].ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (s *Store) MarkAsSent(_ context.Context, id string, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID != id {
			continue
		}
		now := time.Now().UTC()
		s.records[i].Status = domain.StatusSent
		s.records[i].SentAt = &now
		if metadata != nil {
			s.records[i].Metadata = metadata
		}
		return nil
	}
	return domain.ErrNotificationNotFound
}

func (s *Store) MarkAsFailed(_ context.Context, id string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID != id {
			continue
		}
		now := time.Now().UTC()
		s.records[i].Status = domain.StatusFailed
		s.records[i].FailedAt = &now
		s.records[i].ErrorMessage = &reason
		return nil
	}
	return domain.ErrNotificationNotFound
}
