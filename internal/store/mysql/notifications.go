package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
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

const notificationColumns = "id, user_id, type, channel, status, subject, message, metadata, booking_id, sent_at, failed_at, error_message, read_at, created_at"

func (s *Store) CreateNotification(ctx context.Context, notification model.Notification) (model.Notification, error) {
	if notification.ID == "" {
		notification.ID = uuid.Must(uuid.NewV7()).String()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	err := s.insert(ctx, notification)
	if err != nil && isForeignKeyViolation(err) && notification.BookingID != nil {
		s.log.Warn("booking reference missing, retrying without it",
			zap.String("user_id", notification.UserID),
			zap.String("booking_id", *notification.BookingID),
			zap.Error(err),
		)
		notification.BookingID = nil
		err = s.insert(ctx, notification)
	}
	if err != nil {
		s.log.Error("sql create notification failed",
			zap.String("user_id", notification.UserID),
			zap.String("type", string(notification.Type)),
			zap.Error(err),
		)
		return model.Notification{}, fmt.Errorf("create notification: %w", err)
	}
	return notification, nil
}

func (s *Store) insert(ctx context.Context, n model.Notification) error {
	metadata, err := marshalMetadata(n.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO notifications ("+notificationColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		n.ID, n.UserID, string(n.Type), string(n.Channel), string(n.Status),
		n.Subject, n.Message, metadata, n.BookingID,
		n.SentAt, n.FailedAt, n.ErrorMessage, n.ReadAt, n.CreatedAt,
	)
	return err
}

func (s *Store) FindPage(ctx context.Context, query repository.PageQuery) (model.Page, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + notificationColumns + " FROM notifications WHERE user_id = ?")
	args := []any{query.UserID}

	if query.UnreadOnly {
		sb.WriteString(" AND read_at IS NULL")
	}
	if query.Cursor != "" {
		// Strictly after the cursor row in (created_at desc, id desc)
		// order. An unknown cursor yields NULL subqueries and an empty
		// page rather than an error.
		sb.WriteString(" AND (created_at < (SELECT created_at FROM notifications WHERE id = ?)" +
			" OR (created_at = (SELECT created_at FROM notifications WHERE id = ?) AND id < ?))")
		args = append(args, query.Cursor, query.Cursor, query.Cursor)
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC LIMIT ?")
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		s.log.Error("sql find page failed", zap.String("user_id", query.UserID), zap.Error(err))
		return model.Page{}, fmt.Errorf("find page: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return model.Page{}, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return model.Page{}, fmt.Errorf("find page rows: %w", err)
	}

	page := model.Page{}
	if len(items) > limit {
		page.Items = items[:limit]
		page.HasMore = true
		page.NextCursor = page.Items[len(page.Items)-1].ID
	} else {
		page.Items = items
	}

	unread, err := s.CountUnread(ctx, query.UserID)
	if err != nil {
		return model.Page{}, err
	}
	page.UnreadCount = unread
	return page, nil
}

func (s *Store) MarkAsRead(ctx context.Context, id, userID string) (model.Notification, error) {
	_, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read_at = UTC_TIMESTAMP(6) WHERE id = ? AND user_id = ? AND read_at IS NULL",
		id, userID,
	)
	if err != nil {
		s.log.Error("sql mark as read failed", zap.String("id", id), zap.Error(err))
		return model.Notification{}, fmt.Errorf("mark as read: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+notificationColumns+" FROM notifications WHERE id = ? AND user_id = ?",
		id, userID,
	)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Notification{}, domain.ErrNotificationNotFound
	}
	if err != nil {
		return model.Notification{}, fmt.Errorf("mark as read: %w", err)
	}
	return n, nil
}

func (s *Store) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read_at = UTC_TIMESTAMP(6) WHERE user_id = ? AND read_at IS NULL",
		userID,
	)
	if err != nil {
		s.log.Error("sql mark all as read failed", zap.String("user_id", userID), zap.Error(err))
		return 0, fmt.Errorf("mark all as read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all as read: %w", err)
	}
	return int(affected), nil
}

func (s *Store) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read_at IS NULL",
		userID,
	).Scan(&count)
	if err != nil {
		s.log.Error("sql count unread failed", zap.String("user_id", userID), zap.Error(err))
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

func (s *Store) MarkAsSent(ctx context.Context, id string, metadata map[string]any) error {
	payload, err := marshalMetadata(metadata)
	if err != nil {
		return fmt.Errorf("mark as sent: %w", err)
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET status = ?, sent_at = UTC_TIMESTAMP(6), metadata = COALESCE(?, metadata) WHERE id = ?",
		string(domain.StatusSent), payload, id,
	)
	if err != nil {
		s.log.Error("sql mark as sent failed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("mark as sent: %w", err)
	}
	return requireAffected(result)
}

func (s *Store) MarkAsFailed(ctx context.Context, id string, reason string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET status = ?, failed_at = UTC_TIMESTAMP(6), error_message = ? WHERE id = ?",
		string(domain.StatusFailed), reason, id,
	)
	if err != nil {
		s.log.Error("sql mark as failed failed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("mark as failed: %w", err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func marshalMetadata(metadata map[string]any) (any, error) {
	if metadata == nil {
		return nil, nil
	}
	payload, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (model.Notification, error) {
	var (
		n            model.Notification
		notifType    string
		channel      string
		status       string
		subject      sql.NullString
		metadata     []byte
		bookingID    sql.NullString
		sentAt       sql.NullTime
		failedAt     sql.NullTime
		errorMessage sql.NullString
		readAt       sql.NullTime
	)
	err := row.Scan(&n.ID, &n.UserID, &notifType, &channel, &status,
		&subject, &n.Message, &metadata, &bookingID,
		&sentAt, &failedAt, &errorMessage, &readAt, &n.CreatedAt)
	if err != nil {
		return model.Notification{}, err
	}

	n.Type = domain.NotificationType(notifType)
	n.Channel = domain.NotificationChannel(channel)
	n.Status = domain.NotificationStatus(status)
	if subject.Valid {
		n.Subject = &subject.String
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
			return model.Notification{}, err
		}
	}
	if bookingID.Valid {
		n.BookingID = &bookingID.String
	}
	if sentAt.Valid {
		n.SentAt = &sentAt.Time
	}
	if failedAt.Valid {
		n.FailedAt = &failedAt.Time
	}
	if errorMessage.Valid {
		n.ErrorMessage = &errorMessage.String
	}
	if readAt.Valid {
		n.ReadAt = &readAt.Time
	}
	return n, nil
}
