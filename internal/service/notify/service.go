package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"notistream/internal/config"
	"notistream/internal/domain"
	"notistream/internal/model"
	"notistream/internal/queue"
	"notistream/internal/repository"
	"notistream/internal/sse"
)

// Service owns the notification lifecycle: durable writes first, then the
// live publish to the hub, then (for out-of-band channels) a dispatch job
// for the external senders. The hub publish always happens after the write
// so a client that polls right after an event never misses it.
type Service struct {
	store    repository.NotificationStore
	hub      *sse.Hub
	dispatch queue.Publisher
	prefix   string
	log      *zap.Logger
}

func NewService(cfg *config.Config, store repository.NotificationStore, hub *sse.Hub, dispatch queue.Publisher, logger *zap.Logger) *Service {
	prefix := cfg.DispatchPrefix
	if prefix == "" {
		prefix = "dispatch"
	}
	return &Service{store: store, hub: hub, dispatch: dispatch, prefix: prefix, log: logger}
}

// CreateInput is one notification to record for one user. BookingID is a
// weak reference; it is dropped, not fatal, when the booking is gone.
type CreateInput struct {
	UserID    string
	Type      domain.NotificationType
	Channel   domain.NotificationChannel
	Subject   string
	Message   string
	Metadata  map[string]any
	BookingID string
}

func (s *Service) Create(ctx context.Context, input CreateInput) (model.Notification, error) {
	if !domain.IsValidNotificationType(string(input.Type)) {
		return model.Notification{}, domain.ErrInvalidNotificationType
	}
	if input.Channel == "" {
		input.Channel = domain.ChannelInApp
	}
	if !domain.IsValidNotificationChannel(string(input.Channel)) {
		return model.Notification{}, domain.ErrInvalidNotificationChannel
	}

	notification := model.Notification{
		UserID:   input.UserID,
		Type:     input.Type,
		Channel:  input.Channel,
		Status:   domain.StatusPending,
		Message:  input.Message,
		Metadata: input.Metadata,
	}
	if input.Subject != "" {
		notification.Subject = &input.Subject
	}
	if input.BookingID != "" {
		notification.BookingID = &input.BookingID
	}
	if input.Channel == domain.ChannelInApp {
		now := time.Now().UTC()
		notification.Status = domain.StatusSent
		notification.SentAt = &now
	}

	created, err := s.store.CreateNotification(ctx, notification)
	if err != nil {
		s.log.Error("store create notification failed",
			zap.String("user_id", input.UserID),
			zap.String("type", string(input.Type)),
			zap.Error(err),
		)
		return model.Notification{}, err
	}

	if created.Channel == domain.ChannelInApp {
		s.hub.Publish(created.UserID, sse.NewNotificationEvent(created))
	} else {
		s.enqueueDispatch(ctx, created)
	}
	return created, nil
}

// enqueueDispatch hands an EMAIL/SMS notification to the external senders.
// The notification is already durable, so a broken queue is only logged;
// the dispatch contract callbacks settle the final status.
func (s *Service) enqueueDispatch(ctx context.Context, n model.Notification) {
	job := map[string]any{
		"notification_id": n.ID,
		"user_id":         n.UserID,
		"type":            n.Type,
		"channel":         n.Channel,
		"subject":         n.Subject,
		"message":         n.Message,
		"metadata":        n.Metadata,
	}
	payload, err := json.Marshal(job)
	if err != nil {
		s.log.Error("dispatch payload marshal failed", zap.String("id", n.ID), zap.Error(err))
		return
	}
	routingKey := s.prefix + "." + strings.ToLower(string(n.Channel))
	if err := s.dispatch.Publish(ctx, payload, routingKey); err != nil {
		s.log.Error("dispatch publish failed",
			zap.String("id", n.ID),
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}

func (s *Service) ListPage(ctx context.Context, query repository.PageQuery) (model.Page, error) {
	page, err := s.store.FindPage(ctx, query)
	if err != nil {
		s.log.Error("store find page failed", zap.String("user_id", query.UserID), zap.Error(err))
		return model.Page{}, err
	}
	return page, nil
}

func (s *Service) MarkAsRead(ctx context.Context, id, userID string) (model.Notification, error) {
	updated, err := s.store.MarkAsRead(ctx, id, userID)
	if err != nil {
		return model.Notification{}, err
	}
	s.hub.Publish(userID, sse.UpdateNotificationEvent(updated))
	return updated, nil
}

func (s *Service) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	count, err := s.store.MarkAllAsRead(ctx, userID)
	if err != nil {
		s.log.Error("store mark all as read failed", zap.String("user_id", userID), zap.Error(err))
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	unread, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		s.log.Warn("count unread after bulk read failed", zap.String("user_id", userID), zap.Error(err))
		unread = 0
	}
	s.hub.Publish(userID, sse.SyncEvent(unread))
	return count, nil
}

func (s *Service) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.store.CountUnread(ctx, userID)
}

func (s *Service) MarkAsSent(ctx context.Context, id string, metadata map[string]any) error {
	if err := s.store.MarkAsSent(ctx, id, metadata); err != nil {
		return err
	}
	s.log.Info("notification marked as sent", zap.String("id", id))
	return nil
}

func (s *Service) MarkAsFailed(ctx context.Context, id string, reason string) error {
	if err := s.store.MarkAsFailed(ctx, id, reason); err != nil {
		return err
	}
	s.log.Error("notification marked as failed", zap.String("id", id), zap.String("reason", reason))
	return nil
}
