package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"notistream/internal/config"
	"notistream/internal/domain"
	"notistream/internal/http/dto"
	"notistream/internal/http/middleware"
	"notistream/internal/http/resp"
	"notistream/internal/model"
	"notistream/internal/repository"
	"notistream/internal/service/notify"
	"notistream/internal/sse"
)

type Handler struct {
	cfg     *config.Config
	svc     *notify.Service
	hub     *sse.Hub
	log     *zap.Logger
	metrics *middleware.Metrics
}

func NewHandler(cfg *config.Config, svc *notify.Service, hub *sse.Hub, logger *zap.Logger, metrics *middleware.Metrics) *Handler {
	return &Handler{cfg: cfg, svc: svc, hub: hub, log: logger, metrics: metrics}
}

// maxPageLimit mirrors the stores' clamp so the echoed pagination.limit
// matches the page actually served.
const maxPageLimit = 100

// ListNotifications serves both regular listing and the polling fallback:
// the page shape is identical to what a resyncing client consumes.
func (h *Handler) ListNotifications(c *gin.Context) {
	userID := middleware.UserID(c)

	limit := h.cfg.PageLimit
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	query := repository.PageQuery{
		UserID:     userID,
		Limit:      limit,
		Cursor:     c.Query("cursor"),
		UnreadOnly: c.Query("unread_only") == "true",
	}

	page, err := h.svc.ListPage(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: resp.CodeInternalError, Message: "failed to list notifications"})
		return
	}

	response := dto.ListNotificationsResponse{
		Data:        page.Items,
		Pagination:  dto.Pagination{Limit: limit, HasMore: page.HasMore},
		UnreadCount: page.UnreadCount,
	}
	if response.Data == nil {
		response.Data = []model.Notification{}
	}
	if query.Cursor != "" {
		cursor := query.Cursor
		response.Pagination.Cursor = &cursor
	}
	if page.HasMore {
		next := page.NextCursor
		response.Pagination.NextCursor = &next
	}
	c.JSON(http.StatusOK, response)
}

func (h *Handler) MarkAsRead(c *gin.Context) {
	userID := middleware.UserID(c)
	id := c.Param("id")

	updated, err := h.svc.MarkAsRead(c.Request.Context(), id, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotificationNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Code: resp.CodeNotFound, Message: "notification not found"})
			return
		}
		h.log.Error("mark as read failed", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: resp.CodeInternalError, Message: "failed to update notification"})
		return
	}
	c.JSON(http.StatusOK, dto.NotificationResponse{Data: updated})
}

func (h *Handler) MarkAllAsRead(c *gin.Context) {
	userID := middleware.UserID(c)

	count, err := h.svc.MarkAllAsRead(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: resp.CodeInternalError, Message: "failed to update notifications"})
		return
	}
	response := dto.ReadAllResponse{}
	response.Data.UpdatedCount = count
	c.JSON(http.StatusOK, response)
}

func (h *Handler) CreateNotification(c *gin.Context) {
	var req dto.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: "invalid json"})
		return
	}
	if req.UserID == "" || req.Type == "" || req.Message == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: "user_id, type, message are required"})
		return
	}

	created, err := h.svc.Create(c.Request.Context(), notify.CreateInput{
		UserID:    req.UserID,
		Type:      domain.NotificationType(req.Type),
		Channel:   domain.NotificationChannel(req.Channel),
		Subject:   req.Subject,
		Message:   req.Message,
		Metadata:  req.Metadata,
		BookingID: req.BookingID,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidNotificationType) || errors.Is(err, domain.ErrInvalidNotificationChannel) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: err.Error()})
			return
		}
		h.log.Error("create notification failed",
			zap.String("user_id", req.UserID),
			zap.String("type", req.Type),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: resp.CodeInternalError, Message: "failed to create notification"})
		return
	}
	c.JSON(http.StatusCreated, dto.NotificationResponse{Data: created})
}

func (h *Handler) MarkAsSent(c *gin.Context) {
	id := c.Param("id")
	// Metadata body is optional.
	var req dto.MarkSentRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.svc.MarkAsSent(c.Request.Context(), id, req.Metadata); err != nil {
		if errors.Is(err, domain.ErrNotificationNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Code: resp.CodeNotFound, Message: "notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: resp.CodeInternalError, Message: "failed to update notification"})
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{Code: "SENT", Message: "notification marked as sent"})
}

func (h *Handler) MarkAsFailed(c *gin.Context) {
	id := c.Param("id")
	var req dto.MarkFailedRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Reason == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: "reason is required"})
		return
	}

	if err := h.svc.MarkAsFailed(c.Request.Context(), id, req.Reason); err != nil {
		if errors.Is(err, domain.ErrNotificationNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Code: resp.CodeNotFound, Message: "notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: resp.CodeInternalError, Message: "failed to update notification"})
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{Code: "FAILED", Message: "notification marked as failed"})
}

// Stream is the server half of the long-lived push channel: subscribe,
// confirm liveness with init, forward hub events by name, heartbeat with
// ping. The subscription is released on every exit path.
func (h *Handler) Stream(c *gin.Context) {
	userID := middleware.UserID(c)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		h.log.Error("streaming unsupported", zap.String("user_id", userID))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: resp.CodeInternalError, Message: "streaming unsupported"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	sub := h.hub.Subscribe(userID)
	defer h.hub.Unsubscribe(sub)

	if h.metrics != nil {
		h.metrics.StreamOpened()
		defer h.metrics.StreamClosed()
	}

	if err := writeEvent(c.Writer, sse.Event{Kind: sse.EventInit}); err != nil {
		h.log.Error("write init event failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(h.cfg.StreamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-heartbeat.C:
			if err := writeEvent(c.Writer, sse.Event{Kind: sse.EventPing}); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-sub.C():
			if !ok {
				return
			}
			if err := writeEvent(c.Writer, event); err != nil {
				h.log.Error("write event failed",
					zap.String("user_id", userID),
					zap.String("event", string(event.Kind)),
					zap.Error(err),
				)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event sse.Event) error {
	payload, err := event.Payload()
	if err != nil {
		return err
	}
	if payload == nil {
		payload = []byte("{}")
	}
	if event.Notification != nil {
		_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.Notification.ID, event.Kind, payload)
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, payload)
	return err
}
