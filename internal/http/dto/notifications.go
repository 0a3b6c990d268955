package dto

import "notistream/internal/model"

type CreateNotificationRequest struct {
	UserID    string         `json:"user_id"`
	Type      string         `json:"type"`
	Channel   string         `json:"channel"`
	Subject   string         `json:"subject"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata"`
	BookingID string         `json:"booking_id"`
}

type MarkSentRequest struct {
	Metadata map[string]any `json:"metadata"`
}

type MarkFailedRequest struct {
	Reason string `json:"reason"`
}

type Pagination struct {
	Limit      int     `json:"limit"`
	Cursor     *string `json:"cursor"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

type ListNotificationsResponse struct {
	Data        []model.Notification `json:"data"`
	Pagination  Pagination           `json:"pagination"`
	UnreadCount int                  `json:"unread_count"`
}

type NotificationResponse struct {
	Data model.Notification `json:"data"`
}

type ReadAllResponse struct {
	Data struct {
		UpdatedCount int `json:"updated_count"`
	} `json:"data"`
}

type StatusResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
