package model

import "time"

const (
	NotificationUnread = "unread"
	NotificationRead   = "read"
)

type Notification struct {
	ID          int64     `json:"id"`
	RecipientID int64     `json:"recipient_id"`
	Type        string    `json:"type"`
	Message     string    `json:"message"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
