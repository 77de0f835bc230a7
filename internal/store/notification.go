package store

import (
	"context"
	"fmt"
	"time"

	"github.com/yvesmugisha901/umuturage-backend/internal/database"
	"github.com/yvesmugisha901/umuturage-backend/internal/model"
)

// NotificationStore appends notifications. Rows are never updated here.
type NotificationStore struct {
	db *database.DB
}

func NewNotificationStore(db *database.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func scanNotification(scanner interface{ Scan(...any) error }) (*model.Notification, error) {
	var n model.Notification
	err := scanner.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Message, &n.Status, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

const notificationCols = `id, recipient_id, type, message, status, created_at`

func (s *NotificationStore) Create(ctx context.Context, recipientID int64, typ, message string) (*model.Notification, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO notifications (recipient_id, type, message, status, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id`,
		recipientID, typ, message, model.NotificationUnread, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	n, err := scanNotification(s.db.QueryRowContext(ctx,
		`SELECT `+notificationCols+` FROM notifications WHERE id = ?`, id,
	))
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

// ListForRecipient returns the recipient's notifications, newest first.
func (s *NotificationStore) ListForRecipient(ctx context.Context, recipientID int64) ([]model.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+notificationCols+` FROM notifications WHERE recipient_id = ? ORDER BY created_at DESC, id DESC`,
		recipientID,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, *n)
	}
	return notifications, rows.Err()
}
