package store

import (
	"context"
	"testing"

	"github.com/yvesmugisha901/umuturage-backend/internal/model"
)

func TestNotificationCreate(t *testing.T) {
	db := setupTestDB(t)
	ns := NewNotificationStore(db)
	ctx := context.Background()

	u, err := NewUserStore(db).Create(ctx, "isibo", "isibo@example.com", "hash", model.RoleIsiboLeader)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	n, err := ns.Create(ctx, u.ID, "household_approved", "Household approved: Mukamana")
	if err != nil {
		t.Fatalf("create notification: %v", err)
	}
	if n.Status != model.NotificationUnread {
		t.Errorf("status = %q, want %q", n.Status, model.NotificationUnread)
	}
	if n.RecipientID != u.ID {
		t.Errorf("recipient = %d, want %d", n.RecipientID, u.ID)
	}

	list, err := ns.ListForRecipient(ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Message != "Household approved: Mukamana" {
		t.Fatalf("list = %+v", list)
	}
}
