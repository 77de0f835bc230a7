package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yvesmugisha901/umuturage-backend/internal/database"
	"github.com/yvesmugisha901/umuturage-backend/internal/model"
	"github.com/yvesmugisha901/umuturage-backend/internal/store"
	"github.com/yvesmugisha901/umuturage-backend/internal/websocket"
)

type fakePusher struct {
	userID int64
	msgs   []websocket.Message
}

func (p *fakePusher) SendTo(userID int64, msg websocket.Message) int {
	p.userID = userID
	p.msgs = append(p.msgs, msg)
	return 1
}

type fakePublisher struct {
	keys   []string
	events []any
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, routingKey string, v any) error {
	p.keys = append(p.keys, routingKey)
	p.events = append(p.events, v)
	return p.err
}

type failingRecorder struct{}

func (failingRecorder) Create(context.Context, int64, string, string) (*model.Notification, error) {
	return nil, errors.New("database is locked")
}

func setupNotifyTestDB(t *testing.T) (*store.NotificationStore, *model.User) {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	u, err := store.NewUserStore(db).Create(context.Background(), "isibo", "isibo@example.com", "hash", model.RoleIsiboLeader)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return store.NewNotificationStore(db), u
}

func TestNotifyFansOut(t *testing.T) {
	ns, u := setupNotifyTestDB(t)
	hub := &fakePusher{}
	pub := &fakePublisher{}
	d := NewDispatcher(ns, hub, pub, slog.Default())
	ctx := context.Background()

	if err := d.Notify(ctx, u.ID, "household_approved", "Household approved at cell level: Jane Doe"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	d.Wait()

	stored, err := ns.ListForRecipient(ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("stored = %d, want 1", len(stored))
	}

	if hub.userID != u.ID || len(hub.msgs) != 1 {
		t.Fatalf("hub got user %d, %d messages", hub.userID, len(hub.msgs))
	}
	if hub.msgs[0].Type != "notification_created" {
		t.Errorf("hub type = %q, want notification_created", hub.msgs[0].Type)
	}

	if len(pub.keys) != 1 || pub.keys[0] != "notification.household_approved" {
		t.Fatalf("routing keys = %v", pub.keys)
	}
	ev, ok := pub.events[0].(Event)
	if !ok {
		t.Fatalf("event type = %T, want Event", pub.events[0])
	}
	if ev.NotificationID != stored[0].ID || ev.RecipientID != u.ID {
		t.Errorf("event = %+v", ev)
	}
	if ev.CreatedAt.IsZero() || time.Since(ev.CreatedAt) > time.Minute {
		t.Errorf("event created_at = %v", ev.CreatedAt)
	}
}

func TestNotifyBrokerFailureIsNotFatal(t *testing.T) {
	ns, u := setupNotifyTestDB(t)
	d := NewDispatcher(ns, nil, &fakePublisher{err: errors.New("channel closed")}, slog.Default())

	if err := d.Notify(context.Background(), u.ID, "household_submitted", "New household added: Jane"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	d.Wait()
}

func TestNotifyStoreFailure(t *testing.T) {
	hub := &fakePusher{}
	d := NewDispatcher(failingRecorder{}, hub, nil, slog.Default())

	if err := d.Notify(context.Background(), 1, "household_submitted", "x"); err == nil {
		t.Fatal("expected error when store fails")
	}
	if len(hub.msgs) != 0 {
		t.Error("expected no push when the notification was not recorded")
	}
}

type fakeMailer struct {
	to, subject, text, tag string
	err                    error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, text, tag string) error {
	m.to, m.subject, m.text, m.tag = to, subject, text, tag
	return m.err
}

type userByID struct {
	u *model.User
}

func (l userByID) GetByID(_ context.Context, id int64) (*model.User, error) {
	if l.u != nil && l.u.ID == id {
		return l.u, nil
	}
	return nil, nil
}

func TestNotifyEmailsRecipient(t *testing.T) {
	ns, u := setupNotifyTestDB(t)
	m := &fakeMailer{}
	d := NewDispatcher(ns, nil, nil, slog.Default(), WithMailer(m, userByID{u}))

	if err := d.Notify(context.Background(), u.ID, "household_rejected", "Household rejected at village level: Jane"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	d.Wait()
	if m.to != "isibo@example.com" {
		t.Errorf("to = %q, want isibo@example.com", m.to)
	}
	if m.subject != "Household rejected" || m.tag != "household_rejected" {
		t.Errorf("subject = %q, tag = %q", m.subject, m.tag)
	}
	if m.text != "Household rejected at village level: Jane" {
		t.Errorf("text = %q", m.text)
	}
}

func TestNotifyEmailFailureIsNotFatal(t *testing.T) {
	ns, u := setupNotifyTestDB(t)
	m := &fakeMailer{err: errors.New("postmark down")}
	d := NewDispatcher(ns, nil, nil, slog.Default(), WithMailer(m, userByID{u}))

	if err := d.Notify(context.Background(), u.ID, "household_submitted", "New household added: Jane"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	d.Wait()
	if m.to == "" {
		t.Error("expected a send attempt")
	}
}

type blockingMailer struct {
	release chan struct{}
	sent    atomic.Int32
}

func (m *blockingMailer) Send(ctx context.Context, _, _, _, _ string) error {
	select {
	case <-m.release:
		m.sent.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestNotifyDoesNotWaitForDelivery(t *testing.T) {
	ns, u := setupNotifyTestDB(t)
	m := &blockingMailer{release: make(chan struct{})}
	d := NewDispatcher(ns, nil, nil, slog.Default(), WithMailer(m, userByID{u}))

	done := make(chan error, 1)
	go func() {
		done <- d.Notify(context.Background(), u.ID, "household_approved", "Household approved at village level: Jane")
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("notify: %v", err)
		}
	case <-time.After(2 * time.Second):
		close(m.release)
		t.Fatal("Notify blocked on the mailer")
	}

	stored, err := ns.ListForRecipient(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("stored = %d, want 1 before delivery finishes", len(stored))
	}

	close(m.release)
	d.Wait()
	if m.sent.Load() != 1 {
		t.Errorf("sent = %d, want 1", m.sent.Load())
	}
}

func TestNotifyOutlivesCanceledRequest(t *testing.T) {
	ns, u := setupNotifyTestDB(t)
	pub := &fakePublisher{}
	d := NewDispatcher(ns, nil, pub, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.Notify(ctx, u.ID, "household_rejected", "Household rejected at cell level: Jane"); err != nil {
		t.Fatalf("notify with canceled context: %v", err)
	}
	d.Wait()

	stored, err := ns.ListForRecipient(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("stored = %d, want 1", len(stored))
	}
	if len(pub.keys) != 1 {
		t.Errorf("published = %d, want 1", len(pub.keys))
	}
}

func TestNotifyDeliveryTimeout(t *testing.T) {
	ns, u := setupNotifyTestDB(t)
	m := &blockingMailer{release: make(chan struct{})}
	d := NewDispatcher(ns, nil, nil, slog.Default(), WithMailer(m, userByID{u}), WithDeliveryTimeout(50*time.Millisecond))

	if err := d.Notify(context.Background(), u.ID, "household_submitted", "New household added: Jane"); err != nil {
		t.Fatalf("notify: %v", err)
	}

	waited := make(chan struct{})
	go func() {
		d.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		close(m.release)
		t.Fatal("delivery did not time out")
	}
	if m.sent.Load() != 0 {
		t.Errorf("sent = %d, want 0 after timeout", m.sent.Load())
	}
}
