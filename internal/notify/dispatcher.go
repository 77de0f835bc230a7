// Package notify records notifications for isibo leaders and fans them out
// to live connections and the message broker.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yvesmugisha901/umuturage-backend/internal/model"
	"github.com/yvesmugisha901/umuturage-backend/internal/websocket"
)

type Recorder interface {
	Create(ctx context.Context, recipientID int64, typ, message string) (*model.Notification, error)
}

type Pusher interface {
	SendTo(userID int64, msg websocket.Message) int
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, v any) error
}

type Mailer interface {
	Send(ctx context.Context, to, subject, text, tag string) error
}

type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// Event is the broker payload for a stored notification.
type Event struct {
	NotificationID int64     `json:"notification_id"`
	RecipientID    int64     `json:"recipient_id"`
	Type           string    `json:"type"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}

// DefaultDeliveryTimeout bounds the background push, publish and email of
// one notification.
const DefaultDeliveryTimeout = 30 * time.Second

type Dispatcher struct {
	store   Recorder
	hub     Pusher
	broker  Publisher
	mailer  Mailer
	users   UserLookup
	timeout time.Duration
	logger  *slog.Logger

	wg sync.WaitGroup
}

type Option func(*Dispatcher)

func WithDeliveryTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		disp.timeout = d
	}
}

// WithMailer emails each notification to the recipient's address.
func WithMailer(m Mailer, users UserLookup) Option {
	return func(d *Dispatcher) {
		d.mailer = m
		d.users = users
	}
}

// NewDispatcher creates a Dispatcher. hub and broker may be nil.
func NewDispatcher(store Recorder, hub Pusher, broker Publisher, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:   store,
		hub:     hub,
		broker:  broker,
		timeout: DefaultDeliveryTimeout,
		logger:  logger.With("component", "notify"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify persists the notification and returns. Delivery to the
// recipient's open connections, the broker and the mailer happens in the
// background and outlives ctx. Only the store write can fail the call.
func (d *Dispatcher) Notify(ctx context.Context, recipientID int64, typ, message string) error {
	// The triggering change has already committed.
	ctx = context.WithoutCancel(ctx)

	n, err := d.store.Create(ctx, recipientID, typ, message)
	if err != nil {
		return fmt.Errorf("record notification: %w", err)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		d.deliver(ctx, n)
	}()
	return nil
}

// Wait blocks until every background delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, n *model.Notification) {
	if d.hub != nil {
		msg := websocket.NewMessage("notification", "created", n.ID, n.Message, map[string]any{"type": n.Type})
		d.hub.SendTo(n.RecipientID, msg)
	}

	if d.broker != nil {
		ev := Event{
			NotificationID: n.ID,
			RecipientID:    n.RecipientID,
			Type:           n.Type,
			Message:        n.Message,
			CreatedAt:      n.CreatedAt,
		}
		if err := d.broker.Publish(ctx, RoutingKey(n.Type), ev); err != nil {
			d.logger.Error("publish notification", "notification_id", n.ID, "error", err)
		}
	}

	if d.mailer != nil && d.users != nil {
		d.email(ctx, n)
	}
}

func (d *Dispatcher) email(ctx context.Context, n *model.Notification) {
	u, err := d.users.GetByID(ctx, n.RecipientID)
	if err != nil {
		d.logger.Error("lookup notification recipient", "notification_id", n.ID, "error", err)
		return
	}
	if u == nil || u.Email == "" {
		return
	}
	if err := d.mailer.Send(ctx, u.Email, subject(n.Type), n.Message, n.Type); err != nil {
		d.logger.Error("email notification", "notification_id", n.ID, "error", err)
	}
}

func subject(typ string) string {
	switch typ {
	case "household_submitted":
		return "Household submitted"
	case "household_approved":
		return "Household approved"
	case "household_rejected":
		return "Household rejected"
	case "household_updated":
		return "Household updated"
	case "household_deleted":
		return "Household deleted"
	}
	return "Umuturage notification"
}

func RoutingKey(typ string) string {
	return "notification." + typ
}
