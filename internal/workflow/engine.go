// Package workflow moves household submissions through village, cell and
// sector review.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yvesmugisha901/umuturage-backend/internal/model"
	"github.com/yvesmugisha901/umuturage-backend/internal/store"
)

// Notification types emitted by the engine.
const (
	NotifySubmitted = "household_submitted"
	NotifyApproved  = "household_approved"
	NotifyRejected  = "household_rejected"
	NotifyUpdated   = "household_updated"
	NotifyDeleted   = "household_deleted"
)

// Store is the persistence the engine needs. *store.HouseholdStore
// satisfies it.
type Store interface {
	Create(ctx context.Context, leaderID int64, head string, members int, location string) (*model.Household, error)
	GetOwned(ctx context.Context, id, leaderID int64) (*model.Household, error)
	ListOwned(ctx context.Context, leaderID int64) ([]model.Household, error)
	ListPending(ctx context.Context, tier model.Tier, reviewerID int64, status model.Status, sortBy store.SortField) ([]model.Household, error)
	Transition(ctx context.Context, p store.TransitionParams) (*model.Household, error)
	UpdateDetails(ctx context.Context, id, leaderID int64, head string, members int, location string) (*model.Household, error)
	Delete(ctx context.Context, id, leaderID int64) (*model.Household, error)
	History(ctx context.Context, householdID int64) ([]model.Transition, error)
}

// Notifier receives a message for an isibo leader after a change commits.
type Notifier interface {
	Notify(ctx context.Context, recipientID int64, typ, message string) error
}

type Engine struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an engine. notifier may be nil.
func New(s Store, notifier Notifier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:    s,
		notifier: notifier,
		logger:   logger.With("component", "workflow"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func validateDetails(head string, members int, location string) error {
	if strings.TrimSpace(head) == "" {
		return &ValidationError{Field: "head", Message: "is required"}
	}
	if strings.TrimSpace(location) == "" {
		return &ValidationError{Field: "location", Message: "is required"}
	}
	if members < 0 {
		return &ValidationError{Field: "members", Message: "must not be negative"}
	}
	return nil
}

func (e *Engine) notify(ctx context.Context, recipientID int64, typ, message string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, recipientID, typ, message); err != nil {
		e.logger.Error("notify failed", "recipient_id", recipientID, "type", typ, "error", err)
	}
}

// Submit records a new pending household in the isibo led by leaderID.
func (e *Engine) Submit(ctx context.Context, leaderID int64, head string, members int, location string) (*model.Household, error) {
	head, location = strings.TrimSpace(head), strings.TrimSpace(location)
	if err := validateDetails(head, members, location); err != nil {
		return nil, err
	}

	h, err := e.store.Create(ctx, leaderID, head, members, location)
	if errors.Is(err, store.ErrNoUnit) {
		return nil, fmt.Errorf("%w: user %d leads no isibo", ErrRoleDenied, leaderID)
	}
	if err != nil {
		return nil, storeErr("submit household", err)
	}

	e.logger.Info("household submitted", "household_id", h.ID, "isibo_id", h.IsiboID, "leader_id", leaderID)
	e.notify(ctx, h.SubmittedBy, NotifySubmitted, "New household added: "+h.Head)
	return h, nil
}

// ListPending returns the households awaiting tier review inside the unit
// led by reviewerID, most recent first. A reviewer leading no unit gets an
// empty list.
func (e *Engine) ListPending(ctx context.Context, reviewerID int64, tier model.Tier) ([]model.Household, error) {
	r, ok := rules[tier]
	if !ok {
		return nil, &ValidationError{Field: "tier", Message: fmt.Sprintf("%q does not review households", tier)}
	}

	list, err := e.store.ListPending(ctx, tier, reviewerID, r.awaiting, r.sortBy)
	if err != nil {
		return nil, storeErr("list pending", err)
	}
	if list == nil {
		list = []model.Household{}
	}
	return list, nil
}

// Advance approves the household at tier.
func (e *Engine) Advance(ctx context.Context, reviewerID, householdID int64, tier model.Tier) (*model.Household, error) {
	r, ok := rules[tier]
	if !ok {
		return nil, &ValidationError{Field: "tier", Message: fmt.Sprintf("%q does not review households", tier)}
	}
	h, err := e.transition(ctx, store.TransitionParams{
		HouseholdID: householdID,
		ActorID:     reviewerID,
		Tier:        tier,
		Action:      model.ActionApprove,
		From:        r.awaiting,
		To:          r.approveTo,
		Stamp:       r.stamp,
	})
	if err != nil {
		return nil, err
	}
	e.notify(ctx, h.SubmittedBy, NotifyApproved, fmt.Sprintf("Household approved at %s level: %s", tier, h.Head))
	return h, nil
}

// Revert rejects the household at tier, moving it back one step.
func (e *Engine) Revert(ctx context.Context, reviewerID, householdID int64, tier model.Tier) (*model.Household, error) {
	r, ok := rules[tier]
	if !ok {
		return nil, &ValidationError{Field: "tier", Message: fmt.Sprintf("%q does not review households", tier)}
	}
	h, err := e.transition(ctx, store.TransitionParams{
		HouseholdID: householdID,
		ActorID:     reviewerID,
		Tier:        tier,
		Action:      model.ActionReject,
		From:        r.awaiting,
		To:          r.rejectTo,
		Clear:       r.clear,
	})
	if err != nil {
		return nil, err
	}
	e.notify(ctx, h.SubmittedBy, NotifyRejected, fmt.Sprintf("Household rejected at %s level: %s", tier, h.Head))
	return h, nil
}

func (e *Engine) transition(ctx context.Context, p store.TransitionParams) (*model.Household, error) {
	p.At = e.now()
	h, err := e.store.Transition(ctx, p)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("%s household", p.Action), err)
	}
	if h == nil {
		return nil, ErrNotFoundOrUnauthorized
	}
	e.logger.Info("household transition",
		"household_id", h.ID,
		"tier", p.Tier,
		"action", p.Action,
		"from", p.From,
		"to", p.To,
		"actor_id", p.ActorID,
	)
	return h, nil
}

// History returns the transitions of a household owned by leaderID.
func (e *Engine) History(ctx context.Context, leaderID, householdID int64) ([]model.Transition, error) {
	h, err := e.store.GetOwned(ctx, householdID, leaderID)
	if err != nil {
		return nil, storeErr("get household", err)
	}
	if h == nil {
		return nil, ErrNotFoundOrUnauthorized
	}
	trail, err := e.store.History(ctx, householdID)
	if err != nil {
		return nil, storeErr("list history", err)
	}
	return trail, nil
}

// ListOwn returns every household in the isibo led by leaderID.
func (e *Engine) ListOwn(ctx context.Context, leaderID int64) ([]model.Household, error) {
	list, err := e.store.ListOwned(ctx, leaderID)
	if err != nil {
		return nil, storeErr("list households", err)
	}
	if list == nil {
		list = []model.Household{}
	}
	return list, nil
}

// Update edits a household that has not been reviewed yet.
func (e *Engine) Update(ctx context.Context, leaderID, householdID int64, head string, members int, location string) (*model.Household, error) {
	head, location = strings.TrimSpace(head), strings.TrimSpace(location)
	if err := validateDetails(head, members, location); err != nil {
		return nil, err
	}

	h, err := e.store.UpdateDetails(ctx, householdID, leaderID, head, members, location)
	if err != nil {
		return nil, storeErr("update household", err)
	}
	if h == nil {
		return nil, ErrNotFoundOrUnauthorized
	}

	e.logger.Info("household updated", "household_id", h.ID, "leader_id", leaderID)
	e.notify(ctx, h.SubmittedBy, NotifyUpdated, "Household updated: "+h.Head)
	return h, nil
}

func (e *Engine) Delete(ctx context.Context, leaderID, householdID int64) (*model.Household, error) {
	h, err := e.store.Delete(ctx, householdID, leaderID)
	if err != nil {
		return nil, storeErr("delete household", err)
	}
	if h == nil {
		return nil, ErrNotFoundOrUnauthorized
	}

	e.logger.Info("household deleted", "household_id", h.ID, "leader_id", leaderID)
	e.notify(ctx, h.SubmittedBy, NotifyDeleted, "Household deleted: "+h.Head)
	return h, nil
}
