package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yvesmugisha901/umuturage-backend/internal/database"
	"github.com/yvesmugisha901/umuturage-backend/internal/model"
)

// Timestamp columns a transition may stamp or clear.
type TimestampField string

const (
	CellApprovedAt   TimestampField = "cell_approved_at"
	SectorApprovedAt TimestampField = "sector_approved_at"
)

// Sort keys accepted by ListPending.
type SortField string

const (
	SortCreatedAt      SortField = "created_at"
	SortUpdatedAt      SortField = "updated_at"
	SortCellApprovedAt SortField = "cell_approved_at"
)

func (f TimestampField) valid() bool {
	return f == CellApprovedAt || f == SectorApprovedAt
}

func (f SortField) valid() bool {
	return f == SortCreatedAt || f == SortUpdatedAt || f == SortCellApprovedAt
}

type HouseholdStore struct {
	db *database.DB
}

func NewHouseholdStore(db *database.DB) *HouseholdStore {
	return &HouseholdStore{db: db}
}

func scanHousehold(scanner interface{ Scan(...any) error }) (*model.Household, error) {
	var (
		h              model.Household
		cellApproved   sql.NullTime
		sectorApproved sql.NullTime
	)
	err := scanner.Scan(
		&h.ID, &h.IsiboID, &h.SubmittedBy, &h.Head, &h.Members, &h.Location, &h.Status,
		&cellApproved, &sectorApproved, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if !h.Status.Valid() {
		return nil, fmt.Errorf("household %d has unknown status %q", h.ID, h.Status)
	}
	if cellApproved.Valid {
		h.CellApprovedAt = &cellApproved.Time
	}
	if sectorApproved.Valid {
		h.SectorApprovedAt = &sectorApproved.Time
	}
	return &h, nil
}

func scanTransition(scanner interface{ Scan(...any) error }) (*model.Transition, error) {
	var tr model.Transition
	err := scanner.Scan(&tr.ID, &tr.HouseholdID, &tr.ActorID, &tr.Tier, &tr.Action, &tr.FromStatus, &tr.ToStatus, &tr.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &tr, nil
}

const householdCols = `id, isibo_id, submitted_by, head, members, location, status, cell_approved_at, sector_approved_at, created_at, updated_at`
const transitionCols = `id, household_id, actor_id, tier, action, from_status, to_status, created_at`

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getHousehold(ctx context.Context, q rowQuerier, id int64) (*model.Household, error) {
	h, err := scanHousehold(q.QueryRowContext(ctx, `SELECT `+householdCols+` FROM households WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}

func collectHouseholds(rows *sql.Rows) ([]model.Household, error) {
	defer rows.Close()
	var households []model.Household
	for rows.Next() {
		h, err := scanHousehold(rows)
		if err != nil {
			return nil, fmt.Errorf("scan household: %w", err)
		}
		households = append(households, *h)
	}
	return households, rows.Err()
}

func insertTransition(ctx context.Context, tx *database.Tx, tr model.Transition) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO household_transitions (household_id, actor_id, tier, action, from_status, to_status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tr.HouseholdID, tr.ActorID, tr.Tier, tr.Action, tr.FromStatus, tr.ToStatus, tr.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

// Create inserts a pending household under the isibo led by leaderID and
// records the submit transition. Returns ErrNoUnit when the leader has no
// isibo.
func (s *HouseholdStore) Create(ctx context.Context, leaderID int64, head string, members int, location string) (*model.Household, error) {
	var h *model.Household
	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		var isiboID int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM isibos WHERE leader_id = ?`, leaderID).Scan(&isiboID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoUnit
		}
		if err != nil {
			return fmt.Errorf("find isibo: %w", err)
		}

		now := time.Now().UTC()
		var id int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO households (isibo_id, submitted_by, head, members, location, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 RETURNING id`,
			isiboID, leaderID, head, members, location, model.StatusPending, now, now,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert household: %w", err)
		}

		err = insertTransition(ctx, tx, model.Transition{
			HouseholdID: id,
			ActorID:     leaderID,
			Tier:        model.TierIsibo,
			Action:      model.ActionSubmit,
			ToStatus:    model.StatusPending,
			CreatedAt:   now,
		})
		if err != nil {
			return err
		}
		h, err = getHousehold(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// GetOwned returns the household only if it sits in the isibo led by
// leaderID.
func (s *HouseholdStore) GetOwned(ctx context.Context, id, leaderID int64) (*model.Household, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+householdCols+` FROM households
		 WHERE id = ? AND isibo_id IN (SELECT id FROM isibos WHERE leader_id = ?)`,
		id, leaderID,
	)
	h, err := scanHousehold(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get owned household: %w", err)
	}
	return h, nil
}

// ListOwned returns every household in the isibo led by leaderID, newest first.
func (s *HouseholdStore) ListOwned(ctx context.Context, leaderID int64) ([]model.Household, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+householdCols+` FROM households
		 WHERE isibo_id IN (SELECT id FROM isibos WHERE leader_id = ?)
		 ORDER BY created_at DESC, id DESC`,
		leaderID,
	)
	if err != nil {
		return nil, fmt.Errorf("list owned households: %w", err)
	}
	return collectHouseholds(rows)
}

// ListPending returns households in status inside the unit of tier led by
// reviewerID, ordered by sortBy descending.
func (s *HouseholdStore) ListPending(ctx context.Context, tier model.Tier, reviewerID int64, status model.Status, sortBy SortField) ([]model.Household, error) {
	scope, err := scopeSubquery(tier)
	if err != nil {
		return nil, err
	}
	if !sortBy.valid() {
		return nil, fmt.Errorf("invalid sort field %q", sortBy)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+householdCols+` FROM households
		 WHERE status = ? AND isibo_id IN (`+scope+`)
		 ORDER BY `+string(sortBy)+` DESC, id DESC`,
		status, reviewerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending households: %w", err)
	}
	return collectHouseholds(rows)
}

// TransitionParams describes one check-and-set status change.
type TransitionParams struct {
	HouseholdID int64
	ActorID     int64
	Tier        model.Tier
	Action      model.Action
	From        model.Status
	To          model.Status
	Stamp       []TimestampField
	Clear       []TimestampField
	At          time.Time
}

// Transition moves a household from p.From to p.To only if it is still in
// p.From and sits inside the unit of p.Tier led by p.ActorID. The update and
// the history row commit together. Returns (nil, nil) when no row matched.
func (s *HouseholdStore) Transition(ctx context.Context, p TransitionParams) (*model.Household, error) {
	scope, err := scopeSubquery(p.Tier)
	if err != nil {
		return nil, err
	}
	if p.At.IsZero() {
		p.At = time.Now().UTC()
	}

	set := `status = ?, updated_at = ?`
	args := []any{p.To, p.At}
	for _, f := range p.Stamp {
		if !f.valid() {
			return nil, fmt.Errorf("invalid timestamp field %q", f)
		}
		set += `, ` + string(f) + ` = ?`
		args = append(args, p.At)
	}
	for _, f := range p.Clear {
		if !f.valid() {
			return nil, fmt.Errorf("invalid timestamp field %q", f)
		}
		set += `, ` + string(f) + ` = NULL`
	}
	args = append(args, p.HouseholdID, p.From, p.ActorID)

	var h *model.Household
	err = s.db.InTx(ctx, func(tx *database.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx,
			`UPDATE households SET `+set+`
			 WHERE id = ? AND status = ? AND isibo_id IN (`+scope+`)
			 RETURNING id`,
			args...,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("update household status: %w", err)
		}

		err = insertTransition(ctx, tx, model.Transition{
			HouseholdID: id,
			ActorID:     p.ActorID,
			Tier:        p.Tier,
			Action:      p.Action,
			FromStatus:  p.From,
			ToStatus:    p.To,
			CreatedAt:   p.At,
		})
		if err != nil {
			return err
		}
		h, err = getHousehold(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// UpdateDetails edits a household that is still pending in the isibo led by
// leaderID. Returns (nil, nil) when no such household exists.
func (s *HouseholdStore) UpdateDetails(ctx context.Context, id, leaderID int64, head string, members int, location string) (*model.Household, error) {
	err := s.db.QueryRowContext(ctx,
		`UPDATE households SET head = ?, members = ?, location = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND isibo_id IN (SELECT id FROM isibos WHERE leader_id = ?)
		 RETURNING id`,
		head, members, location, time.Now().UTC(), id, model.StatusPending, leaderID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update household: %w", err)
	}
	return getHousehold(ctx, s.db, id)
}

// Delete removes a household in the isibo led by leaderID regardless of its
// status and returns the deleted row, or nil if nothing matched.
func (s *HouseholdStore) Delete(ctx context.Context, id, leaderID int64) (*model.Household, error) {
	var h *model.Household
	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		var err error
		h, err = scanHousehold(tx.QueryRowContext(ctx,
			`SELECT `+householdCols+` FROM households
			 WHERE id = ? AND isibo_id IN (SELECT id FROM isibos WHERE leader_id = ?)`,
			id, leaderID,
		))
		if errors.Is(err, sql.ErrNoRows) {
			h = nil
			return nil
		}
		if err != nil {
			return fmt.Errorf("get household: %w", err)
		}
		// The trail outlives the household.
		err = insertTransition(ctx, tx, model.Transition{
			HouseholdID: id,
			ActorID:     leaderID,
			Tier:        model.TierIsibo,
			Action:      model.ActionDelete,
			FromStatus:  h.Status,
			CreatedAt:   time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM households WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete household: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// History returns the household's transitions oldest first.
func (s *HouseholdStore) History(ctx context.Context, householdID int64) ([]model.Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transitionCols+` FROM household_transitions
		 WHERE household_id = ?
		 ORDER BY created_at ASC, id ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var transitions []model.Transition
	for rows.Next() {
		tr, err := scanTransition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		transitions = append(transitions, *tr)
	}
	return transitions, rows.Err()
}
