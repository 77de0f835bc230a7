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

// ErrNoUnit is returned when a user does not lead any unit of the
// requested tier.
var ErrNoUnit = errors.New("no unit led by user")

type unitTable struct {
	name      string
	parentCol string
}

var unitTables = map[model.Tier]unitTable{
	model.TierSector:  {name: "sectors"},
	model.TierCell:    {name: "cells", parentCol: "sector_id"},
	model.TierVillage: {name: "villages", parentCol: "cell_id"},
	model.TierIsibo:   {name: "isibos", parentCol: "village_id"},
}

func tableFor(tier model.Tier) (unitTable, error) {
	t, ok := unitTables[tier]
	if !ok {
		return unitTable{}, fmt.Errorf("unknown tier %q", tier)
	}
	return t, nil
}

func (t unitTable) cols() string {
	if t.parentCol == "" {
		return `id, NULL, name, leader_id, created_at`
	}
	return `id, ` + t.parentCol + `, name, leader_id, created_at`
}

// UnitStore manages the four administrative unit tables.
type UnitStore struct {
	db *database.DB
}

func NewUnitStore(db *database.DB) *UnitStore {
	return &UnitStore{db: db}
}

func scanUnit(tier model.Tier, scanner interface{ Scan(...any) error }) (*model.Unit, error) {
	var (
		u        model.Unit
		parentID sql.NullInt64
		leaderID sql.NullInt64
	)
	if err := scanner.Scan(&u.ID, &parentID, &u.Name, &leaderID, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Tier = tier
	if parentID.Valid {
		u.ParentID = &parentID.Int64
	}
	if leaderID.Valid {
		u.LeaderID = &leaderID.Int64
	}
	return &u, nil
}

// Create inserts a unit. parentID must be nil for sectors and set for every
// other tier.
func (s *UnitStore) Create(ctx context.Context, tier model.Tier, parentID *int64, name string) (*model.Unit, error) {
	t, err := tableFor(tier)
	if err != nil {
		return nil, err
	}

	var id int64
	now := time.Now().UTC()
	if t.parentCol == "" {
		if parentID != nil {
			return nil, fmt.Errorf("insert %s: %s has no parent", tier, tier)
		}
		err = s.db.QueryRowContext(ctx,
			`INSERT INTO `+t.name+` (name, created_at) VALUES (?, ?) RETURNING id`,
			name, now,
		).Scan(&id)
	} else {
		if parentID == nil {
			return nil, fmt.Errorf("insert %s: parent required", tier)
		}
		err = s.db.QueryRowContext(ctx,
			`INSERT INTO `+t.name+` (`+t.parentCol+`, name, created_at) VALUES (?, ?, ?) RETURNING id`,
			*parentID, name, now,
		).Scan(&id)
	}
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", tier, err)
	}
	return s.GetByID(ctx, tier, id)
}

func (s *UnitStore) GetByID(ctx context.Context, tier model.Tier, id int64) (*model.Unit, error) {
	t, err := tableFor(tier)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+t.cols()+` FROM `+t.name+` WHERE id = ?`, id)
	u, err := scanUnit(tier, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", tier, err)
	}
	return u, nil
}

// GetByLeader returns the unit of the given tier led by userID, or nil.
func (s *UnitStore) GetByLeader(ctx context.Context, tier model.Tier, userID int64) (*model.Unit, error) {
	t, err := tableFor(tier)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+t.cols()+` FROM `+t.name+` WHERE leader_id = ?`, userID)
	u, err := scanUnit(tier, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s by leader: %w", tier, err)
	}
	return u, nil
}

// List returns every unit of a tier, optionally filtered to one parent.
func (s *UnitStore) List(ctx context.Context, tier model.Tier, parentID *int64) ([]model.Unit, error) {
	t, err := tableFor(tier)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + t.cols() + ` FROM ` + t.name
	var args []any
	if parentID != nil && t.parentCol != "" {
		query += ` WHERE ` + t.parentCol + ` = ?`
		args = append(args, *parentID)
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", tier, err)
	}
	defer rows.Close()

	var units []model.Unit
	for rows.Next() {
		u, err := scanUnit(tier, rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", tier, err)
		}
		units = append(units, *u)
	}
	return units, rows.Err()
}

// AssignLeader sets the unit's leader, replacing any previous one. A user
// already leading another unit of the same tier is rejected by the unique
// constraint on leader_id.
func (s *UnitStore) AssignLeader(ctx context.Context, tier model.Tier, unitID, userID int64) (*model.Unit, error) {
	t, err := tableFor(tier)
	if err != nil {
		return nil, err
	}
	var id int64
	err = s.db.QueryRowContext(ctx,
		`UPDATE `+t.name+` SET leader_id = ? WHERE id = ? RETURNING id`,
		userID, unitID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("assign %s leader: %w", tier, err)
	}
	return s.GetByID(ctx, tier, id)
}

// scopeSubquery selects the ids of every isibo inside the unit of the given
// tier led by a single bound user id.
func scopeSubquery(tier model.Tier) (string, error) {
	switch tier {
	case model.TierIsibo:
		return `SELECT i.id FROM isibos i WHERE i.leader_id = ?`, nil
	case model.TierVillage:
		return `SELECT i.id FROM isibos i
			JOIN villages v ON v.id = i.village_id
			WHERE v.leader_id = ?`, nil
	case model.TierCell:
		return `SELECT i.id FROM isibos i
			JOIN villages v ON v.id = i.village_id
			JOIN cells c ON c.id = v.cell_id
			WHERE c.leader_id = ?`, nil
	case model.TierSector:
		return `SELECT i.id FROM isibos i
			JOIN villages v ON v.id = i.village_id
			JOIN cells c ON c.id = v.cell_id
			JOIN sectors s ON s.id = c.sector_id
			WHERE s.leader_id = ?`, nil
	}
	return "", fmt.Errorf("unknown tier %q", tier)
}
