package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/yvesmugisha901/umuturage-backend/internal/database"
	"github.com/yvesmugisha901/umuturage-backend/internal/model"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// hierarchy is one sector > cell > village > isibo chain with a leader
// on every tier.
type hierarchy struct {
	sector, cell, village, isibo                         *model.Unit
	sectorLeader, cellLeader, villageLeader, isiboLeader *model.User
}

var hierarchySeq int

func seedHierarchy(t *testing.T, db *database.DB, sectorID *int64) hierarchy {
	t.Helper()
	ctx := context.Background()
	users := NewUserStore(db)
	units := NewUnitStore(db)
	hierarchySeq++
	n := hierarchySeq

	mkUser := func(role model.Role) *model.User {
		t.Helper()
		u, err := users.Create(ctx, fmt.Sprintf("%s-%d", role, n), fmt.Sprintf("%s-%d@example.com", role, n), "hash", role)
		if err != nil {
			t.Fatalf("create %s: %v", role, err)
		}
		return u
	}
	mkUnit := func(tier model.Tier, parentID *int64, leader *model.User) *model.Unit {
		t.Helper()
		u, err := units.Create(ctx, tier, parentID, fmt.Sprintf("%s-%d", tier, n))
		if err != nil {
			t.Fatalf("create %s: %v", tier, err)
		}
		u, err = units.AssignLeader(ctx, tier, u.ID, leader.ID)
		if err != nil {
			t.Fatalf("assign %s leader: %v", tier, err)
		}
		return u
	}

	var h hierarchy
	h.sectorLeader = mkUser(model.RoleSectorLeader)
	h.cellLeader = mkUser(model.RoleCellLeader)
	h.villageLeader = mkUser(model.RoleVillageLeader)
	h.isiboLeader = mkUser(model.RoleIsiboLeader)

	if sectorID == nil {
		h.sector = mkUnit(model.TierSector, nil, h.sectorLeader)
		sectorID = &h.sector.ID
	}
	h.cell = mkUnit(model.TierCell, sectorID, h.cellLeader)
	h.village = mkUnit(model.TierVillage, &h.cell.ID, h.villageLeader)
	h.isibo = mkUnit(model.TierIsibo, &h.village.ID, h.isiboLeader)
	return h
}
