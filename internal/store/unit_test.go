package store

import (
	"context"
	"testing"

	"github.com/yvesmugisha901/umuturage-backend/internal/model"
)

func TestUnitCreateRequiresParent(t *testing.T) {
	units := NewUnitStore(setupTestDB(t))
	ctx := context.Background()

	if _, err := units.Create(ctx, model.TierCell, nil, "Orphan"); err == nil {
		t.Fatal("expected error creating cell without sector")
	}

	sector, err := units.Create(ctx, model.TierSector, nil, "Kimironko")
	if err != nil {
		t.Fatalf("create sector: %v", err)
	}
	if sector.ParentID != nil {
		t.Errorf("sector parent = %v, want nil", *sector.ParentID)
	}
	if _, err := units.Create(ctx, model.TierSector, &sector.ID, "Nested"); err == nil {
		t.Fatal("expected error creating sector with parent")
	}

	cell, err := units.Create(ctx, model.TierCell, &sector.ID, "Bibare")
	if err != nil {
		t.Fatalf("create cell: %v", err)
	}
	if cell.ParentID == nil || *cell.ParentID != sector.ID {
		t.Errorf("cell parent = %v, want %d", cell.ParentID, sector.ID)
	}
	if cell.Tier != model.TierCell {
		t.Errorf("tier = %q, want %q", cell.Tier, model.TierCell)
	}
}

func TestUnitCreateUnknownParent(t *testing.T) {
	units := NewUnitStore(setupTestDB(t))

	missing := int64(42)
	if _, err := units.Create(context.Background(), model.TierVillage, &missing, "Nowhere"); err == nil {
		t.Fatal("expected foreign key error for unknown cell")
	}
}

func TestUnitAssignLeader(t *testing.T) {
	db := setupTestDB(t)
	units := NewUnitStore(db)
	users := NewUserStore(db)
	ctx := context.Background()

	leader, err := users.Create(ctx, "sam", "sam@example.com", "hash", model.RoleSectorLeader)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	a, _ := units.Create(ctx, model.TierSector, nil, "A")
	b, _ := units.Create(ctx, model.TierSector, nil, "B")

	u, err := units.AssignLeader(ctx, model.TierSector, a.ID, leader.ID)
	if err != nil {
		t.Fatalf("assign leader: %v", err)
	}
	if u.LeaderID == nil || *u.LeaderID != leader.ID {
		t.Fatalf("leader = %v, want %d", u.LeaderID, leader.ID)
	}

	if _, err := units.AssignLeader(ctx, model.TierSector, b.ID, leader.ID); err == nil {
		t.Fatal("expected unique violation leading two sectors")
	}

	got, err := units.GetByLeader(ctx, model.TierSector, leader.ID)
	if err != nil {
		t.Fatalf("get by leader: %v", err)
	}
	if got == nil || got.ID != a.ID {
		t.Fatalf("get by leader = %+v, want sector %d", got, a.ID)
	}

	missing, err := units.AssignLeader(ctx, model.TierSector, 999, leader.ID)
	if err != nil {
		t.Fatalf("assign missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown unit")
	}
}

func TestUnitList(t *testing.T) {
	units := NewUnitStore(setupTestDB(t))
	ctx := context.Background()

	s1, _ := units.Create(ctx, model.TierSector, nil, "S1")
	s2, _ := units.Create(ctx, model.TierSector, nil, "S2")
	for _, name := range []string{"Zebra", "Alpha"} {
		if _, err := units.Create(ctx, model.TierCell, &s1.ID, name); err != nil {
			t.Fatalf("create cell: %v", err)
		}
	}
	if _, err := units.Create(ctx, model.TierCell, &s2.ID, "Other"); err != nil {
		t.Fatalf("create cell: %v", err)
	}

	cells, err := units.List(ctx, model.TierCell, &s1.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cells) != 2 {
		t.Fatalf("len = %d, want 2", len(cells))
	}
	if cells[0].Name != "Alpha" {
		t.Errorf("first = %q, want Alpha", cells[0].Name)
	}

	all, err := units.List(ctx, model.TierCell, nil)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len = %d, want 3", len(all))
	}
}

func TestUnitUnknownTier(t *testing.T) {
	units := NewUnitStore(setupTestDB(t))

	if _, err := units.GetByID(context.Background(), model.Tier("district"), 1); err == nil {
		t.Fatal("expected error for unknown tier")
	}
}
