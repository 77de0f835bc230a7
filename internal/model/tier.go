package model

import "time"

// Tier is a level in the administrative containment hierarchy.
type Tier string

const (
	TierSector  Tier = "sector"
	TierCell    Tier = "cell"
	TierVillage Tier = "village"
	TierIsibo   Tier = "isibo"
)

// Tiers lists every tier from the root of the tree to the leaves.
var Tiers = []Tier{TierSector, TierCell, TierVillage, TierIsibo}

var leaderRoles = map[Tier]Role{
	TierSector:  RoleSectorLeader,
	TierCell:    RoleCellLeader,
	TierVillage: RoleVillageLeader,
	TierIsibo:   RoleIsiboLeader,
}

// LeaderRole is the role a user must hold to lead a unit of this tier.
func (t Tier) LeaderRole() Role {
	return leaderRoles[t]
}

// Parent returns the tier directly above t. The sector tier has no parent.
func (t Tier) Parent() (Tier, bool) {
	switch t {
	case TierCell:
		return TierSector, true
	case TierVillage:
		return TierCell, true
	case TierIsibo:
		return TierVillage, true
	}
	return "", false
}

// Unit is one node of the sector/cell/village/isibo tree.
type Unit struct {
	ID        int64     `json:"id"`
	Tier      Tier      `json:"tier"`
	ParentID  *int64    `json:"parent_id"`
	Name      string    `json:"name"`
	LeaderID  *int64    `json:"leader_id"`
	CreatedAt time.Time `json:"created_at"`
}
