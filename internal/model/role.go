package model

// Role is the authorization role carried by a user and by every
// authenticated request.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleSectorLeader  Role = "sector_leader"
	RoleCellLeader    Role = "cell_leader"
	RoleVillageLeader Role = "village_leader"
	RoleIsiboLeader   Role = "isibo_leader"
)

var validRoles = map[Role]bool{
	RoleAdmin:         true,
	RoleSectorLeader:  true,
	RoleCellLeader:    true,
	RoleVillageLeader: true,
	RoleIsiboLeader:   true,
}

func (r Role) Valid() bool {
	return validRoles[r]
}

