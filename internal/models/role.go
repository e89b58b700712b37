package models

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RolePublisher Role = "publisher"
	RoleNoRole    Role = "norole"
)

// Roles is the closed set of roles a user can hold.
var Roles = []Role{RoleAdmin, RoleManager, RolePublisher, RoleNoRole}

// Valid reports whether r is one of Roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Assignable reports whether a user with this role may be placed into a parent or branch.
func (r Role) Assignable() bool {
	return r != RoleAdmin && r != RoleManager
}
