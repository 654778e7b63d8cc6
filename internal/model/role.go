package model

import "fmt"

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin      Role = "admin"      // manages users and categories, never touches tasks
	RoleDataEntry  Role = "data_entry" // creates tasks, edits only their own
	RoleSupervisor Role = "supervisor" // views and edits every task
)

// Roles lists every role in display order.
var Roles = []Role{RoleAdmin, RoleDataEntry, RoleSupervisor}

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleDataEntry, RoleSupervisor:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

func (r Role) Display() string {
	switch r {
	case RoleAdmin:
		return "Administrator"
	case RoleDataEntry:
		return "Data Entry"
	case RoleSupervisor:
		return "Supervisor"
	}
	return string(r)
}

// Color returns the Bootstrap contextual class used for role badges.
func (r Role) Color() string {
	switch r {
	case RoleAdmin:
		return "danger"
	case RoleDataEntry:
		return "primary"
	case RoleSupervisor:
		return "success"
	}
	return "secondary"
}
