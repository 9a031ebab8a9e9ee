package model

// RoleKind is the closed set of roles used at authorization points, so role
// checks are exhaustive switches instead of free-form string comparison.
type RoleKind int

const (
	RoleKindUnknown RoleKind = iota
	RoleKindAdmin
	RoleKindTeacher
	RoleKindStudent
)

// ParseRoleKind maps a stored role name onto the closed set.
func ParseRoleKind(name string) (RoleKind, bool) {
	switch name {
	case RoleAdmin:
		return RoleKindAdmin, true
	case RoleTeacher:
		return RoleKindTeacher, true
	case RoleStudent:
		return RoleKindStudent, true
	default:
		return RoleKindUnknown, false
	}
}

func (k RoleKind) String() string {
	switch k {
	case RoleKindAdmin:
		return RoleAdmin
	case RoleKindTeacher:
		return RoleTeacher
	case RoleKindStudent:
		return RoleStudent
	default:
		return "unknown"
	}
}
