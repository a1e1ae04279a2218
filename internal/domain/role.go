package domain

// Role identifiers issued by the backend.
const (
	RoleAdmin         = "ROLE_ADMIN"
	RoleLawyer        = "ROLE_ADVOGADO"
	RoleCorrespondent = "ROLE_CORRESPONDENTE"
)

// IsValidRole reports whether role is one the backend issues.
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleLawyer, RoleCorrespondent:
		return true
	default:
		return false
	}
}

// UserType is the numeric user category stored by the backend.
type UserType int

const (
	UserTypeAdmin         UserType = 1
	UserTypeLawyer        UserType = 2
	UserTypeCorrespondent UserType = 3
)

// String returns a readable name for the type.
func (t UserType) String() string {
	switch t {
	case UserTypeAdmin:
		return "admin"
	case UserTypeLawyer:
		return "lawyer"
	case UserTypeCorrespondent:
		return "correspondent"
	default:
		return "unknown"
	}
}

// ParseUserType maps a name or number as typed on the command line.
func ParseUserType(s string) (UserType, bool) {
	switch s {
	case "1", "admin":
		return UserTypeAdmin, true
	case "2", "lawyer", "advogado":
		return UserTypeLawyer, true
	case "3", "correspondent", "correspondente":
		return UserTypeCorrespondent, true
	default:
		return 0, false
	}
}
