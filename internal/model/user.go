package model

// Role is a user's role within the agency.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
)

// User is a row from the provider's Users tab.
type User struct {
	// ID is the user's identifier (the value the Owner column refers to).
	ID string `json:"id"`

	// Role is the user's agency role.
	Role Role `json:"role"`

	// DisplayName is the human-readable name.
	DisplayName string `json:"display_name"`
}

// NormalizeRole maps the provider's free-text role cell to a Role,
// defaulting to agent.
func NormalizeRole(raw string) Role {
	switch FoldName(raw) {
	case "admin", "administrator", "owner", "manager":
		return RoleAdmin
	default:
		return RoleAgent
	}
}
