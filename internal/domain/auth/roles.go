package auth

// Role labels carried in JWT claims and the users table. The permission
// package maps these to visibility scopes; unknown labels fail closed there.
const (
	RoleEmployee = "employee"
	RoleTeamLead = "team_lead"
	RoleDirector = "director"
	RoleHR       = "hr"
)

// UserContext is the acting user as resolved from the request token.
type UserContext struct {
	UserID   string
	Role     string
	FullName string
}
