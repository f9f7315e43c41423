package models

import "time"

// Role names carried in auth tokens. Admins may override transfer
// confirmation and cancellation for dispute resolution.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// User represents a registered member account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string `json:"id"`

	// Email is the user's email address (unique). Used for login.
	Email string `json:"email"`

	// DisplayName is the name shown to other members.
	DisplayName string `json:"displayName"`

	// Role is member or admin.
	Role string `json:"role"`

	// PasswordHash is the bcrypt hash of the user's password.
	// Never serialized.
	PasswordHash string `json:"-"`

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64 `json:"createdAt"`

	// UpdatedAt is the Unix timestamp of the last account change.
	UpdatedAt int64 `json:"updatedAt"`
}

// NewUser creates a user with generated timestamps. The ID is assigned
// by the store on insert if left blank.
func NewUser(email, displayName, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		Email:        email,
		DisplayName:  displayName,
		Role:         RoleMember,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Actor is the authenticated identity a request acts as. It is passed
// explicitly into every core operation; the core never reads identity
// from ambient state.
type Actor struct {
	// ID is the acting user's ID.
	ID string

	// Role is the acting user's role (member or admin).
	Role string
}

// IsAdmin reports whether the actor holds the administrative role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
