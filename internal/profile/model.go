// Package profile holds the application-level identity records: one
// profile per subject, carrying the role that drives the practice
// management dashboards.
package profile

import "time"

type Role string

const (
	RoleTherapist Role = "therapist"
	RoleClient    Role = "client"
)

// Valid reports whether the role is one of the two supported values.
// Role is validated before any network call at sign-up time.
func (r Role) Valid() bool {
	return r == RoleTherapist || r == RoleClient
}

type Profile struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Update carries the partial fields of a profile update. Nil fields are
// left untouched. The role is immutable after creation and therefore has
// no place here.
type Update struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Verified  *bool
}
