package chat

import "time"

// Role distinguishes marketplace account kinds.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// User is a participant profile. Conversations holds the ids of every
// conversation the user is registered in, oldest first. Profiles are created
// by the registration flow outside this service; chat only reads them and
// registers conversation membership.
type User struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	ImageURL      string    `db:"image_url"`
	Role          Role      `db:"role"`
	Conversations []string  `db:"-"`
	CreatedAt     time.Time `db:"created_at"`
}
