package domain

import "time"

// RoleAdmin marks chatters that are excluded from performance views.
const RoleAdmin = "admin"

// Client is the dedup target for payments. One non-deleted row per real person.
type Client struct {
	ID        string
	TeamID    string
	Name      string
	Email     string
	Phone     string
	PayoutDay int
	Notes     string
	CreatedAt time.Time
	DeletedAt *time.Time
}

// Chatter is the operator a payment is attributed to.
type Chatter struct {
	ID          string
	TeamID      string
	Username    string
	DisplayName string
	Role        string
	DeletedAt   *time.Time
}

// Name returns the display name, falling back to the username.
func (c Chatter) Name() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Username
}

// IsAdmin reports whether the chatter holds the admin role.
func (c Chatter) IsAdmin() bool {
	return c.Role == RoleAdmin
}
