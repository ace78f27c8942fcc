// Package models defines the account types shared by the auth stores,
// services and middleware.
package models

import "time"

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account statuses. New registrations start pending and must be approved by
// an admin before the account can log in.
const (
	StatusPending = "pending"
	StatusActive  = "active"
	StatusBlocked = "blocked"
)

// User is the persistent account row.
type User struct {
	ID                 int64
	Name               string
	Email              string
	PasswordHash       string
	Username           string
	AvatarURL          string
	Role               string
	Status             string
	ReferralCode       string
	ReferralPoints     int
	AccessCodeVerified bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Identity is a snapshot of a resolved user attached to a request context.
// It is a copy, not a live reference: a cached Identity can go stale until
// its cache entry expires or is invalidated.
type Identity struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Username     string `json:"username,omitempty"`
	AvatarURL    string `json:"avatarUrl,omitempty"`
	Role         string `json:"role"`
	Status       string `json:"status"`
	ReferralCode string `json:"referralCode,omitempty"`
	IsAdmin      bool   `json:"isAdmin"`
}

// IdentityFromUser assembles the request-context snapshot for a user.
func IdentityFromUser(u *User) Identity {
	return Identity{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Username:     u.Username,
		AvatarURL:    u.AvatarURL,
		Role:         u.Role,
		Status:       u.Status,
		ReferralCode: u.ReferralCode,
		IsAdmin:      u.Role == RoleAdmin,
	}
}

// PasswordReset is a one-shot password recovery token. At most one reset is
// pending per user; issuing a new one replaces the previous token.
type PasswordReset struct {
	UserID    int64
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ListFilter narrows admin user listings.
type ListFilter struct {
	Status string
	Role   string
}
