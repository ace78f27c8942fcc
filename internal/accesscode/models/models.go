// Package models defines the pre-authentication access session.
package models

import "time"

// Access types. The admin code gates the admin area, the user code gates
// registration and login.
const (
	TypeUser  = "user"
	TypeAdmin = "admin"
)

// ValidType reports whether t is a known access type.
func ValidType(t string) bool {
	return t == TypeUser || t == TypeAdmin
}

// Session is issued after a correct access code and lets the client reach
// the gated endpoints without re-sending the code.
type Session struct {
	Token      string
	AccessType string
	IPAddress  string
	UserAgent  string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}
