// Package models defines the admin permission grant.
package models

import "time"

// Permission names accepted by the permission-scoped middleware.
const (
	PermManageUsers    = "manageUsers"
	PermManageChannels = "manageChannels"
	PermViewStats      = "viewStats"
	PermEditSettings   = "editSettings"
)

// PermissionSet is the fixed set of admin capabilities. Every admin gets the
// full set today; the struct keeps the permission-scoped routes honest and
// leaves room for per-admin grants later.
type PermissionSet struct {
	ManageUsers    bool `json:"canManageUsers"`
	ManageChannels bool `json:"canManageChannels"`
	ViewStats      bool `json:"canViewStats"`
	EditSettings   bool `json:"canEditSettings"`
}

// FullPermissions is what a verified admin is granted.
func FullPermissions() PermissionSet {
	return PermissionSet{
		ManageUsers:    true,
		ManageChannels: true,
		ViewStats:      true,
		EditSettings:   true,
	}
}

// Has reports whether the named permission is granted.
func (p PermissionSet) Has(name string) bool {
	switch name {
	case PermManageUsers:
		return p.ManageUsers
	case PermManageChannels:
		return p.ManageChannels
	case PermViewStats:
		return p.ViewStats
	case PermEditSettings:
		return p.EditSettings
	default:
		return false
	}
}

// Grant is a cached authorization decision for one admin user. It is only
// created after the user's role and active status are confirmed against the
// store, and never outlives its expiry.
type Grant struct {
	UserID      int64
	Permissions PermissionSet
	ExpiresAt   time.Time
}
