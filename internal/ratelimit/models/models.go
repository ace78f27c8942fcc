package models

import "time"

// RouteClass categorizes endpoints for differentiated rate limiting.
type RouteClass string

const (
	// ClassGeneral: all /api traffic (100 req / 15 min).
	ClassGeneral RouteClass = "general"
	// ClassAuth: login, register, code verification (5 req / 15 min,
	// successful requests retracted).
	ClassAuth RouteClass = "auth"
	// ClassUpload: file uploads (20 req / hour).
	ClassUpload RouteClass = "upload"
	// ClassChannels: channel creation (10 req / hour).
	ClassChannels RouteClass = "channels"
	// ClassSearch: search queries (30 req / min).
	ClassSearch RouteClass = "search"
)

// AdminAction identifies a privileged moderation action with its own
// per-admin quota, independent of the per-IP limiter.
type AdminAction string

const (
	ActionApprove AdminAction = "approve"
	ActionReject  AdminAction = "reject"
	ActionDelete  AdminAction = "delete"
	ActionBulk    AdminAction = "bulk"
)

// Result represents the outcome of a rate limit check.
type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
	Message    string    `json:"-"`
}
