// Package models defines the append-only access audit record.
package models

import (
	"time"

	"github.com/mssola/useragent"
)

// Well-known audit actions.
const (
	ActionAccessAttempt     = "access_attempt"
	ActionAccessCodeAttempt = "access_code_attempt"
	ActionPermissionDenied  = "permission_denied"
)

// Record is one authorization decision or attempt. Immutable once written;
// the application never updates or deletes audit rows.
type Record struct {
	ID            int64
	ActorID       *int64 // nil for anonymous or failed pre-auth attempts
	Action        string
	IPAddress     string
	UserAgent     string
	Path          string
	Method        string
	AttemptedCode string // redacted, only set for failed access-code attempts
	Success       bool
	CreatedAt     time.Time
}

// RedactCode keeps just enough of a submitted access code to correlate
// repeated attempts without persisting the secret.
func RedactCode(code string) string {
	if len(code) <= 3 {
		return "***"
	}
	return code[:3] + "***"
}

// SummarizeUserAgent reduces a raw User-Agent header to "browser/version on
// platform" so audit rows stay readable and bounded.
func SummarizeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		if len(raw) > 120 {
			return raw[:120]
		}
		return raw
	}
	summary := name
	if version != "" {
		summary += " " + version
	}
	if platform := ua.OS(); platform != "" {
		summary += " on " + platform
	}
	if ua.Bot() {
		summary += " (bot)"
	}
	return summary
}
