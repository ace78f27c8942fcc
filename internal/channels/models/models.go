// Package models defines the channel listing types.
package models

import (
	"regexp"
	"time"
)

// Channel statuses. Submissions start pending and go live once approved.
const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusRejected = "rejected"
)

// Sortable listing columns.
var ValidSorts = map[string]bool{
	"members":    true,
	"views":      true,
	"created_at": true,
	"updated_at": true,
}

var telegramLinkRe = regexp.MustCompile(`t\.me/([a-zA-Z0-9_]+)`)

// Channel is a listed Telegram channel.
type Channel struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Link        string    `json:"link"`
	TelegramID  string    `json:"telegramId,omitempty"`
	Category    string    `json:"category"`
	State       string    `json:"state,omitempty"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	BotLink     string    `json:"botLink,omitempty"`
	UserID      int64     `json:"userId"`
	IsPremium   bool      `json:"isPremium"`
	Members     int64     `json:"members"`
	Views       int64     `json:"views"`
	Clicks      int64     `json:"clicks"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ExtractTelegramID pulls the channel handle out of a t.me link, or returns
// empty when the link carries none.
func ExtractTelegramID(link string) string {
	m := telegramLinkRe.FindStringSubmatch(link)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// ValidTelegramLink reports whether the link points at Telegram at all.
func ValidTelegramLink(link string) bool {
	return telegramLinkRe.MatchString(link)
}

// ListFilter narrows and pages channel listings.
type ListFilter struct {
	Category string
	State    string
	Search   string
	Premium  *bool
	Status   string
	UserID   int64
	Sort     string
	Order    string
	Page     int
	Limit    int
}
