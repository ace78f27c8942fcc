package config

import (
	"time"

	"portalx/internal/ratelimit/models"
)

// Limit describes one sliding-window quota.
type Limit struct {
	Max    int
	Window time.Duration
	// SkipSuccessful retracts the most recent timestamp when the request
	// completes with a success status, so only failures consume quota.
	SkipSuccessful bool
	Message        string
}

// Config holds the per-class and per-admin-action quotas.
type Config struct {
	classes map[models.RouteClass]Limit
	admin   map[models.AdminAction]Limit
}

// Default returns the production quota table.
func Default() *Config {
	return &Config{
		classes: map[models.RouteClass]Limit{
			models.ClassGeneral: {
				Max:     100,
				Window:  15 * time.Minute,
				Message: "too many requests, try again later",
			},
			models.ClassAuth: {
				Max:            5,
				Window:         15 * time.Minute,
				SkipSuccessful: true,
				Message:        "too many authentication attempts, try again in 15 minutes",
			},
			models.ClassUpload: {
				Max:     20,
				Window:  time.Hour,
				Message: "upload limit exceeded",
			},
			models.ClassChannels: {
				Max:     10,
				Window:  time.Hour,
				Message: "channel creation limit exceeded",
			},
			models.ClassSearch: {
				Max:     30,
				Window:  time.Minute,
				Message: "too many searches, wait a moment",
			},
		},
		admin: map[models.AdminAction]Limit{
			models.ActionApprove: {Max: 50, Window: time.Minute, Message: "limit of 50 'approve' actions per minute exceeded"},
			models.ActionReject:  {Max: 50, Window: time.Minute, Message: "limit of 50 'reject' actions per minute exceeded"},
			models.ActionDelete:  {Max: 20, Window: time.Minute, Message: "limit of 20 'delete' actions per minute exceeded"},
			models.ActionBulk:    {Max: 10, Window: time.Minute, Message: "limit of 10 'bulk' actions per minute exceeded"},
		},
	}
}

// ClassLimit returns the quota for an endpoint class.
func (c *Config) ClassLimit(class models.RouteClass) (Limit, bool) {
	l, ok := c.classes[class]
	return l, ok
}

// AdminLimit returns the quota for an admin action.
func (c *Config) AdminLimit(action models.AdminAction) (Limit, bool) {
	l, ok := c.admin[action]
	return l, ok
}

// SetClassLimit overrides one class quota. Intended for tests.
func (c *Config) SetClassLimit(class models.RouteClass, l Limit) {
	c.classes[class] = l
}

// SetAdminLimit overrides one admin action quota. Intended for tests.
func (c *Config) SetAdminLimit(action models.AdminAction, l Limit) {
	c.admin[action] = l
}
