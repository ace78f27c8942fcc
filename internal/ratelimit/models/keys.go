package models

import (
	"strconv"
	"strings"
)

// SanitizeKeySegment escapes delimiter characters in rate limit key segments
// to prevent key collision attacks where user-controlled identifiers
// containing ':' could manipulate adjacent buckets.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// ClientKey builds the bucket key for one (client IP, route) pair.
func ClientKey(ip, route string) string {
	return SanitizeKeySegment(ip) + ":" + SanitizeKeySegment(route)
}

// AdminKey builds the bucket key for one (admin, action) pair.
func AdminKey(adminID int64, action AdminAction) string {
	return "admin:" + strconv.FormatInt(adminID, 10) + ":" + string(action)
}
