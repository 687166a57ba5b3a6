// Package ident validates the two identifiers the control plane accepts from
// users: public profile handles and Discord user ids (snowflakes).
package ident

import (
	"regexp"
	"strings"
)

var (
	handlePattern = regexp.MustCompile(`^[a-z0-9_]{3,20}$`)
	userIDPattern = regexp.MustCompile(`^[0-9]{17,20}$`)
)

// NormalizeHandle trims whitespace, drops one leading "@" and lowercases.
// The result is not guaranteed to be valid.
func NormalizeHandle(raw string) string {
	h := strings.TrimSpace(raw)
	h = strings.TrimPrefix(h, "@")
	return strings.ToLower(strings.TrimSpace(h))
}

func ValidHandle(h string) bool {
	return handlePattern.MatchString(h)
}

// ParseHandle normalizes raw and reports whether the normalized form is valid.
func ParseHandle(raw string) (string, bool) {
	h := NormalizeHandle(raw)
	return h, ValidHandle(h)
}

func ValidUserID(id string) bool {
	return userIDPattern.MatchString(strings.TrimSpace(id))
}
