// Package access gates commands on guild role membership. Roles are fetched
// on every check; nothing is cached.
package access

import (
	"context"
	"fmt"
	"strings"

	"linkhub-ops/internal/discord"
)

type RoleChecker interface {
	MemberRoles(ctx context.Context, guildID, userID string) ([]string, error)
}

// AuthorizationError lists the roles that would have allowed the call.
type AuthorizationError struct {
	Required []string
}

func (e *AuthorizationError) Error() string {
	if len(e.Required) == 0 {
		return "unauthorized: no role is configured for this action"
	}
	return "unauthorized: requires one of " + strings.Join(e.Required, ",")
}

// Mentions renders the required roles for a chat reply.
func (e *AuthorizationError) Mentions() string {
	if len(e.Required) == 0 {
		return "a role that has not been configured"
	}
	parts := make([]string, len(e.Required))
	for i, id := range e.Required {
		parts[i] = discord.RoleMention(id)
	}
	return strings.Join(parts, ", ")
}

type Gate struct {
	checker RoleChecker
	guildID string
}

func NewGate(checker RoleChecker, guildID string) *Gate {
	return &Gate{checker: checker, guildID: guildID}
}

// Require succeeds when userID holds any role in allowed. A caller who is not
// a guild member is denied. Other fetch failures are returned as-is so callers
// can tell them apart from a denial.
func (g *Gate) Require(ctx context.Context, userID string, allowed []string) error {
	if len(allowed) == 0 {
		metricAccessDeniedTotal.Add(1)
		return &AuthorizationError{}
	}
	roles, err := g.checker.MemberRoles(ctx, g.guildID, userID)
	if discord.IsNotFound(err) {
		metricAccessDeniedTotal.Add(1)
		return &AuthorizationError{Required: append([]string(nil), allowed...)}
	}
	if err != nil {
		return fmt.Errorf("fetch member roles: %w", err)
	}
	if HasAny(roles, allowed) {
		return nil
	}
	metricAccessDeniedTotal.Add(1)
	return &AuthorizationError{Required: append([]string(nil), allowed...)}
}

func HasAny(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, r := range have {
		set[r] = struct{}{}
	}
	for _, r := range want {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

// Union merges role sets without duplicates, keeping first-seen order.
func Union(sets ...[]string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range sets {
		for _, r := range s {
			if _, ok := seen[r]; ok || r == "" {
				continue
			}
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}
