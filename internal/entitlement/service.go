// Package entitlement owns the premium flag on accounts. Set is the only code
// path allowed to write the badge set.
package entitlement

import (
	"context"
	"errors"
	"fmt"

	"linkhub-ops/internal/ident"
	"linkhub-ops/internal/store"
)

// Badge vocabulary stored in accounts.badges.
const (
	TagPremium  = "premium"
	TagVerified = "verified"
	TagStaff    = "staff"
	TagPartner  = "partner"
	TagEarly    = "early"
)

var Vocabulary = []string{TagPremium, TagVerified, TagStaff, TagPartner, TagEarly}

type AccountStore interface {
	GetAccountByHandle(ctx context.Context, handle string) (*store.Account, error)
	UpdateAccountBadges(ctx context.Context, accountID string, badges []string) error
}

type Result struct {
	Handle    string
	AccountID string
	Granted   bool
	Changed   bool
	Badges    []string
}

type Service struct {
	store AccountStore
	tag   string
}

func NewService(st AccountStore) *Service {
	return &Service{store: st, tag: TagPremium}
}

// Set grants or revokes the premium tag. The store is written only when the
// membership actually changes.
func (s *Service) Set(ctx context.Context, rawHandle string, grant bool) (Result, error) {
	acc, err := s.load(ctx, rawHandle)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		Handle:    acc.Handle,
		AccountID: acc.ID,
		Granted:   hasTag(acc.Badges, s.tag),
		Badges:    acc.Badges,
	}
	if res.Granted == grant {
		metricEntitlementNoopTotal.Add(1)
		return res, nil
	}

	next := withTag(acc.Badges, s.tag, grant)
	if err := s.store.UpdateAccountBadges(ctx, acc.ID, next); err != nil {
		return Result{}, mapStoreError("update badges", err)
	}
	metricEntitlementWritesTotal.Add(1)
	res.Granted = grant
	res.Changed = true
	res.Badges = next
	return res, nil
}

// Status is the read-only variant of Set.
func (s *Service) Status(ctx context.Context, rawHandle string) (Result, error) {
	acc, err := s.load(ctx, rawHandle)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Handle:    acc.Handle,
		AccountID: acc.ID,
		Granted:   hasTag(acc.Badges, s.tag),
		Badges:    acc.Badges,
	}, nil
}

func (s *Service) load(ctx context.Context, rawHandle string) (*store.Account, error) {
	handle, ok := ident.ParseHandle(rawHandle)
	if !ok {
		return nil, ErrInvalidHandle
	}
	acc, err := s.store.GetAccountByHandle(ctx, handle)
	if err != nil {
		return nil, mapStoreError("load account", err)
	}
	return acc, nil
}

func mapStoreError(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrSchemaOutdated):
		return &SchemaError{Remediation: schemaRemediation, Err: err}
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func hasTag(badges []string, tag string) bool {
	for _, b := range badges {
		if b == tag {
			return true
		}
	}
	return false
}

// withTag returns a copy of badges with tag present or absent. Order of the
// other tags is preserved so a grant followed by a revoke restores the input.
func withTag(badges []string, tag string, present bool) []string {
	out := make([]string, 0, len(badges)+1)
	for _, b := range badges {
		if b == tag {
			continue
		}
		out = append(out, b)
	}
	if present {
		out = append(out, tag)
	}
	return out
}
