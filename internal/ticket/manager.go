// Package ticket runs the purchase ticket lifecycle: open, claim, close.
// Claim ownership lives in the channel topic (see Topic).
package ticket

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"

	"linkhub-ops/internal/audit"
	"linkhub-ops/internal/discord"
	"linkhub-ops/internal/ident"
	"linkhub-ops/internal/store"
)

const (
	DefaultCloseReason = "No reason provided."
	maxReasonDisplay   = 500
	deleteTimeout      = 10 * time.Second

	CustomIDClaim = "ticket:claim"
	CustomIDClose = "ticket:close"

	memberPerms = discord.PermissionViewChannel | discord.PermissionSendMessages |
		discord.PermissionReadMessageHistory | discord.PermissionAttachFiles
)

type Discord interface {
	CreateGuildChannel(ctx context.Context, guildID string, params discord.ChannelCreate) (*discord.Channel, error)
	CreateMessage(ctx context.Context, channelID string, msg discord.MessageCreate) (*discord.Message, error)
	GetChannel(ctx context.Context, channelID string) (*discord.Channel, error)
	ModifyChannel(ctx context.Context, channelID string, patch discord.ChannelModify) (*discord.Channel, error)
	DeleteChannel(ctx context.Context, channelID string) error
}

type Accounts interface {
	GetAccountByHandle(ctx context.Context, handle string) (*store.Account, error)
}

type Authorizer interface {
	Require(ctx context.Context, userID string, allowed []string) error
}

type Config struct {
	GuildID      string
	CategoryID   string
	BotUserID    string
	StaffRoleIDs []string
	SiteURL      string
	DeleteDelay  time.Duration
}

type Manager struct {
	cfg      Config
	dc       Discord
	accounts Accounts
	auth     Authorizer
	audit    audit.Sink
	locks    keyedMutex

	afterFunc func(time.Duration, func())
}

func NewManager(cfg Config, dc Discord, accounts Accounts, auth Authorizer, sink audit.Sink) *Manager {
	if sink == nil {
		sink = audit.Discard{}
	}
	return &Manager{
		cfg:      cfg,
		dc:       dc,
		accounts: accounts,
		auth:     auth,
		audit:    sink,
		locks:    keyedMutex{locks: map[string]*lockEntry{}},
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

type OpenResult struct {
	ChannelID string
	Ref       string
	Lookup    HandleLookup
}

func (m *Manager) Open(ctx context.Context, req PurchaseRequest) (OpenResult, error) {
	if err := req.Validate(); err != nil {
		return OpenResult{}, err
	}
	req.PaymentTag = strings.TrimSpace(req.PaymentTag)
	req.Notes = strings.TrimSpace(req.Notes)

	lookup := m.lookupHandle(ctx, req.Handle)
	ref := store.NewID()
	topic := Topic{Requester: req.Requester.ID}
	if lookup.Outcome != LookupInvalidFormat {
		topic.Handle = lookup.Handle
	}

	ch, err := m.dc.CreateGuildChannel(ctx, m.cfg.GuildID, discord.ChannelCreate{
		Name:                 channelName(req.Requester.Name, ref),
		Type:                 discord.ChannelTypeGuildText,
		Topic:                EncodeTopic(topic),
		ParentID:             m.cfg.CategoryID,
		PermissionOverwrites: m.overwrites(req.Requester.ID),
	})
	if err != nil {
		return OpenResult{}, fmt.Errorf("create ticket channel: %w", err)
	}

	if _, err := m.dc.CreateMessage(ctx, ch.ID, m.renderOpening(req, lookup, ref)); err != nil {
		if delErr := m.dc.DeleteChannel(ctx, ch.ID); delErr != nil {
			log.Warn().Err(delErr).Str("channel_id", ch.ID).Msg("ticket cleanup failed")
		}
		return OpenResult{}, fmt.Errorf("post ticket summary: %w", err)
	}

	metricTicketsOpenedTotal.Add(1)
	m.audit.Emit(audit.Entry{
		Actor:     req.Requester.ID,
		Command:   "ticket.open",
		GuildID:   m.cfg.GuildID,
		ChannelID: ch.ID,
		Detail:    fmt.Sprintf("ref=%s method=%s handle=%s lookup=%s", ref, req.Method, orNone(lookup.Handle), orNone(string(lookup.Outcome))),
	})
	log.Info().Str("channel_id", ch.ID).Str("ref", ref).Str("requester", req.Requester.ID).Msg("ticket opened")
	return OpenResult{ChannelID: ch.ID, Ref: ref, Lookup: lookup}, nil
}

func (m *Manager) lookupHandle(ctx context.Context, raw string) HandleLookup {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return HandleLookup{Outcome: LookupSkipped}
	}
	handle, ok := ident.ParseHandle(raw)
	if !ok {
		return HandleLookup{Outcome: LookupInvalidFormat, Raw: raw}
	}
	acc, err := m.accounts.GetAccountByHandle(ctx, handle)
	switch {
	case err == nil:
		return HandleLookup{Outcome: LookupFound, Raw: raw, Handle: handle, Account: acc}
	case errors.Is(err, store.ErrNotFound):
		return HandleLookup{Outcome: LookupNotFound, Raw: raw, Handle: handle}
	default:
		log.Warn().Err(err).Str("handle", handle).Msg("ticket handle lookup failed")
		return HandleLookup{Outcome: LookupFailed, Raw: raw, Handle: handle}
	}
}

func (m *Manager) overwrites(requesterID string) []discord.PermissionOverwrite {
	out := []discord.PermissionOverwrite{
		{ID: m.cfg.GuildID, Type: discord.OverwriteRole, Deny: discord.PermissionViewChannel},
		{ID: requesterID, Type: discord.OverwriteMember, Allow: memberPerms},
	}
	for _, role := range m.cfg.StaffRoleIDs {
		out = append(out, discord.PermissionOverwrite{ID: role, Type: discord.OverwriteRole, Allow: memberPerms})
	}
	if m.cfg.BotUserID != "" {
		out = append(out, discord.PermissionOverwrite{ID: m.cfg.BotUserID, Type: discord.OverwriteMember, Allow: memberPerms})
	}
	return out
}

// ticketChannel loads channelID and checks that it sits under the ticket
// category. It runs before any role check.
func (m *Manager) ticketChannel(ctx context.Context, channelID string) (*discord.Channel, error) {
	if channelID == "" {
		return nil, ErrWrongChannel
	}
	ch, err := m.dc.GetChannel(ctx, channelID)
	if err != nil {
		if discord.IsNotFound(err) {
			return nil, ErrWrongChannel
		}
		return nil, fmt.Errorf("load channel: %w", err)
	}
	if m.cfg.CategoryID == "" || ch.ParentID != m.cfg.CategoryID {
		return nil, ErrWrongChannel
	}
	return ch, nil
}

// Claim assigns the ticket to actor. Another owner yields *ClaimedError, the
// same owner yields ErrAlreadyClaimedByYou; neither touches the topic.
func (m *Manager) Claim(ctx context.Context, actor Actor, channelID string) error {
	ch, err := m.ticketChannel(ctx, channelID)
	if err != nil {
		return err
	}
	if err := m.auth.Require(ctx, actor.ID, m.cfg.StaffRoleIDs); err != nil {
		return err
	}

	unlock := m.locks.Lock(channelID)
	defer unlock()

	// Re-read under the lock so concurrent claims see each other.
	ch, err = m.dc.GetChannel(ctx, ch.ID)
	if err != nil {
		return fmt.Errorf("reload channel: %w", err)
	}
	topic := DecodeTopic(ch.Topic)
	switch topic.ClaimedBy {
	case "":
	case actor.ID:
		return ErrAlreadyClaimedByYou
	default:
		return &ClaimedError{Owner: topic.ClaimedBy}
	}

	topic.ClaimedBy = actor.ID
	encoded := EncodeTopic(topic)
	if _, err := m.dc.ModifyChannel(ctx, ch.ID, discord.ChannelModify{Topic: &encoded}); err != nil {
		return fmt.Errorf("update ticket topic: %w", err)
	}
	if _, err := m.dc.CreateMessage(ctx, ch.ID, renderClaimed(actor)); err != nil {
		log.Warn().Err(err).Str("channel_id", ch.ID).Msg("claim announcement failed")
	}

	metricTicketsClaimedTotal.Add(1)
	m.audit.Emit(audit.Entry{
		Actor:     actor.ID,
		Command:   "ticket.claim",
		GuildID:   m.cfg.GuildID,
		ChannelID: ch.ID,
		Detail:    "requester=" + orNone(topic.Requester),
	})
	return nil
}

// Close announces the closure and schedules channel deletion after
// DeleteDelay. Deletion errors are logged only.
func (m *Manager) Close(ctx context.Context, actor Actor, channelID, reason string) error {
	ch, err := m.ticketChannel(ctx, channelID)
	if err != nil {
		return err
	}
	if err := m.auth.Require(ctx, actor.ID, m.cfg.StaffRoleIDs); err != nil {
		return err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultCloseReason
	}
	if _, err := m.dc.CreateMessage(ctx, ch.ID, renderClosed(actor, DisplayReason(reason))); err != nil {
		return fmt.Errorf("post closing announcement: %w", err)
	}

	topic := DecodeTopic(ch.Topic)
	metricTicketsClosedTotal.Add(1)
	m.audit.Emit(audit.Entry{
		Actor:     actor.ID,
		Command:   "ticket.close",
		GuildID:   m.cfg.GuildID,
		ChannelID: ch.ID,
		Detail:    fmt.Sprintf("requester=%s claimed_by=%s reason=%s", orNone(topic.Requester), orNone(topic.ClaimedBy), reason),
	})

	channel := ch.ID
	m.afterFunc(m.cfg.DeleteDelay, func() {
		delCtx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
		defer cancel()
		if err := m.dc.DeleteChannel(delCtx, channel); err != nil {
			metricTicketDeleteErrorTotal.Add(1)
			log.Warn().Err(err).Str("channel_id", channel).Msg("ticket channel delete failed")
		}
	})
	return nil
}

// DisplayReason caps a close reason for chat display. Audit keeps the full text.
func DisplayReason(reason string) string {
	r := []rune(reason)
	if len(r) <= maxReasonDisplay {
		return reason
	}
	return string(r[:maxReasonDisplay-1]) + "…"
}

func channelName(username, ref string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(username) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= 24 {
			break
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "user"
	}
	suffix := strings.ToLower(ref)
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return "premium-" + slug + "-" + suffix
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &lockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
