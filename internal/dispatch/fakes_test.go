package dispatch

import (
	"context"
	"sync"
	"time"

	"linkhub-ops/internal/access"
	"linkhub-ops/internal/audit"
	"linkhub-ops/internal/discord"
	"linkhub-ops/internal/entitlement"
	"linkhub-ops/internal/presence"
	"linkhub-ops/internal/store"
	"linkhub-ops/internal/ticket"
)

type fakeAccounts struct {
	mu        sync.Mutex
	byDiscord map[string]*store.Account
	byHandle  map[string]*store.Account
	counted   int
	countErr  error
}

func (f *fakeAccounts) GetAccountByDiscordID(_ context.Context, id string) (*store.Account, error) {
	if a, ok := f.byDiscord[id]; ok {
		return a, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeAccounts) GetAccountByHandle(_ context.Context, h string) (*store.Account, error) {
	if a, ok := f.byHandle[h]; ok {
		return a, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeAccounts) CountLinks(context.Context, string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counted++
	return 4, f.countErr
}

func (f *fakeAccounts) CountProfileViews(context.Context, string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counted++
	return 1200, nil
}

type fakeEntitlements struct {
	calls []bool
	res   entitlement.Result
	err   error
}

func (f *fakeEntitlements) Set(_ context.Context, handle string, grant bool) (entitlement.Result, error) {
	f.calls = append(f.calls, grant)
	r := f.res
	r.Handle = handle
	return r, f.err
}

func (f *fakeEntitlements) Status(_ context.Context, handle string) (entitlement.Result, error) {
	r := f.res
	r.Handle = handle
	return r, f.err
}

type fakeTickets struct {
	opened  []ticket.PurchaseRequest
	claims  []string
	closes  []string
	reasons []string
	err     error
}

func (f *fakeTickets) Open(_ context.Context, req ticket.PurchaseRequest) (ticket.OpenResult, error) {
	f.opened = append(f.opened, req)
	if f.err != nil {
		return ticket.OpenResult{}, f.err
	}
	return ticket.OpenResult{ChannelID: "new-ticket"}, nil
}

func (f *fakeTickets) Claim(_ context.Context, a ticket.Actor, ch string) error {
	f.claims = append(f.claims, a.ID+"@"+ch)
	return f.err
}

func (f *fakeTickets) Close(_ context.Context, a ticket.Actor, ch, reason string) error {
	f.closes = append(f.closes, a.ID+"@"+ch)
	f.reasons = append(f.reasons, reason)
	return f.err
}

type fakePresence struct {
	include []bool
	snap    presence.Snapshot
}

func (f *fakePresence) Lookup(_ context.Context, _ string, include bool) presence.Snapshot {
	f.include = append(f.include, include)
	s := f.snap
	if !include {
		s.Activity, s.Listening = nil, nil
	}
	return s
}

type fakeRoles struct {
	mu    sync.Mutex
	roles map[string][]string
	calls int
}

func (f *fakeRoles) MemberRoles(_ context.Context, _ string, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.roles[userID], nil
}

type fakeSender struct {
	channels []string
	msgs     []discord.MessageCreate
}

func (f *fakeSender) CreateMessage(_ context.Context, ch string, msg discord.MessageCreate) (*discord.Message, error) {
	f.channels = append(f.channels, ch)
	f.msgs = append(f.msgs, msg)
	return &discord.Message{ID: "m", ChannelID: ch}, nil
}

type recordingSink struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *recordingSink) Emit(e audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

const (
	linkedUser = "400000000000000001"
	adminUser  = "400000000000000002"
	staffUser  = "400000000000000003"
	adminRole  = "role-admin"
	staffRole  = "role-staff"
)

type harness struct {
	router   *Router
	accounts *fakeAccounts
	ents     *fakeEntitlements
	tickets  *fakeTickets
	presence *fakePresence
	roles    *fakeRoles
	sender   *fakeSender
	sink     *recordingSink
}

func newHarness() *harness {
	ann := &store.Account{
		ID: "acc-1", Handle: "ann_dev", DisplayName: "Ann", IsPublic: true, ShowActivity: true,
		DiscordID: linkedUser, Badges: []string{"verified"}, CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	hidden := &store.Account{ID: "acc-2", Handle: "quiet", IsPublic: false}
	h := &harness{
		accounts: &fakeAccounts{
			byDiscord: map[string]*store.Account{linkedUser: ann},
			byHandle:  map[string]*store.Account{"ann_dev": ann, "quiet": hidden},
		},
		ents:    &fakeEntitlements{},
		tickets: &fakeTickets{},
		presence: &fakePresence{snap: presence.Snapshot{
			Status:   presence.StatusIdle,
			Activity: &presence.Activity{Name: "Chess"},
		}},
		roles: &fakeRoles{roles: map[string][]string{
			adminUser: {adminRole},
			staffUser: {staffRole},
		}},
		sender: &fakeSender{},
		sink:   &recordingSink{},
	}
	h.router = NewRouter(Deps{
		Config: Config{
			SiteURL:           "https://linkhub.example/",
			PurchaseChannelID: "purchase-chan",
			StaffRoleIDs:      []string{staffRole},
			AdminRoleIDs:      []string{adminRole},
		},
		Accounts:     h.accounts,
		Entitlements: h.ents,
		Tickets:      h.tickets,
		Presence:     h.presence,
		Auth:         access.NewGate(h.roles, "guild-1"),
		Sender:       h.sender,
		Audit:        h.sink,
	})
	return h
}

func command(caller, name string, opts map[string]string) Request {
	return Request{Kind: KindCommand, ID: "i", GuildID: "guild-1", ChannelID: "chan-1", Caller: Caller{ID: caller, Name: "x"}, Name: name, Options: opts}
}
