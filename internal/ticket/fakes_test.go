package ticket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"linkhub-ops/internal/access"
	"linkhub-ops/internal/audit"
	"linkhub-ops/internal/discord"
	"linkhub-ops/internal/store"
)

type fakeDiscord struct {
	mu         sync.Mutex
	channels   map[string]*discord.Channel
	messages   map[string][]discord.MessageCreate
	created    []discord.ChannelCreate
	modifies   int
	deleted    []string
	nextID     int
	messageErr error
	deleteErr  error
}

func newFakeDiscord() *fakeDiscord {
	return &fakeDiscord{
		channels: map[string]*discord.Channel{},
		messages: map[string][]discord.MessageCreate{},
	}
}

func (f *fakeDiscord) addChannel(id, parent, topic string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels[id] = &discord.Channel{ID: id, ParentID: parent, Topic: topic}
}

func (f *fakeDiscord) topic(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channels[id].Topic
}

func (f *fakeDiscord) CreateGuildChannel(_ context.Context, guildID string, params discord.ChannelCreate) (*discord.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("chan-%d", f.nextID)
	ch := &discord.Channel{ID: id, GuildID: guildID, Name: params.Name, Topic: params.Topic, ParentID: params.ParentID}
	f.channels[id] = ch
	f.created = append(f.created, params)
	cp := *ch
	return &cp, nil
}

func (f *fakeDiscord) CreateMessage(_ context.Context, channelID string, msg discord.MessageCreate) (*discord.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.messageErr != nil {
		return nil, f.messageErr
	}
	f.messages[channelID] = append(f.messages[channelID], msg)
	return &discord.Message{ID: "msg", ChannelID: channelID}, nil
}

func (f *fakeDiscord) GetChannel(_ context.Context, channelID string) (*discord.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, &discord.APIError{Status: 404, Code: 10003, Message: "Unknown Channel"}
	}
	cp := *ch
	return &cp, nil
}

func (f *fakeDiscord) ModifyChannel(_ context.Context, channelID string, patch discord.ChannelModify) (*discord.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, &discord.APIError{Status: 404, Code: 10003, Message: "Unknown Channel"}
	}
	f.modifies++
	if patch.Topic != nil {
		ch.Topic = *patch.Topic
	}
	cp := *ch
	return &cp, nil
}

func (f *fakeDiscord) DeleteChannel(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, channelID)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.channels, channelID)
	return nil
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

type fakeAccounts struct {
	accounts map[string]*store.Account
	err      error
}

func (f *fakeAccounts) GetAccountByHandle(_ context.Context, handle string) (*store.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.accounts[handle]
	if !ok {
		return nil, store.ErrNotFound
	}
	return a, nil
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
	testGuild    = "guild-1"
	testCategory = "cat-tickets"
	staffRole    = "role-staff"
	staffA       = "100000000000000001"
	staffB       = "100000000000000002"
	customer     = "200000000000000001"
)

type harness struct {
	mgr      *Manager
	dc       *fakeDiscord
	roles    *fakeRoles
	accounts *fakeAccounts
	sink     *recordingSink
}

func newHarness() *harness {
	h := &harness{
		dc: newFakeDiscord(),
		roles: &fakeRoles{roles: map[string][]string{
			staffA: {staffRole},
			staffB: {staffRole},
		}},
		accounts: &fakeAccounts{accounts: map[string]*store.Account{
			"ann_dev": {ID: "acc-1", Handle: "ann_dev", DisplayName: "Ann"},
		}},
		sink: &recordingSink{},
	}
	h.mgr = NewManager(Config{
		GuildID:      testGuild,
		CategoryID:   testCategory,
		BotUserID:    "bot-1",
		StaffRoleIDs: []string{staffRole},
		SiteURL:      "https://linkhub.example",
		DeleteDelay:  5 * time.Second,
	}, h.dc, h.accounts, access.NewGate(h.roles, testGuild), h.sink)
	h.mgr.afterFunc = func(_ time.Duration, f func()) { f() }
	return h
}
