// Package dispatch turns validated interactions into handler calls through
// three lookup tables: slash commands, buttons and modals.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog/log"

	"linkhub-ops/internal/access"
	"linkhub-ops/internal/audit"
	"linkhub-ops/internal/discord"
	"linkhub-ops/internal/entitlement"
	"linkhub-ops/internal/presence"
	"linkhub-ops/internal/store"
	"linkhub-ops/internal/ticket"
)

type Handler interface {
	Handle(ctx context.Context, req Request) Response
}

type HandlerFunc func(ctx context.Context, req Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

type Accounts interface {
	GetAccountByDiscordID(ctx context.Context, discordID string) (*store.Account, error)
	GetAccountByHandle(ctx context.Context, handle string) (*store.Account, error)
	CountLinks(ctx context.Context, accountID string) (int64, error)
	CountProfileViews(ctx context.Context, accountID string) (int64, error)
}

type Entitlements interface {
	Set(ctx context.Context, handle string, grant bool) (entitlement.Result, error)
	Status(ctx context.Context, handle string) (entitlement.Result, error)
}

type Tickets interface {
	Open(ctx context.Context, req ticket.PurchaseRequest) (ticket.OpenResult, error)
	Claim(ctx context.Context, actor ticket.Actor, channelID string) error
	Close(ctx context.Context, actor ticket.Actor, channelID, reason string) error
}

type Presence interface {
	Lookup(ctx context.Context, userID string, includeActivity bool) presence.Snapshot
}

type Authorizer interface {
	Require(ctx context.Context, userID string, allowed []string) error
}

type MessageSender interface {
	CreateMessage(ctx context.Context, channelID string, msg discord.MessageCreate) (*discord.Message, error)
}

type Config struct {
	SiteURL           string
	PurchaseChannelID string
	StaffRoleIDs      []string
	AdminRoleIDs      []string
}

type Deps struct {
	Config       Config
	Accounts     Accounts
	Entitlements Entitlements
	Tickets      Tickets
	Presence     Presence
	Auth         Authorizer
	Sender       MessageSender
	Audit        audit.Sink
}

type Router struct {
	deps     Deps
	commands map[string]Handler
	buttons  map[string]Handler
	modals   map[string]Handler
}

func NewRouter(deps Deps) *Router {
	if deps.Audit == nil {
		deps.Audit = audit.Discard{}
	}
	deps.Config.SiteURL = strings.TrimRight(deps.Config.SiteURL, "/")
	r := &Router{
		deps:     deps,
		commands: map[string]Handler{},
		buttons:  map[string]Handler{},
		modals:   map[string]Handler{},
	}
	r.registerDefaults()
	return r
}

func (r *Router) HandleCommand(name string, h Handler) { r.commands[name] = h }
func (r *Router) HandleButton(id string, h Handler)    { r.buttons[id] = h }
func (r *Router) HandleModal(id string, h Handler)     { r.modals[id] = h }

func (r *Router) registerDefaults() {
	r.HandleCommand("help", HandlerFunc(r.help))
	r.HandleCommand("lookup", HandlerFunc(r.lookup))
	r.HandleCommand("me", r.linked(r.me))
	r.HandleCommand("status", r.linked(r.status))
	r.HandleCommand("grant-premium", r.gated(r.adminRoles, r.entitlementToggle(true)))
	r.HandleCommand("revoke-premium", r.gated(r.adminRoles, r.entitlementToggle(false)))
	r.HandleCommand("premium-status", r.gated(r.staffOrAdminRoles, HandlerFunc(r.premiumStatus)))
	r.HandleCommand("post-purchase", r.gated(r.adminRoles, HandlerFunc(r.postPurchase)))
	r.HandleCommand("claim", HandlerFunc(r.claim))
	r.HandleCommand("close", HandlerFunc(r.close))

	r.HandleButton(CustomIDPurchaseStart, HandlerFunc(r.purchaseStart))
	r.HandleButton(ticket.CustomIDClaim, HandlerFunc(r.claim))
	r.HandleButton(ticket.CustomIDClose, HandlerFunc(r.close))

	r.HandleModal(CustomIDPurchaseSubmit, HandlerFunc(r.purchaseSubmit))
}

func (r *Router) table(k Kind) map[string]Handler {
	switch k {
	case KindCommand:
		return r.commands
	case KindButton:
		return r.buttons
	case KindModal:
		return r.modals
	default:
		return nil
	}
}

// Dispatch runs the handler for req. It always returns a response; handler
// panics become an error acknowledgment.
func (r *Router) Dispatch(ctx context.Context, req Request) (resp Response) {
	metricDispatchTotal.Add(1)
	r.deps.Audit.Emit(audit.Entry{
		Actor:     req.Caller.ID,
		Command:   req.Kind.String() + ":" + req.Name,
		GuildID:   req.GuildID,
		ChannelID: req.ChannelID,
	})

	defer func() {
		if rec := recover(); rec != nil {
			metricDispatchPanicsTotal.Add(1)
			log.Error().
				Str("command", req.Name).
				Str("kind", req.Kind.String()).
				Str("actor", req.Caller.ID).
				Str("guild_id", req.GuildID).
				Str("panic", fmt.Sprint(rec)).
				Bytes("stack", debug.Stack()).
				Msg("interaction handler panicked")
			resp = Reply(msgInternalError)
		}
	}()

	h, ok := r.table(req.Kind)[req.Name]
	if !ok {
		metricDispatchUnknownTotal.Add(1)
		return r.unknown(ctx, req)
	}
	return h.Handle(ctx, req)
}

func (r *Router) unknown(ctx context.Context, req Request) Response {
	if req.Kind != KindCommand {
		return Reply(msgStaleInteraction)
	}
	_, err := r.deps.Accounts.GetAccountByDiscordID(ctx, req.Caller.ID)
	if errors.Is(err, store.ErrNotFound) {
		return r.notConnected()
	}
	return Reply(msgUnsupportedCommand)
}

type linkedFunc func(ctx context.Context, req Request, acc *store.Account) Response

// linked resolves the caller's account before running fn.
func (r *Router) linked(fn linkedFunc) Handler {
	return HandlerFunc(func(ctx context.Context, req Request) Response {
		acc, err := r.deps.Accounts.GetAccountByDiscordID(ctx, req.Caller.ID)
		if errors.Is(err, store.ErrNotFound) {
			return r.notConnected()
		}
		if err != nil {
			return r.fail(req, err)
		}
		return fn(ctx, req, acc)
	})
}

// gated re-fetches the caller's roles on every call.
func (r *Router) gated(roles func() []string, h Handler) Handler {
	return HandlerFunc(func(ctx context.Context, req Request) Response {
		if err := r.deps.Auth.Require(ctx, req.Caller.ID, roles()); err != nil {
			return r.fail(req, err)
		}
		return h.Handle(ctx, req)
	})
}

func (r *Router) adminRoles() []string { return r.deps.Config.AdminRoleIDs }

func (r *Router) staffOrAdminRoles() []string {
	return access.Union(r.deps.Config.StaffRoleIDs, r.deps.Config.AdminRoleIDs)
}

func (r *Router) notConnected() Response {
	link := r.deps.Config.SiteURL + "/connect"
	return Response{
		Content: msgNotConnected,
		Components: []discord.Component{{
			Type: discord.ComponentActionRow,
			Components: []discord.Component{{
				Type:  discord.ComponentButton,
				Style: discord.ButtonLink,
				Label: "Connect account",
				URL:   link,
			}},
		}},
	}
}
