package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"linkhub-ops/internal/discord"
	"linkhub-ops/internal/ident"
	"linkhub-ops/internal/presence"
	"linkhub-ops/internal/store"
)

const colorProfile = 0x5865F2

func (r *Router) help(_ context.Context, _ Request) Response {
	lines := []string{
		"`/lookup handle` show a public profile summary",
		"`/me` show your own profile",
		"`/status` preview the presence shown on your profile",
		"`/premium-status handle` check premium (staff)",
		"`/grant-premium handle` and `/revoke-premium handle` toggle premium (admin)",
		"`/post-purchase` post the premium purchase prompt (admin)",
		"`/claim` and `/close [reason]` manage a ticket (staff, inside the ticket)",
	}
	return Response{Embeds: []discord.Embed{{
		Title:       "Commands",
		Description: strings.Join(lines, "\n"),
		Color:       colorProfile,
	}}}
}

func (r *Router) lookup(ctx context.Context, req Request) Response {
	handle, ok := ident.ParseHandle(req.Option("handle"))
	if !ok {
		return Reply(msgInvalidHandle)
	}
	acc, err := r.deps.Accounts.GetAccountByHandle(ctx, handle)
	if errors.Is(err, store.ErrNotFound) {
		return Reply(msgAccountNotFound)
	}
	if err != nil {
		return r.fail(req, err)
	}
	if !acc.IsPublic {
		return Reply(fmt.Sprintf("`@%s` is a private profile.", acc.Handle))
	}
	embed, err := r.summary(ctx, acc)
	if err != nil {
		return r.fail(req, err)
	}
	return Response{Embeds: []discord.Embed{embed}}
}

func (r *Router) me(ctx context.Context, req Request, acc *store.Account) Response {
	embed, err := r.summary(ctx, acc)
	if err != nil {
		return r.fail(req, err)
	}
	visibility := "public"
	if !acc.IsPublic {
		visibility = "private"
	}
	embed.Fields = append(embed.Fields, discord.EmbedField{Name: "Visibility", Value: visibility, Inline: true})
	return Response{Embeds: []discord.Embed{embed}}
}

// summary fans out the count queries and waits for both.
func (r *Router) summary(ctx context.Context, acc *store.Account) (discord.Embed, error) {
	var links, views int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := r.deps.Accounts.CountLinks(gctx, acc.ID)
		links = n
		return err
	})
	g.Go(func() error {
		n, err := r.deps.Accounts.CountProfileViews(gctx, acc.ID)
		views = n
		return err
	})
	if err := g.Wait(); err != nil {
		return discord.Embed{}, fmt.Errorf("account summary: %w", err)
	}

	name := acc.DisplayName
	if name == "" {
		name = acc.Handle
	}
	badges := "none"
	if len(acc.Badges) > 0 {
		badges = strings.Join(acc.Badges, ", ")
	}
	return discord.Embed{
		Title: fmt.Sprintf("%s (@%s)", name, acc.Handle),
		URL:   r.deps.Config.SiteURL + "/" + acc.Handle,
		Color: colorProfile,
		Fields: []discord.EmbedField{
			{Name: "Badges", Value: badges, Inline: true},
			{Name: "Links", Value: fmt.Sprint(links), Inline: true},
			{Name: "Profile views", Value: fmt.Sprint(views), Inline: true},
			{Name: "Joined", Value: fmt.Sprintf("<t:%d:D>", acc.CreatedAt.Unix()), Inline: true},
		},
	}, nil
}

var statusIcons = map[presence.Status]string{
	presence.StatusOnline:  "🟢",
	presence.StatusIdle:    "🌙",
	presence.StatusDND:     "⛔",
	presence.StatusOffline: "⚫",
}

func (r *Router) status(ctx context.Context, req Request, acc *store.Account) Response {
	userID := acc.DiscordID
	if userID == "" {
		userID = req.Caller.ID
	}
	snap := r.deps.Presence.Lookup(ctx, userID, acc.ShowActivity)

	lines := []string{fmt.Sprintf("%s **%s**", statusIcons[snap.Status], snap.Status)}
	if snap.Activity != nil {
		line := "Playing **" + snap.Activity.Name + "**"
		if snap.Activity.Details != "" {
			line += " · " + snap.Activity.Details
		}
		if snap.Activity.State != "" {
			line += " · " + snap.Activity.State
		}
		lines = append(lines, line)
	}
	if snap.Listening != nil {
		line := "Listening to **" + snap.Listening.Title + "**"
		if snap.Listening.Artist != "" {
			line += " by " + snap.Listening.Artist
		}
		lines = append(lines, line)
	}
	if !acc.ShowActivity {
		lines = append(lines, "_Activity is hidden by your profile settings._")
	}
	return Response{Embeds: []discord.Embed{{
		Title:       "Profile presence",
		Description: strings.Join(lines, "\n"),
		Color:       colorProfile,
	}}}
}

func (r *Router) entitlementToggle(grant bool) Handler {
	return HandlerFunc(func(ctx context.Context, req Request) Response {
		res, err := r.deps.Entitlements.Set(ctx, req.Option("handle"), grant)
		if err != nil {
			return r.fail(req, err)
		}
		switch {
		case grant && res.Changed:
			return Reply(fmt.Sprintf("Granted premium to `@%s`.", res.Handle))
		case grant:
			return Reply(fmt.Sprintf("`@%s` already has premium. Nothing changed.", res.Handle))
		case res.Changed:
			return Reply(fmt.Sprintf("Revoked premium from `@%s`.", res.Handle))
		default:
			return Reply(fmt.Sprintf("`@%s` does not have premium. Nothing changed.", res.Handle))
		}
	})
}

func (r *Router) premiumStatus(ctx context.Context, req Request) Response {
	res, err := r.deps.Entitlements.Status(ctx, req.Option("handle"))
	if err != nil {
		return r.fail(req, err)
	}
	if res.Granted {
		return Reply(fmt.Sprintf("`@%s` has premium.", res.Handle))
	}
	return Reply(fmt.Sprintf("`@%s` does not have premium.", res.Handle))
}
