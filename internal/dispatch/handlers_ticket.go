package dispatch

import (
	"context"
	"fmt"
	"strings"

	"linkhub-ops/internal/discord"
	"linkhub-ops/internal/ticket"
)

const (
	CustomIDPurchaseStart  = "purchase:start"
	CustomIDPurchaseSubmit = "purchase:submit"

	fieldMethod = "method"
	fieldTag    = "payment_tag"
	fieldHandle = "handle"
	fieldNotes  = "notes"
)

func actorOf(req Request) ticket.Actor {
	return ticket.Actor{ID: req.Caller.ID, Name: req.Caller.Name}
}

func (r *Router) postPurchase(ctx context.Context, req Request) Response {
	channelID := r.deps.Config.PurchaseChannelID
	if channelID == "" {
		channelID = req.ChannelID
	}
	_, err := r.deps.Sender.CreateMessage(ctx, channelID, discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title: "Get premium",
			Description: "Premium unlocks the premium badge and profile perks. " +
				"Press the button below to open a private ticket with staff. Payment is confirmed by hand.",
			Color: colorProfile,
		}},
		Components: []discord.Component{{
			Type: discord.ComponentActionRow,
			Components: []discord.Component{{
				Type:     discord.ComponentButton,
				Style:    discord.ButtonPrimary,
				Label:    "Buy premium",
				CustomID: CustomIDPurchaseStart,
			}},
		}},
		AllowedMentions: &discord.AllowedMentions{Parse: []string{}},
	})
	if err != nil {
		return r.fail(req, fmt.Errorf("post purchase prompt: %w", err))
	}
	return Reply("Purchase prompt posted in " + discord.ChannelMention(channelID) + ".")
}

func textInput(id, label string, style int, required bool, maxLen int, placeholder string) discord.Component {
	return discord.Component{
		Type: discord.ComponentActionRow,
		Components: []discord.Component{{
			Type:        discord.ComponentTextInput,
			CustomID:    id,
			Label:       label,
			Style:       style,
			Required:    discord.Bool(required),
			MaxLength:   maxLen,
			Placeholder: placeholder,
		}},
	}
}

func (r *Router) purchaseStart(_ context.Context, _ Request) Response {
	methods := make([]string, len(ticket.PaymentMethods))
	for i, m := range ticket.PaymentMethods {
		methods[i] = string(m)
	}
	return Response{Modal: &Modal{
		CustomID: CustomIDPurchaseSubmit,
		Title:    "Buy premium",
		Components: []discord.Component{
			textInput(fieldMethod, "Payment method", discord.TextInputShort, true, 16, strings.Join(methods, ", ")),
			textInput(fieldTag, "Payment tag or address", discord.TextInputShort, true, 64, "$cashtag, @venmo, email or wallet"),
			textInput(fieldHandle, "Profile handle", discord.TextInputShort, false, 21, "optional, e.g. ann_dev"),
			textInput(fieldNotes, "Notes", discord.TextInputParagraph, false, 500, "optional"),
		},
	}}
}

func (r *Router) purchaseSubmit(ctx context.Context, req Request) Response {
	method, err := ticket.ParsePaymentMethod(req.Field(fieldMethod))
	if err != nil {
		return r.fail(req, err)
	}
	res, err := r.deps.Tickets.Open(ctx, ticket.PurchaseRequest{
		Requester:  actorOf(req),
		Method:     method,
		PaymentTag: req.Field(fieldTag),
		Handle:     req.Field(fieldHandle),
		Notes:      req.Field(fieldNotes),
	})
	if err != nil {
		return r.fail(req, err)
	}
	return Reply("Your ticket is ready: " + discord.ChannelMention(res.ChannelID) + ". Staff will confirm your payment there.")
}

func (r *Router) claim(ctx context.Context, req Request) Response {
	if err := r.deps.Tickets.Claim(ctx, actorOf(req), req.ChannelID); err != nil {
		return r.fail(req, err)
	}
	return Reply("You claimed this ticket.")
}

func (r *Router) close(ctx context.Context, req Request) Response {
	if err := r.deps.Tickets.Close(ctx, actorOf(req), req.ChannelID, req.Option("reason")); err != nil {
		return r.fail(req, err)
	}
	return Reply("Ticket closed. The channel will be deleted shortly.")
}
