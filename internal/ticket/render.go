package ticket

import (
	"fmt"
	"strings"

	"linkhub-ops/internal/discord"
)

const (
	colorOpen   = 0x57F287
	colorClosed = 0xED4245
)

func (m *Manager) renderOpening(req PurchaseRequest, lookup HandleLookup, ref string) discord.MessageCreate {
	staff := make([]string, len(m.cfg.StaffRoleIDs))
	for i, id := range m.cfg.StaffRoleIDs {
		staff[i] = discord.RoleMention(id)
	}
	content := discord.UserMention(req.Requester.ID) + " thanks for your premium purchase request."
	if len(staff) > 0 {
		content += " " + strings.Join(staff, " ") + " will confirm your payment here."
	}

	fields := []discord.EmbedField{
		{Name: "Payment method", Value: req.Method.Label(), Inline: true},
		{Name: "Payment tag", Value: "`" + req.PaymentTag + "`", Inline: true},
	}
	if lookup.Outcome != LookupSkipped {
		fields = append(fields, discord.EmbedField{Name: "Account", Value: m.renderLookup(lookup)})
	}
	if req.Notes != "" {
		fields = append(fields, discord.EmbedField{Name: "Notes", Value: req.Notes})
	}

	return discord.MessageCreate{
		Content: content,
		Embeds: []discord.Embed{{
			Title:  "Premium purchase",
			Color:  colorOpen,
			Fields: fields,
			Footer: &discord.EmbedFooter{Text: "Ticket " + ref},
		}},
		Components: []discord.Component{{
			Type: discord.ComponentActionRow,
			Components: []discord.Component{
				{Type: discord.ComponentButton, Style: discord.ButtonSuccess, Label: "Claim", CustomID: CustomIDClaim},
				{Type: discord.ComponentButton, Style: discord.ButtonDanger, Label: "Close", CustomID: CustomIDClose},
			},
		}},
		AllowedMentions: &discord.AllowedMentions{
			Parse: []string{},
			Users: []string{req.Requester.ID},
			Roles: append([]string(nil), m.cfg.StaffRoleIDs...),
		},
	}
}

func (m *Manager) renderLookup(l HandleLookup) string {
	switch l.Outcome {
	case LookupFound:
		name := l.Handle
		if l.Account != nil && l.Account.DisplayName != "" {
			name = l.Account.DisplayName
		}
		line := fmt.Sprintf("✅ [%s](%s/%s) (`@%s`)", name, strings.TrimRight(m.cfg.SiteURL, "/"), l.Handle, l.Handle)
		if l.Account != nil && len(l.Account.Badges) > 0 {
			line += " · badges: " + strings.Join(l.Account.Badges, ", ")
		}
		return line
	case LookupNotFound:
		return fmt.Sprintf("❌ No account uses the handle `@%s`.", l.Handle)
	case LookupFailed:
		return fmt.Sprintf("⚠️ Could not look up `@%s` right now. Staff should verify it manually.", l.Handle)
	case LookupInvalidFormat:
		return fmt.Sprintf("⚠️ `%s` is not a valid handle (3-20 characters: a-z, 0-9, _).", sanitizeInline(l.Raw))
	default:
		return "none"
	}
}

func renderClaimed(actor Actor) discord.MessageCreate {
	return discord.MessageCreate{
		Content:         "🎫 This ticket has been claimed by " + discord.UserMention(actor.ID) + ".",
		AllowedMentions: &discord.AllowedMentions{Parse: []string{}},
	}
}

func renderClosed(actor Actor, reason string) discord.MessageCreate {
	return discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       "Ticket closed",
			Description: "Closed by " + discord.UserMention(actor.ID) + ". This channel will be deleted shortly.",
			Color:       colorClosed,
			Fields:      []discord.EmbedField{{Name: "Reason", Value: reason}},
		}},
		AllowedMentions: &discord.AllowedMentions{Parse: []string{}},
	}
}

func sanitizeInline(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	if r := []rune(s); len(r) > 40 {
		s = string(r[:40]) + "…"
	}
	return s
}
