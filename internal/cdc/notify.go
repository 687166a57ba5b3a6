package cdc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"linkhub-ops/internal/discord"
	"linkhub-ops/internal/store"
)

type MessageSender interface {
	CreateMessage(ctx context.Context, channelID string, msg discord.MessageCreate) (*discord.Message, error)
}

// ChannelNotifier posts one embed per new account to a fixed channel.
type ChannelNotifier struct {
	sender    MessageSender
	channelID string
	siteURL   string
}

func NewChannelNotifier(sender MessageSender, channelID, siteURL string) *ChannelNotifier {
	return &ChannelNotifier{sender: sender, channelID: channelID, siteURL: strings.TrimRight(siteURL, "/")}
}

func (n *ChannelNotifier) Notify(ctx context.Context, row store.AccountCreated) error {
	name := row.DisplayName
	if name == "" {
		name = row.Handle
	}
	_, err := n.sender.CreateMessage(ctx, n.channelID, discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       "New account",
			Description: fmt.Sprintf("[%s](%s/%s) joined as `@%s`", name, n.siteURL, row.Handle, row.Handle),
			Color:       0x57F287,
			Timestamp:   row.CreatedAt.UTC().Format(time.RFC3339),
			Footer:      &discord.EmbedFooter{Text: row.ID},
		}},
		AllowedMentions: &discord.AllowedMentions{Parse: []string{}},
	})
	if err != nil {
		return fmt.Errorf("notify account %s: %w", row.ID, err)
	}
	return nil
}
