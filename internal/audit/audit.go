// Package audit delivers best-effort command audit entries to a Discord
// channel. Emit never blocks the caller; a full buffer drops the entry.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"linkhub-ops/internal/discord"
	"linkhub-ops/internal/store"
)

const (
	defaultBuffer = 256
	sendTimeout   = 5 * time.Second
	drainTimeout  = 2 * time.Second
	embedColor    = 0x5865F2
	maxDetailLen  = 1024
)

type Entry struct {
	ID        string
	Actor     string
	Command   string
	GuildID   string
	ChannelID string
	Detail    string
	At        time.Time
}

// Sink is the write side handed to handlers.
type Sink interface {
	Emit(Entry)
}

type Sender interface {
	CreateMessage(ctx context.Context, channelID string, msg discord.MessageCreate) (*discord.Message, error)
}

type Logger struct {
	entries   chan Entry
	sender    Sender
	channelID string
	now       func() time.Time
}

func NewLogger(sender Sender, channelID string, buffer int) *Logger {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Logger{
		entries:   make(chan Entry, buffer),
		sender:    sender,
		channelID: channelID,
		now:       time.Now,
	}
}

func (l *Logger) Emit(e Entry) {
	if e.ID == "" {
		e.ID = store.NewID()
	}
	if e.At.IsZero() {
		e.At = l.now().UTC()
	}
	select {
	case l.entries <- e:
		metricAuditQueuedTotal.Add(1)
	default:
		metricAuditDroppedTotal.Add(1)
		log.Warn().Str("command", e.Command).Str("actor", e.Actor).Msg("audit buffer full, entry dropped")
	}
}

// Run sends queued entries until ctx is done, then flushes what is left
// within a short deadline.
func (l *Logger) Run(ctx context.Context) {
	for {
		select {
		case e := <-l.entries:
			l.deliver(ctx, e)
		case <-ctx.Done():
			l.drain()
			return
		}
	}
}

func (l *Logger) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case e := <-l.entries:
			l.deliver(ctx, e)
		default:
			return
		}
	}
}

func (l *Logger) deliver(ctx context.Context, e Entry) {
	logger := log.With().
		Str("audit_id", e.ID).
		Str("command", e.Command).
		Str("actor", e.Actor).
		Str("guild_id", e.GuildID).
		Logger()
	if l.channelID == "" || l.sender == nil {
		logger.Info().Str("detail", e.Detail).Msg("audit")
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if ctx.Err() != nil {
		sendCtx, cancel = context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
	}
	if _, err := l.sender.CreateMessage(sendCtx, l.channelID, render(e)); err != nil {
		metricAuditFailedTotal.Add(1)
		logger.Warn().Err(err).Msg("audit delivery failed")
		return
	}
	metricAuditSentTotal.Add(1)
}

func render(e Entry) discord.MessageCreate {
	fields := []discord.EmbedField{
		{Name: "Actor", Value: discord.UserMention(e.Actor), Inline: true},
		{Name: "Command", Value: "`" + e.Command + "`", Inline: true},
	}
	if e.ChannelID != "" {
		fields = append(fields, discord.EmbedField{Name: "Channel", Value: discord.ChannelMention(e.ChannelID), Inline: true})
	}
	if e.Detail != "" {
		fields = append(fields, discord.EmbedField{Name: "Detail", Value: truncate(e.Detail, maxDetailLen)})
	}
	return discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:     "Command audit",
			Color:     embedColor,
			Timestamp: e.At.Format(time.RFC3339),
			Fields:    fields,
			Footer:    &discord.EmbedFooter{Text: fmt.Sprintf("guild %s · %s", e.GuildID, e.ID)},
		}},
		AllowedMentions: &discord.AllowedMentions{Parse: []string{}},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Discard drops every entry.
type Discard struct{}

func (Discard) Emit(Entry) {}
