package discord

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultAPIBase = "https://discord.com/api/v10"

// Client is a minimal bot-token REST client. Safe for concurrent use.
type Client struct {
	http    *httpClient
	baseURL string
	token   string
}

func NewClient(baseURL, botToken string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultAPIBase
	}
	return &Client{
		http:    newHTTPClient(timeout),
		baseURL: baseURL,
		token:   botToken,
	}
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bot " + c.token,
		"User-Agent":    "DiscordBot (linkhub-ops, 1.0)",
	}
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, 0, len(parts))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

func (c *Client) CreateMessage(ctx context.Context, channelID string, msg MessageCreate) (*Message, error) {
	var out Message
	if err := c.http.do(ctx, http.MethodPost, c.endpoint("channels", channelID, "messages"), c.headers(), msg, &out); err != nil {
		metricRESTErrorsTotal.Add(1)
		return nil, err
	}
	metricMessagesSentTotal.Add(1)
	return &out, nil
}

func (c *Client) GetChannel(ctx context.Context, channelID string) (*Channel, error) {
	var out Channel
	if err := c.http.do(ctx, http.MethodGet, c.endpoint("channels", channelID), c.headers(), nil, &out); err != nil {
		metricRESTErrorsTotal.Add(1)
		return nil, err
	}
	return &out, nil
}

func (c *Client) ModifyChannel(ctx context.Context, channelID string, patch ChannelModify) (*Channel, error) {
	var out Channel
	if err := c.http.do(ctx, http.MethodPatch, c.endpoint("channels", channelID), c.headers(), patch, &out); err != nil {
		metricRESTErrorsTotal.Add(1)
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	if err := c.http.do(ctx, http.MethodDelete, c.endpoint("channels", channelID), c.headers(), nil, nil); err != nil {
		metricRESTErrorsTotal.Add(1)
		return err
	}
	return nil
}

func (c *Client) CreateGuildChannel(ctx context.Context, guildID string, params ChannelCreate) (*Channel, error) {
	var out Channel
	if err := c.http.do(ctx, http.MethodPost, c.endpoint("guilds", guildID, "channels"), c.headers(), params, &out); err != nil {
		metricRESTErrorsTotal.Add(1)
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetGuildMember(ctx context.Context, guildID, userID string) (*Member, error) {
	var out Member
	if err := c.http.do(ctx, http.MethodGet, c.endpoint("guilds", guildID, "members", userID), c.headers(), nil, &out); err != nil {
		metricRESTErrorsTotal.Add(1)
		return nil, err
	}
	return &out, nil
}

// MemberRoles fetches the member fresh on every call; role membership is never cached.
func (c *Client) MemberRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	m, err := c.GetGuildMember(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	return m.Roles, nil
}

// BulkOverwriteGuildCommands replaces the guild's command set with cmds.
func (c *Client) BulkOverwriteGuildCommands(ctx context.Context, appID, guildID string, cmds []ApplicationCommand) ([]ApplicationCommand, error) {
	var out []ApplicationCommand
	endpoint := c.endpoint("applications", appID, "guilds", guildID, "commands")
	if err := c.http.do(ctx, http.MethodPut, endpoint, c.headers(), cmds, &out); err != nil {
		metricRESTErrorsTotal.Add(1)
		return nil, err
	}
	return out, nil
}
