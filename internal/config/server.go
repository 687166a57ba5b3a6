package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	AdminAPIKey string `env:"ADMIN_API_KEY"`

	DiscordBotToken  string `env:"DISCORD_BOT_TOKEN,required,notEmpty"`
	DiscordAppID     string `env:"DISCORD_APP_ID"`
	DiscordPublicKey string `env:"DISCORD_PUBLIC_KEY,required,notEmpty"`
	DiscordAPIBase   string `env:"DISCORD_API_BASE" envDefault:"https://discord.com/api/v10"`
	DiscordGuildID   string `env:"DISCORD_GUILD_ID"`

	AuditChannelID    string   `env:"AUDIT_CHANNEL_ID"`
	NotifyChannelID   string   `env:"NOTIFY_CHANNEL_ID"`
	PurchaseChannelID string   `env:"PURCHASE_CHANNEL_ID"`
	TicketCategoryID  string   `env:"TICKET_CATEGORY_ID"`
	StaffRoleIDs      []string `env:"STAFF_ROLE_IDS" envSeparator:","`
	AdminRoleIDs      []string `env:"ADMIN_ROLE_IDS" envSeparator:","`

	SiteURL         string `env:"SITE_URL" envDefault:"https://linkhub.example"`
	PresenceAPIBase string `env:"PRESENCE_API_BASE" envDefault:"https://api.lanyard.rest"`

	CDCEnabled       bool `env:"CDC_ENABLED" envDefault:"true"`
	CDCIntervalMS    int  `env:"CDC_INTERVAL_MS" envDefault:"15000"`
	CDCBatchSize     int  `env:"CDC_BATCH_SIZE" envDefault:"50"`
	CDCBackoffBaseMS int  `env:"CDC_BACKOFF_BASE_MS" envDefault:"30000"`
	CDCBackoffMaxMS  int  `env:"CDC_BACKOFF_MAX_MS" envDefault:"600000"`

	TicketDeleteDelayMS int `env:"TICKET_DELETE_DELAY_MS" envDefault:"5000"`
	AuditBuffer         int `env:"AUDIT_BUFFER" envDefault:"256"`
	RequestTimeoutMS    int `env:"REQUEST_TIMEOUT_MS" envDefault:"5000"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
