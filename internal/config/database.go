package config

import "github.com/caarlos0/env/v11"

// DatabaseConfig is the subset the migrate command needs.
type DatabaseConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`
}

func LoadDatabase() (DatabaseConfig, error) {
	var cfg DatabaseConfig
	err := env.Parse(&cfg)
	return cfg, err
}

// DiscordAdminConfig is what command registration needs; no database.
type DiscordAdminConfig struct {
	DiscordBotToken string `env:"DISCORD_BOT_TOKEN,required,notEmpty"`
	DiscordAppID    string `env:"DISCORD_APP_ID,required,notEmpty"`
	DiscordGuildID  string `env:"DISCORD_GUILD_ID,required,notEmpty"`
	DiscordAPIBase  string `env:"DISCORD_API_BASE" envDefault:"https://discord.com/api/v10"`
}

func LoadDiscordAdmin() (DiscordAdminConfig, error) {
	var cfg DiscordAdminConfig
	err := env.Parse(&cfg)
	return cfg, err
}
