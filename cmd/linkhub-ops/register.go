package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"linkhub-ops/internal/config"
	"linkhub-ops/internal/discord"
	"linkhub-ops/internal/dispatch"
)

func newRegisterCommandsCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "register-commands",
		Short: "Publish the slash command set to the configured guild",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmds := dispatch.Commands()
			if dryRun {
				for _, c := range cmds {
					fmt.Fprintf(cmd.OutOrStdout(), "/%-16s %s\n", c.Name, c.Description)
				}
				return nil
			}
			cfg, err := config.LoadDiscordAdmin()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			dc := discord.NewClient(cfg.DiscordAPIBase, cfg.DiscordBotToken, 10*time.Second)
			out, err := dc.BulkOverwriteGuildCommands(cmd.Context(), cfg.DiscordAppID, cfg.DiscordGuildID, cmds)
			if err != nil {
				return fmt.Errorf("register commands: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %d commands in guild %s\n", len(out), cfg.DiscordGuildID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the command set without calling Discord")
	return cmd
}
