package dispatch

import "linkhub-ops/internal/discord"

func handleOption(desc string) discord.ApplicationCommandOption {
	return discord.ApplicationCommandOption{Type: discord.OptionString, Name: "handle", Description: desc, Required: true, MaxLength: 21}
}

// Commands is the slash command set registered with the guild. Every name
// here has an entry in the router's command table.
func Commands() []discord.ApplicationCommand {
	noDM := discord.Bool(false)
	return []discord.ApplicationCommand{
		{Name: "help", Description: "List the available commands"},
		{Name: "lookup", Description: "Show a public profile summary", Options: []discord.ApplicationCommandOption{handleOption("Profile handle")}},
		{Name: "me", Description: "Show your connected profile"},
		{Name: "status", Description: "Preview the presence shown on your profile"},
		{Name: "grant-premium", Description: "Grant premium to an account", DMPermission: noDM, Options: []discord.ApplicationCommandOption{handleOption("Account handle")}},
		{Name: "revoke-premium", Description: "Revoke premium from an account", DMPermission: noDM, Options: []discord.ApplicationCommandOption{handleOption("Account handle")}},
		{Name: "premium-status", Description: "Check whether an account has premium", DMPermission: noDM, Options: []discord.ApplicationCommandOption{handleOption("Account handle")}},
		{Name: "post-purchase", Description: "Post the premium purchase prompt", DMPermission: noDM},
		{Name: "claim", Description: "Claim the current ticket", DMPermission: noDM},
		{Name: "close", Description: "Close the current ticket", DMPermission: noDM, Options: []discord.ApplicationCommandOption{
			{Type: discord.OptionString, Name: "reason", Description: "Why the ticket is being closed", MaxLength: 1000},
		}},
	}
}
