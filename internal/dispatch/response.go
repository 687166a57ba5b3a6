package dispatch

import "linkhub-ops/internal/discord"

// Response is what a handler hands back. Messages are always ephemeral; a
// non-nil Modal turns the reply into a modal popup.
type Response struct {
	Content    string
	Embeds     []discord.Embed
	Components []discord.Component
	Modal      *Modal
}

type Modal struct {
	CustomID   string
	Title      string
	Components []discord.Component
}

func Reply(content string) Response {
	return Response{Content: content}
}

func (r Response) Interaction() discord.InteractionResponse {
	if r.Modal != nil {
		return discord.InteractionResponse{
			Type: discord.CallbackModal,
			Data: &discord.InteractionCallbackData{
				CustomID:   r.Modal.CustomID,
				Title:      r.Modal.Title,
				Components: r.Modal.Components,
			},
		}
	}
	return discord.InteractionResponse{
		Type: discord.CallbackChannelMessageWithSource,
		Data: &discord.InteractionCallbackData{
			Content:         r.Content,
			Embeds:          r.Embeds,
			Components:      r.Components,
			Flags:           discord.MessageFlagEphemeral,
			AllowedMentions: &discord.AllowedMentions{Parse: []string{}},
		},
	}
}

func Pong() discord.InteractionResponse {
	return discord.InteractionResponse{Type: discord.CallbackPong}
}
