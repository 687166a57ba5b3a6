package dispatch

import (
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"linkhub-ops/internal/access"
	"linkhub-ops/internal/entitlement"
	"linkhub-ops/internal/ticket"
)

const (
	msgInternalError      = "Something went wrong while handling that. The team has been notified; please try again in a moment."
	msgStaleInteraction   = "This interaction is no longer supported. Run the command again to get a fresh one."
	msgUnsupportedCommand = "That command is not supported. Try `/help` for the list of commands."
	msgNotConnected       = "Your Discord account is not connected to a profile yet. Connect it on the site, then try again."
	msgWrongChannel       = "This only works inside a ticket channel."
	msgClaimedByYou       = "You have already claimed this ticket."
	msgInvalidHandle      = "That handle is not valid. Handles are 3-20 characters using a-z, 0-9 and _."
	msgAccountNotFound    = "No account uses that handle."
)

// fail maps an error from a service call to exactly one user-facing reply.
// Unexpected errors are logged with request context.
func (r *Router) fail(req Request, err error) Response {
	var (
		authErr    *access.AuthorizationError
		claimedErr *ticket.ClaimedError
		schemaErr  *entitlement.SchemaError
		valErr     *ValidationError
	)
	switch {
	case errors.As(err, &authErr):
		return Reply("You need one of these roles to do that: " + authErr.Mentions() + ".")
	case errors.Is(err, ticket.ErrWrongChannel):
		return Reply(msgWrongChannel)
	case errors.Is(err, ticket.ErrAlreadyClaimedByYou):
		return Reply(msgClaimedByYou)
	case errors.As(err, &claimedErr):
		return Reply("This ticket is already claimed by <@" + claimedErr.Owner + ">.")
	case errors.Is(err, entitlement.ErrInvalidHandle):
		return Reply(msgInvalidHandle)
	case errors.Is(err, entitlement.ErrNotFound):
		return Reply(msgAccountNotFound)
	case errors.As(err, &schemaErr):
		log.Error().Err(err).Str("command", req.Name).Msg("database schema outdated")
		return Reply("The database schema is out of date. " + schemaErr.Remediation)
	case errors.Is(err, ticket.ErrInvalidPurchase):
		return Reply(capitalize(strings.TrimPrefix(err.Error(), ticket.ErrInvalidPurchase.Error()+": ")) + ".")
	case errors.As(err, &valErr):
		return Reply("That request was malformed: " + valErr.Field + " " + valErr.Reason + ".")
	default:
		metricDispatchErrorsTotal.Add(1)
		log.Error().
			Err(err).
			Str("command", req.Name).
			Str("kind", req.Kind.String()).
			Str("actor", req.Caller.ID).
			Str("guild_id", req.GuildID).
			Msg("interaction handler failed")
		return Reply(msgInternalError)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
