package dispatch

import (
	"fmt"
	"strconv"
	"strings"

	"linkhub-ops/internal/discord"
	"linkhub-ops/internal/ident"
)

type Kind int

const (
	KindCommand Kind = iota + 1
	KindButton
	KindModal
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindButton:
		return "button"
	case KindModal:
		return "modal"
	default:
		return "unknown"
	}
}

type Caller struct {
	ID   string
	Name string
}

// Request is the validated form of an inbound interaction. Name holds the
// command name for KindCommand and the custom id otherwise.
type Request struct {
	Kind      Kind
	ID        string
	Token     string
	GuildID   string
	ChannelID string
	Caller    Caller
	Name      string
	Options   map[string]string
	Fields    map[string]string
}

func (r Request) Option(name string) string {
	return strings.TrimSpace(r.Options[name])
}

func (r Request) Field(id string) string {
	return strings.TrimSpace(r.Fields[id])
}

// ValidationError rejects an inbound payload before any handler runs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid interaction: %s %s", e.Field, e.Reason)
}

const maxCustomIDLen = 100

func ParseRequest(in discord.Interaction) (Request, error) {
	var kind Kind
	switch in.Type {
	case discord.InteractionApplicationCommand:
		kind = KindCommand
	case discord.InteractionMessageComponent:
		kind = KindButton
	case discord.InteractionModalSubmit:
		kind = KindModal
	default:
		return Request{}, &ValidationError{Field: "type", Reason: fmt.Sprintf("unsupported interaction type %d", in.Type)}
	}
	if strings.TrimSpace(in.ID) == "" {
		return Request{}, &ValidationError{Field: "id", Reason: "is required"}
	}
	if in.Data == nil {
		return Request{}, &ValidationError{Field: "data", Reason: "is required"}
	}

	caller, err := parseCaller(in)
	if err != nil {
		return Request{}, err
	}

	req := Request{
		Kind:      kind,
		ID:        in.ID,
		Token:     in.Token,
		GuildID:   in.GuildID,
		ChannelID: in.ChannelID,
		Caller:    caller,
	}

	switch kind {
	case KindCommand:
		req.Name = strings.ToLower(strings.TrimSpace(in.Data.Name))
		if req.Name == "" {
			return Request{}, &ValidationError{Field: "data.name", Reason: "is required"}
		}
		req.Options = map[string]string{}
		if err := flattenOptions(in.Data.Options, req.Options); err != nil {
			return Request{}, err
		}
	case KindButton, KindModal:
		req.Name = strings.TrimSpace(in.Data.CustomID)
		if req.Name == "" {
			return Request{}, &ValidationError{Field: "data.custom_id", Reason: "is required"}
		}
		if len(req.Name) > maxCustomIDLen {
			return Request{}, &ValidationError{Field: "data.custom_id", Reason: "is too long"}
		}
		if kind == KindModal {
			req.Fields = map[string]string{}
			collectInputs(in.Data.Components, req.Fields)
		}
	}
	return req, nil
}

func parseCaller(in discord.Interaction) (Caller, error) {
	var u *discord.User
	if in.Member != nil && in.Member.User != nil {
		u = in.Member.User
	} else if in.User != nil {
		u = in.User
	}
	if u == nil {
		return Caller{}, &ValidationError{Field: "user", Reason: "is required"}
	}
	if !ident.ValidUserID(u.ID) {
		return Caller{}, &ValidationError{Field: "user.id", Reason: "is not a valid user id"}
	}
	name := u.GlobalName
	if name == "" {
		name = u.Username
	}
	return Caller{ID: strings.TrimSpace(u.ID), Name: name}, nil
}

// flattenOptions copies leaf option values into out. Subcommand groups are
// flattened; the innermost name wins on collision.
func flattenOptions(opts []discord.CommandOption, out map[string]string) error {
	for _, o := range opts {
		if o.Name == "" {
			return &ValidationError{Field: "data.options", Reason: "option without name"}
		}
		if len(o.Options) > 0 {
			if err := flattenOptions(o.Options, out); err != nil {
				return err
			}
			continue
		}
		switch v := o.Value.(type) {
		case nil:
		case string:
			out[o.Name] = v
		case float64:
			out[o.Name] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			out[o.Name] = strconv.FormatBool(v)
		default:
			return &ValidationError{Field: "data.options." + o.Name, Reason: fmt.Sprintf("unsupported value type %T", v)}
		}
	}
	return nil
}

func collectInputs(rows []discord.Component, out map[string]string) {
	for _, c := range rows {
		if c.Type == discord.ComponentTextInput && c.CustomID != "" {
			out[c.CustomID] = c.Value
		}
		if len(c.Components) > 0 {
			collectInputs(c.Components, out)
		}
	}
}
