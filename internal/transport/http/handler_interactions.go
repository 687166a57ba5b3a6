package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"linkhub-ops/internal/discord"
	"linkhub-ops/internal/dispatch"

	"github.com/rs/zerolog/log"
)

const maxInteractionBody = 1 << 20

type InteractionHandlers struct {
	verifier   Verifier
	dispatcher Dispatcher
	timeout    time.Duration
}

func NewInteractionHandlers(v Verifier, d Dispatcher, timeout time.Duration) *InteractionHandlers {
	return &InteractionHandlers{verifier: v, dispatcher: d, timeout: timeout}
}

// Handle serves the Discord interactions endpoint. The signature is checked
// against the raw body before anything is decoded.
func (h *InteractionHandlers) Handle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxInteractionBody))
		if err != nil {
			WriteHTTPError(w, http.StatusRequestEntityTooLarge, "body_too_large")
			return
		}
		sig := r.Header.Get("X-Signature-Ed25519")
		ts := r.Header.Get("X-Signature-Timestamp")
		if err := h.verifier.Verify(sig, ts, body); err != nil {
			metricInteractionRejectedTotal.Add(1)
			WriteHTTPError(w, http.StatusUnauthorized, "invalid_request_signature")
			return
		}

		var in discord.Interaction
		if err := json.Unmarshal(body, &in); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if in.Type == discord.InteractionPing {
			writeJSON(w, dispatch.Pong())
			return
		}

		metricInteractionTotal.Add(1)
		req, err := dispatch.ParseRequest(in)
		if err != nil {
			var ve *dispatch.ValidationError
			if errors.As(err, &ve) {
				metricInteractionInvalidTotal.Add(1)
				log.Warn().Str("field", ve.Field).Str("reason", ve.Reason).Int("type", in.Type).Msg("interaction rejected")
			}
			writeJSON(w, dispatch.Reply("That request could not be understood. Please try again.").Interaction())
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		resp := h.dispatcher.Dispatch(ctx, req)
		writeJSON(w, resp.Interaction())
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
