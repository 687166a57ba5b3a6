package httptransport

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type PublicHandlers struct {
	store    Pinger
	presence PresenceLookup
	poller   PollerStatus
}

func NewPublicHandlers(st Pinger, p PresenceLookup, poller PollerStatus) *PublicHandlers {
	return &PublicHandlers{store: st, presence: p, poller: poller}
}

func (h *PublicHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		body := map[string]any{"ok": true, "db": "up"}
		if h.poller != nil {
			body["cdc"] = h.poller.Running()
		}
		if err := h.store.Ping(r.Context()); err != nil {
			body["ok"], body["db"] = false, "down"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(body)
	}
}

// Presence returns the presence snapshot for a Discord user. Lookup failures
// come back as an offline snapshot with status 200.
func (h *PublicHandlers) Presence() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(chi.URLParam(r, "user_id"))
		include := isTruthy(r.URL.Query().Get("activity"))
		snap := h.presence.Lookup(r.Context(), userID, include)
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, snap)
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
