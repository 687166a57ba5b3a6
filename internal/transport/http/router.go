package httptransport

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"linkhub-ops/internal/dispatch"
	"linkhub-ops/internal/presence"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Verifier interface {
	Verify(signatureHex, timestamp string, body []byte) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) dispatch.Response
}

type PresenceLookup interface {
	Lookup(ctx context.Context, userID string, includeActivity bool) presence.Snapshot
}

type PollerStatus interface {
	Running() bool
}

type Deps struct {
	Store          Pinger
	Verifier       Verifier
	Dispatcher     Dispatcher
	Presence       PresenceLookup
	Poller         PollerStatus
	AdminAPIKey    string
	RequestTimeout time.Duration
}

func NewRouter(deps Deps) *chi.Mux {
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 5 * time.Second
	}
	interactions := NewInteractionHandlers(deps.Verifier, deps.Dispatcher, deps.RequestTimeout)
	public := NewPublicHandlers(deps.Store, deps.Presence, deps.Poller)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", public.Health())
	r.With(APILogMiddleware()).Post("/interactions", interactions.Handle())

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Get("/presence/{user_id}", public.Presence())

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(deps.AdminAPIKey))
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 8)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
