package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

var errPresenceUnavailable = errors.New("presence_unavailable")

// Source fetches raw presence for a Discord user id.
type Source interface {
	Fetch(ctx context.Context, userID string) (Raw, error)
}

// HTTPSource reads a Lanyard-compatible presence API
// (GET {base}/v1/users/{id} -> {"success":true,"data":{...}}).
// A circuit breaker stops hammering the API while it is down.
type HTTPSource struct {
	base    string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewHTTPSource(base string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPSource{
		base:   strings.TrimRight(strings.TrimSpace(base), "/"),
		client: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "presence-api",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: func(err error) bool {
				// A user the API does not track is not an outage.
				return err == nil || errors.Is(err, errPresenceUnavailable)
			},
		}),
	}
}

type lanyardEnvelope struct {
	Success bool `json:"success"`
	Data    Raw  `json:"data"`
}

func (s *HTTPSource) Fetch(ctx context.Context, userID string) (Raw, error) {
	out, err := s.breaker.Execute(func() (any, error) {
		return s.fetch(ctx, userID)
	})
	if err != nil {
		return Raw{}, err
	}
	return out.(Raw), nil
}

func (s *HTTPSource) fetch(ctx context.Context, userID string) (Raw, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"/v1/users/"+url.PathEscape(userID), nil)
	if err != nil {
		return Raw{}, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Raw{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Raw{}, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return Raw{}, errPresenceUnavailable
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Raw{}, fmt.Errorf("presence api status %d", resp.StatusCode)
	}
	var env lanyardEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Raw{}, fmt.Errorf("decode presence: %w", err)
	}
	if !env.Success {
		return Raw{}, errPresenceUnavailable
	}
	return env.Data, nil
}
