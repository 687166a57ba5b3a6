package httptransport

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"linkhub-ops/internal/discord"
	"linkhub-ops/internal/dispatch"
	"linkhub-ops/internal/presence"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeDispatcher struct {
	reqs []dispatch.Request
}

func (f *fakeDispatcher) Dispatch(_ context.Context, req dispatch.Request) dispatch.Response {
	f.reqs = append(f.reqs, req)
	return dispatch.Reply("handled " + req.Name)
}

type fakePresence struct {
	userID  string
	include bool
}

func (f *fakePresence) Lookup(_ context.Context, userID string, include bool) presence.Snapshot {
	f.userID, f.include = userID, include
	return presence.Snapshot{Status: presence.StatusDND, Activity: &presence.Activity{Name: "Chess"}}
}

type fakePoller struct{}

func (fakePoller) Running() bool { return true }

type testServer struct {
	router     http.Handler
	priv       ed25519.PrivateKey
	dispatcher *fakeDispatcher
	presence   *fakePresence
}

func newTestServer(t *testing.T, pingErr error) *testServer {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	verifier, err := discord.NewVerifier(hex.EncodeToString(pub))
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	ts := &testServer{priv: priv, dispatcher: &fakeDispatcher{}, presence: &fakePresence{}}
	ts.router = NewRouter(Deps{
		Store:       fakePinger{err: pingErr},
		Verifier:    verifier,
		Dispatcher:  ts.dispatcher,
		Presence:    ts.presence,
		Poller:      fakePoller{},
		AdminAPIKey: "secret",
	})
	return ts
}

func (ts *testServer) signed(t *testing.T, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	stamp := "1700000000"
	sig := ed25519.Sign(ts.priv, append([]byte(stamp), raw...))
	req := httptest.NewRequest(http.MethodPost, "/interactions", bytes.NewReader(raw))
	req.Header.Set("X-Signature-Ed25519", hex.EncodeToString(sig))
	req.Header.Set("X-Signature-Timestamp", stamp)
	return req
}

func decodeInteraction(t *testing.T, rec *httptest.ResponseRecorder) discord.InteractionResponse {
	t.Helper()
	var out discord.InteractionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestInteractionPingPong(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, ts.signed(t, discord.Interaction{ID: "1", Type: discord.InteractionPing}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeInteraction(t, rec); got.Type != discord.CallbackPong {
		t.Fatalf("expected pong, got %+v", got)
	}
}

func TestInteractionRejectsBadSignature(t *testing.T) {
	ts := newTestServer(t, nil)
	req := ts.signed(t, discord.Interaction{ID: "1", Type: discord.InteractionPing})
	req.Header.Set("X-Signature-Timestamp", "1700000001")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if len(ts.dispatcher.reqs) != 0 {
		t.Fatalf("dispatcher ran for unsigned request")
	}
}

func TestInteractionDispatchesCommand(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, ts.signed(t, discord.Interaction{
		ID:     "1",
		Type:   discord.InteractionApplicationCommand,
		Member: &discord.Member{User: &discord.User{ID: "300000000000000001"}},
		Data:   &discord.InteractionData{Name: "help"},
	}))
	got := decodeInteraction(t, rec)
	if got.Type != discord.CallbackChannelMessageWithSource || got.Data.Flags != discord.MessageFlagEphemeral {
		t.Fatalf("unexpected response %+v", got)
	}
	if got.Data.Content != "handled help" {
		t.Fatalf("content = %q", got.Data.Content)
	}
}

func TestInteractionInvalidShapeGetsOneReply(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, ts.signed(t, discord.Interaction{
		ID:   "1",
		Type: discord.InteractionApplicationCommand,
		Data: &discord.InteractionData{Name: "help"},
	}))
	got := decodeInteraction(t, rec)
	if got.Data == nil || got.Data.Flags != discord.MessageFlagEphemeral || got.Data.Content == "" {
		t.Fatalf("expected ephemeral error reply, got %+v", got)
	}
	if len(ts.dispatcher.reqs) != 0 {
		t.Fatalf("invalid payload reached the dispatcher")
	}
}

func TestPresenceEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/presence/123456789012345678?activity=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ts.presence.userID != "123456789012345678" || !ts.presence.include {
		t.Fatalf("lookup args = %+v", ts.presence)
	}
	var snap presence.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Status != presence.StatusDND || snap.Activity == nil {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestHealthz(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"up", nil, http.StatusOK},
		{"down", errors.New("pool closed"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.err)
			rec := httptest.NewRecorder()
			ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d", rec.Code, tt.code)
			}
			if !strings.Contains(rec.Body.String(), `"cdc":true`) {
				t.Fatalf("body = %s", rec.Body.String())
			}
		})
	}
}

func TestDebugVarsRequiresAdminKey(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/debug/vars", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without key = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/debug/vars", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "interaction_total") {
		t.Fatalf("status with key = %d body=%.80s", rec.Code, rec.Body.String())
	}
}

func TestCheckAdminAuth(t *testing.T) {
	tests := []struct {
		header, value string
		want          bool
	}{
		{"X-Admin-Key", "secret", true},
		{"X-Admin-Key", "nope", false},
		{"Authorization", "Bearer secret", true},
		{"Authorization", "Basic secret", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(tt.header, tt.value)
		if got := CheckAdminAuth(req, "secret"); got != tt.want {
			t.Fatalf("%s=%q -> %v, want %v", tt.header, tt.value, got, tt.want)
		}
	}
}
