package cdc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"linkhub-ops/internal/store"
)

type fakeSource struct {
	mu       sync.Mutex
	rows     []store.AccountCreated
	max      *time.Time
	maxErr   error
	maxCalls int
	listErrs []error
	calls    int
	afters   []time.Time
}

func (f *fakeSource) MaxAccountCreatedAt(context.Context) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maxCalls++
	if f.maxErr != nil {
		return nil, f.maxErr
	}
	return f.max, nil
}

func (f *fakeSource) ListAccountsCreatedAfter(_ context.Context, after time.Time, limit int) ([]store.AccountCreated, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.afters = append(f.afters, after)
	if len(f.listErrs) > 0 {
		err := f.listErrs[0]
		f.listErrs = f.listErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	var out []store.AccountCreated
	for _, r := range f.rows {
		if r.CreatedAt.After(after) {
			out = append(out, r)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeCursors struct {
	mu    sync.Mutex
	saved map[string]time.Time
	saves int
}

func (f *fakeCursors) LoadCursor(_ context.Context, name string) (*store.SyncCursor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.saved[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &store.SyncCursor{Name: name, CursorAt: t}, nil
}

func (f *fakeCursors) SaveCursor(_ context.Context, name string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saved == nil {
		f.saved = map[string]time.Time{}
	}
	if at.After(f.saved[name]) {
		f.saved[name] = at
	}
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	got  []store.AccountCreated
	fail map[string]error
}

func (r *recordingNotifier) Notify(_ context.Context, row store.AccountCreated) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[row.ID]; err != nil {
		return err
	}
	r.got = append(r.got, row)
	return nil
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestPoller(src *fakeSource, cursors CursorStore, n Notifier) (*Poller, *fakeClock) {
	clock := &fakeClock{now: t0}
	p := NewPoller(Config{
		Interval:    time.Hour,
		BatchSize:   50,
		BackoffBase: 30 * time.Second,
		BackoffMax:  10 * time.Minute,
	}, src, cursors, n)
	p.now = clock.Now
	p.sleep = func(context.Context, time.Duration) error { return nil }
	return p, clock
}

func rowsAfter(base time.Time, n int) []store.AccountCreated {
	out := make([]store.AccountCreated, n)
	for i := range out {
		out[i] = store.AccountCreated{
			ID:        fmt.Sprintf("acc-%02d", i),
			Handle:    fmt.Sprintf("user_%02d", i),
			CreatedAt: base.Add(time.Duration(i+1) * time.Second),
		}
	}
	return out
}

func TestTickEmitsRowsInOrderAndAdvancesCursor(t *testing.T) {
	seed := t0.Add(-time.Hour)
	src := &fakeSource{max: &seed}
	notifier := &recordingNotifier{}
	p, _ := newTestPoller(src, nil, notifier)

	p.tick(context.Background())
	if got := p.Snapshot().Cursor; !got.Equal(seed) {
		t.Fatalf("seeded cursor = %v, want %v", got, seed)
	}

	src.rows = rowsAfter(seed, 7)
	p.tick(context.Background())

	if len(notifier.got) != 7 {
		t.Fatalf("expected 7 notifications, got %d", len(notifier.got))
	}
	for i := 1; i < len(notifier.got); i++ {
		if !notifier.got[i].CreatedAt.After(notifier.got[i-1].CreatedAt) {
			t.Fatalf("notifications out of order at %d", i)
		}
	}
	if got, want := p.Snapshot().Cursor, src.rows[6].CreatedAt; !got.Equal(want) {
		t.Fatalf("cursor = %v, want %v", got, want)
	}

	p.tick(context.Background())
	if len(notifier.got) != 7 {
		t.Fatalf("rows re-emitted after cursor advanced: %d", len(notifier.got))
	}
}

func TestTickRespectsBatchSize(t *testing.T) {
	seed := t0.Add(-time.Hour)
	src := &fakeSource{max: &seed}
	notifier := &recordingNotifier{}
	p, _ := newTestPoller(src, nil, notifier)
	p.cfg.BatchSize = 3

	p.tick(context.Background())
	src.rows = rowsAfter(seed, 5)
	p.tick(context.Background())
	p.tick(context.Background())

	if len(notifier.got) != 5 {
		t.Fatalf("expected all 5 rows across two batches, got %d", len(notifier.got))
	}
}

func TestTransientFailuresBackOffExponentiallyThenReset(t *testing.T) {
	seed := t0
	timeout := errors.New("dial tcp 10.0.0.5:5432: i/o timeout")
	src := &fakeSource{max: &seed}
	p, clock := newTestPoller(src, nil, &recordingNotifier{})
	p.tick(context.Background())

	base := p.cfg.BackoffBase
	for i, want := range []time.Duration{base, 2 * base, 4 * base} {
		src.listErrs = []error{timeout, timeout, timeout}
		p.tick(context.Background())
		st := p.Snapshot()
		if st.Failures != i+1 {
			t.Fatalf("failures = %d, want %d", st.Failures, i+1)
		}
		if got := st.NotBefore.Sub(clock.Now()); got != want {
			t.Fatalf("tick %d backoff = %v, want %v", i+1, got, want)
		}
		clock.Advance(want)
	}

	p.tick(context.Background())
	st := p.Snapshot()
	if st.Failures != 0 || !st.NotBefore.IsZero() {
		t.Fatalf("success did not reset backoff: %+v", st)
	}
}

func TestNonTransientFailureLeavesNotBeforeUnchanged(t *testing.T) {
	seed := t0
	src := &fakeSource{max: &seed}
	p, clock := newTestPoller(src, nil, &recordingNotifier{})
	p.tick(context.Background())

	perm := errors.New(`relation "accounts" does not exist`)
	for i := 0; i < 4; i++ {
		src.listErrs = []error{perm}
		before := p.Snapshot().NotBefore
		p.tick(context.Background())
		st := p.Snapshot()
		if !st.NotBefore.Equal(before) || st.Failures != 0 {
			t.Fatalf("non-transient failure changed backoff: %+v", st)
		}
		clock.Advance(time.Second)
	}
	if src.calls != 5 {
		t.Fatalf("non-transient errors must not be retried within a tick: calls=%d", src.calls)
	}
}

func TestTickDuringBackoffSkipsQuery(t *testing.T) {
	seed := t0
	src := &fakeSource{max: &seed}
	p, clock := newTestPoller(src, nil, &recordingNotifier{})
	p.tick(context.Background())

	src.listErrs = []error{errors.New("connection refused"), errors.New("connection refused"), errors.New("connection refused")}
	p.tick(context.Background())
	calls := src.calls

	clock.Advance(p.cfg.BackoffBase / 2)
	p.tick(context.Background())
	if src.calls != calls {
		t.Fatalf("query issued during backoff window")
	}

	clock.Advance(p.cfg.BackoffBase)
	p.tick(context.Background())
	if src.calls != calls+1 {
		t.Fatalf("expected query after backoff elapsed")
	}
}

func TestTransientQueryRetriedWithinTick(t *testing.T) {
	seed := t0.Add(-time.Minute)
	src := &fakeSource{max: &seed, rows: rowsAfter(t0.Add(-time.Minute), 2)}
	notifier := &recordingNotifier{}
	p, _ := newTestPoller(src, nil, notifier)

	var delays []time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	src.listErrs = []error{errors.New("unexpected EOF"), errors.New("read: connection reset by peer")}
	p.tick(context.Background())

	if len(notifier.got) != 2 {
		t.Fatalf("expected rows after retries, got %d", len(notifier.got))
	}
	if len(delays) != 2 || delays[1] != 2*delays[0] {
		t.Fatalf("expected linear retry delays, got %v", delays)
	}
	if p.Snapshot().Failures != 0 {
		t.Fatalf("retried success must not count as failure")
	}
}

func TestBusyTickIsSkipped(t *testing.T) {
	src := &fakeSource{}
	p, _ := newTestPoller(src, nil, &recordingNotifier{})
	p.busy.Store(true)
	p.tick(context.Background())
	if src.calls != 0 || src.maxCalls != 0 {
		t.Fatalf("overlapping tick touched the store")
	}
}

func TestSeed(t *testing.T) {
	t.Run("restores persisted cursor", func(t *testing.T) {
		saved := t0.Add(-3 * time.Hour)
		cursors := &fakeCursors{saved: map[string]time.Time{DefaultCursorName: saved}}
		src := &fakeSource{}
		p, _ := newTestPoller(src, cursors, &recordingNotifier{})
		p.tick(context.Background())
		if !p.Snapshot().Cursor.Equal(saved) || src.maxCalls != 0 {
			t.Fatalf("cursor = %v, maxCalls = %d", p.Snapshot().Cursor, src.maxCalls)
		}
	})
	t.Run("empty table uses now", func(t *testing.T) {
		p, _ := newTestPoller(&fakeSource{}, nil, &recordingNotifier{})
		p.tick(context.Background())
		if !p.Snapshot().Cursor.Equal(t0) {
			t.Fatalf("cursor = %v, want %v", p.Snapshot().Cursor, t0)
		}
	})
	t.Run("persists seeded max", func(t *testing.T) {
		latest := t0.Add(-time.Minute)
		cursors := &fakeCursors{}
		p, _ := newTestPoller(&fakeSource{max: &latest}, cursors, &recordingNotifier{})
		p.tick(context.Background())
		if got := cursors.saved[DefaultCursorName]; !got.Equal(latest) {
			t.Fatalf("saved cursor = %v, want %v", got, latest)
		}
	})
	t.Run("failure degrades to now after three attempts", func(t *testing.T) {
		src := &fakeSource{maxErr: errors.New("permission denied for table accounts")}
		p, _ := newTestPoller(src, nil, &recordingNotifier{})
		p.tick(context.Background())
		st := p.Snapshot()
		if !st.Seeded || !st.Cursor.Equal(t0) {
			t.Fatalf("degraded seed state = %+v", st)
		}
		if src.maxCalls != 3 {
			t.Fatalf("seed attempts = %d, want 3", src.maxCalls)
		}
	})
}

func TestNotifyFailureSkipsRowAndAdvancesCursor(t *testing.T) {
	seed := t0.Add(-time.Hour)
	src := &fakeSource{max: &seed}
	cursors := &fakeCursors{}
	notifier := &recordingNotifier{fail: map[string]error{"acc-01": &discordBadRequest{}}}
	p, clock := newTestPoller(src, cursors, notifier)
	p.tick(context.Background())

	src.rows = rowsAfter(seed, 4)
	for i := 0; i < 5; i++ {
		p.tick(context.Background())
		clock.Advance(time.Hour)
	}

	var ids []string
	for _, r := range notifier.got {
		ids = append(ids, r.ID)
	}
	if fmt.Sprint(ids) != "[acc-00 acc-02 acc-03]" {
		t.Fatalf("delivered = %v, want every row but the failing one, once each", ids)
	}
	last := src.rows[len(src.rows)-1].CreatedAt
	if got := p.Snapshot().Cursor; !got.Equal(last) {
		t.Fatalf("cursor = %v, want %v", got, last)
	}
	if got := cursors.saved[DefaultCursorName]; !got.Equal(last) {
		t.Fatalf("persisted cursor = %v, want %v", got, last)
	}
}

func TestNotifyFailureLeavesBackoffUntouched(t *testing.T) {
	seed := t0.Add(-time.Hour)
	src := &fakeSource{max: &seed}
	notifier := &recordingNotifier{fail: map[string]error{"acc-00": errors.New("discord: network unreachable")}}
	p, _ := newTestPoller(src, nil, notifier)
	p.tick(context.Background())

	src.rows = rowsAfter(seed, 2)
	p.tick(context.Background())
	st := p.Snapshot()
	if st.Failures != 0 || !st.NotBefore.IsZero() {
		t.Fatalf("notify failure changed backoff: %+v", st)
	}

	src.rows = append(src.rows, rowsAfter(seed.Add(time.Minute), 1)...)
	src.rows[2].ID = "acc-late"
	callsBefore := src.calls
	p.tick(context.Background())
	if src.calls != callsBefore+1 {
		t.Fatalf("store polling stopped after notify failure")
	}
	if len(notifier.got) != 2 || notifier.got[1].ID != "acc-late" {
		t.Fatalf("delivered = %+v", notifier.got)
	}
}

func TestFailureLogsThrottledPerWindow(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	seed := t0
	src := &fakeSource{max: &seed}
	p, clock := newTestPoller(src, nil, &recordingNotifier{})
	p.tick(context.Background())

	failing := errors.New("permission denied for table accounts")
	for i := 0; i < 6; i++ {
		src.mu.Lock()
		src.listErrs = []error{failing}
		src.mu.Unlock()
		p.tick(context.Background())
		clock.Advance(9 * time.Second)
	}
	if n := strings.Count(buf.String(), "cdc poll failed"); n != 1 {
		t.Fatalf("log lines in first window = %d, want 1\n%s", n, buf.String())
	}
	if src.calls != 7 {
		t.Fatalf("queries = %d, want every failing tick to query", src.calls)
	}

	clock.Advance(time.Minute)
	src.mu.Lock()
	src.listErrs = []error{failing}
	src.mu.Unlock()
	p.tick(context.Background())
	if n := strings.Count(buf.String(), "cdc poll failed"); n != 2 {
		t.Fatalf("log lines after window = %d, want 2", n)
	}
}

type discordBadRequest struct{}

func (*discordBadRequest) Error() string { return "discord: 400 invalid form body" }

func TestStartIsIdempotent(t *testing.T) {
	seed := t0
	p, _ := newTestPoller(&fakeSource{max: &seed}, nil, &recordingNotifier{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 3; i++ {
		if err := p.Start(ctx); err != nil {
			t.Fatalf("Start: %v", err)
		}
	}
	if n := p.loops.Load(); n != 1 {
		t.Fatalf("expected one loop, got %d", n)
	}
	if !p.Running() {
		t.Fatalf("poller should report running")
	}
}

func TestBackoff(t *testing.T) {
	base, ceiling := 30*time.Second, 10*time.Minute
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, 0},
		{1, base},
		{2, 2 * base},
		{3, 4 * base},
		{5, 8 * time.Minute},
		{6, ceiling},
		{60, ceiling},
	}
	for _, tt := range tests {
		if got := Backoff(base, ceiling, tt.failures); got != tt.want {
			t.Fatalf("Backoff(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "op failed" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), true},
		{"canceled", context.Canceled, false},
		{"net timeout", timeoutErr{}, true},
		{"refused", errors.New("dial tcp: connect: connection refused"), true},
		{"dns", errors.New("lookup db.internal: no such host"), true},
		{"eof", errors.New("unexpected EOF"), true},
		{"pipe", errors.New("write: broken pipe"), true},
		{"schema", errors.New(`column "badges" does not exist`), false},
		{"auth", errors.New("password authentication failed"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
