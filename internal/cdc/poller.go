// Package cdc tails newly created accounts after a stored cursor and emits one
// notification per row. A row whose notification fails is logged and skipped.
package cdc

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"linkhub-ops/internal/store"
)

const DefaultCursorName = "accounts_created"

type Source interface {
	MaxAccountCreatedAt(ctx context.Context) (*time.Time, error)
	ListAccountsCreatedAfter(ctx context.Context, after time.Time, limit int) ([]store.AccountCreated, error)
}

type CursorStore interface {
	LoadCursor(ctx context.Context, name string) (*store.SyncCursor, error)
	SaveCursor(ctx context.Context, name string, at time.Time) error
}

type Notifier interface {
	Notify(ctx context.Context, row store.AccountCreated) error
}

type Config struct {
	Interval    time.Duration
	BatchSize   int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	CursorName  string

	Attempts  int
	RetryStep time.Duration
	LogEvery  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 15 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 30 * time.Second
	}
	if c.BackoffMax < c.BackoffBase {
		c.BackoffMax = 10 * time.Minute
		if c.BackoffMax < c.BackoffBase {
			c.BackoffMax = c.BackoffBase
		}
	}
	if c.CursorName == "" {
		c.CursorName = DefaultCursorName
	}
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.RetryStep <= 0 {
		c.RetryStep = 500 * time.Millisecond
	}
	if c.LogEvery <= 0 {
		c.LogEvery = time.Minute
	}
	return c
}

// State is owned by the poller and only written inside a tick.
type State struct {
	Seeded    bool
	Cursor    time.Time
	Failures  int
	NotBefore time.Time
}

type Poller struct {
	cfg     Config
	src     Source
	cursors CursorStore
	notify  Notifier

	mu      sync.Mutex
	started bool
	loops   atomic.Int32
	busy    atomic.Bool

	stateMu sync.RWMutex
	state   State

	failLog *rate.Limiter
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewPoller wires a poller. cursors may be nil, in which case the cursor only
// lives in memory and is re-seeded on restart.
func NewPoller(cfg Config, src Source, cursors CursorStore, notify Notifier) *Poller {
	cfg = cfg.withDefaults()
	return &Poller{
		cfg:     cfg,
		src:     src,
		cursors: cursors,
		notify:  notify,
		failLog: rate.NewLimiter(rate.Every(cfg.LogEvery), 1),
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// Start launches the polling loop once. Later calls are no-ops.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = true
	p.mu.Unlock()

	p.loops.Add(1)
	go func() {
		defer p.loops.Add(-1)
		p.loop(ctx)
	}()
	return nil
}

func (p *Poller) Running() bool {
	return p.loops.Load() > 0
}

func (p *Poller) Snapshot() State {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.state
}

func (p *Poller) loop(ctx context.Context) {
	log.Info().Dur("interval", p.cfg.Interval).Int("batch", p.cfg.BatchSize).Msg("cdc poller started")
	go p.tick(ctx)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("cdc poller stopped")
			return
		case <-ticker.C:
			go p.tick(ctx)
		}
	}
}

// tick runs one poll cycle unless another is still in flight.
func (p *Poller) tick(ctx context.Context) {
	if !p.busy.CompareAndSwap(false, true) {
		metricCDCSkippedBusyTotal.Add(1)
		return
	}
	defer p.busy.Store(false)

	if !p.Snapshot().Seeded {
		p.seed(ctx)
	}

	st := p.Snapshot()
	if p.now().Before(st.NotBefore) {
		metricCDCSkippedBackoffTotal.Add(1)
		return
	}

	rows, err := p.query(ctx, st.Cursor)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.recordFailure(err)
		return
	}
	p.resetBackoff()
	metricCDCTicksTotal.Add(1)
	if len(rows) == 0 {
		return
	}

	for i, row := range rows {
		if err := p.notify.Notify(ctx, row); err != nil {
			if ctx.Err() != nil {
				if i > 0 {
					p.advance(ctx, rows[i-1].CreatedAt)
				}
				return
			}
			metricCDCNotifyFailuresTotal.Add(1)
			p.throttled(func() {
				log.Warn().Err(err).Str("account_id", row.ID).Msg("cdc notification failed, skipping row")
			})
			continue
		}
		metricCDCNotificationsTotal.Add(1)
	}
	p.advance(ctx, rows[len(rows)-1].CreatedAt)
}

func (p *Poller) seed(ctx context.Context) {
	if p.cursors != nil {
		c, err := p.cursors.LoadCursor(ctx, p.cfg.CursorName)
		switch {
		case err == nil:
			p.setCursor(c.CursorAt)
			log.Info().Time("cursor", c.CursorAt).Msg("cdc cursor restored")
			return
		case !errors.Is(err, store.ErrNotFound):
			log.Warn().Err(err).Msg("cdc cursor load failed, seeding from accounts")
		}
	}

	var latest *time.Time
	err := p.retry(ctx, func() error {
		var err error
		latest, err = p.src.MaxAccountCreatedAt(ctx)
		return err
	}, func(error) bool { return true })
	if err != nil {
		now := p.now().UTC()
		metricCDCDegradedSeedTotal.Add(1)
		log.Warn().Err(err).Time("cursor", now).Msg("cdc seed failed, starting from now")
		p.setCursor(now)
		return
	}

	cursor := p.now().UTC()
	if latest != nil {
		cursor = *latest
	}
	p.setCursor(cursor)
	p.persist(ctx, cursor)
	log.Info().Time("cursor", cursor).Msg("cdc cursor seeded")
}

func (p *Poller) query(ctx context.Context, after time.Time) ([]store.AccountCreated, error) {
	var rows []store.AccountCreated
	err := p.retry(ctx, func() error {
		var err error
		rows, err = p.src.ListAccountsCreatedAfter(ctx, after, p.cfg.BatchSize)
		return err
	}, IsTransient)
	return rows, err
}

// retry makes up to cfg.Attempts calls with a linear delay between them.
// Errors for which again reports false are returned immediately.
func (p *Poller) retry(ctx context.Context, fn func() error, again func(error) bool) error {
	var err error
	for attempt := 1; attempt <= p.cfg.Attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == p.cfg.Attempts || !again(err) {
			return err
		}
		if sleepErr := p.sleep(ctx, time.Duration(attempt)*p.cfg.RetryStep); sleepErr != nil {
			return err
		}
	}
	return err
}

func (p *Poller) recordFailure(err error) {
	metricCDCFailuresTotal.Add(1)
	transient := IsTransient(err)

	p.stateMu.Lock()
	if transient {
		p.state.Failures++
		p.state.NotBefore = p.now().Add(Backoff(p.cfg.BackoffBase, p.cfg.BackoffMax, p.state.Failures))
	}
	st := p.state
	p.stateMu.Unlock()

	p.throttled(func() {
		log.Warn().
			Err(err).
			Bool("transient", transient).
			Int("failures", st.Failures).
			Time("not_before", st.NotBefore).
			Msg("cdc poll failed")
	})
}

func (p *Poller) resetBackoff() {
	p.stateMu.Lock()
	p.state.Failures = 0
	p.state.NotBefore = time.Time{}
	p.stateMu.Unlock()
}

func (p *Poller) setCursor(t time.Time) {
	p.stateMu.Lock()
	p.state.Cursor = t
	p.state.Seeded = true
	p.stateMu.Unlock()
}

func (p *Poller) advance(ctx context.Context, t time.Time) {
	p.stateMu.Lock()
	if t.After(p.state.Cursor) {
		p.state.Cursor = t
	}
	cursor := p.state.Cursor
	p.stateMu.Unlock()
	p.persist(ctx, cursor)
}

func (p *Poller) persist(ctx context.Context, t time.Time) {
	if p.cursors == nil {
		return
	}
	if err := p.cursors.SaveCursor(ctx, p.cfg.CursorName, t); err != nil {
		p.throttled(func() {
			log.Warn().Err(err).Time("cursor", t).Msg("cdc cursor save failed")
		})
	}
}

// throttled runs fn at most once per LogEvery window, measured on p.now.
func (p *Poller) throttled(fn func()) {
	if p.failLog.AllowN(p.now(), 1) {
		fn()
		return
	}
	metricCDCLogsSuppressedTotal.Add(1)
}

// Backoff returns min(ceiling, base*2^(failures-1)). failures below 1 yield 0.
func Backoff(base, ceiling time.Duration, failures int) time.Duration {
	if failures < 1 {
		return 0
	}
	d := base
	for i := 1; i < failures; i++ {
		if d >= ceiling/2 {
			return ceiling
		}
		d *= 2
	}
	if d > ceiling {
		return ceiling
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
