package app

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/five82/adindex/internal/adindex"
	"github.com/five82/adindex/internal/logging"
	"github.com/five82/adindex/internal/state"
)

const (
	defaultPollInterval = 30 * time.Second
	maxBackoff          = 5 * time.Minute
)

// StatusFetcher loads per-query pull/notify status.
type StatusFetcher interface {
	AdQueryStatus(ctx context.Context, ids []string) ([]adindex.QueryStatus, error)
}

// Poller refreshes query status for the ids the store is watching.
type Poller struct {
	Store    *state.Store
	Client   StatusFetcher
	Interval time.Duration
	Clock    clockwork.Clock
}

// Start launches a background goroutine that refreshes the store until ctx
// is cancelled. It returns immediately.
func (p Poller) Start(ctx context.Context) {
	go p.loop(ctx)
}

func (p Poller) loop(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	changed := p.Store.Changed()

	for {
		p.refresh(ctx)
		timer := clock.NewTimer(calculateBackoff(p.Store.Snapshot().ConsecutiveFailures, interval))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-changed:
			timer.Stop()
		case <-timer.Chan():
		}
	}
}

// refresh fetches status once. An empty watch set is not an error; the
// previous statuses are simply cleared.
func (p Poller) refresh(ctx context.Context) {
	ids := p.Store.Watched()
	if len(ids) == 0 {
		p.Store.Update(nil, nil)
		return
	}
	statuses, err := p.Client.AdQueryStatus(ctx, ids)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.Store.Update(nil, err)
		logging.Ctx(ctx).Warn("status poll failed", "queries", len(ids), "error", err)
		return
	}
	p.Store.Update(statuses, nil)
	logging.Ctx(ctx).Debug("status poll complete", "queries", len(ids), "statuses", len(statuses))
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
