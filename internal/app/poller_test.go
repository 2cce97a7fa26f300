package app

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/five82/adindex/internal/adindex"
	"github.com/five82/adindex/internal/state"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 30 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 30 * time.Second},
		{"negative failures", -1, 30 * time.Second},
		{"one failure", 1, time.Minute},
		{"two failures", 2, 2 * time.Minute},
		{"three failures", 3, 4 * time.Minute},
		{"four failures capped", 4, 5 * time.Minute}, // Would be 8m, capped to 5m
		{"many failures capped", 40, 5 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 64; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (f *fakeFetcher) AdQueryStatus(_ context.Context, ids []string) ([]adindex.QueryStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), ids...))
	if f.err != nil {
		return nil, f.err
	}
	out := make([]adindex.QueryStatus, 0, len(ids))
	for _, id := range ids {
		out = append(out, adindex.QueryStatus{AdQueryID: id, ResultCount: 1})
	}
	return out, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestPollerRefresh(t *testing.T) {
	store := &state.Store{}
	fetcher := &fakeFetcher{}
	p := Poller{Store: store, Client: fetcher}

	p.refresh(context.Background())
	if fetcher.callCount() != 0 {
		t.Fatalf("refresh with nothing watched called the API")
	}

	store.Watch([]string{"b", "a"})
	p.refresh(context.Background())
	if !reflect.DeepEqual(fetcher.calls[0], []string{"a", "b"}) {
		t.Fatalf("fetched %v, want [a b]", fetcher.calls[0])
	}
	if _, ok := store.Snapshot().Status("a"); !ok {
		t.Fatalf("status for a missing after refresh")
	}

	fetcher.err = errors.New("down")
	p.refresh(context.Background())
	snap := store.Snapshot()
	if snap.ConsecutiveFailures != 1 {
		t.Fatalf("ConsecutiveFailures = %d, want 1", snap.ConsecutiveFailures)
	}
	if _, ok := snap.Status("a"); !ok {
		t.Fatalf("failed refresh dropped previous statuses")
	}
}

func TestPollerWakesOnWatchChange(t *testing.T) {
	store := &state.Store{}
	fetcher := &fakeFetcher{}
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	Poller{Store: store, Client: fetcher, Interval: time.Hour, Clock: clock}.Start(ctx)

	// First pass runs with nothing watched and then sleeps on the clock.
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("poller never waited: %v", err)
	}
	store.Watch([]string{"q1"})

	deadline := time.Now().Add(2 * time.Second)
	for fetcher.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("poller did not refresh after Watch")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// And on the interval.
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("poller never waited again: %v", err)
	}
	clock.Advance(time.Hour)
	deadline = time.Now().Add(2 * time.Second)
	for fetcher.callCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("poller did not refresh after the interval")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
