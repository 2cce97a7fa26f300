// Package pushsync reconciles the platform push subscription, the server's
// subscription record and the user's notification toggle.
//
// The Synchronizer is owned by the UI event loop and is never locked. Every
// operation is split in two: Toggle, Sync and Refresh run on the loop, update
// the displayed intent and return an Op; Op.Run does the suspending work on
// another goroutine and returns a Result; Complete applies that Result back
// on the loop. Each toggle bumps a generation counter and a Result carrying
// an older generation is discarded, so a slow enable that finishes after a
// later disable cannot flip the toggle back.
//
// There are no retries. Toggling again is the only way to retry a failed
// toggle, and a failed passive sync only marks the status degraded until the
// next one succeeds.
package pushsync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"pkt.systems/pslog"

	"github.com/five82/adindex/internal/adindex"
	"github.com/five82/adindex/internal/apperr"
	"github.com/five82/adindex/internal/logging"
	"github.com/five82/adindex/internal/webpush"
)

// Intent is the displayed notification state.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentEnabled
	IntentDisabled
)

func (i Intent) String() string {
	switch i {
	case IntentEnabled:
		return "enabled"
	case IntentDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Health describes the outcome of the most recent server sync.
type Health int

const (
	HealthUnknown Health = iota
	HealthOK
	HealthDegraded
)

func (h Health) String() string {
	switch h {
	case HealthOK:
		return "ok"
	case HealthDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Kind identifies what an Op does.
type Kind int

const (
	KindEnable Kind = iota
	KindDisable
	KindSync
)

func (k Kind) String() string {
	switch k {
	case KindEnable:
		return "enable"
	case KindDisable:
		return "disable"
	default:
		return "sync"
	}
}

// API is the part of the server the synchronizer needs.
type API interface {
	UpdatePushSub(ctx context.Context, sessionID string, sub json.RawMessage) (bool, error)
}

// Op is a started operation waiting to run off the loop.
type Op struct {
	Kind       Kind
	Generation uint64
	run        func(ctx context.Context) Result
}

// Run performs the operation. It is safe to call from any goroutine.
func (o Op) Run(ctx context.Context) Result {
	if o.run == nil {
		return Result{Kind: o.Kind, Generation: o.Generation}
	}
	res := o.run(ctx)
	res.Kind = o.Kind
	res.Generation = o.Generation
	return res
}

// Result is the outcome of an Op.
type Result struct {
	Kind       Kind
	Generation uint64
	// Subscribed reports whether a platform subscription exists after the
	// operation, as far as the operation observed.
	Subscribed bool
	Err        error
}

// Status is a snapshot for rendering.
type Status struct {
	Intent     Intent
	Confirmed  Intent
	Pending    bool
	Err        error
	Health     Health
	LastSync   time.Time
	Generation uint64
}

// Synchronizer holds the reconciliation state.
type Synchronizer struct {
	api     API
	push    webpush.Registration
	session adindex.Session
	clock   clockwork.Clock
	log     pslog.Logger

	intent    Intent
	confirmed Intent
	gen       uint64
	pending   bool
	lastErr   error
	health    Health
	lastSync  time.Time
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithClock sets the clock used to stamp syncs.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Synchronizer) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log pslog.Logger) Option {
	return func(s *Synchronizer) {
		if log != nil {
			s.log = log
		}
	}
}

// New returns a synchronizer for sess with unknown intent.
func New(api API, push webpush.Registration, sess adindex.Session, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		api:     api,
		push:    push,
		session: sess,
		clock:   clockwork.NewRealClock(),
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.WithSession(s.log.With("component", "pushsync"), sess.SessionID)
	return s
}

// Status returns the current state.
func (s *Synchronizer) Status() Status {
	return Status{
		Intent:     s.intent,
		Confirmed:  s.confirmed,
		Pending:    s.pending,
		Err:        s.lastErr,
		Health:     s.health,
		LastSync:   s.lastSync,
		Generation: s.gen,
	}
}

// Toggle records the user's intent and returns the operation that realises
// it.
func (s *Synchronizer) Toggle(enabled bool) Op {
	s.gen++
	s.pending = true
	s.lastErr = nil
	gen := s.gen
	if enabled {
		s.intent = IntentEnabled
		s.log.Info("notifications toggled", "intent", s.intent.String(), "generation", gen)
		return Op{Kind: KindEnable, Generation: gen, run: s.enable}
	}
	s.intent = IntentDisabled
	s.log.Info("notifications toggled", "intent", s.intent.String(), "generation", gen)
	return Op{Kind: KindDisable, Generation: gen, run: s.disable}
}

// Sync pushes current (or a cleared record for nil) to the server.
func (s *Synchronizer) Sync(current *webpush.Subscription) Op {
	return Op{Kind: KindSync, Generation: s.gen, run: func(ctx context.Context) Result {
		return s.pushToServer(ctx, current)
	}}
}

// Refresh reads the platform subscription and syncs whatever it finds.
func (s *Synchronizer) Refresh() Op {
	return Op{Kind: KindSync, Generation: s.gen, run: func(ctx context.Context) Result {
		current, err := s.push.GetSubscription(ctx)
		if err != nil {
			return Result{Err: apperr.Subscription("read subscription", err)}
		}
		return s.pushToServer(ctx, current)
	}}
}

// Complete applies a Result. It reports false when the result was stale and
// discarded.
func (s *Synchronizer) Complete(res Result) bool {
	if res.Kind == KindSync {
		return s.completeSync(res)
	}
	if res.Generation != s.gen {
		// The server still acknowledged a superseded toggle that succeeded.
		if res.Err == nil {
			s.confirmed = acknowledged(res.Kind)
		}
		s.log.Debug("discarding stale toggle result", "kind", res.Kind.String(), "generation", res.Generation, "current", s.gen, "confirmed", s.confirmed.String())
		return false
	}
	s.pending = false
	if res.Err != nil {
		s.lastErr = res.Err
		s.intent = s.rollback(res.Kind)
		s.log.Warn("notification toggle failed", "kind", res.Kind.String(), "error", res.Err, "subscribed", res.Subscribed)
		return true
	}
	s.lastErr = nil
	s.confirmed = s.intent
	s.markSynced()
	s.log.Info("notification toggle confirmed", "intent", s.intent.String())
	return true
}

func (s *Synchronizer) completeSync(res Result) bool {
	if res.Err != nil {
		s.health = HealthDegraded
		s.log.Warn("passive sync failed", "error", res.Err)
	} else {
		s.markSynced()
	}
	if res.Generation != s.gen || s.pending {
		// A toggle started after this sync; it owns the intent now.
		return false
	}
	if res.Err != nil {
		return true
	}
	if res.Subscribed {
		s.intent = IntentEnabled
	} else {
		s.intent = IntentDisabled
	}
	s.confirmed = s.intent
	return true
}

// rollback picks the intent to display after a failed toggle: the opposite
// of what was asked for.
func (s *Synchronizer) rollback(kind Kind) Intent {
	if kind == KindEnable {
		return IntentDisabled
	}
	return IntentEnabled
}

// acknowledged is the server state after a successful toggle of kind.
func acknowledged(kind Kind) Intent {
	if kind == KindEnable {
		return IntentEnabled
	}
	return IntentDisabled
}

func (s *Synchronizer) markSynced() {
	s.health = HealthOK
	s.lastSync = s.clock.Now()
}

func (s *Synchronizer) enable(ctx context.Context) Result {
	sub, err := s.push.Subscribe(ctx, s.session.VapidPub)
	if err != nil {
		return Result{Err: apperr.Subscription("subscribe", err)}
	}
	// From here on a failure leaves the platform subscription in place.
	res := s.pushToServer(ctx, sub)
	res.Subscribed = true
	return res
}

func (s *Synchronizer) disable(ctx context.Context) Result {
	sub, err := s.push.GetSubscription(ctx)
	if err != nil {
		return Result{Subscribed: true, Err: apperr.Subscription("read subscription", err)}
	}
	if sub != nil {
		if _, err := s.push.Unsubscribe(ctx); err != nil {
			return Result{Subscribed: true, Err: apperr.Subscription("unsubscribe", err)}
		}
	}
	return s.pushToServer(ctx, nil)
}

func (s *Synchronizer) pushToServer(ctx context.Context, sub *webpush.Subscription) Result {
	raw, err := sub.JSON()
	if err != nil {
		return Result{Subscribed: sub != nil, Err: apperr.Subscription("serialize subscription", err)}
	}
	ok, err := s.api.UpdatePushSub(ctx, s.session.SessionID, raw)
	if err != nil {
		return Result{Subscribed: sub != nil, Err: err}
	}
	if !ok {
		return Result{Subscribed: sub != nil, Err: apperr.NetworkMessage("update_push_sub", fmt.Sprintf("session %s not found", logging.Redact(s.session.SessionID)))}
	}
	return Result{Subscribed: sub != nil}
}
