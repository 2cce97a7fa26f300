// Package session acquires and validates the client's session identity.
//
// Bootstrap runs before anything else. It either confirms the stored
// session with the server or replaces it, and when it replaces it also
// discards any push subscription left over from the old key. There is no
// cached fallback: if the server cannot be reached the client does not
// start.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/five82/adindex/internal/adindex"
	"github.com/five82/adindex/internal/apperr"
	"github.com/five82/adindex/internal/localstore"
	"github.com/five82/adindex/internal/logging"
	"github.com/five82/adindex/internal/webpush"
)

// API is the part of the server the bootstrap needs.
type API interface {
	NewSession(ctx context.Context) (adindex.Session, error)
	SessionExists(ctx context.Context, sessionID string) (bool, error)
}

// Store is the durable key-value store holding the session.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

// Bootstrapper wires the collaborators of Bootstrap.
type Bootstrapper struct {
	API   API
	Store Store
	Push  webpush.Registration
}

// Result is the outcome of a successful bootstrap.
type Result struct {
	Session adindex.Session
	// Replaced is set when a new session was issued during this bootstrap.
	Replaced bool
	// Discarded is set when a stale push subscription was unsubscribed.
	Discarded bool
}

// Bootstrap returns a session the server knows about. Every failure is a
// session error and fatal to the caller.
func (b Bootstrapper) Bootstrap(ctx context.Context) (Result, error) {
	log := logging.Ctx(ctx)

	if stored, ok := b.Stored(); ok {
		exists, err := b.API.SessionExists(ctx, stored.SessionID)
		if err != nil {
			return Result{}, apperr.Session("confirm session", err)
		}
		if exists {
			logging.WithSession(log, stored.SessionID).Debug("session confirmed")
			return Result{Session: stored}, nil
		}
		logging.WithSession(log, stored.SessionID).Info("stored session unknown to server; replacing")
	} else {
		log.Info("no stored session; requesting one")
	}

	sess, err := b.API.NewSession(ctx)
	if err != nil {
		return Result{}, apperr.Session("create session", err)
	}
	if err := b.Store.Set(localstore.KeySessionID, sess.SessionID); err != nil {
		return Result{}, apperr.Session("persist session", err)
	}
	if err := b.Store.Set(localstore.KeyVapidPub, sess.VapidPub); err != nil {
		return Result{}, apperr.Session("persist session", err)
	}
	log = logging.WithSession(log, sess.SessionID)
	log.Info("session issued")

	res := Result{Session: sess, Replaced: true}
	if b.Push == nil {
		return res, nil
	}
	sub, err := b.Push.GetSubscription(ctx)
	if err != nil {
		return Result{}, apperr.Session("read push subscription", err)
	}
	if sub == nil {
		return res, nil
	}
	// The subscription was scoped to the previous key and can never be used
	// with the new one.
	if _, err := b.Push.Unsubscribe(ctx); err != nil {
		return Result{}, apperr.Session("discard push subscription", err)
	}
	res.Discarded = true
	log.Info("discarded push subscription of the previous session", "endpoint", sub.Endpoint)
	return res, nil
}

// Stored returns the persisted session. A session id without its key counts
// as absent.
func (b Bootstrapper) Stored() (adindex.Session, bool) {
	id, ok := b.Store.Get(localstore.KeySessionID)
	if !ok || strings.TrimSpace(id) == "" {
		return adindex.Session{}, false
	}
	key, ok := b.Store.Get(localstore.KeyVapidPub)
	if !ok || strings.TrimSpace(key) == "" {
		return adindex.Session{}, false
	}
	return adindex.Session{SessionID: id, VapidPub: key}, true
}

// Forget removes the stored session and the push subscription scoped to it,
// so the next bootstrap starts from scratch.
func (b Bootstrapper) Forget(ctx context.Context) error {
	if b.Push != nil {
		if _, err := b.Push.Unsubscribe(ctx); err != nil {
			return fmt.Errorf("unsubscribe: %w", err)
		}
	}
	if err := b.Store.Delete(localstore.KeySessionID); err != nil {
		return fmt.Errorf("delete session id: %w", err)
	}
	if err := b.Store.Delete(localstore.KeyVapidPub); err != nil {
		return fmt.Errorf("delete session key: %w", err)
	}
	return nil
}
