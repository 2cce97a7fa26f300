// Package webpush models the platform push-subscription registration.
//
// A Registration owns at most one Subscription. The subscription is created
// for an application server key (the session's public key) and may expire
// or be revoked by the platform at any time, in which case GetSubscription
// reports nil without an error.
package webpush

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ErrInvalidState is returned when subscribing with a different application
// server key while a subscription already exists.
var ErrInvalidState = errors.New("a subscription with a different application server key already exists")

// Registration is the subscribe/unsubscribe/getSubscription capability.
type Registration interface {
	Subscribe(ctx context.Context, applicationServerKey string) (*Subscription, error)
	GetSubscription(ctx context.Context) (*Subscription, error)
	// Unsubscribe removes the current subscription and reports whether one
	// existed.
	Unsubscribe(ctx context.Context) (bool, error)
}

// Keys are the client-side encryption parameters of a subscription.
type Keys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription is the serializable form handed to the server.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	// ExpirationTime is milliseconds since the epoch, or nil when the
	// subscription does not expire.
	ExpirationTime *int64 `json:"expirationTime"`
	Keys           Keys   `json:"keys"`
}

// JSON serializes the subscription for the server. A nil subscription
// serializes to nil, which the API reads as "clear the record".
func (s *Subscription) JSON() (json.RawMessage, error) {
	if s == nil {
		return nil, nil
	}
	bytes, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal subscription: %w", err)
	}
	return bytes, nil
}

// ExpiresAt returns the expiration time, or the zero time when unset.
func (s *Subscription) ExpiresAt() time.Time {
	if s == nil || s.ExpirationTime == nil {
		return time.Time{}
	}
	return time.UnixMilli(*s.ExpirationTime)
}

// Expired reports whether the subscription has lapsed at now.
func (s *Subscription) Expired(now time.Time) bool {
	exp := s.ExpiresAt()
	return !exp.IsZero() && !now.Before(exp)
}

// record is what FileRegistration persists.
type record struct {
	Subscription         Subscription `json:"subscription"`
	ApplicationServerKey string       `json:"applicationServerKey"`
	PrivateKey           string       `json:"privateKey"`
	CreatedAt            time.Time    `json:"createdAt"`
}

// FileRegistration keeps the subscription in a JSON file.
type FileRegistration struct {
	path       string
	serviceURL string
	lifetime   time.Duration
	clock      clockwork.Clock
	mu         sync.Mutex
}

// Option configures a FileRegistration.
type Option func(*FileRegistration)

// WithClock sets the clock used for expiry.
func WithClock(clock clockwork.Clock) Option {
	return func(r *FileRegistration) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithLifetime makes new subscriptions expire after d. Zero means never.
func WithLifetime(d time.Duration) Option {
	return func(r *FileRegistration) {
		r.lifetime = d
	}
}

// Ensure FileRegistration implements Registration at compile time.
var _ Registration = (*FileRegistration)(nil)

// NewFileRegistration returns a registration stored at path whose endpoints
// live under serviceURL.
func NewFileRegistration(path, serviceURL string, opts ...Option) (*FileRegistration, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("subscription path is empty")
	}
	serviceURL = strings.TrimRight(strings.TrimSpace(serviceURL), "/")
	if serviceURL == "" {
		return nil, fmt.Errorf("push service url is empty")
	}
	r := &FileRegistration{
		path:       path,
		serviceURL: serviceURL,
		clock:      clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Subscribe returns the current subscription when it was created for the
// same key, creates a new one when none exists, and fails with
// ErrInvalidState otherwise.
func (r *FileRegistration) Subscribe(ctx context.Context, applicationServerKey string) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := strings.TrimSpace(applicationServerKey)
	if key == "" {
		return nil, fmt.Errorf("application server key is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.loadLocked()
	if err != nil {
		return nil, err
	}
	if rec != nil {
		if rec.ApplicationServerKey != key {
			return nil, ErrInvalidState
		}
		sub := rec.Subscription
		return &sub, nil
	}

	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate p256dh key: %w", err)
	}
	auth := make([]byte, 16)
	if _, err := rand.Read(auth); err != nil {
		return nil, fmt.Errorf("generate auth secret: %w", err)
	}

	now := r.clock.Now()
	sub := Subscription{
		Endpoint: r.serviceURL + "/" + uuid.NewString(),
		Keys: Keys{
			P256dh: base64.RawURLEncoding.EncodeToString(priv.PublicKey().Bytes()),
			Auth:   base64.RawURLEncoding.EncodeToString(auth),
		},
	}
	if r.lifetime > 0 {
		exp := now.Add(r.lifetime).UnixMilli()
		sub.ExpirationTime = &exp
	}
	rec = &record{
		Subscription:         sub,
		ApplicationServerKey: key,
		PrivateKey:           base64.RawURLEncoding.EncodeToString(priv.Bytes()),
		CreatedAt:            now,
	}
	if err := r.saveLocked(rec); err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetSubscription returns the live subscription or nil.
func (r *FileRegistration) GetSubscription(ctx context.Context) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.loadLocked()
	if err != nil || rec == nil {
		return nil, err
	}
	sub := rec.Subscription
	return &sub, nil
}

// Unsubscribe deletes the stored subscription.
func (r *FileRegistration) Unsubscribe(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.loadLocked()
	if err != nil {
		return false, err
	}
	if err := r.removeLocked(); err != nil {
		return false, err
	}
	return rec != nil, nil
}

// ApplicationServerKey returns the key the live subscription was created
// for, or "" when there is none.
func (r *FileRegistration) ApplicationServerKey() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.loadLocked()
	if err != nil || rec == nil {
		return ""
	}
	return rec.ApplicationServerKey
}

// loadLocked reads the record, dropping it when expired.
func (r *FileRegistration) loadLocked() (*record, error) {
	bytes, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read subscription: %w", err)
	}
	var rec record
	if err := json.Unmarshal(bytes, &rec); err != nil {
		// A damaged registration is treated as revoked.
		_ = r.removeLocked()
		return nil, nil
	}
	if rec.Subscription.Expired(r.clock.Now()) {
		_ = r.removeLocked()
		return nil, nil
	}
	return &rec, nil
}

func (r *FileRegistration) saveLocked(rec *record) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("create subscription dir: %w", err)
	}
	bytes, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal subscription: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, bytes, 0o600); err != nil {
		return fmt.Errorf("write subscription: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace subscription: %w", err)
	}
	return nil
}

func (r *FileRegistration) removeLocked() error {
	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove subscription: %w", err)
	}
	return nil
}
