// Package webpushtest provides an in-memory push registration with failure
// injection.
package webpushtest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/five82/adindex/internal/webpush"
)

// Registration is an in-memory webpush.Registration.
type Registration struct {
	mu  sync.Mutex
	sub *webpush.Subscription
	key string

	SubscribeErr   error
	GetErr         error
	UnsubscribeErr error

	subscribes   int
	unsubscribes int
}

// Ensure Registration implements webpush.Registration at compile time.
var _ webpush.Registration = (*Registration)(nil)

// New returns an empty registration.
func New() *Registration {
	return &Registration{}
}

// Subscribe creates or returns the subscription for key.
func (r *Registration) Subscribe(ctx context.Context, key string) (*webpush.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribes++
	if r.SubscribeErr != nil {
		return nil, r.SubscribeErr
	}
	if r.sub != nil {
		if r.key != key {
			return nil, webpush.ErrInvalidState
		}
		sub := *r.sub
		return &sub, nil
	}
	r.sub = &webpush.Subscription{
		Endpoint: "https://push.test/" + uuid.NewString(),
		Keys:     webpush.Keys{P256dh: "p256dh-" + key, Auth: "auth"},
	}
	r.key = key
	sub := *r.sub
	return &sub, nil
}

// GetSubscription returns the current subscription or nil.
func (r *Registration) GetSubscription(ctx context.Context) (*webpush.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	if r.sub == nil {
		return nil, nil
	}
	sub := *r.sub
	return &sub, nil
}

// Unsubscribe drops the current subscription.
func (r *Registration) Unsubscribe(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsubscribes++
	if r.UnsubscribeErr != nil {
		return false, r.UnsubscribeErr
	}
	had := r.sub != nil
	r.sub = nil
	r.key = ""
	return had, nil
}

// Install sets the current subscription directly, as if created for key.
func (r *Registration) Install(key string) *webpush.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sub = &webpush.Subscription{
		Endpoint: "https://push.test/" + uuid.NewString(),
		Keys:     webpush.Keys{P256dh: "p256dh-" + key, Auth: "auth"},
	}
	r.key = key
	sub := *r.sub
	return &sub
}

// Revoke drops the subscription the way the platform does, silently.
func (r *Registration) Revoke() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sub = nil
	r.key = ""
}

// Current returns the subscription without going through the capability.
func (r *Registration) Current() *webpush.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub == nil {
		return nil
	}
	sub := *r.sub
	return &sub
}

// Key returns the application server key of the current subscription.
func (r *Registration) Key() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.key
}

// Subscribes counts Subscribe calls.
func (r *Registration) Subscribes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subscribes
}

// Unsubscribes counts Unsubscribe calls.
func (r *Registration) Unsubscribes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unsubscribes
}

// SetSubscribeErr sets the error Subscribe returns.
func (r *Registration) SetSubscribeErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SubscribeErr = err
}

// SetUnsubscribeErr sets the error Unsubscribe returns.
func (r *Registration) SetUnsubscribeErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.UnsubscribeErr = err
}
