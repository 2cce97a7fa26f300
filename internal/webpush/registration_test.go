package webpush

import (
	"context"
	"crypto/ecdh"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistration(t *testing.T, opts ...Option) (*FileRegistration, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "subscription.json")
	reg, err := NewFileRegistration(path, "https://push.example.com/", opts...)
	require.NoError(t, err)
	return reg, path
}

func TestSubscribe_CreatesP256Subscription(t *testing.T) {
	reg, path := newTestRegistration(t)
	ctx := context.Background()

	sub, err := reg.Subscribe(ctx, "V1")
	require.NoError(t, err)
	require.NotNil(t, sub)

	assert.True(t, strings.HasPrefix(sub.Endpoint, "https://push.example.com/"))
	assert.Nil(t, sub.ExpirationTime)

	raw, err := base64.RawURLEncoding.DecodeString(sub.Keys.P256dh)
	require.NoError(t, err)
	_, err = ecdh.P256().NewPublicKey(raw)
	assert.NoError(t, err, "p256dh must be an uncompressed P-256 point")

	auth, err := base64.RawURLEncoding.DecodeString(sub.Keys.Auth)
	require.NoError(t, err)
	assert.Len(t, auth, 16)

	_, err = os.Stat(path)
	assert.NoError(t, err)
	assert.Equal(t, "V1", reg.ApplicationServerKey())
}

func TestSubscribe_SameKeyReturnsExisting(t *testing.T) {
	reg, _ := newTestRegistration(t)
	ctx := context.Background()

	first, err := reg.Subscribe(ctx, "V1")
	require.NoError(t, err)
	second, err := reg.Subscribe(ctx, "V1")
	require.NoError(t, err)
	assert.Equal(t, first.Endpoint, second.Endpoint)
}

func TestSubscribe_DifferentKeyIsInvalidState(t *testing.T) {
	reg, _ := newTestRegistration(t)
	ctx := context.Background()

	_, err := reg.Subscribe(ctx, "V1")
	require.NoError(t, err)

	_, err = reg.Subscribe(ctx, "V2")
	assert.ErrorIs(t, err, ErrInvalidState)

	had, err := reg.Unsubscribe(ctx)
	require.NoError(t, err)
	assert.True(t, had)

	sub, err := reg.Subscribe(ctx, "V2")
	require.NoError(t, err)
	assert.NotNil(t, sub)
}

func TestGetSubscription_PersistsAcrossInstances(t *testing.T) {
	reg, path := newTestRegistration(t)
	ctx := context.Background()

	created, err := reg.Subscribe(ctx, "V1")
	require.NoError(t, err)

	other, err := NewFileRegistration(path, "https://push.example.com")
	require.NoError(t, err)
	got, err := other.GetSubscription(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.Endpoint, got.Endpoint)
	assert.Equal(t, created.Keys, got.Keys)
}

func TestGetSubscription_ExpiredReadsAsNil(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg, path := newTestRegistration(t, WithClock(clock), WithLifetime(time.Hour))
	ctx := context.Background()

	sub, err := reg.Subscribe(ctx, "V1")
	require.NoError(t, err)
	require.NotNil(t, sub.ExpirationTime)
	assert.Equal(t, clock.Now().Add(time.Hour).UnixMilli(), *sub.ExpirationTime)

	clock.Advance(59 * time.Minute)
	got, err := reg.GetSubscription(ctx)
	require.NoError(t, err)
	assert.NotNil(t, got)

	clock.Advance(time.Minute)
	got, err = reg.GetSubscription(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "expired subscription must read back as nil")

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "expired record should be removed")
}

func TestGetSubscription_CorruptFileReadsAsNil(t *testing.T) {
	reg, path := newTestRegistration(t)
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	got, err := reg.GetSubscription(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUnsubscribe_WithoutSubscription(t *testing.T) {
	reg, _ := newTestRegistration(t)
	had, err := reg.Unsubscribe(context.Background())
	require.NoError(t, err)
	assert.False(t, had)
}

func TestCanceledContextFails(t *testing.T) {
	reg, _ := newTestRegistration(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := reg.Subscribe(ctx, "V1")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = reg.GetSubscription(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = reg.Unsubscribe(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubscriptionJSON(t *testing.T) {
	var nilSub *Subscription
	raw, err := nilSub.JSON()
	require.NoError(t, err)
	assert.Nil(t, raw)

	exp := int64(1700000000000)
	sub := &Subscription{Endpoint: "https://push/1", ExpirationTime: &exp, Keys: Keys{P256dh: "k", Auth: "a"}}
	raw, err = sub.JSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "https://push/1", decoded["endpoint"])
	assert.Equal(t, float64(exp), decoded["expirationTime"])
	assert.Equal(t, map[string]any{"p256dh": "k", "auth": "a"}, decoded["keys"])
}

func TestNewFileRegistration_RequiresPaths(t *testing.T) {
	_, err := NewFileRegistration(" ", "https://push")
	assert.Error(t, err)
	_, err = NewFileRegistration("/tmp/x.json", "")
	assert.Error(t, err)
}
