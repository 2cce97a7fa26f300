package pushsync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/adindex/internal/adindex"
	"github.com/five82/adindex/internal/adindex/adindextest"
	"github.com/five82/adindex/internal/apperr"
	"github.com/five82/adindex/internal/pushsync"
	"github.com/five82/adindex/internal/webpush/webpushtest"
)

var testSession = adindex.Session{SessionID: "session-0001-abcd", VapidPub: "V1"}

type fixture struct {
	srv   *adindextest.Server
	push  *webpushtest.Registration
	clock *clockwork.FakeClock
	sync  *pushsync.Synchronizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := adindextest.New(t)
	srv.AddSession(testSession)
	push := webpushtest.New()
	clock := clockwork.NewFakeClock()
	return &fixture{
		srv:   srv,
		push:  push,
		clock: clock,
		sync:  pushsync.New(srv.Client(t), push, testSession, pushsync.WithClock(clock)),
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNew_StartsUnknown(t *testing.T) {
	f := newFixture(t)
	st := f.sync.Status()
	assert.Equal(t, pushsync.IntentUnknown, st.Intent)
	assert.Equal(t, pushsync.HealthUnknown, st.Health)
	assert.False(t, st.Pending)
}

func TestToggleOn_Success(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	op := f.sync.Toggle(true)
	st := f.sync.Status()
	assert.Equal(t, pushsync.IntentEnabled, st.Intent, "intent is shown optimistically")
	assert.True(t, st.Pending)

	res := op.Run(ctx)
	require.NoError(t, res.Err)
	assert.True(t, f.sync.Complete(res))

	st = f.sync.Status()
	assert.Equal(t, pushsync.IntentEnabled, st.Intent)
	assert.Equal(t, pushsync.IntentEnabled, st.Confirmed)
	assert.False(t, st.Pending)
	assert.Equal(t, pushsync.HealthOK, st.Health)
	assert.Equal(t, f.clock.Now(), st.LastSync)

	assert.Equal(t, "V1", f.push.Key(), "subscription scoped to the session key")
	assert.NotNil(t, f.srv.PushSub(testSession.SessionID))
}

func TestToggleOn_ServerFailureLeavesIntentDisabledAndSubscriptionInPlace(t *testing.T) {
	f := newFixture(t)
	f.srv.Fail("update_push_sub", "database is locked")

	op := f.sync.Toggle(true)
	res := op.Run(testContext(t))
	require.Error(t, res.Err)
	assert.True(t, apperr.Is(res.Err, apperr.TypeNetwork))
	assert.True(t, f.sync.Complete(res))

	st := f.sync.Status()
	assert.Equal(t, pushsync.IntentDisabled, st.Intent)
	assert.Equal(t, res.Err, st.Err)
	assert.False(t, st.Pending)
	assert.NotNil(t, f.push.Current(), "residual platform subscription remains")
	assert.Nil(t, f.srv.PushSub(testSession.SessionID))
}

func TestToggleOn_PlatformFailureIsSubscriptionError(t *testing.T) {
	f := newFixture(t)
	f.push.SetSubscribeErr(errors.New("permission denied"))

	res := f.sync.Toggle(true).Run(testContext(t))
	require.Error(t, res.Err)
	assert.Equal(t, apperr.TypeSubscription, apperr.TypeOf(res.Err))
	f.sync.Complete(res)

	assert.Equal(t, pushsync.IntentDisabled, f.sync.Status().Intent)
	assert.Equal(t, 0, f.srv.Calls("update_push_sub"))
}

func TestToggleOff_FailureRevertsToEnabled(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	f.sync.Complete(f.sync.Toggle(true).Run(ctx))
	require.Equal(t, pushsync.IntentEnabled, f.sync.Status().Intent)

	f.push.SetUnsubscribeErr(errors.New("push service unavailable"))
	op := f.sync.Toggle(false)
	assert.Equal(t, pushsync.IntentDisabled, f.sync.Status().Intent)

	res := op.Run(ctx)
	require.Error(t, res.Err)
	assert.Equal(t, apperr.TypeSubscription, apperr.TypeOf(res.Err))
	f.sync.Complete(res)

	st := f.sync.Status()
	assert.Equal(t, pushsync.IntentEnabled, st.Intent)
	assert.Equal(t, pushsync.IntentEnabled, st.Confirmed)
	assert.NotNil(t, f.srv.PushSub(testSession.SessionID), "server record untouched")
}

func TestToggleOff_SuccessClearsServerRecord(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	f.sync.Complete(f.sync.Toggle(true).Run(ctx))
	require.NotNil(t, f.srv.PushSub(testSession.SessionID))

	res := f.sync.Toggle(false).Run(ctx)
	require.NoError(t, res.Err)
	f.sync.Complete(res)

	assert.Equal(t, pushsync.IntentDisabled, f.sync.Status().Intent)
	assert.Nil(t, f.push.Current())
	assert.Nil(t, f.srv.PushSub(testSession.SessionID))
}

func TestComplete_DiscardsStaleToggle(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	enable := f.sync.Toggle(true)
	disable := f.sync.Toggle(false)

	// The later disable finishes first.
	disableRes := disable.Run(ctx)
	require.NoError(t, disableRes.Err)
	assert.True(t, f.sync.Complete(disableRes))

	f.srv.Fail("update_push_sub", "slow and failing")
	enableRes := enable.Run(ctx)
	require.Error(t, enableRes.Err)
	assert.False(t, f.sync.Complete(enableRes), "stale enable must be discarded")

	st := f.sync.Status()
	assert.Equal(t, pushsync.IntentDisabled, st.Intent)
	assert.Nil(t, st.Err)
	assert.Equal(t, uint64(2), st.Generation)
}

func TestComplete_SupersededSuccessThenCurrentFailure(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	f.push.Install(testSession.VapidPub)
	require.True(t, f.sync.Complete(f.sync.Refresh().Run(ctx)))
	require.Equal(t, pushsync.IntentEnabled, f.sync.Status().Confirmed)

	disable := f.sync.Toggle(false)
	enable := f.sync.Toggle(true)

	disableRes := disable.Run(ctx)
	require.NoError(t, disableRes.Err)
	assert.False(t, f.sync.Complete(disableRes), "superseded disable is not applied")
	assert.Equal(t, pushsync.IntentEnabled, f.sync.Status().Intent, "displayed intent untouched")
	assert.Equal(t, pushsync.IntentDisabled, f.sync.Status().Confirmed, "server acknowledgment recorded")

	f.push.SetSubscribeErr(errors.New("permission denied"))
	enableRes := enable.Run(ctx)
	require.Error(t, enableRes.Err)
	assert.True(t, f.sync.Complete(enableRes))

	st := f.sync.Status()
	assert.Equal(t, pushsync.IntentDisabled, st.Intent)
	assert.Equal(t, pushsync.IntentDisabled, st.Confirmed)
	assert.Nil(t, f.push.Current())
	assert.Nil(t, f.srv.PushSub(testSession.SessionID), "confirmed intent matches the server record")
}

func TestSync_NullTwiceIsServerNoop(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	f.sync.Complete(f.sync.Toggle(true).Run(ctx))
	require.NotNil(t, f.srv.PushSub(testSession.SessionID))
	writes := f.srv.PushSubWrites()

	res := f.sync.Sync(nil).Run(ctx)
	require.NoError(t, res.Err)
	f.sync.Complete(res)
	assert.Nil(t, f.srv.PushSub(testSession.SessionID), "null sync clears the record")
	assert.Equal(t, writes+1, f.srv.PushSubWrites())

	res = f.sync.Sync(nil).Run(ctx)
	require.NoError(t, res.Err)
	f.sync.Complete(res)
	assert.Equal(t, writes+1, f.srv.PushSubWrites(), "second null sync changes nothing")
	assert.Equal(t, pushsync.IntentDisabled, f.sync.Status().Intent)
}

func TestRefresh_PushesRevokedSubscriptionAsNull(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	f.sync.Complete(f.sync.Toggle(true).Run(ctx))
	f.push.Revoke()

	res := f.sync.Refresh().Run(ctx)
	require.NoError(t, res.Err)
	assert.True(t, f.sync.Complete(res))

	assert.Nil(t, f.srv.PushSub(testSession.SessionID))
	assert.Equal(t, pushsync.IntentDisabled, f.sync.Status().Intent)
}

func TestRefresh_ExistingSubscriptionShowsEnabled(t *testing.T) {
	f := newFixture(t)
	f.push.Install("V1")

	res := f.sync.Refresh().Run(testContext(t))
	require.NoError(t, res.Err)
	f.sync.Complete(res)

	assert.Equal(t, pushsync.IntentEnabled, f.sync.Status().Intent)
	assert.NotNil(t, f.srv.PushSub(testSession.SessionID))
}

func TestPassiveSyncFailureDegradesWithoutAlert(t *testing.T) {
	f := newFixture(t)
	f.srv.FailStatus("update_push_sub", 503)

	res := f.sync.Refresh().Run(testContext(t))
	require.Error(t, res.Err)
	f.sync.Complete(res)

	st := f.sync.Status()
	assert.Equal(t, pushsync.HealthDegraded, st.Health)
	assert.Nil(t, st.Err, "passive failures are not surfaced as alerts")
	assert.Equal(t, pushsync.IntentUnknown, st.Intent)

	f.srv.Recover("")
	f.clock.Advance(time.Minute)
	res = f.sync.Refresh().Run(testContext(t))
	require.NoError(t, res.Err)
	f.sync.Complete(res)
	st = f.sync.Status()
	assert.Equal(t, pushsync.HealthOK, st.Health)
	assert.Equal(t, f.clock.Now(), st.LastSync)
}

func TestSyncDuringPendingToggleDoesNotOverrideIntent(t *testing.T) {
	f := newFixture(t)
	ctx := testContext(t)

	toggle := f.sync.Toggle(true)
	syncOp := f.sync.Sync(nil)

	res := syncOp.Run(ctx)
	require.NoError(t, res.Err)
	assert.False(t, f.sync.Complete(res))
	assert.Equal(t, pushsync.IntentEnabled, f.sync.Status().Intent)

	f.sync.Complete(toggle.Run(ctx))
	assert.Equal(t, pushsync.IntentEnabled, f.sync.Status().Intent)
}

func TestUnknownSessionOnServerFailsToggle(t *testing.T) {
	srv := adindextest.New(t)
	push := webpushtest.New()
	s := pushsync.New(srv.Client(t), push, testSession)

	res := s.Toggle(true).Run(testContext(t))
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "not found")
	s.Complete(res)
	assert.Equal(t, pushsync.IntentDisabled, s.Status().Intent)
}
