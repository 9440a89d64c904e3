package sessionmgr

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kansuler/pggateway/internal/gatewayerr"
)

func newTestManager(t *testing.T, p *fakePool, cfg Config) *Manager {
	t.Helper()
	m := New(p, cfg, zerolog.Nop())
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m
}

func TestBegin_ReturnsUsableSessionID(t *testing.T) {
	m := newTestManager(t, &fakePool{}, Config{MaxSessions: 10, TTL: time.Minute})

	id, err := m.Begin(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	exec, err := m.Get(id)
	require.NoError(t, err)
	assert.NotNil(t, exec)
}

func TestBegin_EnforcesMaxSessions(t *testing.T) {
	pool := &fakePool{}
	m := newTestManager(t, pool, Config{MaxSessions: 2, TTL: time.Minute})

	_, err := m.Begin(context.Background())
	require.NoError(t, err)
	_, err = m.Begin(context.Background())
	require.NoError(t, err)

	_, err = m.Begin(context.Background())
	require.True(t, gatewayerr.IsSessionLimitExceeded(err))
}

func TestBegin_SlotFreedAfterCloseAllowsNewBegin(t *testing.T) {
	pool := &fakePool{}
	m := newTestManager(t, pool, Config{MaxSessions: 1, TTL: time.Minute})

	id, err := m.Begin(context.Background())
	require.NoError(t, err)

	_, err = m.Begin(context.Background())
	require.True(t, gatewayerr.IsSessionLimitExceeded(err))

	require.NoError(t, m.Close(context.Background(), id))

	_, err = m.Begin(context.Background())
	require.NoError(t, err)
}

func TestBegin_DeriveSessionFailureReleasesReservation(t *testing.T) {
	pool := &fakePool{deriveErr: errDeriveFailed}
	m := newTestManager(t, pool, Config{MaxSessions: 1, TTL: time.Minute})

	_, err := m.Begin(context.Background())
	assert.True(t, gatewayerr.IsDatabaseError(err))

	pool.deriveErr = nil
	_, err = m.Begin(context.Background())
	require.NoError(t, err, "reservation from the failed attempt must not leak")
}

func TestGet_UnknownSessionFails(t *testing.T) {
	m := newTestManager(t, &fakePool{}, Config{MaxSessions: 1, TTL: time.Minute})

	_, err := m.Get("does-not-exist")
	assert.True(t, gatewayerr.IsUnknownSession(err))
}

func TestClose_IsIdempotent(t *testing.T) {
	m := newTestManager(t, &fakePool{}, Config{MaxSessions: 1, TTL: time.Minute})
	id, err := m.Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.Close(context.Background(), id))
	require.NoError(t, m.Close(context.Background(), id)) // second close: no-op, no panic
}

func TestClose_MakesSessionUnknown(t *testing.T) {
	m := newTestManager(t, &fakePool{}, Config{MaxSessions: 1, TTL: time.Minute})
	id, err := m.Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.Close(context.Background(), id))

	_, err = m.Get(id)
	assert.True(t, gatewayerr.IsUnknownSession(err))
}

func TestClose_DestroysTheConnection(t *testing.T) {
	pool := &fakePool{}
	m := newTestManager(t, pool, Config{MaxSessions: 1, TTL: time.Minute})
	id, err := m.Begin(context.Background())
	require.NoError(t, err)

	exec, err := m.Get(id)
	require.NoError(t, err)
	fe := exec.(*fakeExecutor)

	require.NoError(t, m.Close(context.Background(), id))
	assert.True(t, fe.closed)
	assert.True(t, fe.destroyed)
}

func TestList_ReflectsLiveSessionsOnly(t *testing.T) {
	m := newTestManager(t, &fakePool{}, Config{MaxSessions: 3, TTL: time.Minute})
	id1, err := m.Begin(context.Background())
	require.NoError(t, err)
	_, err = m.Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.Close(context.Background(), id1))

	list := m.List()
	require.Len(t, list, 1)
	assert.NotEqual(t, id1, list[0].ID)
}

// TestSlidingTTL_RefreshPreventsExpiry exercises P4: a session refreshed
// within ttl never expires. A fake clock lets the reaper evaluate "now"
// deterministically without a real sleep.
func TestSlidingTTL_RefreshPreventsExpiry(t *testing.T) {
	pool := &fakePool{}
	m := New(pool, Config{MaxSessions: 1, TTL: 100 * time.Millisecond}, zerolog.Nop())
	defer m.Shutdown(context.Background())

	var clockMu sync.Mutex
	clock := time.Now()
	m.now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return clock
	}
	advance := func(d time.Duration) {
		clockMu.Lock()
		clock = clock.Add(d)
		clockMu.Unlock()
	}

	id, err := m.Begin(context.Background())
	require.NoError(t, err)

	// Refresh twice at 60ms intervals — each refresh keeps the session
	// under the 100ms ttl, so it must never expire.
	for i := 0; i < 2; i++ {
		advance(60 * time.Millisecond)
		_, err := m.Get(id)
		require.NoError(t, err)
	}

	// Give the reaper a moment to run against the real clock (it evaluates
	// m.now(), which we control, but the goroutine itself schedules on the
	// real clock, so a short real sleep lets any spurious pop happen).
	time.Sleep(20 * time.Millisecond)

	_, err = m.Get(id)
	assert.NoError(t, err, "a session refreshed within ttl must not expire")
}

// TestSlidingTTL_IdleSessionExpires exercises P4's other half: untouched
// for ttl, the session expires and is implicitly rolled back.
func TestSlidingTTL_IdleSessionExpires(t *testing.T) {
	pool := &fakePool{}
	m := New(pool, Config{MaxSessions: 1, TTL: 30 * time.Millisecond}, zerolog.Nop())
	defer m.Shutdown(context.Background())

	id, err := m.Begin(context.Background())
	require.NoError(t, err)

	// Poll with Peek, which does not refresh the session; Get would reset
	// the sliding TTL on every poll and keep the session alive.
	require.Eventually(t, func() bool {
		_, live := m.Peek(id)
		return !live
	}, time.Second, 5*time.Millisecond, "idle session must expire after ttl")

	_, err = m.Get(id)
	assert.True(t, gatewayerr.IsUnknownSession(err))
}

func TestPeek_DoesNotRefreshLastActive(t *testing.T) {
	pool := &fakePool{}
	m := New(pool, Config{MaxSessions: 1, TTL: time.Minute}, zerolog.Nop())
	defer m.Shutdown(context.Background())

	id, err := m.Begin(context.Background())
	require.NoError(t, err)

	info1, ok := m.Peek(id)
	require.True(t, ok)
	info2, ok := m.Peek(id)
	require.True(t, ok)

	assert.Equal(t, info1.ExpiresIn >= info2.ExpiresIn, true, "peeking twice must not extend the TTL")
}

func TestPeek_UnknownSession(t *testing.T) {
	m := newTestManager(t, &fakePool{}, Config{MaxSessions: 1, TTL: time.Minute})
	_, ok := m.Peek("nope")
	assert.False(t, ok)
}

func TestShutdown_RollsBackAndDestroysAllSessions(t *testing.T) {
	pool := &fakePool{}
	m := New(pool, Config{MaxSessions: 2, TTL: time.Minute}, zerolog.Nop())

	id1, err := m.Begin(context.Background())
	require.NoError(t, err)
	exec1, err := m.Get(id1)
	require.NoError(t, err)
	fe1 := exec1.(*fakeExecutor)

	require.NoError(t, m.Shutdown(context.Background()))

	fe1.mu.Lock()
	defer fe1.mu.Unlock()
	assert.True(t, fe1.destroyed)
	assert.Contains(t, fe1.executed, "ROLLBACK")
	assert.EqualValues(t, 1, pool.closedCount)
}
