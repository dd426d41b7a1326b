package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolReusesUsableSession(t *testing.T) {
	dialer := &fakeDialer{}
	pool := NewPool(dialer.dial, testLogger())
	defer pool.Shutdown()

	cfg := testConfig()
	acc := cfg.GetAccount("work")

	first, err := pool.Acquire(context.Background(), acc)
	require.NoError(t, err)

	second, err := pool.Acquire(context.Background(), acc)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, dialer.dialCount())
}

func TestPoolRedialsUnusableSession(t *testing.T) {
	stale := newFakeSession()
	fresh := newFakeSession()
	dialer := &fakeDialer{sessions: []*fakeSession{stale, fresh}}
	pool := NewPool(dialer.dial, testLogger())
	defer pool.Shutdown()

	acc := testConfig().GetAccount("work")

	first, err := pool.Acquire(context.Background(), acc)
	require.NoError(t, err)
	assert.Same(t, stale, first)

	stale.mu.Lock()
	stale.usable = false
	stale.mu.Unlock()

	second, err := pool.Acquire(context.Background(), acc)
	require.NoError(t, err)
	assert.Same(t, fresh, second)
	assert.Equal(t, 2, dialer.dialCount())
}

func TestPoolOneEntryPerAccount(t *testing.T) {
	dialer := &fakeDialer{}
	pool := NewPool(dialer.dial, testLogger())
	defer pool.Shutdown()

	cfg := testConfig()

	_, err := pool.Acquire(context.Background(), cfg.GetAccount("work"))
	require.NoError(t, err)
	_, err = pool.Acquire(context.Background(), cfg.GetAccount("personal"))
	require.NoError(t, err)

	pool.mu.Lock()
	assert.Len(t, pool.entries, 2)
	pool.mu.Unlock()
	assert.Equal(t, 2, dialer.dialCount())
}

func TestPoolDialErrorNotCached(t *testing.T) {
	dialer := &fakeDialer{errs: []error{errors.New("connection refused")}}
	pool := NewPool(dialer.dial, testLogger())
	defer pool.Shutdown()

	acc := testConfig().GetAccount("work")

	_, err := pool.Acquire(context.Background(), acc)
	require.Error(t, err)

	pool.mu.Lock()
	assert.Empty(t, pool.entries)
	pool.mu.Unlock()

	// The failure is not cached; the next acquire dials again.
	_, err = pool.Acquire(context.Background(), acc)
	require.NoError(t, err)
	assert.Equal(t, 2, dialer.dialCount())
}

func TestPoolReapsIdleSessions(t *testing.T) {
	session := newFakeSession()
	dialer := &fakeDialer{sessions: []*fakeSession{session}}
	pool := NewPool(dialer.dial, testLogger())
	defer pool.Shutdown()

	acc := testConfig().GetAccount("work")
	_, err := pool.Acquire(context.Background(), acc)
	require.NoError(t, err)

	pool.mu.Lock()
	pool.entries[acc.Name].lastUsedAt = time.Now().Add(-10 * time.Minute)
	pool.mu.Unlock()

	pool.reapIdle(time.Now())

	pool.mu.Lock()
	assert.Empty(t, pool.entries)
	pool.mu.Unlock()

	// Close runs fire-and-forget relative to the scan.
	assert.Eventually(t, session.Closed, time.Second, 10*time.Millisecond)
}

func TestPoolReapSwallowsCloseErrors(t *testing.T) {
	session := newFakeSession()
	session.closeErr = errors.New("connection reset")
	dialer := &fakeDialer{sessions: []*fakeSession{session}}
	pool := NewPool(dialer.dial, testLogger())
	defer pool.Shutdown()

	acc := testConfig().GetAccount("work")
	_, err := pool.Acquire(context.Background(), acc)
	require.NoError(t, err)

	pool.mu.Lock()
	pool.entries[acc.Name].lastUsedAt = time.Now().Add(-10 * time.Minute)
	pool.mu.Unlock()

	// Must not panic, and the entry must still be evicted.
	pool.reapIdle(time.Now())

	pool.mu.Lock()
	assert.Empty(t, pool.entries)
	pool.mu.Unlock()
	assert.Eventually(t, session.Closed, time.Second, 10*time.Millisecond)
}

func TestPoolReapKeepsFreshSessions(t *testing.T) {
	dialer := &fakeDialer{}
	pool := NewPool(dialer.dial, testLogger())
	defer pool.Shutdown()

	acc := testConfig().GetAccount("work")
	_, err := pool.Acquire(context.Background(), acc)
	require.NoError(t, err)

	pool.reapIdle(time.Now())

	pool.mu.Lock()
	assert.Len(t, pool.entries, 1)
	pool.mu.Unlock()
}

func TestPoolShutdownClosesSessions(t *testing.T) {
	work := newFakeSession()
	personal := newFakeSession()
	dialer := &fakeDialer{sessions: []*fakeSession{work, personal}}
	pool := NewPool(dialer.dial, testLogger())

	cfg := testConfig()
	_, err := pool.Acquire(context.Background(), cfg.GetAccount("work"))
	require.NoError(t, err)
	_, err = pool.Acquire(context.Background(), cfg.GetAccount("personal"))
	require.NoError(t, err)

	pool.Shutdown()

	assert.True(t, work.Closed())
	assert.True(t, personal.Closed())

	pool.mu.Lock()
	assert.Empty(t, pool.entries)
	pool.mu.Unlock()

	// A second shutdown is a no-op, not a panic.
	pool.Shutdown()
}
