package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daybookhq/daybook/internal/store"
	"github.com/daybookhq/daybook/internal/testutil"
)

var testStart = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

// newTestStore opens a fresh database and pins the store's clock.
func newTestStore(t *testing.T) (*SQLiteStore, *testutil.FrozenClock) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "store.Open should succeed")
	t.Cleanup(func() { st.Close() })

	clock := testutil.NewFrozenClock(testStart)
	s := NewSQLiteStore(st.DB())
	s.now = clock.Now
	return s, clock
}

func TestGet_AbsentReturnsNil(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, rec, "absent session should be nil, not an error")
}

func TestSetGet_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "sid-1", `{"user":"ada"}`, time.Hour))

	rec, err := s.Get(ctx, "sid-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "sid-1", rec.SID)
	assert.Equal(t, `{"user":"ada"}`, rec.Payload)
	assert.Equal(t, testStart.Add(time.Hour).UnixMilli(), rec.ExpiresAt.UnixMilli())
}

func TestSet_OverwritesPayloadAndExpiry(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "sid-1", "old", time.Hour))
	clock.Advance(10 * time.Minute)
	require.NoError(t, s.Set(ctx, "sid-1", "new", time.Hour))

	rec, err := s.Get(ctx, "sid-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "new", rec.Payload)
	assert.Equal(t, testStart.Add(70*time.Minute).UnixMilli(), rec.ExpiresAt.UnixMilli())
}

func TestGet_ExpiredTreatedAsAbsent(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "sid-1", "payload", time.Hour))

	clock.Advance(time.Hour + time.Millisecond)
	rec, err := s.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, rec, "expired session should read as absent")
}

func TestGet_ExactExpiryStillLive(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "sid-1", "payload", time.Hour))

	// expiresAt >= now keeps the session alive at the boundary.
	clock.Advance(time.Hour)
	rec, err := s.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.NotNil(t, rec, "session expiring exactly now should still be returned")
}

func TestGet_ExpiredRowIsDeletedLazily(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "sid-1", "payload", time.Hour))
	clock.Advance(2 * time.Hour)

	_, err := s.Get(ctx, "sid-1")
	require.NoError(t, err)

	var rows int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE sid = 'sid-1'`).Scan(&rows))
	assert.Equal(t, 0, rows, "expired row should be removed once read")
}

func TestDestroy_RemovesSession(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "sid-1", "payload", time.Hour))
	require.NoError(t, s.Destroy(ctx, "sid-1"))

	rec, err := s.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestDestroy_AbsentIsNoError(t *testing.T) {
	s, _ := newTestStore(t)

	assert.NoError(t, s.Destroy(context.Background(), "never-existed"))
}

func TestTouch_ExtendsExpiryOnly(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "sid-1", "payload", time.Hour))

	clock.Advance(50 * time.Minute)
	require.NoError(t, s.Touch(ctx, "sid-1", time.Hour))

	// Past the original expiry, but inside the touched one.
	clock.Advance(30 * time.Minute)
	rec, err := s.Get(ctx, "sid-1")
	require.NoError(t, err)
	require.NotNil(t, rec, "touched session should outlive its original expiry")
	assert.Equal(t, "payload", rec.Payload, "touch must not rewrite the payload")
}

func TestTouch_AbsentIsNoOp(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Touch(ctx, "never-existed", time.Hour))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "touch must not create sessions")
}

func TestClear_RemovesEverything(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "sid-1", "a", time.Hour))
	require.NoError(t, s.Set(ctx, "sid-2", "b", time.Hour))

	require.NoError(t, s.Clear(ctx))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestCount_ExcludesExpired(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "short", "a", time.Minute))
	require.NoError(t, s.Set(ctx, "long", "b", time.Hour))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Only the short session lapses; no read has deleted its row yet.
	clock.Advance(10 * time.Minute)
	count, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "expired-but-present rows must not be counted")
}
