package replayid_test

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrymomot/cookieauth/pkg/replayid"

	"github.com/stretchr/testify/require"
)

func TestIssueAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := replayid.NewMemoryStore()

	expiresAt := time.Now().Add(5 * time.Minute)
	id, err := replayid.Issue(ctx, store, expiresAt)
	require.NoError(t, err)
	require.Len(t, id, replayid.Len)

	stored, ok, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, stored.Equal(expiresAt))
}

func TestCompareAndDeleteSingleUse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := replayid.NewMemoryStore()

	expiresAt := time.Now().Add(5 * time.Minute)
	id, err := replayid.Issue(ctx, store, expiresAt)
	require.NoError(t, err)

	// Operation A consumes the id.
	ok, err := store.CompareAndDelete(ctx, id, expiresAt)
	require.NoError(t, err)
	require.True(t, ok)

	// Operation B racing with the same id must be rejected regardless of
	// interleaving order.
	ok, err = store.CompareAndDelete(ctx, id, expiresAt)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCompareAndDeleteExpiryMismatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := replayid.NewMemoryStore()

	expiresAt := time.Now().Add(5 * time.Minute)
	id, err := replayid.Issue(ctx, store, expiresAt)
	require.NoError(t, err)

	ok, err := store.CompareAndDelete(ctx, id, expiresAt.Add(time.Second))
	require.NoError(t, err)
	require.False(t, ok)

	// The id survives a failed comparison while still live.
	_, present, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, present)
}

func TestRotate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := replayid.NewMemoryStore()

	expiresAt := time.Now().Add(5 * time.Minute)
	oldID, err := replayid.Issue(ctx, store, expiresAt)
	require.NoError(t, err)

	newID, err := replayid.Rotate(ctx, store, oldID, expiresAt)
	require.NoError(t, err)
	require.NotEmpty(t, newID)
	require.NotEqual(t, oldID, newID)

	_, present, err := store.Get(ctx, oldID)
	require.NoError(t, err)
	require.False(t, present)

	stored, present, err := store.Get(ctx, newID)
	require.NoError(t, err)
	require.True(t, present)
	require.True(t, stored.Equal(expiresAt))
}

func TestRotateStaleID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := replayid.NewMemoryStore()

	expiresAt := time.Now().Add(5 * time.Minute)
	oldID, err := replayid.Issue(ctx, store, expiresAt)
	require.NoError(t, err)

	newID, err := replayid.Rotate(ctx, store, oldID, expiresAt)
	require.NoError(t, err)
	require.NotEmpty(t, newID)

	// The consumed id presents as stale for any later rotation attempt.
	got, err := replayid.Rotate(ctx, store, oldID, expiresAt)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestUpdateExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := replayid.NewMemoryStore()

	expiresAt := time.Now().Add(5 * time.Minute)
	id, err := replayid.Issue(ctx, store, expiresAt)
	require.NoError(t, err)

	newExpiry := expiresAt.Add(5 * time.Minute)
	ok, err := store.UpdateExpiry(ctx, id, expiresAt, newExpiry)
	require.NoError(t, err)
	require.True(t, ok)

	// Old expiry no longer matches.
	ok, err = store.UpdateExpiry(ctx, id, expiresAt, newExpiry)
	require.NoError(t, err)
	require.False(t, ok)

	stored, present, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, present)
	require.True(t, stored.Equal(newExpiry))
}

func TestReplaceExpiredID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := replayid.NewMemoryStore()

	expiresAt := time.Now().Add(-time.Minute)
	ok, err := store.Put(ctx, "dead-id", expiresAt)
	require.NoError(t, err)
	require.True(t, ok)

	// A dead id presents as stale; rotating it must not plant an
	// already-expired replacement.
	ok, err = store.Replace(ctx, "dead-id", expiresAt, "fresh-id")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 0, store.Len())
}

func TestPutSweepsExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := replayid.NewMemoryStore()

	ok, err := store.Put(ctx, "expired-id", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.Put(ctx, "live-id", time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, store.Len())
}
