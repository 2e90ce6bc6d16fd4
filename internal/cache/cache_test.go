package cache

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()

	s, err := Open(
		context.Background(),
		filepath.Join(t.TempDir(), "responses.db"),
		ttl,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestGet_MissReturnsNotOK(t *testing.T) {
	s := newTestStore(t, time.Minute)

	_, ok, err := s.Get(context.Background(), "repos:octocat")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutGet_RoundTrip(t *testing.T) {
	s := newTestStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "repos:octocat", []byte(`[{"full_name":"octocat/hello"}]`)))

	body, ok, err := s.Get(ctx, "repos:octocat")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"full_name":"octocat/hello"}]`, string(body))
}

func TestPut_ReplacesExisting(t *testing.T) {
	s := newTestStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte("old")))
	require.NoError(t, s.Put(ctx, "k", []byte("new")))

	body, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", string(body))
}

func TestGet_ExpiredEntryIsMiss(t *testing.T) {
	s := newTestStore(t, time.Minute)
	ctx := context.Background()

	clock := time.Unix(1700000000, 0)
	s.now = func() time.Time { return clock }

	require.NoError(t, s.Put(ctx, "k", []byte("v")))

	clock = clock.Add(2 * time.Minute)

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPurge_RemovesOnlyStaleEntries(t *testing.T) {
	s := newTestStore(t, time.Minute)
	ctx := context.Background()

	clock := time.Unix(1700000000, 0)
	s.now = func() time.Time { return clock }

	require.NoError(t, s.Put(ctx, "stale", []byte("v")))

	clock = clock.Add(2 * time.Minute)
	require.NoError(t, s.Put(ctx, "fresh", []byte("v")))

	removed, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, ok, err := s.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)
}
