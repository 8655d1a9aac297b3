package cache_test

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalyz/backend/cache"
)

type result struct {
	Score int `json:"score"`
}

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newCache(store cache.Store, opts ...cache.Option) *cache.Cache[result] {
	opts = append([]cache.Option{cache.WithLogger(log.New(io.Discard))}, opts...)
	return cache.New[result](store, opts...)
}

func TestCache_GetSet(t *testing.T) {
	t.Parallel()

	c := newCache(cache.NewMemoryStore())
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "https://example.com", epoch)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "https://example.com", result{Score: 42}, epoch))

	got, ok, err := c.Get(ctx, "https://example.com", epoch.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result{Score: 42}, got)
}

func TestCache_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	c := newCache(cache.NewMemoryStore())
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", result{Score: 1}, epoch))

	_, ok, err := c.Get(ctx, "k", epoch.Add(cache.DefaultExpiry-time.Millisecond))
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = c.Get(ctx, "k", epoch.Add(cache.DefaultExpiry))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_ExpiredEntriesArePurged(t *testing.T) {
	t.Parallel()

	store := cache.NewMemoryStore()
	c := newCache(store, cache.WithExpiry(time.Hour))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "old", result{Score: 1}, epoch))
	require.NoError(t, c.Set(ctx, "new", result{Score: 2}, epoch.Add(30*time.Minute)))

	entries, err := c.Entries(ctx, epoch.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].URL)

	// The purge is written back, so reading at an earlier time cannot revive it.
	entries, err = c.Entries(ctx, epoch)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCache_Capacity(t *testing.T) {
	t.Parallel()

	c := newCache(cache.NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < cache.DefaultMaxEntries+1; i++ {
		key := fmt.Sprintf("https://site%d.example", i)
		require.NoError(t, c.Set(ctx, key, result{Score: i}, epoch.Add(time.Duration(i)*time.Second)))
	}

	entries, err := c.Entries(ctx, epoch.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, entries, cache.DefaultMaxEntries)
	assert.Equal(t, "https://site1.example", entries[0].URL)
	assert.Equal(t, "https://site50.example", entries[len(entries)-1].URL)

	_, ok, err := c.Get(ctx, "https://site0.example", epoch.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_SetReplacesExistingKey(t *testing.T) {
	t.Parallel()

	c := newCache(cache.NewMemoryStore(), cache.WithMaxEntries(2))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", result{Score: 1}, epoch))
	require.NoError(t, c.Set(ctx, "b", result{Score: 2}, epoch))
	require.NoError(t, c.Set(ctx, "a", result{Score: 3}, epoch.Add(time.Second)))

	entries, err := c.Entries(ctx, epoch.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].URL)
	assert.Equal(t, "a", entries[1].URL)
	assert.Equal(t, 3, entries[1].Analysis.Score)
	assert.Equal(t, epoch.Add(time.Second).UnixMilli(), entries[1].Timestamp)
}

func TestCache_CorruptDocumentIsEmpty(t *testing.T) {
	t.Parallel()

	store := cache.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), []byte("{not json")))
	c := newCache(store)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "k", epoch)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", result{Score: 5}, epoch))
	got, ok, err := c.Get(ctx, "k", epoch)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, got.Score)
}

func TestCache_DocumentFormat(t *testing.T) {
	t.Parallel()

	store := cache.NewMemoryStore()
	c := newCache(store)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "https://example.com", result{Score: 7}, epoch))

	data, err := store.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t,
		fmt.Sprintf(`[{"url":"https://example.com","analysis":{"score":7},"timestamp":%d}]`, epoch.UnixMilli()),
		string(data))
}

func TestCache_StatsAndClear(t *testing.T) {
	t.Parallel()

	c := newCache(cache.NewMemoryStore(), cache.WithMaxEntries(10), cache.WithExpiry(time.Hour))
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", result{}, epoch))
	require.NoError(t, c.Set(ctx, "b", result{}, epoch))

	s, err := c.Stats(ctx, epoch)
	require.NoError(t, err)
	assert.Equal(t, cache.Stats{Entries: 2, MaxEntries: 10, Expiry: time.Hour}, s)

	require.NoError(t, c.Clear(ctx))
	s, err = c.Stats(ctx, epoch)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Entries)
}
