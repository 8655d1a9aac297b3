// Package cache keeps recent analyses for a freshness window so repeated
// requests for the same URL return identical results.
//
// The whole cache is one JSON document, an array of entries, read and
// written as a unit through a Store. Expired entries are purged whenever the
// document is read, and only the most recently written entries are kept.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Recognized defaults.
const (
	StorageKey        = "metalyz_url_analysis_cache"
	DefaultExpiry     = 24 * time.Hour
	DefaultMaxEntries = 50
)

// Entry is one cached value. Timestamp is Unix milliseconds.
type Entry[T any] struct {
	URL       string `json:"url"`
	Analysis  T      `json:"analysis"`
	Timestamp int64  `json:"timestamp"`
}

func (e Entry[T]) fresh(now time.Time, expiry time.Duration) bool {
	return now.Sub(time.UnixMilli(e.Timestamp)) < expiry
}

// Stats describes the live contents of a cache.
type Stats struct {
	Entries    int           `json:"entries"`
	MaxEntries int           `json:"maxEntries"`
	Expiry     time.Duration `json:"expiry"`
}

// Cache is a freshness-window cache keyed by normalized URL. Every read
// and write takes an explicit now so expiry can be tested without waiting.
type Cache[T any] struct {
	mu         sync.Mutex
	store      Store
	expiry     time.Duration
	maxEntries int
	logger     *log.Logger
}

type options struct {
	expiry     time.Duration
	maxEntries int
	logger     *log.Logger
}

// Option configures a Cache.
type Option func(*options)

// WithExpiry sets the freshness window.
func WithExpiry(d time.Duration) Option {
	return func(o *options) {
		o.expiry = d
	}
}

// WithMaxEntries caps how many entries are retained.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		o.maxEntries = n
	}
}

// WithLogger sets the logger used for unreadable documents.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New creates a Cache on top of store.
func New[T any](store Store, opts ...Option) *Cache[T] {
	o := options{
		expiry:     DefaultExpiry,
		maxEntries: DefaultMaxEntries,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[T]{
		store:      store,
		expiry:     o.expiry,
		maxEntries: o.maxEntries,
		logger:     o.logger,
	}
}

// Get returns the fresh value stored for key.
func (c *Cache[T]) Get(ctx context.Context, key string, now time.Time) (T, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	entries, err := c.load(ctx, now)
	if err != nil {
		return zero, false, err
	}
	for _, e := range entries {
		if e.URL == key {
			return e.Analysis, true, nil
		}
	}
	return zero, false, nil
}

// Set stores value under key, replacing any previous entry for key and
// evicting the oldest entries beyond the capacity.
func (c *Cache[T]) Set(ctx context.Context, key string, value T, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.load(ctx, now)
	if err != nil {
		return err
	}

	kept := entries[:0]
	for _, e := range entries {
		if e.URL != key {
			kept = append(kept, e)
		}
	}
	kept = append(kept, Entry[T]{
		URL:       key,
		Analysis:  value,
		Timestamp: now.UnixMilli(),
	})
	if c.maxEntries > 0 && len(kept) > c.maxEntries {
		kept = kept[len(kept)-c.maxEntries:]
	}

	return c.save(ctx, kept)
}

// Entries returns the fresh entries, oldest first.
func (c *Cache[T]) Entries(ctx context.Context, now time.Time) ([]Entry[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx, now)
}

// Stats reports the number of fresh entries and the cache limits.
func (c *Cache[T]) Stats(ctx context.Context, now time.Time) (Stats, error) {
	entries, err := c.Entries(ctx, now)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Entries:    len(entries),
		MaxEntries: c.maxEntries,
		Expiry:     c.expiry,
	}, nil
}

// Clear drops every entry.
func (c *Cache[T]) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save(ctx, []Entry[T]{})
}

// load reads the document, drops expired entries and writes the document
// back if anything was dropped. An undecodable document counts as empty.
func (c *Cache[T]) load(ctx context.Context, now time.Time) ([]Entry[T], error) {
	data, err := c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}
	if len(data) == 0 {
		return []Entry[T]{}, nil
	}

	var entries []Entry[T]
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Warn("discarding unreadable cache document", "err", err)
		return []Entry[T]{}, nil
	}

	valid := make([]Entry[T], 0, len(entries))
	for _, e := range entries {
		if e.fresh(now, c.expiry) {
			valid = append(valid, e)
		}
	}
	if len(valid) != len(entries) {
		if err := c.save(ctx, valid); err != nil {
			return nil, err
		}
	}
	return valid, nil
}

func (c *Cache[T]) save(ctx context.Context, entries []Entry[T]) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	if err := c.store.Save(ctx, data); err != nil {
		return fmt.Errorf("failed to save cache: %w", err)
	}
	return nil
}
