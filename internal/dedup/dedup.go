package dedup

import (
	"fmt"
	"strings"
	"time"
)

// Package dedup guarantees a given article URL is accepted at most once per
// run and at most once across runs.

// Cache is the cross-run seen-key store. Implementations must be safe for
// concurrent reads, though the pipeline only consults it from the page
// walker's apply phase.
type Cache interface {
	Close() error
	SeenKey(key string) (bool, error)
	MarkKey(key string) error
}

// Options controls retention for concrete cache implementations.
type Options struct {
	KeyTTL          time.Duration
	CleanupInterval time.Duration
}

const (
	defaultKeyTTL          = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewCache creates the configured cache backend.
func NewCache(typ, path string, opts Options) (Cache, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopCache{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt cache requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported cache type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.KeyTTL <= 0 {
		opts.KeyTTL = defaultKeyTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopCache struct{}

func (noopCache) Close() error                 { return nil }
func (noopCache) SeenKey(string) (bool, error) { return false, nil }
func (noopCache) MarkKey(string) error         { return nil }

// Deduplicator tracks the keys of one orchestrator run, seeded from the
// persisted store and backed by the cross-run cache. It is not safe for
// concurrent use: per the pipeline's concurrency model only the page walker
// touches it, after its worker pool has joined.
type Deduplicator struct {
	run   map[string]bool
	cache Cache
}

// New builds a Deduplicator over the given cache. A nil cache means
// run-scoped deduplication only.
func New(cache Cache) *Deduplicator {
	if cache == nil {
		cache = noopCache{}
	}
	return &Deduplicator{
		run:   make(map[string]bool),
		cache: cache,
	}
}

// SeedKeys pre-marks keys already present in the persisted store.
func (d *Deduplicator) SeedKeys(keys []string) {
	for _, k := range keys {
		if k != "" {
			d.run[k] = true
		}
	}
}

// Seen reports whether the key was accepted earlier in this run, seeded from
// the store, or recorded by a previous run. Cache errors degrade to
// "unseen": a duplicate row is recoverable, a dropped article is not.
func (d *Deduplicator) Seen(key string) bool {
	if d.run[key] {
		return true
	}
	seen, err := d.cache.SeenKey(key)
	if err != nil {
		return false
	}
	return seen
}

// Mark records the key for this run and the cross-run cache.
func (d *Deduplicator) Mark(key string) error {
	d.run[key] = true
	if err := d.cache.MarkKey(key); err != nil {
		return fmt.Errorf("mark key in cache: %w", err)
	}
	return nil
}

// RunSize returns how many keys this run has recorded or seeded.
func (d *Deduplicator) RunSize() int {
	return len(d.run)
}
