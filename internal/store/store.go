package store

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// DefaultDurableTimeout bounds a single durable backend call.
const DefaultDurableTimeout = 10 * time.Second

// Mode is the store's persistence mode.
type Mode string

const (
	ModeDurable    Mode = "durable"
	ModeMemoryOnly Mode = "memory-only"
)

// Status reports the persistence mode and, in memory-only mode, why.
type Status struct {
	Mode   Mode   `json:"mode"`
	Reason string `json:"reason,omitempty"`
}

// WriteResult is the outcome of Set or Delete.
//
// Accepted means the cache reflects the write and subsequent reads on this
// instance will observe it. Persisted means the durable backend confirmed
// it. Err carries the durable failure, or ErrMemoryOnly, when Persisted is
// false.
type WriteResult struct {
	Accepted  bool
	Persisted bool
	Err       error
}

// Entry is one item returned by List. Value is nil when the key is listed
// durably but could not be read back.
type Entry struct {
	Key      string
	Value    []byte
	StoredAt time.Time
}

// Store is the cache-backed store. It is safe for concurrent use.
type Store struct {
	backend        Backend
	volatile       bool
	cache          *cache
	status         Status
	deps           DependencyTable
	now            func() time.Time
	cacheTimeout   time.Duration
	durableTimeout time.Duration
	logger         zerolog.Logger
	metrics        *Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for cache timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCacheTimeout sets the cache TTL. Non-positive values keep the default.
func WithCacheTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.cacheTimeout = d
		}
	}
}

// WithDurableTimeout bounds each durable call. Zero disables the bound and
// relies on the caller's context alone.
func WithDurableTimeout(d time.Duration) Option {
	return func(s *Store) { s.durableTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithMetrics records cache and backend activity on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithDependencies replaces the invalidation table.
func WithDependencies(deps DependencyTable) Option {
	return func(s *Store) { s.deps = deps }
}

// New creates a Store over backend. A nil or Volatile backend yields a
// memory-only store.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:        backend,
		deps:           DefaultDependencies(),
		now:            time.Now,
		cacheTimeout:   DefaultCacheTimeout,
		durableTimeout: DefaultDurableTimeout,
		logger:         zerolog.Nop(),
		status:         Status{Mode: ModeDurable},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = newCache(s.cacheTimeout, s.now)

	if v, ok := backend.(Volatile); ok && v.Volatile() {
		s.volatile = true
		s.status = Status{Mode: ModeMemoryOnly, Reason: fmt.Errorf("%w: %w", ErrMemoryOnly, ErrVolatileBackend).Error()}
	}
	if backend == nil {
		s.status = Status{Mode: ModeMemoryOnly, Reason: ErrMemoryOnly.Error()}
	}
	s.metrics.setMode(s.status.Mode)
	return s
}

// Open calls opener once. When it fails the store runs memory-only for its
// whole lifetime and Status reports the opener's error.
func Open(ctx context.Context, opener Opener, opts ...Option) *Store {
	if opener == nil {
		return New(nil, opts...)
	}

	backend, err := opener(ctx)
	if err != nil {
		s := New(nil, opts...)
		s.status.Reason = fmt.Errorf("%w: %w", ErrMemoryOnly, err).Error()
		s.logger.Warn().
			Err(err).
			Str("mode", string(ModeMemoryOnly)).
			Msg("durable backend unavailable, serving from cache only")
		return s
	}

	s := New(backend, opts...)
	s.logger.Info().Str("mode", string(s.status.Mode)).Msg("store opened")
	return s
}

// Status reports the persistence mode.
func (s *Store) Status() Status {
	return s.status
}

// Get returns the JSON value stored at key.
//
// A fresh cache entry is returned without touching the backend. On a miss
// the backend is consulted and a found value is cached. Backend failures
// are logged and reported as not found. The returned slice must not be
// modified.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	if e, ok := s.cache.get(key); ok {
		s.metrics.hit()
		s.logger.Debug().Str("key", key).Msg("cache hit")
		return e.data, true
	}
	s.metrics.miss()

	if s.backend == nil {
		return nil, false
	}

	dctx, cancel := s.durableContext(ctx)
	defer cancel()

	data, found, err := s.backend.Get(dctx, key)
	if err != nil {
		s.metrics.durableError("get")
		s.logger.Warn().Err(err).Str("key", key).Msg("durable read failed")
		return nil, false
	}
	if !found {
		return nil, false
	}

	s.cache.put(key, data)
	return data, true
}

// GetJSON decodes the value at key into dst. It reports found=false with a
// nil error when the key is absent.
func (s *Store) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, ok := s.Get(ctx, key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Set encodes value as JSON, caches it, then attempts the durable write.
// Cache entries that depend on key are invalidated afterwards.
func (s *Store) Set(ctx context.Context, key string, value any) WriteResult {
	data, err := json.Marshal(value)
	if err != nil {
		return WriteResult{Err: fmt.Errorf("encode %s: %w", key, err)}
	}

	s.cache.put(key, data)
	res := WriteResult{Accepted: true}

	if s.backend == nil {
		res.Err = ErrMemoryOnly
	} else {
		dctx, cancel := s.durableContext(ctx)
		err := s.backend.SetJSON(dctx, key, data)
		cancel()
		if err != nil {
			s.metrics.durableError("set")
			s.logger.Warn().Err(err).Str("key", key).Msg("durable write failed, kept in cache")
			res.Err = fmt.Errorf("persist %s: %w", key, err)
		} else {
			s.confirm(&res)
		}
	}

	s.invalidate(key)
	return res
}

// Delete removes key from the cache and then from the backend.
func (s *Store) Delete(ctx context.Context, key string) WriteResult {
	s.cache.remove(key)
	res := WriteResult{Accepted: true}

	if s.backend == nil {
		res.Err = ErrMemoryOnly
	} else {
		dctx, cancel := s.durableContext(ctx)
		err := s.backend.Delete(dctx, key)
		cancel()
		if err != nil {
			s.metrics.durableError("delete")
			s.logger.Warn().Err(err).Str("key", key).Msg("durable delete failed, removed from cache only")
			res.Err = fmt.Errorf("delete %s: %w", key, err)
		} else {
			s.confirm(&res)
		}
	}

	s.invalidate(key)
	return res
}

// List returns the entries under prefix, newest first.
//
// Durable keys are hydrated through Get, so they populate the cache. Fresh
// cache entries the backend does not list yet are merged in; when a key is
// in both, the durable listing wins. A failed durable listing is logged and
// the cache contents are returned alone.
func (s *Store) List(ctx context.Context, prefix string) []Entry {
	var entries []Entry
	seen := make(map[string]struct{})

	if s.backend != nil {
		dctx, cancel := s.durableContext(ctx)
		infos, err := s.backend.List(dctx, prefix)
		cancel()
		if err != nil {
			s.metrics.durableError("list")
			s.logger.Warn().Err(err).Str("prefix", prefix).Msg("durable list failed, using cache only")
		}

		for _, info := range infos {
			if _, dup := seen[info.Key]; dup {
				continue
			}
			seen[info.Key] = struct{}{}

			value, _ := s.Get(ctx, info.Key)
			storedAt := info.SavedAt
			if storedAt.IsZero() {
				if e, ok := s.cache.get(info.Key); ok {
					storedAt = e.storedAt
				} else {
					storedAt = s.now()
				}
			}
			entries = append(entries, Entry{Key: info.Key, Value: value, StoredAt: storedAt})
		}
	}

	for key, e := range s.cache.withPrefix(prefix) {
		if _, dup := seen[key]; dup {
			continue
		}
		entries = append(entries, Entry{Key: key, Value: e.data, StoredAt: e.storedAt})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].StoredAt.Equal(entries[j].StoredAt) {
			return entries[i].StoredAt.After(entries[j].StoredAt)
		}
		return entries[i].Key < entries[j].Key
	})

	s.logger.Debug().Str("prefix", prefix).Int("count", len(entries)).Msg("listed entries")
	return entries
}

// Refresh drops the cached value for key and reads it again.
func (s *Store) Refresh(ctx context.Context, key string) ([]byte, bool) {
	s.cache.remove(key)
	return s.Get(ctx, key)
}

// ClearCache empties the cache. Durable data is untouched.
func (s *Store) ClearCache() {
	s.cache.clear()
	s.logger.Info().Msg("cache cleared")
}

// CacheStats reports the cache size and keys.
func (s *Store) CacheStats() CacheStats {
	return s.cache.stats()
}

// Close releases the backend if it holds resources.
func (s *Store) Close() error {
	if c, ok := s.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// confirm marks a backend write as persisted unless the backend is Volatile.
func (s *Store) confirm(res *WriteResult) {
	if s.volatile {
		res.Err = ErrMemoryOnly
		return
	}
	res.Persisted = true
}

func (s *Store) invalidate(key string) {
	match := s.deps.matcher(key)
	if match == nil {
		return
	}
	removed := s.cache.removeMatching(match)
	s.metrics.invalidated(len(removed))
	for _, k := range removed {
		s.logger.Debug().Str("key", k).Str("cause", key).Msg("invalidated cache entry")
	}
}

func (s *Store) durableContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.durableTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.durableTimeout)
}
