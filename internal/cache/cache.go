// Package cache is an expiring JSON cache namespaced inside the key-value
// store under the "cache_" prefix.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"StoreClient/internal/kvstore"
	"StoreClient/pkg/kit"
)

// Duration tiers, picked per resource by how often it changes.
const (
	Short    = 5 * time.Minute
	Medium   = 30 * time.Minute
	Long     = 2 * time.Hour
	VeryLong = 24 * time.Hour
)

const keyPrefix = "cache_"

// Entry is the persisted form. Timestamps are epoch milliseconds.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	Expiry    int64           `json:"expiry"`
}

func (e Entry) expired(nowMs int64) bool { return nowMs > e.Expiry }

// Info is a diagnostics snapshot of the cache namespace.
type Info struct {
	TotalItems   int
	ExpiredItems int
	TotalSize    int
}

// Item is one element of a SetMany batch.
type Item struct {
	Key      string
	Data     any
	Duration time.Duration
}

type Manager struct {
	kv      kvstore.Store
	clock   clock.Clock
	log     *zap.Logger
	metrics *kit.ClientMetrics
}

type Option func(*Manager)

func WithClock(c clock.Clock) Option { return func(m *Manager) { m.clock = c } }

func WithLogger(l *zap.Logger) Option { return func(m *Manager) { m.log = kit.OrNop(l) } }

func WithMetrics(cm *kit.ClientMetrics) Option { return func(m *Manager) { m.metrics = cm } }

func New(kv kvstore.Store, opts ...Option) *Manager {
	m := &Manager{kv: kv, clock: clock.New(), log: zap.NewNop()}
	for _, o := range opts {
		o(m)
	}
	return m
}

func storageKey(key string) string { return keyPrefix + key }

// Set stores data for d. A non-positive d falls back to Medium so an entry
// always expires strictly after it was written.
func (m *Manager) Set(ctx context.Context, key string, data any, d time.Duration) error {
	raw, err := m.encode(data, d)
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	if err := m.kv.Set(ctx, storageKey(key), raw); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	m.metrics.CacheOp("set", "ok")
	m.log.Debug("cache set", zap.String("key", key), zap.Duration("ttl", d))
	return nil
}

func (m *Manager) encode(data any, d time.Duration) (string, error) {
	if d <= 0 {
		d = Medium
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	now := m.clock.Now().UnixMilli()
	raw, err := json.Marshal(Entry{
		Data:      payload,
		Timestamp: now,
		Expiry:    now + max(d.Milliseconds(), 1),
	})
	return string(raw), err
}

// Get decodes a fresh entry into dst. Expired or corrupt entries are
// evicted and reported as a miss; only storage failures are errors.
func (m *Manager) Get(ctx context.Context, key string, dst any) (bool, error) {
	e, ok, err := m.entry(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(e.Data, dst); err != nil {
		m.evictCorrupt(ctx, key, err)
		return false, nil
	}
	return true, nil
}

func (m *Manager) entry(ctx context.Context, key string) (Entry, bool, error) {
	raw, ok, err := m.kv.Get(ctx, storageKey(key))
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if !ok {
		m.metrics.CacheOp("get", "miss")
		m.log.Debug("cache miss", zap.String("key", key))
		return Entry{}, false, nil
	}

	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		m.evictCorrupt(ctx, key, err)
		return Entry{}, false, nil
	}

	if e.expired(m.clock.Now().UnixMilli()) {
		m.metrics.CacheOp("get", "expired")
		m.log.Debug("cache expired", zap.String("key", key))
		if err := m.kv.Remove(ctx, storageKey(key)); err != nil {
			m.log.Warn("evict expired entry", zap.String("key", key), zap.Error(err))
		}
		return Entry{}, false, nil
	}

	m.metrics.CacheOp("get", "hit")
	m.log.Debug("cache hit", zap.String("key", key))
	return e, true, nil
}

func (m *Manager) evictCorrupt(ctx context.Context, key string, cause error) {
	m.metrics.CacheOp("get", "corrupt")
	m.log.Warn("corrupt cache entry evicted", zap.String("key", key), zap.Error(cause))
	if err := m.kv.Remove(ctx, storageKey(key)); err != nil {
		m.log.Warn("evict corrupt entry", zap.String("key", key), zap.Error(err))
	}
}

func (m *Manager) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := m.entry(ctx, key)
	return ok, err
}

func (m *Manager) Delete(ctx context.Context, key string) error {
	if err := m.kv.Remove(ctx, storageKey(key)); err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}

// Clear removes every entry whose logical key starts with prefix; an empty
// prefix wipes the whole namespace.
func (m *Manager) Clear(ctx context.Context, prefix string) (int, error) {
	return m.removeMatching(ctx, func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

// InvalidatePattern removes every entry whose logical key contains substr.
func (m *Manager) InvalidatePattern(ctx context.Context, substr string) (int, error) {
	return m.removeMatching(ctx, func(key string) bool {
		return strings.Contains(key, substr)
	})
}

func (m *Manager) removeMatching(ctx context.Context, match func(string) bool) (int, error) {
	keys, err := m.namespaceKeys(ctx)
	if err != nil {
		return 0, err
	}

	var doomed []string
	for _, k := range keys {
		if match(strings.TrimPrefix(k, keyPrefix)) {
			doomed = append(doomed, k)
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}
	if err := m.kv.MultiRemove(ctx, doomed...); err != nil {
		return 0, fmt.Errorf("cache remove: %w", err)
	}
	m.log.Debug("cache entries removed", zap.Int("count", len(doomed)))
	return len(doomed), nil
}

func (m *Manager) namespaceKeys(ctx context.Context) ([]string, error) {
	all, err := m.kv.AllKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("cache list keys: %w", err)
	}

	out := all[:0:0]
	for _, k := range all {
		if strings.HasPrefix(k, keyPrefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

// Info counts entries without evicting anything. Corrupt entries count as
// expired.
func (m *Manager) Info(ctx context.Context) (Info, error) {
	keys, err := m.namespaceKeys(ctx)
	if err != nil {
		return Info{}, err
	}

	now := m.clock.Now().UnixMilli()
	info := Info{TotalItems: len(keys)}
	for _, k := range keys {
		raw, ok, err := m.kv.Get(ctx, k)
		if err != nil {
			return Info{}, fmt.Errorf("cache info %s: %w", k, err)
		}
		if !ok {
			continue
		}
		info.TotalSize += len(raw)

		var e Entry
		if json.Unmarshal([]byte(raw), &e) != nil || e.expired(now) {
			info.ExpiredItems++
		}
	}
	return info, nil
}

// Cleanup sweeps expired and corrupt entries and returns how many went.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	keys, err := m.namespaceKeys(ctx)
	if err != nil {
		return 0, err
	}

	now := m.clock.Now().UnixMilli()
	var doomed []string
	for _, k := range keys {
		raw, ok, err := m.kv.Get(ctx, k)
		if err != nil {
			return 0, fmt.Errorf("cache cleanup %s: %w", k, err)
		}
		if !ok {
			continue
		}
		var e Entry
		if json.Unmarshal([]byte(raw), &e) != nil || e.expired(now) {
			doomed = append(doomed, k)
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}
	if err := m.kv.MultiRemove(ctx, doomed...); err != nil {
		return 0, fmt.Errorf("cache cleanup: %w", err)
	}
	m.log.Info("cache cleanup", zap.Int("evicted", len(doomed)))
	return len(doomed), nil
}

func (m *Manager) SetMany(ctx context.Context, items []Item) error {
	for _, it := range items {
		if err := m.Set(ctx, it.Key, it.Data, it.Duration); err != nil {
			return err
		}
	}
	return nil
}

// GetMany returns the raw payload of every fresh key. Missing, expired and
// corrupt keys are left out; expired ones are evicted on the way.
func (m *Manager) GetMany(ctx context.Context, keys []string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		e, ok, err := m.entry(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out[k] = e.Data
		}
	}
	return out, nil
}

// Prefetch fills key when it is absent. Failures are logged; prefetching
// is opportunistic.
func (m *Manager) Prefetch(ctx context.Context, key string, d time.Duration, produce func(context.Context) (any, error)) {
	ok, err := m.Has(ctx, key)
	if err != nil {
		m.log.Warn("prefetch lookup", zap.String("key", key), zap.Error(err))
		return
	}
	if ok {
		return
	}

	v, err := produce(ctx)
	if err != nil {
		m.log.Warn("prefetch produce", zap.String("key", key), zap.Error(err))
		return
	}
	if err := m.Set(ctx, key, v, d); err != nil {
		m.log.Warn("prefetch store", zap.String("key", key), zap.Error(err))
	}
}

// GetOrSet returns the cached value for key, or calls produce, caches its
// result for d and returns it. Storage failures degrade to a plain call.
func GetOrSet[T any](ctx context.Context, m *Manager, key string, d time.Duration, produce func(context.Context) (T, error)) (T, error) {
	var cached T
	ok, err := m.Get(ctx, key, &cached)
	switch {
	case err != nil:
		m.log.Warn("cache read failed, bypassing", zap.String("key", key), zap.Error(err))
	case ok:
		return cached, nil
	}

	v, err := produce(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := m.Set(ctx, key, v, d); err != nil {
		m.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}
