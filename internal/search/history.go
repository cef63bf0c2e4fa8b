// Package search keeps the local search history used for suggestions.
package search

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"StoreClient/internal/kvstore"
	"StoreClient/pkg/kit"
)

const (
	StorageKey    = "search_history"
	MaxEntries    = 50
	MinQueryLen   = 2
	DefaultMaxAge = 30 * 24 * time.Hour
)

type Entry struct {
	ID           string `json:"id"`
	Query        string `json:"query"`
	Timestamp    int64  `json:"timestamp"`
	ResultsCount int    `json:"results_count"`
	Count        int    `json:"count"`
}

func (e Entry) Time() time.Time { return time.UnixMilli(e.Timestamp) }

type Popular struct {
	Query        string
	Count        int
	LastSearched time.Time
	ResultsCount int
}

type Stats struct {
	TotalSearches     int
	UniqueQueries     int
	AvgResults        float64
	MostSearchedQuery string
	SearchesThisWeek  int
	SearchesToday     int
}

// History is newest first. Queries are de-duplicated case-insensitively;
// repeating one moves it to the front and bumps its count.
type History struct {
	kv    kvstore.Store
	clock clock.Clock
	log   *zap.Logger

	mu      sync.Mutex
	entries []Entry
	loaded  bool
}

type Option func(*History)

func WithClock(c clock.Clock) Option { return func(h *History) { h.clock = c } }

func WithLogger(l *zap.Logger) Option { return func(h *History) { h.log = kit.OrNop(l) } }

func New(kv kvstore.Store, opts ...Option) *History {
	h := &History{kv: kv, clock: clock.New(), log: zap.NewNop()}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *History) load(ctx context.Context) error {
	if h.loaded {
		return nil
	}
	raw, ok, err := h.kv.Get(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("load search history: %w", err)
	}
	h.entries = nil
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &h.entries); err != nil {
			h.log.Warn("corrupt search history discarded", zap.Error(err))
			h.entries = nil
		}
	}
	h.loaded = true
	h.log.Debug("search history loaded", zap.Int("entries", len(h.entries)))
	return nil
}

// commit persists next and swaps it in. Caller holds mu.
func (h *History) commit(ctx context.Context, next []Entry) error {
	raw, err := json.Marshal(next)
	if err != nil {
		return err
	}
	if err := h.kv.Set(ctx, StorageKey, string(raw)); err != nil {
		return fmt.Errorf("save search history: %w", err)
	}
	h.entries = next
	return nil
}

// Add records query. Queries shorter than MinQueryLen after trimming are
// ignored and reported as false.
func (h *History) Add(ctx context.Context, query string, results int) (bool, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLen {
		return false, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.load(ctx); err != nil {
		return false, err
	}

	entry := Entry{
		ID:           uuid.NewString(),
		Query:        query,
		Timestamp:    h.clock.Now().UnixMilli(),
		ResultsCount: results,
		Count:        1,
	}

	next := make([]Entry, 0, len(h.entries)+1)
	next = append(next, entry)
	for _, e := range h.entries {
		if strings.EqualFold(e.Query, query) {
			next[0].Count += max(e.Count, 1)
			continue
		}
		next = append(next, e)
	}
	if len(next) > MaxEntries {
		next = next[:MaxEntries]
	}

	if err := h.commit(ctx, next); err != nil {
		return false, err
	}
	h.log.Debug("search recorded", zap.String("query", query), zap.Int("results", results))
	return true, nil
}

// Entries returns up to limit entries newest first; limit <= 0 means all.
func (h *History) Entries(ctx context.Context, limit int) ([]Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.load(ctx); err != nil {
		return nil, err
	}
	return head(slices.Clone(h.entries), limit), nil
}

func (h *History) Recent(ctx context.Context, limit int) ([]Entry, error) {
	all, err := h.Entries(ctx, 0)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(all, func(a, b Entry) int { return cmp.Compare(b.Timestamp, a.Timestamp) })
	return head(all, limit), nil
}

// Popular orders queries by how often they were searched, most recent first
// on ties.
func (h *History) Popular(ctx context.Context, limit int) ([]Popular, error) {
	all, err := h.Entries(ctx, 0)
	if err != nil {
		return nil, err
	}

	out := make([]Popular, 0, len(all))
	for _, e := range all {
		out = append(out, Popular{
			Query:        strings.ToLower(e.Query),
			Count:        max(e.Count, 1),
			LastSearched: e.Time(),
			ResultsCount: e.ResultsCount,
		})
	}
	slices.SortStableFunc(out, func(a, b Popular) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return b.LastSearched.Compare(a.LastSearched)
	})
	return head(out, limit), nil
}

// Matching returns entries containing query, case-insensitively.
func (h *History) Matching(ctx context.Context, query string, limit int) ([]Entry, error) {
	all, err := h.Entries(ctx, 0)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	all = slices.DeleteFunc(all, func(e Entry) bool { return !strings.Contains(strings.ToLower(e.Query), q) })
	return head(all, limit), nil
}

// Suggestions lists past queries starting with query, then those merely
// containing it. An empty query yields the most recent searches.
func (h *History) Suggestions(ctx context.Context, query string, limit int) ([]string, error) {
	if query == "" {
		recent, err := h.Recent(ctx, limit)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(recent))
		for _, e := range recent {
			out = append(out, e.Query)
		}
		return out, nil
	}

	all, err := h.Entries(ctx, 0)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	var prefix, contains []string
	for _, e := range all {
		lq := strings.ToLower(e.Query)
		switch {
		case strings.HasPrefix(lq, q):
			prefix = append(prefix, e.Query)
		case strings.Contains(lq, q):
			contains = append(contains, e.Query)
		}
	}
	return head(append(prefix, contains...), limit), nil
}

func (h *History) Remove(ctx context.Context, id string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.load(ctx); err != nil {
		return false, err
	}

	next := slices.DeleteFunc(slices.Clone(h.entries), func(e Entry) bool { return e.ID == id })
	if len(next) == len(h.entries) {
		return false, nil
	}
	return true, h.commit(ctx, next)
}

func (h *History) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.commit(ctx, []Entry{}); err != nil {
		return err
	}
	h.loaded = true
	h.log.Debug("search history cleared")
	return nil
}

// CleanOld drops entries older than maxAge (DefaultMaxAge when zero) and
// reports how many were removed.
func (h *History) CleanOld(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.load(ctx); err != nil {
		return 0, err
	}

	cutoff := h.clock.Now().Add(-maxAge).UnixMilli()
	next := slices.DeleteFunc(slices.Clone(h.entries), func(e Entry) bool { return e.Timestamp <= cutoff })
	removed := len(h.entries) - len(next)
	if removed == 0 {
		return 0, nil
	}
	if err := h.commit(ctx, next); err != nil {
		return 0, err
	}
	h.log.Debug("old searches cleaned", zap.Int("removed", removed))
	return removed, nil
}

func (h *History) Stats(ctx context.Context) (Stats, error) {
	all, err := h.Entries(ctx, 0)
	if err != nil {
		return Stats{}, err
	}

	now := h.clock.Now()
	var st Stats
	var results, best int
	for _, e := range all {
		n := max(e.Count, 1)
		st.TotalSearches += n
		results += e.ResultsCount * n
		if n > best {
			best = n
			st.MostSearchedQuery = strings.ToLower(e.Query)
		}

		age := now.Sub(e.Time())
		if age < 24*time.Hour {
			st.SearchesToday++
		}
		if age < 7*24*time.Hour {
			st.SearchesThisWeek++
		}
	}
	st.UniqueQueries = len(all)
	if st.TotalSearches > 0 {
		st.AvgResults = math.Round(float64(results)/float64(st.TotalSearches)*10) / 10
	}
	return st, nil
}

type export struct {
	ExportDate time.Time `json:"exportDate"`
	Statistics Stats     `json:"statistics"`
	History    []Entry   `json:"history"`
}

// Export renders the history and its statistics as indented JSON.
func (h *History) Export(ctx context.Context) ([]byte, error) {
	st, err := h.Stats(ctx)
	if err != nil {
		return nil, err
	}
	all, err := h.Entries(ctx, 0)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(export{ExportDate: h.clock.Now().UTC(), Statistics: st, History: all}, "", "  ")
}

// Import merges entries from an Export document. Ids already present and
// invalid entries are skipped; a query already in the history, compared
// case-insensitively, folds into that line. It returns how many new lines
// survived the cap.
func (h *History) Import(ctx context.Context, data []byte) (int, error) {
	var doc export
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("import search history: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.load(ctx); err != nil {
		return 0, err
	}

	next := slices.Clone(h.entries)
	seen := make(map[string]bool, len(next))
	byQuery := make(map[string]int, len(next))
	for i, e := range next {
		seen[e.ID] = true
		byQuery[strings.ToLower(e.Query)] = i
	}

	imported := make(map[string]bool)
	for _, e := range doc.History {
		e.Query = strings.TrimSpace(e.Query)
		if e.ID == "" || e.Query == "" || e.Timestamp == 0 || seen[e.ID] {
			continue
		}
		seen[e.ID] = true

		key := strings.ToLower(e.Query)
		if i, ok := byQuery[key]; ok {
			line := &next[i]
			count := max(line.Count, 1) + max(e.Count, 1)
			if e.Timestamp > line.Timestamp {
				line.Query, line.Timestamp, line.ResultsCount = e.Query, e.Timestamp, e.ResultsCount
			}
			line.Count = count
			continue
		}
		byQuery[key] = len(next)
		next = append(next, e)
		imported[e.ID] = true
	}
	slices.SortStableFunc(next, func(a, b Entry) int { return cmp.Compare(b.Timestamp, a.Timestamp) })
	next = head(next, MaxEntries)

	added := 0
	for _, e := range next {
		if imported[e.ID] {
			added++
		}
	}

	if err := h.commit(ctx, next); err != nil {
		return 0, err
	}
	return added, nil
}

func head[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
