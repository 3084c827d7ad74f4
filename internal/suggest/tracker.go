// Package suggest tracks query popularity and serves prefix completions
// for the /suggest endpoint. Counts live in memory and, when Redis is
// configured, mirror into a sorted set so they survive restarts. Redis
// failures degrade silently to the in-memory view.
package suggest

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultMaxTracked caps the number of distinct queries kept in memory.
const DefaultMaxTracked = 5000

// popularKey is the Redis sorted set holding query counts.
const popularKey = "sitequery:popular_queries"

// completionSynonyms widens prefix matching so a suggestion can surface
// under a term the user is more likely to type.
var completionSynonyms = map[string][]string{
	"lawyer":  {"attorney"},
	"price":   {"cost", "pricing"},
	"job":     {"career"},
	"help":    {"support"},
	"contact": {"phone", "email"},
}

// Config configures the tracker. An empty RedisAddr runs memory-only.
type Config struct {
	RedisAddr     string
	RedisPassword string
	MaxTracked    int
}

// Tracker records queries and serves completions.
type Tracker struct {
	rdb *redis.Client

	mu     sync.Mutex
	counts map[string]int64
	max    int
}

// New creates the tracker. The Redis connection is lazy; a dead server
// shows up as silent degradation, not a startup failure.
func New(cfg Config) *Tracker {
	if cfg.MaxTracked <= 0 {
		cfg.MaxTracked = DefaultMaxTracked
	}
	t := &Tracker{
		counts: make(map[string]int64),
		max:    cfg.MaxTracked,
	}
	if cfg.RedisAddr != "" {
		t.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
	}
	return t
}

// Record counts one occurrence of a query.
func (t *Tracker) Record(ctx context.Context, query string) {
	query = normalize(query)
	if query == "" {
		return
	}

	t.mu.Lock()
	t.counts[query]++
	if len(t.counts) > t.max {
		t.evictLocked()
	}
	t.mu.Unlock()

	if t.rdb != nil {
		rctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := t.rdb.ZIncrBy(rctx, popularKey, 1, query).Err(); err != nil {
			slog.Debug("popularity mirror failed", slog.String("error", err.Error()))
		}
	}
}

// Suggest returns up to limit recorded queries matching the prefix,
// most popular first. The prefix also matches through the completion
// synonyms.
func (t *Tracker) Suggest(ctx context.Context, prefix string, limit int) []string {
	prefix = normalize(prefix)
	if prefix == "" || limit <= 0 {
		return nil
	}
	prefixes := expandPrefix(prefix)

	type entry struct {
		query string
		count int64
	}
	var entries []entry

	if t.rdb != nil {
		rctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		zs, err := t.rdb.ZRevRangeWithScores(rctx, popularKey, 0, int64(t.max)).Result()
		if err == nil {
			for _, z := range zs {
				q, _ := z.Member.(string)
				if matchesAny(q, prefixes) {
					entries = append(entries, entry{query: q, count: int64(z.Score)})
				}
			}
		} else {
			slog.Debug("popularity read failed, using memory", slog.String("error", err.Error()))
		}
	}
	if entries == nil {
		t.mu.Lock()
		for q, n := range t.counts {
			if matchesAny(q, prefixes) {
				entries = append(entries, entry{query: q, count: n})
			}
		}
		t.mu.Unlock()
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].query < entries[j].query
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.query
	}
	return out
}

// Tracked returns the number of distinct queries in memory.
func (t *Tracker) Tracked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.counts)
}

// Available reports whether the Redis mirror responds.
func (t *Tracker) Available(ctx context.Context) bool {
	if t.rdb == nil {
		return true
	}
	rctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return t.rdb.Ping(rctx).Err() == nil
}

// evictLocked drops the least popular half of the map.
func (t *Tracker) evictLocked() {
	type entry struct {
		query string
		count int64
	}
	entries := make([]entry, 0, len(t.counts))
	for q, n := range t.counts {
		entries = append(entries, entry{q, n})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].count < entries[j].count })
	for _, e := range entries[:len(entries)/2] {
		delete(t.counts, e.query)
	}
}

// expandPrefix returns the prefix plus synonym-substituted forms of its
// last token.
func expandPrefix(prefix string) []string {
	out := []string{prefix}
	tokens := strings.Fields(prefix)
	if len(tokens) == 0 {
		return out
	}
	last := tokens[len(tokens)-1]
	for key, syns := range completionSynonyms {
		if key != last && !containsString(syns, last) {
			continue
		}
		alts := append([]string{key}, syns...)
		for _, alt := range alts {
			if alt == last {
				continue
			}
			sub := append([]string{}, tokens...)
			sub[len(sub)-1] = alt
			out = append(out, strings.Join(sub, " "))
		}
	}
	return out
}

func matchesAny(query string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(query, p) {
			return true
		}
	}
	return false
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func normalize(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
