// Package observability provides in-process statistics about table mutations
// for monitoring which fields and actors drive churn.
package observability

import (
	"sort"
	"sync"
	"time"
)

// ChangeStats tracks field-level mutation frequency over a sliding window.
// It answers "which columns are changing, and who is changing them" without
// scanning the ledger.
type ChangeStats struct {
	mu        sync.RWMutex
	fieldFreq map[string]*MutationStats
	actorFreq map[string]*MutationStats
	window    time.Duration
}

// MutationStats holds mutation counts for one field or actor.
type MutationStats struct {
	Name      string    `json:"name"`
	Frequency int64     `json:"frequency"`
	LastSeen  time.Time `json:"last_seen"`
}

// NewChangeStats creates a mutation statistics tracker.
// window: how long an idle entry survives before Prune drops it.
func NewChangeStats(window time.Duration) *ChangeStats {
	return &ChangeStats{
		fieldFreq: make(map[string]*MutationStats),
		actorFreq: make(map[string]*MutationStats),
		window:    window,
	}
}

// Record counts one field mutation by the given actor.
// This method is O(1) and thread-safe.
func (c *ChangeStats) Record(field, actor string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.bump(c.fieldFreq, field, now)
	if actor != "" {
		c.bump(c.actorFreq, actor, now)
	}
}

func (c *ChangeStats) bump(freq map[string]*MutationStats, name string, now time.Time) {
	stats, exists := freq[name]
	if !exists {
		stats = &MutationStats{Name: name}
		freq[name] = stats
	}
	stats.Frequency++
	stats.LastSeen = now
}

// TopFields returns the top N most-mutated fields by frequency, descending.
func (c *ChangeStats) TopFields(n int) []MutationStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return topN(c.fieldFreq, n)
}

// TopActors returns the top N actors by mutation count, descending.
func (c *ChangeStats) TopActors(n int) []MutationStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return topN(c.actorFreq, n)
}

func topN(freq map[string]*MutationStats, n int) []MutationStats {
	if n <= 0 || len(freq) == 0 {
		return []MutationStats{}
	}

	stats := make([]MutationStats, 0, len(freq))
	for _, s := range freq {
		stats = append(stats, *s)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Frequency != stats[j].Frequency {
			return stats[i].Frequency > stats[j].Frequency
		}
		return stats[i].Name < stats[j].Name
	})

	if n > len(stats) {
		n = len(stats)
	}
	return stats[:n]
}

// Prune removes entries where time.Since(LastSeen) > window.
// Call periodically; the tracker does not run its own timer.
func (c *ChangeStats) Prune() {
	c.mu.Lock()
	defer c.mu.Unlock()

	threshold := time.Now().Add(-c.window)
	for name, stats := range c.fieldFreq {
		if stats.LastSeen.Before(threshold) {
			delete(c.fieldFreq, name)
		}
	}
	for name, stats := range c.actorFreq {
		if stats.LastSeen.Before(threshold) {
			delete(c.actorFreq, name)
		}
	}
}
