// Package barcache maintains the durable, deduplicated history of 5-minute
// bars. The cache survives restarts via a JSON file (a flat list of bar
// records, no envelope) and is the only bar state the engine persists.
//
// Not goroutine-safe: the engine serializes all access under its own lock.
package barcache

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"signal-enginev1/internal/model"
)

const (
	// MaxBars bounds the cache at ~7 days of 5-minute bars.
	MaxBars = 2000

	// maxAge is the load-time retention window. Applied to bar timestamps,
	// not file mtime, since bar times are market time.
	maxAge = 7 * 24 * time.Hour
)

// Cache is an ordered, timestamp-deduplicated store of non-synthetic bars.
type Cache struct {
	path      string
	bars      []model.Bar
	dirty     bool
	lastFlush time.Time
}

// New creates an empty cache backed by the given file path.
func New(path string) *Cache {
	return &Cache{path: path}
}

// Load reads the cache file, dropping entries older than 7 days.
// Any read or parse failure leaves the cache empty; starting cold is
// always preferable to refusing to start.
func (c *Cache) Load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[barcache] load error: %v", err)
		}
		c.bars = nil
		return
	}

	var bars []model.Bar
	if err := json.Unmarshal(data, &bars); err != nil {
		log.Printf("[barcache] parse error, starting fresh: %v", err)
		c.bars = nil
		return
	}

	cutoff := time.Now().Add(-maxAge).Format(model.TimeLayout)
	kept := bars[:0]
	for _, b := range bars {
		if b.Time >= cutoff {
			kept = append(kept, b)
		}
	}
	c.bars = kept
	log.Printf("[barcache] loaded %d bars from %s", len(c.bars), c.path)
}

// Merge folds a batch of bars into the cache. A bar whose timestamp is
// already present overwrites that entry (the latest revision of an
// in-progress candle wins); new timestamps append. Synthetic bars and bars
// with empty timestamps never enter. If anything changed, the cache is
// re-sorted by timestamp, trimmed to the newest MaxBars, and marked dirty.
// Returns the number of appended and overwritten entries.
func (c *Cache) Merge(newBars []model.Bar) (added, updated int) {
	if len(newBars) == 0 {
		return 0, 0
	}

	index := make(map[string]int, len(c.bars))
	for i, b := range c.bars {
		index[b.Time] = i
	}

	for _, b := range newBars {
		if b.Synthetic || b.Time == "" {
			continue
		}
		if i, ok := index[b.Time]; ok {
			c.bars[i] = b
			updated++
		} else {
			index[b.Time] = len(c.bars)
			c.bars = append(c.bars, b)
			added++
		}
	}

	if added > 0 || updated > 0 {
		sort.Slice(c.bars, func(i, j int) bool { return c.bars[i].Time < c.bars[j].Time })
		if len(c.bars) > MaxBars {
			c.bars = append([]model.Bar(nil), c.bars[len(c.bars)-MaxBars:]...)
		}
		c.dirty = true
	}
	return added, updated
}

// Bars returns a copy of the cached bar history, oldest first.
func (c *Cache) Bars() []model.Bar {
	out := make([]model.Bar, len(c.bars))
	copy(out, c.bars)
	return out
}

// Len returns the number of cached bars.
func (c *Cache) Len() int { return len(c.bars) }

// Dirty reports whether there are unflushed changes.
func (c *Cache) Dirty() bool { return c.dirty }

// FlushIfDue writes the cache when it is dirty and at least interval has
// passed since the previous successful flush.
func (c *Cache) FlushIfDue(interval time.Duration) {
	if c.dirty && time.Since(c.lastFlush) >= interval {
		c.Flush()
	}
}

// Flush writes the cache file if dirty. Write failures are logged and the
// dirty flag stays set, so the next natural trigger retries; persistence
// faults never reach the caller.
func (c *Cache) Flush() {
	if !c.dirty {
		return
	}
	if err := c.write(); err != nil {
		log.Printf("[barcache] flush error: %v", err)
		return
	}
	c.dirty = false
	c.lastFlush = time.Now()
}

func (c *Cache) write() error {
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.Marshal(c.bars)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o644)
}
