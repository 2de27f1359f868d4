package wire

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type dedupEntry struct {
	id     uuid.UUID
	seenAt time.Time
}

// Dedup is a bounded, time-windowed set of recently seen message ids.
// Whichever bound is hit first, age or size, evicts the oldest entries.
// An id recurring after eviction is treated as new; entity transitions are
// idempotent so the repeat is harmless.
type Dedup struct {
	mu         sync.Mutex
	window     time.Duration
	maxEntries int
	seen       map[uuid.UUID]time.Time
	order      []dedupEntry
}

func NewDedup(window time.Duration, maxEntries int) *Dedup {
	return &Dedup{
		window:     window,
		maxEntries: maxEntries,
		seen:       make(map[uuid.UUID]time.Time),
	}
}

// Seen records id and reports whether it was already present in the window.
func (d *Dedup) Seen(id uuid.UUID) bool {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.evictExpired(now)

	if _, ok := d.seen[id]; ok {
		return true
	}

	d.seen[id] = now
	d.order = append(d.order, dedupEntry{id: id, seenAt: now})

	if d.maxEntries > 0 {
		for len(d.order) > d.maxEntries {
			d.dropOldest()
		}
	}

	return false
}

// Len returns the number of ids currently held.
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

func (d *Dedup) evictExpired(now time.Time) {
	if d.window <= 0 {
		return
	}
	for len(d.order) > 0 && now.Sub(d.order[0].seenAt) > d.window {
		d.dropOldest()
	}
}

func (d *Dedup) dropOldest() {
	oldest := d.order[0]
	d.order = d.order[1:]
	delete(d.seen, oldest.id)
}
