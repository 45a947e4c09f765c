// Package mempool maintains the pool of submitted data waiting to be mined
// into a block.
package mempool

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyData is returned when an entry without a payload is submitted.
var ErrEmptyData = errors.New("entry data is empty")

// Entry represents a piece of data submitted by an operator.
type Entry struct {
	ID        string    `json:"id"`
	Data      string    `json:"data"`
	Submitted time.Time `json:"submitted"`
}

// NewEntry constructs an entry for the specified data.
func NewEntry(data string) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Data:      data,
		Submitted: time.Now().UTC(),
	}
}

// =============================================================================

// Mempool represents a cache of entries keyed by their unique id.
type Mempool struct {
	pool map[string]Entry
	mu   sync.RWMutex
}

// New constructs a new mempool for use.
func New() *Mempool {
	return &Mempool{
		pool: make(map[string]Entry),
	}
}

// Count returns the current number of entries in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds or replaces an entry in the mempool.
func (mp *Mempool) Upsert(entry Entry) (int, error) {
	if entry.Data == "" {
		return 0, ErrEmptyData
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool[entry.ID] = entry

	return len(mp.pool), nil
}

// Delete removes an entry from the mempool.
func (mp *Mempool) Delete(entry Entry) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, entry.ID)
}

// Truncate clears all the entries from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]Entry)
}

// PickOldest returns the entry that has waited the longest.
func (mp *Mempool) PickOldest() (Entry, bool) {
	entries := mp.Copy()
	if len(entries) == 0 {
		return Entry{}, false
	}

	return entries[0], true
}

// Copy returns the entries in submission order.
func (mp *Mempool) Copy() []Entry {
	mp.mu.RLock()
	entries := make([]Entry, 0, len(mp.pool))
	for _, entry := range mp.pool {
		entries = append(entries, entry)
	}
	mp.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Submitted.Equal(entries[j].Submitted) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].Submitted.Before(entries[j].Submitted)
	})

	return entries
}
