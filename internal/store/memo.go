package store

import (
	"sync"
	"time"
)

type memoEntry struct {
	url      string
	found    bool
	storedAt time.Time
}

// ThumbnailMemo remembers the resolved cover URL per item, including the
// "no cover" outcome. With a zero TTL entries live for the memo's lifetime;
// otherwise they expire lazily on lookup.
type ThumbnailMemo struct {
	mu      sync.RWMutex
	entries map[int]memoEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewThumbnailMemo(ttl time.Duration) *ThumbnailMemo {
	return &ThumbnailMemo{entries: make(map[int]memoEntry), ttl: ttl, now: time.Now}
}

// Lookup returns the memoized outcome. ok is false when nothing is memoized;
// found is false when the memoized outcome is "no cover".
func (m *ThumbnailMemo) Lookup(itemID int) (url string, found bool, ok bool) {
	m.mu.RLock()
	e, ok := m.entries[itemID]
	m.mu.RUnlock()
	if !ok {
		return "", false, false
	}
	if m.ttl > 0 && m.now().Sub(e.storedAt) >= m.ttl {
		return "", false, false
	}
	return e.url, e.found, true
}

// Remember records the outcome for an item. An empty url records "no cover".
func (m *ThumbnailMemo) Remember(itemID int, url string) {
	m.mu.Lock()
	m.entries[itemID] = memoEntry{url: url, found: url != "", storedAt: m.now()}
	m.mu.Unlock()
}

// Forget drops the memoized outcome for an item
func (m *ThumbnailMemo) Forget(itemID int) {
	m.mu.Lock()
	delete(m.entries, itemID)
	m.mu.Unlock()
}

func (m *ThumbnailMemo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *ThumbnailMemo) Reset() {
	m.mu.Lock()
	m.entries = make(map[int]memoEntry)
	m.mu.Unlock()
}
