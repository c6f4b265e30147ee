package application

import (
	"strings"
	"sync"
	"time"
)

// viewTracker applies last-issued-wins to the published agenda views. A key is
// principal, view and anchor, so only refreshes of the same grid compete. Every
// refresh takes a ticket before fetching; a finished fetch is published only
// when its ticket is still the newest one issued for that key, so a slow
// response to an earlier refresh never replaces the result of a later one.
type viewTracker struct {
	mu         sync.Mutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]*viewTrackerEntry
}

type viewTrackerEntry struct {
	issued      uint64
	published   uint64
	view        any
	publishedAt time.Time
}

func newViewTracker(ttl time.Duration, maxEntries int, now func() time.Time) *viewTracker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if now == nil {
		now = time.Now
	}
	return &viewTracker{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*viewTrackerEntry),
	}
}

// Issue hands out the next ticket for key.
func (t *viewTracker) Issue(key string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[key]
	if !ok {
		if len(t.entries) >= t.maxEntries {
			t.evictOneLocked()
		}
		entry = &viewTrackerEntry{}
		t.entries[key] = entry
	}
	entry.issued++
	return entry.issued
}

// Publish stores view for key if ticket is still the latest issued one.
func (t *viewTracker) Publish(key string, ticket uint64, view any) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[key]
	if !ok || ticket != entry.issued {
		return false
	}
	entry.published = ticket
	entry.view = view
	entry.publishedAt = t.now()
	return true
}

// Latest returns the last published view for key while it is fresh.
func (t *viewTracker) Latest(key string) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[key]
	if !ok || entry.published == 0 {
		return nil, false
	}
	if t.now().Sub(entry.publishedAt) > t.ttl {
		return nil, false
	}
	return entry.view, true
}

// evictOneLocked drops an expired or idle entry, never one with a fetch in flight.
func (t *viewTracker) evictOneLocked() {
	now := t.now()
	var idle string
	for key, entry := range t.entries {
		if entry.published == entry.issued && now.Sub(entry.publishedAt) > t.ttl {
			delete(t.entries, key)
			return
		}
		if idle == "" && entry.published == entry.issued {
			idle = key
		}
	}
	if idle != "" {
		delete(t.entries, idle)
	}
}

func buildViewKey(principal Principal, view string, anchor time.Time) string {
	builder := strings.Builder{}
	builder.WriteString(principal.UserID)
	builder.WriteString("|")
	builder.WriteString(view)
	builder.WriteString("|")
	builder.WriteString(anchor.Format("2006-01-02"))
	return builder.String()
}
