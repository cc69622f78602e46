package ledger

import (
	"sync"

	"github.com/google/uuid"
)

// campaignLocks serializes in-process appends per campaign. The database row
// lock is still the source of truth; this keeps concurrent appends on one
// instance from piling up on the same row.
type campaignLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newCampaignLocks() *campaignLocks {
	return &campaignLocks{locks: make(map[uuid.UUID]*lockEntry)}
}

// Acquire blocks until the campaign lock is held and returns the release func.
func (l *campaignLocks) Acquire(campaignID uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.locks[campaignID]
	if !ok {
		entry = &lockEntry{}
		l.locks[campaignID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, campaignID)
		}
		l.mu.Unlock()
	}
}
