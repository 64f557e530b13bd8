package quota

import (
	"context"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/lib/identity"
	"sync"
)

var _ Ledger = &MemoryLedger{}

// MemoryLedger keeps everything in process memory behind one lock. A restart
// resets every quota.
type MemoryLedger struct {
	limit int

	mutex   sync.Mutex
	records map[string]*record
}

func NewMemoryLedger(limit int) *MemoryLedger {
	return &MemoryLedger{
		limit:   limit,
		records: make(map[string]*record),
	}
}

func (m *MemoryLedger) recordFor(key string) *record {
	r, ok := m.records[key]
	if !ok {
		r = &record{}
		m.records[key] = r
	}

	return r
}

func (m *MemoryLedger) Consume(_ context.Context, id identity.Identity) (Decision, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	keys := id.Keys()
	remaining := m.limit

	for _, key := range keys {
		r := m.recordFor(key)
		if r.unlocked {
			return Decision{Allowed: true, Unlocked: true}, nil
		}

		if left := m.limit - r.uses; left < remaining {
			remaining = left
		}
	}

	if remaining <= 0 {
		return Decision{Allowed: false, Remaining: 0}, nil
	}

	for _, key := range keys {
		m.records[key].uses++
	}

	return Decision{Allowed: true, Remaining: remaining - 1}, nil
}

func (m *MemoryLedger) Unlock(_ context.Context, id identity.Identity) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, key := range id.Keys() {
		r := m.recordFor(key)
		r.unlocked = true
		r.uses = 0
	}

	return nil
}

func (m *MemoryLedger) Refund(_ context.Context, id identity.Identity) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, key := range id.Keys() {
		r := m.recordFor(key)
		if !r.unlocked && r.uses > 0 {
			r.uses--
		}
	}

	return nil
}

// Uses reports the consumed count of a single ledger key.
func (m *MemoryLedger) Uses(key string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if r, ok := m.records[key]; ok {
		return r.uses
	}

	return 0
}
