package ledger

import (
	"context"
	"sync"

	"github.com/rustyeddy/scalper/market"
)

// Store persists ledger history. Load must return records in the order they
// were appended.
type Store interface {
	Load(ctx context.Context, tag market.Tag) ([]Record, error)
	Append(ctx context.Context, tag market.Tag, rec Record) error
}

// MemoryStore keeps history in process. Useful for tests and dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	records map[market.Tag][]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[market.Tag][]Record)}
}

func (m *MemoryStore) Load(ctx context.Context, tag market.Tag) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records[tag]))
	copy(out, m.records[tag])
	return out, nil
}

func (m *MemoryStore) Append(ctx context.Context, tag market.Tag, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[tag] = append(m.records[tag], rec)
	return nil
}
