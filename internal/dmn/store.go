package dmn

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity bounds the in-memory notification log.
const DefaultCapacity = 100

// Record is one retained notification: an inbound DMN, a 3DS completion
// callback, or a gateway response mirrored by a flow for UI visibility.
// Records are never mutated after insertion.
type Record struct {
	ID         string            `json:"id"`
	ReceivedAt time.Time         `json:"receivedAt"`
	Label      string            `json:"label,omitempty"`
	Payload    map[string]string `json:"payload"`
}

// NewRecord creates a record with a fresh ID and timestamp.
func NewRecord(label string, payload map[string]string) Record {
	return Record{
		ID:         uuid.NewString(),
		ReceivedAt: time.Now().UTC(),
		Label:      label,
		Payload:    payload,
	}
}

// Store is a process-wide bounded, most-recent-first notification log.
// Handlers run on parallel goroutines, so a mutex guards the slice; each
// insert is a single prepend-and-truncate.
type Store struct {
	mu       sync.Mutex
	capacity int
	records  []Record
}

// NewStore creates a store. A non-positive capacity falls back to
// DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		records:  make([]Record, 0, capacity),
	}
}

// Insert prepends a record, evicting the oldest entry beyond capacity.
func (s *Store) Insert(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append([]Record{rec}, s.records...)
	if len(s.records) > s.capacity {
		s.records = s.records[:s.capacity]
	}
}

// List returns a copy of the retained records, most recent first.
func (s *Store) List() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of retained records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Clear empties the log unconditionally.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = s.records[:0]
}
