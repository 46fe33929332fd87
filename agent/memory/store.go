package memory

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Store is the long-term customer memory contract. Absence of a record is
// never an error: Get yields an empty memory.
type Store interface {
	// Get returns the record with expired slots filtered out.
	Get(ctx context.Context, projectID, customerID string) (*CustomerMemory, error)
	// Upsert merges data into the record, stamping only the changed slots
	// with the current time, and returns the result.
	Upsert(ctx context.Context, projectID, customerID string, data map[string]string) (*CustomerMemory, error)
	// Delete removes the whole record.
	Delete(ctx context.Context, projectID, customerID string) error
}

type memoryKey struct {
	projectID  string
	customerID string
}

func newMemoryKey(projectID, customerID string) (memoryKey, error) {
	p := strings.TrimSpace(projectID)
	if p == "" {
		return memoryKey{}, ErrInvalidProject
	}
	c := strings.TrimSpace(customerID)
	if c == "" {
		return memoryKey{}, ErrInvalidCustomer
	}
	return memoryKey{projectID: p, customerID: c}, nil
}

// InMemoryStore keeps customer memories in process memory, for tests and the
// demo wiring.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[memoryKey]*CustomerMemory
	ttl     TTLPolicy
	now     func() time.Time
}

type InMemoryStoreOption func(*InMemoryStore)

func WithClock(now func() time.Time) InMemoryStoreOption {
	return func(s *InMemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewInMemoryStore(ttl TTLPolicy, opts ...InMemoryStoreOption) *InMemoryStore {
	s := &InMemoryStore{
		records: make(map[memoryKey]*CustomerMemory),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *InMemoryStore) Get(ctx context.Context, projectID, customerID string) (*CustomerMemory, error) {
	key, err := newMemoryKey(projectID, customerID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok {
		return NewCustomerMemory(key.projectID, key.customerID), nil
	}
	return s.ttl.filterExpired(rec, s.now().UTC()), nil
}

func (s *InMemoryStore) Upsert(ctx context.Context, projectID, customerID string, data map[string]string) (*CustomerMemory, error) {
	key, err := newMemoryKey(projectID, customerID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		rec = NewCustomerMemory(key.projectID, key.customerID)
		s.records[key] = rec
	}
	mergeSlots(rec, data, s.now().UTC())
	return rec.Clone(), nil
}

func (s *InMemoryStore) Delete(ctx context.Context, projectID, customerID string) error {
	key, err := newMemoryKey(projectID, customerID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// mergeSlots writes data into rec, refreshing timestamps of changed slots
// only. An unchanged value keeps its original timestamp.
func mergeSlots(rec *CustomerMemory, data map[string]string, now time.Time) {
	if rec.Slots == nil {
		rec.Slots = make(map[string]Slot, len(data))
	}
	for name, value := range data {
		if value == "" {
			continue
		}
		if existing, ok := rec.Slots[name]; ok && existing.Value == value {
			continue
		}
		rec.Slots[name] = Slot{Value: value, UpdatedAt: now}
	}
}
