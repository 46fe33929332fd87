package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type customerMemoryRow struct {
	bun.BaseModel `bun:"table:customer_memories,alias:cm"`

	ProjectID  string    `bun:"project_id,pk"`
	CustomerID string    `bun:"customer_id,pk"`
	Slots      []byte    `bun:"slots,type:jsonb,notnull"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`
}

// PostgresStore persists customer memories as one JSONB slots document per
// (project, customer) pair. TTL filtering happens at read time and never
// mutates the stored row.
type PostgresStore struct {
	db  *bun.DB
	ttl TTLPolicy
	now func() time.Time
}

type PostgresStoreOption func(*PostgresStore)

func WithPostgresClock(now func() time.Time) PostgresStoreOption {
	return func(s *PostgresStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewPostgresStore(db *bun.DB, ttl TTLPolicy, opts ...PostgresStoreOption) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	s := &PostgresStore{db: db, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*customerMemoryRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create customer_memories table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, projectID, customerID string) (*CustomerMemory, error) {
	key, err := newMemoryKey(projectID, customerID)
	if err != nil {
		return nil, err
	}

	rec, err := s.load(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewCustomerMemory(key.projectID, key.customerID), nil
		}
		return nil, err
	}
	return s.ttl.filterExpired(rec, s.now().UTC()), nil
}

func (s *PostgresStore) Upsert(ctx context.Context, projectID, customerID string, data map[string]string) (*CustomerMemory, error) {
	key, err := newMemoryKey(projectID, customerID)
	if err != nil {
		return nil, err
	}

	rec, err := s.load(ctx, key)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		rec = NewCustomerMemory(key.projectID, key.customerID)
	}

	now := s.now().UTC()
	mergeSlots(rec, data, now)

	slots, err := json.Marshal(rec.Slots)
	if err != nil {
		return nil, fmt.Errorf("marshal memory slots: %w", err)
	}
	row := &customerMemoryRow{
		ProjectID:  key.projectID,
		CustomerID: key.customerID,
		Slots:      slots,
		UpdatedAt:  now,
	}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (project_id, customer_id) DO UPDATE").
		Set("slots = EXCLUDED.slots").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("upsert customer memory: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Delete(ctx context.Context, projectID, customerID string) error {
	key, err := newMemoryKey(projectID, customerID)
	if err != nil {
		return err
	}
	_, err = s.db.NewDelete().
		Model((*customerMemoryRow)(nil)).
		Where("project_id = ?", key.projectID).
		Where("customer_id = ?", key.customerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete customer memory: %w", err)
	}
	return nil
}

func (s *PostgresStore) load(ctx context.Context, key memoryKey) (*CustomerMemory, error) {
	row := new(customerMemoryRow)
	err := s.db.NewSelect().
		Model(row).
		Where("cm.project_id = ?", key.projectID).
		Where("cm.customer_id = ?", key.customerID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	rec := NewCustomerMemory(key.projectID, key.customerID)
	if len(row.Slots) > 0 {
		if err := json.Unmarshal(row.Slots, &rec.Slots); err != nil {
			return nil, fmt.Errorf("unmarshal memory slots: %w", err)
		}
	}
	return rec, nil
}
