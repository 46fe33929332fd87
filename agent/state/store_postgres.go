package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type conversationRow struct {
	bun.BaseModel `bun:"table:conversation_states,alias:cs"`

	ID        string    `bun:"id,pk"`
	Payload   []byte    `bun:"payload,type:jsonb,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// PostgresStore persists conversation states as JSONB rows through bun.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(db *bun.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	return &PostgresStore{db: db}, nil
}

// Migrate creates the backing table when it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*conversationRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create conversation_states table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, conversationID string) (*ConversationState, error) {
	id := strings.TrimSpace(conversationID)
	if id == "" {
		return nil, ErrInvalidConvID
	}

	row := new(conversationRow)
	err := s.db.NewSelect().
		Model(row).
		Where("cs.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("load conversation state: %w", err)
	}

	var st ConversationState
	if err := json.Unmarshal(row.Payload, &st); err != nil {
		return nil, fmt.Errorf("unmarshal conversation state: %w", err)
	}
	return &st, nil
}

func (s *PostgresStore) Save(ctx context.Context, st *ConversationState) error {
	if err := st.Validate(); err != nil {
		return err
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal conversation state: %w", err)
	}

	row := &conversationRow{
		ID:        st.ConversationID,
		Payload:   payload,
		UpdatedAt: st.UpdatedAt,
	}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("payload = EXCLUDED.payload").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save conversation state: %w", err)
	}
	return nil
}
