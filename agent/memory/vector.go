package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/uptrace/bun"
)

var ErrEmptyEmbedding = errors.New("embedding is empty")

// VectorItem is one append-only free-text memory with its embedding. Items
// are only ever compared within their own (project, customer) partition.
type VectorItem struct {
	ProjectID  string    `json:"project_id"`
	CustomerID string    `json:"customer_id"`
	Text       string    `json:"text"`
	Embedding  []float64 `json:"embedding"`
}

// ScoredItem is a search hit with its cosine similarity.
type ScoredItem struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type VectorStore interface {
	Add(ctx context.Context, item VectorItem) error
	// Search returns the top k items of the partition by cosine similarity,
	// descending, ties broken by insertion order.
	Search(ctx context.Context, projectID, customerID string, query []float64, k int) ([]ScoredItem, error)
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func rankItems(items []VectorItem, query []float64, k int) []ScoredItem {
	scored := make([]ScoredItem, 0, len(items))
	for _, it := range items {
		scored = append(scored, ScoredItem{
			Text:  it.Text,
			Score: cosineSimilarity(query, it.Embedding),
		})
	}
	// Stable keeps insertion order for equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

/* ------------------------------ in-memory impl ---------------------------- */

type InMemoryVectorStore struct {
	mu    sync.RWMutex
	items map[memoryKey][]VectorItem
}

func NewInMemoryVectorStore() *InMemoryVectorStore {
	return &InMemoryVectorStore{items: make(map[memoryKey][]VectorItem)}
}

func (s *InMemoryVectorStore) Add(ctx context.Context, item VectorItem) error {
	key, err := newMemoryKey(item.ProjectID, item.CustomerID)
	if err != nil {
		return err
	}
	if len(item.Embedding) == 0 {
		return ErrEmptyEmbedding
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item.Embedding = append([]float64(nil), item.Embedding...)
	s.items[key] = append(s.items[key], item)
	return nil
}

func (s *InMemoryVectorStore) Search(ctx context.Context, projectID, customerID string, query []float64, k int) ([]ScoredItem, error) {
	key, err := newMemoryKey(projectID, customerID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rankItems(s.items[key], query, k), nil
}

/* ------------------------------ postgres impl ----------------------------- */

type vectorItemRow struct {
	bun.BaseModel `bun:"table:vector_memory_items,alias:vm"`

	ID         int64     `bun:"id,pk,autoincrement"`
	ProjectID  string    `bun:"project_id,notnull"`
	CustomerID string    `bun:"customer_id,notnull"`
	Text       string    `bun:"text,notnull"`
	Embedding  []float64 `bun:"embedding,type:jsonb"`
}

// PostgresVectorStore stores embeddings as JSONB arrays and scores candidate
// partitions in process. Partitions are per customer and small by design.
type PostgresVectorStore struct {
	db *bun.DB
}

func NewPostgresVectorStore(db *bun.DB) (*PostgresVectorStore, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	return &PostgresVectorStore{db: db}, nil
}

func (s *PostgresVectorStore) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*vectorItemRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create vector_memory_items table: %w", err)
	}
	return nil
}

func (s *PostgresVectorStore) Add(ctx context.Context, item VectorItem) error {
	key, err := newMemoryKey(item.ProjectID, item.CustomerID)
	if err != nil {
		return err
	}
	if len(item.Embedding) == 0 {
		return ErrEmptyEmbedding
	}
	row := &vectorItemRow{
		ProjectID:  key.projectID,
		CustomerID: key.customerID,
		Text:       item.Text,
		Embedding:  item.Embedding,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert vector memory item: %w", err)
	}
	return nil
}

func (s *PostgresVectorStore) Search(ctx context.Context, projectID, customerID string, query []float64, k int) ([]ScoredItem, error) {
	key, err := newMemoryKey(projectID, customerID)
	if err != nil {
		return nil, err
	}

	var rows []vectorItemRow
	err = s.db.NewSelect().
		Model(&rows).
		Where("vm.project_id = ?", key.projectID).
		Where("vm.customer_id = ?", key.customerID).
		Order("vm.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load vector memory partition: %w", err)
	}

	items := make([]VectorItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, VectorItem{
			ProjectID:  row.ProjectID,
			CustomerID: row.CustomerID,
			Text:       row.Text,
			Embedding:  row.Embedding,
		})
	}
	return rankItems(items, query, k), nil
}
