package memory

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/quillon/intake-orchestrator/agent/contract"
)

// Recaller is the free-text memory service. Without an embeddings provider
// it degrades to a no-op: Remember does nothing, Recall returns nothing.
type Recaller struct {
	embed     contractx.EmbeddingsProvider
	store     VectorStore
	projectID string
}

func NewRecaller(embed contractx.EmbeddingsProvider, store VectorStore, projectID string) *Recaller {
	return &Recaller{embed: embed, store: store, projectID: projectID}
}

func (r *Recaller) Enabled() bool {
	return r != nil && r.embed != nil && r.store != nil
}

func (r *Recaller) Remember(ctx context.Context, customerID, text string) error {
	if !r.Enabled() {
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" || strings.TrimSpace(customerID) == "" {
		return nil
	}

	vectors, err := r.embed.Embed(ctx, []string{text})
	if err != nil {
		return fmt.Errorf("embed memory text: %w", err)
	}
	if len(vectors) == 0 {
		return nil
	}
	return r.store.Add(ctx, VectorItem{
		ProjectID:  r.projectID,
		CustomerID: customerID,
		Text:       text,
		Embedding:  vectors[0],
	})
}

func (r *Recaller) Recall(ctx context.Context, customerID, query string, k int) ([]ScoredItem, error) {
	if !r.Enabled() {
		return nil, nil
	}
	query = strings.TrimSpace(query)
	if query == "" || strings.TrimSpace(customerID) == "" {
		return nil, nil
	}

	vectors, err := r.embed.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed recall query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	return r.store.Search(ctx, r.projectID, customerID, vectors[0], k)
}
