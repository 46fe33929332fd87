package turnnode

import (
	"context"
	"errors"

	statex "github.com/quillon/intake-orchestrator/agent/state"
)

// LoadState pulls the conversation record, creating a fresh one for
// first-contact conversations.
func LoadState(ctx context.Context, g *GraphState, store statex.Store) (*GraphState, error) {
	st, err := store.Load(ctx, g.ConversationID)
	if err != nil {
		if !errors.Is(err, statex.ErrStateNotFound) {
			return nil, err
		}
		st = statex.NewConversationState(g.ConversationID, g.Now)
	}

	g.State = st
	return g, nil
}
