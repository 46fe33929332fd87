package turnnode

import (
	"context"

	"github.com/rs/zerolog/log"

	memoryx "github.com/quillon/intake-orchestrator/agent/memory"
)

// WriteMemory flushes the turn's slot changes to long-term customer memory
// and records the exchange in vector memory. Both writes are best effort:
// the reply is already committed, so failures here are logged and dropped.
func WriteMemory(ctx context.Context, g *GraphState, store memoryx.Store, recaller *memoryx.Recaller, projectID string) (*GraphState, error) {
	if g.CustomerID == "" {
		return g, nil
	}

	if len(g.ChangedSlots) > 0 {
		if _, err := store.Upsert(ctx, projectID, g.CustomerID, g.ChangedSlots); err != nil {
			log.Warn().Err(err).
				Str("conversation_id", g.ConversationID).
				Msg("customer memory write failed")
		}
	}

	if recaller.Enabled() {
		if err := recaller.Remember(ctx, g.CustomerID, g.Text); err != nil {
			log.Warn().Err(err).
				Str("conversation_id", g.ConversationID).
				Msg("vector memory write failed")
		}
	}
	return g, nil
}
