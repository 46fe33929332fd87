package turnnode

import (
	"context"

	"github.com/rs/zerolog/log"

	memoryx "github.com/quillon/intake-orchestrator/agent/memory"
)

// MergeMemory hydrates empty conversation fields from long-term customer
// memory. Memory never overwrites values already present in the conversation.
func MergeMemory(ctx context.Context, g *GraphState, store memoryx.Store, projectID string) (*GraphState, error) {
	if g.CustomerID == "" {
		g.CustomerID = g.State.CustomerID
	}
	if g.CustomerID == "" {
		return g, nil
	}
	g.State.CustomerID = g.CustomerID

	mem, err := store.Get(ctx, projectID, g.CustomerID)
	if err != nil {
		log.Warn().Err(err).
			Str("conversation_id", g.ConversationID).
			Msg("customer memory unavailable, continuing without it")
		return g, nil
	}

	data := mem.Data()
	if g.State.CustomerName == "" {
		g.State.CustomerName = data[memoryx.SlotCustomerName]
	}
	if g.State.LastOrderID == "" {
		g.State.LastOrderID = data[memoryx.SlotLastOrderID]
	}
	if g.State.LastTrackingID == "" {
		g.State.LastTrackingID = data[memoryx.SlotLastTrackingID]
	}
	if g.State.LastBookingID == "" {
		g.State.LastBookingID = data[memoryx.SlotLastBookingID]
	}
	return g, nil
}
