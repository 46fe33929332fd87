package turnnode

import (
	"context"
	"fmt"

	statex "github.com/quillon/intake-orchestrator/agent/state"
)

// SaveState commits the turn: assistant reply appended, event recorded,
// state persisted. Persistence failure is the one error class surfaced to
// the caller, since losing it would also lose idempotency.
func SaveState(ctx context.Context, g *GraphState, store statex.Store, limits statex.Limits) (*GraphState, error) {
	g.State.AppendMessage(statex.RoleAssistant, g.Reply, g.Now, limits)
	if g.EventID != "" {
		g.State.RecordEvent(g.EventID, limits)
	}
	g.State.Touch(g.Now)

	if err := store.Save(ctx, g.State); err != nil {
		return nil, fmt.Errorf("save conversation %s: %w", g.ConversationID, err)
	}
	return g, nil
}
