package turnnode

import "context"

// CheckEvent decides the idempotency branch. A turn carrying an event id the
// conversation already processed replays the last assistant reply unchanged.
func CheckEvent(_ context.Context, g *GraphState) (*GraphState, error) {
	if g.EventID == "" || !g.State.HasProcessedEvent(g.EventID) {
		return g, nil
	}

	g.Duplicate = true
	g.Reply = g.State.LastAssistantText()
	return g, nil
}
