package turnnode

import (
	"context"

	statex "github.com/quillon/intake-orchestrator/agent/state"
)

func AppendUser(_ context.Context, g *GraphState, limits statex.Limits) (*GraphState, error) {
	g.State.AppendMessage(statex.RoleUser, g.Text, g.Now, limits)
	return g, nil
}
