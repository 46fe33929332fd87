package turnnode

import (
	"context"

	nlgx "github.com/quillon/intake-orchestrator/agent/nlg"
)

func RewriteReply(ctx context.Context, g *GraphState, guard *nlgx.Guard) (*GraphState, error) {
	g.Reply = guard.MaybeRewrite(ctx, g.Text, g.Reply, g.Domain)
	return g, nil
}
