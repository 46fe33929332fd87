package turnnode

import (
	"context"
	"strings"

	contractx "github.com/quillon/intake-orchestrator/agent/contract"
	routerx "github.com/quillon/intake-orchestrator/agent/router"
)

// ResolveDomain picks the domain for this turn. A conversation stays on its
// routed domain while the assistant has a question pending, so short answers
// like "tomorrow at 7" are not re-routed mid-flow. Asking for the menu always
// breaks stickiness.
func ResolveDomain(ctx context.Context, g *GraphState, r *routerx.Router) (*GraphState, error) {
	normalized := strings.ToLower(strings.TrimSpace(g.Text))
	if normalized == "menu" || normalized == "menú" {
		g.Domain = contractx.DomainUnknown
		g.State.RoutedDomain = g.Domain
		return g, nil
	}

	if prev := g.State.RoutedDomain; contractx.KnownDomain(prev) && pendingQuestion(g.State.LastAssistantText()) {
		g.Domain = prev
		return g, nil
	}

	g.Domain = r.Route(ctx, g.Text)
	g.State.RoutedDomain = g.Domain
	return g, nil
}

func pendingQuestion(lastAssistant string) bool {
	return strings.HasSuffix(strings.TrimSpace(lastAssistant), "?")
}
