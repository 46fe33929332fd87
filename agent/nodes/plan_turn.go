package turnnode

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/quillon/intake-orchestrator/agent/contract"
	memoryx "github.com/quillon/intake-orchestrator/agent/memory"
	plannerx "github.com/quillon/intake-orchestrator/agent/planner"
)

// PlanTurn extracts explicit identifiers, carries them into conversation
// state, and asks the domain planner for a constrained action plan. Planner
// failure of any kind leaves Plan nil; the executor falls back
// deterministically and the user never sees the error.
func PlanTurn(ctx context.Context, g *GraphState, planners map[contractx.Domain]contractx.Planner) (*GraphState, error) {
	g.Explicit = plannerx.ExtractIDs(g.Text)

	if g.Explicit.OrderID != "" {
		g.State.LastOrderID = g.Explicit.OrderID
		g.touchSlot(memoryx.SlotLastOrderID, g.Explicit.OrderID)
	}
	if g.Explicit.TrackingID != "" {
		g.State.LastTrackingID = g.Explicit.TrackingID
		g.touchSlot(memoryx.SlotLastTrackingID, g.Explicit.TrackingID)
	}
	if g.Explicit.BookingID != "" {
		g.State.LastBookingID = g.Explicit.BookingID
		g.touchSlot(memoryx.SlotLastBookingID, g.Explicit.BookingID)
	}
	if name := extractCustomerName(g.Text); name != "" {
		g.State.CustomerName = name
		g.touchSlot(memoryx.SlotCustomerName, name)
	}

	if g.Domain == contractx.DomainBookings {
		det := plannerx.ExtractBookingDetails(g.Text)
		if det.Date != "" {
			g.State.BookingDate = det.Date
		}
		if det.Time != "" {
			g.State.BookingTime = det.Time
		}
		if det.PartySize > 0 {
			g.State.BookingPartySize = det.PartySize
		}
	}

	g.PlanCtx = contractx.PlanContext{
		CustomerID:       g.CustomerID,
		CustomerName:     g.State.CustomerName,
		LastOrderID:      g.State.LastOrderID,
		LastTrackingID:   g.State.LastTrackingID,
		LastBookingID:    g.State.LastBookingID,
		BookingDate:      g.State.BookingDate,
		BookingTime:      g.State.BookingTime,
		BookingPartySize: g.State.BookingPartySize,
		Explicit:         g.Explicit,
	}

	p, ok := planners[g.Domain]
	if !ok {
		return g, nil
	}

	plan, err := p.Plan(ctx, g.Text, g.PlanCtx)
	if err != nil {
		log.Warn().Err(err).
			Str("conversation_id", g.ConversationID).
			Str("domain", string(g.Domain)).
			Msg("planner rejected, using deterministic fallback")
		return g, nil
	}

	g.Plan = plan
	return g, nil
}

var namePattern = regexp.MustCompile(`(?i)\b(?:my name is|me llamo)\s+([\p{L}][\p{L}' -]{1,39})`)

func extractCustomerName(text string) string {
	m := namePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
