package turnnode

import (
	"context"
	"strings"

	contractx "github.com/quillon/intake-orchestrator/agent/contract"
	memoryx "github.com/quillon/intake-orchestrator/agent/memory"
	toolingx "github.com/quillon/intake-orchestrator/agent/tooling"
)

// ExecutePlan runs the planner's actions in order and assembles the draft
// reply. With no usable plan the domain's deterministic fallback answers
// instead, so a broken model never breaks the turn.
func ExecutePlan(ctx context.Context, g *GraphState, executor *toolingx.Executor) (*GraphState, error) {
	if g.Plan == nil || len(g.Plan.Actions) == 0 {
		applyFallback(ctx, g, executor)
		return g, nil
	}

	parts := make([]string, 0, len(g.Plan.Actions))
actions:
	for _, action := range g.Plan.Actions {
		switch a := action.(type) {
		case contractx.ToolCall:
			g.captureBookingArgs(a)
			outcome := executor.Execute(ctx, g.Domain, a)
			g.harvest(outcome)
			if text := toolingx.Render(g.Domain, outcome); text != "" {
				parts = append(parts, text)
			}
		case contractx.AskUser:
			// A question to the user becomes the whole reply and halts any
			// remaining actions; already-executed tool effects stand.
			parts = []string{a.Text}
			break actions
		}
	}

	g.Reply = strings.Join(parts, " ")
	if strings.TrimSpace(g.Reply) == "" {
		applyFallback(ctx, g, executor)
	}
	return g, nil
}

func applyFallback(ctx context.Context, g *GraphState, executor *toolingx.Executor) {
	reply, outcome := executor.Fallback(ctx, g.Domain, g.Text, g.Explicit, g.PlanCtx)
	if outcome.Tool != "" {
		g.harvest(outcome)
	}
	g.Reply = reply
}

// captureBookingArgs carries booking request fields the planner put into a
// tool call back into conversation state, so a later turn ("yes, book it")
// still has them.
func (g *GraphState) captureBookingArgs(call contractx.ToolCall) {
	if g.Domain != contractx.DomainBookings {
		return
	}
	if call.Tool != "check_availability" && call.Tool != "create_booking" {
		return
	}
	if v, ok := call.Args["date"].(string); ok && v != "" {
		g.State.BookingDate = v
	}
	if v, ok := call.Args["time"].(string); ok && v != "" {
		g.State.BookingTime = v
	}
	if n := argInt(call.Args, "party_size"); n > 0 {
		g.State.BookingPartySize = n
	}
}

func argInt(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// harvest carries identifiers returned by successful tools into conversation
// state and the slot write set.
func (g *GraphState) harvest(out contractx.ToolOutcome) {
	if !out.Success || !out.Found {
		return
	}
	if v := outcomeString(out, "order_id"); v != "" {
		g.State.LastOrderID = v
		g.touchSlot(memoryx.SlotLastOrderID, v)
	}
	if v := outcomeString(out, "tracking_id"); v != "" {
		g.State.LastTrackingID = v
		g.touchSlot(memoryx.SlotLastTrackingID, v)
	}
	if v := outcomeString(out, "booking_id"); v != "" {
		g.State.LastBookingID = v
		g.touchSlot(memoryx.SlotLastBookingID, v)
	}
	if out.Tool == "create_booking" {
		// The request is fulfilled; a new bookings flow starts clean.
		g.State.BookingDate = ""
		g.State.BookingTime = ""
		g.State.BookingPartySize = 0
	}
}

func outcomeString(out contractx.ToolOutcome, key string) string {
	v, ok := out.Data[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
