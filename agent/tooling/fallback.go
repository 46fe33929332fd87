package tooling

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	contractx "github.com/quillon/intake-orchestrator/agent/contract"
)

const menuReply = "I can help with bookings, orders and deliveries, or claims. " +
	"Tell me what you need, for example: \"book a table\", \"where is ORDER-200\", or \"open a claim\"."

var affirmativePattern = regexp.MustCompile(`(?i)(^\s*(yes|yeah|yep|sure|ok|okay|sí|si)\b|\b(book it|confirm)\b)`)

// Fallback is the deterministic, domain-specific reply path used when a
// domain has no planner or the planner produced nothing usable. It never
// calls an LLM; at most it resolves regex-extracted identifiers or gathered
// booking fields directly against the domain adapter. The second return is
// the outcome of the tool it ran, zero-valued when no tool was needed, so
// the caller can carry identifiers from fallback turns too.
func (e *Executor) Fallback(ctx context.Context, domain contractx.Domain, userText string, ids contractx.ExtractedIDs, pctx contractx.PlanContext) (string, contractx.ToolOutcome) {
	switch domain {
	case contractx.DomainPurchases:
		return e.purchasesFallback(ctx, ids, pctx)
	case contractx.DomainClaims:
		return e.claimsFallback(ctx, ids)
	case contractx.DomainBookings:
		return e.bookingsFallback(ctx, userText, pctx)
	default:
		return menuReply, contractx.ToolOutcome{}
	}
}

func (e *Executor) purchasesFallback(ctx context.Context, ids contractx.ExtractedIDs, pctx contractx.PlanContext) (string, contractx.ToolOutcome) {
	orderID := ids.OrderID
	if orderID == "" {
		orderID = pctx.LastOrderID
	}
	if orderID != "" {
		out := e.Execute(ctx, contractx.DomainPurchases, contractx.ToolCall{
			Tool: "get_order",
			Args: map[string]any{"order_id": orderID},
		})
		return Render(contractx.DomainPurchases, out), out
	}

	trackingID := ids.TrackingID
	if trackingID == "" {
		trackingID = pctx.LastTrackingID
	}
	if trackingID != "" {
		out := e.Execute(ctx, contractx.DomainPurchases, contractx.ToolCall{
			Tool: "get_tracking",
			Args: map[string]any{"tracking_id": trackingID},
		})
		return Render(contractx.DomainPurchases, out), out
	}

	return "I can look that up. What is your order id, for example ORDER-123?", contractx.ToolOutcome{}
}

func (e *Executor) claimsFallback(ctx context.Context, ids contractx.ExtractedIDs) (string, contractx.ToolOutcome) {
	if ids.ClaimID != "" {
		out := e.Execute(ctx, contractx.DomainClaims, contractx.ToolCall{
			Tool: "get_claim_status",
			Args: map[string]any{"claim_id": ids.ClaimID},
		})
		return Render(contractx.DomainClaims, out), out
	}
	return "I am sorry to hear that. Could you describe what went wrong so I can open a claim?", contractx.ToolOutcome{}
}

// bookingsFallback walks the booking request to completion across turns:
// ask for missing fields, check availability once all three are known, and
// create the booking on an affirmative answer.
func (e *Executor) bookingsFallback(ctx context.Context, userText string, pctx contractx.PlanContext) (string, contractx.ToolOutcome) {
	if missing := missingBookingFields(pctx); len(missing) > 0 {
		return fmt.Sprintf("I can help with that booking. What %s should I look for?", joinAnd(missing)), contractx.ToolOutcome{}
	}

	if affirmativePattern.MatchString(userText) {
		out := e.Execute(ctx, contractx.DomainBookings, contractx.ToolCall{
			Tool: "create_booking",
			Args: map[string]any{
				"customer_id":   pctx.CustomerID,
				"customer_name": pctx.CustomerName,
				"date":          pctx.BookingDate,
				"time":          pctx.BookingTime,
				"party_size":    pctx.BookingPartySize,
			},
		})
		return Render(contractx.DomainBookings, out), out
	}

	out := e.Execute(ctx, contractx.DomainBookings, contractx.ToolCall{
		Tool: "check_availability",
		Args: map[string]any{
			"date":       pctx.BookingDate,
			"time":       pctx.BookingTime,
			"party_size": pctx.BookingPartySize,
		},
	})
	return Render(contractx.DomainBookings, out), out
}

func missingBookingFields(pctx contractx.PlanContext) []string {
	var missing []string
	if pctx.BookingDate == "" {
		missing = append(missing, "date")
	}
	if pctx.BookingTime == "" {
		missing = append(missing, "time")
	}
	if pctx.BookingPartySize <= 0 {
		missing = append(missing, "party size")
	}
	return missing
}

func joinAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}
