package tooling

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/quillon/intake-orchestrator/agent/contract"
)

const (
	ErrCodeAdapterUnavailable = "adapter_unavailable"
	ErrCodeAdapterMissing     = "adapter_missing"
	ErrCodeInvalidArgs        = "invalid_args"
	ErrCodeUnknownTool        = "unknown_tool"
)

// Adapters binds each domain to its backend. Any adapter may be nil; tools
// for that domain then resolve to an adapter_missing outcome.
type Adapters struct {
	Bookings  contractx.BookingsAdapter
	Purchases contractx.PurchasesAdapter
	Claims    contractx.ClaimsAdapter
}

// Executor translates one allow-listed tool call into one adapter call and
// maps the result into a ToolOutcome. Adapter errors are caught here and
// converted into structured error outcomes, never returned to the caller.
type Executor struct {
	adapters Adapters
}

func NewExecutor(adapters Adapters) *Executor {
	return &Executor{adapters: adapters}
}

func (e *Executor) Execute(ctx context.Context, domain contractx.Domain, call contractx.ToolCall) contractx.ToolOutcome {
	var out contractx.ToolOutcome
	switch domain {
	case contractx.DomainBookings:
		out = e.executeBookings(ctx, call)
	case contractx.DomainPurchases:
		out = e.executePurchases(ctx, call)
	case contractx.DomainClaims:
		out = e.executeClaims(ctx, call)
	default:
		out = failure(call.Tool, ErrCodeUnknownTool)
	}
	if out.ErrorCode != "" {
		log.Warn().
			Str("domain", string(domain)).
			Str("tool", call.Tool).
			Str("error_code", out.ErrorCode).
			Msg("tool execution degraded")
	}
	return out
}

func (e *Executor) executeBookings(ctx context.Context, call contractx.ToolCall) contractx.ToolOutcome {
	adapter := e.adapters.Bookings
	if adapter == nil {
		return failure(call.Tool, ErrCodeAdapterMissing)
	}

	switch call.Tool {
	case "check_availability":
		date := stringArg(call.Args, "date")
		timeSlot := stringArg(call.Args, "time")
		partySize := intArg(call.Args, "party_size")
		if date == "" || timeSlot == "" || partySize <= 0 {
			return failure(call.Tool, ErrCodeInvalidArgs)
		}
		available, err := adapter.CheckAvailability(ctx, date, timeSlot, partySize)
		if err != nil {
			return failure(call.Tool, ErrCodeAdapterUnavailable)
		}
		return success(call.Tool, true, map[string]any{
			"available":  available,
			"date":       date,
			"time":       timeSlot,
			"party_size": partySize,
		})
	case "create_booking":
		req := contractx.BookingRequest{
			CustomerID:   stringArg(call.Args, "customer_id"),
			CustomerName: stringArg(call.Args, "customer_name"),
			Date:         stringArg(call.Args, "date"),
			Time:         stringArg(call.Args, "time"),
			PartySize:    intArg(call.Args, "party_size"),
		}
		if req.Date == "" || req.Time == "" || req.PartySize <= 0 {
			return failure(call.Tool, ErrCodeInvalidArgs)
		}
		booking, err := adapter.CreateBooking(ctx, req)
		if err != nil {
			return failure(call.Tool, ErrCodeAdapterUnavailable)
		}
		return success(call.Tool, booking != nil, bookingData(booking))
	case "cancel_booking":
		bookingID := stringArg(call.Args, "booking_id")
		if bookingID == "" {
			return failure(call.Tool, ErrCodeInvalidArgs)
		}
		booking, err := adapter.CancelBooking(ctx, bookingID)
		if err != nil {
			return failure(call.Tool, ErrCodeAdapterUnavailable)
		}
		return success(call.Tool, booking != nil, bookingData(booking))
	default:
		return failure(call.Tool, ErrCodeUnknownTool)
	}
}

func (e *Executor) executePurchases(ctx context.Context, call contractx.ToolCall) contractx.ToolOutcome {
	adapter := e.adapters.Purchases
	if adapter == nil {
		return failure(call.Tool, ErrCodeAdapterMissing)
	}

	switch call.Tool {
	case "get_order":
		orderID := strings.ToUpper(stringArg(call.Args, "order_id"))
		if orderID == "" {
			return failure(call.Tool, ErrCodeInvalidArgs)
		}
		order, err := adapter.GetOrder(ctx, orderID)
		if err != nil {
			return failure(call.Tool, ErrCodeAdapterUnavailable)
		}
		if order == nil {
			return success(call.Tool, false, map[string]any{"order_id": orderID})
		}
		data := map[string]any{
			"order_id": order.ID,
			"status":   order.Status,
		}
		if order.TrackingID != "" {
			data["tracking_id"] = order.TrackingID
		}
		return success(call.Tool, true, data)
	case "get_tracking":
		trackingID := strings.ToUpper(stringArg(call.Args, "tracking_id"))
		if trackingID == "" {
			return failure(call.Tool, ErrCodeInvalidArgs)
		}
		shipment, err := adapter.GetShipment(ctx, trackingID)
		if err != nil {
			return failure(call.Tool, ErrCodeAdapterUnavailable)
		}
		if shipment == nil {
			return success(call.Tool, false, map[string]any{"tracking_id": trackingID})
		}
		data := map[string]any{
			"tracking_id": shipment.TrackingID,
			"carrier":     shipment.Carrier,
			"status":      shipment.Status,
		}
		if shipment.ETA != "" {
			data["eta"] = shipment.ETA
		}
		return success(call.Tool, true, data)
	default:
		return failure(call.Tool, ErrCodeUnknownTool)
	}
}

func (e *Executor) executeClaims(ctx context.Context, call contractx.ToolCall) contractx.ToolOutcome {
	adapter := e.adapters.Claims
	if adapter == nil {
		return failure(call.Tool, ErrCodeAdapterMissing)
	}

	switch call.Tool {
	case "create_claim":
		description := stringArg(call.Args, "description")
		if description == "" {
			return failure(call.Tool, ErrCodeInvalidArgs)
		}
		claim, err := adapter.CreateClaim(ctx, stringArg(call.Args, "customer_id"), description)
		if err != nil {
			return failure(call.Tool, ErrCodeAdapterUnavailable)
		}
		return success(call.Tool, claim != nil, claimData(claim))
	case "get_claim_status":
		claimID := strings.ToUpper(stringArg(call.Args, "claim_id"))
		if claimID == "" {
			return failure(call.Tool, ErrCodeInvalidArgs)
		}
		claim, err := adapter.GetClaim(ctx, claimID)
		if err != nil {
			return failure(call.Tool, ErrCodeAdapterUnavailable)
		}
		if claim == nil {
			return success(call.Tool, false, map[string]any{"claim_id": claimID})
		}
		return success(call.Tool, true, claimData(claim))
	default:
		return failure(call.Tool, ErrCodeUnknownTool)
	}
}

/* --------------------------------- helpers -------------------------------- */

func success(tool string, found bool, data map[string]any) contractx.ToolOutcome {
	return contractx.ToolOutcome{Tool: tool, Success: true, Found: found, Data: data}
}

func failure(tool, code string) contractx.ToolOutcome {
	return contractx.ToolOutcome{Tool: tool, ErrorCode: code}
}

func bookingData(b *contractx.Booking) map[string]any {
	if b == nil {
		return nil
	}
	return map[string]any{
		"booking_id": b.ID,
		"date":       b.Date,
		"time":       b.Time,
		"party_size": b.PartySize,
		"status":     b.Status,
	}
}

func claimData(c *contractx.Claim) map[string]any {
	if c == nil {
		return nil
	}
	return map[string]any{
		"claim_id": c.ID,
		"status":   c.Status,
	}
}

func stringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &n); err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
