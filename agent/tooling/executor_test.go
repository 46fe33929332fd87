package tooling

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/quillon/intake-orchestrator/agent/contract"
)

type flakyPurchases struct {
	err error
}

func (f *flakyPurchases) GetOrder(ctx context.Context, orderID string) (*contractx.Order, error) {
	return nil, f.err
}

func (f *flakyPurchases) GetShipment(ctx context.Context, trackingID string) (*contractx.Shipment, error) {
	return nil, f.err
}

func demoExecutor() *Executor {
	return NewExecutor(Adapters{
		Bookings:  NewDemoBookingsAdapter(),
		Purchases: NewDemoPurchasesAdapter(),
		Claims:    NewDemoClaimsAdapter(),
	})
}

func TestExecuteGetOrderFound(t *testing.T) {
	t.Parallel()

	out := demoExecutor().Execute(context.Background(), contractx.DomainPurchases, contractx.ToolCall{
		Tool: "get_order",
		Args: map[string]any{"order_id": "order-200"},
	})

	if !out.Success || !out.Found {
		t.Fatalf("unexpected outcome: %#v", out)
	}
	if out.Data["order_id"] != "ORDER-200" || out.Data["tracking_id"] != "TRK-9X81" {
		t.Fatalf("unexpected data: %#v", out.Data)
	}
}

func TestExecuteGetOrderNotFound(t *testing.T) {
	t.Parallel()

	out := demoExecutor().Execute(context.Background(), contractx.DomainPurchases, contractx.ToolCall{
		Tool: "get_order",
		Args: map[string]any{"order_id": "ORDER-999"},
	})

	if !out.Success || out.Found {
		t.Fatalf("unexpected outcome: %#v", out)
	}
	if out.ErrorCode != "" {
		t.Fatalf("not-found must not be an error: %#v", out)
	}
}

func TestExecuteAdapterFailureIsStructured(t *testing.T) {
	t.Parallel()

	e := NewExecutor(Adapters{Purchases: &flakyPurchases{err: errors.New("timeout")}})
	out := e.Execute(context.Background(), contractx.DomainPurchases, contractx.ToolCall{
		Tool: "get_order",
		Args: map[string]any{"order_id": "ORDER-200"},
	})

	if out.Success {
		t.Fatalf("expected failure outcome: %#v", out)
	}
	if out.ErrorCode != ErrCodeAdapterUnavailable {
		t.Fatalf("error code = %q, want %q", out.ErrorCode, ErrCodeAdapterUnavailable)
	}
	if reply := Render(contractx.DomainPurchases, out); !strings.Contains(reply, "try again") {
		t.Fatalf("degraded reply = %q", reply)
	}
}

func TestExecuteMissingAdapter(t *testing.T) {
	t.Parallel()

	e := NewExecutor(Adapters{})
	out := e.Execute(context.Background(), contractx.DomainClaims, contractx.ToolCall{
		Tool: "get_claim_status",
		Args: map[string]any{"claim_id": "CLM-1"},
	})
	if out.ErrorCode != ErrCodeAdapterMissing {
		t.Fatalf("error code = %q, want %q", out.ErrorCode, ErrCodeAdapterMissing)
	}
}

func TestExecuteInvalidArgs(t *testing.T) {
	t.Parallel()

	out := demoExecutor().Execute(context.Background(), contractx.DomainBookings, contractx.ToolCall{
		Tool: "check_availability",
		Args: map[string]any{"date": "2026-06-01"},
	})
	if out.ErrorCode != ErrCodeInvalidArgs {
		t.Fatalf("error code = %q, want %q", out.ErrorCode, ErrCodeInvalidArgs)
	}
}

func TestExecuteBookingLifecycle(t *testing.T) {
	t.Parallel()

	e := demoExecutor()
	ctx := context.Background()

	created := e.Execute(ctx, contractx.DomainBookings, contractx.ToolCall{
		Tool: "create_booking",
		Args: map[string]any{"date": "2026-06-01", "time": "20:00", "party_size": float64(4)},
	})
	if !created.Success || !created.Found {
		t.Fatalf("create outcome: %#v", created)
	}
	bookingID, _ := created.Data["booking_id"].(string)
	if bookingID == "" {
		t.Fatalf("missing booking id: %#v", created.Data)
	}

	cancelled := e.Execute(ctx, contractx.DomainBookings, contractx.ToolCall{
		Tool: "cancel_booking",
		Args: map[string]any{"booking_id": bookingID},
	})
	if !cancelled.Success || !cancelled.Found {
		t.Fatalf("cancel outcome: %#v", cancelled)
	}
	if cancelled.Data["status"] != "cancelled" {
		t.Fatalf("status = %v", cancelled.Data["status"])
	}
}

func TestFallbackPurchasesResolvesExplicitOrder(t *testing.T) {
	t.Parallel()

	reply, out := demoExecutor().Fallback(context.Background(), contractx.DomainPurchases,
		"where is ORDER-200", contractx.ExtractedIDs{OrderID: "ORDER-200"}, contractx.PlanContext{})

	if !strings.Contains(reply, "ORDER-200") || !strings.Contains(reply, "TRK-9X81") {
		t.Fatalf("fallback reply = %q", reply)
	}
	if out.Tool != "get_order" || !out.Found {
		t.Fatalf("fallback outcome = %#v", out)
	}
}

func TestFallbackPurchasesUsesCarriedTracking(t *testing.T) {
	t.Parallel()

	reply, _ := demoExecutor().Fallback(context.Background(), contractx.DomainPurchases,
		"and the tracking?", contractx.ExtractedIDs{}, contractx.PlanContext{LastTrackingID: "TRK-9X81"})

	if !strings.Contains(reply, "TRK-9X81") || !strings.Contains(reply, "in transit") {
		t.Fatalf("fallback reply = %q", reply)
	}
}

func TestFallbackUnknownDomainRendersMenu(t *testing.T) {
	t.Parallel()

	reply, out := demoExecutor().Fallback(context.Background(), contractx.DomainUnknown,
		"hola", contractx.ExtractedIDs{}, contractx.PlanContext{})
	if !strings.Contains(reply, "bookings") {
		t.Fatalf("menu reply = %q", reply)
	}
	if out.Tool != "" {
		t.Fatalf("menu path ran a tool: %#v", out)
	}
}

func TestFallbackBookingsAsksForMissingFields(t *testing.T) {
	t.Parallel()

	e := demoExecutor()

	reply, out := e.Fallback(context.Background(), contractx.DomainBookings,
		"I want to book a table", contractx.ExtractedIDs{}, contractx.PlanContext{})
	if !strings.Contains(reply, "date, time, and party size") {
		t.Fatalf("fallback reply = %q", reply)
	}
	if out.Tool != "" {
		t.Fatalf("question path ran a tool: %#v", out)
	}

	reply, _ = e.Fallback(context.Background(), contractx.DomainBookings,
		"tomorrow at 7pm", contractx.ExtractedIDs{},
		contractx.PlanContext{BookingDate: "tomorrow", BookingTime: "7pm"})
	if !strings.Contains(reply, "party size") || strings.Contains(reply, "date") {
		t.Fatalf("partial fallback reply = %q", reply)
	}
}

func TestFallbackBookingsChecksThenCreates(t *testing.T) {
	t.Parallel()

	e := demoExecutor()
	pctx := contractx.PlanContext{
		BookingDate:      "tomorrow",
		BookingTime:      "7pm",
		BookingPartySize: 2,
	}

	reply, out := e.Fallback(context.Background(), contractx.DomainBookings,
		"tomorrow at 7pm for two", contractx.ExtractedIDs{}, pctx)
	if out.Tool != "check_availability" {
		t.Fatalf("expected availability check, got %#v", out)
	}
	if !strings.Contains(reply, "Shall I book it?") {
		t.Fatalf("availability reply = %q", reply)
	}

	reply, out = e.Fallback(context.Background(), contractx.DomainBookings,
		"yes please", contractx.ExtractedIDs{}, pctx)
	if out.Tool != "create_booking" || !out.Found {
		t.Fatalf("expected booking created, got %#v", out)
	}
	if !strings.Contains(reply, "confirmed") {
		t.Fatalf("booking reply = %q", reply)
	}
}
