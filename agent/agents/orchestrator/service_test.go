package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/quillon/intake-orchestrator/agent/contract"
	memoryx "github.com/quillon/intake-orchestrator/agent/memory"
	nlgx "github.com/quillon/intake-orchestrator/agent/nlg"
	routerx "github.com/quillon/intake-orchestrator/agent/router"
	statex "github.com/quillon/intake-orchestrator/agent/state"
	toolingx "github.com/quillon/intake-orchestrator/agent/tooling"
)

type countingStore struct {
	inner *statex.InMemoryStore
	saves int
}

func (s *countingStore) Load(ctx context.Context, conversationID string) (*statex.ConversationState, error) {
	return s.inner.Load(ctx, conversationID)
}

func (s *countingStore) Save(ctx context.Context, st *statex.ConversationState) error {
	s.saves++
	return s.inner.Save(ctx, st)
}

type failingStore struct {
	inner *statex.InMemoryStore
	err   error
}

func (s *failingStore) Load(ctx context.Context, conversationID string) (*statex.ConversationState, error) {
	return s.inner.Load(ctx, conversationID)
}

func (s *failingStore) Save(ctx context.Context, st *statex.ConversationState) error {
	return s.err
}

type countingPurchases struct {
	inner *toolingx.DemoPurchasesAdapter
	calls int
}

func (a *countingPurchases) GetOrder(ctx context.Context, orderID string) (*contractx.Order, error) {
	a.calls++
	return a.inner.GetOrder(ctx, orderID)
}

func (a *countingPurchases) GetShipment(ctx context.Context, trackingID string) (*contractx.Shipment, error) {
	a.calls++
	return a.inner.GetShipment(ctx, trackingID)
}

type fakePlanner struct {
	out   *contractx.PlannerOutput
	err   error
	calls int
}

func (f *fakePlanner) Plan(ctx context.Context, userText string, pctx contractx.PlanContext) (*contractx.PlannerOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

type fakeRewriter struct {
	out string
	err error
}

func (f *fakeRewriter) Rewrite(ctx context.Context, userText, draft string, domain contractx.Domain) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

type testDeps struct {
	store     *countingStore
	memory    *memoryx.InMemoryStore
	purchases *countingPurchases
	planners  map[contractx.Domain]contractx.Planner
	guard     *nlgx.Guard
}

func newTestDeps() *testDeps {
	return &testDeps{
		store:     &countingStore{inner: statex.NewInMemoryStore()},
		memory:    memoryx.NewInMemoryStore(memoryx.DefaultTTLPolicy()),
		purchases: &countingPurchases{inner: toolingx.NewDemoPurchasesAdapter()},
		planners:  map[contractx.Domain]contractx.Planner{},
		guard:     nlgx.NewGuard(nil, true),
	}
}

func newTestOrchestrator(t *testing.T, d *testDeps) *Orchestrator {
	t.Helper()
	executor := toolingx.NewExecutor(toolingx.Adapters{
		Bookings:  toolingx.NewDemoBookingsAdapter(),
		Purchases: d.purchases,
		Claims:    toolingx.NewDemoClaimsAdapter(),
	})
	o, err := New(
		d.store,
		d.memory,
		routerx.New(nil, ""),
		d.planners,
		executor,
		d.guard,
		nil,
		Config{ProjectID: "test-project"},
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func TestRunTurnInvalidInput(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, newTestDeps())

	_, err := o.RunTurn(context.Background(), contractx.TurnRequest{ConversationID: "  ", Text: "hello"})
	if !errors.Is(err, ErrInvalidConversation) {
		t.Fatalf("expected ErrInvalidConversation, got %v", err)
	}

	_, err = o.RunTurn(context.Background(), contractx.TurnRequest{ConversationID: "c1", Text: "   "})
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestRunTurnOrderLookup(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	planner := &fakePlanner{
		out: &contractx.PlannerOutput{
			Actions: []contractx.Action{
				contractx.ToolCall{Tool: "get_order", Args: map[string]any{"order_id": "ORDER-200"}},
			},
		},
	}
	deps.planners[contractx.DomainPurchases] = planner

	o := newTestOrchestrator(t, deps)

	res, err := o.RunTurn(context.Background(), contractx.TurnRequest{
		ConversationID: "c-orders",
		Text:           "Where is the tracking for ORDER-200?",
		CustomerID:     "cust-1",
	})
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if !strings.Contains(res.ResponseText, "ORDER-200") {
		t.Fatalf("reply lost the order id: %q", res.ResponseText)
	}
	if !strings.Contains(res.ResponseText, "TRK-9X81") {
		t.Fatalf("reply lost the tracking code: %q", res.ResponseText)
	}
	if planner.calls != 1 {
		t.Fatalf("expected planner called once, got %d", planner.calls)
	}

	mem, err := deps.memory.Get(context.Background(), "test-project", "cust-1")
	if err != nil {
		t.Fatalf("memory Get() error = %v", err)
	}
	data := mem.Data()
	if data[memoryx.SlotLastOrderID] != "ORDER-200" {
		t.Fatalf("last_order_id not written, got %q", data[memoryx.SlotLastOrderID])
	}
	if data[memoryx.SlotLastTrackingID] != "TRK-9X81" {
		t.Fatalf("last_tracking_id not written, got %q", data[memoryx.SlotLastTrackingID])
	}
}

func TestRunTurnIdempotentReplay(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	deps.planners[contractx.DomainPurchases] = &fakePlanner{
		out: &contractx.PlannerOutput{
			Actions: []contractx.Action{
				contractx.ToolCall{Tool: "get_order", Args: map[string]any{"order_id": "ORDER-200"}},
			},
		},
	}

	o := newTestOrchestrator(t, deps)

	req := contractx.TurnRequest{
		ConversationID: "c-replay",
		Text:           "where is ORDER-200",
		EventID:        "evt-1",
	}

	first, err := o.RunTurn(context.Background(), req)
	if err != nil {
		t.Fatalf("first RunTurn() error = %v", err)
	}
	second, err := o.RunTurn(context.Background(), req)
	if err != nil {
		t.Fatalf("second RunTurn() error = %v", err)
	}

	if first.ResponseText != second.ResponseText {
		t.Fatalf("replay changed the reply: %q vs %q", first.ResponseText, second.ResponseText)
	}
	if deps.purchases.calls != 1 {
		t.Fatalf("replay re-executed tools: %d calls", deps.purchases.calls)
	}
	if deps.store.saves != 1 {
		t.Fatalf("replay re-saved state: %d saves", deps.store.saves)
	}

	st, err := deps.store.Load(context.Background(), "c-replay")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(st.Messages) != 2 {
		t.Fatalf("replay appended messages: got %d, want 2", len(st.Messages))
	}
}

func TestRunTurnCrossConversationMemory(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	o := newTestOrchestrator(t, deps)

	// First conversation establishes the customer's order id.
	_, err := o.RunTurn(context.Background(), contractx.TurnRequest{
		ConversationID: "c-first",
		Text:           "where is ORDER-200",
		CustomerID:     "cust-7",
	})
	if err != nil {
		t.Fatalf("first RunTurn() error = %v", err)
	}

	// A brand-new conversation resolves "the tracking" from customer memory.
	res, err := o.RunTurn(context.Background(), contractx.TurnRequest{
		ConversationID: "c-second",
		Text:           "and the tracking?",
		CustomerID:     "cust-7",
	})
	if err != nil {
		t.Fatalf("second RunTurn() error = %v", err)
	}
	if !strings.Contains(res.ResponseText, "ORDER-200") {
		t.Fatalf("memory-carried order id missing from reply: %q", res.ResponseText)
	}
}

func TestRunTurnBookingsConvergeWithoutPlanner(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	o := newTestOrchestrator(t, deps)
	ctx := context.Background()

	first, err := o.RunTurn(ctx, contractx.TurnRequest{
		ConversationID: "c-booking-flow",
		Text:           "I want to book a table",
	})
	if err != nil {
		t.Fatalf("first RunTurn() error = %v", err)
	}
	if !strings.Contains(first.ResponseText, "date, time, and party size") {
		t.Fatalf("expected request for booking details, got %q", first.ResponseText)
	}

	second, err := o.RunTurn(ctx, contractx.TurnRequest{
		ConversationID: "c-booking-flow",
		Text:           "tomorrow at 7pm for two",
	})
	if err != nil {
		t.Fatalf("second RunTurn() error = %v", err)
	}
	if !strings.Contains(second.ResponseText, "Shall I book it?") {
		t.Fatalf("expected availability check, got %q", second.ResponseText)
	}

	st, err := deps.store.Load(ctx, "c-booking-flow")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if st.BookingDate != "tomorrow" || st.BookingTime != "7pm" || st.BookingPartySize != 2 {
		t.Fatalf("booking fields not captured: %q %q %d", st.BookingDate, st.BookingTime, st.BookingPartySize)
	}

	third, err := o.RunTurn(ctx, contractx.TurnRequest{
		ConversationID: "c-booking-flow",
		Text:           "yes",
	})
	if err != nil {
		t.Fatalf("third RunTurn() error = %v", err)
	}
	if !strings.Contains(third.ResponseText, "confirmed") {
		t.Fatalf("expected confirmed booking, got %q", third.ResponseText)
	}

	st, err = deps.store.Load(ctx, "c-booking-flow")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if st.LastBookingID == "" {
		t.Fatal("booking id not carried into state")
	}
	if st.BookingDate != "" || st.BookingTime != "" || st.BookingPartySize != 0 {
		t.Fatalf("booking request fields not cleared after confirmation: %q %q %d",
			st.BookingDate, st.BookingTime, st.BookingPartySize)
	}
}

func TestRunTurnPlannerBookingArgsCarryOver(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	planner := &fakePlanner{
		out: &contractx.PlannerOutput{
			Actions: []contractx.Action{
				contractx.ToolCall{Tool: "check_availability", Args: map[string]any{
					"date": "2026-06-01", "time": "20:00", "party_size": float64(4),
				}},
			},
		},
	}
	deps.planners[contractx.DomainBookings] = planner

	o := newTestOrchestrator(t, deps)

	if _, err := o.RunTurn(context.Background(), contractx.TurnRequest{
		ConversationID: "c-booking-args",
		Text:           "can I reserve a table on the first of June",
	}); err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}

	st, err := deps.store.Load(context.Background(), "c-booking-args")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if st.BookingDate != "2026-06-01" || st.BookingTime != "20:00" || st.BookingPartySize != 4 {
		t.Fatalf("planner tool args not carried into state: %q %q %d",
			st.BookingDate, st.BookingTime, st.BookingPartySize)
	}
}

func TestRunTurnAskUserHaltsRemainingActions(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	deps.planners[contractx.DomainPurchases] = &fakePlanner{
		out: &contractx.PlannerOutput{
			Actions: []contractx.Action{
				contractx.AskUser{Text: "Which order do you mean?"},
				contractx.ToolCall{Tool: "get_order", Args: map[string]any{"order_id": "ORDER-200"}},
			},
		},
	}

	o := newTestOrchestrator(t, deps)

	res, err := o.RunTurn(context.Background(), contractx.TurnRequest{
		ConversationID: "c-ask",
		Text:           "where is my order",
	})
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if res.ResponseText != "Which order do you mean?" {
		t.Fatalf("unexpected reply: %q", res.ResponseText)
	}
	if deps.purchases.calls != 0 {
		t.Fatalf("tool executed after a question to the user: %d calls", deps.purchases.calls)
	}
}

func TestRunTurnAskUserReplacesToolText(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	deps.planners[contractx.DomainPurchases] = &fakePlanner{
		out: &contractx.PlannerOutput{
			Actions: []contractx.Action{
				contractx.ToolCall{Tool: "get_order", Args: map[string]any{"order_id": "ORDER-200"}},
				contractx.AskUser{Text: "Do you also want the delivery estimate?"},
			},
		},
	}

	o := newTestOrchestrator(t, deps)

	res, err := o.RunTurn(context.Background(), contractx.TurnRequest{
		ConversationID: "c-ask-after-tool",
		Text:           "where is ORDER-200",
	})
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if res.ResponseText != "Do you also want the delivery estimate?" {
		t.Fatalf("question did not become the reply: %q", res.ResponseText)
	}
	if deps.purchases.calls != 1 {
		t.Fatalf("tool before the question must still run once, got %d calls", deps.purchases.calls)
	}

	// The executed tool's identifiers are kept even though its text is not.
	st, err := deps.store.Load(context.Background(), "c-ask-after-tool")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if st.LastTrackingID != "TRK-9X81" {
		t.Fatalf("tool result not harvested: %q", st.LastTrackingID)
	}
}

func TestRunTurnPlannerFailureFallsBack(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	deps.planners[contractx.DomainPurchases] = &fakePlanner{err: contractx.ErrSchemaViolation}

	o := newTestOrchestrator(t, deps)

	res, err := o.RunTurn(context.Background(), contractx.TurnRequest{
		ConversationID: "c-fallback",
		Text:           "status of ORDER-201 please",
	})
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if !strings.Contains(res.ResponseText, "ORDER-201") {
		t.Fatalf("fallback did not resolve the explicit order id: %q", res.ResponseText)
	}
	if strings.Contains(strings.ToLower(res.ResponseText), "schema") {
		t.Fatalf("planner error leaked to user: %q", res.ResponseText)
	}
}

func TestRunTurnUnmatchedTextRendersMenu(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, newTestDeps())

	res, err := o.RunTurn(context.Background(), contractx.TurnRequest{
		ConversationID: "c-menu",
		Text:           "hola",
	})
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if !strings.Contains(res.ResponseText, "bookings") {
		t.Fatalf("expected service menu, got %q", res.ResponseText)
	}
}

func TestRunTurnStickyDomainWhileQuestionPending(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	o := newTestOrchestrator(t, deps)

	// Bookings fallback asks for date, time, and party size.
	first, err := o.RunTurn(context.Background(), contractx.TurnRequest{
		ConversationID: "c-sticky",
		Text:           "I want to book a table",
	})
	if err != nil {
		t.Fatalf("first RunTurn() error = %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(first.ResponseText), "?") {
		t.Fatalf("expected a pending question, got %q", first.ResponseText)
	}

	// The short answer has no routing keywords but must stay in bookings.
	_, err = o.RunTurn(context.Background(), contractx.TurnRequest{
		ConversationID: "c-sticky",
		Text:           "tomorrow at 7pm for two",
	})
	if err != nil {
		t.Fatalf("second RunTurn() error = %v", err)
	}

	st, err := deps.store.Load(context.Background(), "c-sticky")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if st.RoutedDomain != contractx.DomainBookings {
		t.Fatalf("conversation left bookings: %s", st.RoutedDomain)
	}

	// Asking for the menu always breaks stickiness.
	res, err := o.RunTurn(context.Background(), contractx.TurnRequest{
		ConversationID: "c-sticky",
		Text:           "menu",
	})
	if err != nil {
		t.Fatalf("menu RunTurn() error = %v", err)
	}
	if !strings.Contains(res.ResponseText, "claims") {
		t.Fatalf("expected service menu, got %q", res.ResponseText)
	}
}

func TestRunTurnSaveErrorPropagates(t *testing.T) {
	t.Parallel()

	saveErr := errors.New("save failed")
	deps := newTestDeps()

	executor := toolingx.NewExecutor(toolingx.Adapters{Purchases: deps.purchases})
	o, err := New(
		&failingStore{inner: statex.NewInMemoryStore(), err: saveErr},
		deps.memory,
		routerx.New(nil, ""),
		nil,
		executor,
		nil,
		nil,
		Config{ProjectID: "test-project"},
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = o.RunTurn(context.Background(), contractx.TurnRequest{
		ConversationID: "c-save-err",
		Text:           "where is ORDER-200",
		CustomerID:     "cust-9",
	})
	if !errors.Is(err, saveErr) {
		t.Fatalf("expected save error, got %v", err)
	}

	// Memory writes run after persistence, so a failed save writes nothing.
	mem, err := deps.memory.Get(context.Background(), "test-project", "cust-9")
	if err != nil {
		t.Fatalf("memory Get() error = %v", err)
	}
	if len(mem.Data()) != 0 {
		t.Fatalf("memory written despite save failure: %v", mem.Data())
	}
}

func TestRunTurnRewriteGuardKeepsIdentifiers(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	deps.planners[contractx.DomainPurchases] = &fakePlanner{
		out: &contractx.PlannerOutput{
			Actions: []contractx.Action{
				contractx.ToolCall{Tool: "get_order", Args: map[string]any{"order_id": "ORDER-200"}},
			},
		},
	}
	// The rewriter drops the order id; the guard must keep the draft.
	deps.guard = nlgx.NewGuard(&fakeRewriter{out: "Great news, your package is on the way!"}, true)

	o := newTestOrchestrator(t, deps)

	res, err := o.RunTurn(context.Background(), contractx.TurnRequest{
		ConversationID: "c-guard",
		Text:           "where is ORDER-200",
	})
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if !strings.Contains(res.ResponseText, "ORDER-200") {
		t.Fatalf("guard let the rewrite drop the order id: %q", res.ResponseText)
	}
}

func TestRunTurnFixedClock(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	executor := toolingx.NewExecutor(toolingx.Adapters{Purchases: deps.purchases})
	o, err := New(
		deps.store,
		deps.memory,
		routerx.New(nil, ""),
		nil,
		executor,
		nil,
		nil,
		Config{ProjectID: "test-project"},
		WithClock(func() time.Time { return now }),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := o.RunTurn(context.Background(), contractx.TurnRequest{
		ConversationID: "c-clock",
		Text:           "where is ORDER-200",
	}); err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}

	st, err := deps.store.Load(context.Background(), "c-clock")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !st.UpdatedAt.Equal(now) {
		t.Fatalf("UpdatedAt = %v, want %v", st.UpdatedAt, now)
	}
}
