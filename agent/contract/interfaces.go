package contract

import "context"

// ChatClient is the only surface LLM-backed components speak through.
// Implementations may fail on transport errors; every caller recovers with a
// deterministic fallback.
type ChatClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type EmbeddingsProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Planner asks a constrained model for a plan. A nil output (with or without
// an error) means "no usable plan"; the caller falls back to deterministic
// behavior. Plan must never panic on malformed model output.
type Planner interface {
	Plan(ctx context.Context, userText string, pctx PlanContext) (*PlannerOutput, error)
}

/* ----------------------------- domain adapters ---------------------------- */

type BookingsAdapter interface {
	CheckAvailability(ctx context.Context, date, timeSlot string, partySize int) (bool, error)
	CreateBooking(ctx context.Context, req BookingRequest) (*Booking, error)
	CancelBooking(ctx context.Context, bookingID string) (*Booking, error)
}

type PurchasesAdapter interface {
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	GetShipment(ctx context.Context, trackingID string) (*Shipment, error)
}

type ClaimsAdapter interface {
	CreateClaim(ctx context.Context, customerID, description string) (*Claim, error)
	GetClaim(ctx context.Context, claimID string) (*Claim, error)
}
