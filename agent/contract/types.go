package contract

import "time"

type Domain string

const (
	DomainBookings  Domain = "bookings"
	DomainPurchases Domain = "purchases"
	DomainClaims    Domain = "claims"
	DomainUnknown   Domain = "unknown"
)

// KnownDomain reports whether d names a business domain with its own
// planner, tool allow-list, and deterministic fallback.
func KnownDomain(d Domain) bool {
	switch d {
	case DomainBookings, DomainPurchases, DomainClaims:
		return true
	default:
		return false
	}
}

type TurnRequest struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
	EventID        string `json:"event_id,omitempty"`
	CustomerID     string `json:"customer_id,omitempty"`
}

type TurnResult struct {
	ConversationID string `json:"conversation_id"`
	ResponseText   string `json:"response_text"`
}

// PlannerOutput is the schema-validated action sequence a planner proposes
// for one turn. It is transient and never persisted.
type PlannerOutput struct {
	Actions []Action
}

// Action is a closed sum: exactly ToolCall or AskUser.
type Action interface {
	isAction()
}

type ToolCall struct {
	Tool string
	Args map[string]any
}

type AskUser struct {
	Text string
}

func (ToolCall) isAction() {}
func (AskUser) isAction()  {}

// ToolOutcome is the structured result the tool executor hands back to the
// orchestrator. Adapter failures surface here as ErrorCode, never as errors.
type ToolOutcome struct {
	Tool      string         `json:"tool"`
	Success   bool           `json:"success"`
	Found     bool           `json:"found"`
	Data      map[string]any `json:"data,omitempty"`
	ErrorCode string         `json:"error_code,omitempty"`
}

// ExtractedIDs holds identifiers found in user text by deterministic pattern
// matching, supplied to planners so the model is not asked to invent them.
type ExtractedIDs struct {
	OrderID    string
	TrackingID string
	ClaimID    string
	BookingID  string
}

// PlanContext carries identifiers known before the planner runs: values from
// conversation state, long-term memory, and deterministic extraction.
type PlanContext struct {
	CustomerID     string
	CustomerName   string
	LastOrderID    string
	LastTrackingID string
	LastBookingID  string

	// Booking request fields gathered across turns of a bookings flow.
	BookingDate      string
	BookingTime      string
	BookingPartySize int

	Explicit ExtractedIDs
}

/* ----------------------------- domain entities ---------------------------- */

type Order struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	TrackingID string `json:"tracking_id,omitempty"`
}

type Shipment struct {
	TrackingID string `json:"tracking_id"`
	Carrier    string `json:"carrier"`
	Status     string `json:"status"`
	ETA        string `json:"eta,omitempty"`
}

type BookingRequest struct {
	CustomerID   string `json:"customer_id,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	PartySize    int    `json:"party_size"`
}

type Booking struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	PartySize int    `json:"party_size"`
	Status    string `json:"status"`
}

type Claim struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	OpenedAt    time.Time `json:"opened_at,omitempty"`
}
