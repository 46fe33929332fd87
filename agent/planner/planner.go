package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/quillon/intake-orchestrator/agent/contract"
)

const (
	planKind   = "plan"
	maxActions = 2
)

// Per-domain tool allow-lists. The planner can only select from this fixed,
// code-owned menu of operations; it never executes anything itself.
var allowedTools = map[contractx.Domain][]string{
	contractx.DomainBookings:  {"check_availability", "create_booking", "cancel_booking"},
	contractx.DomainPurchases: {"get_order", "get_tracking"},
	contractx.DomainClaims:    {"create_claim", "get_claim_status"},
}

// AllowedTools returns the tool allow-list for a domain.
func AllowedTools(domain contractx.Domain) []string {
	return append([]string(nil), allowedTools[domain]...)
}

func toolAllowed(domain contractx.Domain, tool string) bool {
	for _, name := range allowedTools[domain] {
		if name == tool {
			return true
		}
	}
	return false
}

/* ------------------------------- wire format ------------------------------ */

type planWire struct {
	Kind    string       `json:"kind"`
	Actions []actionWire `json:"actions"`
}

type actionWire struct {
	Type string         `json:"type"`
	Tool string         `json:"tool,omitempty"`
	Args map[string]any `json:"args,omitempty"`
	Text string         `json:"text,omitempty"`
}

// DomainPlanner asks the chat model for a plan and validates it against the
// shared schema and the domain's tool allow-list. Any violation yields a nil
// plan with a wrapped sentinel error; it never panics and the orchestrator
// treats nil and error identically (deterministic fallback).
type DomainPlanner struct {
	domain       contractx.Domain
	chat         contractx.ChatClient
	systemPrompt string
}

func New(domain contractx.Domain, chat contractx.ChatClient, systemPrompt string) (*DomainPlanner, error) {
	if !contractx.KnownDomain(domain) {
		return nil, fmt.Errorf("%w: domain=%q has no planner", contractx.ErrValidation, domain)
	}
	if chat == nil {
		return nil, fmt.Errorf("%w: chat client is required", contractx.ErrValidation)
	}
	prompt := strings.TrimSpace(systemPrompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: system prompt is required", contractx.ErrValidation)
	}
	return &DomainPlanner{domain: domain, chat: chat, systemPrompt: prompt}, nil
}

func (p *DomainPlanner) Plan(ctx context.Context, userText string, pctx contractx.PlanContext) (*contractx.PlannerOutput, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return nil, fmt.Errorf("%w: user text is required", contractx.ErrValidation)
	}

	payload := map[string]any{
		"user_message": userText,
		"context": map[string]any{
			"customer_id":      pctx.CustomerID,
			"customer_name":    pctx.CustomerName,
			"last_order_id":    pctx.LastOrderID,
			"last_tracking_id": pctx.LastTrackingID,
			"last_booking_id":  pctx.LastBookingID,
			"booking_date":     pctx.BookingDate,
			"booking_time":     pctx.BookingTime,
			"booking_party":    pctx.BookingPartySize,
			"explicit_ids": map[string]any{
				"order_id":    pctx.Explicit.OrderID,
				"tracking_id": pctx.Explicit.TrackingID,
				"claim_id":    pctx.Explicit.ClaimID,
				"booking_id":  pctx.Explicit.BookingID,
			},
		},
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal planner payload: %v", contractx.ErrValidation, err)
	}

	raw, err := p.chat.Complete(ctx, p.systemPrompt, string(input))
	if err != nil {
		return nil, fmt.Errorf("%w: planner completion: %v", contractx.ErrModelInvoke, err)
	}

	return p.parse(raw)
}

func (p *DomainPlanner) parse(raw string) (*contractx.PlannerOutput, error) {
	var wire planWire
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: unparsable plan: %v", contractx.ErrSchemaViolation, err)
	}

	if wire.Kind != planKind {
		return nil, fmt.Errorf("%w: kind=%q", contractx.ErrSchemaViolation, wire.Kind)
	}
	if len(wire.Actions) > maxActions {
		return nil, fmt.Errorf("%w: %d actions, max %d", contractx.ErrSchemaViolation, len(wire.Actions), maxActions)
	}

	out := &contractx.PlannerOutput{Actions: make([]contractx.Action, 0, len(wire.Actions))}
	for _, aw := range wire.Actions {
		action, err := p.parseAction(aw)
		if err != nil {
			return nil, err
		}
		out.Actions = append(out.Actions, action)
	}
	return out, nil
}

func (p *DomainPlanner) parseAction(aw actionWire) (contractx.Action, error) {
	switch aw.Type {
	case "tool_call":
		tool := strings.TrimSpace(aw.Tool)
		if tool == "" {
			return nil, fmt.Errorf("%w: tool_call without tool", contractx.ErrSchemaViolation)
		}
		if aw.Text != "" {
			return nil, fmt.Errorf("%w: tool_call carries text", contractx.ErrSchemaViolation)
		}
		if !toolAllowed(p.domain, tool) {
			return nil, fmt.Errorf("%w: domain=%s tool=%s", contractx.ErrUnknownTool, p.domain, tool)
		}
		args := aw.Args
		if args == nil {
			args = map[string]any{}
		}
		return contractx.ToolCall{Tool: tool, Args: args}, nil
	case "ask_user":
		text := strings.TrimSpace(aw.Text)
		if text == "" {
			return nil, fmt.Errorf("%w: ask_user without text", contractx.ErrSchemaViolation)
		}
		if aw.Tool != "" || aw.Args != nil {
			return nil, fmt.Errorf("%w: ask_user carries tool fields", contractx.ErrSchemaViolation)
		}
		return contractx.AskUser{Text: text}, nil
	default:
		return nil, fmt.Errorf("%w: action type=%q", contractx.ErrSchemaViolation, aw.Type)
	}
}
