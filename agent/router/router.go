package router

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/quillon/intake-orchestrator/agent/contract"
)

// Keyword tables are matched case-insensitively on whole words. Claims beats
// purchases beats bookings; the exact words "menu"/"menú" always win.
var (
	claimsKeywords = []string{
		"claim", "claims", "complaint", "damaged", "broken", "defective", "refund",
		"reclamo", "reclamos", "queja", "reembolso", "devolucion", "devolución", "dañado", "roto",
	}
	purchasesKeywords = []string{
		"order", "orders", "tracking", "shipment", "shipping", "delivery", "package",
		"pedido", "pedidos", "envio", "envío", "paquete", "seguimiento", "entrega",
	}
	bookingsKeywords = []string{
		"book", "booking", "reserve", "reservation", "table", "appointment",
		"reserva", "reservar", "cita", "mesa", "agendar",
	}
)

var explicitIDPattern = regexp.MustCompile(`(?i)\b(?:ORD|ORDER|TRK|TRACK)-[A-Z0-9]{1,12}\b`)

// RuleDomain is the pure keyword-priority router. Unmatched text resolves to
// DomainUnknown, which renders the service menu; routing to a business domain
// on no signal would drag users into flows they never asked for.
func RuleDomain(text string) contractx.Domain {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "menu" || normalized == "menú" {
		return contractx.DomainUnknown
	}
	switch {
	case containsAnyWord(normalized, claimsKeywords):
		return contractx.DomainClaims
	case containsAnyWord(normalized, purchasesKeywords) || explicitIDPattern.MatchString(text):
		return contractx.DomainPurchases
	case containsAnyWord(normalized, bookingsKeywords):
		return contractx.DomainBookings
	default:
		return contractx.DomainUnknown
	}
}

func containsAnyWord(normalized string, keywords []string) bool {
	words := strings.FieldsFunc(normalized, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', ',', '.', ';', ':', '!', '?', '(', ')', '"', '\'':
			return true
		}
		return false
	})
	for _, w := range words {
		for _, kw := range keywords {
			if w == kw {
				return true
			}
		}
	}
	return false
}

/* ------------------------------- LLM routing ------------------------------ */

type llmRouteOutput struct {
	Domain     string  `json:"domain"`
	Confidence float64 `json:"confidence"`
}

// Router classifies inbound text. With a chat client it asks the model for a
// structured {domain, confidence} verdict and falls back to RuleDomain on any
// schema violation or call failure; without one it is purely rule-based.
// Routing never fails a turn.
type Router struct {
	chat          contractx.ChatClient
	systemPrompt  string
	minConfidence float64
}

type Option func(*Router)

func WithMinConfidence(min float64) Option {
	return func(r *Router) {
		if min > 0 {
			r.minConfidence = min
		}
	}
}

func New(chat contractx.ChatClient, systemPrompt string, opts ...Option) *Router {
	r := &Router{
		chat:          chat,
		systemPrompt:  strings.TrimSpace(systemPrompt),
		minConfidence: 0.5,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Router) Route(ctx context.Context, text string) contractx.Domain {
	if r == nil || r.chat == nil || r.systemPrompt == "" {
		return RuleDomain(text)
	}

	domain, err := r.routeLLM(ctx, text)
	if err != nil {
		log.Warn().Err(err).Msg("llm routing failed, using rule router")
		return RuleDomain(text)
	}
	return domain
}

func (r *Router) routeLLM(ctx context.Context, text string) (contractx.Domain, error) {
	raw, err := r.chat.Complete(ctx, r.systemPrompt, text)
	if err != nil {
		return "", fmt.Errorf("%w: router completion: %v", contractx.ErrModelInvoke, err)
	}

	var out llmRouteOutput
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return "", fmt.Errorf("%w: router output: %v", contractx.ErrSchemaViolation, err)
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return "", fmt.Errorf("%w: confidence=%v out of range", contractx.ErrSchemaViolation, out.Confidence)
	}

	domain := contractx.Domain(strings.ToLower(strings.TrimSpace(out.Domain)))
	if !contractx.KnownDomain(domain) && domain != contractx.DomainUnknown {
		return "", fmt.Errorf("%w: domain=%q", contractx.ErrSchemaViolation, out.Domain)
	}
	if out.Confidence < r.minConfidence {
		return RuleDomain(text), nil
	}
	return domain, nil
}
