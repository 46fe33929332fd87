package turnnode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/quillon/intake-orchestrator/agent/contract"
	statex "github.com/quillon/intake-orchestrator/agent/state"
)

var (
	ErrInvalidMessage      = errors.New("message is empty")
	ErrInvalidConversation = errors.New("conversation id is empty")
)

type GraphInput struct {
	ConversationID string
	Text           string
	EventID        string
	CustomerID     string
}

type GraphOutput struct {
	ConversationID string
	Reply          string
}

// GraphState is the working context threaded through one turn.
type GraphState struct {
	ConversationID string
	Text           string
	EventID        string
	CustomerID     string
	Now            time.Time

	State *statex.ConversationState

	// Duplicate marks an idempotency hit; the graph branches straight to the
	// cached reply and performs no further mutation.
	Duplicate bool

	Domain   contractx.Domain
	Explicit contractx.ExtractedIDs
	PlanCtx  contractx.PlanContext
	Plan     *contractx.PlannerOutput

	Reply string

	// Memory slots touched during this turn, upserted after persistence.
	ChangedSlots map[string]string
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	conversationID := strings.TrimSpace(in.ConversationID)
	if conversationID == "" {
		return nil, ErrInvalidConversation
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		ConversationID: conversationID,
		Text:           text,
		EventID:        strings.TrimSpace(in.EventID),
		CustomerID:     strings.TrimSpace(in.CustomerID),
		Now:            nowFn().UTC(),
		ChangedSlots:   make(map[string]string, 4),
	}, nil
}

func (g *GraphState) touchSlot(name, value string) {
	if value == "" {
		return
	}
	if g.ChangedSlots == nil {
		g.ChangedSlots = make(map[string]string, 4)
	}
	g.ChangedSlots[name] = value
}
