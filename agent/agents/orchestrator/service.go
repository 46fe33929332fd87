package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/quillon/intake-orchestrator/agent/contract"
	memoryx "github.com/quillon/intake-orchestrator/agent/memory"
	nlgx "github.com/quillon/intake-orchestrator/agent/nlg"
	turnnode "github.com/quillon/intake-orchestrator/agent/nodes"
	routerx "github.com/quillon/intake-orchestrator/agent/router"
	statex "github.com/quillon/intake-orchestrator/agent/state"
	toolingx "github.com/quillon/intake-orchestrator/agent/tooling"
)

var (
	ErrInvalidMessage      = turnnode.ErrInvalidMessage
	ErrInvalidConversation = turnnode.ErrInvalidConversation
)

type Config struct {
	ProjectID string
	Limits    statex.Limits
}

// Orchestrator owns one turn of the intake conversation: idempotency check,
// memory merge, routing, planning, tool execution, rewrite, persistence.
type Orchestrator struct {
	store    statex.Store
	memory   memoryx.Store
	recaller *memoryx.Recaller
	router   *routerx.Router
	planners map[contractx.Domain]contractx.Planner
	executor *toolingx.Executor
	guard    *nlgx.Guard

	graphRunner compose.Runnable[turnnode.GraphInput, turnnode.GraphOutput]

	projectID string
	limits    statex.Limits

	now func() time.Time
}

type Option func(*Orchestrator)

// WithClock fixes the orchestrator's clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func New(
	store statex.Store,
	memory memoryx.Store,
	router *routerx.Router,
	planners map[contractx.Domain]contractx.Planner,
	executor *toolingx.Executor,
	guard *nlgx.Guard,
	recaller *memoryx.Recaller,
	cfg Config,
	opts ...Option,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if memory == nil {
		return nil, errors.New("customer memory store is required")
	}
	if router == nil {
		return nil, errors.New("router is required")
	}
	if executor == nil {
		return nil, errors.New("tool executor is required")
	}
	if guard == nil {
		guard = nlgx.NewGuard(nil, true)
	}
	if planners == nil {
		planners = map[contractx.Domain]contractx.Planner{}
	}

	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		projectID = "default-project"
	}

	o := &Orchestrator{
		store:     store,
		memory:    memory,
		recaller:  recaller,
		router:    router,
		planners:  planners,
		executor:  executor,
		guard:     guard,
		projectID: projectID,
		limits:    cfg.Limits,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	graphRunner, err := o.compileRunTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// RunTurn processes one inbound message and returns the assistant reply.
// Replaying the same event id returns the prior reply without side effects.
func (o *Orchestrator) RunTurn(ctx context.Context, req contractx.TurnRequest) (contractx.TurnResult, error) {
	out, err := o.graphRunner.Invoke(ctx, turnnode.GraphInput{
		ConversationID: req.ConversationID,
		Text:           req.Text,
		EventID:        req.EventID,
		CustomerID:     req.CustomerID,
	})
	if err != nil {
		return contractx.TurnResult{}, err
	}
	return contractx.TurnResult{ConversationID: out.ConversationID, ResponseText: out.Reply}, nil
}
