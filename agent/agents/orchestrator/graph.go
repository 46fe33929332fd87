package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/quillon/intake-orchestrator/agent/contract"
	turnnode "github.com/quillon/intake-orchestrator/agent/nodes"
)

func (o *Orchestrator) compileRunTurnGraph(
	ctx context.Context,
) (compose.Runnable[turnnode.GraphInput, turnnode.GraphOutput], error) {
	graph := compose.NewGraph[turnnode.GraphInput, turnnode.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in turnnode.GraphInput) (*turnnode.GraphState, error) {
			return turnnode.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_state",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.LoadState(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_state: %w", err)
	}

	if err := graph.AddLambdaNode("check_event",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.CheckEvent(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node check_event: %w", err)
	}

	if err := graph.AddLambdaNode("merge_memory",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.MergeMemory(ctx, in, o.memory, o.projectID)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node merge_memory: %w", err)
	}

	if err := graph.AddLambdaNode("append_user",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.AppendUser(ctx, in, o.limits)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node append_user: %w", err)
	}

	if err := graph.AddLambdaNode("resolve_domain",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.ResolveDomain(ctx, in, o.router)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node resolve_domain: %w", err)
	}

	if err := graph.AddLambdaNode("plan_turn",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.PlanTurn(ctx, in, o.planners)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node plan_turn: %w", err)
	}

	if err := graph.AddLambdaNode("execute_plan",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.ExecutePlan(ctx, in, o.executor)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node execute_plan: %w", err)
	}

	if err := graph.AddLambdaNode("rewrite_reply",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.RewriteReply(ctx, in, o.guard)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node rewrite_reply: %w", err)
	}

	if err := graph.AddLambdaNode("save_state",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.SaveState(ctx, in, o.store, o.limits)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node save_state: %w", err)
	}

	if err := graph.AddLambdaNode("write_memory",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.WriteMemory(ctx, in, o.memory, o.recaller, o.projectID)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node write_memory: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (turnnode.GraphOutput, error) {
			return turnnode.FinalizeReply(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	// Duplicate events skip straight to the cached reply; everything after
	// check_event would be a repeated side effect.
	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *turnnode.GraphState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: turn graph state is nil", contractx.ErrValidation)
			}
			if in.Duplicate {
				return "finalize_reply", nil
			}
			return "merge_memory", nil
		},
		map[string]bool{
			"merge_memory":   true,
			"finalize_reply": true,
		},
	)

	if err := graph.AddBranch("check_event", branch); err != nil {
		return nil, fmt.Errorf("add idempotency branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_state"},
		{"load_state", "check_event"},
		{"merge_memory", "append_user"},
		{"append_user", "resolve_domain"},
		{"resolve_domain", "plan_turn"},
		{"plan_turn", "execute_plan"},
		{"execute_plan", "rewrite_reply"},
		{"rewrite_reply", "save_state"},
		{"save_state", "write_memory"},
		{"write_memory", "finalize_reply"},
		{"finalize_reply", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.run_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	return runner, nil
}
