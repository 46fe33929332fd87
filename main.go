package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/quillon/intake-orchestrator/agent/agents/orchestrator"
	contractx "github.com/quillon/intake-orchestrator/agent/contract"
	"github.com/quillon/intake-orchestrator/agent/jobs"
	memoryx "github.com/quillon/intake-orchestrator/agent/memory"
	nlgx "github.com/quillon/intake-orchestrator/agent/nlg"
	plannerx "github.com/quillon/intake-orchestrator/agent/planner"
	promptx "github.com/quillon/intake-orchestrator/agent/prompt"
	routerx "github.com/quillon/intake-orchestrator/agent/router"
	statex "github.com/quillon/intake-orchestrator/agent/state"
	toolingx "github.com/quillon/intake-orchestrator/agent/tooling"
	"github.com/quillon/intake-orchestrator/pkg/callback"
	configx "github.com/quillon/intake-orchestrator/pkg/config"
	llmx "github.com/quillon/intake-orchestrator/pkg/llm"
	_ "github.com/quillon/intake-orchestrator/pkg/logger/autoload"
	postgresx "github.com/quillon/intake-orchestrator/pkg/postgres"
)

type AppConfig struct {
	ProjectID  string `envconfig:"PROJECT_ID" split_words:"true" default:"default-project"`
	CustomerID string `envconfig:"CUSTOMER_ID" split_words:"true"`

	Limits statex.Limits
}

func main() {
	ctx := context.Background()
	appCfg := configx.MustNew[AppConfig]("APP")

	stateStore, memoryStore, vectorStore := buildStores(ctx)

	var chat contractx.ChatClient
	var embed contractx.EmbeddingsProvider
	if llmCfg, err := configx.New[llmx.Config]("LLM"); err == nil {
		client, err := llmx.NewClient(*llmCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("llm client init failed")
		}
		chat = client
		embed = client
	} else {
		log.Warn().Msg("LLM not configured, running rule-based with deterministic fallbacks")
	}

	prompts := promptx.LoadPromptSet()

	planners := map[contractx.Domain]contractx.Planner{}
	if chat != nil {
		for domain, systemPrompt := range map[contractx.Domain]string{
			contractx.DomainBookings:  prompts.Bookings,
			contractx.DomainPurchases: prompts.Purchases,
			contractx.DomainClaims:    prompts.Claims,
		} {
			p, err := plannerx.New(domain, chat, systemPrompt)
			if err != nil {
				log.Fatal().Err(err).Str("domain", string(domain)).Msg("planner init failed")
			}
			planners[domain] = p
		}
	}

	executor := toolingx.NewExecutor(toolingx.Adapters{
		Bookings:  toolingx.NewDemoBookingsAdapter(),
		Purchases: toolingx.NewDemoPurchasesAdapter(),
		Claims:    toolingx.NewDemoClaimsAdapter(),
	})

	var guard *nlgx.Guard
	if chat != nil {
		guard = nlgx.NewGuard(nlgx.NewChatRewriter(chat, prompts.Rewriter), true)
	}

	var recaller *memoryx.Recaller
	if embed != nil {
		recaller = memoryx.NewRecaller(embed, vectorStore, appCfg.ProjectID)
	}

	o, err := orchestrator.New(
		stateStore,
		memoryStore,
		routerx.New(chat, prompts.Router),
		planners,
		executor,
		guard,
		recaller,
		orchestrator.Config{ProjectID: appCfg.ProjectID, Limits: appCfg.Limits},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("orchestrator init failed")
	}

	runnerOpts := []jobs.Option{}
	if cbCfg, err := configx.New[callback.Config]("CALLBACK"); err == nil && cbCfg.URL != "" {
		runnerOpts = append(runnerOpts, jobs.WithPublisher(callback.MustNew(*cbCfg)))
	}
	runner, err := jobs.New(o, runnerOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("job runner init failed")
	}
	defer runner.Wait()

	repl(ctx, o, appCfg.CustomerID)
}

func buildStores(ctx context.Context) (statex.Store, memoryx.Store, memoryx.VectorStore) {
	pgCfg, err := configx.New[postgresx.Config]("POSTGRES")
	if err != nil || pgCfg.DSN == "" {
		log.Info().Msg("postgres not configured, using in-memory stores")
		return statex.NewInMemoryStore(),
			memoryx.NewInMemoryStore(memoryx.DefaultTTLPolicy()),
			memoryx.NewInMemoryVectorStore()
	}

	db, err := postgresx.Open(ctx, *pgCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connect failed")
	}

	stateStore, err := statex.NewPostgresStore(db)
	if err != nil {
		log.Fatal().Err(err).Msg("state store init failed")
	}
	memoryStore, err := memoryx.NewPostgresStore(db, memoryx.DefaultTTLPolicy())
	if err != nil {
		log.Fatal().Err(err).Msg("memory store init failed")
	}
	vectorStore, err := memoryx.NewPostgresVectorStore(db)
	if err != nil {
		log.Fatal().Err(err).Msg("vector store init failed")
	}

	for _, migrate := range []func(context.Context) error{
		stateStore.Migrate, memoryStore.Migrate, vectorStore.Migrate,
	} {
		if err := migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
	}

	return stateStore, memoryStore, vectorStore
}

func repl(ctx context.Context, o *orchestrator.Orchestrator, customerID string) {
	fmt.Println("intake orchestrator ready. Type a message, or \"exit\" to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	conversationID := "local-session"
	turn := 0

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "exit" || text == "quit" {
			return
		}

		turn++
		res, err := o.RunTurn(ctx, contractx.TurnRequest{
			ConversationID: conversationID,
			Text:           text,
			EventID:        fmt.Sprintf("local-%d", turn),
			CustomerID:     customerID,
		})
		if err != nil {
			log.Error().Err(err).Msg("turn failed")
			continue
		}
		fmt.Println(res.ResponseText)
	}
}
