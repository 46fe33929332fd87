package nlg

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/quillon/intake-orchestrator/agent/contract"
)

// Rewriter rewrites a draft reply for tone. Implementations may fail on
// transport errors; the guard recovers by keeping the draft.
type Rewriter interface {
	Rewrite(ctx context.Context, userText, draft string, domain contractx.Domain) (string, error)
}

// Domain identifier tokens: ORDER-200, TRK-9X81, CLM-77, BKG-12 and the like.
var identifierPattern = regexp.MustCompile(`\b[A-Z]{2,10}-[A-Z0-9]{1,12}\b`)

// Guard applies an optional tone rewrite under the identifier-preservation
// invariant: in strict mode a rewrite that drops or fabricates any identifier
// token is discarded and the draft is returned byte-for-byte.
type Guard struct {
	rewriter Rewriter
	strict   bool
}

func NewGuard(rewriter Rewriter, strict bool) *Guard {
	return &Guard{rewriter: rewriter, strict: strict}
}

func (g *Guard) MaybeRewrite(ctx context.Context, userText, draft string, domain contractx.Domain) string {
	if g == nil || g.rewriter == nil || strings.TrimSpace(draft) == "" {
		return draft
	}

	rewritten, err := g.rewriter.Rewrite(ctx, userText, draft, domain)
	if err != nil {
		log.Warn().Err(err).Str("domain", string(domain)).Msg("rewrite failed, keeping draft")
		return draft
	}
	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return draft
	}

	if g.strict && !sameIdentifiers(draft, rewritten) {
		log.Warn().Str("domain", string(domain)).Msg("rewrite changed identifier set, keeping draft")
		return draft
	}
	return rewritten
}

// IdentifierTokens extracts the set of identifier tokens present in text.
func IdentifierTokens(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, m := range identifierPattern.FindAllString(text, -1) {
		tokens[m] = struct{}{}
	}
	return tokens
}

func sameIdentifiers(a, b string) bool {
	ta, tb := IdentifierTokens(a), IdentifierTokens(b)
	if len(ta) != len(tb) {
		return false
	}
	for tok := range ta {
		if _, ok := tb[tok]; !ok {
			return false
		}
	}
	return true
}

/* ------------------------------ chat rewriter ----------------------------- */

// ChatRewriter rewrites drafts through the chat client.
type ChatRewriter struct {
	chat         contractx.ChatClient
	systemPrompt string
}

func NewChatRewriter(chat contractx.ChatClient, systemPrompt string) *ChatRewriter {
	return &ChatRewriter{chat: chat, systemPrompt: strings.TrimSpace(systemPrompt)}
}

func (r *ChatRewriter) Rewrite(ctx context.Context, userText, draft string, domain contractx.Domain) (string, error) {
	user := "Customer message:\n" + userText + "\n\nDraft reply:\n" + draft
	return r.chat.Complete(ctx, r.systemPrompt, user)
}
