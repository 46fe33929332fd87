package nlg

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/quillon/intake-orchestrator/agent/contract"
)

type fakeRewriter struct {
	reply string
	err   error
	calls int
}

func (f *fakeRewriter) Rewrite(ctx context.Context, userText, draft string, domain contractx.Domain) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

const draft = "Order ORDER-200 is shipped. Its tracking code is TRK-9X81."

func TestMaybeRewriteNoRewriterReturnsDraft(t *testing.T) {
	t.Parallel()

	g := NewGuard(nil, true)
	if got := g.MaybeRewrite(context.Background(), "hi", draft, contractx.DomainPurchases); got != draft {
		t.Fatalf("MaybeRewrite() = %q, want draft unchanged", got)
	}
}

func TestMaybeRewriteAcceptsIdentifierPreservingRewrite(t *testing.T) {
	t.Parallel()

	rw := &fakeRewriter{reply: "Great news! ORDER-200 already shipped, track it with TRK-9X81 anytime."}
	g := NewGuard(rw, true)
	got := g.MaybeRewrite(context.Background(), "hi", draft, contractx.DomainPurchases)
	if got != rw.reply {
		t.Fatalf("MaybeRewrite() = %q, want rewrite accepted", got)
	}
	if rw.calls != 1 {
		t.Fatalf("rewriter calls = %d, want 1", rw.calls)
	}
}

func TestMaybeRewriteRejectsDroppedIdentifier(t *testing.T) {
	t.Parallel()

	rw := &fakeRewriter{reply: "Great news! Your order already shipped and is on its way."}
	g := NewGuard(rw, true)
	if got := g.MaybeRewrite(context.Background(), "hi", draft, contractx.DomainPurchases); got != draft {
		t.Fatalf("MaybeRewrite() = %q, want byte-for-byte draft", got)
	}
}

func TestMaybeRewriteRejectsFabricatedIdentifier(t *testing.T) {
	t.Parallel()

	rw := &fakeRewriter{reply: "ORDER-200 shipped with TRK-9X81, see also ORDER-999."}
	g := NewGuard(rw, true)
	if got := g.MaybeRewrite(context.Background(), "hi", draft, contractx.DomainPurchases); got != draft {
		t.Fatalf("MaybeRewrite() = %q, want byte-for-byte draft", got)
	}
}

func TestMaybeRewriteNonStrictKeepsRewrite(t *testing.T) {
	t.Parallel()

	rw := &fakeRewriter{reply: "All good, your order shipped!"}
	g := NewGuard(rw, false)
	if got := g.MaybeRewrite(context.Background(), "hi", draft, contractx.DomainPurchases); got != rw.reply {
		t.Fatalf("MaybeRewrite() = %q, want rewrite", got)
	}
}

func TestMaybeRewriteRewriterFailureKeepsDraft(t *testing.T) {
	t.Parallel()

	g := NewGuard(&fakeRewriter{err: errors.New("model down")}, true)
	if got := g.MaybeRewrite(context.Background(), "hi", draft, contractx.DomainPurchases); got != draft {
		t.Fatalf("MaybeRewrite() = %q, want draft", got)
	}
}

func TestIdentifierTokens(t *testing.T) {
	t.Parallel()

	tokens := IdentifierTokens("ORDER-200 then TRK-9X81 and ORDER-200 again")
	if len(tokens) != 2 {
		t.Fatalf("len(tokens) = %d, want 2: %#v", len(tokens), tokens)
	}
	for _, want := range []string{"ORDER-200", "TRK-9X81"} {
		if _, ok := tokens[want]; !ok {
			t.Fatalf("missing token %s", want)
		}
	}
}
