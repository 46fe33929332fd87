package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/router.txt
	routerRaw string

	//go:embed template/bookings.txt
	bookingsRaw string

	//go:embed template/purchases.txt
	purchasesRaw string

	//go:embed template/claims.txt
	claimsRaw string

	//go:embed template/rewriter.txt
	rewriterRaw string
)

// PromptSet holds the system prompts for the router, the domain planners,
// and the reply rewriter.
type PromptSet struct {
	Router    string
	Bookings  string
	Purchases string
	Claims    string
	Rewriter  string
}

func LoadPromptSet() PromptSet {
	return PromptSet{
		Router:    strings.TrimSpace(routerRaw),
		Bookings:  strings.TrimSpace(bookingsRaw),
		Purchases: strings.TrimSpace(purchasesRaw),
		Claims:    strings.TrimSpace(claimsRaw),
		Rewriter:  strings.TrimSpace(rewriterRaw),
	}
}
