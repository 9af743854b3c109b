// Package intent scores normalized tokens against fixed keyword tables to
// decide what a business question is asking about.
package intent

import (
	"strings"

	"github.com/sokoflow/soko-engine/pkg/nlp"
)

// Intent is the coarse category of information a question is asking about.
type Intent string

const (
	IntentSales     Intent = "sales"
	IntentProducts  Intent = "products"
	IntentCustomers Intent = "customers"
	IntentBranches  Intent = "branches"
	IntentUsers     Intent = "users"
	IntentAnalytics Intent = "analytics"
	IntentBusiness  Intent = "business"
	IntentGeneral   Intent = "general"
)

// QueryAnalysis is the classifier's output, created fresh per request and
// consumed exactly once by the planner.
type QueryAnalysis struct {
	Tokens        []string
	Entities      []nlp.Entity
	PrimaryIntent Intent
	IntentScores  map[Intent]int
	TimeContext   map[string]bool
	Aggregation   map[string]bool
}

// category pairs an intent with its keyword set. The slice below is ordered:
// on tied scores the first-declared category wins, and that ordering is part
// of the classification contract.
type category struct {
	intent   Intent
	keywords []string
}

var categories = []category{
	{IntentSales, []string{"sale", "sales", "revenue", "transaction", "purchase", "buy", "sold"}},
	{IntentProducts, []string{"product", "item", "inventory", "stock", "goods", "supply"}},
	{IntentCustomers, []string{"customer", "client", "buyer", "user", "person"}},
	{IntentBranches, []string{"branch", "location", "store", "office", "shop"}},
	{IntentUsers, []string{"user", "employee", "staff", "worker", "personnel"}},
	{IntentAnalytics, []string{"analytics", "analysis", "report", "summary", "trend", "performance"}},
	{IntentBusiness, []string{"business", "company", "tenant", "organization", "firm"}},
}

var timeKeywords = []string{"today", "yesterday", "week", "month", "year", "last", "recent", "current"}

var aggregationKeywords = []string{"total", "sum", "count", "average", "max", "min", "top", "best", "highest", "lowest"}

// Classify scores tokens against the category tables. Matching is by
// substring: a token counts once for a category if it contains any of the
// category's keywords. The primary intent is the strictly highest scorer;
// when every category scores zero it is IntentGeneral.
func Classify(tokens []string, entities []nlp.Entity) *QueryAnalysis {
	analysis := &QueryAnalysis{
		Tokens:        tokens,
		Entities:      entities,
		PrimaryIntent: IntentGeneral,
		IntentScores:  make(map[Intent]int, len(categories)),
		TimeContext:   make(map[string]bool),
		Aggregation:   make(map[string]bool),
	}

	for _, cat := range categories {
		score := 0
		for _, tok := range tokens {
			if containsAny(tok, cat.keywords) {
				score++
			}
		}
		analysis.IntentScores[cat.intent] = score
	}

	best := 0
	for _, cat := range categories {
		if analysis.IntentScores[cat.intent] > best {
			best = analysis.IntentScores[cat.intent]
			analysis.PrimaryIntent = cat.intent
		}
	}

	for _, tok := range tokens {
		for _, kw := range timeKeywords {
			if strings.Contains(tok, kw) {
				analysis.TimeContext[kw] = true
			}
		}
		for _, kw := range aggregationKeywords {
			if strings.Contains(tok, kw) {
				analysis.Aggregation[kw] = true
			}
		}
	}

	return analysis
}

// HasToken reports whether any token contains the given keyword.
func (a *QueryAnalysis) HasToken(keyword string) bool {
	for _, tok := range a.Tokens {
		if strings.Contains(tok, keyword) {
			return true
		}
	}
	return false
}

// HasSuperlative reports whether the question asks for a "top" style answer.
func (a *QueryAnalysis) HasSuperlative() bool {
	return a.HasToken("top") || a.HasToken("best") || a.HasToken("highest")
}

func containsAny(tok string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(tok, kw) {
			return true
		}
	}
	return false
}
