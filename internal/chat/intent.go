package chat

import (
	"context"
	"strings"
)

// Intent is a recognized chat action.
type Intent string

const (
	IntentFilings    Intent = "filings"
	IntentCompare    Intent = "compare"
	IntentFinancials Intent = "financials"
	IntentProfile    Intent = "profile"
	IntentUnknown    Intent = "unknown"
)

// IntentClassifier maps a user message to an intent.
type IntentClassifier interface {
	Classify(ctx context.Context, message string) (Intent, error)
}

// intentRule binds an intent to its trigger keywords. Rule order decides
// ties: a message matching several rules gets the first one.
type intentRule struct {
	intent   Intent
	keywords []string
}

var keywordRules = []intentRule{
	{IntentFilings, []string{"filing", "filings", "annual report", "årsrapport", "regnskaber", "documents"}},
	{IntentCompare, []string{"compare", "comparison", "change", "growth", "vs", "versus", "udvikling", "year over year"}},
	{IntentFinancials, []string{"revenue", "ebit", "profit", "net income", "equity", "assets", "cash", "financial", "omsætning", "resultat", "nøgletal"}},
	{IntentProfile, []string{"who", "about", "profile", "address", "status", "industry", "company", "hvem"}},
}

// KeywordClassifier resolves intents by ordered keyword matching. It never
// fails; a message matching nothing is a profile request, the cheapest and
// least surprising default.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(_ context.Context, message string) (Intent, error) {
	msg := strings.ToLower(message)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(msg, kw) {
				return rule.intent, nil
			}
		}
	}
	return IntentProfile, nil
}
