package chat

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/cvrgpt/pkg/anthropic"
)

const classifierSystemPrompt = `You classify one user message about Danish companies into exactly one action.
Reply with a single word from this list and nothing else:
filings
compare
financials
profile
If the message fits none of them, reply:
unknown`

// DefaultClassifierModel is the model used for intent classification when
// the configuration does not name one.
const DefaultClassifierModel = "claude-3-5-haiku-latest"

// LLMClassifier resolves intents with a constrained model call. The reply
// must be one of the known intents verbatim; anything else is Unknown, never
// a guess. Call failures also degrade to Unknown so chat stays available
// when the model API is not.
type LLMClassifier struct {
	client anthropic.Client
	model  string
}

func NewLLMClassifier(client anthropic.Client, model string) *LLMClassifier {
	if model == "" {
		model = DefaultClassifierModel
	}
	return &LLMClassifier{client: client, model: model}
}

func (c *LLMClassifier) Classify(ctx context.Context, message string) (Intent, error) {
	temp := 0.0
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   8,
		Temperature: &temp,
		System:      []anthropic.SystemBlock{{Text: classifierSystemPrompt}},
		Messages:    []anthropic.Message{{Role: "user", Content: message}},
	})
	if err != nil {
		zap.L().Warn("intent classification call failed", zap.Error(err))
		return IntentUnknown, nil
	}

	switch Intent(strings.ToLower(strings.TrimSpace(resp.Text()))) {
	case IntentFilings:
		return IntentFilings, nil
	case IntentCompare:
		return IntentCompare, nil
	case IntentFinancials:
		return IntentFinancials, nil
	case IntentProfile:
		return IntentProfile, nil
	default:
		return IntentUnknown, nil
	}
}
