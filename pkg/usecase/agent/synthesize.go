package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/burrow/pkg/utils/logging"
)

const (
	// synthesizeBlockedAnswer is used when the model returns no usable
	// content for an otherwise successful call.
	synthesizeBlockedAnswer = "I found the context, but I am unable to formulate a response at this time."

	// synthesizeErrorAnswer is used when the generation call itself fails.
	synthesizeErrorAnswer = "I'm sorry, I encountered an error while formulating a response."
)

const synthesizePrompt = `You are a helpful assistant. Based *only* on the context I provide,
answer the user's question.

Context:
%s

Question:
%s

Answer:`

// Synthesize phrases a final answer from retrieved evidence. It always
// returns a usable answer string; generation failures degrade to fixed
// fallback phrasings instead of propagating.
func (uc *UseCase) Synthesize(ctx context.Context, query string, evidence []model.Evidence) string {
	logger := logging.From(ctx)

	lines := make([]string, 0, len(evidence))
	for _, item := range evidence {
		if item.Message == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("- (From %s) %s: %s", item.Timestamp, item.UserName, item.Message))
	}

	prompt := fmt.Sprintf(synthesizePrompt, strings.Join(lines, "\n"), query)

	answer, err := uc.gemini.GenerateText(ctx, prompt)
	if err != nil {
		logger.Error("answer synthesis failed", "error", err)
		return synthesizeErrorAnswer
	}
	if strings.TrimSpace(answer) == "" {
		logger.Warn("answer synthesis returned no content")
		return synthesizeBlockedAnswer
	}

	return answer
}
