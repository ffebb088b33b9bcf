package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/burrow/pkg/utils/logging"
)

// recommendRule is one row of the recommendation table. Rules are evaluated
// in declaration order against each evidence item; a rule only fires when
// its score strictly beats the running best, so a high-priority match is
// never displaced and the first item at a given score wins.
type recommendRule struct {
	name       string
	score      int
	actionID   string
	dataType   string
	entityType string
	keywords   []string
	intents    []model.Intent // nil means any query intent
	suggestion func(value string) string
}

var recommendRules = []recommendRule{
	{
		name:       "strong_preference",
		score:      2,
		actionID:   "save_preference",
		dataType:   "preference",
		entityType: "preference",
		keywords:   []string{"favorite", "lilies", "roses"},
		suggestion: func(value string) string {
			return fmt.Sprintf("I've noted a strong preference for '%s'. Would you like to save this to the member's profile?", value)
		},
	},
	{
		name:       "weak_preference",
		score:      1,
		actionID:   "save_preference",
		dataType:   "preference",
		entityType: "preference",
		keywords:   []string{"outstanding", "concierge"},
		intents:    []model.Intent{model.IntentPreference},
		suggestion: func(value string) string {
			return fmt.Sprintf("I noted a preference for '%s'. Would you like to save this to the member's profile?", value)
		},
	},
	{
		name:       "travel",
		score:      1,
		actionID:   "suggest_trip_itinerary",
		dataType:   "travel",
		entityType: "trip_subject",
		keywords:   []string{"trip", "flight", "planning", "distilleries", "journey"},
		intents:    []model.Intent{model.IntentTravel, model.IntentGeneric},
		suggestion: func(value string) string {
			return fmt.Sprintf("I see a message about a trip to '%s'. Would you like to start an itinerary?", value)
		},
	},
}

// ClassifyIntent tags what the query is after. Preference wins over travel
// when both kinds of keywords appear, mirroring the recommendation rules
// that preference matches dominate.
func ClassifyIntent(query string) model.Intent {
	lowered := strings.ToLower(query)

	if strings.Contains(lowered, "like") || strings.Contains(lowered, "favorite") {
		return model.IntentPreference
	}
	for _, kw := range []string{"trip", "flight", "planning", "journey"} {
		if strings.Contains(lowered, kw) {
			return model.IntentTravel
		}
	}
	return model.IntentGeneric
}

func (r *recommendRule) appliesTo(intent model.Intent) bool {
	if r.intents == nil {
		return true
	}
	for _, allowed := range r.intents {
		if allowed == intent {
			return true
		}
	}
	return false
}

func (r *recommendRule) matches(loweredMessage string) bool {
	for _, kw := range r.keywords {
		if strings.Contains(loweredMessage, kw) {
			return true
		}
	}
	return false
}

// Recommend scans the evidence in its given relevance order and selects at
// most one proactive action. Fact-seeker items never produce
// recommendations. The result depends only on the inputs and the entity
// extraction capability.
func (uc *UseCase) Recommend(ctx context.Context, query string, evidence []model.Evidence) *model.Recommendation {
	logger := logging.From(ctx)
	intent := ClassifyIntent(query)
	logger.Info("recommender scanning evidence", "intent", intent, "items", len(evidence))

	bestScore := 0
	var best *model.Recommendation

	for _, item := range evidence {
		if item.Source == model.SourceFactSeeker {
			continue
		}
		lowered := strings.ToLower(item.Message)

		for i := range recommendRules {
			rule := &recommendRules[i]
			if rule.score <= bestScore || !rule.appliesTo(intent) || !rule.matches(lowered) {
				continue
			}

			value := uc.extractEntity(ctx, item.Message, rule.entityType)
			bestScore = rule.score
			best = &model.Recommendation{
				ActionID:       rule.actionID,
				SuggestionText: rule.suggestion(value),
				StructuredData: model.StructuredData{
					Type:          rule.dataType,
					Value:         value,
					SourceMessage: item.Message,
				},
			}
			logger.Info("recommendation candidate", "rule", rule.name,
				"score", rule.score, "row_id", item.RowID)
		}
	}

	if best == nil {
		logger.Info("no recommendation found")
	}
	return best
}

const extractEntityPrompt = `You are an entity extractor. From the following text, extract the *specific* %s.
Be very concise. For example, if the text is "I like lilies and roses", the preference is "lilies and roses".
If the text is "Plan a trip to the distilleries", the trip_subject is "distilleries".

Text:
"%s"

Extracted %s:`

// extractEntity asks the language capability for a short entity phrase.
// Extraction never fails a recommendation: blocked output or an error falls
// back to the full message text, trading precision for availability.
func (uc *UseCase) extractEntity(ctx context.Context, message, entityType string) string {
	logger := logging.From(ctx)

	prompt := fmt.Sprintf(extractEntityPrompt, entityType, message, entityType)
	text, err := uc.gemini.GenerateText(ctx, prompt)
	if err != nil {
		logger.Error("entity extraction failed, using raw message", "error", err)
		return message
	}

	entity := strings.TrimSpace(strings.NewReplacer("\"", "", "\n", "").Replace(text))
	if entity == "" {
		logger.Warn("entity extraction returned no content, using raw message",
			"entity_type", entityType)
		return message
	}

	return entity
}
