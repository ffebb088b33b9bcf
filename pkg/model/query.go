package model

// EvidenceSource identifies which seeker produced an evidence item.
type EvidenceSource string

const (
	SourceFactSeeker    EvidenceSource = "Fact_Seeker"
	SourceContextSeeker EvidenceSource = "Context_Seeker"
)

// Evidence is the normalized view of a retrieved message handed to the
// synthesizer and the recommendation engine. Context is only populated for
// fact-seeker items, which wrap a computed sentence instead of a stored row.
type Evidence struct {
	UserName  string         `json:"user_name,omitempty"`
	Message   string         `json:"message,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
	RowID     int64          `json:"row_id"`
	Source    EvidenceSource `json:"source"`
	Context   string         `json:"context,omitempty"`
}

// FactAnswer is the result of a successful fact-seeker skill.
type FactAnswer struct {
	Fact    string `json:"fact"`
	Answer  string `json:"answer"`
	Context string `json:"context"`
}

// StructuredData carries the machine-readable part of a recommendation.
type StructuredData struct {
	Type          string `json:"type"`
	Value         string `json:"value"`
	SourceMessage string `json:"source_message"`
}

// Recommendation is a proactive follow-up action. At most one is produced
// per query.
type Recommendation struct {
	ActionID       string         `json:"action_id"`
	SuggestionText string         `json:"suggestion_text"`
	StructuredData StructuredData `json:"structured_data"`
}

// QueryResult is the unit of output for one query. It is always complete
// and schema-valid, even on degraded paths.
type QueryResult struct {
	Answer                  string          `json:"answer"`
	Evidence                []Evidence      `json:"evidence"`
	ProactiveRecommendation *Recommendation `json:"proactive_recommendation"`
	ReasoningTrace          []string        `json:"reasoning_trace"`
}

// Intent classifies what a query is asking for. It drives which
// recommendation rules are allowed to fire.
type Intent string

const (
	IntentPreference Intent = "preference"
	IntentTravel     Intent = "travel"
	IntentGeneric    Intent = "generic"
)
