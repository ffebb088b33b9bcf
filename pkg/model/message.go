package model

// Message is one chat record in the store. RowID is assigned in fetch order
// starting at 0 and is the identity shared with the embedding index: the
// vector stored for RowID i was produced from this row's text.
type Message struct {
	RowID     int64  `json:"row_id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Text      string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// EmbeddingInput returns the text embedded for this message. The user name
// is prepended for context enrichment; the Context Seeker must embed query
// text through the same adapter so both sides share one vector space.
func (m *Message) EmbeddingInput() string {
	return m.UserName + ": " + m.Text
}
