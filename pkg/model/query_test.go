package model_test

import (
	"encoding/json"
	"testing"

	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestEvidenceJSONKeepsRowZero(t *testing.T) {
	item := model.Evidence{
		UserName:  "Lily",
		Message:   "I like lilies and roses",
		Timestamp: "2024-01-01T10:00:00",
		RowID:     0,
		Source:    model.SourceContextSeeker,
	}

	data, err := json.Marshal(item)
	gt.NoError(t, err)

	// Row 0 is a valid row; its ID must survive serialization
	var fields map[string]any
	gt.NoError(t, json.Unmarshal(data, &fields))
	gt.Equal(t, fields["row_id"], float64(0))
	gt.Equal(t, fields["source"], "Context_Seeker")

	var decoded model.Evidence
	gt.NoError(t, json.Unmarshal(data, &decoded))
	gt.Equal(t, decoded, item)
}

func TestEvidenceJSONFactItem(t *testing.T) {
	item := model.Evidence{
		Source:  model.SourceFactSeeker,
		Context: "Lily is the most active user with 10 messages.",
	}

	data, err := json.Marshal(item)
	gt.NoError(t, err)

	var fields map[string]any
	gt.NoError(t, json.Unmarshal(data, &fields))
	gt.Equal(t, fields["context"], "Lily is the most active user with 10 messages.")

	// Fact items carry no stored row; the row-less fields stay omitted
	_, hasUserName := fields["user_name"]
	gt.False(t, hasUserName)
	_, hasMessage := fields["message"]
	gt.False(t, hasMessage)
}
