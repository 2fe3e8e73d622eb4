package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReview_PreservesUnknownFields(t *testing.T) {
	raw := `{"id":7,"name":"Bob","review":"Solid","purchase":true,"car_year":2021,"extra":{"nested":[1,2]}}`

	var review Review
	require.NoError(t, json.Unmarshal([]byte(raw), &review))

	review.SetSentiment("positive")

	out, err := json.Marshal(review)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"id":7,"name":"Bob","review":"Solid","purchase":true,"car_year":2021,"extra":{"nested":[1,2]},"sentiment":"positive"}`,
		string(out))
}

func TestReview_Text(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string review", `{"review":"Great cars"}`, "Great cars"},
		{"missing review", `{"name":"Bob"}`, ""},
		{"null review", `{"review":null}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var review Review
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &review))
			assert.Equal(t, tt.want, review.Text())
		})
	}
}

func TestReview_SetSentimentOverwrites(t *testing.T) {
	review := Review{"sentiment": json.RawMessage(`"neutral"`)}

	review.SetSentiment(SentimentUnknown)

	assert.JSONEq(t, `"unknown"`, string(review["sentiment"]))
}
