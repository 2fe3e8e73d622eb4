package models

import (
	"encoding/json"

	"github.com/bestcars/dealership-engine/pkg/jsonutil"
)

// SentimentUnknown is reported when the sentiment service gives no answer.
const SentimentUnknown = "unknown"

// Review is a review document owned by the dealer backend. Fields are kept
// as raw JSON so everything the backend sends is passed through untouched.
type Review map[string]json.RawMessage

// Text returns the review body, or "" when the document has none.
func (r Review) Text() string {
	return jsonutil.FlexibleStringValue(r["review"])
}

// SetSentiment attaches a sentiment label to the review.
func (r Review) SetSentiment(label string) {
	// Marshaling a string cannot fail.
	raw, _ := json.Marshal(label)
	r["sentiment"] = raw
}
