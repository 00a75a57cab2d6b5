package consensus

import (
	"math"
	"strconv"
	"strings"

	"accord/internal/jsonx"
)

// Decision is a reviewer's verdict on the other agent's answer.
type Decision string

const (
	DecisionAccept Decision = "ACCEPT"
	DecisionRevise Decision = "REVISE"
)

// maxReviewListItems caps the issues and suggestions lists.
const maxReviewListItems = 10

// Review is one agent's structured judgment of the other agent's answer.
type Review struct {
	Decision             Decision `json:"decision"`
	IsComplete           bool     `json:"is_complete"`
	HasUnsupportedClaims bool     `json:"has_unsupported_claims"`
	HasContradictions    bool     `json:"has_contradictions"`
	Issues               []string `json:"issues,omitempty"`
	Suggestions          []string `json:"suggestions,omitempty"`
	Confidence           float64  `json:"confidence"`
}

// PessimisticReview is the fixed substitute for an absent review: it can
// never satisfy the acceptance gate, so unparseable reviewer output cannot
// silently pass a round.
func PessimisticReview() Review {
	return Review{
		Decision:             DecisionRevise,
		IsComplete:           false,
		HasUnsupportedClaims: true,
		HasContradictions:    false,
		Issues:               []string{"review unavailable: reviewer output could not be parsed"},
		Confidence:           0.2,
	}
}

// rawReview mirrors the JSON shape agents are instructed to emit, loose
// enough to coerce sloppy values.
type rawReview struct {
	Decision             string   `json:"decision"`
	IsComplete           *bool    `json:"is_complete"`
	HasUnsupportedClaims *bool    `json:"has_unsupported_claims"`
	HasContradictions    *bool    `json:"has_contradictions"`
	Issues               []string `json:"issues"`
	Suggestions          []string `json:"suggestions"`
	Confidence           any      `json:"confidence"`
}

// ParseReview parses raw agent text strictly as a single JSON object. The
// second return is false when the text is not one JSON object or the decision
// field is not exactly ACCEPT or REVISE; callers substitute the pessimistic
// default in that case. Valid fields are coerced and clamped; missing fields
// default toward rejection, so completeness is only believed when stated
// explicitly.
func ParseReview(raw string) (Review, bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return Review{}, false
	}

	dec := jsonx.NewDecoder(strings.NewReader(trimmed))
	var payload rawReview
	if err := dec.Decode(&payload); err != nil {
		return Review{}, false
	}
	if dec.More() {
		return Review{}, false
	}

	decision := Decision(payload.Decision)
	if decision != DecisionAccept && decision != DecisionRevise {
		return Review{}, false
	}

	review := Review{
		Decision:             decision,
		IsComplete:           payload.IsComplete != nil && *payload.IsComplete,
		HasUnsupportedClaims: payload.HasUnsupportedClaims == nil || *payload.HasUnsupportedClaims,
		HasContradictions:    payload.HasContradictions == nil || *payload.HasContradictions,
		Issues:               clampList(payload.Issues),
		Suggestions:          clampList(payload.Suggestions),
		Confidence:           coerceConfidence(payload.Confidence),
	}
	return review, true
}

func clampList(items []string) []string {
	if len(items) > maxReviewListItems {
		return items[:maxReviewListItems]
	}
	return items
}

// coerceConfidence clamps to [0,1]; anything non-numeric or non-finite is
// neutral 0.5. NaN and the infinities must never escape: they would poison
// selector comparisons and are unrepresentable in the JSON event stream.
func coerceConfidence(value any) float64 {
	var confidence float64
	switch v := value.(type) {
	case float64:
		confidence = v
	case int:
		confidence = float64(v)
	case int64:
		confidence = float64(v)
	case jsonx.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0.5
		}
		confidence = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0.5
		}
		confidence = parsed
	default:
		return 0.5
	}

	if math.IsNaN(confidence) || math.IsInf(confidence, 0) {
		return 0.5
	}
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}
