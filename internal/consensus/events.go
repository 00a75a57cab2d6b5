package consensus

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// EventType tags one progress event on the session stream.
type EventType string

const (
	EventStatus    EventType = "status"
	EventIteration EventType = "iteration"
	EventStep      EventType = "step"
	EventAnswer    EventType = "answer"
	EventReview    EventType = "review"
	EventConsensus EventType = "consensus"
	EventFallback  EventType = "fallback"
	EventError     EventType = "error"
)

// Event is one entry on a session's progress stream. Events are the only way
// results reach the caller; fields are populated per type and omitted
// otherwise. Within a round the emission order is fixed: iteration, step and
// answer for each agent, review in each direction, then consensus or a
// revising status.
type Event struct {
	Type      EventType `json:"type"`
	Iteration int       `json:"iteration,omitempty"`
	Agent     AgentID   `json:"agent,omitempty"`
	Reviewer  AgentID   `json:"reviewer,omitempty"`
	Message   string    `json:"message,omitempty"`
	Answer    string    `json:"answer,omitempty"`
	Review    *Review   `json:"review,omitempty"`
	// Similarity is the character-level similarity of the two current
	// answers, attached to review events for divergence telemetry.
	Similarity float64 `json:"similarity,omitempty"`
	Truncated  bool    `json:"truncated,omitempty"`
	CallCount  int     `json:"call_count,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Sink receives session progress events. Implementations must tolerate being
// called from the session goroutine; the engine never calls Emit concurrently
// for one session.
type Sink interface {
	Emit(event Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(event Event)

func (f SinkFunc) Emit(event Event) { f(event) }

// nopSink swallows events for callers that only want the terminal result.
type nopSink struct{}

func (nopSink) Emit(Event) {}

// NopSink returns a sink that discards every event.
func NopSink() Sink { return nopSink{} }

// SimilarityRatio reports how close two texts are in [0,1], 1 meaning
// identical. Computed from the Levenshtein distance of a character diff;
// purely informational.
func SimilarityRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	distance := dmp.DiffLevenshtein(diffs)
	ratio := 1 - float64(distance)/float64(longest)
	if ratio < 0 {
		return 0
	}
	return ratio
}

// previewAnswer shortens answer text for event payloads so streams stay
// light; full answers travel only on terminal events.
func previewAnswer(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := strings.TrimRight(truncateOnRuneBoundary(text, max), " \t\n")
	return cut + "..."
}
