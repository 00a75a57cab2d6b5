package consensus

// Answer is one agent's candidate response for a round, normalized once at
// the transport boundary. Marker and truncation flags are computed from the
// stripped text, never from the raw output.
type Answer struct {
	Agent     AgentID
	Raw       string
	Text      string
	HasMarker bool
	Truncated bool
}

// NewAnswer normalizes raw agent output into an Answer. The caller passes the
// text after any stop-sequence restoration; stripping and the truncation
// heuristic both happen here so every consumer sees the same flags.
func NewAnswer(agent AgentID, raw string) Answer {
	stripped := StripCompletionMarker(raw)
	return Answer{
		Agent:     agent,
		Raw:       raw,
		Text:      stripped,
		HasMarker: HasCompletionMarker(raw),
		Truncated: LooksTruncated(stripped),
	}
}
