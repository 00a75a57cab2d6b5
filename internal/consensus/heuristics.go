package consensus

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CompletionMarker is the token agents are instructed to end every solve or
// revision response with. Its presence signals a deliberate finish; its
// absence signals the response likely hit a length limit.
const CompletionMarker = "ANSWER_COMPLETE"

// maxReviewChars bounds how much of an answer is embedded into the other
// agent's review or revision prompt, regardless of input size.
const maxReviewChars = 12_000

const reviewTruncationNote = "\n[... truncated for review ...]"

var (
	completionMarkerWordPattern  = regexp.MustCompile(`\b` + CompletionMarker + `\b`)
	completionMarkerTrailPattern = regexp.MustCompile(`\s*` + CompletionMarker + `\s*$`)
)

// HasCompletionMarker reports whether text contains the completion marker as
// a whole word.
func HasCompletionMarker(text string) bool {
	return completionMarkerWordPattern.MatchString(text)
}

// EnsureCompletionMarker appends the marker when missing. Used to restore the
// token after a provider consumes it as a stop sequence; the answer stays
// usable and truncation risk is tracked separately.
func EnsureCompletionMarker(text string) string {
	if HasCompletionMarker(text) {
		return text
	}
	if text == "" {
		return CompletionMarker
	}
	return strings.TrimRight(text, " \t") + " " + CompletionMarker
}

// StripCompletionMarker removes a trailing completion marker and any
// whitespace around it. Downstream analysis and storage always operate on the
// stripped text.
func StripCompletionMarker(text string) string {
	return completionMarkerTrailPattern.ReplaceAllString(text, "")
}

// ClampForReview truncates text to the review character budget, appending a
// visible note so the reviewer knows it saw a prefix.
func ClampForReview(text string) string {
	if len(text) <= maxReviewChars {
		return text
	}
	return truncateOnRuneBoundary(text, maxReviewChars) + reviewTruncationNote
}

// truncateOnRuneBoundary cuts text at max bytes, backing off so a multibyte
// rune is never split.
func truncateOnRuneBoundary(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// danglingConnectors are words that essentially never end a finished answer.
var danglingConnectors = map[string]struct{}{
	"and": {}, "or": {}, "but": {}, "nor": {}, "so": {}, "yet": {},
	"with": {}, "because": {}, "although": {}, "while": {}, "whereas": {},
	"if": {}, "when": {}, "then": {}, "than": {}, "that": {}, "which": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "being": {},
	"via": {}, "to": {}, "of": {}, "the": {}, "a": {}, "an": {},
	"for": {}, "in": {}, "on": {}, "at": {}, "by": {}, "as": {},
	"into": {}, "onto": {}, "from": {}, "per": {},
}

// unfinishedMarkers are trailing phrases that indicate an answer stopped at a
// placeholder rather than a conclusion.
var unfinishedMarkers = []string{
	"todo",
	"next steps",
	"to be continued",
	"continue",
	"consider adding",
}

// LooksTruncated reports whether text appears cut off. The heuristic is
// deliberately conservative and tolerates false positives: it is a second,
// independent signal alongside the reviewer's own completeness judgment,
// which can be fooled by superficially well-formed but cut-off text.
// Callers must pass marker-stripped text.
func LooksTruncated(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}

	lower := strings.ToLower(trimmed)
	for _, marker := range unfinishedMarkers {
		if !strings.HasSuffix(lower, marker) {
			continue
		}
		rest := lower[:len(lower)-len(marker)]
		if rest == "" {
			return true
		}
		if r, _ := utf8.DecodeLastRuneInString(rest); !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return true
		}
	}

	if strings.HasSuffix(trimmed, "...") {
		return true
	}
	switch lastRune, _ := utf8.DecodeLastRuneInString(trimmed); lastRune {
	case ':', '-', '•', '…':
		return true
	}

	fields := strings.Fields(lower)
	lastWord := fields[len(fields)-1]

	// A lone letter after whitespace is a dropped mid-word cut.
	if len(fields) >= 2 && utf8.RuneCountInString(lastWord) == 1 {
		if r, _ := utf8.DecodeRuneInString(lastWord); unicode.IsLetter(r) {
			return true
		}
	}

	if _, ok := danglingConnectors[lastWord]; ok {
		return true
	}

	return false
}
