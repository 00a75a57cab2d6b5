package consensus

// Accept is the per-agent acceptance check. All conditions are mandatory:
// the review must be present, the reviewer must accept, judge the answer
// complete, and flag neither unsupported claims nor contradictions, the raw
// answer must carry the completion marker, and the stripped text must not
// look truncated. Consensus requires Accept to pass in both directions in
// the same round.
func Accept(review *Review, answer Answer) bool {
	if review == nil {
		return false
	}
	if review.Decision != DecisionAccept {
		return false
	}
	if !review.IsComplete {
		return false
	}
	if review.HasUnsupportedClaims || review.HasContradictions {
		return false
	}
	if !answer.HasMarker {
		return false
	}
	if answer.Truncated {
		return false
	}
	return true
}
