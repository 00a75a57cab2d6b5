package consensus

// neutralConfidence stands in for an absent review so an unparseable review
// cannot disqualify an otherwise good answer.
const neutralConfidence = 0.5

// ReviewConfidence returns the reviewer-assigned confidence, neutral when the
// review is absent.
func ReviewConfidence(review *Review) float64 {
	if review == nil {
		return neutralConfidence
	}
	return review.Confidence
}

// PickBest selects between the two candidate answers using cross-review
// confidence: the confidence compared for each answer is what the OTHER
// agent's reviewer assigned to it. Exact confidence ties go to the longer
// answer; full ties default to answerB.
func PickBest(answerA, answerB Answer, reviewOfA, reviewOfB *Review) Answer {
	confidenceA := ReviewConfidence(reviewOfA)
	confidenceB := ReviewConfidence(reviewOfB)
	if confidenceA > confidenceB {
		return answerA
	}
	if confidenceB > confidenceA {
		return answerB
	}
	if len(answerA.Text) > len(answerB.Text) {
		return answerA
	}
	return answerB
}

// answerIsBad flags an answer for fallback purposes: it either looks
// truncated or its opposing reviewer reported unsupported claims or
// contradictions. An absent review contributes no flags here.
func answerIsBad(answer Answer, opposingReview *Review) bool {
	if answer.Truncated {
		return true
	}
	if opposingReview == nil {
		return false
	}
	return opposingReview.HasUnsupportedClaims || opposingReview.HasContradictions
}

// PickFallback chooses the best-effort answer after the round cap is
// exhausted. When exactly one answer is flagged bad the other wins outright;
// otherwise the normal selector decides.
func PickFallback(answerA, answerB Answer, reviewOfA, reviewOfB *Review) Answer {
	badA := answerIsBad(answerA, reviewOfA)
	badB := answerIsBad(answerB, reviewOfB)
	if badA != badB {
		if badA {
			return answerB
		}
		return answerA
	}
	return PickBest(answerA, answerB, reviewOfA, reviewOfB)
}
