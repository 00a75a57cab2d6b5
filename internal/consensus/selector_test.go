package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func answerOf(agent AgentID, text string) Answer {
	return NewAnswer(agent, text+" ANSWER_COMPLETE")
}

func reviewWithConfidence(c float64) *Review {
	return &Review{Decision: DecisionAccept, IsComplete: true, Confidence: c}
}

func TestPickBestHigherConfidenceWins(t *testing.T) {
	a := answerOf(AgentPrimary, "short.")
	b := answerOf(AgentSecondary, "a much longer answer that still loses on confidence.")

	picked := PickBest(a, b, reviewWithConfidence(0.9), reviewWithConfidence(0.4))
	require.Equal(t, AgentPrimary, picked.Agent)
}

func TestPickBestTieGoesToLongerAnswer(t *testing.T) {
	a := answerOf(AgentPrimary, "exactly10.")
	b := answerOf(AgentSecondary, "exactly twenty chars")

	picked := PickBest(a, b, reviewWithConfidence(0.5), reviewWithConfidence(0.5))
	require.Equal(t, AgentSecondary, picked.Agent)
}

func TestPickBestFullTieDefaultsToB(t *testing.T) {
	a := answerOf(AgentPrimary, "same size.")
	b := answerOf(AgentSecondary, "same size.")

	picked := PickBest(a, b, reviewWithConfidence(0.5), reviewWithConfidence(0.5))
	require.Equal(t, AgentSecondary, picked.Agent)
}

func TestPickBestAbsentReviewIsNeutral(t *testing.T) {
	a := answerOf(AgentPrimary, "answer a.")
	b := answerOf(AgentSecondary, "answer b.")

	// A's reviewer was unparseable; A's neutral 0.5 still beats B's 0.3.
	picked := PickBest(a, b, nil, reviewWithConfidence(0.3))
	require.Equal(t, AgentPrimary, picked.Agent)
}

func TestPickFallbackExactlyOneBad(t *testing.T) {
	good := answerOf(AgentPrimary, "a finished answer.")
	bad := NewAnswer(AgentSecondary, "this one was cut off because")
	require.True(t, bad.Truncated)

	// The bad side's reviewer even liked it more; the non-bad answer still
	// wins outright.
	picked := PickFallback(good, bad, reviewWithConfidence(0.2), reviewWithConfidence(0.9))
	require.Equal(t, AgentPrimary, picked.Agent)
}

func TestPickFallbackReviewFlagsMarkBad(t *testing.T) {
	a := answerOf(AgentPrimary, "an answer with invented citations.")
	b := answerOf(AgentSecondary, "a clean answer.")
	flagged := &Review{Decision: DecisionRevise, HasUnsupportedClaims: true, Confidence: 0.8}

	picked := PickFallback(a, b, flagged, reviewWithConfidence(0.1))
	require.Equal(t, AgentSecondary, picked.Agent)
}

func TestPickFallbackBothGoodDelegatesToPickBest(t *testing.T) {
	a := answerOf(AgentPrimary, "answer a.")
	b := answerOf(AgentSecondary, "answer b.")

	picked := PickFallback(a, b, reviewWithConfidence(0.9), reviewWithConfidence(0.4))
	require.Equal(t, AgentPrimary, picked.Agent)
}

func TestPickFallbackBothBadDelegatesToPickBest(t *testing.T) {
	a := NewAnswer(AgentPrimary, "cut off and")
	b := NewAnswer(AgentSecondary, "also cut off because")

	picked := PickFallback(a, b, reviewWithConfidence(0.3), reviewWithConfidence(0.7))
	require.Equal(t, AgentSecondary, picked.Agent)
}
