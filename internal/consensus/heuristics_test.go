package consensus

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestHasCompletionMarker(t *testing.T) {
	require.True(t, HasCompletionMarker("the answer\nANSWER_COMPLETE"))
	require.True(t, HasCompletionMarker("ANSWER_COMPLETE"))
	require.False(t, HasCompletionMarker("the answer"))
	// Whole word only: embedded occurrences do not count.
	require.False(t, HasCompletionMarker("XANSWER_COMPLETEX"))
}

func TestEnsureCompletionMarker(t *testing.T) {
	require.Equal(t, "done ANSWER_COMPLETE", EnsureCompletionMarker("done"))
	require.Equal(t, "done ANSWER_COMPLETE", EnsureCompletionMarker("done ANSWER_COMPLETE"))
	require.Equal(t, CompletionMarker, EnsureCompletionMarker(""))
}

func TestStripCompletionMarker(t *testing.T) {
	require.Equal(t, "the answer", StripCompletionMarker("the answer\nANSWER_COMPLETE"))
	require.Equal(t, "the answer", StripCompletionMarker("the answer  ANSWER_COMPLETE  "))
	require.Equal(t, "untouched", StripCompletionMarker("untouched"))
	// Only a trailing marker is stripped.
	require.Equal(t, "ANSWER_COMPLETE is the token", StripCompletionMarker("ANSWER_COMPLETE is the token"))
}

func TestClampForReview(t *testing.T) {
	short := "short answer"
	require.Equal(t, short, ClampForReview(short))

	long := strings.Repeat("x", maxReviewChars+100)
	clamped := ClampForReview(long)
	require.Len(t, clamped, maxReviewChars+len(reviewTruncationNote))
	require.True(t, strings.HasSuffix(clamped, reviewTruncationNote))
}

func TestClampForReviewKeepsRunesIntact(t *testing.T) {
	// The ASCII prefix misaligns the three-byte runes against the byte
	// budget, so the cut lands mid-rune unless it backs off to a boundary.
	long := "x" + strings.Repeat("世", maxReviewChars/3+50)
	clamped := ClampForReview(long)
	require.True(t, utf8.ValidString(clamped))
	require.LessOrEqual(t, len(clamped), maxReviewChars+len(reviewTruncationNote))
}

func TestLooksTruncated(t *testing.T) {
	cases := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", true},
		{"whitespace only", "   \n\t ", true},
		{"trailing colon", "Plan: ", true},
		{"dangling connector", "We need to use it and", true},
		{"literal ellipsis", "Steps: 1) do X 2) do Y...", true},
		{"ellipsis rune", "and then…", true},
		{"trailing hyphen", "the result is -", true},
		{"trailing bullet", "items:\n•", true},
		{"lone trailing letter", "the process stops at s", true},
		{"todo suffix", "remaining work: TODO", true},
		{"next steps suffix", "Next steps", true},
		{"complete sentence", "...and the process concludes here.", false},
		{"plain statement", "The answer is 42.", false},
		{"connector inside word", "The plan is sound.", false},
		{"word ending in marker text", "We chose to discontinue", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, LooksTruncated(tc.text))
		})
	}
}

func TestTokenBudgetForQuery(t *testing.T) {
	require.Equal(t, budgetSmallTokens, TokenBudgetForQuery("short"))
	require.Equal(t, budgetSmallTokens, TokenBudgetForQuery(strings.Repeat("q", budgetTierSmallChars)))
	require.Equal(t, budgetMediumTokens, TokenBudgetForQuery(strings.Repeat("q", budgetTierSmallChars+1)))
	require.Equal(t, budgetLargeTokens, TokenBudgetForQuery(strings.Repeat("q", budgetTierMediumChars+1)))
	require.Equal(t, budgetMaxTokens, TokenBudgetForQuery(strings.Repeat("q", budgetTierLargeChars+1)))
}
