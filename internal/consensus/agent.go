package consensus

import (
	accorderrors "accord/internal/errors"
)

// AgentID names one of the two symmetric solver/reviewer roles.
type AgentID string

const (
	// AgentPrimary is the first solver identity.
	AgentPrimary AgentID = "gpt"
	// AgentSecondary is the second solver identity.
	AgentSecondary AgentID = "claude"
)

// Other returns the counterpart agent.
func (a AgentID) Other() AgentID {
	if a == AgentPrimary {
		return AgentSecondary
	}
	return AgentPrimary
}

// AgentConfig carries the per-agent knobs. The two agents are symmetric in
// protocol but may differ in temperature, retry ceiling, and how many calls
// they tolerate in flight.
type AgentConfig struct {
	ID            AgentID
	Temperature   float64
	MaxConcurrent int64
	Retry         accorderrors.RetryConfig
}

// DefaultAgentConfigs returns the stock configuration for both agents. The
// secondary agent historically hits rate limits sooner, so it gets the
// stricter concurrency cap.
func DefaultAgentConfigs() map[AgentID]AgentConfig {
	return map[AgentID]AgentConfig{
		AgentPrimary: {
			ID:            AgentPrimary,
			Temperature:   0.3,
			MaxConcurrent: 4,
			Retry:         accorderrors.DefaultRetryConfig(),
		},
		AgentSecondary: {
			ID:            AgentSecondary,
			Temperature:   0.2,
			MaxConcurrent: 2,
			Retry:         accorderrors.DefaultRetryConfig(),
		},
	}
}

// Token budget step function: shorter queries get smaller answer budgets.
const (
	budgetTierSmallChars  = 1_500
	budgetTierMediumChars = 6_000
	budgetTierLargeChars  = 20_000

	budgetSmallTokens  = 2_048
	budgetMediumTokens = 4_096
	budgetLargeTokens  = 8_192
	budgetMaxTokens    = 16_384

	// reviewTokenBudget bounds review calls; the expected output is a small
	// JSON object, never a full answer.
	reviewTokenBudget = 1_024
)

// TokenBudgetForQuery sizes the solve/revision output budget from the query
// length.
func TokenBudgetForQuery(query string) int {
	switch n := len(query); {
	case n <= budgetTierSmallChars:
		return budgetSmallTokens
	case n <= budgetTierMediumChars:
		return budgetMediumTokens
	case n <= budgetTierLargeChars:
		return budgetLargeTokens
	default:
		return budgetMaxTokens
	}
}
