package llm

import "context"

// Message is one role-tagged turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest carries one outbound call to a solver agent.
type CompletionRequest struct {
	Messages      []Message
	MaxTokens     int
	Temperature   float64
	StopSequences []string
}

// Stop reasons normalized across providers.
const (
	StopReasonStop   = "stop"   // deliberate end (natural stop or stop sequence hit)
	StopReasonLength = "length" // output token budget exhausted
)

// TokenUsage reports token accounting for one completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse is the normalized result of one completion call.
type CompletionResponse struct {
	Content    string
	StopReason string
	Usage      TokenUsage
}

// Client is a single outbound channel to one solver agent.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Model() string
}

// Config configures an HTTP-based client.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout int // seconds; 0 means the package default
	Headers map[string]string
}
