package llm

import (
	"context"
	"sync"
)

// MockClient is a scripted client for tests. Each Complete call consumes the
// next queued response; when the queue runs dry the last entry repeats.
type MockClient struct {
	mu        sync.Mutex
	model     string
	responses []MockResponse
	requests  []CompletionRequest
	index     int
}

// MockResponse is one scripted completion outcome.
type MockResponse struct {
	Content    string
	StopReason string
	Err        error
}

// NewMockClient builds a scripted client.
func NewMockClient(model string, responses ...MockResponse) *MockClient {
	return &MockClient{model: model, responses: responses}
}

func (m *MockClient) Model() string {
	return m.model
}

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if len(m.responses) == 0 {
		return &CompletionResponse{Content: "", StopReason: StopReasonStop}, nil
	}

	idx := m.index
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	m.index++

	scripted := m.responses[idx]
	if scripted.Err != nil {
		return nil, scripted.Err
	}
	stopReason := scripted.StopReason
	if stopReason == "" {
		stopReason = StopReasonStop
	}
	return &CompletionResponse{Content: scripted.Content, StopReason: stopReason}, nil
}

// Requests returns a copy of every request seen so far.
func (m *MockClient) Requests() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionRequest(nil), m.requests...)
}

// CallCount reports how many Complete calls were made.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
