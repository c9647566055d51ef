package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockResponse is one scripted reply. Err, when set, is returned instead.
type MockResponse struct {
	Content    json.RawMessage
	Usage      Usage
	StopReason string // default "end"
	Err        error
}

// MockProvider replays scripted replies in order, or answers every request
// with its respond func, and keeps every request it saw. A cancelled context
// is reported before a reply is consumed.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	respond   func(Request) MockResponse
	Calls     []Request
}

// NewMockProvider scripts responses in order. Once they run out, Generate
// returns *ErrProviderUnavailable.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

// NewMockProviderFunc answers each request with fn's result, e.g. to
// route text and vision calls differently when they run concurrently.
func NewMockProviderFunc(fn func(Request) MockResponse) *MockProvider {
	return &MockProvider{respond: fn}
}

func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var next MockResponse
	switch {
	case m.respond != nil:
		next = m.respond(req)
	case len(m.responses) > 0:
		next, m.responses = m.responses[0], m.responses[1:]
	default:
		return nil, &ErrProviderUnavailable{}
	}
	if next.Err != nil {
		return nil, next.Err
	}

	stop := next.StopReason
	if stop == "" {
		stop = "end"
	}
	return &Response{Content: next.Content, Usage: next.Usage, Model: "mock", StopReason: stop}, nil
}

func (m *MockProvider) ModelID() string { return "mock" }

// CallCount reports how many requests Generate has seen.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
