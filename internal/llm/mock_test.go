package llm

import (
	"context"
	"sync/atomic"
)

// mockProvider is a scripted Provider for testing the synthesizer and
// judge without network access.
type mockProvider struct {
	response string
	err      error
	calls    int32
	lastReq  CompletionRequest
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Complete(_ context.Context, req CompletionRequest) (string, error) {
	atomic.AddInt32(&m.calls, 1)
	m.lastReq = req
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockProvider) IsAvailable(_ context.Context) bool { return true }
