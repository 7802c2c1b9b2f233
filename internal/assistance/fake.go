package assistance

import (
	"context"
	"sync"
)

// FakeClient is a scripted Client for tests and for running the site without
// a remote assistance deployment. It records every request it receives.
type FakeClient struct {
	mu    sync.Mutex
	calls []ChatRequest

	// Reply produces the response for each call. Replace it to script
	// failures or specific answers; the default acknowledges the question
	// with a canned line and a static token.
	Reply func(req ChatRequest) (*ChatResult, error)
}

var _ Client = (*FakeClient)(nil)

func NewFakeClient() *FakeClient {
	return &FakeClient{
		Reply: func(ChatRequest) (*ChatResult, error) {
			return &ChatResult{
				AgentMessage:    "Thanks for your question! A member of our team will expand on this shortly.",
				AssistanceToken: "fake-assistance-token",
			}, nil
		},
	}
}

func (f *FakeClient) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.Reply(req)
}

// Calls returns a snapshot of every request received so far.
func (f *FakeClient) Calls() []ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ChatRequest, len(f.calls))
	copy(out, f.calls)
	return out
}
