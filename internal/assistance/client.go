// Package assistance is the client for the remote assistance chat API, the
// service that actually runs the conversation for the widget. One call sends
// the whole transcript and returns the agent's next message plus a refreshed
// assistance token.
package assistance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrUnauthorized is returned when the remote rejects the supplied
	// credentials (missing, expired beyond refresh, or invalid). Callers
	// should discard the stale assistance token and fall back to the
	// Google ID token on the next attempt.
	ErrUnauthorized = errors.New("assistance API rejected credentials")
)

// ChatRequest carries everything the remote needs for one conversation turn.
// Transcript, GoogleIDToken and AssistanceToken are pointers because the
// remote treats absence and emptiness differently: a first-ever call has no
// transcript, and a first authenticated call has no assistance token yet.
type ChatRequest struct {
	AgentName       string
	TaskPrompt      string
	Transcript      *string
	GoogleIDToken   *string
	AssistanceToken *string
}

// ChatResult is the remote's reply: the agent's message and the assistance
// token to use on the next call (refreshed server-side when close to expiry).
type ChatResult struct {
	AgentMessage    string
	AssistanceToken string
}

// Client is the remote chat API. It is an interface so tests and offline
// development can swap in a fake.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResult, error)
}

// chatData is the wire shape of the chat request.
type chatData struct {
	AgentName       string  `json:"agent_name"`
	TaskPrompt      string  `json:"task_prompt"`
	Transcript      *string `json:"transcript,omitempty"`
	GoogleIDToken   *string `json:"google_id_token,omitempty"`
	AssistanceToken *string `json:"assistance_token,omitempty"`
}

// chatResponse is the wire shape of the chat reply.
type chatResponse struct {
	AgentMessage    string `json:"agent_message"`
	AssistanceToken string `json:"assistance_token"`
}

// HTTPClient is the production Client. All instances of the site share one
// pooled http.Client; a weighted semaphore caps how many chat calls may be
// in flight at once so a burst of widgets cannot exhaust the remote.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	slots      *semaphore.Weighted
	log        *zap.Logger
}

var _ Client = (*HTTPClient)(nil)

const defaultTimeout = 90 * time.Second

// NewHTTPClient creates a client for the assistance API at baseURL.
// maxInFlight bounds concurrent Chat calls across all sessions.
func NewHTTPClient(baseURL string, maxInFlight int64, log *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
			Timeout: defaultTimeout,
		},
		slots: semaphore.NewWeighted(maxInFlight),
		log:   log,
	}
}

// Chat performs exactly one POST to the remote chat endpoint. It never
// retries: the caller owns the decision of what a failed send means for the
// pending question.
func (c *HTTPClient) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	if err := c.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for chat slot: %w", err)
	}
	defer c.slots.Release(1)

	body, err := json.Marshal(chatData{
		AgentName:       req.AgentName,
		TaskPrompt:      req.TaskPrompt,
		Transcript:      req.Transcript,
		GoogleIDToken:   req.GoogleIDToken,
		AssistanceToken: req.AssistanceToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call assistance API: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w (status %d)", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("assistance API error %d: %s", resp.StatusCode, string(raw))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode assistance response: %w", err)
	}

	c.log.Debug("assistance chat call completed",
		zap.Duration("elapsed", time.Since(start)),
		zap.String("agent_name", req.AgentName),
	)
	return &ChatResult{
		AgentMessage:    result.AgentMessage,
		AssistanceToken: result.AssistanceToken,
	}, nil
}
