package models

import (
	"time"

	"github.com/google/uuid"
)

// Originator identifies which party authored a transcript message.
type Originator string

const (
	OriginatorClient Originator = "client"
	OriginatorAgent  Originator = "agent"
)

// ChatState is the submission state of a widget session. A session may only
// enter StateSubmitting from StateIdle, which is what prevents duplicate
// sends when several triggers (new question, sign-in, reply arrival) land at
// the same time.
type ChatState string

const (
	StateIdle       ChatState = "idle"
	StateSubmitting ChatState = "submitting"
)

// MessageHistoryItem is one transcript entry. Entries are immutable once
// appended; ordering is append order. Timestamp (unix milliseconds) is
// informational only.
type MessageHistoryItem struct {
	Originator Originator `json:"originator"`
	Message    string     `json:"message"`
	Timestamp  int64      `json:"timestamp"`
}

// ChatContext is the complete state of one widget session: transcript,
// identity tokens, per-originator display metadata and the single-slot
// pending question. Exactly one live instance exists per session, owned by
// the session store; it never outlives the page session and is never
// persisted.
type ChatContext struct {
	ID    uuid.UUID
	State ChatState

	// IDToken is the visitor's Google ID token, absent until sign-in
	// completes. AssistanceToken is the short-lived token the assistance
	// API mints from it; the remote service refreshes it on every reply.
	IDToken         *string
	AssistanceToken *string

	AgentName  string
	TaskPrompt string

	MessageHistory               []MessageHistoryItem
	OriginatorNames              map[Originator]string
	OriginatorProfilePictureURLs map[Originator]string

	// PendingQuestion holds a question captured from the widget that has
	// not yet been appended to the history. It is cleared in the same
	// commit that appends the question.
	PendingQuestion *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LastMessageFromClient reports whether the most recent history entry came
// from the client. An empty history counts as false. The resolver uses this
// to avoid re-submitting a question whose send is already in flight or done.
func (c *ChatContext) LastMessageFromClient() bool {
	if len(c.MessageHistory) == 0 {
		return false
	}
	return c.MessageHistory[len(c.MessageHistory)-1].Originator == OriginatorClient
}

// SignedIn reports whether an identity token has been attached.
func (c *ChatContext) SignedIn() bool {
	return c.IDToken != nil && *c.IDToken != ""
}

// HasPendingQuestion reports whether a non-empty question is queued.
func (c *ChatContext) HasPendingQuestion() bool {
	return c.PendingQuestion != nil && *c.PendingQuestion != ""
}

// Clone returns a deep copy. The store hands copies to readers so that quick
// concurrent renders never observe a half-applied mutation.
func (c *ChatContext) Clone() *ChatContext {
	if c == nil {
		return nil
	}
	cp := *c
	cp.IDToken = cloneStringPtr(c.IDToken)
	cp.AssistanceToken = cloneStringPtr(c.AssistanceToken)
	cp.PendingQuestion = cloneStringPtr(c.PendingQuestion)
	cp.MessageHistory = make([]MessageHistoryItem, len(c.MessageHistory))
	copy(cp.MessageHistory, c.MessageHistory)
	cp.OriginatorNames = cloneOriginatorMap(c.OriginatorNames)
	cp.OriginatorProfilePictureURLs = cloneOriginatorMap(c.OriginatorProfilePictureURLs)
	return &cp
}

// HistoryExtends reports whether next preserves prev as a prefix. Agent
// replies may only ever append; a mutation that reorders or drops earlier
// entries violates the transcript contract and must be rejected.
func HistoryExtends(prev, next []MessageHistoryItem) bool {
	if len(next) < len(prev) {
		return false
	}
	for i := range prev {
		if next[i] != prev[i] {
			return false
		}
	}
	return true
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneOriginatorMap(m map[Originator]string) map[Originator]string {
	if m == nil {
		return nil
	}
	cp := make(map[Originator]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
