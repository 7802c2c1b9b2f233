package models

import (
	"time"

	"github.com/google/uuid"
)

// --- Request Structs ---

// StartSessionRequest defines the body for booting a widget session. Page is
// the path the widget was embedded on and seeds the conversation context.
type StartSessionRequest struct {
	Page *string `json:"page,omitempty"`
}

// SubmitQuestionRequest defines the body for the "ask a question" control.
type SubmitQuestionRequest struct {
	Question string `json:"question"`
}

// AttachIdentityRequest carries the credential produced by the Google
// sign-in callback. The raw credential is used once for verification and
// storage; it is never echoed back in any response.
type AttachIdentityRequest struct {
	Credential string `json:"credential"`
}

// CreateEnquiryRequest defines the body for the prospective-student enquiry
// form.
type CreateEnquiryRequest struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Programme *string `json:"programme,omitempty"`
	Message   string  `json:"message"`
}

// --- Response Structs ---

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SessionResponse is the widget's view of a chat session. It deliberately
// carries no tokens: the ID token and assistance token live only in the
// server-side session and in the authenticated calls that use them.
type SessionResponse struct {
	ID                           uuid.UUID             `json:"id"`
	State                        ChatState             `json:"state"`
	SignedIn                     bool                  `json:"signed_in"`
	AgentName                    string                `json:"agent_name"`
	MessageHistory               []MessageHistoryItem  `json:"message_history"`
	OriginatorNames              map[Originator]string `json:"originator_names"`
	OriginatorProfilePictureURLs map[Originator]string `json:"originator_profile_picture_urls"`
	PendingQuestion              *string               `json:"pending_question,omitempty"`
	CreatedAt                    time.Time             `json:"created_at"`
	UpdatedAt                    time.Time             `json:"updated_at"`
}

// StartSessionResponse returns the bearer token the widget uses for all
// session-scoped calls, plus the initial session state.
type StartSessionResponse struct {
	WidgetToken string          `json:"widget_token"`
	Session     SessionResponse `json:"session"`
}

// SubmitQuestionResponse reports what happened to a submitted question.
// Queued is true when the question was accepted but not yet sent (visitor
// not signed in, or a send already in flight).
type SubmitQuestionResponse struct {
	Queued  bool            `json:"queued"`
	Session SessionResponse `json:"session"`
}

// WidgetConfigResponse is everything the embed snippet needs to render the
// widget and offer Google sign-in.
type WidgetConfigResponse struct {
	AgentName      string `json:"agent_name"`
	GoogleClientID string `json:"google_client_id,omitempty"`
	SignInEnabled  bool   `json:"sign_in_enabled"`
}

// FAQItem is one question/answer pair surfaced on the FAQ page and as a
// suggested question in the widget.
type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FAQResponse defines the response for listing FAQ entries.
type FAQResponse struct {
	Items []FAQItem `json:"items"`
}

// EnquiryResponse acknowledges a stored enquiry.
type EnquiryResponse struct {
	ID         uuid.UUID `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
}

// NewSessionResponse maps a session to its widget-safe representation. This
// is the only place session state crosses into a response body, which keeps
// the no-tokens rule in one spot.
func NewSessionResponse(c *ChatContext) SessionResponse {
	history := make([]MessageHistoryItem, len(c.MessageHistory))
	copy(history, c.MessageHistory)
	return SessionResponse{
		ID:                           c.ID,
		State:                        c.State,
		SignedIn:                     c.SignedIn(),
		AgentName:                    c.AgentName,
		MessageHistory:               history,
		OriginatorNames:              cloneOriginatorMap(c.OriginatorNames),
		OriginatorProfilePictureURLs: cloneOriginatorMap(c.OriginatorProfilePictureURLs),
		PendingQuestion:              cloneStringPtr(c.PendingQuestion),
		CreatedAt:                    c.CreatedAt,
		UpdatedAt:                    c.UpdatedAt,
	}
}
