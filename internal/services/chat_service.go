package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aldercrest-web/internal/assistance"
	"aldercrest-web/internal/auth"
	"aldercrest-web/internal/models"
	"aldercrest-web/internal/store"
)

// Custom errors for chat service
var (
	ErrValidation        = errors.New("input validation failed")
	ErrSignInRejected    = errors.New("sign-in credentials rejected")
	ErrAssistanceFailure = errors.New("assistance API call failed")
)

// ChatConfig holds the per-deployment conversation settings: who the agent
// claims to be, how it is briefed, and the default widget appearance.
type ChatConfig struct {
	AgentName               string
	TaskPrompt              string
	Greeting                string
	AgentProfilePictureURL  string
	ClientDefaultName       string
	ClientProfilePictureURL string
}

// ChatService owns the widget conversation lifecycle. Every mutation goes
// through the session store's Update, so the idle/submitting transition is
// atomic per session and at most one assistance call is ever in flight for
// one conversation.
type ChatService struct {
	sessions   store.SessionStore
	assistance assistance.Client
	verifier   auth.CredentialVerifier
	cfg        ChatConfig
	log        *zap.Logger
}

// NewChatService creates a new ChatService.
func NewChatService(sessions store.SessionStore, client assistance.Client, verifier auth.CredentialVerifier, cfg ChatConfig, log *zap.Logger) *ChatService {
	return &ChatService{
		sessions:   sessions,
		assistance: client,
		verifier:   verifier,
		cfg:        cfg,
		log:        log,
	}
}

// StartSession creates a new widget session seeded with the agent greeting.
// page, when present, is folded into the task prompt so the agent knows what
// the visitor was reading.
func (s *ChatService) StartSession(ctx context.Context, page *string) (*models.ChatContext, error) {
	taskPrompt := s.cfg.TaskPrompt
	if page != nil && strings.TrimSpace(*page) != "" {
		taskPrompt = fmt.Sprintf("%s\n\nThe visitor opened the chat from the %s page.", taskPrompt, strings.TrimSpace(*page))
	}

	session := &models.ChatContext{
		State:      models.StateIdle,
		AgentName:  s.cfg.AgentName,
		TaskPrompt: taskPrompt,
		MessageHistory: []models.MessageHistoryItem{
			{
				Originator: models.OriginatorAgent,
				Message:    s.cfg.Greeting,
				Timestamp:  nowMillis(),
			},
		},
		OriginatorNames: map[models.Originator]string{
			models.OriginatorAgent:  s.cfg.AgentName,
			models.OriginatorClient: s.cfg.ClientDefaultName,
		},
		OriginatorProfilePictureURLs: map[models.Originator]string{
			models.OriginatorAgent:  s.cfg.AgentProfilePictureURL,
			models.OriginatorClient: s.cfg.ClientProfilePictureURL,
		},
	}

	created, err := s.sessions.Create(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return created, nil
}

// GetSession returns a snapshot of the session, or store.ErrNotFound.
func (s *ChatService) GetSession(ctx context.Context, id uuid.UUID) (*models.ChatContext, error) {
	return s.sessions.Get(ctx, id)
}

// SubmitQuestion captures a question from the "ask a question" control and
// tries to resolve it. The pending slot holds one question; submitting again
// before the previous one was sent replaces it, matching a visitor editing
// their unsent message. The returned snapshot tells the caller whether the
// question went out (empty pending, history grew) or stayed queued.
func (s *ChatService) SubmitQuestion(ctx context.Context, id uuid.UUID, question string) (*models.ChatContext, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question cannot be empty", ErrValidation)
	}

	_, err := s.sessions.Update(ctx, id, func(c *models.ChatContext) error {
		c.PendingQuestion = &question
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.resolvePending(ctx, id)
}

// AttachIdentity verifies the sign-in credential, stores the ID token and
// the visitor's display identity, then kicks the resolver in case a question
// was queued before sign-in. A resolver failure here is logged but does not
// fail the sign-in: the identity was attached, which is this operation's
// contract, and the queued question is preserved for a later attempt.
func (s *ChatService) AttachIdentity(ctx context.Context, id uuid.UUID, credential string) (*models.ChatContext, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, fmt.Errorf("%w: credential cannot be empty", ErrValidation)
	}

	identity, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		return nil, err
	}

	_, err = s.sessions.Update(ctx, id, func(c *models.ChatContext) error {
		c.IDToken = &credential
		if c.OriginatorNames == nil {
			c.OriginatorNames = map[models.Originator]string{}
		}
		if c.OriginatorProfilePictureURLs == nil {
			c.OriginatorProfilePictureURLs = map[models.Originator]string{}
		}
		if identity.GivenName != "" {
			c.OriginatorNames[models.OriginatorClient] = identity.GivenName
		}
		if identity.PictureURL != "" {
			c.OriginatorProfilePictureURLs[models.OriginatorClient] = identity.PictureURL
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("visitor signed in",
		zap.String("session_id", id.String()),
		zap.String("subject", identity.Subject),
	)

	session, err := s.resolvePending(ctx, id)
	if err != nil {
		s.log.Warn("queued question could not be sent after sign-in",
			zap.String("session_id", id.String()),
			zap.Error(err),
		)
		return s.sessions.Get(ctx, id)
	}
	return session, nil
}

// resolvePending drives the session's submission state machine. Each loop
// iteration tries to claim a send: in a single atomic commit it checks that
// the session is idle, the visitor is signed in, the last transcript entry
// is not an unanswered client message, and a question is pending. If all
// hold, it appends the question to the history, clears the pending slot and
// enters the submitting state. The assistance call then happens outside the
// session lock; its outcome is committed in a second update that always
// returns the session to idle. The loop drains questions queued while a call
// was in flight.
//
// On call failure the question stays in the transcript, so the visitor's
// typed message is never silently lost.
func (s *ChatService) resolvePending(ctx context.Context, id uuid.UUID) (*models.ChatContext, error) {
	for {
		var (
			claimed bool
			call    assistance.ChatRequest
		)
		session, err := s.sessions.Update(ctx, id, func(c *models.ChatContext) error {
			claimed = false
			if c.State != models.StateIdle {
				return nil
			}
			if !c.SignedIn() {
				return nil
			}
			if c.LastMessageFromClient() {
				return nil
			}
			if !c.HasPendingQuestion() {
				return nil
			}

			c.MessageHistory = append(c.MessageHistory, models.MessageHistoryItem{
				Originator: models.OriginatorClient,
				Message:    *c.PendingQuestion,
				Timestamp:  nowMillis(),
			})
			c.PendingQuestion = nil
			c.State = models.StateSubmitting
			claimed = true

			call = assistance.ChatRequest{
				AgentName:       c.AgentName,
				TaskPrompt:      c.TaskPrompt,
				Transcript:      assistance.FlattenTranscript(c.MessageHistory, c.OriginatorNames),
				GoogleIDToken:   c.IDToken,
				AssistanceToken: c.AssistanceToken,
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if !claimed {
			return session, nil
		}

		result, callErr := s.assistance.Chat(ctx, call)
		if callErr != nil {
			return s.releaseFailedSend(ctx, id, callErr)
		}

		session, err = s.sessions.Update(ctx, id, func(c *models.ChatContext) error {
			c.MessageHistory = append(c.MessageHistory, models.MessageHistoryItem{
				Originator: models.OriginatorAgent,
				Message:    result.AgentMessage,
				Timestamp:  nowMillis(),
			})
			if result.AssistanceToken != "" {
				token := result.AssistanceToken
				c.AssistanceToken = &token
			}
			c.State = models.StateIdle
			return nil
		})
		if err != nil {
			return nil, err
		}
		if !session.HasPendingQuestion() {
			return session, nil
		}
		// A question arrived while the call was in flight; go around.
	}
}

// releaseFailedSend returns the session to idle after a failed assistance
// call. When the remote rejected the credentials, the stored tokens are
// stale and are dropped so the widget can prompt a fresh sign-in.
func (s *ChatService) releaseFailedSend(ctx context.Context, id uuid.UUID, callErr error) (*models.ChatContext, error) {
	rejected := errors.Is(callErr, assistance.ErrUnauthorized)

	session, err := s.sessions.Update(ctx, id, func(c *models.ChatContext) error {
		c.State = models.StateIdle
		if rejected {
			c.AssistanceToken = nil
			c.IDToken = nil
		}
		return nil
	})
	if err != nil {
		s.log.Error("failed to release session after send failure",
			zap.String("session_id", id.String()),
			zap.NamedError("send_error", callErr),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrAssistanceFailure, callErr)
	}

	s.log.Warn("assistance call failed",
		zap.String("session_id", id.String()),
		zap.Bool("credentials_rejected", rejected),
		zap.Error(callErr),
	)

	if rejected {
		return session, fmt.Errorf("%w: %v", ErrSignInRejected, callErr)
	}
	return session, fmt.Errorf("%w: %v", ErrAssistanceFailure, callErr)
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
