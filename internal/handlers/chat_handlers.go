package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"aldercrest-web/internal/auth"
	"aldercrest-web/internal/models"
	"aldercrest-web/internal/services"
	"aldercrest-web/internal/store"
	"aldercrest-web/pkg/httputil"

	"go.uber.org/zap"
)

// WidgetSettings groups the deployment knobs the widget endpoints need
// beyond the chat service itself.
type WidgetSettings struct {
	JWTSecret      string
	TokenTTL       time.Duration
	AgentName      string
	GoogleClientID string
}

// ChatHandlers handles HTTP requests from the embedded chat widget.
type ChatHandlers struct {
	chat     *services.ChatService
	settings WidgetSettings
	log      *zap.Logger
}

// NewChatHandlers creates a new ChatHandlers instance.
func NewChatHandlers(chat *services.ChatService, settings WidgetSettings, log *zap.Logger) *ChatHandlers {
	return &ChatHandlers{
		chat:     chat,
		settings: settings,
		log:      log,
	}
}

// HandleStartSession handles POST /v1/chat/sessions. The body is optional;
// when present it names the page the widget was opened from. The response
// carries the bearer token for every later call on this session.
func (h *ChatHandlers) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	var req models.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	session, err := h.chat.StartSession(r.Context(), req.Page)
	if err != nil {
		h.log.Error("failed to start widget session", zap.Error(err))
		httputil.RespondError(w, http.StatusInternalServerError, "Could not start a chat session")
		return
	}

	token, err := auth.NewWidgetToken(session.ID, h.settings.JWTSecret, h.settings.TokenTTL)
	if err != nil {
		h.log.Error("failed to sign widget token",
			zap.String("session_id", session.ID.String()), zap.Error(err))
		httputil.RespondError(w, http.StatusInternalServerError, "Could not start a chat session")
		return
	}

	resp := models.StartSessionResponse{
		WidgetToken: token,
		Session:     models.NewSessionResponse(session),
	}
	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// HandleGetSession handles GET /v1/chat/session.
func (h *ChatHandlers) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := auth.GetSessionIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	session, err := h.chat.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Session not found or expired")
			return
		}
		h.log.Error("failed to load session",
			zap.String("session_id", sessionID.String()), zap.Error(err))
		httputil.RespondError(w, http.StatusInternalServerError, "Could not load the chat session")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.NewSessionResponse(session))
}

// HandleSubmitQuestion handles POST /v1/chat/session/question. A question
// that went out comes back 200 with the agent's reply in the history; a
// question that was only queued (visitor not signed in yet, or a send in
// flight) comes back 202.
func (h *ChatHandlers) HandleSubmitQuestion(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := auth.GetSessionIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.SubmitQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	session, err := h.chat.SubmitQuestion(r.Context(), sessionID, req.Question)
	if err != nil {
		// Error Mapping: Map service errors to HTTP status codes
		switch {
		case errors.Is(err, services.ErrValidation):
			httputil.RespondError(w, http.StatusBadRequest, err.Error()) // 400
		case errors.Is(err, store.ErrNotFound):
			httputil.RespondError(w, http.StatusNotFound, "Session not found or expired") // 404
		case errors.Is(err, services.ErrSignInRejected):
			httputil.RespondError(w, http.StatusUnauthorized, "Sign-in was rejected, please sign in again") // 401
		case errors.Is(err, services.ErrAssistanceFailure):
			httputil.RespondError(w, http.StatusBadGateway, "The advisor is unavailable right now") // 502
		default:
			h.log.Error("failed to submit question",
				zap.String("session_id", sessionID.String()), zap.Error(err))
			httputil.RespondError(w, http.StatusInternalServerError, "Could not submit the question") // 500
		}
		return
	}

	resp := models.SubmitQuestionResponse{
		Queued:  session.HasPendingQuestion(),
		Session: models.NewSessionResponse(session),
	}
	status := http.StatusOK
	if resp.Queued {
		status = http.StatusAccepted
	}
	httputil.RespondJSON(w, status, resp)
}

// HandleAttachIdentity handles POST /v1/chat/session/identity. It receives
// the credential from the Google sign-in callback and binds the verified
// identity to the session, which unblocks any queued question.
func (h *ChatHandlers) HandleAttachIdentity(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := auth.GetSessionIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.AttachIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if strings.TrimSpace(req.Credential) == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Credential is required")
		return
	}

	session, err := h.chat.AttachIdentity(r.Context(), sessionID, req.Credential)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			httputil.RespondError(w, http.StatusBadRequest, err.Error()) // 400
		case errors.Is(err, auth.ErrInvalidCredential):
			httputil.RespondError(w, http.StatusUnauthorized, "Sign-in credential could not be verified") // 401
		case errors.Is(err, store.ErrNotFound):
			httputil.RespondError(w, http.StatusNotFound, "Session not found or expired") // 404
		default:
			h.log.Error("failed to attach identity",
				zap.String("session_id", sessionID.String()), zap.Error(err))
			httputil.RespondError(w, http.StatusInternalServerError, "Could not complete sign-in") // 500
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.NewSessionResponse(session))
}

// HandleWidgetConfig handles GET /v1/widget/config. The embed snippet calls
// this before rendering so deployments can change the agent identity and
// sign-in client without re-shipping the widget script.
func (h *ChatHandlers) HandleWidgetConfig(w http.ResponseWriter, r *http.Request) {
	resp := models.WidgetConfigResponse{
		AgentName:      h.settings.AgentName,
		GoogleClientID: h.settings.GoogleClientID,
		SignInEnabled:  h.settings.GoogleClientID != "",
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}
