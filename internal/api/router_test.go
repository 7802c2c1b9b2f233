package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aldercrest-web/internal/api"
	"aldercrest-web/internal/assistance"
	"aldercrest-web/internal/auth"
	"aldercrest-web/internal/config"
	"aldercrest-web/internal/crypto"
	"aldercrest-web/internal/handlers"
	"aldercrest-web/internal/integrations"
	"aldercrest-web/internal/models"
	"aldercrest-web/internal/services"
	"aldercrest-web/internal/site"
	"aldercrest-web/internal/store"
	"aldercrest-web/internal/store/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testJWTSecret = "router-test-secret"

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, credential string) (*auth.VerifiedIdentity, error) {
	if credential == "bad-credential" {
		return nil, auth.ErrInvalidCredential
	}
	return &auth.VerifiedIdentity{
		Subject:    "google-sub-1",
		Email:      "pat@example.com",
		GivenName:  "Pat",
		PictureURL: "https://lh3.example/pat",
	}, nil
}

// fakeEnquiryStore keeps inserts in a map; enough for routing tests.
type fakeEnquiryStore struct {
	rows map[uuid.UUID]*models.Enquiry
}

func newFakeEnquiryStore() *fakeEnquiryStore {
	return &fakeEnquiryStore{rows: make(map[uuid.UUID]*models.Enquiry)}
}

func (f *fakeEnquiryStore) CreateEnquiry(_ context.Context, arg store.CreateEnquiryParams) (*models.Enquiry, error) {
	e := &models.Enquiry{
		ID:             arg.ID,
		Name:           arg.Name,
		EncryptedEmail: arg.EncryptedEmail,
		Programme:      arg.Programme,
		Message:        arg.Message,
		Page:           arg.Page,
		CreatedAt:      time.Now().UTC(),
	}
	f.rows[e.ID] = e
	return e, nil
}

func (f *fakeEnquiryStore) GetEnquiryByID(_ context.Context, id uuid.UUID) (*models.Enquiry, error) {
	e, ok := f.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return e, nil
}

type testServerOptions struct {
	cfg       *config.Config
	enquiries bool
}

func defaultTestConfig() *config.Config {
	return &config.Config{
		JWTSecret:       testJWTSecret,
		RateLimitPerMin: 600,
		RateLimitBurst:  100,
	}
}

func newTestRouter(t *testing.T, opts testServerOptions) (http.Handler, *assistance.FakeClient) {
	t.Helper()

	logger := zap.NewNop()
	fake := assistance.NewFakeClient()
	sessions := memory.NewSessionStore(100, time.Minute, logger)

	chatSvc := services.NewChatService(sessions, fake, stubVerifier{}, services.ChatConfig{
		AgentName:         "Avery",
		TaskPrompt:        "You help prospective students of Aldercrest.",
		Greeting:          "Hi! Ask me anything about Aldercrest.",
		ClientDefaultName: "You",
	}, logger)

	faq := integrations.NewStaticFAQSource(site.DefaultFAQ())
	siteHandler, err := site.NewHandler(site.DefaultContent(), faq, "Avery", logger)
	require.NoError(t, err)

	var enquiryHandler *handlers.EnquiryHandlers
	if opts.enquiries {
		sealer, err := crypto.NewSealer(bytes.Repeat([]byte{0x2a}, 32))
		require.NoError(t, err)
		enquirySvc := services.NewEnquiryService(newFakeEnquiryStore(), sealer, nil, logger)
		enquiryHandler = handlers.NewEnquiryHandlers(enquirySvc, logger)
	}

	router := api.NewRouter(api.RouterDependencies{
		ChatHandler: handlers.NewChatHandlers(chatSvc, handlers.WidgetSettings{
			JWTSecret:      testJWTSecret,
			TokenTTL:       time.Minute,
			AgentName:      "Avery",
			GoogleClientID: "client-123.apps.googleusercontent.com",
		}, logger),
		FAQHandler:     handlers.NewFAQHandler(faq, logger),
		EnquiryHandler: enquiryHandler,
		SiteHandler:    siteHandler,
		Config:         opts.cfg,
		Log:            logger,
	})
	return router, fake
}

func newTestServer(t *testing.T) (http.Handler, *assistance.FakeClient) {
	return newTestRouter(t, testServerOptions{cfg: defaultTestConfig()})
}

func doJSON(t *testing.T, srv http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
}

func TestWidgetConfig(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/v1/widget/config", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cfg := decodeBody[models.WidgetConfigResponse](t, rec)
	require.Equal(t, "Avery", cfg.AgentName)
	require.True(t, cfg.SignInEnabled)
	require.Equal(t, "client-123.apps.googleusercontent.com", cfg.GoogleClientID)
}

func TestFAQEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/v1/faq", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[models.FAQResponse](t, rec)
	require.NotEmpty(t, resp.Items)
	require.Equal(t, "What courses do you offer?", resp.Items[0].Question)
}

func TestWidgetSessionRoutesRequireToken(t *testing.T) {
	srv, _ := newTestServer(t)

	require.Equal(t, http.StatusUnauthorized,
		doJSON(t, srv, http.MethodGet, "/v1/chat/session", "", nil).Code)
	require.Equal(t, http.StatusUnauthorized,
		doJSON(t, srv, http.MethodPost, "/v1/chat/session/question", "not-a-jwt",
			models.SubmitQuestionRequest{Question: "hi"}).Code)

	expired, err := auth.NewWidgetToken(uuid.New(), testJWTSecret, -time.Minute)
	require.NoError(t, err)
	rec := doJSON(t, srv, http.MethodGet, "/v1/chat/session", expired, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "expired")
}

// TestWidgetFlow walks the whole visitor journey: boot the widget, ask before
// signing in, sign in, and watch the queued question go out exactly once.
func TestWidgetFlow(t *testing.T) {
	srv, fake := newTestServer(t)

	page := "/programmes"
	rec := doJSON(t, srv, http.MethodPost, "/v1/chat/sessions", "", models.StartSessionRequest{Page: &page})
	require.Equal(t, http.StatusCreated, rec.Code)

	started := decodeBody[models.StartSessionResponse](t, rec)
	require.NotEmpty(t, started.WidgetToken)
	require.False(t, started.Session.SignedIn)
	require.Len(t, started.Session.MessageHistory, 1)
	require.Equal(t, models.OriginatorAgent, started.Session.MessageHistory[0].Originator)
	token := started.WidgetToken

	// Question before sign-in stays queued.
	rec = doJSON(t, srv, http.MethodPost, "/v1/chat/session/question", token,
		models.SubmitQuestionRequest{Question: "What courses do you offer?"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	queued := decodeBody[models.SubmitQuestionResponse](t, rec)
	require.True(t, queued.Queued)
	require.NotNil(t, queued.Session.PendingQuestion)
	require.Len(t, queued.Session.MessageHistory, 1)
	require.Empty(t, fake.Calls())

	// Sign-in flushes the queue.
	rec = doJSON(t, srv, http.MethodPost, "/v1/chat/session/identity", token,
		models.AttachIdentityRequest{Credential: "good-credential"})
	require.Equal(t, http.StatusOK, rec.Code)

	signedIn := decodeBody[models.SessionResponse](t, rec)
	require.True(t, signedIn.SignedIn)
	require.Nil(t, signedIn.PendingQuestion)
	require.Len(t, signedIn.MessageHistory, 3)
	require.Equal(t, "What courses do you offer?", signedIn.MessageHistory[1].Message)
	require.Equal(t, models.OriginatorAgent, signedIn.MessageHistory[2].Originator)
	require.Equal(t, "Pat", signedIn.OriginatorNames[models.OriginatorClient])

	calls := fake.Calls()
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].Transcript)
	require.Contains(t, *calls[0].Transcript, "What courses do you offer?")
	require.Contains(t, calls[0].TaskPrompt, "/programmes")

	// The transcript is retrievable with the same token.
	rec = doJSON(t, srv, http.MethodGet, "/v1/chat/session", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fetched := decodeBody[models.SessionResponse](t, rec)
	require.Len(t, fetched.MessageHistory, 3)
}

func TestSubmitAfterSignInSendsImmediately(t *testing.T) {
	srv, fake := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/v1/chat/sessions", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	token := decodeBody[models.StartSessionResponse](t, rec).WidgetToken

	rec = doJSON(t, srv, http.MethodPost, "/v1/chat/session/identity", token,
		models.AttachIdentityRequest{Credential: "good-credential"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/v1/chat/session/question", token,
		models.SubmitQuestionRequest{Question: "Do you offer scholarships?"})
	require.Equal(t, http.StatusOK, rec.Code)

	sent := decodeBody[models.SubmitQuestionResponse](t, rec)
	require.False(t, sent.Queued)
	require.Len(t, sent.Session.MessageHistory, 3)
	require.Len(t, fake.Calls(), 1)
}

func TestAttachIdentityRejectsBadCredential(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/v1/chat/sessions", "", nil)
	token := decodeBody[models.StartSessionResponse](t, rec).WidgetToken

	rec = doJSON(t, srv, http.MethodPost, "/v1/chat/session/identity", token,
		models.AttachIdentityRequest{Credential: "bad-credential"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEmptyQuestionRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/v1/chat/sessions", "", nil)
	token := decodeBody[models.StartSessionResponse](t, rec).WidgetToken

	rec = doJSON(t, srv, http.MethodPost, "/v1/chat/session/question", token,
		models.SubmitQuestionRequest{Question: "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnquiryRouteAbsentWithoutDatabase(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/v1/enquiries", "",
		models.CreateEnquiryRequest{Name: "Sam", Email: "sam@example.com", Message: "Hello"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEnquiryRouteStoresSubmission(t *testing.T) {
	srv, _ := newTestRouter(t, testServerOptions{cfg: defaultTestConfig(), enquiries: true})

	rec := doJSON(t, srv, http.MethodPost, "/v1/enquiries", "",
		models.CreateEnquiryRequest{Name: "Sam", Email: "sam@example.com", Message: "Tell me about halls"})
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeBody[models.EnquiryResponse](t, rec)
	require.NotEqual(t, uuid.Nil, resp.ID)

	rec = doJSON(t, srv, http.MethodPost, "/v1/enquiries", "",
		models.CreateEnquiryRequest{Name: "Sam", Email: "not-an-email", Message: "Hello"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnquiryLookupByReference(t *testing.T) {
	srv, _ := newTestRouter(t, testServerOptions{cfg: defaultTestConfig(), enquiries: true})

	rec := doJSON(t, srv, http.MethodPost, "/v1/enquiries", "",
		models.CreateEnquiryRequest{Name: "Sam", Email: "sam@example.com", Message: "Hello"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[models.EnquiryResponse](t, rec)

	rec = doJSON(t, srv, http.MethodGet, "/v1/enquiries/"+created.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[models.EnquiryResponse](t, rec)
	require.Equal(t, created.ID, got.ID)
	require.NotContains(t, rec.Body.String(), "sam@example.com")

	rec = doJSON(t, srv, http.MethodGet, "/v1/enquiries/"+uuid.NewString(), "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/v1/enquiries/not-a-reference", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionCreateRateLimited(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.RateLimitPerMin = 1
	cfg.RateLimitBurst = 1
	srv, _ := newTestRouter(t, testServerOptions{cfg: cfg})

	first := doJSON(t, srv, http.MethodPost, "/v1/chat/sessions", "", nil)
	require.Equal(t, http.StatusCreated, first.Code)

	second := doJSON(t, srv, http.MethodPost, "/v1/chat/sessions", "", nil)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestMarketingPageServed(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	require.Contains(t, rec.Body.String(), "Aldercrest College")

	rec = doJSON(t, srv, http.MethodGet, "/static/css/site.css", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
