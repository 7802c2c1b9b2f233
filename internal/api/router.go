package api

import (
	"net/http"
	"time"

	"aldercrest-web/internal/config"
	"aldercrest-web/internal/handlers"
	"aldercrest-web/internal/site"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterDependencies holds all the dependencies required by the router setup:
// the widget and site handlers plus configuration.
type RouterDependencies struct {
	ChatHandler    *handlers.ChatHandlers
	FAQHandler     *handlers.FAQHandler
	EnquiryHandler *handlers.EnquiryHandlers
	SiteHandler    *site.Handler
	Config         *config.Config
	Log            *zap.Logger
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	if deps.ChatHandler == nil {
		panic("ChatHandler dependency is nil in router setup")
	}

	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(deps.Log))
	r.Use(middleware.Recoverer)
	// The submit path waits on the assistance call, so the request budget
	// sits above the outbound client timeout.
	r.Use(middleware.Timeout(120 * time.Second))

	// --- CORS Configuration ---
	origins := deps.Config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Public Routes (No widget token required) ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/v1/widget/config", deps.ChatHandler.HandleWidgetConfig)

	if deps.FAQHandler != nil {
		r.Get("/v1/faq", deps.FAQHandler.HandleListFAQ)
	} else {
		deps.Log.Warn("FAQHandler dependency is nil, skipping /v1/faq route")
	}

	// Anyone on the public site can hit these two, so they are rate limited
	// per source IP.
	r.Group(func(r chi.Router) {
		r.Use(RateLimitMiddleware(deps.Config.RateLimitPerMin, deps.Config.RateLimitBurst, deps.Log))

		r.Post("/v1/chat/sessions", deps.ChatHandler.HandleStartSession)

		if deps.EnquiryHandler != nil {
			r.Post("/v1/enquiries", deps.EnquiryHandler.HandleCreateEnquiry)
		}
	})
	if deps.EnquiryHandler != nil {
		r.Get("/v1/enquiries/{enquiryID}", deps.EnquiryHandler.HandleGetEnquiry)
	} else {
		deps.Log.Warn("EnquiryHandler dependency is nil, skipping /v1/enquiries routes")
	}

	// --- Widget Session Routes (bearer token required) ---
	r.Route("/v1/chat/session", func(r chi.Router) {
		r.Use(WidgetAuthMiddleware(deps.Config.JWTSecret, deps.Log))

		r.Get("/", deps.ChatHandler.HandleGetSession)
		r.Post("/question", deps.ChatHandler.HandleSubmitQuestion)
		r.Post("/identity", deps.ChatHandler.HandleAttachIdentity)
	})

	// --- Marketing Pages ---
	if deps.SiteHandler != nil {
		r.Handle("/static/*", site.StaticHandler())
		r.Get("/", deps.SiteHandler.HandleIndex)
	} else {
		deps.Log.Warn("SiteHandler dependency is nil, skipping marketing pages")
	}

	return r
}
