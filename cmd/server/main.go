package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aldercrest-web/internal/api"
	"aldercrest-web/internal/assistance"
	"aldercrest-web/internal/auth"
	"aldercrest-web/internal/config"
	"aldercrest-web/internal/crypto"
	"aldercrest-web/internal/handlers"
	"aldercrest-web/internal/integrations"
	"aldercrest-web/internal/services"
	"aldercrest-web/internal/site"
	"aldercrest-web/internal/store/memory"
	"aldercrest-web/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jomei/notionapi"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	var logger *zap.Logger
	if cfg.AppEnv == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting aldercrest-web", zap.String("env", cfg.AppEnv))

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer bootCancel()

	// 3. Chat Core: session store, assistance client, identity verifier
	sessions := memory.NewSessionStore(cfg.SessionCapacity, cfg.SessionTTL, logger)

	var assistanceClient assistance.Client
	if cfg.AssistanceURL != "" {
		assistanceClient = assistance.NewHTTPClient(cfg.AssistanceURL, cfg.AssistanceMaxInFlight, logger)
	} else {
		logger.Warn("ASSISTANCE_API_URL not set, chat replies are canned")
		assistanceClient = assistance.NewFakeClient()
	}

	var verifier auth.CredentialVerifier
	if cfg.GoogleClientID != "" {
		verifier = auth.NewGoogleVerifier(cfg.GoogleClientID)
	} else {
		logger.Warn("GOOGLE_OAUTH_CLIENT_ID not set, sign-in is disabled and questions will stay queued")
		verifier = auth.DisabledVerifier{}
	}

	chatService := services.NewChatService(sessions, assistanceClient, verifier, services.ChatConfig{
		AgentName:               cfg.AgentName,
		TaskPrompt:              cfg.TaskPrompt,
		Greeting:                cfg.Greeting,
		AgentProfilePictureURL:  cfg.AgentPictureURL,
		ClientDefaultName:       "You",
		ClientProfilePictureURL: cfg.ClientPictureURL,
	}, logger)

	// 4. FAQ Source: static registry, optionally fronted by Notion
	var faqSource integrations.FAQSource = integrations.NewStaticFAQSource(site.DefaultFAQ())
	if cfg.NotionSecret != "" && cfg.NotionFAQDatabase != "" {
		notionClient := notionapi.NewClient(notionapi.Token(cfg.NotionSecret))
		notionSource := integrations.NewNotionFAQSource(notionClient, cfg.NotionFAQDatabase, cfg.FAQCacheTTL, faqSource, logger)
		if err := notionSource.VerifyConnection(bootCtx); err != nil {
			logger.Warn("Notion FAQ connection check failed, static fallback stays active", zap.Error(err))
		}
		faqSource = notionSource
	}

	// 5. Enquiry Capture: Postgres-backed, skipped entirely without DATABASE_URL
	var enquiryHandler *handlers.EnquiryHandlers
	if cfg.DatabaseURL != "" {
		dbpool, err := pgxpool.New(bootCtx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("unable to create database connection pool", zap.Error(err))
		}
		defer dbpool.Close()

		if err := dbpool.Ping(bootCtx); err != nil {
			logger.Fatal("unable to ping database", zap.Error(err))
		}

		pgStore := postgres.NewPostgresStore(dbpool, logger)
		if err := pgStore.EnsureSchema(bootCtx); err != nil {
			logger.Fatal("unable to ensure database schema", zap.Error(err))
		}

		sealer, err := crypto.NewSealer(cfg.EncryptionKey)
		if err != nil {
			logger.Fatal("unable to initialize email encryption", zap.Error(err))
		}

		var notifier services.EnquiryNotifier
		if cfg.SlackBotToken != "" && cfg.SlackChannelID != "" {
			slackNotifier := integrations.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackChannelID, logger)
			if err := slackNotifier.VerifyConnection(bootCtx); err != nil {
				logger.Warn("Slack connection check failed, notifications may not arrive", zap.Error(err))
			}
			notifier = slackNotifier
		}

		enquiryService := services.NewEnquiryService(pgStore, sealer, notifier, logger)
		enquiryHandler = handlers.NewEnquiryHandlers(enquiryService, logger)
		logger.Info("enquiry capture enabled", zap.Bool("slack_notifications", notifier != nil))
	} else {
		logger.Warn("DATABASE_URL not set, enquiry capture is disabled")
	}

	// 6. Marketing Pages
	siteHandler, err := site.NewHandler(site.DefaultContent(), faqSource, cfg.AgentName, logger)
	if err != nil {
		logger.Fatal("unable to parse site templates", zap.Error(err))
	}

	// 7. Router
	router := api.NewRouter(api.RouterDependencies{
		ChatHandler: handlers.NewChatHandlers(chatService, handlers.WidgetSettings{
			JWTSecret:      cfg.JWTSecret,
			TokenTTL:       cfg.WidgetTokenTTL,
			AgentName:      cfg.AgentName,
			GoogleClientID: cfg.GoogleClientID,
		}, logger),
		FAQHandler:     handlers.NewFAQHandler(faqSource, logger),
		EnquiryHandler: enquiryHandler,
		SiteHandler:    siteHandler,
		Config:         cfg,
		Log:            logger,
	})

	// 8. Configure and Start HTTP Server
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// ReadTimeout stays tight (request bodies are small JSON), but the
		// write budget must outlast a full assistance call.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped unexpectedly", zap.Error(err))
		}
	}()

	<-stopChan
	logger.Info("shutdown signal received, draining connections")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server shutdown complete")
}
