package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/freightdesk/api/internal/documents"
	domain "github.com/freightdesk/api/internal/domain"
	"github.com/freightdesk/api/internal/handlers"
	"github.com/freightdesk/api/internal/mail"
	"github.com/freightdesk/api/internal/platform/auth"
	"github.com/freightdesk/api/internal/platform/config"
	pfirestore "github.com/freightdesk/api/internal/platform/firestore"
	"github.com/freightdesk/api/internal/platform/jobs"
	"github.com/freightdesk/api/internal/platform/observability"
	"github.com/freightdesk/api/internal/platform/secrets"
	platformstorage "github.com/freightdesk/api/internal/platform/storage"
	"github.com/freightdesk/api/internal/repositories"
	firestoreRepo "github.com/freightdesk/api/internal/repositories/firestore"
	"github.com/freightdesk/api/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(fetcher),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	if _, err := firestoreProvider.Client(ctx); err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	quotationRepo, err := firestoreRepo.NewQuotationRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise quotation repository", zap.Error(err))
	}
	shipmentRepo, err := firestoreRepo.NewShipmentRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise shipment repository", zap.Error(err))
	}
	customerRepo, err := firestoreRepo.NewCustomerRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise customer repository", zap.Error(err))
	}
	adminRepo, err := firestoreRepo.NewAdminRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise admin repository", zap.Error(err))
	}
	counterRepo, err := firestoreRepo.NewCounterRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise counter repository", zap.Error(err))
	}
	healthRepo, err := repositories.NewProbeHealthRepository([]repositories.DependencyProbe{
		firestoreRepo.HealthProbe(firestoreProvider),
	})
	if err != nil {
		logger.Fatal("failed to initialise health repository", zap.Error(err))
	}

	jwtManager, err := auth.NewJWTManager(cfg.Auth.JWTSigningKey,
		auth.WithTokenTTL(cfg.Auth.TokenTTL),
		auth.WithIssuer(cfg.Auth.Issuer),
	)
	if err != nil {
		logger.Fatal("failed to initialise jwt manager", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(jwtManager)

	mailer, err := mail.NewSMTPMailer(cfg.SMTP)
	if err != nil {
		logger.Fatal("failed to initialise smtp mailer", zap.Error(err))
	}

	var eventPublisher services.QuotationEventPublisher
	var pubsubClient *pubsub.Client
	if strings.TrimSpace(cfg.PubSub.TopicID) != "" {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		publisher, err := jobs.NewPubSubQuotationPublisher(pubsubClient.Topic(cfg.PubSub.TopicID))
		if err != nil {
			logger.Fatal("failed to initialise quotation event publisher", zap.Error(err))
		}
		eventPublisher = publisher
	}
	defer func() {
		if pubsubClient != nil {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}
	}()

	storageClient, err := cloudstorage.NewClient(ctx)
	if err != nil {
		logger.Fatal("failed to initialise storage client", zap.Error(err))
	}
	defer func() {
		if err := storageClient.Close(); err != nil {
			logger.Warn("storage close error", zap.Error(err))
		}
	}()

	signer, err := platformstorage.NewServiceAccountSigner(cfg.Storage.SignerServiceEmail, cfg.Storage.SignerPrivateKey)
	if err != nil {
		logger.Fatal("failed to parse storage signer key", zap.Error(err))
	}
	documentBucket, err := platformstorage.NewDocumentBucket(storageClient, cfg.Storage.DocumentsBucket, signer)
	if err != nil {
		logger.Fatal("failed to initialise document bucket", zap.Error(err))
	}

	pricer := services.NewQuotationPricingEngine()
	renderer := documents.NewRenderer(documents.WithCompanyDetails(
		envOrDefault(envValues, "API_COMPANY_NAME", "FreightDesk Logistics"),
		envValues["API_COMPANY_ADDRESS"],
		cfg.SMTP.FromAddress,
	))

	quotationService, err := services.NewQuotationService(services.QuotationServiceDeps{
		Quotations: quotationRepo,
		Counters:   counterRepo,
		Pricer:     pricer,
		Mailer:     mailer,
		Events:     eventPublisher,
		Clock:      time.Now,
		Logger:     serviceLogger(logger.Named("quotations")),
	})
	if err != nil {
		logger.Fatal("failed to initialise quotation service", zap.Error(err))
	}

	shipmentService, err := services.NewShipmentService(services.ShipmentServiceDeps{
		Shipments: shipmentRepo,
		Counters:  counterRepo,
		Clock:     time.Now,
		Logger:    serviceLogger(logger.Named("shipments")),
	})
	if err != nil {
		logger.Fatal("failed to initialise shipment service", zap.Error(err))
	}

	customerService, err := services.NewCustomerService(services.CustomerServiceDeps{
		Customers: customerRepo,
		Clock:     time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise customer service", zap.Error(err))
	}

	accountService, err := services.NewAccountService(services.AccountServiceDeps{
		Admins: adminRepo,
		Tokens: jwtManager,
		Clock:  time.Now,
		Logger: serviceLogger(logger.Named("accounts")),
	})
	if err != nil {
		logger.Fatal("failed to initialise account service", zap.Error(err))
	}

	documentService, err := services.NewDocumentService(services.DocumentServiceDeps{
		Quotations: quotationRepo,
		Shipments:  shipmentRepo,
		Pricer:     pricer,
		Renderer:   renderer,
		Store:      documentBucket,
		URLTTL:     cfg.Documents.SignedURLTTL,
		Clock:      time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise document service", zap.Error(err))
	}

	systemService, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: healthRepo,
	})
	if err != nil {
		logger.Fatal("failed to initialise system service", zap.Error(err))
	}

	accountHandlers := handlers.NewAccountHandlers(authenticator, accountService)
	airQuotationHandlers := handlers.NewQuotationHandlers(domain.TransportModeAir, quotationService, documentService)
	seaQuotationHandlers := handlers.NewQuotationHandlers(domain.TransportModeSea, quotationService, documentService)
	shipmentHandlers := handlers.NewShipmentHandlers(shipmentService, documentService)
	customerHandlers := handlers.NewCustomerHandlers(customerService)
	healthHandlers := handlers.NewHealthHandlers(systemService)

	projectID := cfg.Firestore.ProjectID
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithRequestTimeout(cfg.Server.RequestTimeout),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithAuthRoutes(accountHandlers.Routes),
		handlers.WithAirQuotationRoutes(airQuotationHandlers.Routes),
		handlers.WithSeaQuotationRoutes(seaQuotationHandlers.Routes),
		handlers.WithShipmentRoutes(shipmentHandlers.Routes),
		handlers.WithCustomerRoutes(customerHandlers.Routes),
		handlers.WithProtectedMiddlewares(authenticator.RequireAuth()),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("freightdesk api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
	}
	if environment := strings.TrimSpace(env["API_ENVIRONMENT"]); environment != "" {
		opts = append(opts, secrets.WithEnvironment(environment))
	}
	if project := strings.TrimSpace(env["GOOGLE_CLOUD_PROJECT"]); project != "" {
		opts = append(opts, secrets.WithDefaultProject(project))
	}
	if fallback := strings.TrimSpace(env["API_SECRETS_FALLBACK_FILE"]); fallback != "" {
		opts = append(opts, secrets.WithFallbackFile(fallback))
	}
	return secrets.NewFetcher(ctx, opts...)
}

func serviceLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	return func(ctx context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields)+1)
		zFields = append(zFields, zap.String("event", event))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Info("service event", zFields...)
	}
}

func envOrDefault(env map[string]string, key, fallback string) string {
	value := strings.TrimSpace(env[key])
	if value == "" {
		return fallback
	}
	return value
}
