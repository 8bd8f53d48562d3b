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

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/lojafacil/api/internal/di"
	"github.com/lojafacil/api/internal/handlers"
	"github.com/lojafacil/api/internal/payments"
	"github.com/lojafacil/api/internal/platform/auth"
	"github.com/lojafacil/api/internal/platform/config"
	pfirestore "github.com/lojafacil/api/internal/platform/firestore"
	"github.com/lojafacil/api/internal/platform/functions"
	"github.com/lojafacil/api/internal/platform/jobs"
	"github.com/lojafacil/api/internal/platform/observability"
	"github.com/lojafacil/api/internal/platform/secrets"
	"github.com/lojafacil/api/internal/repositories"
	firestoreRepo "github.com/lojafacil/api/internal/repositories/firestore"
	"github.com/lojafacil/api/internal/services"
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

	fetcher := newSecretFetcher(ctx, logger)
	if fetcher != nil {
		defer func() {
			if err := fetcher.Close(); err != nil {
				logger.Warn("secret fetcher close error", zap.Error(err))
			}
		}()
	}

	var loadOpts []config.Option
	if fetcher != nil {
		loadOpts = append(loadOpts, config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)))
	}
	cfg, err := config.Load(ctx, loadOpts...)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	healthRepo, err := newHealthRepository(firestoreClient, fetcher)
	if err != nil {
		logger.Fatal("failed to initialise dependency health checks", zap.Error(err))
	}

	registry, err := firestoreRepo.NewRegistry(firestoreProvider, healthRepo)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	fnClient, err := functions.NewClient(cfg.Functions)
	if err != nil {
		logger.Fatal("failed to initialise functions client", zap.Error(err))
	}

	paymentProvider, err := payments.NewFunctionsProvider(fnClient)
	if err != nil {
		logger.Fatal("failed to initialise payment provider", zap.Error(err))
	}

	var publisher services.OrderEventPublisher
	if cfg.Jobs.ProjectID != "" && cfg.Jobs.OrdersTopic != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.Jobs.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		topic := pubsubClient.Topic(cfg.Jobs.OrdersTopic)
		defer func() {
			topic.Stop()
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		publisher, err = jobs.NewPubSubOrderPublisher(topic)
		if err != nil {
			logger.Fatal("failed to initialise order publisher", zap.Error(err))
		}
	} else {
		logger.Warn("order events disabled: pubsub project or topic not configured")
	}

	container, err := di.NewContainer(ctx, di.ContainerDeps{
		Config:       cfg,
		Repositories: registry,
		Payments:     paymentProvider,
		Functions:    fnClient,
		Publisher:    publisher,
		Logger:       observability.EventLogger(),
	})
	if err != nil {
		logger.Fatal("failed to build service container", zap.Error(err))
	}

	var authenticator *auth.Authenticator
	if cfg.Firebase.ProjectID != "" {
		firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
		if err != nil {
			logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
		}
		authenticator = auth.NewAuthenticator(firebaseVerifier)
	} else {
		logger.Warn("firebase auth disabled: shoppers are identified by session header only")
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(cfg.Firestore.ProjectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}

	cartHandlers := handlers.NewCartHandlers(authenticator, container.Services.Cart)
	couponHandlers := handlers.NewCouponHandlers(container.Services.Coupons)
	shippingHandlers := handlers.NewShippingHandlers(authenticator, registry.Stores(), container.Services.Cart, container.Services.Shipping, container.Services.Quotes, container.Services.QuoteStreams)
	checkoutHandlers := handlers.NewCheckoutHandlers(authenticator, container.Services.Checkout, paymentProvider)
	healthHandlers := handlers.NewHealthHandlers(container.Services.System)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithCouponRoutes(couponHandlers.Routes),
		handlers.WithShippingRoutes(shippingHandlers.Routes),
		handlers.WithCheckoutRoutes(checkoutHandlers.Routes),
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
		serverLogger.Info("storefront api listening")
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

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if err := container.Close(closeCtx); err != nil {
		logger.Warn("container close error", zap.Error(err))
	}
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger) *secrets.Fetcher {
	project := strings.TrimSpace(os.Getenv("SECRET_PROJECT_ID"))
	if project == "" {
		project = strings.TrimSpace(os.Getenv("FIRESTORE_PROJECT_ID"))
	}
	if project == "" {
		return nil
	}
	fetcher, err := secrets.NewFetcher(ctx, project, secrets.WithLogger(logger.Named("secrets")))
	if err != nil {
		logger.Warn("secret fetcher init failed; secret references will not resolve", zap.Error(err))
		return nil
	}
	return fetcher
}

func newHealthRepository(client *firestore.Client, fetcher *secrets.Fetcher) (repositories.HealthRepository, error) {
	checks := make([]repositories.DependencyCheck, 0, 2)
	if client != nil {
		c := client
		checks = append(checks, repositories.DependencyCheck{
			Name:    "firestore",
			Timeout: 1500 * time.Millisecond,
			Check: func(ctx context.Context) error {
				iter := c.Collections(ctx)
				_, err := iter.Next()
				if errors.Is(err, iterator.Done) {
					return nil
				}
				return err
			},
		})
	}
	if fetcher != nil {
		f := fetcher
		checks = append(checks, repositories.DependencyCheck{
			Name:    "secretManager",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				_, err := f.Resolve(ctx, "system/healthz")
				if err == nil {
					return nil
				}
				if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
					return nil
				}
				return err
			},
		})
	}
	if len(checks) == 0 {
		return nil, errors.New("health: no dependency checks configured")
	}
	return repositories.NewDependencyHealthRepository(checks)
}
