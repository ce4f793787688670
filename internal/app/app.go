// Package app assembles the Verbfy server from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/adapter/cache/redis"
	"github.com/cemonal1/Verbfy-sub006/internal/adapter/email"
	"github.com/cemonal1/Verbfy-sub006/internal/adapter/httpapi"
	"github.com/cemonal1/Verbfy-sub006/internal/adapter/livekit"
	natsadapter "github.com/cemonal1/Verbfy-sub006/internal/adapter/messaging/nats"
	"github.com/cemonal1/Verbfy-sub006/internal/adapter/payment/stripe"
	"github.com/cemonal1/Verbfy-sub006/internal/adapter/repository/mongodb"
	"github.com/cemonal1/Verbfy-sub006/internal/adapter/storage/s3"
	"github.com/cemonal1/Verbfy-sub006/internal/adapter/websocket"
	"github.com/cemonal1/Verbfy-sub006/internal/auth"
	"github.com/cemonal1/Verbfy-sub006/internal/config"
	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/errtrack"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/metrics"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/tracer"
	"github.com/cemonal1/Verbfy-sub006/internal/usecase"

	"github.com/nats-io/nats.go"
	goredis "github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type App struct {
	cfg    *config.Config
	log    *logger.Logger
	server *http.Server

	metricsServer *http.Server
	tracer        *sdktrace.TracerProvider
	reporter      errtrack.Reporter
	hub           *websocket.Hub
	subscriber    *natsadapter.Subscriber

	mongoClient *mongo.Client
	redisClient *goredis.Client
	natsConn    *nats.Conn
}

type repositories struct {
	users         *mongodb.UserRepository
	availability  *mongodb.AvailabilityRepository
	reservations  *mongodb.ReservationRepository
	lessons       *mongodb.LessonRepository
	materials     *mongodb.MaterialRepository
	organizations *mongodb.OrganizationRepository
	roles         *mongodb.RoleRepository
	audit         *mongodb.AuditLogRepository
	notifications *mongodb.NotificationRepository
	payments      *mongodb.PaymentRepository
}

func newRepositories(db *mongo.Database, cfg *config.Config, log *logger.Logger) (*repositories, error) {
	var (
		r   repositories
		err error
	)
	if r.users, err = mongodb.NewUserRepository(db, log); err != nil {
		return nil, err
	}
	if r.availability, err = mongodb.NewAvailabilityRepository(db, log); err != nil {
		return nil, err
	}
	if r.reservations, err = mongodb.NewReservationRepository(db, log); err != nil {
		return nil, err
	}
	if r.lessons, err = mongodb.NewLessonRepository(db, log); err != nil {
		return nil, err
	}
	if r.materials, err = mongodb.NewMaterialRepository(db, log); err != nil {
		return nil, err
	}
	if r.organizations, err = mongodb.NewOrganizationRepository(db, log); err != nil {
		return nil, err
	}
	if r.roles, err = mongodb.NewRoleRepository(db, log); err != nil {
		return nil, err
	}
	if r.audit, err = mongodb.NewAuditLogRepository(db, cfg.Audit.RetentionDays, log); err != nil {
		return nil, err
	}
	if r.notifications, err = mongodb.NewNotificationRepository(db, log); err != nil {
		return nil, err
	}
	if r.payments, err = mongodb.NewPaymentRepository(db, log); err != nil {
		return nil, err
	}
	return &r, nil
}

// BookingPolicy converts booking settings into the usecase policy.
func BookingPolicy(cfg config.BookingConfig) (usecase.BookingPolicy, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
			return usecase.BookingPolicy{}, fmt.Errorf("booking.timezone %q: %w", cfg.Timezone, err)
		}
	}
	return usecase.BookingPolicy{
		Rules: domain.BookingRules{
			Location:    loc,
			MinDuration: cfg.MinDuration,
			MaxDuration: cfg.MaxDuration,
			MinLeadTime: cfg.MinLeadTime,
		},
		SlotStep:     cfg.SlotStep,
		MaxRangeDays: cfg.MaxRangeDays,
		LockTTL:      cfg.LockTTL,
	}, nil
}

func New(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (*App, error) {
	a := &App{cfg: cfg, log: appLogger}
	ok := false
	defer func() {
		if !ok {
			a.closeConnections(context.Background())
		}
	}()

	a.tracer = tracer.InitTracer(cfg.ServiceName, cfg.Tracing.OTLPEndpoint, appLogger)
	a.reporter = errtrack.New(errtrack.Config{
		Token:       cfg.Rollbar.Token,
		Environment: cfg.Environment,
		CodeVersion: cfg.Rollbar.CodeVersion,
		ServerHost:  cfg.ServiceName,
	})
	metricsManager := metrics.NewMetricsManager(cfg.ServiceName)
	a.metricsServer = metrics.NewMetricsServer(cfg.Metrics.Port, appLogger, metricsManager.Registry)

	appLogger.Info("Connecting to MongoDB...")
	var err error
	if a.mongoClient, err = mongodb.NewClient(ctx, cfg.Mongo); err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB client: %w", err)
	}
	appLogger.Info("Connecting to Redis...")
	if a.redisClient, err = redis.NewClient(ctx, cfg.Redis, appLogger); err != nil {
		return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
	}
	appLogger.Info("Connecting to NATS...")
	if a.natsConn, err = natsadapter.NewConnection(cfg.NATS, cfg.ServiceName, appLogger); err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	storage, err := s3.NewStorage(ctx, cfg.Storage, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}

	var mailer usecase.EmailSender
	if cfg.SMTP.Host == "" {
		appLogger.Warn("SMTP is not configured, emails will only be logged")
		mailer = email.NewLogSender(appLogger)
	} else if mailer, err = email.NewSMTPSender(cfg.SMTP, appLogger); err != nil {
		return nil, fmt.Errorf("failed to initialize SMTP sender: %w", err)
	}

	var rooms usecase.RoomTokenIssuer = disabledRooms{}
	if issuer, err := livekit.NewTokenIssuer(cfg.LiveKit); err == nil {
		rooms = issuer
	} else {
		appLogger.Warn("LiveKit is not configured, lesson rooms are unavailable", zap.Error(err))
	}

	var gateway usecase.PaymentGateway = disabledGateway{}
	if gw, err := stripe.NewGateway(cfg.Stripe, appLogger); err == nil {
		gateway = gw
	} else {
		appLogger.Warn("Stripe is not configured, payments are unavailable", zap.Error(err))
	}

	policy, err := BookingPolicy(cfg.Booking)
	if err != nil {
		return nil, err
	}

	repos, err := newRepositories(a.mongoClient.Database(cfg.Mongo.Database), cfg, appLogger)
	if err != nil {
		return nil, err
	}

	cache := redis.NewCache(a.redisClient, appLogger)
	publisher := natsadapter.NewPublisher(a.natsConn, cfg.NATS.SubjectPrefix, appLogger)
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	a.hub = websocket.NewHub(cfg.HTTP.AllowedOrigins, appLogger)

	auditUC := usecase.NewAuditUsecase(repos.audit, appLogger)
	roleUC := usecase.NewRoleUsecase(repos.roles, cache, auditUC, appLogger)
	if err := roleUC.EnsureSystemRoles(ctx); err != nil {
		return nil, fmt.Errorf("failed to seed system roles: %w", err)
	}
	notificationUC := usecase.NewNotificationUsecase(repos.notifications, repos.users, a.hub, mailer, metricsManager, appLogger)

	services := httpapi.Services{
		Tokens: tokens,
		Auth: usecase.NewAuthUsecase(repos.users, tokens, redis.NewTokenStore(a.redisClient), mailer, auditUC,
			cfg.FrontendURL, cfg.JWT.ResetTTL, appLogger),
		Users:        usecase.NewUserUsecase(repos.users, cache, auditUC, appLogger),
		Availability: usecase.NewAvailabilityUsecase(repos.availability, repos.reservations, repos.users, policy, appLogger),
		Reservations: usecase.NewReservationUsecase(repos.reservations, repos.lessons, repos.users, repos.availability,
			redis.NewLocker(a.redisClient), publisher, auditUC, metricsManager, policy, appLogger),
		Sessions: usecase.NewSessionUsecase(repos.reservations, repos.lessons, repos.users, rooms, metricsManager,
			cfg.LiveKit.EarlyJoin, cfg.LiveKit.TokenGrace, appLogger),
		Lessons: usecase.NewLessonUsecase(repos.lessons, appLogger),
		Materials: usecase.NewMaterialUsecase(repos.materials, storage, auditUC, metricsManager,
			cfg.Storage.MaxUploadSize, cfg.Storage.PresignTTL, appLogger),
		Organizations: usecase.NewOrganizationUsecase(repos.organizations, repos.users, auditUC, appLogger),
		Notifications: notificationUC,
		Payments: usecase.NewPaymentUsecase(repos.payments, repos.reservations, gateway, publisher, auditUC, metricsManager,
			cfg.Stripe.Currency, appLogger),
		Roles:  roleUC,
		Audit:  auditUC,
		Stream: a.hub,
	}

	a.subscriber = natsadapter.NewSubscriber(a.natsConn, cfg.NATS.SubjectPrefix, notificationUC, appLogger)

	handler := httpapi.NewHandler(services, a.reporter, appLogger)
	router := httpapi.NewRouter(handler, httpapi.RouterConfig{
		ServiceName:    cfg.ServiceName,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Observer:       metricsManager,
		Reporter:       a.reporter,
		Health: map[string]httpapi.HealthCheck{
			"mongo": func(ctx context.Context) error { return a.mongoClient.Ping(ctx, readpref.Primary()) },
			"redis": func(ctx context.Context) error { return a.redisClient.Ping(ctx).Err() },
			"nats":  func(context.Context) error { return natsStatus(a.natsConn) },
		},
	}, appLogger)

	a.server = &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	ok = true
	appLogger.Info("Application initialized")
	return a, nil
}

func natsStatus(conn *nats.Conn) error {
	if conn.IsConnected() {
		return nil
	}
	return fmt.Errorf("nats connection is %s", conn.Status())
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully.
func (a *App) Run() error {
	if err := a.subscriber.Start(); err != nil {
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		a.log.Info("Starting HTTP server", zap.String("address", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	if a.metricsServer != nil {
		go func() {
			a.log.Info("Starting metrics server", zap.String("address", a.metricsServer.Addr))
			if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	var runErr error
	select {
	case sig := <-quit:
		a.log.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case runErr = <-errCh:
		a.log.Error("Server failed, shutting down", zap.Error(runErr))
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout+5*time.Second)
	defer cancel()
	a.shutdown(ctx)
	return runErr
}

func (a *App) shutdown(ctx context.Context) {
	if err := a.server.Shutdown(ctx); err != nil {
		a.log.Error("Error during HTTP server shutdown", zap.Error(err))
	} else {
		a.log.Info("HTTP server stopped")
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			a.log.Error("Error during metrics server shutdown", zap.Error(err))
		}
	}
	a.subscriber.Stop()
	a.hub.Close()
	a.closeConnections(ctx)
	a.log.Info("Application shut down successfully")
}

func (a *App) closeConnections(ctx context.Context) {
	if a.natsConn != nil {
		a.natsConn.Close()
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Error("Error closing Redis client", zap.Error(err))
		}
	}
	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(ctx); err != nil {
			a.log.Error("Error disconnecting from MongoDB", zap.Error(err))
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.log.Error("Error shutting down tracer", zap.Error(err))
		}
	}
	if a.reporter != nil {
		_ = a.reporter.Close()
	}
}
