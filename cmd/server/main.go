package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/stanstork/nestpay-api/internal/config"
	"github.com/stanstork/nestpay-api/internal/handlers"
	"github.com/stanstork/nestpay-api/internal/middleware"
	"github.com/stanstork/nestpay-api/internal/migration"
	"github.com/stanstork/nestpay-api/internal/notification"
	"github.com/stanstork/nestpay-api/internal/occupancy"
	"github.com/stanstork/nestpay-api/internal/repository"
	"github.com/stanstork/nestpay-api/internal/routes"
	"github.com/stanstork/nestpay-api/internal/temporal"
	"github.com/stanstork/nestpay-api/internal/temporal/activities"
	"github.com/stanstork/nestpay-api/internal/temporal/workflows"

	_ "github.com/lib/pq" // PostgreSQL driver
	tc "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

type application struct {
	config        *config.Config
	db            *sql.DB
	logger        zerolog.Logger
	profiles      repository.ProfileRepository
	notifications notification.Service

	temporalClient tc.Client
	temporalWorker worker.Worker
	asyncNotices   *notification.AsyncDispatcher
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	goose.SetLogger(migration.NewGooseAdapter(logger))

	// Load configuration.
	cfg := config.Load()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && level != zerolog.NoLevel {
		zerolog.SetGlobalLevel(level)
	} else if err != nil {
		logger.Warn().Str("log_level", cfg.LogLevel).Msg("Unknown log level, keeping info")
	}

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	if err := migration.RunMigrations(cfg.DatabaseURL, logger); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	app := &application{
		config:   cfg,
		db:       db,
		logger:   logger,
		profiles: repository.NewProfileRepository(db),
	}
	app.notifications = app.newNotificationService()

	dispatcher := app.newDispatcher()
	if app.temporalClient != nil {
		defer app.temporalClient.Close()
	}

	// Initialize the HTTP router and middleware.
	router := app.initRouter(dispatcher)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins(cfg.AllowedOrigins),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler)

	logger.Info().Msg("Application terminated.")
}

func (app *application) newNotificationService() notification.Service {
	var notifiers []notification.Notifier
	if app.config.Email.Enabled() {
		emailNotifier, err := notification.NewEmailNotifier(app.config.Email, app.profiles, app.logger)
		if err != nil {
			app.logger.Fatal().Err(err).Msg("Failed to configure email notifier")
		}
		notifiers = append(notifiers, emailNotifier)
	} else {
		app.logger.Info().Msg("SMTP not configured, email notifications disabled")
	}
	return notification.NewService(repository.NewNotificationRepository(app.db), app.logger, notifiers...)
}

// newDispatcher hands join-request notices to Temporal when enabled and to an
// in-process goroutine otherwise.
func (app *application) newDispatcher() occupancy.Dispatcher {
	if !app.config.Temporal.Enabled {
		app.asyncNotices = notification.NewAsyncDispatcher(app.notifications, app.config.Notifications.Timeout, app.logger)
		return app.asyncNotices
	}

	temporalClient, err := tc.Dial(tc.Options{
		HostPort:  app.config.Temporal.HostPort,
		Namespace: app.config.Temporal.Namespace,
		Logger:    temporal.NewTemporalAdapter(app.logger),
	})
	if err != nil {
		app.logger.Fatal().Err(err).Msg("Unable to create Temporal client")
	}
	app.temporalClient = temporalClient
	app.temporalWorker = app.startTemporalWorker()
	return workflows.NewDispatcher(temporalClient, app.config.Temporal.TaskQueue, app.logger)
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(dispatcher occupancy.Dispatcher) http.Handler {
	// Repositories
	catalog := repository.NewCatalog(app.db)
	store := repository.NewLifecycleStore(app.db)
	reviews := repository.NewReviewRepository(app.db)

	lifecycle := occupancy.NewService(store, catalog, app.profiles, dispatcher, app.logger)

	return routes.NewRouter(routes.Handlers{
		Auth:          handlers.NewAuthHandler(app.profiles, app.config.JWTSecret, app.logger),
		Occupancy:     handlers.NewOccupancyHandler(lifecycle, app.logger),
		Payment:       handlers.NewPaymentHandler(lifecycle, app.logger),
		Property:      handlers.NewPropertyHandler(catalog.PropertyRepository, catalog.UnitRepository, reviews, lifecycle, app.logger),
		Notification:  handlers.NewNotificationHandler(app.notifications, app.logger),
		JoinRateLimit: middleware.NewKeyedLimiter(app.config.RateLimit.JoinRequestsPerMinute, app.config.RateLimit.Burst),
	})
}

func (app *application) startTemporalWorker() worker.Worker {
	taskQueue := app.config.Temporal.TaskQueue
	if taskQueue == "" {
		taskQueue = temporal.TaskQueueName
	}

	w := worker.New(app.temporalClient, taskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.JoinRequestNotificationWorkflow)
	w.RegisterActivity(&activities.Activities{Notifications: app.notifications})

	// Start the worker in a goroutine so it doesn't block.
	go func() {
		app.logger.Info().Str("task_queue", taskQueue).Msg("Starting Temporal worker...")
		if err := w.Run(worker.InterruptCh()); err != nil {
			app.logger.Fatal().Err(err).Msg("Unable to start worker")
		}
	}()

	return w
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler) {
	server := &http.Server{
		Addr:              ":" + app.config.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		app.logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		app.logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		app.logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		app.logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		app.logger.Info().Msg("HTTP server shutdown complete.")
	}

	if app.temporalWorker != nil {
		app.logger.Info().Msg("Stopping Temporal worker...")
		app.temporalWorker.Stop()
		app.logger.Info().Msg("Temporal worker stopped.")
	}
	if app.asyncNotices != nil {
		app.logger.Info().Msg("Waiting for pending notifications...")
		app.asyncNotices.Wait()
	}
}
