package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apimiddleware "github.com/companion-app/companion-api/internal/api/middleware"
	"github.com/companion-app/companion-api/internal/config"
	"github.com/companion-app/companion-api/internal/events"
	"github.com/companion-app/companion-api/internal/generation"
	"github.com/companion-app/companion-api/internal/platform/gemini"
	"github.com/companion-app/companion-api/internal/platform/postgres"
	"github.com/companion-app/companion-api/internal/service"
	"github.com/companion-app/companion-api/internal/service/auth"
	"github.com/companion-app/companion-api/internal/store"
	"github.com/companion-app/companion-api/internal/task"
	"golang.org/x/crypto/bcrypt"
)

// application holds the shared application dependencies so wiring and
// cleanup live in one place.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userStore store.UserStore
	noteStore store.NoteStore
	taskStore task.TaskStore

	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	generator        generation.Generator

	authService service.AuthService
	userService service.UserService
	noteService service.NoteService
	taskService service.TaskService

	eventEmitter *events.InMemoryEventEmitter
	taskRunner   *task.TaskRunner

	cleanupScheduler *task.CleanupScheduler
	rateLimiters     []*apimiddleware.RateLimiter
}

// newApplication wires all dependencies. The LLM generator is optional:
// when no API key is configured the server runs with AI note processing
// disabled and the note service reports ErrAIDisabled for enhance and
// summarize requests.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes,
		"refresh_token_lifetime_minutes", cfg.Auth.RefreshTokenLifetimeMinutes)

	app.passwordVerifier = auth.NewBcryptVerifier()

	bcryptCost := cfg.Auth.BcryptCost
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	app.userStore = postgres.NewPostgresUserStore(db, bcryptCost, logger)
	app.noteStore = postgres.NewPostgresNoteStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	if cfg.LLM.GeminiAPIKey != "" {
		app.generator, err = gemini.NewGeminiGenerator(
			ctx,
			logger.With("component", "llm_generator"),
			cfg.LLM,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
		}
		logger.Info("LLM generator initialized", "model", cfg.LLM.ModelName)
	} else {
		logger.Warn("no LLM API key configured, AI note processing disabled")
	}

	registry := task.NewRegistry()
	registry.Register(task.TaskTypeCleanup, task.NewCleanupFactory(app.taskStore))
	if app.generator != nil {
		registry.Register(task.TaskTypeNoteEnhancement,
			task.NewNoteEnhancementFactory(app.noteStore, app.generator))
		registry.Register(task.TaskTypeNoteSummary,
			task.NewNoteSummaryFactory(app.noteStore, app.generator))
	}

	app.taskRunner = task.NewTaskRunner(app.taskStore, registry, task.TaskRunnerConfig{
		WorkerCount:  cfg.Task.WorkerCount,
		QueueSize:    cfg.Task.QueueSize,
		StuckTaskAge: time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute,
		Retry: task.RetryPolicy{
			MaxAttempts: cfg.Task.MaxAttempts,
			BaseDelay:   time.Duration(cfg.Task.RetryBaseDelaySeconds) * time.Second,
		},
	}, logger)
	if err := app.taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	app.cleanupScheduler = task.NewCleanupScheduler(
		app.taskRunner, app.taskStore,
		task.DefaultCleanupInterval, task.DefaultCleanupAge, logger)
	app.cleanupScheduler.Start()

	// The emitter feeds note AI requests into the task runner. Without a
	// generator there is nothing to handle them, so the note service gets
	// no emitter and rejects AI requests up front.
	var noteEmitter events.EventEmitter
	if app.generator != nil {
		app.eventEmitter = events.NewInMemoryEventEmitter(logger)
		app.eventEmitter.RegisterHandler(
			task.NewTaskRequestHandler(app.taskRunner, registry,
				logger.With("component", "task_request_handler")))
		noteEmitter = app.eventEmitter
	}

	app.authService = service.NewAuthService(
		app.userStore, app.jwtService, app.passwordVerifier, db, logger)
	app.userService = service.NewUserService(
		app.userStore, app.passwordVerifier, db, logger)
	app.noteService = service.NewNoteService(app.noteStore, noteEmitter, db, logger)
	app.taskService = service.NewTaskService(app.taskStore, app.taskRunner, logger)

	logger.Info("application initialized")
	return app, nil
}

// Run starts the HTTP server and blocks until shutdown completes.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops background processing and releases resources. Called once
// the HTTP server has finished shutting down.
func (app *application) cleanup() {
	if app.cleanupScheduler != nil {
		app.cleanupScheduler.Stop()
	}

	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	for _, rl := range app.rateLimiters {
		rl.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
