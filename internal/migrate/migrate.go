// Package migrate wraps goose so the server's -migrate flag and the
// companionctl migration commands share one implementation.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// TableName is the table goose uses to track applied migrations.
const TableName = "goose_db_version"

// pingTimeout bounds the connectivity check before running a command.
const pingTimeout = 5 * time.Second

// Commands lists the supported migration commands.
var Commands = []string{"up", "down", "status", "version", "reset", "create"}

// Runner executes goose migration commands against a migrations directory.
type Runner struct {
	dir    string
	logger *slog.Logger
}

// NewRunner creates a Runner for the given migrations directory.
func NewRunner(dir string, logger *slog.Logger) *Runner {
	return &Runner{
		dir:    dir,
		logger: logger.With("component", "migrations"),
	}
}

// Run executes one migration command. The name argument is only used by
// the create command. Each invocation gets a correlation ID so its logs
// can be traced as one operation.
func (r *Runner) Run(ctx context.Context, dbURL, command, name string) error {
	if !isKnownCommand(command) {
		return fmt.Errorf("unknown migration command %q (expected one of %s)",
			command, strings.Join(Commands, ", "))
	}
	if dbURL == "" {
		return fmt.Errorf("database URL is empty: check your configuration")
	}

	log := r.logger.With(
		"correlation_id", uuid.New().String(),
		"command", command)

	dir, err := r.resolveDir()
	if err != nil {
		return err
	}

	log.Info("starting migration operation",
		"url", MaskDatabaseURL(dbURL),
		"dir", dir)

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close database connection", "error", closeErr)
		}
	}()

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	goose.SetLogger(&slogGooseLogger{log: log})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	goose.SetTableName(TableName)

	start := time.Now()
	switch command {
	case "up":
		err = goose.Up(db, dir)
	case "down":
		err = goose.Down(db, dir)
	case "status":
		err = goose.Status(db, dir)
	case "version":
		err = goose.Version(db, dir)
	case "reset":
		err = goose.Reset(db, dir)
	case "create":
		if name == "" {
			return fmt.Errorf("migration name is required for the create command")
		}
		err = goose.Create(db, dir, name, "sql")
	}
	if err != nil {
		return fmt.Errorf("migration command %q failed: %w", command, err)
	}

	log.Info("migration operation completed",
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// resolveDir locates the migrations directory, trying the configured path
// and then the repository-root layout so the binary works from both the
// project root and a subdirectory.
func (r *Runner) resolveDir() (string, error) {
	if directoryExists(r.dir) {
		return r.dir, nil
	}
	alt := filepath.Join("..", "..", r.dir)
	if directoryExists(alt) {
		return alt, nil
	}
	return "", fmt.Errorf("migrations directory not found at %s or %s", r.dir, alt)
}

func isKnownCommand(command string) bool {
	for _, c := range Commands {
		if c == command {
			return true
		}
	}
	return false
}

func directoryExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// MaskDatabaseURL masks the password in a database URL for safe logging.
// The mask is spliced into the original string rather than re-serialized
// through url.URL, which would percent-encode it.
func MaskDatabaseURL(dbURL string) string {
	parsed, err := url.Parse(dbURL)
	if err != nil {
		return "invalid-url"
	}
	if parsed.User == nil {
		return dbURL
	}
	at := strings.LastIndex(dbURL, "@")
	if at < 0 {
		return dbURL
	}
	return parsed.Scheme + "://" + parsed.User.Username() + ":****" + dbURL[at:]
}

// slogGooseLogger adapts goose's logger interface to slog. Fatalf does not
// exit; errors propagate back to the caller instead.
type slogGooseLogger struct {
	log *slog.Logger
}

func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
