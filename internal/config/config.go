package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"     validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"   validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"       validate:"required"`
	Task      TaskConfig      `mapstructure:"task"       validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// ShutdownTimeoutSeconds bounds how long a graceful shutdown may take.
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"gte=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`

	MaxOpenConns int `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`

	// TokenLifetimeMinutes is the access token lifetime.
	TokenLifetimeMinutes int `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`

	// RefreshTokenLifetimeMinutes is the refresh token lifetime. Refresh
	// tokens outlive access tokens so clients can obtain new token pairs.
	RefreshTokenLifetimeMinutes int `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`

	// BcryptCost controls the work factor for password hashing.
	// Zero means bcrypt.DefaultCost.
	BcryptCost int `mapstructure:"bcrypt_cost" validate:"gte=0,lte=31"`
}

// TaskConfig contains settings for the background task runner.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`
	QueueSize   int `mapstructure:"queue_size"   validate:"required,gt=0"`

	// StuckTaskAgeMinutes is how long a task may sit in the processing state
	// before the stuck-task monitor resets it to pending.
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"required,gt=0"`

	// MaxAttempts caps how many times a failed task is retried before it is
	// marked permanently failed.
	MaxAttempts int `mapstructure:"max_attempts" validate:"required,gt=0"`

	// RetryBaseDelaySeconds is the base delay for exponential backoff between
	// retry attempts.
	RetryBaseDelaySeconds int `mapstructure:"retry_base_delay_seconds" validate:"required,gt=0"`
}

// LLMConfig contains all LLM integration related settings.
// The section is optional; when the API key is empty the server runs with
// AI note enhancement disabled.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	ModelName    string `mapstructure:"model_name"`
	MaxRetries   int    `mapstructure:"max_retries" validate:"gte=0"`
}

// RateLimitConfig contains settings for per-client request throttling.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained request rate allowed per client.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"required,gt=0"`

	// Burst is the instantaneous burst size allowed per client.
	Burst int `mapstructure:"burst" validate:"required,gt=0"`
}
