package config // package config loads application configuration from environment variables

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Remote backends selectable through REMOTE_BACKEND.
const (
	BackendNone  = "none"  // run offline, the in-memory directory is the only store
	BackendRedis = "redis" // documents in Redis
	BackendMySQL = "mysql" // relational tables in MySQL
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable; optional ones carry a default.
type Config struct {
	Env          string        // application environment (dev, test, prod)
	Port         string        // HTTP port to listen on
	LogLevel     string        // logrus level name
	JWTSecret    string        // secret used to sign access tokens
	AccessTTLMin int           // access token time-to-live in minutes
	Remote       string        // none, redis or mysql
	RemoteTTL    time.Duration // bound on every remote call
	SyncTimeout  time.Duration // bound on calls the booking service waits for

	DBUser string
	DBPass string
	DBHost string
	DBPort string
	DBName string

	RedisPrefix string // key namespace for the redis backend

	RabbitURL      string // empty disables event publishing and the consumer
	BookingLogPath string // file the booking consumer appends to

	Rows        int  // seat rows of new screenings
	SeatsPerRow int  // seats per row of new screenings
	Seed        bool // install sample users and movies at start
}

// Load reads a .env file when present, then the environment. It fails when a
// required variable is missing or REMOTE_BACKEND is unknown.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env file is fine

	cfg := Config{
		Env:            envStr("APP_ENV", "dev"),
		Port:           envStr("APP_PORT", envStr("PORT", "8080")),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 60),
		Remote:         envStr("REMOTE_BACKEND", BackendNone),
		RemoteTTL:      envDur("REMOTE_WRITE_TIMEOUT", 10*time.Second),
		SyncTimeout:    envDur("REMOTE_TIMEOUT", 10*time.Second),
		DBUser:         envStr("DB_USER", "root"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         envStr("DB_HOST", "127.0.0.1"),
		DBPort:         envStr("DB_PORT", "3306"),
		DBName:         envStr("DB_NAME", "cinema"),
		RedisPrefix:    envStr("REDIS_PREFIX", "cinema"),
		RabbitURL:      os.Getenv("RABBITMQ_URL"),
		BookingLogPath: envStr("BOOKING_LOG_PATH", "logs/booking.log"),
		Rows:           envInt("SCREENING_ROWS", 6),
		SeatsPerRow:    envInt("SCREENING_SEATS_PER_ROW", 10),
		Seed:           envBool("SEED_ON_START", true),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("missing required env var: JWT_SECRET")
	}
	switch cfg.Remote {
	case BackendNone, BackendRedis, BackendMySQL:
	default:
		return Config{}, fmt.Errorf("REMOTE_BACKEND must be none, redis or mysql, got %q", cfg.Remote)
	}
	if cfg.Rows < 1 || cfg.SeatsPerRow < 1 {
		return Config{}, fmt.Errorf("screening layout must be positive, got %dx%d", cfg.Rows, cfg.SeatsPerRow)
	}
	return cfg, nil
}

// Development reports whether the app runs in a local environment.
func (c Config) Development() bool { return c.Env == "dev" || c.Env == "test" }
