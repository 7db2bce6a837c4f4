package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Gate     GateConfig
	Platform PlatformConfig
	Database DatabaseConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
}

// GateConfig carries the access-gate policy and secrets.
type GateConfig struct {
	AdminID           string
	AdminPasswordHash string // bcrypt
	SessionSecret     string
	SessionTTL        time.Duration
	MaxAttempts       int
	AttemptWindow     time.Duration
	BlockDuration     time.Duration
	DelayMin          time.Duration
	DelayMax          time.Duration
	MaxInputLength    int
	AttemptStore      string // "memory" or "postgres"
	CleanupInterval   time.Duration
}

// PlatformConfig points at the training-platform backend.
type PlatformConfig struct {
	BaseURL        string
	APIToken       string
	AdminEmail     string
	RequestTimeout time.Duration
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	sessionSecret := getEnv("SESSION_SECRET", "")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	adminID := getEnv("ADMIN_ID", "")
	if adminID == "" {
		return nil, fmt.Errorf("ADMIN_ID is required")
	}

	adminPasswordHash := getEnv("ADMIN_PASSWORD_HASH", "")
	if adminPasswordHash == "" {
		return nil, fmt.Errorf("ADMIN_PASSWORD_HASH is required")
	}

	platformURL := getEnv("PLATFORM_BASE_URL", "")
	if platformURL == "" {
		return nil, fmt.Errorf("PLATFORM_BASE_URL is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: parseCommaList(getEnv("TRUSTED_PROXIES", "")),
		},
		Gate: GateConfig{
			AdminID:           adminID,
			AdminPasswordHash: adminPasswordHash,
			SessionSecret:     sessionSecret,
			SessionTTL:        getEnvAsDuration("SESSION_TTL", 2*time.Hour),
			MaxAttempts:       getEnvAsInt("GATE_MAX_ATTEMPTS", 3),
			AttemptWindow:     getEnvAsDuration("GATE_ATTEMPT_WINDOW", 15*time.Minute),
			BlockDuration:     getEnvAsDuration("GATE_BLOCK_DURATION", 15*time.Minute),
			DelayMin:          getEnvAsDuration("GATE_DELAY_MIN", 1*time.Second),
			DelayMax:          getEnvAsDuration("GATE_DELAY_MAX", 2*time.Second),
			MaxInputLength:    getEnvAsInt("GATE_MAX_INPUT_LENGTH", 50),
			AttemptStore:      getEnv("GATE_ATTEMPT_STORE", "memory"),
			CleanupInterval:   getEnvAsDuration("GATE_CLEANUP_INTERVAL", 1*time.Hour),
		},
		Platform: PlatformConfig{
			BaseURL:        strings.TrimRight(platformURL, "/"),
			APIToken:       getEnv("PLATFORM_API_TOKEN", ""),
			AdminEmail:     getEnv("PLATFORM_ADMIN_EMAIL", ""),
			RequestTimeout: getEnvAsDuration("PLATFORM_REQUEST_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "backoffice"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 10)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 2)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
	}

	if cfg.Gate.AttemptStore != "memory" && cfg.Gate.AttemptStore != "postgres" {
		return nil, fmt.Errorf("GATE_ATTEMPT_STORE must be \"memory\" or \"postgres\" (got %q)", cfg.Gate.AttemptStore)
	}
	if cfg.Gate.AttemptStore == "postgres" && cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required when GATE_ATTEMPT_STORE=postgres")
	}
	if cfg.Gate.DelayMax < cfg.Gate.DelayMin {
		return nil, fmt.Errorf("GATE_DELAY_MAX must not be smaller than GATE_DELAY_MIN")
	}

	if err := validateSessionSecret(sessionSecret, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSessionSecret enforces minimum security standards for the signing secret
func validateSessionSecret(secret, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires stronger secret (256 bits)
	}

	if len(secret) < minLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("SESSION_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseCommaList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{} // Default to no origins in production
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
