package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv  string
	AppPort string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string

	JWTSecret         string
	AdminEmail        string
	AdminPasswordHash string
	CORSOrigins       []string

	Ledger LedgerConfig
	Sync   SyncConfig
	Email  EmailConfig
}

type LedgerConfig struct {
	BaseURL        string
	OrganizationID string
	AccessToken    string
	Timeout        time.Duration
}

type SyncConfig struct {
	RetryCeiling   int
	Workers        int
	ItemTimeout    time.Duration
	BatchSize      int
	Lease          time.Duration
	DispatchBuffer int
}

type EmailConfig struct {
	APIURL     string
	APIKey     string
	From       string
	DailyLimit int
	Timeout    time.Duration
	ClaimLease time.Duration
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:  envOrDefault("APP_ENV", "development"),
		AppPort: envOrDefault("APP_PORT", "8080"),

		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     envOrDefault("DB_PORT", "5432"),
		DBSSLMode:  envOrDefault("DB_SSLMODE", "disable"),

		JWTSecret:         os.Getenv("JWT_SECRET"),
		AdminEmail:        os.Getenv("ADMIN_EMAIL"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		CORSOrigins:       splitList(os.Getenv("CORS_ORIGINS")),

		Ledger: LedgerConfig{
			BaseURL:        strings.TrimRight(os.Getenv("LEDGER_BASE_URL"), "/"),
			OrganizationID: os.Getenv("LEDGER_ORGANIZATION_ID"),
			AccessToken:    os.Getenv("LEDGER_ACCESS_TOKEN"),
			Timeout:        envSeconds("LEDGER_TIMEOUT_SECONDS", 15*time.Second),
		},
		Sync: SyncConfig{
			RetryCeiling:   envInt("SYNC_RETRY_CEILING", 5),
			Workers:        envInt("SYNC_WORKERS", 4),
			ItemTimeout:    envSeconds("SYNC_ITEM_TIMEOUT_SECONDS", 20*time.Second),
			BatchSize:      envInt("SYNC_BATCH_SIZE", 100),
			Lease:          envSeconds("SYNC_LEASE_SECONDS", 5*time.Minute),
			DispatchBuffer: envInt("SYNC_DISPATCH_BUFFER", 64),
		},
		Email: EmailConfig{
			APIURL:     strings.TrimRight(os.Getenv("EMAIL_API_URL"), "/"),
			APIKey:     os.Getenv("EMAIL_API_KEY"),
			From:       os.Getenv("EMAIL_FROM"),
			DailyLimit: envInt("EMAIL_DAILY_LIMIT", 100),
			Timeout:    envSeconds("EMAIL_TIMEOUT_SECONDS", 15*time.Second),
			ClaimLease: envSeconds("EMAIL_CLAIM_LEASE_SECONDS", 15*time.Minute),
		},
	}

	if cfg.DBHost == "" {
		return nil, errors.New("DB_HOST is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}

	return cfg, nil
}

// DSN builds the lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envSeconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
