package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration.
type Config struct {
	ServerPort     int
	BindAddress    string // interface to listen on, loopback unless overridden
	APIBaseURL     string // Blog API root, including the /api/v1 prefix
	DatabasePath   string
	TokenStore     string // "sqlite" or "memory"
	LogLevel       string
	AppEnv         string
	AllowedOrigins []string
	PostPageSize   int
	// SessionCheck is a cron schedule for revalidating the stored token;
	// empty disables the check.
	SessionCheck string
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "3000"))
	if err != nil {
		return nil, err
	}

	pageSize, err := strconv.Atoi(getEnv("POST_PAGE_SIZE", "10"))
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		return nil, fmt.Errorf("POST_PAGE_SIZE must be positive, got %d", pageSize)
	}

	return &Config{
		ServerPort:     port,
		BindAddress:    strings.TrimSpace(getEnv("BIND_ADDRESS", "127.0.0.1")),
		APIBaseURL:     strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8080/api/v1"), "/"),
		DatabasePath:   getEnv("DATABASE_PATH", "./blog-client.db"),
		TokenStore:     getEnv("TOKEN_STORE", "sqlite"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		PostPageSize:   pageSize,
		SessionCheck:   strings.TrimSpace(getEnv("SESSION_CHECK_SCHEDULE", "@every 15m")),
	}, nil
}

// Addr is the host:port the web server listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.BindAddress, strconv.Itoa(c.ServerPort))
}

// IsProduction reports whether the client runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
