package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	DefaultAPIBaseURL     = "http://localhost:5000"
	DefaultBackendTimeout = 15 * time.Second
	DefaultSessionCookie  = "token"
)

type Config struct {
	// APIBaseURL is the external image API root, e.g. http://localhost:5000.
	APIBaseURL string
	// FrontendURL is the origin share links are built on. Empty means the
	// origin of the incoming request.
	FrontendURL        string
	BackendTimeout     time.Duration
	SessionCookie      string
	CORSAllowedOrigins []string
	// TrustProxyHeaders lets X-Forwarded-Proto/Host pick the link origin
	// when FrontendURL is empty.
	TrustProxyHeaders bool
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.WithField("error", err).Info("No .env file loaded, using environment only")
	}

	cfg := &Config{
		APIBaseURL:     strings.TrimRight(getenv("API_BASE_URL", DefaultAPIBaseURL), "/"),
		FrontendURL:    strings.TrimRight(os.Getenv("FRONTEND_URL"), "/"),
		BackendTimeout: DefaultBackendTimeout,
		SessionCookie:  getenv("SESSION_COOKIE", DefaultSessionCookie),
	}

	if raw := os.Getenv("BACKEND_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid BACKEND_TIMEOUT %q: %w", raw, err)
		}
		if timeout <= 0 {
			return nil, fmt.Errorf("invalid BACKEND_TIMEOUT %q: must be positive", raw)
		}
		cfg.BackendTimeout = timeout
	}

	if raw := os.Getenv("TRUST_PROXY_HEADERS"); raw != "" {
		trust, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUST_PROXY_HEADERS %q: %w", raw, err)
		}
		cfg.TrustProxyHeaders = trust
	}
	if cfg.FrontendURL == "" && !cfg.TrustProxyHeaders {
		logrus.Info("FRONTEND_URL is not set; share links use the Host of each request. Set it when running behind a proxy")
	}

	for _, origin := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	logrus.WithFields(logrus.Fields{
		"apiBaseURL":     cfg.APIBaseURL,
		"frontendURL":    cfg.FrontendURL,
		"backendTimeout": cfg.BackendTimeout,
	}).Debug("Configuration loaded")

	return cfg, nil
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
