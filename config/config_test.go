package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"API_BASE_URL", "FRONTEND_URL", "BACKEND_TIMEOUT", "SESSION_COOKIE", "CORS_ALLOWED_ORIGINS", "TRUST_PROXY_HEADERS"} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.APIBaseURL != DefaultAPIBaseURL {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.FrontendURL != "" {
		t.Errorf("FrontendURL = %q, want empty", cfg.FrontendURL)
	}
	if cfg.BackendTimeout != DefaultBackendTimeout {
		t.Errorf("BackendTimeout = %v", cfg.BackendTimeout)
	}
	if cfg.SessionCookie != DefaultSessionCookie {
		t.Errorf("SessionCookie = %q", cfg.SessionCookie)
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_BASE_URL", "https://api.example.com/")
	t.Setenv("FRONTEND_URL", "https://gallery.example.com/")
	t.Setenv("BACKEND_TIMEOUT", "3s")
	t.Setenv("SESSION_COOKIE", "sid")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.APIBaseURL != "https://api.example.com" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.FrontendURL != "https://gallery.example.com" {
		t.Errorf("FrontendURL = %q", cfg.FrontendURL)
	}
	if cfg.BackendTimeout != 3*time.Second {
		t.Errorf("BackendTimeout = %v", cfg.BackendTimeout)
	}
	if cfg.SessionCookie != "sid" {
		t.Errorf("SessionCookie = %q", cfg.SessionCookie)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_InvalidTimeout(t *testing.T) {
	testCases := []string{"soon", "-1s", "0s"}

	for _, raw := range testCases {
		t.Run(raw, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("BACKEND_TIMEOUT", raw)
			if _, err := Load(); err == nil {
				t.Errorf("Load() accepted BACKEND_TIMEOUT=%q", raw)
			}
		})
	}
}

func TestLoad_TrustProxyHeaders(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.TrustProxyHeaders {
		t.Error("proxy headers must not be trusted by default")
	}

	t.Setenv("TRUST_PROXY_HEADERS", "true")
	if cfg, err = Load(); err != nil || !cfg.TrustProxyHeaders {
		t.Errorf("Load() = %+v, %v; want TrustProxyHeaders", cfg, err)
	}

	t.Setenv("TRUST_PROXY_HEADERS", "sometimes")
	if _, err := Load(); err == nil {
		t.Error("Load() accepted an invalid TRUST_PROXY_HEADERS")
	}
}
