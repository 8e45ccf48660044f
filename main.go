package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"imageshare-web/backend"
	"imageshare-web/config"
	"imageshare-web/core"
	"imageshare-web/handlers/api/auth"
	"imageshare-web/handlers/api/images"
	"imageshare-web/handlers/api/shares"
	"imageshare-web/handlers/views"
	authMiddleware "imageshare-web/middleware"
	"imageshare-web/share"
	"imageshare-web/stores"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type dependencies struct {
	client *backend.Client
	store  core.ShareStore
	clock  core.Clock
}

func localOrigin(r *http.Request, origin string) bool {
	if origin == "" {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	switch parsed.Scheme {
	case "http", "https":
		switch parsed.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			return true
		}
	}

	return false
}

func setupRouter(cfg *config.Config, deps dependencies) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.TrustProxyHeaders {
		r.Use(authMiddleware.ForwardedOrigin)
	}

	corsOptions := cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowOriginFunc:  localOrigin,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(cfg.CORSAllowedOrigins) > 0 {
		corsOptions.AllowOriginFunc = nil
	}
	r.Use(cors.Handler(corsOptions))

	issuer := share.NewIssuer(deps.client, deps.store, deps.clock, cfg.FrontendURL)
	resolver := share.NewResolver(deps.client)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})

	r.Handle("/static/*", views.HandleStatic())

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.OptionalSession(cfg.SessionCookie))

		r.Get("/share/id/{id}", views.HandleByID(resolver))
		r.Get("/share/inline/{payload}", views.HandleInline(resolver))
	})

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Session(cfg.SessionCookie))

		r.Route("/api/auth", func(r chi.Router) {
			r.Post("/signup", auth.HandleSignup(deps.client))
			r.Post("/login", auth.HandleLogin(deps.client, cfg.SessionCookie))
			r.Post("/logout", auth.HandleLogout(cfg.SessionCookie))
			r.With(authMiddleware.RequireCredential).Get("/me", auth.HandleMe(deps.client))
		})

		r.Route("/api/images", func(r chi.Router) {
			r.Get("/public", images.HandlePublic(deps.client))
			r.Get("/search", images.HandleSearch(deps.client))
			r.With(authMiddleware.RequireCredential).Get("/my", images.HandleMine(deps.client))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", images.HandleGet(deps.client))
				r.Post("/share", shares.HandleIssue(deps.client, deps.client, issuer))
				r.With(authMiddleware.RequireCredential).Delete("/share", shares.HandleRevoke(deps.client, issuer))
			})
		})

		r.With(authMiddleware.RequireCredential).Get("/api/shares", shares.HandleList(deps.client, deps.store))
	})

	return r
}

func waitForShutdown(srv *http.Server) {
	signalC := make(chan os.Signal, 1)
	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	s := <-signalC

	logrus.WithField("signal", s.String()).Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithField("error", err).Error("Graceful shutdown failed")
	}
}

func main() {
	// Define a log level flag
	logLevel := flag.String("loglevel", "info", "Set the logging level: debug, info, warn, error, fatal, panic")
	listenAddr := flag.String("listen", ":3000", "Set the server listen address")
	flag.Parse()

	// Set the log level
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		os.Exit(1)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logrus.WithField("error", err).Fatal("Invalid configuration")
	}

	deps := dependencies{
		client: backend.NewClient(cfg.APIBaseURL, cfg.BackendTimeout, authMiddleware.Credentials),
		store:  stores.GetStore(),
		clock:  core.SystemClock{},
	}

	srv := &http.Server{
		Addr:              *listenAddr,
		Handler:           setupRouter(cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logrus.WithFields(logrus.Fields{
		"addr":    *listenAddr,
		"backend": cfg.APIBaseURL,
	}).Info("starting server")
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(srv)
}
