// Package web provides the HTTP server and web UI for the mood timeline.
package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	spotifyauth "github.com/zmb3/spotify/v2/auth"

	"github.com/justestif/go-spotify-mood-timeline/internal/clustering"
	"github.com/justestif/go-spotify-mood-timeline/internal/logger"
	"github.com/justestif/go-spotify-mood-timeline/internal/metrics"
)

// DefaultWriteTimeout leaves room for a full aggregation.
const DefaultWriteTimeout = 3 * time.Minute

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr         string
	WriteTimeout time.Duration
	Auth         *spotifyauth.Authenticator
	Sessions     SessionManager
	Users        UserRepository // optional
	Libraries    LibraryFactory
	Vibes        clustering.Config
	TemplatesFS  fs.FS
	StaticFS     fs.FS
	Logger       *logger.Logger
	Metrics      *metrics.Recorder // optional; serves /metrics when set
}

// Server is the HTTP server for the web application.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	log      *logger.Logger
}

// NewServer creates a new web server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Auth == nil || cfg.Sessions == nil || cfg.Libraries == nil {
		return nil, errors.New("server needs an authenticator, a session store and a library factory")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	templates, err := NewTemplates(cfg.TemplatesFS)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	handlers := NewHandlers(HandlersConfig{
		Auth:      cfg.Auth,
		Sessions:  cfg.Sessions,
		Users:     cfg.Users,
		Templates: templates,
		Libraries: cfg.Libraries,
		Vibes:     cfg.Vibes,
		Logger:    log,
	})

	s := &Server{
		router:   chi.NewRouter(),
		handlers: handlers,
		log:      log,
	}
	s.setupMiddleware()
	s.setupRoutes(cfg.StaticFS, cfg.Metrics)

	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the server's router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.log))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes(staticFS fs.FS, rec *metrics.Recorder) {
	if staticFS != nil {
		fileServer := http.FileServer(http.FS(staticFS))
		s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if rec != nil {
		s.router.Handle("/metrics", rec.Handler())
	}

	s.router.Get("/", s.handlers.Home)

	s.router.Get("/auth/login", s.handlers.Login)
	s.router.Get("/callback", s.handlers.Callback)
	s.router.Post("/auth/logout", s.handlers.Logout)

	s.router.Group(func(r chi.Router) {
		r.Use(s.handlers.RequireSession)
		r.Get("/dashboard", s.handlers.Dashboard)
		r.Post("/fetch-songs", s.handlers.FetchSongs)
		r.Post("/playlist", s.handlers.SavePlaylist)
	})
}

// requestLogger logs one line per request.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed", time.Since(started),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info("starting server", "url", "http://"+s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and shuts it down gracefully on SIGINT or SIGTERM.
func (s *Server) Run() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
		s.log.Info("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.log.Info("server stopped")
	return nil
}
