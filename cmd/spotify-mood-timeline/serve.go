package main

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-mood-timeline/internal/auth"
	"github.com/justestif/go-spotify-mood-timeline/internal/clustering"
	"github.com/justestif/go-spotify-mood-timeline/internal/config"
	"github.com/justestif/go-spotify-mood-timeline/internal/logger"
	"github.com/justestif/go-spotify-mood-timeline/internal/web"
	webfs "github.com/justestif/go-spotify-mood-timeline/web"
)

func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	d, err := newDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	sessions, users := d.sessionStore()
	d.cleanup(ctx, sessions)

	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		return fmt.Errorf("creating templates filesystem: %w", err)
	}
	static, err := fs.Sub(webfs.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("creating static filesystem: %w", err)
	}

	authenticator := auth.NewSpotifyAuth(cfg.SpotifyID, cfg.SpotifySecret, cfg.RedirectURL)
	libraries := func(ctx context.Context, token *oauth2.Token) web.Library {
		return d.newLibrary(spotify.New(authenticator.Client(ctx, token), spotify.WithRetry(true)))
	}

	server, err := web.NewServer(web.ServerConfig{
		Addr:         cfg.Addr,
		WriteTimeout: cfg.AggregateTimeout + time.Minute,
		Auth:         authenticator,
		Sessions:     sessions,
		Users:        users,
		Libraries:    libraries,
		Vibes:        clustering.DefaultConfig(),
		TemplatesFS:  templates,
		StaticFS:     static,
		Logger:       log,
		Metrics:      d.metrics,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return server.Run()
}

// sessionStore picks the session backend. Users are recorded whenever a
// database is available.
func (d *deps) sessionStore() (web.SessionManager, web.UserRepository) {
	var users web.UserRepository
	if d.database != nil {
		users = d.database.Users()
	}
	if d.cfg.SessionStore == config.BackendPostgres {
		return web.NewDBSessionStore(d.database.Sessions(), d.database.Users()), users
	}
	return web.NewMemorySessionStore(), users
}

type expirer interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// cleanup drops expired sessions and stale cached genres left by earlier runs.
func (d *deps) cleanup(ctx context.Context, sessions web.SessionManager) {
	if e, ok := sessions.(expirer); ok {
		if n, err := e.DeleteExpired(ctx); err != nil {
			d.log.Warn("deleting expired sessions", "error", err)
		} else if n > 0 {
			d.log.Info("deleted expired sessions", "count", n)
		}
	}

	if d.cfg.CacheBackend == config.BackendPostgres {
		cutoff := time.Now().Add(-d.cfg.CacheTTL)
		if n, err := d.database.Genres().DeleteStale(ctx, cutoff); err != nil {
			d.log.Warn("deleting stale genres", "error", err)
		} else if n > 0 {
			d.log.Info("deleted stale genres", "count", n)
		}
	}
}
