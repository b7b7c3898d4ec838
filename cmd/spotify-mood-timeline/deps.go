package main

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-spotify-mood-timeline/internal/config"
	"github.com/justestif/go-spotify-mood-timeline/internal/db"
	"github.com/justestif/go-spotify-mood-timeline/internal/genres"
	"github.com/justestif/go-spotify-mood-timeline/internal/lastfm"
	"github.com/justestif/go-spotify-mood-timeline/internal/library"
	"github.com/justestif/go-spotify-mood-timeline/internal/logger"
	"github.com/justestif/go-spotify-mood-timeline/internal/metrics"
	spotifyclient "github.com/justestif/go-spotify-mood-timeline/internal/spotify"
)

// deps holds the process-wide collaborators shared by every aggregation.
type deps struct {
	cfg      *config.Config
	log      *logger.Logger
	metrics  *metrics.Recorder // nil when disabled
	database *db.DB            // nil unless a backend needs Postgres
	store    genres.Store

	// lastfmLookup is shared by all users; Spotify lookups need the user's client.
	lastfmLookup *genres.CachedLookup

	closers []func()
}

func newDeps(ctx context.Context, cfg *config.Config, log *logger.Logger) (*deps, error) {
	d := &deps{cfg: cfg, log: log}
	if cfg.MetricsEnabled {
		d.metrics = metrics.New()
	}

	if err := d.open(ctx); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *deps) open(ctx context.Context) error {
	cfg := d.cfg

	if cfg.NeedsDatabase() {
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		d.closers = append(d.closers, database.Close)
		if err := database.EnsureSchema(ctx); err != nil {
			return err
		}
		d.database = database
	}

	switch cfg.CacheBackend {
	case config.BackendNone:
		d.store = genres.NopStore{}
	case config.BackendPostgres:
		d.store = genres.NewPostgresStore(d.database.Genres())
	case config.BackendRedis:
		rdb, err := genres.DialRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		d.closers = append(d.closers, func() { _ = rdb.Close() })
		d.store = genres.NewRedisStore(rdb, cfg.CacheTTL)
	default:
		d.store = genres.NewMemoryStore()
	}

	if cfg.GenreSource == config.GenreSourceLastfm {
		client, err := lastfm.NewClient(cfg.LastfmAPIKey)
		if err != nil {
			return fmt.Errorf("creating last.fm client: %w", err)
		}
		d.lastfmLookup = d.cachedLookup(client, config.GenreSourceLastfm)
	}

	d.log.Debug("dependencies ready",
		"cache", cfg.CacheBackend,
		"genre_source", cfg.GenreSource,
		"database", d.database != nil,
		"metrics", d.metrics != nil)
	return nil
}

// Close releases connections in reverse order of opening.
func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

func (d *deps) cachedLookup(source library.GenreLookup, name string) *genres.CachedLookup {
	return genres.NewCachedLookup(source, name, d.store,
		genres.WithTTL(d.cfg.CacheTTL),
		genres.WithLogger(d.log),
		genres.WithMetrics(d.metrics))
}

// userLibrary is one user's view of Spotify: the aggregator over their saved
// tracks plus the client for writing playlists.
type userLibrary struct {
	*library.Aggregator
	*spotifyclient.Client
}

func (d *deps) newLibrary(api *spotify.Client) *userLibrary {
	client := spotifyclient.New(api)

	lookup := d.lastfmLookup
	if lookup == nil {
		lookup = d.cachedLookup(client, config.GenreSourceSpotify)
	}

	agg := library.NewAggregator(client, client, lookup,
		library.WithPageSize(d.cfg.PageSize),
		library.WithGenreConcurrency(d.cfg.GenreConcurrency),
		library.WithTimeout(d.cfg.AggregateTimeout),
		library.WithRetryPolicy(library.RetryPolicy{
			MaxAttempts: d.cfg.MaxAttempts,
			Backoff:     d.cfg.RetryBackoff,
		}),
		library.WithLogger(d.log),
		library.WithMetrics(d.metrics))

	return &userLibrary{Aggregator: agg, Client: client}
}
