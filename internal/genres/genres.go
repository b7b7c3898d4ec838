// Package genres caches artist genre lookups in front of a slower genre source.
package genres

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/justestif/go-spotify-mood-timeline/internal/library"
	"github.com/justestif/go-spotify-mood-timeline/internal/logger"
	"github.com/justestif/go-spotify-mood-timeline/internal/metrics"
)

// DefaultTTL is the duration after which cached genres are considered stale.
const DefaultTTL = 30 * 24 * time.Hour // 30 days

// DefaultFetchTimeout bounds a shared source call once it no longer follows
// any single caller's context.
const DefaultFetchTimeout = 30 * time.Second

// Key identifies one cached lookup.
type Key struct {
	Source string // genre source name, e.g. "spotify" or "lastfm"
	Artist string // library.Artist.Key()
}

func (k Key) String() string {
	return k.Source + ":" + k.Artist
}

// Cached is a stored genre lookup.
type Cached struct {
	Genres    []string
	FetchedAt time.Time
}

// Store persists genre lookups. Get reports found=false on a miss.
type Store interface {
	Get(ctx context.Context, key Key) (Cached, bool, error)
	Put(ctx context.Context, key Key, c Cached) error
}

// CachedLookup implements library.GenreLookup with a Store in front of a source.
// Stale entries are refreshed lazily. Store failures are logged and never fail
// a lookup; source failures are returned and not cached.
type CachedLookup struct {
	source  library.GenreLookup
	name    string
	store   Store
	ttl     time.Duration
	timeout time.Duration
	log     *logger.Logger
	metrics *metrics.Recorder
	now     func() time.Time
	group   singleflight.Group
}

// Option configures a CachedLookup.
type Option func(*CachedLookup)

// WithTTL sets how long cached genres stay fresh.
func WithTTL(ttl time.Duration) Option {
	return func(c *CachedLookup) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithFetchTimeout bounds each source call.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *CachedLookup) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *CachedLookup) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(c *CachedLookup) {
		c.metrics = m
	}
}

// NewCachedLookup wraps source, named sourceName in cache keys, with store.
func NewCachedLookup(source library.GenreLookup, sourceName string, store Store, opts ...Option) *CachedLookup {
	c := &CachedLookup{
		source:  source,
		name:    sourceName,
		store:   store,
		ttl:     DefaultTTL,
		timeout: DefaultFetchTimeout,
		log:     logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ArtistGenres returns the artist's genres from the cache, or from the source on
// a miss or stale entry. Concurrent lookups of the same artist share one call.
func (c *CachedLookup) ArtistGenres(ctx context.Context, artist library.Artist) ([]string, error) {
	key := Key{Source: c.name, Artist: artist.Key()}

	cached, found, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		c.metrics.GenreCacheLookup("error")
		c.log.Warn("reading genre cache", "key", key.String(), "error", err)
	case !found:
		c.metrics.GenreCacheLookup("miss")
	case c.now().Sub(cached.FetchedAt) > c.ttl:
		c.metrics.GenreCacheLookup("stale")
	default:
		c.metrics.GenreCacheLookup("hit")
		return clone(cached.Genres), nil
	}

	// The shared call outlives any one waiter; each waiter stops at its own ctx.
	ch := c.group.DoChan(key.String(), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		genres, err := c.source.ArtistGenres(fetchCtx, artist)
		if err != nil {
			return nil, err
		}
		if genres == nil {
			genres = []string{}
		}
		if err := c.store.Put(fetchCtx, key, Cached{Genres: genres, FetchedAt: c.now()}); err != nil {
			c.log.Warn("writing genre cache", "key", key.String(), "error", err)
		}
		return genres, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("looking up genres for %q: %w", artist.Name, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("looking up genres for %q: %w", artist.Name, res.Err)
		}
		return clone(res.Val.([]string)), nil
	}
}

func clone(genres []string) []string {
	out := make([]string, len(genres))
	copy(out, genres)
	return out
}

var _ library.GenreLookup = (*CachedLookup)(nil)
