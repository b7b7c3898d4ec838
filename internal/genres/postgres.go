package genres

import (
	"context"
	"errors"

	"github.com/justestif/go-spotify-mood-timeline/internal/db"
)

// GenreRepository is the subset of db.GenreRepository used by PostgresStore.
type GenreRepository interface {
	Get(ctx context.Context, source, artistKey string) (*db.ArtistGenres, error)
	Upsert(ctx context.Context, ag db.ArtistGenres) error
}

// PostgresStore persists lookups in the artist_genres table.
type PostgresStore struct {
	repo GenreRepository
}

// NewPostgresStore creates a store over repo, usually database.Genres().
func NewPostgresStore(repo GenreRepository) *PostgresStore {
	return &PostgresStore{repo: repo}
}

func (s *PostgresStore) Get(ctx context.Context, key Key) (Cached, bool, error) {
	ag, err := s.repo.Get(ctx, key.Source, key.Artist)
	if errors.Is(err, db.ErrNotFound) {
		return Cached{}, false, nil
	}
	if err != nil {
		return Cached{}, false, err
	}
	return Cached{Genres: ag.Genres, FetchedAt: ag.FetchedAt}, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, key Key, c Cached) error {
	return s.repo.Upsert(ctx, db.ArtistGenres{
		ArtistKey: key.Artist,
		Source:    key.Source,
		Genres:    c.Genres,
		FetchedAt: c.FetchedAt,
	})
}

var _ GenreRepository = (*db.GenreRepository)(nil)
