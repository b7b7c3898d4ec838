package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GenreRepository handles the artist genre cache.
type GenreRepository struct {
	pool *pgxpool.Pool
}

// Get retrieves the cached genres of an artist for a source.
func (r *GenreRepository) Get(ctx context.Context, source, artistKey string) (*ArtistGenres, error) {
	query := `
		SELECT artist_key, source, genres, fetched_at
		FROM artist_genres
		WHERE artist_key = $1 AND source = $2
	`
	var ag ArtistGenres
	err := r.pool.QueryRow(ctx, query, artistKey, source).Scan(
		&ag.ArtistKey,
		&ag.Source,
		&ag.Genres,
		&ag.FetchedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying artist genres: %w", err)
	}
	if ag.Genres == nil {
		ag.Genres = []string{}
	}
	return &ag, nil
}

// Upsert inserts or refreshes the cached genres of an artist.
func (r *GenreRepository) Upsert(ctx context.Context, ag ArtistGenres) error {
	query := `
		INSERT INTO artist_genres (artist_key, source, genres, fetched_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (artist_key, source) DO UPDATE SET
			genres = EXCLUDED.genres,
			fetched_at = EXCLUDED.fetched_at
	`
	genres := ag.Genres
	if genres == nil {
		genres = []string{}
	}
	_, err := r.pool.Exec(ctx, query, ag.ArtistKey, ag.Source, genres, ag.FetchedAt)
	if err != nil {
		return fmt.Errorf("upserting artist genres: %w", err)
	}
	return nil
}

// DeleteStale removes entries fetched before olderThan.
func (r *GenreRepository) DeleteStale(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `DELETE FROM artist_genres WHERE fetched_at < $1`
	result, err := r.pool.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("deleting stale artist genres: %w", err)
	}
	return result.RowsAffected(), nil
}
