package genres

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/justestif/go-spotify-mood-timeline/internal/db"
)

type mockRepo struct {
	rows   map[[2]string]db.ArtistGenres
	getErr error
}

func (m *mockRepo) Get(_ context.Context, source, artistKey string) (*db.ArtistGenres, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	ag, ok := m.rows[[2]string{source, artistKey}]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &ag, nil
}

func (m *mockRepo) Upsert(_ context.Context, ag db.ArtistGenres) error {
	m.rows[[2]string{ag.Source, ag.ArtistKey}] = ag
	return nil
}

func TestPostgresStore(t *testing.T) {
	repo := &mockRepo{rows: map[[2]string]db.ArtistGenres{}}
	s := NewPostgresStore(repo)
	key := Key{Source: "lastfm", Artist: "name:boards of canada"}

	_, found, err := s.Get(context.Background(), key)
	if err != nil || found {
		t.Fatalf("Get() on empty store: found = %v, err = %v", found, err)
	}

	fetched := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := s.Put(context.Background(), key, Cached{Genres: []string{"idm"}, FetchedAt: fetched}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	row := repo.rows[[2]string{"lastfm", "name:boards of canada"}]
	if row.ArtistKey != key.Artist || row.Source != key.Source {
		t.Errorf("stored row = %+v", row)
	}

	got, found, err := s.Get(context.Background(), key)
	if err != nil || !found {
		t.Fatalf("Get() found = %v, err = %v", found, err)
	}
	if !reflect.DeepEqual(got.Genres, []string{"idm"}) || !got.FetchedAt.Equal(fetched) {
		t.Errorf("Get() = %+v", got)
	}
}

func TestPostgresStore_GetError(t *testing.T) {
	repoErr := errors.New("connection refused")
	s := NewPostgresStore(&mockRepo{getErr: repoErr})

	_, found, err := s.Get(context.Background(), Key{Source: "spotify", Artist: "a1"})
	if !errors.Is(err, repoErr) || found {
		t.Errorf("Get() found = %v, err = %v, want %v", found, err, repoErr)
	}
}
