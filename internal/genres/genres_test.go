package genres

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/justestif/go-spotify-mood-timeline/internal/library"
)

// mockSource counts lookups and returns fixed genres per artist ID.
type mockSource struct {
	genres map[string][]string
	err    error
	calls  atomic.Int32
	block  chan struct{}
}

func (m *mockSource) ArtistGenres(ctx context.Context, artist library.Artist) ([]string, error) {
	m.calls.Add(1)
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.genres[artist.ID], nil
}

// failingStore fails every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, Key) (Cached, bool, error) {
	return Cached{}, false, errors.New("store down")
}

func (failingStore) Put(context.Context, Key, Cached) error {
	return errors.New("store down")
}

func TestCachedLookup_MissThenHit(t *testing.T) {
	src := &mockSource{genres: map[string][]string{"a1": {"indie rock", "shoegaze"}}}
	store := NewMemoryStore()
	c := NewCachedLookup(src, "spotify", store)

	artist := library.Artist{ID: "a1", Name: "Slowdive"}
	for i := 0; i < 3; i++ {
		got, err := c.ArtistGenres(context.Background(), artist)
		if err != nil {
			t.Fatalf("ArtistGenres() error = %v", err)
		}
		if want := []string{"indie rock", "shoegaze"}; !reflect.DeepEqual(got, want) {
			t.Errorf("ArtistGenres() = %v, want %v", got, want)
		}
	}

	if n := src.calls.Load(); n != 1 {
		t.Errorf("source calls = %d, want 1", n)
	}
	if store.Len() != 1 {
		t.Errorf("store entries = %d, want 1", store.Len())
	}
}

func TestCachedLookup_EmptyGenresAreCached(t *testing.T) {
	src := &mockSource{}
	c := NewCachedLookup(src, "spotify", NewMemoryStore())
	artist := library.Artist{ID: "nobody"}

	for i := 0; i < 2; i++ {
		got, err := c.ArtistGenres(context.Background(), artist)
		if err != nil {
			t.Fatalf("ArtistGenres() error = %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("ArtistGenres() = %#v, want empty non-nil slice", got)
		}
	}
	if n := src.calls.Load(); n != 1 {
		t.Errorf("source calls = %d, want 1", n)
	}
}

func TestCachedLookup_StaleEntryRefreshed(t *testing.T) {
	src := &mockSource{genres: map[string][]string{"a1": {"new"}}}
	store := NewMemoryStore()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	key := Key{Source: "spotify", Artist: "a1"}
	_ = store.Put(context.Background(), key, Cached{Genres: []string{"old"}, FetchedAt: now.Add(-2 * time.Hour)})

	c := NewCachedLookup(src, "spotify", store, WithTTL(time.Hour))
	c.now = func() time.Time { return now }

	got, err := c.ArtistGenres(context.Background(), library.Artist{ID: "a1"})
	if err != nil {
		t.Fatalf("ArtistGenres() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"new"}) {
		t.Errorf("ArtistGenres() = %v, want [new]", got)
	}

	cached, _, _ := store.Get(context.Background(), key)
	if !cached.FetchedAt.Equal(now) {
		t.Errorf("FetchedAt = %v, want %v", cached.FetchedAt, now)
	}
}

func TestCachedLookup_SourcesDoNotShareEntries(t *testing.T) {
	store := NewMemoryStore()
	spotifySrc := &mockSource{genres: map[string][]string{"a1": {"from spotify"}}}
	lastfmSrc := &mockSource{genres: map[string][]string{"a1": {"from lastfm"}}}

	artist := library.Artist{ID: "a1"}
	if _, err := NewCachedLookup(spotifySrc, "spotify", store).ArtistGenres(context.Background(), artist); err != nil {
		t.Fatal(err)
	}
	got, err := NewCachedLookup(lastfmSrc, "lastfm", store).ArtistGenres(context.Background(), artist)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"from lastfm"}) {
		t.Errorf("ArtistGenres() = %v, want [from lastfm]", got)
	}
}

func TestCachedLookup_SourceErrorNotCached(t *testing.T) {
	sourceErr := errors.New("rate limited")
	src := &mockSource{err: sourceErr}
	store := NewMemoryStore()
	c := NewCachedLookup(src, "lastfm", store)

	_, err := c.ArtistGenres(context.Background(), library.Artist{ID: "a1", Name: "Artist"})
	if !errors.Is(err, sourceErr) {
		t.Fatalf("error = %v, want %v", err, sourceErr)
	}
	if store.Len() != 0 {
		t.Errorf("store entries = %d, want 0", store.Len())
	}
}

func TestCachedLookup_StoreFailuresTolerated(t *testing.T) {
	src := &mockSource{genres: map[string][]string{"a1": {"jazz"}}}
	c := NewCachedLookup(src, "spotify", failingStore{})

	got, err := c.ArtistGenres(context.Background(), library.Artist{ID: "a1"})
	if err != nil {
		t.Fatalf("ArtistGenres() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"jazz"}) {
		t.Errorf("ArtistGenres() = %v, want [jazz]", got)
	}
}

func TestCachedLookup_ConcurrentLookupsShareCall(t *testing.T) {
	src := &mockSource{genres: map[string][]string{"a1": {"pop"}}, block: make(chan struct{})}
	c := NewCachedLookup(src, "spotify", NopStore{})

	var wg sync.WaitGroup
	results := make([][]string, 4)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = c.ArtistGenres(context.Background(), library.Artist{ID: "a1"})
		}()
	}

	// Wait for the first call to reach the source before releasing it.
	for src.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)
	close(src.block)
	wg.Wait()

	for i, r := range results {
		if !reflect.DeepEqual(r, []string{"pop"}) {
			t.Errorf("results[%d] = %v, want [pop]", i, r)
		}
	}
	if n := src.calls.Load(); n > 4 || n < 1 {
		t.Errorf("source calls = %d, want between 1 and 4", n)
	}
}

func TestCachedLookup_CancelledCallerDoesNotFailOthers(t *testing.T) {
	src := &mockSource{genres: map[string][]string{"a1": {"shoegaze"}}, block: make(chan struct{})}
	c := NewCachedLookup(src, "lastfm", NewMemoryStore())
	artist := library.Artist{ID: "a1", Name: "Slowdive"}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.ArtistGenres(ctxA, artist)
		errA <- err
	}()

	for src.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	type result struct {
		genres []string
		err    error
	}
	resB := make(chan result, 1)
	go func() {
		genres, err := c.ArtistGenres(context.Background(), artist)
		resB <- result{genres, err}
	}()
	time.Sleep(10 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("cancelled caller error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled caller still waiting on the shared lookup")
	}

	close(src.block)
	got := <-resB
	if got.err != nil {
		t.Fatalf("other caller error = %v", got.err)
	}
	if !reflect.DeepEqual(got.genres, []string{"shoegaze"}) {
		t.Errorf("other caller genres = %v, want [shoegaze]", got.genres)
	}

	// The shared call finished after the first caller left, so it was cached.
	if _, err := c.ArtistGenres(context.Background(), artist); err != nil {
		t.Fatalf("ArtistGenres() after completion error = %v", err)
	}
	if n := src.calls.Load(); n != 1 {
		t.Errorf("source calls = %d, want 1", n)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	key := Key{Source: "spotify", Artist: "a1"}
	genres := []string{"rock"}
	_ = s.Put(context.Background(), key, Cached{Genres: genres})
	genres[0] = "mutated"

	got, found, err := s.Get(context.Background(), key)
	if err != nil || !found {
		t.Fatalf("Get() = %v, %v, %v", got, found, err)
	}
	got.Genres[0] = "mutated again"

	again, _, _ := s.Get(context.Background(), key)
	if again.Genres[0] != "rock" {
		t.Errorf("stored genres = %v, want [rock]", again.Genres)
	}
}
