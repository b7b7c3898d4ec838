package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/justestif/go-spotify-mood-timeline/internal/library"
)

func tagsResponse(names ...string) artistTagsResponse {
	var resp artistTagsResponse
	resp.TopTags.Tag = []Tag{}
	for i, n := range names {
		resp.TopTags.Tag = append(resp.TopTags.Tag, Tag{Name: n, Count: 100 - i, URL: "http://last.fm/tag/" + n})
	}
	return resp
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]Option{WithBaseURL(server.URL + "/"), WithHTTPClient(server.Client())}, opts...)
	c, err := NewClient("test-api-key", opts...)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestNewClient_MissingKey(t *testing.T) {
	if _, err := NewClient(""); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("NewClient(\"\") error = %v, want ErrMissingAPIKey", err)
	}
}

func TestArtistGenres(t *testing.T) {
	tests := []struct {
		name          string
		artist        library.Artist
		status        int
		response      any
		want          []string
		wantErr       error
		wantPermanent bool
	}{
		{
			name:     "top tags lowercased",
			artist:   library.Artist{Name: "Radiohead"},
			response: tagsResponse("Alternative", "Rock", " "),
			want:     []string{"alternative", "rock"},
		},
		{
			name:     "capped at max tags",
			artist:   library.Artist{Name: "Cher"},
			response: tagsResponse("pop", "dance", "80s", "female vocalists", "disco", "diva"),
			want:     []string{"pop", "dance", "80s", "female vocalists", "disco"},
		},
		{
			name:     "no tags",
			artist:   library.Artist{Name: "Nobody"},
			response: tagsResponse(),
			want:     []string{},
		},
		{
			name:     "unknown artist has no genres",
			artist:   library.Artist{Name: "asdfghjkl"},
			response: apiError{Error: 6, Message: "The artist you supplied could not be found"},
			want:     []string{},
		},
		{
			name:          "invalid API key is permanent",
			artist:        library.Artist{Name: "Test"},
			response:      apiError{Error: 10, Message: "Invalid API key"},
			wantErr:       ErrInvalidAPIKey,
			wantPermanent: true,
		},
		{
			name:     "rate limited is retriable",
			artist:   library.Artist{Name: "Test"},
			response: apiError{Error: 29, Message: "Rate limit exceeded"},
			wantErr:  ErrRateLimited,
		},
		{
			name:          "client error status is permanent",
			artist:        library.Artist{Name: "Test"},
			status:        http.StatusForbidden,
			response:      map[string]string{},
			wantPermanent: true,
		},
		{
			name:     "server error status is retriable",
			artist:   library.Artist{Name: "Test"},
			status:   http.StatusServiceUnavailable,
			response: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				if q.Get("method") != "artist.getTopTags" {
					t.Errorf("method = %q, want artist.getTopTags", q.Get("method"))
				}
				if q.Get("artist") != tt.artist.Name {
					t.Errorf("artist = %q, want %q", q.Get("artist"), tt.artist.Name)
				}
				if q.Get("api_key") != "test-api-key" {
					t.Errorf("api_key = %q", q.Get("api_key"))
				}
				w.Header().Set("Content-Type", "application/json")
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				json.NewEncoder(w).Encode(tt.response)
			})

			got, err := c.ArtistGenres(context.Background(), tt.artist)

			failing := tt.wantErr != nil || tt.wantPermanent || tt.status >= 400
			if !failing {
				if err != nil {
					t.Fatalf("ArtistGenres() error = %v", err)
				}
				if !reflect.DeepEqual(got, tt.want) {
					t.Errorf("ArtistGenres() = %#v, want %#v", got, tt.want)
				}
				return
			}

			if err == nil {
				t.Fatal("ArtistGenres() expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if library.IsPermanent(err) != tt.wantPermanent {
				t.Errorf("permanent = %v, want %v", library.IsPermanent(err), tt.wantPermanent)
			}
		})
	}
}

func TestArtistGenres_EmptyNameSkipsRequest(t *testing.T) {
	var requests atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	})

	got, err := c.ArtistGenres(context.Background(), library.Artist{ID: "a1"})
	if err != nil || got == nil || len(got) != 0 {
		t.Errorf("ArtistGenres() = %#v, %v, want empty slice", got, err)
	}
	if requests.Load() != 0 {
		t.Errorf("made %d requests, want 0", requests.Load())
	}
}

func TestArtistGenres_WithMaxTags(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(tagsResponse("a", "b", "c"))
	}, WithMaxTags(1))

	got, err := c.ArtistGenres(context.Background(), library.Artist{Name: "X"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("ArtistGenres() = %v, want [a]", got)
	}
}

func TestArtistGenres_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(tagsResponse("rock"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.ArtistGenres(ctx, library.Artist{Name: "X"}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
