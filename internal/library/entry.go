// Package library aggregates a user's saved tracks into mood-labelled periods.
package library

import (
	"strings"
	"time"
)

// Artist identifies a track's credited artist.
type Artist struct {
	ID   string
	Name string
}

// Key identifies the artist for deduplication and caching: its Spotify ID,
// or its lowercased name when the ID is missing.
func (a Artist) Key() string {
	if a.ID != "" {
		return a.ID
	}
	return "name:" + strings.ToLower(a.Name)
}

// AudioFeatures holds the continuous audio signals used for mood classification.
type AudioFeatures struct {
	Valence      float64 // 0..1
	Energy       float64 // 0..1
	Danceability float64 // 0..1
	Tempo        float64 // beats per minute
}

// SavedItem is one raw item from the saved-tracks feed.
// A zero SavedAt means the timestamp was missing or could not be parsed.
type SavedItem struct {
	ID          string
	Name        string
	Artists     []Artist
	SavedAt     time.Time
	PreviewURL  string
	ExternalURL string
}

// Entry is a saved track enriched with genres, audio features and mood.
type Entry struct {
	ID          string
	Name        string
	Artists     []Artist
	SavedAt     time.Time
	PreviewURL  string // empty when Spotify offers no preview
	ExternalURL string
	Genres      []string
	Features    *AudioFeatures // nil if unavailable
	Mood        Mood
}

// ArtistNames returns the artist names joined by ", ".
func (e Entry) ArtistNames() string {
	return joinArtists(e.Artists)
}

// PrimaryArtist returns the first credited artist.
func (e Entry) PrimaryArtist() (Artist, bool) {
	return primaryArtist(e.Artists)
}

// PrimaryArtist returns the first credited artist.
func (s SavedItem) PrimaryArtist() (Artist, bool) {
	return primaryArtist(s.Artists)
}

// malformed reports whether the item lacks the fields required for aggregation.
func (s SavedItem) malformed() bool {
	return s.ID == "" || s.SavedAt.IsZero()
}

func primaryArtist(artists []Artist) (Artist, bool) {
	if len(artists) == 0 {
		return Artist{}, false
	}
	return artists[0], true
}

func joinArtists(artists []Artist) string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

// matchesGenre reports whether any genre contains filter, ignoring case.
func matchesGenre(genres []string, filter string) bool {
	needle := strings.ToLower(filter)
	for _, g := range genres {
		if strings.Contains(strings.ToLower(g), needle) {
			return true
		}
	}
	return false
}
