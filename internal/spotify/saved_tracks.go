package spotify

import (
	"context"
	"fmt"
	"time"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-spotify-mood-timeline/internal/library"
)

// MaxPageSize is the largest page the saved-tracks endpoint returns.
const MaxPageSize = 50

// SavedTracks returns one page of the user's saved tracks, newest first.
func (c *Client) SavedTracks(ctx context.Context, offset, limit int) ([]library.SavedItem, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	page, err := c.api.CurrentUsersTracks(ctx, spotify.Limit(limit), spotify.Offset(offset))
	if err != nil {
		return nil, fmt.Errorf("fetching saved tracks: %w", classify(err))
	}

	items := make([]library.SavedItem, len(page.Tracks))
	for i, saved := range page.Tracks {
		items[i] = convertSavedTrack(saved)
	}
	return items, nil
}

// convertSavedTrack converts a Spotify SavedTrack to a library.SavedItem.
// An unparseable AddedAt leaves SavedAt zero, which marks the item malformed.
func convertSavedTrack(saved spotify.SavedTrack) library.SavedItem {
	artists := make([]library.Artist, len(saved.Artists))
	for i, a := range saved.Artists {
		artists[i] = library.Artist{ID: a.ID.String(), Name: a.Name}
	}

	addedAt, _ := time.Parse(time.RFC3339, saved.AddedAt)

	return library.SavedItem{
		ID:          saved.ID.String(),
		Name:        saved.Name,
		Artists:     artists,
		SavedAt:     addedAt.UTC(),
		PreviewURL:  saved.PreviewURL,
		ExternalURL: saved.ExternalURLs["spotify"],
	}
}
