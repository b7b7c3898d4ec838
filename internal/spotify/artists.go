package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-spotify-mood-timeline/internal/library"
)

// ArtistGenres returns the genres Spotify attributes to an artist.
// Artists without an ID have no genres.
func (c *Client) ArtistGenres(ctx context.Context, artist library.Artist) ([]string, error) {
	if artist.ID == "" {
		return []string{}, nil
	}

	full, err := c.api.GetArtist(ctx, spotify.ID(artist.ID))
	if err != nil {
		return nil, fmt.Errorf("fetching artist %s: %w", artist.ID, classify(err))
	}
	if full.Genres == nil {
		return []string{}, nil
	}
	return full.Genres, nil
}
