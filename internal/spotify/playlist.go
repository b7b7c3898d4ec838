package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-spotify-mood-timeline/internal/library"
)

// SavePlaylist creates a private playlist holding the given entries in order
// and returns its ID.
func (c *Client) SavePlaylist(ctx context.Context, name, description string, entries []library.Entry) (string, error) {
	if len(entries) == 0 {
		return "", fmt.Errorf("saving playlist %q: no tracks", name)
	}

	userID, err := c.UserID(ctx)
	if err != nil {
		return "", err
	}

	playlist, err := c.api.CreatePlaylistForUser(ctx, userID, name, description, false, false)
	if err != nil {
		return "", fmt.Errorf("creating playlist: %w", err)
	}

	ids := make([]spotify.ID, len(entries))
	for i, e := range entries {
		ids[i] = spotify.ID(e.ID)
	}

	// Spotify allows max 100 tracks per request.
	for i := 0; i < len(ids); i += maxTracksPerRequest {
		end := min(i+maxTracksPerRequest, len(ids))
		if _, err := c.api.AddTracksToPlaylist(ctx, playlist.ID, ids[i:end]...); err != nil {
			return "", fmt.Errorf("adding tracks (batch %d-%d): %w", i+1, end, err)
		}
	}

	return playlist.ID.String(), nil
}
