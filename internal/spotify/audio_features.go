package spotify

import (
	"context"
	"fmt"
	"strconv"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-spotify-mood-timeline/internal/library"
)

const maxTracksPerRequest = 100

// AudioFeatures retrieves audio features co-indexed with ids.
// Batches requests to max 100 tracks per request per Spotify API limits.
// Tracks without available audio features get a nil element.
func (c *Client) AudioFeatures(ctx context.Context, ids []string) ([]*library.AudioFeatures, error) {
	out := make([]*library.AudioFeatures, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	indexByID := make(map[string][]int, len(ids))
	spotifyIDs := make([]spotify.ID, len(ids))
	for i, id := range ids {
		spotifyIDs[i] = spotify.ID(id)
		indexByID[id] = append(indexByID[id], i)
	}

	total := len(spotifyIDs)
	for i := 0; i < total; i += maxTracksPerRequest {
		end := min(i+maxTracksPerRequest, total)

		features, err := c.api.GetAudioFeatures(ctx, spotifyIDs[i:end]...)
		if err != nil {
			return nil, fmt.Errorf("fetching audio features (batch %d-%d): %w", i+1, end, classify(err))
		}

		for _, f := range features {
			if f == nil {
				continue
			}
			for _, idx := range indexByID[f.ID.String()] {
				out[idx] = convertFeatures(f)
			}
		}
	}
	return out, nil
}

func convertFeatures(f *spotify.AudioFeatures) *library.AudioFeatures {
	return &library.AudioFeatures{
		Valence:      widen(f.Valence),
		Energy:       widen(f.Energy),
		Danceability: widen(f.Danceability),
		Tempo:        widen(f.Tempo),
	}
}

// widen converts a float32 to the float64 with the same shortest decimal
// representation, so 0.7 stays 0.7 rather than 0.699999988.
func widen(f float32) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	if err != nil {
		return float64(f)
	}
	return v
}
