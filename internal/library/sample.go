package library

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultSampleSize is how many recent saved tracks feed the genre sample.
const DefaultSampleSize = 50

// SampleGenres returns the sorted, de-duplicated genres of the primary artists
// of the n most recently saved tracks. It is used to populate genre pickers.
func (a *Aggregator) SampleGenres(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		n = DefaultSampleSize
	}

	var page []SavedItem
	err := a.retry(ctx, a.log, opSavedTracks, func(ctx context.Context) error {
		var err error
		page, err = a.source.SavedTracks(ctx, 0, n)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching recent saved tracks: %w", err)
	}

	seen := make(map[string]bool)
	var artists []Artist
	for _, item := range page {
		artist, ok := item.PrimaryArtist()
		if !ok || seen[artist.Key()] {
			continue
		}
		seen[artist.Key()] = true
		artists = append(artists, artist)
	}

	found := make([][]string, len(artists))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.genreConcurrency)
	for i, artist := range artists {
		i, artist := i, artist
		g.Go(func() error {
			return a.retry(gctx, a.log, opArtistGenres, func(ctx context.Context) error {
				genres, err := a.genres.ArtistGenres(ctx, artist)
				if err != nil {
					return err
				}
				found[i] = genres
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching artist genres: %w", err)
	}

	unique := make(map[string]bool)
	genres := []string{}
	for _, list := range found {
		for _, genre := range list {
			genre = strings.TrimSpace(genre)
			if genre == "" || unique[genre] {
				continue
			}
			unique[genre] = true
			genres = append(genres, genre)
		}
	}
	sort.Strings(genres)
	return genres, nil
}
