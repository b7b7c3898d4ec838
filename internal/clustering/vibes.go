// Package clustering groups a period's tracks into "vibes" with k-means over
// their audio features, and renders aggregation results as text.
package clustering

import (
	"fmt"
	"slices"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/justestif/go-spotify-mood-timeline/internal/library"
)

// Config holds vibe clustering parameters.
type Config struct {
	NumClusters    int // Number of clusters to create (default: 3)
	MinClusterSize int // Smaller clusters are dropped
}

// DefaultConfig returns the recommended default configuration.
func DefaultConfig() Config {
	return Config{
		NumClusters:    3,
		MinClusterSize: 3,
	}
}

// Centroid is the mean feature vector of a vibe.
type Centroid struct {
	Energy       float64
	Valence      float64
	Danceability float64
}

// Vibe is a cluster of a period's entries with a similar sound.
type Vibe struct {
	Name        string // e.g. "Upbeat Party"
	Description string
	Centroid    Centroid
	Entries     []library.Entry
}

// entryObservation wraps an Entry to implement clusters.Observation.
type entryObservation struct {
	entry  library.Entry
	coords clusters.Coordinates
}

func (o entryObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o entryObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// DetectVibes clusters entries by energy, valence and danceability.
// Entries without audio features are ignored. Vibes are ordered largest first.
// When there are too few entries to partition, all of them form a single vibe,
// provided they reach MinClusterSize.
func DetectVibes(entries []library.Entry, cfg Config) ([]Vibe, error) {
	if cfg.NumClusters <= 0 {
		cfg.NumClusters = DefaultConfig().NumClusters
	}
	if cfg.MinClusterSize <= 0 {
		cfg.MinClusterSize = 1
	}

	var obs clusters.Observations
	var valid []library.Entry
	for _, e := range entries {
		if e.Features == nil {
			continue
		}
		valid = append(valid, e)
		obs = append(obs, entryObservation{entry: e, coords: coordinates(e.Features)})
	}

	if len(valid) < cfg.MinClusterSize {
		return nil, nil
	}
	if len(valid) < cfg.NumClusters*cfg.MinClusterSize {
		return []Vibe{newVibe(valid, mean(valid))}, nil
	}

	km := kmeans.New()
	partition, err := km.Partition(obs, cfg.NumClusters)
	if err != nil {
		return nil, fmt.Errorf("partitioning %d entries: %w", len(obs), err)
	}

	var vibes []Vibe
	for _, cluster := range partition {
		if len(cluster.Observations) < cfg.MinClusterSize {
			continue
		}
		members := make([]library.Entry, 0, len(cluster.Observations))
		for _, o := range cluster.Observations {
			if eo, ok := o.(entryObservation); ok {
				members = append(members, eo.entry)
			}
		}
		vibes = append(vibes, newVibe(members, Centroid{
			Energy:       cluster.Center[0],
			Valence:      cluster.Center[1],
			Danceability: cluster.Center[2],
		}))
	}

	slices.SortStableFunc(vibes, func(a, b Vibe) int {
		if len(a.Entries) != len(b.Entries) {
			return len(b.Entries) - len(a.Entries)
		}
		return b.Entries[0].SavedAt.Compare(a.Entries[0].SavedAt)
	})
	return vibes, nil
}

// PeriodVibes runs DetectVibes for every period of a result.
// A period whose clustering fails simply has no vibes.
func PeriodVibes(result *library.Result, cfg Config) map[string][]Vibe {
	out := make(map[string][]Vibe, len(result.Keys))
	for _, key := range result.Keys {
		vibes, err := DetectVibes(result.Groups[key], cfg)
		if err != nil {
			continue
		}
		out[key] = vibes
	}
	return out
}

func newVibe(entries []library.Entry, c Centroid) Vibe {
	slices.SortFunc(entries, func(a, b library.Entry) int {
		return b.SavedAt.Compare(a.SavedAt)
	})
	name, description := vibeName(c)
	return Vibe{
		Name:        name,
		Description: description,
		Centroid:    c,
		Entries:     entries,
	}
}

func coordinates(f *library.AudioFeatures) clusters.Coordinates {
	return clusters.Coordinates{f.Energy, f.Valence, f.Danceability}
}

func mean(entries []library.Entry) Centroid {
	var c Centroid
	for _, e := range entries {
		c.Energy += e.Features.Energy
		c.Valence += e.Features.Valence
		c.Danceability += e.Features.Danceability
	}
	n := float64(len(entries))
	return Centroid{Energy: c.Energy / n, Valence: c.Valence / n, Danceability: c.Danceability / n}
}
