package web

import (
	"io"

	"github.com/justestif/go-spotify-mood-timeline/internal/clustering"
	"github.com/justestif/go-spotify-mood-timeline/internal/library"
)

// HTMLSink renders a result as the mood timeline, either as a full page
// or as the bare timeline fragment for HTMX requests.
type HTMLSink struct {
	Templates *Templates
	Vibes     clustering.Config
	Page      PageData
	Query     QueryData
	Partial   bool
}

// Render writes the timeline for result to w.
func (s HTMLSink) Render(w io.Writer, result *library.Result) error {
	data := s.pageData(result)
	if s.Partial {
		return s.Templates.RenderPartial(w, "timeline", data)
	}
	return s.Templates.Render(w, "results", data)
}

func (s HTMLSink) pageData(result *library.Result) ResultsPageData {
	cfg := s.Vibes
	if cfg == (clustering.Config{}) {
		cfg = clustering.DefaultConfig()
	}
	vibes := clustering.PeriodVibes(result, cfg)

	data := ResultsPageData{
		PageData: s.Page,
		Query:    s.Query,
		Total:    result.Len(),
		Skipped:  result.Skipped,
		Periods:  make([]PeriodData, 0, len(result.Keys)),
	}
	for _, key := range result.Keys {
		entries := result.Groups[key]
		period := PeriodData{
			Key:    key,
			Count:  len(entries),
			Moods:  clustering.CountMoods(entries),
			Vibes:  vibes[key],
			Tracks: make([]TrackData, len(entries)),
		}
		for i, e := range entries {
			period.Tracks[i] = newTrackData(e)
		}
		data.Periods = append(data.Periods, period)
	}
	return data
}

var _ library.Sink = HTMLSink{}
