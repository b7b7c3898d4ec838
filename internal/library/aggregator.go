package library

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/justestif/go-spotify-mood-timeline/internal/logger"
	"github.com/justestif/go-spotify-mood-timeline/internal/metrics"
)

// Defaults for aggregation.
const (
	DefaultPageSize           = 50
	DefaultGenreConcurrency   = 5
	DefaultAggregationTimeout = 2 * time.Minute
)

// Upstream operation names, used in errors, logs and metrics.
const (
	opSavedTracks   = "saved tracks"
	opAudioFeatures = "audio features"
	opArtistGenres  = "artist genres"
)

// PagedSource returns saved tracks newest first.
type PagedSource interface {
	SavedTracks(ctx context.Context, offset, limit int) ([]SavedItem, error)
}

// FeatureLookup returns audio features co-indexed with ids.
// A nil element means the track has no features.
type FeatureLookup interface {
	AudioFeatures(ctx context.Context, ids []string) ([]*AudioFeatures, error)
}

// GenreLookup returns the genres attributed to an artist. An empty result is valid.
type GenreLookup interface {
	ArtistGenres(ctx context.Context, artist Artist) ([]string, error)
}

// Result is the grouped output of an aggregation.
type Result struct {
	GroupBy GroupBy
	Groups  map[string][]Entry
	Keys    []string // period keys in the order they were first seen (newest first)
	Skipped int      // malformed feed items
}

// Len returns the total number of entries across all groups.
func (r *Result) Len() int {
	n := 0
	for _, entries := range r.Groups {
		n += len(entries)
	}
	return n
}

func (r *Result) add(key string, e Entry) {
	if _, ok := r.Groups[key]; !ok {
		r.Keys = append(r.Keys, key)
	}
	r.Groups[key] = append(r.Groups[key], e)
}

// pageOutcome tells the pagination loop what to do after a page.
type pageOutcome int

const (
	pageContinue       pageOutcome = iota // fetch the next page
	pageStopAtBoundary                    // an entry older than the window was seen
	pageExhausted                         // the feed has no more entries
)

func (o pageOutcome) String() string {
	switch o {
	case pageContinue:
		return "continue"
	case pageStopAtBoundary:
		return "stop_at_boundary"
	case pageExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Aggregator walks the saved-tracks feed and groups entries by period.
// It holds no per-request state and is safe for concurrent use.
type Aggregator struct {
	source   PagedSource
	features FeatureLookup
	genres   GenreLookup

	classifier       Classifier
	pageSize         int
	genreConcurrency int
	timeout          time.Duration
	retryPolicy      RetryPolicy
	log              *logger.Logger
	metrics          *metrics.Recorder
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithPageSize sets the number of saved tracks requested per page.
func WithPageSize(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.pageSize = n
		}
	}
}

// WithGenreConcurrency bounds the concurrent genre lookups within a page.
func WithGenreConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.genreConcurrency = n
		}
	}
}

// WithTimeout sets the overall deadline of one aggregation. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d >= 0 {
			a.timeout = d
		}
	}
}

// WithRetryPolicy sets the retry budget for upstream calls.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(a *Aggregator) {
		a.retryPolicy = p
	}
}

// WithThresholds overrides the mood thresholds.
func WithThresholds(t Thresholds) Option {
	return func(a *Aggregator) {
		a.classifier = NewClassifier(t)
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// NewAggregator creates an Aggregator over the given collaborators.
func NewAggregator(source PagedSource, features FeatureLookup, genres GenreLookup, opts ...Option) *Aggregator {
	a := &Aggregator{
		source:           source,
		features:         features,
		genres:           genres,
		classifier:       NewClassifier(DefaultThresholds()),
		pageSize:         DefaultPageSize,
		genreConcurrency: DefaultGenreConcurrency,
		timeout:          DefaultAggregationTimeout,
		retryPolicy:      DefaultRetryPolicy(),
		log:              logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate fetches saved tracks newest first until the feed passes the start
// of the requested window or runs out, and groups the matching entries by period.
//
// Any upstream failure that survives the retry budget fails the whole request;
// no partial result is returned.
func (a *Aggregator) Aggregate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.GroupBy == "" {
		req.GroupBy = GroupYearly
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	log := a.log.With("aggregation_id", uuid.NewString())
	started := time.Now()

	result, err := a.walk(ctx, log, req)
	if err != nil {
		a.metrics.AggregationDone("error", time.Since(started))
		log.Error("aggregation failed", "error", err)
		return nil, err
	}

	a.metrics.AggregationDone("ok", time.Since(started))
	log.Info("aggregation complete",
		"periods", len(result.Keys),
		"entries", result.Len(),
		"skipped", result.Skipped,
		"elapsed", time.Since(started))
	return result, nil
}

func (a *Aggregator) walk(ctx context.Context, log *logger.Logger, req Request) (*Result, error) {
	result := &Result{
		GroupBy: req.GroupBy,
		Groups:  make(map[string][]Entry),
	}
	start, endExclusive := req.window()

	for offset := 0; ; offset += a.pageSize {
		var page []SavedItem
		err := a.retry(ctx, log, opSavedTracks, func(ctx context.Context) error {
			var err error
			page, err = a.source.SavedTracks(ctx, offset, a.pageSize)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("fetching saved tracks at offset %d: %w", offset, err)
		}
		a.metrics.PageFetched()

		outcome, err := a.processPage(ctx, log, req, page, start, endExclusive, result)
		if err != nil {
			return nil, err
		}
		if outcome == pageContinue && len(page) < a.pageSize {
			outcome = pageExhausted
		}

		log.Debug("page processed", "offset", offset, "items", len(page), "outcome", outcome.String())
		if outcome != pageContinue {
			return result, nil
		}
	}
}

// processPage enriches, filters and groups one page of the feed.
func (a *Aggregator) processPage(
	ctx context.Context,
	log *logger.Logger,
	req Request,
	page []SavedItem,
	start, endExclusive time.Time,
	result *Result,
) (pageOutcome, error) {
	if len(page) == 0 {
		return pageExhausted, nil
	}

	items := make([]SavedItem, 0, len(page))
	for _, item := range page {
		if item.malformed() {
			result.Skipped++
			a.metrics.EntryMalformed()
			log.Warn("skipping library entry", "error", ErrMalformedEntry, "id", item.ID, "name", item.Name)
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return pageContinue, nil
	}

	features, err := a.fetchFeatures(ctx, log, items)
	if err != nil {
		return 0, err
	}

	outcome := pageContinue
	var qualifying []Entry
	for i, item := range items {
		if item.SavedAt.Before(start) {
			// The feed is newest first, so nothing after this can be in range.
			outcome = pageStopAtBoundary
			break
		}
		if !item.SavedAt.Before(endExclusive) {
			continue
		}
		qualifying = append(qualifying, Entry{
			ID:          item.ID,
			Name:        item.Name,
			Artists:     item.Artists,
			SavedAt:     item.SavedAt,
			PreviewURL:  item.PreviewURL,
			ExternalURL: item.ExternalURL,
			Features:    features[i],
		})
		a.metrics.EntryQualified()
	}

	if err := a.resolveGenres(ctx, log, qualifying); err != nil {
		return 0, err
	}

	for _, e := range qualifying {
		e.Mood = a.classifier.ClassifyFeatures(e.Features)
		if req.Genre != "" && !matchesGenre(e.Genres, req.Genre) {
			continue
		}
		if req.Mood != "" && e.Mood != req.Mood {
			continue
		}
		a.metrics.EntryMatched()
		result.add(KeyFor(e.SavedAt, req.GroupBy), e)
	}

	return outcome, nil
}

// fetchFeatures looks up audio features for every item in one call.
func (a *Aggregator) fetchFeatures(ctx context.Context, log *logger.Logger, items []SavedItem) ([]*AudioFeatures, error) {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	var features []*AudioFeatures
	err := a.retry(ctx, log, opAudioFeatures, func(ctx context.Context) error {
		f, err := a.features.AudioFeatures(ctx, ids)
		if err != nil {
			return err
		}
		if len(f) != len(ids) {
			return fmt.Errorf("got %d feature sets for %d tracks", len(f), len(ids))
		}
		features = f
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching audio features: %w", err)
	}
	return features, nil
}

// resolveGenres fills Genres for each entry from its primary artist.
// Each distinct artist is looked up once; lookups run concurrently up to
// genreConcurrency and any failure fails the page.
func (a *Aggregator) resolveGenres(ctx context.Context, log *logger.Logger, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	var artists []Artist
	index := make(map[string]int)
	for _, e := range entries {
		artist, ok := e.PrimaryArtist()
		if !ok {
			continue
		}
		key := artist.Key()
		if _, seen := index[key]; !seen {
			index[key] = len(artists)
			artists = append(artists, artist)
		}
	}

	genres := make([][]string, len(artists))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.genreConcurrency)
	for i, artist := range artists {
		i, artist := i, artist
		g.Go(func() error {
			return a.retry(gctx, log, opArtistGenres, func(ctx context.Context) error {
				found, err := a.genres.ArtistGenres(ctx, artist)
				if err != nil {
					return err
				}
				genres[i] = found
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("fetching artist genres: %w", err)
	}

	for i := range entries {
		artist, ok := entries[i].PrimaryArtist()
		if !ok {
			entries[i].Genres = []string{}
			continue
		}
		found := genres[index[artist.Key()]]
		if found == nil {
			found = []string{}
		}
		entries[i].Genres = found
	}
	return nil
}
