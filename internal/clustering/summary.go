package clustering

import (
	"fmt"
	"io"
	"strings"

	"github.com/justestif/go-spotify-mood-timeline/internal/library"
)

const (
	defaultSampleCount = 3
	dateFormat         = library.DateLayout
)

// MoodCount is the number of entries with a mood.
type MoodCount struct {
	Mood  library.Mood
	Count int
}

// CountMoods tallies entries by mood in display order, omitting moods with no entries.
func CountMoods(entries []library.Entry) []MoodCount {
	counts := make(map[library.Mood]int)
	for _, e := range entries {
		counts[e.Mood]++
	}

	order := append(library.Moods(), library.MoodUnknown)
	var out []MoodCount
	for _, m := range order {
		if counts[m] > 0 {
			out = append(out, MoodCount{Mood: m, Count: counts[m]})
		}
	}
	return out
}

// TextSink renders a result as a plain-text report with per-period vibes.
type TextSink struct {
	Config  Config
	Samples int // tracks listed per period; 0 uses the default, negative lists all
}

// Render writes FormatSummary of result to w.
func (s TextSink) Render(w io.Writer, result *library.Result) error {
	cfg := s.Config
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	_, err := io.WriteString(w, FormatSummary(result, PeriodVibes(result, cfg), s.Samples))
	return err
}

// FormatSummary returns a human-readable summary of an aggregation result.
// Periods appear in the order they were first seen. Each lists its mood
// breakdown, vibes and the first samples tracks.
func FormatSummary(result *library.Result, vibes map[string][]Vibe, samples int) string {
	if samples == 0 {
		samples = defaultSampleCount
	}

	var sb strings.Builder

	total := result.Len()
	if total == 0 {
		sb.WriteString("No saved tracks matched")
	} else {
		fmt.Fprintf(&sb, "Found %s in %s (grouped %s)",
			plural(total, "track"), plural(len(result.Keys), "period"), result.GroupBy)
	}
	if result.Skipped > 0 {
		fmt.Fprintf(&sb, " (%s skipped)", plural(result.Skipped, "malformed entry"))
	}
	sb.WriteString("\n")

	for _, key := range result.Keys {
		entries := result.Groups[key]
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "%s (%s)\n", key, plural(len(entries), "track"))

		var moods []string
		for _, mc := range CountMoods(entries) {
			moods = append(moods, fmt.Sprintf("%s %d", mc.Mood, mc.Count))
		}
		fmt.Fprintf(&sb, "  Moods: %s\n", strings.Join(moods, ", "))

		if vs := vibes[key]; len(vs) > 0 {
			names := make([]string, len(vs))
			for i, v := range vs {
				names[i] = fmt.Sprintf("%s (%d)", v.Name, len(v.Entries))
			}
			fmt.Fprintf(&sb, "  Vibes: %s\n", strings.Join(names, ", "))
		}

		n := len(entries)
		if samples > 0 {
			n = min(samples, n)
		}
		for _, e := range entries[:n] {
			fmt.Fprintf(&sb, "  • %q - %s [%s] %s\n", e.Name, e.ArtistNames(), e.Mood, e.SavedAt.Format(dateFormat))
		}
		if remaining := len(entries) - n; remaining > 0 {
			fmt.Fprintf(&sb, "  ... and %d more\n", remaining)
		}
	}

	return sb.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	if strings.HasSuffix(word, "y") {
		return fmt.Sprintf("%d %sies", n, strings.TrimSuffix(word, "y"))
	}
	return fmt.Sprintf("%d %ss", n, word)
}

var _ library.Sink = TextSink{}
