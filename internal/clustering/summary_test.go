package clustering

import (
	"bytes"
	"strings"
	"testing"

	"github.com/justestif/go-spotify-mood-timeline/internal/library"
)

func TestCountMoods(t *testing.T) {
	entries := []library.Entry{
		{Mood: library.MoodChill},
		{Mood: library.MoodHappy},
		{Mood: library.MoodUnknown},
		{Mood: library.MoodChill},
	}

	got := CountMoods(entries)
	want := []MoodCount{
		{library.MoodHappy, 1},
		{library.MoodChill, 2},
		{library.MoodUnknown, 1},
	}
	if len(got) != len(want) {
		t.Fatalf("CountMoods() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CountMoods()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFormatSummary(t *testing.T) {
	june := []library.Entry{
		entry("1", 5, 0.9, 0.9, 0.5),
		entry("2", 4, 0.9, 0.9, 0.5),
		entry("3", 3, 0.9, 0.9, 0.5),
		entry("4", 2, 0.9, 0.9, 0.5),
	}
	june[0].Mood = library.MoodHappy
	result := &library.Result{
		GroupBy: library.GroupMonthly,
		Keys:    []string{"June 2024", "May 2024"},
		Groups: map[string][]library.Entry{
			"June 2024": june,
			"May 2024":  {entry("5", 1, 0.1, 0.1, 0.1)},
		},
		Skipped: 1,
	}
	vibes := map[string][]Vibe{
		"June 2024": {{Name: "Upbeat Party", Entries: june}},
	}

	got := FormatSummary(result, vibes, 0)

	wantLines := []string{
		"Found 5 tracks in 2 periods (grouped monthly) (1 malformed entry skipped)",
		"June 2024 (4 tracks)",
		"  Moods: Happy 1, Balanced 3",
		"  Vibes: Upbeat Party (4)",
		`  • "Song 1" - Artist [Happy] 2024-06-05`,
		"  ... and 1 more",
		"May 2024 (1 track)",
	}
	for _, line := range wantLines {
		if !strings.Contains(got, line+"\n") {
			t.Errorf("summary missing line %q\n%s", line, got)
		}
	}
	if strings.Index(got, "June 2024") > strings.Index(got, "May 2024") {
		t.Error("periods not in first-seen order")
	}
	if strings.Contains(got, `"Song 4"`) {
		t.Error("summary lists more than the default sample count")
	}
}

func TestFormatSummary_AllSamples(t *testing.T) {
	result := &library.Result{
		GroupBy: library.GroupYearly,
		Keys:    []string{"2024"},
		Groups: map[string][]library.Entry{
			"2024": {entry("1", 1, 0.5, 0.5, 0.5), entry("2", 2, 0.5, 0.5, 0.5), entry("3", 3, 0.5, 0.5, 0.5), entry("4", 4, 0.5, 0.5, 0.5)},
		},
	}
	got := FormatSummary(result, nil, -1)
	if !strings.Contains(got, `"Song 4"`) || strings.Contains(got, "more") {
		t.Errorf("expected every track listed:\n%s", got)
	}
}

func TestFormatSummary_Empty(t *testing.T) {
	result := &library.Result{GroupBy: library.GroupYearly, Groups: map[string][]library.Entry{}}
	if got := FormatSummary(result, nil, 0); got != "No saved tracks matched\n" {
		t.Errorf("FormatSummary() = %q", got)
	}
}

func TestTextSink(t *testing.T) {
	result := &library.Result{
		GroupBy: library.GroupSeasonal,
		Keys:    []string{"Summer 2024"},
		Groups: map[string][]library.Entry{
			"Summer 2024": {entry("1", 1, 0.2, 0.2, 0.2), entry("2", 2, 0.2, 0.2, 0.2), entry("3", 3, 0.2, 0.2, 0.2)},
		},
	}

	var buf bytes.Buffer
	if err := (TextSink{}).Render(&buf, result); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Vibes: Reflective & Melancholy (3)") {
		t.Errorf("rendered output missing vibes:\n%s", buf.String())
	}
}
