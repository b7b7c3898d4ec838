package library

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	tests := []struct {
		name    string
		valence float64
		energy  float64
		want    Mood
	}{
		{"happy", 0.9, 0.9, MoodHappy},
		{"sad", 0.1, 0.1, MoodSad},
		{"energetic", 0.5, 0.9, MoodEnergetic},
		{"chill", 0.5, 0.1, MoodChill},
		{"balanced", 0.5, 0.5, MoodBalanced},
		{"happy boundary inclusive", 0.7, 0.7, MoodHappy},
		{"sad boundary inclusive", 0.3, 0.4, MoodSad},
		{"happy wins over energetic", 0.8, 0.95, MoodHappy},
		{"low valence high energy is energetic", 0.1, 0.85, MoodEnergetic},
		{"sad wins over chill", 0.2, 0.2, MoodSad},
		{"energy just under energetic", 0.5, 0.79, MoodBalanced},
		{"energy just over chill", 0.5, 0.31, MoodBalanced},
		{"low valence mid energy", 0.1, 0.5, MoodBalanced},
		{"high valence low energy is chill", 0.9, 0.2, MoodChill},
		{"all zero", 0, 0, MoodSad},
		{"all one", 1, 1, MoodHappy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.valence, tt.energy); got != tt.want {
				t.Errorf("Classify(%v, %v) = %q, want %q", tt.valence, tt.energy, got, tt.want)
			}
		})
	}
}

func TestClassifyIsTotal(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	valid := map[Mood]bool{}
	for _, m := range Moods() {
		valid[m] = true
	}

	for v := 0; v <= 20; v++ {
		for e := 0; e <= 20; e++ {
			got := c.Classify(float64(v)/20, float64(e)/20)
			if !valid[got] {
				t.Fatalf("Classify(%v, %v) = %q, not a selectable mood", float64(v)/20, float64(e)/20, got)
			}
		}
	}
}

func TestClassifyFeatures(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	if got := c.ClassifyFeatures(nil); got != MoodUnknown {
		t.Errorf("ClassifyFeatures(nil) = %q, want %q", got, MoodUnknown)
	}

	f := &AudioFeatures{Valence: 0.9, Energy: 0.9, Danceability: 0.1, Tempo: 60}
	if got := c.ClassifyFeatures(f); got != MoodHappy {
		t.Errorf("ClassifyFeatures() = %q, want %q", got, MoodHappy)
	}
}

func TestClassifyCustomThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.HappyMinValence = 0.95
	c := NewClassifier(th)

	if got := c.Classify(0.9, 0.9); got != MoodEnergetic {
		t.Errorf("Classify(0.9, 0.9) with raised happy valence = %q, want %q", got, MoodEnergetic)
	}

	// The default classifier is unaffected.
	if got := NewClassifier(DefaultThresholds()).Classify(0.9, 0.9); got != MoodHappy {
		t.Errorf("default Classify(0.9, 0.9) = %q, want %q", got, MoodHappy)
	}
}

func TestParseMood(t *testing.T) {
	tests := []struct {
		input   string
		want    Mood
		wantErr error
	}{
		{"", "", nil},
		{"Happy", MoodHappy, nil},
		{"chill", MoodChill, nil},
		{" ENERGETIC ", MoodEnergetic, nil},
		{"Unknown", "", ErrInvalidMood},
		{"angry", "", ErrInvalidMood},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMood(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseMood(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMood(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
