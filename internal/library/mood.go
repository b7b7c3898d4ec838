package library

import (
	"errors"
	"fmt"
	"strings"
)

// Mood is a discrete mood label derived from valence and energy.
type Mood string

// Mood labels.
const (
	MoodHappy     Mood = "Happy"
	MoodSad       Mood = "Sad"
	MoodEnergetic Mood = "Energetic"
	MoodChill     Mood = "Chill"
	MoodBalanced  Mood = "Balanced"
	MoodUnknown   Mood = "Unknown" // no audio features available
)

// ErrInvalidMood is returned by ParseMood for labels outside Moods().
var ErrInvalidMood = errors.New("invalid mood")

// Moods returns the selectable mood labels in display order.
func Moods() []Mood {
	return []Mood{MoodHappy, MoodSad, MoodEnergetic, MoodChill, MoodBalanced}
}

// ParseMood parses a mood label case-insensitively.
// An empty string yields an empty Mood, meaning "no filter".
func ParseMood(s string) (Mood, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, m := range Moods() {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMood, s)
}

// Thresholds configures the mood decision rule.
// Fields are compared inclusively (>= for Min*, <= for Max*).
type Thresholds struct {
	HappyMinValence    float64
	HappyMinEnergy     float64
	SadMaxValence      float64
	SadMaxEnergy       float64
	EnergeticMinEnergy float64
	ChillMaxEnergy     float64
}

// DefaultThresholds returns the standard mood thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HappyMinValence:    0.7,
		HappyMinEnergy:     0.7,
		SadMaxValence:      0.3,
		SadMaxEnergy:       0.4,
		EnergeticMinEnergy: 0.8,
		ChillMaxEnergy:     0.3,
	}
}

// Classifier maps audio features to a mood label.
type Classifier struct {
	t Thresholds
}

// NewClassifier creates a Classifier with the given thresholds.
func NewClassifier(t Thresholds) Classifier {
	return Classifier{t: t}
}

// Thresholds returns the classifier's thresholds.
func (c Classifier) Thresholds() Thresholds {
	return c.t
}

// Classify returns the mood for a valence/energy pair.
//
// Rules are checked in order and the first match wins, since the regions overlap:
//   - Happy:     valence >= 0.7 and energy >= 0.7
//   - Sad:       valence <= 0.3 and energy <= 0.4
//   - Energetic: energy >= 0.8
//   - Chill:     energy <= 0.3
//   - Balanced:  everything else
func (c Classifier) Classify(valence, energy float64) Mood {
	switch {
	case valence >= c.t.HappyMinValence && energy >= c.t.HappyMinEnergy:
		return MoodHappy
	case valence <= c.t.SadMaxValence && energy <= c.t.SadMaxEnergy:
		return MoodSad
	case energy >= c.t.EnergeticMinEnergy:
		return MoodEnergetic
	case energy <= c.t.ChillMaxEnergy:
		return MoodChill
	default:
		return MoodBalanced
	}
}

// ClassifyFeatures classifies a track's features, returning MoodUnknown when f is nil.
func (c Classifier) ClassifyFeatures(f *AudioFeatures) Mood {
	if f == nil {
		return MoodUnknown
	}
	return c.Classify(f.Valence, f.Energy)
}
