package clustering

// vibeName names a centroid using a 2x2 energy/valence quadrant system, with
// a danceability modifier.
//
// Quadrants:
//   - High Energy + High Valence = "Upbeat Party"
//   - High Energy + Low Valence  = "Intense & Dark"
//   - Low Energy  + High Valence = "Chill & Happy"
//   - Low Energy  + Low Valence  = "Reflective & Melancholy"
//
// Danceability above 0.7 appends " (Danceable)".
func vibeName(c Centroid) (name, description string) {
	highEnergy := c.Energy > 0.6
	highValence := c.Valence > 0.5

	switch {
	case highEnergy && highValence:
		name = "Upbeat Party"
		description = "High-energy, positive vibes for dancing and celebrations"
	case highEnergy:
		name = "Intense & Dark"
		description = "Intense, driving energy with darker emotional tones"
	case highValence:
		name = "Chill & Happy"
		description = "Relaxed and uplifting, good for unwinding"
	default:
		name = "Reflective & Melancholy"
		description = "Contemplative and introspective, for quiet moments"
	}

	if c.Danceability > 0.7 {
		name += " (Danceable)"
	}
	return name, description
}
