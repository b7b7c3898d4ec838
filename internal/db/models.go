package db

import "time"

// User represents a Spotify user profile.
type User struct {
	ID               string
	DisplayName      string
	Email            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	LastAggregatedAt *time.Time // nullable
}

// Session represents an authenticated web session.
type Session struct {
	ID           string
	UserID       string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// ArtistGenres is a cached genre lookup for one artist from one source.
type ArtistGenres struct {
	ArtistKey string
	Source    string // "spotify" or "lastfm"
	Genres    []string
	FetchedAt time.Time
}
