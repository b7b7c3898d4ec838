package spotify

import (
	"errors"
	"net/http"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-spotify-mood-timeline/internal/library"
)

// classify marks API errors that a retry cannot fix as permanent.
// Rate limits, server errors and transport failures stay retriable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr spotify.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Status == http.StatusTooManyRequests:
		return err
	case apiErr.Status >= 500:
		return err
	case apiErr.Status >= 400:
		return library.Permanent(err)
	default:
		return err
	}
}
