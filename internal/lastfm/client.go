// Package lastfm looks up artist genres from Last.fm top tags.
package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/justestif/go-spotify-mood-timeline/internal/library"
)

const (
	defaultBaseURL = "http://ws.audioscrobbler.com/2.0/"
	userAgent      = "spotify-mood-timeline/1.0"

	// DefaultMaxTags is how many of an artist's top tags count as genres.
	DefaultMaxTags = 5
)

// Last.fm API error codes.
const (
	errCodeInvalidParams = 6
	errCodeInvalidAPIKey = 10
	errCodeRateLimited   = 29
)

// Sentinel errors.
var (
	// ErrMissingAPIKey is returned when the client is created without an API key.
	ErrMissingAPIKey = errors.New("missing Last.fm API key")

	// ErrRateLimited is returned when the API rate limit is exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidAPIKey is returned when the API key is invalid.
	ErrInvalidAPIKey = errors.New("invalid API key")
)

// Client is a Last.fm API client.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	maxTags    int
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMaxTags limits how many top tags are returned per artist.
func WithMaxTags(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTags = n
		}
	}
}

// NewClient creates a new Last.fm API client.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: defaultBaseURL,
		maxTags: DefaultMaxTags,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ArtistGenres returns the artist's top Last.fm tags, lowercased, as genres.
// Artists Last.fm does not know have no genres.
func (c *Client) ArtistGenres(ctx context.Context, artist library.Artist) ([]string, error) {
	if strings.TrimSpace(artist.Name) == "" {
		return []string{}, nil
	}

	params := url.Values{
		"method":      {"artist.getTopTags"},
		"artist":      {artist.Name},
		"autocorrect": {"1"},
		"format":      {"json"},
		"api_key":     {c.apiKey},
	}

	body, err := c.doRequest(ctx, params)
	if errors.Is(err, errUnknownArtist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching artist tags: %w", err)
	}

	var resp artistTagsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing artist tags response: %w", err)
	}

	genres := []string{}
	for _, tag := range resp.TopTags.Tag {
		name := strings.ToLower(strings.TrimSpace(tag.Name))
		if name == "" {
			continue
		}
		genres = append(genres, name)
		if len(genres) == c.maxTags {
			break
		}
	}
	return genres, nil
}

var errUnknownArtist = errors.New("unknown artist")

// doRequest performs a single GET request. Rate limits and server errors are
// returned as retriable errors; bad keys and other client errors are permanent.
func (c *Client) doRequest(ctx context.Context, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	// Check for API error in response
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != 0 {
		switch apiErr.Error {
		case errCodeRateLimited:
			return nil, ErrRateLimited
		case errCodeInvalidAPIKey:
			return nil, library.Permanent(ErrInvalidAPIKey)
		case errCodeInvalidParams:
			return nil, errUnknownArtist
		default:
			return nil, fmt.Errorf("API error %d: %s", apiErr.Error, apiErr.Message)
		}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, library.Permanent(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	return body, nil
}

var _ library.GenreLookup = (*Client)(nil)
