// Package spotify adapts the Spotify Web API to the library's feed and lookup interfaces.
package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-mood-timeline/internal/library"
)

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	api *spotify.Client
}

// New creates a new Spotify client wrapper.
// The underlying client should already be authenticated.
func New(api *spotify.Client) *Client {
	return &Client{api: api}
}

// Profile is the signed-in user's public identity.
type Profile struct {
	ID          string
	DisplayName string
	Email       string
}

// CurrentUser returns the signed-in user's profile.
func (c *Client) CurrentUser(ctx context.Context) (*Profile, error) {
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting current user: %w", err)
	}
	name := user.DisplayName
	if name == "" {
		name = user.ID
	}
	return &Profile{ID: user.ID, DisplayName: name, Email: user.Email}, nil
}

// UserID returns the current user's Spotify ID.
func (c *Client) UserID(ctx context.Context) (string, error) {
	p, err := c.CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// Token returns the client's current OAuth token, which may have been
// refreshed since the client was created.
func (c *Client) Token() (*oauth2.Token, error) {
	return c.api.Token()
}

var (
	_ library.PagedSource   = (*Client)(nil)
	_ library.FeatureLookup = (*Client)(nil)
	_ library.GenreLookup   = (*Client)(nil)
)
