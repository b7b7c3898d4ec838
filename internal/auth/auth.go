// Package auth runs the Spotify OAuth flow for the command line and caches the token on disk.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-mood-timeline/internal/logger"
)

const callbackTimeout = 2 * time.Minute

var (
	// ErrMissingCredentials is returned when the client ID or secret is empty.
	ErrMissingCredentials = errors.New("missing Spotify client ID or secret")

	// ErrAuthTimeout is returned when the OAuth callback is not received in time.
	ErrAuthTimeout = errors.New("authentication timed out waiting for callback")

	// ErrStateMismatch is returned when the OAuth state parameter doesn't match.
	ErrStateMismatch = errors.New("OAuth state mismatch")
)

// Scopes are the permissions requested from the user: reading saved tracks
// and saving periods as private playlists.
func Scopes() []string {
	return []string{
		spotifyauth.ScopeUserLibraryRead,
		spotifyauth.ScopePlaylistModifyPrivate,
	}
}

// NewSpotifyAuth builds the OAuth authenticator shared by the CLI and the web server.
func NewSpotifyAuth(clientID, clientSecret, redirectURL string) *spotifyauth.Authenticator {
	return spotifyauth.New(
		spotifyauth.WithClientID(clientID),
		spotifyauth.WithClientSecret(clientSecret),
		spotifyauth.WithRedirectURL(redirectURL),
		spotifyauth.WithScopes(Scopes()...),
	)
}

// Config holds the OAuth client settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string // a loopback URL; its host:port serves the callback
	TokenPath    string // empty uses the default cache location
}

// Authenticator handles Spotify OAuth2 authentication for the CLI.
type Authenticator struct {
	auth         *spotifyauth.Authenticator
	cache        *TokenCache
	callbackAddr string
	callbackPath string
	out          io.Writer
	log          *logger.Logger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithOutput sets where the login URL is printed. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(a *Authenticator) {
		if w != nil {
			a.out = w
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Authenticator) {
		if l != nil {
			a.log = l
		}
	}
}

// New creates an Authenticator. It returns ErrMissingCredentials if the
// client ID or secret is empty.
func New(cfg Config, opts ...Option) (*Authenticator, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}

	redirect, err := url.Parse(cfg.RedirectURL)
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("invalid redirect URL %q", cfg.RedirectURL)
	}

	cache := NewTokenCache(cfg.TokenPath)
	if cfg.TokenPath == "" {
		if cache, err = DefaultTokenCache(); err != nil {
			return nil, fmt.Errorf("creating token cache: %w", err)
		}
	}

	a := &Authenticator{
		auth:         NewSpotifyAuth(cfg.ClientID, cfg.ClientSecret, cfg.RedirectURL),
		cache:        cache,
		callbackAddr: redirect.Host,
		callbackPath: redirect.Path,
		out:          os.Stdout,
		log:          logger.Nop(),
	}
	if a.callbackPath == "" {
		a.callbackPath = "/"
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Authenticate returns an authenticated Spotify client.
// It first checks for a cached token and uses it if valid/refreshable.
// Otherwise, it runs the full OAuth flow.
func (a *Authenticator) Authenticate(ctx context.Context) (*spotify.Client, error) {
	token, err := a.cache.Load()
	if err != nil {
		return nil, fmt.Errorf("loading cached token: %w", err)
	}

	if token != nil {
		// oauth2 refreshes the cached token if needed
		client := spotify.New(a.auth.Client(ctx, token), spotify.WithRetry(true))

		_, err := client.CurrentUser(ctx)
		if err == nil {
			newToken, tokenErr := client.Token()
			if tokenErr == nil && newToken.AccessToken != token.AccessToken {
				if err := a.cache.Save(newToken); err != nil {
					a.log.Warn("caching refreshed token", "error", err)
				}
			}
			return client, nil
		}

		a.log.Info("cached token rejected, starting new authentication", "error", err)
	}

	return a.runOAuthFlow(ctx)
}

// runOAuthFlow performs the full OAuth authorization code flow.
func (a *Authenticator) runOAuthFlow(ctx context.Context) (*spotify.Client, error) {
	state, err := GenerateState()
	if err != nil {
		return nil, fmt.Errorf("generating state: %w", err)
	}

	tokenCh := make(chan *oauth2.Token, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(a.callbackPath, func(w http.ResponseWriter, r *http.Request) {
		a.handleCallback(w, r, state, tokenCh, errCh)
	})

	server := &http.Server{
		Addr:              a.callbackAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("callback server error: %w", err)
		}
	}()

	fmt.Fprintln(a.out, "\nTo authenticate, open this URL in your browser:")
	fmt.Fprintln(a.out, a.auth.AuthURL(state))
	fmt.Fprintln(a.out, "\nWaiting for authentication...")

	var token *oauth2.Token
	select {
	case token = <-tokenCh:
	case err := <-errCh:
		_ = server.Shutdown(ctx)
		return nil, err
	case <-time.After(callbackTimeout):
		_ = server.Shutdown(ctx)
		return nil, ErrAuthTimeout
	case <-ctx.Done():
		_ = server.Shutdown(context.Background())
		return nil, ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)

	if err := a.cache.Save(token); err != nil {
		a.log.Warn("caching token", "path", a.cache.Path(), "error", err)
	}

	return spotify.New(a.auth.Client(ctx, token), spotify.WithRetry(true)), nil
}

// handleCallback processes the OAuth callback from Spotify.
func (a *Authenticator) handleCallback(w http.ResponseWriter, r *http.Request, expectedState string, tokenCh chan<- *oauth2.Token, errCh chan<- error) {
	if r.URL.Query().Get("state") != expectedState {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		errCh <- ErrStateMismatch
		return
	}

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		http.Error(w, "Authentication failed: "+errMsg, http.StatusBadRequest)
		errCh <- fmt.Errorf("spotify auth error: %s", errMsg)
		return
	}

	token, err := a.auth.Token(r.Context(), expectedState, r)
	if err != nil {
		http.Error(w, "Failed to get token", http.StatusInternalServerError)
		errCh <- fmt.Errorf("exchanging code for token: %w", err)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Authentication Successful</title></head>
<body>
<h1>Authentication Successful!</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>`)

	tokenCh <- token
}

// GenerateState creates a random state string for OAuth.
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Logout removes the cached token.
func (a *Authenticator) Logout() error {
	return a.cache.Delete()
}
