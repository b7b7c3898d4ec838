package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-mood-timeline/internal/auth"
	"github.com/justestif/go-spotify-mood-timeline/internal/clustering"
	"github.com/justestif/go-spotify-mood-timeline/internal/db"
	"github.com/justestif/go-spotify-mood-timeline/internal/library"
	"github.com/justestif/go-spotify-mood-timeline/internal/logger"
	spotifyclient "github.com/justestif/go-spotify-mood-timeline/internal/spotify"
)

const (
	appTitle        = "Spotify Mood Timeline"
	stateCookieName = "oauth_state"
	genreSampleSize = library.DefaultSampleSize
)

// Library is what the handlers need from a signed-in user's Spotify library.
type Library interface {
	Aggregate(ctx context.Context, req library.Request) (*library.Result, error)
	SampleGenres(ctx context.Context, n int) ([]string, error)
	SavePlaylist(ctx context.Context, name, description string, entries []library.Entry) (string, error)
	Token() (*oauth2.Token, error)
}

// LibraryFactory builds a Library acting with the given user token.
type LibraryFactory func(ctx context.Context, token *oauth2.Token) Library

// HandlersConfig holds the dependencies of Handlers.
type HandlersConfig struct {
	Auth      *spotifyauth.Authenticator
	Sessions  SessionManager
	Users     UserRepository // optional; nil when no database is configured
	Templates *Templates
	Libraries LibraryFactory
	Vibes     clustering.Config
	Logger    *logger.Logger
}

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	auth      *spotifyauth.Authenticator
	sessions  SessionManager
	users     UserRepository
	templates *Templates
	libraries LibraryFactory
	vibes     clustering.Config
	log       *logger.Logger
	now       func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cfg HandlersConfig) *Handlers {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Handlers{
		auth:      cfg.Auth,
		sessions:  cfg.Sessions,
		users:     cfg.Users,
		templates: cfg.Templates,
		libraries: cfg.Libraries,
		vibes:     cfg.Vibes,
		log:       log,
		now:       time.Now,
	}
}

type sessionKey struct{}

func sessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

// RequireSession rejects requests without a valid session. Page loads are
// sent back home; form posts get 401.
func (h *Handlers) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := sessionFromRequest(h.sessions, r)
		if session == nil {
			if r.Method == http.MethodGet {
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
			h.renderError(w, r, http.StatusUnauthorized, "Please log in with Spotify first.")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
	})
}

func (h *Handlers) pageData(r *http.Request, title string) PageData {
	data := PageData{
		Title:       title,
		CurrentPath: r.URL.Path,
	}
	if session := sessionFromRequest(h.sessions, r); session != nil {
		data.User = &UserData{ID: session.UserID, Name: session.UserName}
	}
	return data
}

// Home handles the home page (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	page := h.pageData(r, appTitle)
	data := HomePageData{
		PageData:      page,
		Authenticated: page.User != nil,
	}
	h.render(w, r, http.StatusOK, "home", data)
}

// Login initiates the Spotify OAuth flow (GET /auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	state, err := auth.GenerateState()
	if err != nil {
		h.log.Error("generating oauth state", "error", err)
		h.renderError(w, r, http.StatusInternalServerError, "Could not start the login.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})

	http.Redirect(w, r, h.auth.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback from Spotify (GET /callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "Missing login state. Please try again.")
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" || state != stateCookie.Value {
		h.renderError(w, r, http.StatusBadRequest, "Login state mismatch. Please try again.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		h.renderError(w, r, http.StatusBadRequest, "Spotify declined the login: "+errMsg)
		return
	}

	ctx := r.Context()
	token, err := h.auth.Token(ctx, state, r)
	if err != nil {
		h.log.Error("exchanging oauth code", "error", err)
		h.renderError(w, r, http.StatusBadGateway, "Could not complete the login with Spotify.")
		return
	}

	client := spotifyclient.New(spotify.New(h.auth.Client(ctx, token)))
	profile, err := client.CurrentUser(ctx)
	if err != nil {
		h.log.Error("fetching profile", "error", err)
		h.renderError(w, r, http.StatusBadGateway, "Could not load your Spotify profile.")
		return
	}

	if h.users != nil {
		user := &db.User{ID: profile.ID, DisplayName: profile.DisplayName, Email: profile.Email}
		if err := h.users.Upsert(ctx, user); err != nil {
			h.log.Error("saving user", "user", profile.ID, "error", err)
			h.renderError(w, r, http.StatusInternalServerError, "Could not save your account.")
			return
		}
	}

	session, err := h.sessions.Create(ctx, token, profile.ID, profile.DisplayName)
	if err != nil {
		h.log.Error("creating session", "user", profile.ID, "error", err)
		h.renderError(w, r, http.StatusInternalServerError, "Could not create a session.")
		return
	}

	setSessionCookie(w, session)
	h.log.Info("user logged in", "user", profile.ID)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Logout clears the session and redirects to home (POST /auth/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if session := sessionFromRequest(h.sessions, r); session != nil {
		if err := h.sessions.Delete(r.Context(), session.ID); err != nil {
			h.log.Warn("deleting session", "error", err)
		}
	}

	clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Dashboard shows the search form with genres sampled from the user's
// most recent saves (GET /dashboard).
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := sessionFrom(ctx)
	lib := h.libraries(ctx, session.Token)

	genres, err := lib.SampleGenres(ctx, genreSampleSize)
	h.persistToken(ctx, session, lib)
	if err != nil {
		h.log.Warn("sampling genres", "user", session.UserID, "error", err)
		genres = nil
	}

	today := h.now().UTC()
	data := DashboardPageData{
		PageData:     h.pageData(r, "Your mood timeline"),
		Genres:       genres,
		Moods:        library.Moods(),
		GroupOptions: groupOptions(library.GroupMonthly),
		Start:        today.AddDate(-1, 0, 0).Format(library.DateLayout),
		End:          today.Format(library.DateLayout),
	}
	if err != nil {
		data.Flash = &FlashMessage{Type: "warning", Message: "Genre suggestions are unavailable right now."}
	}
	h.render(w, r, http.StatusOK, "dashboard", data)
}

// FetchSongs aggregates the saved tracks for the submitted form
// and renders the mood timeline (POST /fetch-songs).
func (h *Handlers) FetchSongs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := sessionFrom(ctx)

	req, query, err := h.parseRequest(r)
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "Invalid search: "+err.Error()+".")
		return
	}

	lib := h.libraries(ctx, session.Token)
	result, err := lib.Aggregate(ctx, req)
	h.persistToken(ctx, session, lib)
	if err != nil {
		h.handleAggregateError(w, r, err)
		return
	}
	h.markAggregated(ctx, session)

	sink := HTMLSink{
		Templates: h.templates,
		Vibes:     h.vibes,
		Page:      h.pageData(r, "Your mood timeline"),
		Query:     query,
		Partial:   r.Header.Get("HX-Request") == "true",
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := sink.Render(w, result); err != nil {
		h.log.Error("rendering results", "error", err)
	}
}

// SavePlaylist re-runs the submitted search and saves one period as a
// private playlist (POST /playlist).
func (h *Handlers) SavePlaylist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := sessionFrom(ctx)

	req, query, err := h.parseRequest(r)
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "Invalid search: "+err.Error()+".")
		return
	}
	period := strings.TrimSpace(r.PostFormValue("period"))
	if period == "" {
		h.renderError(w, r, http.StatusBadRequest, "No period selected.")
		return
	}

	lib := h.libraries(ctx, session.Token)
	defer h.persistToken(ctx, session, lib)

	result, err := lib.Aggregate(ctx, req)
	if err != nil {
		h.handleAggregateError(w, r, err)
		return
	}
	entries := result.Groups[period]
	if len(entries) == 0 {
		h.renderError(w, r, http.StatusNotFound, fmt.Sprintf("No tracks found for %s.", period))
		return
	}

	name := playlistName(period, query)
	description := fmt.Sprintf("Saved tracks from %s to %s", query.Start, query.End)
	id, err := lib.SavePlaylist(ctx, name, description, entries)
	if err != nil {
		h.log.Error("saving playlist", "user", session.UserID, "period", period, "error", err)
		h.renderError(w, r, http.StatusBadGateway, "Spotify did not accept the playlist. Please try again.")
		return
	}
	h.log.Info("playlist saved", "user", session.UserID, "period", period, "tracks", len(entries))

	data := PlaylistPageData{
		PageData:   h.pageData(r, "Playlist saved"),
		Name:       name,
		URL:        "https://open.spotify.com/playlist/" + id,
		TrackCount: len(entries),
	}
	h.render(w, r, http.StatusOK, "playlist", data)
}

// parseRequest reads the search form. An unknown grouping falls back to
// yearly; bad dates and moods are rejected.
func (h *Handlers) parseRequest(r *http.Request) (library.Request, QueryData, error) {
	if err := r.ParseForm(); err != nil {
		return library.Request{}, QueryData{}, errors.New("could not read the form")
	}

	query := QueryData{
		Start:   strings.TrimSpace(r.PostFormValue("start")),
		End:     strings.TrimSpace(r.PostFormValue("end")),
		GroupBy: strings.TrimSpace(r.PostFormValue("group")),
		Genre:   strings.TrimSpace(r.PostFormValue("genre")),
		Mood:    strings.TrimSpace(r.PostFormValue("mood")),
	}

	start, err := library.ParseDate(query.Start)
	if err != nil {
		return library.Request{}, query, fmt.Errorf("start date %q is not a YYYY-MM-DD date", query.Start)
	}
	end, err := library.ParseDate(query.End)
	if err != nil {
		return library.Request{}, query, fmt.Errorf("end date %q is not a YYYY-MM-DD date", query.End)
	}
	mood, err := library.ParseMood(query.Mood)
	if err != nil {
		return library.Request{}, query, fmt.Errorf("unknown mood %q", query.Mood)
	}

	groupBy := library.ParseGroupBy(query.GroupBy)
	if !strings.EqualFold(strings.TrimSpace(query.GroupBy), string(groupBy)) {
		h.log.Warn("unknown grouping, using yearly", "group", query.GroupBy)
	}
	query.GroupBy = string(groupBy)
	query.Mood = string(mood)

	return library.Request{
		Start:   start,
		End:     end,
		GroupBy: groupBy,
		Genre:   query.Genre,
		Mood:    mood,
	}, query, nil
}

func (h *Handlers) handleAggregateError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, library.ErrInvalidRange):
		h.renderError(w, r, http.StatusBadRequest, "The start date must not be after the end date.")
	case errors.Is(err, context.DeadlineExceeded):
		h.log.Error("aggregation timed out", "error", err)
		h.renderError(w, r, http.StatusGatewayTimeout, "Spotify took too long to answer. Try a shorter date range.")
	case errors.Is(err, library.ErrUpstreamUnavailable):
		h.log.Error("upstream unavailable", "error", err)
		h.renderError(w, r, http.StatusBadGateway, "Spotify is not answering right now. Please try again shortly.")
	default:
		h.log.Error("aggregation failed", "error", err)
		h.renderError(w, r, http.StatusInternalServerError, "Something went wrong while reading your library.")
	}
}

// persistToken stores the token back in the session if oauth2 refreshed it.
func (h *Handlers) persistToken(ctx context.Context, session *Session, lib Library) {
	token, err := lib.Token()
	if err != nil || token == nil || token.AccessToken == session.Token.AccessToken {
		return
	}
	if err := h.sessions.UpdateToken(ctx, session.ID, token); err != nil {
		h.log.Warn("saving refreshed token", "user", session.UserID, "error", err)
		return
	}
	session.Token = token
}

func (h *Handlers) markAggregated(ctx context.Context, session *Session) {
	if h.users == nil {
		return
	}
	if err := h.users.MarkAggregated(ctx, session.UserID, h.now()); err != nil {
		h.log.Warn("recording aggregation", "user", session.UserID, "error", err)
	}
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, page, data); err != nil {
		h.log.Error("rendering template", "page", page, "path", r.URL.Path, "error", err)
	}
}

func (h *Handlers) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	data := ErrorPageData{
		PageData: h.pageData(r, http.StatusText(status)),
		Status:   status,
		Message:  message,
	}
	h.render(w, r, status, "error", data)
}

// playlistName names a saved period, e.g. "Summer 2024 · Chill · indie".
func playlistName(period string, q QueryData) string {
	parts := []string{period}
	if q.Mood != "" {
		parts = append(parts, q.Mood)
	}
	if q.Genre != "" {
		parts = append(parts, q.Genre)
	}
	return strings.Join(parts, " · ")
}
