package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-mood-timeline/internal/db"
)

const (
	sessionCookieName = "session_id"
	sessionTTL        = 24 * time.Hour
)

// Session represents an authenticated user session.
type Session struct {
	ID        string
	Token     *oauth2.Token
	UserID    string
	UserName  string
	CreatedAt time.Time
}

// SessionManager defines the interface for session management.
type SessionManager interface {
	Create(ctx context.Context, token *oauth2.Token, userID, userName string) (*Session, error)
	Get(ctx context.Context, id string) *Session
	Delete(ctx context.Context, id string) error
	UpdateToken(ctx context.Context, id string, token *oauth2.Token) error
}

// sessionFromRequest looks up the session named by the request cookie.
func sessionFromRequest(sessions SessionManager, r *http.Request) *Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil
	}
	return sessions.Get(r.Context(), cookie.Value)
}

// MemorySessionStore manages user sessions in memory.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create generates a new session with the given token and user info.
func (s *MemorySessionStore) Create(_ context.Context, token *oauth2.Token, userID, userName string) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:        id,
		Token:     token,
		UserID:    userID,
		UserName:  userName,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	return session, nil
}

// Get retrieves an unexpired session by ID. The returned session is a copy.
func (s *MemorySessionStore) Get(_ context.Context, id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok || s.now().Sub(session.CreatedAt) > sessionTTL {
		return nil
	}
	cp := *session
	return &cp
}

// Delete removes a session by ID.
func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// UpdateToken replaces the OAuth token of a session.
func (s *MemorySessionStore) UpdateToken(_ context.Context, id string, token *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return db.ErrNotFound
	}
	session.Token = token
	return nil
}

// DeleteExpired drops sessions older than the session TTL.
func (s *MemorySessionStore) DeleteExpired(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, session := range s.sessions {
		if s.now().Sub(session.CreatedAt) > sessionTTL {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// SessionRepository is the persistence the database-backed store needs.
type SessionRepository interface {
	Create(ctx context.Context, session *db.Session) error
	Get(ctx context.Context, id string) (*db.Session, error)
	Delete(ctx context.Context, id string) error
	UpdateToken(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// UserRepository reads and writes user rows.
type UserRepository interface {
	Get(ctx context.Context, id string) (*db.User, error)
	Upsert(ctx context.Context, user *db.User) error
	MarkAggregated(ctx context.Context, id string, at time.Time) error
}

// DBSessionStore manages user sessions in PostgreSQL.
type DBSessionStore struct {
	sessions SessionRepository
	users    UserRepository
}

// NewDBSessionStore creates a new database-backed session store.
func NewDBSessionStore(sessions SessionRepository, users UserRepository) *DBSessionStore {
	return &DBSessionStore{sessions: sessions, users: users}
}

// Create generates a new session and stores it in the database.
// The user row must already exist.
func (s *DBSessionStore) Create(ctx context.Context, token *oauth2.Token, userID, userName string) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	dbSession := &db.Session{
		ID:           id,
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenExpiry:  token.Expiry,
		CreatedAt:    now,
		ExpiresAt:    now.Add(sessionTTL),
	}

	if err := s.sessions.Create(ctx, dbSession); err != nil {
		return nil, err
	}

	return &Session{
		ID:        id,
		Token:     token,
		UserID:    userID,
		UserName:  userName,
		CreatedAt: now,
	}, nil
}

// Get retrieves a session by ID from the database.
func (s *DBSessionStore) Get(ctx context.Context, id string) *Session {
	dbSession, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil
	}

	name := dbSession.UserID
	if user, err := s.users.Get(ctx, dbSession.UserID); err == nil && user.DisplayName != "" {
		name = user.DisplayName
	}

	return &Session{
		ID: dbSession.ID,
		Token: &oauth2.Token{
			AccessToken:  dbSession.AccessToken,
			RefreshToken: dbSession.RefreshToken,
			Expiry:       dbSession.TokenExpiry,
			TokenType:    "Bearer",
		},
		UserID:    dbSession.UserID,
		UserName:  name,
		CreatedAt: dbSession.CreatedAt,
	}
}

// Delete removes a session from the database.
func (s *DBSessionStore) Delete(ctx context.Context, id string) error {
	err := s.sessions.Delete(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil
	}
	return err
}

// UpdateToken updates the OAuth token for a session in the database.
func (s *DBSessionStore) UpdateToken(ctx context.Context, id string, token *oauth2.Token) error {
	return s.sessions.UpdateToken(ctx, id, token.AccessToken, token.RefreshToken, token.Expiry)
}

// DeleteExpired removes expired sessions.
func (s *DBSessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx)
}

// generateSessionID creates a cryptographically random session ID.
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// setSessionCookie sets the session cookie on the response.
func setSessionCookie(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL.Seconds()),
	})
}

// clearSessionCookie removes the session cookie from the response.
func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

var (
	_ SessionManager    = (*MemorySessionStore)(nil)
	_ SessionManager    = (*DBSessionStore)(nil)
	_ SessionRepository = (*db.SessionRepository)(nil)
	_ UserRepository    = (*db.UserRepository)(nil)
)
