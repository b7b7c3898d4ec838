package web

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-mood-timeline/internal/db"
)

func TestMemorySessionStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	session, err := store.Create(ctx, &oauth2.Token{AccessToken: "a"}, "user-1", "Ada")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(session.ID) != 64 {
		t.Errorf("session ID length = %d, want 64 hex chars", len(session.ID))
	}

	got := store.Get(ctx, session.ID)
	if got == nil || got.UserID != "user-1" || got.UserName != "Ada" {
		t.Fatalf("Get() = %+v", got)
	}

	if err := store.UpdateToken(ctx, session.ID, &oauth2.Token{AccessToken: "b"}); err != nil {
		t.Fatalf("UpdateToken() error = %v", err)
	}
	if got := store.Get(ctx, session.ID); got.Token.AccessToken != "b" {
		t.Errorf("token = %q, want b", got.Token.AccessToken)
	}
	if err := store.UpdateToken(ctx, "missing", &oauth2.Token{}); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("UpdateToken(missing) error = %v, want ErrNotFound", err)
	}

	now = now.Add(sessionTTL + time.Minute)
	if store.Get(ctx, session.ID) != nil {
		t.Error("expired session should not be returned")
	}
	n, err := store.DeleteExpired(ctx)
	if err != nil || n != 1 {
		t.Errorf("DeleteExpired() = %d, %v; want 1, nil", n, err)
	}
}

func TestMemorySessionStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()

	session, err := store.Create(ctx, &oauth2.Token{AccessToken: "a"}, "user-1", "Ada")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.Delete(ctx, session.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if store.Get(ctx, session.ID) != nil {
		t.Error("deleted session should not be returned")
	}
}

type mockSessionRepo struct {
	sessions map[string]*db.Session
	tokens   map[string]string
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: map[string]*db.Session{}, tokens: map[string]string{}}
}

func (m *mockSessionRepo) Create(_ context.Context, s *db.Session) error {
	m.sessions[s.ID] = s
	return nil
}

func (m *mockSessionRepo) Get(_ context.Context, id string) (*db.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return s, nil
}

func (m *mockSessionRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.sessions[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) UpdateToken(_ context.Context, id, accessToken, _ string, _ time.Time) error {
	m.tokens[id] = accessToken
	return nil
}

func (m *mockSessionRepo) DeleteExpired(context.Context) (int64, error) {
	return 0, nil
}

type mockUserRepo struct {
	users map[string]*db.User
}

func (m *mockUserRepo) Get(_ context.Context, id string) (*db.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) Upsert(_ context.Context, u *db.User) error {
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) MarkAggregated(context.Context, string, time.Time) error {
	return nil
}

func TestDBSessionStore(t *testing.T) {
	ctx := context.Background()
	sessions := newMockSessionRepo()
	users := &mockUserRepo{users: map[string]*db.User{
		"user-1": {ID: "user-1", DisplayName: "Ada"},
		"user-2": {ID: "user-2"},
	}}
	store := NewDBSessionStore(sessions, users)

	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	created, err := store.Create(ctx, &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: expiry}, "user-1", "Ada")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	row := sessions.sessions[created.ID]
	if row.AccessToken != "a" || row.RefreshToken != "r" || !row.TokenExpiry.Equal(expiry) {
		t.Errorf("stored row = %+v", row)
	}
	if got := row.ExpiresAt.Sub(row.CreatedAt); got != sessionTTL {
		t.Errorf("row lifetime = %v, want %v", got, sessionTTL)
	}

	got := store.Get(ctx, created.ID)
	if got == nil || got.UserName != "Ada" || got.Token.RefreshToken != "r" || got.Token.TokenType != "Bearer" {
		t.Fatalf("Get() = %+v", got)
	}

	other, err := store.Create(ctx, &oauth2.Token{AccessToken: "x"}, "user-2", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got := store.Get(ctx, other.ID); got.UserName != "user-2" {
		t.Errorf("UserName = %q, want the user ID when no display name is stored", got.UserName)
	}

	if err := store.UpdateToken(ctx, created.ID, &oauth2.Token{AccessToken: "fresh"}); err != nil {
		t.Fatalf("UpdateToken() error = %v", err)
	}
	if sessions.tokens[created.ID] != "fresh" {
		t.Errorf("updated token = %q, want fresh", sessions.tokens[created.ID])
	}

	if err := store.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, created.ID); err != nil {
		t.Errorf("Delete() of a missing session error = %v, want nil", err)
	}
	if store.Get(ctx, created.ID) != nil {
		t.Error("deleted session should not be returned")
	}
}

func TestSessionFromRequest(t *testing.T) {
	store := NewMemorySessionStore()
	session, err := store.Create(context.Background(), &oauth2.Token{AccessToken: "a"}, "user-1", "Ada")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	if sessionFromRequest(store, req) != nil {
		t.Error("request without cookie should have no session")
	}

	rec := httptest.NewRecorder()
	setSessionCookie(rec, session)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	if got := sessionFromRequest(store, req); got == nil || got.ID != session.ID {
		t.Errorf("sessionFromRequest() = %+v, want session %s", got, session.ID)
	}
}
