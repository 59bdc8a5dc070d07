package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	users "github.com/AdamBeresnev/post-battles/internal/user"
	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLoader map[uuid.UUID]*users.User

func (s stubLoader) GetUser(_ context.Context, id uuid.UUID) (*users.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func ok(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRequireAuth(t *testing.T) {
	handler := RequireAuth(http.HandlerFunc(ok))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	user := &users.User{ID: uuid.New(), Role: users.RoleUser}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), user))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(http.HandlerFunc(ok))

	testCases := []struct {
		name     string
		user     *users.User
		expected int
	}{
		{name: "anonymous", user: nil, expected: http.StatusUnauthorized},
		{name: "regular user", user: &users.User{ID: uuid.New(), Role: users.RoleUser}, expected: http.StatusForbidden},
		{name: "admin", user: &users.User{ID: uuid.New(), Role: users.RoleAdmin}, expected: http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tc.user != nil {
				req = req.WithContext(WithUser(req.Context(), tc.user))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.expected, rec.Code)
		})
	}
}

func TestLoadAuthenticatedUser(t *testing.T) {
	sessionManager := scs.New()
	known := &users.User{ID: uuid.New(), Username: "known"}
	loader := stubLoader{known.ID: known}

	var seen *users.User
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetAuthenticatedUser(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	login := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionManager.Put(r.Context(), SessionUserKey, r.URL.Query().Get("id"))
	})

	mux := http.NewServeMux()
	mux.Handle("/login", login)
	mux.Handle("/", LoadAuthenticatedUser(sessionManager, loader)(inner))
	handler := sessionManager.LoadAndSave(mux)

	// Anonymous requests pass through
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, seen)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login?id="+known.ID.String(), nil))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.NotNil(t, seen)
	assert.Equal(t, known.ID, seen.ID)
}
