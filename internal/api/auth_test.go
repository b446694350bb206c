package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontext/hub/internal/auth"
	"github.com/modelcontext/hub/internal/domain"
	"github.com/modelcontext/hub/internal/store"
)

func newAuthRouter(t *testing.T) *chi.Mux {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Failed to close store: %v", err)
		}
	})

	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	r := chi.NewRouter()
	r.Use(auth.Middleware(repo, issuer))
	NewAuthHandler(repo, issuer).RegisterRoutes(r)
	return r
}

func TestRegisterLoginMe(t *testing.T) {
	r := newAuthRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":    "Alice@Example.com",
		"name":     "Alice",
		"password": "secret1",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var created domain.User
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("Failed to decode user: %v", err)
	}
	if created.Email != "alice@example.com" {
		t.Errorf("Expected lowercased email, got %s", created.Email)
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "secret1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var login map[string]string
	if err := json.NewDecoder(w.Body).Decode(&login); err != nil {
		t.Fatalf("Failed to decode login response: %v", err)
	}
	if login["token_type"] != "bearer" || login["access_token"] == "" {
		t.Fatalf("Expected bearer token, got %v", login)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+login["access_token"])
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var me domain.User
	if err := json.NewDecoder(rec.Body).Decode(&me); err != nil {
		t.Fatalf("Failed to decode user: %v", err)
	}
	if me.Email != "alice@example.com" {
		t.Errorf("Expected current user alice, got %s", me.Email)
	}
}

func TestRegister_Validation(t *testing.T) {
	r := newAuthRouter(t)

	cases := []struct {
		name string
		body map[string]string
	}{
		{"missing email", map[string]string{"name": "x", "password": "secret1"}},
		{"bad email", map[string]string{"email": "nope", "name": "x", "password": "secret1"}},
		{"missing name", map[string]string{"email": "a@b.c", "password": "secret1"}},
		{"short password", map[string]string{"email": "a@b.c", "name": "x", "password": "abc"}},
		{"bad role", map[string]string{"email": "a@b.c", "name": "x", "password": "secret1", "role": "root"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	r := newAuthRouter(t)

	body := map[string]string{"email": "a@b.c", "name": "x", "password": "secret1"}
	if w := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", body); w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", body); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for duplicate email, got %d", w.Code)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	r := newAuthRouter(t)

	doJSON(t, r, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "a@b.c", "name": "x", "password": "secret1",
	})

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "a@b.c", "password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for wrong password, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "nobody@b.c", "password": "secret1",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for unknown user, got %d", w.Code)
	}
}

func TestMe_Anonymous(t *testing.T) {
	r := newAuthRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/users/me", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without token, got %d", w.Code)
	}
}
