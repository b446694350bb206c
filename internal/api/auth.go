package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontext/hub/internal/auth"
	"github.com/modelcontext/hub/internal/domain"
	"github.com/modelcontext/hub/internal/store"
)

// AuthHandler handles registration, login, and the current-user endpoint.
type AuthHandler struct {
	repo   store.Repository
	issuer *auth.TokenIssuer
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(repo store.Repository, issuer *auth.TokenIssuer) *AuthHandler {
	return &AuthHandler{repo: repo, issuer: issuer}
}

// RegisterRoutes registers the auth and user routes under /api/v1.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})
	r.Get("/api/v1/users/me", h.Me)
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Register creates a new user account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		Error(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if req.Name == "" {
		Error(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.Password) < auth.MinPasswordLength {
		Error(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}
	role := req.Role
	if role == "" {
		role = domain.RoleUser
	}
	if role != domain.RoleUser && role != domain.RoleAdmin {
		Error(w, http.StatusBadRequest, "role must be user or admin")
		return
	}

	existing, err := h.repo.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		slog.Error("Failed to check existing user", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		Error(w, http.StatusBadRequest, "a user with this email already exists")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("Failed to hash password", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	user := &domain.User{
		Email:          req.Email,
		Name:           req.Name,
		HashedPassword: hash,
		IsActive:       true,
		Role:           role,
		CreatedAt:      time.Now(),
	}
	if err := h.repo.CreateUser(r.Context(), user); err != nil {
		slog.Error("Failed to create user", "error", err, "email", req.Email)
		Error(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	slog.Info("User registered", "user_id", user.ID, "email", user.Email)
	JSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and issues an access token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.repo.GetUserByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		slog.Error("Failed to load user for login", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil || !auth.VerifyPassword(req.Password, user.HashedPassword) {
		Error(w, http.StatusUnauthorized, "incorrect email or password")
		return
	}
	if !user.IsActive {
		Error(w, http.StatusBadRequest, "inactive user")
		return
	}

	token, err := h.issuer.Issue(user.ID)
	if err != nil {
		slog.Error("Failed to issue token", "error", err, "user_id", user.ID)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	JSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// Me returns the authenticated user's record.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	JSON(w, http.StatusOK, user)
}
