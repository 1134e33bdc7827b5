package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"

	"github.com/busycorner/panel/internal/auth"
	"github.com/busycorner/panel/internal/enum"
	"github.com/busycorner/panel/internal/kvstore"
	"github.com/busycorner/panel/internal/middleware"
	"github.com/go-chi/chi/v5"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Profile is the single mutable record per role, seeded with defaults
// when absent from the store. The credential check is a placeholder
// equality test against this record; hardening it is out of scope.
type Profile struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Default-seeded profiles.
var (
	defaultAdminProfile = Profile{
		Email:    "admin@admin.com",
		Password: "admin123",
		Name:     "Tumelo Segale",
	}
	defaultManagerProfile = Profile{
		Email:    "manager@BusyCorner.com",
		Password: "manager123",
		Name:     "Manager",
	}
)

// AuthHandler handles login, token refresh and profile management for
// both panel roles.
type AuthHandler struct {
	store     kvstore.Store
	jwtSecret string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store kvstore.Store, jwtSecret string) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret}
}

// RegisterRoutes registers public auth endpoints.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
}

// RegisterProfileRoutes registers authenticated profile endpoints.
func (h *AuthHandler) RegisterProfileRoutes(r chi.Router) {
	r.Get("/profile", h.GetProfile)
	r.Put("/profile", h.UpdateProfile)
}

// SeedDefaults writes the default profile records for any role missing
// from the store. Called once at startup.
func (h *AuthHandler) SeedDefaults(ctx context.Context) {
	for key, def := range map[string]Profile{
		kvstore.KeyAdminProfile:   defaultAdminProfile,
		kvstore.KeyManagerProfile: defaultManagerProfile,
	} {
		var existing Profile
		err := kvstore.GetJSON(ctx, h.store, key, &existing)
		if err == nil {
			continue
		}
		if !errors.Is(err, kvstore.ErrNotFound) {
			log.Printf("ERROR: read %s: %v", key, err)
			continue
		}
		if err := kvstore.SetJSON(ctx, h.store, key, def); err != nil {
			log.Printf("ERROR: seed %s: %v", key, err)
		}
	}
}

// --- Request / Response types ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	Role         string          `json:"role"`
	Profile      profileResponse `json:"profile"`
}

type profileResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type updateProfileRequest struct {
	NewEmail        string `json:"new_email"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// --- Handlers ---

// Login matches the submitted credentials against the seeded role
// profiles and issues tokens for whichever role matches.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	role, profile, ok := h.matchCredentials(r.Context(), req.Email, req.Password)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	h.respondWithTokens(w, role, profile)
}

// Refresh exchanges a valid refresh token for a fresh token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	role, err := auth.ValidateRefreshToken(h.jwtSecret, req.RefreshToken)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}

	profile, err := h.loadProfile(r.Context(), role)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.respondWithTokens(w, role, profile)
}

// GetProfile returns the calling role's profile (never the password).
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	profile, err := h.loadProfile(r.Context(), claims.Role)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{Email: profile.Email, Name: profile.Name})
}

// UpdateProfile changes the calling role's email and/or password. A
// password change requires the current password, a minimum length of six
// characters, and a matching confirmation.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	profile, err := h.loadProfile(r.Context(), claims.Role)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if req.NewEmail != "" {
		if !emailPattern.MatchString(req.NewEmail) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "please enter a valid email address"})
			return
		}
		profile.Email = req.NewEmail
	}

	if req.NewPassword != "" {
		if req.CurrentPassword != profile.Password {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "current password is incorrect"})
			return
		}
		if len(req.NewPassword) < 6 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "new password must be at least 6 characters"})
			return
		}
		if req.NewPassword != req.ConfirmPassword {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "new passwords do not match"})
			return
		}
		profile.Password = req.NewPassword
	}

	if err := kvstore.SetJSON(r.Context(), h.store, profileKey(claims.Role), profile); err != nil {
		log.Printf("ERROR: save %s profile: %v", claims.Role, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{Email: profile.Email, Name: profile.Name})
}

// --- Helpers ---

func (h *AuthHandler) matchCredentials(ctx context.Context, email, password string) (string, Profile, bool) {
	for _, role := range []string{enum.RoleAdmin, enum.RoleManager} {
		profile, err := h.loadProfile(ctx, role)
		if err != nil {
			continue
		}
		if profile.Email == email && profile.Password == password {
			return role, profile, true
		}
	}
	return "", Profile{}, false
}

func (h *AuthHandler) loadProfile(ctx context.Context, role string) (Profile, error) {
	var profile Profile
	err := kvstore.GetJSON(ctx, h.store, profileKey(role), &profile)
	if errors.Is(err, kvstore.ErrNotFound) {
		if role == enum.RoleAdmin {
			return defaultAdminProfile, nil
		}
		return defaultManagerProfile, nil
	}
	if err != nil {
		log.Printf("ERROR: read %s profile: %v", role, err)
		return Profile{}, err
	}
	return profile, nil
}

func profileKey(role string) string {
	if role == enum.RoleAdmin {
		return kvstore.KeyAdminProfile
	}
	return kvstore.KeyManagerProfile
}

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, role string, profile Profile) {
	accessToken, err := auth.GenerateToken(h.jwtSecret, role)
	if err != nil {
		log.Printf("ERROR: generate access token: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	refreshToken, err := auth.GenerateRefreshToken(h.jwtSecret, role)
	if err != nil {
		log.Printf("ERROR: generate refresh token: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Role:         role,
		Profile:      profileResponse{Email: profile.Email, Name: profile.Name},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
