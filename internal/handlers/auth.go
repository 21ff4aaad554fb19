package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chemo-it/backoffice/internal/services"
)

// AuthHandler provides cookie-session authentication endpoints.
type AuthHandler struct {
	auth       *services.AuthService
	cookieName string
	ttl        time.Duration
}

func NewAuthHandler(auth *services.AuthService, cookieName string, ttl time.Duration) *AuthHandler {
	return &AuthHandler{
		auth:       auth,
		cookieName: cookieName,
		ttl:        ttl,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, auth *services.AuthService, cookieName string, ttl time.Duration) {
	handler := NewAuthHandler(auth, cookieName, ttl)

	r.Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	r.Get("/session", handler.SessionCheck)
}

// RequireSession gates a route on an authenticated session cookie.
func RequireSession(auth *services.AuthService, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.Check(r.Context(), cookieToken(r, cookieName)) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Login verifies credentials and establishes a session. The session token
// is always freshly generated; any token the client presented before
// authenticating is invalidated in the same step.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	priorToken := cookieToken(r, h.cookieName)
	token, err := h.auth.Login(r.Context(), req.Email, req.Password, priorToken)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "login failed, try again")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// Logout invalidates the current session. It is idempotent: logging out
// without a valid session still succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := cookieToken(r, h.cookieName); token != "" {
		_ = h.auth.Logout(r.Context(), token)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// SessionCheck reports whether the request carries an authenticated
// session. Only the boolean is disclosed.
func (h *AuthHandler) SessionCheck(w http.ResponseWriter, r *http.Request) {
	ok := h.auth.Check(r.Context(), cookieToken(r, h.cookieName))
	writeJSON(w, http.StatusOK, OKResponse{OK: ok})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func cookieToken(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
