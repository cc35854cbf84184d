package auth

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nkiryanov/earlypulse/internal/models"
)

// Refresh body is tiny; anything bigger is not a refresh request
const maxRefreshBody = 16 << 10

func (s *AuthService) cookie(name string, value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteStrictMode,
	}
	if value == "" {
		c.MaxAge = -1
	} else {
		c.Expires = expires
	}
	return c
}

// Set both tokens as cookies
func (s *AuthService) SetTokens(w http.ResponseWriter, pair models.TokenPair) {
	http.SetCookie(w, s.cookie(s.accessCookieName, pair.Access.Value, pair.Access.ExpiresAt))
	http.SetCookie(w, s.cookie(s.refreshCookieName, pair.Refresh.Value, pair.Refresh.ExpiresAt))
}

// Expire both token cookies
func (s *AuthService) ClearTokens(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie(s.accessCookieName, "", time.Time{}))
	http.SetCookie(w, s.cookie(s.refreshCookieName, "", time.Time{}))
}

// Access token from cookie, then from "Authorization: Bearer <token>" header
// Empty string if none present
func (s *AuthService) AccessFromRequest(r *http.Request) string {
	if c, err := r.Cookie(s.accessCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	header := r.Header.Get(s.accessHeaderName)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, s.accessAuthScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}

// Refresh token from cookie, then from JSON body {"refreshToken": "..."}
// Empty string if none present
func (s *AuthService) RefreshFromRequest(r *http.Request) string {
	if c, err := r.Cookie(s.refreshCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	if r.Body == nil {
		return ""
	}

	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRefreshBody)).Decode(&body); err != nil {
		return ""
	}
	return body.RefreshToken
}

// Authenticate request by its access token
func (s *AuthService) PrincipalFromRequest(r *http.Request) (models.Principal, error) {
	return s.Authenticate(r.Context(), s.AccessFromRequest(r))
}
