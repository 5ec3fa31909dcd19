package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"
)

const (
	SessionCookieName    = "session_token"
	OAuthStateCookieName = "oauth_state"

	oauthCookiePath = "/auth/oauth"
)

var errNoSessionCookie = errors.New("session cookie not present")

// CookieConfig controls the attributes of the session cookie
type CookieConfig struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// NewCookieConfig maps the SameSite setting ("lax", "strict", "none") onto http.SameSite.
// Unknown values fall back to Lax.
func NewCookieConfig(domain string, secure bool, sameSite string) CookieConfig {
	ss := http.SameSiteLaxMode
	switch strings.ToLower(sameSite) {
	case "none":
		ss = http.SameSiteNoneMode
	case "strict":
		ss = http.SameSiteStrictMode
	}
	return CookieConfig{Domain: domain, Secure: secure, SameSite: ss}
}

// SetSessionCookie stores the session token in an HttpOnly cookie that expires with the session
func SetSessionCookie(w http.ResponseWriter, cfg CookieConfig, session *Session, now time.Time) {
	maxAge := int(session.ExpiresAt.Sub(now).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Domain:   cfg.Domain,
		Expires:  session.ExpiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

func ClearSessionCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

// SetOAuthStateCookie binds a social sign-in state to the browser that started the flow.
// SameSite=Lax lets the cookie ride along on the provider's top-level redirect back.
func SetOAuthStateCookie(w http.ResponseWriter, cfg CookieConfig, state string, expiresAt, now time.Time) {
	maxAge := int(expiresAt.Sub(now).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}

	http.SetCookie(w, &http.Cookie{
		Name:     OAuthStateCookieName,
		Value:    state,
		Path:     oauthCookiePath,
		Domain:   cfg.Domain,
		Expires:  expiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearOAuthStateCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     OAuthStateCookieName,
		Value:    "",
		Path:     oauthCookiePath,
		Domain:   cfg.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// OAuthStateMatches reports whether the request carries the state cookie issued for state
func OAuthStateMatches(r *http.Request, state string) bool {
	cookie, err := r.Cookie(OAuthStateCookieName)
	if err != nil || cookie.Value == "" || state == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) == 1
}

func GetSessionTokenFromCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", errNoSessionCookie
	}
	return cookie.Value, nil
}

// ShouldUseCookies reports whether the request comes from a browser.
// Browsers send Origin on cross-origin fetches and Sec-Fetch-Mode on every request.
func ShouldUseCookies(r *http.Request) bool {
	return r.Header.Get("Origin") != "" || r.Header.Get("Sec-Fetch-Mode") != ""
}
