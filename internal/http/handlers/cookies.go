package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/pribylovaa/music-catalog/internal/config"
	"github.com/pribylovaa/music-catalog/internal/models"
)

// Cookies выставляет и очищает session-cookie с токенами.
//
// Атрибуты обеих cookie: Path=/, HttpOnly, SameSite из конфига и Secure по режиму:
//   - always/never - безусловно;
//   - auto - только для зашифрованного соединения (TLS, а при trust_proxy
//     также X-Forwarded-Proto: https).
//
// Max-Age совпадает со сроком жизни соответствующего токена.
type Cookies struct {
	accessMaxAge  int
	refreshMaxAge int
	secure        string
	trustProxy    bool
	sameSite      http.SameSite
}

func NewCookies(auth config.AuthConfig, cookie config.CookieConfig) *Cookies {
	return &Cookies{
		accessMaxAge:  seconds(auth.AccessTokenTTL),
		refreshMaxAge: seconds(auth.RefreshTokenTTL),
		secure:        cookie.Secure,
		trustProxy:    cookie.TrustProxy,
		sameSite:      parseSameSite(cookie.SameSite),
	}
}

// Set кладёт пару токенов в cookie accessToken и refreshToken.
func (c *Cookies) Set(w http.ResponseWriter, r *http.Request, pair *models.TokenPair) {
	http.SetCookie(w, c.cookie(r, models.AccessTokenCookie, pair.AccessToken, c.accessMaxAge))
	http.SetCookie(w, c.cookie(r, models.RefreshTokenCookie, pair.RefreshToken, c.refreshMaxAge))
}

// Clear удаляет обе cookie (отрицательный Max-Age).
func (c *Cookies) Clear(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, c.cookie(r, models.AccessTokenCookie, "", -1))
	http.SetCookie(w, c.cookie(r, models.RefreshTokenCookie, "", -1))
}

func (c *Cookies) cookie(r *http.Request, name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.isSecure(r),
		SameSite: c.sameSite,
	}
}

func (c *Cookies) isSecure(r *http.Request) bool {
	switch c.secure {
	case config.SecureAlways:
		return true
	case config.SecureNever:
		return false
	}

	if r.TLS != nil {
		return true
	}

	return c.trustProxy && strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}
