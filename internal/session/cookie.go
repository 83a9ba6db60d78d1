// Package session moves session tokens between HTTP requests, responses and
// the session cookie.
package session

import (
	"net/http"
	"time"
)

// CookieName is the name of the session cookie.
const CookieName = "auth-token"

// Accessor reads and writes the session cookie.
type Accessor struct {
	// Secure marks written cookies as HTTPS-only.
	Secure bool
}

func NewAccessor(secure bool) *Accessor {
	return &Accessor{Secure: secure}
}

// ReadSession returns the raw session token from r, if any.
func (a *Accessor) ReadSession(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		// The only error returned from r.Cookie is [http.ErrNoCookie].
		return "", false
	}
	return c.Value, true
}

// WriteSession sets the session cookie to token for maxAge.
func (a *Accessor) WriteSession(w http.ResponseWriter, token string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		Expires:  time.Now().Add(maxAge),
		HttpOnly: true,
		Secure:   a.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSession deletes the session cookie.  It is safe to call repeatedly.
func (a *Accessor) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   a.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
