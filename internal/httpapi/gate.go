package httpapi

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/fuad-rahat/school-website/internal/models"
	"github.com/fuad-rahat/school-website/internal/session"
	"github.com/fuad-rahat/school-website/internal/token"
)

const (
	// ProtectedPrefix is the path prefix of the admin panel.
	ProtectedPrefix = "/admin"

	// LoginPath is the admin login page.
	LoginPath = "/admin/login"

	// LandingPath is where authenticated admins land.
	LandingPath = "/admin/dashboard"
)

// gateAction is the outcome of the gate for one request.
type gateAction int

const (
	gateAllow gateAction = iota
	gateToLogin
	gateToLanding
)

// decide applies the admin access rules to a request path.
func decide(p string, authenticated bool) gateAction {
	p = path.Clean("/" + p)
	switch {
	case p == LoginPath && authenticated:
		return gateToLanding
	case p == LoginPath:
		return gateAllow
	case isProtected(p) && !authenticated:
		return gateToLogin
	default:
		return gateAllow
	}
}

func isProtected(p string) bool {
	return p == ProtectedPrefix || strings.HasPrefix(p, ProtectedPrefix+"/")
}

// Gate authenticates requests from their session cookie and guards the
// admin panel.
type Gate struct {
	codec   *token.Codec
	cookies *session.Accessor
}

func NewGate(codec *token.Codec, cookies *session.Accessor) *Gate {
	return &Gate{codec: codec, cookies: cookies}
}

// Authenticate returns the admin session carried by r.  A missing cookie,
// an invalid or expired token and a non-admin role all mean anonymous.
func (g *Gate) Authenticate(r *http.Request) (token.Session, bool) {
	raw, ok := g.cookies.ReadSession(r)
	if !ok {
		return token.Session{}, false
	}
	sess, err := g.codec.Verify(raw)
	if err != nil || sess.Role != models.RoleAdmin {
		return token.Session{}, false
	}
	return sess, true
}

// Middleware redirects requests per [decide] and stores the session of
// authenticated requests in their context.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := g.Authenticate(r)
		switch decide(r.URL.Path, ok) {
		case gateToLogin:
			http.Redirect(w, r, LoginPath, http.StatusFound)
		case gateToLanding:
			http.Redirect(w, r, LandingPath, http.StatusFound)
		default:
			if ok {
				r = r.WithContext(withSession(r.Context(), sess))
			}
			next.ServeHTTP(w, r)
		}
	})
}

type sessionContextKey struct{}

func withSession(ctx context.Context, sess token.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

func sessionFromContext(ctx context.Context) (token.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(token.Session)
	return sess, ok
}

// requireAdmin writes a 401 and returns false unless the request carries an
// admin session.
func requireAdmin(w http.ResponseWriter, r *http.Request) (token.Session, bool) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "admin session required")
		return token.Session{}, false
	}
	return sess, true
}
