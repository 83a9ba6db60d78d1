// Package token issues and verifies the signed, time-limited session tokens
// carried in the admin session cookie.
package token

import (
	"fmt"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of a session token.
const DefaultTTL = 24 * time.Hour

// ErrInvalidToken is returned by [Codec.Verify] for tokens with a bad
// signature, a malformed structure or an expiry in the past.
const ErrInvalidToken errors.Error = "invalid token"

// Claims identify the session holder.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Session is a verified token.
type Session struct {
	Claims
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type sessionClaims struct {
	Claims
	jwt.RegisteredClaims
}

// Config configures a [Codec].
type Config struct {
	// Secret is the HMAC-SHA256 signing key.  It must not be empty.
	Secret []byte

	// TTL is the token lifetime.  Zero means [DefaultTTL].
	TTL time.Duration

	// Now returns the current time.  Nil means [time.Now].
	Now func() time.Time
}

// Codec signs and verifies session tokens.  It is safe for concurrent use.
//
// Expiry is checked without any leeway: a token is rejected as soon as the
// current Unix second reaches its exp claim.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

func NewCodec(c Config) (*Codec, error) {
	if len(c.Secret) == 0 {
		return nil, errors.Error("token: signing secret is empty")
	}
	ttl := c.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	if ttl < 0 {
		return nil, errors.Error("token: negative ttl")
	}
	now := c.Now
	if now == nil {
		now = time.Now
	}

	secret := make([]byte, len(c.Secret))
	copy(secret, c.Secret)

	return &Codec{
		secret: secret,
		ttl:    ttl,
		now:    now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithStrictDecoding(),
			jwt.WithTimeFunc(now),
		),
	}, nil
}

// TTL returns the lifetime of issued tokens.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue returns a signed token for claims expiring TTL from now.
func (c *Codec) Issue(claims Claims) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Claims: claims,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of raw and returns its session.
// Every failure wraps [ErrInvalidToken].
func (c *Codec) Verify(raw string) (Session, error) {
	var claims sessionClaims
	_, err := c.parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	s := Session{Claims: claims.Claims}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}
