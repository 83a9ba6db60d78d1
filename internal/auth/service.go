// Package auth verifies admin credentials and issues session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fuad-rahat/school-website/internal/models"
	"github.com/fuad-rahat/school-website/internal/ratelimit"
	"github.com/fuad-rahat/school-website/internal/store"
	"github.com/fuad-rahat/school-website/internal/token"

	aghErrors "github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"golang.org/x/crypto/bcrypt"
)

const (
	// ErrMissingCredentials means the username or password was blank.
	ErrMissingCredentials aghErrors.Error = "username and password are required"

	// ErrInvalidCredentials means no admin matched the username and password.
	ErrInvalidCredentials aghErrors.Error = "invalid credentials"

	// ErrStoreUnavailable wraps credential store failures other than a
	// missing admin.
	ErrStoreUnavailable aghErrors.Error = "credential store unavailable"

	// ErrThrottled means too many recent failures for the username or IP.
	ErrThrottled aghErrors.Error = "too many login attempts"
)

// Limiter throttles failed logins.
type Limiter interface {
	Check(ctx context.Context, username, ip string) error
	Fail(ctx context.Context, username, ip string) error
	Reset(ctx context.Context, username, ip string) error
}

// Service checks admin credentials.
type Service struct {
	creds   store.CredentialStore
	codec   *token.Codec
	limiter Limiter
	logger  *slog.Logger

	// dummyHash is compared against when the username is unknown so that
	// both failure paths spend the same bcrypt work.
	dummyHash []byte
}

// NewService returns a Service.  A nil limiter disables throttling.
func NewService(creds store.CredentialStore, codec *token.Codec, limiter Limiter, logger *slog.Logger) (*Service, error) {
	if limiter == nil {
		limiter = ratelimit.Nop{}
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("generating dummy hash: %w", err)
	}

	return &Service{
		creds:     creds,
		codec:     codec,
		limiter:   limiter,
		logger:    logger,
		dummyHash: dummy,
	}, nil
}

// Codec returns the token codec used for issued sessions.
func (s *Service) Codec() *token.Codec {
	return s.codec
}

// Login verifies username and password and returns a signed session token.
// ip is only used for throttling and may be empty.
func (s *Service) Login(ctx context.Context, username, password, ip string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", ErrMissingCredentials
	}

	if err := s.limiter.Check(ctx, username, ip); err != nil {
		if errors.Is(err, ratelimit.ErrRateLimited) {
			s.logger.InfoContext(ctx, "login throttled", "username", username, "ip", ip)
			return "", ErrThrottled
		}
		// Fail open: a broken limiter must not lock admins out.
		s.logger.WarnContext(ctx, "checking login limiter", slogutil.KeyError, err)
	}

	admin, err := s.creds.AdminByUsername(ctx, username)
	switch {
	case errors.Is(err, store.ErrNotFound):
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.recordFailure(ctx, username, ip)
		return "", ErrInvalidCredentials
	case err != nil:
		s.logger.ErrorContext(ctx, "looking up admin", "username", username, slogutil.KeyError, err)
		return "", fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		s.recordFailure(ctx, username, ip)
		return "", ErrInvalidCredentials
	}

	if err = s.limiter.Reset(ctx, username, ip); err != nil {
		s.logger.WarnContext(ctx, "resetting login limiter", slogutil.KeyError, err)
	}

	signed, err := s.codec.Issue(token.Claims{
		UserID:   admin.AdminID,
		Username: admin.Username,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return "", fmt.Errorf("issuing token: %w", err)
	}

	s.logger.InfoContext(ctx, "admin logged in", "username", admin.Username)

	return signed, nil
}

func (s *Service) recordFailure(ctx context.Context, username, ip string) {
	s.logger.InfoContext(ctx, "invalid login", "username", username, "ip", ip)
	if err := s.limiter.Fail(ctx, username, ip); err != nil {
		s.logger.WarnContext(ctx, "recording failed login", slogutil.KeyError, err)
	}
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrMissingCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
