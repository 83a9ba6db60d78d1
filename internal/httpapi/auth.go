package httpapi

import (
	"context"
	"errors"
	"mime"
	"net/http"

	"github.com/fuad-rahat/school-website/internal/auth"

	"github.com/AdguardTeam/golibs/httphdr"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
)

// invalidCredentialsMessage is shown for every rejected login, whatever the
// reason, so that callers cannot tell which check failed.
const invalidCredentialsMessage = "Invalid credentials"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Authenticated bool      `json:"authenticated"`
	User          *userInfo `json:"user,omitempty"`
}

type userInfo struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// readCredentials accepts either a JSON body or a form.
func readCredentials(r *http.Request) (loginRequest, bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get(httphdr.ContentType))
	if mediaType == "application/json" {
		var req loginRequest
		if err := decodeBody(r, &req); err != nil {
			return loginRequest{}, false
		}
		return req, true
	}
	if err := r.ParseForm(); err != nil {
		return loginRequest{}, false
	}
	return loginRequest{
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	}, true
}

// login runs a login and, on success, sets the session cookie.  The returned
// error is one of the auth package errors or a context error.
func (h *Handler) login(w http.ResponseWriter, r *http.Request, req loginRequest) error {
	ctx := r.Context()
	raw, err := h.auth.Login(ctx, req.Username, req.Password, clientIP(r, h.trustedProxies))
	loginAttempts.WithLabelValues(loginOutcome(err)).Inc()
	if err != nil {
		return err
	}

	// The client has gone away; leave no cookie behind.
	if err = ctx.Err(); err != nil {
		return err
	}

	h.cookies.WriteSession(w, raw, h.auth.Codec().TTL())
	return nil
}

func loginOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, auth.ErrMissingCredentials):
		return "missing"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "invalid"
	case errors.Is(err, auth.ErrThrottled):
		return "throttled"
	case errors.Is(err, auth.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := readCredentials(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, loginResponse{Error: "invalid request body"})
		return
	}

	err := h.login(w, r, req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, loginResponse{Success: true})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.logger.DebugContext(r.Context(), "login abandoned", slogutil.KeyError, err)
	case errors.Is(err, auth.ErrThrottled):
		writeJSON(w, http.StatusTooManyRequests, loginResponse{Error: "Too many login attempts, try again later"})
	case errors.Is(err, auth.ErrMissingCredentials),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrStoreUnavailable):
		writeJSON(w, http.StatusUnauthorized, loginResponse{Error: invalidCredentialsMessage})
	default:
		h.logger.ErrorContext(r.Context(), "login", slogutil.KeyError, err)
		writeJSON(w, http.StatusInternalServerError, loginResponse{Error: "Internal server error"})
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.cookies.ClearSession(w)
	writeJSON(w, http.StatusOK, loginResponse{Success: true})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, statusResponse{})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Authenticated: true,
		User:          &userInfo{Username: sess.Username, Role: sess.Role},
	})
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	if _, ok := sessionFromContext(r.Context()); !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusOK)
}
