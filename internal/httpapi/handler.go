package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fuad-rahat/school-website/internal/auth"
	"github.com/fuad-rahat/school-website/internal/session"
	"github.com/fuad-rahat/school-website/internal/store"

	"github.com/AdguardTeam/golibs/httphdr"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/netutil"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
	MaxBytes() int64
}

// Config holds the dependencies of a [Handler].
type Config struct {
	Store    store.Store
	Auth     *auth.Service
	Cookies  *session.Accessor
	Uploader Uploader
	Logger   *slog.Logger

	// PublicDir is listed by GET /api/images.
	PublicDir string

	// TrustedProxies are the peers allowed to name the client in
	// X-Forwarded-For for login throttling.  Nil trusts no one.
	TrustedProxies netutil.SubnetSet

	// Now returns the current time.  Nil means [time.Now].
	Now func() time.Time
}

type Handler struct {
	store     store.Store
	auth      *auth.Service
	gate      *Gate
	cookies   *session.Accessor
	uploader  Uploader
	logger    *slog.Logger
	publicDir string
	now       func() time.Time

	trustedProxies netutil.SubnetSet
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(c Config) *Handler {
	now := c.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		store:     c.Store,
		auth:      c.Auth,
		gate:      NewGate(c.Auth.Codec(), c.Cookies),
		cookies:   c.Cookies,
		uploader:  c.Uploader,
		logger:    c.Logger,
		publicDir: c.PublicDir,
		now:       now,

		trustedProxies: c.TrustedProxies,
	}
}

// Routes returns the full site handler, with the auth gate applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", h.handleLogout)
	mux.HandleFunc("GET /api/auth/status", h.handleStatus)
	mux.HandleFunc("GET /api/auth/check", h.handleCheck)

	h.registerContent(mux)

	mux.HandleFunc("POST /api/upload", h.handleUpload)
	mux.HandleFunc("GET /api/images", h.handleImages)

	mux.HandleFunc("GET /admin/login", h.handleLoginPage)
	mux.HandleFunc("POST /admin/login", h.handleLoginForm)
	mux.HandleFunc("POST /admin/logout", h.handleLogoutForm)
	mux.HandleFunc("GET /admin/dashboard", h.handleDashboard)
	mux.HandleFunc("GET /admin", h.handleAdminRoot)

	return h.gate.Middleware(mux)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.ErrorContext(ctx, "health check", slogutil.KeyError, err)
		writeError(w, http.StatusServiceUnavailable, "unavailable", "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// maxBodyBytes limits JSON request bodies.
const maxBodyBytes = 1 << 20

func decodeBody(r *http.Request, target any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func decodeRequest(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeBody(r, target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: responseError{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set(httphdr.ContentType, "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func isValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}
