package httpapi

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/fuad-rahat/school-website/internal/auth"
	"github.com/fuad-rahat/school-website/internal/store"

	"github.com/AdguardTeam/golibs/httphdr"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type loginPage struct {
	Username string
	Error    string
}

type dashboardPage struct {
	Username string
	Counts   []collectionCount
}

type errorPage struct {
	Title   string
	Message string
}

type collectionCount struct {
	Collection string
	Count      int64
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set(httphdr.ContentType, "text/html; charset=utf-8")
	w.Header().Set(httphdr.CacheControl, "no-store")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		h.logger.ErrorContext(r.Context(), "rendering page", "page", name, slogutil.KeyError, err)
	}
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, "login.html", loginPage{})
}

func (h *Handler) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	req, ok := readCredentials(r)
	if !ok {
		h.renderPage(w, r, http.StatusBadRequest, "login.html", loginPage{Error: invalidCredentialsMessage})
		return
	}

	err := h.login(w, r, req)
	switch {
	case err == nil:
		http.Redirect(w, r, LandingPath, http.StatusSeeOther)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.logger.DebugContext(r.Context(), "login abandoned", slogutil.KeyError, err)
	case errors.Is(err, auth.ErrThrottled):
		h.renderPage(w, r, http.StatusTooManyRequests, "login.html", loginPage{
			Username: req.Username,
			Error:    "Too many login attempts, try again later",
		})
	case errors.Is(err, auth.ErrMissingCredentials),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrStoreUnavailable):
		h.renderPage(w, r, http.StatusUnauthorized, "login.html", loginPage{
			Username: req.Username,
			Error:    invalidCredentialsMessage,
		})
	default:
		h.logger.ErrorContext(r.Context(), "login", slogutil.KeyError, err)
		h.renderPage(w, r, http.StatusInternalServerError, "login.html", loginPage{Error: "Internal server error"})
	}
}

func (h *Handler) handleLogoutForm(w http.ResponseWriter, r *http.Request) {
	h.cookies.ClearSession(w)
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

func (h *Handler) handleAdminRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, LandingPath, http.StatusFound)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		// Unreachable behind the gate.
		http.Redirect(w, r, LoginPath, http.StatusFound)
		return
	}

	page := dashboardPage{Username: sess.Username}
	for _, c := range store.Collections {
		n, err := h.store.Count(r.Context(), c)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "counting documents", "collection", c, slogutil.KeyError, err)
			h.renderPage(w, r, http.StatusInternalServerError, "error.html", errorPage{
				Title:   "Dashboard unavailable",
				Message: "The content store could not be reached.",
			})
			return
		}
		page.Counts = append(page.Counts, collectionCount{Collection: c, Count: n})
	}
	h.renderPage(w, r, http.StatusOK, "dashboard.html", page)
}
