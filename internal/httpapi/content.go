package httpapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/fuad-rahat/school-website/internal/models"
	"github.com/fuad-rahat/school-website/internal/store"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
	recentNotices    = 3
)

func (h *Handler) registerContent(mux *http.ServeMux) {
	notices := newResource[models.Notice](h, store.CollectionNotices, "notice", noticesQuery)
	notices.register(mux)
	mux.HandleFunc("GET /api/notices/recent", func(w http.ResponseWriter, r *http.Request) {
		items, err := notices.find(r.Context(), store.Query{
			SortField: "date",
			SortDesc:  true,
			Limit:     recentNotices,
		})
		if err != nil {
			notices.internalError(w, r, "listing", err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	})

	newResource[models.Teacher](h, store.CollectionTeachers, "teacher", sortedQuery("name", false)).register(mux)
	newResource[models.Result](h, store.CollectionResults, "result", sortedQuery("year", true)).register(mux)

	alumni := newResource[models.Alumni](h, store.CollectionAlumni, "alumni", alumniQuery)
	alumni.register(mux)
	mux.HandleFunc("GET /api/alumni/years", h.handleAlumniYears)
	mux.HandleFunc("POST /api/alumni/register", func(w http.ResponseWriter, r *http.Request) {
		var a models.Alumni
		if !decodeRequest(w, r, &a) {
			return
		}
		// Self-registrations wait for an admin.
		a.IsApproved = false
		a.Featured = false
		if err := alumni.insert(r.Context(), &a); err != nil {
			alumni.writeStoreError(w, r, "registering", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": a.ID})
	})

	newResource[models.Activity](h, store.CollectionActivities, "activity", activitiesQuery).register(mux)

	about := newResource[models.About](h, store.CollectionAbout, "about", sortedQuery("", false))
	base := "/api/" + store.CollectionAbout
	mux.HandleFunc("GET "+base, about.list)
	mux.HandleFunc("GET "+base+"/{id}", about.get)
	mux.HandleFunc("POST "+base, about.upsert)
	mux.HandleFunc("PUT "+base+"/{id}", about.update)
	mux.HandleFunc("DELETE "+base+"/{id}", about.remove)
}

func (h *Handler) handleAlumniYears(w http.ResponseWriter, r *http.Request) {
	years, err := h.store.Distinct(r.Context(), store.CollectionAlumni, "graduationYear")
	if err != nil {
		h.logger.ErrorContext(r.Context(), "listing alumni years", slogutil.KeyError, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, years)
}

func sortedQuery(field string, desc bool) queryFunc {
	return func(params url.Values) (store.Query, error) {
		limit, err := parseLimit(params)
		if err != nil {
			return store.Query{}, err
		}
		return store.Query{SortField: field, SortDesc: desc, Limit: limit}, nil
	}
}

func noticesQuery(params url.Values) (store.Query, error) {
	q, err := sortedQuery("date", true)(params)
	if err != nil {
		return q, err
	}
	if c := strings.TrimSpace(params.Get("category")); c != "" {
		q.Filter = map[string]any{"category": c}
	}
	return q, nil
}

func activitiesQuery(params url.Values) (store.Query, error) {
	q, err := sortedQuery("title", false)(params)
	if err != nil {
		return q, err
	}
	if c := strings.TrimSpace(params.Get("category")); c != "" {
		q.Filter = map[string]any{"category": c}
	}
	return q, nil
}

func alumniQuery(params url.Values) (store.Query, error) {
	q, err := sortedQuery("graduationYear", true)(params)
	if err != nil {
		return q, err
	}
	filter := map[string]any{}
	if params.Get("featured") == "true" {
		filter["featured"] = true
	}
	if y := strings.TrimSpace(params.Get("year")); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil || year <= 0 {
			return store.Query{}, errors.Error("year must be a positive integer")
		}
		filter["graduationYear"] = year
	}
	if len(filter) > 0 {
		q.Filter = filter
	}
	return q, nil
}

func parseLimit(params url.Values) (int, error) {
	raw := strings.TrimSpace(params.Get("limit"))
	if raw == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, errors.Error("limit must be a positive integer")
	}
	return min(limit, maxListLimit), nil
}
