package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fuad-rahat/school-website/internal/models"
	"github.com/fuad-rahat/school-website/internal/store"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
)

// entity is a pointer to a document shape T.
type entity[T any] interface {
	*T
	models.Entity
}

// queryFunc builds the list query of a collection from URL parameters.
type queryFunc func(params url.Values) (store.Query, error)

// resource serves the CRUD endpoints of one content collection.  Reads are
// public; mutations need an admin session.
type resource[T any, P entity[T]] struct {
	h          *Handler
	collection string

	// item is the response key of a single document, e.g. "notice".
	item  string
	query queryFunc
}

func newResource[T any, P entity[T]](h *Handler, collection, item string, query queryFunc) *resource[T, P] {
	return &resource[T, P]{h: h, collection: collection, item: item, query: query}
}

func (rs *resource[T, P]) register(mux *http.ServeMux) {
	base := "/api/" + rs.collection
	mux.HandleFunc("GET "+base, rs.list)
	mux.HandleFunc("GET "+base+"/{id}", rs.get)
	mux.HandleFunc("POST "+base, rs.create)
	mux.HandleFunc("PUT "+base+"/{id}", rs.update)
	mux.HandleFunc("DELETE "+base+"/{id}", rs.remove)
}

func (rs *resource[T, P]) list(w http.ResponseWriter, r *http.Request) {
	q, err := rs.query(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	items, err := rs.find(r.Context(), q)
	if err != nil {
		rs.internalError(w, r, "listing", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (rs *resource[T, P]) find(ctx context.Context, q store.Query) ([]P, error) {
	docs, err := rs.h.store.Find(ctx, rs.collection, q)
	if err != nil {
		return nil, err
	}
	items := make([]P, 0, len(docs))
	for _, doc := range docs {
		p, err := decodeDocument[T, P](doc)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, nil
}

func (rs *resource[T, P]) get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !isValidUUID(id) {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid id")
		return
	}
	p, err := rs.findOne(r.Context(), id)
	if err != nil {
		rs.writeStoreError(w, r, "fetching", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (rs *resource[T, P]) findOne(ctx context.Context, id string) (P, error) {
	doc, err := rs.h.store.FindOne(ctx, rs.collection, id)
	if err != nil {
		return nil, err
	}
	return decodeDocument[T, P](doc)
}

func (rs *resource[T, P]) create(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	p := P(new(T))
	if !decodeRequest(w, r, p) {
		return
	}
	if err := rs.insert(r.Context(), p); err != nil {
		rs.writeStoreError(w, r, "creating", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"id":      p.Metadata().ID,
		rs.item:   p,
	})
}

// insert validates p, applies its defaults and stores it.  On success the
// metadata of p is filled in.
func (rs *resource[T, P]) insert(ctx context.Context, p P) error {
	*p.Metadata() = models.Meta{}
	if d, ok := any(p).(models.Defaulter); ok {
		d.ApplyDefaults(rs.h.now().UTC())
	}
	if err := p.Validate(); err != nil {
		return validationError{err: err}
	}
	if n, ok := any(p).(models.Normalizer); ok {
		n.Normalize()
	}
	body, err := encodeDocument(p)
	if err != nil {
		return err
	}
	doc, err := rs.h.store.Insert(ctx, rs.collection, body)
	if err != nil {
		return err
	}
	setMeta(p, doc)
	return nil
}

func (rs *resource[T, P]) update(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	id := r.PathValue("id")
	if !isValidUUID(id) {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid id")
		return
	}
	p, err := rs.findOne(r.Context(), id)
	if err != nil {
		rs.writeStoreError(w, r, "fetching", err)
		return
	}

	meta := *p.Metadata()
	if !decodeRequest(w, r, p) {
		return
	}
	*p.Metadata() = meta

	if err = rs.replace(r.Context(), p); err != nil {
		rs.writeStoreError(w, r, "updating", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": rs.item + " updated",
		rs.item:   p,
	})
}

// replace validates p and overwrites the stored document with the same id.
func (rs *resource[T, P]) replace(ctx context.Context, p P) error {
	if err := p.Validate(); err != nil {
		return validationError{err: err}
	}
	if n, ok := any(p).(models.Normalizer); ok {
		n.Normalize()
	}
	body, err := encodeDocument(p)
	if err != nil {
		return err
	}
	doc, err := rs.h.store.Replace(ctx, rs.collection, p.Metadata().ID, body)
	if err != nil {
		return err
	}
	setMeta(p, doc)
	return nil
}

func (rs *resource[T, P]) remove(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	id := r.PathValue("id")
	if !isValidUUID(id) {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid id")
		return
	}
	if err := rs.h.store.Delete(r.Context(), rs.collection, id); err != nil {
		rs.writeStoreError(w, r, "deleting", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": rs.item + " deleted",
	})
}

// upsert creates the first document of a single-document collection or
// merges the request into the existing one.
func (rs *resource[T, P]) upsert(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	existing, err := rs.find(r.Context(), store.Query{Limit: 1})
	if err != nil {
		rs.internalError(w, r, "fetching", err)
		return
	}
	if len(existing) == 0 {
		rs.create(w, r)
		return
	}

	p := existing[0]
	meta := *p.Metadata()
	if !decodeRequest(w, r, p) {
		return
	}
	*p.Metadata() = meta

	if err = rs.replace(r.Context(), p); err != nil {
		rs.writeStoreError(w, r, "updating", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (rs *resource[T, P]) writeStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr validationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "invalid_request", verr.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", rs.item+" not found")
	default:
		rs.internalError(w, r, op, err)
	}
}

func (rs *resource[T, P]) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	rs.h.logger.ErrorContext(
		r.Context(),
		op+" document",
		"collection", rs.collection,
		slogutil.KeyError, err,
	)
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

type validationError struct {
	err error
}

func (e validationError) Error() string { return e.err.Error() }
func (e validationError) Unwrap() error { return e.err }

func decodeDocument[T any, P entity[T]](doc store.Document) (P, error) {
	p := P(new(T))
	if err := json.Unmarshal(doc.Body, p); err != nil {
		return nil, fmt.Errorf("decoding document %s: %w", doc.ID, err)
	}
	setMeta(p, doc)
	return p, nil
}

// encodeDocument returns the stored body of p, without its metadata.
func encodeDocument(p models.Entity) ([]byte, error) {
	meta := p.Metadata()
	saved := *meta
	*meta = models.Meta{}
	defer func() { *meta = saved }()

	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return body, nil
}

func setMeta(p models.Entity, doc store.Document) {
	*p.Metadata() = models.Meta{ID: doc.ID, CreatedAt: doc.CreatedAt, UpdatedAt: doc.UpdatedAt}
}
