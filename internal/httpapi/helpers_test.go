package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/fuad-rahat/school-website/internal/auth"
	"github.com/fuad-rahat/school-website/internal/models"
	"github.com/fuad-rahat/school-website/internal/session"
	"github.com/fuad-rahat/school-website/internal/store"
	"github.com/fuad-rahat/school-website/internal/token"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testUsername = "admin"
	testPassword = "s3cret"
)

// memStore is an in-memory [store.Store].
type memStore struct {
	mu     sync.Mutex
	admins map[string]models.Admin
	docs   map[string][]store.Document

	adminErr error
	findErr  error
	countErr error
}

var _ store.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		admins: map[string]models.Admin{},
		docs:   map[string][]store.Document{},
	}
}

func (s *memStore) Ping(context.Context) error { return nil }

func (s *memStore) AdminByUsername(_ context.Context, username string) (models.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.adminErr != nil {
		return models.Admin{}, s.adminErr
	}
	a, ok := s.admins[username]
	if !ok {
		return models.Admin{}, store.ErrNotFound
	}
	return a, nil
}

func (s *memStore) CreateAdmin(_ context.Context, admin models.Admin) (models.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[admin.Username]; ok {
		return models.Admin{}, store.ErrAlreadyExists
	}
	s.admins[admin.Username] = admin
	return admin, nil
}

func (s *memStore) Find(_ context.Context, collection string, q store.Query) ([]store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findErr != nil {
		return nil, s.findErr
	}

	var docs []store.Document
	for _, doc := range s.docs[collection] {
		if matches(doc.Body, q.Filter) {
			docs = append(docs, doc)
		}
	}

	if q.SortField == "" {
		slices.Reverse(docs)
	} else {
		sort.SliceStable(docs, func(i, j int) bool {
			a, b := fieldString(docs[i].Body, q.SortField), fieldString(docs[j].Body, q.SortField)
			if q.SortDesc {
				return a > b
			}
			return a < b
		})
	}

	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

func (s *memStore) FindOne(_ context.Context, collection, id string) (store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range s.docs[collection] {
		if doc.ID == id {
			return doc, nil
		}
	}
	return store.Document{}, store.ErrNotFound
}

func (s *memStore) Insert(_ context.Context, collection string, body []byte) (store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	doc := store.Document{ID: uuid.NewString(), Body: body, CreatedAt: now, UpdatedAt: now}
	s.docs[collection] = append(s.docs[collection], doc)
	return doc, nil
}

func (s *memStore) Replace(_ context.Context, collection, id string, body []byte) (store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, doc := range s.docs[collection] {
		if doc.ID == id {
			doc.Body = body
			doc.UpdatedAt = time.Now().UTC()
			s.docs[collection][i] = doc
			return doc, nil
		}
	}
	return store.Document{}, store.ErrNotFound
}

func (s *memStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.docs[collection]
	for i, doc := range docs {
		if doc.ID == id {
			s.docs[collection] = slices.Delete(docs, i, i+1)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *memStore) Distinct(_ context.Context, collection, field string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := []string{}
	for _, doc := range s.docs[collection] {
		v := fieldString(doc.Body, field)
		if v != "" && !slices.Contains(values, v) {
			values = append(values, v)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(values)))
	return values, nil
}

func (s *memStore) Count(_ context.Context, collection string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.countErr != nil {
		return 0, s.countErr
	}
	return int64(len(s.docs[collection])), nil
}

// fieldString returns a top-level field of body as text, the way Postgres
// ->> does.
func fieldString(body []byte, field string) string {
	var m map[string]json.RawMessage
	if json.Unmarshal(body, &m) != nil {
		return ""
	}
	raw, ok := m[field]
	if !ok || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

func matches(body []byte, filter map[string]any) bool {
	for k, want := range filter {
		w, err := json.Marshal(want)
		if err != nil {
			return false
		}
		var m map[string]json.RawMessage
		if json.Unmarshal(body, &m) != nil || !bytes.Equal(m[k], w) {
			return false
		}
	}
	return true
}

type fakeUploader struct {
	maxBytes int64
	uploadFn func(ctx context.Context, filename string, r io.Reader) (string, error)
}

func (f *fakeUploader) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	return f.uploadFn(ctx, filename, r)
}

func (f *fakeUploader) MaxBytes() int64 {
	return f.maxBytes
}

type testEnv struct {
	routes   http.Handler
	store    *memStore
	codec    *token.Codec
	uploader *fakeUploader
	now      time.Time
	dir      string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store: newMemStore(),
		now:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		dir:   t.TempDir(),
		uploader: &fakeUploader{
			maxBytes: 1 << 10,
			uploadFn: func(context.Context, string, io.Reader) (string, error) {
				return "https://img.example/x.png", nil
			},
		},
	}
	clock := func() time.Time { return env.now }

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	env.store.admins[testUsername] = models.Admin{
		AdminID:      "a1",
		Username:     testUsername,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}

	env.codec, err = token.NewCodec(token.Config{Secret: []byte("test-secret"), Now: clock})
	require.NoError(t, err)

	logger := slogutil.NewDiscardLogger()
	svc, err := auth.NewService(env.store, env.codec, nil, logger)
	require.NoError(t, err)

	env.routes = NewHandler(Config{
		Store:     env.store,
		Auth:      svc,
		Cookies:   session.NewAccessor(false),
		Uploader:  env.uploader,
		Logger:    logger,
		PublicDir: env.dir,
		Now:       clock,
	}).Routes()

	return env
}

// adminCookie returns a session cookie valid at env.now.
func (env *testEnv) adminCookie(t *testing.T) *http.Cookie {
	t.Helper()

	raw, err := env.codec.Issue(token.Claims{UserID: "a1", Username: testUsername, Role: models.RoleAdmin})
	require.NoError(t, err)

	return &http.Cookie{Name: session.CookieName, Value: raw}
}

// do serves a request with an optional JSON body and cookie.
func (env *testEnv) do(t *testing.T, method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	env.routes.ServeHTTP(rec, req)

	return rec
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())

	return v
}
