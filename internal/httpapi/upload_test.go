package httpapi

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fuad-rahat/school-website/internal/upload"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadRequest(t *testing.T, field string, data []byte, cookie *http.Cookie) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "logo.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if cookie != nil {
		req.AddCookie(cookie)
	}

	return req
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminCookie(t)

	var gotName, gotData string
	env.uploader.uploadFn = func(_ context.Context, filename string, r io.Reader) (string, error) {
		b, err := io.ReadAll(r)
		gotName, gotData = filename, string(b)

		return "https://img.example/logo.png", err
	}

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		env.routes.ServeHTTP(rec, req)

		return rec
	}

	t.Run("success", func(t *testing.T) {
		rec := serve(uploadRequest(t, "image", []byte("png-bytes"), admin))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, uploadResponse{Success: true, URL: "https://img.example/logo.png"}, decodeJSON[uploadResponse](t, rec))
		assert.Equal(t, "logo.png", gotName)
		assert.Equal(t, "png-bytes", gotData)
	})

	t.Run("anonymous", func(t *testing.T) {
		rec := serve(uploadRequest(t, "image", []byte("png-bytes"), nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("no_image", func(t *testing.T) {
		rec := serve(uploadRequest(t, "file", []byte("png-bytes"), admin))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too_large", func(t *testing.T) {
		data := bytes.Repeat([]byte{'x'}, int(env.uploader.maxBytes)+1)
		rec := serve(uploadRequest(t, "image", data, admin))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "too_large", decodeJSON[errorResponse](t, rec).Error.Code)
	})

	t.Run("not_configured", func(t *testing.T) {
		env.uploader.uploadFn = func(context.Context, string, io.Reader) (string, error) {
			return "", upload.ErrNotConfigured
		}
		rec := serve(uploadRequest(t, "image", []byte("png-bytes"), admin))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("host_failure", func(t *testing.T) {
		env.uploader.uploadFn = func(context.Context, string, io.Reader) (string, error) {
			return "", upload.ErrUploadFailed
		}
		rec := serve(uploadRequest(t, "image", []byte("png-bytes"), admin))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestImages(t *testing.T) {
	env := newTestEnv(t)

	for _, name := range []string{"main_gate-2020.JPG", "notes.txt", "library.webp"} {
		require.NoError(t, os.WriteFile(filepath.Join(env.dir, name), []byte("x"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(env.dir, "photos.png"), 0o700))

	rec := env.do(t, http.MethodGet, "/api/images", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []imageInfo{{
		Src:         "/library.webp",
		Alt:         "library",
		Title:       "Library",
		Description: "A beautiful image of library",
	}, {
		Src:         "/main_gate-2020.JPG",
		Alt:         "main gate 2020",
		Title:       "Main Gate 2020",
		Description: "A beautiful image of main gate 2020",
	}}, decodeJSON[[]imageInfo](t, rec))
}

func TestImages_missingDir(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.RemoveAll(env.dir))

	rec := env.do(t, http.MethodGet, "/api/images", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "failed to load images"))
}
