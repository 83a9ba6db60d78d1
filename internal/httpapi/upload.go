package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fuad-rahat/school-website/internal/upload"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
)

// multipartOverhead is the room left for form boundaries and headers on top
// of the image size limit.
const multipartOverhead = 64 << 10

type uploadResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	maxBytes := h.uploader.MaxBytes()
	tooLarge := fmt.Sprintf("image must be at most %d bytes", maxBytes)

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	f, hdr, err := r.FormFile("image")
	if err != nil {
		var mbErr *http.MaxBytesError
		if errors.As(err, &mbErr) {
			writeError(w, http.StatusBadRequest, "too_large", tooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "no image provided")
		return
	}
	defer func() { _ = f.Close() }()

	if hdr.Size > maxBytes {
		writeError(w, http.StatusBadRequest, "too_large", tooLarge)
		return
	}

	url, err := h.uploader.Upload(r.Context(), hdr.Filename, f)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, uploadResponse{Success: true, URL: url})
	case errors.Is(err, upload.ErrTooLarge):
		writeError(w, http.StatusBadRequest, "too_large", tooLarge)
	case errors.Is(err, upload.ErrNotConfigured):
		h.logger.ErrorContext(r.Context(), "image upload", slogutil.KeyError, err)
		writeError(w, http.StatusInternalServerError, "not_configured", "image upload is not configured")
	default:
		h.logger.ErrorContext(r.Context(), "image upload", slogutil.KeyError, err)
		writeError(w, http.StatusBadGateway, "upload_failed", "failed to upload image")
	}
}
