package httpapi

import (
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

type imageInfo struct {
	Src         string `json:"src"`
	Alt         string `json:"alt"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *Handler) handleImages(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(h.publicDir)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "listing images", "dir", h.publicDir, slogutil.KeyError, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load images")
		return
	}

	images := []imageInfo{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !slices.Contains(imageExtensions, ext) {
			continue
		}
		images = append(images, describeImage(name))
	}
	writeJSON(w, http.StatusOK, images)
}

// describeImage derives display text from an image file name, so
// "main_gate-2020.jpg" is titled "Main Gate 2020".
func describeImage(name string) imageInfo {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	alt := strings.NewReplacer("_", " ", "-", " ").Replace(base)

	words := strings.Split(alt, " ")
	for i, word := range words {
		r, size := utf8.DecodeRuneInString(word)
		if size > 0 {
			words[i] = string(unicode.ToUpper(r)) + word[size:]
		}
	}

	return imageInfo{
		Src:         "/" + name,
		Alt:         alt,
		Title:       strings.Join(words, " "),
		Description: "A beautiful image of " + alt,
	}
}
