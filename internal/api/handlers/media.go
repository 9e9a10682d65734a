package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/subtitle-studio/backend/internal/storage"
)

// extractPath extracts and URL-decodes the wildcard path from chi router
func extractPath(r *http.Request) string {
	path := chi.URLParam(r, "*")
	decoded, err := url.PathUnescape(path)
	if err != nil {
		return path
	}
	decoded = strings.TrimPrefix(decoded, "/")
	decoded = strings.TrimSuffix(decoded, "/")
	return decoded
}

// MediaHandler lists the source video and audio files a project can use.
type MediaHandler struct {
	mediaPath string
}

func NewMediaHandler(mediaPath string) *MediaHandler {
	return &MediaHandler{mediaPath: mediaPath}
}

func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	path := extractPath(r)
	if path == "" {
		path = "."
	}

	entries, err := storage.ListDirectory(h.mediaPath, path)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list directory")
		return
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"path":    path,
		"entries": entries,
	})
}
