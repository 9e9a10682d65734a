package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/subtitle-studio/backend/internal/api/middleware"
	"github.com/subtitle-studio/backend/internal/db"
)

type UserHandler struct {
	db *db.Database
}

func NewUserHandler(db *db.Database) *UserHandler {
	return &UserHandler{db: db}
}

type savePlayheadRequest struct {
	Position float64 `json:"position"`
}

// SavePlayhead remembers where a user last parked the playhead in a project.
func (h *UserHandler) SavePlayhead(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	projectID := chi.URLParam(r, "id")
	var req savePlayheadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.db.SavePlayhead(claims.UserID, projectID, req.Position); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save playhead")
		return
	}

	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *UserHandler) GetPlayhead(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	projectID := chi.URLParam(r, "id")
	pos, err := h.db.GetPlayhead(claims.UserID, projectID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get playhead")
		return
	}

	respond(w, http.StatusOK, map[string]float64{"position": pos})
}
