package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/subtitle-studio/backend/internal/db"
	"github.com/subtitle-studio/backend/internal/db/models"
)

// ProjectsHandler serves the project documents: one JSON blob per project
// holding cues, segments, audio clips and the cover box.
type ProjectsHandler struct {
	db *db.Database
}

func NewProjectsHandler(database *db.Database) *ProjectsHandler {
	return &ProjectsHandler{db: database}
}

func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.db.ListProjects()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}

	// Return decoded documents so clients get names without a second fetch.
	result := make([]models.ProjectData, 0, len(projects))
	for _, p := range projects {
		data, err := p.Decode()
		if err != nil {
			continue
		}
		result = append(result, data)
	}
	respond(w, http.StatusOK, result)
}

func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	project, err := h.db.GetProject(id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load project")
		return
	}

	data, err := project.Decode()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "corrupt project document")
		return
	}
	respond(w, http.StatusOK, data)
}

func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var data models.ProjectData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if data.ID == "" {
		data.ID = uuid.New().String()
	}

	raw, err := json.Marshal(data)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to encode project")
		return
	}
	if err := h.db.UpsertProject(data.ID, raw); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save project")
		return
	}
	respond(w, http.StatusCreated, data)
}

func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var data models.ProjectData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if data.ID != "" && data.ID != id {
		respondError(w, http.StatusBadRequest, "project id mismatch")
		return
	}
	data.ID = id

	raw, err := json.Marshal(data)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to encode project")
		return
	}
	if err := h.db.UpsertProject(id, raw); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save project")
		return
	}
	respond(w, http.StatusOK, data)
}

func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.db.DeleteProject(id); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
