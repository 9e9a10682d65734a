package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/subtitle-studio/backend/internal/db"
)

// settingsKeys defines which keys are allowed and their display metadata
var settingsKeys = []SettingDef{
	{Key: "cover_service_url", Label: "Cover Detection Service URL", Group: "services", Placeholder: "http://localhost:8188", Secret: false},
	{Key: "speech_service_url", Label: "Speech Synthesis Service URL", Group: "services", Placeholder: "http://localhost:8189", Secret: false},
	{Key: "speech_voice", Label: "Default Voice", Group: "services", Placeholder: "alloy", Secret: false},
	{Key: "speech_api_key", Label: "Speech API Key", Group: "services", Placeholder: "sk-...", Secret: true},
	{Key: "detect_language", Label: "Detection Language", Group: "services", Placeholder: "auto", Secret: false},
	{Key: "snap_threshold_px", Label: "Snap Threshold (px)", Group: "editor", Placeholder: "8", Secret: false},
	{Key: "default_track_count", Label: "Cue Tracks", Group: "editor", Placeholder: "3", Secret: false},
}

type SettingDef struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Group       string `json:"group"`
	Placeholder string `json:"placeholder"`
	Secret      bool   `json:"secret"`
}

type SettingsHandler struct {
	database *db.Database
}

func NewSettingsHandler(database *db.Database) *SettingsHandler {
	return &SettingsHandler{database: database}
}

// GetSettings returns all settings (secrets are masked)
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	all, err := h.database.GetAllSettings()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}

	type SettingResponse struct {
		SettingDef
		Value    string `json:"value"`
		HasValue bool   `json:"has_value"`
	}

	var result []SettingResponse
	for _, def := range settingsKeys {
		val := all[def.Key]
		masked := val
		hasValue := val != ""
		if def.Secret && hasValue {
			// Show only last 4 chars
			if len(val) > 4 {
				masked = "••••••••" + val[len(val)-4:]
			} else {
				masked = "••••••••"
			}
		}
		result = append(result, SettingResponse{
			SettingDef: def,
			Value:      masked,
			HasValue:   hasValue,
		})
	}

	respond(w, http.StatusOK, result)
}

// UpdateSettings saves settings from the request body
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	allowed := make(map[string]bool)
	for _, def := range settingsKeys {
		allowed[def.Key] = true
	}

	for key, value := range updates {
		if !allowed[key] {
			continue
		}
		if value == "" {
			// Explicit clear
			h.database.SetSetting(key, "")
			continue
		}
		// Skip masked values so a round-tripped form does not overwrite secrets
		if len(value) > 0 && value[0] == 0xe2 { // "•" starts with 0xe2 in UTF-8
			continue
		}
		if err := h.database.SetSetting(key, value); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to save setting: "+key)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
