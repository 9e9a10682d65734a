package models

import (
	"encoding/json"
	"time"

	"github.com/subtitle-studio/backend/internal/timeline"
)

// Project is the raw stored form: one JSON document per project.
type Project struct {
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProjectData is the decoded project document exchanged with clients and
// seeded into an editor session.
type ProjectData struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	VideoFile      string               `json:"videoFile"`
	Duration       float64              `json:"duration"`
	Cues           []timeline.Cue       `json:"cues"`
	Segments       []timeline.Segment   `json:"segments"`
	AudioClips     []timeline.AudioClip `json:"audioClips"`
	CoverBox       *timeline.Region     `json:"coverBox,omitempty"`
	MasterVolumeDb float64              `json:"masterVolumeDb"`
}

// Decode parses the stored document.
func (p Project) Decode() (ProjectData, error) {
	var data ProjectData
	err := json.Unmarshal(p.Data, &data)
	return data, err
}

// EditorState extracts the editable aggregate from the document.
func (d ProjectData) EditorState() timeline.EditorState {
	return timeline.EditorState{
		Cues:           d.Cues,
		Segments:       d.Segments,
		AudioClips:     d.AudioClips,
		CoverBox:       d.CoverBox,
		MasterVolumeDb: d.MasterVolumeDb,
	}
}

// WithState returns a copy of the document carrying the given aggregate.
func (d ProjectData) WithState(st timeline.EditorState) ProjectData {
	d.Cues = st.Cues
	d.Segments = st.Segments
	d.AudioClips = st.AudioClips
	d.CoverBox = st.CoverBox
	d.MasterVolumeDb = st.MasterVolumeDb
	return d
}
