package timeline

// Segment is a contiguous source-time range included in the edit, with its
// own playback rate and volume offset. Segments are kept ordered by
// SourceStart and never overlap each other.
type Segment struct {
	ID             string  `json:"id"`
	SourceStart    float64 `json:"sourceStart"`
	SourceEnd      float64 `json:"sourceEnd"`
	PlaybackRate   float64 `json:"playbackRate"`
	VolumeOffsetDb float64 `json:"volumeOffsetDb"`
}

// Rate returns the playback rate, treating the zero value as 1x.
func (s Segment) Rate() float64 {
	if s.PlaybackRate <= 0 {
		return 1
	}
	return s.PlaybackRate
}

// VisualDuration is the length of the segment on the edited timeline.
func (s Segment) VisualDuration() float64 {
	return (s.SourceEnd - s.SourceStart) / s.Rate()
}

// Cue is a single subtitle block. Times are source-time-coded; the UI
// displays and manipulates them in visual time through a Remapper.
type Cue struct {
	ID        string  `json:"id"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Text      string  `json:"text"`
	Track     int     `json:"track"`
}

// AudioClip is an auxiliary audio track entry (e.g. synthesized speech).
// StartTime is source-time-coded; Duration is the clip's own play length.
type AudioClip struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	StartTime float64 `json:"startTime"`
	Duration  float64 `json:"duration"`
	Track     int     `json:"track"`
}

// Region is a rectangle in percent coordinates of the video frame,
// used for the hard-subtitle cover box.
type Region struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Enabled bool    `json:"enabled"`
}

// EditorState is the aggregate the editor operates on. It is the unit of
// undo: every committed mutation replaces the whole value so invariants can
// be checked atomically and structural equality stays meaningful.
type EditorState struct {
	Cues           []Cue       `json:"cues"`
	Segments       []Segment   `json:"segments"`
	AudioClips     []AudioClip `json:"audioClips"`
	CoverBox       *Region     `json:"coverBox,omitempty"`
	MasterVolumeDb float64     `json:"masterVolumeDb"`
}

// Clone returns a deep copy. Element types are plain values, so copying the
// slices is enough.
func (s EditorState) Clone() EditorState {
	out := s
	if s.Cues != nil {
		out.Cues = append([]Cue(nil), s.Cues...)
	}
	if s.Segments != nil {
		out.Segments = append([]Segment(nil), s.Segments...)
	}
	if s.AudioClips != nil {
		out.AudioClips = append([]AudioClip(nil), s.AudioClips...)
	}
	if s.CoverBox != nil {
		box := *s.CoverBox
		out.CoverBox = &box
	}
	return out
}

// Equal reports structural equality between two states. A nil and an empty
// slice compare equal.
func (s EditorState) Equal(o EditorState) bool {
	if s.MasterVolumeDb != o.MasterVolumeDb {
		return false
	}
	if (s.CoverBox == nil) != (o.CoverBox == nil) {
		return false
	}
	if s.CoverBox != nil && *s.CoverBox != *o.CoverBox {
		return false
	}
	if len(s.Cues) != len(o.Cues) || len(s.Segments) != len(o.Segments) || len(s.AudioClips) != len(o.AudioClips) {
		return false
	}
	for i := range s.Cues {
		if s.Cues[i] != o.Cues[i] {
			return false
		}
	}
	for i := range s.Segments {
		if s.Segments[i] != o.Segments[i] {
			return false
		}
	}
	for i := range s.AudioClips {
		if s.AudioClips[i] != o.AudioClips[i] {
			return false
		}
	}
	return true
}

// FindCue returns the cue with the given id, if present.
func (s EditorState) FindCue(id string) (Cue, bool) {
	for _, c := range s.Cues {
		if c.ID == id {
			return c, true
		}
	}
	return Cue{}, false
}

// FindAudioClip returns the audio clip with the given id, if present.
func (s EditorState) FindAudioClip(id string) (AudioClip, bool) {
	for _, a := range s.AudioClips {
		if a.ID == id {
			return a, true
		}
	}
	return AudioClip{}, false
}

// FindSegment returns the segment with the given id, if present.
func (s EditorState) FindSegment(id string) (Segment, bool) {
	for _, seg := range s.Segments {
		if seg.ID == id {
			return seg, true
		}
	}
	return Segment{}, false
}
