// Package playback reconciles the media clock with the edited timeline:
// once per frame it derives visual time, applies the active segment's rate
// and gain, and keeps auxiliary audio clips in sync with their windows.
package playback

import (
	"context"
	"math"
	"time"

	"github.com/subtitle-studio/backend/internal/timeline"
)

const (
	// MuteThresholdDb is the dB floor; at or below it the gain clamps to 0.
	MuteThresholdDb = -60.0
	// DriftThreshold is the audio clip offset error, in seconds, beyond
	// which the clip is repositioned. Smaller errors ride out float and
	// scheduler jitter without constant reseeking.
	DriftThreshold = 0.3
	// DefaultTickInterval approximates one rendered frame.
	DefaultTickInterval = 16 * time.Millisecond
)

// DbToGain converts a decibel offset to a linear gain factor.
func DbToGain(db float64) float64 {
	if db <= MuteThresholdDb {
		return 0
	}
	return math.Pow(10, db/20)
}

// MediaElement is the contract with the media source collaborator. Only the
// playback surface the loop needs is exposed.
type MediaElement interface {
	CurrentTime() float64
	SetCurrentTime(t float64)
	Duration() float64
	Paused() bool
	Play()
	Pause()
	PlaybackRate() float64
	SetPlaybackRate(rate float64)
}

// GainStage receives the combined segment + master gain each frame.
type GainStage interface {
	SetGain(gain float64)
}

// ClipPlayer is the playback element owned by one audio clip.
type ClipPlayer interface {
	Play()
	Pause()
	Playing() bool
	Offset() float64
	SetOffset(sec float64)
}

// ClipPlayers resolves audio clip ids to their players. Clips without a
// player are skipped; the loop never creates players itself.
type ClipPlayers interface {
	Player(id string) (ClipPlayer, bool)
}

// Loop is the per-frame synchronization driver. State, Seeking and the
// callbacks are read every tick, so the caller can hand in closures over
// its live editor session. Loop itself keeps only the last known visual
// time; it is not safe for concurrent use.
type Loop struct {
	Media MediaElement
	Gain  GainStage   // optional
	Clips ClipPlayers // optional

	State        func() timeline.EditorState
	Seeking      func() bool               // optional; suppresses OnVisualTime
	OnVisualTime func(visual float64)      // optional
	OnActiveCues func(cues []timeline.Cue) // optional

	lastVisual float64
}

// Tick runs one reconciliation frame.
func (l *Loop) Tick() {
	st := l.State()
	rm := timeline.NewRemapper(st.Segments)
	src := l.Media.CurrentTime()

	visual, mapped := rm.ToVisualTime(src)
	if !mapped {
		// Inside a gap: hold the last known visual time and either skip
		// ahead to the next included range or stop at the end of the edit.
		visual = l.lastVisual
		if next, ok := rm.NextSegmentStart(src); ok {
			l.Media.SetCurrentTime(next)
		} else {
			l.Media.Pause()
		}
	} else {
		l.lastVisual = visual
	}

	if seg, ok := rm.ActiveSegment(src); ok {
		if rate := seg.Rate(); l.Media.PlaybackRate() != rate {
			l.Media.SetPlaybackRate(rate)
		}
		if l.Gain != nil {
			l.Gain.SetGain(DbToGain(seg.VolumeOffsetDb + st.MasterVolumeDb))
		}
	}

	l.syncClips(st, rm, visual)

	if l.OnActiveCues != nil {
		l.OnActiveCues(activeCues(st.Cues, src))
	}
	if l.OnVisualTime != nil && (l.Seeking == nil || !l.Seeking()) {
		l.OnVisualTime(visual)
	}
}

// Run ticks the loop at the given interval until the context is canceled.
// Pass 0 for the default frame interval.
func (l *Loop) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Tick()
		}
	}
}

func (l *Loop) syncClips(st timeline.EditorState, rm timeline.Remapper, visual float64) {
	if l.Clips == nil {
		return
	}
	playing := !l.Media.Paused()
	for _, clip := range st.AudioClips {
		p, ok := l.Clips.Player(clip.ID)
		if !ok {
			continue
		}
		vs, mapped := rm.ToVisualTime(clip.StartTime)
		within := mapped && visual >= vs && visual < vs+clip.Duration
		if within && playing {
			expected := visual - vs
			if math.Abs(p.Offset()-expected) > DriftThreshold {
				p.SetOffset(expected)
			}
			if !p.Playing() {
				p.Play()
			}
		} else if p.Playing() {
			p.Pause()
		}
	}
}

func activeCues(cues []timeline.Cue, src float64) []timeline.Cue {
	var out []timeline.Cue
	for _, c := range cues {
		if src >= c.StartTime && src < c.EndTime {
			out = append(out, c)
		}
	}
	return out
}
