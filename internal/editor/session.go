package editor

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/subtitle-studio/backend/internal/timeline"
)

var (
	// ErrNotFound marks a structural operation against a missing id.
	ErrNotFound = errors.New("editor: target not found")
	// ErrOverlap marks a mutation rejected because it would violate the
	// per-track non-overlap invariant.
	ErrOverlap = errors.New("editor: placement overlaps an existing item")
)

// Playback rate bounds applied at the mutation boundary. The remapper
// itself never validates.
const (
	MinPlaybackRate = 0.1
	MaxPlaybackRate = 4.0
)

// SelectMode distinguishes plain click, ctrl/cmd click and shift click.
type SelectMode int

const (
	SelectReplace SelectMode = iota
	SelectToggle
	SelectRange
)

// Editor owns one project's editing session: the live aggregate, its undo
// history, the selection and the pointer machine. During a drag the live
// state is mutated every frame without touching history; pointer-up commits
// once. All methods must be called from a single goroutine.
type Editor struct {
	live          timeline.EditorState
	history       *History
	selection     *Selection
	machine       *Machine
	playhead      float64 // visual time
	seeking       bool
	mediaDuration float64 // source duration, used when there are no segments
}

// New seeds an editor from persisted project data.
func New(initial timeline.EditorState, vp Viewport) *Editor {
	st := initial.Clone()
	return &Editor{
		live:      st,
		history:   NewHistory(st),
		selection: NewSelection(),
		machine:   NewMachine(vp),
	}
}

// State returns a copy of the live aggregate.
func (e *Editor) State() timeline.EditorState { return e.live.Clone() }

// Playhead returns the current visual playhead time.
func (e *Editor) Playhead() float64 { return e.playhead }

// SetPlayhead is called by the playback loop each frame. While the user is
// actively seeking, the loop's value is ignored so the drag wins.
func (e *Editor) SetPlayhead(visual float64) {
	if e.seeking {
		return
	}
	e.playhead = visual
}

// Seeking reports whether a seek drag is in progress.
func (e *Editor) Seeking() bool { return e.seeking }

// SetMediaDuration records the source media duration; with zero segments it
// defines the timeline length.
func (e *Editor) SetMediaDuration(d float64) { e.mediaDuration = d }

// Duration is the total visual length of the timeline.
func (e *Editor) Duration() float64 {
	if len(e.live.Segments) == 0 {
		return e.mediaDuration
	}
	return timeline.NewRemapper(e.live.Segments).VisualDuration()
}

func (e *Editor) Selection() *Selection { return e.selection }

func (e *Editor) InteractionKind() InteractionKind { return e.machine.Kind() }

func (e *Editor) SnapIndicator() (float64, bool) { return e.machine.SnapIndicator() }

func (e *Editor) Marquee() (Rect, bool) { return e.machine.Marquee() }

func (e *Editor) SetViewport(vp Viewport) { e.machine.SetViewport(vp) }

func (e *Editor) frame() Frame {
	return Frame{State: e.live, Playhead: e.playhead, Duration: e.Duration()}
}

// PointerDown starts an interaction. Unknown or unmappable targets leave
// the editor idle.
func (e *Editor) PointerDown(kind InteractionKind, targetID string, p Pointer) bool {
	if !e.machine.Begin(kind, targetID, p, e.live) {
		return false
	}
	if kind == KindSeek {
		e.seeking = true
		e.PointerMove(p)
	}
	return true
}

// PointerMove feeds one pointer sample into the active interaction. The
// live state absorbs accepted edits immediately; history is untouched.
func (e *Editor) PointerMove(p Pointer) {
	up := e.machine.Move(p, e.frame())
	if up.Changed {
		e.live = up.State
	}
	if up.HasSeek {
		e.playhead = up.Seek
	}
}

// PointerUp ends the interaction and commits the result: geometry drags
// commit the live state to history, a marquee resolves to a selection or a
// click seek.
func (e *Editor) PointerUp(p Pointer) {
	res := e.machine.End(p, e.frame())

	switch res.Kind {
	case KindMarquee:
		if res.MarqueeSeek {
			e.playhead = res.SeekTime
			return
		}
		if len(res.SegmentIDs) > 0 {
			if res.Additive {
				e.selection.AddAll(res.SegmentIDs, true)
			} else {
				e.selection.ReplaceAll(res.SegmentIDs, true)
			}
		} else if res.Additive {
			e.selection.AddAll(res.ItemIDs, false)
		} else {
			e.selection.ReplaceAll(res.ItemIDs, false)
		}
	case KindSeek:
		e.seeking = false
	case KindIdle:
		// Spurious up, nothing to commit.
	default:
		e.history.Commit(e.live)
	}
}

// Click applies single/toggle/range selection to an item or segment.
func (e *Editor) Click(id string, isSegment bool, mode SelectMode) {
	switch mode {
	case SelectToggle:
		e.selection.Toggle(id, isSegment)
	case SelectRange:
		e.selection.SelectRange(e.documentOrder(id, isSegment), id, isSegment)
	default:
		e.selection.Select(id, isSegment)
	}
}

// documentOrder lists ids of the clicked id's family in timeline order.
func (e *Editor) documentOrder(id string, isSegment bool) []string {
	if isSegment {
		out := make([]string, len(e.live.Segments))
		for i, s := range e.live.Segments {
			out[i] = s.ID
		}
		return out
	}
	if _, ok := e.live.FindCue(id); ok {
		cues := append([]timeline.Cue(nil), e.live.Cues...)
		sort.SliceStable(cues, func(i, j int) bool {
			if cues[i].StartTime != cues[j].StartTime {
				return cues[i].StartTime < cues[j].StartTime
			}
			return cues[i].Track < cues[j].Track
		})
		out := make([]string, len(cues))
		for i, c := range cues {
			out[i] = c.ID
		}
		return out
	}
	clips := append([]timeline.AudioClip(nil), e.live.AudioClips...)
	sort.SliceStable(clips, func(i, j int) bool {
		if clips[i].StartTime != clips[j].StartTime {
			return clips[i].StartTime < clips[j].StartTime
		}
		return clips[i].Track < clips[j].Track
	})
	out := make([]string, len(clips))
	for i, a := range clips {
		out[i] = a.ID
	}
	return out
}

// apply validates and commits a structural mutation as one new aggregate.
func (e *Editor) apply(next timeline.EditorState) error {
	if err := Validate(next); err != nil {
		return err
	}
	e.live = next
	e.history.Commit(next)
	return nil
}

// SplitSegmentAt splits the segment containing the given source time into
// two segments sharing the original rate and volume offset.
func (e *Editor) SplitSegmentAt(sourceTime float64) error {
	next := e.live.Clone()
	for i, seg := range next.Segments {
		if sourceTime > seg.SourceStart && sourceTime < seg.SourceEnd {
			left := seg
			left.SourceEnd = sourceTime
			right := seg
			right.ID = uuid.New().String()
			right.SourceStart = sourceTime

			next.Segments = append(next.Segments[:i], append([]timeline.Segment{left, right}, next.Segments[i+1:]...)...)
			return e.apply(next)
		}
	}
	return fmt.Errorf("%w: no segment contains source time %.3f", ErrNotFound, sourceTime)
}

// DeleteSegment removes a segment. Cues whose times fall into the resulting
// gap become unmapped; they are kept, not auto-fixed.
func (e *Editor) DeleteSegment(id string) error {
	next := e.live.Clone()
	for i, seg := range next.Segments {
		if seg.ID == id {
			next.Segments = append(next.Segments[:i], next.Segments[i+1:]...)
			return e.apply(next)
		}
	}
	return ErrNotFound
}

// SetSegmentRate changes a segment's playback rate, clamped to the legal
// range before the remapper ever sees it.
func (e *Editor) SetSegmentRate(id string, rate float64) error {
	if rate < MinPlaybackRate {
		rate = MinPlaybackRate
	}
	if rate > MaxPlaybackRate {
		rate = MaxPlaybackRate
	}
	next := e.live.Clone()
	for i := range next.Segments {
		if next.Segments[i].ID == id {
			next.Segments[i].PlaybackRate = rate
			return e.apply(next)
		}
	}
	return ErrNotFound
}

// SetSegmentVolume changes a segment's volume offset in dB.
func (e *Editor) SetSegmentVolume(id string, db float64) error {
	next := e.live.Clone()
	for i := range next.Segments {
		if next.Segments[i].ID == id {
			next.Segments[i].VolumeOffsetDb = db
			return e.apply(next)
		}
	}
	return ErrNotFound
}

// AddCue inserts a new cue, generating an id when none is given.
func (e *Editor) AddCue(cue timeline.Cue) (string, error) {
	if cue.ID == "" {
		cue.ID = uuid.New().String()
	}
	next := e.live.Clone()
	next.Cues = append(next.Cues, cue)
	if err := e.apply(next); err != nil {
		return "", err
	}
	return cue.ID, nil
}

// UpdateCueText replaces a cue's text.
func (e *Editor) UpdateCueText(id, text string) error {
	next := e.live.Clone()
	for i := range next.Cues {
		if next.Cues[i].ID == id {
			next.Cues[i].Text = text
			return e.apply(next)
		}
	}
	return ErrNotFound
}

// DeleteCue removes a cue by id.
func (e *Editor) DeleteCue(id string) error {
	next := e.live.Clone()
	for i := range next.Cues {
		if next.Cues[i].ID == id {
			next.Cues = append(next.Cues[:i], next.Cues[i+1:]...)
			return e.apply(next)
		}
	}
	return ErrNotFound
}

// DeleteAudioClip removes an audio clip by id.
func (e *Editor) DeleteAudioClip(id string) error {
	next := e.live.Clone()
	for i := range next.AudioClips {
		if next.AudioClips[i].ID == id {
			next.AudioClips = append(next.AudioClips[:i], next.AudioClips[i+1:]...)
			return e.apply(next)
		}
	}
	return ErrNotFound
}

// DeleteSelected removes everything in the current selection as one commit
// and clears the selection.
func (e *Editor) DeleteSelected() error {
	if e.selection.Empty() {
		return nil
	}
	next := e.live.Clone()

	keepSegs := next.Segments[:0]
	for _, s := range next.Segments {
		if !e.selection.IsSelected(s.ID) {
			keepSegs = append(keepSegs, s)
		}
	}
	next.Segments = keepSegs

	keepCues := next.Cues[:0]
	for _, c := range next.Cues {
		if !e.selection.IsSelected(c.ID) {
			keepCues = append(keepCues, c)
		}
	}
	next.Cues = keepCues

	keepClips := next.AudioClips[:0]
	for _, a := range next.AudioClips {
		if !e.selection.IsSelected(a.ID) {
			keepClips = append(keepClips, a)
		}
	}
	next.AudioClips = keepClips

	if err := e.apply(next); err != nil {
		return err
	}
	e.selection.Clear()
	return nil
}

// AppendAudioClips adds a batch of synthesized clips (speech collaborator
// output) as one commit, generating ids where missing.
func (e *Editor) AppendAudioClips(clips []timeline.AudioClip) error {
	if len(clips) == 0 {
		return nil
	}
	next := e.live.Clone()
	for _, clip := range clips {
		if clip.ID == "" {
			clip.ID = uuid.New().String()
		}
		next.AudioClips = append(next.AudioClips, clip)
	}
	return e.apply(next)
}

// SetCoverBox stores a detection result (or a manual edit) as the cover box.
func (e *Editor) SetCoverBox(box timeline.Region) error {
	next := e.live.Clone()
	next.CoverBox = &box
	return e.apply(next)
}

// ClearCoverBox removes the cover box.
func (e *Editor) ClearCoverBox() error {
	next := e.live.Clone()
	next.CoverBox = nil
	return e.apply(next)
}

// SetMasterVolume sets the master volume in dB.
func (e *Editor) SetMasterVolume(db float64) error {
	next := e.live.Clone()
	next.MasterVolumeDb = db
	return e.apply(next)
}

// Undo steps the live state back one snapshot. Selection is cleared since
// its ids may no longer exist.
func (e *Editor) Undo() bool {
	st, ok := e.history.Undo()
	if !ok {
		return false
	}
	e.live = st
	e.selection.Clear()
	return true
}

// Redo steps the live state forward one snapshot.
func (e *Editor) Redo() bool {
	st, ok := e.history.Redo()
	if !ok {
		return false
	}
	e.live = st
	e.selection.Clear()
	return true
}

func (e *Editor) CanUndo() bool { return e.history.CanUndo() }

func (e *Editor) CanRedo() bool { return e.history.CanRedo() }

// Dirty reports unsaved changes relative to the last save point.
func (e *Editor) Dirty() bool { return e.history.CanUndo() }

// MarkSaved makes the current state the new history baseline after a
// successful save.
func (e *Editor) MarkSaved() { e.history.Reset(e.live) }

// Validate checks the aggregate invariants: ordered non-overlapping
// segments with positive spans, well-formed cue times, and per-track
// non-overlap for cues (source time) and audio clips (visual time).
// Violations reject the mutation; nothing is auto-fixed.
func Validate(st timeline.EditorState) error {
	for i, seg := range st.Segments {
		if seg.SourceStart >= seg.SourceEnd {
			return fmt.Errorf("segment %s: source start %.3f >= end %.3f", seg.ID, seg.SourceStart, seg.SourceEnd)
		}
		if i > 0 && seg.SourceStart < st.Segments[i-1].SourceEnd-collisionTolerance {
			return fmt.Errorf("%w: segments %s and %s", ErrOverlap, st.Segments[i-1].ID, seg.ID)
		}
	}

	for _, c := range st.Cues {
		if c.StartTime >= c.EndTime {
			return fmt.Errorf("cue %s: start %.3f >= end %.3f", c.ID, c.StartTime, c.EndTime)
		}
	}
	for i, a := range st.Cues {
		for _, b := range st.Cues[i+1:] {
			if a.Track == b.Track && overlaps(a.StartTime, a.EndTime, b.StartTime, b.EndTime) {
				return fmt.Errorf("%w: cues %s and %s on track %d", ErrOverlap, a.ID, b.ID, a.Track)
			}
		}
	}

	rm := timeline.NewRemapper(st.Segments)
	for i, a := range st.AudioClips {
		avs, ave, ok := clipVisualRange(rm, a)
		if !ok {
			continue
		}
		for _, b := range st.AudioClips[i+1:] {
			if a.Track != b.Track {
				continue
			}
			bvs, bve, ok := clipVisualRange(rm, b)
			if ok && overlaps(avs, ave, bvs, bve) {
				return fmt.Errorf("%w: audio clips %s and %s on track %d", ErrOverlap, a.ID, b.ID, a.Track)
			}
		}
	}
	return nil
}
