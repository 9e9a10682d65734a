package editor

import (
	"math"
	"testing"

	"github.com/subtitle-studio/backend/internal/timeline"
)

func testViewport() Viewport {
	return Viewport{
		PixelsPerSecond:   100,
		TrackHeight:       28,
		SegmentLaneHeight: 36,
		CueTracks:         3,
		SnapThresholdPx:   8,
		ClickThresholdPx:  4,
		VideoWidth:        1000,
		VideoHeight:       500,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9
}

// Identity mapping (no segments) keeps visual and source time equal, which
// makes drag arithmetic readable in these tests.
func twoCueState() timeline.EditorState {
	return timeline.EditorState{
		Cues: []timeline.Cue{
			{ID: "a", StartTime: 2, EndTime: 4, Track: 0},
			{ID: "b", StartTime: 6, EndTime: 8, Track: 0},
		},
	}
}

func frame(st timeline.EditorState, playhead float64) Frame {
	return Frame{State: st, Playhead: playhead, Duration: 60}
}

func TestMove_CollisionRejectsWholeMove(t *testing.T) {
	m := NewMachine(testViewport())
	st := twoCueState()

	if !m.Begin(KindMoveCue, "b", Pointer{X: 600, Y: 40}, st) {
		t.Fatal("begin failed")
	}
	// Candidate 3–5 overlaps cue a (2–4) on track 0.
	up := m.Move(Pointer{X: 300, Y: 40}, frame(st, 50))
	if up.Changed {
		t.Fatal("overlapping move must be rejected for this frame")
	}
	got, _ := up.State.FindCue("b")
	if got.StartTime != 6 || got.EndTime != 8 || got.Track != 0 {
		t.Fatalf("rejected move mutated the cue: %+v", got)
	}
}

func TestMove_SnapsStartToOtherTrackEdge(t *testing.T) {
	m := NewMachine(testViewport())
	st := timeline.EditorState{
		Cues: []timeline.Cue{
			{ID: "a", StartTime: 2, EndTime: 4, Track: 1},
			{ID: "b", StartTime: 6, EndTime: 8, Track: 0},
		},
	}

	m.Begin(KindMoveCue, "b", Pointer{X: 600, Y: 40}, st)
	// Candidate start 4.045 is within the 0.08s snap window of a's end.
	up := m.Move(Pointer{X: 404.5, Y: 40}, frame(st, 50))
	if !up.Changed {
		t.Fatal("expected accepted move")
	}
	got, _ := up.State.FindCue("b")
	if !almostEqual(got.StartTime, 4) || !almostEqual(got.EndTime, 6) {
		t.Fatalf("expected snap to exactly 4–6, got %v–%v", got.StartTime, got.EndTime)
	}
	snap, ok := m.SnapIndicator()
	if !ok || !almostEqual(snap, 4) {
		t.Fatalf("expected snap indicator at 4, got %v ok=%v", snap, ok)
	}
}

func TestMove_StartSnapPreferredOverEnd(t *testing.T) {
	m := NewMachine(testViewport())
	// A 1s cue dragged between two snap edges exactly 1s apart: both the
	// start (at 4) and the end (at 5) qualify; the start edge must win.
	st := timeline.EditorState{
		Cues: []timeline.Cue{
			{ID: "left", StartTime: 3, EndTime: 4, Track: 1},
			{ID: "right", StartTime: 5, EndTime: 7, Track: 2},
			{ID: "drag", StartTime: 10, EndTime: 11, Track: 0},
		},
	}

	m.Begin(KindMoveCue, "drag", Pointer{X: 1000, Y: 40}, st)
	up := m.Move(Pointer{X: 403, Y: 40}, frame(st, 50))
	if !up.Changed {
		t.Fatal("expected accepted move")
	}
	got, _ := up.State.FindCue("drag")
	if !almostEqual(got.StartTime, 4) {
		t.Fatalf("start snap must win the tie, got start %v", got.StartTime)
	}
	snap, _ := m.SnapIndicator()
	if !almostEqual(snap, 4) {
		t.Fatalf("indicator must report the start snap point, got %v", snap)
	}
}

func TestMove_VerticalDeltaChangesTrack(t *testing.T) {
	m := NewMachine(testViewport())
	st := twoCueState()

	m.Begin(KindMoveCue, "b", Pointer{X: 600, Y: 40}, st)
	up := m.Move(Pointer{X: 600, Y: 70}, frame(st, 50)) // cue track 1
	if !up.Changed {
		t.Fatal("expected accepted move")
	}
	got, _ := up.State.FindCue("b")
	if got.Track != 1 {
		t.Fatalf("expected track 1, got %d", got.Track)
	}
}

func TestMove_ClampsIntoTimeline(t *testing.T) {
	m := NewMachine(testViewport())
	st := timeline.EditorState{
		Cues: []timeline.Cue{{ID: "b", StartTime: 6, EndTime: 8, Track: 0}},
	}

	m.Begin(KindMoveCue, "b", Pointer{X: 600, Y: 40}, st)
	up := m.Move(Pointer{X: -2000, Y: 40}, frame(st, 50))
	got, _ := up.State.FindCue("b")
	if !almostEqual(got.StartTime, 0) || !almostEqual(got.EndTime, 2) {
		t.Fatalf("expected clamp to 0–2, got %v–%v", got.StartTime, got.EndTime)
	}
}

func TestMove_StaleTargetIsNoOp(t *testing.T) {
	m := NewMachine(testViewport())
	st := twoCueState()
	if m.Begin(KindMoveCue, "missing", Pointer{X: 0, Y: 40}, st) {
		t.Fatal("begin must fail on an unknown target")
	}
	if m.Active() {
		t.Fatal("machine must stay idle after failed begin")
	}

	// Target deleted mid-drag: every subsequent move is a silent no-op.
	m.Begin(KindMoveCue, "b", Pointer{X: 600, Y: 40}, st)
	deleted := timeline.EditorState{Cues: []timeline.Cue{st.Cues[0]}}
	up := m.Move(Pointer{X: 300, Y: 40}, frame(deleted, 50))
	if up.Changed {
		t.Fatal("move of a deleted target must leave state unchanged")
	}
}

func TestMoveAudio_PositionAndCollision(t *testing.T) {
	m := NewMachine(testViewport())
	st := timeline.EditorState{
		AudioClips: []timeline.AudioClip{
			{ID: "x", StartTime: 2, Duration: 2, Track: 0},
			{ID: "y", StartTime: 10, Duration: 3, Track: 0},
		},
	}

	vp := testViewport()
	m.Begin(KindMoveAudio, "y", Pointer{X: 1000, Y: vp.audioAreaTop() + 5}, st)

	// Candidate 3–6 overlaps clip x (2–4).
	up := m.Move(Pointer{X: 300, Y: vp.audioAreaTop() + 5}, frame(st, 50))
	if up.Changed {
		t.Fatal("overlapping audio move must be rejected")
	}

	// Candidate 5–8 is clear.
	up = m.Move(Pointer{X: 500, Y: vp.audioAreaTop() + 5}, frame(st, 50))
	if !up.Changed {
		t.Fatal("expected accepted audio move")
	}
	got, _ := up.State.FindAudioClip("y")
	if !almostEqual(got.StartTime, 5) || got.Track != 0 {
		t.Fatalf("expected start 5 on track 0, got %+v", got)
	}
}

func TestResizeStart_NeighborBoundaryAndMinDuration(t *testing.T) {
	m := NewMachine(testViewport())
	st := twoCueState()

	m.Begin(KindResizeStart, "b", Pointer{X: 600, Y: 40}, st)

	// Dragging far left stops at neighbor a's end (4).
	up := m.Move(Pointer{X: 100, Y: 40}, frame(st, 50))
	got, _ := up.State.FindCue("b")
	if !almostEqual(got.StartTime, 4) || !almostEqual(got.EndTime, 8) {
		t.Fatalf("expected boundary stop at 4, got %v–%v", got.StartTime, got.EndTime)
	}

	// Dragging right past the end stops at end - minimum duration.
	up = m.Move(Pointer{X: 900, Y: 40}, frame(st, 50))
	got, _ = up.State.FindCue("b")
	if !almostEqual(got.StartTime, 8-MinCueDuration) {
		t.Fatalf("expected min-duration stop at %v, got %v", 8-MinCueDuration, got.StartTime)
	}
	if _, ok := m.SnapIndicator(); ok {
		t.Fatal("indicator must clear when clamping moves the edge off a snap point")
	}
}

func TestResizeEnd_OppositeBoundaryFixed(t *testing.T) {
	m := NewMachine(testViewport())
	st := twoCueState()

	m.Begin(KindResizeEnd, "a", Pointer{X: 400, Y: 40}, st)

	// Dragging right stops at neighbor b's start (6).
	up := m.Move(Pointer{X: 900, Y: 40}, frame(st, 50))
	got, _ := up.State.FindCue("a")
	if !almostEqual(got.StartTime, 2) || !almostEqual(got.EndTime, 6) {
		t.Fatalf("expected 2–6, got %v–%v", got.StartTime, got.EndTime)
	}
}

func TestSeek_ClampedAndContinuous(t *testing.T) {
	m := NewMachine(testViewport())
	st := timeline.EditorState{}

	m.Begin(KindSeek, "", Pointer{X: 0, Y: 0}, st)
	up := m.Move(Pointer{X: 700, Y: 0}, frame(st, 0))
	if !up.HasSeek || !almostEqual(up.Seek, 7) {
		t.Fatalf("expected seek to 7, got %v has=%v", up.Seek, up.HasSeek)
	}
	up = m.Move(Pointer{X: -50, Y: 0}, frame(st, 0))
	if !up.HasSeek || !almostEqual(up.Seek, 0) {
		t.Fatalf("expected seek clamp to 0, got %v", up.Seek)
	}
}

func TestMarquee_TinyRectBecomesSeek(t *testing.T) {
	m := NewMachine(testViewport())
	st := twoCueState()

	m.Begin(KindMarquee, "", Pointer{X: 100, Y: 50}, st)
	m.Move(Pointer{X: 101, Y: 51}, frame(st, 0))
	res := m.End(Pointer{X: 101, Y: 51}, frame(st, 0))

	if !res.MarqueeSeek {
		t.Fatal("2x2px marquee must be reinterpreted as a click seek")
	}
	if !almostEqual(res.SeekTime, 1.01) {
		t.Fatalf("expected seek to 1.01, got %v", res.SeekTime)
	}
	if m.Active() {
		t.Fatal("machine must return to idle on end")
	}
}

func TestMarquee_SegmentsTakePriority(t *testing.T) {
	m := NewMachine(testViewport())
	st := timeline.EditorState{
		Segments: []timeline.Segment{
			{ID: "s1", SourceStart: 0, SourceEnd: 10, PlaybackRate: 1},
			{ID: "s2", SourceStart: 10, SourceEnd: 20, PlaybackRate: 2},
		},
		Cues: []timeline.Cue{{ID: "c1", StartTime: 2, EndTime: 4, Track: 0}},
	}

	m.Begin(KindMarquee, "", Pointer{X: 150, Y: 30}, st)
	res := m.End(Pointer{X: 1100, Y: 120}, Frame{State: st, Duration: 15})

	if len(res.SegmentIDs) != 2 {
		t.Fatalf("expected both segments hit, got %v", res.SegmentIDs)
	}
	if len(res.ItemIDs) != 0 {
		t.Fatalf("segment hits must suppress item hits, got %v", res.ItemIDs)
	}
}

func TestMarquee_ItemHitsAndAdditiveFlag(t *testing.T) {
	m := NewMachine(testViewport())
	st := timeline.EditorState{
		Cues: []timeline.Cue{
			{ID: "c1", StartTime: 2, EndTime: 4, Track: 0},
			{ID: "c2", StartTime: 20, EndTime: 22, Track: 0}, // outside rect time range
		},
		AudioClips: []timeline.AudioClip{
			{ID: "x", StartTime: 3, Duration: 2, Track: 0},
		},
	}
	vp := testViewport()

	// Rect below the segment lane covering cue tracks and the first audio lane.
	m.Begin(KindMarquee, "", Pointer{X: 0, Y: 40}, st)
	res := m.End(Pointer{X: 1000, Y: vp.audioAreaTop() + 10, Modifier: true}, Frame{State: st, Duration: 60})

	if len(res.ItemIDs) != 2 {
		t.Fatalf("expected c1 and x hit, got %v", res.ItemIDs)
	}
	if !res.Additive {
		t.Fatal("modifier must mark the selection additive")
	}
}

func TestCoverBox_MoveAndResize(t *testing.T) {
	m := NewMachine(testViewport())
	st := timeline.EditorState{
		CoverBox: &timeline.Region{X: 10, Y: 10, Width: 20, Height: 20, Enabled: true},
	}

	m.Begin(KindMoveCover, "", Pointer{X: 100, Y: 100}, st)
	up := m.Move(Pointer{X: 200, Y: 150}, frame(st, 0))
	if !up.Changed || !almostEqual(up.State.CoverBox.X, 20) || !almostEqual(up.State.CoverBox.Y, 20) {
		t.Fatalf("expected box at 20,20, got %+v", up.State.CoverBox)
	}
	// Drag far right: X clamps so the box stays inside the frame.
	up = m.Move(Pointer{X: 5000, Y: 100}, frame(st, 0))
	if !almostEqual(up.State.CoverBox.X, 80) {
		t.Fatalf("expected clamp at 80, got %v", up.State.CoverBox.X)
	}
	m.End(Pointer{}, frame(st, 0))

	m.Begin(KindResizeCover, "", Pointer{X: 100, Y: 100}, st)
	up = m.Move(Pointer{X: 200, Y: 100}, frame(st, 0))
	if !almostEqual(up.State.CoverBox.Width, 30) {
		t.Fatalf("expected width 30, got %v", up.State.CoverBox.Width)
	}

	// No cover box: drag cannot start.
	m.End(Pointer{}, frame(st, 0))
	if m.Begin(KindMoveCover, "", Pointer{}, timeline.EditorState{}) {
		t.Fatal("cover drag must not start without a cover box")
	}
}

func TestBegin_RejectsCueInGap(t *testing.T) {
	m := NewMachine(testViewport())
	st := timeline.EditorState{
		Segments: []timeline.Segment{{ID: "s", SourceStart: 0, SourceEnd: 5, PlaybackRate: 1}},
		Cues:     []timeline.Cue{{ID: "gap", StartTime: 7, EndTime: 9, Track: 0}},
	}
	if m.Begin(KindMoveCue, "gap", Pointer{X: 0, Y: 40}, st) {
		t.Fatal("a cue in an unmapped gap cannot be dragged")
	}
}

func TestMove_RateAdjustedStorage(t *testing.T) {
	// One 2x segment: visual 0–5 maps to source 0–10. Moving a cue to
	// visual 1–2 must store source 2–4.
	m := NewMachine(testViewport())
	st := timeline.EditorState{
		Segments: []timeline.Segment{{ID: "s", SourceStart: 0, SourceEnd: 10, PlaybackRate: 2}},
		Cues:     []timeline.Cue{{ID: "c", StartTime: 6, EndTime: 8, Track: 0}}, // visual 3–4
	}

	m.Begin(KindMoveCue, "c", Pointer{X: 300, Y: 40}, st)
	up := m.Move(Pointer{X: 100, Y: 40}, Frame{State: st, Playhead: 50, Duration: 5})
	if !up.Changed {
		t.Fatal("expected accepted move")
	}
	got, _ := up.State.FindCue("c")
	if !almostEqual(got.StartTime, 2) || !almostEqual(got.EndTime, 4) {
		t.Fatalf("expected source 2–4, got %v–%v", got.StartTime, got.EndTime)
	}
}

func TestMove_SnapPastTailRejected(t *testing.T) {
	// Cue a's end edge (9.04) is a snap target just inside the timeline.
	// Snapping the moved cue's start onto it would push its end to 10.04,
	// past the 10s duration, so the snap must be dropped and the clamped
	// position kept.
	m := NewMachine(testViewport())
	st := timeline.EditorState{
		Cues: []timeline.Cue{
			{ID: "a", StartTime: 8, EndTime: 9.04, Track: 1},
			{ID: "mv", StartTime: 0, EndTime: 1, Track: 0},
		},
	}

	m.Begin(KindMoveCue, "mv", Pointer{X: 50, Y: 40}, st)
	up := m.Move(Pointer{X: 1000, Y: 40}, Frame{State: st, Playhead: 0, Duration: 10})
	if !up.Changed {
		t.Fatal("expected accepted move")
	}
	got, _ := up.State.FindCue("mv")
	if !almostEqual(got.StartTime, 9) || !almostEqual(got.EndTime, 10) {
		t.Fatalf("expected clamped 9–10, got %v–%v", got.StartTime, got.EndTime)
	}
	if _, ok := m.SnapIndicator(); ok {
		t.Fatal("rejected snap must not publish an indicator")
	}
}

func TestMove_PlayheadBeyondTimelineNotASnapTarget(t *testing.T) {
	// With the playhead extrapolated past the timeline edge it is no
	// longer a snap target; a drag ending near it just clamps.
	m := NewMachine(testViewport())
	st := timeline.EditorState{
		Cues: []timeline.Cue{{ID: "mv", StartTime: 0, EndTime: 1, Track: 0}},
	}

	m.Begin(KindMoveCue, "mv", Pointer{X: 50, Y: 40}, st)
	up := m.Move(Pointer{X: 1000, Y: 40}, Frame{State: st, Playhead: 10.03, Duration: 10})
	if !up.Changed {
		t.Fatal("expected accepted move")
	}
	got, _ := up.State.FindCue("mv")
	if !almostEqual(got.StartTime, 9) || !almostEqual(got.EndTime, 10) {
		t.Fatalf("expected clamped 9–10, got %v–%v", got.StartTime, got.EndTime)
	}
	if _, ok := m.SnapIndicator(); ok {
		t.Fatal("out-of-timeline playhead must not produce a snap")
	}
}
