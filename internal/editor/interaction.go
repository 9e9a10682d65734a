package editor

import (
	"math"

	"github.com/subtitle-studio/backend/internal/timeline"
)

// InteractionKind tags the active pointer operation. A single dispatcher
// keyed on this tag replaces per-item event closures.
type InteractionKind int

const (
	KindIdle InteractionKind = iota
	KindMoveCue
	KindMoveAudio
	KindResizeStart
	KindResizeEnd
	KindSeek
	KindMarquee
	KindMoveCover
	KindResizeCover
)

func (k InteractionKind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindMoveCue:
		return "move-cue"
	case KindMoveAudio:
		return "move-audio"
	case KindResizeStart:
		return "resize-start"
	case KindResizeEnd:
		return "resize-end"
	case KindSeek:
		return "seek"
	case KindMarquee:
		return "marquee"
	case KindMoveCover:
		return "move-cover"
	case KindResizeCover:
		return "resize-cover"
	}
	return "unknown"
}

const (
	// MinCueDuration is the shortest a cue may become under resize, seconds.
	MinCueDuration = 0.1
	// collisionTolerance relaxes the open-interval overlap test by 1ms so
	// snapped edges that land exactly on a neighbor do not count as overlap.
	collisionTolerance = 0.001
	// minCoverPct is the smallest cover-box width/height, in percent.
	minCoverPct = 1.0
)

// Viewport describes the pixel geometry of the timeline surface. The
// segment strip sits at the top, cue tracks below it, audio tracks below
// those. Thresholds are in pixels and converted to time through
// PixelsPerSecond, so snapping tightness follows the zoom level.
type Viewport struct {
	PixelsPerSecond   float64
	TrackHeight       float64
	SegmentLaneHeight float64
	CueTracks         int
	SnapThresholdPx   float64
	ClickThresholdPx  float64
	VideoWidth        float64
	VideoHeight       float64
}

// DefaultViewport returns the geometry used when a client does not send its
// own layout.
func DefaultViewport() Viewport {
	return Viewport{
		PixelsPerSecond:   100,
		TrackHeight:       28,
		SegmentLaneHeight: 36,
		CueTracks:         3,
		SnapThresholdPx:   8,
		ClickThresholdPx:  4,
		VideoWidth:        1280,
		VideoHeight:       720,
	}
}

func (v Viewport) cueAreaTop() float64 { return v.SegmentLaneHeight }

func (v Viewport) audioAreaTop() float64 {
	return v.SegmentLaneHeight + float64(v.CueTracks)*v.TrackHeight
}

func (v Viewport) timeAt(x float64) float64 { return x / v.PixelsPerSecond }

func (v Viewport) snapWindow() float64 { return v.SnapThresholdPx / v.PixelsPerSecond }

func (v Viewport) trackAt(y, areaTop float64) int {
	tr := int(math.Floor((y - areaTop) / v.TrackHeight))
	if tr < 0 {
		tr = 0
	}
	return tr
}

// Pointer is one pointer sample. Modifier marks the additive-select key.
type Pointer struct {
	X        float64
	Y        float64
	Modifier bool
}

// Rect is a normalized marquee rectangle in surface pixels.
type Rect struct {
	X, Y, W, H float64
}

// Frame bundles the state an interaction step operates on: the live
// aggregate, the current playhead and the total visual duration.
type Frame struct {
	State    timeline.EditorState
	Playhead float64
	Duration float64
}

// MoveUpdate is the outcome of one pointer-move step. State is always
// usable: when Changed is false it is the input state untouched (collision
// rejection, stale target, or a kind that does not edit geometry).
type MoveUpdate struct {
	State   timeline.EditorState
	Changed bool
	Seek    float64
	HasSeek bool
}

// EndResult is the outcome of pointer-up. For a marquee it carries either
// the reinterpreted seek or the hit ids; for every other kind it only names
// what ended, committing is the caller's concern.
type EndResult struct {
	Kind        InteractionKind
	MarqueeSeek bool
	SeekTime    float64
	SegmentIDs  []string
	ItemIDs     []string
	Additive    bool
}

type dragSession struct {
	targetID    string
	originX     float64
	originY     float64
	originStart float64 // visual time
	originEnd   float64 // visual time
	originTrack int
	originBox   timeline.Region
}

// Machine drives pointer-based move/resize/seek/marquee interactions.
// It owns the transient drag session wholesale; there is no shared mutable
// drag state outside of it. Not safe for concurrent use: the editor session
// runs it from a single goroutine.
type Machine struct {
	vp      Viewport
	kind    InteractionKind
	session dragSession
	snap    float64
	hasSnap bool
	marquee Rect
}

func NewMachine(vp Viewport) *Machine {
	return &Machine{vp: vp}
}

func (m *Machine) Kind() InteractionKind { return m.kind }

func (m *Machine) Active() bool { return m.kind != KindIdle }

// Viewport returns the current surface geometry.
func (m *Machine) Viewport() Viewport { return m.vp }

// SetViewport updates the surface geometry (zoom or resize). Ignored while
// a drag is in progress so origin coordinates stay coherent.
func (m *Machine) SetViewport(vp Viewport) {
	if m.Active() {
		return
	}
	m.vp = vp
}

// SnapIndicator returns the visual time the dragged edge last snapped to.
func (m *Machine) SnapIndicator() (float64, bool) { return m.snap, m.hasSnap }

// Marquee returns the current selection rectangle while marquee-selecting.
func (m *Machine) Marquee() (Rect, bool) { return m.marquee, m.kind == KindMarquee }

// Begin starts a drag of the given kind on pointer-down. For targeted kinds
// the target must exist and be mappable to visual time, otherwise the
// machine stays idle and Begin reports false.
func (m *Machine) Begin(kind InteractionKind, targetID string, p Pointer, st timeline.EditorState) bool {
	if m.kind != KindIdle {
		return false
	}
	rm := timeline.NewRemapper(st.Segments)
	sess := dragSession{targetID: targetID, originX: p.X, originY: p.Y}

	switch kind {
	case KindMoveCue, KindResizeStart, KindResizeEnd:
		cue, ok := st.FindCue(targetID)
		if !ok {
			return false
		}
		vs, ve, ok := cueVisualRange(rm, cue)
		if !ok {
			return false
		}
		sess.originStart, sess.originEnd, sess.originTrack = vs, ve, cue.Track

	case KindMoveAudio:
		clip, ok := st.FindAudioClip(targetID)
		if !ok {
			return false
		}
		vs, ve, ok := clipVisualRange(rm, clip)
		if !ok {
			return false
		}
		sess.originStart, sess.originEnd, sess.originTrack = vs, ve, clip.Track

	case KindMoveCover, KindResizeCover:
		if st.CoverBox == nil {
			return false
		}
		sess.originBox = *st.CoverBox

	case KindSeek, KindMarquee:
		// No target to capture.

	default:
		return false
	}

	m.kind = kind
	m.session = sess
	m.hasSnap = false
	if kind == KindMarquee {
		m.marquee = Rect{X: p.X, Y: p.Y}
	}
	return true
}

// Move processes one pointer-move sample. Invariant violations (collisions,
// out-of-bounds) reject the candidate and leave the state untouched for
// this frame; stale targets are silent no-ops.
func (m *Machine) Move(p Pointer, f Frame) MoveUpdate {
	switch m.kind {
	case KindMoveCue:
		return m.moveItem(p, f, false)
	case KindMoveAudio:
		return m.moveItem(p, f, true)
	case KindResizeStart, KindResizeEnd:
		return m.resizeCue(p, f)
	case KindSeek:
		t := clamp(m.vp.timeAt(p.X), 0, f.Duration)
		return MoveUpdate{State: f.State, Seek: t, HasSeek: true}
	case KindMarquee:
		m.marquee = normalizeRect(m.session.originX, m.session.originY, p.X, p.Y)
		return MoveUpdate{State: f.State}
	case KindMoveCover:
		return m.moveCover(p, f)
	case KindResizeCover:
		return m.resizeCover(p, f)
	}
	return MoveUpdate{State: f.State}
}

// End finishes the drag on pointer-up (or capture loss) and returns the
// machine to idle unconditionally.
func (m *Machine) End(p Pointer, f Frame) EndResult {
	kind := m.kind
	res := EndResult{Kind: kind}

	if kind == KindMarquee {
		rect := normalizeRect(m.session.originX, m.session.originY, p.X, p.Y)
		if rect.W < m.vp.ClickThresholdPx && rect.H < m.vp.ClickThresholdPx {
			res.MarqueeSeek = true
			res.SeekTime = clamp(m.vp.timeAt(p.X), 0, f.Duration)
		} else {
			res.SegmentIDs, res.ItemIDs = m.marqueeHits(rect, f.State)
			res.Additive = p.Modifier
		}
	}

	m.kind = KindIdle
	m.session = dragSession{}
	m.hasSnap = false
	m.marquee = Rect{}
	return res
}

func (m *Machine) moveItem(p Pointer, f Frame, audio bool) MoveUpdate {
	none := MoveUpdate{State: f.State}
	rm := timeline.NewRemapper(f.State.Segments)

	if audio {
		if _, ok := f.State.FindAudioClip(m.session.targetID); !ok {
			return none
		}
	} else {
		if _, ok := f.State.FindCue(m.session.targetID); !ok {
			return none
		}
	}
	length := m.session.originEnd - m.session.originStart

	delta := m.vp.timeAt(p.X - m.session.originX)
	start := m.session.originStart + delta
	end := start + length

	// Clamp the whole item into [0, duration], preserving its length.
	if start < 0 {
		start, end = 0, length
	}
	if end > f.Duration && f.Duration >= length {
		end = f.Duration
		start = end - length
	}

	areaTop := m.vp.cueAreaTop()
	if audio {
		areaTop = m.vp.audioAreaTop()
	}
	track := m.vp.trackAt(p.Y, areaTop)

	// A snap that would push the item back out of the timeline is dropped,
	// keeping the clamped position.
	if ss, se := m.applySnap(start, end, f, rm); ss >= 0 && se <= f.Duration {
		start, end = ss, se
	} else {
		m.hasSnap = false
	}

	if m.collides(f.State, rm, start, end, track, audio) {
		return none
	}

	next := f.State.Clone()
	if audio {
		for i := range next.AudioClips {
			if next.AudioClips[i].ID == m.session.targetID {
				next.AudioClips[i].StartTime = rm.ToSourceTime(start)
				next.AudioClips[i].Track = track
			}
		}
	} else {
		for i := range next.Cues {
			if next.Cues[i].ID == m.session.targetID {
				next.Cues[i].StartTime = rm.ToSourceTime(start)
				next.Cues[i].EndTime = rm.ToSourceTime(end)
				next.Cues[i].Track = track
			}
		}
	}
	return MoveUpdate{State: next, Changed: true}
}

func (m *Machine) resizeCue(p Pointer, f Frame) MoveUpdate {
	none := MoveUpdate{State: f.State}
	cue, ok := f.State.FindCue(m.session.targetID)
	if !ok {
		return none
	}
	rm := timeline.NewRemapper(f.State.Segments)
	delta := m.vp.timeAt(p.X - m.session.originX)

	start, end := m.session.originStart, m.session.originEnd

	if m.kind == KindResizeStart {
		cand := start + delta
		cand = m.snapEdge(cand, f, rm)
		if lo, ok := m.leftBoundary(f.State, rm, cue); ok && cand < lo {
			cand = lo
		}
		cand = clamp(cand, 0, end-MinCueDuration)
		m.confirmSnap(cand)
		start = cand
	} else {
		cand := end + delta
		cand = m.snapEdge(cand, f, rm)
		if hi, ok := m.rightBoundary(f.State, rm, cue); ok && cand > hi {
			cand = hi
		}
		cand = clamp(cand, start+MinCueDuration, f.Duration)
		m.confirmSnap(cand)
		end = cand
	}

	next := f.State.Clone()
	for i := range next.Cues {
		if next.Cues[i].ID == cue.ID {
			next.Cues[i].StartTime = rm.ToSourceTime(start)
			next.Cues[i].EndTime = rm.ToSourceTime(end)
		}
	}
	return MoveUpdate{State: next, Changed: true}
}

func (m *Machine) moveCover(p Pointer, f Frame) MoveUpdate {
	none := MoveUpdate{State: f.State}
	if f.State.CoverBox == nil || m.vp.VideoWidth <= 0 || m.vp.VideoHeight <= 0 {
		return none
	}
	box := m.session.originBox
	box.X = clamp(box.X+(p.X-m.session.originX)/m.vp.VideoWidth*100, 0, 100-box.Width)
	box.Y = clamp(box.Y+(p.Y-m.session.originY)/m.vp.VideoHeight*100, 0, 100-box.Height)

	next := f.State.Clone()
	*next.CoverBox = box
	return MoveUpdate{State: next, Changed: true}
}

func (m *Machine) resizeCover(p Pointer, f Frame) MoveUpdate {
	none := MoveUpdate{State: f.State}
	if f.State.CoverBox == nil || m.vp.VideoWidth <= 0 || m.vp.VideoHeight <= 0 {
		return none
	}
	box := m.session.originBox
	box.Width = clamp(box.Width+(p.X-m.session.originX)/m.vp.VideoWidth*100, minCoverPct, 100-box.X)
	box.Height = clamp(box.Height+(p.Y-m.session.originY)/m.vp.VideoHeight*100, minCoverPct, 100-box.Y)

	next := f.State.Clone()
	*next.CoverBox = box
	return MoveUpdate{State: next, Changed: true}
}

// applySnap pulls the candidate start or end onto the nearest snap point
// within the window, preferring the start edge, and publishes the indicator.
func (m *Machine) applySnap(start, end float64, f Frame, rm timeline.Remapper) (float64, float64) {
	m.hasSnap = false
	points := m.snapPoints(f, rm)
	window := m.vp.snapWindow()

	if pt, ok := nearestPoint(points, start, window); ok {
		m.snap, m.hasSnap = pt, true
		return pt, pt + (end - start)
	}
	if pt, ok := nearestPoint(points, end, window); ok {
		m.snap, m.hasSnap = pt, true
		return pt - (end - start), pt
	}
	return start, end
}

// snapEdge snaps a single moving edge. The caller clamps afterwards and
// then confirms the indicator, since clamping can pull the edge back off
// the snap point.
func (m *Machine) snapEdge(cand float64, f Frame, rm timeline.Remapper) float64 {
	m.hasSnap = false
	if pt, ok := nearestPoint(m.snapPoints(f, rm), cand, m.vp.snapWindow()); ok {
		m.snap, m.hasSnap = pt, true
		return pt
	}
	return cand
}

func (m *Machine) confirmSnap(final float64) {
	if m.hasSnap && math.Abs(final-m.snap) > 1e-9 {
		m.hasSnap = false
	}
}

// snapPoints builds the snap set: playhead, every other item's visual
// edges on any track, and every segment boundary. A playhead parked past
// the timeline edge (rate-1 extrapolation) is not a target.
func (m *Machine) snapPoints(f Frame, rm timeline.Remapper) []float64 {
	var points []float64
	if f.Playhead >= 0 && f.Playhead <= f.Duration {
		points = append(points, f.Playhead)
	}
	points = append(points, rm.Boundaries()...)
	for _, c := range f.State.Cues {
		if c.ID == m.session.targetID {
			continue
		}
		if vs, ve, ok := cueVisualRange(rm, c); ok {
			points = append(points, vs, ve)
		}
	}
	for _, a := range f.State.AudioClips {
		if a.ID == m.session.targetID {
			continue
		}
		if vs, ve, ok := clipVisualRange(rm, a); ok {
			points = append(points, vs, ve)
		}
	}
	return points
}

// collides reports whether [start,end) overlaps another item of the same
// family on the candidate track, with a 1ms open-interval tolerance.
func (m *Machine) collides(st timeline.EditorState, rm timeline.Remapper, start, end float64, track int, audio bool) bool {
	if audio {
		for _, a := range st.AudioClips {
			if a.ID == m.session.targetID || a.Track != track {
				continue
			}
			if vs, ve, ok := clipVisualRange(rm, a); ok && overlaps(start, end, vs, ve) {
				return true
			}
		}
		return false
	}
	for _, c := range st.Cues {
		if c.ID == m.session.targetID || c.Track != track {
			continue
		}
		if vs, ve, ok := cueVisualRange(rm, c); ok && overlaps(start, end, vs, ve) {
			return true
		}
	}
	return false
}

// leftBoundary returns the visual end of the nearest cue on the same track
// that finishes at or before the resized cue's start.
func (m *Machine) leftBoundary(st timeline.EditorState, rm timeline.Remapper, cue timeline.Cue) (float64, bool) {
	best, found := 0.0, false
	for _, c := range st.Cues {
		if c.ID == cue.ID || c.Track != cue.Track {
			continue
		}
		_, ve, ok := cueVisualRange(rm, c)
		if !ok || ve > m.session.originStart+collisionTolerance {
			continue
		}
		if !found || ve > best {
			best, found = ve, true
		}
	}
	return best, found
}

// rightBoundary returns the visual start of the nearest cue on the same
// track that begins at or after the resized cue's end.
func (m *Machine) rightBoundary(st timeline.EditorState, rm timeline.Remapper, cue timeline.Cue) (float64, bool) {
	best, found := 0.0, false
	for _, c := range st.Cues {
		if c.ID == cue.ID || c.Track != cue.Track {
			continue
		}
		vs, _, ok := cueVisualRange(rm, c)
		if !ok || vs < m.session.originEnd-collisionTolerance {
			continue
		}
		if !found || vs < best {
			best, found = vs, true
		}
	}
	return best, found
}

// marqueeHits returns the ids intersecting the rectangle. Segments take
// priority: if any segment intersects, only segments are reported.
func (m *Machine) marqueeHits(rect Rect, st timeline.EditorState) (segmentIDs, itemIDs []string) {
	rm := timeline.NewRemapper(st.Segments)
	t0 := m.vp.timeAt(rect.X)
	t1 := m.vp.timeAt(rect.X + rect.W)
	y0, y1 := rect.Y, rect.Y+rect.H

	if y0 < m.vp.SegmentLaneHeight && y1 > 0 {
		bounds := rm.Boundaries()
		for i, seg := range st.Segments {
			if t0 < bounds[i+1] && bounds[i] < t1 {
				segmentIDs = append(segmentIDs, seg.ID)
			}
		}
	}
	if len(segmentIDs) > 0 {
		return segmentIDs, nil
	}

	for _, c := range st.Cues {
		vs, ve, ok := cueVisualRange(rm, c)
		if !ok {
			continue
		}
		top := m.vp.cueAreaTop() + float64(c.Track)*m.vp.TrackHeight
		if t0 < ve && vs < t1 && y0 < top+m.vp.TrackHeight && top < y1 {
			itemIDs = append(itemIDs, c.ID)
		}
	}
	for _, a := range st.AudioClips {
		vs, ve, ok := clipVisualRange(rm, a)
		if !ok {
			continue
		}
		top := m.vp.audioAreaTop() + float64(a.Track)*m.vp.TrackHeight
		if t0 < ve && vs < t1 && y0 < top+m.vp.TrackHeight && top < y1 {
			itemIDs = append(itemIDs, a.ID)
		}
	}
	return nil, itemIDs
}

func cueVisualRange(rm timeline.Remapper, c timeline.Cue) (float64, float64, bool) {
	vs, ok := rm.ToVisualTime(c.StartTime)
	if !ok {
		return 0, 0, false
	}
	ve, ok := rm.ToVisualTime(c.EndTime)
	if !ok {
		return 0, 0, false
	}
	return vs, ve, true
}

func clipVisualRange(rm timeline.Remapper, a timeline.AudioClip) (float64, float64, bool) {
	vs, ok := rm.ToVisualTime(a.StartTime)
	if !ok {
		return 0, 0, false
	}
	return vs, vs + a.Duration, true
}

func overlaps(aStart, aEnd, bStart, bEnd float64) bool {
	return aStart < bEnd-collisionTolerance && bStart < aEnd-collisionTolerance
}

func nearestPoint(points []float64, value, window float64) (float64, bool) {
	best, bestDist, found := 0.0, window, false
	for _, pt := range points {
		if d := math.Abs(pt - value); d <= bestDist {
			best, bestDist, found = pt, d, true
		}
	}
	return best, found
}

func normalizeRect(x0, y0, x1, y1 float64) Rect {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
