package timeline

// Remapper converts between the video's native source time axis and the
// visual timeline axis produced by cutting and re-speeding segments.
// Both directions walk the segment list linearly; segment counts are small
// (tens), so no index acceleration is needed.
//
// A Remapper is a pure view over a segment slice. Callers must not mutate
// the slice while the Remapper is in use; build a new Remapper after every
// segment edit instead.
type Remapper struct {
	segments []Segment
}

// NewRemapper wraps an ordered, non-overlapping segment list.
func NewRemapper(segments []Segment) Remapper {
	return Remapper{segments: segments}
}

// ToVisualTime maps a source time onto the visual timeline. The second
// return value is false when the source time falls in a gap that no segment
// covers. Time beyond the final segment's end extrapolates at rate 1 so the
// playhead can run off the edit without losing its position.
//
// With zero segments the mapping is the identity.
func (r Remapper) ToVisualTime(sourceTime float64) (float64, bool) {
	if len(r.segments) == 0 {
		return sourceTime, true
	}
	acc := 0.0
	for _, seg := range r.segments {
		if sourceTime >= seg.SourceStart && sourceTime <= seg.SourceEnd {
			return acc + (sourceTime-seg.SourceStart)/seg.Rate(), true
		}
		acc += seg.VisualDuration()
	}
	last := r.segments[len(r.segments)-1]
	if sourceTime > last.SourceEnd {
		return acc + (sourceTime - last.SourceEnd), true
	}
	return 0, false
}

// ToSourceTime is the inverse walk: it finds the segment whose accumulated
// visual duration covers the input and backs the offset out through that
// segment's rate. Visual time past the end of the edit extrapolates at
// rate 1 from the last segment's source end, mirroring ToVisualTime.
func (r Remapper) ToSourceTime(visualTime float64) float64 {
	if len(r.segments) == 0 {
		return visualTime
	}
	acc := 0.0
	for _, seg := range r.segments {
		d := seg.VisualDuration()
		if visualTime <= acc+d {
			return seg.SourceStart + (visualTime-acc)*seg.Rate()
		}
		acc += d
	}
	last := r.segments[len(r.segments)-1]
	return last.SourceEnd + (visualTime - acc)
}

// VisualDuration is the total length of the edited timeline.
func (r Remapper) VisualDuration() float64 {
	acc := 0.0
	for _, seg := range r.segments {
		acc += seg.VisualDuration()
	}
	return acc
}

// Boundaries returns the visual positions of every segment edge, in order.
// These feed the snap set during drags.
func (r Remapper) Boundaries() []float64 {
	if len(r.segments) == 0 {
		return nil
	}
	out := make([]float64, 0, len(r.segments)+1)
	acc := 0.0
	out = append(out, 0)
	for _, seg := range r.segments {
		acc += seg.VisualDuration()
		out = append(out, acc)
	}
	return out
}

// ActiveSegment returns the segment whose half-open source range
// [SourceStart, SourceEnd) contains the given source time.
func (r Remapper) ActiveSegment(sourceTime float64) (Segment, bool) {
	for _, seg := range r.segments {
		if sourceTime >= seg.SourceStart && sourceTime < seg.SourceEnd {
			return seg, true
		}
	}
	return Segment{}, false
}

// NextSegmentStart returns the source start of the first segment beginning
// after the given source time. Used by the playback loop to skip gaps.
func (r Remapper) NextSegmentStart(sourceTime float64) (float64, bool) {
	for _, seg := range r.segments {
		if seg.SourceStart > sourceTime {
			return seg.SourceStart, true
		}
	}
	return 0, false
}
