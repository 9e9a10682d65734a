package editor

// Selection tracks which timeline items are selected. Segments and
// cue/audio items form two mutually exclusive sets: selecting anything of
// one kind clears the other kind. The last-selected id is kept as the
// anchor for shift-range operations.
type Selection struct {
	items    map[string]struct{}
	segments map[string]struct{}
	anchor   string
}

func NewSelection() *Selection {
	return &Selection{
		items:    make(map[string]struct{}),
		segments: make(map[string]struct{}),
	}
}

func (s *Selection) target(isSegment bool) map[string]struct{} {
	if isSegment {
		return s.segments
	}
	return s.items
}

func (s *Selection) clearOther(isSegment bool) {
	if isSegment {
		s.items = make(map[string]struct{})
	} else {
		s.segments = make(map[string]struct{})
	}
}

// Select replaces the selection with a single id.
func (s *Selection) Select(id string, isSegment bool) {
	s.items = make(map[string]struct{})
	s.segments = make(map[string]struct{})
	s.target(isSegment)[id] = struct{}{}
	s.anchor = id
}

// Toggle adds or removes one id without touching the rest of its set
// (ctrl/cmd click).
func (s *Selection) Toggle(id string, isSegment bool) {
	s.clearOther(isSegment)
	set := s.target(isSegment)
	if _, ok := set[id]; ok {
		delete(set, id)
		if s.anchor == id {
			s.anchor = ""
		}
		return
	}
	set[id] = struct{}{}
	s.anchor = id
}

// SelectRange selects the contiguous run between the current anchor and id
// in the given document order (shift click). If there is no usable anchor
// it degrades to a single select. The anchor is left in place so the range
// can be re-extended.
func (s *Selection) SelectRange(order []string, id string, isSegment bool) {
	anchorIdx, targetIdx := -1, -1
	for i, v := range order {
		if v == s.anchor {
			anchorIdx = i
		}
		if v == id {
			targetIdx = i
		}
	}
	if targetIdx == -1 {
		return
	}
	if anchorIdx == -1 {
		s.Select(id, isSegment)
		return
	}

	lo, hi := anchorIdx, targetIdx
	if lo > hi {
		lo, hi = hi, lo
	}
	s.clearOther(isSegment)
	set := make(map[string]struct{}, hi-lo+1)
	for _, v := range order[lo : hi+1] {
		set[v] = struct{}{}
	}
	if isSegment {
		s.segments = set
	} else {
		s.items = set
	}
}

// ReplaceAll replaces the selection with the given ids (marquee result).
func (s *Selection) ReplaceAll(ids []string, isSegment bool) {
	s.items = make(map[string]struct{})
	s.segments = make(map[string]struct{})
	set := s.target(isSegment)
	for _, id := range ids {
		set[id] = struct{}{}
	}
	if len(ids) > 0 {
		s.anchor = ids[len(ids)-1]
	}
}

// AddAll unions the given ids into the selection (additive marquee).
func (s *Selection) AddAll(ids []string, isSegment bool) {
	s.clearOther(isSegment)
	set := s.target(isSegment)
	for _, id := range ids {
		set[id] = struct{}{}
	}
	if len(ids) > 0 {
		s.anchor = ids[len(ids)-1]
	}
}

// Clear empties both sets.
func (s *Selection) Clear() {
	s.items = make(map[string]struct{})
	s.segments = make(map[string]struct{})
	s.anchor = ""
}

// IsSelected reports whether the id is in either set.
func (s *Selection) IsSelected(id string) bool {
	if _, ok := s.items[id]; ok {
		return true
	}
	_, ok := s.segments[id]
	return ok
}

// Items returns the selected cue/audio ids in unspecified order.
func (s *Selection) Items() []string {
	out := make([]string, 0, len(s.items))
	for id := range s.items {
		out = append(out, id)
	}
	return out
}

// Segments returns the selected segment ids in unspecified order.
func (s *Selection) Segments() []string {
	out := make([]string, 0, len(s.segments))
	for id := range s.segments {
		out = append(out, id)
	}
	return out
}

// Anchor returns the last-selected id, or "" when nothing anchors a range.
func (s *Selection) Anchor() string { return s.anchor }

// Empty reports whether nothing is selected.
func (s *Selection) Empty() bool { return len(s.items) == 0 && len(s.segments) == 0 }
