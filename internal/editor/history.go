package editor

import "github.com/subtitle-studio/backend/internal/timeline"

// History is an append-only undo/redo stack of EditorState snapshots.
// Entries are stored as private clones, so callers can keep mutating their
// own copies after a commit without corrupting the stack. Redo entries are
// truncated whenever a new state is committed after an undo; history is
// branch-free.
type History struct {
	entries []timeline.EditorState
	index   int
}

// NewHistory seeds the stack with a single baseline entry.
func NewHistory(initial timeline.EditorState) *History {
	return &History{entries: []timeline.EditorState{initial.Clone()}}
}

// Commit appends a new snapshot and reports whether the stack grew.
// Committing a state structurally equal to the current top is a no-op,
// which keeps redundant writes from polluting the history.
func (h *History) Commit(state timeline.EditorState) bool {
	if state.Equal(h.entries[h.index]) {
		return false
	}
	h.entries = append(h.entries[:h.index+1], state.Clone())
	h.index = len(h.entries) - 1
	return true
}

// Undo moves the pointer back one entry. Out of bounds is a no-op.
func (h *History) Undo() (timeline.EditorState, bool) {
	if !h.CanUndo() {
		return h.Current(), false
	}
	h.index--
	return h.Current(), true
}

// Redo moves the pointer forward one entry. Out of bounds is a no-op.
func (h *History) Redo() (timeline.EditorState, bool) {
	if !h.CanRedo() {
		return h.Current(), false
	}
	h.index++
	return h.Current(), true
}

// Reset replaces the entire history with a single entry. Called after an
// explicit save so the save point becomes the new baseline and CanUndo
// doubles as dirty tracking.
func (h *History) Reset(state timeline.EditorState) {
	h.entries = []timeline.EditorState{state.Clone()}
	h.index = 0
}

// Current returns a copy of the entry at the pointer.
func (h *History) Current() timeline.EditorState {
	return h.entries[h.index].Clone()
}

func (h *History) CanUndo() bool { return h.index > 0 }

func (h *History) CanRedo() bool { return h.index < len(h.entries)-1 }

// Len returns the number of stored snapshots.
func (h *History) Len() int { return len(h.entries) }
