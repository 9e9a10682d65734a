package editor

import (
	"testing"

	"github.com/subtitle-studio/backend/internal/timeline"
)

func stateWithVolume(db float64) timeline.EditorState {
	return timeline.EditorState{MasterVolumeDb: db}
}

func TestHistory_CommitUndoRedoInverse(t *testing.T) {
	h := NewHistory(stateWithVolume(0))

	s1 := stateWithVolume(-3)
	if !h.Commit(s1) {
		t.Fatal("expected commit to grow the stack")
	}

	if got, ok := h.Undo(); !ok || got.MasterVolumeDb != 0 {
		t.Fatalf("undo: got %v ok=%v", got.MasterVolumeDb, ok)
	}
	if got, ok := h.Redo(); !ok || !got.Equal(s1) {
		t.Fatalf("redo did not restore committed state: %v ok=%v", got, ok)
	}
}

func TestHistory_CommitTruncatesRedo(t *testing.T) {
	h := NewHistory(stateWithVolume(0))
	h.Commit(stateWithVolume(-1))
	h.Commit(stateWithVolume(-2))

	h.Undo() // back to -1
	h.Commit(stateWithVolume(-3))

	if h.CanRedo() {
		t.Fatal("redo history must be discarded after a new commit")
	}
	if got, _ := h.Undo(); got.MasterVolumeDb != -1 {
		t.Fatalf("expected -1 below new commit, got %v", got.MasterVolumeDb)
	}
	if got, _ := h.Redo(); got.MasterVolumeDb != -3 {
		t.Fatalf("expected -3 on redo, got %v (the -2 entry should be gone)", got.MasterVolumeDb)
	}
	if h.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", h.Len())
	}
}

func TestHistory_IdempotentCommit(t *testing.T) {
	h := NewHistory(stateWithVolume(0))
	if h.Commit(stateWithVolume(0)) {
		t.Fatal("committing an equal state must be a no-op")
	}
	if h.Len() != 1 {
		t.Fatalf("stack grew on no-op commit: %d entries", h.Len())
	}
}

func TestHistory_OutOfBoundsMovesAreNoOps(t *testing.T) {
	h := NewHistory(stateWithVolume(0))
	if _, ok := h.Undo(); ok {
		t.Fatal("undo on baseline must be a no-op")
	}
	if _, ok := h.Redo(); ok {
		t.Fatal("redo with no forward entries must be a no-op")
	}
	if h.CanUndo() || h.CanRedo() {
		t.Fatal("baseline history reports available moves")
	}
}

func TestHistory_ResetBecomesBaseline(t *testing.T) {
	h := NewHistory(stateWithVolume(0))
	h.Commit(stateWithVolume(-1))
	h.Commit(stateWithVolume(-2))

	h.Reset(stateWithVolume(-2))
	if h.CanUndo() || h.CanRedo() || h.Len() != 1 {
		t.Fatal("reset must leave a single clean entry")
	}
	if h.Current().MasterVolumeDb != -2 {
		t.Fatalf("reset baseline lost: %v", h.Current().MasterVolumeDb)
	}
}

func TestHistory_EntriesAreIsolatedFromCaller(t *testing.T) {
	live := timeline.EditorState{Cues: []timeline.Cue{{ID: "c", Text: "a"}}}
	h := NewHistory(timeline.EditorState{})
	h.Commit(live)

	live.Cues[0].Text = "mutated"
	if got := h.Current(); got.Cues[0].Text != "a" {
		t.Fatal("history entry shares storage with caller state")
	}
}
