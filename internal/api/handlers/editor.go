package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/subtitle-studio/backend/internal/config"
	"github.com/subtitle-studio/backend/internal/cover"
	"github.com/subtitle-studio/backend/internal/db"
	"github.com/subtitle-studio/backend/internal/db/models"
	"github.com/subtitle-studio/backend/internal/editor"
	"github.com/subtitle-studio/backend/internal/playback"
	"github.com/subtitle-studio/backend/internal/speech"
	"github.com/subtitle-studio/backend/internal/timeline"
)

// EditorHandler hosts live editing sessions over websocket. Each connection
// gets its own editor, playback loop and simulated media clock, all driven
// by a single session goroutine; inbound messages and collaborator results
// are funneled into that goroutine through channels.
type EditorHandler struct {
	db     *db.Database
	cfg    *config.Config
	cover  cover.Detector
	speech speech.Synthesizer

	upgrader websocket.Upgrader
}

func NewEditorHandler(database *db.Database, cfg *config.Config, detector cover.Detector, synth speech.Synthesizer) *EditorHandler {
	return &EditorHandler{
		db:     database,
		cfg:    cfg,
		cover:  detector,
		speech: synth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origin is enforced by the CORS layer; the upgrade carries a
			// validated JWT already.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// clientMessage is the flat inbound envelope; fields beyond Type are used
// per message kind.
type clientMessage struct {
	Type     string  `json:"type"`
	Kind     string  `json:"kind,omitempty"`
	Target   string  `json:"target,omitempty"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
	Modifier bool    `json:"modifier,omitempty"`
	Segment  bool    `json:"segment,omitempty"`
	Mode     string  `json:"mode,omitempty"`
	Time     float64 `json:"time,omitempty"`
	Value    float64 `json:"value,omitempty"`
	Text     string  `json:"text,omitempty"`
	Start    float64 `json:"start,omitempty"`
	End      float64 `json:"end,omitempty"`
	Track    int     `json:"track,omitempty"`
	Voice    string  `json:"voice,omitempty"`

	Region   *timeline.Region `json:"region,omitempty"`
	Viewport *viewportMessage `json:"viewport,omitempty"`
}

type viewportMessage struct {
	PixelsPerSecond  float64 `json:"pixelsPerSecond"`
	TrackHeight      float64 `json:"trackHeight"`
	CueTracks        int     `json:"cueTracks"`
	SnapThresholdPx  float64 `json:"snapThresholdPx"`
	ClickThresholdPx float64 `json:"clickThresholdPx"`
	VideoWidth       float64 `json:"videoWidth"`
	VideoHeight      float64 `json:"videoHeight"`
}

type serverMessage struct {
	Type string `json:"type"`

	State     *timeline.EditorState `json:"state,omitempty"`
	Selection []string              `json:"selection,omitempty"`
	Segments  bool                  `json:"segments,omitempty"`
	CanUndo   bool                  `json:"canUndo,omitempty"`
	CanRedo   bool                  `json:"canRedo,omitempty"`
	Dirty     bool                  `json:"dirty,omitempty"`

	Playhead float64 `json:"playhead,omitempty"`
	Paused   bool    `json:"paused,omitempty"`

	SnapTime float64 `json:"snapTime,omitempty"`
	HasSnap  bool    `json:"hasSnap,omitempty"`

	Cues  []timeline.Cue `json:"cues,omitempty"`
	Error string         `json:"error,omitempty"`
}

// asyncResult carries a collaborator response back onto the session goroutine.
type asyncResult struct {
	region *timeline.Region
	clips  []timeline.AudioClip
	err    error
}

func cueIDsEqual(a, b []timeline.Cue) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

var pointerKinds = map[string]editor.InteractionKind{
	"moveCue":     editor.KindMoveCue,
	"moveAudio":   editor.KindMoveAudio,
	"resizeStart": editor.KindResizeStart,
	"resizeEnd":   editor.KindResizeEnd,
	"seek":        editor.KindSeek,
	"marquee":     editor.KindMarquee,
	"moveCover":   editor.KindMoveCover,
	"resizeCover": editor.KindResizeCover,
}

// Session upgrades the connection and runs the editing session until the
// client disconnects.
func (h *EditorHandler) Session(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")

	project, err := h.db.GetProject(projectID)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load project")
		return
	}
	data, err := project.Decode()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "corrupt project document")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[editor] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[editor] session opened for project %s", projectID)
	h.runSession(r.Context(), conn, data)
	log.Printf("[editor] session closed for project %s", projectID)
}

func (h *EditorHandler) runSession(ctx context.Context, conn *websocket.Conn, data models.ProjectData) {
	vp := editor.DefaultViewport()
	vp.PixelsPerSecond = h.cfg.PixelsPerSecond
	vp.TrackHeight = h.cfg.TrackHeight
	vp.SnapThresholdPx = h.cfg.SnapThresholdPx

	ed := editor.New(data.EditorState(), vp)
	ed.SetMediaDuration(data.Duration)

	media := playback.NewSimulatedMedia(data.Duration)

	var activeCues []timeline.Cue
	cuesChanged := false
	loop := &playback.Loop{
		Media:   media,
		State:   ed.State,
		Seeking: ed.Seeking,
		OnVisualTime: func(visual float64) {
			ed.SetPlayhead(visual)
		},
		OnActiveCues: func(cues []timeline.Cue) {
			if cueIDsEqual(cues, activeCues) {
				return
			}
			activeCues = cues
			cuesChanged = true
		},
	}

	inbound := make(chan clientMessage)
	results := make(chan asyncResult, 1)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			var msg clientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				readErr <- err
				return
			}
			select {
			case inbound <- msg:
			case <-done:
				return
			}
		}
	}()

	interval := time.Duration(h.cfg.TickIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	send := func(msg serverMessage) {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("[editor] write failed: %v", err)
		}
	}
	sendState := func() {
		st := ed.State()
		sel := ed.Selection().Items()
		segs := false
		if len(sel) == 0 {
			sel = ed.Selection().Segments()
			segs = len(sel) > 0
		}
		send(serverMessage{
			Type:      "state",
			State:     &st,
			Selection: sel,
			Segments:  segs,
			CanUndo:   ed.CanUndo(),
			CanRedo:   ed.CanRedo(),
			Dirty:     ed.Dirty(),
		})
	}
	sendError := func(err error) {
		send(serverMessage{Type: "error", Error: err.Error()})
	}

	sendState()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readErr:
			return

		case <-ticker.C:
			if !media.Paused() {
				media.Advance(interval.Seconds())
			}
			loop.Tick()
			send(serverMessage{Type: "playhead", Playhead: ed.Playhead(), Paused: media.Paused()})
			if cuesChanged {
				cuesChanged = false
				send(serverMessage{Type: "cues", Cues: activeCues})
			}

		case res := <-results:
			if res.err != nil {
				sendError(res.err)
				continue
			}
			var err error
			if res.region != nil {
				err = ed.SetCoverBox(*res.region)
			} else {
				err = ed.AppendAudioClips(res.clips)
			}
			if err != nil {
				sendError(err)
				continue
			}
			sendState()

		case msg := <-inbound:
			if h.handleMessage(ctx, msg, ed, media, results, send, sendState, sendError, data) {
				return
			}
		}
	}
}

// handleMessage applies one client message on the session goroutine. It
// returns true when the session should end.
func (h *EditorHandler) handleMessage(
	ctx context.Context,
	msg clientMessage,
	ed *editor.Editor,
	media *playback.SimulatedMedia,
	results chan<- asyncResult,
	send func(serverMessage),
	sendState func(),
	sendError func(error),
	data models.ProjectData,
) bool {
	// A pointer seek only moves the editor's playhead; the media clock must
	// follow it, or the next tick republishes the stale position and the
	// gesture is lost.
	syncSeek := func() {
		st := ed.State()
		media.SetCurrentTime(timeline.NewRemapper(st.Segments).ToSourceTime(ed.Playhead()))
	}

	switch msg.Type {
	case "pointerdown":
		kind, ok := pointerKinds[msg.Kind]
		if !ok {
			sendError(errors.New("unknown interaction kind: " + msg.Kind))
			return false
		}
		ed.PointerDown(kind, msg.Target, editor.Pointer{X: msg.X, Y: msg.Y, Modifier: msg.Modifier})
		if ed.Seeking() {
			syncSeek()
		}

	case "pointermove":
		ed.PointerMove(editor.Pointer{X: msg.X, Y: msg.Y, Modifier: msg.Modifier})
		if ed.Seeking() {
			syncSeek()
		}
		if t, ok := ed.SnapIndicator(); ok {
			send(serverMessage{Type: "snap", SnapTime: t, HasSnap: true})
		} else {
			send(serverMessage{Type: "snap"})
		}
		sendState()

	case "pointerup":
		before := ed.Playhead()
		wasSeeking := ed.Seeking()
		ed.PointerUp(editor.Pointer{X: msg.X, Y: msg.Y, Modifier: msg.Modifier})
		// A seek drag ended, or a marquee click reinterpreted as a seek.
		if wasSeeking || ed.Playhead() != before {
			syncSeek()
		}
		send(serverMessage{Type: "snap"})
		sendState()

	case "click":
		mode := editor.SelectReplace
		switch msg.Mode {
		case "toggle":
			mode = editor.SelectToggle
		case "range":
			mode = editor.SelectRange
		}
		ed.Click(msg.Target, msg.Segment, mode)
		sendState()

	case "viewport":
		if msg.Viewport != nil {
			vp := editor.DefaultViewport()
			vp.PixelsPerSecond = msg.Viewport.PixelsPerSecond
			vp.TrackHeight = msg.Viewport.TrackHeight
			if msg.Viewport.CueTracks > 0 {
				vp.CueTracks = msg.Viewport.CueTracks
			}
			if msg.Viewport.SnapThresholdPx > 0 {
				vp.SnapThresholdPx = msg.Viewport.SnapThresholdPx
			}
			if msg.Viewport.ClickThresholdPx > 0 {
				vp.ClickThresholdPx = msg.Viewport.ClickThresholdPx
			}
			if msg.Viewport.VideoWidth > 0 {
				vp.VideoWidth = msg.Viewport.VideoWidth
				vp.VideoHeight = msg.Viewport.VideoHeight
			}
			ed.SetViewport(vp)
		}

	case "play":
		media.Play()
	case "pause":
		media.Pause()

	case "seek":
		st := ed.State()
		media.SetCurrentTime(timeline.NewRemapper(st.Segments).ToSourceTime(msg.Time))
		ed.SetPlayhead(msg.Time)
		send(serverMessage{Type: "playhead", Playhead: ed.Playhead(), Paused: media.Paused()})

	case "undo":
		ed.Undo()
		sendState()
	case "redo":
		ed.Redo()
		sendState()

	case "split":
		st := ed.State()
		src := timeline.NewRemapper(st.Segments).ToSourceTime(ed.Playhead())
		if err := ed.SplitSegmentAt(src); err != nil {
			sendError(err)
			return false
		}
		sendState()

	case "deleteSegment":
		if err := ed.DeleteSegment(msg.Target); err != nil {
			sendError(err)
			return false
		}
		sendState()

	case "deleteSelected":
		if err := ed.DeleteSelected(); err != nil {
			sendError(err)
			return false
		}
		sendState()

	case "setRate":
		if err := ed.SetSegmentRate(msg.Target, msg.Value); err != nil {
			sendError(err)
			return false
		}
		sendState()

	case "setSegmentVolume":
		if err := ed.SetSegmentVolume(msg.Target, msg.Value); err != nil {
			sendError(err)
			return false
		}
		sendState()

	case "setMasterVolume":
		if err := ed.SetMasterVolume(msg.Value); err != nil {
			sendError(err)
			return false
		}
		sendState()

	case "addCue":
		if _, err := ed.AddCue(timeline.Cue{
			StartTime: msg.Start,
			EndTime:   msg.End,
			Text:      msg.Text,
			Track:     msg.Track,
		}); err != nil {
			sendError(err)
			return false
		}
		sendState()

	case "setCueText":
		if err := ed.UpdateCueText(msg.Target, msg.Text); err != nil {
			sendError(err)
			return false
		}
		sendState()

	case "deleteCue":
		if err := ed.DeleteCue(msg.Target); err != nil {
			sendError(err)
			return false
		}
		sendState()

	case "deleteClip":
		if err := ed.DeleteAudioClip(msg.Target); err != nil {
			sendError(err)
			return false
		}
		sendState()

	case "setCover":
		if msg.Region == nil {
			sendError(errors.New("missing region"))
			return false
		}
		if err := ed.SetCoverBox(*msg.Region); err != nil {
			sendError(err)
			return false
		}
		sendState()

	case "clearCover":
		if err := ed.ClearCoverBox(); err != nil {
			sendError(err)
			return false
		}
		sendState()

	case "detectCover":
		if h.cover == nil {
			sendError(errors.New("cover detection service not configured"))
			return false
		}
		req := cover.DetectRequest{
			VideoFile: data.VideoFile,
			Language:  h.db.GetSetting("detect_language", "auto"),
		}
		go func() {
			region, err := h.cover.Detect(ctx, req)
			select {
			case results <- asyncResult{region: region, err: err}:
			case <-ctx.Done():
			}
		}()

	case "synthesize":
		if h.speech == nil {
			sendError(errors.New("speech synthesis service not configured"))
			return false
		}
		voice := msg.Voice
		if voice == "" {
			voice = h.db.GetSetting("speech_voice", "alloy")
		}
		req := speech.SynthesizeRequest{
			Cues:  ed.State().Cues,
			Voice: voice,
			Track: msg.Track,
		}
		go func() {
			clips, err := h.speech.Synthesize(ctx, req)
			select {
			case results <- asyncResult{clips: clips, err: err}:
			case <-ctx.Done():
			}
		}()

	case "save":
		doc := data.WithState(ed.State())
		raw, err := json.Marshal(doc)
		if err != nil {
			sendError(err)
			return false
		}
		if err := h.db.UpsertProject(doc.ID, raw); err != nil {
			sendError(err)
			return false
		}
		ed.MarkSaved()
		send(serverMessage{Type: "saved"})
		sendState()

	default:
		sendError(errors.New("unknown message type: " + msg.Type))
	}
	return false
}
