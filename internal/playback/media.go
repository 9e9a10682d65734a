package playback

// SimulatedMedia is a clockless MediaElement for headless sessions and
// tests: the owner advances it explicitly each tick instead of decoding
// real media. Position is clamped to [0, duration] and playback pauses at
// the end.
type SimulatedMedia struct {
	duration float64
	position float64
	rate     float64
	paused   bool
}

func NewSimulatedMedia(duration float64) *SimulatedMedia {
	return &SimulatedMedia{duration: duration, rate: 1, paused: true}
}

// Advance moves the position by dt seconds of wall time, scaled by the
// current playback rate. No-op while paused.
func (m *SimulatedMedia) Advance(dt float64) {
	if m.paused {
		return
	}
	m.position += dt * m.rate
	if m.position >= m.duration {
		m.position = m.duration
		m.paused = true
	}
}

func (m *SimulatedMedia) CurrentTime() float64 { return m.position }

func (m *SimulatedMedia) SetCurrentTime(t float64) {
	if t < 0 {
		t = 0
	}
	if t > m.duration {
		t = m.duration
	}
	m.position = t
}

func (m *SimulatedMedia) Duration() float64 { return m.duration }

func (m *SimulatedMedia) Paused() bool { return m.paused }

func (m *SimulatedMedia) Play() { m.paused = false }

func (m *SimulatedMedia) Pause() { m.paused = true }

func (m *SimulatedMedia) PlaybackRate() float64 { return m.rate }

func (m *SimulatedMedia) SetPlaybackRate(rate float64) {
	if rate > 0 {
		m.rate = rate
	}
}
