package picosynth

import (
	"sync"

	"github.com/sysprog21/picosynth/internal/audio"
)

// Live streams a synth to the audio output with no event list: the caller
// triggers notes directly, e.g. from a keyboard UI. All engine access goes
// through the Live's lock.
type Live struct {
	mu    sync.Mutex
	synth *Synth
	audio *audio.Player
}

// NewLive starts streaming the synth immediately and keeps streaming
// (silence included) until Close.
func NewLive(s *Synth) (*Live, error) {
	l := &Live{synth: s}
	backend, err := audio.NewPlayer(SampleRate, l)
	if err != nil {
		return nil, err
	}
	l.audio = backend
	backend.Play()
	return l, nil
}

// Process implements the audio source; it runs on the audio goroutine.
func (l *Live) Process(dst []int16) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range dst {
		dst[i] = int16(l.synth.Process())
	}
}

// Do runs f with exclusive access to the engine.
func (l *Live) Do(f func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f()
}

// NoteOn triggers a note on one voice.
func (l *Live) NoteOn(voice int, note uint8) {
	l.Do(func() { l.synth.NoteOn(voice, note) })
}

// NoteOff releases one voice.
func (l *Live) NoteOff(voice int) {
	l.Do(func() { l.synth.NoteOff(voice) })
}

func (l *Live) Close() error {
	return l.audio.Stop()
}
