package picosynth

import (
	"sync"

	"github.com/sysprog21/picosynth/internal/audio"
)

// Player renders a synth through the system audio output. Control calls
// are serialized against the audio goroutine, which is the only place the
// engine itself runs.
type Player struct {
	mu       sync.Mutex // control state
	engineMu sync.Mutex // serializes engine access with the audio thread
	synth    *Synth
	audio    *audio.Player
	done     chan struct{}
}

// lockedSource runs the sequencer under the player's engine lock so
// control callbacks (note triggers, patch tweaks) never race Process.
type lockedSource struct {
	mu *sync.Mutex
	q  *Sequencer
}

func (l *lockedSource) Process(dst []int16) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.q.Process(dst)
}

func (l *lockedSource) Finished() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.q.Finished()
}

// NewPlayer wraps an already-wired synth. The caller keeps ownership of
// the wiring; Play only schedules events on it.
func NewPlayer(s *Synth) *Player {
	return &Player{synth: s}
}

// Play starts (or replaces) playback of the given events. It returns as
// soon as the audio stream is running; use Wait to block until the end.
func (p *Player) Play(events []Event, opts SeqOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Signal any existing Wait that the previous playback was replaced.
	if p.done != nil {
		close(p.done)
	}
	p.done = make(chan struct{})

	userFinished := opts.OnFinished
	opts.OnFinished = func() {
		if userFinished != nil {
			userFinished()
		}
		p.signalDone()
	}

	src := &lockedSource{mu: &p.engineMu, q: NewSequencer(p.synth, events, opts)}
	backend, err := audio.NewPlayer(SampleRate, src)
	if err != nil {
		return err
	}
	if p.audio != nil {
		_ = p.audio.Stop()
	}
	p.audio = backend
	backend.Play()
	return nil
}

func (p *Player) signalDone() {
	p.mu.Lock()
	done := p.done
	p.done = nil
	p.mu.Unlock()
	if done != nil {
		close(done)
	}
}

// Do runs f with exclusive access to the engine, for live control while
// audio is streaming.
func (p *Player) Do(f func()) {
	p.engineMu.Lock()
	defer p.engineMu.Unlock()
	f()
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Play()
	}
}

func (p *Player) Stop() error {
	p.mu.Lock()
	if p.audio == nil {
		p.mu.Unlock()
		return nil
	}
	err := p.audio.Stop()
	p.audio = nil
	done := p.done
	p.done = nil
	p.mu.Unlock()
	if done != nil {
		close(done)
	}
	return err
}

// Wait blocks until the current playback ends, is stopped, or is replaced
// by another Play. It returns immediately when nothing is playing.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}
