// Package patch wires ready-made voices onto a picosynth.Synth.
package patch

import (
	"errors"

	"github.com/sysprog21/picosynth"
)

var errTooSmall = errors.New("patch: synth too small for this patch")

// Piano is a two-voice piano: voice 0 carries the main tone, voice 1 the
// hammer transient and upper harmonics. Both voices strike together on
// every note.
type Piano struct {
	synth  *picosynth.Synth
	detune picosynth.Q15 // shared cell: 2nd partial runs slightly sharp
}

// NewPiano wires the piano onto the synth's first two voices, which need
// at least six node slots each.
func NewPiano(s *picosynth.Synth) (*Piano, error) {
	if s.NumVoices() < 2 {
		return nil, errTooSmall
	}
	p := &Piano{synth: s}

	// Voice 0: main tone.
	//   0: output LP filter (warmth)
	//   1: main ADSR
	//   2: fundamental (sine)
	//   3: 2nd partial (triangle, detuned)
	//   4: mixer
	v := s.Voice(0)
	if v.NumNodes() < 5 {
		return nil, errTooSmall
	}
	flt, env := v.Node(0), v.Node(1)
	osc1, osc2, mix := v.Node(2), v.Node(3), v.Node(4)

	// Instant attack, piano-like decay to a 20% sustain.
	env.InitEnv(nil, 12000, 350, picosynth.Q15(32767*2/10), 50)
	osc1.InitOsc(&env.Out, v.FreqPtr(), picosynth.WaveSine)
	osc2.InitOsc(&env.Out, v.FreqPtr(), picosynth.WaveTriangle)
	osc2.Osc.Detune = &p.detune
	mix.InitMix(nil, &osc1.Out, &osc2.Out, nil)
	flt.InitLP(nil, &mix.Out, 5000)
	v.SetOut(0)

	// Voice 1: hammer transient plus body.
	//   0: output LP filter
	//   1: transient ADSR (very fast)
	//   2: bright sawtooth
	//   3: body ADSR (slower decay)
	//   4: body triangle
	//   5: mixer
	v = s.Voice(1)
	if v.NumNodes() < 6 {
		return nil, errTooSmall
	}
	flt, env1 := v.Node(0), v.Node(1)
	osc1, env2 := v.Node(2), v.Node(3)
	osc2, mix = v.Node(4), v.Node(5)

	env1.InitEnv(nil, 15000, 1200, picosynth.Q15Max/25, 30)
	osc1.InitOsc(&env1.Out, v.FreqPtr(), picosynth.WaveSaw)
	env2.InitEnv(nil, 10000, 250, picosynth.Q15(32767*15/100), 40)
	osc2.InitOsc(&env2.Out, v.FreqPtr(), picosynth.WaveTriangle)
	mix.InitMix(nil, &osc1.Out, &osc2.Out, nil)
	flt.InitLP(nil, &mix.Out, 6500)
	v.SetOut(0)

	return p, nil
}

// Voices returns the synth voices the piano strikes, for event scheduling.
func (p *Piano) Voices() []int { return []int{0, 1} }

// NoteOn strikes both piano voices and refreshes the partial detune.
func (p *Piano) NoteOn(note uint8) {
	p.synth.NoteOn(0, note)
	p.synth.NoteOn(1, note)
	p.Refresh()
}

// NoteOff releases both piano voices.
func (p *Piano) NoteOff() {
	p.synth.NoteOff(0)
	p.synth.NoteOff(1)
}

// Refresh re-derives the 2nd-partial detune (~0.2% sharp) from the current
// note frequency. Call after triggering notes through a sequencer.
func (p *Piano) Refresh() {
	p.detune = *p.synth.Voice(0).FreqPtr() / 500
}

// Lead wires a simple env -> oscillator -> low-pass voice, handy for live
// keyboards. The voice needs three node slots.
func Lead(v *picosynth.Voice, wave picosynth.WaveFunc) error {
	if v == nil || v.NumNodes() < 3 {
		return errTooSmall
	}
	env, osc, flt := v.Node(0), v.Node(1), v.Node(2)
	env.InitEnvMS(nil, 10, 100, 80, 50)
	osc.InitOsc(&env.Out, v.FreqPtr(), wave)
	flt.InitLP(nil, &osc.Out, 5000)
	v.SetOut(2)
	return nil
}
