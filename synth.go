// Package picosynth is a lightweight polyphonic software synthesizer built
// around Q15 fixed-point arithmetic. A Synth owns a fixed set of voices;
// each voice owns a small graph of nodes (oscillators, ADSR envelopes,
// one-pole filters, mixers) wired together through Q15 references. Process
// renders one mono sample per call, performs no allocation, and never
// fails: all overflow saturates.
//
// A minimal patch:
//
//	s, _ := picosynth.New(1, 3)
//	v := s.Voice(0)
//	env, osc, flt := v.Node(0), v.Node(1), v.Node(2)
//	env.InitEnvMS(nil, 10, 100, 80, 50)
//	osc.InitOsc(&env.Out, v.FreqPtr(), picosynth.WaveSine)
//	flt.InitLP(nil, &osc.Out, 5000)
//	v.SetOut(2)
//	s.NoteOn(0, 60)
//	sample := s.Process()
//
// The engine is single-threaded by contract: NoteOn, NoteOff, SetOut and
// Process on the same Synth must be serialized by the caller. Player and
// Live do exactly that for realtime use.
package picosynth

import "errors"

// Engine parameters. BlockSize is the envelope rate-refresh interval in
// samples and must stay below 256.
const (
	SampleRate = 11025
	BlockSize  = 32
	MaxNodes   = 16
)

// ErrBadConfig is returned by New for a zero voice count or a node count
// outside 1..MaxNodes.
var ErrBadConfig = errors.New("picosynth: invalid voice or node count")

// Synth owns the voices and mixes them into a mono Q15 stream.
type Synth struct {
	voices     []Voice
	enableMask uint16
	lfsr       uint32
}

// New creates a synthesizer with the given number of voices and node slots
// per voice. All allocation happens here; Process allocates nothing.
func New(voices, nodes int) (*Synth, error) {
	if voices <= 0 || nodes <= 0 || nodes > MaxNodes {
		return nil, ErrBadConfig
	}
	s := &Synth{
		voices: make([]Voice, voices),
		lfsr:   noiseSeed,
	}
	for i := range s.voices {
		s.voices[i].nodes = make([]Node, nodes)
		s.voices[i].scratch = make([]int32, nodes)
	}
	return s, nil
}

// NumVoices returns the voice count fixed at construction.
func (s *Synth) NumVoices() int {
	return len(s.voices)
}

// Voice returns the idx-th voice, or nil when idx is out of range.
func (s *Synth) Voice(idx int) *Voice {
	if s == nil || idx < 0 || idx >= len(s.voices) {
		return nil
	}
	return &s.voices[idx]
}

// NoteOn sets the voice's frequency from the MIDI note, raises the gate and
// resets all node state. Out-of-range voices are ignored.
func (s *Synth) NoteOn(voice int, note uint8) {
	if s == nil || voice < 0 || voice >= len(s.voices) {
		return
	}
	s.voices[voice].noteOn(note)
	// Only voices 0-15 are tracked in the 16-bit enable mask; higher
	// voices are always evaluated.
	if voice < 16 {
		s.enableMask |= 1 << uint(voice)
	}
}

// NoteOff drops the voice's gate, starting envelope release.
func (s *Synth) NoteOff(voice int) {
	if s == nil || voice < 0 || voice >= len(s.voices) {
		return
	}
	s.voices[voice].noteOff()
}

// Active reports whether any tracked voice may still produce output. It
// goes false once every released voice has faded to silence.
func (s *Synth) Active() bool {
	return s != nil && s.enableMask != 0
}

// Process renders and returns one mono sample. Disabled voices are
// skipped; a voice whose gate is down and whose envelopes have all faded
// disables itself.
func (s *Synth) Process() Q15 {
	if s == nil {
		return 0
	}

	var out int32
	for vi := range s.voices {
		if vi < 16 && s.enableMask&(1<<uint(vi)) == 0 {
			continue
		}
		v := &s.voices[vi]
		v.step()
		out += int32(v.nodes[v.outIdx].Out)

		if vi < 16 && !v.gate && v.silent() {
			s.enableMask &^= 1 << uint(vi)
		}
	}

	if len(s.voices) > 1 {
		gain := Q15(int(Q15Max) / len(s.voices))
		out = int32((int64(out) * int64(gain)) >> 15)
	}
	return softClip(out)
}

// softClip bends the mixed signal through the first quarter of the sine
// table so peaks beyond full scale round off instead of folding.
func softClip(x int32) Q15 {
	sign := int32(1)
	if x < 0 {
		sign = -1
		x = -x
	}
	a := x >> 3
	if a > int32(Q15Max)/4 {
		a = int32(Q15Max) / 4
	}
	return Sat(int32(sineLookup(Q15(a))) * sign)
}
