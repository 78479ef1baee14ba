package picosynth

const (
	baseOctave     = 8
	notesPerOctave = 12
)

// HzToFreq converts a frequency in Hz to the oscillator phase increment for
// the engine sample rate.
func HzToFreq(hz int) Q15 {
	return Q15(int64(hz) * int64(Q15Max) / SampleRate)
}

// Phase increments for octave 8; lower octaves shift right.
var octave8Freq = [notesPerOctave]Q15{
	HzToFreq(4186), // C8
	HzToFreq(4434), // C#8
	HzToFreq(4698), // D8
	HzToFreq(4978), // D#8
	HzToFreq(5274), // E8
	HzToFreq(5587), // F8
	HzToFreq(5919), // F#8
	HzToFreq(6271), // G8
	HzToFreq(6644), // G#8
	HzToFreq(7040), // A8
	HzToFreq(7458), // A#8
	HzToFreq(7902), // B8
}

// MIDIToFreq converts a MIDI note (0-127) to a phase increment. Note 69
// (A4) lands on 440 Hz; notes above the table's top octave are clamped.
// Lower octaves shift the octave-8 entries right; anything that would
// shift left saturates to Q15.
func MIDIToFreq(note uint8) Q15 {
	if note > 119 {
		note = 119
	}
	// Scientific octave: note 60 is C4, the table holds octave 8.
	octave := int(note)/notesPerOctave - 1
	idx := int(note) % notesPerOctave
	shift := baseOctave - octave
	if shift >= 0 {
		return octave8Freq[idx] >> uint(shift)
	}
	return Sat(int32(octave8Freq[idx]) << uint(-shift))
}
