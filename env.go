package picosynth

// Envelope values run at x16 resolution internally so integer rates keep
// precision at short block sizes.
const (
	envShift = 4
	envPeak  = int32(Q15Max) << envShift
)

// Releases shorter than ~10ms click audibly when notes retrigger; the
// release coefficient is floored to this duration.
const fastReleaseSamples = SampleRate / 100

// MSToSamples converts a duration in milliseconds to a sample count at the
// engine rate.
func MSToSamples(ms uint32) uint32 {
	return uint32(int64(ms) * SampleRate / 1000)
}

// EnvRateMS converts a stage duration in milliseconds to a per-sample rate
// for InitEnv. Zero-length stages get the fastest representable rate.
func EnvRateMS(ms uint16) int32 {
	n := MSToSamples(uint32(ms))
	if n == 0 {
		return envPeak
	}
	return int32(int64(envPeak) / int64(n))
}

// updateCoeffs derives the exponential decay and release multipliers so the
// geometric tails roughly match the linear timing the integer rates imply.
func (e *Env) updateCoeffs() {
	susAbs := int32(e.Sustain)
	if susAbs < 0 {
		susAbs = -susAbs
	}
	susLevel := uint32(susAbs) << envShift
	peak := uint32(envPeak)
	decaySpan := uint32(1)
	if peak > susLevel {
		decaySpan = peak - susLevel
	}

	decaySamples := uint32(1)
	if e.Decay > 0 {
		decaySamples = (decaySpan + uint32(e.Decay) - 1) / uint32(e.Decay)
	}
	target := Q15((int64(susLevel) << 15) / int64(peak))
	e.decayCoeff = expCoeff(decaySamples, target)

	releaseSamples := uint32(1)
	if e.Release > 0 {
		releaseSamples = (peak + uint32(e.Release) - 1) / uint32(e.Release)
	}
	if releaseSamples < fastReleaseSamples {
		releaseSamples = fastReleaseSamples
	}
	e.releaseCoeff = expCoeff(releaseSamples, envMinRatio)
}

// output computes the envelope's pass-1 value: the level scaled down to Q15
// and squared for a non-linear curve, negated when sustain is negative.
func (e *Env) output() int32 {
	o := e.value >> envShift
	o = (o * o) >> 15
	if e.Sustain < 0 {
		o = -o
	}
	return o
}

// step advances the envelope by one sample. The rate is recomputed at block
// boundaries only; attack completion and note-off force an immediate
// re-rate by zeroing the counter.
func (e *Env) step(gate bool) {
	if e.blockCounter == 0 {
		e.blockCounter = BlockSize
		switch {
		case !gate:
			e.blockRate = -e.Release
		case e.mode == envDecay:
			e.blockRate = -e.Decay
		default:
			e.blockRate = e.Attack
		}
	}
	e.blockCounter--

	if !gate {
		// Exponential release; snap to zero below the noise floor.
		e.value = int32((int64(e.value) * int64(e.releaseCoeff)) >> 15)
		if e.value < 16 {
			e.value = 0
		}
		return
	}

	if e.mode == envDecay {
		susAbs := int32(e.Sustain)
		if susAbs < 0 {
			susAbs = -susAbs
		}
		susLevel := susAbs << envShift
		delta := e.value - susLevel
		e.value = susLevel + int32((int64(delta)*int64(e.decayCoeff))>>15)
		if e.value < susLevel {
			e.value = susLevel
		}
		return
	}

	e.value += e.blockRate
	if e.value >= envPeak {
		e.value = envPeak
		e.mode = envDecay
		e.blockCounter = 0
	}
}

// reset returns the envelope to the start of attack and forces a rate
// computation on the next sample.
func (e *Env) reset() {
	e.value = 0
	e.mode = envAttack
	e.blockRate = 0
	e.blockCounter = 0
}

// Value reports the current envelope level at internal resolution. It is
// zero once a released note has fully faded.
func (e *Env) Value() int32 {
	return e.value
}
