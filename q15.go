package picosynth

// Q15 is a signed 16-bit fixed-point fraction with 15 fractional bits,
// covering [-1.0, +1.0) as [-32768, +32767]. It is the sample format used
// on every wire of the node graph.
type Q15 int16

const (
	Q15Max Q15 = 0x7FFF
	Q15Min Q15 = -0x8000
)

// Sat clamps a 32-bit intermediate down to Q15.
func Sat(x int32) Q15 {
	if x > int32(Q15Max) {
		return Q15Max
	}
	if x < int32(Q15Min) {
		return Q15Min
	}
	return Q15(x)
}

// Mul multiplies two Q15 values through a 64-bit intermediate.
func Mul(a, b Q15) Q15 {
	return Q15((int64(a) * int64(b)) >> 15)
}

// powQ15 computes base^exp in the Q15 domain by squaring. exp of zero
// yields Q15Max (1.0).
func powQ15(base Q15, exp uint32) Q15 {
	result := Q15Max
	b := base
	for exp != 0 {
		if exp&1 != 0 {
			result = Mul(result, b)
		}
		exp >>= 1
		if exp != 0 {
			b = Mul(b, b)
		}
	}
	return result
}

// Target ratio clamps for the exponential coefficient search.
const (
	envMinRatio = Q15((int64(Q15Max) + 5000) / 10000)      // ~1e-4
	envMaxRatio = Q15((int64(Q15Max)*9999 + 5000) / 10000) // 0.9999
)

// expCoeff finds the Q15 multiplier c such that c^samples lands closest to
// targetRatio. Durations under 10 samples get a fixed fast coefficient.
func expCoeff(samples uint32, targetRatio Q15) Q15 {
	if samples < 10 {
		return Q15Max >> 1
	}

	if targetRatio < envMinRatio {
		targetRatio = envMinRatio
	}
	if targetRatio > envMaxRatio {
		targetRatio = envMaxRatio
	}

	low, high := int32(0), int32(Q15Max)
	for low+1 < high {
		mid := (low + high) >> 1
		if powQ15(Q15(mid), samples) > targetRatio {
			high = mid
		} else {
			low = mid
		}
	}

	// Choose whichever bound lands closer.
	diffLow := int32(targetRatio) - int32(powQ15(Q15(low), samples))
	diffHigh := int32(powQ15(Q15(high), samples)) - int32(targetRatio)
	if diffLow < 0 {
		diffLow = -diffLow
	}
	if diffHigh < 0 {
		diffHigh = -diffHigh
	}
	if diffLow <= diffHigh {
		return Q15(low)
	}
	return Q15(high)
}
