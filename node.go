package picosynth

// NodeType identifies a node variant. A zero node is NodeNone and ends the
// populated prefix of a voice's node array.
type NodeType uint8

const (
	NodeNone NodeType = iota
	NodeOsc
	NodeEnv
	NodeLP
	NodeHP
	NodeMix
)

// Osc is an oscillator: a phase accumulator driven through a waveform
// generator. Freq is the per-sample phase increment, normally wired to the
// voice's frequency cell; Detune, when set, adds to the increment every
// sample (FM, inharmonic partials).
type Osc struct {
	Freq   *Q15
	Detune *Q15
	Wave   WaveFunc

	phase int32
}

type envMode uint8

const (
	envAttack envMode = iota
	envDecay
)

// Env is an ADSR envelope. Attack, Decay and Release are per-sample step
// magnitudes at the internal x16 resolution (see EnvRateMS). Sustain is a
// Q15 hold level; a negative sustain inverts the output polarity.
type Env struct {
	Attack  int32
	Decay   int32
	Sustain Q15
	Release int32

	decayCoeff   Q15
	releaseCoeff Q15

	// Block state: the rate is refreshed once per BlockSize samples,
	// transitions are still checked per-sample.
	blockRate    int32
	blockCounter uint8

	mode  envMode
	value int32 // current level, Q15 scaled <<4
}

// Filter is a single-pole filter. The low-pass output is the accumulator
// scaled by the coefficient: small coefficients give a low cutoff, 0 holds
// the output at 0, and Q15Max is a bypass. The high-pass is its input minus
// that low-pass. The live coefficient eases toward the target to avoid
// zipper noise on control changes.
type Filter struct {
	In *Q15

	accum       int32 // Q31 accumulator
	coeff       Q15
	coeffTarget Q15
}

// Mixer sums up to three inputs. Nil entries contribute nothing.
type Mixer struct {
	In [3]*Q15
}

// Node is one processing unit inside a voice. Gain, when set, scales the
// node's raw output (out = raw*gain >> 15) before it is committed to Out.
// Out holds the value committed at the end of the previous sample, which is
// what downstream nodes observe.
type Node struct {
	Type NodeType
	Gain *Q15
	Out  Q15

	Osc Osc
	Env Env
	Flt Filter
	Mix Mixer
}

// InitOsc makes n an oscillator. Re-initializing clears all prior state.
// Set n.Osc.Detune after init if needed; the referenced cell must outlive
// the voice.
func (n *Node) InitOsc(gain, freq *Q15, wave WaveFunc) {
	*n = Node{
		Type: NodeOsc,
		Gain: gain,
		Osc:  Osc{Freq: freq, Wave: wave},
	}
}

// InitEnv makes n an ADSR envelope from raw per-sample rates and
// precomputes the exponential decay and release coefficients.
func (n *Node) InitEnv(gain *Q15, attack, decay int32, sustain Q15, release int32) {
	*n = Node{
		Type: NodeEnv,
		Gain: gain,
		Env:  Env{Attack: attack, Decay: decay, Sustain: sustain, Release: release},
	}
	n.Env.updateCoeffs()
}

// InitEnvMS makes n an ADSR envelope from millisecond timings and a sustain
// percentage (0-100).
func (n *Node) InitEnvMS(gain *Q15, atkMS, decMS uint16, susPct uint8, relMS uint16) {
	sus := Q15(int32(susPct) * int32(Q15Max) / 100)
	n.InitEnv(gain, EnvRateMS(atkMS), EnvRateMS(decMS), sus, EnvRateMS(relMS))
}

// InitLP makes n a low-pass filter reading from in.
func (n *Node) InitLP(gain, in *Q15, coeff Q15) {
	*n = Node{
		Type: NodeLP,
		Gain: gain,
		Flt:  Filter{In: in, coeff: coeff, coeffTarget: coeff},
	}
}

// InitHP makes n a high-pass filter reading from in.
func (n *Node) InitHP(gain, in *Q15, coeff Q15) {
	*n = Node{
		Type: NodeHP,
		Gain: gain,
		Flt:  Filter{In: in, coeff: coeff, coeffTarget: coeff},
	}
}

// InitMix makes n a mixer over up to three inputs; nil inputs are unused.
func (n *Node) InitMix(gain, in1, in2, in3 *Q15) {
	*n = Node{
		Type: NodeMix,
		Gain: gain,
		Mix:  Mixer{In: [3]*Q15{in1, in2, in3}},
	}
}

// SetFilterCoeff requests a new cutoff coefficient. The live coefficient is
// smoothed toward it with a 256-sample time constant (~23ms). No-op on
// non-filter nodes.
func (n *Node) SetFilterCoeff(coeff Q15) {
	if n == nil || (n.Type != NodeLP && n.Type != NodeHP) {
		return
	}
	n.Flt.coeffTarget = coeff
}

// Coeff reports the live (smoothed) filter coefficient. Zero on non-filter
// nodes.
func (n *Node) Coeff() Q15 {
	if n == nil || (n.Type != NodeLP && n.Type != NodeHP) {
		return 0
	}
	return n.Flt.coeff
}
