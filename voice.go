package picosynth

// Voice is one polyphonic channel: a fixed array of nodes wired into a
// dataflow graph, a gate, and a base-frequency cell oscillators read
// through FreqPtr. Nodes are allocated once at construction and never
// move, so references into the graph stay valid for the synth's lifetime.
type Voice struct {
	note      uint8
	gate      bool
	outIdx    int
	usageMask uint32
	freq      Q15
	nodes     []Node
	scratch   []int32
}

// Node returns the idx-th node, or nil when idx is out of range.
func (v *Voice) Node(idx int) *Node {
	if v == nil || idx < 0 || idx >= len(v.nodes) {
		return nil
	}
	return &v.nodes[idx]
}

// NumNodes returns the voice's node capacity.
func (v *Voice) NumNodes() int {
	if v == nil {
		return 0
	}
	return len(v.nodes)
}

// SetOut selects which node's output the voice contributes to the mix and
// recomputes the usage mask from its dependency closure. Out-of-range
// indices are ignored.
func (v *Voice) SetOut(idx int) {
	if v == nil || idx < 0 || idx >= len(v.nodes) {
		return
	}
	v.outIdx = idx
	v.updateUsageMask()
}

// FreqPtr returns the voice's base-frequency cell for wiring into
// oscillators. NoteOn overwrites the cell with the note's phase increment.
func (v *Voice) FreqPtr() *Q15 {
	if v == nil {
		return nil
	}
	return &v.freq
}

// Note returns the most recent MIDI note and whether the key is still held.
func (v *Voice) Note() (note uint8, gate bool) {
	if v == nil {
		return 0, false
	}
	return v.note, v.gate
}

func (v *Voice) noteOn(note uint8) {
	v.note = note
	v.gate = true
	v.freq = MIDIToFreq(note)
	for i := range v.nodes {
		n := &v.nodes[i]
		n.Out = 0
		switch n.Type {
		case NodeOsc:
			n.Osc.phase = 0
		case NodeEnv:
			n.Env.reset()
		case NodeLP, NodeHP:
			// Clearing the accumulator and snapping the coefficient to
			// its target prevents DC offsets and pops on retrigger.
			n.Flt.accum = 0
			n.Flt.coeff = n.Flt.coeffTarget
		}
	}
}

func (v *Voice) noteOff() {
	v.gate = false
	// Force an immediate rate recalculation on every envelope. Otherwise
	// they keep their attack/decay rate until the next block boundary,
	// which pops audibly.
	for i := range v.nodes {
		if v.nodes[i].Type == NodeEnv {
			v.nodes[i].Env.blockCounter = 0
		}
	}
}

// nodeIndex maps a reference to some node's Out field back to that node's
// index. References to anything else (the voice frequency cell, external
// cells, nil) yield -1.
func (v *Voice) nodeIndex(ptr *Q15) int {
	if ptr == nil {
		return -1
	}
	for i := range v.nodes {
		if ptr == &v.nodes[i].Out {
			return i
		}
	}
	return -1
}

// markUsed marks idx and everything it reads from. Already-marked bits
// short-circuit, which also terminates the walk on malformed cyclic wiring.
func (v *Voice) markUsed(idx int) {
	if idx < 0 || idx >= len(v.nodes) {
		return
	}
	bit := uint32(1) << uint(idx)
	if v.usageMask&bit != 0 {
		return
	}
	v.usageMask |= bit

	n := &v.nodes[idx]
	v.markUsed(v.nodeIndex(n.Gain))
	switch n.Type {
	case NodeOsc:
		// Freq usually points at the voice frequency cell, not a node.
		v.markUsed(v.nodeIndex(n.Osc.Freq))
		v.markUsed(v.nodeIndex(n.Osc.Detune))
	case NodeLP, NodeHP:
		v.markUsed(v.nodeIndex(n.Flt.In))
	case NodeMix:
		for _, in := range n.Mix.In {
			v.markUsed(v.nodeIndex(in))
		}
	}
}

func (v *Voice) updateUsageMask() {
	v.usageMask = 0
	if v.outIdx < len(v.nodes) {
		v.markUsed(v.outIdx)
	}
}

// step renders one sample for the voice in two passes. Pass 1 computes
// every node's new output from the outputs committed last sample; pass 2
// commits those outputs and advances internal state. The order of nodes
// therefore does not change what pass 1 computes. The filter accumulator
// update in pass 2 reads its input cell directly, so it sees this sample's
// value when the input node comes earlier in the array and last sample's
// value when it comes later.
func (v *Voice) step() {
	nodes := v.nodes
	mask := v.usageMask

	// Pass 1: compute outputs from current state.
	for i := 0; i < len(nodes) && nodes[i].Type != NodeNone; i++ {
		if mask != 0 && mask&(uint32(1)<<uint(i)) == 0 {
			v.scratch[i] = 0
			continue
		}
		n := &nodes[i]
		var out int32
		switch n.Type {
		case NodeOsc:
			out = int32(n.Osc.Wave(Q15(n.Osc.phase & int32(Q15Max))))
		case NodeEnv:
			out = n.Env.output()
		case NodeLP:
			out = int32((int64(n.Flt.accum) * int64(n.Flt.coeff)) >> 15)
		case NodeHP:
			// High-pass is the input minus the low-passed signal.
			if n.Flt.In != nil {
				lp := int32((int64(n.Flt.accum) * int64(n.Flt.coeff)) >> 15)
				out = int32(*n.Flt.In) - lp
			}
		case NodeMix:
			for _, in := range n.Mix.In {
				if in != nil {
					out += int32(*in)
				}
			}
		}
		if n.Gain != nil {
			out = int32((int64(out) * int64(*n.Gain)) >> 15)
		}
		v.scratch[i] = out
	}

	// Pass 2: commit outputs and update state for the next sample.
	for i := 0; i < len(nodes) && nodes[i].Type != NodeNone; i++ {
		if mask != 0 && mask&(uint32(1)<<uint(i)) == 0 {
			continue
		}
		n := &nodes[i]
		n.Out = Sat(v.scratch[i])

		switch n.Type {
		case NodeOsc:
			if n.Osc.Freq != nil {
				n.Osc.phase += int32(*n.Osc.Freq)
			}
			if n.Osc.Detune != nil {
				n.Osc.phase += int32(*n.Osc.Detune)
			}
			n.Osc.phase = int32(uint32(n.Osc.phase) & uint32(Q15Max))
		case NodeEnv:
			n.Env.step(v.gate)
		case NodeLP, NodeHP:
			f := &n.Flt
			// Smooth cutoff changes (256-sample time constant, ~23ms at
			// SampleRate: delta/256 per sample, at least one count while
			// any delta remains).
			if delta := int32(f.coeffTarget) - int32(f.coeff); delta != 0 {
				step := delta >> 8
				if step == 0 {
					if delta > 0 {
						step = 1
					} else {
						step = -1
					}
				}
				f.coeff = Sat(int32(f.coeff) + step)
			}

			// accum += input - out, saturated to Q31. out is the
			// filtered signal committed this sample.
			var input int32
			if f.In != nil {
				input = int32(*f.In)
			}
			acc := int64(f.accum) + int64(input-int32(n.Out))
			if acc > 0x7FFFFFFF {
				acc = 0x7FFFFFFF
			} else if acc < -0x7FFFFFFF-1 {
				acc = -0x7FFFFFFF - 1
			}
			f.accum = int32(acc)
		}
	}
}

// silent reports whether every envelope in the voice has fully faded.
func (v *Voice) silent() bool {
	for i := range v.nodes {
		if v.nodes[i].Type == NodeEnv && v.nodes[i].Env.value != 0 {
			return false
		}
	}
	return true
}
