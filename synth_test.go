package picosynth

import "testing"

func TestNewRejectsBadConfig(t *testing.T) {
	for _, tc := range []struct{ voices, nodes int }{
		{0, 4}, {-1, 4}, {1, 0}, {1, -1}, {1, MaxNodes + 1},
	} {
		if s, err := New(tc.voices, tc.nodes); err == nil || s != nil {
			t.Errorf("New(%d, %d) should fail", tc.voices, tc.nodes)
		}
	}
	if s, err := New(1, MaxNodes); err != nil || s == nil {
		t.Fatalf("New(1, MaxNodes) failed: %v", err)
	}
}

func TestOutOfRangeAccessorsAreNoOps(t *testing.T) {
	s, _ := New(2, 4)
	if s.Voice(-1) != nil || s.Voice(2) != nil {
		t.Error("out-of-range Voice should be nil")
	}
	v := s.Voice(0)
	if v.Node(-1) != nil || v.Node(4) != nil {
		t.Error("out-of-range Node should be nil")
	}
	v.SetOut(99) // must not panic or change anything
	s.NoteOn(99, 60)
	s.NoteOff(99)
	if s.Active() {
		t.Error("no-op note-on should not enable any voice")
	}
}

func TestFreshSynthIsSilent(t *testing.T) {
	s, _ := New(4, 4)
	for i := 0; i < 1000; i++ {
		if got := s.Process(); got != 0 {
			t.Fatalf("sample %d = %d, want 0", i, got)
		}
	}
}

// A sine oscillator at zero frequency must hold sine(0) = 0 forever.
func TestDCSineAtZeroFrequency(t *testing.T) {
	s, _ := New(1, 1)
	v := s.Voice(0)
	var freq Q15
	v.Node(0).InitOsc(nil, &freq, WaveSine)
	v.SetOut(0)
	s.NoteOn(0, 60)
	for i := 0; i < 2000; i++ {
		if got := s.Process(); got != 0 {
			t.Fatalf("sample %d = %d, want 0", i, got)
		}
	}
}

// A 110 Hz square wave must change sign ~220 times per second.
func TestSquareWavePeriod(t *testing.T) {
	s, _ := New(1, 1)
	v := s.Voice(0)
	freq := HzToFreq(110)
	v.Node(0).InitOsc(nil, &freq, WaveSquare)
	v.SetOut(0)
	s.NoteOn(0, 0)

	changes := 0
	prev := s.Process()
	for i := 1; i < SampleRate; i++ {
		cur := s.Process()
		if (cur >= 0) != (prev >= 0) {
			changes++
		}
		prev = cur
	}
	if changes < 218 || changes > 222 {
		t.Errorf("sign changes = %d, want 220 +/- 2", changes)
	}
}

// ADSR shape: the attack window peaks at least as high as sustain, and the
// signal is essentially gone well after note-off.
func TestADSRShape(t *testing.T) {
	s, _ := New(1, 2)
	v := s.Voice(0)
	env, osc := v.Node(0), v.Node(1)
	env.InitEnvMS(nil, 10, 100, 80, 50)
	osc.InitOsc(&env.Out, v.FreqPtr(), WaveSine)
	v.SetOut(1)
	s.NoteOn(0, 69)

	peak := func(samples int) Q15 {
		var p Q15
		for i := 0; i < samples; i++ {
			got := s.Process()
			if got < 0 {
				got = -got
			}
			if got > p {
				p = got
			}
		}
		return p
	}

	attackPeak := peak(int(MSToSamples(200)))
	sustainPeak := peak(int(MSToSamples(300)))
	if attackPeak < sustainPeak {
		t.Errorf("attack peak %d < sustain peak %d", attackPeak, sustainPeak)
	}
	if sustainPeak == 0 {
		t.Fatal("no sustain signal")
	}

	s.NoteOff(0)
	peak(int(MSToSamples(100))) // let the release run out
	if tail := peak(int(MSToSamples(100))); tail > 10 {
		t.Errorf("post-release peak = %d, want <= 10", tail)
	}
}

// constWave ignores phase, turning an oscillator into a DC source.
func constWave(level Q15) WaveFunc {
	return func(Q15) Q15 { return level }
}

func TestLowPassStepResponse(t *testing.T) {
	// Heavy filtering: coeff 0 passes nothing while the accumulator fills.
	s, _ := New(1, 2)
	v := s.Voice(0)
	var freq Q15
	v.Node(0).InitOsc(nil, &freq, constWave(0x4000))
	v.Node(1).InitLP(nil, &v.Node(0).Out, 0)
	v.SetOut(1)
	s.NoteOn(0, 0)
	for i := 0; i < 1000; i++ {
		s.Process()
		if out := v.Node(1).Out; out != 0 {
			t.Fatalf("coeff=0 output = %d at sample %d, want 0", out, i)
		}
	}

	// Bypass: output tracks the input within a sample.
	s2, _ := New(1, 2)
	v2 := s2.Voice(0)
	v2.Node(0).InitOsc(nil, &freq, constWave(0x4000))
	v2.Node(1).InitLP(nil, &v2.Node(0).Out, Q15Max)
	v2.SetOut(1)
	s2.NoteOn(0, 0)
	s2.Process()
	s2.Process()
	if out := v2.Node(1).Out; out < 0x4000-2 || out > 0x4000+2 {
		t.Errorf("bypass output = %#x, want ~0x4000", out)
	}
}

func TestHighPassUnwiredInputIsSilent(t *testing.T) {
	s, _ := New(1, 1)
	v := s.Voice(0)
	v.Node(0).InitHP(nil, nil, 0x4000)
	v.SetOut(0)
	s.NoteOn(0, 60)
	for i := 0; i < 100; i++ {
		if got := s.Process(); got != 0 {
			t.Fatalf("unwired high-pass output = %d, want 0", got)
		}
	}
}

// At coeff 0 the low-pass arm contributes nothing, so the high-pass passes
// its input through unchanged.
func TestHighPassCoeffZeroIsIdentity(t *testing.T) {
	s, _ := New(1, 2)
	v := s.Voice(0)
	var freq Q15
	v.Node(0).InitOsc(nil, &freq, constWave(0x2000))
	v.Node(1).InitHP(nil, &v.Node(0).Out, 0)
	v.SetOut(1)
	s.NoteOn(0, 0)
	s.Process()
	s.Process()
	if out := v.Node(1).Out; out != 0x2000 {
		t.Errorf("high-pass output = %#x, want 0x2000", out)
	}
}

// A voice whose gate dropped and whose envelopes faded must clear its
// enable bit and cost nothing afterwards.
func TestVoiceAutoDisable(t *testing.T) {
	s, _ := New(1, 3)
	v := s.Voice(0)
	env, osc, flt := v.Node(0), v.Node(1), v.Node(2)
	env.InitEnvMS(nil, 10, 100, 80, 50)
	osc.InitOsc(&env.Out, v.FreqPtr(), WaveSine)
	flt.InitLP(nil, &osc.Out, 5000)
	v.SetOut(2)

	s.NoteOn(0, 60)
	for i := 0; i < 100; i++ {
		s.Process()
	}
	if !s.Active() {
		t.Fatal("voice disabled while gate held")
	}
	s.NoteOff(0)

	silentRun := 0
	for i := 0; i < 4*SampleRate && silentRun < 32; i++ {
		if s.Process() == 0 {
			silentRun++
		} else {
			silentRun = 0
		}
	}
	if silentRun < 32 {
		t.Fatal("voice never went silent")
	}
	// The output rounds to zero before the envelope value reaches zero;
	// the voice disables itself once the release has fully faded.
	for i := 0; i < SampleRate && env.Env.Value() != 0; i++ {
		s.Process()
	}
	if s.Active() {
		t.Error("enable bit still set after silence")
	}
	if got := s.Process(); got != 0 {
		t.Errorf("disabled synth output = %d, want 0", got)
	}
}

// Four voices at a constant +0x4000 mix back to ~+0x4000: the 1/numVoices
// scaling cancels the sum rather than clipping it.
func TestPolyphonyScaling(t *testing.T) {
	s, _ := New(4, 1)
	var freq Q15
	for i := 0; i < 4; i++ {
		v := s.Voice(i)
		v.Node(0).InitOsc(nil, &freq, constWave(0x4000))
		v.SetOut(0)
		s.NoteOn(i, 0)
	}
	got := s.Process()
	if got <= 0 || got > Q15Max {
		t.Fatalf("mixed output = %d, want positive Q15", got)
	}
	// The soft clip compresses ~0x4000 but must keep it well above a
	// clipped or folded value.
	if got < 10000 || got > 17000 {
		t.Errorf("mixed output = %d, want ~0x3000-0x4000 after soft clip", got)
	}
}

// Swapping the order of independent nodes must not change the audio:
// pass 1 only ever reads outputs committed at the previous sample.
func TestNodeOrderIndependence(t *testing.T) {
	build := func(swapped bool) *Synth {
		s, _ := New(1, 3)
		v := s.Voice(0)
		ia, ib := 0, 1
		if swapped {
			ia, ib = 1, 0
		}
		v.Node(ia).InitOsc(nil, v.FreqPtr(), WaveSine)
		v.Node(ib).InitOsc(nil, v.FreqPtr(), WaveSaw)
		v.Node(2).InitMix(nil, &v.Node(ia).Out, &v.Node(ib).Out, nil)
		v.SetOut(2)
		s.NoteOn(0, 69)
		return s
	}
	s1, s2 := build(false), build(true)
	for i := 0; i < 2000; i++ {
		a, b := s1.Process(), s2.Process()
		if a != b {
			t.Fatalf("outputs diverge at sample %d: %d vs %d", i, a, b)
		}
	}
}

// Output always stays in Q15 range, even with a deliberately hot graph.
func TestOutputRangeUnderStress(t *testing.T) {
	s, _ := New(1, 4)
	v := s.Voice(0)
	v.Node(0).InitOsc(nil, v.FreqPtr(), WaveSquare)
	v.Node(1).InitOsc(nil, v.FreqPtr(), WaveSaw)
	v.Node(2).InitMix(nil, &v.Node(0).Out, &v.Node(1).Out, &v.Node(0).Out)
	v.Node(3).InitHP(nil, &v.Node(2).Out, 0x7000)
	v.SetOut(3)
	s.NoteOn(0, 100)
	for i := 0; i < SampleRate; i++ {
		got := int32(s.Process())
		if got > int32(Q15Max) || got < int32(Q15Min) {
			t.Fatalf("sample %d out of range: %d", i, got)
		}
	}
}

func TestFilterCoeffSmoothing(t *testing.T) {
	s, _ := New(1, 2)
	v := s.Voice(0)
	var freq Q15
	v.Node(0).InitOsc(nil, &freq, constWave(0x2000))
	flt := v.Node(1)
	flt.InitLP(nil, &v.Node(0).Out, 0)
	v.SetOut(1)
	s.NoteOn(0, 0)

	flt.SetFilterCoeff(Q15Max)
	s.Process()
	if c := flt.Coeff(); c == 0 || c == Q15Max {
		t.Fatalf("coefficient jumped to %d instead of easing", c)
	}
	prev := flt.Coeff()
	for i := 0; i < 20000 && flt.Coeff() != Q15Max; i++ {
		s.Process()
		if c := flt.Coeff(); c < prev {
			t.Fatalf("smoothing reversed: %d < %d", c, prev)
		}
		prev = flt.Coeff()
	}
	if flt.Coeff() != Q15Max {
		t.Error("coefficient never reached target")
	}
}
