package picosynth

import "testing"

func TestUsageMaskCoversDependencyClosure(t *testing.T) {
	s, _ := New(1, 5)
	v := s.Voice(0)
	// 0: osc -> 2: mix; 1: env unused; 3: osc unused; 4: empty.
	v.Node(0).InitOsc(nil, v.FreqPtr(), WaveSine)
	v.Node(1).InitEnvMS(nil, 10, 100, 80, 50)
	v.Node(2).InitMix(nil, &v.Node(0).Out, nil, nil)
	v.Node(3).InitOsc(nil, v.FreqPtr(), WaveSaw)
	v.SetOut(2)

	want := uint32(1<<0 | 1<<2)
	if v.usageMask != want {
		t.Fatalf("mask = %#b, want %#b", v.usageMask, want)
	}
}

func TestUsageMaskSkipsUnreachableNodes(t *testing.T) {
	s, _ := New(1, 4)
	v := s.Voice(0)
	v.Node(0).InitOsc(nil, v.FreqPtr(), WaveSine)
	v.Node(1).InitOsc(nil, v.FreqPtr(), WaveSaw)
	v.Node(2).InitMix(nil, &v.Node(0).Out, nil, nil)
	v.SetOut(2)
	s.NoteOn(0, 69)

	for i := 0; i < 500; i++ {
		s.Process()
	}
	if v.Node(1).Out != 0 {
		t.Error("unreachable node produced output")
	}
	if v.Node(1).Osc.phase != 0 {
		t.Error("unreachable node advanced its state")
	}
	if v.Node(0).Osc.phase == 0 {
		t.Error("reachable node never advanced")
	}
}

func TestUsageMaskFollowsGainWires(t *testing.T) {
	s, _ := New(1, 3)
	v := s.Voice(0)
	v.Node(0).InitEnvMS(nil, 10, 100, 80, 50)
	v.Node(1).InitOsc(&v.Node(0).Out, v.FreqPtr(), WaveSine)
	v.SetOut(1)

	want := uint32(1<<0 | 1<<1)
	if v.usageMask != want {
		t.Fatalf("mask = %#b, want %#b", v.usageMask, want)
	}
}

func TestUsageMaskSurvivesCyclicWiring(t *testing.T) {
	s, _ := New(1, 2)
	v := s.Voice(0)
	// Deliberately malformed: two mixers reading each other. The trace
	// must terminate and mark both.
	v.Node(0).InitMix(nil, &v.Node(1).Out, nil, nil)
	v.Node(1).InitMix(nil, &v.Node(0).Out, nil, nil)
	v.SetOut(0)

	if v.usageMask != 0b11 {
		t.Fatalf("mask = %#b, want 0b11", v.usageMask)
	}
	s.NoteOn(0, 60)
	for i := 0; i < 100; i++ {
		s.Process() // must not hang or panic
	}
}

func TestEvaluationStopsAtFirstEmptySlot(t *testing.T) {
	s, _ := New(1, 4)
	v := s.Voice(0)
	v.Node(0).InitOsc(nil, v.FreqPtr(), WaveSaw)
	// Slot 1 left empty; slot 2 wired but unreachable past the gap.
	v.Node(2).InitOsc(nil, v.FreqPtr(), WaveSine)
	v.SetOut(0)
	s.NoteOn(0, 69)
	for i := 0; i < 200; i++ {
		s.Process()
	}
	if v.Node(2).Osc.phase != 0 {
		t.Error("node after the empty slot was evaluated")
	}
}

func TestNoteOnResetsNodeState(t *testing.T) {
	s, _ := New(1, 3)
	v := s.Voice(0)
	env, osc, flt := v.Node(0), v.Node(1), v.Node(2)
	env.InitEnvMS(nil, 10, 100, 80, 50)
	osc.InitOsc(&env.Out, v.FreqPtr(), WaveSaw)
	flt.InitLP(nil, &osc.Out, 2000)
	v.SetOut(2)

	s.NoteOn(0, 60)
	for i := 0; i < 1000; i++ {
		s.Process()
	}
	flt.SetFilterCoeff(7000)

	s.NoteOn(0, 72)
	if osc.Osc.phase != 0 {
		t.Error("oscillator phase not reset")
	}
	if env.Env.value != 0 || env.Env.mode != envAttack {
		t.Error("envelope not reset")
	}
	if flt.Flt.accum != 0 {
		t.Error("filter accumulator not reset")
	}
	if flt.Flt.coeff != flt.Flt.coeffTarget {
		t.Error("filter coefficient not snapped to target")
	}
	if note, gate := v.Note(); note != 72 || !gate {
		t.Errorf("note state = (%d, %v)", note, gate)
	}
	if *v.FreqPtr() != MIDIToFreq(72) {
		t.Error("frequency cell not updated")
	}
}

func TestNodeIndexResolvesOnlyNodeOutputs(t *testing.T) {
	s, _ := New(2, 2)
	v := s.Voice(0)
	if got := v.nodeIndex(&v.nodes[1].Out); got != 1 {
		t.Errorf("nodeIndex(out1) = %d", got)
	}
	if got := v.nodeIndex(v.FreqPtr()); got != -1 {
		t.Errorf("freq cell resolved to node %d", got)
	}
	if got := v.nodeIndex(nil); got != -1 {
		t.Errorf("nil resolved to node %d", got)
	}
	var external Q15
	if got := v.nodeIndex(&external); got != -1 {
		t.Errorf("external cell resolved to node %d", got)
	}
}

func TestReinitClearsNode(t *testing.T) {
	s, _ := New(1, 1)
	v := s.Voice(0)
	n := v.Node(0)
	n.InitOsc(nil, v.FreqPtr(), WaveSaw)
	v.SetOut(0)
	s.NoteOn(0, 60)
	for i := 0; i < 50; i++ {
		s.Process()
	}
	n.InitEnvMS(nil, 10, 100, 80, 50)
	if n.Type != NodeEnv || n.Out != 0 || n.Osc.Wave != nil {
		t.Error("re-init left stale state behind")
	}
}
