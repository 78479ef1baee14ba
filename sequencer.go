package picosynth

import (
	"sort"

	"github.com/sysprog21/picosynth/internal/score"
)

// Event is a scheduled gate change: at sample time At, send Note on or off
// to every voice in Voices.
type Event struct {
	At     int
	Voices []int
	Note   uint8
	On     bool
}

// SeqOptions tunes a Sequencer.
type SeqOptions struct {
	// OnNote runs after each dispatched note-on (patches use it to
	// refresh shared modulation cells such as detune).
	OnNote func(voice int, note uint8)
	// ReleaseTailSamples is how long to keep rendering after the synth
	// goes idle, so release tails are not cut. 0 means ~0.1s.
	ReleaseTailSamples int
	// OnFinished runs once, from the rendering goroutine, when playback
	// has fully ended.
	OnFinished func()
}

// Sequencer drives a Synth through a time-ordered event list, one sample
// at a time. It implements the audio Source contract.
type Sequencer struct {
	synth    *Synth
	events   []Event
	opts     SeqOptions
	idx      int
	clock    int
	tail     int
	finished bool
}

// NewSequencer wires events to a synth. Events are sorted by time with
// note-offs ahead of note-ons at the same instant, so retriggers on a
// shared voice release before they strike.
func NewSequencer(s *Synth, events []Event, opts SeqOptions) *Sequencer {
	evs := make([]Event, len(events))
	copy(evs, events)
	sort.SliceStable(evs, func(i, j int) bool {
		if evs[i].At != evs[j].At {
			return evs[i].At < evs[j].At
		}
		return !evs[i].On && evs[j].On
	})
	if opts.ReleaseTailSamples <= 0 {
		opts.ReleaseTailSamples = SampleRate / 10
	}
	return &Sequencer{synth: s, events: evs, opts: opts}
}

// Process renders len(dst) samples, dispatching events as their time
// arrives.
func (q *Sequencer) Process(dst []int16) {
	for i := range dst {
		for q.idx < len(q.events) && q.events[q.idx].At <= q.clock {
			ev := q.events[q.idx]
			q.idx++
			for _, voice := range ev.Voices {
				if ev.On {
					q.synth.NoteOn(voice, ev.Note)
					if q.opts.OnNote != nil {
						q.opts.OnNote(voice, ev.Note)
					}
				} else {
					q.synth.NoteOff(voice)
				}
			}
		}
		dst[i] = int16(q.synth.Process())
		q.clock++
	}

	if q.finished || q.idx < len(q.events) {
		return
	}
	if q.synth.Active() {
		q.tail = 0
		return
	}
	q.tail += len(dst)
	if q.tail >= q.opts.ReleaseTailSamples {
		q.finished = true
		if q.opts.OnFinished != nil {
			q.opts.OnFinished()
		}
	}
}

// Finished reports whether all events fired and the synth has been idle
// for the release tail.
func (q *Sequencer) Finished() bool {
	return q.finished
}

// Clock returns the number of samples rendered so far.
func (q *Sequencer) Clock() int {
	return q.clock
}

// Note-offs land this many samples before the next melody slot, matching
// the gap a key release leaves between legato notes.
const noteOffLead = 200

// CompileScore parses a text melody and schedules it on the given voices
// (every listed voice strikes each note, as layered patches want).
func CompileScore(text string, voices []int) ([]Event, error) {
	sc, err := score.Parse(text)
	if err != nil {
		return nil, err
	}
	return eventsFromScore(sc, voices), nil
}

func eventsFromScore(sc *score.Score, voices []int) []Event {
	wholeMS := sc.WholeNoteMS()
	var events []Event
	clock := 0
	for _, n := range sc.Notes {
		dur := int(MSToSamples(wholeMS / uint32(n.Beats)))
		if dur < 1 {
			dur = 1
		}
		if n.MIDI != 0 {
			off := clock + dur - noteOffLead
			if off <= clock {
				off = clock + 1
			}
			events = append(events,
				Event{At: clock, Voices: voices, Note: n.MIDI, On: true},
				Event{At: off, Voices: voices, Note: n.MIDI, On: false},
			)
		}
		clock += dur
	}
	return events
}
