// Package smf flattens Standard MIDI Files into a sample-timed note
// stream. Tracks are merged, tempo changes are honored, and velocity-0
// note-ons are treated as note-offs per the MIDI convention.
package smf

import (
	"fmt"
	"io"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"
)

// NoteEvent is one gate change at an absolute sample time.
type NoteEvent struct {
	At      int
	Channel uint8
	Key     uint8
	On      bool
}

// Load reads and flattens a MIDI file.
func Load(path string, sampleRate int) ([]NoteEvent, error) {
	rd, err := smf.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("smf: %w", err)
	}
	return flatten(rd, sampleRate)
}

// Parse reads and flattens MIDI data from a stream.
func Parse(r io.Reader, sampleRate int) ([]NoteEvent, error) {
	rd, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("smf: %w", err)
	}
	return flatten(rd, sampleRate)
}

const (
	kindTempo = iota
	kindOff
	kindOn
)

type tickEvent struct {
	tick uint64
	kind int
	ch   uint8
	key  uint8
	bpm  float64
}

func flatten(rd *smf.SMF, sampleRate int) ([]NoteEvent, error) {
	ticks, ok := rd.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("smf: unsupported time format %v", rd.TimeFormat)
	}

	var evs []tickEvent
	for _, track := range rd.Tracks {
		var tick uint64
		for _, ev := range track {
			tick += uint64(ev.Delta)
			var ch, key, vel uint8
			var bpm float64
			switch {
			case ev.Message.GetNoteOn(&ch, &key, &vel):
				kind := kindOn
				if vel == 0 {
					kind = kindOff
				}
				evs = append(evs, tickEvent{tick: tick, kind: kind, ch: ch, key: key})
			case ev.Message.GetNoteOff(&ch, &key, &vel):
				evs = append(evs, tickEvent{tick: tick, kind: kindOff, ch: ch, key: key})
			case ev.Message.GetMetaTempo(&bpm):
				evs = append(evs, tickEvent{tick: tick, kind: kindTempo, bpm: bpm})
			}
		}
	}
	// Tempo changes apply before notes at the same tick; note-offs fire
	// before note-ons so shared keys retrigger cleanly.
	sort.SliceStable(evs, func(i, j int) bool {
		if evs[i].tick != evs[j].tick {
			return evs[i].tick < evs[j].tick
		}
		return evs[i].kind < evs[j].kind
	})

	var out []NoteEvent
	curBPM := 120.0
	var lastTick uint64
	var elapsed float64 // seconds
	for _, ev := range evs {
		elapsed += ticks.Duration(curBPM, uint32(ev.tick-lastTick)).Seconds()
		lastTick = ev.tick
		switch ev.kind {
		case kindTempo:
			curBPM = ev.bpm
		default:
			out = append(out, NoteEvent{
				At:      int(elapsed * float64(sampleRate)),
				Channel: ev.ch,
				Key:     ev.key,
				On:      ev.kind == kindOn,
			})
		}
	}
	return out, nil
}
