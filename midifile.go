package picosynth

import (
	"github.com/sysprog21/picosynth/internal/smf"
)

// LoadSMF flattens a Standard MIDI File and spreads its notes over the
// first numVoices voices of a synth: each note-on takes a free voice, and
// when none is free the longest-held voice is stolen.
func LoadSMF(path string, numVoices int) ([]Event, error) {
	notes, err := smf.Load(path, SampleRate)
	if err != nil {
		return nil, err
	}
	return allocateVoices(notes, numVoices), nil
}

func allocateVoices(notes []smf.NoteEvent, numVoices int) []Event {
	if numVoices < 1 {
		numVoices = 1
	}
	type held struct {
		ch  uint8
		key uint8
	}
	holding := make(map[int]held, numVoices)
	order := make([]int, 0, numVoices) // oldest held first
	next := 0

	release := func(voice int) {
		delete(holding, voice)
		for i, v := range order {
			if v == voice {
				order = append(order[:i], order[i+1:]...)
				break
			}
		}
	}

	var events []Event
	for _, n := range notes {
		if n.On {
			voice := -1
			for i := 0; i < numVoices; i++ {
				cand := (next + i) % numVoices
				if _, busy := holding[cand]; !busy {
					voice = cand
					break
				}
			}
			if voice < 0 {
				// Steal the voice that has been sounding longest.
				voice = order[0]
				release(voice)
			}
			next = (voice + 1) % numVoices
			holding[voice] = held{ch: n.Channel, key: n.Key}
			order = append(order, voice)
			events = append(events, Event{At: n.At, Voices: []int{voice}, Note: n.Key, On: true})
			continue
		}
		for _, v := range order {
			if h := holding[v]; h.ch == n.Channel && h.key == n.Key {
				release(v)
				events = append(events, Event{At: n.At, Voices: []int{v}, Note: n.Key, On: false})
				break
			}
		}
	}
	return events
}
