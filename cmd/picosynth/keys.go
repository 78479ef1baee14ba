package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/sysprog21/picosynth"
	"github.com/sysprog21/picosynth/patch"
)

var keysWave string

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Play the synth live from the computer keyboard",
	Long: `An interactive keyboard: the home row (white keys) and the row
above it (black keys) map to a chromatic octave from C up to the next C
(a w s e d f t g y h u j k), z/x shift the octave down/up.`,
	RunE: runKeys,
}

func init() {
	keysCmd.Flags().StringVar(&keysWave, "wave", "saw", "oscillator waveform: sine, saw, square, triangle")
	rootCmd.AddCommand(keysCmd)
}

const (
	keysPolyphony = 8
	gateDuration  = 350 * time.Millisecond
)

func waveByName(name string) (picosynth.WaveFunc, error) {
	switch name {
	case "sine":
		return picosynth.WaveSine, nil
	case "saw":
		return picosynth.WaveSaw, nil
	case "square":
		return picosynth.WaveSquare, nil
	case "triangle":
		return picosynth.WaveTriangle, nil
	}
	return nil, fmt.Errorf("unknown waveform %q", name)
}

func runKeys(cmd *cobra.Command, args []string) error {
	wave, err := waveByName(keysWave)
	if err != nil {
		return err
	}
	s, err := picosynth.New(keysPolyphony, 3)
	if err != nil {
		return err
	}
	for i := 0; i < keysPolyphony; i++ {
		if err := patch.Lead(s.Voice(i), wave); err != nil {
			return err
		}
	}
	live, err := picosynth.NewLive(s)
	if err != nil {
		return err
	}
	defer live.Close()

	m := newKeysModel(live)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// Semitone offsets from the octave's C: home-row keys for white notes, the
// row above for black notes.
var keySemitones = map[string]int{
	"a": 0, "w": 1, "s": 2, "e": 3, "d": 4, "f": 5,
	"t": 6, "g": 7, "y": 8, "h": 9, "u": 10, "j": 11, "k": 12,
}

type heldNote struct {
	voice int
	at    time.Time
}

type keysModel struct {
	live   *picosynth.Live
	octave int
	next   int
	held   map[uint8]heldNote
}

type tickMsg time.Time

func newKeysModel(live *picosynth.Live) *keysModel {
	return &keysModel{live: live, octave: 4, held: make(map[uint8]heldNote)}
}

func tick() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *keysModel) Init() tea.Cmd {
	return tick()
}

func (m *keysModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		// Terminals report no key releases, so a held note gates off
		// after a fixed duration.
		now := time.Time(msg)
		for note, h := range m.held {
			if now.Sub(h.at) >= gateDuration {
				m.live.NoteOff(h.voice)
				delete(m.held, note)
			}
		}
		return m, tick()

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "z":
			if m.octave > 1 {
				m.octave--
			}
			return m, nil
		case "x":
			if m.octave < 8 {
				m.octave++
			}
			return m, nil
		}
		if semi, ok := keySemitones[key]; ok {
			m.strike(uint8((m.octave+1)*12 + semi))
		}
		return m, nil
	}
	return m, nil
}

func (m *keysModel) strike(note uint8) {
	if h, ok := m.held[note]; ok {
		// Retrigger on the same voice.
		m.live.NoteOn(h.voice, note)
		m.held[note] = heldNote{voice: h.voice, at: time.Now()}
		return
	}
	voice := m.next
	m.next = (m.next + 1) % keysPolyphony
	for n, h := range m.held {
		if h.voice == voice {
			delete(m.held, n)
		}
	}
	m.live.NoteOn(voice, note)
	m.held[note] = heldNote{voice: voice, at: time.Now()}
}

var (
	keysTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#5F5FD7")).
			Padding(0, 1)
	keysDimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	keysHelpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	keysWhiteStyle  = lipgloss.NewStyle().Background(lipgloss.Color("#FFFFFF")).Foreground(lipgloss.Color("#000000"))
	keysBlackStyle  = lipgloss.NewStyle().Background(lipgloss.Color("#000000")).Foreground(lipgloss.Color("#FFFFFF"))
	keysActiveWhite = lipgloss.NewStyle().Background(lipgloss.Color("#00FF00")).Foreground(lipgloss.Color("#000000"))
	keysActiveBlack = lipgloss.NewStyle().Background(lipgloss.Color("#00AA00")).Foreground(lipgloss.Color("#FFFFFF"))
)

func (m *keysModel) View() string {
	var b strings.Builder
	b.WriteString(keysTitleStyle.Render("picosynth keys") + "\n\n")
	b.WriteString(keysDimStyle.Render("Octave: ") + fmt.Sprintf("C%d", m.octave) + "\n\n")
	b.WriteString(m.renderKeyboard() + "\n\n")

	if len(m.held) > 0 {
		names := make([]string, 0, len(m.held))
		for note := range m.held {
			names = append(names, noteName(note))
		}
		b.WriteString(keysDimStyle.Render("Playing: ") + strings.Join(names, " ") + "\n")
	} else {
		b.WriteString(keysDimStyle.Render("Playing: ") + "-\n")
	}

	b.WriteString("\n" + keysHelpStyle.Render("a w s e d f t g y h u j k: notes · z/x: octave · q: quit"))
	return b.String()
}

// renderKeyboard draws one octave plus the next C, black keys on top.
func (m *keysModel) renderKeyboard() string {
	base := uint8((m.octave + 1) * 12)
	active := func(offset int) bool {
		_, ok := m.held[base+uint8(offset)]
		return ok
	}

	// Black keys sit after white keys C D F G A.
	blackAfter := map[int]int{0: 1, 1: 3, 3: 6, 4: 8, 5: 10}
	var top, bottom strings.Builder
	whites := []int{0, 2, 4, 5, 7, 9, 11, 12}
	for wi, offset := range whites {
		if black, ok := blackAfter[wi]; ok {
			if active(black) {
				top.WriteString(keysActiveBlack.Render("█"))
			} else {
				top.WriteString(keysBlackStyle.Render("█"))
			}
		} else {
			top.WriteString(" ")
		}
		top.WriteString(" ")

		if active(offset) {
			bottom.WriteString(keysActiveWhite.Render("█"))
		} else {
			bottom.WriteString(keysWhiteStyle.Render("█"))
		}
		bottom.WriteString(" ")
	}
	return " " + top.String() + "\n" + bottom.String()
}

func noteName(note uint8) string {
	names := []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	return fmt.Sprintf("%s%d", names[note%12], int(note/12)-1)
}
