package main

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/sysprog21/picosynth"
)

var playVoices int

var playCmd = &cobra.Command{
	Use:   "play FILE",
	Short: "Play a text score or MIDI file through the audio output",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlay,
}

func init() {
	playCmd.Flags().IntVar(&playVoices, "voices", 2, "polyphony for MIDI input")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	s, events, opts, err := buildSong(args[0], playVoices)
	if err != nil {
		return err
	}

	player := picosynth.NewPlayer(s)
	if err := player.Play(events, opts); err != nil {
		return err
	}
	log.Info("playing", "file", args[0])
	player.Wait()
	return player.Stop()
}
