package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "picosynth",
	Short: "A lightweight fixed-point software synthesizer",
	Long: `picosynth renders and plays music through a small polyphonic
fixed-point synthesizer. Melodies come from a plain text score
(one "NOTE BEATS" pair per line) or a Standard MIDI File.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
