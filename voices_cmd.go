package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/readalong/speech"
	"github.com/dgnsrekt/readalong/speech/engines/mock"
	"github.com/dgnsrekt/readalong/speech/engines/piper"
)

var voicesCmd = &cobra.Command{
	Use:     "voices [QUERY]",
	Short:   "List the installed voices",
	Long:    paragraph(fmt.Sprintf("\nList the installed voices, optionally fuzzy matched against QUERY. The voice readalong %s is marked.", keyword("would pick"))),
	Example: paragraph("readalong voices\nreadalong voices lessac\nreadalong voices --engine mock"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSpeechConfig(cmd)
		if err != nil {
			return err
		}

		var voices []speech.Voice
		if cfg.Engine == speech.EngineMock {
			voices = mock.New().Voices()
		} else {
			catalog := piper.NewCatalog(cfg.Piper.VoiceDirs, nil)
			catalog.Scan()
			voices = catalog.Voices()
		}
		// pick from every voice, then narrow the listing
		pick, ok := speech.SelectVoice(voices, cfg.Voice)
		if len(args) == 1 {
			voices = filterVoices(voices, args[0])
		}
		return printVoices(os.Stdout, voices, pick, ok)
	},
}

// filterVoices returns the voices whose name fuzzy matches query, best
// match first.
func filterVoices(voices []speech.Voice, query string) []speech.Voice {
	names := make([]string, len(voices))
	for i, v := range voices {
		names[i] = v.Name
	}
	matches := fuzzy.Find(query, names)
	out := make([]speech.Voice, 0, len(matches))
	for _, m := range matches {
		out = append(out, voices[m.Index])
	}
	return out
}

var (
	voiceNameStyle = lipgloss.NewStyle().Width(32)
	voiceLangStyle = lipgloss.NewStyle().Width(8)
	voiceProvStyle = lipgloss.NewStyle().Width(12)
	voiceQualStyle = lipgloss.NewStyle().Width(8)
)

// printVoices writes one line per voice and marks pick.
func printVoices(w io.Writer, voices []speech.Voice, pick speech.Voice, picked bool) error {
	if len(voices) == 0 {
		_, err := fmt.Fprintln(w, faint("No voices found."))
		return err
	}

	for _, v := range voices {
		mark := "  "
		if picked && v.Name == pick.Name {
			mark = keyword("* ")
		}
		quality := "low"
		if v.RemoteQuality {
			quality = "high"
		}
		size := ""
		if v.Size > 0 {
			size = humanize.Bytes(uint64(v.Size)) //nolint:gosec
		}
		line := mark +
			voiceNameStyle.Render(v.Name) +
			voiceLangStyle.Render(v.Lang) +
			voiceProvStyle.Render(v.Provider) +
			voiceQualStyle.Render(quality) +
			faint(size)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
