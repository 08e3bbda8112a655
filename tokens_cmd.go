package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/readalong/speech"
)

var tokensCmd = &cobra.Command{
	Use:     "tokens [SOURCE]",
	Short:   "Show how a text is tokenized and chunked",
	Long:    paragraph(fmt.Sprintf("\nPrint the %s and the chunks handed to the speech backend.", keyword("word tokens"))),
	Example: paragraph("readalong tokens notes.md\necho 'Hi there.' | readalong tokens -"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		arg := "-"
		if len(args) == 1 {
			arg = args[0]
		}
		text, _, err := readSource(arg)
		if err != nil {
			return err
		}
		cfg, err := loadSpeechConfig(cmd)
		if err != nil {
			return err
		}
		return printTokens(os.Stdout, text, cfg.MaxChunkLen)
	},
}

// printTokens writes the word tokens of text with their byte ranges, then
// the chunks text is split into.
func printTokens(w io.Writer, text string, maxLen int) error {
	for _, tok := range speech.Words(speech.Tokenize(text)) {
		if _, err := fmt.Fprintf(w, "%5d %5d  %s\n", tok.Start, tok.End, tok.Text); err != nil {
			return err
		}
	}
	for _, c := range speech.Segment(text, maxLen) {
		if _, err := fmt.Fprintf(w, "%s %s\n", keyword("chunk "+strconv.Itoa(c.Index)), strconv.Quote(c.Text)); err != nil {
			return err
		}
	}
	return nil
}
