package piper

import (
	"time"
	"unicode/utf8"

	"github.com/dgnsrekt/readalong/speech"
)

// mark is a word boundary placed on the playback timeline.
type mark struct {
	offset int           // Byte offset of the word in the utterance text
	at     time.Duration // Playback time at which the word starts
}

// timeline spreads the word starts of text over d in proportion to their
// character position. piper does not report boundaries, so the estimate
// assumes a constant speaking rate within one chunk.
func timeline(text string, d time.Duration) []mark {
	total := utf8.RuneCountInString(text)
	if total == 0 {
		return nil
	}

	var marks []mark
	runes := 0
	prev := 0
	for _, tok := range speech.Tokenize(text) {
		runes += utf8.RuneCountInString(text[prev:tok.Start])
		prev = tok.Start
		if !tok.IsWord {
			continue
		}
		at := time.Duration(int64(d) * int64(runes) / int64(total))
		marks = append(marks, mark{offset: tok.Start, at: at})
	}
	return marks
}
