package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/readalong/speech"
)

// Speaker is the part of a session plain mode needs.
type Speaker interface {
	Speak(text string, rate float64, onProgress func(offset int), onEnd func()) uint64
	Cancel()
	ReportsProgress() bool
}

// runPlain speaks text and prints each word as it becomes active. It returns
// when the text has been spoken or ctx is done.
func runPlain(ctx context.Context, s Speaker, text string, rate float64, w io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	tracker := speech.NewTracker(speech.Tokenize(text))
	words := make(chan int, 64)
	done := make(chan struct{})

	s.Speak(text, rate,
		func(offset int) {
			if i, changed := tracker.Update(offset); changed && i >= 0 {
				select {
				case words <- i:
				case <-done:
				}
			}
		},
		func() { close(done) },
	)

	if !s.ReportsProgress() {
		if _, err := fmt.Fprintln(w, text); err != nil {
			return fmt.Errorf("unable to write to writer: %w", err)
		}
	}

	tokens := tracker.Tokens()
	for {
		select {
		case i := <-words:
			if _, err := fmt.Fprintln(w, tokens[i].Text); err != nil {
				s.Cancel()
				return fmt.Errorf("unable to write to writer: %w", err)
			}
		case <-done:
			// flush words reported before the end
			for {
				select {
				case i := <-words:
					_, _ = fmt.Fprintln(w, tokens[i].Text)
				default:
					return nil
				}
			}
		case <-ctx.Done():
			s.Cancel()
			log.Debug("plain mode interrupted", "err", ctx.Err())
			return nil
		}
	}
}
