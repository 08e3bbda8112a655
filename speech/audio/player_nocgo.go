//go:build nocgo
// +build nocgo

package audio

import (
	"context"
	"time"

	"github.com/dgnsrekt/readalong/speech"
)

// Player is unavailable in builds without cgo.
type Player struct{}

// NewPlayer always fails in builds without cgo.
func NewPlayer(sampleRate, channels int) (*Player, error) {
	return nil, ErrAudioUnavailable
}

func (p *Player) Play(ctx context.Context, a *speech.Audio) error { return ErrAudioUnavailable }
func (p *Player) Pause() error                                    { return ErrAudioUnavailable }
func (p *Player) Resume() error                                   { return ErrAudioUnavailable }
func (p *Player) Stop() error                                     { return nil }
func (p *Player) Position() time.Duration                         { return 0 }

var _ speech.AudioElement = (*Player)(nil)
