//go:build !nocgo
// +build !nocgo

package audio

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readalong/speech"
	"github.com/ebitengine/oto/v3"
)

// pollInterval is how often Play checks for the end of a stream.
const pollInterval = 20 * time.Millisecond

// oto allows a single context per process.
var (
	otoContext *oto.Context
	otoRate    int
	otoChans   int
	otoErr     error
	otoOnce    sync.Once
)

func sharedContext(sampleRate, channels int) (*oto.Context, error) {
	otoOnce.Do(func() {
		options := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
		}
		switch runtime.GOOS {
		case "darwin":
			options.BufferSize = 100 * time.Millisecond
		default:
			options.BufferSize = 50 * time.Millisecond
		}

		ctx, ready, err := oto.NewContext(options)
		if err != nil {
			otoErr = fmt.Errorf("%w: %v", ErrAudioUnavailable, err)
			return
		}
		<-ready
		otoContext, otoRate, otoChans = ctx, sampleRate, channels
	})
	return otoContext, otoErr
}

// countingReader counts the bytes handed to the audio device.
type countingReader struct {
	r    *bytes.Reader
	read atomic.Int64
	size int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read.Add(int64(n))
	return n, err
}

// stream is one Play call.
type stream struct {
	player  *oto.Player
	reader  *countingReader
	stopped chan struct{}
	once    sync.Once
	paused  bool
}

func (s *stream) stop() {
	s.once.Do(func() {
		close(s.stopped)
		s.player.Pause()
		_ = s.player.Close()
	})
}

// Player plays one Audio at a time on the shared oto context.
type Player struct {
	ctx        *oto.Context
	sampleRate int
	channels   int

	mu      sync.Mutex
	current *stream
}

// NewPlayer opens the audio device. The first player fixes the device format;
// audio at other sample rates is resampled.
func NewPlayer(sampleRate, channels int) (*Player, error) {
	ctx, err := sharedContext(sampleRate, channels)
	if err != nil {
		return nil, err
	}
	return &Player{ctx: ctx, sampleRate: otoRate, channels: otoChans}, nil
}

// Play plays a and blocks until it finished, ctx was cancelled or Stop was
// called. A stream that is still playing is stopped first.
func (p *Player) Play(ctx context.Context, a *speech.Audio) error {
	if a == nil || len(a.PCM) == 0 {
		return speech.ErrNoAudio
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.Channels != p.channels {
		return fmt.Errorf("audio has %d channels, device has %d", a.Channels, p.channels)
	}
	pcm := Resample(a.PCM, a.SampleRate, p.sampleRate, p.channels)

	reader := &countingReader{r: bytes.NewReader(pcm), size: int64(len(pcm))}
	st := &stream{
		player:  p.ctx.NewPlayer(reader),
		reader:  reader,
		stopped: make(chan struct{}),
	}

	p.mu.Lock()
	if p.current != nil {
		p.current.stop()
	}
	p.current = st
	st.player.Play()
	p.mu.Unlock()

	log.Debug("playing audio", "duration", bytesToDuration(reader.size, p.sampleRate, p.channels))

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.finish(st)
			return ctx.Err()
		case <-st.stopped:
			p.finish(st)
			return speech.ErrInterrupted
		case <-ticker.C:
			p.mu.Lock()
			done := !st.paused && !st.player.IsPlaying() && reader.read.Load() >= reader.size
			p.mu.Unlock()
			if done {
				p.finish(st)
				return nil
			}
		}
	}
}

// finish releases st and clears it if it is still current.
func (p *Player) finish(st *stream) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st.stop()
	if p.current == st {
		p.current = nil
	}
}

// Pause pauses the current stream.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil || p.current.paused {
		return nil
	}
	p.current.player.Pause()
	p.current.paused = true
	return nil
}

// Resume resumes a paused stream.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil || !p.current.paused {
		return nil
	}
	p.current.player.Play()
	p.current.paused = false
	return nil
}

// Stop stops the current stream. Its Play call returns speech.ErrInterrupted.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.current.stop()
		p.current = nil
	}
	return nil
}

// Position returns how much of the current stream has been heard.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return 0
	}
	heard := p.current.reader.read.Load() - int64(p.current.player.BufferedSize())
	if heard < 0 {
		heard = 0
	}
	return bytesToDuration(heard, p.sampleRate, p.channels)
}

var _ speech.AudioElement = (*Player)(nil)
