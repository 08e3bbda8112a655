// Package mock provides scripted speech engines for tests and demos.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/dgnsrekt/readalong/speech"
)

// Engine is a speech.LocalEngine that reports scripted or word-start
// boundaries without producing sound.
type Engine struct {
	mu      sync.Mutex
	voices  []speech.Voice
	changed chan struct{}
	started chan string
	stop    chan struct{}

	// Control for testing
	offsets  []int
	delay    time.Duration
	failure  error
	blocking bool

	// Call counts
	speakCount  int
	cancelCount int
	pauseCount  int
	resumeCount int
	utterances  []speech.Utterance
}

// New creates a mock engine with a few English voices.
func New() *Engine {
	return &Engine{
		voices: []speech.Voice{
			{Name: "mock-amy", Lang: "en-US", Provider: "mock", RemoteQuality: true},
			{Name: "mock-alan", Lang: "en-GB", Provider: "mock"},
		},
		changed: make(chan struct{}, 1),
		started: make(chan string, 64),
	}
}

// SetOffsets makes every utterance report exactly these boundaries.
func (e *Engine) SetOffsets(offsets ...int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.offsets = offsets
}

// SetDelay sets the pause before each boundary and before the end.
func (e *Engine) SetDelay(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delay = d
}

// SetFailure makes utterances fail with err after their boundaries.
func (e *Engine) SetFailure(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failure = err
}

// SetBlocking makes utterances run until they are cancelled.
func (e *Engine) SetBlocking(blocking bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.blocking = blocking
}

// SetVoices replaces the voice list and signals VoicesChanged.
func (e *Engine) SetVoices(voices []speech.Voice) {
	e.mu.Lock()
	e.voices = voices
	e.mu.Unlock()
	select {
	case e.changed <- struct{}{}:
	default:
	}
}

// Started receives the text of every utterance as it starts.
func (e *Engine) Started() <-chan string {
	return e.started
}

// Voices implements speech.VoiceSource.
func (e *Engine) Voices() []speech.Voice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]speech.Voice(nil), e.voices...)
}

// VoicesChanged implements speech.VoiceSource.
func (e *Engine) VoicesChanged() <-chan struct{} {
	return e.changed
}

// Speak implements speech.LocalEngine.
func (e *Engine) Speak(ctx context.Context, u speech.Utterance, onBoundary func(int)) error {
	stop := make(chan struct{})
	e.mu.Lock()
	e.speakCount++
	e.utterances = append(e.utterances, u)
	e.stop = stop
	offsets, delay, failure, blocking := e.offsets, e.delay, e.failure, e.blocking
	e.mu.Unlock()

	select {
	case e.started <- u.Text:
	default:
	}

	if offsets == nil {
		for _, w := range speech.Words(speech.Tokenize(u.Text)) {
			offsets = append(offsets, w.Start)
		}
	}
	for _, off := range offsets {
		if err := wait(ctx, stop, delay); err != nil {
			return err
		}
		onBoundary(off)
	}

	if failure != nil {
		return failure
	}
	if blocking {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return speech.ErrInterrupted
		}
	}
	return wait(ctx, stop, delay)
}

// CancelAll implements speech.LocalEngine.
func (e *Engine) CancelAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelCount++
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
	return nil
}

// Pause implements speech.LocalEngine.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauseCount++
	return nil
}

// Resume implements speech.LocalEngine.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resumeCount++
	return nil
}

// SpeakCount returns how many utterances were started.
func (e *Engine) SpeakCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speakCount
}

// CancelCount returns how many times CancelAll was called.
func (e *Engine) CancelCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelCount
}

// NudgeCount returns the number of completed pause/resume pairs.
func (e *Engine) NudgeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return min(e.pauseCount, e.resumeCount)
}

// Utterances returns every utterance spoken so far.
func (e *Engine) Utterances() []speech.Utterance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]speech.Utterance(nil), e.utterances...)
}

// wait sleeps for d unless ctx ends or stop is closed first.
func wait(ctx context.Context, stop <-chan struct{}, d time.Duration) error {
	var timer <-chan time.Time
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		timer = t.C
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-stop:
		return speech.ErrInterrupted
	default:
	}
	if timer == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-stop:
		return speech.ErrInterrupted
	case <-timer:
		return nil
	}
}

var _ speech.LocalEngine = (*Engine)(nil)
