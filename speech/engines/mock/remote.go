package mock

import (
	"context"
	"sync"
	"time"

	"github.com/dgnsrekt/readalong/speech"
)

// Service is a speech.RemoteService returning silent audio.
type Service struct {
	mu       sync.Mutex
	delay    time.Duration
	failure  error
	requests []string
}

// NewService creates a mock remote service.
func NewService() *Service {
	return &Service{}
}

// SetDelay sets the simulated network latency.
func (s *Service) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// SetFailure makes every request fail with err.
func (s *Service) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = err
}

// Requests returns the texts requested so far.
func (s *Service) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// RequestAudio implements speech.RemoteService.
func (s *Service) RequestAudio(ctx context.Context, text, _ string, _ float64) (*speech.Audio, error) {
	s.mu.Lock()
	s.requests = append(s.requests, text)
	delay, failure := s.delay, s.failure
	s.mu.Unlock()

	if err := wait(ctx, nil, delay); err != nil {
		return nil, err
	}
	if failure != nil {
		return nil, failure
	}
	// 10ms of silence per character at 8kHz mono.
	return &speech.Audio{PCM: make([]byte, len(text)*160), SampleRate: 8000, Channels: 1}, nil
}

// Element is a speech.AudioElement that waits for the audio duration
// scaled by Speed instead of producing sound.
type Element struct {
	Speed float64 // Playback time multiplier, 0 plays instantly

	mu        sync.Mutex
	stop      chan struct{}
	playCount int
	stopCount int
	position  time.Duration
}

// NewElement creates a mock audio element that plays instantly.
func NewElement() *Element {
	return &Element{}
}

// Play implements speech.AudioElement.
func (el *Element) Play(ctx context.Context, a *speech.Audio) error {
	stop := make(chan struct{})
	el.mu.Lock()
	if el.stop != nil {
		close(el.stop)
	}
	el.stop = stop
	el.playCount++
	d := time.Duration(float64(a.Duration()) * el.Speed)
	el.mu.Unlock()

	err := wait(ctx, stop, d)
	el.mu.Lock()
	if el.stop == stop {
		el.stop = nil
	}
	if err == nil {
		el.position = a.Duration()
	}
	el.mu.Unlock()
	return err
}

// Pause implements speech.AudioElement.
func (el *Element) Pause() error { return nil }

// Resume implements speech.AudioElement.
func (el *Element) Resume() error { return nil }

// Stop implements speech.AudioElement.
func (el *Element) Stop() error {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.stopCount++
	if el.stop != nil {
		close(el.stop)
		el.stop = nil
	}
	return nil
}

// Position returns the length of the last completed audio.
func (el *Element) Position() time.Duration {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.position
}

// PlayCount returns how many times Play was called.
func (el *Element) PlayCount() int {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.playCount
}

// StopCount returns how many times Stop was called.
func (el *Element) StopCount() int {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.stopCount
}

var (
	_ speech.RemoteService = (*Service)(nil)
	_ speech.AudioElement  = (*Element)(nil)
)
