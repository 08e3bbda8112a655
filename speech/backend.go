package speech

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Kind identifies a speech backend variant.
type Kind int

const (
	// KindLocal is an on-device engine that reports character progress.
	KindLocal Kind = iota
	// KindRemote is a network service that returns playable audio.
	KindRemote
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Backend speaks one chunk at a time on behalf of a Session.
type Backend interface {
	// Kind returns the backend variant.
	Kind() Kind

	// ReportsProgress reports whether SpeakChunk calls onProgress.
	ReportsProgress() bool

	// SpeakChunk speaks text and blocks until it finished, failed or ctx
	// was cancelled. Progress offsets are byte offsets into text.
	SpeakChunk(ctx context.Context, text string, rate float64, onProgress func(rel int)) error

	// Stop stops whatever utterance or audio is active. It is safe to call
	// when nothing is playing and must not wait for a running SpeakChunk
	// to return.
	Stop() error
}

// Nudger is implemented by backends whose host engine can fall silent during
// long utterances and must be paused and resumed periodically.
type Nudger interface {
	Nudge() error
}

// Utterance is a request to a local engine.
type Utterance struct {
	Text  string  // Text to speak
	Voice *Voice  // Voice to use, nil for the engine default
	Rate  float64 // Speed multiplier, 1.0 is normal
	Lang  string  // BCP 47 language tag
}

// LocalEngine is an on-device synthesis engine.
type LocalEngine interface {
	VoiceSource

	// Speak speaks u and blocks until it finished, failed or ctx was
	// cancelled. onBoundary receives byte offsets into u.Text.
	Speak(ctx context.Context, u Utterance, onBoundary func(charIndex int)) error

	// CancelAll stops every queued or playing utterance.
	CancelAll() error

	Pause() error
	Resume() error
}

// Audio is a playable PCM resource.
type Audio struct {
	PCM        []byte // Signed 16-bit little-endian samples
	SampleRate int    // Samples per second
	Channels   int    // Interleaved channel count
}

// Duration returns the playback length of the audio.
func (a *Audio) Duration() time.Duration {
	if a == nil || a.SampleRate <= 0 || a.Channels <= 0 {
		return 0
	}
	frames := len(a.PCM) / (2 * a.Channels)
	return time.Duration(frames) * time.Second / time.Duration(a.SampleRate)
}

// RemoteService synthesizes speech over the network.
type RemoteService interface {
	RequestAudio(ctx context.Context, text, voiceID string, rate float64) (*Audio, error)
}

// AudioElement plays audio resources one at a time.
type AudioElement interface {
	// Play plays a and blocks until it finished, ctx was cancelled or Stop
	// was called. Playing replaces any audio that is still playing.
	Play(ctx context.Context, a *Audio) error
	Pause() error
	Resume() error
	Stop() error
}

// LocalConfig configures a LocalBackend.
type LocalConfig struct {
	Voice        VoicePreferences // Voice selection preferences
	VoiceTimeout time.Duration    // Bound on voice list acquisition
	VoicePoll    time.Duration    // Poll interval during acquisition
	Logger       *log.Logger
}

// LocalBackend drives a LocalEngine.
type LocalBackend struct {
	engine LocalEngine
	cfg    LocalConfig
	log    *log.Logger

	mu       sync.Mutex
	voice    *Voice
	resolved bool
}

// NewLocalBackend creates a backend for engine.
func NewLocalBackend(engine LocalEngine, cfg LocalConfig) *LocalBackend {
	if cfg.VoiceTimeout <= 0 {
		cfg.VoiceTimeout = DefaultVoiceTimeout
	}
	if cfg.VoicePoll <= 0 {
		cfg.VoicePoll = DefaultVoicePoll
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("local")
	}
	return &LocalBackend{engine: engine, cfg: cfg, log: logger}
}

// Kind implements Backend.
func (b *LocalBackend) Kind() Kind { return KindLocal }

// ReportsProgress implements Backend.
func (b *LocalBackend) ReportsProgress() bool { return true }

// SpeakChunk implements Backend.
func (b *LocalBackend) SpeakChunk(ctx context.Context, text string, rate float64, onProgress func(int)) error {
	u := Utterance{
		Text:  text,
		Voice: b.selectVoice(ctx),
		Rate:  rate,
		Lang:  b.cfg.Voice.Lang,
	}
	if onProgress == nil {
		onProgress = func(int) {}
	}
	return NewBackendError(KindLocal, "speak", b.engine.Speak(ctx, u, onProgress))
}

// Stop implements Backend.
func (b *LocalBackend) Stop() error {
	return NewBackendError(KindLocal, "cancel", b.engine.CancelAll())
}

// Nudge pauses and resumes the engine.
func (b *LocalBackend) Nudge() error {
	if err := b.engine.Pause(); err != nil {
		return NewBackendError(KindLocal, "pause", err)
	}
	return NewBackendError(KindLocal, "resume", b.engine.Resume())
}

// Voice returns the selected voice, or nil when the engine default is used
// or no selection has happened yet.
func (b *LocalBackend) Voice() *Voice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.voice
}

// selectVoice acquires the voice list and applies the preferences the first
// time it is called.
func (b *LocalBackend) selectVoice(ctx context.Context) *Voice {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.resolved {
		return b.voice
	}

	voices := AcquireVoices(ctx, b.engine, b.cfg.VoiceTimeout, b.cfg.VoicePoll)
	if ctx.Err() != nil {
		return nil
	}
	b.resolved = true
	if v, ok := SelectVoice(voices, b.cfg.Voice); ok {
		b.voice = &v
		b.log.Debug("voice selected", "name", v.Name, "lang", v.Lang, "available", len(voices))
	} else {
		b.log.Debug("no matching voice, using engine default", "lang", b.cfg.Voice.Lang, "available", len(voices))
	}
	return b.voice
}

// RemoteBackend requests audio from a RemoteService and plays it through an
// AudioElement. It reports no progress.
type RemoteBackend struct {
	service RemoteService
	element AudioElement
	voiceID string
}

// NewRemoteBackend creates a backend for service that plays through element.
func NewRemoteBackend(service RemoteService, element AudioElement, voiceID string) *RemoteBackend {
	return &RemoteBackend{service: service, element: element, voiceID: voiceID}
}

// Kind implements Backend.
func (b *RemoteBackend) Kind() Kind { return KindRemote }

// ReportsProgress implements Backend.
func (b *RemoteBackend) ReportsProgress() bool { return false }

// SpeakChunk implements Backend.
func (b *RemoteBackend) SpeakChunk(ctx context.Context, text string, rate float64, _ func(int)) error {
	audio, err := b.service.RequestAudio(ctx, text, b.voiceID, rate)
	if err != nil {
		return NewBackendError(KindRemote, "request", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return NewBackendError(KindRemote, "play", b.element.Play(ctx, audio))
}

// Stop implements Backend.
func (b *RemoteBackend) Stop() error {
	return NewBackendError(KindRemote, "stop", b.element.Stop())
}

var (
	_ Backend = (*LocalBackend)(nil)
	_ Nudger  = (*LocalBackend)(nil)
	_ Backend = (*RemoteBackend)(nil)
)
