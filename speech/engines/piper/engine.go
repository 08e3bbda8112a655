// Package piper implements a local speech engine on top of the piper
// command line synthesizer.
package piper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readalong/speech"
)

// Audio format produced by piper --output-raw.
const (
	SampleRate = 22050
	Channels   = 1
)

// Speed limits accepted by piper's length scale.
const (
	MinRate = 0.5
	MaxRate = 2.0
)

// maxAudioSize bounds the raw output of a single synthesis.
const maxAudioSize = 10 * 1024 * 1024

// tick is how often playback position is checked for reached boundaries.
const tick = 25 * time.Millisecond

// Player plays synthesized audio and reports the playback position.
type Player interface {
	speech.AudioElement
	Position() time.Duration
}

// Config holds configuration for the engine.
type Config struct {
	Binary     string        // piper executable name or path
	Model      string        // Model path or voice name used when no voice is selected
	VoiceDirs  []string      // Directories searched for models
	SampleRate int           // Output sample rate of the models
	Timeout    time.Duration // Bound on one synthesis
	Logger     *log.Logger
}

// Engine is a speech.LocalEngine backed by piper.
type Engine struct {
	cfg     Config
	binary  string
	player  Player
	catalog *Catalog
	log     *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates an engine that plays through player. The voice catalog is
// filled in the background.
func New(cfg Config, player Player) (*Engine, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = SampleRate
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("piper")
	}

	binary, err := FindBinary(cfg.Binary)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		binary:  binary,
		player:  player,
		catalog: NewCatalog(cfg.VoiceDirs, logger),
		log:     logger,
	}
	if err := e.catalog.Watch(); err != nil {
		logger.Warn("voice directories are not watched", "err", err)
	}
	return e, nil
}

// FindBinary locates the piper executable.
func FindBinary(name string) (string, error) {
	if name == "" {
		name = "piper"
	}
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	home, _ := os.UserHomeDir()
	for _, path := range []string{
		"/usr/local/bin/piper",
		"/usr/bin/piper",
		"/opt/piper/piper",
		filepath.Join(home, ".local", "bin", "piper"),
	} {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: piper not found in PATH or common locations", speech.ErrEngineNotAvailable)
}

// Catalog returns the engine's voice catalog.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Voices implements speech.VoiceSource.
func (e *Engine) Voices() []speech.Voice {
	return e.catalog.Voices()
}

// VoicesChanged implements speech.VoiceSource.
func (e *Engine) VoicesChanged() <-chan struct{} {
	return e.catalog.VoicesChanged()
}

// Speak synthesizes u and plays it, reporting word starts as they are
// reached on the playback timeline.
func (e *Engine) Speak(ctx context.Context, u speech.Utterance, onBoundary func(int)) error {
	if strings.TrimSpace(u.Text) == "" {
		return speech.ErrEmptyText
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	model, err := e.model(u.Voice)
	if err != nil {
		return err
	}
	pcm, err := e.synthesize(ctx, u.Text, model, u.Rate)
	if err != nil {
		return err
	}

	audio := &speech.Audio{PCM: pcm, SampleRate: e.cfg.SampleRate, Channels: Channels}
	marks := timeline(u.Text, audio.Duration())

	played := make(chan error, 1)
	go func() {
		played <- e.player.Play(ctx, audio)
	}()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	next := 0
	for {
		select {
		case err := <-played:
			if err != nil {
				return err
			}
			for ; next < len(marks); next++ {
				onBoundary(marks[next].offset)
			}
			return nil
		case <-ticker.C:
			pos := e.player.Position()
			for ; next < len(marks) && marks[next].at <= pos; next++ {
				onBoundary(marks[next].offset)
			}
		}
	}
}

// CancelAll aborts the running synthesis and stops playback.
func (e *Engine) CancelAll() error {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.mu.Unlock()
	return e.player.Stop()
}

// Pause pauses playback.
func (e *Engine) Pause() error {
	return e.player.Pause()
}

// Resume resumes playback.
func (e *Engine) Resume() error {
	return e.player.Resume()
}

// Close stops playback and the voice watcher.
func (e *Engine) Close() error {
	return errors.Join(e.CancelAll(), e.catalog.Close())
}

// model resolves the model file for v, falling back to the configured model
// and then to the first model in the catalog.
func (e *Engine) model(v *speech.Voice) (string, error) {
	if v != nil && v.Path != "" {
		return v.Path, nil
	}
	if m := e.cfg.Model; m != "" {
		if _, err := os.Stat(m); err == nil {
			return m, nil
		}
		if voice, ok := e.catalog.Lookup(m); ok {
			return voice.Path, nil
		}
		return "", fmt.Errorf("%w: model %q not found", speech.ErrEngineNotAvailable, m)
	}
	if voices := e.catalog.Voices(); len(voices) > 0 {
		return voices[0].Path, nil
	}
	return "", fmt.Errorf("%w: no piper voice models installed", speech.ErrEngineNotAvailable)
}

// synthesize runs piper with text on stdin and returns raw PCM.
func (e *Engine) synthesize(ctx context.Context, text, model string, rate float64) ([]byte, error) {
	if rate <= 0 {
		rate = 1
	}
	rate = min(max(rate, MinRate), MaxRate)

	args := []string{
		"--model", model,
		"--output-raw",
		"--length-scale", fmt.Sprintf("%.2f", 1.0/rate),
	}
	if cfg := model + ".json"; fileExists(cfg) {
		args = append(args, "--config", cfg)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Stdin = strings.NewReader(text)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 100 * time.Millisecond

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("synthesis aborted: %w", ctxErr)
		}
		return nil, fmt.Errorf("piper failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	audio := stdout.Bytes()
	switch {
	case len(audio) == 0:
		return nil, fmt.Errorf("%w, stderr: %s", speech.ErrNoAudio, strings.TrimSpace(stderr.String()))
	case len(audio) > maxAudioSize:
		return nil, fmt.Errorf("piper output too large: %d bytes (max %d)", len(audio), maxAudioSize)
	}

	e.log.Debug("synthesized", "chars", len(text), "bytes", len(audio), "took", time.Since(start))
	return audio, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

var _ speech.LocalEngine = (*Engine)(nil)
