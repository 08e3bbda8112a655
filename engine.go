package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/readalong/speech"
	"github.com/dgnsrekt/readalong/speech/audio"
	"github.com/dgnsrekt/readalong/speech/engines/mock"
	"github.com/dgnsrekt/readalong/speech/engines/piper"
	"github.com/dgnsrekt/readalong/speech/engines/remote"
)

// mockWordDelay paces the mock engine so the highlight can be followed.
const mockWordDelay = 180 * time.Millisecond

// openBackend builds the backend the descriptor names. The returned func
// releases it.
func openBackend(cfg speech.Config, desc speech.Descriptor) (speech.Backend, func() error, error) {
	noop := func() error { return nil }

	switch desc.Engine {
	case speech.EngineMock:
		eng := mock.New()
		eng.SetDelay(mockWordDelay)
		return speech.NewLocalBackend(eng, cfg.LocalConfig()), noop, nil

	case speech.EngineLocal:
		player, err := audio.NewPlayer(cfg.Piper.SampleRate, piper.Channels)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to open audio: %w", err)
		}
		eng, err := piper.New(piper.Config{
			Binary:     cfg.Piper.Binary,
			Model:      cfg.Piper.Model,
			VoiceDirs:  cfg.Piper.VoiceDirs,
			SampleRate: cfg.Piper.SampleRate,
			Timeout:    cfg.Piper.Timeout,
		}, player)
		if err != nil {
			return nil, nil, err
		}
		return speech.NewLocalBackend(eng, cfg.LocalConfig()), eng.Close, nil

	case speech.EngineRemote:
		client, err := remote.New(remote.FromConfig(cfg.Remote))
		if err != nil {
			return nil, nil, err
		}
		player, err := audio.NewPlayer(cfg.Remote.SampleRate, 1)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to open audio: %w", err)
		}
		return speech.NewRemoteBackend(client, player, cfg.Remote.Voice), player.Stop, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown engine %q", speech.ErrInvalidConfig, desc.Engine)
	}
}

// openSession detects a backend for cfg and starts a session on it.
func openSession(cfg speech.Config) (*speech.Session, func() error, error) {
	desc, err := speech.Detect(cfg)
	if err != nil {
		return nil, nil, err
	}
	log.Info("Using speech backend", "kind", desc.Kind, "engine", desc.Engine)

	backend, release, err := openBackend(cfg, desc)
	if err != nil {
		return nil, nil, err
	}
	session := speech.NewSession(backend, cfg.SessionConfig())
	closer := func() error {
		session.Close()
		return release()
	}
	return session, closer, nil
}
