package speech_test

import (
	"errors"
	"testing"

	"github.com/dgnsrekt/readalong/speech"
)

func TestChoose(t *testing.T) {
	ready := speech.Environment{
		OS:             "linux",
		AudioSubsystem: speech.AudioPulse,
		HasAudioDevice: true,
		PiperBinary:    "/usr/bin/piper",
		HasVoiceModels: true,
	}

	tests := []struct {
		name       string
		engine     string
		env        func(speech.Environment) speech.Environment
		wantKind   speech.Kind
		wantEngine string
		wantErr    error
	}{
		{
			name:       "auto prefers piper",
			engine:     speech.EngineAuto,
			wantKind:   speech.KindLocal,
			wantEngine: speech.EngineLocal,
		},
		{
			name:   "auto falls back to remote without models",
			engine: speech.EngineAuto,
			env: func(e speech.Environment) speech.Environment {
				e.HasVoiceModels = false
				e.RemoteConfigured = true
				return e
			},
			wantKind:   speech.KindRemote,
			wantEngine: speech.EngineRemote,
		},
		{
			name:   "auto without audio device",
			engine: "",
			env: func(e speech.Environment) speech.Environment {
				e.HasAudioDevice = false
				e.RemoteConfigured = true
				return e
			},
			wantErr: speech.ErrNoBackendAvailable,
		},
		{
			name:   "auto with nothing installed",
			engine: speech.EngineAuto,
			env: func(e speech.Environment) speech.Environment {
				e.PiperBinary = ""
				return e
			},
			wantErr: speech.ErrNoBackendAvailable,
		},
		{
			name:   "explicit mock ignores the host",
			engine: speech.EngineMock,
			env: func(speech.Environment) speech.Environment {
				return speech.Environment{OS: "linux", AudioSubsystem: speech.AudioNone}
			},
			wantKind:   speech.KindLocal,
			wantEngine: speech.EngineMock,
		},
		{
			name:       "explicit remote",
			engine:     speech.EngineRemote,
			wantKind:   speech.KindRemote,
			wantEngine: speech.EngineRemote,
		},
		{
			name:    "unknown engine",
			engine:  "festival",
			wantErr: speech.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := ready
			if tt.env != nil {
				env = tt.env(env)
			}
			cfg := speech.DefaultConfig()
			cfg.Engine = tt.engine

			d, err := speech.Choose(cfg, env)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Choose() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Choose() error = %v", err)
			}
			if d.Kind != tt.wantKind || d.Engine != tt.wantEngine {
				t.Errorf("Choose() = %s/%s, want %s/%s", d.Kind, d.Engine, tt.wantKind, tt.wantEngine)
			}
			if d.Env != env {
				t.Errorf("descriptor env = %+v, want %+v", d.Env, env)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	if speech.KindLocal.String() != "local" || speech.KindRemote.String() != "remote" {
		t.Errorf("unexpected kind names %s %s", speech.KindLocal, speech.KindRemote)
	}
	if speech.Kind(42).String() != "unknown" {
		t.Errorf("Kind(42) = %s", speech.Kind(42))
	}
}
