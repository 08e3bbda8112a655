package speech

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
)

// Audio subsystems reported by DetectEnvironment.
const (
	AudioALSA      = "alsa"
	AudioPulse     = "pulseaudio"
	AudioCoreAudio = "coreaudio"
	AudioWASAPI    = "wasapi"
	AudioNone      = "none"
)

// Environment holds the host facts that decide which backend is usable.
type Environment struct {
	OS               string
	AudioSubsystem   string
	HasAudioDevice   bool
	IsCI             bool
	PiperBinary      string // Resolved piper path, empty when not installed
	HasVoiceModels   bool   // At least one piper model was found
	RemoteConfigured bool   // A remote endpoint is configured
}

// Descriptor is the backend choice for this process.
type Descriptor struct {
	Kind   Kind
	Engine string // Engine name: local, remote or mock
	Env    Environment
}

// String returns a string representation of the descriptor.
func (d Descriptor) String() string {
	return fmt.Sprintf("Descriptor{Kind: %s, Engine: %s, OS: %s, Audio: %s, HasDevice: %v}",
		d.Kind, d.Engine, d.Env.OS, d.Env.AudioSubsystem, d.Env.HasAudioDevice)
}

// Detect probes the host and chooses a backend for cfg.
func Detect(cfg Config) (Descriptor, error) {
	return Choose(cfg, DetectEnvironment(cfg))
}

// Choose picks a backend for cfg given the host facts in env. With engine
// "auto" it prefers the local engine, then the remote service.
func Choose(cfg Config, env Environment) (Descriptor, error) {
	d := Descriptor{Env: env}
	switch cfg.Engine {
	case EngineLocal:
		d.Kind, d.Engine = KindLocal, EngineLocal
	case EngineMock:
		d.Kind, d.Engine = KindLocal, EngineMock
	case EngineRemote:
		d.Kind, d.Engine = KindRemote, EngineRemote
	case EngineAuto, "":
		switch {
		case env.PiperBinary != "" && env.HasVoiceModels && env.HasAudioDevice:
			d.Kind, d.Engine = KindLocal, EngineLocal
		case env.RemoteConfigured && env.HasAudioDevice:
			d.Kind, d.Engine = KindRemote, EngineRemote
		default:
			return d, fmt.Errorf("%w: piper=%t models=%t remote=%t audio=%t",
				ErrNoBackendAvailable, env.PiperBinary != "", env.HasVoiceModels,
				env.RemoteConfigured, env.HasAudioDevice)
		}
	default:
		return d, fmt.Errorf("%w: unknown engine %q", ErrInvalidConfig, cfg.Engine)
	}

	log.Debug("backend chosen", "kind", d.Kind, "engine", d.Engine, "os", env.OS,
		"audio", env.AudioSubsystem, "has_device", env.HasAudioDevice, "is_ci", env.IsCI)
	return d, nil
}

// DetectEnvironment inspects the host.
func DetectEnvironment(cfg Config) Environment {
	env := Environment{
		OS:               runtime.GOOS,
		IsCI:             isCI(),
		RemoteConfigured: cfg.Remote.Endpoint != "",
	}
	if path, err := exec.LookPath(cfg.Piper.Binary); err == nil {
		env.PiperBinary = path
	}
	env.HasVoiceModels = cfg.Piper.Model != "" || hasModels(cfg.Piper.VoiceDirs)

	switch runtime.GOOS {
	case "linux":
		env.AudioSubsystem = detectLinuxAudio()
		env.HasAudioDevice = env.AudioSubsystem != AudioNone
	case "darwin":
		env.AudioSubsystem = AudioCoreAudio
		env.HasAudioDevice = true
	case "windows":
		env.AudioSubsystem = AudioWASAPI
		env.HasAudioDevice = true
	default:
		env.AudioSubsystem = AudioNone
	}
	return env
}

func detectLinuxAudio() string {
	if _, err := exec.LookPath("pactl"); err == nil {
		if out, err := exec.Command("pactl", "info").Output(); err == nil && strings.Contains(string(out), "Server Name") {
			return AudioPulse
		}
	}
	if entries, err := os.ReadDir("/dev/snd"); err == nil {
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), "pcm") {
				return AudioALSA
			}
		}
	}
	return AudioNone
}

func hasModels(dirs []string) bool {
	for _, dir := range dirs {
		matches, _ := filepath.Glob(filepath.Join(dir, "*.onnx"))
		if len(matches) > 0 {
			return true
		}
		matches, _ = filepath.Glob(filepath.Join(dir, "*", "*.onnx"))
		if len(matches) > 0 {
			return true
		}
	}
	return false
}

func isCI() bool {
	for _, key := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "BUILDKITE", "JENKINS_URL"} {
		if os.Getenv(key) != "" {
			return true
		}
	}
	return false
}
