package speech

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Engine names accepted in Config.Engine.
const (
	EngineAuto   = "auto"
	EngineLocal  = "local"
	EngineRemote = "remote"
	EngineMock   = "mock"
)

// Config contains all speech configuration options.
type Config struct {
	Engine string  `yaml:"engine" env:"READALONG_ENGINE"`
	Rate   float64 `yaml:"rate" env:"READALONG_RATE"`

	Voice VoicePreferences `yaml:"voice" envPrefix:"READALONG_VOICE_"`

	// Session settings
	MaxChunkLen  int           `yaml:"max_chunk_len" env:"READALONG_MAX_CHUNK_LEN"`
	ChunkDelay   time.Duration `yaml:"chunk_delay" env:"READALONG_CHUNK_DELAY"`
	Watchdog     time.Duration `yaml:"watchdog" env:"READALONG_WATCHDOG"`
	VoiceTimeout time.Duration `yaml:"voice_timeout" env:"READALONG_VOICE_TIMEOUT"`

	// Backend-specific configurations
	Piper  PiperConfig  `yaml:"piper"`
	Remote RemoteConfig `yaml:"remote"`
}

// PiperConfig contains local piper engine settings.
type PiperConfig struct {
	Binary     string        `yaml:"binary" env:"READALONG_PIPER_BINARY"`
	Model      string        `yaml:"model" env:"READALONG_PIPER_MODEL"` // model path or voice name
	VoiceDirs  []string      `yaml:"voice_dirs" env:"READALONG_PIPER_VOICE_DIRS"`
	SampleRate int           `yaml:"sample_rate" env:"READALONG_PIPER_SAMPLE_RATE"`
	Timeout    time.Duration `yaml:"timeout" env:"READALONG_PIPER_TIMEOUT"`
}

// RemoteConfig contains remote speech service settings.
type RemoteConfig struct {
	Endpoint          string        `yaml:"endpoint" env:"READALONG_REMOTE_ENDPOINT"`
	APIKey            string        `yaml:"api_key" env:"READALONG_REMOTE_API_KEY"`
	Model             string        `yaml:"model" env:"READALONG_REMOTE_MODEL"`
	Voice             string        `yaml:"voice" env:"READALONG_REMOTE_VOICE"`
	SampleRate        int           `yaml:"sample_rate" env:"READALONG_REMOTE_SAMPLE_RATE"`
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"READALONG_REMOTE_RPM"`
	MaxTextLength     int           `yaml:"max_text_length" env:"READALONG_REMOTE_MAX_TEXT_LENGTH"`
	Timeout           time.Duration `yaml:"timeout" env:"READALONG_REMOTE_TIMEOUT"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	session := DefaultSessionConfig()
	return Config{
		Engine: EngineAuto,
		Rate:   1.0,
		Voice: VoicePreferences{
			Lang:     "en-US",
			Provider: "lessac",
		},
		MaxChunkLen:  session.MaxChunkLen,
		ChunkDelay:   session.ChunkDelay,
		Watchdog:     session.WatchdogInterval,
		VoiceTimeout: DefaultVoiceTimeout,
		Piper:        DefaultPiperConfig(),
		Remote:       DefaultRemoteConfig(),
	}
}

// DefaultPiperConfig returns default piper configuration.
func DefaultPiperConfig() PiperConfig {
	return PiperConfig{
		Binary:     "piper",
		VoiceDirs:  DefaultVoiceDirs(),
		SampleRate: 22050,
		Timeout:    30 * time.Second,
	}
}

// DefaultRemoteConfig returns default remote service configuration.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		Model:             "tts-1",
		Voice:             "alloy",
		SampleRate:        24000,
		RequestsPerMinute: 60,
		MaxTextLength:     4096,
		Timeout:           30 * time.Second,
	}
}

// DefaultVoiceDirs returns the directories searched for piper voice models.
func DefaultVoiceDirs() []string {
	var dirs []string
	if env := os.Getenv("PIPER_VOICES"); env != "" {
		dirs = append(dirs, filepath.SplitList(env)...)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".local", "share", "piper-voices"))
	}
	switch runtime.GOOS {
	case "linux":
		dirs = append(dirs, filepath.Join("/usr", "share", "piper-voices"))
	case "darwin":
		dirs = append(dirs, filepath.Join("/usr", "local", "share", "piper-voices"))
	}
	return dirs
}

// SessionConfig returns the session part of the configuration.
func (c Config) SessionConfig() SessionConfig {
	return SessionConfig{
		MaxChunkLen:      c.MaxChunkLen,
		ChunkDelay:       c.ChunkDelay,
		WatchdogInterval: c.Watchdog,
	}
}

// LocalConfig returns the local backend part of the configuration.
func (c Config) LocalConfig() LocalConfig {
	return LocalConfig{
		Voice:        c.Voice,
		VoiceTimeout: c.VoiceTimeout,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	validEngines := []string{EngineAuto, EngineLocal, EngineRemote, EngineMock}
	engineValid := false
	for _, e := range validEngines {
		if strings.EqualFold(c.Engine, e) {
			engineValid = true
			c.Engine = e
			break
		}
	}
	if !engineValid {
		return fmt.Errorf("%w: engine %q must be one of %v", ErrInvalidConfig, c.Engine, validEngines)
	}

	if c.Rate < 0.25 || c.Rate > 4.0 {
		return fmt.Errorf("%w: rate must be between 0.25 and 4.0, got %.2f", ErrInvalidConfig, c.Rate)
	}
	if c.MaxChunkLen < 1 {
		return fmt.Errorf("%w: max_chunk_len must be positive, got %d", ErrInvalidConfig, c.MaxChunkLen)
	}
	if c.ChunkDelay < 0 || c.Watchdog < 0 || c.VoiceTimeout < 0 {
		return fmt.Errorf("%w: durations cannot be negative", ErrInvalidConfig)
	}

	if err := c.Piper.Validate(); err != nil {
		return fmt.Errorf("piper config: %w", err)
	}
	if c.Engine == EngineRemote && c.Remote.Endpoint == "" {
		return fmt.Errorf("remote config: %w: endpoint is required", ErrInvalidConfig)
	}
	if err := c.Remote.Validate(); err != nil {
		return fmt.Errorf("remote config: %w", err)
	}
	// auto falls back to the remote service when one is configured
	usesRemote := c.Engine == EngineRemote || (c.Engine == EngineAuto && c.Remote.Endpoint != "")
	if usesRemote && c.MaxChunkLen > c.Remote.MaxTextLength {
		return fmt.Errorf("%w: max_chunk_len %d exceeds remote max_text_length %d",
			ErrInvalidConfig, c.MaxChunkLen, c.Remote.MaxTextLength)
	}
	return nil
}

// Validate checks if the piper configuration is valid.
func (c *PiperConfig) Validate() error {
	if c.Binary == "" {
		return fmt.Errorf("%w: piper binary cannot be empty", ErrInvalidConfig)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample_rate must be positive, got %d", ErrInvalidConfig, c.SampleRate)
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("%w: timeout must be at least 1 second, got %v", ErrInvalidConfig, c.Timeout)
	}
	return nil
}

// Validate checks if the remote configuration is valid.
func (c *RemoteConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample_rate must be positive, got %d", ErrInvalidConfig, c.SampleRate)
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: requests_per_minute cannot be negative", ErrInvalidConfig)
	}
	if c.MaxTextLength < 1 {
		return fmt.Errorf("%w: max_text_length must be positive", ErrInvalidConfig)
	}
	return nil
}
