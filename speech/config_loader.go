package speech

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// LoadConfigFromViper loads speech configuration from the "speech" section of
// the viper configuration, then applies READALONG_* environment overrides.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("speech.engine") {
		cfg.Engine = viper.GetString("speech.engine")
	}
	if viper.IsSet("speech.rate") {
		cfg.Rate = viper.GetFloat64("speech.rate")
	}

	// Voice preferences
	if viper.IsSet("speech.voice.lang") {
		cfg.Voice.Lang = viper.GetString("speech.voice.lang")
	}
	if viper.IsSet("speech.voice.name") {
		cfg.Voice.Name = viper.GetString("speech.voice.name")
	}
	if viper.IsSet("speech.voice.provider") {
		cfg.Voice.Provider = viper.GetString("speech.voice.provider")
	}

	// Session settings
	if viper.IsSet("speech.max_chunk_len") {
		cfg.MaxChunkLen = viper.GetInt("speech.max_chunk_len")
	}
	if viper.IsSet("speech.chunk_delay") {
		cfg.ChunkDelay = viper.GetDuration("speech.chunk_delay")
	}
	if viper.IsSet("speech.watchdog") {
		cfg.Watchdog = viper.GetDuration("speech.watchdog")
	}
	if viper.IsSet("speech.voice_timeout") {
		cfg.VoiceTimeout = viper.GetDuration("speech.voice_timeout")
	}

	cfg.Piper = loadPiperConfig(cfg.Piper)
	cfg.Remote = loadRemoteConfig(cfg.Remote)

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("invalid environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid speech configuration: %w", err)
	}
	return cfg, nil
}

func loadPiperConfig(cfg PiperConfig) PiperConfig {
	if viper.IsSet("speech.piper.binary") {
		cfg.Binary = viper.GetString("speech.piper.binary")
	}
	if viper.IsSet("speech.piper.model") {
		cfg.Model = viper.GetString("speech.piper.model")
	}
	if viper.IsSet("speech.piper.voice_dirs") {
		cfg.VoiceDirs = viper.GetStringSlice("speech.piper.voice_dirs")
	}
	if viper.IsSet("speech.piper.sample_rate") {
		cfg.SampleRate = viper.GetInt("speech.piper.sample_rate")
	}
	if viper.IsSet("speech.piper.timeout") {
		cfg.Timeout = viper.GetDuration("speech.piper.timeout")
	}
	return cfg
}

func loadRemoteConfig(cfg RemoteConfig) RemoteConfig {
	if viper.IsSet("speech.remote.endpoint") {
		cfg.Endpoint = viper.GetString("speech.remote.endpoint")
	}
	if viper.IsSet("speech.remote.api_key") {
		cfg.APIKey = viper.GetString("speech.remote.api_key")
	}
	if viper.IsSet("speech.remote.model") {
		cfg.Model = viper.GetString("speech.remote.model")
	}
	if viper.IsSet("speech.remote.voice") {
		cfg.Voice = viper.GetString("speech.remote.voice")
	}
	if viper.IsSet("speech.remote.sample_rate") {
		cfg.SampleRate = viper.GetInt("speech.remote.sample_rate")
	}
	if viper.IsSet("speech.remote.requests_per_minute") {
		cfg.RequestsPerMinute = viper.GetInt("speech.remote.requests_per_minute")
	}
	if viper.IsSet("speech.remote.max_text_length") {
		cfg.MaxTextLength = viper.GetInt("speech.remote.max_text_length")
	}
	if viper.IsSet("speech.remote.timeout") {
		cfg.Timeout = viper.GetDuration("speech.remote.timeout")
	}
	return cfg
}

// SetDefaults registers the speech defaults with viper.
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("speech.engine", defaults.Engine)
	viper.SetDefault("speech.rate", defaults.Rate)
	viper.SetDefault("speech.voice.lang", defaults.Voice.Lang)
	viper.SetDefault("speech.voice.provider", defaults.Voice.Provider)
	viper.SetDefault("speech.max_chunk_len", defaults.MaxChunkLen)
	viper.SetDefault("speech.chunk_delay", defaults.ChunkDelay)
	viper.SetDefault("speech.watchdog", defaults.Watchdog)
	viper.SetDefault("speech.voice_timeout", defaults.VoiceTimeout)

	viper.SetDefault("speech.piper.binary", defaults.Piper.Binary)
	viper.SetDefault("speech.piper.sample_rate", defaults.Piper.SampleRate)
	viper.SetDefault("speech.piper.timeout", defaults.Piper.Timeout)

	viper.SetDefault("speech.remote.model", defaults.Remote.Model)
	viper.SetDefault("speech.remote.voice", defaults.Remote.Voice)
	viper.SetDefault("speech.remote.sample_rate", defaults.Remote.SampleRate)
	viper.SetDefault("speech.remote.requests_per_minute", defaults.Remote.RequestsPerMinute)
	viper.SetDefault("speech.remote.max_text_length", defaults.Remote.MaxTextLength)
	viper.SetDefault("speech.remote.timeout", defaults.Remote.Timeout)
}
