package speech

import (
	"context"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Voice acquisition defaults.
const (
	DefaultVoiceTimeout = 2 * time.Second
	DefaultVoicePoll    = 100 * time.Millisecond
)

// Voice describes a voice offered by a local engine.
type Voice struct {
	Name          string // Engine-specific identifier
	Lang          string // BCP 47 tag, e.g. "en-US"
	Provider      string // Dataset or vendor the voice belongs to
	RemoteQuality bool   // Renders at network-grade fidelity
	Path          string // Model location, if file backed
	Size          int64  // Model size in bytes, if file backed
}

// VoicePreferences drive SelectVoice.
type VoicePreferences struct {
	Lang     string `yaml:"lang" env:"LANG"`         // Target locale
	Name     string `yaml:"name" env:"NAME"`         // Preferred voice name
	Provider string `yaml:"provider" env:"PROVIDER"` // Preferred provider
}

// VoiceSource lists voices whose availability may change over time.
type VoiceSource interface {
	// Voices returns the voices available right now. The list may be empty
	// shortly after startup.
	Voices() []Voice

	// VoicesChanged is signalled when the voice list was updated. A nil
	// channel means the source never signals.
	VoicesChanged() <-chan struct{}
}

// SelectVoice picks a voice for prefs. Candidates are tried in order: the
// named voice at full quality, any voice of the preferred provider in the
// target language, an exact locale match at full quality, any exact locale
// match, then any voice of the target language. It reports false when no
// voice matches, in which case the engine default should be used.
func SelectVoice(voices []Voice, prefs VoicePreferences) (Voice, bool) {
	target, targetErr := parseLang(prefs.Lang)

	sameLocale := func(v Voice) bool {
		tag, err := parseLang(v.Lang)
		return targetErr == nil && err == nil && tag == target
	}
	sameFamily := func(v Voice) bool {
		tag, err := parseLang(v.Lang)
		if targetErr != nil || err != nil {
			return false
		}
		vb, _ := tag.Base()
		tb, _ := target.Base()
		return vb == tb
	}

	rules := []func(Voice) bool{
		func(v Voice) bool {
			return prefs.Name != "" && v.Name == prefs.Name && v.RemoteQuality
		},
		func(v Voice) bool {
			return prefs.Provider != "" && strings.EqualFold(v.Provider, prefs.Provider) && sameFamily(v)
		},
		func(v Voice) bool {
			return sameLocale(v) && v.RemoteQuality
		},
		sameLocale,
		sameFamily,
	}

	for _, match := range rules {
		for _, v := range voices {
			if match(v) {
				return v, true
			}
		}
	}
	return Voice{}, false
}

// AcquireVoices waits for src to offer voices. It polls every pollEvery and
// listens for a change notification, and returns whatever is available once
// a poll finds voices, a notification arrives, timeout elapses or ctx ends.
func AcquireVoices(ctx context.Context, src VoiceSource, timeout, pollEvery time.Duration) []Voice {
	if voices := src.Voices(); len(voices) > 0 {
		return voices
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	changed := src.VoicesChanged()
	for {
		select {
		case <-ctx.Done():
			return src.Voices()
		case <-changed:
			return src.Voices()
		case <-ticker.C:
			if voices := src.Voices(); len(voices) > 0 {
				return voices
			}
		}
	}
}

// parseLang parses a locale written either as "en-US" or "en_US".
func parseLang(s string) (language.Tag, error) {
	return language.Parse(strings.ReplaceAll(strings.TrimSpace(s), "_", "-"))
}
