package speech_test

import (
	"context"
	"testing"
	"time"

	"github.com/dgnsrekt/readalong/speech"
	"github.com/dgnsrekt/readalong/speech/engines/mock"
)

func TestSelectVoice(t *testing.T) {
	voices := []speech.Voice{
		{Name: "en_GB-alan-low", Lang: "en_GB", Provider: "alan"},
		{Name: "en_US-ryan-low", Lang: "en_US", Provider: "ryan"},
		{Name: "en_US-amy-medium", Lang: "en_US", Provider: "amy", RemoteQuality: true},
		{Name: "de_DE-thorsten-high", Lang: "de_DE", Provider: "thorsten", RemoteQuality: true},
		{Name: "fr_FR-siwis-low", Lang: "fr-FR", Provider: "siwis"},
	}

	tests := []struct {
		name   string
		voices []speech.Voice
		prefs  speech.VoicePreferences
		want   string
		ok     bool
	}{
		{
			name:  "named high quality voice wins",
			prefs: speech.VoicePreferences{Lang: "en-US", Name: "de_DE-thorsten-high"},
			want:  "de_DE-thorsten-high",
			ok:    true,
		},
		{
			name:  "named low quality voice is skipped",
			prefs: speech.VoicePreferences{Lang: "en-US", Name: "en_GB-alan-low"},
			want:  "en_US-amy-medium",
			ok:    true,
		},
		{
			name:  "provider in language family",
			prefs: speech.VoicePreferences{Lang: "en-US", Provider: "alan"},
			want:  "en_GB-alan-low",
			ok:    true,
		},
		{
			name:  "provider outside language family is skipped",
			prefs: speech.VoicePreferences{Lang: "en-US", Provider: "thorsten"},
			want:  "en_US-amy-medium",
			ok:    true,
		},
		{
			name: "exact locale at full quality before low fidelity",
			voices: []speech.Voice{
				{Name: "low", Lang: "en-US"},
				{Name: "high", Lang: "en-US", RemoteQuality: true},
			},
			prefs: speech.VoicePreferences{Lang: "en_US"},
			want:  "high",
			ok:    true,
		},
		{
			name:  "exact locale at any quality",
			prefs: speech.VoicePreferences{Lang: "fr-FR"},
			want:  "fr_FR-siwis-low",
			ok:    true,
		},
		{
			name:  "language family fallback",
			prefs: speech.VoicePreferences{Lang: "de-AT"},
			want:  "de_DE-thorsten-high",
			ok:    true,
		},
		{
			name:  "no match",
			prefs: speech.VoicePreferences{Lang: "ja-JP"},
			ok:    false,
		},
		{
			name:   "no voices",
			voices: []speech.Voice{},
			prefs:  speech.VoicePreferences{Lang: "en-US"},
			ok:     false,
		},
		{
			name:  "unparsable language",
			prefs: speech.VoicePreferences{Lang: "??"},
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list := voices
			if tt.voices != nil {
				list = tt.voices
			}
			got, ok := speech.SelectVoice(list, tt.prefs)
			if ok != tt.ok {
				t.Fatalf("SelectVoice ok = %v, want %v (got %q)", ok, tt.ok, got.Name)
			}
			if ok && got.Name != tt.want {
				t.Errorf("SelectVoice = %q, want %q", got.Name, tt.want)
			}
		})
	}
}

func TestAcquireVoices(t *testing.T) {
	t.Run("available immediately", func(t *testing.T) {
		eng := mock.New()
		voices := speech.AcquireVoices(context.Background(), eng, time.Second, time.Millisecond)
		if len(voices) != 2 {
			t.Errorf("expected 2 voices, got %d", len(voices))
		}
	})

	t.Run("change notification", func(t *testing.T) {
		eng := mock.New()
		eng.SetVoices(nil)
		<-eng.VoicesChanged() // drain the signal of the reset

		go func() {
			time.Sleep(20 * time.Millisecond)
			eng.SetVoices([]speech.Voice{{Name: "late", Lang: "en-US"}})
		}()

		start := time.Now()
		voices := speech.AcquireVoices(context.Background(), eng, 5*time.Second, time.Hour)
		if len(voices) != 1 || voices[0].Name != "late" {
			t.Errorf("expected the late voice, got %+v", voices)
		}
		if time.Since(start) > 2*time.Second {
			t.Error("acquisition should end on the notification, not the timeout")
		}
	})

	t.Run("timeout with no voices", func(t *testing.T) {
		eng := mock.New()
		eng.SetVoices(nil)
		<-eng.VoicesChanged()

		start := time.Now()
		voices := speech.AcquireVoices(context.Background(), eng, 50*time.Millisecond, 10*time.Millisecond)
		if len(voices) != 0 {
			t.Errorf("expected no voices, got %d", len(voices))
		}
		if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
			t.Errorf("returned after %v, before the timeout", elapsed)
		}
	})
}
