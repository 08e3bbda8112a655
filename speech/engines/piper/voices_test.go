package piper_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgnsrekt/readalong/speech/engines/piper"
)

func TestParseVoiceName(t *testing.T) {
	tests := []struct {
		name                   string
		lang, dataset, quality string
		ok                     bool
	}{
		{"en_US-lessac-medium", "en-US", "lessac", "medium", true},
		{"/voices/de_DE-thorsten-high.onnx", "de-DE", "thorsten", "high", true},
		{"en_GB-southern_english_female-low", "en-GB", "southern_english_female", "low", true},
		{"en_US-libritts_r-x_low", "en-US", "libritts_r", "x_low", true},
		{"custom", "", "", "", false},
		{"en_US-medium", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lang, dataset, quality, ok := piper.ParseVoiceName(tt.name)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if lang != tt.lang || dataset != tt.dataset || quality != tt.quality {
				t.Errorf("got (%q, %q, %q), want (%q, %q, %q)", lang, dataset, quality, tt.lang, tt.dataset, tt.quality)
			}
		})
	}
}

func writeModel(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCatalogScan(t *testing.T) {
	dir, other := t.TempDir(), t.TempDir()
	writeModel(t, filepath.Join(dir, "en_US-lessac-medium.onnx"), 3)
	writeModel(t, filepath.Join(dir, "en", "en_GB-alan-low.onnx"), 5)
	writeModel(t, filepath.Join(dir, "a", "b", "c", "fr_FR-siwis-low.onnx"), 1)
	writeModel(t, filepath.Join(dir, "notes.txt"), 1)
	writeModel(t, filepath.Join(other, "en_US-lessac-medium.onnx"), 7)

	c := piper.NewCatalog([]string{dir, other, filepath.Join(dir, "missing")}, nil)
	c.Scan()

	voices := c.Voices()
	if len(voices) != 2 {
		t.Fatalf("expected 2 voices, got %+v", voices)
	}
	alan, lessac := voices[0], voices[1]
	if alan.Name != "en_GB-alan-low" || alan.Lang != "en-GB" || alan.RemoteQuality || alan.Size != 5 {
		t.Errorf("unexpected voice %+v", alan)
	}
	if lessac.Name != "en_US-lessac-medium" || !lessac.RemoteQuality || lessac.Size != 3 {
		t.Errorf("unexpected voice %+v", lessac)
	}
	if lessac.Path != filepath.Join(dir, "en_US-lessac-medium.onnx") {
		t.Errorf("first directory should win, got %s", lessac.Path)
	}

	select {
	case <-c.VoicesChanged():
	default:
		t.Error("first scan should signal a change")
	}
	c.Scan()
	select {
	case <-c.VoicesChanged():
		t.Error("unchanged rescan should not signal")
	default:
	}

	if _, ok := c.Lookup("en_GB-alan-low"); !ok {
		t.Error("Lookup should find en_GB-alan-low")
	}
	if _, ok := c.Lookup("fr_FR-siwis-low"); ok {
		t.Error("models below the depth limit should be ignored")
	}
}

func TestCatalogWatch(t *testing.T) {
	dir := t.TempDir()
	c := piper.NewCatalog([]string{dir}, nil)
	if err := c.Watch(); err != nil {
		t.Skipf("file watching unavailable: %v", err)
	}
	defer c.Close()

	// let the initial scan of the empty directory finish
	time.Sleep(50 * time.Millisecond)

	writeModel(t, filepath.Join(dir, "en_US-amy-medium.onnx"), 2)

	select {
	case <-c.VoicesChanged():
	case <-time.After(3 * time.Second):
		t.Fatal("no change signalled for a new model")
	}
	if _, ok := c.Lookup("en_US-amy-medium"); !ok {
		t.Errorf("new model not listed: %+v", c.Voices())
	}
}

func TestCatalogCloseWhileDirectoriesAppear(t *testing.T) {
	for i := 0; i < 30; i++ {
		dir := t.TempDir()
		c := piper.NewCatalog([]string{dir}, nil)
		if err := c.Watch(); err != nil {
			t.Skipf("file watching unavailable: %v", err)
		}

		stop := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			for n := 0; ; n++ {
				select {
				case <-stop:
					return
				default:
				}
				_ = os.Mkdir(filepath.Join(dir, fmt.Sprintf("d%d", n)), 0o755)
			}
		}()

		time.Sleep(time.Millisecond)
		if err := c.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
		if err := c.Close(); err != nil {
			t.Errorf("second Close: %v", err)
		}
		close(stop)
		<-done
	}
}
