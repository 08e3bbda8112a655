package piper

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readalong/speech"
	"github.com/fsnotify/fsnotify"
)

// debounce coalesces bursts of file events into one rescan.
const debounce = 250 * time.Millisecond

// Voice quality levels used in piper model names.
const (
	QualityXLow   = "x_low"
	QualityLow    = "low"
	QualityMedium = "medium"
	QualityHigh   = "high"
)

// ParseVoiceName splits a piper model name such as "en_US-lessac-medium"
// into its locale, dataset and quality.
func ParseVoiceName(name string) (lang, dataset, quality string, ok bool) {
	name = strings.TrimSuffix(filepath.Base(name), ".onnx")
	parts := strings.Split(name, "-")
	if len(parts) < 3 {
		return "", "", "", false
	}
	lang = strings.ReplaceAll(parts[0], "_", "-")
	quality = parts[len(parts)-1]
	dataset = strings.Join(parts[1:len(parts)-1], "-")
	return lang, dataset, quality, lang != "" && dataset != ""
}

// voiceFromPath describes the model at path.
func voiceFromPath(path string, size int64) speech.Voice {
	name := strings.TrimSuffix(filepath.Base(path), ".onnx")
	v := speech.Voice{Name: name, Path: path, Size: size}
	if lang, dataset, quality, ok := ParseVoiceName(name); ok {
		v.Lang = lang
		v.Provider = dataset
		v.RemoteQuality = quality == QualityMedium || quality == QualityHigh
	}
	return v
}

// Catalog lists the piper models found in a set of directories and signals
// when the set changes.
type Catalog struct {
	dirs []string
	log  *log.Logger

	mu      sync.RWMutex
	voices  []speech.Voice
	changed chan struct{}

	watcher   *fsnotify.Watcher
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewCatalog creates an empty catalog over dirs. Call Scan or Watch to fill it.
func NewCatalog(dirs []string, logger *log.Logger) *Catalog {
	if logger == nil {
		logger = log.Default().WithPrefix("piper")
	}
	return &Catalog{
		dirs:    dirs,
		log:     logger,
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Voices implements speech.VoiceSource.
func (c *Catalog) Voices() []speech.Voice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]speech.Voice, len(c.voices))
	copy(out, c.voices)
	return out
}

// VoicesChanged implements speech.VoiceSource.
func (c *Catalog) VoicesChanged() <-chan struct{} {
	return c.changed
}

// Lookup returns the voice with the given name.
func (c *Catalog) Lookup(name string) (speech.Voice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, v := range c.voices {
		if v.Name == name {
			return v, true
		}
	}
	return speech.Voice{}, false
}

// Scan rereads the model directories and signals VoicesChanged when the list
// differs from the previous one.
func (c *Catalog) Scan() {
	var voices []speech.Voice
	seen := make(map[string]bool)
	for _, dir := range c.dirs {
		_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return filepath.SkipDir
			}
			if d.IsDir() {
				if depth(dir, path) > 2 {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) != ".onnx" {
				return nil
			}
			v := voiceFromPath(path, 0)
			if seen[v.Name] {
				return nil
			}
			if info, err := d.Info(); err == nil {
				v.Size = info.Size()
			}
			seen[v.Name] = true
			voices = append(voices, v)
			return nil
		})
	}
	sort.Slice(voices, func(i, j int) bool { return voices[i].Name < voices[j].Name })

	c.mu.Lock()
	changed := !sameVoices(c.voices, voices)
	c.voices = voices
	c.mu.Unlock()

	if changed {
		c.log.Debug("voice list updated", "count", len(voices))
		select {
		case c.changed <- struct{}{}:
		default:
		}
	}
}

// Watch scans in the background and rescans whenever a model file appears
// or disappears.
func (c *Catalog) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		go c.Scan()
		return err
	}
	for _, dir := range c.dirs {
		if err := watcher.Add(dir); err != nil {
			c.log.Debug("not watching voice directory", "dir", dir, "err", err)
		}
	}
	c.watcher = watcher

	go c.Scan()
	c.wg.Add(1)
	go c.watch(watcher)
	return nil
}

func (c *Catalog) watch(w *fsnotify.Watcher) {
	defer c.wg.Done()
	var timer *time.Timer
	for {
		select {
		case <-c.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Ext(ev.Name) != ".onnx" && !ev.Has(fsnotify.Create) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = w.Add(ev.Name)
				}
			}
			if timer == nil {
				timer = time.AfterFunc(debounce, c.Scan)
			} else {
				timer.Reset(debounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			c.log.Warn("voice watcher error", "err", err)
		}
	}
}

// Close stops watching and waits for the watch loop to exit. It is safe to
// call more than once.
func (c *Catalog) Close() error {
	if c.watcher == nil {
		return nil
	}
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.watcher.Close()
		c.wg.Wait()
	})
	return err
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

func sameVoices(a, b []speech.Voice) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Path != b[i].Path {
			return false
		}
	}
	return true
}

var _ speech.VoiceSource = (*Catalog)(nil)
