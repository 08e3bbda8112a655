package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/readalong/internal/content"
	"github.com/dgnsrekt/readalong/speech"
	"github.com/dgnsrekt/readalong/speech/engines/mock"
)

func TestIsMarkdownFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"README.md", true},
		{"notes.MARKDOWN", true},
		{"a/b/c.mkd", true},
		{"story.txt", false},
		{"md", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isMarkdownFile(tt.path); got != tt.want {
			t.Errorf("isMarkdownFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestReadSource(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "notes.md")
	txt := filepath.Join(dir, "story.txt")
	if err := os.WriteFile(md, []byte("# Hello\n\nWorld *here*\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(txt, []byte("# not a heading"), 0o600); err != nil {
		t.Fatal(err)
	}

	text, title, err := readSource(md)
	if err != nil {
		t.Fatal(err)
	}
	if text != "Hello. World here." || title != "notes.md" {
		t.Errorf("readSource(md) = %q, %q", text, title)
	}

	text, title, err = readSource(txt)
	if err != nil {
		t.Fatal(err)
	}
	if text != "# not a heading" || title != "story.txt" {
		t.Errorf("readSource(txt) = %q, %q", text, title)
	}

	if _, _, err := readSource(filepath.Join(dir, "missing.md")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestReadSourceDirectory(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	if _, _, err := readSource(dir); err == nil {
		t.Error("expected an error for a directory without markdown")
	}

	write("b.md", "Second file")
	write("a.md", "First file")
	text, title, err := readSource(dir)
	if err != nil {
		t.Fatal(err)
	}
	if title != "a.md" || text != "First file." {
		t.Errorf("readSource(dir) = %q, %q, want the first markdown file", text, title)
	}

	write(filepath.Join("docs", "README.md"), "# Read me")
	text, title, err = readSource(dir)
	if err != nil {
		t.Fatal(err)
	}
	if title != "README.md" || text != "Read me." {
		t.Errorf("readSource(dir) = %q, %q, want the readme", text, title)
	}
}

func TestReadSourceURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/notes.md" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("# Remote\n\nSome `code` here"))
	}))
	defer srv.Close()

	text, title, err := readSource(srv.URL + "/notes.md")
	if err != nil {
		t.Fatal(err)
	}
	if text != "Remote. Some code here." || title != srv.URL+"/notes.md" {
		t.Errorf("readSource(url) = %q, %q", text, title)
	}

	if _, _, err := readSource(srv.URL + "/missing.md"); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected an HTTP status error, got %v", err)
	}
	if _, _, err := readSource("ftp://example.com/notes.md"); err == nil {
		t.Error("expected an error for an unsupported protocol")
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("READALONG_TEST_DIR", "/srv/voices")
	if got := expandPath("$READALONG_TEST_DIR/en"); got != "/srv/voices/en" {
		t.Errorf("expandPath = %q", got)
	}
	if got := expandPath("~/voices"); strings.HasPrefix(got, "~") {
		t.Errorf("home directory not expanded: %q", got)
	}
	if got := expandPath("plain/path"); got != "plain/path" {
		t.Errorf("expandPath = %q", got)
	}
}

func TestJoinSentences(t *testing.T) {
	tests := []struct {
		name  string
		items []string
		want  string
	}{
		{"words get periods", []string{"apple", "pear"}, "apple.\npear."},
		{"punctuation kept", []string{"Really?", "Yes!", "Well…", "はい。"}, "Really?\nYes!\nWell…\nはい。"},
		{"blank items skipped", []string{"  one  ", "", " \n", "two."}, "one.\ntwo."},
		{"nothing", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinSentences(tt.items); got != tt.want {
				t.Errorf("joinSentences(%q) = %q, want %q", tt.items, got, tt.want)
			}
		})
	}
}

func TestJoinSentencesChunksPerItem(t *testing.T) {
	// every item ends a sentence, so short items never merge mid-word
	chunks := speech.Segment(joinSentences([]string{"apple", "pear"}), 6)
	if len(chunks) != 2 || chunks[0].Text != "apple." || chunks[1].Text != "pear." {
		t.Errorf("unexpected chunks %+v", chunks)
	}
}

func TestPrintTokens(t *testing.T) {
	var buf bytes.Buffer
	if err := printTokens(&buf, "Hi, Bob! Bye.", 9); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"    0     2  Hi\n",
		"    4     7  Bob\n",
		"    9    12  Bye\n",
		"chunk 0",
		`"Hi, Bob!"`,
		"chunk 1",
		`"Bye."`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestPrintVoices(t *testing.T) {
	voices := append(mock.New().Voices(), speech.Voice{Name: "en_US-big-high", Lang: "en-US", Size: 63_000_000})

	pick, ok := speech.SelectVoice(voices, speech.VoicePreferences{Lang: "en-GB"})
	var buf bytes.Buffer
	if err := printVoices(&buf, voices, pick, ok); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %q", lines)
	}
	if !strings.Contains(lines[1], "* ") || !strings.Contains(lines[1], "mock-alan") {
		t.Errorf("en-GB voice should be marked: %q", lines[1])
	}
	if strings.Contains(lines[0], "* ") {
		t.Errorf("only one voice should be marked: %q", lines[0])
	}
	if !strings.Contains(lines[2], "63 MB") {
		t.Errorf("size not shown: %q", lines[2])
	}

	buf.Reset()
	if err := printVoices(&buf, nil, speech.Voice{}, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No voices found.") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestFilterVoices(t *testing.T) {
	voices := []speech.Voice{
		{Name: "en_US-lessac-medium"},
		{Name: "en_GB-alan-low"},
		{Name: "de_DE-thorsten-high"},
	}

	got := filterVoices(voices, "alan")
	if len(got) != 1 || got[0].Name != "en_GB-alan-low" {
		t.Errorf("filterVoices(alan) = %+v", got)
	}
	if got := filterVoices(voices, "en"); len(got) < 2 {
		t.Errorf("filterVoices(en) = %+v, want at least 2 matches", got)
	}
	if got := filterVoices(voices, "zzz"); len(got) != 0 {
		t.Errorf("filterVoices(zzz) = %+v", got)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	var buf bytes.Buffer
	if err := writeDefaultConfig(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "# readalong configuration") {
		t.Error("config should start with the header")
	}

	var got fileConfig
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("written config does not parse: %v", err)
	}
	want := defaultFileConfig()
	if got.Width != want.Width || got.Speech.Engine != want.Speech.Engine || got.Speech.ChunkDelay != want.Speech.ChunkDelay {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("viper cannot read the config: %v", err)
	}
	if v.GetString("speech.engine") != speech.EngineAuto {
		t.Errorf("speech.engine = %q", v.GetString("speech.engine"))
	}
	if v.GetDuration("speech.watchdog") != want.Speech.Watchdog {
		t.Errorf("speech.watchdog = %v", v.GetDuration("speech.watchdog"))
	}
}

func TestEnsureConfigFile(t *testing.T) {
	old := configFile
	t.Cleanup(func() { configFile = old })

	configFile = filepath.Join(t.TempDir(), "nested", "readalong.yml")
	if err := ensureConfigFile(); err != nil {
		t.Fatalf("ensureConfigFile() error = %v", err)
	}
	b, err := os.ReadFile(configFile)
	if err != nil || !bytes.Contains(b, []byte("speech:")) {
		t.Errorf("default config not written: %v\n%s", err, b)
	}

	configFile = filepath.Join(t.TempDir(), "readalong.toml")
	if err := ensureConfigFile(); err == nil {
		t.Error("expected an error for a toml config")
	}
}

// plainSpeaker replays scripted offsets on its own goroutine.
type plainSpeaker struct {
	offsets  []int
	progress bool
	endless  bool

	mu      sync.Mutex
	cancels int
}

func (s *plainSpeaker) Speak(_ string, _ float64, onProgress func(int), onEnd func()) uint64 {
	go func() {
		for _, off := range s.offsets {
			onProgress(off)
		}
		if !s.endless {
			onEnd()
		}
	}()
	return 1
}

func (s *plainSpeaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels++
}

func (s *plainSpeaker) ReportsProgress() bool { return s.progress }

func TestRunPlain(t *testing.T) {
	tests := []struct {
		name    string
		speaker *plainSpeaker
		want    string
	}{
		{
			name:    "one word per line",
			speaker: &plainSpeaker{offsets: []int{0, 2, 4, 7}, progress: true},
			want:    "Hi\nBob\n",
		},
		{
			name:    "no progress prints the text",
			speaker: &plainSpeaker{},
			want:    "Hi, Bob!\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := runPlain(context.Background(), tt.speaker, "Hi, Bob!", 1, &buf); err != nil {
				t.Fatal(err)
			}
			if buf.String() != tt.want {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestRunPlainCancelled(t *testing.T) {
	s := &plainSpeaker{endless: true, progress: true}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := runPlain(ctx, s, "Never ends.", 1, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancels != 1 {
		t.Errorf("Cancel called %d times, want 1", s.cancels)
	}
}

func TestRunPlainWithMockSession(t *testing.T) {
	eng := mock.New()
	session := speech.NewSession(
		speech.NewLocalBackend(eng, speech.LocalConfig{Voice: speech.VoicePreferences{Lang: "en-US"}}),
		speech.SessionConfig{MaxChunkLen: 12},
	)

	var buf bytes.Buffer
	if err := runPlain(context.Background(), session, "One two. Three four.", 1, &buf); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "One\ntwo\nThree\nfour\n" {
		t.Errorf("output = %q", got)
	}
}

func TestImportUnitFile(t *testing.T) {
	ctx := context.Background()
	store, err := content.Open(ctx, filepath.Join(t.TempDir(), "readalong.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close() //nolint:errcheck

	good := `title: Colors
words:
  - term: red
    meaning: rot
  - term: blue
sentences:
  - text: The sky is blue.
texts:
  - title: Rainbow
    body: A rainbow has many colors.
`
	var file unitFile
	if err := yaml.Unmarshal([]byte(good), &file); err != nil {
		t.Fatal(err)
	}
	id, err := importUnit(ctx, store, file)
	if err != nil {
		t.Fatalf("importUnit() error = %v", err)
	}
	words, err := content.Speakable(ctx, store, id, content.KindWords)
	if err != nil || strings.Join(words, ",") != "red,blue" {
		t.Errorf("words = %v, %v", words, err)
	}

	bad := `title: Half
words:
  - term: kept
sentences:
  - text: ""
`
	file = unitFile{}
	if err := yaml.Unmarshal([]byte(bad), &file); err != nil {
		t.Fatal(err)
	}
	if _, err := importUnit(ctx, store, file); err == nil {
		t.Fatal("expected an error for an empty sentence")
	}
	if _, err := store.Unit(ctx, id+1); err == nil {
		t.Error("a failed import should not leave a unit behind")
	}
}
