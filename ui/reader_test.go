package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dgnsrekt/readalong/speech"
)

type speakCall struct {
	text       string
	onProgress func(int)
	onEnd      func()
}

type fakeSpeaker struct {
	calls    []speakCall
	cancels  int
	progress bool
}

func (f *fakeSpeaker) Speak(text string, _ float64, onProgress func(int), onEnd func()) uint64 {
	f.calls = append(f.calls, speakCall{text: text, onProgress: onProgress, onEnd: onEnd})
	return uint64(len(f.calls))
}

func (f *fakeSpeaker) Cancel()               { f.cancels++ }
func (f *fakeSpeaker) ReportsProgress() bool { return f.progress }
func (f *fakeSpeaker) Kind() speech.Kind     { return speech.KindLocal }

func (f *fakeSpeaker) last(t *testing.T) speakCall {
	t.Helper()
	if len(f.calls) == 0 {
		t.Fatal("Speak was never called")
	}
	return f.calls[len(f.calls)-1]
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// drain returns the next queued session event.
func drain(t *testing.T, m Model) tea.Msg {
	t.Helper()
	select {
	case msg := <-m.events:
		return msg
	default:
		t.Fatal("no session event queued")
		return nil
	}
}

func keyMsg(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestProgressHighlightsWord(t *testing.T) {
	sp := &fakeSpeaker{progress: true}
	m := NewModel(Config{Width: 80}, sp, "Hello big world")
	m = update(t, m, startMsg{})

	if !m.speaking {
		t.Fatal("expected the view to be speaking after start")
	}

	sp.last(t).onProgress(6)
	m = update(t, m, drain(t, m))

	if got := m.tracker.Active(); got != 2 {
		t.Errorf("active token = %d, want 2 (\"big\")", got)
	}
	if m.tracker.Phase(0) != speech.PhasePast {
		t.Errorf("first word should be past, got %s", m.tracker.Phase(0))
	}
}

func TestStaleRequestIgnored(t *testing.T) {
	sp := &fakeSpeaker{progress: true}
	m := NewModel(Config{}, sp, "one two three")
	m = update(t, m, startMsg{})
	first := sp.last(t)

	// stop, then start again
	m = update(t, m, keyMsg(" "))
	m = update(t, m, keyMsg(" "))
	if len(sp.calls) != 2 {
		t.Fatalf("expected 2 speak calls, got %d", len(sp.calls))
	}
	if sp.cancels != 1 {
		t.Errorf("expected 1 cancel, got %d", sp.cancels)
	}

	first.onProgress(8)
	m = update(t, m, drain(t, m))
	if got := m.tracker.Active(); got != -1 {
		t.Errorf("stale progress moved highlight to %d", got)
	}

	first.onEnd()
	m = update(t, m, drain(t, m))
	if !m.speaking {
		t.Error("stale end should not stop the current request")
	}
}

func TestEndLoopsWhenEnabled(t *testing.T) {
	tests := []struct {
		name      string
		loop      bool
		wantCalls int
	}{
		{"no loop", false, 1},
		{"loop", true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := &fakeSpeaker{progress: true}
			m := NewModel(Config{Loop: tt.loop}, sp, "again and again")
			m = update(t, m, startMsg{})

			sp.last(t).onEnd()
			m = update(t, m, drain(t, m))

			if len(sp.calls) != tt.wantCalls {
				t.Errorf("speak calls = %d, want %d", len(sp.calls), tt.wantCalls)
			}
			if m.speaking != tt.loop {
				t.Errorf("speaking = %v, want %v", m.speaking, tt.loop)
			}
		})
	}
}

func TestLoopSkipsEmptyText(t *testing.T) {
	sp := &fakeSpeaker{}
	m := NewModel(Config{Loop: true}, sp, "  ... ")
	m = update(t, m, startMsg{})
	sp.last(t).onEnd()
	m = update(t, m, drain(t, m))

	if len(sp.calls) != 1 {
		t.Errorf("expected no restart for text without words, got %d calls", len(sp.calls))
	}
}

func TestLoopKeyToggles(t *testing.T) {
	m := NewModel(Config{}, &fakeSpeaker{}, "text")
	m = update(t, m, keyMsg("l"))
	if !m.loop {
		t.Error("l should enable looping")
	}
	m = update(t, m, keyMsg("l"))
	if m.loop {
		t.Error("second l should disable looping")
	}
}

func TestQuitCancels(t *testing.T) {
	sp := &fakeSpeaker{}
	m := NewModel(Config{}, sp, "text")
	m = update(t, m, startMsg{})

	next, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if sp.cancels != 1 {
		t.Errorf("expected cancel on quit, got %d", sp.cancels)
	}

	// callbacks after quit must not block
	sp.last(t).onEnd()
	for range eventBuffer {
		sp.last(t).onProgress(0)
	}
	_ = next
}

func TestViewShowsStatus(t *testing.T) {
	sp := &fakeSpeaker{progress: false}
	m := NewModel(Config{Title: "notes.md", Width: 40}, sp, "Read me aloud")
	view := m.View()

	for _, want := range []string{"Read", "aloud", "notes.md", "no word timing"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestCopyShowsStatus(t *testing.T) {
	sp := &fakeSpeaker{progress: true}
	m := NewModel(Config{Width: 80}, sp, "Copy me")

	m = update(t, m, keyMsg("c"))
	if !strings.Contains(m.View(), "Copied text") {
		t.Errorf("status missing after copy:\n%s", m.View())
	}

	m = update(t, m, clearStatusMsg{})
	if strings.Contains(m.View(), "Copied text") {
		t.Error("status should clear after the timeout")
	}
}

func TestLongTitleTruncated(t *testing.T) {
	title := strings.Repeat("chapter-", 10) + "end.md"
	m := NewModel(Config{Title: title}, &fakeSpeaker{}, "Text")

	view := m.View()
	if strings.Contains(view, "end.md") {
		t.Errorf("title should be truncated:\n%s", view)
	}
	if !strings.Contains(view, "chapter-chapter-") || !strings.Contains(view, "…") {
		t.Errorf("truncated title missing:\n%s", view)
	}
}
