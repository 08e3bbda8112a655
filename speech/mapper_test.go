package speech_test

import (
	"testing"

	"github.com/dgnsrekt/readalong/speech"
)

func TestResolveActiveToken(t *testing.T) {
	// "Hi" ", " "Bob" "!"
	tokens := speech.Tokenize("Hi, Bob!")

	tests := []struct {
		offset int
		want   int
	}{
		{-1, -1},
		{0, 0},
		{1, 0},
		{2, 2}, // comma looks ahead to Bob
		{3, 2}, // space looks ahead to Bob
		{4, 2},
		{6, 2},
		{7, 2}, // trailing "!" falls back to the last word
		{100, 2},
	}

	for _, tt := range tests {
		if got := speech.ResolveActiveToken(tokens, tt.offset); got != tt.want {
			t.Errorf("ResolveActiveToken(%d) = %d, want %d", tt.offset, got, tt.want)
		}
	}
}

func TestResolveActiveTokenNoWords(t *testing.T) {
	for _, text := range []string{"", "...", " - "} {
		tokens := speech.Tokenize(text)
		for offset := 0; offset <= len(text)+1; offset++ {
			if got := speech.ResolveActiveToken(tokens, offset); got != -1 {
				t.Errorf("%q offset %d: got %d, want -1", text, offset, got)
			}
		}
	}
}

func TestResolveActiveTokenProperties(t *testing.T) {
	texts := []string{
		"Hello, world! How are you?",
		"  leading space and trailing...  ",
		"«Quoted» — dashes – and… ellipses",
		"one",
		"日本語の 文章 です。",
	}

	for _, text := range texts {
		tokens := speech.Tokenize(text)
		prev := -1
		for offset := -1; offset <= len(text)+2; offset++ {
			got := speech.ResolveActiveToken(tokens, offset)
			if got < prev {
				t.Errorf("%q: offset %d resolved to %d, below %d for a smaller offset", text, offset, got, prev)
			}
			prev = got
			if got >= 0 && !tokens[got].IsWord {
				t.Errorf("%q: offset %d resolved to non-word %q", text, offset, tokens[got].Text)
			}
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		i, active int
		want      speech.Phase
	}{
		{0, -1, speech.PhaseFuture},
		{3, -1, speech.PhaseFuture},
		{0, 2, speech.PhasePast},
		{2, 2, speech.PhaseActive},
		{3, 2, speech.PhaseFuture},
	}
	for _, tt := range tests {
		if got := speech.Classify(tt.i, tt.active); got != tt.want {
			t.Errorf("Classify(%d, %d) = %s, want %s", tt.i, tt.active, got, tt.want)
		}
	}
}

func TestTracker(t *testing.T) {
	tr := speech.NewTracker(speech.Tokenize("A. B. C."))
	if tr.Active() != -1 {
		t.Fatalf("new tracker active = %d", tr.Active())
	}

	steps := []struct {
		offset      int
		wantActive  int
		wantChanged bool
	}{
		{0, 0, true},
		{0, 0, false},
		{1, 2, true},
		{3, 2, false},
		{6, 4, true},
	}
	for _, s := range steps {
		got, changed := tr.Update(s.offset)
		if got != s.wantActive || changed != s.wantChanged {
			t.Errorf("Update(%d) = (%d, %v), want (%d, %v)", s.offset, got, changed, s.wantActive, s.wantChanged)
		}
	}

	if tr.Phase(0) != speech.PhasePast || tr.Phase(4) != speech.PhaseActive || tr.Phase(5) != speech.PhaseFuture {
		t.Errorf("unexpected phases %s %s %s", tr.Phase(0), tr.Phase(4), tr.Phase(5))
	}

	tr.Reset()
	if tr.Active() != -1 || tr.Phase(0) != speech.PhaseFuture {
		t.Error("Reset should clear the active token")
	}
}
