package speech

// Phase classifies a token relative to the word being spoken.
type Phase int

const (
	// PhaseFuture marks a token that has not been spoken yet.
	PhaseFuture Phase = iota
	// PhaseActive marks the token being spoken.
	PhaseActive
	// PhasePast marks a token that has already been spoken.
	PhasePast
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseFuture:
		return "future"
	case PhaseActive:
		return "active"
	case PhasePast:
		return "past"
	default:
		return "unknown"
	}
}

// ResolveActiveToken returns the index of the word token being spoken at
// offset, or -1 when offset is negative or tokens hold no word. An offset on
// whitespace or punctuation resolves to the next word, or to the last word
// when no word follows. The result never decreases as offset grows.
func ResolveActiveToken(tokens []Token, offset int) int {
	if offset < 0 {
		return -1
	}

	i := 0
	for i < len(tokens) && tokens[i].End <= offset {
		i++
	}
	for j := i; j < len(tokens); j++ {
		if tokens[j].IsWord {
			return j
		}
	}
	for j := i - 1; j >= 0; j-- {
		if tokens[j].IsWord {
			return j
		}
	}
	return -1
}

// Classify returns the phase of token i when active is the active index.
func Classify(i, active int) Phase {
	switch {
	case active < 0 || i > active:
		return PhaseFuture
	case i == active:
		return PhaseActive
	default:
		return PhasePast
	}
}

// Tracker follows progress offsets over one tokenized text and remembers the
// active token.
type Tracker struct {
	tokens []Token
	active int
}

// NewTracker creates a tracker for tokens with no active token.
func NewTracker(tokens []Token) *Tracker {
	return &Tracker{tokens: tokens, active: -1}
}

// Update resolves offset and reports whether the active token changed.
func (t *Tracker) Update(offset int) (int, bool) {
	next := ResolveActiveToken(t.tokens, offset)
	if next == t.active {
		return next, false
	}
	t.active = next
	return next, true
}

// Active returns the active token index, or -1.
func (t *Tracker) Active() int {
	return t.active
}

// Reset clears the active token.
func (t *Tracker) Reset() {
	t.active = -1
}

// Tokens returns the tracked tokens.
func (t *Tracker) Tokens() []Token {
	return t.tokens
}

// Phase returns the phase of token i.
func (t *Tracker) Phase(i int) Phase {
	return Classify(i, t.active)
}
