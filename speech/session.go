// Package speech turns text into chunked speech on a local or remote backend
// and maps the backend's progress onto word tokens for highlighting.
package speech

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// SessionConfig holds configuration for a playback session.
type SessionConfig struct {
	MaxChunkLen      int           // Longest chunk handed to the backend, in characters
	ChunkDelay       time.Duration // Pause between the end of a chunk and the next one
	WatchdogInterval time.Duration // Period of the keep-alive nudge, 0 disables it
	Logger           *log.Logger
}

// DefaultSessionConfig returns a sensible default configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxChunkLen:      DefaultMaxChunkLen,
		ChunkDelay:       50 * time.Millisecond,
		WatchdogInterval: 10 * time.Second,
	}
}

// Session plays one speak request at a time on a single backend.
//
// Every Speak and Cancel mints a new token. Backend callbacks carry the token
// they were started with and are dropped once it is no longer current, so a
// new request always pre-empts the old one and no callback of a cancelled
// request reaches the caller.
type Session struct {
	backend Backend
	cfg     SessionConfig
	log     *log.Logger

	mu      sync.Mutex
	token   uint64
	machine *stateMachine
	closed  bool

	// Active request
	chunks     []Chunk
	current    int
	rate       float64
	onProgress func(int)
	onEnd      func()

	// Active backend resource
	cancelChunk context.CancelFunc
	delay       *time.Timer
	watchdog    chan struct{}
}

// NewSession creates a session driving backend.
func NewSession(backend Backend, cfg SessionConfig) *Session {
	def := DefaultSessionConfig()
	if cfg.MaxChunkLen <= 0 {
		cfg.MaxChunkLen = def.MaxChunkLen
	}
	if cfg.ChunkDelay < 0 {
		cfg.ChunkDelay = 0
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("session")
	}

	s := &Session{
		backend: backend,
		cfg:     cfg,
		log:     logger,
		machine: newStateMachine(),
	}
	s.machine.onEnter[StateSpeaking] = s.startWatchdogLocked
	s.machine.onExit[StateSpeaking] = s.stopWatchdogLocked
	return s
}

// Speak stops whatever is playing and speaks text at rate. onProgress
// receives byte offsets into text while the backend reports progress; onEnd
// is called once when the request completes or fails, and never when it is
// cancelled or pre-empted. Empty text completes immediately. Either callback
// may be nil. Speak returns the token of the new request.
func (s *Session) Speak(text string, rate float64, onProgress func(offset int), onEnd func()) uint64 {
	s.mu.Lock()
	s.token++
	tok := s.token
	s.teardownLocked()

	if s.closed {
		s.mu.Unlock()
		s.log.Warn("speak on closed session", "err", ErrSessionClosed)
		notify(onEnd)
		return tok
	}

	chunks := Segment(text, s.cfg.MaxChunkLen)
	if len(chunks) == 0 {
		s.mu.Unlock()
		s.log.Debug("nothing to speak", "token", tok)
		notify(onEnd)
		return tok
	}

	if rate <= 0 {
		rate = 1
	}
	s.chunks = chunks
	s.current = 0
	s.rate = rate
	s.onProgress = onProgress
	s.onEnd = onEnd
	s.machine.transition(StateSpeaking)
	s.log.Debug("speaking", "token", tok, "chunks", len(chunks), "backend", s.backend.Kind())
	s.startChunkLocked(tok)
	s.mu.Unlock()

	return tok
}

// Cancel stops the active request without calling its onEnd. The session is
// idle when Cancel returns. Cancel is safe to call at any time.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token++
	s.teardownLocked()
}

// Close cancels the active request. Later Speak calls complete immediately.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token++
	s.teardownLocked()
	s.closed = true
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.state()
}

// Token returns the current session token.
func (s *Session) Token() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Kind returns the kind of the session's backend.
func (s *Session) Kind() Kind {
	return s.backend.Kind()
}

// ReportsProgress reports whether the backend delivers progress offsets.
func (s *Session) ReportsProgress() bool {
	return s.backend.ReportsProgress()
}

// startChunkLocked plays the current chunk on a new goroutine.
func (s *Session) startChunkLocked(tok uint64) {
	chunk := s.chunks[s.current]
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelChunk = cancel
	rate := s.rate

	go func() {
		err := s.backend.SpeakChunk(ctx, chunk.Text, rate, func(rel int) {
			s.progress(tok, chunk, rel)
		})
		cancel()
		s.finishChunk(tok, chunk, err)
	}()
}

// progress relays a chunk-relative offset to the caller.
func (s *Session) progress(tok uint64, chunk Chunk, rel int) {
	s.mu.Lock()
	if tok != s.token || s.machine.state() != StateSpeaking {
		s.mu.Unlock()
		return
	}
	cb := s.onProgress
	s.mu.Unlock()

	if cb != nil {
		cb(chunk.SourceOffset(rel))
	}
}

// finishChunk advances to the next chunk or ends the request.
func (s *Session) finishChunk(tok uint64, chunk Chunk, err error) {
	s.mu.Lock()
	if tok != s.token {
		s.mu.Unlock()
		if err != nil {
			s.log.Debug("dropped stale chunk result", "token", tok, "index", chunk.Index, "self_inflicted", IsSelfInflicted(err), "err", err)
		}
		return
	}
	s.cancelChunk = nil

	if err != nil {
		// Every session-initiated stop mints a new token first, so an
		// interruption seen here came from outside the session.
		s.log.Warn("chunk failed, ending session", "token", tok, "index", chunk.Index, "err", err)
		onEnd := s.endLocked()
		s.mu.Unlock()
		notify(onEnd)
		return
	}

	s.current++
	if s.current >= len(s.chunks) {
		s.log.Debug("finished", "token", tok, "chunks", len(s.chunks))
		onEnd := s.endLocked()
		s.mu.Unlock()
		notify(onEnd)
		return
	}

	next := s.current
	s.delay = time.AfterFunc(s.cfg.ChunkDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if tok != s.token || s.machine.state() != StateSpeaking || s.current != next {
			return
		}
		s.delay = nil
		s.startChunkLocked(tok)
	})
	s.mu.Unlock()
}

// teardownLocked stops the active request, if any, and leaves the session
// idle. The backend is stopped only while a chunk is in flight.
func (s *Session) teardownLocked() {
	if s.machine.state() != StateSpeaking {
		return
	}
	s.machine.transition(StateCancelled)

	if s.delay != nil {
		s.delay.Stop()
		s.delay = nil
	}
	if s.cancelChunk != nil {
		s.cancelChunk()
		s.cancelChunk = nil
		if err := s.backend.Stop(); err != nil {
			s.log.Debug("backend stop failed", "err", err)
		}
	}

	s.machine.transition(StateIdle)
	s.clearLocked()
}

// endLocked moves a speaking session to idle and returns its onEnd.
func (s *Session) endLocked() func() {
	onEnd := s.onEnd
	s.machine.transition(StateIdle)
	s.clearLocked()
	return onEnd
}

func (s *Session) clearLocked() {
	s.chunks = nil
	s.current = 0
	s.onProgress = nil
	s.onEnd = nil
}

// startWatchdogLocked starts the keep-alive nudge for backends that need it.
func (s *Session) startWatchdogLocked() {
	nudger, ok := s.backend.(Nudger)
	if !ok || s.cfg.WatchdogInterval <= 0 {
		return
	}
	stop := make(chan struct{})
	s.watchdog = stop
	tok := s.token

	go func() {
		ticker := time.NewTicker(s.cfg.WatchdogInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.mu.Lock()
				if tok == s.token && s.machine.state() == StateSpeaking && s.cancelChunk != nil {
					if err := nudger.Nudge(); err != nil {
						s.log.Debug("watchdog nudge failed", "token", tok, "err", err)
					}
				}
				s.mu.Unlock()
			}
		}
	}()
}

// stopWatchdogLocked stops the keep-alive nudge.
func (s *Session) stopWatchdogLocked() {
	if s.watchdog != nil {
		close(s.watchdog)
		s.watchdog = nil
	}
}

func notify(fn func()) {
	if fn != nil {
		fn()
	}
}
