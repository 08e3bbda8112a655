package speech

// State is the state of a playback session.
type State int

const (
	// StateIdle indicates no speak request is active.
	StateIdle State = iota
	// StateSpeaking indicates chunks of a request are being played.
	StateSpeaking
	// StateCancelled is passed through while an active request is torn down.
	StateCancelled
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpeaking:
		return "speaking"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// stateMachine guards session state transitions. It is not safe for
// concurrent use; the session serializes access.
type stateMachine struct {
	current     State
	transitions map[State][]State
	onEnter     map[State]func()
	onExit      map[State]func()
}

func newStateMachine() *stateMachine {
	return &stateMachine{
		current: StateIdle,
		transitions: map[State][]State{
			StateIdle:      {StateSpeaking},
			StateSpeaking:  {StateIdle, StateCancelled},
			StateCancelled: {StateIdle},
		},
		onEnter: make(map[State]func()),
		onExit:  make(map[State]func()),
	}
}

// transition moves to the given state and runs the exit and enter hooks. It
// reports false for a transition the table does not allow.
func (sm *stateMachine) transition(to State) bool {
	valid := false
	for _, s := range sm.transitions[sm.current] {
		if s == to {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}

	if fn := sm.onExit[sm.current]; fn != nil {
		fn()
	}
	sm.current = to
	if fn := sm.onEnter[to]; fn != nil {
		fn()
	}
	return true
}

func (sm *stateMachine) state() State {
	return sm.current
}
