package session

// State is the connection session state machine position.
//
// Valid transitions:
//
//	Idle -> Connecting            (Open called)
//	Connecting -> Open            (dial succeeded)
//	Connecting -> Closed          (dial failed or closed while connecting)
//	Open -> Closing -> Closed     (close requested or transport failure)
//
// There is no transition out of Closed.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
