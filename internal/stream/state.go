package stream

// State is the pipeline's position in its run.
type State int32

const (
	StateInit State = iota
	StateReady
	StateEnded
	StateDisconnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateReady:
		return "ready"
	case StateEnded:
		return "ended"
	case StateDisconnected:
		return "disconnected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether the run is over.
func (s State) Terminal() bool {
	return s == StateEnded || s == StateDisconnected || s == StateError
}
