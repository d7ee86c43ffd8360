package session

// Phase is where a session is in its request loop.
type Phase int32

const (
	PhaseConnected Phase = iota
	PhaseAwaitingZone
	PhaseValidating
	PhaseProbing
	PhaseStreaming
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseConnected:
		return "connected"
	case PhaseAwaitingZone:
		return "awaiting_zone"
	case PhaseValidating:
		return "validating"
	case PhaseProbing:
		return "probing"
	case PhaseStreaming:
		return "streaming"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}
