package domain

// State is the lifecycle state of a knowledge base instance.
type State int

// Lifecycle states. A knowledge base moves forward only.
const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateClosed
)

// String returns the string representation.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
