package update

import "fmt"

// State is a step of the update flow
type State int

const (
	StateIdle State = iota
	StateChecking
	StateAwaitingConsent
	StateDownloading
	StateReadyToSwap
	StateSwapping
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChecking:
		return "checking"
	case StateAwaitingConsent:
		return "awaiting-consent"
	case StateDownloading:
		return "downloading"
	case StateReadyToSwap:
		return "ready-to-swap"
	case StateSwapping:
		return "swapping"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// CanTransition reports whether from -> to is a legal move
func CanTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateChecking
	case StateChecking:
		return to == StateAwaitingConsent || to == StateIdle
	case StateAwaitingConsent:
		return to == StateIdle || to == StateDownloading
	case StateDownloading:
		return to == StateReadyToSwap || to == StateFailed
	case StateReadyToSwap:
		// Idle when the host is not a packaged binary and the user replaces it by hand
		return to == StateSwapping || to == StateIdle
	case StateSwapping:
		return to == StateFailed
	case StateFailed:
		return to == StateIdle
	}
	return false
}

// TransitionError reports an illegal state change
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid update transition from %s to %s", e.From, e.To)
}
