package domain

import "fmt"

// Action is a recorded swipe decision
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

const (
	acceptedMessage = "Job accepted! You'll be notified when employer responds."
	rejectedMessage = "Job rejected"
)

// ParseAction validates a swipe action received from a client
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionAccept, ActionReject:
		return Action(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSwipe, s)
	}
}

// Outcome is the reply returned to the client for a recorded swipe
type Outcome struct {
	Message string
	Match   bool
}

// OutcomeFor describes the result of a swipe to the user
func OutcomeFor(action Action) Outcome {
	if action == ActionAccept {
		return Outcome{Message: acceptedMessage, Match: true}
	}
	return Outcome{Message: rejectedMessage, Match: false}
}
