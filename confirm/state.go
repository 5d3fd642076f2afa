// Package confirm holds trades that collide with an existing record until
// the requester decides whether to insert them anyway.
package confirm

import (
	"errors"
	"fmt"
	"strings"
)

type State string

const (
	New               State = "new"
	DuplicateDetected State = "duplicate_detected"
	Committed         State = "committed"
	Discarded         State = "discarded"
)

type Event string

const (
	NoCollision Event = "no_collision"
	Collision   Event = "collision"
	Accept      Event = "accept"
	Reject      Event = "reject"
)

var (
	ErrBadTransition = errors.New("invalid transition")
	ErrNoPending     = errors.New("no pending confirmation")
	ErrBadDecision   = errors.New("unknown decision")
)

var transitions = map[State]map[Event]State{
	New: {
		NoCollision: Committed,
		Collision:   DuplicateDetected,
	},
	DuplicateDetected: {
		Accept: Committed,
		Reject: Discarded,
	},
}

// Transition returns the state reached from s on e.
func Transition(s State, e Event) (State, error) {
	if next, ok := transitions[s][e]; ok {
		return next, nil
	}
	return s, fmt.Errorf("%w: %s on %s", ErrBadTransition, e, s)
}

// Terminal reports whether no event leads out of s.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// Decision is the requester's answer to a duplicate prompt.
type Decision string

const (
	Yes Decision = "yes"
	No  Decision = "no"
)

// ParseDecision accepts yes/no in the forms chat buttons and the CLI
// send them.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "confirm", "confirm_yes", "是", "确认":
		return Yes, nil
	case "no", "n", "cancel", "confirm_no", "否", "取消":
		return No, nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadDecision, s)
}

func (d Decision) Event() Event {
	if d == Yes {
		return Accept
	}
	return Reject
}
