package state

/*
Package state decides which task lifecycle transitions are legal.  It is a
pure lookup over a fixed table: no state of its own, safe to call from any
goroutine.
*/

import (
	"github.com/taskmill/taskmill-go/pkg/a2a"
	"github.com/taskmill/taskmill-go/pkg/errors"
)

// transitions holds the outgoing edge set per state, in table order.
// Terminal states have no entry value.  "unknown" may transition to any
// other state as a recovery path.
var transitions = map[a2a.TaskState][]a2a.TaskState{
	a2a.TaskStateSubmitted: {
		a2a.TaskStateWorking,
		a2a.TaskStateCanceled,
		a2a.TaskStateFailed,
	},
	a2a.TaskStateWorking: {
		a2a.TaskStateCompleted,
		a2a.TaskStateFailed,
		a2a.TaskStateCanceled,
		a2a.TaskStateInputReq,
	},
	a2a.TaskStateInputReq: {
		a2a.TaskStateWorking,
		a2a.TaskStateCanceled,
		a2a.TaskStateFailed,
	},
	a2a.TaskStateCompleted: {},
	a2a.TaskStateCanceled:  {},
	a2a.TaskStateFailed:    {},
	a2a.TaskStateUnknown: {
		a2a.TaskStateSubmitted,
		a2a.TaskStateWorking,
		a2a.TaskStateCompleted,
		a2a.TaskStateFailed,
		a2a.TaskStateCanceled,
		a2a.TaskStateInputReq,
	},
}

// CanTransition reports whether from → to is a legal lifecycle change.
func CanTransition(from, to a2a.TaskState) bool {
	for _, target := range transitions[from] {
		if target == to {
			return true
		}
	}

	return false
}

// AssertTransition returns an InvalidTransition error when from → to is
// denied by the table.
func AssertTransition(from, to a2a.TaskState) *errors.RpcError {
	if !CanTransition(from, to) {
		return errors.ErrInvalidTransition.WithMessagef(
			"invalid task state transition from %s to %s", from, to,
		)
	}

	return nil
}

// IsTerminal reports whether a state has no outgoing transitions.
func IsTerminal(s a2a.TaskState) bool {
	switch s {
	case a2a.TaskStateCompleted, a2a.TaskStateCanceled, a2a.TaskStateFailed:
		return true
	}

	return false
}

// ValidTransitions returns the legal targets for a state in table order.
// The returned slice is a copy; callers may mutate it freely.
func ValidTransitions(from a2a.TaskState) []a2a.TaskState {
	return append([]a2a.TaskState(nil), transitions[from]...)
}
