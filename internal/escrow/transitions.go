package escrow

import (
	"ans/pkg/domain"
	dErrors "ans/pkg/domain-errors"
)

// transition binds an action to the statuses it may start from and the
// status it lands in. Like the authorization table, the state machine is one
// map rather than branching spread through call sites.
type transition struct {
	from map[Status]bool
	to   Status
}

var transitions = map[domain.Action]transition{
	domain.ActionLock: {
		from: map[Status]bool{StatusPending: true},
		to:   StatusLocked,
	},
	domain.ActionConfirm: {
		from: map[Status]bool{StatusLocked: true},
		to:   StatusConfirmed,
	},
	domain.ActionRelease: {
		from: map[Status]bool{StatusLocked: true, StatusConfirmed: true},
		to:   StatusReleased,
	},
	domain.ActionRefund: {
		from: map[Status]bool{StatusLocked: true, StatusConfirmed: true, StatusDisputed: true},
		to:   StatusRefunded,
	},
	domain.ActionDispute: {
		from: map[Status]bool{StatusLocked: true, StatusConfirmed: true},
		to:   StatusDisputed,
	},
}

// Next computes the status an action moves current into.
//
// Errors: CodeEscrowTerminal when current is absorbing, CodeUnknownAction for
// an action outside the table, CodeInvalidTransition when the action exists
// but cannot start from current.
func Next(current Status, action domain.Action) (Status, error) {
	if current.IsTerminal() {
		return "", dErrors.Newf(dErrors.CodeEscrowTerminal,
			"escrow is %s; no further transitions are permitted", current)
	}
	t, ok := transitions[action]
	if !ok {
		return "", dErrors.Newf(dErrors.CodeUnknownAction, "unknown action %q", action)
	}
	if !t.from[current] {
		return "", dErrors.Newf(dErrors.CodeInvalidTransition,
			"cannot %s an escrow in status %s", action, current)
	}
	return t.to, nil
}
