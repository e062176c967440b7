package domain

import dErrors "ans/pkg/domain-errors"

// Action is a domain value identifying what a signed challenge authorizes.
// Invariant: the value must be one of the five settlement actions.
//
// Usage: construct via ParseAction at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type Action string

// Supported escrow actions.
const (
	ActionLock    Action = "lock"
	ActionConfirm Action = "confirm"
	ActionRelease Action = "release"
	ActionRefund  Action = "refund"
	ActionDispute Action = "dispute"
)

// validActions is the single source of truth for valid settlement actions.
var validActions = map[Action]bool{
	ActionLock:    true,
	ActionConfirm: true,
	ActionRelease: true,
	ActionRefund:  true,
	ActionDispute: true,
}

// ParseAction constructs an Action from external input.
//
// Errors: returns CodeUnknownAction when the value is empty or not one of
// the five settlement actions; no other errors are expected.
func ParseAction(s string) (Action, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeUnknownAction, "action cannot be empty")
	}
	a := Action(s)
	if !a.IsValid() {
		return "", dErrors.Newf(dErrors.CodeUnknownAction, "unknown action %q", s)
	}
	return a, nil
}

// IsValid checks if the action is one of the supported enum values.
func (a Action) IsValid() bool {
	return validActions[a]
}

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}
