// Package challenge builds and parses the canonical challenge message a
// wallet signs to authorize one action on one escrow at one point in time.
//
// The format is a fixed four-line template with no trailing newline:
//
//	ANS Protocol
//	Action: <action>
//	Escrow: <escrowId>
//	Timestamp: <integer milliseconds>
//
// Both the signer and the verifier regenerate the message independently, so
// identity is structural equality of the formatted string. Any deviation from
// the template fails to parse. The codec is pure: no clock access beyond the
// default timestamp, no side effects.
package challenge

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"ans/pkg/domain"
	dErrors "ans/pkg/domain-errors"
)

// Header is the fixed first line of every challenge message.
const Header = "ANS Protocol"

// timestampPattern matches the exact "Timestamp: <digits>" line. Anchored per
// line so a timestamp embedded mid-line or with stray whitespace never parses.
var timestampPattern = regexp.MustCompile(`(?m)^Timestamp: (\d+)$`)

// Build produces the canonical challenge for signing now.
func Build(action domain.Action, escrowID string) string {
	return BuildAt(action, escrowID, time.Now().UnixMilli())
}

// BuildAt produces the canonical challenge bound to an explicit timestamp in
// milliseconds since epoch. Verifiers use this to regenerate the exact string
// a signer produced.
func BuildAt(action domain.Action, escrowID string, timestampMs int64) string {
	return fmt.Sprintf("%s\nAction: %s\nEscrow: %s\nTimestamp: %d",
		Header, action, escrowID, timestampMs)
}

// ExtractTimestamp parses the embedded timestamp out of a challenge message.
//
// Errors: CodeMalformedChallenge when the message lacks the exact
// "Timestamp: <digits>" line or the digits overflow an int64.
func ExtractTimestamp(message string) (int64, error) {
	m := timestampPattern.FindStringSubmatch(message)
	if m == nil {
		return 0, dErrors.New(dErrors.CodeMalformedChallenge, "challenge has no timestamp line")
	}
	ts, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeMalformedChallenge, "challenge timestamp out of range")
	}
	return ts, nil
}
