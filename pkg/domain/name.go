package domain

import (
	"strings"

	dErrors "ans/pkg/domain-errors"
)

// DomainName is the unique key of a marketplace domain record.
// Invariant: 3 to 32 characters, no whitespace. The name alone determines
// the record's derived address, so validation here is what makes duplicate
// registration structurally impossible downstream.
type DomainName string

const (
	// MinDomainNameLen and MaxDomainNameLen bound registrable names.
	MinDomainNameLen = 3
	MaxDomainNameLen = 32
)

// ParseDomainName constructs a DomainName from external input.
//
// Errors: CodeNameLengthInvalid when the length is out of bounds,
// CodeInvalidInput when the name contains whitespace or newlines.
func ParseDomainName(s string) (DomainName, error) {
	if len(s) < MinDomainNameLen || len(s) > MaxDomainNameLen {
		return "", dErrors.Newf(dErrors.CodeNameLengthInvalid,
			"domain name must be %d-%d characters, got %d", MinDomainNameLen, MaxDomainNameLen, len(s))
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return "", dErrors.New(dErrors.CodeInvalidInput, "domain name contains whitespace")
	}
	return DomainName(s), nil
}

func (n DomainName) String() string { return string(n) }
