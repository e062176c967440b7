package domain

import (
	"math/big"
	"strings"

	dErrors "ans/pkg/domain-errors"
)

// Amount is a positive decimal quantity of the settlement currency, free of
// minor-unit assumptions. It is exact: comparisons never go through floats,
// so a listed price of "2.5" only ever matches a payment of exactly 2.5.
type Amount struct {
	rat *big.Rat
	str string
}

// ParseAmount constructs an Amount from external decimal input ("2.5").
//
// Errors: CodeInvalidInput when the value is empty, not a decimal, or not
// strictly positive.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, dErrors.New(dErrors.CodeInvalidInput, "amount cannot be empty")
	}
	// big.Rat accepts "a/b" fractions; restrict to plain decimals so wire
	// input stays unambiguous.
	if strings.ContainsAny(s, "/eE") {
		return Amount{}, dErrors.New(dErrors.CodeInvalidInput, "amount must be a plain decimal")
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return Amount{}, dErrors.Newf(dErrors.CodeInvalidInput, "amount %q is not a decimal", s)
	}
	if r.Sign() <= 0 {
		return Amount{}, dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}
	return Amount{rat: r, str: formatRat(r)}, nil
}

// MustAmount is ParseAmount for constants and tests; panics on invalid input.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Equal reports exact numeric equality.
func (a Amount) Equal(other Amount) bool {
	if a.rat == nil || other.rat == nil {
		return a.rat == nil && other.rat == nil
	}
	return a.rat.Cmp(other.rat) == 0
}

// IsZero reports whether the amount is unset (e.g. an unlisted price).
func (a Amount) IsZero() bool { return a.rat == nil }

func (a Amount) String() string { return a.str }

// Rat returns a copy of the exact value for ledger arithmetic. The copy keeps
// Amount immutable.
func (a Amount) Rat() *big.Rat {
	if a.rat == nil {
		return new(big.Rat)
	}
	return new(big.Rat).Set(a.rat)
}

// formatRat renders a rational as a minimal decimal string. Registry prices
// and escrow amounts always originate from decimal input, so the denominator
// is a power of ten and FloatString is exact after trimming.
func formatRat(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	s := r.FloatString(18)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
