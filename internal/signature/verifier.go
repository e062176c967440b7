// Package signature verifies detached Ed25519 signatures over challenge
// messages. All failure paths are captured in the returned Result; adversarial
// input never causes a panic or an uncoded error to escape.
package signature

import (
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"

	"ans/internal/challenge"
	dErrors "ans/pkg/domain-errors"
)

// DefaultMaxAge is the signature expiry window applied when the caller does
// not supply one.
const DefaultMaxAge = 5 * time.Minute

// Result reports a verification outcome. Err carries the coded reason when
// Valid is false and is nil otherwise.
type Result struct {
	Valid bool
	Err   error
}

func valid() Result            { return Result{Valid: true} }
func invalid(err error) Result { return Result{Valid: false, Err: err} }

// Verify checks a detached Ed25519 signature over message.
//
// signatureB58 and publicKeyB58 are base58 text of the raw signature and
// public key bytes. Decode failures, wrong lengths, and cryptographic
// mismatches are distinct internal causes but all collapse to
// CodeInvalidSignature: the caller learns the signature did not verify, not
// which byte was wrong.
//
// Deterministic: identical inputs always yield identical output; no external
// state is consulted.
func Verify(message, signatureB58, publicKeyB58 string) Result {
	sig, err := base58.Decode(signatureB58)
	if err != nil {
		return invalid(dErrors.Wrap(err, dErrors.CodeInvalidSignature, "signature verification failed"))
	}
	if len(sig) != ed25519.SignatureSize {
		return invalid(dErrors.Newf(dErrors.CodeInvalidSignature,
			"signature verification failed: expected %d signature bytes, got %d", ed25519.SignatureSize, len(sig)))
	}
	pub, err := base58.Decode(publicKeyB58)
	if err != nil {
		return invalid(dErrors.Wrap(err, dErrors.CodeInvalidSignature, "signature verification failed"))
	}
	if len(pub) != ed25519.PublicKeySize {
		return invalid(dErrors.Newf(dErrors.CodeInvalidSignature,
			"signature verification failed: expected %d key bytes, got %d", ed25519.PublicKeySize, len(pub)))
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), []byte(message), sig) {
		return invalid(dErrors.New(dErrors.CodeInvalidSignature, "signature verification failed"))
	}
	return valid()
}

// VerifyWithExpiry rejects stale challenges before running any cryptography,
// then delegates to Verify. maxAge <= 0 selects DefaultMaxAge.
//
// The age check is one-sided: a timestamp in the future (clock skew between
// signer and verifier) is accepted. Only the upper bound is enforced; callers
// needing symmetric skew rejection must add their own check.
func VerifyWithExpiry(message, signatureB58, publicKeyB58 string, maxAge time.Duration) Result {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	ts, err := challenge.ExtractTimestamp(message)
	if err != nil {
		return invalid(dErrors.New(dErrors.CodeMissingTimestamp, "challenge has no timestamp"))
	}
	age := time.Now().UnixMilli() - ts
	if age > maxAge.Milliseconds() {
		return invalid(dErrors.Newf(dErrors.CodeExpired,
			"challenge expired: %dms old, max %dms", age, maxAge.Milliseconds()))
	}
	return Verify(message, signatureB58, publicKeyB58)
}
