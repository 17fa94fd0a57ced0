package httpsig

import (
	"errors"
	"strings"
)

// Parsing errors.
var (
	// ErrMalformedHeader is returned when the signature-bearing header is
	// absent, cannot be parsed, or lacks one of keyId, algorithm or
	// signature.
	ErrMalformedHeader = errors.New("httpsig: malformed signature header")
)

// Policy errors.
var (
	// ErrMissingRequiredHeader is returned when a header the caller
	// requires was not covered by the signature. The concrete error is a
	// *PolicyError naming the headers.
	ErrMissingRequiredHeader = errors.New("httpsig: required header not covered by signature")
)

// Signing string errors.
var (
	// ErrMissingHeader is returned when a covered header is not present in
	// the request headers.
	ErrMissingHeader = errors.New("httpsig: covered header not present")

	// ErrMissingContext is returned when the (request-target) pseudo-header
	// is covered but the method or path was not supplied.
	ErrMissingContext = errors.New("httpsig: method and path required for (request-target)")
)

// Algorithm and key errors.
var (
	// ErrUnsupportedAlgorithm is returned when the declared algorithm is
	// not built in and no SignAlgorithm is registered.
	ErrUnsupportedAlgorithm = errors.New("httpsig: unsupported algorithm")

	// ErrInvalidKey is returned when key material cannot be used with the
	// declared algorithm family.
	ErrInvalidKey = errors.New("httpsig: invalid key material")

	// ErrSignAlgorithmRequired is returned when hs2019 is declared but no
	// SignAlgorithm was configured.
	ErrSignAlgorithmRequired = errors.New("httpsig: sign algorithm required for " + string(AlgorithmHS2019))
)

// Signing errors.
var (
	// ErrNoSigner is returned when SignConfig has no Signer configured.
	ErrNoSigner = errors.New("httpsig: signer must not be nil")

	// ErrNoResolver is returned when MiddlewareConfig has no SecretResolver.
	ErrNoResolver = errors.New("httpsig: secret resolver must not be nil")

	// ErrSignatureMismatch is passed to MiddlewareConfig.OnError when the
	// signature was evaluated and did not match. Verify itself reports a
	// mismatch as false, not as an error.
	ErrSignatureMismatch = errors.New("httpsig: signature does not match")
)

// Digest errors.
var (
	// ErrDigestMismatch is returned when Digest verification fails.
	ErrDigestMismatch = errors.New("httpsig: digest mismatch")

	// ErrDigestNotFound is returned when the Digest header is required but
	// not present.
	ErrDigestNotFound = errors.New("httpsig: digest not found")

	// ErrUnsupportedDigest is returned when the digest algorithm is not
	// supported.
	ErrUnsupportedDigest = errors.New("httpsig: unsupported digest algorithm")
)

// PolicyError reports required headers that the signature does not cover.
type PolicyError struct {
	// Missing lists the uncovered headers in sorted order.
	Missing []string
}

func (e *PolicyError) Error() string {
	return ErrMissingRequiredHeader.Error() + ": " + strings.Join(e.Missing, ", ")
}

// Unwrap allows errors.Is(err, ErrMissingRequiredHeader).
func (e *PolicyError) Unwrap() error {
	return ErrMissingRequiredHeader
}
