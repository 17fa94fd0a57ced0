package httpsig

import (
	"crypto"
	"strings"

	// Register SHA-1 with the crypto package.
	_ "crypto/sha1"
	// Register SHA-256 with the crypto package.
	_ "crypto/sha256"
	// Register SHA-384 and SHA-512 with the crypto package.
	_ "crypto/sha512"
)

// Algorithm identifies the signature algorithm declared in the algorithm
// signature parameter.
type Algorithm string

const (
	// AlgorithmHMACSHA1 is HMAC using SHA-1.
	AlgorithmHMACSHA1 Algorithm = "hmac-sha1"

	// AlgorithmHMACSHA256 is HMAC using SHA-256.
	AlgorithmHMACSHA256 Algorithm = "hmac-sha256"

	// AlgorithmHMACSHA384 is HMAC using SHA-384.
	AlgorithmHMACSHA384 Algorithm = "hmac-sha384"

	// AlgorithmHMACSHA512 is HMAC using SHA-512.
	AlgorithmHMACSHA512 Algorithm = "hmac-sha512"

	// AlgorithmRSASHA1 is RSASSA-PKCS1-v1_5 using SHA-1.
	AlgorithmRSASHA1 Algorithm = "rsa-sha1"

	// AlgorithmRSASHA256 is RSASSA-PKCS1-v1_5 using SHA-256.
	AlgorithmRSASHA256 Algorithm = "rsa-sha256"

	// AlgorithmRSASHA384 is RSASSA-PKCS1-v1_5 using SHA-384.
	AlgorithmRSASHA384 Algorithm = "rsa-sha384"

	// AlgorithmRSASHA512 is RSASSA-PKCS1-v1_5 using SHA-512.
	AlgorithmRSASHA512 Algorithm = "rsa-sha512"

	// AlgorithmHS2019 is the generic scheme. The concrete primitive is not
	// part of the wire parameters and must be configured with a
	// SignAlgorithm.
	AlgorithmHS2019 Algorithm = "hs2019"
)

// DefaultAlgorithm is the recommended algorithm. Every other algorithm is
// accepted but reported as deprecated.
const DefaultAlgorithm = AlgorithmHS2019

// family groups algorithms by signature primitive.
type family int

const (
	familyUnknown family = iota
	familyHMAC
	familyRSA
)

// String returns the wire name of the algorithm.
func (a Algorithm) String() string {
	return string(a)
}

// is compares two algorithm tags ignoring case.
func (a Algorithm) is(b Algorithm) bool {
	return strings.EqualFold(string(a), string(b))
}

// IsBuiltin reports whether a has a built-in implementation.
func (a Algorithm) IsBuiltin() bool {
	f, _ := a.split()
	return f != familyUnknown
}

// split maps an algorithm to its primitive family and digest. Matching is
// case-insensitive.
func (a Algorithm) split() (family, crypto.Hash) {
	prim, digest, ok := strings.Cut(strings.ToLower(string(a)), "-")
	if !ok {
		return familyUnknown, 0
	}

	var f family
	switch prim {
	case "hmac":
		f = familyHMAC
	case "rsa":
		f = familyRSA
	default:
		return familyUnknown, 0
	}

	switch digest {
	case "sha1":
		return f, crypto.SHA1
	case "sha256":
		return f, crypto.SHA256
	case "sha384":
		return f, crypto.SHA384
	case "sha512":
		return f, crypto.SHA512
	default:
		return familyUnknown, 0
	}
}

// SignAlgorithm is an externally supplied verification primitive. It is
// required for hs2019 and may serve any algorithm that is not built in.
type SignAlgorithm interface {
	// Verify reports whether signature is valid for data under secret.
	// A mismatch is (false, nil); errors are reserved for unusable
	// secrets or internal failures.
	Verify(secret any, data, signature []byte) (bool, error)
}

// Signer creates signatures over signing strings.
type Signer interface {
	// Sign produces a signature over the given data.
	Sign(data []byte) ([]byte, error)

	// Algorithm returns the algorithm declared in the signature parameters.
	Algorithm() Algorithm

	// KeyID returns the key identifier declared in the signature parameters.
	KeyID() string
}
