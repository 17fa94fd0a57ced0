package httpsig

import (
	"crypto"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
)

// Dispatcher routes verification to the primitive selected by an
// algorithm tag. The zero value verifies built-in algorithms only.
//
// A Dispatcher holds no per-call state and is safe for concurrent use.
type Dispatcher struct {
	// Extension verifies hs2019 and any algorithm that is not built in.
	Extension SignAlgorithm
}

// Verify checks signature, already decoded from base64, against data. A
// mismatch returns (false, nil).
func (d Dispatcher) Verify(alg Algorithm, secret any, data, signature []byte) (bool, error) {
	f, hash := alg.split()

	switch f {
	case familyHMAC:
		return verifyHMAC(hash, secret, data, signature)

	case familyRSA:
		return verifyRSA(hash, secret, data, signature)
	}

	if d.Extension != nil {
		return d.Extension.Verify(secret, data, signature)
	}

	if alg.is(AlgorithmHS2019) {
		return false, ErrSignAlgorithmRequired
	}

	return false, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, alg)
}

func verifyHMAC(hash crypto.Hash, secret any, data, signature []byte) (bool, error) {
	key, err := hmacKey(secret)
	if err != nil {
		return false, err
	}

	return constantTimeEqual(computeHMAC(hash, key, data), signature), nil
}

func verifyRSA(hash crypto.Hash, secret any, data, signature []byte) (bool, error) {
	pub, err := rsaPublicKey(secret)
	if err != nil {
		return false, err
	}

	h := hash.New()
	h.Write(data)

	return rsa.VerifyPKCS1v15(pub, hash, h.Sum(nil), signature) == nil, nil
}

func computeHMAC(hash crypto.Hash, key, data []byte) []byte {
	h := hmac.New(hash.New, key)
	h.Write(data)

	return h.Sum(nil)
}

// constantTimeEqual compares a and b without leaking the position of the
// first difference or the operand lengths. Both sides are reduced to a
// fixed-size hash before the comparison.
func constantTimeEqual(a, b []byte) bool {
	aHash := sha256.Sum256(a)
	bHash := sha256.Sum256(b)

	return subtle.ConstantTimeCompare(aHash[:], bHash[:]) == 1
}
