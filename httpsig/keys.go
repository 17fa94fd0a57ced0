package httpsig

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha512"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// --- Key material ---

// hmacKey accepts []byte and string shared secrets. PEM-encoded input is
// rejected: a public key must never double as an HMAC secret.
func hmacKey(secret any) ([]byte, error) {
	var key []byte

	switch k := secret.(type) {
	case []byte:
		key = k
	case string:
		key = []byte(k)
	default:
		return nil, fmt.Errorf("%w: hmac secret must be []byte or string, got %T", ErrInvalidKey, secret)
	}

	if bytes.HasPrefix(bytes.TrimSpace(key), pemPrefix) {
		return nil, fmt.Errorf("%w: hmac secret looks like a PEM key", ErrInvalidKey)
	}

	return key, nil
}

var pemPrefix = []byte("-----BEGIN ")

// rsaPublicKey accepts *rsa.PublicKey, *rsa.PrivateKey and PEM-encoded
// public keys as []byte or string.
func rsaPublicKey(secret any) (*rsa.PublicKey, error) {
	switch k := secret.(type) {
	case *rsa.PublicKey:
		if k == nil {
			return nil, fmt.Errorf("%w: rsa public key must not be nil", ErrInvalidKey)
		}

		return k, nil
	case *rsa.PrivateKey:
		if k == nil {
			return nil, fmt.Errorf("%w: rsa private key must not be nil", ErrInvalidKey)
		}

		return &k.PublicKey, nil
	case []byte:
		return ParsePublicKeyPEM(k)
	case string:
		return ParsePublicKeyPEM([]byte(k))
	default:
		return nil, fmt.Errorf("%w: rsa secret must be a public key, got %T", ErrInvalidKey, secret)
	}
}

// ParsePublicKeyPEM parses an RSA public key from a PEM block holding
// either a PKIX ("PUBLIC KEY") or PKCS#1 ("RSA PUBLIC KEY") structure.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrInvalidKey)
	}

	if block.Type == "RSA PUBLIC KEY" {
		pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}

		return pub, nil
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: expected rsa public key, got %T", ErrInvalidKey, parsed)
	}

	return pub, nil
}

// ParsePrivateKeyPEM parses an RSA private key from a PEM block holding
// either a PKCS#8 ("PRIVATE KEY") or PKCS#1 ("RSA PRIVATE KEY") structure.
func ParsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrInvalidKey)
	}

	if block.Type == "RSA PRIVATE KEY" {
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}

		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: expected rsa private key, got %T", ErrInvalidKey, parsed)
	}

	return key, nil
}

// --- HMAC ---

type hmacSigner struct {
	hash  crypto.Hash
	alg   Algorithm
	key   []byte
	keyID string
}

// NewHMACSigner creates a Signer for one of the hmac-* algorithms.
func NewHMACSigner(keyID string, alg Algorithm, key []byte) (Signer, error) {
	f, hash := alg.split()
	if f != familyHMAC {
		return nil, fmt.Errorf("%w: %s is not an hmac algorithm", ErrUnsupportedAlgorithm, alg)
	}

	if len(key) == 0 {
		return nil, fmt.Errorf("%w: hmac key must not be empty", ErrInvalidKey)
	}

	keyCopy := make([]byte, len(key))
	copy(keyCopy, key)

	return &hmacSigner{hash: hash, alg: alg, key: keyCopy, keyID: keyID}, nil
}

func (s *hmacSigner) Sign(data []byte) ([]byte, error) {
	return computeHMAC(s.hash, s.key, data), nil
}

func (s *hmacSigner) Algorithm() Algorithm { return s.alg }
func (s *hmacSigner) KeyID() string        { return s.keyID }

// --- RSA PKCS#1 v1.5 ---

type rsaSigner struct {
	hash  crypto.Hash
	alg   Algorithm
	key   *rsa.PrivateKey
	keyID string
}

// NewRSASigner creates a Signer for one of the rsa-* algorithms.
func NewRSASigner(keyID string, alg Algorithm, key *rsa.PrivateKey) (Signer, error) {
	f, hash := alg.split()
	if f != familyRSA {
		return nil, fmt.Errorf("%w: %s is not an rsa algorithm", ErrUnsupportedAlgorithm, alg)
	}

	if key == nil {
		return nil, fmt.Errorf("%w: rsa private key must not be nil", ErrInvalidKey)
	}

	return &rsaSigner{hash: hash, alg: alg, key: key, keyID: keyID}, nil
}

func (s *rsaSigner) Sign(data []byte) ([]byte, error) {
	h := s.hash.New()
	h.Write(data)

	return rsa.SignPKCS1v15(rand.Reader, s.key, s.hash, h.Sum(nil))
}

func (s *rsaSigner) Algorithm() Algorithm { return s.alg }
func (s *rsaSigner) KeyID() string        { return s.keyID }

// --- RSASSA-PSS SHA-512 (hs2019) ---

// PSS verifies RSASSA-PSS signatures using SHA-512. It is the usual
// primitive behind hs2019 and is meant to be set as
// VerifyConfig.SignAlgorithm.
type PSS struct {
	// SaltLength is passed to rsa.PSSOptions. Zero means
	// rsa.PSSSaltLengthAuto.
	SaltLength int
}

// Verify implements SignAlgorithm.
func (p PSS) Verify(secret any, data, signature []byte) (bool, error) {
	pub, err := rsaPublicKey(secret)
	if err != nil {
		return false, err
	}

	digest := sha512.Sum512(data)

	err = rsa.VerifyPSS(pub, crypto.SHA512, digest[:], signature, &rsa.PSSOptions{
		SaltLength: p.SaltLength,
	})

	return err == nil, nil
}

type pssSigner struct {
	key   *rsa.PrivateKey
	keyID string
}

// NewPSSSigner creates an hs2019 Signer using RSASSA-PSS with SHA-512 and
// a salt as long as the hash.
func NewPSSSigner(keyID string, key *rsa.PrivateKey) (Signer, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: rsa private key must not be nil", ErrInvalidKey)
	}

	return &pssSigner{key: key, keyID: keyID}, nil
}

func (s *pssSigner) Sign(data []byte) ([]byte, error) {
	digest := sha512.Sum512(data)

	return rsa.SignPSS(rand.Reader, s.key, crypto.SHA512, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
}

func (s *pssSigner) Algorithm() Algorithm { return AlgorithmHS2019 }
func (s *pssSigner) KeyID() string        { return s.keyID }
