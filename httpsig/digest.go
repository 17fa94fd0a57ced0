package httpsig

import (
	"bytes"
	"crypto"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const digestHeader = "Digest"

// DigestAlgorithm identifies the hash algorithm of a Digest header per
// RFC 3230 and RFC 5843.
type DigestAlgorithm string

const (
	// DigestSHA256 uses SHA-256.
	DigestSHA256 DigestAlgorithm = "SHA-256"

	// DigestSHA512 uses SHA-512.
	DigestSHA512 DigestAlgorithm = "SHA-512"
)

// digestHashes maps the recognized Digest algorithm tokens to their hash.
var digestHashes = map[DigestAlgorithm]crypto.Hash{
	DigestSHA256: crypto.SHA256,
	DigestSHA512: crypto.SHA512,
}

// SetDigest sets the Digest header of r to "<alg>=<base64>" computed over
// the body. The body is buffered and left readable.
func SetDigest(r *http.Request, alg DigestAlgorithm) error {
	hash, ok := digestHashes[alg]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedDigest, alg)
	}

	body, err := bufferBody(r)
	if err != nil {
		return err
	}

	r.Header.Set(digestHeader, string(alg)+"="+base64.StdEncoding.EncodeToString(sum(hash, body)))

	return nil
}

// VerifyDigest checks the Digest header of r against the body. Every
// instance with a recognized algorithm must match and at least one must be
// present. Algorithm tokens are case-insensitive.
func VerifyDigest(r *http.Request) error {
	value := r.Header.Get(digestHeader)
	if value == "" {
		return ErrDigestNotFound
	}

	body, err := bufferBody(r)
	if err != nil {
		return err
	}

	checked := 0

	for instance := range strings.SplitSeq(value, ",") {
		token, encoded, ok := strings.Cut(strings.TrimSpace(instance), "=")
		if !ok {
			continue
		}

		hash, known := digestHashes[DigestAlgorithm(strings.ToUpper(strings.TrimSpace(token)))]
		if !known {
			continue
		}

		want, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
		if err != nil {
			return fmt.Errorf("%w: digest %s is not valid base64", ErrMalformedHeader, token)
		}

		if !constantTimeEqual(sum(hash, body), want) {
			return ErrDigestMismatch
		}

		checked++
	}

	if checked == 0 {
		return ErrUnsupportedDigest
	}

	return nil
}

func sum(hash crypto.Hash, data []byte) []byte {
	h := hash.New()
	h.Write(data)

	return h.Sum(nil)
}

// bufferBody drains r.Body and replaces it with an in-memory copy.
func bufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	r.Body = io.NopCloser(bytes.NewReader(body))

	return body, nil
}
