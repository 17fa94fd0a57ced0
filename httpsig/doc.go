// Package httpsig verifies HTTP request signatures carried in an
// Authorization or Signature header, following
// draft-cavage-http-signatures.
//
// Spec reference: https://datatracker.ietf.org/doc/html/draft-cavage-http-signatures-12
//
// # Supported Algorithms
//
// Eight algorithms are built in:
//
//   - hmac-sha1, hmac-sha256, hmac-sha384, hmac-sha512
//   - rsa-sha1, rsa-sha256, rsa-sha384, rsa-sha512 (RSASSA-PKCS1-v1_5)
//
// The generic hs2019 algorithm does not name its primitive on the wire.
// Verifying it requires a SignAlgorithm, such as PSS. Every other
// algorithm is accepted but logged as deprecated.
//
// # Verifying Headers
//
// The core works on already extracted headers:
//
//	ok, err := httpsig.VerifyHeaders(httpsig.VerifyConfig{
//	    Headers:         httpsig.NewHeader(headers),
//	    Secret:          []byte("shared-secret"),
//	    RequiredHeaders: []string{"(request-target)", "host", "date"},
//	    Method:          "GET",
//	    Path:            "/foo?bar=1",
//	})
//	switch {
//	case err != nil:
//	    // cannot evaluate: malformed header, policy, missing header, ...
//	case !ok:
//	    // signature invalid
//	}
//
// A mismatching signature is reported as false with a nil error. Errors
// are classified with errors.Is against ErrMalformedHeader,
// ErrMissingRequiredHeader, ErrMissingHeader, ErrMissingContext,
// ErrUnsupportedAlgorithm, ErrInvalidKey and ErrSignAlgorithmRequired.
//
// # Signing Requests
//
// SignRequest adds the signature parameters to an outgoing request:
//
//	signer, err := httpsig.NewRSASigner("my-key-id", httpsig.AlgorithmRSASHA256, privateKey)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = httpsig.SignRequest(req, httpsig.SignConfig{
//	    Signer:  signer,
//	    Headers: []string{httpsig.RequestTarget, "host", "date"},
//	})
//
// NewTransport wraps this in an http.RoundTripper.
//
// # Server Middleware
//
// Middleware verifies incoming requests and rejects failures with 401:
//
//	mw, err := httpsig.Middleware(httpsig.MiddlewareConfig{
//	    Resolver: func(r *http.Request, keyID string, alg httpsig.Algorithm) (any, error) {
//	        return keys.Lookup(keyID)
//	    },
//	    RequiredHeaders: []string{httpsig.RequestTarget, "date"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	handler = mw(handler)
//
// # Digest
//
// SetDigest and VerifyDigest handle the RFC 3230 Digest header so that a
// signature covering "digest" also protects the body.
package httpsig
