package httpsig

import (
	"net/http"
	"slices"
	"strings"
	"time"
)

// SignConfig configures HTTP request signing.
type SignConfig struct {
	// Signer produces signatures. Required.
	Signer Signer

	// Headers lists the header names to cover, in signing order. May
	// include RequestTarget. Defaults to ["date"].
	Headers []string

	// SignHeader names the header receiving the signature parameters.
	// Defaults to "Authorization", in which case the value is prefixed
	// with Scheme.
	SignHeader string

	// Scheme is the Authorization scheme. Defaults to DefaultScheme.
	Scheme string

	// DigestAlgorithm, when set, causes SignRequest to compute and set a
	// Digest header before signing. "digest" is added to the covered
	// headers if not already present.
	DigestAlgorithm DigestAlgorithm

	// Now returns the time used for a missing Date header. Defaults to
	// time.Now.
	Now func() time.Time
}

// SignRequest signs r in place. A covered Date header that is missing is
// set to the current time. The (request-target) path is
// r.URL.RequestURI().
func SignRequest(r *http.Request, cfg SignConfig) error {
	if cfg.Signer == nil {
		return ErrNoSigner
	}

	headers := slices.Clone(cfg.Headers)
	if len(headers) == 0 {
		headers = slices.Clone(defaultHeaders)
	}

	for i, h := range headers {
		headers[i] = strings.ToLower(h)
	}

	if cfg.DigestAlgorithm != "" {
		if err := SetDigest(r, cfg.DigestAlgorithm); err != nil {
			return err
		}

		if !slices.Contains(headers, "digest") {
			headers = append(headers, "digest")
		}
	}

	if slices.Contains(headers, "date") && r.Header.Get("Date") == "" {
		now := time.Now
		if cfg.Now != nil {
			now = cfg.Now
		}

		r.Header.Set("Date", now().UTC().Format(http.TimeFormat))
	}

	signing, err := BuildSigningString(headers, HeaderFromHTTP(r.Header), r.Host, r.Method, r.URL.RequestURI())
	if err != nil {
		return err
	}

	sig, err := cfg.Signer.Sign([]byte(signing))
	if err != nil {
		return err
	}

	value := formatParams(cfg.Signer.KeyID(), cfg.Signer.Algorithm(), headers, sig)

	signHeader := canonicalSignHeader(cfg.SignHeader)
	if signHeader == "Authorization" {
		scheme := cfg.Scheme
		if scheme == "" {
			scheme = DefaultScheme
		}

		value = scheme + " " + value
	}

	r.Header.Set(signHeader, value)

	return nil
}
