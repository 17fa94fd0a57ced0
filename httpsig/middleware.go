package httpsig

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

// requestIDHeader is reused as the verification ID when present.
const requestIDHeader = "X-Request-ID"

// SecretResolver returns the verification secret for keyID. It is called
// after the signature parameters have been parsed and before any
// cryptographic work.
type SecretResolver func(r *http.Request, keyID string, alg Algorithm) (any, error)

// MiddlewareConfig configures the server-side verification middleware.
type MiddlewareConfig struct {
	// Resolver looks up the secret for the declared key ID. Required.
	Resolver SecretResolver

	// RequiredHeaders lists headers that must be covered. Defaults to
	// ["date"].
	RequiredHeaders []string

	// SignHeader names the signature-bearing header. Defaults to
	// "authorization".
	SignHeader string

	// Scheme and StrictScheme control Authorization scheme validation.
	Scheme       string
	StrictScheme bool

	// SignAlgorithm verifies hs2019 signatures.
	SignAlgorithm SignAlgorithm

	// RequireDigest, when true, requires a Digest header and verifies it
	// against the request body before the signature.
	RequireDigest bool

	// Logger receives per-request diagnostics. The zero value discards.
	Logger logr.Logger

	// Metrics records verification outcomes when set.
	Metrics *Metrics

	// OnError is called when verification fails or the signature does not
	// match. When nil, a plain 401 Unauthorized response is sent.
	OnError func(w http.ResponseWriter, r *http.Request, err error)
}

type verificationIDKey struct{}

// VerificationIDFromContext returns the verification ID attached by the
// middleware, or an empty string.
func VerificationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(verificationIDKey{}).(string)
	return id
}

// Middleware returns an http middleware that verifies request signatures.
// The (request-target) path is the request target exactly as received in
// r.RequestURI, falling back to r.URL.RequestURI() when that is empty. A
// covered "host" falls back to r.Host.
//
// It returns ErrNoResolver if Resolver is nil.
func Middleware(cfg MiddlewareConfig) (func(http.Handler) http.Handler, error) {
	if cfg.Resolver == nil {
		return nil, ErrNoResolver
	}

	onError := cfg.OnError
	if onError == nil {
		onError = defaultOnError
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.Must(uuid.NewV7()).String()
			}

			log := cfg.Logger.WithValues("verificationId", id, "path", r.URL.Path)
			start := time.Now()

			alg, err := verifyRequest(r, cfg, log)
			if err != nil {
				result := ResultError
				if errors.Is(err, ErrSignatureMismatch) {
					result = ResultInvalid
				}

				cfg.Metrics.observe(result, alg, time.Since(start))
				log.V(1).Info("signature rejected", "algorithm", alg, "error", err.Error())
				onError(w, r, err)

				return
			}

			cfg.Metrics.observe(ResultValid, alg, time.Since(start))
			log.V(1).Info("signature verified", "algorithm", alg)

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), verificationIDKey{}, id)))
		})
	}, nil
}

// verifyRequest runs digest and signature checks for one request and
// returns the declared algorithm for diagnostics.
func verifyRequest(r *http.Request, cfg MiddlewareConfig, log logr.Logger) (Algorithm, error) {
	if cfg.RequireDigest {
		if err := VerifyDigest(r); err != nil {
			return "", err
		}
	}

	headers := HeaderFromHTTP(r.Header)

	params, err := ExtractParams(headers, cfg.SignHeader, cfg.Scheme, cfg.StrictScheme)
	if err != nil {
		return "", err
	}

	secret, err := cfg.Resolver(r, params.KeyID, params.Algorithm)
	if err != nil {
		return params.Algorithm, err
	}

	v, err := newHeaderVerifier(VerifyConfig{
		Headers:         headers,
		Secret:          secret,
		RequiredHeaders: cfg.RequiredHeaders,
		Method:          r.Method,
		Path:            requestTarget(r),
		Host:            r.Host,
		SignAlgorithm:   cfg.SignAlgorithm,
		Logger:          log,
	}, params)
	if err != nil {
		return params.Algorithm, err
	}

	ok, err := v.Verify()
	if err != nil {
		return params.Algorithm, err
	}

	if !ok {
		return params.Algorithm, ErrSignatureMismatch
	}

	return params.Algorithm, nil
}

// requestTarget returns the unmodified request target of a server request.
func requestTarget(r *http.Request) string {
	if r.RequestURI != "" {
		return r.RequestURI
	}

	return r.URL.RequestURI()
}

// defaultOnError writes a 401 Unauthorized response with no body.
func defaultOnError(w http.ResponseWriter, _ *http.Request, _ error) {
	w.WriteHeader(http.StatusUnauthorized)
}
