package httpsig

import (
	"slices"
	"strings"

	"github.com/go-logr/logr"
)

// VerifyConfig describes one verification attempt.
type VerifyConfig struct {
	// Headers holds the request headers. Required.
	Headers Header

	// Secret is the HMAC shared secret or the RSA public key. The
	// declared algorithm picks the family, so callers holding asymmetric
	// keys should check Params().Algorithm against the key before
	// trusting the result. PEM input is never accepted as an HMAC secret.
	Secret any

	// RequiredHeaders lists headers that must be covered by the signature.
	// Defaults to ["date"] when empty.
	RequiredHeaders []string

	// Method and Path are required when (request-target) is covered. Path
	// is the request target exactly as sent, including the query.
	Method string
	Path   string

	// Host is used for a covered "host" that is missing from Headers.
	Host string

	// SignHeader names the signature-bearing header. Defaults to
	// "authorization".
	SignHeader string

	// SignAlgorithm verifies hs2019 and any algorithm that is not built
	// in. Required when the signature declares hs2019.
	SignAlgorithm SignAlgorithm

	// Scheme is the expected Authorization scheme. Defaults to
	// DefaultScheme. Only checked when StrictScheme is set.
	Scheme string

	// StrictScheme rejects Authorization headers whose scheme is not
	// Scheme. When false any scheme token is accepted.
	StrictScheme bool

	// Logger receives non-fatal advisories. The zero value discards.
	Logger logr.Logger
}

// HeaderVerifier verifies a signature over a set of request headers. It
// is built for a single verification and is not reused across requests.
type HeaderVerifier struct {
	cfg        VerifyConfig
	params     *Params
	required   []string
	dispatcher Dispatcher
}

// NewHeaderVerifier parses the signature-bearing header and checks the
// configuration. It returns ErrMalformedHeader when the header cannot be
// parsed and ErrSignAlgorithmRequired when hs2019 is declared without a
// SignAlgorithm.
func NewHeaderVerifier(cfg VerifyConfig) (*HeaderVerifier, error) {
	params, err := ExtractParams(cfg.Headers, cfg.SignHeader, cfg.Scheme, cfg.StrictScheme)
	if err != nil {
		return nil, err
	}

	return newHeaderVerifier(cfg, params)
}

func newHeaderVerifier(cfg VerifyConfig, params *Params) (*HeaderVerifier, error) {
	if params.Algorithm.is(DefaultAlgorithm) {
		if cfg.SignAlgorithm == nil {
			return nil, ErrSignAlgorithmRequired
		}
	} else {
		cfg.Logger.Info("deprecated signature algorithm",
			"algorithm", params.Algorithm,
			"recommended", DefaultAlgorithm,
			"keyId", params.KeyID,
		)
	}

	required := cfg.RequiredHeaders
	if len(required) == 0 {
		required = defaultHeaders
	}

	lowered := make([]string, 0, len(required))
	for _, h := range required {
		lowered = append(lowered, strings.ToLower(h))
	}

	return &HeaderVerifier{
		cfg:        cfg,
		params:     params,
		required:   lowered,
		dispatcher: Dispatcher{Extension: cfg.SignAlgorithm},
	}, nil
}

// Params returns the parsed signature parameters.
func (v *HeaderVerifier) Params() *Params {
	return v.params
}

// Verify checks the signature. It returns a *PolicyError when a required
// header is not covered, before any cryptographic work. A signature that
// does not match is reported as (false, nil).
func (v *HeaderVerifier) Verify() (bool, error) {
	var missing []string
	for _, h := range v.required {
		if !slices.Contains(v.params.Headers, h) && !slices.Contains(missing, h) {
			missing = append(missing, h)
		}
	}

	if len(missing) > 0 {
		slices.Sort(missing)
		return false, &PolicyError{Missing: missing}
	}

	signing, err := BuildSigningString(v.params.Headers, v.cfg.Headers, v.cfg.Host, v.cfg.Method, v.cfg.Path)
	if err != nil {
		return false, err
	}

	return v.dispatcher.Verify(v.params.Algorithm, v.cfg.Secret, []byte(signing), v.params.Signature)
}

// VerifyHeaders builds a HeaderVerifier from cfg and runs it.
func VerifyHeaders(cfg VerifyConfig) (bool, error) {
	v, err := NewHeaderVerifier(cfg)
	if err != nil {
		return false, err
	}

	return v.Verify()
}
