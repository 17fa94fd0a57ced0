package httpsig

import "net/http"

// Transport is an http.RoundTripper that signs every outgoing request
// with a fixed SignConfig before handing it to the base transport.
//
//	signer, _ := httpsig.NewHMACSigner("client-1", httpsig.AlgorithmHMACSHA256, secret)
//	client := &http.Client{
//	    Transport: httpsig.NewTransport(nil, httpsig.SignConfig{
//	        Signer:  signer,
//	        Headers: []string{httpsig.RequestTarget, "host", "date"},
//	    }),
//	}
type Transport struct {
	base   http.RoundTripper
	config SignConfig
}

// NewTransport wraps base. A nil base is replaced by a clone of
// http.DefaultTransport.
func NewTransport(base *http.Transport, cfg SignConfig) *Transport {
	if base == nil {
		base = http.DefaultTransport.(*http.Transport).Clone()
	}

	return &Transport{base: base, config: cfg}
}

// RoundTrip implements http.RoundTripper. The caller's request is never
// modified: signing happens on a clone whose body, when replayable, is a
// fresh copy from GetBody.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())

	if out.Body != nil && out.Body != http.NoBody && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}

		out.Body = body
	}

	// Outgoing client requests usually leave Host empty and rely on URL.
	if out.Host == "" {
		out.Host = out.URL.Host
	}

	if err := SignRequest(out, t.config); err != nil {
		return nil, err
	}

	return t.base.RoundTrip(out)
}
