package httpsig

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Parameter names in the signature-bearing header.
const (
	paramKeyID     = "keyId"
	paramAlgorithm = "algorithm"
	paramHeaders   = "headers"
	paramSignature = "signature"
)

// RequestTarget is the pseudo-header covering the request method and path.
const RequestTarget = "(request-target)"

// DefaultScheme is the Authorization scheme carrying signature parameters.
const DefaultScheme = "Signature"

// knownParams holds the lower-cased names of the parameters mapped onto
// Params fields.
var knownParams = map[string]bool{
	strings.ToLower(paramKeyID):     true,
	strings.ToLower(paramAlgorithm): true,
	strings.ToLower(paramHeaders):   true,
	strings.ToLower(paramSignature): true,
}

// paramField is one parsed parameter with its name as sent.
type paramField struct {
	name  string
	value string
}

// defaultHeaders is used when the headers parameter is omitted.
var defaultHeaders = []string{"date"}

// Params holds the parameters parsed from a signature-bearing header.
type Params struct {
	KeyID     string
	Algorithm Algorithm

	// Headers lists the covered header names, lower-cased, in signing
	// order.
	Headers []string

	// Signature is the decoded signature value.
	Signature []byte

	// Extensions holds every other declared parameter (created, expires,
	// ...), keyed by name as sent.
	Extensions map[string]string
}

// ExtractParams locates the signature-bearing header named signHeader in h
// and parses it. An Authorization header must carry a scheme token; when
// strict is set the token must equal scheme. Any other header name is
// parsed without a scheme.
func ExtractParams(h Header, signHeader, scheme string, strict bool) (*Params, error) {
	if signHeader == "" {
		signHeader = "authorization"
	}

	value, ok := h.Get(signHeader)
	if !ok {
		return nil, fmt.Errorf("%w: header %q not present", ErrMalformedHeader, signHeader)
	}

	if strings.EqualFold(signHeader, "authorization") {
		return ParseAuthorization(value, scheme, strict)
	}

	return ParseSignature(value)
}

// ParseAuthorization parses an Authorization header value of the form
// `<scheme> keyId="...",algorithm="...",...`. The scheme token is
// required. When strict is set, the scheme must match scheme (or
// DefaultScheme when empty), ignoring case.
func ParseAuthorization(value, scheme string, strict bool) (*Params, error) {
	value = strings.TrimSpace(value)

	token, rest, ok := strings.Cut(value, " ")
	if !ok || token == "" || strings.ContainsAny(token, `=",`) {
		return nil, fmt.Errorf("%w: missing authorization scheme", ErrMalformedHeader)
	}

	if strict {
		if scheme == "" {
			scheme = DefaultScheme
		}

		if !strings.EqualFold(token, scheme) {
			return nil, fmt.Errorf("%w: unexpected authorization scheme %q", ErrMalformedHeader, token)
		}
	}

	return ParseSignature(rest)
}

// ParseSignature parses a bare signature parameter list such as the value
// of a Signature header. Parameter names are matched case-insensitively.
func ParseSignature(value string) (*Params, error) {
	fields, err := parseParamList(value)
	if err != nil {
		return nil, err
	}

	get := func(name string) (string, bool) {
		f, ok := fields[strings.ToLower(name)]
		return f.value, ok
	}

	keyID, _ := get(paramKeyID)
	alg, _ := get(paramAlgorithm)
	sig, _ := get(paramSignature)

	params := &Params{
		KeyID:     keyID,
		Algorithm: Algorithm(alg),
	}

	for _, req := range [][2]string{{paramKeyID, keyID}, {paramAlgorithm, alg}, {paramSignature, sig}} {
		if req[1] == "" {
			return nil, fmt.Errorf("%w: missing %s parameter", ErrMalformedHeader, req[0])
		}
	}

	params.Signature, err = base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 in signature", ErrMalformedHeader)
	}

	params.Headers = slices.Clone(defaultHeaders)
	if raw, ok := get(paramHeaders); ok {
		params.Headers, err = parseHeaderList(raw)
		if err != nil {
			return nil, err
		}
	}

	for lower, f := range fields {
		if knownParams[lower] {
			continue
		}

		if params.Extensions == nil {
			params.Extensions = make(map[string]string)
		}

		params.Extensions[f.name] = f.value
	}

	return params, nil
}

// parseHeaderList splits the headers parameter on whitespace and
// lower-cases each name.
func parseHeaderList(raw string) ([]string, error) {
	names := strings.Fields(strings.ToLower(raw))
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: empty headers parameter", ErrMalformedHeader)
	}

	for _, name := range names {
		if name != RequestTarget && !httpguts.ValidHeaderFieldName(name) {
			return nil, fmt.Errorf("%w: invalid header name %q", ErrMalformedHeader, name)
		}
	}

	return names, nil
}

// parseParamList parses `key="value", key=token` pairs into a map keyed by
// the lower-cased name. Whitespace around "=" and "," is ignored, as is a
// single trailing comma. Unterminated quotes, empty members, missing values
// and keys repeated in any casing are rejected.
func parseParamList(s string) (map[string]paramField, error) {
	fields := make(map[string]paramField)
	i := 0

	for {
		i = skipSpace(s, i)
		if i == len(s) {
			return nil, fmt.Errorf("%w: empty parameter", ErrMalformedHeader)
		}

		start := i
		for i < len(s) && s[i] != '=' && s[i] != ',' && !isSpace(s[i]) {
			i++
		}

		key := s[start:i]
		if key == "" {
			return nil, fmt.Errorf("%w: empty parameter name", ErrMalformedHeader)
		}

		i = skipSpace(s, i)
		if i == len(s) || s[i] != '=' {
			return nil, fmt.Errorf("%w: parameter %q has no value", ErrMalformedHeader, key)
		}

		i = skipSpace(s, i+1)

		var (
			value string
			err   error
		)

		if i < len(s) && s[i] == '"' {
			value, i, err = readQuoted(s, i)
			if err != nil {
				return nil, err
			}
		} else {
			start = i
			for i < len(s) && s[i] != ',' && !isSpace(s[i]) {
				if s[i] == '"' {
					return nil, fmt.Errorf("%w: unexpected quote in %q", ErrMalformedHeader, key)
				}
				i++
			}

			value = s[start:i]
			if value == "" {
				return nil, fmt.Errorf("%w: parameter %q has no value", ErrMalformedHeader, key)
			}
		}

		lower := strings.ToLower(key)
		if _, dup := fields[lower]; dup {
			return nil, fmt.Errorf("%w: duplicate parameter %q", ErrMalformedHeader, key)
		}

		fields[lower] = paramField{name: key, value: value}

		i = skipSpace(s, i)
		if i == len(s) {
			return fields, nil
		}

		if s[i] != ',' {
			return nil, fmt.Errorf("%w: expected ',' after %q", ErrMalformedHeader, key)
		}

		i = skipSpace(s, i+1)
		if i == len(s) {
			return fields, nil
		}
	}
}

// readQuoted reads a quoted string starting at s[i] == '"' and returns the
// unescaped content and the index just past the closing quote.
func readQuoted(s string, i int) (string, int, error) {
	var b strings.Builder

	for i++; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 == len(s) {
				return "", 0, fmt.Errorf("%w: unterminated quoted string", ErrMalformedHeader)
			}

			i++
			b.WriteByte(s[i])

		case '"':
			return b.String(), i + 1, nil

		default:
			b.WriteByte(s[i])
		}
	}

	return "", 0, fmt.Errorf("%w: unterminated quoted string", ErrMalformedHeader)
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}

	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t'
}

// formatParams renders params in the wire order keyId, algorithm,
// headers, signature.
func formatParams(keyID string, alg Algorithm, headers []string, signature []byte) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s=%s,", paramKeyID, quote(keyID))
	fmt.Fprintf(&b, "%s=%s,", paramAlgorithm, quote(alg.String()))
	fmt.Fprintf(&b, "%s=%s,", paramHeaders, quote(strings.Join(headers, " ")))
	fmt.Fprintf(&b, "%s=%s", paramSignature, quote(base64.StdEncoding.EncodeToString(signature)))

	return b.String()
}

// quote produces a quoted string, escaping only backslash and double-quote.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '\\' || ch == '"' {
			b.WriteByte('\\')
		}

		b.WriteByte(ch)
	}

	b.WriteByte('"')

	return b.String()
}

// canonicalSignHeader returns the canonical form of a sign header name for
// use with net/http.
func canonicalSignHeader(name string) string {
	if name == "" {
		return "Authorization"
	}

	return http.CanonicalHeaderKey(name)
}
