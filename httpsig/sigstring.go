package httpsig

import (
	"fmt"
	"strings"
)

// BuildSigningString reconstructs the signing string over the covered
// header names, in order:
//
//	(request-target): <lower-cased method> <path>
//	<lower-cased name>: <value>
//
// Lines are joined with a single "\n" and there is no trailing newline.
// A covered "host" missing from headers falls back to host. An empty
// names list covers "date" only.
//
// The output must match the signer byte for byte; values are copied
// verbatim without trimming or folding.
func BuildSigningString(names []string, headers Header, host, method, path string) (string, error) {
	if len(names) == 0 {
		names = defaultHeaders
	}

	var b strings.Builder

	for i, name := range names {
		name = strings.ToLower(name)

		value, err := signingValue(name, headers, host, method, path)
		if err != nil {
			return "", err
		}

		if i > 0 {
			b.WriteByte('\n')
		}

		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
	}

	return b.String(), nil
}

// signingValue returns the value placed after "<name>: " for one covered
// name.
func signingValue(name string, headers Header, host, method, path string) (string, error) {
	if name == RequestTarget {
		if method == "" || path == "" {
			return "", ErrMissingContext
		}

		return strings.ToLower(method) + " " + path, nil
	}

	if value, ok := headers.Get(name); ok {
		return value, nil
	}

	// net/http keeps Host out of the header map.
	if name == "host" && host != "" {
		return host, nil
	}

	return "", fmt.Errorf("%w: %s", ErrMissingHeader, name)
}
