package httpsig

import (
	"maps"
	"net/http"
	"slices"
	"strings"
)

// Header is a case-insensitive mapping of header names to values. Names
// are lower-cased on insertion and lookup.
type Header map[string]string

// NewHeader builds a Header from a plain map. When two keys differ only in
// case, the value of the one sorting last wins.
func NewHeader(m map[string]string) Header {
	h := make(Header, len(m))
	for _, name := range slices.Sorted(maps.Keys(m)) {
		h.Set(name, m[name])
	}

	return h
}

// HeaderFromHTTP builds a Header from an http.Header. Multiple values for
// the same header are joined with ", ".
func HeaderFromHTTP(src http.Header) Header {
	h := make(Header, len(src))
	for name, values := range src {
		if len(values) == 0 {
			continue
		}

		h.Set(name, strings.Join(values, ", "))
	}

	return h
}

// Set stores value under the lower-cased name.
func (h Header) Set(name, value string) {
	h[strings.ToLower(name)] = value
}

// Get returns the value for name and whether it was present.
func (h Header) Get(name string) (string, bool) {
	v, ok := h[strings.ToLower(name)]
	return v, ok
}
