package httpsig

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeader(t *testing.T) {
	t.Run("lookup ignores case", func(t *testing.T) {
		h := NewHeader(map[string]string{"Date": "Tue, 07 Jun 2014 20:51:35 GMT"})

		for _, name := range []string{"date", "DATE", "Date", "dAtE"} {
			v, ok := h.Get(name)
			assert.True(t, ok, name)
			assert.Equal(t, "Tue, 07 Jun 2014 20:51:35 GMT", v)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		h := NewHeader(nil)

		_, ok := h.Get("date")
		assert.False(t, ok)
	})

	t.Run("keys differing in case resolve deterministically", func(t *testing.T) {
		for range 10 {
			h := NewHeader(map[string]string{"X-Foo": "upper", "x-foo": "lower"})
			v, _ := h.Get("x-foo")
			assert.Equal(t, "lower", v)
		}
	})

	t.Run("value is kept verbatim", func(t *testing.T) {
		h := NewHeader(map[string]string{"X-Spaces": "  a  b  "})

		v, _ := h.Get("x-spaces")
		assert.Equal(t, "  a  b  ", v)
	})

	t.Run("from http header joins values", func(t *testing.T) {
		src := http.Header{}
		src.Add("Cache-Control", "max-age=60")
		src.Add("Cache-Control", "must-revalidate")
		src["Empty"] = nil

		h := HeaderFromHTTP(src)

		v, ok := h.Get("cache-control")
		assert.True(t, ok)
		assert.Equal(t, "max-age=60, must-revalidate", v)

		_, ok = h.Get("empty")
		assert.False(t, ok)
	})
}
