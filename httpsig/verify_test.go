package httpsig

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDate = "Tue, 07 Jun 2014 20:51:35 GMT"

func hmacSHA256Base64(secret, data string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// flipBase64 replaces one character in the middle of s with another valid
// base64 character.
func flipBase64(s string) string {
	b := []byte(s)
	i := len(b) / 3

	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}

	return string(b)
}

func TestVerifyHeaders(t *testing.T) {
	sig := hmacSHA256Base64("secret", "date: "+testDate)

	t.Run("end to end hmac-sha256", func(t *testing.T) {
		ok, err := VerifyHeaders(VerifyConfig{
			Headers: NewHeader(map[string]string{
				"date":          testDate,
				"authorization": `Signature keyId="Test",algorithm="hmac-sha256",headers="date",signature="` + sig + `"`,
			}),
			Secret: "secret",
		})
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("flipped signature byte is invalid", func(t *testing.T) {
		ok, err := VerifyHeaders(VerifyConfig{
			Headers: NewHeader(map[string]string{
				"date":          testDate,
				"authorization": `Signature keyId="Test",algorithm="hmac-sha256",headers="date",signature="` + flipBase64(sig) + `"`,
			}),
			Secret: "secret",
		})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("wrong secret is invalid", func(t *testing.T) {
		ok, err := VerifyHeaders(VerifyConfig{
			Headers: NewHeader(map[string]string{
				"date":          testDate,
				"authorization": `Signature keyId="Test",algorithm="hmac-sha256",headers="date",signature="` + sig + `"`,
			}),
			Secret: "other",
		})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("altered header is invalid", func(t *testing.T) {
		ok, err := VerifyHeaders(VerifyConfig{
			Headers: NewHeader(map[string]string{
				"date":          "Wed, 08 Jun 2014 20:51:35 GMT",
				"authorization": `Signature keyId="Test",algorithm="hmac-sha256",headers="date",signature="` + sig + `"`,
			}),
			Secret: "secret",
		})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("omitted headers parameter covers date", func(t *testing.T) {
		ok, err := VerifyHeaders(VerifyConfig{
			Headers: NewHeader(map[string]string{
				"Date":          testDate,
				"Authorization": `Signature keyId="Test",algorithm="hmac-sha256",signature="` + sig + `"`,
			}),
			Secret: []byte("secret"),
		})
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("dedicated signature header", func(t *testing.T) {
		ok, err := VerifyHeaders(VerifyConfig{
			Headers: NewHeader(map[string]string{
				"Date":      testDate,
				"Signature": `keyId="Test",algorithm="hmac-sha256",headers="date",signature="` + sig + `"`,
			}),
			Secret:     "secret",
			SignHeader: "Signature",
		})
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("missing sign header", func(t *testing.T) {
		_, err := VerifyHeaders(VerifyConfig{
			Headers: NewHeader(map[string]string{"Date": testDate}),
			Secret:  "secret",
		})
		assert.ErrorIs(t, err, ErrMalformedHeader)
	})

	t.Run("strict scheme", func(t *testing.T) {
		_, err := VerifyHeaders(VerifyConfig{
			Headers: NewHeader(map[string]string{
				"Date":          testDate,
				"Authorization": `Bearer keyId="Test",algorithm="hmac-sha256",signature="` + sig + `"`,
			}),
			Secret:       "secret",
			StrictScheme: true,
		})
		assert.ErrorIs(t, err, ErrMalformedHeader)
	})

	t.Run("covered header missing from request", func(t *testing.T) {
		_, err := VerifyHeaders(VerifyConfig{
			Headers: NewHeader(map[string]string{
				"Date":          testDate,
				"Authorization": `Signature keyId="Test",algorithm="hmac-sha256",headers="date digest",signature="` + sig + `"`,
			}),
			Secret: "secret",
		})
		assert.ErrorIs(t, err, ErrMissingHeader)
	})

	t.Run("request target without context", func(t *testing.T) {
		_, err := VerifyHeaders(VerifyConfig{
			Headers: NewHeader(map[string]string{
				"Date":          testDate,
				"Authorization": `Signature keyId="Test",algorithm="hmac-sha256",headers="(request-target) date",signature="` + sig + `"`,
			}),
			Secret: "secret",
		})
		assert.ErrorIs(t, err, ErrMissingContext)
	})

	t.Run("unsupported algorithm", func(t *testing.T) {
		_, err := VerifyHeaders(VerifyConfig{
			Headers: NewHeader(map[string]string{
				"Date":          testDate,
				"Authorization": `Signature keyId="Test",algorithm="ecdsa-sha256",signature="` + sig + `"`,
			}),
			Secret: "secret",
		})
		assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
	})

	t.Run("key family mismatch", func(t *testing.T) {
		_, err := VerifyHeaders(VerifyConfig{
			Headers: NewHeader(map[string]string{
				"Date":          testDate,
				"Authorization": `Signature keyId="Test",algorithm="rsa-sha256",signature="` + sig + `"`,
			}),
			Secret: "secret",
		})
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestHeaderVerifierPolicy(t *testing.T) {
	sig := hmacSHA256Base64("secret", "date: "+testDate)

	t.Run("required header not covered", func(t *testing.T) {
		spy := &spyAlgorithm{result: true}

		v, err := NewHeaderVerifier(VerifyConfig{
			Headers: NewHeader(map[string]string{
				"Date":          testDate,
				"Authorization": `Signature keyId="Test",algorithm="hs2019",headers="date",signature="` + sig + `"`,
			}),
			Secret:          "secret",
			RequiredHeaders: []string{"date", "digest"},
			SignAlgorithm:   spy,
		})
		require.NoError(t, err)

		ok, err := v.Verify()
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrMissingRequiredHeader)

		var policyErr *PolicyError
		require.True(t, errors.As(err, &policyErr))
		assert.Equal(t, []string{"digest"}, policyErr.Missing)
		assert.Contains(t, err.Error(), "digest")

		assert.Zero(t, spy.calls, "no cryptographic check may run")
	})

	t.Run("policy is checked before canonicalization", func(t *testing.T) {
		_, err := VerifyHeaders(VerifyConfig{
			Headers: NewHeader(map[string]string{
				"Authorization": `Signature keyId="Test",algorithm="hmac-sha256",headers="x-absent",signature="` + sig + `"`,
			}),
			Secret:          "secret",
			RequiredHeaders: []string{"(request-target)", "Host"},
		})

		var policyErr *PolicyError
		require.ErrorAs(t, err, &policyErr)
		assert.Equal(t, []string{"(request-target)", "host"}, policyErr.Missing)
	})

	t.Run("required headers default to date", func(t *testing.T) {
		hostSig := hmacSHA256Base64("secret", "host: example.org")

		_, err := VerifyHeaders(VerifyConfig{
			Headers: NewHeader(map[string]string{
				"Host":          "example.org",
				"Authorization": `Signature keyId="Test",algorithm="hmac-sha256",headers="host",signature="` + hostSig + `"`,
			}),
			Secret: "secret",
		})
		assert.ErrorIs(t, err, ErrMissingRequiredHeader)
	})

	t.Run("required headers compare lower-cased", func(t *testing.T) {
		ok, err := VerifyHeaders(VerifyConfig{
			Headers: NewHeader(map[string]string{
				"Date":          testDate,
				"Authorization": `Signature keyId="Test",algorithm="hmac-sha256",headers="Date",signature="` + sig + `"`,
			}),
			Secret:          "secret",
			RequiredHeaders: []string{"DATE"},
		})
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestHeaderVerifierAlgorithms(t *testing.T) {
	sig := hmacSHA256Base64("secret", "date: "+testDate)
	hs2019Header := NewHeader(map[string]string{
		"Date":          testDate,
		"Authorization": `Signature keyId="Test",algorithm="hs2019",headers="date",signature="` + sig + `"`,
	})

	t.Run("hs2019 without sign algorithm fails at construction", func(t *testing.T) {
		_, err := NewHeaderVerifier(VerifyConfig{Headers: hs2019Header, Secret: "secret"})
		assert.ErrorIs(t, err, ErrSignAlgorithmRequired)
	})

	t.Run("hs2019 result comes from sign algorithm", func(t *testing.T) {
		for _, want := range []bool{true, false} {
			spy := &spyAlgorithm{result: want}

			ok, err := VerifyHeaders(VerifyConfig{Headers: hs2019Header, Secret: "secret", SignAlgorithm: spy})
			require.NoError(t, err)
			assert.Equal(t, want, ok)
			assert.Equal(t, 1, spy.calls)
		}
	})

	t.Run("hs2019 with pss round trip", func(t *testing.T) {
		key := rsaKey(t)
		signer, err := NewPSSSigner("pss", key)
		require.NoError(t, err)

		raw, err := signer.Sign([]byte("(request-target): post /items\ndate: " + testDate))
		require.NoError(t, err)

		headers := NewHeader(map[string]string{
			"Date":          testDate,
			"Authorization": "Signature " + formatParams("pss", AlgorithmHS2019, []string{RequestTarget, "date"}, raw),
		})

		ok, err := VerifyHeaders(VerifyConfig{
			Headers:       headers,
			Secret:        &key.PublicKey,
			Method:        "POST",
			Path:          "/items",
			SignAlgorithm: PSS{},
		})
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("legacy algorithm logs advisory", func(t *testing.T) {
		var messages []string

		ok, err := VerifyHeaders(VerifyConfig{
			Headers: NewHeader(map[string]string{
				"Date":          testDate,
				"Authorization": `Signature keyId="Test",algorithm="hmac-sha256",signature="` + sig + `"`,
			}),
			Secret: "secret",
			Logger: recordingLogger(&messages),
		})
		require.NoError(t, err)
		assert.True(t, ok)

		require.Len(t, messages, 1)
		assert.Contains(t, messages[0], "deprecated signature algorithm")
		assert.Contains(t, messages[0], "hmac-sha256")
		assert.NotContains(t, messages[0], "secret")
	})

	t.Run("hs2019 logs nothing", func(t *testing.T) {
		var messages []string

		_, err := VerifyHeaders(VerifyConfig{
			Headers:       hs2019Header,
			Secret:        "secret",
			SignAlgorithm: &spyAlgorithm{},
			Logger:        recordingLogger(&messages),
		})
		require.NoError(t, err)
		assert.Empty(t, messages)
	})

	t.Run("params are exposed", func(t *testing.T) {
		v, err := NewHeaderVerifier(VerifyConfig{Headers: hs2019Header, SignAlgorithm: &spyAlgorithm{}})
		require.NoError(t, err)

		assert.Equal(t, "Test", v.Params().KeyID)
		assert.Equal(t, AlgorithmHS2019, v.Params().Algorithm)
	})
}

func TestVerifyHeadersRSA(t *testing.T) {
	key := rsaKey(t)
	headers := map[string]string{
		"Host":         "example.org",
		"Date":         testDate,
		"Content-Type": "application/json",
	}

	signing, err := BuildSigningString(
		[]string{RequestTarget, "host", "date", "content-type"},
		NewHeader(headers), "", "POST", "/foo?param=value&pet=dog",
	)
	require.NoError(t, err)

	signer, err := NewRSASigner("Test", AlgorithmRSASHA256, key)
	require.NoError(t, err)

	raw, err := signer.Sign([]byte(signing))
	require.NoError(t, err)

	headers["Authorization"] = "Signature " + formatParams("Test", AlgorithmRSASHA256,
		[]string{RequestTarget, "host", "date", "content-type"}, raw)

	t.Run("valid", func(t *testing.T) {
		ok, err := VerifyHeaders(VerifyConfig{
			Headers:         NewHeader(headers),
			Secret:          &key.PublicKey,
			RequiredHeaders: []string{RequestTarget, "host", "date"},
			Method:          "POST",
			Path:            "/foo?param=value&pet=dog",
		})
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("method case does not matter", func(t *testing.T) {
		ok, err := VerifyHeaders(VerifyConfig{
			Headers: NewHeader(headers),
			Secret:  &key.PublicKey,
			Method:  "post",
			Path:    "/foo?param=value&pet=dog",
		})
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("different path", func(t *testing.T) {
		ok, err := VerifyHeaders(VerifyConfig{
			Headers: NewHeader(headers),
			Secret:  &key.PublicKey,
			Method:  "POST",
			Path:    "/foo?param=value&pet=cat",
		})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("extra whitespace in value", func(t *testing.T) {
		altered := NewHeader(headers)
		altered.Set("content-type", strings.ReplaceAll(headers["Content-Type"], "/", " /"))

		ok, err := VerifyHeaders(VerifyConfig{
			Headers: altered,
			Secret:  &key.PublicKey,
			Method:  "POST",
			Path:    "/foo?param=value&pet=dog",
		})
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
