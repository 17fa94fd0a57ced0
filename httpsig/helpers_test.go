package httpsig

import (
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/require"
)

var testRSAKey = sync.OnceValues(func() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, 2048)
})

func rsaKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()

	key, err := testRSAKey()
	require.NoError(t, err)

	return key
}

// recordingLogger collects the messages of every Info call.
func recordingLogger(messages *[]string) logr.Logger {
	return funcr.New(func(_, args string) {
		*messages = append(*messages, args)
	}, funcr.Options{Verbosity: 1})
}

// spyAlgorithm is a SignAlgorithm that records calls and returns a fixed
// result.
type spyAlgorithm struct {
	calls  int
	result bool
	err    error
}

func (s *spyAlgorithm) Verify(_ any, _, _ []byte) (bool, error) {
	s.calls++
	return s.result, s.err
}
