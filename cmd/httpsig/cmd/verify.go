package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/vitalvas/httpsig/httpsig"
)

var errInvalidSignature = errors.New("signature does not match")

var verifyCmd = &cobra.Command{
	Use:   "verify [file]",
	Short: "Verify the signature of a raw HTTP request",
	Long: `Read a raw HTTP/1.1 request from file (or stdin when omitted) and verify
its signature against the keyring.

The command exits with a non-zero status when the signature is invalid or
cannot be checked.`,
	Example: `  httpsig verify request.txt
  curl -sv ... 2>&1 | httpsig verify`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := readRequest(cmd, args)
		if err != nil {
			return err
		}

		params, err := verifyRawRequest(r, cfg, ring, log)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "valid keyId=%s algorithm=%s headers=%v\n",
			params.KeyID, params.Algorithm, params.Headers)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

// readRequest parses a raw HTTP/1.1 request from args[0] or stdin.
func readRequest(cmd *cobra.Command, args []string) (*http.Request, error) {
	var in io.Reader = cmd.InOrStdin()

	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to open request: %w", err)
		}
		defer f.Close()

		in = f
	}

	r, err := http.ReadRequest(bufio.NewReader(in))
	if err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}

	return r, nil
}

// verifyRawRequest checks the digest (when required) and the signature of
// r using the configured keyring.
func verifyRawRequest(r *http.Request, cfg *Config, ring *keyring, log logr.Logger) (*httpsig.Params, error) {
	if cfg.RequireDigest {
		if err := httpsig.VerifyDigest(r); err != nil {
			return nil, err
		}
	}

	headers := httpsig.HeaderFromHTTP(r.Header)

	params, err := httpsig.ExtractParams(headers, cfg.SignHeader, cfg.Scheme, cfg.StrictScheme)
	if err != nil {
		return nil, err
	}

	secret, err := ring.resolve(r, params.KeyID, params.Algorithm)
	if err != nil {
		return nil, err
	}

	alg, err := cfg.signAlgorithm()
	if err != nil {
		return nil, err
	}

	ok, err := httpsig.VerifyHeaders(httpsig.VerifyConfig{
		Headers:         headers,
		Secret:          secret,
		RequiredHeaders: cfg.RequiredHeaders,
		Method:          r.Method,
		Path:            r.RequestURI,
		Host:            r.Host,
		SignHeader:      cfg.SignHeader,
		SignAlgorithm:   alg,
		Scheme:          cfg.Scheme,
		StrictScheme:    cfg.StrictScheme,
		Logger:          log.WithValues("keyId", params.KeyID),
	})
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, errInvalidSignature
	}

	return params, nil
}
