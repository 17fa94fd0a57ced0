package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/vitalvas/httpsig/httpsig"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
	metricsPath       = "/metrics"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an HTTP server that only accepts signed requests",
	Long: `Run an HTTP server whose routes are guarded by signature verification.

Every path except /metrics requires a valid signature. Verified requests
are answered with 200 and the verification ID; all others with 401.
Verification outcomes are exported as Prometheus metrics on /metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		addr := listenAddr
		if addr == "" {
			addr = cfg.Listen
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		handler, err := newServeHandler(cfg, ring, log, reg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runServer(ctx, addr, handler, log)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "Listen address (default from config, then :8080)")

	rootCmd.AddCommand(serveCmd)
}

// newServeHandler wires the verification middleware and the metrics
// endpoint.
func newServeHandler(cfg *Config, ring *keyring, log logr.Logger, reg *prometheus.Registry) (http.Handler, error) {
	metrics, err := httpsig.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	alg, err := cfg.signAlgorithm()
	if err != nil {
		return nil, err
	}

	verify, err := httpsig.Middleware(httpsig.MiddlewareConfig{
		Resolver:        ring.resolve,
		RequiredHeaders: cfg.RequiredHeaders,
		SignHeader:      cfg.SignHeader,
		Scheme:          cfg.Scheme,
		StrictScheme:    cfg.StrictScheme,
		SignAlgorithm:   alg,
		RequireDigest:   cfg.RequireDigest,
		Logger:          log,
		Metrics:         metrics,
	})
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/", verify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "verified %s\n", httpsig.VerificationIDFromContext(r.Context()))
	})))

	return mux, nil
}

// runServer serves handler on addr until ctx is done, then shuts down
// gracefully.
func runServer(ctx context.Context, addr string, handler http.Handler, log logr.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
