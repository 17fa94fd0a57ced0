// Package cmd implements the httpsig CLI commands.
package cmd

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Version is set at build time
	Version = "0.1.0"

	// Global flags
	configPath string
	debug      bool

	// Shared state, initialized in PersistentPreRunE
	cfg    *Config
	ring   *keyring
	log    logr.Logger
	zapLog *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "httpsig",
	Short: "Sign and verify HTTP Signatures",
	Long: `httpsig signs and verifies HTTP requests carrying draft-cavage
HTTP Signatures.

Keys are read from a YAML keyring. Raw HTTP/1.1 requests are read from a
file or stdin, and the serve command runs an HTTP server that only passes
correctly signed requests.`,
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Name() == "help" {
			return nil
		}

		var err error
		zapLog, err = newZapLogger(debug)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		log = zapr.NewLogger(zapLog)

		cfg, err = LoadConfig(configPath)
		if err != nil {
			return err
		}

		ring, err = newKeyring(cfg)
		if err != nil {
			return fmt.Errorf("failed to load keyring: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if zapLog != nil {
			_ = zapLog.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "httpsig.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func newZapLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}
