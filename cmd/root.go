package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/observability"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "arq-sim",
		Short: "arq-sim simulates Go-Back-N and Selective-Repeat links and a link-state network built on them",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("error parsing log level: %w", err)
			}
			logrus.SetLevel(level)
			return nil
		},
		SilenceUsage: true,
	}

	logLevel    string
	metricsAddr string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", logrus.InfoLevel.String(), "logrus log level")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while running")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func contextWithCancelOnInterrupt(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// startMetrics serves metrics until ctx is done if --metrics-addr was
// given. The returned function waits for the server to stop.
func startMetrics(ctx context.Context) (func(), error) {
	if metricsAddr == "" {
		return func() {}, nil
	}
	return observability.ServeMetrics(ctx, metricsAddr)
}
