package cmd

import (
	"context"

	"github.com/PozigunMikhail/GoBackNAndSelectiveRepeat/layers/network"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var networkOutputDir string

var networkCmd = &cobra.Command{
	Use:   "network [config file]",
	Short: "Simulate a network of nodes discovering each other and computing shortest paths",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf := network.DefaultNetworkConfig()
		if len(args) == 1 {
			var err error
			if conf, err = network.ReadConfigFile(args[0]); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("output-dir") {
			conf.OutputDir = networkOutputDir
		}

		ctx, cancel := contextWithCancelOnInterrupt(context.Background())
		defer cancel()
		waitMetrics, err := startMetrics(ctx)
		if err != nil {
			return err
		}
		defer waitMetrics()
		defer cancel()

		res, err := network.Run(ctx, conf)
		if err != nil {
			return err
		}
		if err := network.WriteReports(conf.OutputDir, res.Reports); err != nil {
			return err
		}
		logrus.
			WithField("output_dir", conf.OutputDir).
			WithField("nodes", len(res.Reports)).
			WithField("adjacency", res.Adjacency).
			Info("network reports written")
		return nil
	},
}

func init() {
	networkCmd.Flags().StringVar(&networkOutputDir, "output-dir", ".", "directory for the <id>_outfile.yaml reports")
	rootCmd.AddCommand(networkCmd)
}
