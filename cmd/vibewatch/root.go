package main

import (
	"github.com/spf13/cobra"

	"github.com/vibewatch/vibewatch/pkg/config"
)

func rootCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "vibewatch",
		Short: "Streaming anomaly detection for vibration sensors",
		Long: `vibewatch scores a continuous stream of vibration waveform chunks for
anomalousness without labeled data, using an ensemble of streaming random
cut trees over shingled signal features.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a YAML config file")

	cmd.AddCommand(
		watchCmd(&cfgPath),
		replayCmd(&cfgPath),
		resampleCmd(),
	)
	return cmd
}

// loadConfig returns the defaults, or the given file layered over them.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
