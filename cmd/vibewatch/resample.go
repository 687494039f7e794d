package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vibewatch/vibewatch/pkg/resample"
)

func resampleCmd() *cobra.Command {
	var (
		in      string
		out     string
		repeats int
		rate    float64
	)

	cmd := &cobra.Command{
		Use:   "resample",
		Short: "Convert an instrument CSV export into a replayable waveform",
		Long: `resample decodes an instrument CSV export (Shift JIS, sample rows framed
by #EndHeader and #BeginMark), halves the sampling rate by pairwise
averaging, and repeat-concatenates the result into a long replay file for
use with the replay command.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			if err := resample.Process(in, out, repeats, rate); err != nil {
				return err
			}
			logger.Info("resample complete", "in", in, "out", out, "repeats", repeats)
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "instrument CSV export to convert")
	cmd.Flags().StringVar(&out, "out", "waveform_25khz.csv", "replay CSV to write")
	cmd.Flags().IntVar(&repeats, "repeats", 200, "times to repeat the recording")
	cmd.Flags().Float64Var(&rate, "rate", 25000, "target sampling rate in hertz")
	cmd.MarkFlagRequired("in")
	return cmd
}
