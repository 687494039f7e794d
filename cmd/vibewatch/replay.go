package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vibewatch/vibewatch/pkg/config"
	"github.com/vibewatch/vibewatch/pkg/io/csv"
	"github.com/vibewatch/vibewatch/pkg/io/mqtt"
)

func replayCmd(cfgPath *string) *cobra.Command {
	var (
		file     string
		column   int
		header   bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Publish a recorded waveform CSV as a live chunk stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			return runReplay(cmd.Context(), cfg, file, column, header, interval)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "waveform CSV to replay")
	cmd.Flags().IntVar(&column, "column", 1, "zero-based column holding the sample value")
	cmd.Flags().BoolVar(&header, "header", false, "skip a header row")
	cmd.Flags().DurationVar(&interval, "interval", 100*time.Millisecond, "delay between chunks")
	cmd.MarkFlagRequired("file")
	return cmd
}

func runReplay(ctx context.Context, cfg config.Config, file string, column int, header bool, interval time.Duration) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	reader, err := csv.NewReader(file,
		csv.WithChunkSize(cfg.ChunkSize),
		csv.WithColumn(column),
		csv.WithHeader(header),
	)
	if err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}
	defer reader.Close()

	publisher, err := mqtt.NewPublisher(cfg.Broker, cfg.Topic, mqtt.WithClientID("vibewatch-replay"))
	if err != nil {
		return err
	}
	defer publisher.Close()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	chunks, err := reader.Chunks(ctx)
	if err != nil {
		return err
	}

	logger.Info("replaying waveform",
		"file", file, "broker", cfg.Broker, "topic", cfg.Topic,
		"chunk_size", cfg.ChunkSize, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sent := 0
	for chunk := range chunks {
		if err := publisher.Publish(chunk); err != nil {
			return err
		}
		sent++
		if sent%50 == 0 {
			logger.Info("replay progress", "chunks", sent)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			logger.Info("replay interrupted", "chunks", sent)
			return nil
		}
	}

	logger.Info("replay complete", "chunks", sent)
	return nil
}
