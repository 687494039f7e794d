package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vibewatch/vibewatch/internal/server"
	"github.com/vibewatch/vibewatch/pkg/config"
	"github.com/vibewatch/vibewatch/pkg/features"
	vibio "github.com/vibewatch/vibewatch/pkg/io"
	"github.com/vibewatch/vibewatch/pkg/io/mqtt"
	"github.com/vibewatch/vibewatch/pkg/pipeline"
	"github.com/vibewatch/vibewatch/pkg/threshold"
)

func watchCmd(cfgPath *string) *cobra.Command {
	var (
		broker    string
		topic     string
		httpAddr  string
		redisAddr string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Subscribe to the sensor stream and score every chunk",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("broker") {
				cfg.Broker = broker
			}
			if cmd.Flags().Changed("topic") {
				cfg.Topic = topic
			}
			if cmd.Flags().Changed("http-addr") {
				cfg.HTTPAddr = httpAddr
			}
			if cmd.Flags().Changed("redis-addr") {
				cfg.RedisAddr = redisAddr
			}
			return runWatch(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	cmd.Flags().StringVar(&topic, "topic", "vibration/data", "MQTT topic carrying waveform chunks")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "address of the score HTTP server")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "", "optional Redis address for the score sink")
	return cmd
}

func runWatch(ctx context.Context, cfg config.Config) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var opts []server.Option
	if cfg.RedisAddr != "" {
		sink, err := server.NewRedisSink(cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("connect redis at %s: %w", cfg.RedisAddr, err)
		}
		opts = append(opts, server.WithSink(sink))
		logger.Info("redis sink enabled", "addr", cfg.RedisAddr)
	}
	srv := server.New(cfg.HTTPAddr, logger, opts...)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("score server failed", "error", err)
		}
	}()

	source, err := mqtt.NewSource(cfg.Broker, cfg.Topic, mqtt.WithClientID("vibewatch-watch"))
	if err != nil {
		return err
	}
	defer source.Close()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	chunks, err := source.Chunks(ctx)
	if err != nil {
		return err
	}

	p := pipeline.New(
		pipeline.WithShingleSize(cfg.ShingleSize),
		pipeline.WithTrees(cfg.NumTrees),
		pipeline.WithTreeCapacity(cfg.TreeCapacity),
		pipeline.WithAlpha(cfg.Alpha),
		pipeline.WithSeed(cfg.Seed),
		pipeline.WithParallel(cfg.Parallel),
	)
	monitor := threshold.NewMonitor(cfg.WindowSize, cfg.Warmup, cfg.Sigmas)

	logger.Info("watching sensor stream",
		"broker", cfg.Broker, "topic", cfg.Topic,
		"trees", cfg.NumTrees, "capacity", cfg.TreeCapacity, "shingle", cfg.ShingleSize)

	count := 0
	for chunk := range chunks {
		start := time.Now()
		res, err := p.ProcessChunk(chunk.Samples, cfg.SampleRate)
		if err != nil {
			if errors.Is(err, features.ErrInvalidInput) {
				logger.Warn("dropping malformed chunk", "error", err)
				continue
			}
			// Anything else is an internal consistency defect; abort
			// loudly rather than keep scoring a corrupt forest.
			return fmt.Errorf("scoring chunk: %w", err)
		}
		srv.ObserveChunkDuration(time.Since(start))

		decision := monitor.Observe(res)
		srv.Publish(vibio.Result{
			Timestamp: time.Now().Unix(),
			Ready:     res.Ready,
			PointID:   res.PointID,
			Score:     res.Value,
			IsAnomaly: decision.Anomaly,
		})

		count++
		switch {
		case decision.Anomaly:
			logger.Warn("anomaly detected",
				"point", res.PointID, "score", res.Value, "threshold", decision.Upper)
		case count%10 == 0:
			logger.Info("scored chunk",
				"count", count, "ready", res.Ready, "score", res.Value)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
