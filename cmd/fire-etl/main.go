package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/wildfire-etl/internal/adapter/csvsource"
	"github.com/couchcryptid/wildfire-etl/internal/adapter/geojson"
	httpadapter "github.com/couchcryptid/wildfire-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/wildfire-etl/internal/adapter/kafka"
	parquetadapter "github.com/couchcryptid/wildfire-etl/internal/adapter/parquet"
	"github.com/couchcryptid/wildfire-etl/internal/config"
	"github.com/couchcryptid/wildfire-etl/internal/observability"
	"github.com/couchcryptid/wildfire-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	detections := csvsource.NewReader(cfg.FiresCSVPath, logger)

	// Region boundaries are optional; without them only date and grid
	// aggregates are served.
	var regions pipeline.RegionSource
	if cfg.RegionsGeoJSONPath != "" {
		regions = geojson.NewReader(cfg.RegionsGeoJSONPath, logger)
	} else {
		logger.Info("region boundaries disabled")
	}

	var sinks []pipeline.SnapshotSink
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		sinks = append(sinks, publisher)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	}
	if cfg.ParquetExportDir != "" {
		sinks = append(sinks, parquetadapter.NewExporter(cfg.ParquetExportDir, logger))
		logger.Info("parquet export enabled", "dir", cfg.ParquetExportDir)
	}

	p := pipeline.New(detections, regions, logger, metrics, cfg.ClassifyWorkers, sinks...)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start snapshot pipeline.
	pipelineDone := make(chan struct{})
	go func() {
		defer close(pipelineDone)
		if err := p.Run(ctx, cfg.RefreshInterval); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	// Sinks stay open until an in-flight refresh has finished publishing.
	select {
	case <-pipelineDone:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
