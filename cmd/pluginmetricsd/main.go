// Command pluginmetricsd runs the plugin metrics aggregation daemon: an HTTP
// ingestion API feeding the aggregator, and a periodic exporter publishing the
// exposition text.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/log"
	pmzap "github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, _, err := pmzap.New(pmzap.Config{
		Environment:     pmzap.Environment(cfg.EnvName),
		Level:           cfg.LogLevel,
		OTelLibraryName: "pluginmetrics",
		FilePath:        cfg.LogFile,
	})
	if err != nil {
		return err
	}

	ctx := context.Background()

	svc, err := NewService(ctx, cfg, logger)
	if err != nil {
		logger.Log(ctx, log.LevelError, "failed to start", log.Err(err))
		_ = logger.Sync(ctx)

		return err
	}

	logger.Log(ctx, log.LevelInfo, "pluginmetricsd starting",
		log.String("address", cfg.ServerAddress),
		log.Duration("export_interval", cfg.ExportInterval),
	)

	return svc.Run()
}
