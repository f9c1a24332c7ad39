package main

import (
	"context"
	"flag"
	"io"
	"os"

	"argus/internal/adapters/clickhouse"
	"argus/internal/adapters/config"
	"argus/internal/loader"
	"argus/pkg/logger"
)

// Bulk-loads CSV exports of derivative quotes and instrument metrics into
// ClickHouse. Meant for development environments and historical backfills;
// production data arrives through upstream ingestion.
func main() {
	quotesPath := flag.String("quotes", "", "Path to a quotes CSV")
	metricsPath := flag.String("metrics", "", "Path to an instrument metrics CSV")
	batchSize := flag.Int("batch", 5000, "Rows per ClickHouse INSERT")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()

	if *quotesPath == "" && *metricsPath == "" {
		log.Fatal("Nothing to load: pass -quotes and/or -metrics")
	}

	ctx := context.Background()

	ch, err := clickhouse.NewClient(cfg.ClickHouse)
	if err != nil {
		log.Fatalf("Failed to connect to ClickHouse: %v", err)
	}
	defer ch.Close()

	l := loader.New(ch.Conn(), *batchSize)

	if *metricsPath != "" {
		if err := loadFile(ctx, *metricsPath, l.LoadMetrics); err != nil {
			log.Fatalf("Failed to load metrics from %s: %v", *metricsPath, err)
		}
	}
	if *quotesPath != "" {
		if err := loadFile(ctx, *quotesPath, l.LoadQuotes); err != nil {
			log.Fatalf("Failed to load quotes from %s: %v", *quotesPath, err)
		}
	}

	log.Info("Load complete")
}

func loadFile(ctx context.Context, path string, load func(context.Context, io.Reader) (int64, error)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = load(ctx, f)
	return err
}
