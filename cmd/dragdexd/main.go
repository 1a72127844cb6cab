package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dragdex-backend/lib/configutil"
	"dragdex-backend/lib/objstore"
	"dragdex-backend/lib/osutil"
	"dragdex-backend/lib/scrapers/wiki"
	"dragdex-backend/lib/telemetry"
	"dragdex-backend/services/catalog"
	"dragdex-backend/services/scrape"
	"dragdex-backend/services/scrape/progresshub"
)

type ImagesConfig struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir"`
	BaseUrl string `json:"base_url"`
}

type Config struct {
	Database       configutil.Sqlite `json:"database"`
	Port           int               `json:"port"`
	Driver         string            `json:"driver"`
	PageTimeoutSec int               `json:"page_timeout_seconds"`
	Images         ImagesConfig      `json:"images"`
	ScrapeOnStart  bool              `json:"scrape_on_start"`
}

func fatal(message string, err error) {
	slog.Error(message, "err", err)
	os.Exit(1)
}

func main() {
	ctx := osutil.SignalContext()

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		fatal("failed to read config", err)
	}
	if config.Port == 0 {
		config.Port = 8470
	}

	t, err := telemetry.SetupFromEnv(ctx, "dragdexd")
	if err != nil {
		fatal("failed to setup telemetry", err)
	}
	defer t.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	db, err := config.Database.OpenDB()
	if err != nil {
		fatal("failed to open database", err)
	}
	catalogService := catalog.NewService(db)
	if err := catalogService.Migrate(ctx); err != nil {
		fatal("failed to migrate database", err)
	}

	registry := wiki.NewRegistry()
	if err := wiki.RegisterSeedRecipes(registry); err != nil {
		fatal("invalid scraping recipe", err)
	}

	var images *scrape.ImagePipeline
	if config.Images.Enabled {
		store, err := objstore.NewDirStore(config.Images.Dir, config.Images.BaseUrl)
		if err != nil {
			fatal("failed to open image store", err)
		}
		images = scrape.NewImagePipeline(store, scrape.ImageConfig{Enabled: true})
	}

	hub := progresshub.NewHub()
	metrics := scrape.NewMetrics()
	scrapeService := scrape.NewService(catalogService, registry, hub, images, metrics, scrape.Config{
		Driver:      config.Driver,
		PageTimeout: time.Duration(config.PageTimeoutSec) * time.Second,
	})

	mux := http.NewServeMux()
	mux.Handle("/ws/progress", hub.Handler())
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	addr := fmt.Sprintf(":%d", config.Port)
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		slog.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal("http server failed", err)
		}
	}()

	if config.ScrapeOnStart {
		desc, err := scrapeService.Start(ctx, scrape.Scope{Kind: scrape.ScopeFull})
		if err != nil {
			fatal("failed to start scraping job", err)
		}
		slog.Info("scraping job started", "job", desc.ID, "driver", desc.Driver)
	}

	<-ctx.Done()

	if err := scrapeService.Stop(context.Background()); err != nil && err != scrape.ErrNotRunning {
		slog.Warn("failed to stop scraping job", "err", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
