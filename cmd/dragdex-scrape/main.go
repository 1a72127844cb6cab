// dragdex-scrape runs a single scraping job to completion and prints a
// status table, useful for cron jobs and local runs without the daemon.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"dragdex-backend/lib/configutil"
	"dragdex-backend/lib/objstore"
	"dragdex-backend/lib/osutil"
	"dragdex-backend/lib/scrapers/wiki"
	"dragdex-backend/lib/telemetry"
	"dragdex-backend/services/catalog"
	"dragdex-backend/services/scrape"
)

var (
	flagScope    string
	flagDriver   string
	flagDatabase string
	flagImages   string
)

var rootCmd = &cobra.Command{
	Use:   "dragdex-scrape",
	Short: "Run one scraping job to completion.",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&flagScope, "scope", "full", "scope to walk: full, franchise:<id>, season:<id> or contestant:<id>")
	rootCmd.Flags().StringVar(&flagDriver, "driver", "", "force a driver: rod or simulated (default: probe)")
	rootCmd.Flags().StringVar(&flagDatabase, "db", "data/dragdex.db", "sqlite database file")
	rootCmd.Flags().StringVar(&flagImages, "images", "", "directory for downloaded images (empty disables the image pipeline)")
}

func parseScope(raw string) (scrape.Scope, error) {
	if raw == "full" {
		return scrape.Scope{Kind: scrape.ScopeFull}, nil
	}
	kind, idStr, ok := strings.Cut(raw, ":")
	if !ok {
		return scrape.Scope{}, fmt.Errorf("scope %q must be full or <kind>:<id>", raw)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return scrape.Scope{}, fmt.Errorf("scope id %q is not a number", idStr)
	}
	switch kind {
	case "franchise":
		return scrape.Scope{Kind: scrape.ScopeFranchise, ID: id}, nil
	case "season":
		return scrape.Scope{Kind: scrape.ScopeSeason, ID: id}, nil
	case "contestant":
		return scrape.Scope{Kind: scrape.ScopeContestant, ID: id}, nil
	}
	return scrape.Scope{}, fmt.Errorf("unknown scope kind %q", kind)
}

func run(cmd *cobra.Command, args []string) error {
	ctx := osutil.SignalContext()

	scope, err := parseScope(flagScope)
	if err != nil {
		return err
	}

	t, err := telemetry.SetupFromEnv(ctx, "dragdex-scrape")
	if err != nil {
		return err
	}
	defer t.Shutdown(context.Background())

	db, err := configutil.Sqlite{File: flagDatabase}.OpenDB()
	if err != nil {
		return err
	}
	catalogService := catalog.NewService(db)
	if err := catalogService.Migrate(ctx); err != nil {
		return err
	}

	registry := wiki.NewRegistry()
	if err := wiki.RegisterSeedRecipes(registry); err != nil {
		return err
	}

	var images *scrape.ImagePipeline
	if flagImages != "" {
		store, err := objstore.NewDirStore(flagImages, "")
		if err != nil {
			return err
		}
		images = scrape.NewImagePipeline(store, scrape.ImageConfig{Enabled: true})
	}

	svc := scrape.NewService(catalogService, registry, nil, images, scrape.NewMetrics(), scrape.Config{
		Driver: flagDriver,
	})

	desc, err := svc.Start(ctx, scope)
	if err != nil {
		return err
	}
	slog.Info("job started", "job", desc.ID, "scope", desc.Scope, "driver", desc.Driver)

	final, snap := waitForJob(ctx, svc)
	fmt.Println(renderStatus(snap))
	fmt.Printf("\njob %s: %s, %d seasons completed, %d failed, %d contestants created, %d rows skipped\n",
		final.ID, final.Status,
		final.Counts.SeasonsCompleted, final.Counts.SeasonsFailed,
		final.Counts.ContestantsCreated, final.Counts.RowsSkipped)

	if final.Status != scrape.JobCompleted {
		os.Exit(1)
	}
	return nil
}

func waitForJob(ctx context.Context, svc *scrape.Service) (scrape.JobDescriptor, scrape.Snapshot) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = svc.Stop(context.Background())
			return svc.Status()
		case <-ticker.C:
			desc, snap := svc.Status()
			if desc.Status != scrape.JobRunning {
				return desc, snap
			}
			if desc.CurrentItem != "" {
				fmt.Printf("\r%3d%%  %s\033[K", desc.Progress, desc.CurrentItem)
			}
		}
	}
}

func renderStatus(snap scrape.Snapshot) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Franchise", "Season", "Status", "Progress", "Contestants"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})

	for _, franchise := range snap.Franchises {
		for i, season := range franchise.Seasons {
			name := ""
			if i == 0 {
				name = franchise.Name
			}
			tw.AppendRow(table.Row{
				name,
				season.Name,
				string(season.Status),
				fmt.Sprintf("%d%%", season.Progress),
				len(season.Contestants),
			})
		}
	}
	return tw.Render()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
