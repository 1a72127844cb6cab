package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
)

var perfMeter = otel.Meter("dragdex.runtime")

var (
	cpuGauge, _         = perfMeter.Float64Gauge("process.cpu_percent")
	heapGauge, _        = perfMeter.Int64Gauge("process.heap_alloc_mb")
	liveObjectsGauge, _ = perfMeter.Int64Gauge("process.live_objects")
	goroutineGauge, _   = perfMeter.Int64Gauge("process.goroutines")
)

// InstrumentPerfStats samples process health every 30 seconds for the
// lifetime of ctx. Scrape jobs run for minutes at a time, so heap and
// goroutine trends are the first place a stuck walk shows up.
func InstrumentPerfStats(ctx context.Context) {
	go func() {
		var memStats runtime.MemStats
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runtime.ReadMemStats(&memStats)

				usage, err := cpu.Percent(time.Minute, false)
				if err != nil {
					slog.WarnContext(ctx, "reading cpu usage failed", "err", err)
				} else if len(usage) > 0 {
					cpuGauge.Record(ctx, usage[0])
				}

				heapGauge.Record(ctx, int64(memStats.Alloc/1_000_000))
				liveObjectsGauge.Record(ctx, int64(memStats.Mallocs)-int64(memStats.Frees))
				goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))
			case <-ctx.Done():
				return
			}
		}
	}()
}
