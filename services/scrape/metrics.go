package scrape

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the walk and the image
// pipeline. All methods tolerate a nil receiver so tests can pass a
// bare Service around without a registry.
type Metrics struct {
	Registry              *prometheus.Registry
	JobsTotal             *prometheus.CounterVec
	SeasonsScrapedTotal   *prometheus.CounterVec
	ContestantsTotal      prometheus.Counter
	RowsSkippedTotal      prometheus.Counter
	SeasonDuration        prometheus.Histogram
	ImagesDownloadedTotal prometheus.Counter
	ImagesDedupedTotal    prometheus.Counter
	ErrorsTotal           *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	jobs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dragdex_scrape_jobs_total",
			Help: "Scraping jobs by terminal status.",
		},
		[]string{"status"},
	)
	seasons := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dragdex_scrape_seasons_total",
			Help: "Season walks by outcome.",
		},
		[]string{"outcome"},
	)
	contestants := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dragdex_scrape_contestants_total",
			Help: "Contestant rows reconciled into the catalog.",
		},
	)
	skipped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dragdex_scrape_rows_skipped_total",
			Help: "Table rows skipped for missing a drag name.",
		},
	)
	seasonDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dragdex_scrape_season_duration_seconds",
			Help:    "Wall time to fetch, extract and reconcile one season.",
			Buckets: prometheus.DefBuckets,
		},
	)
	imagesDownloaded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dragdex_scrape_images_downloaded_total",
			Help: "Images downloaded and stored.",
		},
	)
	imagesDeduped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dragdex_scrape_images_deduped_total",
			Help: "Image downloads skipped because the content hash was already stored.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dragdex_scrape_errors_total",
			Help: "Absorbed walk errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(jobs, seasons, contestants, skipped, seasonDuration,
		imagesDownloaded, imagesDeduped, errorsTotal)

	return &Metrics{
		Registry:              registry,
		JobsTotal:             jobs,
		SeasonsScrapedTotal:   seasons,
		ContestantsTotal:      contestants,
		RowsSkippedTotal:      skipped,
		SeasonDuration:        seasonDuration,
		ImagesDownloadedTotal: imagesDownloaded,
		ImagesDedupedTotal:    imagesDeduped,
		ErrorsTotal:           errorsTotal,
	}
}

// IncJob records a job reaching a terminal status.
func (m *Metrics) IncJob(status JobStatus) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(string(status)).Inc()
}

// IncSeason records a season walk outcome.
func (m *Metrics) IncSeason(outcome NodeStatus) {
	if m == nil {
		return
	}
	m.SeasonsScrapedTotal.WithLabelValues(string(outcome)).Inc()
}

// IncContestants adds reconciled contestant rows.
func (m *Metrics) IncContestants(n int) {
	if m == nil {
		return
	}
	m.ContestantsTotal.Add(float64(n))
}

// IncSkipped adds skipped table rows.
func (m *Metrics) IncSkipped(n int) {
	if m == nil {
		return
	}
	m.RowsSkippedTotal.Add(float64(n))
}

// ObserveSeason records one season's wall time.
func (m *Metrics) ObserveSeason(seconds float64) {
	if m == nil {
		return
	}
	m.SeasonDuration.Observe(seconds)
}

// IncImages adds stored image downloads.
func (m *Metrics) IncImages(n int) {
	if m == nil {
		return
	}
	m.ImagesDownloadedTotal.Add(float64(n))
}

// IncImagesDeduped adds content-hash dedup skips.
func (m *Metrics) IncImagesDeduped(n int) {
	if m == nil {
		return
	}
	m.ImagesDedupedTotal.Add(float64(n))
}

// IncError records an absorbed error by type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
