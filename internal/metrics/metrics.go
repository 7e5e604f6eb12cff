package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	extractions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfviewer",
			Name:      "extractions_total",
			Help:      "Total extraction attempts by mode, backend and result",
		},
		[]string{"mode", "backend", "result"},
	)

	extractionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pdfviewer",
			Name:      "extraction_duration_seconds",
			Help:      "End-to-end extraction duration by mode",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"mode"},
	)

	fallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfviewer",
			Name:      "backend_fallbacks_total",
			Help:      "Backend failover events by failed and next backend",
		},
		[]string{"from", "to"},
	)

	pagesExtracted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pdfviewer",
			Name:      "pages_extracted_total",
			Help:      "Total pages in successfully extracted documents",
		},
	)

	blankPagesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pdfviewer",
			Name:      "blank_pages_dropped_total",
			Help:      "Blank pages filtered out of structured documents",
		},
	)

	uploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfviewer",
			Name:      "uploads_total",
			Help:      "Upload attempts by result (accepted, rejected, failed)",
		},
		[]string{"result"},
	)

	searches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pdfviewer",
			Name:      "search_queries_total",
			Help:      "Total search queries served",
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(extractions, extractionDuration, fallbacks, pagesExtracted, blankPagesDropped, uploads, searches)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func RecordExtraction(mode, backend, result string) {
	extractions.WithLabelValues(mode, backend, result).Inc()
}

func ObserveExtractionDuration(mode string, seconds float64) {
	extractionDuration.WithLabelValues(mode).Observe(seconds)
}

func RecordFallback(from, to string) { fallbacks.WithLabelValues(from, to).Inc() }

func AddPagesExtracted(n int) { pagesExtracted.Add(float64(n)) }

func AddBlankPagesDropped(n int) { blankPagesDropped.Add(float64(n)) }

func RecordUpload(result string) { uploads.WithLabelValues(result).Inc() }

func RecordSearch() { searches.Inc() }
