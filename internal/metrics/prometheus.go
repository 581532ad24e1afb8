package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "knowledge_extractor_runs_total",
			Help: "Total pipeline runs by outcome",
		},
		[]string{"status"},
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "knowledge_extractor_run_duration_seconds",
			Help:    "Pipeline run duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	ConversationsExtracted = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "knowledge_extractor_conversations_extracted",
			Help: "Conversations fetched in the last run",
		},
	)

	TicketsExtracted = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "knowledge_extractor_tickets_extracted",
			Help: "Resolved tickets fetched in the last run",
		},
	)

	ClustersFound = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "knowledge_extractor_clusters_found",
			Help: "Question clusters found in the last run",
		},
	)

	ItemsSynthesized = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "knowledge_extractor_items_synthesized",
			Help: "Knowledge items synthesized in the last run",
		},
	)

	PagesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "knowledge_extractor_pages_created_total",
			Help: "Total wiki pages created",
		},
	)

	PagesSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "knowledge_extractor_pages_skipped_total",
			Help: "Total wiki pages skipped because the title already existed",
		},
	)

	PagesFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "knowledge_extractor_pages_failed_total",
			Help: "Total wiki page creations rejected by the API",
		},
	)
)

func Init() {
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(RunDuration)
	prometheus.MustRegister(ConversationsExtracted)
	prometheus.MustRegister(TicketsExtracted)
	prometheus.MustRegister(ClustersFound)
	prometheus.MustRegister(ItemsSynthesized)
	prometheus.MustRegister(PagesCreated)
	prometheus.MustRegister(PagesSkipped)
	prometheus.MustRegister(PagesFailed)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
