package scheduler

import "github.com/prometheus/client_golang/prometheus"

var (
	feedsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pulsefeed_feeds_processed_total",
		Help: "Total number of feed processing attempts, by outcome.",
	}, []string{"outcome"})

	itemsInserted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulsefeed_items_inserted_total",
		Help: "Total number of new items inserted across all feeds.",
	})

	tickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulsefeed_scheduler_tick_duration_seconds",
		Help:    "Time spent processing one tick's batch of due feeds.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(feedsProcessed, itemsInserted, tickDuration)
}
