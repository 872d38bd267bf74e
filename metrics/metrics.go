package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OracleCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stele_oracle_calls_total",
		Help: "Contract calls issued to the chain, by method and result",
	}, []string{"method", "result"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stele_cache_lookups_total",
		Help: "Oracle cache lookups, by cache and outcome (hit, refresh, stale, miss)",
	}, []string{"cache", "outcome"})

	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stele_events_processed_total",
		Help: "Contract events handled, by event type",
	}, []string{"event_type"})

	EventsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stele_events_skipped_total",
		Help: "Contract events skipped, by event type and reason",
	}, []string{"event_type", "reason"})

	LatestBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stele_latest_block",
		Help: "Latest fully processed block number",
	})

	FetchedBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stele_fetched_block",
		Help: "Latest block number written as block data",
	})
)

const (
	OutcomeHit     = "hit"
	OutcomeRefresh = "refresh"
	OutcomeStale   = "stale"
	OutcomeMiss    = "miss"
)

func ObserveOracleCall(method string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	OracleCalls.WithLabelValues(method, result).Inc()
}

func ObserveCache(cache, outcome string) {
	CacheLookups.WithLabelValues(cache, outcome).Inc()
}
