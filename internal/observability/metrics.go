package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	entryPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "worklog",
		Subsystem: "persistence",
		Name:      "last_entry_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent time entry persisted to Postgres.",
	})
	timersStartedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "worklog",
		Subsystem: "timers",
		Name:      "started_total",
		Help:      "Number of timers started.",
	})
	timersStoppedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "worklog",
		Subsystem: "timers",
		Name:      "stopped_total",
		Help:      "Number of timers stopped.",
	})
	manualEntriesCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "worklog",
		Subsystem: "entries",
		Name:      "manual_created_total",
		Help:      "Number of manually created time entries, counting one per stored row.",
	})
	capacityRejectionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "worklog",
		Subsystem: "entries",
		Name:      "capacity_rejections_total",
		Help:      "Number of writes rejected for exceeding the daily capacity.",
	})
)

func init() {
	prometheus.MustRegister(
		entryPersistGauge,
		timersStartedCounter,
		timersStoppedCounter,
		manualEntriesCounter,
		capacityRejectionsCounter,
	)
}

// RecordEntryPersisted updates the persistence watermark gauge.
func RecordEntryPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	entryPersistGauge.Set(float64(ts.Unix()))
}

// RecordTimerStarted increments the started-timer counter.
func RecordTimerStarted() {
	timersStartedCounter.Inc()
}

// RecordTimerStopped increments the stopped-timer counter.
func RecordTimerStopped() {
	timersStoppedCounter.Inc()
}

// RecordManualEntries adds the number of rows written by a manual create.
func RecordManualEntries(rows int) {
	if rows <= 0 {
		return
	}
	manualEntriesCounter.Add(float64(rows))
}

// RecordCapacityRejection increments the capacity rejection counter.
func RecordCapacityRejection() {
	capacityRejectionsCounter.Inc()
}
