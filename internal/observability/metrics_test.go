package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func gatherMetric(t *testing.T, name string) *dto.Metric {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			require.Len(t, family.GetMetric(), 1)
			return family.GetMetric()[0]
		}
	}
	t.Fatalf("metric %s not registered", name)
	return nil
}

func TestRecordEntryPersisted(t *testing.T) {
	ts := time.Date(2026, time.January, 28, 9, 30, 0, 0, time.UTC)
	RecordEntryPersisted(ts)

	metric := gatherMetric(t, "worklog_persistence_last_entry_persisted_timestamp_seconds")
	require.Equal(t, float64(ts.Unix()), metric.GetGauge().GetValue())

	// Zero timestamps must not move the watermark.
	RecordEntryPersisted(time.Time{})
	metric = gatherMetric(t, "worklog_persistence_last_entry_persisted_timestamp_seconds")
	require.Equal(t, float64(ts.Unix()), metric.GetGauge().GetValue())
}

func TestTimerCounters(t *testing.T) {
	before := gatherMetric(t, "worklog_timers_started_total").GetCounter().GetValue()
	RecordTimerStarted()
	RecordTimerStarted()
	after := gatherMetric(t, "worklog_timers_started_total").GetCounter().GetValue()
	require.Equal(t, before+2, after)

	before = gatherMetric(t, "worklog_timers_stopped_total").GetCounter().GetValue()
	RecordTimerStopped()
	after = gatherMetric(t, "worklog_timers_stopped_total").GetCounter().GetValue()
	require.Equal(t, before+1, after)
}

func TestRecordManualEntries(t *testing.T) {
	before := gatherMetric(t, "worklog_entries_manual_created_total").GetCounter().GetValue()
	RecordManualEntries(3)
	RecordManualEntries(0)
	RecordManualEntries(-1)
	after := gatherMetric(t, "worklog_entries_manual_created_total").GetCounter().GetValue()
	require.Equal(t, before+3, after)
}
