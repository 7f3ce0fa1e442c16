package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsRunsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.now = func() time.Time { return time.Unix(1700000000, 0) }

	m.IncSuccess("outbox-backlog")
	m.IncSuccess("outbox-backlog")
	m.IncFailure("stale-checkout")
	m.IncFailure("")
	m.ObserveDuration("outbox-backlog", 250*time.Millisecond)

	expected := `
# HELP cron_job_runs_total Cron job runs by outcome.
# TYPE cron_job_runs_total counter
cron_job_runs_total{job="outbox-backlog",outcome="success"} 2
cron_job_runs_total{job="stale-checkout",outcome="failure"} 1
cron_job_runs_total{job="unknown",outcome="failure"} 1
# HELP cron_job_last_success_timestamp_seconds Unix time of the last successful run.
# TYPE cron_job_last_success_timestamp_seconds gauge
cron_job_last_success_timestamp_seconds{job="outbox-backlog"} 1.7e+09
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"cron_job_runs_total", "cron_job_last_success_timestamp_seconds"))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	mf := findMetricFamily(mfs, "cron_job_duration_seconds")
	require.NotNil(t, mf)
	assert.InDelta(t, 0.25, mf.GetMetric()[0].GetHistogram().GetSampleSum(), 0.001)
}
