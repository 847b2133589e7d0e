package threadpool

import "github.com/ygrebnov/threadpool/metrics"

// Metric names recorded by every Pool.
const (
	MetricJobsSubmitted = "threadpool_jobs_submitted_total"
	MetricJobsRejected  = "threadpool_jobs_rejected_total"
	MetricJobsCompleted = "threadpool_jobs_completed_total"
	MetricJobsPanicked  = "threadpool_jobs_panicked_total"
	MetricJobsQueued    = "threadpool_jobs_queued"
	MetricWorkersBusy   = "threadpool_workers_busy"
	MetricWorkersAlive  = "threadpool_workers_alive"
	MetricJobDuration   = "threadpool_job_duration_seconds"
)

type instruments struct {
	submitted metrics.Counter
	rejected  metrics.Counter
	completed metrics.Counter
	panicked  metrics.Counter
	queued    metrics.UpDownCounter
	busy      metrics.UpDownCounter
	alive     metrics.UpDownCounter
	duration  metrics.Histogram
}

func newInstruments(p metrics.Provider, pool string) *instruments {
	attrs := metrics.WithAttributes(map[string]string{"pool": pool})
	count := metrics.WithUnit("1")
	return &instruments{
		submitted: p.Counter(MetricJobsSubmitted, attrs, count,
			metrics.WithDescription("Jobs accepted by Submit.")),
		rejected: p.Counter(MetricJobsRejected, attrs, count,
			metrics.WithDescription("Jobs rejected because the pool was closed.")),
		completed: p.Counter(MetricJobsCompleted, attrs, count,
			metrics.WithDescription("Jobs that ran to completion, panicked or not.")),
		panicked: p.Counter(MetricJobsPanicked, attrs, count,
			metrics.WithDescription("Jobs that panicked during execution.")),
		queued: p.UpDownCounter(MetricJobsQueued, attrs, count,
			metrics.WithDescription("Jobs waiting in the dispatch queue.")),
		busy: p.UpDownCounter(MetricWorkersBusy, attrs, count,
			metrics.WithDescription("Workers currently executing a job.")),
		alive: p.UpDownCounter(MetricWorkersAlive, attrs, count,
			metrics.WithDescription("Workers whose goroutine is running.")),
		duration: p.Histogram(MetricJobDuration, attrs, metrics.WithUnit("seconds"),
			metrics.WithDescription("Job execution time.")),
	}
}
