package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsProcessedTotal, jobRetriesTotal, jobsArchivedTotal) }

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "processing_jobs_total",
		Help: "Total number of processing jobs finished, labeled by kind and status.",
	},
	[]string{"kind", "status"}, // 'succeeded', 'failed'
)

var jobRetriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "processing_job_retries_total",
		Help: "Total number of transient job failures nacked for retry.",
	},
	[]string{"kind"},
)

var jobsArchivedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "processing_jobs_archived_total",
		Help: "Terminal jobs removed by the retention sweep.",
	},
)

func IncJob(kind, status string) {
	jobsProcessedTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}

func IncJobRetry(kind string) {
	jobRetriesTotal.WithLabelValues(norm(kind)).Inc()
}

func AddJobsArchived(n int) {
	jobsArchivedTotal.Add(float64(n))
}
