package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WebhookUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "studybot", Name: "webhook_updates_total", Help: "Processed telegram webhook updates",
	})
	VoiceJobsQueued = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "studybot", Name: "voice_jobs_queued_total", Help: "Pending voice jobs created",
	})
	HandlerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "studybot", Name: "handler_errors_total", Help: "Handler errors",
	})
	MirrorEdits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studybot", Name: "mirror_edits_total", Help: "Mirror message edits by outcome",
	}, []string{"outcome"})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "studybot", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(WebhookUpdates, VoiceJobsQueued, HandlerErrors, MirrorEdits, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }
