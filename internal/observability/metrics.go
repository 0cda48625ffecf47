package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	WebhookRequests    *prometheus.CounterVec
	EntriesLogged      prometheus.Counter
	ExtractionFailures prometheus.Counter
	QuestionsAnswered  *prometheus.CounterVec
	ImportResults      *prometheus.CounterVec
	StoreErrors        prometheus.Counter
	WaitingSessions    prometheus.Gauge
	WSMessages         *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		WebhookRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_requests_total",
			Help:      "Webhook transcript requests by response status.",
		}, []string{"status"}),
		EntriesLogged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_logged_total",
			Help:      "Medication entries appended to the store.",
		}),
		ExtractionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_failures_total",
			Help:      "Utterances in a waiting session with no recognizable medication.",
		}),
		QuestionsAnswered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_answered_total",
			Help:      "Last-dose questions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		ImportResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_results_total",
			Help:      "External import attempts by outcome.",
		}, []string{"outcome"}),
		StoreErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Read or append failures against the CSV store.",
		}),
		WaitingSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "waiting_sessions",
			Help:      "Sessions currently waiting for medication details.",
		}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
