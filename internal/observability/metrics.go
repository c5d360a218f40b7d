package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	alarmEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "daybook",
		Subsystem: "alarm",
		Name:      "events_total",
		Help:      "Boundary events emitted by the alarm engine, by edge.",
	}, []string{"edge"})
	dispatchFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "daybook",
		Subsystem: "alarm",
		Name:      "dispatch_failures_total",
		Help:      "Notification sink failures while dispatching boundary events.",
	})
	catalogMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "daybook",
		Subsystem: "catalog",
		Name:      "mutations_total",
		Help:      "Catalog mutations by operation and result.",
	}, []string{"op", "result"})
	catalogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "daybook",
		Subsystem: "catalog",
		Name:      "activities",
		Help:      "Number of activities in the catalog.",
	})
	currentProgress = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "daybook",
		Subsystem: "locator",
		Name:      "current_progress_percent",
		Help:      "Progress of the current activity; 0 when none is active.",
	})
)

func init() {
	prometheus.MustRegister(alarmEvents, dispatchFailures, catalogMutations, catalogSize, currentProgress)
}

// RecordAlarmEvent counts one emitted boundary event.
func RecordAlarmEvent(edge string) {
	alarmEvents.WithLabelValues(edge).Inc()
}

func RecordDispatchFailure() {
	dispatchFailures.Inc()
}

// RecordMutation counts a catalog operation; err == nil is a success.
func RecordMutation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	catalogMutations.WithLabelValues(op, result).Inc()
}

func SetCatalogSize(n int) {
	catalogSize.Set(float64(n))
}

func SetCurrentProgress(pct float64) {
	currentProgress.Set(pct)
}
