package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Collectors are the Prometheus series exported for one probe target.
type Collectors struct {
	Registry      *prometheus.Registry
	Executions    *prometheus.CounterVec
	Diagnostics   prometheus.Counter
	Interruptions prometheus.Counter
	LastDuration  prometheus.Gauge
	Connected     prometheus.Gauge
}

// NewCollectors registers the probe series, plus Go runtime and process
// collectors, on a registry of their own.
func NewCollectors(identity string) *Collectors {
	labels := prometheus.Labels{"identity": identity}

	c := &Collectors{
		Registry: prometheus.NewRegistry(),
		Executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "dbprobe",
			Name:        "executions_total",
			Help:        "Probe query executions by result.",
			ConstLabels: labels,
		}, []string{"result"}),
		Diagnostics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "dbprobe",
			Name:        "diagnostic_runs_total",
			Help:        "Times the diagnostic battery ran after a slow execution.",
			ConstLabels: labels,
		}),
		Interruptions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "dbprobe",
			Name:        "interruptions_total",
			Help:        "Runs cancelled while sleeping between executions.",
			ConstLabels: labels,
		}),
		LastDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "dbprobe",
			Name:        "last_duration_milliseconds",
			Help:        "Duration of the most recent successful probe execution.",
			ConstLabels: labels,
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "dbprobe",
			Name:        "connected",
			Help:        "1 while the probe holds an open connection.",
			ConstLabels: labels,
		}),
	}

	c.Registry.MustRegister(
		c.Executions,
		c.Diagnostics,
		c.Interruptions,
		c.LastDuration,
		c.Connected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}
