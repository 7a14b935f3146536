package metrics

import (
	"net/http"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// skip reasons
const (
	ReasonCycle      = "cycle"
	ReasonLevels     = "levels"
	ReasonEmpty      = "empty"
	ReasonChain      = "chain"
	ReasonStatistics = "statistics"
)

var (
	/* pipeline metrics */
	GraphsClassified = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dagen_graphs_classified_total",
		Help: "Task graphs written to a by-type collection, by shape",
	}, []string{"shape"})

	GraphsAnalysed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dagen_graphs_analysed_total",
		Help: "Task graphs fed into the statistic models",
	})

	GraphsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dagen_graphs_skipped_total",
		Help: "Task graphs left out of a step, by reason",
	}, []string{"reason"})

	GraphsSynthesized = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dagen_graphs_synthesized_total",
		Help: "Task graphs produced by the synthesizer, by growth mode",
	}, []string{"mode"})

	/* graph size metrics */
	NodeCount = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:                        "dagen_graph_nodes",
		Help:                        "Node count of analysed and synthesized task graphs",
		Buckets:                     prometheus.ExponentialBuckets(2, 2, 10),
		NativeHistogramBucketFactor: 1.1,
	}, []string{"source"})

	InstanceCount = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:                        "dagen_instance_graph_nodes",
		Help:                        "Node count of expanded instance graphs",
		Buckets:                     prometheus.ExponentialBuckets(4, 2, 12),
		NativeHistogramBucketFactor: 1.1,
	})

	/* step metrics */
	StepLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:                        "dagen_step_latency",
		Help:                        "Latency of a pipeline step in milliseconds",
		NativeHistogramBucketFactor: 1.1,
	}, []string{"step"})

	StepHostCPU = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dagen_step_host_cpu_ratio",
		Help: "Share of host CPU time spent busy during the last run of a step",
	}, []string{"step"})

	HostCores = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dagen_host_cores",
		Help: "Logical processors of the host running the pipeline",
	})

	metricsList = []prometheus.Collector{
		GraphsClassified,
		GraphsAnalysed,
		GraphsSkipped,
		GraphsSynthesized,

		NodeCount,
		InstanceCount,

		StepLatency,
		StepHostCPU,
		HostCores,
	}
)

var registerMetrics sync.Once

func Register() {
	registerMetrics.Do(func() {
		prometheus.MustRegister(metricsList...)
	})
}

// WriteTextfile dumps the registered metrics in the node exporter textfile
// format, so a batch run leaves its counters behind.
func WriteTextfile(path string) error {
	Register()
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return errors.Wrapf(err, "write metrics to %s", path)
	}
	return nil
}

// Serve exposes /metrics on addr until the listener fails.
func Serve(addr string) {
	Register()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	log.WithFields(log.Fields{
		"addr":     addr,
		"endpoint": "/metrics",
	}).Info("Starting metrics server")

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Error("metrics server stopped")
	}
}
