//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package monitoring

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "linesort"

type PrometheusMetrics struct {
	Registerer prometheus.Registerer

	ExtsortRunsSpilled    prometheus.Counter
	ExtsortRecordsSpilled prometheus.Counter
	ExtsortRecordsMerged  prometheus.Counter
	ExtsortActiveCursors  prometheus.Gauge
	ExtsortPhaseDurations *prometheus.HistogramVec
	ExtsortOperations     *prometheus.CounterVec

	FileIOWrites *prometheus.SummaryVec
	FileIOReads  *prometheus.SummaryVec

	LinesProcessed *prometheus.CounterVec
}

// discardRegisterer accepts every collector and keeps none. Collectors
// created against it still count, nothing ever gathers them.
type discardRegisterer struct{}

func (discardRegisterer) Register(prometheus.Collector) error { return nil }

func (discardRegisterer) MustRegister(...prometheus.Collector) {}

func (discardRegisterer) Unregister(prometheus.Collector) bool { return true }

// NewPrometheusMetrics registers all collectors with reg. A nil reg disables
// registration, the returned metrics can still be used.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = discardRegisterer{}
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		Registerer: reg,

		ExtsortRunsSpilled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extsort_runs_spilled_total",
			Help:      "Number of sorted runs written to the intermediate store",
		}),
		ExtsortRecordsSpilled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extsort_records_spilled_total",
			Help:      "Number of records written to the intermediate store",
		}),
		ExtsortRecordsMerged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extsort_records_merged_total",
			Help:      "Number of records emitted by the k-way merge",
		}),
		ExtsortActiveCursors: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "extsort_active_cursors",
			Help:      "Run cursors currently resident in the merge frontier",
		}),
		ExtsortPhaseDurations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extsort_phase_duration_seconds",
			Help:      "Duration of the ingestion and merge phases",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 12),
		}, []string{"phase"}),
		ExtsortOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extsort_operations_total",
			Help:      "Completed sort operations by status",
		}, []string{"status"}),

		FileIOWrites: factory.NewSummaryVec(prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      "file_io_writes_total_bytes",
			Help:      "Bytes per write call, by operation",
		}, []string{"operation"}),
		FileIOReads: factory.NewSummaryVec(prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      "file_io_reads_total_bytes",
			Help:      "Bytes per read call, by operation",
		}, []string{"operation"}),

		LinesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_processed_total",
			Help:      "Lines handled by the line tools, by tool and result",
		}, []string{"tool", "result"}),
	}
}

// RecordLines adds n to the lines counter of the given tool and result.
func (pm *PrometheusMetrics) RecordLines(tool, result string, n int64) {
	if pm == nil || n <= 0 {
		return
	}

	pm.LinesProcessed.With(prometheus.Labels{
		"tool":   tool,
		"result": result,
	}).Add(float64(n))
}

// WriteTextfile dumps everything g gathers into path, in the text exposition
// format picked up by the node exporter's textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return errors.Wrapf(err, "write metrics textfile %q", path)
	}
	return nil
}
