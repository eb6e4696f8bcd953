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

package extsort

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/weaviate/linesort/entities/diskio"
	"github.com/weaviate/linesort/usecases/monitoring"
)

const (
	phaseIngest = "ingest"
	phaseMerge  = "merge"

	statusSuccess = "success"
	statusFailure = "failure"
)

// Metrics is a thin view over the prometheus collectors used by the engine.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	runsSpilled    prometheus.Counter
	recordsSpilled prometheus.Counter
	recordsMerged  prometheus.Counter
	activeCursors  prometheus.Gauge
	phaseDurations prometheus.ObserverVec
	operations     *prometheus.CounterVec
	storeWrites    prometheus.Observer
	storeReads     prometheus.Observer
	outputWrites   prometheus.Observer
}

func NewMetrics(promMetrics *monitoring.PrometheusMetrics) *Metrics {
	if promMetrics == nil {
		return nil
	}

	return &Metrics{
		runsSpilled:    promMetrics.ExtsortRunsSpilled,
		recordsSpilled: promMetrics.ExtsortRecordsSpilled,
		recordsMerged:  promMetrics.ExtsortRecordsMerged,
		activeCursors:  promMetrics.ExtsortActiveCursors,
		phaseDurations: promMetrics.ExtsortPhaseDurations,
		operations:     promMetrics.ExtsortOperations,
		storeWrites: promMetrics.FileIOWrites.With(prometheus.Labels{
			"operation": "extsort_spill",
		}),
		storeReads: promMetrics.FileIOReads.With(prometheus.Labels{
			"operation": "extsort_merge",
		}),
		outputWrites: promMetrics.FileIOWrites.With(prometheus.Labels{
			"operation": "extsort_output",
		}),
	}
}

func (m *Metrics) RunSpilled(records int) {
	if m == nil {
		return
	}

	m.runsSpilled.Inc()
	m.recordsSpilled.Add(float64(records))
}

func (m *Metrics) RecordsMerged(n int64) {
	if m == nil {
		return
	}

	m.recordsMerged.Add(float64(n))
}

func (m *Metrics) ActiveCursors(n int) {
	if m == nil {
		return
	}

	m.activeCursors.Set(float64(n))
}

func (m *Metrics) PhaseDuration(phase string, took time.Duration) {
	if m == nil {
		return
	}

	m.phaseDurations.With(prometheus.Labels{"phase": phase}).Observe(took.Seconds())
}

func (m *Metrics) SortFinished(err error) {
	if m == nil {
		return
	}

	status := statusSuccess
	if err != nil {
		status = statusFailure
	}
	m.operations.With(prometheus.Labels{"status": status}).Inc()
}

func (m *Metrics) storeWriteCallback() diskio.MeteredWriterCallback {
	if m == nil {
		return nil
	}
	return func(written int64) {
		m.storeWrites.Observe(float64(written))
	}
}

func (m *Metrics) outputWriteCallback() diskio.MeteredWriterCallback {
	if m == nil {
		return nil
	}
	return func(written int64) {
		m.outputWrites.Observe(float64(written))
	}
}

func (m *Metrics) storeReadCallback() diskio.MeteredReaderCallback {
	if m == nil {
		return nil
	}
	return func(read, _ int64) {
		m.storeReads.Observe(float64(read))
	}
}
