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
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics(t *testing.T) {
	t.Run("registers with the given registry", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		m := NewPrometheusMetrics(reg)

		m.ExtsortRunsSpilled.Add(3)
		m.ExtsortOperations.WithLabelValues("success").Inc()

		assert.Equal(t, float64(3), testutil.ToFloat64(m.ExtsortRunsSpilled))

		families, err := reg.Gather()
		require.NoError(t, err)
		names := map[string]bool{}
		for _, f := range families {
			names[f.GetName()] = true
		}
		assert.True(t, names["linesort_extsort_runs_spilled_total"])
		assert.True(t, names["linesort_extsort_operations_total"])
	})

	t.Run("nil registerer discards registrations", func(t *testing.T) {
		m := NewPrometheusMetrics(nil)
		m.ExtsortRecordsMerged.Add(10)

		assert.Equal(t, float64(10), testutil.ToFloat64(m.ExtsortRecordsMerged))
		assert.IsType(t, discardRegisterer{}, m.Registerer)

		// a second set must not collide with the first
		other := NewPrometheusMetrics(nil)
		assert.Equal(t, float64(0), testutil.ToFloat64(other.ExtsortRecordsMerged))
	})

	t.Run("record lines", func(t *testing.T) {
		m := NewPrometheusMetrics(prometheus.NewRegistry())

		m.RecordLines("json_extract_key", "written", 4)
		m.RecordLines("json_extract_key", "invalid", 0)
		m.RecordLines("json_extract_key", "written", 2)

		assert.Equal(t, float64(6), testutil.ToFloat64(
			m.LinesProcessed.WithLabelValues("json_extract_key", "written")))
		assert.Equal(t, 1, testutil.CollectAndCount(m.LinesProcessed))
	})

	t.Run("nil metrics are a no-op", func(t *testing.T) {
		var m *PrometheusMetrics
		assert.NotPanics(t, func() { m.RecordLines("hash_lines", "written", 1) })
	})
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)
	m.ExtsortRecordsSpilled.Add(42)

	path := filepath.Join(t.TempDir(), "linesort.prom")
	require.NoError(t, WriteTextfile(path, reg))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "linesort_extsort_records_spilled_total 42")
}
