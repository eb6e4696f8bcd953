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
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/linesort/usecases/monitoring"
)

func TestSorterScenarios(t *testing.T) {
	t.Run("two runs with duplicates", func(t *testing.T) {
		out, outcome := sortLines(t, []string{"banana", "apple", "cherry", "apple"},
			WithBatchSize(2))

		assert.Equal(t, []string{"apple", "apple", "banana", "cherry"}, out)
		assert.Equal(t, 2, outcome.Runs)
		assert.Equal(t, int64(4), outcome.Records)
		assert.Equal(t, []int64{0, 13}, outcome.Index.Offsets())
	})

	t.Run("empty input", func(t *testing.T) {
		out, outcome := sortLines(t, nil, WithBatchSize(3))

		assert.Empty(t, out)
		assert.Equal(t, 0, outcome.Runs)
		assert.Equal(t, int64(0), outcome.StoreBytes)
	})

	t.Run("batch covers the whole input", func(t *testing.T) {
		lines := []string{"c", "a", "b"}
		for _, batchSize := range []int{3, 4, 1000} {
			out, outcome := sortLines(t, lines, WithBatchSize(batchSize))

			assert.Equal(t, []string{"a", "b", "c"}, out)
			assert.Equal(t, 1, outcome.Runs)
		}
	})

	t.Run("identical records", func(t *testing.T) {
		lines := make([]string, 17)
		for i := range lines {
			lines[i] = "same"
		}

		for _, batchSize := range []int{1, 2, 5, 17, 100} {
			out, _ := sortLines(t, lines, WithBatchSize(batchSize))
			assert.Equal(t, lines, out)
		}
	})
}

func TestSorterProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	lines := make([]string, 2000)
	for i := range lines {
		lines[i] = randomLine(r)
	}
	expected := slices.Clone(lines)
	slices.Sort(expected)

	t.Run("output is a sorted permutation for any batch size", func(t *testing.T) {
		for _, batchSize := range []int{1, 2, 3, 7, 64, 999, 2000, 5000} {
			t.Run(fmt.Sprintf("batch %d", batchSize), func(t *testing.T) {
				out, outcome := sortLines(t, lines, WithBatchSize(batchSize))

				assert.Equal(t, expected, out)
				assert.Equal(t, (len(lines)+batchSize-1)/batchSize, outcome.Runs)
			})
		}
	})

	t.Run("sorting sorted input is a no-op", func(t *testing.T) {
		for _, batchSize := range []int{1, 13, 4096} {
			out, _ := sortLines(t, expected, WithBatchSize(batchSize))
			assert.Equal(t, expected, out)
		}
	})

	t.Run("mmap and pread produce identical output", func(t *testing.T) {
		mmapOut, _ := sortLines(t, lines, WithBatchSize(33), WithAvoidMmap(false))
		preadOut, _ := sortLines(t, lines, WithBatchSize(33), WithAvoidMmap(true))

		assert.Equal(t, mmapOut, preadOut)
	})

	t.Run("async spill produces identical output", func(t *testing.T) {
		out, _ := sortLines(t, lines, WithBatchSize(33), WithAsyncSpill(true))
		assert.Equal(t, expected, out)
	})

	t.Run("small buffers", func(t *testing.T) {
		out, _ := sortLines(t, lines, WithBatchSize(50),
			WithReadBufferSize(16), WithWriteBufferSize(16))
		assert.Equal(t, expected, out)
	})
}

func TestSorterRetainPolicy(t *testing.T) {
	input := "b\na\nc\n"

	for _, tc := range []struct {
		policy   RetainPolicy
		fail     bool
		retained bool
	}{
		{policy: RetainOnFailure, fail: false, retained: false},
		{policy: RetainOnFailure, fail: true, retained: true},
		{policy: RetainAlways, fail: false, retained: true},
		{policy: RetainAlways, fail: true, retained: true},
		{policy: RetainNever, fail: false, retained: false},
		{policy: RetainNever, fail: true, retained: false},
	} {
		t.Run(fmt.Sprintf("%s fail=%t", tc.policy, tc.fail), func(t *testing.T) {
			s, err := New(WithBatchSize(2), WithStoreDir(t.TempDir()), WithRetainPolicy(tc.policy))
			require.Nil(t, err)

			var out bytes.Buffer
			var outcome *Outcome
			if tc.fail {
				outcome, err = s.Sort(context.Background(), strings.NewReader(input), failingWriter{})
				require.NotNil(t, err)
			} else {
				outcome, err = s.Sort(context.Background(), strings.NewReader(input), &out)
				require.Nil(t, err)
				assert.Equal(t, "a\nb\nc\n", out.String())
			}

			assert.Equal(t, tc.retained, outcome.StoreRetained)
			_, statErr := os.Stat(outcome.StorePath)
			assert.Equal(t, tc.retained, statErr == nil)

			if !tc.retained {
				return
			}

			manifest, err := ReadManifest(outcome.StorePath + ManifestSuffix)
			require.Nil(t, err)
			assert.Equal(t, outcome.Index, manifest)
			assert.Equal(t, 2, manifest.Len())
			assert.True(t, manifest.Runs[1].Final)

			stat, err := os.Stat(outcome.StorePath)
			require.Nil(t, err)
			assert.Nil(t, manifest.Validate(stat.Size()))
		})
	}

	t.Run("unknown policy", func(t *testing.T) {
		_, err := New(WithRetainPolicy("sometimes"))
		assert.ErrorContains(t, err, "unknown retain policy")
	})
}

func TestSorterStore(t *testing.T) {
	t.Run("pinned store path is never overwritten", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "existing.runs")
		require.Nil(t, os.WriteFile(path, []byte("keep me"), 0o600))

		s, err := New(WithStorePath(path))
		require.Nil(t, err)

		_, err = s.Sort(context.Background(), strings.NewReader("a\n"), &bytes.Buffer{})
		assert.ErrorContains(t, err, "create intermediate store")

		data, err := os.ReadFile(path)
		require.Nil(t, err)
		assert.Equal(t, "keep me", string(data))
	})

	t.Run("unique store names", func(t *testing.T) {
		dir := t.TempDir()
		s, err := New(WithStoreDir(dir), WithRetainPolicy(RetainAlways))
		require.Nil(t, err)

		first, err := s.Sort(context.Background(), strings.NewReader("a\n"), &bytes.Buffer{})
		require.Nil(t, err)
		second, err := s.Sort(context.Background(), strings.NewReader("a\n"), &bytes.Buffer{})
		require.Nil(t, err)

		assert.NotEqual(t, first.StorePath, second.StorePath)
		assert.Equal(t, dir, filepath.Dir(first.StorePath))
	})

	t.Run("invalid options", func(t *testing.T) {
		for _, opt := range []Option{
			WithBatchSize(0),
			WithReadBufferSize(0),
			WithWriteBufferSize(-1),
		} {
			_, err := New(opt)
			assert.NotNil(t, err)
		}
	})
}

func TestSorterMetrics(t *testing.T) {
	promMetrics := monitoring.NewPrometheusMetrics(prometheus.NewRegistry())
	s, err := New(WithBatchSize(2), WithStoreDir(t.TempDir()),
		WithMetrics(NewMetrics(promMetrics)))
	require.Nil(t, err)

	_, err = s.Sort(context.Background(), strings.NewReader("e\nd\nc\nb\na\n"), &bytes.Buffer{})
	require.Nil(t, err)
	_, err = s.Sort(context.Background(), strings.NewReader("a\n"), failingWriter{})
	require.NotNil(t, err)

	assert.Equal(t, float64(4), testutil.ToFloat64(promMetrics.ExtsortRunsSpilled))
	assert.Equal(t, float64(6), testutil.ToFloat64(promMetrics.ExtsortRecordsSpilled))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(promMetrics.ExtsortOperations.WithLabelValues(statusSuccess)))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(promMetrics.ExtsortOperations.WithLabelValues(statusFailure)))
}

func TestSortFile(t *testing.T) {
	t.Run("sorts into the destination", func(t *testing.T) {
		dir := t.TempDir()
		in := filepath.Join(dir, "in.txt")
		out := filepath.Join(dir, "out.txt")
		require.Nil(t, os.WriteFile(in, []byte("b\nc\na"), 0o644))

		logger, hook := test.NewNullLogger()
		s, err := New(WithBatchSize(2), WithStoreDir(t.TempDir()), WithLogger(logger))
		require.Nil(t, err)

		outcome, err := s.SortFile(context.Background(), in, out)
		require.Nil(t, err)
		assert.Equal(t, int64(3), outcome.Records)

		data, err := os.ReadFile(out)
		require.Nil(t, err)
		assert.Equal(t, "a\nb\nc\n", string(data))

		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
		assert.Equal(t, "extsort_sort_file", hook.LastEntry().Data["action"])
		assertOnlyFiles(t, dir, "in.txt", "out.txt")
	})

	t.Run("failure leaves the destination untouched", func(t *testing.T) {
		dir := t.TempDir()
		in := filepath.Join(dir, "in.txt")
		out := filepath.Join(dir, "out.txt")
		require.Nil(t, os.WriteFile(in, []byte("b\na\n"), 0o644))
		require.Nil(t, os.WriteFile(out, []byte("previous"), 0o644))

		s, err := New(WithStoreDir(t.TempDir()))
		require.Nil(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = s.SortFile(ctx, in, out)
		assert.ErrorIs(t, err, context.Canceled)

		data, err := os.ReadFile(out)
		require.Nil(t, err)
		assert.Equal(t, "previous", string(data))
		assertOnlyFiles(t, dir, "in.txt", "out.txt")
	})

	t.Run("failed output check removes the output", func(t *testing.T) {
		dir := t.TempDir()
		in := filepath.Join(dir, "in.txt")
		out := filepath.Join(dir, "out.txt")
		require.Nil(t, os.WriteFile(in, []byte("b\na\nb\n"), 0o644))

		var checked string
		s, err := New(WithStoreDir(t.TempDir()), WithOutputCheck(func(sorted io.Reader) error {
			data, err := io.ReadAll(sorted)
			checked = string(data)
			if err != nil {
				return err
			}
			return fmt.Errorf("duplicate records")
		}))
		require.Nil(t, err)

		_, err = s.SortFile(context.Background(), in, out)
		assert.ErrorContains(t, err, "check output: duplicate records")
		assert.Equal(t, "a\nb\nb\n", checked)
		assertOnlyFiles(t, dir, "in.txt")
	})

	t.Run("missing input", func(t *testing.T) {
		dir := t.TempDir()
		s, err := New()
		require.Nil(t, err)

		_, err = s.SortFile(context.Background(), filepath.Join(dir, "nope"), filepath.Join(dir, "out"))
		assert.ErrorContains(t, err, "open input")
		assertOnlyFiles(t, dir)
	})
}

func sortLines(t *testing.T, lines []string, opts ...Option) ([]string, *Outcome) {
	t.Helper()

	opts = append([]Option{WithStoreDir(t.TempDir())}, opts...)
	s, err := New(opts...)
	require.Nil(t, err)

	var in bytes.Buffer
	for _, line := range lines {
		in.WriteString(line)
		in.WriteByte('\n')
	}

	var out bytes.Buffer
	outcome, err := s.Sort(context.Background(), &in, &out)
	require.Nil(t, err)
	assert.False(t, outcome.StoreRetained)

	if out.Len() == 0 {
		return nil, outcome
	}
	return strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n"), outcome
}

func randomLine(r *rand.Rand) string {
	const alphabet = "abcde"
	b := make([]byte, r.Intn(6))
	for i := range b {
		b[i] = alphabet[r.Intn(len(alphabet))]
	}
	return string(b)
}

func assertOnlyFiles(t *testing.T, dir string, names ...string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.Nil(t, err)

	var found []string
	for _, e := range entries {
		found = append(found, e.Name())
	}
	assert.ElementsMatch(t, names, found)
}
