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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunIndexValidate(t *testing.T) {
	valid := func() *RunIndex {
		return &RunIndex{
			BatchSize: 2,
			Runs: []RunMeta{
				{ID: 0, Offset: 0, End: 4, Count: 2},
				{ID: 1, Offset: 4, End: 8, Count: 2},
				{ID: 2, Offset: 8, End: 10, Count: 1, Final: true},
			},
		}
	}

	require.Nil(t, valid().Validate(10))

	for _, tc := range []struct {
		name     string
		mutate   func(ri *RunIndex)
		storeLen int64
		runID    int
	}{
		{
			name:     "store longer than the index",
			mutate:   func(ri *RunIndex) {},
			storeLen: 12,
			runID:    2,
		},
		{
			name:     "store shorter than the index",
			mutate:   func(ri *RunIndex) {},
			storeLen: 9,
			runID:    2,
		},
		{
			name:     "gap between runs",
			mutate:   func(ri *RunIndex) { ri.Runs[1].Offset = 5 },
			storeLen: 10,
			runID:    1,
		},
		{
			name:     "short non-final run",
			mutate:   func(ri *RunIndex) { ri.Runs[0].Count = 1 },
			storeLen: 10,
			runID:    0,
		},
		{
			name:     "final flag in the middle",
			mutate:   func(ri *RunIndex) { ri.Runs[1].Final = true },
			storeLen: 10,
			runID:    1,
		},
		{
			name:     "last run not final",
			mutate:   func(ri *RunIndex) { ri.Runs[2].Final = false },
			storeLen: 10,
			runID:    2,
		},
		{
			name:     "count above batch size",
			mutate:   func(ri *RunIndex) { ri.Runs[2].Count = 3 },
			storeLen: 10,
			runID:    2,
		},
		{
			name:     "ids out of sequence",
			mutate:   func(ri *RunIndex) { ri.Runs[1].ID = 7 },
			storeLen: 10,
			runID:    7,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ri := valid()
			tc.mutate(ri)
			assertCorrupt(t, ri.Validate(tc.storeLen), tc.runID)
		})
	}
}

func TestManifest(t *testing.T) {
	ri := &RunIndex{
		BatchSize: 3,
		Runs: []RunMeta{
			{ID: 0, Offset: 0, End: 9, Count: 3},
			{ID: 1, Offset: 9, End: 11, Count: 1, Final: true},
		},
	}
	path := filepath.Join(t.TempDir(), "store.runs"+ManifestSuffix)

	require.Nil(t, WriteManifest(path, ri))
	read, err := ReadManifest(path)
	require.Nil(t, err)
	assert.Equal(t, ri, read)
	assert.Equal(t, []int64{0, 9}, read.Offsets())
	assert.Equal(t, int64(4), read.Records())

	_, err = ReadManifest(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "read manifest")
}

func TestParseRetainPolicy(t *testing.T) {
	for in, expected := range map[string]RetainPolicy{
		"":           RetainOnFailure,
		"on_failure": RetainOnFailure,
		"always":     RetainAlways,
		"never":      RetainNever,
	} {
		p, err := ParseRetainPolicy(in)
		require.Nil(t, err)
		assert.Equal(t, expected, p)
	}

	_, err := ParseRetainPolicy("later")
	assert.NotNil(t, err)
}
