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
	"os"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// ManifestSuffix is appended to the store path for the retained run index.
const ManifestSuffix = ".manifest"

// RunMeta describes one run inside the intermediate store. The store itself
// carries no boundaries, this is the only place they exist.
type RunMeta struct {
	ID     int   `msgpack:"id"`
	Offset int64 `msgpack:"offset"`
	End    int64 `msgpack:"end"`
	Count  int   `msgpack:"count"`
	Final  bool  `msgpack:"final"`
}

func (m RunMeta) Size() int64 {
	return m.End - m.Offset
}

// RunIndex lists the runs in write order.
type RunIndex struct {
	BatchSize int       `msgpack:"batch_size"`
	Runs      []RunMeta `msgpack:"runs"`
}

func (ri *RunIndex) Len() int {
	return len(ri.Runs)
}

// Offsets returns the start offset of every run in write order.
func (ri *RunIndex) Offsets() []int64 {
	out := make([]int64, len(ri.Runs))
	for i, run := range ri.Runs {
		out[i] = run.Offset
	}
	return out
}

// Records is the sum of the declared record counts.
func (ri *RunIndex) Records() int64 {
	var total int64
	for _, run := range ri.Runs {
		total += int64(run.Count)
	}
	return total
}

// Bytes is the number of store bytes covered by the index.
func (ri *RunIndex) Bytes() int64 {
	if len(ri.Runs) == 0 {
		return 0
	}
	return ri.Runs[len(ri.Runs)-1].End
}

func (ri *RunIndex) append(offset, end int64, count int) RunMeta {
	meta := RunMeta{
		ID:     len(ri.Runs),
		Offset: offset,
		End:    end,
		Count:  count,
	}
	ri.Runs = append(ri.Runs, meta)
	return meta
}

func (ri *RunIndex) markFinal() {
	if len(ri.Runs) == 0 {
		return
	}
	ri.Runs[len(ri.Runs)-1].Final = true
}

// Validate checks the run-length convention against a store of storeLen
// bytes: runs are contiguous from offset 0, every run but the last holds
// exactly BatchSize records, only the last one is final, and the last run
// ends where the store ends.
func (ri *RunIndex) Validate(storeLen int64) error {
	var expectedOffset int64
	last := len(ri.Runs) - 1

	for i, run := range ri.Runs {
		if run.ID != i {
			return &CorruptionError{RunID: run.ID, Offset: run.Offset, Expected: run.Count,
				Reason: "run id out of sequence"}
		}
		if run.Offset != expectedOffset {
			return &CorruptionError{RunID: i, Offset: run.Offset, Expected: run.Count,
				Reason: "run does not start where the previous one ended"}
		}
		if run.End <= run.Offset || run.End > storeLen {
			return &CorruptionError{RunID: i, Offset: run.Offset, Expected: run.Count,
				Reason: "run byte range outside of the store"}
		}
		if run.Count < 1 || run.Count > ri.BatchSize {
			return &CorruptionError{RunID: i, Offset: run.Offset, Expected: ri.BatchSize, Got: run.Count,
				Reason: "declared record count outside of batch bounds"}
		}
		if i < last && (run.Final || run.Count != ri.BatchSize) {
			return &CorruptionError{RunID: i, Offset: run.Offset, Expected: ri.BatchSize, Got: run.Count,
				Reason: "non-final run is not a full batch"}
		}
		if i == last && !run.Final {
			return &CorruptionError{RunID: i, Offset: run.Offset, Expected: run.Count,
				Reason: "last run is not flagged final"}
		}
		expectedOffset = run.End
	}

	if expectedOffset != storeLen {
		return &CorruptionError{RunID: last, Offset: expectedOffset,
			Reason: "store holds bytes beyond the last run"}
	}

	return nil
}

// WriteManifest persists the index next to a retained store so a failed sort
// can be inspected after the fact.
func WriteManifest(path string, ri *RunIndex) error {
	data, err := msgpack.Marshal(ri)
	if err != nil {
		return errors.Wrap(err, "marshal run index")
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write manifest %q", path)
	}
	return nil
}

func ReadManifest(path string) (*RunIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read manifest %q", path)
	}

	var ri RunIndex
	if err := msgpack.Unmarshal(data, &ri); err != nil {
		return nil, errors.Wrapf(err, "unmarshal manifest %q", path)
	}
	return &ri, nil
}
