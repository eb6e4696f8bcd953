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
	"bufio"
	"bytes"
	"context"
	"io"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	enterrors "github.com/weaviate/linesort/entities/errors"
)

const (
	DefaultBatchSize       = 1 << 20
	DefaultWriteBufferSize = 1 << 20

	// how many input lines are read between two context checks
	ctxCheckInterval = 4096
)

type RunWriterConfig struct {
	// BatchSize is the maximum number of records per run, must be >= 1.
	BatchSize       int
	WriteBufferSize int
	// AsyncSpill sorts and writes a full batch in the background while the
	// next batch is being filled. At most one spill is in flight, so runs are
	// still appended in order. Doubles the peak batch memory.
	AsyncSpill bool
	Logger     logrus.FieldLogger
	Metrics    *Metrics
}

// RunWriter partitions a stream of records into sorted runs and appends them
// to the intermediate store, recording where each run begins.
type RunWriter struct {
	w          *bufio.Writer
	batchSize  int
	batch      [][]byte
	offset     int64
	index      *RunIndex
	records    int64
	asyncSpill bool
	pending    *enterrors.ErrorGroupWrapper
	closed     bool
	logger     logrus.FieldLogger
	metrics    *Metrics
}

func NewRunWriter(w io.Writer, cfg RunWriterConfig) (*RunWriter, error) {
	if cfg.BatchSize < 1 {
		return nil, errors.Errorf("batch size must be at least 1, got %d", cfg.BatchSize)
	}
	if cfg.WriteBufferSize <= 0 {
		cfg.WriteBufferSize = DefaultWriteBufferSize
	}
	if cfg.Logger == nil {
		cfg.Logger = nullLogger()
	}

	return &RunWriter{
		w:          bufio.NewWriterSize(w, cfg.WriteBufferSize),
		batchSize:  cfg.BatchSize,
		batch:      make([][]byte, 0, initialBatchCap(cfg.BatchSize)),
		index:      &RunIndex{BatchSize: cfg.BatchSize},
		asyncSpill: cfg.AsyncSpill,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}, nil
}

// Add buffers one record. The writer keeps a reference to line, it must not
// be modified afterwards. A record must not contain a newline.
func (rw *RunWriter) Add(line []byte) error {
	if rw.closed {
		return errors.New("add to closed run writer")
	}
	if bytes.IndexByte(line, '\n') >= 0 {
		return errors.Errorf("record %d contains a newline", rw.records)
	}

	rw.batch = append(rw.batch, line)
	rw.records++
	if len(rw.batch) < rw.batchSize {
		return nil
	}

	return rw.spillBatch()
}

// WriteFrom adds every line of r. A last line without a trailing newline is
// still a record. It returns the number of lines read.
func (rw *RunWriter) WriteFrom(ctx context.Context, r io.Reader) (int64, error) {
	br := bufio.NewReader(r)
	var n int64

	for {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return n, errors.Wrapf(err, "stopped after %d lines", n)
			}
		}

		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if line[len(line)-1] == '\n' {
				line = line[:len(line)-1]
			}
			if addErr := rw.Add(line); addErr != nil {
				return n, addErr
			}
			n++
		}

		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, errors.Wrap(err, "read input")
		}
	}
}

// Close spills the remaining records as the final, possibly shorter run,
// flushes the store and returns the run index. The underlying writer is not
// closed.
func (rw *RunWriter) Close() (*RunIndex, error) {
	if rw.closed {
		return nil, errors.New("run writer already closed")
	}
	rw.closed = true

	if err := rw.waitPending(); err != nil {
		return nil, err
	}

	if len(rw.batch) > 0 {
		if err := rw.spill(rw.batch); err != nil {
			return nil, err
		}
		rw.batch = nil
	}

	if err := rw.w.Flush(); err != nil {
		return nil, errors.Wrap(err, "flush store")
	}

	rw.index.markFinal()
	return rw.index, nil
}

// Index is the run index as far as it has been written. It is complete and
// has its final run flagged only after a successful Close.
func (rw *RunWriter) Index() *RunIndex {
	return rw.index
}

// Records is the number of records added so far.
func (rw *RunWriter) Records() int64 {
	return rw.records
}

func (rw *RunWriter) spillBatch() error {
	batch := rw.batch

	if !rw.asyncSpill {
		err := rw.spill(batch)
		clear(batch)
		rw.batch = batch[:0]
		return err
	}

	if err := rw.waitPending(); err != nil {
		return err
	}

	rw.batch = make([][]byte, 0, initialBatchCap(rw.batchSize))
	eg := enterrors.NewErrorGroupWrapper(rw.logger, "run", rw.index.Len())
	eg.Go(func() error {
		return rw.spill(batch)
	})
	rw.pending = eg
	return nil
}

func (rw *RunWriter) waitPending() error {
	if rw.pending == nil {
		return nil
	}

	err := rw.pending.Wait()
	rw.pending = nil
	if err != nil {
		return errors.Wrap(err, "async spill")
	}
	return nil
}

func (rw *RunWriter) spill(batch [][]byte) error {
	before := time.Now()
	slices.SortFunc(batch, bytes.Compare)

	offset := rw.offset
	for _, rec := range batch {
		if _, err := rw.w.Write(rec); err != nil {
			return errors.Wrapf(err, "write run %d", rw.index.Len())
		}
		if err := rw.w.WriteByte('\n'); err != nil {
			return errors.Wrapf(err, "write run %d", rw.index.Len())
		}
		rw.offset += int64(len(rec)) + 1
	}

	meta := rw.index.append(offset, rw.offset, len(batch))
	rw.metrics.RunSpilled(meta.Count)

	rw.logger.WithField("action", "extsort_spill").
		WithField("run", meta.ID).
		WithField("offset", meta.Offset).
		WithField("records", meta.Count).
		WithField("took", time.Since(before)).
		Debug("spilled sorted run")

	return nil
}

// batches are only preallocated up to this many slots, a huge batch size on
// a tiny input should not reserve memory up front
func initialBatchCap(batchSize int) int {
	const maxPrealloc = 1 << 16
	if batchSize < maxPrealloc {
		return batchSize
	}
	return maxPrealloc
}

func nullLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
