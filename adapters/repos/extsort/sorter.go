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
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/weaviate/linesort/entities/diskio"
)

// Sorter sorts newline-delimited records of arbitrary volume with bounded
// memory. Input is cut into sorted runs of at most batchSize records which
// are spilled to an intermediate store on disk and then merged with one
// cursor per run.
type Sorter struct {
	batchSize       int
	storeDir        string
	storePath       string
	retain          RetainPolicy
	avoidMmap       bool
	readBufferSize  int
	writeBufferSize int
	asyncSpill      bool
	outputCheck     func(sorted io.Reader) error

	logger  logrus.FieldLogger
	metrics *Metrics
}

// Outcome describes a finished (or failed) sort.
type Outcome struct {
	Runs          int
	Records       int64
	StoreBytes    int64
	StorePath     string
	StoreRetained bool
	// Index is nil when ingestion failed before any run was written.
	Index         *RunIndex
	SpillDuration time.Duration
	MergeDuration time.Duration
}

func New(opts ...Option) (*Sorter, error) {
	s := &Sorter{
		batchSize:       DefaultBatchSize,
		retain:          RetainOnFailure,
		readBufferSize:  DefaultReadBufferSize,
		writeBufferSize: DefaultWriteBufferSize,
		logger:          nullLogger(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Sort reads all records from in and writes them to out in non-decreasing
// byte order, preserving duplicates. The outcome is returned on failure as
// well so the caller can locate a retained store.
func (s *Sorter) Sort(ctx context.Context, in io.Reader, out io.Writer) (outcome *Outcome, err error) {
	outcome = &Outcome{StorePath: s.newStorePath()}
	logger := s.logger.WithField("store", outcome.StorePath)

	defer func() {
		s.metrics.SortFinished(err)
	}()

	f, err := os.OpenFile(outcome.StorePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return outcome, errors.Wrap(err, "create intermediate store")
	}

	defer func() {
		s.releaseStore(outcome, err, logger)
	}()

	before := time.Now()
	err = s.ingest(ctx, in, f, outcome)
	outcome.SpillDuration = time.Since(before)
	s.metrics.PhaseDuration(phaseIngest, outcome.SpillDuration)
	if err != nil {
		return outcome, errors.Wrap(err, "ingest")
	}

	logger.WithField("action", "extsort_ingest").
		WithField("runs", outcome.Runs).
		WithField("records", outcome.Records).
		WithField("bytes", outcome.StoreBytes).
		WithField("took", outcome.SpillDuration).
		Debug("ingestion complete")

	before = time.Now()
	err = s.merge(ctx, outcome, out)
	outcome.MergeDuration = time.Since(before)
	s.metrics.PhaseDuration(phaseMerge, outcome.MergeDuration)
	if err != nil {
		return outcome, errors.Wrap(err, "merge")
	}

	logger.WithField("action", "extsort_merge").
		WithField("runs", outcome.Runs).
		WithField("records", outcome.Records).
		WithField("took", outcome.MergeDuration).
		Debug("merge complete")

	return outcome, nil
}

func (s *Sorter) newStorePath() string {
	if s.storePath != "" {
		return s.storePath
	}

	dir := s.storeDir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "linesort-"+uuid.NewString()+".runs")
}

// ingest writes all runs and closes the store for writing. The index in the
// outcome reflects what reached the store, even on failure.
func (s *Sorter) ingest(ctx context.Context, in io.Reader, f *os.File, outcome *Outcome) error {
	store := diskio.NewMeteredWriter(f, s.metrics.storeWriteCallback())

	rw, err := NewRunWriter(store, RunWriterConfig{
		BatchSize:       s.batchSize,
		WriteBufferSize: s.writeBufferSize,
		AsyncSpill:      s.asyncSpill,
		Logger:          s.logger,
		Metrics:         s.metrics,
	})
	if err != nil {
		f.Close()
		return err
	}

	_, readErr := rw.WriteFrom(ctx, in)
	// Close also waits for an in-flight spill, so it has to run on the error
	// path before the file goes away.
	index, closeErr := rw.Close()
	outcome.Index = rw.Index()
	outcome.Runs = rw.Index().Len()
	outcome.Records = rw.Index().Records()
	outcome.StoreBytes = store.BytesWritten()

	fileErr := f.Close()

	switch {
	case readErr != nil:
		return readErr
	case closeErr != nil:
		return closeErr
	case fileErr != nil:
		return errors.Wrap(fileErr, "close intermediate store")
	}

	outcome.Index = index
	return nil
}

func (s *Sorter) merge(ctx context.Context, outcome *Outcome, out io.Writer) error {
	content, err := OpenContent(outcome.StorePath, s.avoidMmap)
	if err != nil {
		return err
	}
	defer content.Close()

	index := outcome.Index
	if err := index.Validate(content.Length()); err != nil {
		return err
	}

	cursors := make([]*RunCursor, 0, index.Len())
	for _, run := range index.Runs {
		c, err := OpenRun(content, run, s.readBufferSize, s.metrics.storeReadCallback())
		if err != nil {
			return err
		}
		cursors = append(cursors, c)
	}

	bw := bufio.NewWriterSize(diskio.NewMeteredWriter(out, s.metrics.outputWriteCallback()),
		s.writeBufferSize)

	merged, err := NewFrontier(cursors, s.metrics).Merge(ctx, func(rec []byte) error {
		if _, err := bw.Write(rec); err != nil {
			return errors.Wrap(err, "write output")
		}
		if err := bw.WriteByte('\n'); err != nil {
			return errors.Wrap(err, "write output")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if merged != index.Records() {
		return &CorruptionError{RunID: index.Len() - 1, Offset: index.Bytes(),
			Expected: int(index.Records()), Got: int(merged),
			Reason: "merged record count does not match the run index"}
	}

	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "flush output")
	}

	return nil
}

func (s *Sorter) releaseStore(outcome *Outcome, sortErr error, logger logrus.FieldLogger) {
	if !s.retain.retain(sortErr) {
		if err := os.Remove(outcome.StorePath); err != nil && !os.IsNotExist(err) {
			logger.WithField("action", "extsort_cleanup").
				WithError(err).
				Warn("failed to remove intermediate store")
		}
		return
	}

	outcome.StoreRetained = true
	entry := logger.WithField("action", "extsort_retain_store").
		WithField("runs", outcome.Runs)

	if outcome.Index != nil {
		manifest := outcome.StorePath + ManifestSuffix
		if err := WriteManifest(manifest, outcome.Index); err != nil {
			entry.WithError(err).Warn("failed to write run index manifest")
		} else {
			entry = entry.WithField("manifest", manifest)
		}
	}

	if sortErr != nil {
		entry.WithError(sortErr).Warn("sort failed, keeping intermediate store for inspection")
		return
	}
	entry.Info("keeping intermediate store")
}
