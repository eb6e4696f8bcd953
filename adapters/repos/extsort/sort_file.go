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
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// SortFile sorts the file at inPath into outPath. The output is written to a
// temporary sibling and renamed over outPath only once the sort succeeded,
// so outPath is either the complete result or untouched.
func (s *Sorter) SortFile(ctx context.Context, inPath, outPath string) (*Outcome, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return nil, errors.Wrap(err, "open input")
	}
	defer in.Close()

	tmpPath := tempSibling(outPath)
	out, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "create output")
	}

	outcome, err := s.sortInto(ctx, in, out)
	if err == nil {
		err = s.checkOutput(tmpPath)
	}
	if err != nil {
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			s.logger.WithField("action", "extsort_sort_file").
				WithField("path", tmpPath).
				WithError(rmErr).
				Warn("failed to remove temporary output")
		}
		return outcome, err
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return outcome, errors.Wrapf(err, "move output into place at %q", outPath)
	}

	s.logger.WithField("action", "extsort_sort_file").
		WithField("input", inPath).
		WithField("output", outPath).
		WithField("records", outcome.Records).
		WithField("runs", outcome.Runs).
		Info("sorted file")

	return outcome, nil
}

// sortInto runs the sort and makes out durable. out is always closed.
func (s *Sorter) sortInto(ctx context.Context, in *os.File, out *os.File) (*Outcome, error) {
	outcome, err := s.Sort(ctx, in, out)
	if err != nil {
		out.Close()
		return outcome, err
	}

	if err := out.Sync(); err != nil {
		out.Close()
		return outcome, errors.Wrap(err, "fsync output")
	}
	if err := out.Close(); err != nil {
		return outcome, errors.Wrap(err, "close output")
	}

	return outcome, nil
}

func (s *Sorter) checkOutput(path string) error {
	if s.outputCheck == nil {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open output for checking")
	}
	defer f.Close()

	if err := s.outputCheck(f); err != nil {
		return errors.Wrap(err, "check output")
	}
	return nil
}

func tempSibling(path string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, "."+base+"."+uuid.NewString()+".tmp")
}
