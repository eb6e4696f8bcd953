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
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// RetainPolicy decides whether the intermediate store outlives a sort.
type RetainPolicy string

const (
	// RetainOnFailure removes the store after a successful sort and keeps it,
	// together with a manifest of the run index, after a failed one.
	RetainOnFailure RetainPolicy = "on_failure"
	RetainAlways    RetainPolicy = "always"
	RetainNever     RetainPolicy = "never"
)

func ParseRetainPolicy(in string) (RetainPolicy, error) {
	switch p := RetainPolicy(in); p {
	case RetainOnFailure, RetainAlways, RetainNever:
		return p, nil
	case "":
		return RetainOnFailure, nil
	default:
		return "", errors.Errorf("unknown retain policy %q, expected one of %q, %q, %q",
			in, RetainOnFailure, RetainAlways, RetainNever)
	}
}

func (p RetainPolicy) retain(sortErr error) bool {
	switch p {
	case RetainAlways:
		return true
	case RetainNever:
		return false
	default:
		return sortErr != nil
	}
}

type Option func(s *Sorter) error

func WithBatchSize(batchSize int) Option {
	return func(s *Sorter) error {
		if batchSize < 1 {
			return errors.Errorf("batch size must be at least 1, got %d", batchSize)
		}

		s.batchSize = batchSize
		return nil
	}
}

// WithStoreDir sets the directory in which a uniquely named store is created
// for every sort.
func WithStoreDir(dir string) Option {
	return func(s *Sorter) error {
		s.storeDir = dir
		return nil
	}
}

// WithStorePath pins the store to an exact path. The file must not exist yet,
// a sorter with a pinned path can run only one sort at a time.
func WithStorePath(path string) Option {
	return func(s *Sorter) error {
		s.storePath = path
		return nil
	}
}

func WithRetainPolicy(policy RetainPolicy) Option {
	return func(s *Sorter) error {
		p, err := ParseRetainPolicy(string(policy))
		if err != nil {
			return err
		}

		s.retain = p
		return nil
	}
}

func WithAvoidMmap(avoid bool) Option {
	return func(s *Sorter) error {
		s.avoidMmap = avoid
		return nil
	}
}

func WithReadBufferSize(size int) Option {
	return func(s *Sorter) error {
		if size <= 0 {
			return errors.Errorf("read buffer size must be positive, got %d", size)
		}

		s.readBufferSize = size
		return nil
	}
}

func WithWriteBufferSize(size int) Option {
	return func(s *Sorter) error {
		if size <= 0 {
			return errors.Errorf("write buffer size must be positive, got %d", size)
		}

		s.writeBufferSize = size
		return nil
	}
}

func WithAsyncSpill(async bool) Option {
	return func(s *Sorter) error {
		s.asyncSpill = async
		return nil
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Sorter) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(s *Sorter) error {
		s.metrics = metrics
		return nil
	}
}

// WithOutputCheck runs check over the finished output of SortFile before it
// is moved into place. A failing check fails the sort.
func WithOutputCheck(check func(sorted io.Reader) error) Option {
	return func(s *Sorter) error {
		s.outputCheck = check
		return nil
	}
}
