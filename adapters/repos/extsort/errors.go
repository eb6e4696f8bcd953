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
	"fmt"

	"github.com/pkg/errors"
)

// ErrStoreCorrupt is matched (errors.Is) by every CorruptionError.
var ErrStoreCorrupt = errors.New("intermediate store corrupt")

// CorruptionError signals that the intermediate store does not match what
// the run index declares for a run. It is an invariant violation, not an
// ordinary I/O failure.
type CorruptionError struct {
	RunID    int
	Offset   int64
	Expected int
	Got      int
	Reason   string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("%s: run %d at offset %d: %s (expected %d records, got %d)",
		ErrStoreCorrupt, e.RunID, e.Offset, e.Reason, e.Expected, e.Got)
}

func (e *CorruptionError) Unwrap() error {
	return ErrStoreCorrupt
}
