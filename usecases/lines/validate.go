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

package lines

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

type ValidationResult struct {
	Sorted  bool
	Records int64
	// ViolationIndex is the 0-based index of the earlier record of the first
	// out of order pair, -1 if the input is sorted.
	ViolationIndex int64
}

// Validate checks that r is sorted in byte order. With strict every record
// must be greater than its predecessor, otherwise equal neighbours are
// allowed. The whole input is consumed so Records is always the full count.
func Validate(r io.Reader, strict bool) (ValidationResult, error) {
	res := ValidationResult{Sorted: true, ViolationIndex: -1}
	br := bufio.NewReader(r)

	var prev []byte
	for {
		line, ok, err := readLine(br)
		if err != nil {
			return res, errors.Wrapf(err, "read record %d", res.Records)
		}
		if !ok {
			return res, nil
		}

		if res.Records > 0 && res.Sorted {
			cmp := bytes.Compare(prev, line)
			if cmp > 0 || (strict && cmp == 0) {
				res.Sorted = false
				res.ViolationIndex = res.Records - 1
			}
		}

		prev = line
		res.Records++
	}
}
