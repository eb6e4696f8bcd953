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

type DiffOutcome struct {
	AOnly int64
	BOnly int64
	Both  int64
}

// DiffSorted walks two sorted inputs side by side. Records only present in a
// go to aOnly, records only in b go to bOnly and records present in both go
// to both, once per matching pair. Duplicates are matched pairwise.
func DiffSorted(a, b io.Reader, aOnly, bOnly, both io.Writer) (DiffOutcome, error) {
	var out DiffOutcome

	ra := &side{r: bufio.NewReader(a), name: "a"}
	rb := &side{r: bufio.NewReader(b), name: "b"}
	wa := bufio.NewWriterSize(aOnly, writeBufferSize)
	wb := bufio.NewWriterSize(bOnly, writeBufferSize)
	wBoth := bufio.NewWriterSize(both, writeBufferSize)

	if err := ra.advance(); err != nil {
		return out, err
	}
	if err := rb.advance(); err != nil {
		return out, err
	}

	for ra.ok || rb.ok {
		var err error
		switch {
		case !rb.ok || (ra.ok && bytes.Compare(ra.head, rb.head) < 0):
			err = emit(wa, ra, &out.AOnly, "a only")
		case !ra.ok || bytes.Compare(ra.head, rb.head) > 0:
			err = emit(wb, rb, &out.BOnly, "b only")
		default:
			if err = emit(wBoth, ra, &out.Both, "both"); err == nil {
				err = rb.advance()
			}
		}
		if err != nil {
			return out, err
		}
	}

	for _, w := range []*bufio.Writer{wa, wb, wBoth} {
		if err := w.Flush(); err != nil {
			return out, errors.Wrap(err, "flush diff output")
		}
	}

	return out, nil
}

type side struct {
	r    *bufio.Reader
	name string
	head []byte
	ok   bool
}

func (s *side) advance() error {
	line, ok, err := readLine(s.r)
	if err != nil {
		return errors.Wrapf(err, "read input %s", s.name)
	}
	s.head, s.ok = line, ok
	return nil
}

func emit(w *bufio.Writer, from *side, counter *int64, output string) error {
	if err := writeLine(w, from.head); err != nil {
		return errors.Wrapf(err, "write %s output", output)
	}
	*counter++
	return from.advance()
}
