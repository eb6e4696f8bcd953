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
	"io"

	"github.com/pkg/errors"
	"github.com/weaviate/linesort/entities/diskio"
)

const (
	DefaultReadBufferSize = 64 << 10

	// bufio does not go below this
	minReadBufferSize = 16
)

// RunCursor is a forward-only cursor over one run of the intermediate store.
// It stops after the declared number of records or at the end of the
// readable range, whichever comes first. Reaching the end early is only
// tolerated for a final run without a declared end offset.
type RunCursor struct {
	run RunMeta
	r   *bufio.Reader
	// the run declares its end offset, leftover bytes are corruption
	bounded bool

	remaining int
	read      int
	head      []byte
	valid     bool
	scratch   []byte
}

// OpenRun positions a cursor at the first record of run. Records returned by
// Peek are only valid until the next call to Advance. cb may be nil.
func OpenRun(content ContentReader, run RunMeta, bufferSize int,
	cb diskio.MeteredReaderCallback,
) (*RunCursor, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultReadBufferSize
	}

	storeLen := content.Length()
	if run.Offset < 0 || run.Offset > storeLen || run.End > storeLen {
		return nil, &CorruptionError{RunID: run.ID, Offset: run.Offset, Expected: run.Count,
			Reason: "run byte range outside of the store"}
	}

	end := storeLen
	bounded := run.End > run.Offset
	if bounded {
		end = run.End
	}

	// all cursors are resident during the merge, a small run must not pin a
	// full read buffer
	if size := end - run.Offset; size < int64(bufferSize) {
		bufferSize = max(int(size), minReadBufferSize)
	}

	var section io.Reader = content.ReaderFromOffset(run.Offset, end)
	if cb != nil {
		section = diskio.NewMeteredReader(section, cb)
	}

	c := &RunCursor{
		run:       run,
		r:         bufio.NewReaderSize(section, bufferSize),
		bounded:   bounded,
		remaining: run.Count,
	}
	if err := c.fill(); err != nil {
		return nil, err
	}

	return c, nil
}

// Peek returns the current head record. ok is false once the run is
// exhausted.
func (c *RunCursor) Peek() (rec []byte, ok bool) {
	return c.head, c.valid
}

// Advance moves to the next record. Advancing an exhausted cursor is a no-op.
func (c *RunCursor) Advance() error {
	if !c.valid {
		return nil
	}
	return c.fill()
}

func (c *RunCursor) Run() RunMeta {
	return c.run
}

// Read is the number of records taken from the store so far, including the
// current head.
func (c *RunCursor) Read() int {
	return c.read
}

func (c *RunCursor) fill() error {
	c.head, c.valid = nil, false

	if c.remaining == 0 {
		return c.checkDrained()
	}

	line, err := c.readRecord()
	if err == io.EOF {
		if len(line) > 0 {
			return c.corrupt("unterminated record at end of store")
		}
		if c.bounded || !c.run.Final {
			return c.corrupt("store ended before the run was complete")
		}
		// final run without a declared end, the short tail is expected
		c.remaining = 0
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "read run %d", c.run.ID)
	}

	c.remaining--
	c.read++
	c.head, c.valid = line[:len(line)-1], true
	return nil
}

// readRecord returns the next line including its '\n'. Lines longer than the
// read buffer are assembled in the cursor's scratch buffer.
func (c *RunCursor) readRecord() ([]byte, error) {
	line, err := c.r.ReadSlice('\n')
	if err != bufio.ErrBufferFull {
		return line, err
	}

	c.scratch = append(c.scratch[:0], line...)
	for err == bufio.ErrBufferFull {
		line, err = c.r.ReadSlice('\n')
		c.scratch = append(c.scratch, line...)
	}
	return c.scratch, err
}

func (c *RunCursor) checkDrained() error {
	if !c.bounded {
		return nil
	}

	_, err := c.r.Peek(1)
	switch {
	case err == nil:
		return c.corrupt("run holds more bytes than its declared records")
	case err == io.EOF:
		return nil
	default:
		return errors.Wrapf(err, "read run %d", c.run.ID)
	}
}

func (c *RunCursor) corrupt(reason string) error {
	return &CorruptionError{
		RunID:    c.run.ID,
		Offset:   c.run.Offset,
		Expected: c.run.Count,
		Got:      c.read,
		Reason:   reason,
	}
}
