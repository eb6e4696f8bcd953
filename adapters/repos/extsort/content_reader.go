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
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// ContentReader gives run cursors independent, read-only views of the
// intermediate store. Views never share mutable state, so any number of
// cursors can read from the same ContentReader.
type ContentReader interface {
	// ReaderFromOffset returns a reader over the byte range [start, end).
	ReaderFromOffset(start, end int64) io.Reader
	Length() int64
	Close() error
}

type MMap struct {
	file     *os.File
	contents mmap.MMap
}

func (c MMap) ReaderFromOffset(start, end int64) io.Reader {
	return bytes.NewReader(c.contents[start:end])
}

func (c MMap) Length() int64 {
	return int64(len(c.contents))
}

func (c MMap) Close() error {
	if err := c.contents.Unmap(); err != nil {
		c.file.Close()
		return fmt.Errorf("close store: munmap: %w", err)
	}
	return c.file.Close()
}

type Pread struct {
	file *os.File
	size int64
}

func (c Pread) ReaderFromOffset(start, end int64) io.Reader {
	return io.NewSectionReader(c.file, start, end-start)
}

func (c Pread) Length() int64 {
	return c.size
}

func (c Pread) Close() error {
	return c.file.Close()
}

// OpenContent opens the finished store at path for reading. The store is
// memory mapped unless avoidMmap is set. An empty store cannot be mapped and
// always uses pread.
func OpenContent(path string, avoidMmap bool) (ContentReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open store for reading")
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "stat store")
	}

	if avoidMmap || stat.Size() == 0 {
		return Pread{file: f, size: stat.Size()}, nil
	}

	contents, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "mmap store")
	}

	return MMap{file: f, contents: contents}, nil
}
