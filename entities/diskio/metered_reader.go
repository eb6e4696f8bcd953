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

package diskio

import (
	"io"
	"time"
)

type MeteredReaderCallback func(read int64, nanoseconds int64)

type MeteredReader struct {
	r     io.Reader
	cb    MeteredReaderCallback
	total int64
}

// Read passes the read through to the underlying reader. Whenever bytes were
// read it triggers the attached callback, including on the final read that
// also returns io.EOF. If no callback is set, it will ignore it.
func (m *MeteredReader) Read(p []byte) (n int, err error) {
	start := time.Now()
	n, err = m.r.Read(p)
	if n <= 0 {
		return
	}

	m.total += int64(n)
	if m.cb != nil {
		m.cb(int64(n), time.Since(start).Nanoseconds())
	}

	return
}

// BytesRead is the total number of bytes passed through the reader so far.
func (m *MeteredReader) BytesRead() int64 {
	return m.total
}

func NewMeteredReader(r io.Reader, cb MeteredReaderCallback) *MeteredReader {
	return &MeteredReader{r: r, cb: cb}
}
