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
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spaolacci/murmur3"
)

// HashLines writes the seeded 128 bit murmur3 hash of every line as 32
// lowercase hex digits. It returns the number of lines hashed.
func HashLines(r io.Reader, w io.Writer, seed uint32) (int64, error) {
	br := bufio.NewReader(r)
	bw := bufio.NewWriterSize(w, writeBufferSize)

	var n int64
	for {
		line, ok, err := readLine(br)
		if err != nil {
			return n, errors.Wrap(err, "read input")
		}
		if !ok {
			break
		}

		h1, h2 := murmur3.Sum128WithSeed(line, seed)
		if _, err := fmt.Fprintf(bw, "%016x%016x\n", h1, h2); err != nil {
			return n, errors.Wrap(err, "write output")
		}
		n++
	}

	if err := bw.Flush(); err != nil {
		return n, errors.Wrap(err, "flush output")
	}
	return n, nil
}
