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
	"io"
)

const writeBufferSize = 1 << 20

// readLine returns the next line without its "\n" or "\r\n". A last line
// without a trailing newline is still a line and keeps any '\r'. ok is false at
// end of input.
func readLine(br *bufio.Reader) (line []byte, ok bool, err error) {
	raw, err := br.ReadBytes('\n')
	switch {
	case err == nil:
		raw = raw[:len(raw)-1]
		if n := len(raw); n > 0 && raw[n-1] == '\r' {
			raw = raw[:n-1]
		}
		return raw, true, nil
	case err == io.EOF:
		return raw, len(raw) > 0, nil
	default:
		return nil, false, err
	}
}

func writeLine(w *bufio.Writer, line []byte) error {
	if _, err := w.Write(line); err != nil {
		return err
	}
	return w.WriteByte('\n')
}
