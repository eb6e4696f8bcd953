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

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"
)

// ExtractOutcome counts the lines that did not yield a value. Neither case is
// an error.
type ExtractOutcome struct {
	Written int64
	// Invalid lines are not JSON objects.
	Invalid int64
	// Missing lines are objects without a string value for the key.
	Missing int64
}

// ExtractJSONKey reads one JSON object per line and writes the unescaped
// string value of key for every object that has one.
func ExtractJSONKey(r io.Reader, w io.Writer, key string) (ExtractOutcome, error) {
	var out ExtractOutcome
	br := bufio.NewReader(r)
	bw := bufio.NewWriterSize(w, writeBufferSize)

	for {
		line, ok, err := readLine(br)
		if err != nil {
			return out, errors.Wrap(err, "read input")
		}
		if !ok {
			break
		}

		value, res := extractString(line, key)
		switch res {
		case extractInvalid:
			out.Invalid++
			continue
		case extractMissing:
			out.Missing++
			continue
		}

		if err := writeLine(bw, value); err != nil {
			return out, errors.Wrap(err, "write output")
		}
		out.Written++
	}

	if err := bw.Flush(); err != nil {
		return out, errors.Wrap(err, "flush output")
	}
	return out, nil
}

type extractResult int

const (
	extractFound extractResult = iota
	extractInvalid
	extractMissing
)

func extractString(line []byte, key string) ([]byte, extractResult) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) < 2 || trimmed[0] != '{' || trimmed[len(trimmed)-1] != '}' {
		return nil, extractInvalid
	}

	var (
		value []byte
		found bool
		isStr bool
		// end of the last member value, only the closing brace may follow
		end = 1
	)
	err := jsonparser.ObjectEach(trimmed, func(k, v []byte, dataType jsonparser.ValueType, offset int) error {
		end = offset
		// duplicate keys: the last one wins
		if string(k) == key {
			value, found, isStr = v, true, dataType == jsonparser.String
		}
		return nil
	})
	if err != nil || !bytes.Equal(bytes.TrimSpace(trimmed[end:]), []byte("}")) {
		return nil, extractInvalid
	}
	if !found || !isStr {
		return nil, extractMissing
	}

	unescaped, err := jsonparser.ParseString(value)
	if err != nil {
		return nil, extractInvalid
	}
	return []byte(unescaped), extractFound
}
